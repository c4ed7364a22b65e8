package handlers

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/polkiloo/cryptostore/internal/domain/model"
	"github.com/polkiloo/cryptostore/internal/domain/repository"
	pkgAuth "github.com/polkiloo/cryptostore/internal/pkg/auth"
	"github.com/polkiloo/cryptostore/internal/usecase"
)

// AuthFacade describes authentication capabilities required by handlers.
type AuthFacade interface {
	Register(ctx context.Context, login, password string) (string, error)
	Authenticate(ctx context.Context, login, password string) (string, error)
	ParseToken(token string) (pkgAuth.Identity, error)
}

// OrderFacade encapsulates order operations exposed via HTTP.
type OrderFacade interface {
	CreateOrder(ctx context.Context, in usecase.CreateOrderInput) (*model.Order, error)
	Order(ctx context.Context, userID int64, orderID uuid.UUID) (*model.Order, error)
	Orders(ctx context.Context, userID int64) ([]model.Order, error)
}

// PaymentFacade covers payment initiation and reconciliation checks.
type PaymentFacade interface {
	InitiatePayment(ctx context.Context, userID int64, orderID uuid.UUID, provider model.Provider, expected decimal.Decimal) (*model.PaymentRecord, error)
	Payment(ctx context.Context, userID int64, paymentID uuid.UUID) (*model.PaymentRecord, error)
	CheckTransaction(ctx context.Context, req usecase.DiscoveryRequest) (usecase.ReconcileOutcome, error)
	CheckConfirmations(ctx context.Context, req usecase.ConfirmationRequest) (usecase.ReconcileOutcome, error)
}

type DiscountFacade interface {
	ValidateDiscount(ctx context.Context, code string, orderAmount decimal.Decimal) (model.DiscountResult, error)
}

// AdminFacade holds operations restricted to admins.
type AdminFacade interface {
	AllOrders(ctx context.Context, filter repository.OrderFilter) ([]model.Order, error)
	SetOrderStatus(ctx context.Context, orderID uuid.UUID, status model.OrderStatus) (*model.Order, error)
	Discounts(ctx context.Context) ([]model.DiscountCode, error)
	CreateDiscount(ctx context.Context, code *model.DiscountCode) error
	SetDiscountActive(ctx context.Context, code string, active bool) (*model.DiscountCode, error)
	RevalidateCache(ctx context.Context, tags []string) (int64, error)
}

type HealthFacade interface {
	Health(ctx context.Context) error
}

// StoreFacade aggregates the full set of operations used across handlers.
type StoreFacade interface {
	AuthFacade
	OrderFacade
	PaymentFacade
	DiscountFacade
	AdminFacade
	HealthFacade
}
