package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/polkiloo/cryptostore/internal/adapter/cache"
	domainErrors "github.com/polkiloo/cryptostore/internal/domain/errors"
	"github.com/polkiloo/cryptostore/internal/domain/model"
	"github.com/polkiloo/cryptostore/internal/domain/repository"
	pkgAuth "github.com/polkiloo/cryptostore/internal/pkg/auth"
	"github.com/polkiloo/cryptostore/internal/usecase"
)

// HealthChecker reports whether backing storage is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

type StoreFacade struct {
	auth      *usecase.AuthUseCase
	orders    *usecase.OrderUseCase
	payments  *usecase.PaymentUseCase
	discounts *usecase.DiscountUseCase
	cache     cache.Cache
	health    HealthChecker
}

func NewStoreFacade(
	auth *usecase.AuthUseCase,
	orders *usecase.OrderUseCase,
	payments *usecase.PaymentUseCase,
	discounts *usecase.DiscountUseCase,
	c cache.Cache,
	health HealthChecker,
) *StoreFacade {
	return &StoreFacade{auth: auth, orders: orders, payments: payments, discounts: discounts, cache: c, health: health}
}

func (f *StoreFacade) Register(ctx context.Context, login, password string) (string, error) {
	_, token, err := f.auth.Register(ctx, login, password)
	return token, err
}

func (f *StoreFacade) Authenticate(ctx context.Context, login, password string) (string, error) {
	_, token, err := f.auth.Authenticate(ctx, login, password)
	return token, err
}

func (f *StoreFacade) ParseToken(token string) (pkgAuth.Identity, error) {
	return f.auth.ParseToken(token)
}

func (f *StoreFacade) CreateOrder(ctx context.Context, in usecase.CreateOrderInput) (*model.Order, error) {
	return f.orders.Create(ctx, in)
}

func (f *StoreFacade) Order(ctx context.Context, userID int64, orderID uuid.UUID) (*model.Order, error) {
	return f.orders.Get(ctx, userID, orderID)
}

func (f *StoreFacade) Orders(ctx context.Context, userID int64) ([]model.Order, error) {
	return f.orders.ListByUser(ctx, userID)
}

func (f *StoreFacade) InitiatePayment(ctx context.Context, userID int64, orderID uuid.UUID, provider model.Provider, expected decimal.Decimal) (*model.PaymentRecord, error) {
	return f.payments.Initiate(ctx, userID, orderID, provider, expected)
}

func (f *StoreFacade) Payment(ctx context.Context, userID int64, paymentID uuid.UUID) (*model.PaymentRecord, error) {
	return f.payments.Get(ctx, userID, paymentID)
}

func (f *StoreFacade) CheckTransaction(ctx context.Context, req usecase.DiscoveryRequest) (usecase.ReconcileOutcome, error) {
	return f.payments.CheckTransaction(ctx, req)
}

func (f *StoreFacade) CheckConfirmations(ctx context.Context, req usecase.ConfirmationRequest) (usecase.ReconcileOutcome, error) {
	return f.payments.CheckConfirmations(ctx, req)
}

func (f *StoreFacade) ValidateDiscount(ctx context.Context, code string, orderAmount decimal.Decimal) (model.DiscountResult, error) {
	return f.discounts.Validate(ctx, code, orderAmount)
}

func (f *StoreFacade) AllOrders(ctx context.Context, filter repository.OrderFilter) ([]model.Order, error) {
	return f.orders.List(ctx, filter)
}

func (f *StoreFacade) SetOrderStatus(ctx context.Context, orderID uuid.UUID, status model.OrderStatus) (*model.Order, error) {
	return f.orders.UpdateStatus(ctx, orderID, status)
}

func (f *StoreFacade) Discounts(ctx context.Context) ([]model.DiscountCode, error) {
	return f.discounts.List(ctx)
}

func (f *StoreFacade) CreateDiscount(ctx context.Context, code *model.DiscountCode) error {
	return f.discounts.Create(ctx, code)
}

func (f *StoreFacade) SetDiscountActive(ctx context.Context, code string, active bool) (*model.DiscountCode, error) {
	return f.discounts.SetActive(ctx, code, active)
}

// RevalidateCache drops cached entries for the given tags.
// Only service tags and per-provider explorer tags are accepted.
func (f *StoreFacade) RevalidateCache(ctx context.Context, tags []string) (int64, error) {
	if len(tags) == 0 {
		return 0, fmt.Errorf("%w: no tags", domainErrors.ErrInvalidInput)
	}
	for _, tag := range tags {
		if !knownTag(tag) {
			return 0, fmt.Errorf("%w: unknown tag %q", domainErrors.ErrInvalidInput, tag)
		}
	}
	return f.cache.InvalidateTags(ctx, tags...)
}

func knownTag(tag string) bool {
	switch tag {
	case cache.TagOrders, cache.TagDiscounts, cache.TagPayments:
		return true
	}
	provider, ok := strings.CutPrefix(tag, cache.ExplorerTag(""))
	if !ok {
		return false
	}
	_, ok = model.ParseProvider(provider)
	return ok
}

func (f *StoreFacade) Health(ctx context.Context) error {
	return f.health.HealthCheck(ctx)
}

func (f *StoreFacade) ExpireStalePayments(ctx context.Context) (int64, error) {
	return f.payments.ExpireStale(ctx)
}

func (f *StoreFacade) PaymentsForReconciliation(ctx context.Context, limit int) ([]model.PaymentRecord, error) {
	return f.payments.PaymentsForReconciliation(ctx, limit)
}

func (f *StoreFacade) ReconcilePayment(ctx context.Context, payment model.PaymentRecord) (usecase.ReconcileOutcome, error) {
	return f.payments.Reconcile(ctx, payment)
}
