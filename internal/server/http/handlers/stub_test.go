package handlers

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/polkiloo/cryptostore/internal/domain/model"
	"github.com/polkiloo/cryptostore/internal/domain/repository"
	testhelpers "github.com/polkiloo/cryptostore/internal/test"
	"github.com/polkiloo/cryptostore/internal/usecase"
)

// facadeStub implements StoreFacade with per-method overrides. Methods
// without an override return zero values.
type facadeStub struct {
	testhelpers.AuthFacadeStub

	CreateOrderFn        func(context.Context, usecase.CreateOrderInput) (*model.Order, error)
	OrderFn              func(context.Context, int64, uuid.UUID) (*model.Order, error)
	OrdersFn             func(context.Context, int64) ([]model.Order, error)
	InitiatePaymentFn    func(context.Context, int64, uuid.UUID, model.Provider, decimal.Decimal) (*model.PaymentRecord, error)
	PaymentFn            func(context.Context, int64, uuid.UUID) (*model.PaymentRecord, error)
	CheckTransactionFn   func(context.Context, usecase.DiscoveryRequest) (usecase.ReconcileOutcome, error)
	CheckConfirmationsFn func(context.Context, usecase.ConfirmationRequest) (usecase.ReconcileOutcome, error)
	ValidateDiscountFn   func(context.Context, string, decimal.Decimal) (model.DiscountResult, error)
	AllOrdersFn          func(context.Context, repository.OrderFilter) ([]model.Order, error)
	SetOrderStatusFn     func(context.Context, uuid.UUID, model.OrderStatus) (*model.Order, error)
	DiscountsFn          func(context.Context) ([]model.DiscountCode, error)
	CreateDiscountFn     func(context.Context, *model.DiscountCode) error
	SetDiscountActiveFn  func(context.Context, string, bool) (*model.DiscountCode, error)
	RevalidateCacheFn    func(context.Context, []string) (int64, error)
	HealthErr            error
}

func (s facadeStub) CreateOrder(ctx context.Context, in usecase.CreateOrderInput) (*model.Order, error) {
	if s.CreateOrderFn != nil {
		return s.CreateOrderFn(ctx, in)
	}
	return &model.Order{ID: uuid.New(), UserID: in.UserID, ProductID: in.ProductID, Subtotal: in.Subtotal, Total: in.Subtotal, Status: model.OrderStatusPending}, nil
}

func (s facadeStub) Order(ctx context.Context, userID int64, id uuid.UUID) (*model.Order, error) {
	if s.OrderFn != nil {
		return s.OrderFn(ctx, userID, id)
	}
	return &model.Order{ID: id, UserID: userID, Status: model.OrderStatusPending}, nil
}

func (s facadeStub) Orders(ctx context.Context, userID int64) ([]model.Order, error) {
	if s.OrdersFn != nil {
		return s.OrdersFn(ctx, userID)
	}
	return nil, nil
}

func (s facadeStub) InitiatePayment(ctx context.Context, userID int64, orderID uuid.UUID, provider model.Provider, expected decimal.Decimal) (*model.PaymentRecord, error) {
	if s.InitiatePaymentFn != nil {
		return s.InitiatePaymentFn(ctx, userID, orderID, provider, expected)
	}
	return &model.PaymentRecord{ID: uuid.New(), OrderID: orderID, Provider: provider, ExpectedAmount: expected, Status: model.PaymentStatusAwaiting}, nil
}

func (s facadeStub) Payment(ctx context.Context, userID int64, id uuid.UUID) (*model.PaymentRecord, error) {
	if s.PaymentFn != nil {
		return s.PaymentFn(ctx, userID, id)
	}
	return &model.PaymentRecord{ID: id, Status: model.PaymentStatusAwaiting}, nil
}

func (s facadeStub) CheckTransaction(ctx context.Context, req usecase.DiscoveryRequest) (usecase.ReconcileOutcome, error) {
	if s.CheckTransactionFn != nil {
		return s.CheckTransactionFn(ctx, req)
	}
	return usecase.ReconcileOutcome{Success: true, Action: usecase.ActionNone}, nil
}

func (s facadeStub) CheckConfirmations(ctx context.Context, req usecase.ConfirmationRequest) (usecase.ReconcileOutcome, error) {
	if s.CheckConfirmationsFn != nil {
		return s.CheckConfirmationsFn(ctx, req)
	}
	return usecase.ReconcileOutcome{Success: true, Action: usecase.ActionNone}, nil
}

func (s facadeStub) ValidateDiscount(ctx context.Context, code string, amount decimal.Decimal) (model.DiscountResult, error) {
	if s.ValidateDiscountFn != nil {
		return s.ValidateDiscountFn(ctx, code, amount)
	}
	return model.DiscountResult{}, nil
}

func (s facadeStub) AllOrders(ctx context.Context, filter repository.OrderFilter) ([]model.Order, error) {
	if s.AllOrdersFn != nil {
		return s.AllOrdersFn(ctx, filter)
	}
	return nil, nil
}

func (s facadeStub) SetOrderStatus(ctx context.Context, id uuid.UUID, status model.OrderStatus) (*model.Order, error) {
	if s.SetOrderStatusFn != nil {
		return s.SetOrderStatusFn(ctx, id, status)
	}
	return &model.Order{ID: id, Status: status}, nil
}

func (s facadeStub) Discounts(ctx context.Context) ([]model.DiscountCode, error) {
	if s.DiscountsFn != nil {
		return s.DiscountsFn(ctx)
	}
	return nil, nil
}

func (s facadeStub) CreateDiscount(ctx context.Context, code *model.DiscountCode) error {
	if s.CreateDiscountFn != nil {
		return s.CreateDiscountFn(ctx, code)
	}
	return nil
}

func (s facadeStub) SetDiscountActive(ctx context.Context, code string, active bool) (*model.DiscountCode, error) {
	if s.SetDiscountActiveFn != nil {
		return s.SetDiscountActiveFn(ctx, code, active)
	}
	return &model.DiscountCode{Code: code, IsActive: active}, nil
}

func (s facadeStub) RevalidateCache(ctx context.Context, tags []string) (int64, error) {
	if s.RevalidateCacheFn != nil {
		return s.RevalidateCacheFn(ctx, tags)
	}
	return 0, nil
}

func (s facadeStub) Health(context.Context) error {
	return s.HealthErr
}

var _ StoreFacade = facadeStub{}
