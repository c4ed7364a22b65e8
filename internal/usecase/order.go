package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/polkiloo/cryptostore/internal/adapter/cache"
	"github.com/polkiloo/cryptostore/internal/adapter/events"
	domainErrors "github.com/polkiloo/cryptostore/internal/domain/errors"
	"github.com/polkiloo/cryptostore/internal/domain/model"
	"github.com/polkiloo/cryptostore/internal/domain/repository"
)

const (
	defaultCurrency   = "USD"
	userOrdersListTTL = time.Minute
)

// PaymentUpdate reports a payment outcome for an order.
type PaymentUpdate struct {
	OrderID       uuid.UUID
	PaymentID     uuid.UUID
	Status        model.PaymentStatus
	TransactionID string
	Provider      model.Provider
}

// OrderStatusUpdater progresses orders after payment settlement.
type OrderStatusUpdater interface {
	UpdatePaymentStatus(ctx context.Context, update PaymentUpdate) (*model.Order, bool, error)
}

// CreateOrderInput describes a checkout request.
type CreateOrderInput struct {
	UserID       int64
	ProductID    string
	Subtotal     decimal.Decimal
	Currency     string
	DiscountCode string
}

// OrderUseCase encapsulates order lifecycle logic.
type OrderUseCase struct {
	orders    repository.OrderRepository
	discounts *DiscountUseCase
	events    events.Publisher
	cache     cache.Cache
	logger    *slog.Logger
	now       func() time.Time
}

// NewOrderUseCase constructs OrderUseCase.
func NewOrderUseCase(orders repository.OrderRepository, discounts *DiscountUseCase, publisher events.Publisher, c cache.Cache, logger *slog.Logger) *OrderUseCase {
	return &OrderUseCase{orders: orders, discounts: discounts, events: publisher, cache: c, logger: logger, now: time.Now}
}

// Create places a pending order, applying the discount code when given.
func (u *OrderUseCase) Create(ctx context.Context, in CreateOrderInput) (*model.Order, error) {
	productID := strings.TrimSpace(in.ProductID)
	if productID == "" {
		return nil, fmt.Errorf("%w: product is required", domainErrors.ErrInvalidInput)
	}
	if !in.Subtotal.IsPositive() {
		return nil, domainErrors.ErrInvalidAmount
	}
	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = defaultCurrency
	}

	order := &model.Order{
		ID:             uuid.New(),
		UserID:         in.UserID,
		ProductID:      productID,
		Subtotal:       in.Subtotal,
		DiscountAmount: decimal.Zero,
		Total:          in.Subtotal,
		Currency:       currency,
		Status:         model.OrderStatusPending,
	}

	if code := NormalizeCode(in.DiscountCode); code != "" {
		result, err := u.discounts.Validate(ctx, code, in.Subtotal)
		if err != nil {
			return nil, err
		}
		if !result.Valid {
			return nil, fmt.Errorf("%w: %s", domainErrors.ErrInvalidDiscount, result.Message)
		}
		// the use is taken now so concurrent checkouts cannot overrun the cap
		if err := u.discounts.Redeem(ctx, code); err != nil {
			if errors.Is(err, domainErrors.ErrDiscountExhausted) {
				return nil, fmt.Errorf("%w: %s", domainErrors.ErrInvalidDiscount, MessageUsageLimit)
			}
			return nil, err
		}
		order.DiscountCode = &code
		order.DiscountAmount = result.DiscountAmount
		order.Total = in.Subtotal.Sub(result.DiscountAmount)
	}

	if err := u.orders.Create(ctx, order); err != nil {
		u.releaseDiscount(ctx, order)
		return nil, err
	}

	u.logger.Info("order created",
		slog.String("order_id", order.ID.String()),
		slog.Int64("user_id", order.UserID),
		slog.String("total", order.Total.String()),
	)
	invalidate(ctx, u.cache, u.logger, cache.TagOrders)
	return order, nil
}

// Get returns the order when it belongs to userID.
func (u *OrderUseCase) Get(ctx context.Context, userID int64, orderID uuid.UUID) (*model.Order, error) {
	order, err := u.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, domainErrors.ErrNotFound
	}
	return order, nil
}

// ListByUser returns orders sorted by creation time.
func (u *OrderUseCase) ListByUser(ctx context.Context, userID int64) ([]model.Order, error) {
	key := fmt.Sprintf("orders:user:%d", userID)
	return cached(ctx, u.cache, u.logger, key, userOrdersListTTL, []string{cache.TagOrders}, func() ([]model.Order, error) {
		return u.orders.ListByUser(ctx, userID)
	})
}

// List returns orders for the admin view.
func (u *OrderUseCase) List(ctx context.Context, filter repository.OrderFilter) ([]model.Order, error) {
	return u.orders.List(ctx, filter)
}

// UpdatePaymentStatus flips the order to paid once its payment completed.
// Repeated calls for an order that already left pending change nothing.
func (u *OrderUseCase) UpdatePaymentStatus(ctx context.Context, update PaymentUpdate) (*model.Order, bool, error) {
	if update.Status != model.PaymentStatusCompleted {
		return nil, false, nil
	}

	order, changed, err := u.orders.MarkPaid(ctx, update.OrderID, update.PaymentID)
	if err != nil {
		return nil, false, fmt.Errorf("mark order %s paid: %w", update.OrderID, err)
	}
	if !changed {
		if order.Status == model.OrderStatusCancelled {
			u.logger.Warn("payment completed for cancelled order",
				slog.String("order_id", order.ID.String()),
				slog.String("payment_id", update.PaymentID.String()),
			)
		}
		return order, false, nil
	}

	u.logger.Info("order paid",
		slog.String("order_id", order.ID.String()),
		slog.String("payment_id", update.PaymentID.String()),
		slog.String("provider", string(update.Provider)),
	)

	paymentID := update.PaymentID
	u.publish(ctx, model.OrderEvent{
		Type:          model.OrderEventPaid,
		OrderID:       order.ID,
		UserID:        order.UserID,
		PaymentID:     &paymentID,
		TransactionID: update.TransactionID,
		Provider:      update.Provider,
		Total:         order.Total,
		Currency:      order.Currency,
		OccurredAt:    u.now().UTC(),
	})
	invalidate(ctx, u.cache, u.logger, cache.TagOrders)
	return order, true, nil
}

// UpdateStatus moves an order to fulfilled or cancelled on admin request.
func (u *OrderUseCase) UpdateStatus(ctx context.Context, orderID uuid.UUID, to model.OrderStatus) (*model.Order, error) {
	var eventType model.OrderEventType
	switch to {
	case model.OrderStatusFulfilled:
		eventType = model.OrderEventFulfilled
	case model.OrderStatusCancelled:
		eventType = model.OrderEventCancelled
	default:
		// paid is reachable only through payment settlement
		return nil, fmt.Errorf("%w: cannot set %s", domainErrors.ErrInvalidTransition, to)
	}

	order, err := u.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.Status.CanTransitionTo(to) {
		return nil, fmt.Errorf("%w: %s -> %s", domainErrors.ErrInvalidTransition, order.Status, to)
	}

	changed, err := u.orders.UpdateStatus(ctx, orderID, order.Status, to)
	if err != nil {
		return nil, err
	}
	if !changed {
		return nil, fmt.Errorf("%w: order changed concurrently", domainErrors.ErrInvalidTransition)
	}

	u.logger.Info("order status updated",
		slog.String("order_id", orderID.String()),
		slog.String("from", string(order.Status)),
		slog.String("to", string(to)),
	)
	order.Status = to
	order.UpdatedAt = u.now()
	if to == model.OrderStatusCancelled {
		u.releaseDiscount(ctx, order)
	}

	u.publish(ctx, model.OrderEvent{
		Type:       eventType,
		OrderID:    order.ID,
		UserID:     order.UserID,
		PaymentID:  order.PaymentID,
		Total:      order.Total,
		Currency:   order.Currency,
		OccurredAt: u.now().UTC(),
	})
	invalidate(ctx, u.cache, u.logger, cache.TagOrders)
	return order, nil
}

// releaseDiscount gives back the use reserved at checkout.
func (u *OrderUseCase) releaseDiscount(ctx context.Context, order *model.Order) {
	if order.DiscountCode == nil {
		return
	}
	if err := u.discounts.Release(ctx, *order.DiscountCode); err != nil {
		u.logger.Warn("discount release failed",
			slog.String("order_id", order.ID.String()),
			slog.String("code", *order.DiscountCode),
			slog.String("error", err.Error()),
		)
	}
}

func (u *OrderUseCase) publish(ctx context.Context, event model.OrderEvent) {
	if err := u.events.Publish(ctx, event); err != nil {
		u.logger.Error("order event not published",
			slog.String("type", string(event.Type)),
			slog.String("order_id", event.OrderID.String()),
			slog.String("error", err.Error()),
		)
	}
}
