package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus describes order lifecycle.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusFulfilled OrderStatus = "fulfilled"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// ParseOrderStatus converts raw input into order status.
func ParseOrderStatus(raw string) (OrderStatus, bool) {
	switch s := OrderStatus(raw); s {
	case OrderStatusPending, OrderStatusPaid, OrderStatusFulfilled, OrderStatusCancelled:
		return s, true
	default:
		return "", false
	}
}

// CanTransitionTo reports whether next is a valid successor of s.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	switch s {
	case OrderStatusPending:
		return next == OrderStatusPaid || next == OrderStatusCancelled
	case OrderStatusPaid:
		return next == OrderStatusFulfilled
	case OrderStatusFulfilled, OrderStatusCancelled:
		return false
	}
	return false
}

// Order is a customer purchase of a subscription product.
type Order struct {
	ID             uuid.UUID
	UserID         int64
	ProductID      string
	Subtotal       decimal.Decimal
	DiscountCode   *string
	DiscountAmount decimal.Decimal
	Total          decimal.Decimal
	Currency       string
	Status         OrderStatus
	PaymentID      *uuid.UUID
	PaidAt         *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// OrderEventType names an order lifecycle event published downstream.
type OrderEventType string

const (
	OrderEventPaid      OrderEventType = "order.paid"
	OrderEventFulfilled OrderEventType = "order.fulfilled"
	OrderEventCancelled OrderEventType = "order.cancelled"
)

// OrderEvent is emitted whenever an order changes status.
type OrderEvent struct {
	Type          OrderEventType  `json:"type"`
	OrderID       uuid.UUID       `json:"orderId"`
	UserID        int64           `json:"userId"`
	PaymentID     *uuid.UUID      `json:"paymentId,omitempty"`
	TransactionID string          `json:"transactionId,omitempty"`
	Provider      Provider        `json:"provider,omitempty"`
	Total         decimal.Decimal `json:"total"`
	Currency      string          `json:"currency"`
	OccurredAt    time.Time       `json:"occurredAt"`
}
