package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateOrderRequest is the checkout payload.
type CreateOrderRequest struct {
	ProductID    string          `json:"productId"`
	Subtotal     decimal.Decimal `json:"subtotal"`
	Currency     string          `json:"currency,omitempty"`
	DiscountCode string          `json:"discountCode,omitempty"`
}

// OrderResponse describes order information returned to clients.
type OrderResponse struct {
	ID             uuid.UUID       `json:"id"`
	ProductID      string          `json:"productId"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	DiscountCode   *string         `json:"discountCode,omitempty"`
	DiscountAmount decimal.Decimal `json:"discountAmount"`
	Total          decimal.Decimal `json:"total"`
	Currency       string          `json:"currency"`
	Status         string          `json:"status"`
	PaymentID      *uuid.UUID      `json:"paymentId,omitempty"`
	PaidAt         *time.Time      `json:"paidAt,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
}

// UpdateOrderStatusRequest carries an admin status change.
type UpdateOrderStatusRequest struct {
	Status string `json:"status"`
}
