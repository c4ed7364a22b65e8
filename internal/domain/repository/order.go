package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/polkiloo/cryptostore/internal/domain/model"
)

// OrderFilter narrows the admin order listing.
type OrderFilter struct {
	Status *model.OrderStatus
	Limit  int
}

// OrderRepository describes persistence operations with orders.
type OrderRepository interface {
	Create(ctx context.Context, order *model.Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error)
	ListByUser(ctx context.Context, userID int64) ([]model.Order, error)
	List(ctx context.Context, filter OrderFilter) ([]model.Order, error)
	// MarkPaid flips a pending order to paid. The flag is false when the order
	// had already left pending; the returned order is its current state.
	MarkPaid(ctx context.Context, id, paymentID uuid.UUID) (*model.Order, bool, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.OrderStatus) (bool, error)
}
