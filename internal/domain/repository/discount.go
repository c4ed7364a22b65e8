package repository

import (
	"context"

	"github.com/polkiloo/cryptostore/internal/domain/model"
)

// DiscountRepository describes persistence operations with discount codes.
type DiscountRepository interface {
	Create(ctx context.Context, code *model.DiscountCode) error
	GetByCode(ctx context.Context, code string) (*model.DiscountCode, error)
	List(ctx context.Context) ([]model.DiscountCode, error)
	SetActive(ctx context.Context, code string, active bool) (*model.DiscountCode, error)
	// Redeem increments usage only while the code is still usable.
	Redeem(ctx context.Context, code string) (bool, error)
	// Release gives back a use taken by Redeem.
	Release(ctx context.Context, code string) (bool, error)
}
