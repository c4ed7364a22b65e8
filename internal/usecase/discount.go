package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/polkiloo/cryptostore/internal/adapter/cache"
	domainErrors "github.com/polkiloo/cryptostore/internal/domain/errors"
	"github.com/polkiloo/cryptostore/internal/domain/model"
	"github.com/polkiloo/cryptostore/internal/domain/repository"
)

// Messages returned with invalid discount results.
const (
	MessageCodeNotFound  = "code not found"
	MessageCodeInactive  = "code inactive"
	MessageCodeExpired   = "expired"
	MessageUsageLimit    = "usage limit reached"
	MessageMinimumAmount = "minimum order amount not met"
)

const discountListTTL = 5 * time.Minute

var hundred = decimal.NewFromInt(100)

// DiscountUseCase validates and administers discount codes.
type DiscountUseCase struct {
	discounts repository.DiscountRepository
	cache     cache.Cache
	logger    *slog.Logger
	now       func() time.Time
}

// NewDiscountUseCase constructs DiscountUseCase.
func NewDiscountUseCase(discounts repository.DiscountRepository, c cache.Cache, logger *slog.Logger) *DiscountUseCase {
	return &DiscountUseCase{discounts: discounts, cache: c, logger: logger, now: time.Now}
}

// NormalizeCode trims and uppercases a user supplied code.
func NormalizeCode(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// Validate checks code against orderAmount. Rule violations are reported in
// the result; only lookup failures are returned as errors.
func (u *DiscountUseCase) Validate(ctx context.Context, code string, orderAmount decimal.Decimal) (model.DiscountResult, error) {
	if orderAmount.IsNegative() {
		return model.DiscountResult{}, domainErrors.ErrInvalidAmount
	}

	dc, err := u.discounts.GetByCode(ctx, NormalizeCode(code))
	if err != nil {
		if errors.Is(err, domainErrors.ErrNotFound) {
			return invalidDiscount(MessageCodeNotFound), nil
		}
		return model.DiscountResult{}, err
	}

	switch {
	case !dc.IsActive:
		return invalidDiscount(MessageCodeInactive), nil
	case dc.Expired(u.now()):
		return invalidDiscount(MessageCodeExpired), nil
	case dc.Exhausted():
		return invalidDiscount(MessageUsageLimit), nil
	case dc.MinimumAmount != nil && orderAmount.LessThan(*dc.MinimumAmount):
		return invalidDiscount(MessageMinimumAmount), nil
	}

	return model.DiscountResult{Valid: true, DiscountAmount: discountAmount(*dc, orderAmount)}, nil
}

// discountAmount rounds to cents and never exceeds the order amount.
func discountAmount(dc model.DiscountCode, orderAmount decimal.Decimal) decimal.Decimal {
	var amount decimal.Decimal
	switch dc.DiscountType {
	case model.DiscountTypePercentage:
		amount = orderAmount.Mul(dc.Value).Div(hundred).Round(2)
	case model.DiscountTypeFixedAmount:
		amount = decimal.Min(dc.Value, orderAmount)
	}
	if amount.GreaterThan(orderAmount) {
		amount = orderAmount
	}
	if amount.IsNegative() {
		amount = decimal.Zero
	}
	return amount
}

func invalidDiscount(message string) model.DiscountResult {
	return model.DiscountResult{Valid: false, DiscountAmount: decimal.Zero, Message: message}
}

// Redeem consumes one use of code. It fails with ErrDiscountExhausted when the
// code stopped being usable.
func (u *DiscountUseCase) Redeem(ctx context.Context, code string) error {
	ok, err := u.discounts.Redeem(ctx, NormalizeCode(code))
	if err != nil {
		return err
	}
	if !ok {
		return domainErrors.ErrDiscountExhausted
	}
	invalidate(ctx, u.cache, u.logger, cache.TagDiscounts)
	return nil
}

// Release returns one use of code taken by Redeem.
func (u *DiscountUseCase) Release(ctx context.Context, code string) error {
	ok, err := u.discounts.Release(ctx, NormalizeCode(code))
	if err != nil {
		return err
	}
	if ok {
		invalidate(ctx, u.cache, u.logger, cache.TagDiscounts)
	}
	return nil
}

// Create stores a new code.
func (u *DiscountUseCase) Create(ctx context.Context, dc *model.DiscountCode) error {
	dc.Code = NormalizeCode(dc.Code)
	if dc.Code == "" {
		return fmt.Errorf("%w: empty code", domainErrors.ErrInvalidInput)
	}
	if _, ok := model.ParseDiscountType(string(dc.DiscountType)); !ok {
		return fmt.Errorf("%w: unknown discount type %q", domainErrors.ErrInvalidInput, dc.DiscountType)
	}
	if !dc.Value.IsPositive() {
		return domainErrors.ErrInvalidAmount
	}
	if dc.DiscountType == model.DiscountTypePercentage && dc.Value.GreaterThan(hundred) {
		return fmt.Errorf("%w: percentage above 100", domainErrors.ErrInvalidAmount)
	}
	if dc.MinimumAmount != nil && dc.MinimumAmount.IsNegative() {
		return domainErrors.ErrInvalidAmount
	}
	if dc.MaximumUses != nil && *dc.MaximumUses <= 0 {
		return fmt.Errorf("%w: maximum uses must be positive", domainErrors.ErrInvalidInput)
	}
	dc.CurrentUses = 0

	if err := u.discounts.Create(ctx, dc); err != nil {
		return err
	}
	u.logger.Info("discount code created", slog.String("code", dc.Code), slog.String("type", string(dc.DiscountType)))
	invalidate(ctx, u.cache, u.logger, cache.TagDiscounts)
	return nil
}

// List returns every code, served from cache when possible.
func (u *DiscountUseCase) List(ctx context.Context) ([]model.DiscountCode, error) {
	return cached(ctx, u.cache, u.logger, "discounts:list", discountListTTL, []string{cache.TagDiscounts}, func() ([]model.DiscountCode, error) {
		return u.discounts.List(ctx)
	})
}

// SetActive toggles code availability.
func (u *DiscountUseCase) SetActive(ctx context.Context, code string, active bool) (*model.DiscountCode, error) {
	dc, err := u.discounts.SetActive(ctx, NormalizeCode(code), active)
	if err != nil {
		return nil, err
	}
	u.logger.Info("discount code toggled", slog.String("code", dc.Code), slog.Bool("active", active))
	invalidate(ctx, u.cache, u.logger, cache.TagDiscounts)
	return dc, nil
}
