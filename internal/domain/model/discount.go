package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// DiscountType selects how a discount value is applied.
type DiscountType string

const (
	DiscountTypePercentage  DiscountType = "percentage"
	DiscountTypeFixedAmount DiscountType = "fixed_amount"
)

// ParseDiscountType converts raw input into discount type.
func ParseDiscountType(raw string) (DiscountType, bool) {
	switch t := DiscountType(raw); t {
	case DiscountTypePercentage, DiscountTypeFixedAmount:
		return t, true
	default:
		return "", false
	}
}

// DiscountCode holds redemption rules for a promotional code.
type DiscountCode struct {
	Code          string
	DiscountType  DiscountType
	Value         decimal.Decimal
	MinimumAmount *decimal.Decimal
	MaximumUses   *int64
	CurrentUses   int64
	IsActive      bool
	ExpiresAt     *time.Time
	CreatedAt     time.Time
}

// Expired reports whether the code expiry lies at or before now.
func (d DiscountCode) Expired(now time.Time) bool {
	return d.ExpiresAt != nil && !now.Before(*d.ExpiresAt)
}

// Exhausted reports whether the usage cap has been reached.
func (d DiscountCode) Exhausted() bool {
	return d.MaximumUses != nil && d.CurrentUses >= *d.MaximumUses
}

// Usable reports whether the code can be redeemed at now.
func (d DiscountCode) Usable(now time.Time) bool {
	return d.IsActive && !d.Expired(now) && !d.Exhausted()
}

// DiscountResult is the outcome of validating a code against an order amount.
type DiscountResult struct {
	Valid          bool
	DiscountAmount decimal.Decimal
	Message        string
}
