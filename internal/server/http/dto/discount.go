package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

type ValidateDiscountRequest struct {
	Code        string          `json:"code"`
	OrderAmount decimal.Decimal `json:"orderAmount"`
}

type ValidateDiscountResponse struct {
	Valid          bool             `json:"valid"`
	DiscountAmount *decimal.Decimal `json:"discountAmount,omitempty"`
	Message        string           `json:"message,omitempty"`
}

// DiscountCodeRequest creates a discount code.
type DiscountCodeRequest struct {
	Code          string           `json:"code"`
	DiscountType  string           `json:"discountType"`
	Value         decimal.Decimal  `json:"value"`
	MinimumAmount *decimal.Decimal `json:"minimumAmount,omitempty"`
	MaximumUses   *int64           `json:"maximumUses,omitempty"`
	IsActive      *bool            `json:"isActive,omitempty"`
	ExpiresAt     *time.Time       `json:"expiresAt,omitempty"`
}

// DiscountCodeResponse mirrors the persisted discount code.
type DiscountCodeResponse struct {
	Code          string           `json:"code"`
	DiscountType  string           `json:"discountType"`
	Value         decimal.Decimal  `json:"value"`
	MinimumAmount *decimal.Decimal `json:"minimumAmount,omitempty"`
	MaximumUses   *int64           `json:"maximumUses,omitempty"`
	CurrentUses   int64            `json:"currentUses"`
	IsActive      bool             `json:"isActive"`
	ExpiresAt     *time.Time       `json:"expiresAt,omitempty"`
	CreatedAt     time.Time        `json:"createdAt"`
}

type SetDiscountActiveRequest struct {
	IsActive *bool `json:"isActive"`
}
