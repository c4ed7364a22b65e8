package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Provider identifies the blockchain a payment is settled on.
type Provider string

const (
	ProviderBitcoin  Provider = "bitcoin"
	ProviderEthereum Provider = "ethereum"
	ProviderCardano  Provider = "cardano"
)

// Providers lists every supported provider in a stable order.
var Providers = []Provider{ProviderBitcoin, ProviderEthereum, ProviderCardano}

// ParseProvider converts raw input into a known provider.
func ParseProvider(raw string) (Provider, bool) {
	switch p := Provider(raw); p {
	case ProviderBitcoin, ProviderEthereum, ProviderCardano:
		return p, true
	default:
		return "", false
	}
}

// PaymentStatus describes payment record lifecycle.
type PaymentStatus string

const (
	PaymentStatusAwaiting  PaymentStatus = "awaiting_payment"
	PaymentStatusPending   PaymentStatus = "pending_confirmation"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
)

// ParsePaymentStatus converts persisted value into status.
func ParsePaymentStatus(raw string) (PaymentStatus, bool) {
	switch s := PaymentStatus(raw); s {
	case PaymentStatusAwaiting, PaymentStatusPending, PaymentStatusCompleted, PaymentStatusFailed:
		return s, true
	default:
		return "", false
	}
}

// Terminal reports whether no further transition is possible.
func (s PaymentStatus) Terminal() bool {
	switch s {
	case PaymentStatusCompleted, PaymentStatusFailed:
		return true
	case PaymentStatusAwaiting, PaymentStatusPending:
		return false
	}
	return false
}

// CanTransitionTo reports whether moving from s to next keeps the lifecycle monotonic.
// Failed can only be reached while nothing was detected on chain.
func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	switch s {
	case PaymentStatusAwaiting:
		return next == PaymentStatusPending || next == PaymentStatusFailed
	case PaymentStatusPending:
		return next == PaymentStatusCompleted
	case PaymentStatusCompleted, PaymentStatusFailed:
		return false
	}
	return false
}

// PaymentRecord is a single crypto payment attempt for an order.
type PaymentRecord struct {
	ID             uuid.UUID
	OrderID        uuid.UUID
	Provider       Provider
	WalletAddress  string
	ExpectedAmount decimal.Decimal
	ReceivedAmount *decimal.Decimal
	TransactionID  *string
	Confirmations  int64
	Status         PaymentStatus
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ConfirmationThresholds maps providers to the confirmations required to settle.
type ConfirmationThresholds map[Provider]int64

// DefaultConfirmationThresholds returns the stock per-chain thresholds.
func DefaultConfirmationThresholds() ConfirmationThresholds {
	return ConfirmationThresholds{
		ProviderBitcoin:  1,
		ProviderEthereum: 12,
		ProviderCardano:  10,
	}
}

// For returns the threshold configured for provider. Unknown providers never settle.
func (t ConfirmationThresholds) For(p Provider) (int64, bool) {
	v, ok := t[p]
	return v, ok
}

// Reached reports whether confirmations satisfy the provider threshold.
func (t ConfirmationThresholds) Reached(p Provider, confirmations int64) bool {
	threshold, ok := t.For(p)
	if !ok {
		return false
	}
	return confirmations >= threshold
}
