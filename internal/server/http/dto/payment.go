package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InitiatePaymentRequest opens a crypto payment for an order.
type InitiatePaymentRequest struct {
	OrderID        uuid.UUID       `json:"orderId"`
	Provider       string          `json:"provider"`
	ExpectedAmount decimal.Decimal `json:"expectedAmount"`
}

// PaymentResponse mirrors the persisted payment record.
type PaymentResponse struct {
	ID             uuid.UUID        `json:"id"`
	OrderID        uuid.UUID        `json:"orderId"`
	Provider       string           `json:"provider"`
	WalletAddress  string           `json:"walletAddress"`
	ExpectedAmount decimal.Decimal  `json:"expectedAmount"`
	ReceivedAmount *decimal.Decimal `json:"receivedAmount,omitempty"`
	TransactionID  *string          `json:"transactionId,omitempty"`
	Confirmations  int64            `json:"confirmations"`
	Status         string           `json:"status"`
	CreatedAt      time.Time        `json:"createdAt"`
	UpdatedAt      time.Time        `json:"updatedAt"`
}

// CheckTransactionRequest asks whether a payment reached the wallet.
type CheckTransactionRequest struct {
	PaymentID      uuid.UUID       `json:"paymentId"`
	OrderID        uuid.UUID       `json:"orderId"`
	Provider       string          `json:"provider"`
	WalletAddress  string          `json:"walletAddress"`
	ExpectedAmount decimal.Decimal `json:"expectedAmount"`
}

type CheckTransactionResponse struct {
	Success          bool             `json:"success"`
	TransactionFound bool             `json:"transactionFound"`
	TransactionID    string           `json:"transactionId,omitempty"`
	ReceivedAmount   *decimal.Decimal `json:"receivedAmount,omitempty"`
	Status           string           `json:"status,omitempty"`
	Action           string           `json:"action"`
	Error            string           `json:"error,omitempty"`
}

// CheckConfirmationsRequest asks how deep a detected transaction is.
type CheckConfirmationsRequest struct {
	PaymentID     uuid.UUID `json:"paymentId"`
	OrderID       uuid.UUID `json:"orderId"`
	Provider      string    `json:"provider"`
	TransactionID string    `json:"transactionId"`
}

type CheckConfirmationsResponse struct {
	Success       bool   `json:"success"`
	Confirmations *int64 `json:"confirmations,omitempty"`
	Threshold     int64  `json:"threshold"`
	Status        string `json:"status,omitempty"`
	Action        string `json:"action"`
	Error         string `json:"error,omitempty"`
}
