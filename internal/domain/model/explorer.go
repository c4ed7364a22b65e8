package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// IncomingTransaction is a transaction paying an address at least the expected amount.
type IncomingTransaction struct {
	TransactionID  string
	ReceivedAmount decimal.Decimal
	// ConfirmedAt is the block time, zero while the transaction is unconfirmed.
	ConfirmedAt time.Time
}

// TransactionLookup lists the transactions on an address that could settle a payment.
// Several payments share a receive address, so a candidate may already belong to another one.
type TransactionLookup struct {
	Candidates []IncomingTransaction
}

// Found reports whether any candidate was seen.
func (l TransactionLookup) Found() bool {
	return len(l.Candidates) > 0
}

// Since drops candidates confirmed before t. Unconfirmed candidates are kept.
func (l TransactionLookup) Since(t time.Time) []IncomingTransaction {
	var result []IncomingTransaction
	for _, c := range l.Candidates {
		if !c.ConfirmedAt.IsZero() && c.ConfirmedAt.Before(t) {
			continue
		}
		result = append(result, c)
	}
	return result
}

// ConfirmationLookup is the result of querying a transaction's depth.
type ConfirmationLookup struct {
	TransactionID string
	Confirmations int64
}
