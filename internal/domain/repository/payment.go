package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/polkiloo/cryptostore/internal/domain/model"
)

// PaymentRepository describes persistence operations with payment records.
// Every mutation is guarded by the current status in the same statement and
// reports whether a row changed.
type PaymentRepository interface {
	Create(ctx context.Context, payment *model.PaymentRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.PaymentRecord, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]model.PaymentRecord, error)
	// SelectBatchForReconciliation claims up to limit open payments for lease.
	SelectBatchForReconciliation(ctx context.Context, limit int, lease time.Duration) ([]model.PaymentRecord, error)
	// ReleaseClaim makes a payment selectable again before its lease runs out.
	ReleaseClaim(ctx context.Context, id uuid.UUID) error
	// MarkDetected fails with ErrTransactionClaimed when another payment of
	// the same provider already holds transactionID.
	MarkDetected(ctx context.Context, id, orderID uuid.UUID, transactionID string, received decimal.Decimal) (bool, error)
	RecordConfirmations(ctx context.Context, id uuid.UUID, confirmations int64) (bool, error)
	MarkCompleted(ctx context.Context, id uuid.UUID, confirmations int64) (bool, error)
	ExpireAwaiting(ctx context.Context, createdBefore time.Time) (int64, error)
}
