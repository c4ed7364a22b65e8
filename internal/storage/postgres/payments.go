package postgres

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	domainErrors "github.com/polkiloo/cryptostore/internal/domain/errors"
	"github.com/polkiloo/cryptostore/internal/domain/model"
)

type paymentRepository struct {
	storage *Storage
}

const paymentColumns = `id, order_id, provider, wallet_address, expected_amount, received_amount, transaction_id, confirmations, status, created_at, updated_at`

func scanPayment(row pgx.Row) (model.PaymentRecord, error) {
	var (
		p        model.PaymentRecord
		received decimal.NullDecimal
	)
	err := row.Scan(&p.ID, &p.OrderID, &p.Provider, &p.WalletAddress, &p.ExpectedAmount, &received,
		&p.TransactionID, &p.Confirmations, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return p, err
	}
	if received.Valid {
		amount := received.Decimal
		p.ReceivedAmount = &amount
	}
	return p, nil
}

func (r *paymentRepository) Create(ctx context.Context, payment *model.PaymentRecord) error {
	const query = `INSERT INTO payments (id, order_id, provider, wallet_address, expected_amount, status)
                   VALUES ($1, $2, $3, $4, $5, $6)
                   RETURNING created_at, updated_at`
	err := r.storage.pool.QueryRow(ctx, query,
		payment.ID, payment.OrderID, payment.Provider, payment.WalletAddress, payment.ExpectedAmount, payment.Status,
	).Scan(&payment.CreatedAt, &payment.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domainErrors.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (r *paymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.PaymentRecord, error) {
	const query = `SELECT ` + paymentColumns + ` FROM payments WHERE id=$1`
	p, err := scanPayment(r.storage.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (r *paymentRepository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]model.PaymentRecord, error) {
	const query = `SELECT ` + paymentColumns + ` FROM payments WHERE order_id=$1 ORDER BY created_at DESC`
	rows, err := r.storage.pool.Query(ctx, query, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.PaymentRecord
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// SelectBatchForReconciliation claims open payments least recently checked.
// A claimed payment is skipped by every instance until its lease runs out or
// ReleaseClaim is called.
func (r *paymentRepository) SelectBatchForReconciliation(ctx context.Context, limit int, lease time.Duration) ([]model.PaymentRecord, error) {
	const selectQuery = `SELECT ` + paymentColumns + `
                         FROM payments
                         WHERE status IN ('awaiting_payment', 'pending_confirmation')
                           AND (claimed_until IS NULL OR claimed_until < NOW())
                         ORDER BY checked_at NULLS FIRST, created_at
                         LIMIT $1
                         FOR UPDATE SKIP LOCKED`
	const claimQuery = `UPDATE payments
                        SET checked_at=NOW(), claimed_until=NOW() + make_interval(secs => $2)
                        WHERE id=$1`

	var payments []model.PaymentRecord
	err := r.storage.WithinTransaction(ctx, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, selectQuery, limit)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			p, err := scanPayment(rows)
			if err != nil {
				return err
			}
			payments = append(payments, p)
		}
		if err := rows.Err(); err != nil {
			return err
		}
		rows.Close()

		for _, p := range payments {
			if _, err := tx.Exec(ctx, claimQuery, p.ID, lease.Seconds()); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(payments) > 0 {
		r.storage.logger.Debug("payments claimed for reconciliation", slog.Int("count", len(payments)), slog.Duration("lease", lease))
	}
	return payments, nil
}

func (r *paymentRepository) ReleaseClaim(ctx context.Context, id uuid.UUID) error {
	_, err := r.storage.pool.Exec(ctx, `UPDATE payments SET claimed_until=NULL WHERE id=$1`, id)
	return err
}

func (r *paymentRepository) MarkDetected(ctx context.Context, id, orderID uuid.UUID, transactionID string, received decimal.Decimal) (bool, error) {
	const query = `UPDATE payments
                   SET status='pending_confirmation', transaction_id=$3, received_amount=$4, updated_at=NOW()
                   WHERE id=$1 AND order_id=$2 AND status='awaiting_payment'`
	tag, err := r.storage.pool.Exec(ctx, query, id, orderID, transactionID, received)
	if err != nil {
		if isUniqueViolation(err) {
			return false, domainErrors.ErrTransactionClaimed
		}
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *paymentRepository) RecordConfirmations(ctx context.Context, id uuid.UUID, confirmations int64) (bool, error) {
	const query = `UPDATE payments
                   SET confirmations=GREATEST(confirmations, $2), updated_at=NOW()
                   WHERE id=$1 AND status='pending_confirmation' AND confirmations < $2`
	tag, err := r.storage.pool.Exec(ctx, query, id, confirmations)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *paymentRepository) MarkCompleted(ctx context.Context, id uuid.UUID, confirmations int64) (bool, error) {
	const query = `UPDATE payments
                   SET status='completed', confirmations=GREATEST(confirmations, $2), updated_at=NOW()
                   WHERE id=$1 AND status='pending_confirmation'`
	tag, err := r.storage.pool.Exec(ctx, query, id, confirmations)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *paymentRepository) ExpireAwaiting(ctx context.Context, createdBefore time.Time) (int64, error) {
	const query = `UPDATE payments SET status='failed', updated_at=NOW()
                   WHERE status='awaiting_payment' AND created_at < $1`
	tag, err := r.storage.pool.Exec(ctx, query, createdBefore)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
