package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	domainErrors "github.com/polkiloo/cryptostore/internal/domain/errors"
	"github.com/polkiloo/cryptostore/internal/domain/model"
	"github.com/polkiloo/cryptostore/internal/domain/repository"
)

type orderRepository struct {
	storage *Storage
}

const orderColumns = `id, user_id, product_id, subtotal, discount_code, discount_amount, total, currency, status, payment_id, paid_at, created_at, updated_at`

const defaultOrderListLimit = 100

func scanOrder(row pgx.Row) (model.Order, error) {
	var o model.Order
	err := row.Scan(&o.ID, &o.UserID, &o.ProductID, &o.Subtotal, &o.DiscountCode, &o.DiscountAmount,
		&o.Total, &o.Currency, &o.Status, &o.PaymentID, &o.PaidAt, &o.CreatedAt, &o.UpdatedAt)
	return o, err
}

func collectOrders(rows pgx.Rows) ([]model.Order, error) {
	defer rows.Close()

	var result []model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *orderRepository) Create(ctx context.Context, order *model.Order) error {
	const query = `INSERT INTO orders (id, user_id, product_id, subtotal, discount_code, discount_amount, total, currency, status)
                   VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
                   RETURNING created_at, updated_at`
	err := r.storage.pool.QueryRow(ctx, query,
		order.ID, order.UserID, order.ProductID, order.Subtotal, order.DiscountCode,
		order.DiscountAmount, order.Total, order.Currency, order.Status,
	).Scan(&order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domainErrors.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (r *orderRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	const query = `SELECT ` + orderColumns + ` FROM orders WHERE id=$1`
	o, err := scanOrder(r.storage.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, notFound(err)
	}
	return &o, nil
}

func (r *orderRepository) ListByUser(ctx context.Context, userID int64) ([]model.Order, error) {
	const query = `SELECT ` + orderColumns + ` FROM orders WHERE user_id=$1 ORDER BY created_at DESC`
	rows, err := r.storage.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	return collectOrders(rows)
}

func (r *orderRepository) List(ctx context.Context, filter repository.OrderFilter) ([]model.Order, error) {
	const query = `SELECT ` + orderColumns + ` FROM orders
                   WHERE ($1::text IS NULL OR status=$1)
                   ORDER BY created_at DESC
                   LIMIT $2`
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultOrderListLimit
	}
	var status *string
	if filter.Status != nil {
		s := string(*filter.Status)
		status = &s
	}
	rows, err := r.storage.pool.Query(ctx, query, status, limit)
	if err != nil {
		return nil, err
	}
	return collectOrders(rows)
}

func (r *orderRepository) MarkPaid(ctx context.Context, id, paymentID uuid.UUID) (*model.Order, bool, error) {
	const query = `UPDATE orders SET status='paid', payment_id=$2, paid_at=NOW(), updated_at=NOW()
                   WHERE id=$1 AND status='pending'
                   RETURNING ` + orderColumns
	o, err := scanOrder(r.storage.pool.QueryRow(ctx, query, id, paymentID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			existing, err := r.GetByID(ctx, id)
			if err != nil {
				return nil, false, err
			}
			return existing, false, nil
		}
		return nil, false, fmt.Errorf("mark order paid: %w", err)
	}
	return &o, true, nil
}

func (r *orderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.OrderStatus) (bool, error) {
	const query = `UPDATE orders SET status=$3, updated_at=NOW() WHERE id=$1 AND status=$2`
	tag, err := r.storage.pool.Exec(ctx, query, id, from, to)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
