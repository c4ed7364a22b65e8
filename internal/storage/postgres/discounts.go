package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	domainErrors "github.com/polkiloo/cryptostore/internal/domain/errors"
	"github.com/polkiloo/cryptostore/internal/domain/model"
)

type discountRepository struct {
	storage *Storage
}

const discountColumns = `code, discount_type, value, minimum_amount, maximum_uses, current_uses, is_active, expires_at, created_at`

func scanDiscount(row pgx.Row) (model.DiscountCode, error) {
	var (
		d       model.DiscountCode
		minimum decimal.NullDecimal
	)
	err := row.Scan(&d.Code, &d.DiscountType, &d.Value, &minimum, &d.MaximumUses, &d.CurrentUses,
		&d.IsActive, &d.ExpiresAt, &d.CreatedAt)
	if err != nil {
		return d, err
	}
	if minimum.Valid {
		amount := minimum.Decimal
		d.MinimumAmount = &amount
	}
	return d, nil
}

func (r *discountRepository) Create(ctx context.Context, code *model.DiscountCode) error {
	const query = `INSERT INTO discount_codes (code, discount_type, value, minimum_amount, maximum_uses, is_active, expires_at)
                   VALUES ($1, $2, $3, $4, $5, $6, $7)
                   RETURNING current_uses, created_at`
	var minimum decimal.NullDecimal
	if code.MinimumAmount != nil {
		minimum = decimal.NewNullDecimal(*code.MinimumAmount)
	}
	err := r.storage.pool.QueryRow(ctx, query,
		code.Code, code.DiscountType, code.Value, minimum, code.MaximumUses, code.IsActive, code.ExpiresAt,
	).Scan(&code.CurrentUses, &code.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domainErrors.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (r *discountRepository) GetByCode(ctx context.Context, code string) (*model.DiscountCode, error) {
	const query = `SELECT ` + discountColumns + ` FROM discount_codes WHERE code=$1`
	d, err := scanDiscount(r.storage.pool.QueryRow(ctx, query, code))
	if err != nil {
		return nil, notFound(err)
	}
	return &d, nil
}

func (r *discountRepository) List(ctx context.Context) ([]model.DiscountCode, error) {
	const query = `SELECT ` + discountColumns + ` FROM discount_codes ORDER BY created_at DESC`
	rows, err := r.storage.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.DiscountCode
	for rows.Next() {
		d, err := scanDiscount(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *discountRepository) SetActive(ctx context.Context, code string, active bool) (*model.DiscountCode, error) {
	const query = `UPDATE discount_codes SET is_active=$2 WHERE code=$1 RETURNING ` + discountColumns
	d, err := scanDiscount(r.storage.pool.QueryRow(ctx, query, code, active))
	if err != nil {
		return nil, notFound(err)
	}
	return &d, nil
}

// Redeem is a compare-and-increment: concurrent callers racing for the last
// use serialize on the row and only one sees an affected row.
func (r *discountRepository) Redeem(ctx context.Context, code string) (bool, error) {
	const query = `UPDATE discount_codes SET current_uses=current_uses+1
                   WHERE code=$1
                     AND is_active
                     AND (maximum_uses IS NULL OR current_uses < maximum_uses)
                     AND (expires_at IS NULL OR expires_at > NOW())`
	tag, err := r.storage.pool.Exec(ctx, query, code)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// Release never takes the counter below zero.
func (r *discountRepository) Release(ctx context.Context, code string) (bool, error) {
	const query = `UPDATE discount_codes SET current_uses=current_uses-1 WHERE code=$1 AND current_uses > 0`
	tag, err := r.storage.pool.Exec(ctx, query, code)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
