package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	domainErrors "github.com/polkiloo/cryptostore/internal/domain/errors"
	"github.com/polkiloo/cryptostore/internal/domain/repository"
)

const uniqueViolation = "23505"

type pgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

var newPgxPool = func(ctx context.Context, cfg *pgxpool.Config) (pgxPool, error) {
	return pgxpool.NewWithConfig(ctx, cfg)
}

// Storage acts as repository facade backed by PostgreSQL.
type Storage struct {
	pool   pgxPool
	logger *slog.Logger
}

var _ repository.Factory = (*Storage)(nil)

// New creates storage with schema initialization.
func New(ctx context.Context, dsn string, logger *slog.Logger) (*Storage, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}

	pool, err := newPgxPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}

	storage := &Storage{pool: pool, logger: logger}
	if err := storage.initSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return storage, nil
}

// Close releases database resources.
func (s *Storage) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Factory methods for domain repositories.
func (s *Storage) Users() repository.UserRepository {
	return &userRepository{storage: s}
}

func (s *Storage) Orders() repository.OrderRepository {
	return &orderRepository{storage: s}
}

func (s *Storage) Payments() repository.PaymentRepository {
	return &paymentRepository{storage: s}
}

func (s *Storage) Discounts() repository.DiscountRepository {
	return &discountRepository{storage: s}
}

func (s *Storage) initSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
            id SERIAL PRIMARY KEY,
            login TEXT UNIQUE NOT NULL,
            password_hash TEXT NOT NULL,
            role TEXT NOT NULL DEFAULT 'customer' CHECK (role IN ('customer', 'admin')),
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`,
		`CREATE TABLE IF NOT EXISTS discount_codes (
            code TEXT PRIMARY KEY,
            discount_type TEXT NOT NULL CHECK (discount_type IN ('percentage', 'fixed_amount')),
            value NUMERIC(20, 8) NOT NULL CHECK (value > 0),
            minimum_amount NUMERIC(20, 8),
            maximum_uses BIGINT CHECK (maximum_uses > 0),
            current_uses BIGINT NOT NULL DEFAULT 0,
            is_active BOOLEAN NOT NULL DEFAULT TRUE,
            expires_at TIMESTAMPTZ,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            CHECK (maximum_uses IS NULL OR current_uses <= maximum_uses)
        )`,
		`CREATE TABLE IF NOT EXISTS orders (
            id UUID PRIMARY KEY,
            user_id BIGINT NOT NULL REFERENCES users(id),
            product_id TEXT NOT NULL,
            subtotal NUMERIC(20, 8) NOT NULL,
            discount_code TEXT REFERENCES discount_codes(code),
            discount_amount NUMERIC(20, 8) NOT NULL DEFAULT 0,
            total NUMERIC(20, 8) NOT NULL,
            currency TEXT NOT NULL,
            status TEXT NOT NULL CHECK (status IN ('pending', 'paid', 'fulfilled', 'cancelled')),
            payment_id UUID,
            paid_at TIMESTAMPTZ,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`,
		`CREATE TABLE IF NOT EXISTS payments (
            id UUID PRIMARY KEY,
            order_id UUID NOT NULL REFERENCES orders(id),
            provider TEXT NOT NULL CHECK (provider IN ('bitcoin', 'ethereum', 'cardano')),
            wallet_address TEXT NOT NULL,
            expected_amount NUMERIC(38, 18) NOT NULL,
            received_amount NUMERIC(38, 18),
            transaction_id TEXT,
            confirmations BIGINT NOT NULL DEFAULT 0,
            status TEXT NOT NULL CHECK (status IN ('awaiting_payment', 'pending_confirmation', 'completed', 'failed')),
            checked_at TIMESTAMPTZ,
            claimed_until TIMESTAMPTZ,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`,
		`CREATE INDEX IF NOT EXISTS idx_orders_user ON orders(user_id, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_payments_order ON payments(order_id)`,
		`CREATE INDEX IF NOT EXISTS idx_payments_open ON payments(status, checked_at)`,
		// a chain transaction settles at most one payment
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_payments_transaction ON payments(provider, transaction_id)
            WHERE transaction_id IS NOT NULL`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_payments_one_open ON payments(order_id)
            WHERE status IN ('awaiting_payment', 'pending_confirmation')`,
	}

	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}

	return nil
}

// WithinTransaction executes function inside transaction boundary.
func (s *Storage) WithinTransaction(ctx context.Context, fn func(pgx.Tx) error) (err error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			err = tx.Commit(ctx)
		}
	}()

	err = fn(tx)
	return err
}

// HealthCheck verifies database connectivity.
func (s *Storage) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.pool.Ping(ctx)
}

// Logger returns storage logger.
func (s *Storage) Logger() *slog.Logger {
	return s.logger
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return domainErrors.ErrNotFound
	}
	return err
}
