package explorer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/polkiloo/cryptostore/internal/adapter/cache"
	domainerrors "github.com/polkiloo/cryptostore/internal/domain/errors"
	"github.com/polkiloo/cryptostore/internal/domain/model"
)

// Backend is a single chain explorer.
type Backend interface {
	// FindTransaction lists recent transactions paying at least expected to address.
	FindTransaction(ctx context.Context, address string, expected decimal.Decimal) (model.TransactionLookup, error)
	// TransactionHeight returns the block height of txID; false while unconfirmed.
	TransactionHeight(ctx context.Context, txID string) (int64, bool, error)
	TipHeight(ctx context.Context) (int64, error)
}

// Client exposes explorer queries for every supported provider.
type Client interface {
	CheckTransactionStatus(ctx context.Context, provider model.Provider, address string, expected decimal.Decimal) (model.TransactionLookup, error)
	CheckTransactionConfirmations(ctx context.Context, provider model.Provider, txID string) (model.ConfirmationLookup, error)
	ReceiveAddress(provider model.Provider) (string, error)
}

// Router dispatches queries to the backend of a provider.
type Router struct {
	backends map[model.Provider]Backend
	wallets  map[model.Provider]string
	cache    cache.Cache
	tipTTL   time.Duration
	logger   *slog.Logger
}

// NewRouter builds router. Chain tips are cached for tipTTL.
func NewRouter(backends map[model.Provider]Backend, wallets map[model.Provider]string, c cache.Cache, tipTTL time.Duration, logger *slog.Logger) *Router {
	if c == nil {
		c = cache.NopCache{}
	}
	return &Router{backends: backends, wallets: wallets, cache: c, tipTTL: tipTTL, logger: logger}
}

func (r *Router) backend(provider model.Provider) (Backend, error) {
	b, ok := r.backends[provider]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domainerrors.ErrUnsupportedProvider, provider)
	}
	return b, nil
}

// ReceiveAddress returns the store wallet that receives payments on provider.
func (r *Router) ReceiveAddress(provider model.Provider) (string, error) {
	address, ok := r.wallets[provider]
	if !ok || address == "" {
		return "", fmt.Errorf("%w: no wallet for %s", domainerrors.ErrUnsupportedProvider, provider)
	}
	return address, nil
}

func (r *Router) CheckTransactionStatus(ctx context.Context, provider model.Provider, address string, expected decimal.Decimal) (model.TransactionLookup, error) {
	b, err := r.backend(provider)
	if err != nil {
		return model.TransactionLookup{}, err
	}
	if !expected.IsPositive() {
		return model.TransactionLookup{}, domainerrors.ErrInvalidAmount
	}
	if address == "" {
		return model.TransactionLookup{}, fmt.Errorf("%w: empty address", domainerrors.ErrInvalidInput)
	}

	lookup, err := b.FindTransaction(ctx, address, expected)
	if err != nil {
		return model.TransactionLookup{}, fmt.Errorf("find %s transaction: %w", provider, err)
	}
	return lookup, nil
}

func (r *Router) CheckTransactionConfirmations(ctx context.Context, provider model.Provider, txID string) (model.ConfirmationLookup, error) {
	b, err := r.backend(provider)
	if err != nil {
		return model.ConfirmationLookup{}, err
	}
	if txID == "" {
		return model.ConfirmationLookup{}, fmt.Errorf("%w: empty transaction id", domainerrors.ErrInvalidInput)
	}

	height, confirmed, err := b.TransactionHeight(ctx, txID)
	if err != nil {
		return model.ConfirmationLookup{}, fmt.Errorf("%s transaction %s: %w", provider, txID, err)
	}
	if !confirmed {
		return model.ConfirmationLookup{TransactionID: txID}, nil
	}

	tip, err := r.tipHeight(ctx, provider, b)
	if err != nil {
		return model.ConfirmationLookup{}, fmt.Errorf("%s tip height: %w", provider, err)
	}

	confirmations := tip - height + 1
	if confirmations < 1 {
		// cached tip lags behind the block holding the transaction
		confirmations = 1
	}
	return model.ConfirmationLookup{TransactionID: txID, Confirmations: confirmations}, nil
}

func (r *Router) tipHeight(ctx context.Context, provider model.Provider, b Backend) (int64, error) {
	key := cache.ExplorerTag(string(provider)) + ":tip"

	var tip int64
	found, err := r.cache.Get(ctx, key, &tip)
	if err != nil {
		r.logger.Warn("tip cache read failed", slog.String("provider", string(provider)), slog.String("error", err.Error()))
	}
	if found {
		return tip, nil
	}

	tip, err = b.TipHeight(ctx)
	if err != nil {
		return 0, err
	}
	if err := r.cache.Set(ctx, key, tip, r.tipTTL, cache.ExplorerTag(string(provider))); err != nil {
		r.logger.Warn("tip cache write failed", slog.String("provider", string(provider)), slog.String("error", err.Error()))
	}
	return tip, nil
}
