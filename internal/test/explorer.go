package test

import (
	"context"
	"sync/atomic"

	"github.com/shopspring/decimal"

	"github.com/polkiloo/cryptostore/internal/adapter/explorer"
	domainErrors "github.com/polkiloo/cryptostore/internal/domain/errors"
	"github.com/polkiloo/cryptostore/internal/domain/model"
)

// ExplorerStub answers explorer queries from fixed results or overrides.
type ExplorerStub struct {
	StatusFn        func(context.Context, model.Provider, string, decimal.Decimal) (model.TransactionLookup, error)
	ConfirmationsFn func(context.Context, model.Provider, string) (model.ConfirmationLookup, error)

	Lookup        model.TransactionLookup
	Confirmations int64
	Err           error
	Wallets       map[model.Provider]string

	StatusCalls        atomic.Int32
	ConfirmationsCalls atomic.Int32
}

func (s *ExplorerStub) CheckTransactionStatus(ctx context.Context, provider model.Provider, address string, expected decimal.Decimal) (model.TransactionLookup, error) {
	s.StatusCalls.Add(1)
	if s.StatusFn != nil {
		return s.StatusFn(ctx, provider, address, expected)
	}
	if s.Err != nil {
		return model.TransactionLookup{}, s.Err
	}
	return s.Lookup, nil
}

func (s *ExplorerStub) CheckTransactionConfirmations(ctx context.Context, provider model.Provider, txID string) (model.ConfirmationLookup, error) {
	s.ConfirmationsCalls.Add(1)
	if s.ConfirmationsFn != nil {
		return s.ConfirmationsFn(ctx, provider, txID)
	}
	if s.Err != nil {
		return model.ConfirmationLookup{}, s.Err
	}
	return model.ConfirmationLookup{TransactionID: txID, Confirmations: s.Confirmations}, nil
}

func (s *ExplorerStub) ReceiveAddress(provider model.Provider) (string, error) {
	if addr, ok := s.Wallets[provider]; ok {
		return addr, nil
	}
	return "", domainErrors.ErrUnsupportedProvider
}

var _ explorer.Client = (*ExplorerStub)(nil)

// Mempool builds a lookup holding one unconfirmed transaction.
func Mempool(txID string, received decimal.Decimal) model.TransactionLookup {
	return model.TransactionLookup{Candidates: []model.IncomingTransaction{{TransactionID: txID, ReceivedAmount: received}}}
}
