package explorer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"github.com/polkiloo/cryptostore/internal/domain/model"
)

const (
	lovelaceExp = -6
	// recentTxLimit bounds how many address transactions are inspected per lookup.
	recentTxLimit = 10
)

// Blockfrost talks to the Blockfrost cardano API.
type Blockfrost struct {
	api *apiClient
}

type blockfrostAddressTx struct {
	TxHash      string `json:"tx_hash"`
	BlockHeight int64  `json:"block_height"`
	BlockTime   int64  `json:"block_time"`
}

type blockfrostUTXOs struct {
	Outputs []struct {
		Address string `json:"address"`
		Amount  []struct {
			Unit     string `json:"unit"`
			Quantity string `json:"quantity"`
		} `json:"amount"`
	} `json:"outputs"`
}

// NewBlockfrost creates cardano backend authenticated with projectID.
func NewBlockfrost(baseURL, projectID string, timeout time.Duration, rps float64, logger *slog.Logger) (*Blockfrost, error) {
	api, err := newAPIClient(string(model.ProviderCardano), baseURL, timeout, rps, logger)
	if err != nil {
		return nil, err
	}
	if projectID != "" {
		api.header.Set("project_id", projectID)
	}
	return &Blockfrost{api: api}, nil
}

func (b *Blockfrost) FindTransaction(ctx context.Context, address string, expected decimal.Decimal) (model.TransactionLookup, error) {
	var txs []blockfrostAddressTx
	q := url.Values{"order": {"desc"}, "count": {fmt.Sprint(recentTxLimit)}}
	if err := b.api.getJSON(ctx, "/addresses/"+address+"/transactions", q, &txs); err != nil {
		if errors.Is(err, ErrTransactionNotFound) {
			// unused addresses are unknown to blockfrost
			return model.TransactionLookup{}, nil
		}
		return model.TransactionLookup{}, err
	}

	var lookup model.TransactionLookup
	for _, tx := range txs {
		var utxos blockfrostUTXOs
		if err := b.api.getJSON(ctx, "/txs/"+tx.TxHash+"/utxos", nil, &utxos); err != nil {
			return model.TransactionLookup{}, err
		}
		lovelace := decimal.Zero
		for _, out := range utxos.Outputs {
			if out.Address != address {
				continue
			}
			for _, a := range out.Amount {
				if a.Unit != "lovelace" {
					continue
				}
				q, err := decimal.NewFromString(a.Quantity)
				if err != nil {
					return model.TransactionLookup{}, fmt.Errorf("blockfrost quantity %q: %w", a.Quantity, err)
				}
				lovelace = lovelace.Add(q)
			}
		}
		received := lovelace.Shift(lovelaceExp)
		if !received.IsPositive() || received.LessThan(expected) {
			continue
		}
		lookup.Candidates = append(lookup.Candidates, model.IncomingTransaction{
			TransactionID:  tx.TxHash,
			ReceivedAmount: received,
			ConfirmedAt:    time.Unix(tx.BlockTime, 0).UTC(),
		})
	}
	return lookup, nil
}

func (b *Blockfrost) TransactionHeight(ctx context.Context, txID string) (int64, bool, error) {
	var tx struct {
		BlockHeight *int64 `json:"block_height"`
	}
	if err := b.api.getJSON(ctx, "/txs/"+txID, nil, &tx); err != nil {
		return 0, false, err
	}
	if tx.BlockHeight == nil {
		return 0, false, nil
	}
	return *tx.BlockHeight, true, nil
}

func (b *Blockfrost) TipHeight(ctx context.Context) (int64, error) {
	var block struct {
		Height int64 `json:"height"`
	}
	if err := b.api.getJSON(ctx, "/blocks/latest", nil, &block); err != nil {
		return 0, err
	}
	return block.Height, nil
}
