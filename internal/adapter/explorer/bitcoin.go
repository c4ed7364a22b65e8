package explorer

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/polkiloo/cryptostore/internal/domain/model"
)

// satoshiExp converts satoshi to BTC.
const satoshiExp = -8

// Esplora talks to a Blockstream Esplora compatible API.
type Esplora struct {
	api *apiClient
}

type esploraStatus struct {
	Confirmed   bool  `json:"confirmed"`
	BlockHeight int64 `json:"block_height"`
	BlockTime   int64 `json:"block_time"`
}

type esploraTx struct {
	TxID   string        `json:"txid"`
	Status esploraStatus `json:"status"`
	Vout   []struct {
		Address string `json:"scriptpubkey_address"`
		Value   int64  `json:"value"`
	} `json:"vout"`
}

// NewEsplora creates bitcoin backend.
func NewEsplora(baseURL string, timeout time.Duration, rps float64, logger *slog.Logger) (*Esplora, error) {
	api, err := newAPIClient(string(model.ProviderBitcoin), baseURL, timeout, rps, logger)
	if err != nil {
		return nil, err
	}
	return &Esplora{api: api}, nil
}

func (e *Esplora) FindTransaction(ctx context.Context, address string, expected decimal.Decimal) (model.TransactionLookup, error) {
	var txs []esploraTx
	if err := e.api.getJSON(ctx, "/address/"+address+"/txs", nil, &txs); err != nil {
		return model.TransactionLookup{}, err
	}

	var lookup model.TransactionLookup
	for _, tx := range txs {
		var sats int64
		for _, out := range tx.Vout {
			if out.Address == address {
				sats += out.Value
			}
		}
		received := decimal.New(sats, satoshiExp)
		if sats <= 0 || received.LessThan(expected) {
			continue
		}
		candidate := model.IncomingTransaction{TransactionID: tx.TxID, ReceivedAmount: received}
		if tx.Status.Confirmed {
			candidate.ConfirmedAt = time.Unix(tx.Status.BlockTime, 0).UTC()
		}
		lookup.Candidates = append(lookup.Candidates, candidate)
	}
	return lookup, nil
}

func (e *Esplora) TransactionHeight(ctx context.Context, txID string) (int64, bool, error) {
	var status esploraStatus
	if err := e.api.getJSON(ctx, "/tx/"+txID+"/status", nil, &status); err != nil {
		return 0, false, err
	}
	return status.BlockHeight, status.Confirmed, nil
}

func (e *Esplora) TipHeight(ctx context.Context) (int64, error) {
	var height int64
	if err := e.api.getJSON(ctx, "/blocks/tip/height", nil, &height); err != nil {
		return 0, err
	}
	return height, nil
}
