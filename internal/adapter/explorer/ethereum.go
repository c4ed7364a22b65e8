package explorer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/polkiloo/cryptostore/internal/domain/model"
)

// weiExp converts wei to ETH.
const weiExp = -18

// Etherscan talks to the Etherscan account and proxy modules.
type Etherscan struct {
	api    *apiClient
	apiKey string
}

type etherscanEnvelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

type etherscanTx struct {
	Hash      string `json:"hash"`
	To        string `json:"to"`
	Value     string `json:"value"`
	IsError   string `json:"isError"`
	TimeStamp string `json:"timeStamp"`
}

type rpcEnvelope struct {
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// NewEtherscan creates ethereum backend.
func NewEtherscan(baseURL, apiKey string, timeout time.Duration, rps float64, logger *slog.Logger) (*Etherscan, error) {
	api, err := newAPIClient(string(model.ProviderEthereum), baseURL, timeout, rps, logger)
	if err != nil {
		return nil, err
	}
	return &Etherscan{api: api, apiKey: apiKey}, nil
}

func (e *Etherscan) query(module, action string, extra url.Values) url.Values {
	q := url.Values{}
	q.Set("module", module)
	q.Set("action", action)
	for k, v := range extra {
		q[k] = v
	}
	if e.apiKey != "" {
		q.Set("apikey", e.apiKey)
	}
	return q
}

func (e *Etherscan) FindTransaction(ctx context.Context, address string, expected decimal.Decimal) (model.TransactionLookup, error) {
	var env etherscanEnvelope
	q := e.query("account", "txlist", url.Values{"address": {address}, "sort": {"desc"}})
	if err := e.api.getJSON(ctx, "", q, &env); err != nil {
		return model.TransactionLookup{}, err
	}

	var txs []etherscanTx
	if err := json.Unmarshal(env.Result, &txs); err != nil {
		// failures carry a plain string result
		if env.Status == "0" && strings.HasPrefix(env.Message, "No transactions") {
			return model.TransactionLookup{}, nil
		}
		return model.TransactionLookup{}, fmt.Errorf("etherscan txlist: %s", env.Message)
	}

	var lookup model.TransactionLookup
	for _, tx := range txs {
		if tx.IsError != "0" || !strings.EqualFold(tx.To, address) {
			continue
		}
		wei, err := decimal.NewFromString(tx.Value)
		if err != nil {
			return model.TransactionLookup{}, fmt.Errorf("etherscan value %q: %w", tx.Value, err)
		}
		received := wei.Shift(weiExp)
		if !received.IsPositive() || received.LessThan(expected) {
			continue
		}
		// txlist only returns mined transactions
		stamp, err := strconv.ParseInt(tx.TimeStamp, 10, 64)
		if err != nil {
			return model.TransactionLookup{}, fmt.Errorf("etherscan timestamp %q: %w", tx.TimeStamp, err)
		}
		lookup.Candidates = append(lookup.Candidates, model.IncomingTransaction{
			TransactionID:  tx.Hash,
			ReceivedAmount: received,
			ConfirmedAt:    time.Unix(stamp, 0).UTC(),
		})
	}
	return lookup, nil
}

func (e *Etherscan) rpc(ctx context.Context, action string, extra url.Values) (json.RawMessage, error) {
	var env rpcEnvelope
	if err := e.api.getJSON(ctx, "", e.query("proxy", action, extra), &env); err != nil {
		return nil, err
	}
	if env.Error != nil {
		return nil, fmt.Errorf("etherscan %s: %s", action, env.Error.Message)
	}
	return env.Result, nil
}

func (e *Etherscan) TransactionHeight(ctx context.Context, txID string) (int64, bool, error) {
	raw, err := e.rpc(ctx, "eth_getTransactionByHash", url.Values{"txhash": {txID}})
	if err != nil {
		return 0, false, err
	}
	var tx *struct {
		BlockNumber *string `json:"blockNumber"`
	}
	if err := json.Unmarshal(raw, &tx); err != nil {
		return 0, false, fmt.Errorf("decode ethereum transaction: %w", err)
	}
	if tx == nil {
		return 0, false, ErrTransactionNotFound
	}
	if tx.BlockNumber == nil {
		return 0, false, nil
	}
	height, err := parseHex(*tx.BlockNumber)
	if err != nil {
		return 0, false, err
	}
	return height, true, nil
}

func (e *Etherscan) TipHeight(ctx context.Context) (int64, error) {
	raw, err := e.rpc(ctx, "eth_blockNumber", nil)
	if err != nil {
		return 0, err
	}
	var hex string
	if err := json.Unmarshal(raw, &hex); err != nil {
		return 0, fmt.Errorf("decode ethereum block number: %w", err)
	}
	return parseHex(hex)
}

func parseHex(raw string) (int64, error) {
	v, err := strconv.ParseInt(strings.TrimPrefix(raw, "0x"), 16, 64)
	if err != nil {
		return 0, fmt.Errorf("parse hex quantity %q: %w", raw, err)
	}
	return v, nil
}
