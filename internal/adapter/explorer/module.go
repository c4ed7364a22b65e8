package explorer

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/polkiloo/cryptostore/internal/adapter/cache"
	"github.com/polkiloo/cryptostore/internal/config"
	"github.com/polkiloo/cryptostore/internal/domain/model"
)

// Module exposes explorer client implementation to fx graph.
var Module = fx.Provide(newClient)

type clientParams struct {
	fx.In

	Config *config.Config
	Cache  cache.Cache
	Logger *slog.Logger
}

func newClient(p clientParams) (Client, error) {
	cfg := p.Config

	bitcoin, err := NewEsplora(cfg.BitcoinExplorerURL, cfg.ExplorerTimeout, cfg.ExplorerRPS, p.Logger)
	if err != nil {
		return nil, err
	}
	ethereum, err := NewEtherscan(cfg.EthereumExplorerURL, cfg.EthereumAPIKey, cfg.ExplorerTimeout, cfg.ExplorerRPS, p.Logger)
	if err != nil {
		return nil, err
	}
	cardano, err := NewBlockfrost(cfg.CardanoExplorerURL, cfg.CardanoProjectID, cfg.ExplorerTimeout, cfg.ExplorerRPS, p.Logger)
	if err != nil {
		return nil, err
	}

	backends := map[model.Provider]Backend{
		model.ProviderBitcoin:  bitcoin,
		model.ProviderEthereum: ethereum,
		model.ProviderCardano:  cardano,
	}
	return NewRouter(backends, cfg.Wallets, p.Cache, cfg.TipCacheTTL, p.Logger), nil
}
