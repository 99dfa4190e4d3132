// Package internal wires the application services together.
package internal

import (
	"fmt"
	"time"

	binance "github.com/adshao/go-binance/v2"
	bybit "github.com/hirokisan/bybit/v2"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/dexterlabs/dexter/config"
	"github.com/dexterlabs/dexter/internal/analytics"
	"github.com/dexterlabs/dexter/internal/clients"
	"github.com/dexterlabs/dexter/internal/confidential"
	"github.com/dexterlabs/dexter/internal/domain"
	"github.com/dexterlabs/dexter/internal/engine"
	"github.com/dexterlabs/dexter/internal/ledger"
	"github.com/dexterlabs/dexter/internal/quote"
	"github.com/dexterlabs/dexter/internal/view"
	"github.com/dexterlabs/dexter/internal/wallet"
)

// App holds the wired application services.
type App struct {
	Session   *wallet.Session
	Store     *confidential.Store
	Quotes    *quote.Engine
	Log       *ledger.Log
	Views     *view.Controller
	Engine    *engine.Engine
	Collector *analytics.Collector
	Pools     *analytics.PoolRegistry
}

// NewApp builds the application from configuration. The confidential
// provider and the chain submitter are always the simulated ones; the price
// oracle and the wallet are real when configured so.
func NewApp(conf config.Config, logger *zap.Logger) (*App, error) {
	fhe, err := clients.NewSimFHE()
	if err != nil {
		return nil, errors.Wrap(err, "init confidential provider")
	}

	walletProvider, err := newWalletProvider(conf)
	if err != nil {
		return nil, err
	}

	pricer, err := newPricer(conf)
	if err != nil {
		return nil, err
	}

	store := confidential.NewStore(fhe, conf.Assets, logger)
	session := wallet.NewSession(walletProvider, fhe, store, conf.Assets, conf.ProviderTimeout, logger)
	quotes := quote.NewEngine(pricer)

	log, err := ledger.NewLog(conf.WalDir, logger)
	if err != nil {
		return nil, err
	}
	if err := log.Seed(seedHistory()); err != nil {
		return nil, errors.Wrap(err, "seed transaction history")
	}

	views := view.NewController(view.Settings{
		SlippageBps:     conf.SlippageBps,
		DeadlineMinutes: conf.DeadlineMinutes,
	})
	pools := analytics.NewPoolRegistry(analytics.DefaultPools())
	collector := analytics.NewCollector(pricer, conf.Pair, conf.SampleInterval, logger)

	eng := engine.New(engine.Config{
		Session:   session,
		Store:     store,
		Quotes:    quotes,
		Log:       log,
		Views:     views,
		Submitter: clients.NewSimSubmitter(),
		Pools:     pools,
		FHE:       fhe,
		Contract:  conf.Contract,
		Timeout:   conf.ProviderTimeout,
		Logger:    logger,
	})

	return &App{
		Session:   session,
		Store:     store,
		Quotes:    quotes,
		Log:       log,
		Views:     views,
		Engine:    eng,
		Collector: collector,
		Pools:     pools,
	}, nil
}

func newWalletProvider(conf config.Config) (wallet.Provider, error) {
	if conf.WalletKey == "" {
		return clients.NewSimWallet(), nil
	}
	return clients.NewEthWallet(conf.WalletKey)
}

func newPricer(conf config.Config) (quote.Pricer, error) {
	switch conf.Platform {
	case "binance":
		return clients.NewBinancePricer(binance.NewClient("", "")), nil
	case "bybit":
		return clients.NewBybitPricer(bybit.NewClient()), nil
	case "hyperliquid":
		if conf.WalletKey == "" {
			return nil, errors.New("hyperliquid oracle requires wallet_key")
		}
		return clients.NewHyperliquidPricerFromKey(conf.WalletKey, "")
	case "static":
		return clients.NewStaticPricer(defaultRates()), nil
	default:
		return nil, fmt.Errorf("unsupported platform: %s", conf.Platform)
	}
}

func defaultRates() map[string]decimal.Decimal {
	return map[string]decimal.Decimal{
		"ETH_USDC":  decimal.NewFromInt(2000),
		"ETH_DAI":   decimal.NewFromInt(2000),
		"WBTC_ETH":  decimal.NewFromInt(20),
		"WBTC_USDC": decimal.NewFromInt(40000),
		"WBTC_DAI":  decimal.NewFromInt(40000),
		"USDC_DAI":  decimal.NewFromInt(1),
	}
}

// seedHistory the venue's pre-existing entries shown before any local
// action. New ids always start above the seeded range.
func seedHistory() []domain.Transaction {
	now := time.Now()
	return []domain.Transaction{
		{ID: 1, Kind: domain.TxKindSwap, From: "ETH", To: "USDC", Amount: decimal.RequireFromString("1.5"), MinReceive: decimal.RequireFromString("2985"), Time: now.Add(-2 * time.Minute), Status: domain.TxStatusCompleted, Confidential: true},
		{ID: 2, Kind: domain.TxKindAddLiquidity, From: "ETH", To: "USDC", Amount: decimal.RequireFromString("2.0"), MinReceive: decimal.RequireFromString("4000"), Time: now.Add(-15 * time.Minute), Status: domain.TxStatusCompleted, Confidential: true},
		{ID: 3, Kind: domain.TxKindSwap, From: "USDC", To: "DAI", Amount: decimal.RequireFromString("3000"), MinReceive: decimal.RequireFromString("2985"), Time: now.Add(-1 * time.Hour), Status: domain.TxStatusCompleted, Confidential: true},
		{ID: 4, Kind: domain.TxKindSwap, From: "ETH", To: "WBTC", Amount: decimal.RequireFromString("0.5"), MinReceive: decimal.RequireFromString("0.024"), Time: now.Add(-3 * time.Hour), Status: domain.TxStatusPending, Confidential: true},
	}
}
