package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PricePoint one sample of the analytics price series.
type PricePoint struct {
	// Time sample timestamp.
	Time time.Time `json:"time"`
	// Price quoted rate at that time.
	Price decimal.Decimal `json:"price"`
}

// PoolStat aggregate figures for one liquidity pool shown on the analytics
// and liquidity panels.
type PoolStat struct {
	// PairName display name, e.g. "ETH/USDC".
	PairName string `json:"pair"`
	// FeeTierBps pool fee tier in basis points.
	FeeTierBps int `json:"fee_tier_bps"`
	// Volume24h traded volume over the last day, quote denominated.
	Volume24h decimal.Decimal `json:"volume_24h"`
	// TVL total value locked, quote denominated.
	TVL decimal.Decimal `json:"tvl"`
	// APRPercent annualized fee yield.
	APRPercent decimal.Decimal `json:"apr_percent"`
}
