package clients

import (
	"context"
	"fmt"

	"github.com/adshao/go-binance/v2"
	"github.com/shopspring/decimal"

	"github.com/dexterlabs/dexter/internal/domain"
)

// BinancePricer price oracle backed by the Binance spot API. Works without
// API keys, public market data is enough for quoting.
type BinancePricer struct {
	client *binance.Client
}

// NewBinancePricer creates a new Binance pricer.
func NewBinancePricer(client *binance.Client) *BinancePricer {
	return &BinancePricer{client: client}
}

// GetPrice fetches the current rate for the pair.
func (p *BinancePricer) GetPrice(ctx context.Context, pair domain.Pair) (decimal.Decimal, error) {
	prices, err := p.client.NewListPricesService().Symbol(pair.Symbol()).Do(ctx)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if len(prices) == 0 {
		return decimal.Decimal{}, fmt.Errorf("binance API returned empty prices for %s", pair.String())
	}

	return decimal.NewFromString(prices[0].Price)
}
