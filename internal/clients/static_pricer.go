package clients

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/dexterlabs/dexter/internal/domain"
)

// StaticPricer price oracle with a fixed rate table, for offline runs. A
// missing direct rate is answered with the inverse of the reversed pair.
type StaticPricer struct {
	rates map[string]decimal.Decimal
}

// NewStaticPricer creates the pricer from a pair->rate table keyed by
// Pair.String() (e.g. "ETH_USDC").
func NewStaticPricer(rates map[string]decimal.Decimal) *StaticPricer {
	return &StaticPricer{rates: rates}
}

// GetPrice looks up the rate for the pair.
func (p *StaticPricer) GetPrice(_ context.Context, pair domain.Pair) (decimal.Decimal, error) {
	if rate, ok := p.rates[pair.String()]; ok {
		return rate, nil
	}
	reversed := pair.Reversed()
	if rate, ok := p.rates[reversed.String()]; ok && !rate.IsZero() {
		return decimal.NewFromInt(1).Div(rate), nil
	}
	return decimal.Zero, fmt.Errorf("no rate configured for %s", pair.String())
}
