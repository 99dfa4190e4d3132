// Package quote derives estimated output amounts for swap orders from an
// external price oracle.
package quote

import (
	"context"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/dexterlabs/dexter/internal/domain"
)

// outputPrecision decimal places of a quoted output amount.
const outputPrecision = 6

// Pricer provides the current rate between two assets.
type Pricer interface {
	GetPrice(ctx context.Context, pair domain.Pair) (decimal.Decimal, error)
}

// Engine turns swap orders into output estimates. Market orders are priced
// at the oracle rate; limit orders echo the user-declared minimum receive.
type Engine struct {
	pricer Pricer
}

// NewEngine creates a quote engine backed by the given oracle.
func NewEngine(pricer Pricer) *Engine {
	return &Engine{pricer: pricer}
}

// Estimate computes the output amount for an order.
//
// Market: input x rate, rounded half-up to six decimal places. Zero input
// yields zero output; the caller disables submission for it.
//
// Limit: the declared limit price is the minimum acceptable receive amount
// and is returned as-is. A nil, zero or negative limit price is rejected
// with ErrInvalidLimitPrice before anything reaches the transaction log.
func (e *Engine) Estimate(ctx context.Context, order domain.SwapOrder) (decimal.Decimal, error) {
	switch order.Kind {
	case domain.OrderKindLimit:
		if order.LimitPrice == nil || !order.LimitPrice.IsPositive() {
			return decimal.Zero, domain.ErrInvalidLimitPrice
		}
		return *order.LimitPrice, nil
	case domain.OrderKindMarket:
		if order.Input.IsZero() {
			return decimal.Zero, nil
		}
		rate, err := e.pricer.GetPrice(ctx, order.Pair)
		if err != nil {
			return decimal.Zero, errors.Wrapf(err, "rate for %s", order.Pair.String())
		}
		return order.Input.Mul(rate).Round(outputPrecision), nil
	default:
		return decimal.Zero, errors.Errorf("unsupported order kind: %s", order.Kind)
	}
}

// MinReceiveAfterSlippage reduces a market estimate by the slippage
// tolerance, producing the minimum receive recorded with the transaction.
func MinReceiveAfterSlippage(output decimal.Decimal, slippageBps int) decimal.Decimal {
	if slippageBps <= 0 {
		return output
	}
	factor := decimal.NewFromInt(10000 - int64(slippageBps)).Div(decimal.NewFromInt(10000))
	return output.Mul(factor).Round(outputPrecision)
}
