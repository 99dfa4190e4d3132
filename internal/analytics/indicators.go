// Package analytics feeds the analytics panel: the rolling price series,
// derived indicators and pool aggregates.
package analytics

import (
	"fmt"

	"github.com/cinar/indicator/v2/helper"
	"github.com/cinar/indicator/v2/momentum"
	"github.com/cinar/indicator/v2/trend"
	"github.com/shopspring/decimal"
)

// Indicators derived figures over the price series shown alongside the
// chart.
type Indicators struct {
	// SMA20 is the 20-sample Simple Moving Average.
	SMA20 decimal.Decimal `json:"sma20"`
	// EMA20 is the 20-sample Exponential Moving Average.
	EMA20 decimal.Decimal `json:"ema20"`
	// RSI14 is the 14-sample Relative Strength Index.
	RSI14 decimal.Decimal `json:"rsi14"`
}

// CalculateSMA calculates the Simple Moving Average for the given period.
func CalculateSMA(closes []decimal.Decimal, period int) ([]decimal.Decimal, error) {
	if len(closes) < period {
		return nil, fmt.Errorf("not enough data points: need %d, got %d", period, len(closes))
	}

	sma := trend.NewSmaWithPeriod[float64](period)
	outputChan := sma.Compute(helper.SliceToChan(decimalsToFloat64(closes)))
	return float64ToDecimals(helper.ChanToSlice(outputChan)), nil
}

// CalculateEMA calculates the Exponential Moving Average for the given period.
func CalculateEMA(closes []decimal.Decimal, period int) ([]decimal.Decimal, error) {
	if len(closes) < period {
		return nil, fmt.Errorf("not enough data points: need %d, got %d", period, len(closes))
	}

	ema := trend.NewEmaWithPeriod[float64](period)
	outputChan := ema.Compute(helper.SliceToChan(decimalsToFloat64(closes)))
	return float64ToDecimals(helper.ChanToSlice(outputChan)), nil
}

// CalculateRSI calculates the Relative Strength Index for the given period.
func CalculateRSI(closes []decimal.Decimal, period int) ([]decimal.Decimal, error) {
	if len(closes) < period+1 {
		return nil, fmt.Errorf("not enough data points for RSI: need %d, got %d", period+1, len(closes))
	}

	rsi := momentum.NewRsiWithPeriod[float64](period)
	outputChan := rsi.Compute(helper.SliceToChan(decimalsToFloat64(closes)))
	return float64ToDecimals(helper.ChanToSlice(outputChan)), nil
}

// LatestIndicators computes the newest value of each indicator from the
// close series. Indicators without enough warmup data stay zero.
func LatestIndicators(closes []decimal.Decimal) Indicators {
	var out Indicators
	if sma, err := CalculateSMA(closes, 20); err == nil && len(sma) > 0 {
		out.SMA20 = sma[len(sma)-1]
	}
	if ema, err := CalculateEMA(closes, 20); err == nil && len(ema) > 0 {
		out.EMA20 = ema[len(ema)-1]
	}
	if rsi, err := CalculateRSI(closes, 14); err == nil && len(rsi) > 0 {
		out.RSI14 = rsi[len(rsi)-1]
	}
	return out
}

func decimalsToFloat64(values []decimal.Decimal) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i], _ = v.Float64()
	}
	return out
}

func float64ToDecimals(values []float64) []decimal.Decimal {
	out := make([]decimal.Decimal, len(values))
	for i, v := range values {
		out[i] = decimal.NewFromFloat(v)
	}
	return out
}
