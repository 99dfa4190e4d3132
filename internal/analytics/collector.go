package analytics

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/dexterlabs/dexter/internal/domain"
	"github.com/dexterlabs/dexter/internal/quote"
)

const defaultCapacity = 288 // one day at 5-minute sampling

// Collector samples the oracle rate of one pair on an interval and keeps a
// bounded series for the analytics chart.
type Collector struct {
	mu       sync.RWMutex
	series   []domain.PricePoint
	capacity int

	pair     domain.Pair
	pricer   quote.Pricer
	interval time.Duration
	l        *zap.Logger
}

// NewCollector creates a collector for the pair.
func NewCollector(pricer quote.Pricer, pair domain.Pair, interval time.Duration, l *zap.Logger) *Collector {
	return &Collector{
		capacity: defaultCapacity,
		pair:     pair,
		pricer:   pricer,
		interval: interval,
		l:        l,
	}
}

// Run samples until ctx is cancelled. Oracle failures are logged and the
// tick skipped; the series keeps whatever was collected before.
func (c *Collector) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.sample(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			c.sample(ctx)
		}
	}
}

func (c *Collector) sample(ctx context.Context) {
	price, err := c.pricer.GetPrice(ctx, c.pair)
	if err != nil {
		if ctx.Err() == nil {
			c.l.Warn("price sample failed",
				zap.String("pair", c.pair.String()),
				zap.Error(err))
		}
		return
	}
	c.Append(domain.PricePoint{Time: time.Now(), Price: price})
}

// Append adds one sample, evicting the oldest beyond capacity.
func (c *Collector) Append(point domain.PricePoint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.series = append(c.series, point)
	if len(c.series) > c.capacity {
		c.series = c.series[len(c.series)-c.capacity:]
	}
}

// Series returns a copy of the collected points, oldest first.
func (c *Collector) Series() []domain.PricePoint {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]domain.PricePoint, len(c.series))
	copy(out, c.series)
	return out
}

// Summary chart-header figures for the analytics panel.
type Summary struct {
	Pair          string          `json:"pair"`
	Last          decimal.Decimal `json:"last"`
	High24h       decimal.Decimal `json:"high_24h"`
	Low24h        decimal.Decimal `json:"low_24h"`
	ChangePercent decimal.Decimal `json:"change_percent"`
	Indicators    Indicators      `json:"indicators"`
}

// Summarize derives the header figures and indicators from the series.
func (c *Collector) Summarize() Summary {
	series := c.Series()
	summary := Summary{Pair: c.pair.String()}
	if len(series) == 0 {
		return summary
	}

	cutoff := time.Now().Add(-24 * time.Hour)
	closes := make([]decimal.Decimal, 0, len(series))
	first := decimal.Zero
	for _, p := range series {
		closes = append(closes, p.Price)
		if p.Time.Before(cutoff) {
			continue
		}
		if first.IsZero() {
			first = p.Price
			summary.High24h = p.Price
			summary.Low24h = p.Price
			continue
		}
		if p.Price.GreaterThan(summary.High24h) {
			summary.High24h = p.Price
		}
		if p.Price.LessThan(summary.Low24h) {
			summary.Low24h = p.Price
		}
	}

	summary.Last = series[len(series)-1].Price
	if !first.IsZero() {
		summary.ChangePercent = summary.Last.Sub(first).Div(first).Mul(decimal.NewFromInt(100)).Round(2)
	}
	summary.Indicators = LatestIndicators(closes)
	return summary
}
