package analytics

import (
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/dexterlabs/dexter/internal/domain"
)

// PoolRegistry holds the pool aggregates behind the liquidity panel and the
// "top pools" list. Seeded with the venue's standing pools; CreatePool
// completions append to it.
type PoolRegistry struct {
	mu    sync.RWMutex
	pools []domain.PoolStat
}

// NewPoolRegistry creates a registry with the seed pools.
func NewPoolRegistry(seed []domain.PoolStat) *PoolRegistry {
	pools := make([]domain.PoolStat, len(seed))
	copy(pools, seed)
	return &PoolRegistry{pools: pools}
}

// DefaultPools the standing pools of the venue.
func DefaultPools() []domain.PoolStat {
	return []domain.PoolStat{
		{PairName: "ETH/USDC", FeeTierBps: 30, Volume24h: decimal.NewFromInt(4200000), TVL: decimal.NewFromInt(25000000), APRPercent: decimal.NewFromFloat(12.5)},
		{PairName: "WBTC/ETH", FeeTierBps: 30, Volume24h: decimal.NewFromInt(3100000), TVL: decimal.NewFromInt(18000000), APRPercent: decimal.NewFromFloat(8.3)},
		{PairName: "DAI/USDC", FeeTierBps: 5, Volume24h: decimal.NewFromInt(2800000), TVL: decimal.NewFromInt(32000000), APRPercent: decimal.NewFromFloat(5.2)},
		{PairName: "ETH/DAI", FeeTierBps: 30, Volume24h: decimal.NewFromInt(1500000), TVL: decimal.NewFromInt(12000000), APRPercent: decimal.NewFromFloat(9.8)},
	}
}

// AddPool registers a newly created pool with its initial liquidity as TVL.
func (r *PoolRegistry) AddPool(pair domain.Pair, feeTierBps int, amountA, amountB decimal.Decimal) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pools = append(r.pools, domain.PoolStat{
		PairName:   fmt.Sprintf("%s/%s", pair.From, pair.To),
		FeeTierBps: feeTierBps,
		Volume24h:  decimal.Zero,
		TVL:        amountA.Add(amountB),
		APRPercent: decimal.Zero,
	})
}

// Pools returns a copy of all pools.
func (r *PoolRegistry) Pools() []domain.PoolStat {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.PoolStat, len(r.pools))
	copy(out, r.pools)
	return out
}

// TopByVolume returns up to n pools ordered by 24h volume.
func (r *PoolRegistry) TopByVolume(n int) []domain.PoolStat {
	out := r.Pools()
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Volume24h.GreaterThan(out[j-1].Volume24h); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
