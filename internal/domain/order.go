package domain

import "github.com/shopspring/decimal"

// OrderKind type of swap order.
type OrderKind string

const (
	// OrderKindMarket trade at the currently quoted rate.
	OrderKindMarket OrderKind = "market"
	// OrderKindLimit trade at a user-declared minimum acceptable rate.
	OrderKindLimit OrderKind = "limit"
)

// String returns the string representation.
func (k OrderKind) String() string {
	return string(k)
}

// IsValid checks if the OrderKind value is valid.
func (k OrderKind) IsValid() bool {
	return k == OrderKindMarket || k == OrderKindLimit
}

// SwapOrder a swap request. Transient: constructed on submit, consumed by
// the quote engine and the transaction log, never persisted as an entity.
type SwapOrder struct {
	// Pair assets being traded.
	Pair Pair
	// Input quantity of the base asset to trade.
	Input decimal.Decimal
	// Kind market or limit.
	Kind OrderKind
	// LimitPrice minimum acceptable receive amount, limit orders only.
	LimitPrice *decimal.Decimal
	// SlippageBps maximum adverse price movement in basis points.
	SlippageBps int
	// DeadlineMinutes minutes until the submitted trade is aborted.
	DeadlineMinutes int
}

// LiquidityRequest a request to add liquidity to a pool. Same lifecycle as
// SwapOrder.
type LiquidityRequest struct {
	AssetA  string
	AssetB  string
	AmountA decimal.Decimal
	AmountB decimal.Decimal
	// FeeTierBps pool fee tier in basis points (5, 30 or 100).
	FeeTierBps int
}

// PoolFeeTiersBps the fee tiers a pool may be created with.
var PoolFeeTiersBps = []int{5, 30, 100}

// ValidFeeTier checks the fee tier against the supported set.
func ValidFeeTier(bps int) bool {
	for _, t := range PoolFeeTiersBps {
		if t == bps {
			return true
		}
	}
	return false
}
