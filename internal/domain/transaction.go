package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TxKind type of logged transaction.
type TxKind string

const (
	// TxKindSwap token swap.
	TxKindSwap TxKind = "swap"
	// TxKindAddLiquidity liquidity provision to an existing pool.
	TxKindAddLiquidity TxKind = "liquidity"
	// TxKindCreatePool new pool creation with initial liquidity.
	TxKindCreatePool TxKind = "create_pool"
)

// String returns the string representation.
func (k TxKind) String() string {
	return string(k)
}

// IsValid checks if the TxKind value is valid.
func (k TxKind) IsValid() bool {
	return k == TxKindSwap || k == TxKindAddLiquidity || k == TxKindCreatePool
}

// TxStatus lifecycle status of a logged transaction.
type TxStatus string

const (
	// TxStatusPending submitted, confirmation outstanding.
	TxStatusPending TxStatus = "pending"
	// TxStatusCompleted confirmed by the provider layer.
	TxStatusCompleted TxStatus = "completed"
	// TxStatusFailed rejected by the provider layer.
	TxStatusFailed TxStatus = "failed"
)

// String returns the string representation.
func (s TxStatus) String() string {
	return string(s)
}

// Transaction one entry of the append-only transaction log.
type Transaction struct {
	// ID monotonically increasing log identifier.
	ID uint64 `json:"id"`
	// Kind swap, liquidity or pool creation.
	Kind TxKind `json:"kind"`
	// From base asset symbol.
	From string `json:"from"`
	// To quote asset symbol.
	To string `json:"to"`
	// Amount quantity of the base asset.
	Amount decimal.Decimal `json:"amount"`
	// MinReceive minimum acceptable receive amount for the trade.
	MinReceive decimal.Decimal `json:"min_receive"`
	// Time submission timestamp.
	Time time.Time `json:"time"`
	// Status pending, completed or failed.
	Status TxStatus `json:"status"`
	// Confidential whether the payload was submitted encrypted.
	Confidential bool `json:"confidential"`
}
