package domain

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestPair(t *testing.T) {
	pair := Pair{From: "ETH", To: "USDC"}

	assert.Equal(t, "ETH_USDC", pair.String())
	assert.Equal(t, "ETHUSDC", pair.Symbol())
	assert.Equal(t, Pair{From: "USDC", To: "ETH"}, pair.Reversed())
}

func TestOrderKindIsValid(t *testing.T) {
	assert.True(t, OrderKindMarket.IsValid())
	assert.True(t, OrderKindLimit.IsValid())
	assert.False(t, OrderKind("stop").IsValid())
}

func TestTxKindIsValid(t *testing.T) {
	assert.True(t, TxKindSwap.IsValid())
	assert.True(t, TxKindAddLiquidity.IsValid())
	assert.True(t, TxKindCreatePool.IsValid())
	assert.False(t, TxKind("airdrop").IsValid())
}

func TestValidFeeTier(t *testing.T) {
	for _, bps := range PoolFeeTiersBps {
		assert.True(t, ValidFeeTier(bps), bps)
	}
	assert.False(t, ValidFeeTier(0))
	assert.False(t, ValidFeeTier(42))
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
	}{
		{name: "provider unavailable", err: ErrProviderUnavailable, retryable: true},
		{name: "provider timeout", err: ErrProviderTimeout, retryable: true},
		{name: "handle expired", err: ErrHandleExpired, retryable: true},
		{name: "submission failed", err: ErrSubmissionFailed, retryable: true},
		{name: "plain error", err: errors.New("boom"), retryable: true},
		{name: "connection rejected", err: ErrConnectionRejected, retryable: false},
		{name: "decryption denied", err: ErrDecryptionDenied, retryable: false},
		{name: "invalid limit price", err: ErrInvalidLimitPrice, retryable: false},
		{name: "already decrypted", err: ErrAlreadyDecrypted, retryable: false},
		{name: "not connected", err: ErrNotConnected, retryable: false},
		{name: "unknown asset", err: ErrUnknownAsset, retryable: false},
		{name: "wrapped sentinel", err: errors.Wrap(ErrDecryptionDenied, "user closed the prompt"), retryable: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.retryable, Retryable(tt.err))
		})
	}
}
