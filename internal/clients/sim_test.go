package clients

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dexterlabs/dexter/internal/confidential"
	"github.com/dexterlabs/dexter/internal/domain"
)

func TestSimFHEHandleRoundTrip(t *testing.T) {
	fhe, err := NewSimFHE()
	require.NoError(t, err)
	ctx := context.Background()

	handle, err := fhe.EncryptedBalanceHandle(ctx, "ETH", "0xabc")
	require.NoError(t, err)
	require.NotEmpty(t, handle)

	value, err := fhe.UserDecrypt(ctx, handle, "0xabc", []byte("signature"))
	require.NoError(t, err)
	assert.True(t, value.GreaterThanOrEqual(decimal.Zero))

	// the minted balance is stable across handle fetches
	again, err := fhe.EncryptedBalanceHandle(ctx, "ETH", "0xabc")
	require.NoError(t, err)
	value2, err := fhe.UserDecrypt(ctx, again, "0xabc", []byte("signature"))
	require.NoError(t, err)
	assert.True(t, value.Equal(value2))
}

func TestSimFHESupersededHandleExpires(t *testing.T) {
	fhe, err := NewSimFHE()
	require.NoError(t, err)
	ctx := context.Background()

	stale, err := fhe.EncryptedBalanceHandle(ctx, "ETH", "0xabc")
	require.NoError(t, err)
	fresh, err := fhe.EncryptedBalanceHandle(ctx, "ETH", "0xabc")
	require.NoError(t, err)

	_, err = fhe.UserDecrypt(ctx, stale, "0xabc", []byte("signature"))
	require.ErrorIs(t, err, domain.ErrHandleExpired)

	_, err = fhe.UserDecrypt(ctx, fresh, "0xabc", []byte("signature"))
	require.NoError(t, err)
}

func TestSimFHEDecryptDenied(t *testing.T) {
	fhe, err := NewSimFHE()
	require.NoError(t, err)
	ctx := context.Background()

	handle, err := fhe.EncryptedBalanceHandle(ctx, "ETH", "0xabc")
	require.NoError(t, err)

	// an empty signature never opens a handle
	_, err = fhe.UserDecrypt(ctx, handle, "0xabc", nil)
	require.ErrorIs(t, err, domain.ErrDecryptionDenied)

	fhe.DenyDecryption(true)
	_, err = fhe.UserDecrypt(ctx, handle, "0xabc", []byte("signature"))
	require.ErrorIs(t, err, domain.ErrDecryptionDenied)

	fhe.DenyDecryption(false)
	_, err = fhe.UserDecrypt(ctx, handle, "0xabc", []byte("signature"))
	require.NoError(t, err)
}

func TestSimFHEEncryptInput(t *testing.T) {
	fhe, err := NewSimFHE()
	require.NoError(t, err)

	payload, err := fhe.EncryptInput(context.Background(), decimal.RequireFromString("1.5"),
		"0x1111111111111111111111111111111111111111", "0xabc")
	require.NoError(t, err)
	require.Len(t, payload.Handles, 1)
	assert.NotEmpty(t, payload.Handles[0])
	assert.Len(t, payload.Proof, 64)
	// the amount never appears in the clear
	assert.NotContains(t, string(payload.Handles[0]), "1.5")
}

func TestSimWallet(t *testing.T) {
	wallet := NewSimWallet()
	ctx := context.Background()

	address, err := wallet.RequestAccount(ctx)
	require.NoError(t, err)
	assert.Len(t, address, 42)
	assert.Equal(t, "0x", address[:2])

	wallet.Reject(true)
	_, err = wallet.RequestAccount(ctx)
	require.ErrorIs(t, err, domain.ErrConnectionRejected)
	wallet.Reject(false)

	wallet.Offline(true)
	_, err = wallet.RequestAccount(ctx)
	require.ErrorIs(t, err, domain.ErrProviderUnavailable)
	wallet.Offline(false)

	again, err := wallet.RequestAccount(ctx)
	require.NoError(t, err)
	assert.Equal(t, address, again)

	sig, err := wallet.SignDecryptRequest([]byte("handle"))
	require.NoError(t, err)
	assert.Len(t, sig, 65)
}

func TestSimSubmitter(t *testing.T) {
	submitter := NewSimSubmitter()
	pair := domain.Pair{From: "ETH", To: "USDC"}
	payload := testPayload(t)

	require.NoError(t, submitter.Submit(context.Background(), domain.TxKindSwap, pair, payload))

	submitter.Fail(true)
	err := submitter.Submit(context.Background(), domain.TxKindSwap, pair, payload)
	require.ErrorIs(t, err, domain.ErrSubmissionFailed)
}

func TestSimSubmitterRejectsEmptyPayload(t *testing.T) {
	submitter := NewSimSubmitter()

	err := submitter.Submit(context.Background(), domain.TxKindSwap, domain.Pair{From: "ETH", To: "USDC"}, nil)
	require.ErrorIs(t, err, domain.ErrSubmissionFailed)
}

func TestSimSubmitterHonorsCancellation(t *testing.T) {
	submitter := NewSimSubmitter()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := submitter.Submit(ctx, domain.TxKindSwap, domain.Pair{From: "ETH", To: "USDC"}, testPayload(t))
	require.ErrorIs(t, err, domain.ErrProviderTimeout)
}

func TestStaticPricer(t *testing.T) {
	pricer := NewStaticPricer(map[string]decimal.Decimal{
		"ETH_USDC": decimal.NewFromInt(2000),
	})
	ctx := context.Background()

	rate, err := pricer.GetPrice(ctx, domain.Pair{From: "ETH", To: "USDC"})
	require.NoError(t, err)
	assert.Equal(t, "2000", rate.String())

	// the reversed pair is served with the inverse rate
	inverse, err := pricer.GetPrice(ctx, domain.Pair{From: "USDC", To: "ETH"})
	require.NoError(t, err)
	assert.Equal(t, "0.0005", inverse.String())

	_, err = pricer.GetPrice(ctx, domain.Pair{From: "DOGE", To: "ETH"})
	require.Error(t, err)
}

func testPayload(t *testing.T) *confidential.EncryptedInput {
	t.Helper()
	fhe, err := NewSimFHE()
	require.NoError(t, err)
	payload, err := fhe.EncryptInput(context.Background(), decimal.NewFromInt(1),
		"0x1111111111111111111111111111111111111111", "0xabc")
	require.NoError(t, err)
	return payload
}
