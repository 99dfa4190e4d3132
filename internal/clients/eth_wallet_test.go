package clients

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// well-known development key, never funded
const devKey = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

func TestNewEthWallet(t *testing.T) {
	wallet, err := NewEthWallet(devKey)
	require.NoError(t, err)
	assert.Equal(t, "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266", wallet.Address())

	// the 0x prefix is optional
	bare, err := NewEthWallet(devKey[2:])
	require.NoError(t, err)
	assert.Equal(t, wallet.Address(), bare.Address())

	address, err := wallet.RequestAccount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, wallet.Address(), address)
}

func TestNewEthWalletRejectsBadKey(t *testing.T) {
	_, err := NewEthWallet("not-a-key")
	require.Error(t, err)
}

func TestSignDecryptRequest(t *testing.T) {
	wallet, err := NewEthWallet(devKey)
	require.NoError(t, err)

	handle := []byte("ciphertext-handle")
	sig, err := wallet.SignDecryptRequest(handle)
	require.NoError(t, err)
	require.Len(t, sig, 65)

	// the signature recovers to the wallet's key
	msg := append([]byte("\x19Ethereum Signed Message:\n17"), handle...)
	pub, err := crypto.SigToPub(crypto.Keccak256(msg), sig)
	require.NoError(t, err)
	assert.Equal(t, wallet.Address(), crypto.PubkeyToAddress(*pub).Hex())
}
