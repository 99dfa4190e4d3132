// Package confidential manages encrypted balance handles and local
// decryption against an external confidential-computation provider.
package confidential

import (
	"context"

	"github.com/shopspring/decimal"
)

// EncryptedInput ciphertext handles plus zero-knowledge proof for a
// confidential transaction payload.
type EncryptedInput struct {
	// Handles opaque references to the encrypted inputs.
	Handles [][]byte
	// Proof input proof binding the handles to the contract and user.
	Proof []byte
}

// Provider is the external confidential-computation service holding
// FHE-encrypted balances. All calls are asynchronous and may fail; the
// store maps provider failures onto the domain error taxonomy.
type Provider interface {
	// EncryptedBalanceHandle fetches the opaque ciphertext handle for an
	// asset balance of the given address.
	EncryptedBalanceHandle(ctx context.Context, asset, address string) ([]byte, error)
	// UserDecrypt runs the user-decryption protocol for a handle. The
	// signature proves the caller controls the address.
	UserDecrypt(ctx context.Context, handle []byte, address string, signature []byte) (decimal.Decimal, error)
	// EncryptInput encrypts a transaction input value for the contract.
	EncryptInput(ctx context.Context, value decimal.Decimal, contract, address string) (*EncryptedInput, error)
}

// Signer produces the signing capability consumed by UserDecrypt.
type Signer interface {
	SignDecryptRequest(handle []byte) ([]byte, error)
}
