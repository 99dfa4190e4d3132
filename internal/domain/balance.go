package domain

import "github.com/shopspring/decimal"

// DefaultAssets the fixed set of supported asset symbols.
var DefaultAssets = []string{"ETH", "USDC", "DAI", "WBTC"}

// BalanceView read-only view of one asset's confidential balance as exposed
// to the presentation layer.
type BalanceView struct {
	// Symbol asset symbol.
	Symbol string `json:"symbol"`
	// HandlePresent an encrypted balance handle has been fetched.
	HandlePresent bool `json:"handle_present"`
	// Handle hex form of the ciphertext handle, empty when absent. The
	// handle itself is an opaque reference and not sensitive.
	Handle string `json:"handle,omitempty"`
	// Plaintext locally decrypted balance, nil until an explicit decrypt.
	Plaintext *decimal.Decimal `json:"plaintext,omitempty"`
}
