// Package clients contains adapters for the external wallet, price oracle
// and confidential-computation services.
package clients

import (
	"context"
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
)

// EthWallet is a wallet provider backed by a local secp256k1 key. The
// account address is derived from the key; the signing capability produces
// personal-message signatures over decrypt requests.
type EthWallet struct {
	privateKey  *ecdsa.PrivateKey
	accountAddr string
}

// NewEthWallet derives the wallet from a hex-encoded private key.
func NewEthWallet(privateKeyHex string) (*EthWallet, error) {
	key := privateKeyHex
	if len(key) >= 2 && (key[:2] == "0x" || key[:2] == "0X") {
		key = key[2:]
	}

	privateKey, err := crypto.HexToECDSA(key)
	if err != nil {
		return nil, err
	}

	pub := privateKey.Public()
	pubECDSA, ok := pub.(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("error casting public key to ECDSA")
	}

	return &EthWallet{
		privateKey:  privateKey,
		accountAddr: crypto.PubkeyToAddress(*pubECDSA).Hex(),
	}, nil
}

// RequestAccount returns the derived account address.
func (w *EthWallet) RequestAccount(_ context.Context) (string, error) {
	return w.accountAddr, nil
}

// SignDecryptRequest signs the ciphertext handle with the wallet key,
// prefixed per EIP-191 so the signature cannot double as a transaction.
func (w *EthWallet) SignDecryptRequest(handle []byte) ([]byte, error) {
	msg := fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(handle), handle)
	digest := crypto.Keccak256([]byte(msg))
	return crypto.Sign(digest, w.privateKey)
}

// Address returns the derived account address.
func (w *EthWallet) Address() string {
	return w.accountAddr
}
