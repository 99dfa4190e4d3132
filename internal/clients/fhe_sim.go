package clients

import (
	"context"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/bytedance/gopkg/lang/fastrand"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/chacha20poly1305"

	"github.com/dexterlabs/dexter/internal/confidential"
	"github.com/dexterlabs/dexter/internal/domain"
)

// SimFHE is a simulated confidential-computation provider for paper mode.
// Balances are genuinely sealed with an AEAD so ciphertext handles are
// opaque blobs, and stale handles are rejected the way a real coprocessor
// rejects superseded ciphertext references.
type SimFHE struct {
	mu   sync.Mutex
	aead cipher.AEAD
	// balances by "asset|address", minted lazily
	balances map[string]decimal.Decimal
	// current handle per balance key; superseded handles expire
	current map[string]string
	// owner balance key per handle hex
	owners map[string]string

	denyDecrypt bool
}

// NewSimFHE creates the provider with a fresh session key.
func NewSimFHE() (*SimFHE, error) {
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, errors.Wrap(err, "generate simulation key")
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, errors.Wrap(err, "init AEAD")
	}
	return &SimFHE{
		aead:     aead,
		balances: make(map[string]decimal.Decimal),
		current:  make(map[string]string),
		owners:   make(map[string]string),
	}, nil
}

// DenyDecryption makes every UserDecrypt call fail with DecryptionDenied.
func (s *SimFHE) DenyDecryption(deny bool) {
	s.mu.Lock()
	s.denyDecrypt = deny
	s.mu.Unlock()
}

// EncryptedBalanceHandle seals the asset balance of the address and returns
// the handle. A previously issued handle for the same balance is superseded
// and will decrypt to HandleExpired from now on.
func (s *SimFHE) EncryptedBalanceHandle(_ context.Context, asset, address string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := asset + "|" + address
	balance, ok := s.balances[key]
	if !ok {
		// mint a plausible balance on first sight of the account
		balance = decimal.NewFromInt(int64(fastrand.Uint32n(1000000))).Div(decimal.NewFromInt(100))
		s.balances[key] = balance
	}

	handle, err := s.seal([]byte(balance.String()))
	if err != nil {
		return nil, err
	}

	hexHandle := hex.EncodeToString(handle)
	if prev, ok := s.current[key]; ok {
		delete(s.owners, prev)
	}
	s.current[key] = hexHandle
	s.owners[hexHandle] = key
	return handle, nil
}

// UserDecrypt opens the sealed balance behind a handle. The signature must
// be present; superseded handles fail with HandleExpired.
func (s *SimFHE) UserDecrypt(_ context.Context, handle []byte, address string, signature []byte) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.denyDecrypt || len(signature) == 0 {
		return decimal.Zero, errors.Wrap(domain.ErrDecryptionDenied, "signature rejected")
	}

	hexHandle := hex.EncodeToString(handle)
	key, ok := s.owners[hexHandle]
	if !ok || s.current[key] != hexHandle {
		return decimal.Zero, errors.Wrap(domain.ErrHandleExpired, "superseded ciphertext handle")
	}

	plain, err := s.open(handle)
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(string(plain))
}

// EncryptInput seals a transaction input value and fabricates the input
// proof a real coprocessor would return.
func (s *SimFHE) EncryptInput(_ context.Context, value decimal.Decimal, contract, address string) (*confidential.EncryptedInput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	bound := fmt.Sprintf("%s|%s|%s", value.String(), contract, address)
	handle, err := s.seal([]byte(bound))
	if err != nil {
		return nil, err
	}

	proof := make([]byte, 64)
	for i := range proof {
		proof[i] = byte(fastrand.Uint32n(256))
	}
	return &confidential.EncryptedInput{
		Handles: [][]byte{handle},
		Proof:   proof,
	}, nil
}

func (s *SimFHE) seal(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, errors.Wrap(err, "generate nonce")
	}
	return append(nonce, s.aead.Seal(nil, nonce, plaintext, nil)...), nil
}

func (s *SimFHE) open(handle []byte) ([]byte, error) {
	if len(handle) < s.aead.NonceSize() {
		return nil, errors.New("malformed ciphertext handle")
	}
	nonce, ct := handle[:s.aead.NonceSize()], handle[s.aead.NonceSize():]
	plain, err := s.aead.Open(nil, nonce, ct, nil)
	if err != nil {
		return nil, errors.Wrap(err, "open ciphertext")
	}
	return plain, nil
}
