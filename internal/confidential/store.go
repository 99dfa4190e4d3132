package confidential

import (
	"context"
	"encoding/hex"
	"sort"
	"sync"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/dexterlabs/dexter/internal/domain"
)

type balanceEntry struct {
	mu        sync.Mutex
	handle    []byte
	plaintext *decimal.Decimal
}

// Store holds per-asset ciphertext handles and locally decrypted plaintext
// values. Decryption is explicit and at-most-once per (session, handle);
// rendering must never trigger it. Decrypts of different assets may run
// concurrently, entries are locked independently.
type Store struct {
	mu       sync.RWMutex
	entries  map[string]*balanceEntry
	address  string
	signer   Signer
	provider Provider
	l        *zap.Logger
}

// NewStore creates a store for the given asset set.
func NewStore(provider Provider, assets []string, l *zap.Logger) *Store {
	entries := make(map[string]*balanceEntry, len(assets))
	for _, symbol := range assets {
		entries[symbol] = &balanceEntry{}
	}
	return &Store{entries: entries, provider: provider, l: l}
}

// Bind attaches the connected session's address and signing capability.
// Called by the wallet session on connect.
func (s *Store) Bind(address string, signer Signer) {
	s.mu.Lock()
	s.address = address
	s.signer = signer
	s.mu.Unlock()
}

// SetHandle stores a fetched ciphertext handle for the asset.
func (s *Store) SetHandle(symbol string, handle []byte) error {
	entry, err := s.entry(symbol)
	if err != nil {
		return err
	}
	entry.mu.Lock()
	entry.handle = handle
	entry.plaintext = nil
	entry.mu.Unlock()
	return nil
}

// Clear drops every handle, every plaintext and the session binding.
// Idempotent; called on disconnect so decryption state never survives it.
func (s *Store) Clear() {
	s.mu.Lock()
	s.address = ""
	s.signer = nil
	s.mu.Unlock()
	for _, entry := range s.entries {
		entry.mu.Lock()
		entry.handle = nil
		entry.plaintext = nil
		entry.mu.Unlock()
	}
}

// Invalidate drops handle and plaintext for the given assets. Used after a
// balance-affecting transaction so a stale handle is never decrypted.
func (s *Store) Invalidate(symbols ...string) {
	for _, symbol := range symbols {
		entry, err := s.entry(symbol)
		if err != nil {
			continue
		}
		entry.mu.Lock()
		entry.handle = nil
		entry.plaintext = nil
		entry.mu.Unlock()
	}
}

// Refresh re-fetches the ciphertext handle for an asset from the provider.
func (s *Store) Refresh(ctx context.Context, symbol string) error {
	s.mu.RLock()
	address := s.address
	s.mu.RUnlock()
	if address == "" {
		return domain.ErrNotConnected
	}

	handle, err := s.provider.EncryptedBalanceHandle(ctx, symbol, address)
	if err != nil {
		return errors.Wrapf(err, "refresh handle for %s", symbol)
	}
	return s.SetHandle(symbol, handle)
}

// Decrypt runs the user-decryption protocol for one asset and caches the
// plaintext. Preconditions: session bound, handle present, not yet
// decrypted. A stale handle is transparently re-fetched and the decrypt
// retried once; a second failure is returned to the caller.
func (s *Store) Decrypt(ctx context.Context, symbol string) (decimal.Decimal, error) {
	s.mu.RLock()
	address, signer := s.address, s.signer
	s.mu.RUnlock()
	if address == "" || signer == nil {
		return decimal.Zero, domain.ErrNotConnected
	}

	entry, err := s.entry(symbol)
	if err != nil {
		return decimal.Zero, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.plaintext != nil {
		return decimal.Zero, errors.Wrapf(domain.ErrAlreadyDecrypted, "asset %s", symbol)
	}
	if entry.handle == nil {
		// handle was invalidated by a balance-changing transaction,
		// fetch a fresh one before decrypting
		handle, err := s.provider.EncryptedBalanceHandle(ctx, symbol, address)
		if err != nil {
			return decimal.Zero, errors.Wrapf(err, "re-fetch handle for %s", symbol)
		}
		entry.handle = handle
	}

	value, err := s.userDecrypt(ctx, entry.handle, address, signer)
	if errors.Is(err, domain.ErrHandleExpired) {
		s.l.Info("ciphertext handle expired, re-fetching",
			zap.String("asset", symbol),
			zap.String("address", address))
		handle, refreshErr := s.provider.EncryptedBalanceHandle(ctx, symbol, address)
		if refreshErr != nil {
			return decimal.Zero, errors.Wrapf(refreshErr, "re-fetch handle for %s", symbol)
		}
		entry.handle = handle
		value, err = s.userDecrypt(ctx, entry.handle, address, signer)
	}
	if err != nil {
		return decimal.Zero, err
	}

	entry.plaintext = &value
	s.l.Info("balance decrypted", zap.String("asset", symbol))
	return value, nil
}

func (s *Store) userDecrypt(ctx context.Context, handle []byte, address string, signer Signer) (decimal.Decimal, error) {
	signature, err := signer.SignDecryptRequest(handle)
	if err != nil {
		return decimal.Zero, errors.Wrap(domain.ErrDecryptionDenied, err.Error())
	}
	value, err := s.provider.UserDecrypt(ctx, handle, address, signature)
	if err != nil {
		if ctx.Err() != nil {
			return decimal.Zero, errors.Wrap(domain.ErrProviderTimeout, err.Error())
		}
		return decimal.Zero, err
	}
	return value, nil
}

// Plaintext returns the decrypted value for an asset, nil when not
// decrypted in this session.
func (s *Store) Plaintext(symbol string) *decimal.Decimal {
	entry, err := s.entry(symbol)
	if err != nil {
		return nil
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.plaintext == nil {
		return nil
	}
	v := *entry.plaintext
	return &v
}

// Views returns the presentation snapshot of every asset balance, sorted by
// symbol.
func (s *Store) Views() []domain.BalanceView {
	views := make([]domain.BalanceView, 0, len(s.entries))
	for symbol, entry := range s.entries {
		entry.mu.Lock()
		view := domain.BalanceView{
			Symbol:        symbol,
			HandlePresent: entry.handle != nil,
		}
		if entry.handle != nil {
			view.Handle = "0x" + hex.EncodeToString(entry.handle)
		}
		if entry.plaintext != nil {
			v := *entry.plaintext
			view.Plaintext = &v
		}
		entry.mu.Unlock()
		views = append(views, view)
	}
	sort.Slice(views, func(i, j int) bool { return views[i].Symbol < views[j].Symbol })
	return views
}

func (s *Store) entry(symbol string) (*balanceEntry, error) {
	entry, ok := s.entries[symbol]
	if !ok {
		return nil, errors.Wrapf(domain.ErrUnknownAsset, "asset %s", symbol)
	}
	return entry, nil
}
