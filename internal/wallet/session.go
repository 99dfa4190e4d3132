// Package wallet owns the wallet session: connection state, address and the
// lifecycle of per-asset encrypted balance handles.
package wallet

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/dexterlabs/dexter/internal/confidential"
	"github.com/dexterlabs/dexter/internal/domain"
	"github.com/dexterlabs/dexter/pkg/retrier"
)

// Provider is the external wallet. It hands out the account address and the
// signing capability used by the user-decryption protocol.
type Provider interface {
	RequestAccount(ctx context.Context) (string, error)
	SignDecryptRequest(handle []byte) ([]byte, error)
}

// Session tracks wallet connection state. Only the session mutates
// connection status and address; every other component reads them.
type Session struct {
	mu        sync.RWMutex
	connected bool
	address   string
	epoch     uint64

	provider Provider
	fhe      confidential.Provider
	store    *confidential.Store
	assets   []string
	timeout  time.Duration
	retry    *retrier.Retrier
	l        *zap.Logger
}

// NewSession creates a disconnected session.
func NewSession(provider Provider, fhe confidential.Provider, store *confidential.Store,
	assets []string, timeout time.Duration, l *zap.Logger) *Session {
	return &Session{
		provider: provider,
		fhe:      fhe,
		store:    store,
		assets:   assets,
		timeout:  timeout,
		retry: retrier.New(
			retrier.WithMaxRetries(2),
			retrier.WithInitialInterval(500*time.Millisecond),
			retrier.WithRetryIf(domain.Retryable),
		),
		l: l,
	}
}

// Connect requests an account from the wallet provider and fetches one
// encrypted balance handle per supported asset. All-or-nothing: a provider
// failure mid-fetch rolls the session back to disconnected, no partial
// balance state is left behind.
func (s *Session) Connect(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	// transient provider failures are retried with backoff, a rejection
	// from the user is not
	address, err := retrier.DoWithData(s.retry, ctx, func(ctx context.Context) (string, error) {
		return s.provider.RequestAccount(ctx)
	})
	if err != nil {
		if ctx.Err() != nil {
			return "", errors.Wrap(domain.ErrProviderTimeout, "wallet account request")
		}
		return "", err
	}

	for _, asset := range s.assets {
		handle, err := s.fhe.EncryptedBalanceHandle(ctx, asset, address)
		if err != nil {
			s.store.Clear()
			if ctx.Err() != nil {
				return "", errors.Wrapf(domain.ErrProviderTimeout, "balance handle for %s", asset)
			}
			return "", errors.Wrapf(err, "fetch balance handle for %s", asset)
		}
		if err := s.store.SetHandle(asset, handle); err != nil {
			s.store.Clear()
			return "", err
		}
	}
	s.store.Bind(address, s.provider)

	s.mu.Lock()
	s.connected = true
	s.address = address
	s.mu.Unlock()

	s.l.Info("wallet connected",
		zap.String("address", address),
		zap.Int("assets", len(s.assets)))
	return address, nil
}

// Disconnect clears the address and all balance state. Idempotent. Bumps
// the session epoch so completions of calls issued before the disconnect
// are discarded instead of applied.
func (s *Session) Disconnect() {
	s.mu.Lock()
	wasConnected := s.connected
	s.connected = false
	s.address = ""
	s.epoch++
	s.mu.Unlock()

	s.store.Clear()
	if wasConnected {
		s.l.Info("wallet disconnected")
	}
}

// Connected reports the connection status.
func (s *Session) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

// Address returns the connected account address, empty when disconnected.
func (s *Session) Address() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.address
}

// Epoch returns the current session epoch. An asynchronous completion must
// compare the epoch it captured at submission time against the current one
// and discard itself on mismatch.
func (s *Session) Epoch() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.epoch
}
