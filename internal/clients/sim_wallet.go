package clients

import (
	"context"
	"encoding/hex"
	"sync"

	"github.com/bytedance/gopkg/lang/fastrand"
	"github.com/pkg/errors"

	"github.com/dexterlabs/dexter/internal/domain"
)

// SimWallet is a wallet provider for paper mode. It hands out a random
// account on connect and can be told to reject requests, which is how the
// rejection path is exercised without a browser extension.
type SimWallet struct {
	mu      sync.Mutex
	address string
	reject  bool
	offline bool
}

// NewSimWallet creates the wallet with a random account address.
func NewSimWallet() *SimWallet {
	raw := make([]byte, 20)
	for i := range raw {
		raw[i] = byte(fastrand.Uint32n(256))
	}
	return &SimWallet{address: "0x" + hex.EncodeToString(raw)}
}

// Reject makes subsequent account requests fail with ConnectionRejected.
func (w *SimWallet) Reject(reject bool) {
	w.mu.Lock()
	w.reject = reject
	w.mu.Unlock()
}

// Offline makes subsequent account requests fail with ProviderUnavailable.
func (w *SimWallet) Offline(offline bool) {
	w.mu.Lock()
	w.offline = offline
	w.mu.Unlock()
}

// RequestAccount returns the wallet's account address.
func (w *SimWallet) RequestAccount(_ context.Context) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.offline {
		return "", errors.Wrap(domain.ErrProviderUnavailable, "no wallet provider reachable")
	}
	if w.reject {
		return "", errors.Wrap(domain.ErrConnectionRejected, "user denied account access")
	}
	return w.address, nil
}

// SignDecryptRequest produces a stand-in signature over the handle.
func (w *SimWallet) SignDecryptRequest(handle []byte) ([]byte, error) {
	sig := make([]byte, 65)
	for i := range sig {
		sig[i] = byte(fastrand.Uint32n(256))
	}
	return sig, nil
}
