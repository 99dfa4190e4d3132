package clients

import (
	"context"
	"sync"
	"time"

	"github.com/bytedance/gopkg/lang/fastrand"
	"github.com/pkg/errors"

	"github.com/dexterlabs/dexter/internal/confidential"
	"github.com/dexterlabs/dexter/internal/domain"
)

const (
	simMinLatency = 200 * time.Millisecond
	simMaxLatency = 900 * time.Millisecond
)

// SimSubmitter confirms confidential transactions in paper mode after a
// jittered confirmation delay. A real submitter would broadcast the payload
// to the exchange contract instead.
type SimSubmitter struct {
	mu   sync.Mutex
	fail bool
}

// NewSimSubmitter creates the submitter.
func NewSimSubmitter() *SimSubmitter {
	return &SimSubmitter{}
}

// Fail makes subsequent submissions fail with SubmissionFailed.
func (s *SimSubmitter) Fail(fail bool) {
	s.mu.Lock()
	s.fail = fail
	s.mu.Unlock()
}

// Submit waits out the simulated confirmation latency and reports the
// outcome. Cancellation of ctx aborts the wait.
func (s *SimSubmitter) Submit(ctx context.Context, kind domain.TxKind, pair domain.Pair, payload *confidential.EncryptedInput) error {
	if payload == nil || len(payload.Handles) == 0 {
		return errors.Wrap(domain.ErrSubmissionFailed, "empty confidential payload")
	}

	jitter := time.Duration(fastrand.Uint32n(uint32(simMaxLatency - simMinLatency)))
	select {
	case <-ctx.Done():
		return errors.Wrap(domain.ErrProviderTimeout, "confirmation wait aborted")
	case <-time.After(simMinLatency + jitter):
	}

	s.mu.Lock()
	fail := s.fail
	s.mu.Unlock()
	if fail {
		return errors.Wrapf(domain.ErrSubmissionFailed, "%s reverted", kind)
	}
	return nil
}
