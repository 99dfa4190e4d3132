// Package ledger persists the append-only transaction log in a WAL.
package ledger

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/gowal"
	"go.uber.org/zap"

	"github.com/dexterlabs/dexter/internal/domain"
)

const (
	// DefaultDir default WAL location for the transaction log.
	DefaultDir = "./wal/transactions"

	segmentThreshold = 1000
	maxSegments      = 100

	txKeyPrefix = "tx_"
)

// Log is the append-only, WAL-backed transaction log. Entries are never
// deleted; status updates rewrite the entry under the same key. Insertion
// order is the log invariant, newest-first ordering is a presentation
// concern served by Recent.
type Log struct {
	mu      sync.RWMutex
	wal     *gowal.Wal
	entries []domain.Transaction
	byID    map[uint64]int
	nextID  uint64
	l       *zap.Logger
}

// NewLog opens the WAL in dir and replays it.
func NewLog(dir string, l *zap.Logger) (*Log, error) {
	if dir == "" {
		dir = DefaultDir
	}

	cfg := gowal.Config{
		Dir:              dir,
		Prefix:           "tx_",
		SegmentThreshold: segmentThreshold,
		MaxSegments:      maxSegments,
		IsInSyncDiskMode: true,
	}

	wal, err := gowal.NewWAL(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "init transaction WAL")
	}

	log := &Log{
		wal:    wal,
		byID:   make(map[uint64]int),
		nextID: 1,
		l:      l,
	}

	for msg := range wal.Iterator() {
		if !strings.HasPrefix(msg.Key, txKeyPrefix) {
			continue
		}
		var tx domain.Transaction
		if err := json.Unmarshal(msg.Value, &tx); err != nil {
			l.Error("failed to unmarshal transaction from WAL",
				zap.String("key", msg.Key), zap.Error(err))
			continue
		}
		log.applyReplayed(tx)
	}

	return log, nil
}

// applyReplayed merges one WAL record into memory. Later records for the
// same id overwrite earlier ones (status transitions), first occurrence
// fixes the insertion position.
func (t *Log) applyReplayed(tx domain.Transaction) {
	if idx, ok := t.byID[tx.ID]; ok {
		t.entries[idx] = tx
	} else {
		t.byID[tx.ID] = len(t.entries)
		t.entries = append(t.entries, tx)
	}
	if tx.ID >= t.nextID {
		t.nextID = tx.ID + 1
	}
}

// Seed pre-populates an empty log with historical entries. New ids are
// always assigned above the seeded range. No-op when the log already holds
// entries.
func (t *Log) Seed(history []domain.Transaction) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.entries) > 0 {
		return nil
	}
	for _, tx := range history {
		if err := t.persist(tx); err != nil {
			return err
		}
		t.applyReplayed(tx)
	}
	return nil
}

// Record appends a pending transaction, assigns the next id and captures
// the submission timestamp.
func (t *Log) Record(kind domain.TxKind, from, to string, amount, minReceive decimal.Decimal, confidential bool) (domain.Transaction, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	tx := domain.Transaction{
		ID:           t.nextID,
		Kind:         kind,
		From:         from,
		To:           to,
		Amount:       amount,
		MinReceive:   minReceive,
		Time:         time.Now(),
		Status:       domain.TxStatusPending,
		Confidential: confidential,
	}
	if err := t.persist(tx); err != nil {
		return domain.Transaction{}, err
	}

	t.byID[tx.ID] = len(t.entries)
	t.entries = append(t.entries, tx)
	t.nextID++

	t.l.Info("transaction recorded",
		zap.Uint64("id", tx.ID),
		zap.String("kind", tx.Kind.String()),
		zap.String("pair", fmt.Sprintf("%s/%s", from, to)),
		zap.String("amount", amount.String()))
	return tx, nil
}

// MarkCompleted transitions a pending transaction to completed. Unknown ids
// are a silent no-op: completion notifications may race with external
// confirmation sources and the log never raises on them.
func (t *Log) MarkCompleted(id uint64) {
	t.setStatus(id, domain.TxStatusCompleted)
}

// MarkFailed transitions a pending transaction to failed. Unknown ids are a
// silent no-op.
func (t *Log) MarkFailed(id uint64) {
	t.setStatus(id, domain.TxStatusFailed)
}

func (t *Log) setStatus(id uint64, status domain.TxStatus) {
	t.mu.Lock()
	defer t.mu.Unlock()

	idx, ok := t.byID[id]
	if !ok {
		return
	}
	tx := t.entries[idx]
	tx.Status = status
	if err := t.persist(tx); err != nil {
		t.l.Error("failed to persist status transition",
			zap.Uint64("id", id), zap.Error(err))
	}
	t.entries[idx] = tx
}

// Filter returns entries of the given kind in insertion order. The literal
// "all" (or empty string) returns everything.
func (t *Log) Filter(kind string) []domain.Transaction {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]domain.Transaction, 0, len(t.entries))
	for _, tx := range t.entries {
		if kind == "" || kind == "all" || tx.Kind.String() == kind {
			out = append(out, tx)
		}
	}
	return out
}

// Recent returns entries of the given kind newest-first for the history
// panel. The literal "all" (or empty string) returns everything.
func (t *Log) Recent(kind string) []domain.Transaction {
	out := t.Filter(kind)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time.After(out[j].Time) })
	return out
}

// Get returns the entry with the given id.
func (t *Log) Get(id uint64) (domain.Transaction, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	idx, ok := t.byID[id]
	if !ok {
		return domain.Transaction{}, false
	}
	return t.entries[idx], true
}

// Close closes the underlying WAL.
func (t *Log) Close() error {
	return t.wal.Close()
}

// persist writes one entry to the WAL. Callers hold the write lock.
func (t *Log) persist(tx domain.Transaction) error {
	payload, err := json.Marshal(tx)
	if err != nil {
		return errors.Wrap(err, "marshal transaction")
	}
	key := fmt.Sprintf("%s%d", txKeyPrefix, tx.ID)
	nextIndex := t.wal.CurrentIndex() + 1
	return errors.Wrap(t.wal.Write(nextIndex, key, payload), "write transaction to WAL")
}
