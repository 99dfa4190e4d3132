// Package engine orchestrates user actions across the wallet session,
// encrypted value store, quote engine, transaction log and view state.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/bytedance/gopkg/util/gopool"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/dexterlabs/dexter/internal/confidential"
	"github.com/dexterlabs/dexter/internal/domain"
	"github.com/dexterlabs/dexter/internal/ledger"
	"github.com/dexterlabs/dexter/internal/quote"
	"github.com/dexterlabs/dexter/internal/view"
	"github.com/dexterlabs/dexter/internal/wallet"
)

// Submitter executes a confidential transaction against the chain layer.
type Submitter interface {
	Submit(ctx context.Context, kind domain.TxKind, pair domain.Pair, payload *confidential.EncryptedInput) error
}

// PoolRegistry receives newly created pools.
type PoolRegistry interface {
	AddPool(pair domain.Pair, feeTierBps int, amountA, amountB decimal.Decimal)
}

// Event one notification for the presentation layer. Error events map to
// dismissible notifications; completion events refresh the history panel.
type Event struct {
	// ID unique event id, the SSE id field so clients can dedupe on
	// reconnect.
	ID      string    `json:"id"`
	Type    string    `json:"type"`
	TxID    uint64    `json:"tx_id,omitempty"`
	Message string    `json:"message,omitempty"`
	Time    time.Time `json:"time"`
}

const (
	EventTxCompleted = "tx_completed"
	EventTxFailed    = "tx_failed"
)

// Engine dispatches user actions. Submissions run a linear machine per
// form: idle, submitting, then back to idle on both outcomes. Completions
// are applied on a worker pool and checked against the session epoch so a
// disconnect mid-flight discards their effect instead of applying it.
type Engine struct {
	session   *wallet.Session
	store     *confidential.Store
	quotes    *quote.Engine
	log       *ledger.Log
	views     *view.Controller
	submitter Submitter
	pools     PoolRegistry
	fhe       confidential.Provider
	contract  string
	timeout   time.Duration
	events    chan Event
	l         *zap.Logger
}

// Config wires an Engine.
type Config struct {
	Session   *wallet.Session
	Store     *confidential.Store
	Quotes    *quote.Engine
	Log       *ledger.Log
	Views     *view.Controller
	Submitter Submitter
	Pools     PoolRegistry
	FHE       confidential.Provider
	// Contract address of the exchange contract payloads are bound to.
	Contract string
	// Timeout per provider call.
	Timeout time.Duration
	Logger  *zap.Logger
}

// New creates an Engine.
func New(cfg Config) *Engine {
	return &Engine{
		session:   cfg.Session,
		store:     cfg.Store,
		quotes:    cfg.Quotes,
		log:       cfg.Log,
		views:     cfg.Views,
		submitter: cfg.Submitter,
		pools:     cfg.Pools,
		fhe:       cfg.FHE,
		contract:  cfg.Contract,
		timeout:   cfg.Timeout,
		events:    make(chan Event, 64),
		l:         cfg.Logger,
	}
}

// Events returns the notification stream.
func (e *Engine) Events() <-chan Event {
	return e.events
}

// SubmitSwap validates, quotes, encrypts and records a swap, then completes
// it asynchronously. The returned transaction is pending. The swap form is
// disabled for the duration of the in-flight request and re-enabled on both
// outcomes; on failure the amount draft is preserved, on success cleared.
func (e *Engine) SubmitSwap(ctx context.Context, order domain.SwapOrder) (domain.Transaction, error) {
	if !e.session.Connected() {
		return domain.Transaction{}, domain.ErrNotConnected
	}
	if !order.Input.IsPositive() {
		return domain.Transaction{}, errors.New("nothing to trade: input amount must be positive")
	}

	output, err := e.quotes.Estimate(ctx, order)
	if err != nil {
		return domain.Transaction{}, err
	}
	minReceive := output
	if order.Kind == domain.OrderKindMarket {
		minReceive = quote.MinReceiveAfterSlippage(output, order.SlippageBps)
	}

	if err := e.views.BeginSubmission(view.FormSwap); err != nil {
		return domain.Transaction{}, err
	}
	e.views.SetDraft(view.FormSwap, order.Input.String())

	tx, err := e.submit(ctx, view.FormSwap, domain.TxKindSwap, order.Pair, order.Input, minReceive, nil)
	if err != nil {
		e.views.EndSubmission(view.FormSwap)
		return domain.Transaction{}, err
	}
	return tx, nil
}

// SubmitLiquidity records a liquidity addition for an existing pool.
func (e *Engine) SubmitLiquidity(ctx context.Context, req domain.LiquidityRequest) (domain.Transaction, error) {
	if !e.session.Connected() {
		return domain.Transaction{}, domain.ErrNotConnected
	}
	if !req.AmountA.IsPositive() || !req.AmountB.IsPositive() {
		return domain.Transaction{}, errors.New("both liquidity amounts must be positive")
	}

	if err := e.views.BeginSubmission(view.FormLiquidity); err != nil {
		return domain.Transaction{}, err
	}
	e.views.SetDraft(view.FormLiquidity, req.AmountA.String())

	pair := domain.Pair{From: req.AssetA, To: req.AssetB}
	tx, err := e.submit(ctx, view.FormLiquidity, domain.TxKindAddLiquidity, pair, req.AmountA, req.AmountB, nil)
	if err != nil {
		e.views.EndSubmission(view.FormLiquidity)
		return domain.Transaction{}, err
	}
	return tx, nil
}

// CreatePool records a pool creation with initial liquidity and registers
// the pool on completion.
func (e *Engine) CreatePool(ctx context.Context, req domain.LiquidityRequest) (domain.Transaction, error) {
	if !e.session.Connected() {
		return domain.Transaction{}, domain.ErrNotConnected
	}
	if !req.AmountA.IsPositive() || !req.AmountB.IsPositive() {
		return domain.Transaction{}, errors.New("both initial amounts must be positive")
	}
	if !domain.ValidFeeTier(req.FeeTierBps) {
		return domain.Transaction{}, errors.Errorf("unsupported fee tier: %d bps", req.FeeTierBps)
	}

	if err := e.views.BeginSubmission(view.FormCreatePool); err != nil {
		return domain.Transaction{}, err
	}

	pair := domain.Pair{From: req.AssetA, To: req.AssetB}
	tx, err := e.submit(ctx, view.FormCreatePool, domain.TxKindCreatePool, pair, req.AmountA, req.AmountB, func() {
		if e.pools != nil {
			e.pools.AddPool(pair, req.FeeTierBps, req.AmountA, req.AmountB)
		}
	})
	if err != nil {
		e.views.EndSubmission(view.FormCreatePool)
		return domain.Transaction{}, err
	}

	e.views.CloseOverlay()
	return tx, nil
}

// submit encrypts the payload, records the pending entry and schedules the
// asynchronous completion. Callers have already moved the form to
// submitting and roll it back when submit returns an error.
func (e *Engine) submit(ctx context.Context, form view.Form, kind domain.TxKind, pair domain.Pair, amount, minReceive decimal.Decimal, onSuccess func()) (domain.Transaction, error) {
	// captured before the provider calls: a disconnect landing anywhere
	// after this point invalidates the completion
	epoch := e.session.Epoch()

	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	payload, err := e.fhe.EncryptInput(callCtx, amount, e.contract, e.session.Address())
	if err != nil {
		if callCtx.Err() != nil {
			return domain.Transaction{}, errors.Wrap(domain.ErrProviderTimeout, "encrypt transaction input")
		}
		return domain.Transaction{}, errors.Wrap(err, "encrypt transaction input")
	}

	tx, err := e.log.Record(kind, pair.From, pair.To, amount, minReceive, true)
	if err != nil {
		return domain.Transaction{}, err
	}

	gopool.Go(func() {
		e.complete(form, tx, pair, payload, epoch, onSuccess)
	})
	return tx, nil
}

// complete runs the chain submission and applies its outcome. A completion
// whose epoch no longer matches the session is discarded: the disconnect
// already cleared the state the completion would have touched.
func (e *Engine) complete(form view.Form, tx domain.Transaction, pair domain.Pair, payload *confidential.EncryptedInput, epoch uint64, onSuccess func()) {
	defer e.views.EndSubmission(form)

	ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
	defer cancel()

	err := e.submitter.Submit(ctx, tx.Kind, pair, payload)

	if e.session.Epoch() != epoch {
		e.l.Info("discarding completion after disconnect",
			zap.Uint64("tx_id", tx.ID),
			zap.String("kind", tx.Kind.String()))
		return
	}

	if err != nil {
		e.log.MarkFailed(tx.ID)
		e.notify(Event{
			Type:    EventTxFailed,
			TxID:    tx.ID,
			Message: fmt.Sprintf("%s failed: %v", tx.Kind, err),
			Time:    time.Now(),
		})
		e.l.Warn("submission failed",
			zap.Uint64("tx_id", tx.ID),
			zap.String("kind", tx.Kind.String()),
			zap.Error(err))
		return
	}

	e.log.MarkCompleted(tx.ID)
	// the balances of both sides changed on chain, their handles are stale
	e.store.Invalidate(pair.From, pair.To)
	e.views.ClearDraft(form)
	if onSuccess != nil {
		onSuccess()
	}
	e.notify(Event{
		Type: EventTxCompleted,
		TxID: tx.ID,
		Time: time.Now(),
	})
	e.l.Info("submission completed",
		zap.Uint64("tx_id", tx.ID),
		zap.String("kind", tx.Kind.String()),
		zap.String("pair", pair.String()))
}

// notify pushes an event without blocking; the stream is best-effort.
func (e *Engine) notify(ev Event) {
	ev.ID = uuid.NewString()
	select {
	case e.events <- ev:
	default:
	}
}
