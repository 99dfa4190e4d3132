package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dexterlabs/dexter/internal/confidential"
	"github.com/dexterlabs/dexter/internal/domain"
	"github.com/dexterlabs/dexter/internal/ledger"
	"github.com/dexterlabs/dexter/internal/quote"
	"github.com/dexterlabs/dexter/internal/view"
	"github.com/dexterlabs/dexter/internal/wallet"
)

type mockWallet struct{}

func (m *mockWallet) RequestAccount(ctx context.Context) (string, error) {
	return "0xf39fd6e51aad88f6f4ce6ab8827279cfffb92266", nil
}

func (m *mockWallet) SignDecryptRequest(handle []byte) ([]byte, error) {
	return []byte("signature"), nil
}

type mockFHE struct {
	// onEncrypt runs inside EncryptInput, lets a test interleave session
	// changes with an in-progress submission
	onEncrypt func()
}

func (m *mockFHE) EncryptedBalanceHandle(ctx context.Context, asset, address string) ([]byte, error) {
	return []byte("handle-" + asset), nil
}

func (m *mockFHE) UserDecrypt(ctx context.Context, handle []byte, address string, signature []byte) (decimal.Decimal, error) {
	return decimal.NewFromInt(100), nil
}

func (m *mockFHE) EncryptInput(ctx context.Context, value decimal.Decimal, contract, address string) (*confidential.EncryptedInput, error) {
	if m.onEncrypt != nil {
		m.onEncrypt()
	}
	return &confidential.EncryptedInput{Handles: [][]byte{[]byte("input")}, Proof: []byte("proof")}, nil
}

type mockPricer struct{ rate decimal.Decimal }

func (m *mockPricer) GetPrice(ctx context.Context, pair domain.Pair) (decimal.Decimal, error) {
	return m.rate, nil
}

// blockingSubmitter holds every submission until the test releases it with
// an outcome.
type blockingSubmitter struct {
	release chan error
}

func (s *blockingSubmitter) Submit(ctx context.Context, kind domain.TxKind, pair domain.Pair, payload *confidential.EncryptedInput) error {
	select {
	case err := <-s.release:
		return err
	case <-ctx.Done():
		return domain.ErrProviderTimeout
	}
}

type recordingRegistry struct {
	mu    sync.Mutex
	pools []domain.Pair
}

func (r *recordingRegistry) AddPool(pair domain.Pair, feeTierBps int, amountA, amountB decimal.Decimal) {
	r.mu.Lock()
	r.pools = append(r.pools, pair)
	r.mu.Unlock()
}

type harness struct {
	engine    *Engine
	session   *wallet.Session
	store     *confidential.Store
	log       *ledger.Log
	views     *view.Controller
	submitter *blockingSubmitter
	registry  *recordingRegistry
	fhe       *mockFHE
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	l := zap.NewNop()
	assets := []string{"ETH", "USDC", "DAI", "WBTC"}

	fhe := &mockFHE{}
	store := confidential.NewStore(fhe, assets, l)
	session := wallet.NewSession(&mockWallet{}, fhe, store, assets, 5*time.Second, l)

	log, err := ledger.NewLog(t.TempDir(), l)
	require.NoError(t, err)
	t.Cleanup(func() { log.Close() })

	views := view.NewController(view.Settings{SlippageBps: 50, DeadlineMinutes: 20})
	submitter := &blockingSubmitter{release: make(chan error, 1)}
	registry := &recordingRegistry{}

	engine := New(Config{
		Session:   session,
		Store:     store,
		Quotes:    quote.NewEngine(&mockPricer{rate: decimal.NewFromInt(2000)}),
		Log:       log,
		Views:     views,
		Submitter: submitter,
		Pools:     registry,
		FHE:       fhe,
		Contract:  "0x1111111111111111111111111111111111111111",
		Timeout:   5 * time.Second,
		Logger:    l,
	})

	return &harness{
		engine:    engine,
		session:   session,
		store:     store,
		log:       log,
		views:     views,
		submitter: submitter,
		registry:  registry,
		fhe:       fhe,
	}
}

func (h *harness) connect(t *testing.T) {
	t.Helper()
	_, err := h.session.Connect(context.Background())
	require.NoError(t, err)
}

func marketSwap(input string) domain.SwapOrder {
	return domain.SwapOrder{
		Pair:        domain.Pair{From: "ETH", To: "USDC"},
		Input:       decimal.RequireFromString(input),
		Kind:        domain.OrderKindMarket,
		SlippageBps: 50,
	}
}

func waitIdle(t *testing.T, h *harness, form view.Form) {
	t.Helper()
	require.Eventually(t, func() bool { return !h.views.Submitting(form) },
		2*time.Second, 5*time.Millisecond)
}

func TestSubmitSwapNotConnected(t *testing.T) {
	h := newHarness(t)

	_, err := h.engine.SubmitSwap(context.Background(), marketSwap("1"))
	require.ErrorIs(t, err, domain.ErrNotConnected)
}

func TestSubmitSwapNonPositiveInput(t *testing.T) {
	h := newHarness(t)
	h.connect(t)

	_, err := h.engine.SubmitSwap(context.Background(), marketSwap("0"))
	require.Error(t, err)
	assert.False(t, h.views.Submitting(view.FormSwap))
}

func TestSubmitSwapInvalidLimitPrice(t *testing.T) {
	h := newHarness(t)
	h.connect(t)

	order := domain.SwapOrder{
		Pair:  domain.Pair{From: "ETH", To: "USDC"},
		Input: decimal.NewFromInt(1),
		Kind:  domain.OrderKindLimit,
	}
	_, err := h.engine.SubmitSwap(context.Background(), order)
	require.ErrorIs(t, err, domain.ErrInvalidLimitPrice)
	// a rejected order never reaches the log or the form state
	assert.Empty(t, h.log.Filter("all"))
	assert.False(t, h.views.Submitting(view.FormSwap))
}

func TestSubmitSwapSuccess(t *testing.T) {
	h := newHarness(t)
	h.connect(t)

	tx, err := h.engine.SubmitSwap(context.Background(), marketSwap("1.5"))
	require.NoError(t, err)
	assert.Equal(t, domain.TxStatusPending, tx.Status)
	// 1.5 x 2000 minus 0.5% slippage
	assert.True(t, tx.MinReceive.Equal(decimal.RequireFromString("2985")), tx.MinReceive.String())
	assert.True(t, tx.Confidential)

	// the form is disabled while the request is in flight
	assert.True(t, h.views.Submitting(view.FormSwap))
	_, err = h.engine.SubmitSwap(context.Background(), marketSwap("1"))
	require.ErrorIs(t, err, domain.ErrSubmissionInFlight)

	h.submitter.release <- nil
	waitIdle(t, h, view.FormSwap)

	got, ok := h.log.Get(tx.ID)
	require.True(t, ok)
	assert.Equal(t, domain.TxStatusCompleted, got.Status)

	// stale balance handles of both sides are dropped, the draft is cleared
	assert.Empty(t, h.views.Draft(view.FormSwap))
	for _, v := range h.store.Views() {
		switch v.Symbol {
		case "ETH", "USDC":
			assert.False(t, v.HandlePresent, v.Symbol)
		default:
			assert.True(t, v.HandlePresent, v.Symbol)
		}
	}

	select {
	case ev := <-h.engine.Events():
		assert.Equal(t, EventTxCompleted, ev.Type)
		assert.Equal(t, tx.ID, ev.TxID)
		assert.NotEmpty(t, ev.ID)
	case <-time.After(time.Second):
		t.Fatal("expected a completion event")
	}
}

func TestSubmitSwapLimitRecordsMinReceive(t *testing.T) {
	h := newHarness(t)
	h.connect(t)

	limit := decimal.NewFromInt(2100)
	order := domain.SwapOrder{
		Pair:        domain.Pair{From: "ETH", To: "USDC"},
		Input:       decimal.NewFromInt(1),
		Kind:        domain.OrderKindLimit,
		LimitPrice:  &limit,
		SlippageBps: 50,
	}
	tx, err := h.engine.SubmitSwap(context.Background(), order)
	require.NoError(t, err)
	// the limit price is already the floor: no slippage adjustment, no
	// oracle rate in the recorded minimum
	assert.True(t, tx.MinReceive.Equal(limit), tx.MinReceive.String())

	h.submitter.release <- nil
	waitIdle(t, h, view.FormSwap)

	got, ok := h.log.Get(tx.ID)
	require.True(t, ok)
	assert.True(t, got.MinReceive.Equal(limit), got.MinReceive.String())
	assert.Equal(t, domain.TxStatusCompleted, got.Status)
}

func TestSubmitSwapFailure(t *testing.T) {
	h := newHarness(t)
	h.connect(t)

	tx, err := h.engine.SubmitSwap(context.Background(), marketSwap("1.5"))
	require.NoError(t, err)

	h.submitter.release <- domain.ErrSubmissionFailed
	waitIdle(t, h, view.FormSwap)

	got, ok := h.log.Get(tx.ID)
	require.True(t, ok)
	assert.Equal(t, domain.TxStatusFailed, got.Status)

	// the draft survives the failure so the user can retry
	assert.Equal(t, "1.5", h.views.Draft(view.FormSwap))
	_, err = h.engine.SubmitSwap(context.Background(), marketSwap("1.5"))
	require.NoError(t, err)

	select {
	case ev := <-h.engine.Events():
		assert.Equal(t, EventTxFailed, ev.Type)
		assert.Equal(t, tx.ID, ev.TxID)
	case <-time.After(time.Second):
		t.Fatal("expected a failure event")
	}

	h.submitter.release <- nil
	waitIdle(t, h, view.FormSwap)
}

func TestCompletionAfterDisconnectIsDiscarded(t *testing.T) {
	h := newHarness(t)
	h.connect(t)

	tx, err := h.engine.SubmitSwap(context.Background(), marketSwap("1"))
	require.NoError(t, err)

	h.session.Disconnect()
	h.submitter.release <- nil
	waitIdle(t, h, view.FormSwap)

	// the outcome never lands: the entry stays pending and no event fires
	got, ok := h.log.Get(tx.ID)
	require.True(t, ok)
	assert.Equal(t, domain.TxStatusPending, got.Status)

	select {
	case ev := <-h.engine.Events():
		t.Fatalf("unexpected event after disconnect: %+v", ev)
	default:
	}
}

func TestDisconnectDuringSubmitDiscardsCompletion(t *testing.T) {
	h := newHarness(t)
	h.connect(t)

	// the disconnect lands mid-submission, after the connected check but
	// before the entry is recorded
	h.fhe.onEncrypt = func() { h.session.Disconnect() }

	tx, err := h.engine.SubmitSwap(context.Background(), marketSwap("1"))
	require.NoError(t, err)

	h.submitter.release <- nil
	waitIdle(t, h, view.FormSwap)

	got, ok := h.log.Get(tx.ID)
	require.True(t, ok)
	assert.Equal(t, domain.TxStatusPending, got.Status)

	select {
	case ev := <-h.engine.Events():
		t.Fatalf("unexpected event after disconnect: %+v", ev)
	default:
	}
}

func TestSubmitLiquidity(t *testing.T) {
	h := newHarness(t)
	h.connect(t)

	req := domain.LiquidityRequest{
		AssetA:  "ETH",
		AssetB:  "USDC",
		AmountA: decimal.NewFromInt(2),
		AmountB: decimal.NewFromInt(4000),
	}
	tx, err := h.engine.SubmitLiquidity(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, domain.TxKindAddLiquidity, tx.Kind)

	h.submitter.release <- nil
	waitIdle(t, h, view.FormLiquidity)

	got, ok := h.log.Get(tx.ID)
	require.True(t, ok)
	assert.Equal(t, domain.TxStatusCompleted, got.Status)
}

func TestSubmitLiquidityRejectsNonPositiveAmounts(t *testing.T) {
	h := newHarness(t)
	h.connect(t)

	req := domain.LiquidityRequest{
		AssetA:  "ETH",
		AssetB:  "USDC",
		AmountA: decimal.NewFromInt(2),
	}
	_, err := h.engine.SubmitLiquidity(context.Background(), req)
	require.Error(t, err)
	assert.False(t, h.views.Submitting(view.FormLiquidity))
}

func TestCreatePool(t *testing.T) {
	h := newHarness(t)
	h.connect(t)
	h.views.OpenOverlay(view.OverlayCreatePool)

	req := domain.LiquidityRequest{
		AssetA:     "WBTC",
		AssetB:     "DAI",
		AmountA:    decimal.NewFromInt(1),
		AmountB:    decimal.NewFromInt(40000),
		FeeTierBps: 30,
	}
	tx, err := h.engine.CreatePool(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, domain.TxKindCreatePool, tx.Kind)
	assert.Equal(t, view.OverlayNone, h.views.Overlay())

	h.submitter.release <- nil
	waitIdle(t, h, view.FormCreatePool)

	// the pool is registered only once the chain confirms it
	require.Eventually(t, func() bool {
		h.registry.mu.Lock()
		defer h.registry.mu.Unlock()
		return len(h.registry.pools) == 1
	}, 2*time.Second, 5*time.Millisecond)
}

func TestCreatePoolRejectsUnknownFeeTier(t *testing.T) {
	h := newHarness(t)
	h.connect(t)

	req := domain.LiquidityRequest{
		AssetA:     "WBTC",
		AssetB:     "DAI",
		AmountA:    decimal.NewFromInt(1),
		AmountB:    decimal.NewFromInt(40000),
		FeeTierBps: 42,
	}
	_, err := h.engine.CreatePool(context.Background(), req)
	require.Error(t, err)
	assert.False(t, h.views.Submitting(view.FormCreatePool))
	assert.Empty(t, h.log.Filter("all"))
}
