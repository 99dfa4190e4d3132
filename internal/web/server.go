// Package web exposes the engine over HTTP: JSON state and action
// endpoints for the five panels plus an SSE event stream.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dexterlabs/dexter/internal/analytics"
	"github.com/dexterlabs/dexter/internal/confidential"
	"github.com/dexterlabs/dexter/internal/domain"
	"github.com/dexterlabs/dexter/internal/engine"
	"github.com/dexterlabs/dexter/internal/ledger"
	"github.com/dexterlabs/dexter/internal/quote"
	"github.com/dexterlabs/dexter/internal/view"
	"github.com/dexterlabs/dexter/internal/wallet"
)

// Server exposes HTTP endpoints for the exchange client.
type Server struct {
	Addr      string
	Session   *wallet.Session
	Store     *confidential.Store
	Quotes    *quote.Engine
	Log       *ledger.Log
	Views     *view.Controller
	Engine    *engine.Engine
	Collector *analytics.Collector
	Pools     *analytics.PoolRegistry

	mu   sync.Mutex
	subs map[chan engine.Event]struct{}
}

// subscribe registers an event stream consumer. Every subscriber receives
// every event; a slow consumer drops events rather than blocking the rest.
func (s *Server) subscribe() chan engine.Event {
	ch := make(chan engine.Event, 16)
	s.mu.Lock()
	if s.subs == nil {
		s.subs = make(map[chan engine.Event]struct{})
	}
	s.subs[ch] = struct{}{}
	s.mu.Unlock()
	return ch
}

func (s *Server) unsubscribe(ch chan engine.Event) {
	s.mu.Lock()
	delete(s.subs, ch)
	s.mu.Unlock()
}

// broadcast drains the engine's event stream and fans each event out to all
// connected SSE clients.
func (s *Server) broadcast(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-s.Engine.Events():
			if !ok {
				return
			}
			s.mu.Lock()
			for ch := range s.subs {
				select {
				case ch <- ev:
				default:
				}
			}
			s.mu.Unlock()
		}
	}
}

// Start runs the HTTP server (blocking) and shuts it down when ctx is
// cancelled.
func (s *Server) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /state", s.handleState)
	mux.HandleFunc("POST /connect", s.handleConnect)
	mux.HandleFunc("POST /disconnect", s.handleDisconnect)
	mux.HandleFunc("POST /decrypt", s.handleDecrypt)
	mux.HandleFunc("POST /quote", s.handleQuote)
	mux.HandleFunc("POST /swap", s.handleSwap)
	mux.HandleFunc("POST /liquidity", s.handleLiquidity)
	mux.HandleFunc("POST /pool", s.handleCreatePool)
	mux.HandleFunc("POST /tab", s.handleTab)
	mux.HandleFunc("POST /overlay", s.handleOverlay)
	mux.HandleFunc("POST /settings", s.handleSettings)
	mux.HandleFunc("GET /history", s.handleHistory)
	mux.HandleFunc("GET /history/export", s.handleExport)
	mux.HandleFunc("GET /analytics", s.handleAnalytics)
	mux.HandleFunc("GET /events", s.handleEvents)

	server := &http.Server{
		Addr:              s.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go s.broadcast(ctx)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service":   "dexter",
		"connected": s.Session.Connected(),
		"tab":       s.Views.Tab(),
	})
}

// stateResponse the full view snapshot served to the presentation layer.
type stateResponse struct {
	Connected  bool                 `json:"connected"`
	Address    string               `json:"address,omitempty"`
	Tab        view.Tab             `json:"tab"`
	Overlay    view.Overlay         `json:"overlay,omitempty"`
	Settings   view.Settings        `json:"settings"`
	Balances   []domain.BalanceView `json:"balances"`
	Submitting map[string]bool      `json:"submitting"`
	Drafts     map[string]string    `json:"drafts,omitempty"`
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	resp := stateResponse{
		Connected: s.Session.Connected(),
		Address:   s.Session.Address(),
		Tab:       s.Views.Tab(),
		Overlay:   s.Views.Overlay(),
		Settings:  s.Views.Settings(),
		Balances:  s.Store.Views(),
		Submitting: map[string]bool{
			string(view.FormSwap):       s.Views.Submitting(view.FormSwap),
			string(view.FormLiquidity):  s.Views.Submitting(view.FormLiquidity),
			string(view.FormCreatePool): s.Views.Submitting(view.FormCreatePool),
		},
		Drafts: map[string]string{},
	}
	for _, form := range []view.Form{view.FormSwap, view.FormLiquidity} {
		if draft := s.Views.Draft(form); draft != "" {
			resp.Drafts[string(form)] = draft
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	address, err := s.Session.Connect(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"address": address})
}

func (s *Server) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	s.Session.Disconnect()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDecrypt(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Symbol string `json:"symbol"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	value, err := s.Store.Decrypt(r.Context(), req.Symbol)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"symbol":    req.Symbol,
		"plaintext": value.String(),
	})
}

type swapRequest struct {
	From       string `json:"from"`
	To         string `json:"to"`
	Amount     string `json:"amount"`
	Kind       string `json:"kind"`
	LimitPrice string `json:"limit_price,omitempty"`
}

func (r swapRequest) toOrder(settings view.Settings) (domain.SwapOrder, error) {
	amount, err := decimal.NewFromString(r.Amount)
	if err != nil {
		return domain.SwapOrder{}, fmt.Errorf("invalid amount: %q", r.Amount)
	}
	kind := domain.OrderKind(r.Kind)
	if r.Kind == "" {
		kind = domain.OrderKindMarket
	}
	if !kind.IsValid() {
		return domain.SwapOrder{}, fmt.Errorf("invalid order kind: %q", r.Kind)
	}
	order := domain.SwapOrder{
		Pair:            domain.Pair{From: r.From, To: r.To},
		Input:           amount,
		Kind:            kind,
		SlippageBps:     settings.SlippageBps,
		DeadlineMinutes: settings.DeadlineMinutes,
	}
	if r.LimitPrice != "" {
		limit, err := decimal.NewFromString(r.LimitPrice)
		if err != nil {
			return domain.SwapOrder{}, fmt.Errorf("invalid limit price: %q", r.LimitPrice)
		}
		order.LimitPrice = &limit
	}
	return order, nil
}

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	var req swapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	order, err := req.toOrder(s.Views.Settings())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	output, err := s.Quotes.Estimate(r.Context(), order)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"output": output.String()})
}

func (s *Server) handleSwap(w http.ResponseWriter, r *http.Request) {
	var req swapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	order, err := req.toOrder(s.Views.Settings())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	tx, err := s.Engine.SubmitSwap(r.Context(), order)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, tx)
}

type liquidityRequest struct {
	AssetA     string `json:"asset_a"`
	AssetB     string `json:"asset_b"`
	AmountA    string `json:"amount_a"`
	AmountB    string `json:"amount_b"`
	FeeTierBps int    `json:"fee_tier_bps,omitempty"`
}

func (r liquidityRequest) toRequest() (domain.LiquidityRequest, error) {
	amountA, err := decimal.NewFromString(r.AmountA)
	if err != nil {
		return domain.LiquidityRequest{}, fmt.Errorf("invalid amount_a: %q", r.AmountA)
	}
	amountB, err := decimal.NewFromString(r.AmountB)
	if err != nil {
		return domain.LiquidityRequest{}, fmt.Errorf("invalid amount_b: %q", r.AmountB)
	}
	return domain.LiquidityRequest{
		AssetA:     r.AssetA,
		AssetB:     r.AssetB,
		AmountA:    amountA,
		AmountB:    amountB,
		FeeTierBps: r.FeeTierBps,
	}, nil
}

func (s *Server) handleLiquidity(w http.ResponseWriter, r *http.Request) {
	var req liquidityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	lr, err := req.toRequest()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	tx, err := s.Engine.SubmitLiquidity(r.Context(), lr)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, tx)
}

func (s *Server) handleCreatePool(w http.ResponseWriter, r *http.Request) {
	var req liquidityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	lr, err := req.toRequest()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	tx, err := s.Engine.CreatePool(r.Context(), lr)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, tx)
}

func (s *Server) handleTab(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Tab string `json:"tab"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	tab := view.Tab(req.Tab)
	if !tab.IsValid() {
		http.Error(w, fmt.Sprintf("unknown tab: %q", req.Tab), http.StatusBadRequest)
		return
	}
	s.Views.SelectTab(tab)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleOverlay(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Overlay string `json:"overlay"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	switch view.Overlay(req.Overlay) {
	case view.OverlayNone:
		s.Views.CloseOverlay()
	case view.OverlaySettings, view.OverlayCreatePool:
		s.Views.OpenOverlay(view.Overlay(req.Overlay))
	default:
		http.Error(w, fmt.Sprintf("unknown overlay: %q", req.Overlay), http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	var req view.Settings
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	s.Views.UpdateSettings(req)
	writeJSON(w, http.StatusOK, s.Views.Settings())
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	kind := r.URL.Query().Get("kind")
	if kind != "" && kind != "all" && !domain.TxKind(kind).IsValid() {
		http.Error(w, fmt.Sprintf("unknown kind: %q", kind), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, s.Log.Recent(kind))
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	switch format {
	case "", "csv":
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="transactions.csv"`)
		if err := s.Log.ExportCSV(w); err != nil {
			log.Printf("csv export: %v", err)
		}
	case "json":
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Disposition", `attachment; filename="transactions.json"`)
		if err := s.Log.ExportJSON(w); err != nil {
			log.Printf("json export: %v", err)
		}
	default:
		http.Error(w, fmt.Sprintf("unknown format: %q", format), http.StatusBadRequest)
	}
}

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"summary": s.Collector.Summarize(),
		"series":  s.Collector.Series(),
		"pools":   s.Pools.TopByVolume(0),
	})
}

// handleEvents streams engine events over SSE with a heartbeat so proxies
// keep the connection.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	events := s.subscribe()
	defer s.unsubscribe(events)

	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprintf(w, ": ping\n\n")
			flusher.Flush()
		case ev := <-events:
			payload, err := json.Marshal(ev)
			if err != nil {
				log.Printf("event stream marshal: %v", err)
				continue
			}
			fmt.Fprintf(w, "id: %s\n", ev.ID)
			fmt.Fprintf(w, "event: %s\n", ev.Type)
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response: %v", err)
	}
}

// writeError maps the error taxonomy onto HTTP statuses; the body carries
// the message for the dismissible notification.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidLimitPrice),
		errors.Is(err, domain.ErrUnknownAsset),
		errors.Is(err, domain.ErrNotConnected):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrAlreadyDecrypted),
		errors.Is(err, domain.ErrSubmissionInFlight):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrConnectionRejected),
		errors.Is(err, domain.ErrDecryptionDenied):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrProviderUnavailable),
		errors.Is(err, domain.ErrSubmissionFailed),
		errors.Is(err, domain.ErrHandleExpired):
		status = http.StatusBadGateway
	case errors.Is(err, domain.ErrProviderTimeout):
		status = http.StatusGatewayTimeout
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
