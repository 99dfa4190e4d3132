// Package view holds the panel, overlay and form state of the client.
package view

import (
	"sync"

	"github.com/dexterlabs/dexter/internal/domain"
)

// Tab base panel of the interface.
type Tab string

const (
	TabSwap      Tab = "swap"
	TabLiquidity Tab = "liquidity"
	TabPortfolio Tab = "portfolio"
	TabAnalytics Tab = "analytics"
	TabHistory   Tab = "history"
)

// IsValid checks if the Tab value is valid.
func (t Tab) IsValid() bool {
	switch t {
	case TabSwap, TabLiquidity, TabPortfolio, TabAnalytics, TabHistory:
		return true
	}
	return false
}

// Overlay modal layered over the base panel. Overlays are mutually
// exclusive: opening one closes whatever was open.
type Overlay string

const (
	OverlayNone       Overlay = ""
	OverlaySettings   Overlay = "settings"
	OverlayCreatePool Overlay = "create_pool"
)

// Form identifies a submission form. Each form allows at most one
// submission in flight.
type Form string

const (
	FormSwap       Form = "swap"
	FormLiquidity  Form = "liquidity"
	FormCreatePool Form = "create_pool"
)

// Settings user trade settings from the settings overlay.
type Settings struct {
	// SlippageBps slippage tolerance in basis points.
	SlippageBps int `json:"slippage_bps"`
	// DeadlineMinutes transaction deadline in minutes.
	DeadlineMinutes int `json:"deadline_minutes"`
}

// SlippagePresetsBps the preset slippage choices (0.1%, 0.5%, 1%).
var SlippagePresetsBps = []int{10, 50, 100}

// Controller orchestrates which panel is visible and which forms are
// currently submitting. Changing tabs never touches overlays, opening an
// overlay never changes the base tab. The controller lives for the whole
// application session, there is no terminal state.
type Controller struct {
	mu         sync.RWMutex
	tab        Tab
	overlay    Overlay
	submitting map[Form]bool
	drafts     map[Form]string
	settings   Settings
}

// NewController creates a controller showing the swap panel.
func NewController(defaults Settings) *Controller {
	return &Controller{
		tab:        TabSwap,
		submitting: make(map[Form]bool),
		drafts:     make(map[Form]string),
		settings:   defaults,
	}
}

// SetDraft remembers the form's amount input. A failed submission keeps the
// draft so the user can retry; a successful one clears it.
func (c *Controller) SetDraft(form Form, value string) {
	c.mu.Lock()
	c.drafts[form] = value
	c.mu.Unlock()
}

// ClearDraft drops the form's amount input.
func (c *Controller) ClearDraft(form Form) {
	c.mu.Lock()
	delete(c.drafts, form)
	c.mu.Unlock()
}

// Draft returns the remembered amount input for a form.
func (c *Controller) Draft(form Form) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.drafts[form]
}

// SelectTab switches the base panel. Unknown tabs are ignored.
func (c *Controller) SelectTab(tab Tab) {
	if !tab.IsValid() {
		return
	}
	c.mu.Lock()
	c.tab = tab
	c.mu.Unlock()
}

// Tab returns the active base panel.
func (c *Controller) Tab() Tab {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tab
}

// OpenOverlay opens an overlay, replacing any other open overlay.
func (c *Controller) OpenOverlay(overlay Overlay) {
	c.mu.Lock()
	c.overlay = overlay
	c.mu.Unlock()
}

// CloseOverlay closes whatever overlay is open. Idempotent.
func (c *Controller) CloseOverlay() {
	c.mu.Lock()
	c.overlay = OverlayNone
	c.mu.Unlock()
}

// Overlay returns the open overlay, OverlayNone when closed.
func (c *Controller) Overlay() Overlay {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.overlay
}

// BeginSubmission moves a form from idle to submitting. Fails with
// ErrSubmissionInFlight when the form already has a request in flight, so a
// duplicate submit of the same logical action is impossible.
func (c *Controller) BeginSubmission(form Form) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.submitting[form] {
		return domain.ErrSubmissionInFlight
	}
	c.submitting[form] = true
	return nil
}

// EndSubmission restores a form to idle. Runs on both the success and the
// failure path so a form is never left permanently disabled.
func (c *Controller) EndSubmission(form Form) {
	c.mu.Lock()
	delete(c.submitting, form)
	c.mu.Unlock()
}

// Submitting reports whether a form has a request in flight.
func (c *Controller) Submitting(form Form) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.submitting[form]
}

// UpdateSettings replaces the trade settings. Non-positive values keep the
// previous ones.
func (c *Controller) UpdateSettings(s Settings) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s.SlippageBps > 0 {
		c.settings.SlippageBps = s.SlippageBps
	}
	if s.DeadlineMinutes > 0 {
		c.settings.DeadlineMinutes = s.DeadlineMinutes
	}
}

// Settings returns the current trade settings.
func (c *Controller) Settings() Settings {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.settings
}
