package controller

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"p2pquotes/internal/filters"
	"p2pquotes/internal/p2p"
	"p2pquotes/internal/rates"
)

// OfferFetcher retrieves P2P offers for a filter selection. A
// cancelled context settles the call as cancelled, never as data.
type OfferFetcher interface {
	Search(ctx context.Context, f filters.State) (*p2p.OfferPage, error)
}

// RateFetcher retrieves the reference rate snapshot
type RateFetcher interface {
	Fetch(ctx context.Context) (rates.Snapshot, error)
}

// SettingsStore persists the filter selection across popup sessions.
// Both operations are best-effort from the controller's point of view.
type SettingsStore interface {
	Load(ctx context.Context) (filters.State, bool, error)
	Save(ctx context.Context, s filters.State) error
}

// ViewState is everything the presentation layer may render.
// LoadingOffers and OfferError are never both true; Offers is cleared
// the instant a new search is issued, never left stale.
type ViewState struct {
	LoadingOffers bool           `json:"loading_offers"`
	LoadingRates  bool           `json:"loading_rates"`
	OfferError    bool           `json:"offer_error"`
	Offers        *p2p.OfferPage `json:"offers"`
	Rates         rates.Snapshot `json:"rates"`
	Filters       filters.State  `json:"filters"`
}

// Listener receives a ViewState snapshot after every commit
type Listener func(ViewState)

// Controller owns the filter selection and the view state, and is the
// sole initiator of fetches. Mutations arrive from concurrent API
// handlers; every transition is committed atomically under the lock.
// At most one offer search is live at a time: issuing a new one
// cancels and invalidates its predecessor, whose result is discarded
// even if it settles later.
type Controller struct {
	offers OfferFetcher
	rates  RateFetcher
	store  SettingsStore
	logger zerolog.Logger

	baseCtx    context.Context
	baseCancel context.CancelFunc

	mu        sync.Mutex
	view      ViewState
	gen       uint64
	seq       uint64
	cancel    context.CancelFunc
	listeners []Listener

	notifyMu  sync.Mutex
	delivered uint64

	wg sync.WaitGroup
}

// New creates a controller wired to its three adapters
func New(offers OfferFetcher, rateFetcher RateFetcher, store SettingsStore, logger zerolog.Logger) *Controller {
	baseCtx, baseCancel := context.WithCancel(context.Background())
	return &Controller{
		offers:     offers,
		rates:      rateFetcher,
		store:      store,
		logger:     logger,
		baseCtx:    baseCtx,
		baseCancel: baseCancel,
	}
}

// Subscribe registers a listener invoked with a snapshot after every
// state commit. Listeners must not call back into the controller.
func (c *Controller) Subscribe(l Listener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, l)
}

// View returns the current view state
func (c *Controller) View() ViewState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view
}

// Initialize runs the popup-mount sequence: start the once-per-session
// rate fetch, then either search with the in-memory selection, restore
// the persisted selection and search with it, or stay unselected until
// the user picks an asset. Unselected is not an error state.
func (c *Controller) Initialize(ctx context.Context) {
	c.fetchRates()

	c.mu.Lock()
	if c.view.Filters.Selected() {
		c.startFetchLocked()
		seq, snap := c.snapshotLocked()
		c.mu.Unlock()
		c.notify(seq, snap)
		return
	}
	c.mu.Unlock()

	persisted, found, err := c.store.Load(ctx)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Failed to load persisted filters")
		return
	}
	if !found || !persisted.Selected() || persisted.Validate() != nil {
		return
	}

	c.mu.Lock()
	if c.view.Filters.Selected() {
		// The user picked an asset while we were reading the store;
		// the explicit selection wins.
		c.mu.Unlock()
		return
	}
	c.view.Filters = persisted.Normalized()
	c.startFetchLocked()
	seq, snap := c.snapshotLocked()
	c.mu.Unlock()

	c.notify(seq, snap)
}

// SetAsset selects the asset and issues a new fetch cycle
func (c *Controller) SetAsset(a filters.Asset) {
	c.mutate(func(f *filters.State) { f.Asset = a })
}

// SetSide selects the trade direction; it never resets the asset
func (c *Controller) SetSide(s filters.Side) {
	c.mutate(func(f *filters.State) { f.Side = s })
}

// SetPaymentMethod selects the payment method; it never resets the asset
func (c *Controller) SetPaymentMethod(m filters.PaymentMethod) {
	c.mutate(func(f *filters.State) { f.PaymentMethod = m })
}

// SetVerifiedOnly toggles the verified-merchant filter
func (c *Controller) SetVerifiedOnly(v bool) {
	c.mutate(func(f *filters.State) { f.VerifiedOnly = v })
}

// Close cancels any in-flight fetch and waits for workers to drain
func (c *Controller) Close() {
	c.baseCancel()
	c.wg.Wait()
}

// mutate applies one filter mutation, persists the full resulting
// selection, and issues exactly one new fetch cycle.
func (c *Controller) mutate(apply func(*filters.State)) {
	c.mu.Lock()
	apply(&c.view.Filters)
	if c.view.Filters.Selected() {
		c.view.Filters = c.view.Filters.Normalized()
	}
	state := c.view.Filters
	c.startFetchLocked()
	seq, snap := c.snapshotLocked()
	c.mu.Unlock()

	c.notify(seq, snap)
	c.persist(state)
}

// startFetchLocked issues a new offer search, superseding any
// in-flight one. Without a selected asset no search is issued and the
// view is left untouched. Caller holds the lock.
func (c *Controller) startFetchLocked() {
	if !c.view.Filters.Selected() {
		return
	}

	c.gen++
	gen := c.gen
	if c.cancel != nil {
		c.cancel()
	}
	ctx, cancel := context.WithCancel(c.baseCtx)
	c.cancel = cancel

	c.view.LoadingOffers = true
	c.view.OfferError = false
	c.view.Offers = nil
	state := c.view.Filters

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer cancel()

		page, err := c.offers.Search(ctx, state)

		c.mu.Lock()
		if gen != c.gen || ctx.Err() != nil {
			// Superseded or torn down: the result is stale, drop it
			// without touching the view.
			c.mu.Unlock()
			return
		}

		c.view.LoadingOffers = false
		if err != nil {
			c.view.OfferError = true
			c.view.Offers = nil
			c.logger.Warn().Err(err).
				Str("asset", string(state.Asset)).
				Str("side", string(state.Side)).
				Msg("Offer search failed")
		} else {
			c.view.OfferError = false
			c.view.Offers = page
		}
		seq, snap := c.snapshotLocked()
		c.mu.Unlock()

		c.notify(seq, snap)
	}()
}

// fetchRates runs the rate pipeline, independent of the filter state.
// A failure keeps whatever snapshot is already displayed; it is logged
// and otherwise suppressed.
func (c *Controller) fetchRates() {
	c.mu.Lock()
	c.view.LoadingRates = true
	seq, snap := c.snapshotLocked()
	c.mu.Unlock()
	c.notify(seq, snap)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		snapshot, err := c.rates.Fetch(c.baseCtx)

		c.mu.Lock()
		c.view.LoadingRates = false
		if err != nil {
			c.logger.Warn().Err(err).Msg("Rate fetch failed, keeping previous snapshot")
		} else {
			c.view.Rates = snapshot
		}
		seq, snap := c.snapshotLocked()
		c.mu.Unlock()

		c.notify(seq, snap)
	}()
}

// persist writes the full selection; failures never block a fetch cycle
func (c *Controller) persist(state filters.State) {
	if err := c.store.Save(c.baseCtx, state); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to persist filters")
	}
}

// snapshotLocked stamps the current view with a commit sequence
// number. Caller holds the lock.
func (c *Controller) snapshotLocked() (uint64, ViewState) {
	c.seq++
	return c.seq, c.view
}

// notify hands a snapshot to every listener. Delivery is serialized
// and ordered by commit sequence: a snapshot that lost the race to a
// newer commit is dropped, so the last snapshot a listener receives is
// always the newest one.
func (c *Controller) notify(seq uint64, snap ViewState) {
	c.mu.Lock()
	listeners := make([]Listener, len(c.listeners))
	copy(listeners, c.listeners)
	c.mu.Unlock()

	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	if seq <= c.delivered {
		return
	}
	c.delivered = seq

	for _, l := range listeners {
		l(snap)
	}
}
