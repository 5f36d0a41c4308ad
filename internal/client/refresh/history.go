package refresh

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/tokenkeeper/internal/client/client"
	"github.com/dmitrijs2005/tokenkeeper/internal/client/models"
	"github.com/dmitrijs2005/tokenkeeper/internal/logging"
)

// HistoryViewer lazily fetches the refresh audit trail. It fetches once per
// opening and again only after Invalidate or Reload.
type HistoryViewer struct {
	client client.Client
	notify Notifier
	logger logging.Logger
	now    func() time.Time

	fetchMu sync.Mutex
	busy    atomic.Bool

	mu      sync.RWMutex
	open    bool
	loaded  bool
	stale   bool
	entries []models.HistoryEntry
}

// HistoryOption customises a HistoryViewer.
type HistoryOption func(*HistoryViewer)

// WithHistoryNotifier sets the event sink; nil keeps the silent default.
func WithHistoryNotifier(n Notifier) HistoryOption {
	return func(h *HistoryViewer) {
		if n != nil {
			h.notify = n
		}
	}
}

// WithHistoryLogger sets the viewer logger.
func WithHistoryLogger(l logging.Logger) HistoryOption {
	return func(h *HistoryViewer) { h.logger = l }
}

// WithHistoryClock overrides time.Now.
func WithHistoryClock(now func() time.Time) HistoryOption {
	return func(h *HistoryViewer) { h.now = now }
}

// NewHistoryViewer returns a closed viewer. Nothing is fetched until Open.
func NewHistoryViewer(c client.Client, opts ...HistoryOption) *HistoryViewer {
	h := &HistoryViewer{client: c, notify: nopNotifier{}, logger: logging.Nop(), now: time.Now}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Open shows the panel, fetching only if nothing current is cached.
func (h *HistoryViewer) Open(ctx context.Context) ([]models.HistoryEntry, error) {
	h.mu.Lock()
	h.open = true
	fresh := h.loaded && !h.stale
	h.mu.Unlock()

	if fresh {
		return h.Entries(), nil
	}
	return h.fetch(ctx)
}

// Reload refetches unconditionally and opens the panel.
func (h *HistoryViewer) Reload(ctx context.Context) ([]models.HistoryEntry, error) {
	h.mu.Lock()
	h.open = true
	h.mu.Unlock()
	return h.fetch(ctx)
}

// Close hides the panel; cached entries are kept for the next Open.
func (h *HistoryViewer) Close() {
	h.mu.Lock()
	h.open = false
	h.mu.Unlock()
}

// Invalidate is called after a successful refresh: an open panel refetches
// now, a closed one refetches on its next Open.
func (h *HistoryViewer) Invalidate(ctx context.Context) error {
	h.mu.Lock()
	h.stale = true
	open := h.open
	h.mu.Unlock()

	if !open {
		return nil
	}
	_, err := h.fetch(ctx)
	return err
}

func (h *HistoryViewer) fetch(ctx context.Context) ([]models.HistoryEntry, error) {
	h.fetchMu.Lock()
	defer h.fetchMu.Unlock()
	h.busy.Store(true)
	defer h.busy.Store(false)

	entries, err := h.client.TokenHistory(ctx)
	if err != nil {
		h.logger.Warn(ctx, "history fetch failed", "err", err)
		h.emit(Event{Kind: EventHistoryFailed, Level: LevelWarn, Message: "Could not load history: " + Describe(err), Err: err})
		return h.Entries(), err
	}

	if n := len(models.ActiveEntries(entries)); n > 1 {
		h.logger.Warn(ctx, "history has more than one active entry", "active", n)
	}

	h.mu.Lock()
	h.entries = entries
	h.loaded = true
	h.stale = false
	h.mu.Unlock()

	h.emit(Event{Kind: EventHistoryLoaded, Level: LevelInfo, Message: fmt.Sprintf("Loaded %d history entries", len(entries))})
	return h.Entries(), nil
}

func (h *HistoryViewer) emit(e Event) {
	e.At = h.now()
	h.notify.Notify(e)
}

// Entries returns a copy of the cached entries.
func (h *HistoryViewer) Entries() []models.HistoryEntry {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]models.HistoryEntry, len(h.entries))
	copy(out, h.entries)
	return out
}

func (h *HistoryViewer) IsOpen() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.open
}

// Stale reports whether cached entries predate the last refresh.
func (h *HistoryViewer) Stale() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.stale
}

func (h *HistoryViewer) Busy() bool { return h.busy.Load() }
