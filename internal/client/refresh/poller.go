package refresh

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/tokenkeeper/internal/client/client"
	"github.com/dmitrijs2005/tokenkeeper/internal/client/models"
	"github.com/dmitrijs2005/tokenkeeper/internal/logging"
	"github.com/sony/gobreaker/v2"
)

const (
	DefaultPollInterval     = 60 * time.Second
	DefaultRefreshThreshold = 2 * time.Hour
	defaultBreakerFailures  = 3
)

// ErrCheckInFlight is returned by Tick when the previous check has not
// resolved yet.
var ErrCheckInFlight = errors.New("status check already in flight")

// StatusStore persists the last good status. services.StatusCache fits.
type StatusStore interface {
	Save(ctx context.Context, st models.TokenStatus) error
}

// Poller periodically reads token status and keeps the last good one.
type Poller struct {
	client    client.Client
	notify    Notifier
	store     StatusStore
	logger    logging.Logger
	interval  time.Duration
	threshold time.Duration
	now       func() time.Time
	loc       *time.Location
	breaker   *gobreaker.CircuitBreaker[models.TokenStatus]

	breakerFailures uint32
	breakerCooldown time.Duration

	// flight serialises checks: Tick skips when held, CheckNow waits.
	flight   sync.Mutex
	checking atomic.Bool

	mu         sync.RWMutex
	last       models.TokenStatus
	hasLast    bool
	lastErr    error
	warnedFor  string
	lastFailed string
}

// PollerOption customises a Poller.
type PollerOption func(*Poller)

// WithPollInterval sets the tick period; zero or negative keeps the default.
func WithPollInterval(d time.Duration) PollerOption {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithRefreshThreshold sets how close to expiry refresh_soon fires.
func WithRefreshThreshold(d time.Duration) PollerOption {
	return func(p *Poller) {
		if d > 0 {
			p.threshold = d
		}
	}
}

// WithStatusStore persists every successful status read.
func WithStatusStore(s StatusStore) PollerOption {
	return func(p *Poller) { p.store = s }
}

// WithPollerNotifier sets the event sink; nil keeps the silent default.
func WithPollerNotifier(n Notifier) PollerOption {
	return func(p *Poller) {
		if n != nil {
			p.notify = n
		}
	}
}

// WithPollerLogger sets the poller logger.
func WithPollerLogger(l logging.Logger) PollerOption {
	return func(p *Poller) { p.logger = l }
}

// WithPollerClock overrides time.Now.
func WithPollerClock(now func() time.Time) PollerOption {
	return func(p *Poller) { p.now = now }
}

// WithPollerLocation sets the zone expiries are rendered in.
func WithPollerLocation(loc *time.Location) PollerOption {
	return func(p *Poller) { p.loc = loc }
}

// WithBreaker sets how many consecutive unreachable ticks open the circuit
// and how long it stays open.
func WithBreaker(failures uint32, cooldown time.Duration) PollerOption {
	return func(p *Poller) {
		p.breakerFailures = failures
		p.breakerCooldown = cooldown
	}
}

// NewPoller returns a stopped Poller; call Start to begin ticking.
func NewPoller(c client.Client, opts ...PollerOption) *Poller {
	p := &Poller{
		client:          c,
		notify:          nopNotifier{},
		logger:          logging.Nop(),
		interval:        DefaultPollInterval,
		threshold:       DefaultRefreshThreshold,
		now:             time.Now,
		breakerFailures: defaultBreakerFailures,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.breakerFailures == 0 {
		p.breakerFailures = defaultBreakerFailures
	}
	if p.breakerCooldown <= 0 {
		p.breakerCooldown = 5 * p.interval
	}

	p.breaker = gobreaker.NewCircuitBreaker[models.TokenStatus](gobreaker.Settings{
		Name:        "token-status",
		MaxRequests: 1,
		Timeout:     p.breakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= p.breakerFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !errors.Is(err, client.ErrUnavailable)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			p.logger.Warn(context.Background(), "circuit breaker state change",
				"breaker", name, "from", from.String(), "to", to.String())
		},
	})
	return p
}

// Seed shows st as last known until the first check completes. It is a
// no-op once a check has succeeded.
func (p *Poller) Seed(st models.TokenStatus) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.hasLast {
		p.last = st
		p.hasLast = true
	}
}

// Start runs an immediate check and then one per interval until the returned
// stop function is called or ctx ends. stop waits for the loop to exit and
// is safe to call more than once.
func (p *Poller) Start(ctx context.Context) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		_ = p.Tick(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				_ = p.Tick(ctx)
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			<-done
		})
	}
}

// Tick is one scheduled check. It is skipped when a check is in flight and
// goes through the circuit breaker.
func (p *Poller) Tick(ctx context.Context) error {
	if !p.flight.TryLock() {
		p.logger.Debug(ctx, "status tick skipped, check in flight")
		return ErrCheckInFlight
	}
	defer p.flight.Unlock()

	_, err := p.check(ctx, false)
	return err
}

// CheckNow waits for any in-flight check and then issues a fresh request,
// bypassing the breaker. Used after a successful refresh and by the
// operator's explicit status command.
func (p *Poller) CheckNow(ctx context.Context) (models.TokenStatus, error) {
	p.flight.Lock()
	defer p.flight.Unlock()

	return p.check(ctx, true)
}

func (p *Poller) check(ctx context.Context, manual bool) (models.TokenStatus, error) {
	p.checking.Store(true)
	defer p.checking.Store(false)

	fetch := func() (models.TokenStatus, error) { return p.client.TokenStatus(ctx) }

	var (
		st  models.TokenStatus
		err error
	)
	if manual {
		st, err = fetch()
	} else {
		st, err = p.breaker.Execute(fetch)
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			err = fmt.Errorf("%w: %w", client.ErrUnavailable, err)
		}
	}

	if err != nil {
		p.fail(ctx, err, manual)
		return p.lastOrZero(), err
	}

	now := p.now()
	if st.State == nil {
		st.State = models.DeriveState(st.ExpiresAt, now)
	}
	if st.ExpiresAt != nil {
		st.NeedsRefresh = st.NeedsRefresh || models.NeedsRefresh(st.State, now, p.threshold)
	}

	p.mu.Lock()
	p.last = st
	p.hasLast = true
	p.lastErr = nil
	p.lastFailed = ""
	warn := false
	if st.NeedsRefresh {
		key := st.Token + "|" + expiryKey(st.ExpiresAt)
		if manual || key != p.warnedFor {
			warn = true
			p.warnedFor = key
		}
	} else {
		p.warnedFor = ""
	}
	p.mu.Unlock()

	if p.store != nil {
		if err := p.store.Save(ctx, st); err != nil {
			p.logger.Warn(ctx, "status snapshot not saved", "err", err)
		}
	}

	p.logger.Debug(ctx, "token status", "state", st.State.Kind(), "needs_refresh", st.NeedsRefresh)
	p.emit(Event{Kind: EventStatusUpdated, Level: LevelInfo, Message: StatusLine(st, p.loc), Status: &st})
	if warn {
		p.emit(Event{Kind: EventRefreshSoon, Level: LevelWarn, Message: refreshSoonMessage(st), Status: &st})
	}
	return st, nil
}

func (p *Poller) fail(ctx context.Context, err error, manual bool) {
	if errors.Is(err, context.Canceled) {
		return
	}

	msg := Describe(err)
	p.mu.Lock()
	p.lastErr = err
	repeat := !manual && msg == p.lastFailed
	p.lastFailed = msg
	p.mu.Unlock()

	p.logger.Warn(ctx, "token status check failed", "err", err, "manual", manual)
	if repeat {
		return
	}

	if errors.Is(err, client.ErrUnauthorized) {
		p.emit(Event{Kind: EventSessionExpired, Level: LevelError, Message: msg, Err: err})
		return
	}
	p.emit(Event{Kind: EventStatusFailed, Level: LevelWarn, Message: msg, Err: err})
}

func (p *Poller) emit(e Event) {
	e.At = p.now()
	p.notify.Notify(e)
}

func (p *Poller) lastOrZero() models.TokenStatus {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.last
}

// Last returns the last good status. Failed checks never replace it.
func (p *Poller) Last() (models.TokenStatus, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.last, p.hasLast
}

// LastError is the error of the most recent check, nil after a success.
func (p *Poller) LastError() error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastErr
}

// Checking reports whether a status request is in flight.
func (p *Poller) Checking() bool { return p.checking.Load() }

// BreakerState exposes the circuit state for the status command.
func (p *Poller) BreakerState() gobreaker.State { return p.breaker.State() }

func expiryKey(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func refreshSoonMessage(st models.TokenStatus) string {
	if st.State != nil && st.State.Kind() == models.KindExpired {
		return "Token has expired. Request an OTP and refresh"
	}
	return fmt.Sprintf("Token expires soon (%s). Request an OTP and refresh", HoursLeft(st.HoursRemaining))
}
