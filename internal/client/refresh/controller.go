package refresh

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dmitrijs2005/tokenkeeper/internal/client/client"
	"github.com/dmitrijs2005/tokenkeeper/internal/client/models"
	"github.com/dmitrijs2005/tokenkeeper/internal/logging"
	"github.com/google/uuid"
)

// DefaultOTPWindow is how long an OTP is assumed to stay valid server-side.
const DefaultOTPWindow = 5 * time.Minute

var (
	// ErrBusy is returned when the same action is already in flight.
	ErrBusy = errors.New("request already in progress")
	// ErrNoChallenge is returned by Refresh and Resend before an OTP was requested.
	ErrNoChallenge = errors.New("no otp requested")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("controller closed")
)

// State of the refresh flow.
type State string

const (
	StateIdle         State = "idle"
	StateOTPRequested State = "otp_requested"
	StateRefreshing   State = "refreshing"
)

// StatusChecker performs the read-after-write status fetch. *Poller fits.
type StatusChecker interface {
	CheckNow(ctx context.Context) (models.TokenStatus, error)
}

// HistoryInvalidator is told about successful refreshes. *HistoryViewer fits.
type HistoryInvalidator interface {
	Invalidate(ctx context.Context) error
}

// Journal records attempts. services.JournalService fits.
type Journal interface {
	Record(ctx context.Context, action models.Action, err error, requestID string) (models.Attempt, error)
}

// Controller drives the OTP challenge/response exchange. Network calls are
// never retried: each OTP may be single-use.
type Controller struct {
	client  client.Client
	checker StatusChecker
	history HistoryInvalidator
	journal Journal
	notify  Notifier
	logger  logging.Logger
	now     func() time.Time
	loc     *time.Location
	window  time.Duration

	mu          sync.Mutex
	state       State
	code        string
	requestedAt time.Time
	timer       *time.Timer
	timerGen    uint64
	inflight    map[models.Action]bool
	closed      bool
}

// ControllerOption customises a Controller.
type ControllerOption func(*Controller)

// WithNotifier sets the event sink; nil keeps the silent default.
func WithNotifier(n Notifier) ControllerOption {
	return func(c *Controller) {
		if n != nil {
			c.notify = n
		}
	}
}

// WithHistory sets the viewer invalidated after a successful refresh.
func WithHistory(h HistoryInvalidator) ControllerOption {
	return func(c *Controller) { c.history = h }
}

// WithJournal records every action outcome.
func WithJournal(j Journal) ControllerOption {
	return func(c *Controller) { c.journal = j }
}

// WithLogger sets the controller logger.
func WithLogger(l logging.Logger) ControllerOption {
	return func(c *Controller) { c.logger = l }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) ControllerOption {
	return func(c *Controller) { c.now = now }
}

// WithLocation sets the zone "Valid until" is rendered in.
func WithLocation(loc *time.Location) ControllerOption {
	return func(c *Controller) { c.loc = loc }
}

// WithOTPWindow sets the advisory timer; zero or negative keeps the default.
func WithOTPWindow(d time.Duration) ControllerOption {
	return func(c *Controller) {
		if d > 0 {
			c.window = d
		}
	}
}

// NewController returns an idle Controller. checker is asked for a fresh
// status after each successful refresh and may be nil.
func NewController(c client.Client, checker StatusChecker, opts ...ControllerOption) *Controller {
	ctl := &Controller{
		client:   c,
		checker:  checker,
		notify:   nopNotifier{},
		logger:   logging.Nop(),
		now:      time.Now,
		window:   DefaultOTPWindow,
		state:    StateIdle,
		inflight: make(map[models.Action]bool),
	}
	for _, opt := range opts {
		opt(ctl)
	}
	return ctl
}

// begin marks action in flight. It fails if the same action is already
// running or the controller is closed.
func (c *Controller) begin(action models.Action) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if c.inflight[action] {
		return ErrBusy
	}
	c.inflight[action] = true
	return nil
}

func (c *Controller) end(action models.Action) {
	c.mu.Lock()
	delete(c.inflight, action)
	c.mu.Unlock()
}

// RequestOTP asks the server to text an OTP to the registered phone. On
// success the flow enters otp_requested and the advisory timer restarts; on
// failure the state is unchanged.
func (c *Controller) RequestOTP(ctx context.Context) (client.OTPChallenge, error) {
	if err := c.begin(models.ActionRequestOTP); err != nil {
		return client.OTPChallenge{}, err
	}
	defer c.end(models.ActionRequestOTP)

	c.mu.Lock()
	refreshing := c.state == StateRefreshing
	c.mu.Unlock()
	if refreshing {
		return client.OTPChallenge{}, ErrBusy
	}

	requestID := uuid.NewString()
	ctx = client.WithRequestID(ctx, requestID)
	c.logger.Info(ctx, "requesting otp", "request_id", requestID)

	ch, err := c.client.RequestOTP(ctx)
	c.record(ctx, models.ActionRequestOTP, err, requestID)
	if err != nil {
		c.logger.Warn(ctx, "otp request failed", "request_id", requestID, "err", err)
		if errors.Is(err, client.ErrUnauthorized) {
			c.emit(Event{Kind: EventSessionExpired, Level: LevelError, Message: Describe(err), Err: err})
		} else if !errors.Is(err, context.Canceled) {
			c.emit(Event{Kind: EventOTPRequestFailed, Level: LevelError, Message: "Could not send OTP: " + Describe(err), Err: err})
		}
		return client.OTPChallenge{}, err
	}

	if ch.RequestedAt.IsZero() {
		ch.RequestedAt = c.now()
	}

	c.mu.Lock()
	// A refresh dispatched while this request was in flight owns the state.
	if c.state != StateRefreshing {
		c.state = StateOTPRequested
		c.code = ""
		c.requestedAt = ch.RequestedAt
		c.restartTimerLocked()
	}
	c.mu.Unlock()

	msg := ch.Message
	if msg == "" {
		msg = "OTP sent to the registered phone"
	}
	c.emit(Event{Kind: EventOTPRequested, Level: LevelInfo, Message: msg})
	return ch, nil
}

// Resend requests a new OTP while one is pending. The new challenge
// supersedes the old one.
func (c *Controller) Resend(ctx context.Context) (client.OTPChallenge, error) {
	if c.State() != StateOTPRequested {
		return client.OTPChallenge{}, ErrNoChallenge
	}
	return c.RequestOTP(ctx)
}

// Refresh filters input to digits, validates it locally and submits it. On
// success the flow returns to idle and the status is re-read before Refresh
// returns. On rejection the flow stays in otp_requested.
func (c *Controller) Refresh(ctx context.Context, input string) (*time.Time, error) {
	code := FilterOTP(input)

	c.mu.Lock()
	switch {
	case c.closed:
		c.mu.Unlock()
		return nil, ErrClosed
	case c.state == StateIdle:
		c.mu.Unlock()
		return nil, ErrNoChallenge
	case c.state == StateRefreshing || c.inflight[models.ActionRefresh]:
		c.mu.Unlock()
		return nil, ErrBusy
	}
	c.code = code
	if err := ValidateOTP(code); err != nil {
		c.mu.Unlock()
		c.record(ctx, models.ActionRefresh, err, "")
		c.emit(Event{Kind: EventOTPInvalidFormat, Level: LevelWarn, Message: Describe(err), Err: err})
		return nil, err
	}
	c.state = StateRefreshing
	c.inflight[models.ActionRefresh] = true
	c.mu.Unlock()
	defer c.end(models.ActionRefresh)

	requestID := uuid.NewString()
	ctx = client.WithRequestID(ctx, requestID)
	c.logger.Info(ctx, "submitting otp", "request_id", requestID)

	expiresAt, err := c.client.RefreshToken(ctx, code)
	c.record(ctx, models.ActionRefresh, err, requestID)
	if err != nil {
		c.mu.Lock()
		c.state = StateOTPRequested
		c.mu.Unlock()

		c.logger.Warn(ctx, "token refresh failed", "request_id", requestID, "err", err)
		switch {
		case errors.Is(err, client.ErrUnauthorized):
			c.emit(Event{Kind: EventSessionExpired, Level: LevelError, Message: Describe(err), Err: err})
		case errors.Is(err, context.Canceled):
		default:
			c.emit(Event{Kind: EventTokenRefreshError, Level: LevelError, Message: Describe(err), Err: err})
		}
		return nil, err
	}

	c.mu.Lock()
	c.state = StateIdle
	c.code = ""
	c.requestedAt = time.Time{}
	c.stopTimerLocked()
	c.mu.Unlock()

	c.logger.Info(ctx, "token refreshed", "request_id", requestID)

	var fresh *models.TokenStatus
	if c.checker != nil {
		if st, cerr := c.checker.CheckNow(ctx); cerr == nil {
			fresh = &st
			if expiresAt == nil {
				expiresAt = st.ExpiresAt
			}
		}
	}

	msg := "Token refreshed"
	if expiresAt != nil {
		msg += ". " + ValidUntil(*expiresAt, c.loc)
	}
	c.emit(Event{Kind: EventTokenRefreshed, Level: LevelInfo, Message: msg, Status: fresh})

	if c.history != nil {
		_ = c.history.Invalidate(ctx)
	}
	return expiresAt, nil
}

// Cancel abandons a pending challenge without contacting the server. A
// refresh already dispatched cannot be cancelled.
func (c *Controller) Cancel(ctx context.Context) error {
	c.mu.Lock()
	switch c.state {
	case StateRefreshing:
		c.mu.Unlock()
		return ErrBusy
	case StateIdle:
		c.mu.Unlock()
		return nil
	}
	c.state = StateIdle
	c.code = ""
	c.requestedAt = time.Time{}
	c.stopTimerLocked()
	c.mu.Unlock()

	c.record(ctx, models.ActionCancel, context.Canceled, "")
	c.emit(Event{Kind: EventCancelled, Level: LevelInfo, Message: "OTP entry cancelled"})
	return nil
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Busy reports whether action is in flight.
func (c *Controller) Busy(action models.Action) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inflight[action]
}

// PendingCode is the last filtered code entered for the current challenge.
func (c *Controller) PendingCode() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.code
}

// OTPAge is the time since the current challenge was requested.
func (c *Controller) OTPAge(now time.Time) (time.Duration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateIdle || c.requestedAt.IsZero() {
		return 0, false
	}
	return now.Sub(c.requestedAt), true
}

// Close stops the advisory timer and rejects further operations.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.stopTimerLocked()
}

func (c *Controller) restartTimerLocked() {
	c.stopTimerLocked()
	gen := c.timerGen
	c.timer = time.AfterFunc(c.window, func() { c.windowElapsed(gen) })
}

func (c *Controller) stopTimerLocked() {
	c.timerGen++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Controller) windowElapsed(gen uint64) {
	c.mu.Lock()
	current := gen == c.timerGen && !c.closed && c.state != StateIdle
	c.mu.Unlock()
	if !current {
		return
	}
	c.emit(Event{Kind: EventOTPWindowElapsed, Level: LevelWarn,
		Message: "The OTP may have expired. Request a new code if refresh fails"})
}

func (c *Controller) record(ctx context.Context, action models.Action, err error, requestID string) {
	if c.journal == nil {
		return
	}
	if _, jerr := c.journal.Record(context.WithoutCancel(ctx), action, err, requestID); jerr != nil {
		c.logger.Warn(ctx, "journal write failed", "action", action, "err", jerr)
	}
}

func (c *Controller) emit(e Event) {
	e.At = c.now()
	c.notify.Notify(e)
}
