package refresh

import (
	"time"

	"github.com/dmitrijs2005/tokenkeeper/internal/client/models"
)

// EventKind identifies an operator notification.
type EventKind string

const (
	EventOTPRequested      EventKind = "otp_requested"
	EventOTPRequestFailed  EventKind = "otp_request_failed"
	EventOTPInvalidFormat  EventKind = "otp_invalid_format"
	EventOTPWindowElapsed  EventKind = "otp_window_elapsed"
	EventTokenRefreshed    EventKind = "token_refreshed"
	EventTokenRefreshError EventKind = "token_refresh_failed"
	EventSessionExpired    EventKind = "session_expired"
	EventStatusUpdated     EventKind = "status_updated"
	EventStatusFailed      EventKind = "status_failed"
	EventRefreshSoon       EventKind = "refresh_soon"
	EventHistoryLoaded     EventKind = "history_loaded"
	EventHistoryFailed     EventKind = "history_failed"
	EventCancelled         EventKind = "cancelled"
)

// Level is the severity the presentation layer should render with.
type Level string

const (
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Event is a typed notification. Status is set for status and refresh
// events when a fresh observation is available.
type Event struct {
	Kind    EventKind
	Level   Level
	Message string
	At      time.Time
	Err     error
	Status  *models.TokenStatus
}

// Notifier receives events. Implementations must not block for long; they
// are called from the goroutine that produced the event.
type Notifier interface {
	Notify(Event)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Event)

func (f NotifierFunc) Notify(e Event) { f(e) }

type nopNotifier struct{}

func (nopNotifier) Notify(Event) {}
