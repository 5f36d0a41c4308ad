package models

import (
	"time"
)

// StateKind names a TokenState variant as the admin API reports it.
type StateKind string

const (
	KindNoToken StateKind = "no_token"
	KindActive  StateKind = "active"
	KindExpired StateKind = "expired"
)

// TokenState is a tagged variant: exactly one of NoToken, Active, Expired.
type TokenState interface {
	Kind() StateKind
	isTokenState()
}

// NoToken means no Telecel session token has ever been issued.
type NoToken struct{}

// Active is a token whose validity window has not yet closed.
type Active struct {
	ExpiresAt time.Time
}

// Expired is a token whose validity window closed at ExpiresAt.
type Expired struct {
	ExpiresAt time.Time
}

func (NoToken) Kind() StateKind { return KindNoToken }
func (Active) Kind() StateKind  { return KindActive }
func (Expired) Kind() StateKind { return KindExpired }

func (NoToken) isTokenState() {}
func (Active) isTokenState()  {}
func (Expired) isTokenState() {}

// DeriveState computes the token state from its expiry. A nil or zero expiry
// means there is no token. The boundary instant counts as expired.
func DeriveState(expiresAt *time.Time, now time.Time) TokenState {
	if expiresAt == nil || expiresAt.IsZero() {
		return NoToken{}
	}
	if now.Before(*expiresAt) {
		return Active{ExpiresAt: *expiresAt}
	}
	return Expired{ExpiresAt: *expiresAt}
}

// StateOf rebuilds a TokenState from a stored kind. Unknown kinds read as
// NoToken.
func StateOf(kind StateKind, expiresAt *time.Time) TokenState {
	var at time.Time
	if expiresAt != nil {
		at = *expiresAt
	}
	switch kind {
	case KindActive:
		return Active{ExpiresAt: at}
	case KindExpired:
		return Expired{ExpiresAt: at}
	default:
		return NoToken{}
	}
}

// Remaining is the validity left at now; zero unless the state is Active.
func Remaining(state TokenState, now time.Time) time.Duration {
	if a, ok := state.(Active); ok {
		return a.ExpiresAt.Sub(now)
	}
	return 0
}

// NeedsRefresh reports whether the operator should refresh now: the token is
// expired, or active with less than threshold remaining. With no token there
// is nothing to refresh yet.
func NeedsRefresh(state TokenState, now time.Time, threshold time.Duration) bool {
	switch s := state.(type) {
	case Expired:
		return true
	case Active:
		return s.ExpiresAt.Sub(now) < threshold
	default:
		return false
	}
}

// LastError is the most recent failed refresh as recorded by the server.
type LastError struct {
	Message    string
	OccurredAt time.Time
}

// TokenStatus is one observation of the managed Telecel token.
type TokenStatus struct {
	State          TokenState
	Token          string
	ExpiresAt      *time.Time
	HoursRemaining float64
	NeedsRefresh   bool
	LastError      *LastError
	CheckedAt      time.Time
}

// MaskedToken shows only the first and last four characters of the token.
// Short tokens are masked entirely.
func (s TokenStatus) MaskedToken() string {
	return MaskToken(s.Token)
}

// MaskToken is the masking rule behind TokenStatus.MaskedToken.
func MaskToken(token string) string {
	const keep = 4
	if token == "" {
		return ""
	}
	r := []rune(token)
	if len(r) < 3*keep {
		return "••••••••"
	}
	return string(r[:keep]) + "••••••••" + string(r[len(r)-keep:])
}

// SameToken reports whether two observations refer to the same issued token.
func (s TokenStatus) SameToken(other TokenStatus) bool {
	if s.Token != other.Token {
		return false
	}
	if s.ExpiresAt == nil || other.ExpiresAt == nil {
		return s.ExpiresAt == nil && other.ExpiresAt == nil
	}
	return s.ExpiresAt.Equal(*other.ExpiresAt)
}
