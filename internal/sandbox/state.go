package sandbox

import (
	"encoding/hex"
	"errors"
	"sync"
	"time"

	"github.com/dmitrijs2005/tokenkeeper/internal/common"
)

var (
	errNoOTPRequested = errors.New("no otp requested")
	errOTPExpired     = errors.New("otp expired")
	errInvalidOTP     = errors.New("invalid otp")
)

// rejectionMessages are the texts the admin API answers refresh failures with.
var rejectionMessages = map[error]string{
	errNoOTPRequested: "No OTP requested. Request a new code first",
	errOTPExpired:     "OTP has expired. Request a new code",
	errInvalidOTP:     "Invalid OTP",
}

// historyEntry mirrors one row of the refresh audit trail.
type historyEntry struct {
	CreatedAt       time.Time
	ExpiresAt       time.Time
	IsActive        bool
	LastRefreshedBy string
	RefreshCount    int
}

type lastError struct {
	Message    string
	OccurredAt time.Time
}

// state is the sandbox's single managed Telecel token.
type state struct {
	mu  sync.Mutex
	now func() time.Time

	otpCode     string
	otpValidity time.Duration
	tokenTTL    time.Duration

	token     string
	expiresAt time.Time
	lastErr   *lastError

	otpIssuedAt time.Time
	history     []historyEntry
}

func newState(cfg *Config, now func() time.Time) *state {
	return &state{
		now:         now,
		otpCode:     cfg.OTPCode,
		otpValidity: cfg.OTPValidity,
		tokenTTL:    cfg.TokenValidity,
	}
}

type statusView struct {
	Token          string
	ExpiresAt      time.Time
	Remaining      time.Duration
	Status         string
	LastError      *lastError
}

func (s *state) status() statusView {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := statusView{Token: s.token, ExpiresAt: s.expiresAt, LastError: s.lastErr}
	now := s.now()
	switch {
	case s.token == "":
		v.Status = "no_token"
	case now.Before(s.expiresAt):
		v.Status = "active"
		v.Remaining = s.expiresAt.Sub(now)
	default:
		v.Status = "expired"
	}
	return v
}

// requestOTP arms a new challenge; a previous one is superseded.
func (s *state) requestOTP() {
	s.mu.Lock()
	s.otpIssuedAt = s.now()
	s.mu.Unlock()
}

// refresh checks code against the pending challenge and, on success, issues
// a new token and rotates the active history entry.
func (s *state) refresh(code, operator string) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	switch {
	case s.otpIssuedAt.IsZero():
		return time.Time{}, errNoOTPRequested
	case now.Sub(s.otpIssuedAt) > s.otpValidity:
		s.otpIssuedAt = time.Time{}
		s.recordErrorLocked(errOTPExpired, now)
		return time.Time{}, errOTPExpired
	case code != s.otpCode:
		s.recordErrorLocked(errInvalidOTP, now)
		return time.Time{}, errInvalidOTP
	}

	s.otpIssuedAt = time.Time{}
	s.token = newTelecelToken()
	s.expiresAt = now.Add(s.tokenTTL)
	s.lastErr = nil

	count := 1
	for i := range s.history {
		if s.history[i].IsActive {
			count = s.history[i].RefreshCount + 1
			s.history[i].IsActive = false
		}
	}
	s.history = append(s.history, historyEntry{
		CreatedAt:       now,
		ExpiresAt:       s.expiresAt,
		IsActive:        true,
		LastRefreshedBy: operator,
		RefreshCount:    count,
	})
	return s.expiresAt, nil
}

func (s *state) recordErrorLocked(err error, at time.Time) {
	s.lastErr = &lastError{Message: rejectionMessages[err], OccurredAt: at}
}

// historyNewestFirst returns a copy of the trail, newest entry first.
func (s *state) historyNewestFirst() []historyEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]historyEntry, 0, len(s.history))
	for i := len(s.history) - 1; i >= 0; i-- {
		out = append(out, s.history[i])
	}
	return out
}

func newTelecelToken() string {
	return "tcl_" + hex.EncodeToString(common.GenerateRandByteArray(24))
}
