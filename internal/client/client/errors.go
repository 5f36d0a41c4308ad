package client

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrUnavailable covers network failures, timeouts and 5xx responses.
	ErrUnavailable = errors.New("server unavailable")
	// ErrUnauthorized means the operator's own session is missing or invalid.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrOTPRejected means the server refused the submitted OTP code.
	ErrOTPRejected = errors.New("otp rejected")
	// ErrRejected is any other domain-level refusal ({success:false}, 4xx).
	ErrRejected = errors.New("request rejected")
	// ErrMalformedResponse means a 2xx body could not be decoded.
	ErrMalformedResponse = errors.New("malformed response")
)

// RemoteError is a classified failure reported by the admin API.
type RemoteError struct {
	Status    int
	Message   string
	RequestID string
	Err       error
}

func (e *RemoteError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	return fmt.Sprintf("%s (status %d): %s", e.Err, e.Status, msg)
}

func (e *RemoteError) Unwrap() error { return e.Err }

// sessionHints mark a 401 from the refresh endpoint as an operator session
// failure rather than an OTP rejection. Generic words such as
// "unauthorized" or "authentication" are left out: OTP rejections use them too.
var sessionHints = []string{"session", "jwt", "login", "log in", "bearer"}

func mentionsSession(msg string) bool {
	m := strings.ToLower(msg)
	for _, h := range sessionHints {
		if strings.Contains(m, h) {
			return true
		}
	}
	return false
}

// classify maps an HTTP outcome to a sentinel. success reports the body's
// success flag when present (true when absent).
func classify(path string, status int, success bool, msg string) error {
	refresh := path == PathRefresh

	switch {
	case status == http.StatusUnauthorized:
		if refresh && !mentionsSession(msg) {
			return ErrOTPRejected
		}
		return ErrUnauthorized
	case status == http.StatusForbidden:
		return ErrUnauthorized
	case status >= 500:
		return ErrUnavailable
	case status >= 400:
		if refresh && (status == http.StatusBadRequest || status == http.StatusUnprocessableEntity || status == http.StatusGone) {
			return ErrOTPRejected
		}
		return ErrRejected
	case !success:
		if refresh {
			return ErrOTPRejected
		}
		return ErrRejected
	default:
		return nil
	}
}
