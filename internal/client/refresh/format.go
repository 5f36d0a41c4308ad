package refresh

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/dmitrijs2005/tokenkeeper/internal/client/client"
	"github.com/dmitrijs2005/tokenkeeper/internal/client/models"
)

// ValidUntilLayout renders expiries like "Jun 1, 2024, 12:00 PM".
const ValidUntilLayout = "Jan 2, 2006, 3:04 PM"

// ValidUntil is the confirmation line shown after a refresh.
func ValidUntil(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return "Valid until " + t.In(loc).Format(ValidUntilLayout)
}

// HoursLeft renders a remaining-validity figure such as "1h 30m left".
func HoursLeft(hours float64) string {
	if hours <= 0 {
		return "expired"
	}
	total := int(math.Round(hours * 60))
	return fmt.Sprintf("%dh %02dm left", total/60, total%60)
}

// StatusLine summarises a status for the operator.
func StatusLine(st models.TokenStatus, loc *time.Location) string {
	if st.State == nil {
		return "Token status unknown"
	}
	switch st.State.Kind() {
	case models.KindActive:
		line := "Token active"
		if st.ExpiresAt != nil {
			line += ", " + ValidUntil(*st.ExpiresAt, loc)
		}
		return line + " (" + HoursLeft(st.HoursRemaining) + ")"
	case models.KindExpired:
		if st.ExpiresAt != nil {
			return "Token expired at " + st.ExpiresAt.In(orLocal(loc)).Format(ValidUntilLayout)
		}
		return "Token expired"
	default:
		return "No token issued yet"
	}
}

func orLocal(loc *time.Location) *time.Location {
	if loc == nil {
		return time.Local
	}
	return loc
}

// Describe turns an operation error into an operator instruction.
func Describe(err error) string {
	var remote *client.RemoteError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidOTPFormat):
		return fmt.Sprintf("OTP must be exactly %d digits", OTPLength)
	case errors.Is(err, ErrBusy):
		return "Another request is already in progress"
	case errors.Is(err, ErrNoChallenge):
		return "Request an OTP first"
	case errors.Is(err, ErrClosed):
		return "Session closed"
	case errors.Is(err, context.Canceled):
		return "Cancelled"
	case errors.Is(err, client.ErrOTPRejected):
		return "Invalid OTP code. Re-enter it or request a new code"
	case errors.Is(err, client.ErrUnauthorized):
		return "Session expired. Please log in again"
	case errors.Is(err, client.ErrUnavailable):
		return "Failed to reach server"
	case errors.As(err, &remote) && remote.Message != "":
		return remote.Message
	case errors.Is(err, client.ErrRejected):
		return "Request rejected by server"
	default:
		return err.Error()
	}
}
