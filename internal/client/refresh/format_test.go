package refresh

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/tokenkeeper/internal/client/client"
	"github.com/dmitrijs2005/tokenkeeper/internal/client/models"
	"github.com/stretchr/testify/assert"
)

func TestValidUntil(t *testing.T) {
	exp := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "Valid until Jun 1, 2024, 12:00 PM", ValidUntil(exp, time.UTC))

	accra := time.FixedZone("GMT+1", 3600)
	assert.Equal(t, "Valid until Jun 1, 2024, 1:00 PM", ValidUntil(exp, accra))
}

func TestHoursLeft(t *testing.T) {
	assert.Equal(t, "1h 30m left", HoursLeft(1.5))
	assert.Equal(t, "0h 05m left", HoursLeft(5.0/60))
	assert.Equal(t, "expired", HoursLeft(0))
}

func TestStatusLine(t *testing.T) {
	exp := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "No token issued yet", StatusLine(models.TokenStatus{State: models.NoToken{}}, time.UTC))
	assert.Equal(t, "Token active, Valid until Jun 1, 2024, 12:00 PM (3h 00m left)",
		StatusLine(models.TokenStatus{State: models.Active{ExpiresAt: exp}, ExpiresAt: &exp, HoursRemaining: 3}, time.UTC))
	assert.Equal(t, "Token expired at Jun 1, 2024, 12:00 PM",
		StatusLine(models.TokenStatus{State: models.Expired{ExpiresAt: exp}, ExpiresAt: &exp}, time.UTC))
	assert.Equal(t, "Token status unknown", StatusLine(models.TokenStatus{}, time.UTC))
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{ErrInvalidOTPFormat, "OTP must be exactly 6 digits"},
		{ErrBusy, "Another request is already in progress"},
		{ErrNoChallenge, "Request an OTP first"},
		{context.Canceled, "Cancelled"},
		{&client.RemoteError{Status: 401, Err: client.ErrOTPRejected}, "Invalid OTP code. Re-enter it or request a new code"},
		{&client.RemoteError{Status: 401, Err: client.ErrUnauthorized}, "Session expired. Please log in again"},
		{&client.RemoteError{Status: 503, Err: client.ErrUnavailable}, "Failed to reach server"},
		{&client.RemoteError{Status: 200, Message: "SMS quota exceeded", Err: client.ErrRejected}, "SMS quota exceeded"},
		{&client.RemoteError{Status: 409, Err: client.ErrRejected}, "Request rejected by server"},
		{errors.New("boom"), "boom"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Describe(tt.err))
	}
}
