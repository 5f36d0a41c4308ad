package client

import (
	"context"
	"time"

	"github.com/dmitrijs2005/tokenkeeper/internal/client/models"
)

// Client is the transport contract of the admin API's Telecel token
// endpoints. Implementations must read the operator credential on every call.
type Client interface {
	TokenStatus(ctx context.Context) (models.TokenStatus, error)
	RequestOTP(ctx context.Context) (OTPChallenge, error)
	RefreshToken(ctx context.Context, otpCode string) (*time.Time, error)
	TokenHistory(ctx context.Context) ([]models.HistoryEntry, error)
	Ping(ctx context.Context) error
	Close() error
}

// OTPChallenge is the server's acknowledgement that an OTP SMS was sent.
type OTPChallenge struct {
	Message     string
	RequestedAt time.Time
}

// Endpoint paths, relative to the configured base URL.
const (
	PathTokenStatus = "/admin/telecel/token/status"
	PathRequestOTP  = "/admin/telecel/token/request-otp"
	PathRefresh     = "/admin/telecel/token/refresh"
	PathHistory     = "/admin/telecel/token/history"
	PathHealth      = "/health"
)

type requestIDKey struct{}

// WithRequestID pins the request id the next call will send, so callers can
// journal the same id the server logs.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the id set by WithRequestID, if any.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
