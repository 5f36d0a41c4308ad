package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/tokenkeeper/internal/client/credentials"
	"github.com/dmitrijs2005/tokenkeeper/internal/client/models"
	"github.com/dmitrijs2005/tokenkeeper/internal/common"
	"github.com/dmitrijs2005/tokenkeeper/internal/logging"
	"github.com/google/uuid"
)

const maxBodySize = 1 << 20

// DefaultTimeout bounds every call when no timeout is configured.
const DefaultTimeout = 30 * time.Second

// HTTPClient talks JSON over HTTPS to the admin API.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
	creds      credentials.Provider
	logger     logging.Logger
	timeout    time.Duration
	now        func() time.Time
}

// Option customises an HTTPClient.
type Option func(*HTTPClient)

// WithHTTPClient replaces the underlying *http.Client (tests, proxies).
func WithHTTPClient(c *http.Client) Option {
	return func(h *HTTPClient) { h.httpClient = c }
}

// WithLogger sets the trace logger.
func WithLogger(l logging.Logger) Option {
	return func(h *HTTPClient) { h.logger = l }
}

// WithTimeout bounds each call; zero or negative keeps the default.
func WithTimeout(d time.Duration) Option {
	return func(h *HTTPClient) {
		if d > 0 {
			h.timeout = d
		}
	}
}

// WithClock overrides time.Now for derived status fields.
func WithClock(now func() time.Time) Option {
	return func(h *HTTPClient) { h.now = now }
}

// NewHTTPClient validates baseURL and builds a client that reads the bearer
// token from creds on every call.
func NewHTTPClient(baseURL string, creds credentials.Provider, opts ...Option) (*HTTPClient, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base url %q: scheme must be http or https", baseURL)
	}
	if creds == nil {
		return nil, errors.New("credentials provider is required")
	}

	c := &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		creds:      creds,
		logger:     logging.Nop(),
		timeout:    DefaultTimeout,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// response is a completed exchange.
type response struct {
	status    int
	body      []byte
	env       envelope
	requestID string
}

func (c *HTTPClient) do(ctx context.Context, method, path string, in any, authed bool) (*response, error) {
	requestID := RequestIDFromContext(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
	}

	var bearer string
	if authed {
		tok, err := c.creds.BearerToken(ctx)
		if err != nil {
			return nil, &RemoteError{Status: http.StatusUnauthorized, Message: err.Error(), RequestID: requestID, Err: ErrUnauthorized}
		}
		bearer = tok
	}

	var body io.Reader = http.NoBody
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", method, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(common.RequestIDHeaderName, requestID)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+bearer)
	}

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug(ctx, "admin api call failed", "method", method, "path", path, "request_id", requestID, "err", err)
		return nil, transportError(requestID, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, transportError(requestID, err)
	}

	c.logger.Debug(ctx, "admin api call",
		"method", method, "path", path, "request_id", requestID,
		"status", resp.StatusCode, "duration", time.Since(started))

	r := &response{status: resp.StatusCode, body: raw, env: parseEnvelope(raw), requestID: requestID}

	if kind := classify(path, r.status, r.env.ok(), r.env.text()); kind != nil {
		return r, &RemoteError{Status: r.status, Message: r.env.text(), RequestID: requestID, Err: kind}
	}
	return r, nil
}

// transportError distinguishes a caller's cancellation from an unreachable
// server. Deadline expiry of the per-call timeout counts as unavailable.
func transportError(requestID string, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	var netErr net.Error
	msg := err.Error()
	if errors.As(err, &netErr) && netErr.Timeout() {
		msg = "request timed out"
	}
	return &RemoteError{Status: 0, Message: msg, RequestID: requestID, Err: ErrUnavailable}
}

// TokenStatus fetches the current Telecel token status.
func (c *HTTPClient) TokenStatus(ctx context.Context) (models.TokenStatus, error) {
	r, err := c.do(ctx, http.MethodGet, PathTokenStatus, nil, true)
	if err != nil {
		return models.TokenStatus{}, err
	}

	var dto statusDTO
	if err := json.Unmarshal(payload(r.body, r.env), &dto); err != nil {
		return models.TokenStatus{}, fmt.Errorf("%w: token status: %v", ErrMalformedResponse, err)
	}
	return dto.toModel(c.now()), nil
}

// RequestOTP asks the server to send an OTP SMS to the registered phone.
func (c *HTTPClient) RequestOTP(ctx context.Context) (OTPChallenge, error) {
	r, err := c.do(ctx, http.MethodPost, PathRequestOTP, nil, true)
	if err != nil {
		return OTPChallenge{}, err
	}
	return OTPChallenge{Message: r.env.Message, RequestedAt: c.now()}, nil
}

// RefreshToken submits otpCode and returns the new token expiry, when the
// server reports one.
func (c *HTTPClient) RefreshToken(ctx context.Context, otpCode string) (*time.Time, error) {
	r, err := c.do(ctx, http.MethodPost, PathRefresh, refreshRequest{OTPCode: otpCode}, true)
	if err != nil {
		return nil, err
	}

	for _, candidate := range [][]byte{r.body, payload(r.body, r.env)} {
		candidate = bytes.TrimSpace(candidate)
		if len(candidate) == 0 || candidate[0] != '{' {
			continue
		}
		var dto refreshDTO
		if err := json.Unmarshal(candidate, &dto); err != nil {
			return nil, fmt.Errorf("%w: refresh: %v", ErrMalformedResponse, err)
		}
		if dto.ExpiresAt.ptr() != nil {
			return dto.ExpiresAt.ptr(), nil
		}
	}
	return nil, nil
}

// TokenHistory fetches the refresh audit trail, newest first as served.
func (c *HTTPClient) TokenHistory(ctx context.Context) ([]models.HistoryEntry, error) {
	r, err := c.do(ctx, http.MethodGet, PathHistory, nil, true)
	if err != nil {
		return nil, err
	}

	list, err := decodeHistory(r.body)
	if err != nil {
		return nil, fmt.Errorf("%w: history: %v", ErrMalformedResponse, err)
	}

	entries := make([]models.HistoryEntry, 0, len(list))
	for _, d := range list {
		entries = append(entries, d.toModel())
	}
	return entries, nil
}

// Ping checks reachability without credentials.
func (c *HTTPClient) Ping(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, PathHealth, nil, false)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return err
}

// Close releases idle connections.
func (c *HTTPClient) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}
