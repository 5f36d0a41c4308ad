package sandbox

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/tokenkeeper/internal/logging"
	"github.com/go-playground/validator/v10"
)

const shutdownTimeout = 5 * time.Second

// Server serves the sandbox admin API.
type Server struct {
	cfg      *Config
	logger   logging.Logger
	state    *state
	validate *validator.Validate
	handler  http.Handler
}

type Option func(*Server)

// WithClock overrides time.Now for OTP and token expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.state.now = now }
}

func NewServer(cfg *Config, logger logging.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = logging.Nop()
	}
	s := &Server{
		cfg:      cfg,
		logger:   logger,
		state:    newState(cfg, time.Now),
		validate: newValidator(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.handler = s.routes()
	return s
}

// Handler returns the router; httptest servers mount it directly.
func (s *Server) Handler() http.Handler { return s.handler }

// Run listens on cfg.Addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is Run over an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "sandbox listening", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info(context.Background(), "sandbox shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	<-errCh
	return nil
}
