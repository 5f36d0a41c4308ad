package cli

import (
	"bufio"
	"context"
	"database/sql"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/tokenkeeper/internal/client/client"
	"github.com/dmitrijs2005/tokenkeeper/internal/client/config"
	"github.com/dmitrijs2005/tokenkeeper/internal/client/credentials"
	"github.com/dmitrijs2005/tokenkeeper/internal/client/refresh"
	"github.com/dmitrijs2005/tokenkeeper/internal/client/services"
	"github.com/dmitrijs2005/tokenkeeper/internal/logging"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type App struct {
	config *config.Config
	logger logging.Logger
	loc    *time.Location
	db     *sql.DB
	creds  *credentials.Store

	authService services.AuthService
	journal     services.JournalService
	cache       services.StatusCache

	controller *refresh.Controller
	poller     *refresh.Poller
	history    *refresh.HistoryViewer

	reader *bufio.Reader
	out    io.Writer

	mu       sync.RWMutex
	mode     Mode
	operator string
	stopPoll func()
}

// NewApp opens the local database, builds the admin API client and wires
// the refresh flow. The operator credential is read from the returned
// App's store on every request.
func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	loc, err := c.Location()
	if err != nil {
		return nil, err
	}

	db, err := client.InitDatabase(ctx, c.DatabasePath)
	if err != nil {
		logger.Error(ctx, "error initializing database", "path", c.DatabasePath, "err", err)
		return nil, err
	}

	creds := credentials.NewStore(c.BearerToken)
	apiClient, err := client.NewHTTPClient(c.ServerBaseURL, creds,
		client.WithLogger(logger.With("component", "api")),
		client.WithTimeout(c.RequestTimeout),
	)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	a := assemble(c, logger, loc, db, apiClient, creds, os.Stdin, os.Stdout)
	return a, nil
}

// assemble wires everything around an already built client and database.
func assemble(c *config.Config, logger logging.Logger, loc *time.Location, db *sql.DB,
	apiClient client.Client, creds *credentials.Store, in io.Reader, out io.Writer) *App {

	a := &App{
		config: c,
		logger: logger,
		loc:    loc,
		db:     db,
		creds:  creds,
		reader: bufio.NewReader(in),
		out:    out,
		mode:   ModeOffline,
	}

	a.authService = services.NewAuthService(apiClient, db)
	a.journal = services.NewJournalService(db, a.Operator)
	a.cache = services.NewStatusCache(db)

	notifier := newRenderer()

	a.poller = refresh.NewPoller(apiClient,
		refresh.WithPollInterval(c.StatusPollInterval),
		refresh.WithRefreshThreshold(c.RefreshThreshold),
		refresh.WithStatusStore(a.cache),
		refresh.WithPollerNotifier(notifier),
		refresh.WithPollerLogger(logger.With("component", "poller")),
		refresh.WithPollerLocation(loc),
	)
	a.history = refresh.NewHistoryViewer(apiClient,
		refresh.WithHistoryNotifier(notifier),
		refresh.WithHistoryLogger(logger.With("component", "history")),
	)
	a.controller = refresh.NewController(apiClient, a.poller,
		refresh.WithNotifier(notifier),
		refresh.WithHistory(a.history),
		refresh.WithJournal(a.journal),
		refresh.WithLogger(logger.With("component", "controller")),
		refresh.WithOTPWindow(c.OTPAdvisoryWindow),
		refresh.WithLocation(loc),
	)
	return a
}

func (a *App) setMode(mode Mode) {
	a.mu.Lock()
	changed := a.mode != mode
	a.mode = mode
	a.mu.Unlock()

	if changed {
		a.logger.Info(context.Background(), "connectivity changed", "mode", mode)
		printlnFn("Switched to", mode, "mode")
	}
}

func (a *App) Mode() Mode {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.mode
}

// Operator is the identity shown in the prompt and written to the journal.
func (a *App) Operator() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.operator
}

func (a *App) setOperator(name string) {
	a.mu.Lock()
	a.operator = name
	a.mu.Unlock()
}

func (a *App) isLoggedIn() bool {
	return a.creds != nil && a.creds.Present()
}

// Run restores the session, starts background work and blocks in the REPL
// until the operator exits or ctx ends.
func (a *App) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer a.Close(context.Background())

	printlnFn("Welcome to tokenkeeper (type 'help' for commands)")

	a.restoreSession(ctx)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		a.StartOnlineStatusWatcher(ctx, a.config.OnlineCheckInterval)
	}()

	runREPL(ctx, a, a.getStatus, a.reader)

	cancel()
	wg.Wait()
}

// Close stops background work and releases the client and database.
func (a *App) Close(ctx context.Context) {
	a.stopPolling()
	a.controller.Close()
	if err := a.authService.Close(ctx); err != nil {
		a.logger.Warn(ctx, "closing api client", "err", err)
	}
	if err := a.db.Close(); err != nil {
		a.logger.Warn(ctx, "closing database", "err", err)
	}
}

func (a *App) startPolling(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.stopPoll != nil {
		return
	}
	a.stopPoll = a.poller.Start(ctx)
}

func (a *App) stopPolling() {
	a.mu.Lock()
	stop := a.stopPoll
	a.stopPoll = nil
	a.mu.Unlock()
	if stop != nil {
		stop()
	}
}

// StartOnlineStatusWatcher pings the admin API every interval and flips the
// connectivity mode shown in the prompt.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		a.probe(ctx)
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) probe(ctx context.Context) {
	pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := a.authService.Ping(pctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		a.setMode(ModeOffline)
		return
	}
	a.setMode(ModeOnline)
}

// getStatus is the prompt summary: operator, connectivity and flow state.
func (a *App) getStatus() string {
	who := a.Operator()
	if !a.isLoggedIn() {
		who = "not logged in"
	} else if who == "" {
		who = "operator"
	}

	parts := []string{who, string(a.Mode())}
	switch a.controller.State() {
	case refresh.StateOTPRequested:
		parts = append(parts, "otp pending")
	case refresh.StateRefreshing:
		parts = append(parts, "refreshing")
	}
	if st, ok := a.poller.Last(); ok && st.NeedsRefresh {
		parts = append(parts, "refresh due")
	}
	return "(" + strings.Join(parts, " | ") + ")"
}
