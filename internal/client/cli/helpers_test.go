package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/tokenkeeper/internal/client/client"
	"github.com/dmitrijs2005/tokenkeeper/internal/client/config"
	"github.com/dmitrijs2005/tokenkeeper/internal/client/credentials"
	"github.com/dmitrijs2005/tokenkeeper/internal/client/models"
	"github.com/dmitrijs2005/tokenkeeper/internal/logging"
	"github.com/stretchr/testify/require"
)

// ---- output capture ----

type outputSink struct {
	mu    sync.Mutex
	lines []string
}

func captureOutput(t *testing.T) *outputSink {
	t.Helper()
	s := &outputSink{}
	orig := printlnFn
	printlnFn = func(a ...any) (int, error) {
		line := strings.TrimSuffix(fmt.Sprintln(a...), "\n")
		s.mu.Lock()
		s.lines = append(s.lines, line)
		s.mu.Unlock()
		return len(line), nil
	}
	t.Cleanup(func() { printlnFn = orig })
	return s
}

func (s *outputSink) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return strings.Join(s.lines, "\n")
}

func (s *outputSink) Reset() {
	s.mu.Lock()
	s.lines = nil
	s.mu.Unlock()
}

// ---- fake api client ----

type fakeAPI struct {
	mu sync.Mutex

	Status     models.TokenStatus
	StatusErr  error
	OTPErr     error
	RefreshErr error
	RefreshAt  *time.Time
	History    []models.HistoryEntry
	PingErr    error

	calls []string
	codes []string
}

func (f *fakeAPI) log(name string) {
	f.mu.Lock()
	f.calls = append(f.calls, name)
	f.mu.Unlock()
}

func (f *fakeAPI) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeAPI) count(name string) int {
	n := 0
	for _, c := range f.Calls() {
		if c == name {
			n++
		}
	}
	return n
}

func (f *fakeAPI) TokenStatus(context.Context) (models.TokenStatus, error) {
	f.log("status")
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Status, f.StatusErr
}

func (f *fakeAPI) RequestOTP(context.Context) (client.OTPChallenge, error) {
	f.log("request-otp")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.OTPErr != nil {
		return client.OTPChallenge{}, f.OTPErr
	}
	return client.OTPChallenge{Message: "OTP sent to +233 ** *** 4567"}, nil
}

func (f *fakeAPI) RefreshToken(_ context.Context, code string) (*time.Time, error) {
	f.log("refresh")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.codes = append(f.codes, code)
	return f.RefreshAt, f.RefreshErr
}

func (f *fakeAPI) TokenHistory(context.Context) ([]models.HistoryEntry, error) {
	f.log("history")
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.History, nil
}

func (f *fakeAPI) Ping(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.PingErr
}

func (f *fakeAPI) Close() error { return nil }

// ---- app harness ----

func activeStatus(expires time.Time, now time.Time) models.TokenStatus {
	return models.TokenStatus{
		State:          models.Active{ExpiresAt: expires},
		Token:          "tcl_abcdefghijklmnop",
		ExpiresAt:      &expires,
		HoursRemaining: expires.Sub(now).Hours(),
		CheckedAt:      now,
	}
}

// newTestApp builds an App over a temp sqlite file and api. input feeds
// prompts read through the App's reader.
func newTestApp(t *testing.T, api *fakeAPI, token, input string) *App {
	t.Helper()
	return newTestAppAt(t, filepath.Join(t.TempDir(), "tk.db"), api, token, input)
}

func newTestAppAt(t *testing.T, path string, api *fakeAPI, token, input string) *App {
	t.Helper()

	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.DatabasePath = path
	cfg.Timezone = "UTC"

	db, err := client.InitDatabase(context.Background(), cfg.DatabasePath)
	require.NoError(t, err)

	a := assemble(cfg, logging.Nop(), time.UTC, db, api, credentials.NewStore(token),
		strings.NewReader(input), &strings.Builder{})
	t.Cleanup(func() { a.Close(context.Background()) })
	return a
}

func stubNotTerminal(t *testing.T) {
	t.Helper()
	orig := isTerminal
	isTerminal = func(int) bool { return false }
	t.Cleanup(func() { isTerminal = orig })
}
