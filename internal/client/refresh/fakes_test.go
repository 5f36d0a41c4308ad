package refresh

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/tokenkeeper/internal/client/client"
	"github.com/dmitrijs2005/tokenkeeper/internal/client/models"
)

var testNow = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

func tptr(t time.Time) *time.Time { return &t }

type fakeClient struct {
	mu sync.Mutex

	StatusFn  func(ctx context.Context) (models.TokenStatus, error)
	OTPFn     func(ctx context.Context) (client.OTPChallenge, error)
	OTPErr    error
	OTPMsg    string
	RefreshFn func(ctx context.Context, code string) (*time.Time, error)
	History   []models.HistoryEntry
	HistErr   error

	StatusCalls  int
	OTPCalls     int
	RefreshCodes []string
	HistoryCalls int
	calls        []string
}

func (f *fakeClient) log(name string) {
	f.mu.Lock()
	f.calls = append(f.calls, name)
	f.mu.Unlock()
}

func (f *fakeClient) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeClient) TokenStatus(ctx context.Context) (models.TokenStatus, error) {
	f.mu.Lock()
	f.StatusCalls++
	fn := f.StatusFn
	f.mu.Unlock()
	f.log("status")
	if fn == nil {
		return models.TokenStatus{State: models.NoToken{}}, nil
	}
	return fn(ctx)
}

func (f *fakeClient) RequestOTP(ctx context.Context) (client.OTPChallenge, error) {
	f.mu.Lock()
	f.OTPCalls++
	fn, err, msg := f.OTPFn, f.OTPErr, f.OTPMsg
	f.mu.Unlock()
	f.log("request-otp")
	if fn != nil {
		return fn(ctx)
	}
	if err != nil {
		return client.OTPChallenge{}, err
	}
	return client.OTPChallenge{Message: msg, RequestedAt: testNow}, nil
}

func (f *fakeClient) RefreshToken(ctx context.Context, code string) (*time.Time, error) {
	f.mu.Lock()
	f.RefreshCodes = append(f.RefreshCodes, code)
	fn := f.RefreshFn
	f.mu.Unlock()
	f.log("refresh")
	if fn == nil {
		return nil, nil
	}
	return fn(ctx, code)
}

func (f *fakeClient) TokenHistory(ctx context.Context) ([]models.HistoryEntry, error) {
	f.mu.Lock()
	f.HistoryCalls++
	h, err := f.History, f.HistErr
	f.mu.Unlock()
	f.log("history")
	return h, err
}

func (f *fakeClient) Ping(context.Context) error { return nil }
func (f *fakeClient) Close() error               { return nil }

// recorder collects events.
type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) Notify(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *recorder) Kinds() []EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventKind, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Kind)
	}
	return out
}

func (r *recorder) Last(kind EventKind) (Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].Kind == kind {
			return r.events[i], true
		}
	}
	return Event{}, false
}

type fakeJournal struct {
	mu      sync.Mutex
	actions []models.Action
	errs    []error
}

func (j *fakeJournal) Record(_ context.Context, a models.Action, err error, requestID string) (models.Attempt, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.actions = append(j.actions, a)
	j.errs = append(j.errs, err)
	return models.Attempt{Action: a}, nil
}

type fakeStore struct {
	mu    sync.Mutex
	saved []models.TokenStatus
}

func (s *fakeStore) Save(_ context.Context, st models.TokenStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, st)
	return nil
}
