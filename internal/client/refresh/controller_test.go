package refresh

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/tokenkeeper/internal/client/client"
	"github.com/dmitrijs2005/tokenkeeper/internal/client/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	client  *fakeClient
	rec     *recorder
	journal *fakeJournal
	poller  *Poller
	history *HistoryViewer
	ctl     *Controller
}

func newHarness(t *testing.T, fc *fakeClient, opts ...ControllerOption) *harness {
	t.Helper()
	h := &harness{client: fc, rec: &recorder{}, journal: &fakeJournal{}}
	h.poller = NewPoller(fc, WithPollerNotifier(h.rec), WithPollerClock(fixedClock), WithPollerLocation(time.UTC))
	h.history = NewHistoryViewer(fc, WithHistoryNotifier(h.rec), WithHistoryClock(fixedClock))
	base := []ControllerOption{
		WithNotifier(h.rec),
		WithHistory(h.history),
		WithJournal(h.journal),
		WithClock(fixedClock),
		WithLocation(time.UTC),
	}
	h.ctl = NewController(fc, h.poller, append(base, opts...)...)
	t.Cleanup(h.ctl.Close)
	return h
}

func TestController_HappyPath(t *testing.T) {
	exp := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	fc := &fakeClient{
		RefreshFn: func(ctx context.Context, code string) (*time.Time, error) { return tptr(exp), nil },
		StatusFn: func(ctx context.Context) (models.TokenStatus, error) {
			return models.TokenStatus{State: models.Active{ExpiresAt: exp}, ExpiresAt: tptr(exp), HoursRemaining: 3}, nil
		},
	}
	h := newHarness(t, fc)
	ctx := context.Background()

	_, err := h.ctl.RequestOTP(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateOTPRequested, h.ctl.State())

	got, err := h.ctl.Refresh(ctx, "123456")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, exp.Equal(*got))

	assert.Equal(t, StateIdle, h.ctl.State())
	assert.Empty(t, h.ctl.PendingCode())
	assert.Equal(t, []string{"123456"}, fc.RefreshCodes)

	ev, ok := h.rec.Last(EventTokenRefreshed)
	require.True(t, ok)
	assert.Contains(t, ev.Message, "Valid until Jun 1, 2024, 12:00 PM")
	require.NotNil(t, ev.Status)
	assert.True(t, exp.Equal(*ev.Status.ExpiresAt))
}

func TestController_RefreshThenStatusIsSequential(t *testing.T) {
	exp := time.Date(2024, 6, 1, 21, 0, 0, 0, time.UTC)
	fc := &fakeClient{
		RefreshFn: func(ctx context.Context, code string) (*time.Time, error) { return nil, nil },
		StatusFn: func(ctx context.Context) (models.TokenStatus, error) {
			return models.TokenStatus{State: models.Active{ExpiresAt: exp}, ExpiresAt: tptr(exp)}, nil
		},
	}
	h := newHarness(t, fc)
	ctx := context.Background()

	_, err := h.ctl.RequestOTP(ctx)
	require.NoError(t, err)
	got, err := h.ctl.Refresh(ctx, "654321")
	require.NoError(t, err)

	assert.Equal(t, []string{"request-otp", "refresh", "status"}, fc.Calls())
	require.NotNil(t, got, "expiry falls back to the re-read status")
	assert.True(t, exp.Equal(*got))

	last, ok := h.poller.Last()
	require.True(t, ok)
	assert.True(t, exp.Equal(*last.ExpiresAt))
}

func TestController_InvalidOTPStaysRequested(t *testing.T) {
	fc := &fakeClient{
		RefreshFn: func(ctx context.Context, code string) (*time.Time, error) {
			return nil, &client.RemoteError{Status: http.StatusUnauthorized, Err: client.ErrOTPRejected}
		},
	}
	h := newHarness(t, fc)
	ctx := context.Background()

	_, err := h.ctl.RequestOTP(ctx)
	require.NoError(t, err)

	_, err = h.ctl.Refresh(ctx, "123456")
	require.ErrorIs(t, err, client.ErrOTPRejected)
	assert.Equal(t, StateOTPRequested, h.ctl.State())
	assert.Equal(t, "123456", h.ctl.PendingCode())

	ev, ok := h.rec.Last(EventTokenRefreshError)
	require.True(t, ok)
	assert.Contains(t, ev.Message, "Invalid OTP code")
	assert.Zero(t, fc.StatusCalls)
}

func TestController_SessionExpiredOnRefresh(t *testing.T) {
	fc := &fakeClient{
		RefreshFn: func(ctx context.Context, code string) (*time.Time, error) {
			return nil, &client.RemoteError{Status: http.StatusUnauthorized, Message: "jwt expired", Err: client.ErrUnauthorized}
		},
	}
	h := newHarness(t, fc)
	ctx := context.Background()

	_, err := h.ctl.RequestOTP(ctx)
	require.NoError(t, err)

	_, err = h.ctl.Refresh(ctx, "123456")
	require.ErrorIs(t, err, client.ErrUnauthorized)
	assert.Equal(t, StateOTPRequested, h.ctl.State())

	ev, ok := h.rec.Last(EventSessionExpired)
	require.True(t, ok)
	assert.Contains(t, ev.Message, "log in again")
}

func TestController_MalformedOTPNoNetworkCall(t *testing.T) {
	fc := &fakeClient{}
	h := newHarness(t, fc)
	ctx := context.Background()

	_, err := h.ctl.RequestOTP(ctx)
	require.NoError(t, err)

	_, err = h.ctl.Refresh(ctx, "12a45")
	require.ErrorIs(t, err, ErrInvalidOTPFormat)
	assert.Empty(t, fc.RefreshCodes)
	assert.Equal(t, StateOTPRequested, h.ctl.State())
	assert.Equal(t, "1245", h.ctl.PendingCode())

	_, ok := h.rec.Last(EventOTPInvalidFormat)
	assert.True(t, ok)
}

func TestController_RefreshWhileIdle(t *testing.T) {
	fc := &fakeClient{}
	h := newHarness(t, fc)

	_, err := h.ctl.Refresh(context.Background(), "123456")
	require.ErrorIs(t, err, ErrNoChallenge)
	assert.Empty(t, fc.RefreshCodes)
}

func TestController_RequestOTPFailureStaysIdle(t *testing.T) {
	fc := &fakeClient{OTPErr: &client.RemoteError{Status: http.StatusBadGateway, Err: client.ErrUnavailable}}
	h := newHarness(t, fc)

	_, err := h.ctl.RequestOTP(context.Background())
	require.ErrorIs(t, err, client.ErrUnavailable)
	assert.Equal(t, StateIdle, h.ctl.State())

	ev, ok := h.rec.Last(EventOTPRequestFailed)
	require.True(t, ok)
	assert.Contains(t, ev.Message, "Failed to reach server")
}

func TestController_RequestOTPUnauthorized(t *testing.T) {
	fc := &fakeClient{OTPErr: &client.RemoteError{Status: http.StatusUnauthorized, Err: client.ErrUnauthorized}}
	h := newHarness(t, fc)

	_, err := h.ctl.RequestOTP(context.Background())
	require.ErrorIs(t, err, client.ErrUnauthorized)
	_, ok := h.rec.Last(EventSessionExpired)
	assert.True(t, ok)
}

func TestController_ResendAndCancel(t *testing.T) {
	fc := &fakeClient{}
	h := newHarness(t, fc)
	ctx := context.Background()

	_, err := h.ctl.Resend(ctx)
	require.ErrorIs(t, err, ErrNoChallenge)

	_, err = h.ctl.RequestOTP(ctx)
	require.NoError(t, err)
	_, err = h.ctl.Resend(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, fc.OTPCalls)
	assert.Equal(t, StateOTPRequested, h.ctl.State())

	_, _ = h.ctl.Refresh(ctx, "12")
	require.NoError(t, h.ctl.Cancel(ctx))
	assert.Equal(t, StateIdle, h.ctl.State())
	assert.Empty(t, h.ctl.PendingCode())
	assert.Equal(t, 2, fc.OTPCalls, "cancel does not contact the server")

	_, ok := h.rec.Last(EventCancelled)
	assert.True(t, ok)

	require.NoError(t, h.ctl.Cancel(ctx), "cancel while idle is a no-op")
}

func TestController_DuplicateRefreshIsBusy(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	fc := &fakeClient{
		RefreshFn: func(ctx context.Context, code string) (*time.Time, error) {
			close(started)
			<-release
			return nil, nil
		},
	}
	h := newHarness(t, fc)
	ctx := context.Background()

	_, err := h.ctl.RequestOTP(ctx)
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = h.ctl.Refresh(ctx, "123456")
	}()
	<-started

	assert.Equal(t, StateRefreshing, h.ctl.State())
	assert.True(t, h.ctl.Busy(models.ActionRefresh))

	_, err = h.ctl.Refresh(ctx, "123456")
	require.ErrorIs(t, err, ErrBusy)
	require.ErrorIs(t, h.ctl.Cancel(ctx), ErrBusy)

	close(release)
	wg.Wait()
	assert.False(t, h.ctl.Busy(models.ActionRefresh))
	assert.Len(t, fc.RefreshCodes, 1)
}

func TestController_ResendDuringRefreshKeepsRefreshing(t *testing.T) {
	otpStarted, otpRelease := make(chan struct{}), make(chan struct{})
	refreshStarted, refreshRelease := make(chan struct{}), make(chan struct{})
	fc := &fakeClient{
		RefreshFn: func(ctx context.Context, code string) (*time.Time, error) {
			close(refreshStarted)
			<-refreshRelease
			return nil, client.ErrOTPRejected
		},
	}
	h := newHarness(t, fc)
	ctx := context.Background()

	_, err := h.ctl.RequestOTP(ctx)
	require.NoError(t, err)

	fc.mu.Lock()
	fc.OTPFn = func(ctx context.Context) (client.OTPChallenge, error) {
		close(otpStarted)
		<-otpRelease
		return client.OTPChallenge{Message: "sent again", RequestedAt: testNow.Add(time.Minute)}, nil
	}
	fc.mu.Unlock()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, _ = h.ctl.Resend(ctx)
	}()
	<-otpStarted
	go func() {
		defer wg.Done()
		_, _ = h.ctl.Refresh(ctx, "123456")
	}()
	<-refreshStarted

	close(otpRelease)
	require.Eventually(t, func() bool { return !h.ctl.Busy(models.ActionRequestOTP) }, time.Second, 5*time.Millisecond)

	assert.Equal(t, StateRefreshing, h.ctl.State())
	require.ErrorIs(t, h.ctl.Cancel(ctx), ErrBusy)

	close(refreshRelease)
	wg.Wait()
	assert.Equal(t, StateOTPRequested, h.ctl.State())
	assert.Equal(t, []string{"123456"}, fc.RefreshCodes)
}

func TestController_DuplicateRequestOTPIsBusy(t *testing.T) {
	fc := &fakeClient{}
	h := newHarness(t, fc)
	require.NoError(t, h.ctl.begin(models.ActionRequestOTP))

	_, err := h.ctl.RequestOTP(context.Background())
	require.ErrorIs(t, err, ErrBusy)
	assert.Zero(t, fc.OTPCalls)

	h.ctl.end(models.ActionRequestOTP)
	_, err = h.ctl.RequestOTP(context.Background())
	require.NoError(t, err)
}

func TestController_AdvisoryWindow(t *testing.T) {
	fc := &fakeClient{}
	h := newHarness(t, fc, WithOTPWindow(20*time.Millisecond))

	_, err := h.ctl.RequestOTP(context.Background())
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		_, ok := h.rec.Last(EventOTPWindowElapsed)
		return ok
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, StateOTPRequested, h.ctl.State(), "the window only warns")
	age, ok := h.ctl.OTPAge(testNow.Add(6 * time.Minute))
	require.True(t, ok)
	assert.Equal(t, 6*time.Minute, age)
}

func TestController_CancelStopsAdvisoryTimer(t *testing.T) {
	fc := &fakeClient{}
	h := newHarness(t, fc, WithOTPWindow(30*time.Millisecond))
	ctx := context.Background()

	_, err := h.ctl.RequestOTP(ctx)
	require.NoError(t, err)
	require.NoError(t, h.ctl.Cancel(ctx))

	time.Sleep(80 * time.Millisecond)
	_, ok := h.rec.Last(EventOTPWindowElapsed)
	assert.False(t, ok)
}

func TestController_HistoryRefetchedWhenOpen(t *testing.T) {
	fc := &fakeClient{History: []models.HistoryEntry{{IsActive: true, RefreshCount: 1}}}
	h := newHarness(t, fc)
	ctx := context.Background()

	_, err := h.history.Open(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, fc.HistoryCalls)

	_, err = h.ctl.RequestOTP(ctx)
	require.NoError(t, err)
	_, err = h.ctl.Refresh(ctx, "123456")
	require.NoError(t, err)

	assert.Equal(t, 2, fc.HistoryCalls)
	assert.False(t, h.history.Stale())
}

func TestController_JournalsEveryAttempt(t *testing.T) {
	fc := &fakeClient{}
	h := newHarness(t, fc)
	ctx := context.Background()

	_, _ = h.ctl.RequestOTP(ctx)
	_, _ = h.ctl.Refresh(ctx, "1")
	_, _ = h.ctl.Refresh(ctx, "123456")

	assert.Equal(t, []models.Action{models.ActionRequestOTP, models.ActionRefresh, models.ActionRefresh}, h.journal.actions)
	require.ErrorIs(t, h.journal.errs[1], ErrInvalidOTPFormat)
	assert.NoError(t, h.journal.errs[2])
}

func TestController_Closed(t *testing.T) {
	fc := &fakeClient{}
	h := newHarness(t, fc)
	h.ctl.Close()

	_, err := h.ctl.RequestOTP(context.Background())
	require.ErrorIs(t, err, ErrClosed)
	assert.Zero(t, fc.OTPCalls)
}
