package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dmitrijs2005/tokenkeeper/internal/client/models"
	"github.com/dmitrijs2005/tokenkeeper/internal/client/refresh"
)

const journalPageSize = 20

// reportLocal prints errors that the refresh flow rejects before any event
// is emitted.
func reportLocal(err error) {
	if errors.Is(err, refresh.ErrBusy) || errors.Is(err, refresh.ErrNoChallenge) || errors.Is(err, refresh.ErrClosed) {
		printlnFn(refresh.Describe(err))
	}
}

func (a *App) requireLogin() bool {
	if a.isLoggedIn() {
		return true
	}
	printlnFn("Not logged in. Use 'login' first")
	return false
}

// Status re-reads the token status now and prints a summary. Failures are
// reported through the poller's events.
func (a *App) Status(ctx context.Context) error {
	if !a.requireLogin() {
		return nil
	}
	if a.poller.Checking() {
		printlnFn("Checking...")
	}

	st, err := a.poller.CheckNow(ctx)
	if err != nil {
		if last, ok := a.poller.Last(); ok {
			printlnFn("Last known:", refresh.StatusLine(last, a.loc))
		}
		return err
	}

	printlnFn(refresh.StatusLine(st, a.loc))
	if st.Token != "" {
		printlnFn("Token:", st.MaskedToken())
	}
	if st.LastError != nil {
		printlnFn("Last server error:", st.LastError.Message, "at", st.LastError.OccurredAt.In(a.loc).Format(refresh.ValidUntilLayout))
	}
	if a.controller.State() == refresh.StateOTPRequested {
		if age, ok := a.controller.OTPAge(time.Now()); ok {
			printlnFn(fmt.Sprintf("OTP requested %s ago", age.Round(time.Second)))
		}
	}
	return nil
}

// RequestOTP asks the server to text a new OTP. Calling it while a code is
// pending acts as resend.
func (a *App) RequestOTP(ctx context.Context) error {
	if !a.requireLogin() {
		return nil
	}
	printlnFn("Sending OTP...")

	if _, err := a.controller.RequestOTP(ctx); err != nil {
		reportLocal(err)
		return err
	}
	printlnFn("Enter the code with 'refresh <code>' or 'cancel' to abandon")
	return nil
}

// Refresh submits code, prompting for it when empty.
func (a *App) Refresh(ctx context.Context, code string) error {
	if !a.requireLogin() {
		return nil
	}
	if a.controller.State() == refresh.StateIdle {
		reportLocal(refresh.ErrNoChallenge)
		return refresh.ErrNoChallenge
	}

	if code == "" {
		var err error
		code, err = getSimpleText(a.reader, "Enter the 6-digit OTP", a.out)
		if err != nil {
			return err
		}
	}

	printlnFn("Refreshing...")
	if _, err := a.controller.Refresh(ctx, code); err != nil {
		reportLocal(err)
		return err
	}

	if a.history.IsOpen() {
		a.printHistory(a.history.Entries())
	}
	return nil
}

// Cancel abandons the pending OTP.
func (a *App) Cancel(ctx context.Context) error {
	if a.controller.State() == refresh.StateIdle {
		printlnFn("Nothing to cancel")
		return nil
	}
	if err := a.controller.Cancel(ctx); err != nil {
		reportLocal(err)
		return err
	}
	return nil
}

// History shows the refresh audit trail. sub is "", "reload" or "close".
func (a *App) History(ctx context.Context, sub string) error {
	if !a.requireLogin() {
		return nil
	}

	var (
		entries []models.HistoryEntry
		err     error
	)
	switch sub {
	case "":
		entries, err = a.history.Open(ctx)
	case "reload":
		entries, err = a.history.Reload(ctx)
	case "close":
		a.history.Close()
		printlnFn("History closed")
		return nil
	default:
		printlnFn("Usage: history [reload|close]")
		return nil
	}

	if err != nil && len(entries) == 0 {
		return err
	}
	a.printHistory(entries)
	return err
}

func (a *App) printHistory(entries []models.HistoryEntry) {
	if len(entries) == 0 {
		printlnFn("No refresh history")
		return
	}

	var b strings.Builder
	tw := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CREATED\tEXPIRES\tACTIVE\tREFRESHED BY\tCOUNT")
	for _, e := range entries {
		active := ""
		if e.IsActive {
			active = "yes"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\n",
			e.CreatedAt.In(a.loc).Format(refresh.ValidUntilLayout),
			e.ExpiresAt.In(a.loc).Format(refresh.ValidUntilLayout),
			active, displayOr(e.LastRefreshedBy, "-"), e.RefreshCount)
	}
	_ = tw.Flush()
	printlnFn(strings.TrimRight(b.String(), "\n"))
}

// Token prints the last observed Telecel token, masked unless reveal.
func (a *App) Token(ctx context.Context, reveal bool) error {
	if !a.requireLogin() {
		return nil
	}
	st, ok := a.poller.Last()
	if !ok || st.Token == "" {
		printlnFn("No token known yet. Run 'status'")
		return nil
	}
	if reveal {
		a.logger.Info(ctx, "token revealed", "operator", a.Operator())
		printlnFn(st.Token)
		return nil
	}
	printlnFn(st.MaskedToken())
	return nil
}

// Journal lists the most recent local attempts.
func (a *App) Journal(ctx context.Context) error {
	attempts, err := a.journal.Recent(ctx, journalPageSize)
	if err != nil {
		a.logger.Error(ctx, "reading journal", "err", err)
		printlnFn("Could not read journal:", err)
		return err
	}
	if len(attempts) == 0 {
		printlnFn("Journal is empty")
		return nil
	}

	var b strings.Builder
	tw := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "WHEN\tACTION\tOUTCOME\tMESSAGE\tREQUEST")
	for _, at := range attempts {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			at.At.In(a.loc).Format(time.DateTime), at.Action, at.Outcome,
			displayOr(at.Message, "-"), displayOr(at.RequestID, "-"))
	}
	_ = tw.Flush()
	printlnFn(strings.TrimRight(b.String(), "\n"))
	return nil
}
