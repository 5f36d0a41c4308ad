package cli

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrijs2005/tokenkeeper/internal/client/credentials"
	"github.com/dmitrijs2005/tokenkeeper/internal/common"
)

// getSimpleText and getSecret are indirections used to facilitate testing.
var getSimpleText = GetSimpleText
var getSecret = GetSecret

const unlockAttempts = 3

// restoreSession loads the operator credential from the environment or the
// sealed local session and starts status polling when one is found.
func (a *App) restoreSession(ctx context.Context) {
	if st, ok, err := a.cache.Load(ctx); err != nil {
		a.logger.Warn(ctx, "loading cached status", "err", err)
	} else if ok {
		a.poller.Seed(st)
	}

	if a.creds.Present() {
		token, _ := a.creds.BearerToken(ctx)
		id, _ := credentials.Inspect(token)
		a.setOperator(id.Display())
		a.logger.Info(ctx, "using operator token from environment", "operator", id.Display())
		a.warnIfExpired(id)
		a.startPolling(ctx)
		return
	}

	saved, err := a.authService.HasSavedSession(ctx)
	if err != nil {
		a.logger.Error(ctx, "checking saved session", "err", err)
		return
	}
	if !saved {
		printlnFn("Not logged in. Use 'login' to store your admin API token")
		return
	}

	if name, err := a.authService.SavedOperator(ctx); err == nil && name != "" {
		printlnFn("Saved session for", name)
	}
	if err := a.unlock(ctx); err != nil {
		printlnFn("Could not unlock saved session. Use 'login' to start over")
	}
}

func (a *App) unlock(ctx context.Context) error {
	var lastErr error
	for i := 0; i < unlockAttempts; i++ {
		pass, err := getSecret(a.reader, "Enter passphrase", a.out)
		if err != nil {
			return err
		}

		token, err := a.authService.Unlock(ctx, pass)
		common.WipeByteArray(pass)
		if err == nil {
			a.activate(ctx, token)
			return nil
		}

		lastErr = err
		if !errors.Is(err, common.ErrWrongPassphrase) {
			a.logger.Error(ctx, "unlocking session", "err", err)
			return err
		}
		printlnFn("Wrong passphrase")
	}
	return lastErr
}

// activate installs token as the live credential.
func (a *App) activate(ctx context.Context, token string) {
	a.creds.Set(token)
	id, _ := credentials.Inspect(token)
	a.setOperator(id.Display())
	a.warnIfExpired(id)
	a.startPolling(ctx)
}

func (a *App) warnIfExpired(id credentials.Identity) {
	if id.Expired(time.Now()) {
		printlnFn("Warning: your admin token has expired. Use 'login' with a fresh one")
	}
}

// Login prompts for the admin API bearer token and a local passphrase, seals
// the token on disk and makes it the live credential.
func (a *App) Login(ctx context.Context) error {
	token, err := getSecret(a.reader, "Paste admin API token", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(token)

	pass, err := getSecret(a.reader, "Choose a passphrase", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(pass)

	id, err := a.authService.Login(ctx, string(token), pass)
	if err != nil {
		a.logger.Warn(ctx, "login failed", "err", err)
		if errors.Is(err, credentials.ErrNoCredentials) {
			printlnFn("Token must not be empty")
		} else {
			printlnFn("Login failed:", err)
		}
		return err
	}

	a.activate(ctx, string(token))
	a.logger.Info(ctx, "logged in", "operator", id.Display())
	printlnFn("Logged in as", displayOr(id.Display(), "operator"))

	if _, err := a.poller.CheckNow(ctx); err != nil {
		a.logger.Debug(ctx, "post-login status check failed", "err", err)
	}
	return nil
}

// Logout forgets the credential in memory and on disk and stops polling.
// A pending OTP challenge is abandoned.
func (a *App) Logout(ctx context.Context) error {
	a.stopPolling()
	if err := a.controller.Cancel(ctx); err != nil {
		a.logger.Debug(ctx, "cancel on logout", "err", err)
	}
	a.history.Close()
	a.creds.Clear()
	a.setOperator("")

	if err := a.authService.Logout(ctx); err != nil {
		a.logger.Error(ctx, "clearing saved session", "err", err)
		return err
	}
	if err := a.cache.Clear(ctx); err != nil {
		a.logger.Warn(ctx, "clearing status cache", "err", err)
	}
	printlnFn("Logged out")
	return nil
}

func displayOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
