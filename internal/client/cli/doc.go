// Package cli provides the interactive tokenkeeper command-line client.
//
// It wires configuration, the local sqlite store, the admin API client and
// the refresh flow, then runs a REPL. A background watcher pings the server
// and the status poller re-reads the Telecel token every poll interval;
// their notifications are printed between prompts.
//
// Commands:
//   - login / logout: store or forget the admin API bearer token
//   - status: re-read token status now
//   - otp: request (or resend) an OTP by SMS
//   - refresh [code]: submit the OTP and renew the token
//   - cancel: abandon a pending OTP
//   - history [reload|close]: show the refresh audit trail
//   - token [reveal]: print the last observed token
//   - journal: list recent local attempts
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
