// Package client contains the transport side of tokenkeeper.
//
// # Overview
//
//  1. Client: the contract of the admin API's Telecel token endpoints
//     (status, request-otp, refresh, history) plus Ping and Close.
//  2. HTTPClient: JSON over HTTPS. Every call reads the operator's bearer
//     token from a credentials.Provider, sends an X-Request-ID, is bounded
//     by a per-call timeout and is never retried.
//  3. InitDatabase / RunMigrations: local sqlite bootstrap with embedded
//     goose migrations.
//
// # Error Handling
//
// Failures are *RemoteError values wrapping one of the sentinels below, so
// callers match with errors.Is: ErrUnauthorized (operator session),
// ErrOTPRejected (bad or expired code), ErrRejected (other domain refusal),
// ErrUnavailable (network, timeout, 5xx), ErrMalformedResponse.
package client
