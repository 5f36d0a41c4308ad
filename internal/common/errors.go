// Package common defines shared constants and sentinel errors used across
// the client, sandbox and CLI layers. Callers should use errors.Is to match
// these values.
package common

import "errors"

var (
	// ErrInvalidToken is returned when an operator JWT fails verification.
	ErrInvalidToken = errors.New("invalid token")

	// Local vault errors.
	ErrWrongPassphrase = errors.New("wrong passphrase")

	// ErrInvalidInput marks operator input rejected before any network call.
	ErrInvalidInput = errors.New("invalid input")
)
