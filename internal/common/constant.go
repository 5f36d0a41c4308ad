// Package common contains shared constants, helpers and sentinel errors used
// across tokenkeeper components.
package common

// AuthorizationHeaderName carries the operator's bearer credential on every
// admin API request.
const AuthorizationHeaderName = "Authorization"

// BearerPrefix is prepended to the operator token in AuthorizationHeaderName.
const BearerPrefix = "Bearer "

// RequestIDHeaderName correlates a client call with server-side logs.
const RequestIDHeaderName = "X-Request-ID"
