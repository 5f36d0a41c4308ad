// Package sandbox is a local stand-in for the admin API's Telecel token
// endpoints. It keeps all state in memory, accepts operator JWTs signed
// with its own secret and always issues the same OTP, so the CLI can be
// exercised end to end without a real server or a phone.
package sandbox
