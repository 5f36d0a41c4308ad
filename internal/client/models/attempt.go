package models

import "time"

// Action identifies an operator-triggered operation against the admin API.
type Action string

const (
	ActionRequestOTP  Action = "request_otp"
	ActionRefresh     Action = "refresh"
	ActionCheckStatus Action = "check_status"
	ActionHistory     Action = "history"
	ActionCancel      Action = "cancel"
)

// Outcome of an Attempt.
type Outcome string

const (
	OutcomeSuccess      Outcome = "success"
	OutcomeRejected     Outcome = "rejected"
	OutcomeUnauthorized Outcome = "unauthorized"
	OutcomeUnavailable  Outcome = "unavailable"
	OutcomeInvalidInput Outcome = "invalid_input"
	OutcomeCancelled    Outcome = "cancelled"
)

// Attempt is a local journal record of what the operator tried and how it
// ended. It is for debugging only and never drives behaviour.
type Attempt struct {
	ID        string
	Action    Action
	Outcome   Outcome
	Message   string
	RequestID string
	Operator  string
	At        time.Time
}
