// Package refresh implements the Telecel token refresh flow on the client:
// the OTP challenge/response Controller, the status Poller and the lazy
// HistoryViewer. All three report to the operator through typed Events so
// the presentation layer stays out of the state machine.
//
// The Controller is a small state machine:
//
//	idle --RequestOTP ok--> otp_requested --Refresh ok--> idle
//	otp_requested --Refresh rejected--> otp_requested
//	otp_requested --Cancel--> idle
//
// A successful Refresh re-reads status through the Poller before it returns,
// so the operator's next view reflects the new expiry.
package refresh
