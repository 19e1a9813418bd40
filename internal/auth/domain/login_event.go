package domain

import "time"

// LoginOutcome is the coarse result recorded in the audit trail.
type LoginOutcome string

const (
	LoginSuccess LoginOutcome = "success"
	LoginFailure LoginOutcome = "failure"
)

// LoginFactor identifies which factor completed (or failed) an attempt.
type LoginFactor string

const (
	FactorPassword      LoginFactor = "password"
	FactorAuthenticator LoginFactor = "authenticator"
	FactorOneTimeCode   LoginFactor = "one_time_code"
)

// LoginEvent is one append-only audit record. Events are never mutated or
// deleted; "active sessions" are derived as the success events inside a
// trailing window, not stored.
type LoginEvent struct {
	ID             string
	IdentityID     string
	Timestamp      time.Time
	NetworkAddress string
	Browser        string
	OS             string
	DeviceType     string
	Outcome        LoginOutcome
	FactorUsed     LoginFactor
}

// LoginEventView is a LoginEvent enriched for display.
type LoginEventView struct {
	LoginEvent
	Location string `json:"location,omitempty"` // geo enrichment, display only
}
