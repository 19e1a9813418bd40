package domain

import "time"

// LoginChallenge is the ephemeral bridge between a verified primary
// credential and the second-factor submission. The opaque token the client
// holds proves only "identity X passed step one"; it expires in minutes and
// is discarded on first successful use.
type LoginChallenge struct {
	ID         string
	TokenHash  string // fingerprint of the opaque token handed to the client, lookup key
	IdentityID string
	Attempts   int // failed second-factor submissions so far
	CreatedAt  time.Time
	ExpiresAt  time.Time
}

// ChallengeResponse is returned when a login requires a second factor.
type ChallengeResponse struct {
	Outcome        string    `json:"outcome"` // always "mfa_required"
	ChallengeToken string    `json:"challenge_token"`
	ExpiresAt      time.Time `json:"expires_at"`
	DeviceTrusted  bool      `json:"device_trusted"` // UX framing only
}

// Session is what a completed login yields.
type Session struct {
	Token     string      `json:"token"` // signed JWT
	SessionID string      `json:"session_id"`
	ExpiresAt time.Time   `json:"expires_at"`
	Factor    LoginFactor `json:"factor"`
}
