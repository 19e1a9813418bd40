package domain

import "time"

// CodePurpose distinguishes what an emailed one-time code may be used for.
type CodePurpose string

const (
	CodePurposeLogin         CodePurpose = "login"
	CodePurposePasswordReset CodePurpose = "password_reset"
)

// OneTimeCode is a stored, hashed email code. The plaintext is handed to the
// mail dispatcher at issue time and never persisted. A code with a non-nil
// ConsumedAt must be rejected by every future verification attempt.
type OneTimeCode struct {
	ID         string
	IdentityID string
	Purpose    CodePurpose
	CodeHash   string // deterministic fingerprint (base64url SHA-256)
	IssuedAt   time.Time
	ExpiresAt  time.Time
	ConsumedAt *time.Time
}

// Expired reports whether the code is past its expiry at the given time.
func (c OneTimeCode) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}
