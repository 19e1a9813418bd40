package domain

import "time"

// EnrollmentStatus is the lifecycle state of an authenticator enrollment.
type EnrollmentStatus string

const (
	EnrollmentPending EnrollmentStatus = "pending"
	EnrollmentActive  EnrollmentStatus = "active"
)

// Enrollment is an authenticator-app (TOTP) enrollment for an identity.
// At most one pending and one active enrollment exist per identity. A
// pending enrollment is replaced wholesale by a new enroll call and only
// promotes to active once a code verification consumes it, so an abandoned
// re-enrollment never disables a previously working factor.
type Enrollment struct {
	ID         string
	IdentityID string
	Secret     string // base32 encoded TOTP secret
	Status     EnrollmentStatus
	CreatedAt  time.Time
}

// EnrollmentChallenge is returned when an enrollment is started.
type EnrollmentChallenge struct {
	Secret          string `json:"secret"`           // base32 secret for manual entry
	ProvisioningURI string `json:"provisioning_uri"` // otpauth:// URL for QR rendering
	Issuer          string `json:"issuer"`
	Account         string `json:"account"`
}
