package authsdk

import "time"

// LoginRequest is the body of POST /v1/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ChallengeCompleteRequest is the body of POST /v1/login/mfa.
type ChallengeCompleteRequest struct {
	ChallengeToken string `json:"challenge_token"`
	Code           string `json:"code"`
}

// OTPRequest is the body of POST /v1/login/otp/request and
// POST /v1/password-reset/request.
type OTPRequest struct {
	Email string `json:"email"`
}

// OTPLoginRequest is the body of POST /v1/login/otp.
type OTPLoginRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// ResetCompleteRequest is the body of POST /v1/password-reset.
type ResetCompleteRequest struct {
	Email       string `json:"email"`
	Code        string `json:"code"`
	NewPassword string `json:"new_password"`
}

// SessionResponse is returned whenever a login path reaches issuance.
type SessionResponse struct {
	Outcome   string    `json:"outcome"` // always "success"
	Token     string    `json:"token"`
	SessionID string    `json:"session_id"`
	ExpiresAt time.Time `json:"expires_at"`
	Factor    string    `json:"factor"`
}

// ChallengeResponse is returned when a password login needs a second
// factor. The token is opaque and single use.
type ChallengeResponse struct {
	Outcome        string    `json:"outcome"` // always "mfa_required"
	ChallengeToken string    `json:"challenge_token"`
	ExpiresAt      time.Time `json:"expires_at"`
	DeviceTrusted  bool      `json:"device_trusted"`
}

// CodeIssuedResponse acknowledges a code request with its expiry so the
// caller can render a countdown.
type CodeIssuedResponse struct {
	Outcome   string    `json:"outcome"` // always "code_sent"
	ExpiresAt time.Time `json:"expires_at"`
}

// LoginOutcome is the union of the two success shapes of POST /v1/login.
// Exactly one field is non-nil.
type LoginOutcome struct {
	Session   *SessionResponse
	Challenge *ChallengeResponse
}

// EnrollResponse is returned by POST /v1/mfa/enroll. The secret is shown
// once and never retrievable again.
type EnrollResponse struct {
	Secret          string `json:"secret"`
	ProvisioningURI string `json:"provisioning_uri"`
	Issuer          string `json:"issuer"`
	Account         string `json:"account"`
}

// EnrollVerifyRequest is the body of POST /v1/mfa/verify.
type EnrollVerifyRequest struct {
	Code       string `json:"code"`
	DeviceName string `json:"device_name,omitempty"`
}

// DisableMFARequest is the body of DELETE /v1/mfa. The current
// authenticator code is required to turn the factor off.
type DisableMFARequest struct {
	Code string `json:"code"`
}

// DeviceResponse is one trusted device in GET /v1/devices.
type DeviceResponse struct {
	ID              string    `json:"id"`
	DisplayName     string    `json:"display_name"`
	DeviceType      string    `json:"device_type"`
	Browser         string    `json:"browser"`
	OS              string    `json:"os"`
	NetworkAddress  string    `json:"network_address"`
	AddedAt         time.Time `json:"added_at"`
	LastUsedAt      time.Time `json:"last_used_at"`
	IsCurrentDevice bool      `json:"is_current_device"`
}

// LoginEventResponse is one audit entry in GET /v1/login-history and
// GET /v1/sessions.
type LoginEventResponse struct {
	ID             string    `json:"id"`
	Timestamp      time.Time `json:"timestamp"`
	NetworkAddress string    `json:"network_address"`
	Browser        string    `json:"browser"`
	OS             string    `json:"os"`
	DeviceType     string    `json:"device_type"`
	Outcome        string    `json:"outcome"`
	Factor         string    `json:"factor"`
	Location       string    `json:"location,omitempty"`
}

// HealthChecks reports per-dependency status in the readiness probe.
type HealthChecks struct {
	Database string `json:"database"`
	Signer   string `json:"signer"`
}

// HealthResponse is returned by GET /livez and GET /readyz.
type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime"`
	Version string        `json:"version"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}
