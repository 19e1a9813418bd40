package domain

import "time"

// Identity is an account that can authenticate against the service.
// It is never deleted here; account removal is an external concern.
type Identity struct {
	ID                  string
	Email               string
	PreferredName       string
	CredentialHash      string     // argon2id encoded
	SecondFactorEnabled *time.Time // set when an authenticator enrollment went active
	PasswordlessLogin   bool       // email one-time-code login allowed
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// RequiresSecondFactor reports whether a login must complete a
// second-factor challenge before a session may be issued.
func (i Identity) RequiresSecondFactor() bool {
	return i.SecondFactorEnabled != nil
}
