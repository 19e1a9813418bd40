package store

import (
	"context"
	"errors"
	"time"

	"github.com/loomhr/auth/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite,
// postgres) implement this. It exposes sub-repositories to keep concerns
// tidy and testable.
type Store interface {
	Identities() Identities
	Enrollments() Enrollments
	OneTimeCodes() OneTimeCodes
	TrustedDevices() TrustedDevices
	LoginEvents() LoginEvents
	LoginChallenges() LoginChallenges

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back, otherwise it is committed. This is the
	// recommended way to handle multi-step writes that must be atomic
	// (e.g., enrollment promotion paired with the identity flag update).
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Identities interface {
	// GetIdentityByID returns an identity by id.
	GetIdentityByID(ctx context.Context, id string) (domain.Identity, error)

	// GetIdentityByEmail is used on every login entry path.
	GetIdentityByEmail(ctx context.Context, email string) (domain.Identity, error)

	// CreateIdentity inserts a new identity (id is provided by app via ULID).
	CreateIdentity(ctx context.Context, ident domain.Identity) error

	// UpdateCredentialHash sets the credential hash and bumps updated_at.
	UpdateCredentialHash(ctx context.Context, identityID, newHash string) error

	// EnableSecondFactor stamps second_factor_enabled with the current time.
	EnableSecondFactor(ctx context.Context, identityID string) error

	// DisableSecondFactor clears the second_factor_enabled timestamp.
	DisableSecondFactor(ctx context.Context, identityID string) error
}

type Enrollments interface {
	// GetEnrollment returns the enrollment with the given status for an
	// identity, or ErrNotFound.
	GetEnrollment(ctx context.Context, identityID string, status domain.EnrollmentStatus) (domain.Enrollment, error)

	// ReplacePending deletes any pending enrollment for the identity and
	// inserts the given one. An active enrollment is untouched.
	ReplacePending(ctx context.Context, e domain.Enrollment) error

	// Promote flips the pending enrollment to active, removing any prior
	// active enrollment for the identity.
	Promote(ctx context.Context, identityID string) error

	// DeleteActive removes the active enrollment (explicit disable).
	DeleteActive(ctx context.Context, identityID string) error
}

type OneTimeCodes interface {
	// CreateOneTimeCode stores a freshly issued code (hash only).
	CreateOneTimeCode(ctx context.Context, c domain.OneTimeCode) error

	// GetLatestCode returns the most recently issued code for the
	// (identity, purpose) pair regardless of consumption or expiry.
	GetLatestCode(ctx context.Context, identityID string, purpose domain.CodePurpose) (domain.OneTimeCode, error)

	// DeleteOutstandingCodes removes unconsumed codes for the pair; called
	// when a fresh code supersedes earlier ones.
	DeleteOutstandingCodes(ctx context.Context, identityID string, purpose domain.CodePurpose) error

	// ConsumeCode atomically sets consumed_at on a still-unconsumed code.
	// It returns ErrNotFound when the code was already consumed, which is
	// the single-use guard for concurrent verification attempts.
	ConsumeCode(ctx context.Context, id string, now time.Time) error

	// DeleteExpiredCodes is optional housekeeping.
	DeleteExpiredCodes(ctx context.Context) error
}

type TrustedDevices interface {
	// CreateTrustedDevice registers a device after second-factor success.
	CreateTrustedDevice(ctx context.Context, d domain.TrustedDevice) error

	// GetByFingerprint does an exact-match lookup, ErrNotFound otherwise.
	GetByFingerprint(ctx context.Context, identityID, fingerprint string) (domain.TrustedDevice, error)

	// ListByIdentity returns devices newest first.
	ListByIdentity(ctx context.Context, identityID string) ([]domain.TrustedDevice, error)

	// TouchDevice refreshes last_used_at for a fingerprint match.
	TouchDevice(ctx context.Context, identityID, fingerprint string, now time.Time) error

	// DeleteDevice hard-deletes a device by id (user revocation).
	DeleteDevice(ctx context.Context, identityID, deviceID string) error
}

type LoginEvents interface {
	// AppendLoginEvent writes one audit record. Events are append-only.
	AppendLoginEvent(ctx context.Context, e domain.LoginEvent) error

	// ListByIdentity returns events newest first, capped at limit.
	ListByIdentity(ctx context.Context, identityID string, limit int) ([]domain.LoginEvent, error)

	// ListSuccessesSince returns success events at or after the cutoff,
	// newest first. Used to derive active sessions.
	ListSuccessesSince(ctx context.Context, identityID string, since time.Time) ([]domain.LoginEvent, error)
}

type LoginChallenges interface {
	// CreateChallenge stores a pending login challenge.
	CreateChallenge(ctx context.Context, c domain.LoginChallenge) error

	// GetChallengeByTokenHash returns a challenge by token fingerprint.
	GetChallengeByTokenHash(ctx context.Context, tokenHash string) (domain.LoginChallenge, error)

	// IncrementChallengeAttempts bumps the failed-attempt counter and
	// returns the updated challenge.
	IncrementChallengeAttempts(ctx context.Context, tokenHash string) (domain.LoginChallenge, error)

	// DeleteChallenge removes a challenge (single use or attempt cap).
	DeleteChallenge(ctx context.Context, tokenHash string) error

	// DeleteExpiredChallenges is optional housekeeping.
	DeleteExpiredChallenges(ctx context.Context) error
}
