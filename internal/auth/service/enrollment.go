package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/loomhr/auth/internal/auth/domain"
	"github.com/loomhr/auth/internal/auth/store"
	"github.com/loomhr/auth/pkg/cryptox"
	"github.com/loomhr/auth/pkg/fingerprint"
	"github.com/loomhr/auth/pkg/idx"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

var (
	ErrInvalidAuthenticatorCode = errors.New("invalid authenticator code")
	ErrNoPendingEnrollment      = errors.New("no pending enrollment")
	ErrNoActiveEnrollment       = errors.New("no active enrollment")
)

// EnrollmentService owns the authenticator lifecycle: no enrollment,
// pending, active. A pending secret only goes active once a code
// verification consumes it, so an abandoned re-enrollment never disables a
// factor that already works.
type EnrollmentService struct {
	Store  store.Store
	Issuer string // issuer name shown in authenticator apps
}

// StartEnroll generates a new shared secret and stores it as pending,
// replacing any prior pending secret. An active enrollment is untouched
// until the new secret is proven by Verify.
func (s *EnrollmentService) StartEnroll(ctx context.Context, identityID string) (domain.EnrollmentChallenge, error) {
	ident, err := s.Store.Identities().GetIdentityByID(ctx, identityID)
	if err != nil {
		return domain.EnrollmentChallenge{}, fmt.Errorf("failed to load identity: %w", err)
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.Issuer,
		AccountName: ident.Email,
		Period:      30,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return domain.EnrollmentChallenge{}, fmt.Errorf("failed to generate authenticator secret: %w", err)
	}

	err = s.Store.Enrollments().ReplacePending(ctx, domain.Enrollment{
		ID:         idx.New().String(),
		IdentityID: identityID,
		Secret:     key.Secret(),
		Status:     domain.EnrollmentPending,
		CreatedAt:  time.Now().UTC(),
	})
	if err != nil {
		return domain.EnrollmentChallenge{}, fmt.Errorf("failed to store pending enrollment: %w", err)
	}

	return domain.EnrollmentChallenge{
		Secret:          key.Secret(),
		ProvisioningURI: key.URL(),
		Issuer:          s.Issuer,
		Account:         ident.Email,
	}, nil
}

// Verify checks the submitted code against the pending secret. On success
// the enrollment promotes to active, the identity's second-factor flag is
// set, and the submitting device is registered as trusted, all in one
// transaction. On failure nothing is mutated and the user may retry.
func (s *EnrollmentService) Verify(ctx context.Context, identityID, code, deviceName string, dev fingerprint.Device) error {
	pending, err := s.Store.Enrollments().GetEnrollment(ctx, identityID, domain.EnrollmentPending)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNoPendingEnrollment
		}
		return fmt.Errorf("failed to load pending enrollment: %w", err)
	}

	if !validateAuthenticatorCode(code, pending.Secret) {
		return ErrInvalidAuthenticatorCode
	}

	now := time.Now().UTC()
	if deviceName == "" {
		deviceName = dev.SuggestedName
	}

	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Enrollments().Promote(ctx, identityID); err != nil {
			return fmt.Errorf("failed to promote enrollment: %w", err)
		}
		if err := tx.Identities().EnableSecondFactor(ctx, identityID); err != nil {
			return fmt.Errorf("failed to enable second factor: %w", err)
		}
		if err := registerTrustedDevice(ctx, tx, identityID, deviceName, dev, now); err != nil {
			return err
		}
		return nil
	})
}

// Disable clears the active enrollment and the identity's second-factor
// flag. Trusted devices are left in place; they become inert once no
// challenge is required.
func (s *EnrollmentService) Disable(ctx context.Context, identityID string) error {
	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Enrollments().DeleteActive(ctx, identityID); err != nil {
			return fmt.Errorf("failed to delete active enrollment: %w", err)
		}
		if err := tx.Identities().DisableSecondFactor(ctx, identityID); err != nil {
			return fmt.Errorf("failed to disable second factor: %w", err)
		}
		return nil
	})
}

// ValidateActive verifies a code against the identity's active secret.
// Used by the login flow when completing a second-factor challenge.
func (s *EnrollmentService) ValidateActive(ctx context.Context, identityID, code string) error {
	active, err := s.Store.Enrollments().GetEnrollment(ctx, identityID, domain.EnrollmentActive)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNoActiveEnrollment
		}
		return fmt.Errorf("failed to load active enrollment: %w", err)
	}

	if !validateAuthenticatorCode(code, active.Secret) {
		return ErrInvalidAuthenticatorCode
	}
	return nil
}

// validateAuthenticatorCode checks a 6-digit TOTP code with one time-step
// of clock-skew tolerance either side.
func validateAuthenticatorCode(code, secret string) bool {
	if !cryptox.ValidNumericCode(code, CodeDigits) {
		return false
	}
	ok, err := totp.ValidateCustom(code, secret, time.Now().UTC(), totp.ValidateOpts{
		Period:    30,
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	return err == nil && ok
}

// registerTrustedDevice records a device inside an existing transaction.
// Reached only from second-factor success paths.
func registerTrustedDevice(ctx context.Context, tx store.Tx, identityID, displayName string, dev fingerprint.Device, now time.Time) error {
	// Re-verifying on an already-trusted device refreshes it rather than
	// duplicating the row.
	_, err := tx.TrustedDevices().GetByFingerprint(ctx, identityID, dev.Fingerprint)
	if err == nil {
		if err := tx.TrustedDevices().TouchDevice(ctx, identityID, dev.Fingerprint, now); err != nil {
			return fmt.Errorf("failed to touch trusted device: %w", err)
		}
		return nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("failed to look up trusted device: %w", err)
	}

	err = tx.TrustedDevices().CreateTrustedDevice(ctx, domain.TrustedDevice{
		ID:             idx.New().String(),
		IdentityID:     identityID,
		Fingerprint:    dev.Fingerprint,
		DisplayName:    displayName,
		DeviceType:     dev.DeviceType,
		Browser:        dev.Browser,
		OS:             dev.OS,
		NetworkAddress: dev.NetworkAddress,
		AddedAt:        now,
		LastUsedAt:     now,
	})
	if err != nil {
		return fmt.Errorf("failed to register trusted device: %w", err)
	}
	return nil
}
