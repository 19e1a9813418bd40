package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/loomhr/auth/internal/auth/domain"
	"github.com/loomhr/auth/internal/auth/store"
	"github.com/loomhr/auth/pkg/cryptox"
	"github.com/loomhr/auth/pkg/idx"
)

const (
	// CodeDigits is the fixed length of emailed one-time codes.
	CodeDigits = 6

	// DefaultCodeTTL is how long an issued code stays verifiable.
	DefaultCodeTTL = 10 * time.Minute
)

var (
	ErrCodeNotFound = errors.New("no outstanding code")
	ErrCodeExpired  = errors.New("code expired")
	ErrCodeConsumed = errors.New("code already consumed")
	ErrCodeMismatch = errors.New("code mismatch")
)

// CodeService issues and verifies emailed one-time codes. Plaintext codes
// exist only in flight between generation and the mail dispatcher; the
// store only ever sees fingerprints.
type CodeService struct {
	Store  store.Store
	Mailer Mailer
	Logger *slog.Logger
	TTL    time.Duration // defaults to DefaultCodeTTL when zero
}

func (s *CodeService) ttl() time.Duration {
	if s.TTL > 0 {
		return s.TTL
	}
	return DefaultCodeTTL
}

// Issue generates a fresh 6-digit code for the (identity, purpose) pair,
// invalidating any outstanding unconsumed code of the same purpose, and
// hands the plaintext to the mail dispatcher. Only the code's fingerprint
// is persisted. Returns the expiry so callers can render a countdown.
func (s *CodeService) Issue(ctx context.Context, identity domain.Identity, purpose domain.CodePurpose) (time.Time, error) {
	code, err := cryptox.GenerateNumericCode(CodeDigits)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to generate code: %w", err)
	}

	now := time.Now().UTC()
	record := domain.OneTimeCode{
		ID:         idx.New().String(),
		IdentityID: identity.ID,
		Purpose:    purpose,
		CodeHash:   cryptox.FingerprintToken(code),
		IssuedAt:   now,
		ExpiresAt:  now.Add(s.ttl()),
	}

	// Superseding and inserting must land together so there is never a
	// window with two live codes for the same purpose.
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.OneTimeCodes().DeleteOutstandingCodes(ctx, identity.ID, purpose); err != nil {
			return fmt.Errorf("failed to supersede outstanding codes: %w", err)
		}
		if err := tx.OneTimeCodes().CreateOneTimeCode(ctx, record); err != nil {
			return fmt.Errorf("failed to store code: %w", err)
		}
		return nil
	})
	if err != nil {
		return time.Time{}, err
	}

	// Fire-and-forget: a delivery failure is logged but never reported as
	// an issue failure. We cannot know if the mail arrived either way.
	if err := s.Mailer.SendCode(ctx, identity.Email, code, purpose); err != nil {
		s.Logger.Warn("failed to dispatch one-time code email",
			"identity_id", identity.ID,
			"purpose", purpose,
			"error", err,
		)
	}

	return record.ExpiresAt, nil
}

// Verify checks a submitted code against the latest issued code for the
// pair. It fails closed: missing record, expiry, prior consumption, and
// hash mismatch are each distinct errors so the caller can decide what to
// collapse for external presentation.
//
// On success the code is marked consumed in the same conditional update
// that reports success, so two concurrent submissions of the same code can
// never both pass.
func (s *CodeService) Verify(ctx context.Context, identityID string, purpose domain.CodePurpose, submitted string) error {
	// Malformed input is rejected before any lookup, without revealing
	// whether a code exists.
	if !cryptox.ValidNumericCode(submitted, CodeDigits) {
		return ErrCodeMismatch
	}

	code, err := s.Store.OneTimeCodes().GetLatestCode(ctx, identityID, purpose)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrCodeNotFound
		}
		return fmt.Errorf("failed to look up code: %w", err)
	}

	now := time.Now().UTC()
	switch {
	case code.Expired(now):
		return ErrCodeExpired
	case code.ConsumedAt != nil:
		return ErrCodeConsumed
	case code.CodeHash != cryptox.FingerprintToken(submitted):
		return ErrCodeMismatch
	}

	if err := s.Store.OneTimeCodes().ConsumeCode(ctx, code.ID, now); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// A concurrent verification won the conditional update.
			return ErrCodeConsumed
		}
		return fmt.Errorf("failed to consume code: %w", err)
	}

	return nil
}
