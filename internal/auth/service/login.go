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
	"github.com/loomhr/auth/pkg/jwtx"
	"github.com/loomhr/auth/pkg/slogx"
)

const (
	// DefaultChallengeTTL bounds the gap between a verified primary
	// credential and the second-factor submission.
	DefaultChallengeTTL = 5 * time.Minute

	// MaxChallengeAttempts is how many failed second-factor submissions a
	// single challenge token absorbs before it is discarded.
	MaxChallengeAttempts = 5
)

var (
	// ErrInvalidCredential covers unknown email and wrong password alike,
	// so the response never reveals which field was wrong.
	ErrInvalidCredential = errors.New("invalid credentials")

	ErrChallengeInvalid  = errors.New("invalid or unknown challenge token")
	ErrChallengeExpired  = errors.New("challenge expired")
	ErrTooManyAttempts   = errors.New("too many failed attempts")
	ErrCodeLoginDisabled = errors.New("one-time code login not enabled")
	ErrIdentityNotFound  = errors.New("identity not found")
)

// LoginService drives every path from a claimed identity to an issued
// session: password login, password plus authenticator challenge, emailed
// one-time-code login, and password reset. All success paths converge on
// issueSession so no path can skip a required factor, and every completed
// or failed attempt lands in the audit trail.
type LoginService struct {
	Store       store.Store
	Codes       *CodeService
	Enrollments *EnrollmentService
	Signer      jwtx.Signer
	Issuer      string // "iss" claim on issued session tokens

	SessionTTL   time.Duration // defaults to jwtx.DefaultSessionTTL
	ChallengeTTL time.Duration // defaults to DefaultChallengeTTL

	// TrustedDeviceSkip short-circuits the second-factor challenge when a
	// trusted fingerprint accompanies a correct password. Off by default;
	// when off, trust only informs the client's framing of the challenge.
	TrustedDeviceSkip bool
}

func (s *LoginService) sessionTTL() time.Duration {
	if s.SessionTTL > 0 {
		return s.SessionTTL
	}
	return jwtx.DefaultSessionTTL
}

func (s *LoginService) challengeTTL() time.Duration {
	if s.ChallengeTTL > 0 {
		return s.ChallengeTTL
	}
	return DefaultChallengeTTL
}

// PasswordLogin is the primary-credential entry point. Exactly one of the
// returned session or challenge is non-nil on success. A nil session with
// a non-nil challenge means the caller must complete CompleteChallenge.
func (s *LoginService) PasswordLogin(ctx context.Context, email, password string, dev fingerprint.Device) (*domain.Session, *domain.ChallengeResponse, error) {
	log := slogx.FromContext(ctx)

	ident, err := s.Store.Identities().GetIdentityByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// No identity means no audit row to append to; the response
			// is indistinguishable from a wrong password.
			return nil, nil, ErrInvalidCredential
		}
		return nil, nil, fmt.Errorf("failed to load identity: %w", err)
	}

	if cryptox.VerifyPassword(password, ident.CredentialHash) != nil {
		s.appendFailure(ctx, ident.ID, domain.FactorPassword, dev)
		return nil, nil, ErrInvalidCredential
	}

	if !ident.RequiresSecondFactor() {
		session, err := s.issueSession(ctx, ident, domain.FactorPassword, []string{jwtx.AMRPassword}, dev)
		if err != nil {
			return nil, nil, err
		}
		return session, nil, nil
	}

	trusted, err := s.isTrusted(ctx, ident.ID, dev.Fingerprint)
	if err != nil {
		return nil, nil, err
	}

	if trusted && s.TrustedDeviceSkip {
		log.Info("second-factor challenge skipped for trusted device", "identity_id", ident.ID)
		session, err := s.issueSession(ctx, ident, domain.FactorPassword, []string{jwtx.AMRPassword}, dev)
		if err != nil {
			return nil, nil, err
		}
		return session, nil, nil
	}

	// Primary verified but the attempt is incomplete: mint a challenge,
	// no audit event yet.
	challenge, err := s.mintChallenge(ctx, ident.ID, trusted)
	if err != nil {
		return nil, nil, err
	}
	return nil, challenge, nil
}

func (s *LoginService) mintChallenge(ctx context.Context, identityID string, trusted bool) (*domain.ChallengeResponse, error) {
	token, err := cryptox.GenerateToken(cryptox.TokenSize128)
	if err != nil {
		return nil, fmt.Errorf("failed to generate challenge token: %w", err)
	}

	now := time.Now().UTC()
	record := domain.LoginChallenge{
		ID:         idx.New().String(),
		TokenHash:  cryptox.FingerprintToken(token),
		IdentityID: identityID,
		CreatedAt:  now,
		ExpiresAt:  now.Add(s.challengeTTL()),
	}
	if err := s.Store.LoginChallenges().CreateChallenge(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to store challenge: %w", err)
	}

	return &domain.ChallengeResponse{
		Outcome:        "mfa_required",
		ChallengeToken: token,
		ExpiresAt:      record.ExpiresAt,
		DeviceTrusted:  trusted,
	}, nil
}

// CompleteChallenge validates an authenticator code against a pending
// challenge. The token is single use: success discards it in the same
// transaction that records the session, and the attempt counter caps how
// much guessing one token absorbs.
func (s *LoginService) CompleteChallenge(ctx context.Context, token, code string, dev fingerprint.Device) (*domain.Session, error) {
	log := slogx.FromContext(ctx)
	tokenHash := cryptox.FingerprintToken(token)

	challenge, err := s.Store.LoginChallenges().GetChallengeByTokenHash(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrChallengeInvalid
		}
		return nil, fmt.Errorf("failed to load challenge: %w", err)
	}

	now := time.Now().UTC()
	if now.After(challenge.ExpiresAt) {
		_ = s.Store.LoginChallenges().DeleteChallenge(ctx, tokenHash)
		return nil, ErrChallengeExpired
	}

	ident, err := s.Store.Identities().GetIdentityByID(ctx, challenge.IdentityID)
	if err != nil {
		return nil, fmt.Errorf("failed to load identity: %w", err)
	}

	if err := s.Enrollments.ValidateActive(ctx, ident.ID, code); err != nil {
		if !errors.Is(err, ErrInvalidAuthenticatorCode) && !errors.Is(err, ErrNoActiveEnrollment) {
			return nil, err
		}

		s.appendFailure(ctx, ident.ID, domain.FactorAuthenticator, dev)

		updated, incErr := s.Store.LoginChallenges().IncrementChallengeAttempts(ctx, tokenHash)
		if incErr == nil && updated.Attempts >= MaxChallengeAttempts {
			_ = s.Store.LoginChallenges().DeleteChallenge(ctx, tokenHash)
			log.Warn("challenge discarded after repeated failures",
				"identity_id", ident.ID,
				"attempts", updated.Attempts,
			)
			return nil, ErrTooManyAttempts
		}
		return nil, ErrInvalidAuthenticatorCode
	}

	// Sign before the transaction so a signing failure never leaves a
	// success event without its session.
	claims := jwtx.NewSessionClaims(ident.ID, idx.New().String(),
		[]string{jwtx.AMRPassword, jwtx.AMRMFA}, s.sessionTTL(), s.Issuer, ident.Email, now)
	signed, err := s.Signer.Sign(claims)
	if err != nil {
		return nil, fmt.Errorf("failed to sign session token: %w", err)
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.LoginChallenges().DeleteChallenge(ctx, tokenHash); err != nil {
			return fmt.Errorf("failed to discard challenge: %w", err)
		}
		if err := registerTrustedDevice(ctx, tx, ident.ID, dev.SuggestedName, dev, now); err != nil {
			return err
		}
		return appendEvent(ctx, tx, ident.ID, domain.LoginSuccess, domain.FactorAuthenticator, dev, now)
	})
	if err != nil {
		return nil, err
	}

	log.Info("session issued", "identity_id", ident.ID, "factor", domain.FactorAuthenticator)
	return &domain.Session{
		Token:     signed,
		SessionID: claims.SID,
		ExpiresAt: claims.ExpiresAt.Time,
		Factor:    domain.FactorAuthenticator,
	}, nil
}

// RequestOTP issues an emailed login code. One-time-code login is an
// alternate primary path: it is available regardless of the identity's
// second-factor flag, but only when the identity has it enabled.
func (s *LoginService) RequestOTP(ctx context.Context, email string) (time.Time, error) {
	ident, err := s.Store.Identities().GetIdentityByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return time.Time{}, ErrIdentityNotFound
		}
		return time.Time{}, fmt.Errorf("failed to load identity: %w", err)
	}

	if !ident.PasswordlessLogin {
		return time.Time{}, ErrCodeLoginDisabled
	}

	return s.Codes.Issue(ctx, ident, domain.CodePurposeLogin)
}

// OTPLogin completes the one-time-code path. Code verification consumes
// the code atomically; any verification failure is audited.
func (s *LoginService) OTPLogin(ctx context.Context, email, code string, dev fingerprint.Device) (*domain.Session, error) {
	ident, err := s.Store.Identities().GetIdentityByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrCodeMismatch
		}
		return nil, fmt.Errorf("failed to load identity: %w", err)
	}

	if err := s.Codes.Verify(ctx, ident.ID, domain.CodePurposeLogin, code); err != nil {
		switch {
		case errors.Is(err, ErrCodeExpired),
			errors.Is(err, ErrCodeConsumed),
			errors.Is(err, ErrCodeMismatch),
			errors.Is(err, ErrCodeNotFound):
			s.appendFailure(ctx, ident.ID, domain.FactorOneTimeCode, dev)
		}
		return nil, err
	}

	return s.issueSession(ctx, ident, domain.FactorOneTimeCode, []string{jwtx.AMROneTimeCode}, dev)
}

// RequestReset issues an emailed password-reset code.
func (s *LoginService) RequestReset(ctx context.Context, email string) (time.Time, error) {
	ident, err := s.Store.Identities().GetIdentityByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return time.Time{}, ErrIdentityNotFound
		}
		return time.Time{}, fmt.Errorf("failed to load identity: %w", err)
	}

	return s.Codes.Issue(ctx, ident, domain.CodePurposePasswordReset)
}

// CompleteReset verifies a reset code and replaces the stored credential.
// No session is issued; the user logs in again with the new password.
func (s *LoginService) CompleteReset(ctx context.Context, email, code, newPassword string, dev fingerprint.Device) error {
	ident, err := s.Store.Identities().GetIdentityByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrCodeMismatch
		}
		return fmt.Errorf("failed to load identity: %w", err)
	}

	if err := s.Codes.Verify(ctx, ident.ID, domain.CodePurposePasswordReset, code); err != nil {
		switch {
		case errors.Is(err, ErrCodeExpired),
			errors.Is(err, ErrCodeConsumed),
			errors.Is(err, ErrCodeMismatch),
			errors.Is(err, ErrCodeNotFound):
			s.appendFailure(ctx, ident.ID, domain.FactorOneTimeCode, dev)
		}
		return err
	}

	hash, err := cryptox.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash new password: %w", err)
	}

	if err := s.Store.Identities().UpdateCredentialHash(ctx, ident.ID, hash); err != nil {
		return fmt.Errorf("failed to update credential: %w", err)
	}

	slogx.FromContext(ctx).Info("credential updated via reset code", "identity_id", ident.ID)
	return nil
}

// issueSession is the single convergence point for every successful login
// path. It signs the token first, then writes the success event and the
// trusted-device touch together, so a session never exists without its
// audit record.
func (s *LoginService) issueSession(ctx context.Context, ident domain.Identity, factor domain.LoginFactor, amr []string, dev fingerprint.Device) (*domain.Session, error) {
	now := time.Now().UTC()

	claims := jwtx.NewSessionClaims(ident.ID, idx.New().String(), amr, s.sessionTTL(), s.Issuer, ident.Email, now)
	signed, err := s.Signer.Sign(claims)
	if err != nil {
		return nil, fmt.Errorf("failed to sign session token: %w", err)
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		// Trust is refreshed, never granted, here. Registration only
		// happens on second-factor success paths.
		touchErr := tx.TrustedDevices().TouchDevice(ctx, ident.ID, dev.Fingerprint, now)
		if touchErr != nil && !errors.Is(touchErr, store.ErrNotFound) {
			return fmt.Errorf("failed to touch trusted device: %w", touchErr)
		}
		return appendEvent(ctx, tx, ident.ID, domain.LoginSuccess, factor, dev, now)
	})
	if err != nil {
		return nil, err
	}

	slogx.FromContext(ctx).Info("session issued", "identity_id", ident.ID, "factor", factor)
	return &domain.Session{
		Token:     signed,
		SessionID: claims.SID,
		ExpiresAt: claims.ExpiresAt.Time,
		Factor:    factor,
	}, nil
}

func (s *LoginService) isTrusted(ctx context.Context, identityID, fp string) (bool, error) {
	_, err := s.Store.TrustedDevices().GetByFingerprint(ctx, identityID, fp)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	return false, fmt.Errorf("failed to look up trusted device: %w", err)
}

// appendFailure records a failed attempt. Audit writes never mask the
// caller-facing error, so a write failure here is only logged.
func (s *LoginService) appendFailure(ctx context.Context, identityID string, factor domain.LoginFactor, dev fingerprint.Device) {
	err := appendEvent(ctx, s.Store, identityID, domain.LoginFailure, factor, dev, time.Now().UTC())
	if err != nil {
		slogx.FromContext(ctx).Error("failed to append login event",
			"identity_id", identityID,
			"error", err,
		)
	}
}

func appendEvent(ctx context.Context, st store.Store, identityID string, outcome domain.LoginOutcome, factor domain.LoginFactor, dev fingerprint.Device, now time.Time) error {
	err := st.LoginEvents().AppendLoginEvent(ctx, domain.LoginEvent{
		ID:             idx.New().String(),
		IdentityID:     identityID,
		Timestamp:      now,
		NetworkAddress: dev.NetworkAddress,
		Browser:        dev.Browser,
		OS:             dev.OS,
		DeviceType:     dev.DeviceType,
		Outcome:        outcome,
		FactorUsed:     factor,
	})
	if err != nil {
		return fmt.Errorf("failed to append login event: %w", err)
	}
	return nil
}
