package service

import (
	"context"
	"testing"
	"time"

	"github.com/loomhr/auth/internal/auth/domain"
	"github.com/loomhr/auth/pkg/jwtx"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"
)

func TestPasswordLoginWithoutSecondFactor(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := newLoginService(t, st, nil)
	ident := seedIdentity(t, st, "alice@example.com", "correct horse", false)
	dev := testDevice()

	session, challenge, err := svc.PasswordLogin(ctx, "alice@example.com", "correct horse", dev)
	require.NoError(t, err)
	require.Nil(t, challenge)
	require.NotNil(t, session)
	require.NotEmpty(t, session.Token)
	require.Equal(t, domain.FactorPassword, session.Factor)

	// The issued token verifies and carries the identity.
	verifier := svc.Signer.(jwtx.Verifier)
	claims, err := verifier.Verify(session.Token)
	require.NoError(t, err)
	require.Equal(t, ident.ID, claims.Subject)
	require.Equal(t, []string{jwtx.AMRPassword}, claims.AMR)

	// Exactly one success event with the password factor.
	events, err := st.LoginEvents().ListByIdentity(ctx, ident.ID, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, domain.LoginSuccess, events[0].Outcome)
	require.Equal(t, domain.FactorPassword, events[0].FactorUsed)
}

func TestPasswordLoginFailureIsOpaque(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := newLoginService(t, st, nil)
	ident := seedIdentity(t, st, "alice@example.com", "correct horse", false)
	dev := testDevice()

	_, _, wrongPassword := svc.PasswordLogin(ctx, "alice@example.com", "battery staple", dev)
	require.ErrorIs(t, wrongPassword, ErrInvalidCredential)

	_, _, unknownEmail := svc.PasswordLogin(ctx, "nobody@example.com", "correct horse", dev)
	require.ErrorIs(t, unknownEmail, ErrInvalidCredential)

	// The wrong-password attempt is audited; the unknown email has no
	// identity to audit against.
	events, err := st.LoginEvents().ListByIdentity(ctx, ident.ID, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, domain.LoginFailure, events[0].Outcome)
}

// enrollAuthenticator runs the full enroll-verify cycle and returns the
// base32 secret for generating codes later in the test.
func enrollAuthenticator(t *testing.T, svc *LoginService, identityID string) string {
	t.Helper()
	ctx := context.Background()

	challenge, err := svc.Enrollments.StartEnroll(ctx, identityID)
	require.NoError(t, err)

	code, err := totp.GenerateCode(challenge.Secret, time.Now().UTC())
	require.NoError(t, err)
	require.NoError(t, svc.Enrollments.Verify(ctx, identityID, code, "", testDevice()))

	return challenge.Secret
}

func TestPasswordLoginWithSecondFactor(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := newLoginService(t, st, nil)
	ident := seedIdentity(t, st, "alice@example.com", "correct horse", false)
	dev := testDevice()

	secret := enrollAuthenticator(t, svc, ident.ID)

	session, challenge, err := svc.PasswordLogin(ctx, "alice@example.com", "correct horse", dev)
	require.NoError(t, err)
	require.Nil(t, session, "session must not be issued before the second factor")
	require.NotNil(t, challenge)
	require.Equal(t, "mfa_required", challenge.Outcome)
	require.NotEmpty(t, challenge.ChallengeToken)
	require.True(t, challenge.DeviceTrusted, "enrollment registered this device")

	// No event yet: the attempt is incomplete.
	events, err := st.LoginEvents().ListByIdentity(ctx, ident.ID, 10)
	require.NoError(t, err)
	require.Empty(t, events)

	code, err := totp.GenerateCode(secret, time.Now().UTC())
	require.NoError(t, err)

	session, err = svc.CompleteChallenge(ctx, challenge.ChallengeToken, code, dev)
	require.NoError(t, err)
	require.Equal(t, domain.FactorAuthenticator, session.Factor)

	events, err = st.LoginEvents().ListByIdentity(ctx, ident.ID, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, domain.LoginSuccess, events[0].Outcome)
	require.Equal(t, domain.FactorAuthenticator, events[0].FactorUsed)

	// The token is single use.
	code, err = totp.GenerateCode(secret, time.Now().UTC())
	require.NoError(t, err)
	_, err = svc.CompleteChallenge(ctx, challenge.ChallengeToken, code, dev)
	require.ErrorIs(t, err, ErrChallengeInvalid)
}

func TestCompleteChallengeWrongCodeKeepsTokenAlive(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := newLoginService(t, st, nil)
	ident := seedIdentity(t, st, "alice@example.com", "correct horse", false)
	dev := testDevice()

	secret := enrollAuthenticator(t, svc, ident.ID)

	_, challenge, err := svc.PasswordLogin(ctx, "alice@example.com", "correct horse", dev)
	require.NoError(t, err)
	require.NotNil(t, challenge)

	_, err = svc.CompleteChallenge(ctx, challenge.ChallengeToken, "000000", dev)
	require.ErrorIs(t, err, ErrInvalidAuthenticatorCode)

	// The failure is audited but the token still works for a retry.
	events, err := st.LoginEvents().ListByIdentity(ctx, ident.ID, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, domain.LoginFailure, events[0].Outcome)

	code, err := totp.GenerateCode(secret, time.Now().UTC())
	require.NoError(t, err)
	session, err := svc.CompleteChallenge(ctx, challenge.ChallengeToken, code, dev)
	require.NoError(t, err)
	require.NotNil(t, session)
}

func TestCompleteChallengeAttemptCap(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := newLoginService(t, st, nil)
	ident := seedIdentity(t, st, "alice@example.com", "correct horse", false)
	dev := testDevice()

	enrollAuthenticator(t, svc, ident.ID)

	_, challenge, err := svc.PasswordLogin(ctx, "alice@example.com", "correct horse", dev)
	require.NoError(t, err)

	for i := 0; i < MaxChallengeAttempts-1; i++ {
		_, err = svc.CompleteChallenge(ctx, challenge.ChallengeToken, "000000", dev)
		require.ErrorIs(t, err, ErrInvalidAuthenticatorCode)
	}

	_, err = svc.CompleteChallenge(ctx, challenge.ChallengeToken, "000000", dev)
	require.ErrorIs(t, err, ErrTooManyAttempts)

	// The token is discarded outright once the cap is hit.
	_, err = svc.CompleteChallenge(ctx, challenge.ChallengeToken, "000000", dev)
	require.ErrorIs(t, err, ErrChallengeInvalid)
}

func TestCompleteChallengeExpiredToken(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := newLoginService(t, st, nil)
	svc.ChallengeTTL = time.Millisecond
	ident := seedIdentity(t, st, "alice@example.com", "correct horse", false)
	dev := testDevice()
	secret := enrollAuthenticator(t, svc, ident.ID)

	_, challenge, err := svc.PasswordLogin(ctx, "alice@example.com", "correct horse", dev)
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)

	code, err := totp.GenerateCode(secret, time.Now().UTC())
	require.NoError(t, err)
	_, err = svc.CompleteChallenge(ctx, challenge.ChallengeToken, code, dev)
	require.ErrorIs(t, err, ErrChallengeExpired)
}

func TestTrustedDeviceSkipsChallenge(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := newLoginService(t, st, nil)
	svc.TrustedDeviceSkip = true
	ident := seedIdentity(t, st, "alice@example.com", "correct horse", false)
	dev := testDevice()

	enrollAuthenticator(t, svc, ident.ID)

	session, challenge, err := svc.PasswordLogin(ctx, "alice@example.com", "correct horse", dev)
	require.NoError(t, err)
	require.Nil(t, challenge)
	require.NotNil(t, session, "trusted device short-circuits the challenge when enabled")

	// Trust never substitutes for the primary credential.
	_, _, err = svc.PasswordLogin(ctx, "alice@example.com", "wrong", dev)
	require.ErrorIs(t, err, ErrInvalidCredential)
}

func TestOTPLoginFlow(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	mailer := &captureMailer{}
	svc := newLoginService(t, st, mailer)
	ident := seedIdentity(t, st, "alice@example.com", "correct horse", true)
	dev := testDevice()

	expires, err := svc.RequestOTP(ctx, "alice@example.com")
	require.NoError(t, err)
	require.True(t, expires.After(time.Now()))
	require.Len(t, mailer.LastCode(), CodeDigits)

	session, err := svc.OTPLogin(ctx, "alice@example.com", mailer.LastCode(), dev)
	require.NoError(t, err)
	require.Equal(t, domain.FactorOneTimeCode, session.Factor)

	events, err := st.LoginEvents().ListByIdentity(ctx, ident.ID, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, domain.FactorOneTimeCode, events[0].FactorUsed)

	// Replaying the consumed code fails and is audited.
	_, err = svc.OTPLogin(ctx, "alice@example.com", mailer.LastCode(), dev)
	require.ErrorIs(t, err, ErrCodeConsumed)

	events, err = st.LoginEvents().ListByIdentity(ctx, ident.ID, 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
}

func TestRequestOTPRequiresPasswordlessFlag(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := newLoginService(t, st, nil)
	seedIdentity(t, st, "alice@example.com", "correct horse", false)

	_, err := svc.RequestOTP(ctx, "alice@example.com")
	require.ErrorIs(t, err, ErrCodeLoginDisabled)

	_, err = svc.RequestOTP(ctx, "nobody@example.com")
	require.ErrorIs(t, err, ErrIdentityNotFound)
}

func TestPasswordResetFlow(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	mailer := &captureMailer{}
	svc := newLoginService(t, st, mailer)
	seedIdentity(t, st, "alice@example.com", "old password", false)
	dev := testDevice()

	_, err := svc.RequestReset(ctx, "alice@example.com")
	require.NoError(t, err)

	require.NoError(t, svc.CompleteReset(ctx, "alice@example.com", mailer.LastCode(), "new password", dev))

	// Old password no longer works, the new one does, and no session was
	// issued by the reset itself.
	_, _, err = svc.PasswordLogin(ctx, "alice@example.com", "old password", dev)
	require.ErrorIs(t, err, ErrInvalidCredential)

	session, challenge, err := svc.PasswordLogin(ctx, "alice@example.com", "new password", dev)
	require.NoError(t, err)
	require.Nil(t, challenge)
	require.NotNil(t, session)
}

func TestFailedResetCodeIsAudited(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	mailer := &captureMailer{}
	svc := newLoginService(t, st, mailer)
	ident := seedIdentity(t, st, "alice@example.com", "old password", false)
	dev := testDevice()

	_, err := svc.RequestReset(ctx, "alice@example.com")
	require.NoError(t, err)

	wrongCode := "000000"
	if mailer.LastCode() == wrongCode {
		wrongCode = "111111"
	}
	err = svc.CompleteReset(ctx, "alice@example.com", wrongCode, "new password", dev)
	require.ErrorIs(t, err, ErrCodeMismatch)

	// The failed verification lands in the audit trail with the device
	// metadata, like every other code-verification failure.
	events, err := st.LoginEvents().ListByIdentity(ctx, ident.ID, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, domain.LoginFailure, events[0].Outcome)
	require.Equal(t, domain.FactorOneTimeCode, events[0].FactorUsed)
	require.Equal(t, dev.NetworkAddress, events[0].NetworkAddress)

	// The credential is untouched.
	_, _, err = svc.PasswordLogin(ctx, "alice@example.com", "old password", dev)
	require.NoError(t, err)
}

func TestResetCodeCannotCrossPurposes(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	mailer := &captureMailer{}
	svc := newLoginService(t, st, mailer)
	seedIdentity(t, st, "alice@example.com", "correct horse", true)
	dev := testDevice()

	_, err := svc.RequestReset(ctx, "alice@example.com")
	require.NoError(t, err)
	resetCode := mailer.LastCode()

	// A reset code is not a login code.
	_, err = svc.OTPLogin(ctx, "alice@example.com", resetCode, dev)
	require.Error(t, err)
}

func TestRevokeDeviceDoesNotInvalidateSession(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := newLoginService(t, st, nil)
	ident := seedIdentity(t, st, "alice@example.com", "correct horse", false)
	dev := testDevice()

	secret := enrollAuthenticator(t, svc, ident.ID)

	_, challenge, err := svc.PasswordLogin(ctx, "alice@example.com", "correct horse", dev)
	require.NoError(t, err)

	code, err := totp.GenerateCode(secret, time.Now().UTC())
	require.NoError(t, err)
	session, err := svc.CompleteChallenge(ctx, challenge.ChallengeToken, code, dev)
	require.NoError(t, err)

	devices := &DeviceService{Store: st}
	list, err := devices.List(ctx, ident.ID, dev.Fingerprint)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.True(t, list[0].IsCurrentDevice)

	require.NoError(t, devices.Revoke(ctx, ident.ID, list[0].ID))

	// Revocation only affects future challenges; the session stands.
	verifier := svc.Signer.(jwtx.Verifier)
	_, err = verifier.Verify(session.Token)
	require.NoError(t, err)

	trusted, err := devices.IsTrusted(ctx, ident.ID, dev.Fingerprint)
	require.NoError(t, err)
	require.False(t, trusted)
}
