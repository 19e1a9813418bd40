package service

import (
	"context"
	"testing"
	"time"

	"github.com/loomhr/auth/internal/auth/domain"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"
)

func TestEnrollVerifyActivates(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := &EnrollmentService{Store: st, Issuer: "LoomHR"}
	ident := seedIdentity(t, st, "alice@example.com", "pw", false)
	dev := testDevice()

	challenge, err := svc.StartEnroll(ctx, ident.ID)
	require.NoError(t, err)
	require.NotEmpty(t, challenge.Secret)
	require.Contains(t, challenge.ProvisioningURI, "otpauth://")
	require.Equal(t, "alice@example.com", challenge.Account)

	// Not active until verified.
	loaded, err := st.Identities().GetIdentityByID(ctx, ident.ID)
	require.NoError(t, err)
	require.False(t, loaded.RequiresSecondFactor())

	code, err := totp.GenerateCode(challenge.Secret, time.Now().UTC())
	require.NoError(t, err)
	require.NoError(t, svc.Verify(ctx, ident.ID, code, "My Laptop", dev))

	loaded, err = st.Identities().GetIdentityByID(ctx, ident.ID)
	require.NoError(t, err)
	require.True(t, loaded.RequiresSecondFactor())

	active, err := st.Enrollments().GetEnrollment(ctx, ident.ID, domain.EnrollmentActive)
	require.NoError(t, err)
	require.Equal(t, challenge.Secret, active.Secret)

	// Verification registered the submitting device as trusted.
	registered, err := st.TrustedDevices().GetByFingerprint(ctx, ident.ID, dev.Fingerprint)
	require.NoError(t, err)
	require.Equal(t, "My Laptop", registered.DisplayName)
}

func TestEnrollVerifyRejectsBadCode(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := &EnrollmentService{Store: st, Issuer: "LoomHR"}
	ident := seedIdentity(t, st, "alice@example.com", "pw", false)
	dev := testDevice()

	_, err := svc.StartEnroll(ctx, ident.ID)
	require.NoError(t, err)

	err = svc.Verify(ctx, ident.ID, "000000", "My Laptop", dev)
	require.ErrorIs(t, err, ErrInvalidAuthenticatorCode)

	// Nothing activated, nothing registered.
	loaded, err := st.Identities().GetIdentityByID(ctx, ident.ID)
	require.NoError(t, err)
	require.False(t, loaded.RequiresSecondFactor())

	_, err = st.TrustedDevices().GetByFingerprint(ctx, ident.ID, dev.Fingerprint)
	require.Error(t, err)
}

func TestFailedReEnrollmentKeepsActiveSecret(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := &EnrollmentService{Store: st, Issuer: "LoomHR"}
	ident := seedIdentity(t, st, "alice@example.com", "pw", false)
	dev := testDevice()

	first, err := svc.StartEnroll(ctx, ident.ID)
	require.NoError(t, err)
	code, err := totp.GenerateCode(first.Secret, time.Now().UTC())
	require.NoError(t, err)
	require.NoError(t, svc.Verify(ctx, ident.ID, code, "", dev))

	// A new enrollment starts pending alongside the active one.
	second, err := svc.StartEnroll(ctx, ident.ID)
	require.NoError(t, err)
	require.NotEqual(t, first.Secret, second.Secret)

	// Failing against the new pending secret leaves the old one intact
	// and still usable for login challenges.
	err = svc.Verify(ctx, ident.ID, "000000", "", dev)
	require.ErrorIs(t, err, ErrInvalidAuthenticatorCode)

	code, err = totp.GenerateCode(first.Secret, time.Now().UTC())
	require.NoError(t, err)
	require.NoError(t, svc.ValidateActive(ctx, ident.ID, code))

	// Proving the new secret swaps it in.
	code, err = totp.GenerateCode(second.Secret, time.Now().UTC())
	require.NoError(t, err)
	require.NoError(t, svc.Verify(ctx, ident.ID, code, "", dev))

	active, err := st.Enrollments().GetEnrollment(ctx, ident.ID, domain.EnrollmentActive)
	require.NoError(t, err)
	require.Equal(t, second.Secret, active.Secret)
}

func TestDisableClearsFactorButKeepsDevices(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := &EnrollmentService{Store: st, Issuer: "LoomHR"}
	ident := seedIdentity(t, st, "alice@example.com", "pw", false)
	dev := testDevice()

	challenge, err := svc.StartEnroll(ctx, ident.ID)
	require.NoError(t, err)
	code, err := totp.GenerateCode(challenge.Secret, time.Now().UTC())
	require.NoError(t, err)
	require.NoError(t, svc.Verify(ctx, ident.ID, code, "", dev))

	require.NoError(t, svc.Disable(ctx, ident.ID))

	loaded, err := st.Identities().GetIdentityByID(ctx, ident.ID)
	require.NoError(t, err)
	require.False(t, loaded.RequiresSecondFactor())

	_, err = st.Enrollments().GetEnrollment(ctx, ident.ID, domain.EnrollmentActive)
	require.Error(t, err)

	// Devices stay registered; they are simply inert without the flag.
	devices, err := st.TrustedDevices().ListByIdentity(ctx, ident.ID)
	require.NoError(t, err)
	require.Len(t, devices, 1)
}

func TestStartEnrollReplacesPending(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := &EnrollmentService{Store: st, Issuer: "LoomHR"}
	ident := seedIdentity(t, st, "alice@example.com", "pw", false)
	dev := testDevice()

	first, err := svc.StartEnroll(ctx, ident.ID)
	require.NoError(t, err)
	second, err := svc.StartEnroll(ctx, ident.ID)
	require.NoError(t, err)

	// The first pending secret is gone; only the second verifies.
	code, err := totp.GenerateCode(first.Secret, time.Now().UTC())
	require.NoError(t, err)
	require.ErrorIs(t, svc.Verify(ctx, ident.ID, code, "", dev), ErrInvalidAuthenticatorCode)

	code, err = totp.GenerateCode(second.Secret, time.Now().UTC())
	require.NoError(t, err)
	require.NoError(t, svc.Verify(ctx, ident.ID, code, "", dev))
}
