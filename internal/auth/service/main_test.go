package service

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/loomhr/auth/internal/auth/domain"
	"github.com/loomhr/auth/internal/auth/store/drivers/sqlite"
	"github.com/loomhr/auth/pkg/cryptox"
	"github.com/loomhr/auth/pkg/fingerprint"
	"github.com/loomhr/auth/pkg/idx"
	"github.com/loomhr/auth/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "auth-test")
	if err != nil {
		panic(err)
	}
	cryptox.SetPepperPath(filepath.Join(dir, "pepper"))

	code := m.Run()
	_ = os.RemoveAll(dir)
	os.Exit(code)
}

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	require.NoError(t, st.ApplyMigrations())
	return st
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// captureMailer records dispatched codes so tests can submit them.
type captureMailer struct {
	mu    sync.Mutex
	codes []string
}

func (m *captureMailer) SendCode(_ context.Context, _, code string, _ domain.CodePurpose) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.codes = append(m.codes, code)
	return nil
}

func (m *captureMailer) LastCode() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.codes) == 0 {
		return ""
	}
	return m.codes[len(m.codes)-1]
}

func seedIdentity(t *testing.T, st *sqlite.Store, email, password string, passwordless bool) domain.Identity {
	t.Helper()

	hash, err := cryptox.HashPassword(password)
	require.NoError(t, err)

	now := time.Now().UTC()
	ident := domain.Identity{
		ID:                idx.New().String(),
		Email:             email,
		PreferredName:     "Test User",
		CredentialHash:    hash,
		PasswordlessLogin: passwordless,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	require.NoError(t, st.Identities().CreateIdentity(context.Background(), ident))
	return ident
}

func testDevice() fingerprint.Device {
	const ua = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36"
	return fingerprint.Collect(ua, "203.0.113.9", time.Now().UTC())
}

func newLoginService(t *testing.T, st *sqlite.Store, mailer Mailer) *LoginService {
	t.Helper()

	signer, err := jwtx.NewEphemeralEdDSA("test-key", "test-issuer")
	require.NoError(t, err)

	if mailer == nil {
		mailer = &captureMailer{}
	}

	return &LoginService{
		Store: st,
		Codes: &CodeService{
			Store:  st,
			Mailer: mailer,
			Logger: testLogger(),
		},
		Enrollments: &EnrollmentService{Store: st, Issuer: "LoomHR"},
		Signer:      signer,
		Issuer:      "test-issuer",
	}
}
