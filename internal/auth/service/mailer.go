package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/loomhr/auth/internal/auth/domain"
)

// Mailer delivers one-time codes to an identity's email address. Delivery
// is fire-and-forget from the caller's perspective: a send failure is never
// surfaced as a verification failure, since the issuer cannot know whether
// the mail arrived anyway.
type Mailer interface {
	SendCode(ctx context.Context, email, code string, purpose domain.CodePurpose) error
}

// LogMailer writes codes to the log instead of sending mail. Default when
// no mail transport is configured; useful in development and tests.
type LogMailer struct {
	Logger *slog.Logger
}

func (m *LogMailer) SendCode(_ context.Context, email, code string, purpose domain.CodePurpose) error {
	m.Logger.Info("one-time code issued (mail transport not configured)",
		"email", email,
		"code", code,
		"purpose", purpose,
	)
	return nil
}

// RelayMailer hands codes to an HTTP mail relay. The relay owns templates
// and transport; this side only posts the payload.
type RelayMailer struct {
	Endpoint string
	Client   *http.Client
}

func NewRelayMailer(endpoint string) *RelayMailer {
	return &RelayMailer{
		Endpoint: endpoint,
		Client:   &http.Client{Timeout: 10 * time.Second},
	}
}

func (m *RelayMailer) SendCode(ctx context.Context, email, code string, purpose domain.CodePurpose) error {
	payload, err := json.Marshal(map[string]string{
		"email":   email,
		"code":    code,
		"purpose": string(purpose),
	})
	if err != nil {
		return fmt.Errorf("failed to encode mail payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build mail request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.Client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach mail relay: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("mail relay returned status %d", resp.StatusCode)
	}
	return nil
}
