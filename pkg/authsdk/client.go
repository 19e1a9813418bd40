package authsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Client talks to the authentication service. The zero value is not
// usable; construct with NewClient.
type Client struct {
	baseURL string
	http    *http.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client, e.g. to set custom
// timeouts or transports.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// NewClient creates a client for the service at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Login submits the primary credential. The outcome is either a session
// or a second-factor challenge to complete with CompleteChallenge.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginOutcome, error) {
	body, err := c.post(ctx, "/v1/login", "", LoginRequest{Email: email, Password: password})
	if err != nil {
		return nil, err
	}
	return decodeLoginOutcome(body)
}

// CompleteChallenge submits an authenticator code against a pending
// challenge token.
func (c *Client) CompleteChallenge(ctx context.Context, challengeToken, code string) (*SessionResponse, error) {
	body, err := c.post(ctx, "/v1/login/mfa", "", ChallengeCompleteRequest{
		ChallengeToken: challengeToken,
		Code:           code,
	})
	if err != nil {
		return nil, err
	}

	var session SessionResponse
	if err := json.Unmarshal(body, &session); err != nil {
		return nil, fmt.Errorf("authsdk: decode session: %w", err)
	}
	return &session, nil
}

// RequestOTP asks for an emailed login code.
func (c *Client) RequestOTP(ctx context.Context, email string) (*CodeIssuedResponse, error) {
	return c.requestCode(ctx, "/v1/login/otp/request", email)
}

// LoginOTP completes the one-time-code login path.
func (c *Client) LoginOTP(ctx context.Context, email, code string) (*SessionResponse, error) {
	body, err := c.post(ctx, "/v1/login/otp", "", OTPLoginRequest{Email: email, Code: code})
	if err != nil {
		return nil, err
	}

	var session SessionResponse
	if err := json.Unmarshal(body, &session); err != nil {
		return nil, fmt.Errorf("authsdk: decode session: %w", err)
	}
	return &session, nil
}

// RequestReset asks for an emailed password-reset code.
func (c *Client) RequestReset(ctx context.Context, email string) (*CodeIssuedResponse, error) {
	return c.requestCode(ctx, "/v1/password-reset/request", email)
}

// CompleteReset submits the reset code with the replacement password. No
// session is issued; log in again afterwards.
func (c *Client) CompleteReset(ctx context.Context, email, code, newPassword string) error {
	_, err := c.post(ctx, "/v1/password-reset", "", ResetCompleteRequest{
		Email:       email,
		Code:        code,
		NewPassword: newPassword,
	})
	return err
}

// Session wraps an issued bearer token for the authenticated endpoints.
func (c *Client) Session(token string) *Session {
	return &Session{client: c, token: token}
}

// Livez checks the liveness probe.
func (c *Client) Livez(ctx context.Context) (*HealthResponse, error) {
	return c.health(ctx, "/livez")
}

// Readyz checks the readiness probe. A degraded service returns both the
// response and an APIError carrying the 503.
func (c *Client) Readyz(ctx context.Context) (*HealthResponse, error) {
	return c.health(ctx, "/readyz")
}

func (c *Client) requestCode(ctx context.Context, path, email string) (*CodeIssuedResponse, error) {
	body, err := c.post(ctx, path, "", OTPRequest{Email: email})
	if err != nil {
		return nil, err
	}

	var issued CodeIssuedResponse
	if err := json.Unmarshal(body, &issued); err != nil {
		return nil, fmt.Errorf("authsdk: decode response: %w", err)
	}
	return &issued, nil
}

func (c *Client) health(ctx context.Context, path string) (*HealthResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("authsdk: build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("authsdk: %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	var health HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return nil, fmt.Errorf("authsdk: decode health: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return &health, &APIError{
			StatusCode:  resp.StatusCode,
			Code:        ErrorCodeServerError,
			Description: "service not ready",
		}
	}
	return &health, nil
}

// do issues a request and returns the raw body on 2xx, or the decoded
// APIError otherwise.
func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("authsdk: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, fmt.Errorf("authsdk: read response: %w", err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return buf.Bytes(), nil
	}

	apiErr := &APIError{StatusCode: resp.StatusCode}
	if err := json.Unmarshal(buf.Bytes(), apiErr); err != nil || apiErr.Code == "" {
		apiErr.Code = ErrorCodeServerError
		apiErr.Description = http.StatusText(resp.StatusCode)
	}
	return nil, apiErr
}

func (c *Client) post(ctx context.Context, path, token string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("authsdk: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("authsdk: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return c.do(req)
}

func (c *Client) get(ctx context.Context, path, token string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("authsdk: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return c.do(req)
}

func (c *Client) delete(ctx context.Context, path, token string, payload any) ([]byte, error) {
	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("authsdk: encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("authsdk: build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return c.do(req)
}

// decodeLoginOutcome splits the two success shapes of /v1/login on the
// outcome tag.
func decodeLoginOutcome(body []byte) (*LoginOutcome, error) {
	var probe struct {
		Outcome string `json:"outcome"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		return nil, fmt.Errorf("authsdk: decode login outcome: %w", err)
	}

	switch probe.Outcome {
	case "mfa_required":
		var challenge ChallengeResponse
		if err := json.Unmarshal(body, &challenge); err != nil {
			return nil, fmt.Errorf("authsdk: decode challenge: %w", err)
		}
		return &LoginOutcome{Challenge: &challenge}, nil
	case "success":
		var session SessionResponse
		if err := json.Unmarshal(body, &session); err != nil {
			return nil, fmt.Errorf("authsdk: decode session: %w", err)
		}
		return &LoginOutcome{Session: &session}, nil
	default:
		return nil, fmt.Errorf("authsdk: unexpected outcome %q", probe.Outcome)
	}
}
