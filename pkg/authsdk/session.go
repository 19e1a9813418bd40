package authsdk

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
)

// Session is an authenticated view of the API, bound to one bearer token.
type Session struct {
	client *Client
	token  string
}

// Token returns the raw bearer token.
func (s *Session) Token() string { return s.token }

// EnrollAuthenticator starts a TOTP enrollment. The returned secret must
// be verified with VerifyAuthenticator before the factor is active.
func (s *Session) EnrollAuthenticator(ctx context.Context) (*EnrollResponse, error) {
	body, err := s.client.post(ctx, "/v1/mfa/enroll", s.token, struct{}{})
	if err != nil {
		return nil, err
	}

	var enroll EnrollResponse
	if err := json.Unmarshal(body, &enroll); err != nil {
		return nil, fmt.Errorf("authsdk: decode enrollment: %w", err)
	}
	return &enroll, nil
}

// VerifyAuthenticator proves a pending enrollment with a current code,
// activating the second factor and trusting the current device.
func (s *Session) VerifyAuthenticator(ctx context.Context, code, deviceName string) error {
	_, err := s.client.post(ctx, "/v1/mfa/verify", s.token, EnrollVerifyRequest{
		Code:       code,
		DeviceName: deviceName,
	})
	return err
}

// DisableAuthenticator turns the second factor off. The current code is
// required.
func (s *Session) DisableAuthenticator(ctx context.Context, code string) error {
	_, err := s.client.delete(ctx, "/v1/mfa", s.token, DisableMFARequest{Code: code})
	return err
}

// Devices lists the trusted devices, newest first.
func (s *Session) Devices(ctx context.Context) ([]DeviceResponse, error) {
	body, err := s.client.get(ctx, "/v1/devices", s.token)
	if err != nil {
		return nil, err
	}

	var devices []DeviceResponse
	if err := json.Unmarshal(body, &devices); err != nil {
		return nil, fmt.Errorf("authsdk: decode devices: %w", err)
	}
	return devices, nil
}

// RevokeDevice removes a trusted device by id.
func (s *Session) RevokeDevice(ctx context.Context, deviceID string) error {
	_, err := s.client.delete(ctx, "/v1/devices/"+url.PathEscape(deviceID), s.token, nil)
	return err
}

// ActiveSessions lists the logins counted as active.
func (s *Session) ActiveSessions(ctx context.Context) ([]LoginEventResponse, error) {
	return s.events(ctx, "/v1/sessions")
}

// LoginHistory lists recent login attempts, newest first. A limit of 0
// uses the server default.
func (s *Session) LoginHistory(ctx context.Context, limit int) ([]LoginEventResponse, error) {
	path := "/v1/login-history"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	return s.events(ctx, path)
}

func (s *Session) events(ctx context.Context, path string) ([]LoginEventResponse, error) {
	body, err := s.client.get(ctx, path, s.token)
	if err != nil {
		return nil, err
	}

	var events []LoginEventResponse
	if err := json.Unmarshal(body, &events); err != nil {
		return nil, fmt.Errorf("authsdk: decode events: %w", err)
	}
	return events, nil
}
