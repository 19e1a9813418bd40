package authsdk

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoginDecodesSessionOutcome(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/login", r.URL.Path)

		var req LoginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "alice@example.com", req.Email)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(SessionResponse{
			Outcome:   "success",
			Token:     "signed-jwt",
			SessionID: "sess-1",
			ExpiresAt: time.Now().Add(12 * time.Hour).UTC(),
			Factor:    "password",
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	outcome, err := client.Login(context.Background(), "alice@example.com", "hunter2!")
	require.NoError(t, err)
	require.Nil(t, outcome.Challenge)
	require.NotNil(t, outcome.Session)
	require.Equal(t, "signed-jwt", outcome.Session.Token)
}

func TestLoginDecodesChallengeOutcome(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(ChallengeResponse{
			Outcome:        "mfa_required",
			ChallengeToken: "opaque-token",
			ExpiresAt:      time.Now().Add(5 * time.Minute).UTC(),
			DeviceTrusted:  true,
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	outcome, err := client.Login(context.Background(), "alice@example.com", "hunter2!")
	require.NoError(t, err)
	require.Nil(t, outcome.Session)
	require.NotNil(t, outcome.Challenge)
	require.Equal(t, "opaque-token", outcome.Challenge.ChallengeToken)
	require.True(t, outcome.Challenge.DeviceTrusted)
}

func TestErrorEnvelopeDecoding(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ErrInvalidCredential.WriteError(w)
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	_, err := client.Login(context.Background(), "alice@example.com", "wrong")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	require.Equal(t, ErrorCodeInvalidCredential, apiErr.Code)
}

func TestNonJSONErrorFallsBackToStatusText(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	_, err := client.RequestOTP(context.Background(), "alice@example.com")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	require.Equal(t, ErrorCodeServerError, apiErr.Code)
}

func TestSessionSendsBearerToken(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer my-token", r.Header.Get("Authorization"))
		require.Equal(t, "/v1/devices", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode([]DeviceResponse{
			{ID: "dev-1", DisplayName: "Work Laptop", IsCurrentDevice: true},
		})
	}))
	defer srv.Close()

	session := NewClient(srv.URL).Session("my-token")
	devices, err := session.Devices(context.Background())
	require.NoError(t, err)
	require.Len(t, devices, 1)
	require.True(t, devices[0].IsCurrentDevice)
}

func TestLoginHistoryPassesLimit(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/login-history", r.URL.Path)
		require.Equal(t, "10", r.URL.Query().Get("limit"))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode([]LoginEventResponse{})
	}))
	defer srv.Close()

	session := NewClient(srv.URL).Session("my-token")
	events, err := session.LoginHistory(context.Background(), 10)
	require.NoError(t, err)
	require.Empty(t, events)
}
