package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/loomhr/auth/internal/auth/domain"
	"github.com/loomhr/auth/internal/auth/service"
	"github.com/loomhr/auth/pkg/authsdk"
	"github.com/loomhr/auth/pkg/httpx"
	"github.com/loomhr/auth/pkg/slogx"
)

// LoginHandler covers every unauthenticated login entry point.
type LoginHandler struct {
	LoginService *service.LoginService
}

// HandleLogin handles POST /v1/login. The response is either a session or
// a second-factor challenge, both carrying an outcome tag.
func (h *LoginHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req authsdk.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" || req.Password == "" {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	session, challenge, err := h.LoginService.PasswordLogin(ctx, req.Email, req.Password, collectDevice(r))
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredential) {
			authsdk.ErrInvalidCredential.WriteError(w)
			return
		}
		log.Error("password login failed", "err", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	if challenge != nil {
		httpx.WriteJSON(w, http.StatusOK, authsdk.ChallengeResponse{
			Outcome:        challenge.Outcome,
			ChallengeToken: challenge.ChallengeToken,
			ExpiresAt:      challenge.ExpiresAt,
			DeviceTrusted:  challenge.DeviceTrusted,
		})
		return
	}

	httpx.WriteJSON(w, http.StatusOK, sessionResponse(session))
}

// HandleChallenge handles POST /v1/login/mfa, completing a pending
// challenge with an authenticator code.
func (h *LoginHandler) HandleChallenge(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req authsdk.ChallengeCompleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ChallengeToken == "" || req.Code == "" {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	session, err := h.LoginService.CompleteChallenge(ctx, req.ChallengeToken, req.Code, collectDevice(r))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrChallengeExpired):
			authsdk.ErrExpired.WriteError(w)
		case errors.Is(err, service.ErrTooManyAttempts):
			authsdk.ErrTooManyAttempts.WriteError(w)
		case errors.Is(err, service.ErrChallengeInvalid),
			errors.Is(err, service.ErrInvalidAuthenticatorCode),
			errors.Is(err, service.ErrNoActiveEnrollment):
			authsdk.ErrInvalidCode.WriteError(w)
		default:
			log.Error("challenge completion failed", "err", err)
			authsdk.ErrServerError.WriteError(w)
		}
		return
	}

	httpx.WriteJSON(w, http.StatusOK, sessionResponse(session))
}

// HandleOTPRequest handles POST /v1/login/otp/request. The response is the
// same whether or not the email maps to an identity that can use codes, so
// the endpoint cannot be used to enumerate accounts.
func (h *LoginHandler) HandleOTPRequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req authsdk.OTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	expiresAt, err := h.LoginService.RequestOTP(ctx, req.Email)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrIdentityNotFound),
			errors.Is(err, service.ErrCodeLoginDisabled):
			// Fall through to the generic acknowledgement below.
			expiresAt = codePlaceholderExpiry()
		default:
			log.Error("otp request failed", "err", err)
			authsdk.ErrServerError.WriteError(w)
			return
		}
	}

	httpx.WriteJSON(w, http.StatusAccepted, authsdk.CodeIssuedResponse{
		Outcome:   "code_sent",
		ExpiresAt: expiresAt,
	})
}

// HandleOTPLogin handles POST /v1/login/otp.
func (h *LoginHandler) HandleOTPLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req authsdk.OTPLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" || req.Code == "" {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	session, err := h.LoginService.OTPLogin(ctx, req.Email, req.Code, collectDevice(r))
	if err != nil {
		writeCodeError(w, log, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, sessionResponse(session))
}

func sessionResponse(s *domain.Session) authsdk.SessionResponse {
	return authsdk.SessionResponse{
		Outcome:   "success",
		Token:     s.Token,
		SessionID: s.SessionID,
		ExpiresAt: s.ExpiresAt,
		Factor:    string(s.Factor),
	}
}
