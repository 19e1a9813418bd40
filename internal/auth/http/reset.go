package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/loomhr/auth/internal/auth/service"
	"github.com/loomhr/auth/pkg/authsdk"
	"github.com/loomhr/auth/pkg/httpx"
	"github.com/loomhr/auth/pkg/slogx"
)

const minPasswordLength = 8

// ResetHandler covers the password-reset flow.
type ResetHandler struct {
	LoginService *service.LoginService
}

// HandleRequest handles POST /v1/password-reset/request. Like the OTP
// request endpoint, unknown emails get the same acknowledgement.
func (h *ResetHandler) HandleRequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req authsdk.OTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	expiresAt, err := h.LoginService.RequestReset(ctx, req.Email)
	if err != nil {
		if errors.Is(err, service.ErrIdentityNotFound) {
			expiresAt = codePlaceholderExpiry()
		} else {
			log.Error("reset request failed", "err", err)
			authsdk.ErrServerError.WriteError(w)
			return
		}
	}

	httpx.WriteJSON(w, http.StatusAccepted, authsdk.CodeIssuedResponse{
		Outcome:   "code_sent",
		ExpiresAt: expiresAt,
	})
}

// HandleComplete handles POST /v1/password-reset. On success the caller
// must log in again with the new password; no session is issued here.
func (h *ResetHandler) HandleComplete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req authsdk.ResetCompleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" || req.Code == "" {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}
	if len(req.NewPassword) < minPasswordLength {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	if err := h.LoginService.CompleteReset(ctx, req.Email, req.Code, req.NewPassword, collectDevice(r)); err != nil {
		writeCodeError(w, log, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// writeCodeError maps code-verification failures to the external error
// set. Mismatch, prior consumption and absence share one code to keep
// replay probing blind; expiry is separate so clients can offer a resend.
func writeCodeError(w http.ResponseWriter, log *slog.Logger, err error) {
	switch {
	case errors.Is(err, service.ErrCodeExpired):
		authsdk.ErrExpired.WriteError(w)
	case errors.Is(err, service.ErrCodeMismatch),
		errors.Is(err, service.ErrCodeConsumed),
		errors.Is(err, service.ErrCodeNotFound):
		authsdk.ErrInvalidCode.WriteError(w)
	default:
		log.Error("code verification failed", "err", err)
		authsdk.ErrServerError.WriteError(w)
	}
}

// codePlaceholderExpiry matches the acknowledgement shape for requests
// that issued nothing, so the response does not reveal whether the email
// maps to an account.
func codePlaceholderExpiry() time.Time {
	return time.Now().UTC().Add(service.DefaultCodeTTL)
}
