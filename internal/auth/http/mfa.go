package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/loomhr/auth/internal/auth/service"
	"github.com/loomhr/auth/pkg/authsdk"
	"github.com/loomhr/auth/pkg/httpx"
	"github.com/loomhr/auth/pkg/slogx"
)

// MFAHandler covers authenticator enrollment for the authenticated
// identity.
type MFAHandler struct {
	EnrollmentService *service.EnrollmentService
}

// HandleEnroll handles POST /v1/mfa/enroll. Starts (or restarts) a pending
// enrollment and returns the secret with its provisioning URI. The secret
// is shown once; an active factor keeps working until the new one is
// verified.
func (h *MFAHandler) HandleEnroll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	identityID := httpx.IdentityIDFromContext(ctx)
	if identityID == "" {
		authsdk.ErrInvalidToken.WriteError(w)
		return
	}

	challenge, err := h.EnrollmentService.StartEnroll(ctx, identityID)
	if err != nil {
		log.Error("failed to start enrollment", "identity_id", identityID, "err", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.EnrollResponse{
		Secret:          challenge.Secret,
		ProvisioningURI: challenge.ProvisioningURI,
		Issuer:          challenge.Issuer,
		Account:         challenge.Account,
	})
}

// HandleVerify handles POST /v1/mfa/verify. Proving the pending secret
// activates the factor and registers the current device as trusted.
func (h *MFAHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	identityID := httpx.IdentityIDFromContext(ctx)
	if identityID == "" {
		authsdk.ErrInvalidToken.WriteError(w)
		return
	}

	var req authsdk.EnrollVerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Code == "" {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	err := h.EnrollmentService.Verify(ctx, identityID, req.Code, req.DeviceName, collectDevice(r))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNoPendingEnrollment):
			authsdk.ErrConflict.WriteError(w)
		case errors.Is(err, service.ErrInvalidAuthenticatorCode):
			authsdk.ErrInvalidCode.WriteError(w)
		default:
			log.Error("enrollment verification failed", "identity_id", identityID, "err", err)
			authsdk.ErrServerError.WriteError(w)
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleDisable handles DELETE /v1/mfa. A current authenticator code is
// required so a stolen session alone cannot strip the factor.
func (h *MFAHandler) HandleDisable(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	identityID := httpx.IdentityIDFromContext(ctx)
	if identityID == "" {
		authsdk.ErrInvalidToken.WriteError(w)
		return
	}

	var req authsdk.DisableMFARequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Code == "" {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	if err := h.EnrollmentService.ValidateActive(ctx, identityID, req.Code); err != nil {
		switch {
		case errors.Is(err, service.ErrNoActiveEnrollment):
			authsdk.ErrConflict.WriteError(w)
		case errors.Is(err, service.ErrInvalidAuthenticatorCode):
			authsdk.ErrInvalidCode.WriteError(w)
		default:
			log.Error("failed to validate disable request", "identity_id", identityID, "err", err)
			authsdk.ErrServerError.WriteError(w)
		}
		return
	}

	if err := h.EnrollmentService.Disable(ctx, identityID); err != nil {
		log.Error("failed to disable second factor", "identity_id", identityID, "err", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
