package http

import (
	"net/http"
	"strconv"

	"github.com/loomhr/auth/internal/auth/domain"
	"github.com/loomhr/auth/internal/auth/service"
	"github.com/loomhr/auth/pkg/authsdk"
	"github.com/loomhr/auth/pkg/httpx"
	"github.com/loomhr/auth/pkg/slogx"
)

// AuditHandler exposes the login trail and the sessions derived from it.
type AuditHandler struct {
	AuditService *service.AuditService
}

// HandleSessions handles GET /v1/sessions: the success events inside the
// trailing active window.
func (h *AuditHandler) HandleSessions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	identityID := httpx.IdentityIDFromContext(ctx)
	if identityID == "" {
		authsdk.ErrInvalidToken.WriteError(w)
		return
	}

	events, err := h.AuditService.ActiveSessions(ctx, identityID)
	if err != nil {
		log.Error("failed to derive active sessions", "identity_id", identityID, "err", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, eventResponses(events))
}

// HandleHistory handles GET /v1/login-history?limit=N.
func (h *AuditHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	identityID := httpx.IdentityIDFromContext(ctx)
	if identityID == "" {
		authsdk.ErrInvalidToken.WriteError(w)
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			authsdk.ErrInvalidRequest.WriteError(w)
			return
		}
		limit = parsed
	}

	events, err := h.AuditService.History(ctx, identityID, limit)
	if err != nil {
		log.Error("failed to list login history", "identity_id", identityID, "err", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, eventResponses(events))
}

func eventResponses(events []domain.LoginEventView) []authsdk.LoginEventResponse {
	out := make([]authsdk.LoginEventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, authsdk.LoginEventResponse{
			ID:             e.ID,
			Timestamp:      e.Timestamp,
			NetworkAddress: e.NetworkAddress,
			Browser:        e.Browser,
			OS:             e.OS,
			DeviceType:     e.DeviceType,
			Outcome:        string(e.Outcome),
			Factor:         string(e.FactorUsed),
			Location:       e.Location,
		})
	}
	return out
}
