package http

import (
	"errors"
	"net/http"

	"github.com/loomhr/auth/internal/auth/service"
	"github.com/loomhr/auth/pkg/authsdk"
	"github.com/loomhr/auth/pkg/httpx"
	"github.com/loomhr/auth/pkg/slogx"
)

// DevicesHandler covers the trusted-device registry endpoints.
type DevicesHandler struct {
	DeviceService *service.DeviceService
}

// HandleList handles GET /v1/devices, newest first, with the caller's
// current device flagged.
func (h *DevicesHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	identityID := httpx.IdentityIDFromContext(ctx)
	if identityID == "" {
		authsdk.ErrInvalidToken.WriteError(w)
		return
	}

	current := collectDevice(r)
	devices, err := h.DeviceService.List(ctx, identityID, current.Fingerprint)
	if err != nil {
		log.Error("failed to list devices", "identity_id", identityID, "err", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	out := make([]authsdk.DeviceResponse, 0, len(devices))
	for _, d := range devices {
		out = append(out, authsdk.DeviceResponse{
			ID:              d.ID,
			DisplayName:     d.DisplayName,
			DeviceType:      d.DeviceType,
			Browser:         d.Browser,
			OS:              d.OS,
			NetworkAddress:  d.NetworkAddress,
			AddedAt:         d.AddedAt,
			LastUsedAt:      d.LastUsedAt,
			IsCurrentDevice: d.IsCurrentDevice,
		})
	}

	httpx.WriteJSON(w, http.StatusOK, out)
}

// HandleRevoke handles DELETE /v1/devices/{id}. The current device is
// revocable like any other; already-issued sessions are unaffected.
func (h *DevicesHandler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	identityID := httpx.IdentityIDFromContext(ctx)
	if identityID == "" {
		authsdk.ErrInvalidToken.WriteError(w)
		return
	}

	deviceID := r.PathValue("id")
	if deviceID == "" {
		authsdk.ErrInvalidRequest.WriteError(w)
		return
	}

	if err := h.DeviceService.Revoke(ctx, identityID, deviceID); err != nil {
		if errors.Is(err, service.ErrDeviceNotFound) {
			authsdk.ErrNotFound.WriteError(w)
			return
		}
		log.Error("failed to revoke device", "identity_id", identityID, "device_id", deviceID, "err", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
