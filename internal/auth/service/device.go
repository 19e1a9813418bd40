package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/loomhr/auth/internal/auth/domain"
	"github.com/loomhr/auth/internal/auth/store"
)

var ErrDeviceNotFound = errors.New("device not found")

// DeviceService is the trusted-device registry. Devices enter the registry
// only as a side effect of second-factor success (see EnrollmentService and
// LoginService); this service covers lookups, listing and revocation.
type DeviceService struct {
	Store store.Store
}

// IsTrusted reports whether the fingerprint is registered for the
// identity. Exact match only, so one device cannot masquerade as another.
func (s *DeviceService) IsTrusted(ctx context.Context, identityID, deviceFingerprint string) (bool, error) {
	_, err := s.Store.TrustedDevices().GetByFingerprint(ctx, identityID, deviceFingerprint)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to look up trusted device: %w", err)
	}
	return true, nil
}

// Touch refreshes lastUsedAt for a fingerprint match. Called whenever a
// login lands on an already-trusted device.
func (s *DeviceService) Touch(ctx context.Context, identityID, deviceFingerprint string) error {
	err := s.Store.TrustedDevices().TouchDevice(ctx, identityID, deviceFingerprint, time.Now().UTC())
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("failed to touch trusted device: %w", err)
	}
	return nil
}

// List returns the identity's devices newest first, flagging the entry
// that matches the caller's current fingerprint. The current device is a
// display hint only; it is still revocable like any other.
func (s *DeviceService) List(ctx context.Context, identityID, currentFingerprint string) ([]domain.TrustedDeviceView, error) {
	devices, err := s.Store.TrustedDevices().ListByIdentity(ctx, identityID)
	if err != nil {
		return nil, fmt.Errorf("failed to list trusted devices: %w", err)
	}

	views := make([]domain.TrustedDeviceView, 0, len(devices))
	for _, d := range devices {
		views = append(views, domain.TrustedDeviceView{
			TrustedDevice:   d,
			IsCurrentDevice: currentFingerprint != "" && d.Fingerprint == currentFingerprint,
		})
	}
	return views, nil
}

// Revoke hard-deletes a device. Sessions issued before the revocation stay
// valid; trust only controls future second-factor challenges.
func (s *DeviceService) Revoke(ctx context.Context, identityID, deviceID string) error {
	if err := s.Store.TrustedDevices().DeleteDevice(ctx, identityID, deviceID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrDeviceNotFound
		}
		return fmt.Errorf("failed to revoke device: %w", err)
	}
	return nil
}
