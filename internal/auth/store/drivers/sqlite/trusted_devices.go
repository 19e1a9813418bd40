package sqlite

import (
	"context"
	"time"

	"github.com/loomhr/auth/internal/auth/domain"
	"github.com/loomhr/auth/internal/auth/store"
)

type trustedDevicesRepo struct {
	q querier
}

const trustedDeviceColumns = `id, identity_id, fingerprint, display_name, device_type, browser, os, network_address, added_at, last_used_at`

func (r *trustedDevicesRepo) CreateTrustedDevice(ctx context.Context, d domain.TrustedDevice) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO trusted_devices (`+trustedDeviceColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID,
		d.IdentityID,
		d.Fingerprint,
		d.DisplayName,
		d.DeviceType,
		d.Browser,
		d.OS,
		d.NetworkAddress,
		d.AddedAt,
		d.LastUsedAt,
	)
	return err
}

func (r *trustedDevicesRepo) GetByFingerprint(ctx context.Context, identityID, fingerprint string) (domain.TrustedDevice, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+trustedDeviceColumns+` FROM trusted_devices
		 WHERE identity_id = ? AND fingerprint = ?`,
		identityID, fingerprint)

	var d domain.TrustedDevice
	err := row.Scan(
		&d.ID, &d.IdentityID, &d.Fingerprint, &d.DisplayName, &d.DeviceType,
		&d.Browser, &d.OS, &d.NetworkAddress, &d.AddedAt, &d.LastUsedAt,
	)
	if err != nil {
		return domain.TrustedDevice{}, mapNotFound(err)
	}
	return d, nil
}

func (r *trustedDevicesRepo) ListByIdentity(ctx context.Context, identityID string) ([]domain.TrustedDevice, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+trustedDeviceColumns+` FROM trusted_devices
		 WHERE identity_id = ?
		 ORDER BY added_at DESC, id DESC`,
		identityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.TrustedDevice
	for rows.Next() {
		var d domain.TrustedDevice
		err := rows.Scan(
			&d.ID, &d.IdentityID, &d.Fingerprint, &d.DisplayName, &d.DeviceType,
			&d.Browser, &d.OS, &d.NetworkAddress, &d.AddedAt, &d.LastUsedAt,
		)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *trustedDevicesRepo) TouchDevice(ctx context.Context, identityID, fingerprint string, now time.Time) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE trusted_devices SET last_used_at = ? WHERE identity_id = ? AND fingerprint = ?`,
		now, identityID, fingerprint)
	if err != nil {
		return err
	}
	return requireRowAffected(res)
}

func (r *trustedDevicesRepo) DeleteDevice(ctx context.Context, identityID, deviceID string) error {
	res, err := r.q.ExecContext(ctx,
		`DELETE FROM trusted_devices WHERE identity_id = ? AND id = ?`,
		identityID, deviceID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
