package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/loomhr/auth/internal/auth/domain"
)

type loginEventsRepo struct {
	q querier
}

func (r *loginEventsRepo) AppendLoginEvent(ctx context.Context, e domain.LoginEvent) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO login_events (id, identity_id, ts, network_address, browser, os, device_type, outcome, factor_used)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID,
		e.IdentityID,
		e.Timestamp,
		e.NetworkAddress,
		e.Browser,
		e.OS,
		e.DeviceType,
		string(e.Outcome),
		string(e.FactorUsed),
	)
	return err
}

func (r *loginEventsRepo) ListByIdentity(ctx context.Context, identityID string, limit int) ([]domain.LoginEvent, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT id, identity_id, ts, network_address, browser, os, device_type, outcome, factor_used
		 FROM login_events
		 WHERE identity_id = ?
		 ORDER BY ts DESC, id DESC
		 LIMIT ?`,
		identityID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectLoginEvents(rows)
}

func (r *loginEventsRepo) ListSuccessesSince(ctx context.Context, identityID string, since time.Time) ([]domain.LoginEvent, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT id, identity_id, ts, network_address, browser, os, device_type, outcome, factor_used
		 FROM login_events
		 WHERE identity_id = ? AND outcome = 'success' AND ts >= ?
		 ORDER BY ts DESC, id DESC`,
		identityID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectLoginEvents(rows)
}

func collectLoginEvents(rows *sql.Rows) ([]domain.LoginEvent, error) {
	var out []domain.LoginEvent
	for rows.Next() {
		var e domain.LoginEvent
		var outcome, factor string
		err := rows.Scan(
			&e.ID, &e.IdentityID, &e.Timestamp, &e.NetworkAddress,
			&e.Browser, &e.OS, &e.DeviceType, &outcome, &factor,
		)
		if err != nil {
			return nil, err
		}
		e.Outcome = domain.LoginOutcome(outcome)
		e.FactorUsed = domain.LoginFactor(factor)
		out = append(out, e)
	}
	return out, rows.Err()
}
