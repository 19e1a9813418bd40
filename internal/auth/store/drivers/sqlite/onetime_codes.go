package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/loomhr/auth/internal/auth/domain"
	"github.com/loomhr/auth/internal/auth/store"
)

type oneTimeCodesRepo struct {
	q querier
}

func (r *oneTimeCodesRepo) CreateOneTimeCode(ctx context.Context, c domain.OneTimeCode) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO one_time_codes (id, identity_id, purpose, code_hash, issued_at, expires_at, consumed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID,
		c.IdentityID,
		string(c.Purpose),
		c.CodeHash,
		c.IssuedAt,
		c.ExpiresAt,
		mapOptionalTime(c.ConsumedAt),
	)
	return err
}

func (r *oneTimeCodesRepo) GetLatestCode(ctx context.Context, identityID string, purpose domain.CodePurpose) (domain.OneTimeCode, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT id, identity_id, purpose, code_hash, issued_at, expires_at, consumed_at
		 FROM one_time_codes
		 WHERE identity_id = ? AND purpose = ?
		 ORDER BY issued_at DESC, id DESC
		 LIMIT 1`,
		identityID, string(purpose))

	var c domain.OneTimeCode
	var p string
	var consumed sql.NullTime
	if err := row.Scan(&c.ID, &c.IdentityID, &p, &c.CodeHash, &c.IssuedAt, &c.ExpiresAt, &consumed); err != nil {
		return domain.OneTimeCode{}, mapNotFound(err)
	}
	c.Purpose = domain.CodePurpose(p)
	c.ConsumedAt = mapNullTimePtr(consumed)
	return c, nil
}

func (r *oneTimeCodesRepo) DeleteOutstandingCodes(ctx context.Context, identityID string, purpose domain.CodePurpose) error {
	_, err := r.q.ExecContext(ctx,
		`DELETE FROM one_time_codes
		 WHERE identity_id = ? AND purpose = ? AND consumed_at IS NULL`,
		identityID, string(purpose))
	return err
}

// ConsumeCode is the single-use guard: the conditional update only lands on
// a row that is still unconsumed, so two concurrent verifications cannot
// both succeed on the same code.
func (r *oneTimeCodesRepo) ConsumeCode(ctx context.Context, id string, now time.Time) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE one_time_codes SET consumed_at = ? WHERE id = ? AND consumed_at IS NULL`,
		now, id)
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

func (r *oneTimeCodesRepo) DeleteExpiredCodes(ctx context.Context) error {
	_, err := r.q.ExecContext(ctx,
		`DELETE FROM one_time_codes WHERE expires_at < CURRENT_TIMESTAMP`)
	return err
}
