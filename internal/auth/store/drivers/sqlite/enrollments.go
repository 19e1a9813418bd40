package sqlite

import (
	"context"

	"github.com/loomhr/auth/internal/auth/domain"
	"github.com/loomhr/auth/internal/auth/store"
)

type enrollmentsRepo struct {
	q querier
}

func (r *enrollmentsRepo) GetEnrollment(ctx context.Context, identityID string, status domain.EnrollmentStatus) (domain.Enrollment, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT id, identity_id, secret, status, created_at
		 FROM enrollments WHERE identity_id = ? AND status = ?`,
		identityID, string(status))

	var e domain.Enrollment
	var st string
	if err := row.Scan(&e.ID, &e.IdentityID, &e.Secret, &st, &e.CreatedAt); err != nil {
		return domain.Enrollment{}, mapNotFound(err)
	}
	e.Status = domain.EnrollmentStatus(st)
	return e, nil
}

func (r *enrollmentsRepo) ReplacePending(ctx context.Context, e domain.Enrollment) error {
	if _, err := r.q.ExecContext(ctx,
		`DELETE FROM enrollments WHERE identity_id = ? AND status = 'pending'`,
		e.IdentityID); err != nil {
		return err
	}

	_, err := r.q.ExecContext(ctx,
		`INSERT INTO enrollments (id, identity_id, secret, status, created_at)
		 VALUES (?, ?, ?, 'pending', ?)`,
		e.ID, e.IdentityID, e.Secret, e.CreatedAt)
	return err
}

func (r *enrollmentsRepo) Promote(ctx context.Context, identityID string) error {
	// Remove any prior active enrollment first so the UNIQUE (identity,
	// status) constraint lets the pending one take its place.
	if _, err := r.q.ExecContext(ctx,
		`DELETE FROM enrollments WHERE identity_id = ? AND status = 'active'`,
		identityID); err != nil {
		return err
	}

	res, err := r.q.ExecContext(ctx,
		`UPDATE enrollments SET status = 'active' WHERE identity_id = ? AND status = 'pending'`,
		identityID)
	if err != nil {
		return err
	}
	return requireRowAffected(res)
}

func (r *enrollmentsRepo) DeleteActive(ctx context.Context, identityID string) error {
	res, err := r.q.ExecContext(ctx,
		`DELETE FROM enrollments WHERE identity_id = ? AND status = 'active'`,
		identityID)
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
