package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/loomhr/auth/internal/auth/domain"
)

type identitiesRepo struct {
	q querier
}

const identityColumns = `id, email, preferred_name, credential_hash, second_factor_enabled, passwordless_login, created_at, updated_at`

func scanIdentity(row *sql.Row) (domain.Identity, error) {
	var ident domain.Identity
	var secondFactor sql.NullTime
	err := row.Scan(
		&ident.ID,
		&ident.Email,
		&ident.PreferredName,
		&ident.CredentialHash,
		&secondFactor,
		&ident.PasswordlessLogin,
		&ident.CreatedAt,
		&ident.UpdatedAt,
	)
	if err != nil {
		return domain.Identity{}, mapNotFound(err)
	}
	ident.SecondFactorEnabled = mapNullTimePtr(secondFactor)
	return ident, nil
}

func (r *identitiesRepo) GetIdentityByID(ctx context.Context, id string) (domain.Identity, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+identityColumns+` FROM identities WHERE id = ?`, id)
	return scanIdentity(row)
}

func (r *identitiesRepo) GetIdentityByEmail(ctx context.Context, email string) (domain.Identity, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+identityColumns+` FROM identities WHERE email = ?`, email)
	return scanIdentity(row)
}

func (r *identitiesRepo) CreateIdentity(ctx context.Context, ident domain.Identity) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO identities (id, email, preferred_name, credential_hash, second_factor_enabled, passwordless_login, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`,
		ident.ID,
		ident.Email,
		ident.PreferredName,
		ident.CredentialHash,
		mapOptionalTime(ident.SecondFactorEnabled),
		ident.PasswordlessLogin,
	)
	return err
}

func (r *identitiesRepo) UpdateCredentialHash(ctx context.Context, identityID, newHash string) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE identities SET credential_hash = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		newHash, identityID)
	if err != nil {
		return err
	}
	return requireRowAffected(res)
}

func (r *identitiesRepo) EnableSecondFactor(ctx context.Context, identityID string) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE identities SET second_factor_enabled = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		time.Now().UTC(), identityID)
	if err != nil {
		return err
	}
	return requireRowAffected(res)
}

func (r *identitiesRepo) DisableSecondFactor(ctx context.Context, identityID string) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE identities SET second_factor_enabled = NULL, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		identityID)
	if err != nil {
		return err
	}
	return requireRowAffected(res)
}
