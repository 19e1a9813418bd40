package sqlite

import (
	"context"

	"github.com/loomhr/auth/internal/auth/domain"
	"github.com/loomhr/auth/internal/auth/store"
)

type loginChallengesRepo struct {
	q querier
}

func (r *loginChallengesRepo) CreateChallenge(ctx context.Context, c domain.LoginChallenge) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO login_challenges (id, token_hash, identity_id, attempts, created_at, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.TokenHash, c.IdentityID, c.Attempts, c.CreatedAt, c.ExpiresAt)
	return err
}

func (r *loginChallengesRepo) GetChallengeByTokenHash(ctx context.Context, tokenHash string) (domain.LoginChallenge, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT id, token_hash, identity_id, attempts, created_at, expires_at
		 FROM login_challenges WHERE token_hash = ?`,
		tokenHash)

	var c domain.LoginChallenge
	if err := row.Scan(&c.ID, &c.TokenHash, &c.IdentityID, &c.Attempts, &c.CreatedAt, &c.ExpiresAt); err != nil {
		return domain.LoginChallenge{}, mapNotFound(err)
	}
	return c, nil
}

func (r *loginChallengesRepo) IncrementChallengeAttempts(ctx context.Context, tokenHash string) (domain.LoginChallenge, error) {
	res, err := r.q.ExecContext(ctx,
		`UPDATE login_challenges SET attempts = attempts + 1 WHERE token_hash = ?`,
		tokenHash)
	if err != nil {
		return domain.LoginChallenge{}, err
	}
	if err := requireRowAffected(res); err != nil {
		return domain.LoginChallenge{}, err
	}
	return r.GetChallengeByTokenHash(ctx, tokenHash)
}

func (r *loginChallengesRepo) DeleteChallenge(ctx context.Context, tokenHash string) error {
	res, err := r.q.ExecContext(ctx,
		`DELETE FROM login_challenges WHERE token_hash = ?`, tokenHash)
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

func (r *loginChallengesRepo) DeleteExpiredChallenges(ctx context.Context) error {
	_, err := r.q.ExecContext(ctx,
		`DELETE FROM login_challenges WHERE expires_at < CURRENT_TIMESTAMP`)
	return err
}
