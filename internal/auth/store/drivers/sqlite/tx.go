package sqlite

import (
	"context"
	"database/sql"

	"github.com/loomhr/auth/internal/auth/store"
)

type txStore struct {
	tx *sql.Tx
}

func newTx(tx *sql.Tx) *txStore {
	return &txStore{tx: tx}
}

func (t *txStore) Commit() error   { return t.tx.Commit() }
func (t *txStore) Rollback() error { return t.tx.Rollback() }

func (t *txStore) Close() error { return nil } // caller commits/rollbacks; outer DB stays open

// Ping is a no-op for transactions. The connection is already established
// when the transaction is created, so we just return nil.
func (t *txStore) Ping(ctx context.Context) error {
	return nil
}

func (t *txStore) Tx(ctx context.Context) (store.Tx, error) {
	// Nested tx not supported; could emulate with SAVEPOINT if needed
	return nil, sql.ErrTxDone
}

func (t *txStore) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	// Nested tx not supported; could emulate with SAVEPOINT if needed
	return sql.ErrTxDone
}

func (t *txStore) Identities() store.Identities           { return &identitiesRepo{q: t.tx} }
func (t *txStore) Enrollments() store.Enrollments         { return &enrollmentsRepo{q: t.tx} }
func (t *txStore) OneTimeCodes() store.OneTimeCodes       { return &oneTimeCodesRepo{q: t.tx} }
func (t *txStore) TrustedDevices() store.TrustedDevices   { return &trustedDevicesRepo{q: t.tx} }
func (t *txStore) LoginEvents() store.LoginEvents         { return &loginEventsRepo{q: t.tx} }
func (t *txStore) LoginChallenges() store.LoginChallenges { return &loginChallengesRepo{q: t.tx} }

func (t *txStore) ApplyMigrations() error { return nil } // no-op; migrations are applied before starting a tx
