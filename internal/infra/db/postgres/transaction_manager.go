package postgres

import (
	"context"
	"hash/fnv"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"content-entitlement/internal/domain"
	"content-entitlement/internal/domain/ports/repository"
)

// Ensure compile-time conformance
var (
	_ repository.TransactionManager = (*TxManager)(nil)
	_ repository.RequesterLocker    = (*AdvisoryLocker)(nil)
)

// TxManager implements repository.TransactionManager for Postgres (pgx).
// The tx handle reaches repositories as a pgx.Tx.
type TxManager struct {
	pool *pgxpool.Pool
}

func NewTxManager(pool *pgxpool.Pool) *TxManager {
	return &TxManager{pool: pool}
}

// WithTx opens a transaction, runs fn and commits. Any error from fn, or a
// panic, rolls back.
func (m *TxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	tx, err := m.pool.BeginTx(ctx, txOpt)
	if err != nil {
		return mapErr("tx", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return mapErr("tx", err)
	}
	return nil
}

// AdvisoryLocker serializes entitlement writes per requester with a
// transaction-scoped advisory lock. It must be called inside WithTx.
type AdvisoryLocker struct{}

func NewAdvisoryLocker() *AdvisoryLocker { return &AdvisoryLocker{} }

func (l *AdvisoryLocker) LockRequester(ctx context.Context, tx repository.Tx, requesterID string) error {
	t, ok := tx.(pgx.Tx)
	if !ok {
		return domain.ErrInvalidExecContext
	}
	if _, err := t.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, requesterLockKey(requesterID)); err != nil {
		return mapErr("advisory_lock", err)
	}
	return nil
}

func requesterLockKey(requesterID string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte("entitlement:" + requesterID))
	return int64(h.Sum64())
}
