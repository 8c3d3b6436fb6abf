package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

type Tx interface{}

var NoTX interface{}

// TransactionManager runs fn inside one database transaction and hands the
// transaction handle to it as tx. Repository methods accept that handle (or NoTX
// for the pool) so a use case can compose several writes atomically without
// storage types leaking into its signature.
//
// If fn returns an error the transaction is rolled back, otherwise committed.
// The concrete type of tx is infra-defined (pgx.Tx for Postgres).
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}

// RequesterLocker serializes entitlement writes for one requester for the
// lifetime of tx.
type RequesterLocker interface {
	LockRequester(ctx context.Context, tx Tx, requesterID string) error
}
