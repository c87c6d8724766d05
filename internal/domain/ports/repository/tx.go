package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

// Tx is an infra-defined transaction handle (pgx.Tx for Postgres). Nil means
// "no transaction": repositories fall back to the pool.
type Tx interface{}

var NoTX interface{}

// TransactionManager runs fn inside one database transaction and hands the
// handle to repositories through tx. Repositories that receive a live tx
// lock rows they read (SELECT ... FOR UPDATE) where the contract says so.
//
// fn's error rolls the transaction back and is returned unchanged.
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
