package pgxv5

import (
	"context"
	"errors"
	"reflect"

	"github.com/avelinop/txoutbox/txo"
	"github.com/jackc/pgx/v5"
)

// TxManager opens and finishes pgx transactions on behalf of a unit of work.
type TxManager struct {
	db dbpool
}

var _ txo.TxManager = (*TxManager)(nil)

func NewTxManager(pool dbpool) *TxManager {
	if pool == nil || reflect.ValueOf(pool).IsNil() {
		panic("pool is mandatory")
	}
	return &TxManager{db: pool}
}

func (m *TxManager) Begin(ctx context.Context) (txo.Txn, error) {
	return m.db.Begin(ctx)
}

func (m *TxManager) Commit(ctx context.Context, txn txo.Txn) error {
	tx, ok := txn.(pgx.Tx)
	if !ok {
		return errors.New("a pgx.Tx transaction was expected")
	}
	return tx.Commit(ctx)
}

func (m *TxManager) Rollback(ctx context.Context, txn txo.Txn) error {
	tx, ok := txn.(pgx.Tx)
	if !ok {
		return errors.New("a pgx.Tx transaction was expected")
	}
	return tx.Rollback(ctx)
}
