package sqlstore

import (
	"context"
	"database/sql"
	"errors"

	"github.com/avelinop/txoutbox/txo"
)

// TxManager opens and finishes database/sql transactions on behalf of a unit
// of work.
type TxManager struct {
	db *sql.DB
}

var _ txo.TxManager = (*TxManager)(nil)

func NewTxManager(db *sql.DB) *TxManager {
	if db == nil {
		panic("db is mandatory")
	}
	return &TxManager{db: db}
}

func (m *TxManager) Begin(ctx context.Context) (txo.Txn, error) {
	return m.db.BeginTx(ctx, nil)
}

func (m *TxManager) Commit(ctx context.Context, txn txo.Txn) error {
	tx, ok := txn.(*sql.Tx)
	if !ok {
		return errors.New("an *sql.Tx transaction was expected")
	}
	return tx.Commit()
}

func (m *TxManager) Rollback(ctx context.Context, txn txo.Txn) error {
	tx, ok := txn.(*sql.Tx)
	if !ok {
		return errors.New("an *sql.Tx transaction was expected")
	}
	return tx.Rollback()
}
