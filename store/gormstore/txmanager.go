package gormstore

import (
	"context"
	"errors"

	"github.com/avelinop/txoutbox/txo"
	"gorm.io/gorm"
)

// TxManager opens and finishes gorm transactions on behalf of a unit of work.
type TxManager struct {
	db *gorm.DB
}

var _ txo.TxManager = (*TxManager)(nil)

func NewTxManager(db *gorm.DB) *TxManager {
	if db == nil {
		panic("db is mandatory")
	}
	return &TxManager{db: db}
}

func (m *TxManager) Begin(ctx context.Context) (txo.Txn, error) {
	tx := m.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}
	return tx, nil
}

func (m *TxManager) Commit(ctx context.Context, txn txo.Txn) error {
	tx, ok := txn.(*gorm.DB)
	if !ok {
		return errors.New("a *gorm.DB transaction was expected")
	}
	return tx.Commit().Error
}

func (m *TxManager) Rollback(ctx context.Context, txn txo.Txn) error {
	tx, ok := txn.(*gorm.DB)
	if !ok {
		return errors.New("a *gorm.DB transaction was expected")
	}
	return tx.Rollback().Error
}
