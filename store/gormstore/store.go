// Package gormstore implements the outbox store on top of gorm.
package gormstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/avelinop/txoutbox/txo"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	insertOutboxSql    = "INSERT INTO outbox (id, event_type, aggregate_id, aggregate_type, payload, created_at) VALUES (?, ?, ?, ?, ?, ?)"
	findUnprocessedSql = "SELECT id, event_type, aggregate_id, aggregate_type, payload, processed, processed_at, retry_count, error, created_at FROM outbox WHERE processed=false ORDER BY created_at ASC LIMIT ?"
	markProcessedSql   = "UPDATE outbox SET processed=true, processed_at=NOW() WHERE id=?"
	markFailedSql      = "UPDATE outbox SET retry_count=retry_count+1, error=? WHERE id=?"
)

type Store struct {
	db     *gorm.DB
	logger txo.Logger
}

var _ txo.Store = (*Store)(nil)
var _ txo.Loggable = (*Store)(nil)

func New(db *gorm.DB) *Store {
	if db == nil {
		panic("db is mandatory")
	}
	return &Store{
		db:     db,
		logger: &txo.NopLogger{},
	}
}

// SetLogger sets an optional logger.
func (s *Store) SetLogger(l txo.Logger) {
	s.logger = l
}

// Insert persists an outbox record using the provided business transaction.
// The expected transaction handle should be a pointer to an instance of
// gorm.DB.
func (s *Store) Insert(ctx context.Context, txn txo.Txn, r *txo.Record) error {
	tx, ok := txn.(*gorm.DB)
	if !ok {
		return errors.New("a *gorm.DB transaction was expected")
	}
	err := tx.WithContext(ctx).Exec(insertOutboxSql, r.Id, r.EventType, r.AggregateId, r.AggregateType, r.Payload, r.CreatedAt).Error
	if err != nil {
		return fmt.Errorf("could not persist the outbox record: %w", err)
	}

	return nil
}

// InsertMany persists a batch of outbox records using the provided business
// transaction.
func (s *Store) InsertMany(ctx context.Context, txn txo.Txn, records []*txo.Record) error {
	tx, ok := txn.(*gorm.DB)
	if !ok {
		return errors.New("a *gorm.DB transaction was expected")
	}
	for _, r := range records {
		err := tx.WithContext(ctx).Exec(insertOutboxSql, r.Id, r.EventType, r.AggregateId, r.AggregateType, r.Payload, r.CreatedAt).Error
		if err != nil {
			return fmt.Errorf("could not persist the outbox record '%s': %w", r.Id, err)
		}
	}

	return nil
}

// FindUnprocessed retrieves up to limit unprocessed outbox records ordered by
// creation time ascending.
func (s *Store) FindUnprocessed(ctx context.Context, limit int) ([]*txo.Record, error) {
	rows, err := s.db.WithContext(ctx).Raw(findUnprocessedSql, limit).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*txo.Record
	for rows.Next() {
		var r txo.Record
		var processedAt sql.NullTime
		var lastError sql.NullString
		err := rows.Scan(&r.Id, &r.EventType, &r.AggregateId, &r.AggregateType, &r.Payload, &r.Processed, &processedAt, &r.RetryCount, &lastError, &r.CreatedAt)
		if err != nil {
			return nil, err
		}
		if processedAt.Valid {
			r.ProcessedAt = &processedAt.Time
		}
		if lastError.Valid {
			r.LastError = &lastError.String
		}
		records = append(records, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return records, nil
}

// MarkProcessed flags an outbox record as terminal.
func (s *Store) MarkProcessed(ctx context.Context, id uuid.UUID) error {
	res := s.db.WithContext(ctx).Exec(markProcessedSql, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("the outbox record '%s' does not exist", id)
	}
	return nil
}

// MarkFailed increments the retry counter of an outbox record and stores the
// last delivery error.
func (s *Store) MarkFailed(ctx context.Context, id uuid.UUID, cause string) error {
	res := s.db.WithContext(ctx).Exec(markFailedSql, cause, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("the outbox record '%s' does not exist", id)
	}
	return nil
}
