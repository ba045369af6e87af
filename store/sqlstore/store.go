// Package sqlstore implements the outbox store on top of database/sql, so it
// works with any driver. Placeholders default to '?' and can be converted to
// the dollar style used by Postgres drivers.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/avelinop/txoutbox/txo"
	"github.com/google/uuid"
)

const raNotSupported string = "RowsAffected not supported"

const (
	insertOutboxSql    = "INSERT INTO outbox (id, event_type, aggregate_id, aggregate_type, payload, created_at) VALUES (?, ?, ?, ?, ?, ?)"
	findUnprocessedSql = "SELECT id, event_type, aggregate_id, aggregate_type, payload, processed, processed_at, retry_count, error, created_at FROM outbox WHERE processed=false ORDER BY created_at ASC LIMIT ?"
	markProcessedSql   = "UPDATE outbox SET processed=true, processed_at=NOW() WHERE id=?"
	markFailedSql      = "UPDATE outbox SET retry_count=retry_count+1, error=? WHERE id=?"
)

type Store struct {
	db      *sql.DB
	queries queries
	logger  txo.Logger
}

// queries holds the per-instance statement set so placeholder conversion
// never mutates shared state.
type queries struct {
	insertOutbox    string
	findUnprocessed string
	markProcessed   string
	markFailed      string
}

var _ txo.Store = (*Store)(nil)
var _ txo.Loggable = (*Store)(nil)

func New(db *sql.DB, useDollar bool) *Store {
	if db == nil {
		panic("db is mandatory")
	}

	q := queries{
		insertOutbox:    insertOutboxSql,
		findUnprocessed: findUnprocessedSql,
		markProcessed:   markProcessedSql,
		markFailed:      markFailedSql,
	}
	if useDollar {
		q.insertOutbox = convertToDollarPlaceholder(q.insertOutbox)
		q.findUnprocessed = convertToDollarPlaceholder(q.findUnprocessed)
		q.markProcessed = convertToDollarPlaceholder(q.markProcessed)
		q.markFailed = convertToDollarPlaceholder(q.markFailed)
	}

	return &Store{
		db:      db,
		queries: q,
		logger:  &txo.NopLogger{},
	}
}

// SetLogger sets an optional logger.
func (s *Store) SetLogger(l txo.Logger) {
	s.logger = l
}

// Insert persists an outbox record using the provided business transaction.
// The expected transaction handle should be a pointer to an instance of
// sql.Tx.
func (s *Store) Insert(ctx context.Context, txn txo.Txn, r *txo.Record) error {
	tx, ok := txn.(*sql.Tx)
	if !ok {
		return errors.New("an *sql.Tx transaction was expected")
	}
	_, err := tx.ExecContext(ctx, s.queries.insertOutbox, r.Id, r.EventType, r.AggregateId, r.AggregateType, r.Payload, r.CreatedAt)
	if err != nil {
		return fmt.Errorf("could not persist the outbox record: %w", err)
	}

	return nil
}

// InsertMany persists a batch of outbox records using the provided business
// transaction.
func (s *Store) InsertMany(ctx context.Context, txn txo.Txn, records []*txo.Record) error {
	tx, ok := txn.(*sql.Tx)
	if !ok {
		return errors.New("an *sql.Tx transaction was expected")
	}
	for _, r := range records {
		_, err := tx.ExecContext(ctx, s.queries.insertOutbox, r.Id, r.EventType, r.AggregateId, r.AggregateType, r.Payload, r.CreatedAt)
		if err != nil {
			return fmt.Errorf("could not persist the outbox record '%s': %w", r.Id, err)
		}
	}

	return nil
}

// FindUnprocessed retrieves up to limit unprocessed outbox records ordered by
// creation time ascending.
func (s *Store) FindUnprocessed(ctx context.Context, limit int) ([]*txo.Record, error) {
	rows, err := s.db.QueryContext(ctx, s.queries.findUnprocessed, limit)
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
	res, err := s.db.ExecContext(ctx, s.queries.markProcessed, id)
	if err != nil {
		return err
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return errors.New(raNotSupported)
	}
	if ra == 0 {
		return fmt.Errorf("the outbox record '%s' does not exist", id)
	}
	return nil
}

// MarkFailed increments the retry counter of an outbox record and stores the
// last delivery error.
func (s *Store) MarkFailed(ctx context.Context, id uuid.UUID, cause string) error {
	res, err := s.db.ExecContext(ctx, s.queries.markFailed, cause, id)
	if err != nil {
		return err
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return errors.New(raNotSupported)
	}
	if ra == 0 {
		return fmt.Errorf("the outbox record '%s' does not exist", id)
	}
	return nil
}

func convertToDollarPlaceholder(query string) string {
	count := 0
	for strings.Contains(query, "?") {
		count++
		query = strings.Replace(query, "?", fmt.Sprintf("$%d", count), 1)
	}
	return query
}
