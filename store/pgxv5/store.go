package pgxv5

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/avelinop/txoutbox/txo"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	insertOutboxSql        = "INSERT INTO outbox (id, event_type, aggregate_id, aggregate_type, payload, created_at) VALUES ($1, $2, $3, $4, $5, $6)"
	findUnprocessedSql     = "SELECT id, event_type, aggregate_id, aggregate_type, payload, processed, processed_at, retry_count, error, created_at FROM outbox WHERE processed=false ORDER BY created_at ASC LIMIT $1"
	markProcessedSql       = "UPDATE outbox SET processed=true, processed_at=NOW() WHERE id=$1"
	markFailedSql          = "UPDATE outbox SET retry_count=retry_count+1, error=$2 WHERE id=$1"
	recordNotFoundTemplate = "the outbox record '%s' does not exist"
)

// dbpool is a helper interface to work with pgxpool.Pool.
type dbpool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, arguments ...interface{}) (commandTag pgconn.CommandTag, err error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

type Store struct {
	db     dbpool
	logger txo.Logger
}

var _ txo.Store = (*Store)(nil)
var _ txo.Loggable = (*Store)(nil)

func New(pool dbpool) *Store {
	if pool == nil || reflect.ValueOf(pool).IsNil() {
		panic("pool is mandatory")
	}
	return &Store{
		db:     pool,
		logger: &txo.NopLogger{},
	}
}

// SetLogger sets an optional logger.
func (s *Store) SetLogger(l txo.Logger) {
	s.logger = l
}

// Insert persists an outbox record using the provided business transaction.
// The expected transaction handle should implement the pgx.Tx interface.
func (s *Store) Insert(ctx context.Context, txn txo.Txn, r *txo.Record) error {
	tx, ok := txn.(pgx.Tx)
	if !ok {
		return errors.New("a pgx.Tx transaction was expected")
	}
	_, err := tx.Exec(ctx, insertOutboxSql, r.Id, r.EventType, r.AggregateId, r.AggregateType, r.Payload, r.CreatedAt)
	if err != nil {
		return fmt.Errorf("could not persist the outbox record: %w", err)
	}

	return nil
}

// InsertMany persists a batch of outbox records using the provided business
// transaction.
func (s *Store) InsertMany(ctx context.Context, txn txo.Txn, records []*txo.Record) error {
	tx, ok := txn.(pgx.Tx)
	if !ok {
		return errors.New("a pgx.Tx transaction was expected")
	}
	for _, r := range records {
		_, err := tx.Exec(ctx, insertOutboxSql, r.Id, r.EventType, r.AggregateId, r.AggregateType, r.Payload, r.CreatedAt)
		if err != nil {
			return fmt.Errorf("could not persist the outbox record '%s': %w", r.Id, err)
		}
	}

	return nil
}

// FindUnprocessed retrieves up to limit unprocessed outbox records ordered by
// creation time ascending.
func (s *Store) FindUnprocessed(ctx context.Context, limit int) ([]*txo.Record, error) {
	rows, err := s.db.Query(ctx, findUnprocessedSql, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*txo.Record
	for rows.Next() {
		var r txo.Record
		err := rows.Scan(&r.Id, &r.EventType, &r.AggregateId, &r.AggregateType, &r.Payload, &r.Processed, &r.ProcessedAt, &r.RetryCount, &r.LastError, &r.CreatedAt)
		if err != nil {
			return nil, err
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
	ct, err := s.db.Exec(ctx, markProcessedSql, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf(recordNotFoundTemplate, id)
	}
	return nil
}

// MarkFailed increments the retry counter of an outbox record and stores the
// last delivery error.
func (s *Store) MarkFailed(ctx context.Context, id uuid.UUID, cause string) error {
	ct, err := s.db.Exec(ctx, markFailedSql, id, cause)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf(recordNotFoundTemplate, id)
	}
	return nil
}
