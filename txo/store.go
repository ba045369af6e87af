package txo

import (
	"context"

	"github.com/google/uuid"
)

// Txn is a driver-native transactional handle (e.g. pgx.Tx, *sql.Tx or
// *gorm.DB). Store implementations type-assert it to their own driver type.
type Txn any

// Store manages outbox records persistent operations.
type Store interface {

	// Insert writes one record using the provided business transaction so the
	// record and the mutation that produced it commit or roll back together.
	Insert(ctx context.Context, txn Txn, r *Record) error

	// InsertMany is the batch form of Insert, used when a unit of work
	// flushes its collected events.
	InsertMany(ctx context.Context, txn Txn, records []*Record) error

	// FindUnprocessed returns up to limit unprocessed records ordered by
	// creation time ascending (oldest first).
	FindUnprocessed(ctx context.Context, limit int) ([]*Record, error)

	// MarkProcessed flags a record as terminal, stamping the processing time.
	MarkProcessed(ctx context.Context, id uuid.UUID) error

	// MarkFailed increments the retry counter and stores the last delivery
	// error. The record stays eligible for the next poll.
	MarkFailed(ctx context.Context, id uuid.UUID, cause string) error
}

// TxManager opens and finishes driver-native transactions on behalf of a
// unit of work.
type TxManager interface {
	Begin(ctx context.Context) (Txn, error)
	Commit(ctx context.Context, txn Txn) error
	Rollback(ctx context.Context, txn Txn) error
}
