//go:build integration

package pgxv5

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/avelinop/txoutbox/test"
	"github.com/avelinop/txoutbox/txo"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
)

var (
	pool      *pgxpool.Pool
	store     *Store
	txManager *TxManager
)

// TestMain prepares the database setup needed to run these tests against a
// real Postgres containerized instance.
func TestMain(m *testing.M) {
	ctx := context.Background()

	database, err := test.InitPostgresContainer(ctx)
	if err != nil {
		fmt.Printf("A problem occurred initializing the database: %v", err)
		os.Exit(1)
	}

	dsn, err := database.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		fmt.Printf("A problem occurred getting the connection string: %v", err)
		os.Exit(1)
	}

	pool, err = pgxpool.New(ctx, dsn)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Unable to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	store = New(pool)
	store.SetLogger(&txo.NopLogger{})
	txManager = NewTxManager(pool)

	code := m.Run()

	err = database.Terminate(ctx)
	if err != nil {
		fmt.Printf("an error ocurred terminating the database container: %v", err)
	}
	os.Exit(code)
}

func insertTestRecord(t *testing.T, eventType string, aggregateId string) *txo.Record {
	ctx := context.Background()
	r := &txo.Record{
		Id:            uuid.New(),
		EventType:     eventType,
		AggregateId:   aggregateId,
		AggregateType: "Order",
		Payload:       []byte(`{"k":"v"}`),
		CreatedAt:     time.Now(),
	}

	txn, err := txManager.Begin(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Insert(ctx, txn, r); err != nil {
		t.Fatal(err)
	}
	if err := txManager.Commit(ctx, txn); err != nil {
		t.Fatal(err)
	}
	return r
}

func cleanOutbox(t *testing.T) {
	if _, err := pool.Exec(context.Background(), "DELETE FROM outbox"); err != nil {
		t.Fatal(err)
	}
}

func TestOutboxRoundTrip(t *testing.T) {
	defer cleanOutbox(t)
	ctx := context.Background()

	first := insertTestRecord(t, "OrderPlaced", "order-1")
	second := insertTestRecord(t, "InvoiceIssued", "invoice-1")

	records, err := store.FindUnprocessed(ctx, 100)
	assert.NoError(t, err)
	assert.Len(t, records, 2)
	assert.Equal(t, first.Id, records[0].Id)
	assert.Equal(t, second.Id, records[1].Id)

	err = store.MarkFailed(ctx, first.Id, "broker unreachable")
	assert.NoError(t, err)

	records, err = store.FindUnprocessed(ctx, 100)
	assert.NoError(t, err)
	assert.Len(t, records, 2)
	assert.Equal(t, 1, records[0].RetryCount)
	assert.Equal(t, "broker unreachable", *records[0].LastError)

	err = store.MarkProcessed(ctx, first.Id)
	assert.NoError(t, err)

	records, err = store.FindUnprocessed(ctx, 100)
	assert.NoError(t, err)
	assert.Len(t, records, 1)
	assert.Equal(t, second.Id, records[0].Id)
}

func TestOutboxRollback(t *testing.T) {
	defer cleanOutbox(t)
	ctx := context.Background()

	txn, err := txManager.Begin(ctx)
	assert.NoError(t, err)
	r := &txo.Record{
		Id:            uuid.New(),
		EventType:     "OrderPlaced",
		AggregateId:   "order-1",
		AggregateType: "Order",
		Payload:       []byte(`{"k":"v"}`),
		CreatedAt:     time.Now(),
	}
	assert.NoError(t, store.Insert(ctx, txn, r))
	assert.NoError(t, txManager.Rollback(ctx, txn))

	records, err := store.FindUnprocessed(ctx, 100)
	assert.NoError(t, err)
	assert.Empty(t, records)
}

func TestFindUnprocessedHonorsLimit(t *testing.T) {
	defer cleanOutbox(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		insertTestRecord(t, "OrderPlaced", fmt.Sprintf("order-%d", i))
	}

	records, err := store.FindUnprocessed(ctx, 3)
	assert.NoError(t, err)
	assert.Len(t, records, 3)
}

func TestMarkProcessedUnknownRecord(t *testing.T) {
	err := store.MarkProcessed(context.Background(), uuid.New())
	assert.Error(t, err)
}
