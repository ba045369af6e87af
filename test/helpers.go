package test

import (
	"context"
	"database/sql/driver"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/integralist/go-findroot/find"
	"github.com/stretchr/testify/assert"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func AssertError(t *testing.T, err error, expectErr bool) {
	if expectErr {
		assert.Error(t, err)
	} else {
		assert.NoError(t, err)
	}
}

// InitPostgresContainer initializes a local Postgres instance using Testcontainers.
func InitPostgresContainer(ctx context.Context) (*postgres.PostgresContainer, error) {
	root, _ := find.Repo()
	return postgres.RunContainer(ctx,
		testcontainers.WithImage("docker.io/postgres:15.2-alpine"),
		postgres.WithInitScripts(
			filepath.Join(root.Path, "sql/postgres/000001_outbox.up.sql"),
		),
		postgres.WithDatabase("dbname"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(5*time.Second)),
	)
}

func GenerateAnyArgsSlice(n int) []driver.Value {
	var result []driver.Value = make([]driver.Value, n)
	for i := 0; i < n; i++ {
		result[i] = sqlmock.AnyArg()
	}
	return result
}

// OutboxColumns is the column set of the outbox table in schema order.
var OutboxColumns = []string{"id", "event_type", "aggregate_id", "aggregate_type", "payload", "processed", "processed_at", "retry_count", "error", "created_at"}

// MockUnprocessedOutboxRows mocks a SELECT returning three unprocessed rows
// ordered by creation time ascending.
func MockUnprocessedOutboxRows(mock sqlmock.Sqlmock) *sqlmock.Rows {
	now := time.Now()
	rows := sqlmock.NewRows(OutboxColumns).
		AddRow(uuid.New(), "OrderPlaced", "order-1", "Order", []byte("payload"), false, nil, 0, nil, now.Add(-3*time.Second)).
		AddRow(uuid.New(), "OrderPlaced", "order-2", "Order", []byte("payload"), false, nil, 1, "broker unreachable", now.Add(-2*time.Second)).
		AddRow(uuid.New(), "InvoiceIssued", "invoice-1", "Invoice", []byte("payload"), false, nil, 0, nil, now.Add(-1*time.Second))
	mock.ExpectQuery("SELECT .+ FROM outbox WHERE processed=false ORDER BY created_at ASC.+").WillReturnRows(rows)
	return rows
}
