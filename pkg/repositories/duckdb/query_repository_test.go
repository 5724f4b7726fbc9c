package duckdb

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sageql/sage/pkg/errors"
	"github.com/sageql/sage/pkg/infrastructure/pool"
)

// mockPool satisfies pool.ConnectionPool over a sqlmock database.
type mockPool struct {
	db  *sql.DB
	err error
}

func (m *mockPool) Get(ctx context.Context) (*sql.DB, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.db, nil
}

func (m *mockPool) Stats() pool.PoolStats                  { return pool.PoolStats{} }
func (m *mockPool) HealthCheck(ctx context.Context) error  { return m.err }
func (m *mockPool) Close() error                           { return nil }

func newMock(t *testing.T) (*mockPool, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return &mockPool{db: db}, mock
}

func TestQueryRepository_ExecuteSelect(t *testing.T) {
	p, mock := newMock(t)
	repo := NewQueryRepository(p, 0, zerolog.Nop())

	mock.ExpectQuery("SELECT id, name FROM customers").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).
			AddRow(int64(1), "Acme").
			AddRow(int64(2), "Globex"))

	result, err := repo.Execute(context.Background(), "SELECT id, name FROM customers")
	require.NoError(t, err)

	assert.Equal(t, 2, result.RowCount)
	require.Len(t, result.Rows, 2)
	assert.Equal(t, int64(1), result.Rows[0]["id"])
	assert.Equal(t, "Acme", result.Rows[0]["name"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueryRepository_ExecuteUpdate(t *testing.T) {
	p, mock := newMock(t)
	repo := NewQueryRepository(p, 0, zerolog.Nop())

	mock.ExpectExec("DELETE FROM orders WHERE status = 'cancelled'").
		WillReturnResult(sqlmock.NewResult(0, 7))

	result, err := repo.Execute(context.Background(), "DELETE FROM orders WHERE status = 'cancelled'")
	require.NoError(t, err)

	assert.Equal(t, int64(7), result.RowsAffected)
	assert.Empty(t, result.Rows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueryRepository_ExecuteFailure(t *testing.T) {
	p, mock := newMock(t)
	repo := NewQueryRepository(p, 0, zerolog.Nop())

	mock.ExpectQuery("SELECT * FROM ordrs").
		WillReturnError(sql.ErrConnDone)

	_, err := repo.Execute(context.Background(), "SELECT * FROM ordrs")
	require.Error(t, err)

	var pe *errors.PipelineError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, errors.CodeQueryFailed, pe.Code)
}

func TestQueryRepository_TimeoutBoundsExecution(t *testing.T) {
	p, mock := newMock(t)
	repo := NewQueryRepository(p, 10*time.Millisecond, zerolog.Nop())

	mock.ExpectQuery("SELECT * FROM slow_table").
		WillDelayFor(500 * time.Millisecond).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	start := time.Now()
	_, err := repo.Execute(context.Background(), "SELECT * FROM slow_table")
	require.Error(t, err)
	assert.Less(t, time.Since(start), 400*time.Millisecond)

	var pe *errors.PipelineError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, errors.CodeQueryFailed, pe.Code)
}

func TestQueryRepository_PoolUnavailable(t *testing.T) {
	p := &mockPool{err: errors.ErrPoolClosed}
	repo := NewQueryRepository(p, 0, zerolog.Nop())

	_, err := repo.Execute(context.Background(), "SELECT 1")
	require.Error(t, err)

	var pe *errors.PipelineError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, errors.CodeConnectionFailed, pe.Code)
}

func TestReturnsRows(t *testing.T) {
	tests := []struct {
		sql  string
		want bool
	}{
		{"SELECT 1", true},
		{"  select * from t", true},
		{"WITH c AS (SELECT 1) SELECT * FROM c", true},
		{"(SELECT 1)", true},
		{"SHOW TABLES", true},
		{"DESCRIBE customers", true},
		{"EXPLAIN SELECT 1", true},
		{"VALUES (1), (2)", true},
		{"INSERT INTO t VALUES (1)", false},
		{"UPDATE t SET x = 1", false},
		{"DELETE FROM t", false},
		{"CREATE TABLE t (id INT)", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, returnsRows(tt.sql), tt.sql)
	}
}
