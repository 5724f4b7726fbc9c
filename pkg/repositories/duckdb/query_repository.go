// Package duckdb provides DuckDB-specific repository implementations.
package duckdb

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/sageql/sage/pkg/errors"
	"github.com/sageql/sage/pkg/infrastructure/pool"
	"github.com/sageql/sage/pkg/models"
	"github.com/sageql/sage/pkg/repositories"
)

// queryRepository implements repositories.QueryRepository for DuckDB.
type queryRepository struct {
	pool    pool.ConnectionPool
	timeout time.Duration
	logger  zerolog.Logger
}

// NewQueryRepository creates a new DuckDB query repository. A positive
// timeout bounds every statement; zero disables the bound.
func NewQueryRepository(pool pool.ConnectionPool, timeout time.Duration, logger zerolog.Logger) repositories.QueryRepository {
	return &queryRepository{
		pool:    pool,
		timeout: timeout,
		logger:  logger,
	}
}

// Execute runs a SQL statement and returns its results.
func (r *queryRepository) Execute(ctx context.Context, sqlText string) (*models.QueryResult, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	r.logger.Debug().
		Str("sql", sqlText).
		Msg("Executing statement")

	db, err := r.pool.Get(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeConnectionFailed, "failed to get connection from pool")
	}

	start := time.Now()

	if !returnsRows(sqlText) {
		result, err := db.ExecContext(ctx, sqlText)
		if err != nil {
			return nil, errors.Wrapf(err, errors.CodeQueryFailed, "failed to execute statement: %s", sqlText)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			affected = 0
		}
		elapsed := time.Since(start)

		r.logger.Debug().
			Int64("rows_affected", affected).
			Dur("execution_time", elapsed).
			Msg("Statement executed")

		return &models.QueryResult{
			RowsAffected:  affected,
			ExecutionTime: elapsed,
		}, nil
	}

	rows, err := db.QueryContext(ctx, sqlText)
	if err != nil {
		return nil, errors.Wrapf(err, errors.CodeQueryFailed, "failed to execute query: %s", sqlText)
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeQueryFailed, "failed to read result columns")
	}

	var out []models.Row
	for rows.Next() {
		values := make([]interface{}, len(columns))
		ptrs := make([]interface{}, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, errors.Wrap(err, errors.CodeQueryFailed, "failed to scan result row")
		}
		row := make(models.Row, len(columns))
		for i, col := range columns {
			row[col] = values[i]
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.CodeQueryFailed, "failed to read result rows")
	}

	elapsed := time.Since(start)

	r.logger.Debug().
		Int("row_count", len(out)).
		Dur("execution_time", elapsed).
		Msg("Query executed")

	return &models.QueryResult{
		Rows:          out,
		RowCount:      len(out),
		ExecutionTime: elapsed,
	}, nil
}

// returnsRows reports whether the statement produces a result set.
func returnsRows(sqlText string) bool {
	head := strings.ToLower(strings.TrimSpace(sqlText))
	head = strings.TrimLeft(head, "(")
	for _, prefix := range []string{"select", "with", "show", "describe", "pragma", "explain", "values"} {
		if strings.HasPrefix(head, prefix) {
			return true
		}
	}
	return false
}
