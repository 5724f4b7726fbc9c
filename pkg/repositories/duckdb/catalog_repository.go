package duckdb

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/sageql/sage/pkg/errors"
	"github.com/sageql/sage/pkg/infrastructure/pool"
	"github.com/sageql/sage/pkg/models"
	"github.com/sageql/sage/pkg/repositories"
)

// catalogRepository implements repositories.CatalogRepository for DuckDB
// using information_schema.
type catalogRepository struct {
	pool   pool.ConnectionPool
	logger zerolog.Logger
}

// NewCatalogRepository creates a new DuckDB catalog repository.
func NewCatalogRepository(pool pool.ConnectionPool, logger zerolog.Logger) repositories.CatalogRepository {
	return &catalogRepository{
		pool:   pool,
		logger: logger,
	}
}

// ListTables returns all user tables.
func (r *catalogRepository) ListTables(ctx context.Context) ([]models.TableRef, error) {
	db, err := r.pool.Get(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeConnectionFailed, "failed to get connection from pool")
	}

	const query = `
		SELECT table_schema, table_name
		FROM information_schema.tables
		WHERE table_schema NOT IN ('information_schema', 'pg_catalog')
		ORDER BY table_schema, table_name`

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeCatalogFailed, "failed to list tables")
	}
	defer func() { _ = rows.Close() }()

	var tables []models.TableRef
	for rows.Next() {
		var ref models.TableRef
		if err := rows.Scan(&ref.Schema, &ref.Table); err != nil {
			return nil, errors.Wrap(err, errors.CodeCatalogFailed, "failed to scan table row")
		}
		tables = append(tables, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.CodeCatalogFailed, "failed to read table rows")
	}

	r.logger.Debug().Int("count", len(tables)).Msg("Listed tables")
	return tables, nil
}

// ListColumns returns columns for a specific table.
func (r *catalogRepository) ListColumns(ctx context.Context, table, schema string) ([]models.Column, error) {
	db, err := r.pool.Get(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeConnectionFailed, "failed to get connection from pool")
	}

	query := `
		SELECT column_name, data_type, is_nullable
		FROM information_schema.columns
		WHERE table_name = ?`
	args := []interface{}{table}
	if schema != "" {
		query += ` AND table_schema = ?`
		args = append(args, schema)
	}
	query += ` ORDER BY ordinal_position`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrapf(err, errors.CodeCatalogFailed, "failed to list columns for table %s", table)
	}
	defer func() { _ = rows.Close() }()

	var columns []models.Column
	for rows.Next() {
		var col models.Column
		var nullable string
		if err := rows.Scan(&col.Name, &col.Type, &nullable); err != nil {
			return nil, errors.Wrap(err, errors.CodeCatalogFailed, "failed to scan column row")
		}
		col.Nullable = nullable != "NO"
		columns = append(columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.CodeCatalogFailed, "failed to read column rows")
	}

	return columns, nil
}
