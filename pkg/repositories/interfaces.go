// Package repositories defines interfaces for data access operations.
package repositories

import (
	"context"

	"github.com/sageql/sage/pkg/models"
)

// QueryRepository defines SQL execution operations.
type QueryRepository interface {
	// Execute runs a SQL statement and returns its results. Row-returning
	// statements yield Rows; DML statements yield RowsAffected.
	Execute(ctx context.Context, sql string) (*models.QueryResult, error)
}

// CatalogRepository defines live catalog introspection. Results always
// reflect the current database state; nothing is cached across calls.
type CatalogRepository interface {
	// ListTables returns all user tables.
	ListTables(ctx context.Context) ([]models.TableRef, error)
	// ListColumns returns columns for a specific table.
	ListColumns(ctx context.Context, table, schema string) ([]models.Column, error)
}

// ContextRetriever fetches schema and context text for SQL generation.
// Implementations must not fail the caller: on internal error they
// return an empty bundle and generation proceeds schema-less.
type ContextRetriever interface {
	FetchContext(ctx context.Context, naturalLanguageQuery string, nResults int) models.ContextBundle
}
