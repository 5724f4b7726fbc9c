package repositories

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sageql/sage/pkg/errors"
	"github.com/sageql/sage/pkg/models"
)

type stubCatalog struct {
	tables  []models.TableRef
	columns map[string][]models.Column
	err     error
	colErr  map[string]error
}

func (s *stubCatalog) ListTables(ctx context.Context) ([]models.TableRef, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.tables, nil
}

func (s *stubCatalog) ListColumns(ctx context.Context, table, schema string) ([]models.Column, error) {
	if err := s.colErr[table]; err != nil {
		return nil, err
	}
	return s.columns[schema+"."+table], nil
}

func testStubCatalog() *stubCatalog {
	return &stubCatalog{
		tables: []models.TableRef{
			{Schema: "main", Table: "customers"},
			{Schema: "main", Table: "orders"},
		},
		columns: map[string][]models.Column{
			"main.customers": {
				{Name: "id", Type: "INTEGER"},
				{Name: "name", Type: "VARCHAR", Nullable: true},
				{Name: "email", Type: "VARCHAR", Nullable: true},
			},
			"main.orders": {
				{Name: "id", Type: "INTEGER"},
				{Name: "customer_id", Type: "INTEGER"},
				{Name: "total", Type: "DECIMAL(10,2)", Nullable: true},
			},
		},
	}
}

func TestFetchContext_SchemaSummary(t *testing.T) {
	r := NewCatalogContextRetriever(testStubCatalog(), zerolog.Nop())

	bundle := r.FetchContext(context.Background(), "show me all customers", 5)

	assert.Contains(t, bundle.SchemaText, "[main.customers]")
	assert.Contains(t, bundle.SchemaText, "[main.orders]")
	assert.Contains(t, bundle.SchemaText, "id INTEGER NOT NULL")
	assert.Contains(t, bundle.SchemaText, "name VARCHAR")
	assert.NotContains(t, bundle.SchemaText, "name VARCHAR NOT NULL")
}

func TestFetchContext_MatchesRequestedTables(t *testing.T) {
	r := NewCatalogContextRetriever(testStubCatalog(), zerolog.Nop())

	bundle := r.FetchContext(context.Background(), "show me all customers", 5)

	assert.Contains(t, bundle.ContextText, "[main.customers] - columns: id, name, email")
	assert.NotContains(t, bundle.ContextText, "[main.orders]")
}

func TestFetchContext_SingularTableName(t *testing.T) {
	r := NewCatalogContextRetriever(testStubCatalog(), zerolog.Nop())

	// "orders" table should match the singular word "order".
	bundle := r.FetchContext(context.Background(), "total per order", 5)

	assert.Contains(t, bundle.ContextText, "[main.orders]")
}

func TestFetchContext_ResultLimit(t *testing.T) {
	r := NewCatalogContextRetriever(testStubCatalog(), zerolog.Nop())

	bundle := r.FetchContext(context.Background(), "customers and orders", 1)

	assert.Contains(t, bundle.ContextText, "[main.customers]")
	assert.NotContains(t, bundle.ContextText, "[main.orders]")
}

func TestFetchContext_DegradesOnCatalogError(t *testing.T) {
	catalog := &stubCatalog{err: errors.New(errors.CodeCatalogFailed, "catalog down")}
	r := NewCatalogContextRetriever(catalog, zerolog.Nop())

	bundle := r.FetchContext(context.Background(), "show me customers", 5)

	assert.Empty(t, bundle.SchemaText)
	assert.Empty(t, bundle.ContextText)
}

func TestFetchContext_SkipsFailedTables(t *testing.T) {
	catalog := testStubCatalog()
	catalog.colErr = map[string]error{"customers": errors.New(errors.CodeCatalogFailed, "no such table")}
	r := NewCatalogContextRetriever(catalog, zerolog.Nop())

	bundle := r.FetchContext(context.Background(), "orders please", 5)

	require.NotContains(t, bundle.SchemaText, "[main.customers]")
	assert.Contains(t, bundle.SchemaText, "[main.orders]")
}
