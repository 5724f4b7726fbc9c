package validation

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sageql/sage/pkg/models"
)

type fakeCatalog struct {
	tables  []models.TableRef
	columns map[string][]models.Column
	err     error
}

func (f *fakeCatalog) ListTables(ctx context.Context) ([]models.TableRef, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.tables, nil
}

func (f *fakeCatalog) ListColumns(ctx context.Context, table, schema string) ([]models.Column, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.columns[table], nil
}

func testCatalog() *fakeCatalog {
	return &fakeCatalog{
		tables: []models.TableRef{
			{Schema: "main", Table: "customers"},
			{Schema: "main", Table: "orders"},
		},
		columns: map[string][]models.Column{
			"customers": {
				{Name: "id", Type: "INTEGER"},
				{Name: "name", Type: "VARCHAR", Nullable: true},
				{Name: "email", Type: "VARCHAR", Nullable: true},
			},
			"orders": {
				{Name: "id", Type: "INTEGER"},
				{Name: "customer_id", Type: "INTEGER"},
				{Name: "total", Type: "DECIMAL"},
				{Name: "status", Type: "VARCHAR", Nullable: true},
			},
		},
	}
}

func TestSchemaValidator_EmptySQL(t *testing.T) {
	v := NewSchemaValidator(&scriptedOracle{}, testCatalog(), zerolog.Nop())

	result, err := v.Validate(context.Background(), "  ", "", "show customers")
	require.NoError(t, err)
	assert.False(t, result.IsValid)
	assert.Equal(t, SchemaFail, result.ValidationResult)
	assert.Contains(t, result.Issues, "Empty SQL query")
}

func TestSchemaValidator_MissingTableSkipsOracle(t *testing.T) {
	o := &scriptedOracle{responses: []string{`{"validation_result": "pass"}`}}
	v := NewSchemaValidator(o, testCatalog(), zerolog.Nop())

	result, err := v.Validate(context.Background(),
		"SELECT name FROM custmers WHERE id = 1", "", "show customers")
	require.NoError(t, err)

	assert.False(t, result.IsValid)
	assert.Equal(t, SchemaClarificationNeeded, result.ValidationResult)
	assert.Contains(t, result.Issues, "Table 'custmers' does not exist in the database")
	assert.Contains(t, result.MissingTables, "custmers")
	assert.Equal(t, 0, o.callCount(), "catalog findings are ground truth, the oracle is not consulted")

	foundSuggestion := false
	for _, s := range result.Suggestions {
		if len(s) > len("Available tables: ") && s[:len("Available tables: ")] == "Available tables: " {
			foundSuggestion = true
		}
	}
	assert.True(t, foundSuggestion, "expected an available-tables suggestion, got %v", result.Suggestions)
}

func TestSchemaValidator_MissingColumnReported(t *testing.T) {
	o := &scriptedOracle{responses: []string{`{"validation_result": "pass"}`}}
	v := NewSchemaValidator(o, testCatalog(), zerolog.Nop())

	result, err := v.Validate(context.Background(),
		"SELECT nickname FROM customers", "", "show customer nicknames")
	require.NoError(t, err)

	assert.False(t, result.IsValid)
	assert.Equal(t, SchemaClarificationNeeded, result.ValidationResult)
	assert.Contains(t, result.Issues, "Column 'nickname' does not exist in any table")
	assert.Contains(t, result.MissingColumns, "nickname")
	assert.Equal(t, 0, o.callCount())
}

func TestSchemaValidator_KnownIdentifiersReachOracle(t *testing.T) {
	o := &scriptedOracle{responses: []string{
		`{"validation_result": "pass", "feedback": "Query matches intent."}`,
	}}
	v := NewSchemaValidator(o, testCatalog(), zerolog.Nop())

	result, err := v.Validate(context.Background(),
		"SELECT name FROM customers WHERE id > 5", "[main.customers]", "show customers")
	require.NoError(t, err)

	assert.True(t, result.IsValid)
	assert.Equal(t, SchemaPass, result.ValidationResult)
	assert.Equal(t, 1, o.callCount())
}

func TestSchemaValidator_QualifiedTableNamesAccepted(t *testing.T) {
	o := &scriptedOracle{responses: []string{`{"validation_result": "pass"}`}}
	v := NewSchemaValidator(o, testCatalog(), zerolog.Nop())

	result, err := v.Validate(context.Background(),
		"SELECT name FROM main.customers", "", "show customers")
	require.NoError(t, err)
	assert.True(t, result.IsValid)
}

func TestSchemaValidator_StarAndAggregatesNotFlagged(t *testing.T) {
	o := &scriptedOracle{responses: []string{`{"validation_result": "pass"}`}}
	v := NewSchemaValidator(o, testCatalog(), zerolog.Nop())

	result, err := v.Validate(context.Background(),
		"SELECT COUNT(id) FROM orders", "", "how many orders")
	require.NoError(t, err)
	assert.True(t, result.IsValid)
	assert.Empty(t, result.MissingColumns)
}

func TestSchemaValidator_OracleClarificationHonored(t *testing.T) {
	o := &scriptedOracle{responses: []string{
		`{"validation_result": "clarification_needed", "issues": ["Ambiguous date range"], "feedback": "Which period?"}`,
	}}
	v := NewSchemaValidator(o, testCatalog(), zerolog.Nop())

	result, err := v.Validate(context.Background(),
		"SELECT total FROM orders", "", "recent order totals")
	require.NoError(t, err)

	assert.False(t, result.IsValid)
	assert.Equal(t, SchemaClarificationNeeded, result.ValidationResult)
	assert.Contains(t, result.Issues, "Ambiguous date range")
}

func TestSchemaValidator_UnparseableOracleFallsBack(t *testing.T) {
	tests := []struct {
		name    string
		content string
		isValid bool
	}{
		{"prose mentioning missing", "The column you asked about is missing from the table.", false},
		{"benign prose", "Everything looks consistent with the schema.", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := &scriptedOracle{responses: []string{tt.content}}
			v := NewSchemaValidator(o, testCatalog(), zerolog.Nop())

			result, err := v.Validate(context.Background(),
				"SELECT total FROM orders", "", "order totals")
			require.NoError(t, err)
			assert.Equal(t, tt.isValid, result.IsValid)
		})
	}
}

func TestSchemaValidator_CatalogErrorPropagates(t *testing.T) {
	v := NewSchemaValidator(&scriptedOracle{}, &fakeCatalog{err: errors.New("connection refused")}, zerolog.Nop())

	result, err := v.Validate(context.Background(),
		"SELECT total FROM orders", "", "order totals")
	require.Error(t, err)
	assert.Nil(t, result)
}

func TestSchemaValidator_OracleErrorPropagates(t *testing.T) {
	v := NewSchemaValidator(&scriptedOracle{err: errors.New("timeout")}, testCatalog(), zerolog.Nop())

	result, err := v.Validate(context.Background(),
		"SELECT total FROM orders", "", "order totals")
	require.Error(t, err)
	assert.Nil(t, result)
}

func TestExtractSchemaReferences(t *testing.T) {
	tests := []struct {
		name    string
		sql     string
		tables  []string
		columns []string
	}{
		{
			name:    "select with where",
			sql:     "SELECT name FROM customers WHERE id = 1",
			tables:  []string{"customers"},
			columns: []string{"id", "name"},
		},
		{
			name:   "join pulls both tables",
			sql:    "SELECT c.name FROM customers c JOIN orders o ON c.id = o.customer_id",
			tables: []string{"customers", "orders"},
		},
		{
			name:    "schema prefix stripped",
			sql:     "SELECT name FROM main.customers",
			tables:  []string{"customers"},
			columns: []string{"name"},
		},
		{
			name:    "update set column",
			sql:     "UPDATE orders SET status = 'shipped' WHERE id = 3",
			tables:  []string{"orders"},
			columns: []string{"id", "status"},
		},
		{
			name:   "insert target table",
			sql:    "INSERT INTO orders (id) VALUES (1)",
			tables: []string{"orders"},
		},
		{
			name:   "delete target table",
			sql:    "DELETE FROM orders WHERE id = 9",
			tables: []string{"orders"},
		},
		{
			name:   "star not treated as a column",
			sql:    "SELECT * FROM orders",
			tables: []string{"orders"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			refs := extractSchemaReferences(tt.sql)
			for _, table := range tt.tables {
				assert.Contains(t, refs.Tables, table)
			}
			for _, column := range tt.columns {
				assert.Contains(t, refs.Columns, column)
			}
			if tt.name == "star not treated as a column" {
				assert.NotContains(t, refs.Columns, "*")
			}
		})
	}
}
