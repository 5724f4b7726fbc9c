package validation

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/sageql/sage/pkg/errors"
	"github.com/sageql/sage/pkg/models"
	"github.com/sageql/sage/pkg/oracle"
	"github.com/sageql/sage/pkg/repositories"
)

// Validation result values for SchemaResult.ValidationResult.
const (
	SchemaPass                = "pass"
	SchemaFail                = "fail"
	SchemaClarificationNeeded = "clarification_needed"
)

var (
	tableRefPatterns = []*regexp.Regexp{
		regexp.MustCompile(`from\s+([a-zA-Z_][a-zA-Z0-9_]*\.?[a-zA-Z_][a-zA-Z0-9_]*)`),
		regexp.MustCompile(`join\s+([a-zA-Z_][a-zA-Z0-9_]*\.?[a-zA-Z_][a-zA-Z0-9_]*)`),
		regexp.MustCompile(`update\s+([a-zA-Z_][a-zA-Z0-9_]*\.?[a-zA-Z_][a-zA-Z0-9_]*)`),
		regexp.MustCompile(`insert\s+into\s+([a-zA-Z_][a-zA-Z0-9_]*\.?[a-zA-Z_][a-zA-Z0-9_]*)`),
		regexp.MustCompile(`delete\s+from\s+([a-zA-Z_][a-zA-Z0-9_]*\.?[a-zA-Z_][a-zA-Z0-9_]*)`),
	}

	columnRefPatterns = []*regexp.Regexp{
		regexp.MustCompile(`select\s+(.*?)\s+from`),
		regexp.MustCompile(`where\s+([a-zA-Z_][a-zA-Z0-9_]*)\s*[=<>!]`),
		regexp.MustCompile(`group\s+by\s+([a-zA-Z_][a-zA-Z0-9_]*)`),
		regexp.MustCompile(`order\s+by\s+([a-zA-Z_][a-zA-Z0-9_]*)`),
		regexp.MustCompile(`update\s+.*?\s+set\s+([a-zA-Z_][a-zA-Z0-9_]*)\s*=`),
	}

	identifierPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

	aggregateFuncs = []string{"count", "sum", "avg", "max", "min"}
)

// schemaReferences are the table and column identifiers extracted from a
// SQL candidate by pattern matching.
type schemaReferences struct {
	Tables  []string
	Columns []string
}

// oracleSchemaValidator implements SchemaValidator. Technical findings
// from the live catalog take precedence over the oracle's opinion.
type oracleSchemaValidator struct {
	oracle  oracle.Client
	catalog repositories.CatalogRepository
	logger  zerolog.Logger
}

// NewSchemaValidator creates a schema validator backed by the live
// catalog and an oracle semantic pass.
func NewSchemaValidator(client oracle.Client, catalog repositories.CatalogRepository, logger zerolog.Logger) SchemaValidator {
	return &oracleSchemaValidator{
		oracle:  client,
		catalog: catalog,
		logger:  logger,
	}
}

func (v *oracleSchemaValidator) Validate(ctx context.Context, sql, schemaText, userQuery string) (*models.SchemaResult, error) {
	if strings.TrimSpace(sql) == "" {
		return &models.SchemaResult{
			IsValid:          false,
			ValidationResult: SchemaFail,
			Issues:           []string{"Empty SQL query"},
			Suggestions:      []string{"Please provide a valid SQL query"},
			Feedback:         "No SQL query provided for validation",
		}, nil
	}

	refs := extractSchemaReferences(sql)

	allTables, allColumns, err := v.catalogSets(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeCatalogFailed, "schema validation could not read the catalog")
	}

	var missingTables, missingColumns, issues, suggestions []string
	for _, table := range refs.Tables {
		if !allTables[strings.ToLower(table)] {
			missingTables = append(missingTables, table)
			issues = append(issues, fmt.Sprintf("Table '%s' does not exist in the database", table))
		}
	}
	for _, column := range refs.Columns {
		if !allColumns[strings.ToLower(column)] {
			missingColumns = append(missingColumns, column)
			issues = append(issues, fmt.Sprintf("Column '%s' does not exist in any table", column))
		}
	}
	if len(missingTables) > 0 {
		suggestions = append(suggestions, "Available tables: "+availableTables(allTables))
	}
	if len(missingColumns) > 0 {
		suggestions = append(suggestions, "Please check column names against the actual schema")
	}

	// Missing identifiers are ground truth; skip the oracle pass.
	if len(missingTables) > 0 || len(missingColumns) > 0 {
		v.logger.Info().
			Strs("missing_tables", missingTables).
			Strs("missing_columns", missingColumns).
			Msg("Schema validation found unknown identifiers")
		return &models.SchemaResult{
			IsValid:          false,
			ValidationResult: SchemaClarificationNeeded,
			Issues:           issues,
			Suggestions:      suggestions,
			MissingTables:    missingTables,
			MissingColumns:   missingColumns,
			Feedback:         "Schema validation failed: the query references tables or columns that do not exist.",
		}, nil
	}

	return v.oraclePass(ctx, sql, schemaText, userQuery)
}

// oraclePass asks the oracle whether the structurally-sound SQL still
// matches user intent.
func (v *oracleSchemaValidator) oraclePass(ctx context.Context, sql, schemaText, userQuery string) (*models.SchemaResult, error) {
	systemMessage := "You are a database schema validation expert. Analyze the SQL query against the provided schema.\n\n" +
		"Your task is to:\n" +
		"1. Check if the SQL query matches the user's intent\n" +
		"2. Validate that all tables and columns exist in the schema\n" +
		"3. Identify any schema mismatches or missing elements\n" +
		"4. Provide helpful suggestions for clarification\n\n" +
		"Validation rules:\n" +
		"- If tables/columns don't exist, suggest clarification\n" +
		"- If the query doesn't match user intent, suggest clarification\n" +
		"- If everything is valid, confirm the query is correct\n\n" +
		"Respond with JSON:\n" +
		"{\n" +
		"  \"validation_result\": \"pass|clarification_needed|fail\",\n" +
		"  \"issues\": [\"list of specific issues\"],\n" +
		"  \"suggestions\": [\"list of helpful suggestions\"],\n" +
		"  \"feedback\": \"detailed explanation\"\n" +
		"}"

	userMessage := fmt.Sprintf(
		"User Query: %s\n\nGenerated SQL: %s\n\nDatabase Schema:\n%s\n\nPlease validate this SQL query against the schema and user intent.",
		userQuery, sql, schemaText,
	)

	content, err := v.oracle.Complete(ctx, []oracle.Message{
		oracle.SystemMessage(systemMessage),
		oracle.UserMessage(userMessage),
	})
	if err != nil {
		return nil, err
	}

	var parsed struct {
		ValidationResult string   `json:"validation_result"`
		Issues           []string `json:"issues"`
		Suggestions      []string `json:"suggestions"`
		Feedback         string   `json:"feedback"`
	}
	if err := oracle.ExtractJSON(content, &parsed); err != nil {
		v.logger.Warn().Err(err).Msg("Schema validation oracle output unparseable, using heuristic fallback")
		return schemaFallback(content), nil
	}

	result := parsed.ValidationResult
	if result != SchemaPass && result != SchemaFail && result != SchemaClarificationNeeded {
		result = SchemaFail
	}
	return &models.SchemaResult{
		IsValid:          result == SchemaPass,
		ValidationResult: result,
		Issues:           parsed.Issues,
		Suggestions:      parsed.Suggestions,
		Feedback:         parsed.Feedback,
	}, nil
}

// schemaFallback reaches a deterministic decision when the oracle output
// cannot be parsed.
func schemaFallback(content string) *models.SchemaResult {
	lower := strings.ToLower(content)
	for _, keyword := range []string{"missing", "doesn't exist", "does not exist", "invalid", "error"} {
		if strings.Contains(lower, keyword) {
			return &models.SchemaResult{
				IsValid:          false,
				ValidationResult: SchemaClarificationNeeded,
				Issues:           []string{"Schema validation issues detected"},
				Suggestions:      []string{"Please check table and column names"},
				Feedback:         truncate(content, 500),
			}
		}
	}
	return &models.SchemaResult{
		IsValid:          true,
		ValidationResult: SchemaPass,
		Feedback:         "Schema validation passed",
	}
}

func (v *oracleSchemaValidator) catalogSets(ctx context.Context) (map[string]bool, map[string]bool, error) {
	tables, err := v.catalog.ListTables(ctx)
	if err != nil {
		return nil, nil, err
	}

	allTables := make(map[string]bool)
	allColumns := make(map[string]bool)
	for _, ref := range tables {
		allTables[strings.ToLower(ref.Table)] = true
		allTables[strings.ToLower(ref.String())] = true

		columns, err := v.catalog.ListColumns(ctx, ref.Table, ref.Schema)
		if err != nil {
			return nil, nil, err
		}
		for _, col := range columns {
			allColumns[strings.ToLower(col.Name)] = true
		}
	}
	return allTables, allColumns, nil
}

// extractSchemaReferences pulls candidate table and column identifiers
// from lowercased SQL text. Lightweight pattern matching, not a grammar.
func extractSchemaReferences(sql string) schemaReferences {
	sqlLower := strings.ToLower(sql)

	tables := make(map[string]bool)
	for _, pattern := range tableRefPatterns {
		for _, m := range pattern.FindAllStringSubmatch(sqlLower, -1) {
			name := strings.TrimSpace(m[1])
			if idx := strings.LastIndex(name, "."); idx >= 0 {
				name = name[idx+1:]
			}
			tables[name] = true
		}
	}

	columns := make(map[string]bool)
	for _, pattern := range columnRefPatterns {
		for _, m := range pattern.FindAllStringSubmatch(sqlLower, -1) {
			for _, col := range strings.Split(m[1], ",") {
				col = strings.TrimSpace(col)
				if isPlainColumn(col) {
					columns[col] = true
				}
			}
		}
	}

	return schemaReferences{
		Tables:  sortedKeys(tables),
		Columns: sortedKeys(columns),
	}
}

// isPlainColumn filters out expressions, aggregate calls, and
// non-identifier tokens such as "*".
func isPlainColumn(col string) bool {
	if !identifierPattern.MatchString(col) {
		return false
	}
	for _, fn := range aggregateFuncs {
		if strings.HasPrefix(col, fn) {
			return false
		}
	}
	return true
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func availableTables(allTables map[string]bool) string {
	return strings.Join(sortedKeys(allTables), ", ")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
