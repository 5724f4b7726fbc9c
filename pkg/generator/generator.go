package generator

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/sageql/sage/pkg/errors"
	"github.com/sageql/sage/pkg/models"
	"github.com/sageql/sage/pkg/oracle"
)

// DefaultMaxRegenerationAttempts bounds the regeneration loop per turn.
const DefaultMaxRegenerationAttempts = 3

// FailureKind distinguishes why a previous candidate needs regeneration.
type FailureKind string

const (
	FailureKindValidation FailureKind = "validation"
	FailureKindExecution  FailureKind = "execution"
)

// Input carries everything a fresh generation needs.
type Input struct {
	Query        string
	ContextText  string
	SchemaText   string
	PreviousChat string
	UserType     models.UserType
}

// RegenerationInput carries a failed candidate back for another attempt.
type RegenerationInput struct {
	Input
	FailedSQL     string
	FailureReason string
	FailureKind   FailureKind
}

// Result is one generation outcome. TooVague means the oracle judged the
// request unanswerable with the available schema and context.
type Result struct {
	SQL      string
	TooVague bool
}

// Generator turns natural language requests into SQL candidates.
type Generator interface {
	Generate(ctx context.Context, in Input) (*Result, error)
	Regenerate(ctx context.Context, in RegenerationInput) (*Result, error)
}

type sqlGenerator struct {
	oracle oracle.Client
	logger zerolog.Logger
}

// NewGenerator creates an oracle-backed SQL generator.
func NewGenerator(client oracle.Client, logger zerolog.Logger) Generator {
	return &sqlGenerator{oracle: client, logger: logger}
}

func (g *sqlGenerator) Generate(ctx context.Context, in Input) (*Result, error) {
	if in.Query == "" {
		return nil, errors.ErrEmptyRequest
	}

	userMessage := fmt.Sprintf(
		"Schema (truncated):\n%s\n\nContext snippets:\n%s\n\nPrevious chat context:\n%s\n\nUser request:\n%s",
		in.SchemaText, in.ContextText, in.PreviousChat, in.Query,
	)

	content, err := g.oracle.Complete(ctx, []oracle.Message{
		oracle.SystemMessage(generationSystemPrompt(in.UserType)),
		oracle.UserMessage(userMessage),
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeGenerationFailed, "SQL generation failed")
	}

	extracted, err := oracle.ExtractSQL(content)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeGenerationFailed, "SQL generation produced no statement")
	}

	g.logger.Debug().
		Bool("too_vague", extracted.TooVague).
		Str("sql", extracted.SQL).
		Msg("SQL generated")

	return &Result{SQL: extracted.SQL, TooVague: extracted.TooVague}, nil
}

func (g *sqlGenerator) Regenerate(ctx context.Context, in RegenerationInput) (*Result, error) {
	if in.Query == "" {
		return nil, errors.ErrEmptyRequest
	}

	systemMessage := generationSystemPrompt(in.UserType) + fmt.Sprintf(
		"\n\nREGENERATION CONTEXT:\n"+
			"- Original user query: %s\n"+
			"- Failed SQL query: %s\n"+
			"- Failure type: %s\n"+
			"- Failure reason: %s\n\n"+
			"%s\n\n"+
			"CRITICAL: Use the above failure information to generate a corrected query that addresses the specific issue.",
		in.Query, in.FailedSQL, in.FailureKind, in.FailureReason,
		specificGuidance(in.FailureReason, in.FailureKind),
	)

	userMessage := fmt.Sprintf(
		"Schema (truncated):\n%s\n\nContext snippets:\n%s\n\nPrevious chat context:\n%s\n\nUser request:\n%s\n\n"+
			"FAILED SQL QUERY (for reference):\n%s\n\nFAILURE REASON:\n%s",
		in.SchemaText, in.ContextText, in.PreviousChat, in.Query, in.FailedSQL, in.FailureReason,
	)

	content, err := g.oracle.Complete(ctx, []oracle.Message{
		oracle.SystemMessage(systemMessage),
		oracle.UserMessage(userMessage),
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeGenerationFailed, "SQL regeneration failed")
	}

	extracted, err := oracle.ExtractSQL(content)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeGenerationFailed, "SQL regeneration produced no statement")
	}

	g.logger.Debug().
		Str("failure_kind", string(in.FailureKind)).
		Str("sql", extracted.SQL).
		Msg("SQL regenerated")

	return &Result{SQL: extracted.SQL, TooVague: extracted.TooVague}, nil
}

func generationSystemPrompt(userType models.UserType) string {
	return fmt.Sprintf(
		"You are an expert DuckDB SQL generator. Using ONLY the provided schema and context data, produce a single, "+
			"executable SQL statement that accurately answers the user's request.\n\n"+
			"SCHEMA AND CONTEXT USAGE:\n"+
			"- ALWAYS reference the provided database schema to ensure table and column names are correct\n"+
			"- Use context data to understand the user's intent and make informed decisions about table selection\n"+
			"- If context mentions specific tables, columns, or relationships, incorporate them in your query\n"+
			"- If schema shows table relationships, use appropriate JOINs based on foreign keys\n\n"+
			"QUERY TYPE HANDLING:\n"+
			"- SELECT queries: Use for reading/retrieving data\n"+
			"- INSERT queries: Use for adding new records to existing tables\n"+
			"- UPDATE queries: Use for modifying existing records\n"+
			"- DELETE queries: Use for removing records (will require human verification)\n"+
			"- DROP queries: Use when user explicitly requests to drop tables/views (will require human verification)\n"+
			"- CREATE TABLE/VIEW/INDEX queries: Use when user explicitly requests them\n\n"+
			"SECURITY GUIDELINES:\n"+
			"- Only access tables and columns that exist in the provided schema\n"+
			"- Avoid system tables (information_schema, sys.*, pg_catalog) unless user is admin\n"+
			"- Do not generate privilege escalation commands (GRANT, REVOKE)\n"+
			"- Do not perform file operations (COPY TO, INTO OUTFILE)\n"+
			"- Do not execute dangerous functions (xp_cmdshell, exec, system)\n"+
			"- Generate only single, focused SQL statements\n"+
			"- The current user type is: %s\n\n"+
			"TECHNICAL REQUIREMENTS:\n"+
			"- Use fully-qualified table names when schema is provided\n"+
			"- Add LIMIT 100 for SELECT queries if no explicit limit is specified\n"+
			"- Return only the SQL statement; no explanations or comments\n"+
			"- For case-insensitive string comparisons, use ILIKE instead of =\n\n"+
			"VAGUENESS CHECK:\n"+
			"- If the request cannot be answered with the available schema and context, or is too vague to "+
			"produce a meaningful query, respond with exactly: VAGUE_QUERY",
		userType,
	)
}

// specificGuidance maps a failure reason onto targeted regeneration
// instructions, keyed first by failure kind and then by reason substring.
func specificGuidance(failureReason string, kind FailureKind) string {
	lower := strings.ToLower(failureReason)

	if kind == FailureKindExecution {
		switch {
		case strings.Contains(lower, "can only drop one object at a time") || strings.Contains(lower, "multiple drop"):
			return "SPECIFIC REGENERATION INSTRUCTIONS:\n" +
				"- The previous query tried to drop multiple tables in a single statement\n" +
				"- DuckDB only supports dropping one object at a time\n" +
				"- Generate separate DROP statements for each table\n" +
				"- Or use a single DROP statement for the most important table first\n"
		case strings.Contains(lower, "table") && (strings.Contains(lower, "not found") || strings.Contains(lower, "unknown")):
			return "SPECIFIC REGENERATION INSTRUCTIONS:\n" +
				"- The previous query referenced a table that doesn't exist\n" +
				"- Check the schema carefully for correct table names\n" +
				"- Use fully qualified names (schema.table) if schema is provided\n" +
				"- Look for similar table names in the schema\n" +
				"- Verify table name spelling and case sensitivity\n"
		case strings.Contains(lower, "column") && (strings.Contains(lower, "not found") || strings.Contains(lower, "unknown")):
			return "SPECIFIC REGENERATION INSTRUCTIONS:\n" +
				"- The previous query referenced a column that doesn't exist\n" +
				"- Check the schema for correct column names\n" +
				"- Use table aliases if needed to avoid ambiguity\n" +
				"- Verify column name spelling and case sensitivity\n"
		case strings.Contains(lower, "syntax error") || strings.Contains(lower, "invalid"):
			return "SPECIFIC REGENERATION INSTRUCTIONS:\n" +
				"- The previous query had syntax errors\n" +
				"- Check for missing semicolons, parentheses, or keywords\n" +
				"- Verify proper SQL syntax for the specific operation\n" +
				"- Ensure proper clause ordering (SELECT, FROM, WHERE, GROUP BY, etc.)\n"
		case strings.Contains(lower, "group") && strings.Contains(lower, "by"):
			return "SPECIFIC REGENERATION INSTRUCTIONS:\n" +
				"- The previous query had GROUP BY clause issues\n" +
				"- All non-aggregated columns in SELECT must appear in GROUP BY\n" +
				"- Or use aggregate functions (COUNT, SUM, AVG, etc.) for non-grouped columns\n" +
				"- Check for proper HAVING clause usage with GROUP BY\n"
		default:
			return "SPECIFIC REGENERATION INSTRUCTIONS:\n" +
				"- The previous SQL query failed execution\n" +
				"- Analyze the error message and fix the specific issue\n" +
				"- Check table names, column names, and syntax\n" +
				"- Verify that all referenced objects exist in the schema\n"
		}
	}

	switch {
	case strings.Contains(lower, "vague") || strings.Contains(lower, "clarification"):
		return "SPECIFIC REGENERATION INSTRUCTIONS:\n" +
			"- The previous query was too vague\n" +
			"- Use available context and schema more aggressively\n" +
			"- Make reasonable assumptions about table names and relationships\n" +
			"- Use context data to infer missing details\n"
	case strings.Contains(lower, "schema") || strings.Contains(lower, "validation"):
		return "SPECIFIC REGENERATION INSTRUCTIONS:\n" +
			"- The previous query failed schema validation\n" +
			"- Check the schema carefully for correct table and column names\n" +
			"- Use fully qualified names (schema.table) if schema is provided\n" +
			"- Ensure all referenced objects exist in the schema\n"
	case strings.Contains(lower, "security") || strings.Contains(lower, "injection"):
		return "SPECIFIC REGENERATION INSTRUCTIONS:\n" +
			"- The previous query was flagged for security concerns\n" +
			"- Avoid system tables unless user is admin\n" +
			"- Do not use dangerous functions or operations\n" +
			"- Use proper SQL syntax without injection patterns\n"
	default:
		return "SPECIFIC REGENERATION INSTRUCTIONS:\n" +
			"- The previous SQL query failed validation\n" +
			"- Analyze the validation error and fix the specific issue\n" +
			"- Check table names, column names, and syntax\n" +
			"- Verify that all referenced objects exist in the schema\n"
	}
}
