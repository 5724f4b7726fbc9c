package analyzer

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/sageql/sage/pkg/oracle"
)

// FailureType classifies why a SQL execution failed.
type FailureType string

const (
	// FailureSQLStructure means the statement itself is wrong and a
	// regeneration attempt is worthwhile.
	FailureSQLStructure FailureType = "sql_structure"
	// FailureValidExecution means the statement is sound but the engine
	// refused it for data, permission, or resource reasons.
	FailureValidExecution FailureType = "valid_execution"
	FailureUnknown        FailureType = "unknown"
)

// Analysis is the structured outcome of classifying an execution failure.
type Analysis struct {
	FailureType          FailureType `json:"failure_type"`
	ShouldRegenerate     bool        `json:"should_regenerate"`
	RegenerationFeedback string      `json:"regeneration_feedback"`
	UserFriendlyMessage  string      `json:"user_friendly_message"`
	TechnicalDetails     string      `json:"technical_details"`
	SuggestedFixes       []string    `json:"suggested_fixes"`
}

// ExecutionAnalyzer classifies execution failures. Analyze always
// reaches a decision; an unreachable or unparseable oracle degrades to
// the compiled pattern tables.
type ExecutionAnalyzer interface {
	Analyze(ctx context.Context, sql, errorMessage, userQuery, schemaText string) *Analysis
}

var sqlStructurePatterns = compileAll([]string{
	`table.*not found`,
	`column.*not found`,
	`syntax error`,
	`invalid.*syntax`,
	`missing.*semicolon`,
	`unexpected.*token`,
	`invalid.*identifier`,
	`unknown.*column`,
	`unknown.*table`,
	`ambiguous.*column`,
	`group.*by.*error`,
	`order.*by.*error`,
	`having.*without.*group.*by`,
	`must appear in the group by clause`,
	`group by clause`,
	`can only drop one object at a time`,
	`can only.*one.*at a time`,
	`can.*only.*drop.*one`,
	`cannot drop multiple`,
	`multiple.*drop.*not.*supported`,
	`not implemented`,
	`invalid.*function`,
	`wrong.*number.*of.*arguments`,
	`data.*type.*mismatch`,
	`cannot.*convert`,
	`invalid.*alias`,
	`duplicate.*column`,
	`missing.*right.*parenthesis`,
})

var validExecutionPatterns = compileAll([]string{
	`no.*data.*found`,
	`empty.*result`,
	`no.*rows.*affected`,
	`permission.*denied`,
	`access.*denied`,
	`insufficient.*privileges`,
	`connection.*failed`,
	`timeout`,
	`lock.*timeout`,
	`deadlock`,
	`constraint.*violation`,
	`foreign.*key.*violation`,
	`unique.*constraint`,
	`check.*constraint`,
	`resource.*exhausted`,
	`memory.*limit`,
	`disk.*space`,
	`too.*many.*rows`,
	`result.*too.*large`,
})

func compileAll(patterns []string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		compiled[i] = regexp.MustCompile(p)
	}
	return compiled
}

type oracleAnalyzer struct {
	oracle oracle.Client
	logger zerolog.Logger
}

// NewExecutionAnalyzer creates the oracle-backed failure analyzer.
func NewExecutionAnalyzer(client oracle.Client, logger zerolog.Logger) ExecutionAnalyzer {
	return &oracleAnalyzer{oracle: client, logger: logger}
}

func (a *oracleAnalyzer) Analyze(ctx context.Context, sql, errorMessage, userQuery, schemaText string) *Analysis {
	if strings.TrimSpace(sql) == "" || strings.TrimSpace(errorMessage) == "" {
		return &Analysis{
			FailureType:          FailureUnknown,
			ShouldRegenerate:     false,
			RegenerationFeedback: "Missing SQL query or error message",
			UserFriendlyMessage:  "Unable to analyze the error. Please try again.",
			TechnicalDetails:     "Missing required input for analysis",
		}
	}

	content, err := a.oracle.Complete(ctx, []oracle.Message{
		oracle.SystemMessage(analyzerSystemPrompt),
		oracle.UserMessage(fmt.Sprintf(
			"SQL Query:\n%s\n\nError Message:\n%s\n\nUser Query:\n%s\n\nDatabase Schema:\n%s\n\n"+
				"Analyze this SQL execution failure and determine if it's a SQL structure issue or a valid execution failure.",
			sql, errorMessage, userQuery, schemaText,
		)),
	})
	if err != nil {
		a.logger.Warn().Err(err).Msg("Failure analysis oracle call failed, using pattern fallback")
		return PatternAnalysis(errorMessage)
	}

	var parsed struct {
		FailureType          string   `json:"failure_type"`
		ShouldRegenerate     bool     `json:"should_regenerate"`
		RegenerationFeedback string   `json:"regeneration_feedback"`
		UserFriendlyMessage  string   `json:"user_friendly_message"`
		TechnicalDetails     string   `json:"technical_details"`
		SuggestedFixes       []string `json:"suggested_fixes"`
	}
	if err := oracle.ExtractJSON(content, &parsed); err != nil {
		a.logger.Warn().Err(err).Msg("Failure analysis oracle output unparseable, using pattern fallback")
		return PatternAnalysis(errorMessage)
	}

	failureType := FailureType(strings.ToLower(parsed.FailureType))
	if failureType != FailureSQLStructure && failureType != FailureValidExecution {
		failureType = FailureUnknown
	}

	a.logger.Info().
		Str("failure_type", string(failureType)).
		Bool("should_regenerate", parsed.ShouldRegenerate).
		Msg("SQL execution failure analyzed")

	return &Analysis{
		FailureType:          failureType,
		ShouldRegenerate:     parsed.ShouldRegenerate,
		RegenerationFeedback: parsed.RegenerationFeedback,
		UserFriendlyMessage:  parsed.UserFriendlyMessage,
		TechnicalDetails:     parsed.TechnicalDetails,
		SuggestedFixes:       parsed.SuggestedFixes,
	}
}

// PatternAnalysis classifies an error message against the compiled
// pattern tables. Exported so confirmation handling can classify
// deterministic engine errors without an oracle round trip.
func PatternAnalysis(errorMessage string) *Analysis {
	errorLower := strings.ToLower(errorMessage)

	for _, pattern := range sqlStructurePatterns {
		if pattern.MatchString(errorLower) {
			return &Analysis{
				FailureType:          FailureSQLStructure,
				ShouldRegenerate:     true,
				RegenerationFeedback: "SQL structure error detected: " + errorMessage,
				UserFriendlyMessage:  "There's an issue with the SQL query structure. I'll try to fix it.",
				TechnicalDetails:     "Detected SQL structure error: " + errorMessage,
				SuggestedFixes: []string{
					"Check table and column names",
					"Verify SQL syntax",
					"Ensure proper clause usage",
				},
			}
		}
	}

	for _, pattern := range validExecutionPatterns {
		if pattern.MatchString(errorLower) {
			return &Analysis{
				FailureType:          FailureValidExecution,
				ShouldRegenerate:     false,
				RegenerationFeedback: "Valid execution error: " + errorMessage,
				UserFriendlyMessage:  "The query is correct but couldn't be executed due to data or permission issues.",
				TechnicalDetails:     "Valid execution error: " + errorMessage,
				SuggestedFixes: []string{
					"Check data availability",
					"Verify permissions",
					"Try with different criteria",
				},
			}
		}
	}

	return &Analysis{
		FailureType:          FailureUnknown,
		ShouldRegenerate:     false,
		RegenerationFeedback: "Unknown error: " + errorMessage,
		UserFriendlyMessage:  "An unexpected error occurred. Please try again.",
		TechnicalDetails:     "Unknown error: " + errorMessage,
		SuggestedFixes: []string{
			"Try rephrasing your request",
			"Check if the data exists",
			"Contact support if the issue persists",
		},
	}
}

const analyzerSystemPrompt = "You are a SQL execution failure analyzer. Your job is to determine if a SQL execution failure " +
	"is due to SQL structure issues (that should be fixed by regenerating the query) or valid execution reasons " +
	"(like missing data, permissions, etc.).\n\n" +
	"ANALYSIS CATEGORIES:\n\n" +
	"SQL_STRUCTURE (should_regenerate = true):\n" +
	"- Syntax errors (missing semicolons, invalid keywords, etc.)\n" +
	"- Table/column name errors (non-existent tables/columns)\n" +
	"- Data type mismatches in WHERE clauses\n" +
	"- Invalid JOIN syntax or conditions\n" +
	"- Missing or incorrect GROUP BY clauses\n" +
	"- Invalid function usage or parameters\n" +
	"- Incorrect ORDER BY syntax\n" +
	"- Invalid LIMIT/OFFSET usage\n" +
	"- Missing required clauses (e.g., HAVING without GROUP BY)\n" +
	"- Incorrect subquery syntax\n" +
	"- Invalid aliases or table references\n\n" +
	"VALID_EXECUTION (should_regenerate = false):\n" +
	"- No data found (empty result sets)\n" +
	"- Permission denied errors\n" +
	"- Database connection issues\n" +
	"- Lock/contention issues\n" +
	"- Resource exhaustion (timeout, memory)\n" +
	"- Constraint violations (foreign key, unique, etc.)\n" +
	"- Data integrity issues\n" +
	"- Business logic errors (e.g., trying to delete non-existent records)\n" +
	"- Valid but complex queries that exceed limits\n\n" +
	"ANALYSIS GUIDELINES:\n" +
	"- If the error suggests the SQL structure is fundamentally wrong, classify as SQL_STRUCTURE\n" +
	"- If the error suggests the SQL is correct but execution failed for valid reasons, classify as VALID_EXECUTION\n" +
	"- Provide specific, actionable feedback for regeneration\n" +
	"- Give user-friendly explanations that non-technical users can understand\n" +
	"- Include technical details for debugging\n" +
	"- Suggest specific fixes when possible\n\n" +
	"Respond with JSON only:\n" +
	"{\n" +
	"  \"failure_type\": \"sql_structure|valid_execution|unknown\",\n" +
	"  \"should_regenerate\": true/false,\n" +
	"  \"regeneration_feedback\": \"specific feedback for regeneration\",\n" +
	"  \"user_friendly_message\": \"message for end user\",\n" +
	"  \"technical_details\": \"detailed technical explanation\",\n" +
	"  \"suggested_fixes\": [\"fix1\", \"fix2\"]\n" +
	"}"
