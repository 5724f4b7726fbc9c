package validation

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/sageql/sage/pkg/models"
	"github.com/sageql/sage/pkg/oracle"
)

// oracleQueryValidator implements QueryValidator: an oracle-backed check
// that the SQL actually answers the user's intent.
type oracleQueryValidator struct {
	oracle oracle.Client
	logger zerolog.Logger
}

// NewQueryValidator creates a semantic query validator.
func NewQueryValidator(client oracle.Client, logger zerolog.Logger) QueryValidator {
	return &oracleQueryValidator{
		oracle: client,
		logger: logger,
	}
}

func (v *oracleQueryValidator) Validate(ctx context.Context, userQuery, schemaText, contextText, sql string) (*models.SemanticResult, error) {
	systemMessage := "You are a SQL correctness reviewer. Given a user's natural language request, the database schema, " +
		"and retrieved context, judge whether the SQL query correctly answers the request.\n\n" +
		"Consider:\n" +
		"- Does the query select the right tables and columns for the request?\n" +
		"- Do filters, joins, and aggregations reflect the user's intent?\n" +
		"- Would the result set plausibly answer the question asked?\n\n" +
		"Respond with JSON only:\n" +
		"{\n" +
		"  \"is_correct\": true/false,\n" +
		"  \"explanation\": \"why the query does or does not answer the request\",\n" +
		"  \"suggestions\": [\"optional improvements\"],\n" +
		"  \"confidence_score\": 0.0-1.0\n" +
		"}"

	userMessage := fmt.Sprintf(
		"User Request: %s\n\nDatabase Schema:\n%s\n\nContext:\n%s\n\nSQL Query:\n%s",
		userQuery, schemaText, contextText, sql,
	)

	content, err := v.oracle.Complete(ctx, []oracle.Message{
		oracle.SystemMessage(systemMessage),
		oracle.UserMessage(userMessage),
	})
	if err != nil {
		return nil, err
	}

	var parsed struct {
		IsCorrect       bool     `json:"is_correct"`
		Explanation     string   `json:"explanation"`
		Suggestions     []string `json:"suggestions"`
		ConfidenceScore float64  `json:"confidence_score"`
	}
	if err := oracle.ExtractJSON(content, &parsed); err != nil {
		v.logger.Warn().Err(err).Msg("Semantic validation oracle output unparseable, using heuristic fallback")
		return semanticFallback(content), nil
	}

	return &models.SemanticResult{
		IsCorrect:       parsed.IsCorrect,
		Explanation:     parsed.Explanation,
		Suggestions:     parsed.Suggestions,
		ConfidenceScore: parsed.ConfidenceScore,
	}, nil
}

// semanticFallback reaches a decision from keyword inspection of the raw
// oracle output when it cannot be parsed as JSON.
func semanticFallback(content string) *models.SemanticResult {
	lower := strings.ToLower(content)
	for _, keyword := range []string{"incorrect", "does not answer", "doesn't answer", "wrong", "mismatch"} {
		if strings.Contains(lower, keyword) {
			return &models.SemanticResult{
				IsCorrect:       false,
				Explanation:     truncate(content, 500),
				ConfidenceScore: 0.3,
			}
		}
	}
	return &models.SemanticResult{
		IsCorrect:       true,
		Explanation:     "Semantic check inconclusive, no contradiction detected",
		ConfidenceScore: 0.3,
	}
}
