package validation

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/sageql/sage/pkg/models"
	"github.com/sageql/sage/pkg/oracle"
)

// Confidence values for InjectionResult.Confidence.
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
)

// oracleInjectionDetector implements InjectionDetector with an
// oracle-backed classification and a deterministic pattern fallback.
type oracleInjectionDetector struct {
	oracle     oracle.Client
	classifier *StatementClassifier
	logger     zerolog.Logger
}

// NewInjectionDetector creates an injection detector.
func NewInjectionDetector(client oracle.Client, classifier *StatementClassifier, logger zerolog.Logger) InjectionDetector {
	return &oracleInjectionDetector{
		oracle:     client,
		classifier: classifier,
		logger:     logger,
	}
}

func (d *oracleInjectionDetector) Detect(ctx context.Context, sql string, userType models.UserType) (*models.InjectionResult, error) {
	if strings.TrimSpace(sql) == "" {
		return &models.InjectionResult{IsInjection: false, Reason: "Empty query", Confidence: ConfidenceHigh}, nil
	}

	content, err := d.oracle.Complete(ctx, []oracle.Message{
		oracle.SystemMessage(injectionSystemPrompt(userType)),
		oracle.UserMessage(fmt.Sprintf("Analyze this SQL query for SQL injection patterns:\n\n%s", sql)),
	})
	if err != nil {
		return nil, err
	}

	var parsed struct {
		IsInjection bool   `json:"is_injection"`
		Reason      string `json:"reason"`
		Confidence  string `json:"confidence"`
	}
	if err := oracle.ExtractJSON(content, &parsed); err != nil {
		d.logger.Warn().Err(err).Msg("Injection oracle output unparseable, using pattern fallback")
		return d.patternFallback(sql), nil
	}

	confidence := parsed.Confidence
	if confidence != ConfidenceHigh && confidence != ConfidenceMedium && confidence != ConfidenceLow {
		confidence = ConfidenceMedium
	}

	d.logger.Info().
		Bool("is_injection", parsed.IsInjection).
		Str("confidence", confidence).
		Msg("Injection detection completed")

	return &models.InjectionResult{
		IsInjection: parsed.IsInjection,
		Reason:      parsed.Reason,
		Confidence:  confidence,
	}, nil
}

// patternFallback reaches a deterministic decision from compiled
// injection patterns when the oracle output cannot be parsed.
func (d *oracleInjectionDetector) patternFallback(sql string) *models.InjectionResult {
	if d.classifier.HasInjectionMarker(sql) {
		return &models.InjectionResult{
			IsInjection: true,
			Reason:      "Injection-style pattern detected by heuristic analysis",
			Confidence:  ConfidenceMedium,
		}
	}
	return &models.InjectionResult{
		IsInjection: false,
		Reason:      "No injection patterns detected by heuristic analysis",
		Confidence:  ConfidenceLow,
	}
}

func injectionSystemPrompt(userType models.UserType) string {
	base := "You are a SQL security expert. Analyze the provided SQL query for potential SQL injection attacks.\n\n" +
		"Look for these specific injection patterns:\n" +
		"1. Boolean-based injections: OR 1=1, OR TRUE, AND 1=1, etc.\n" +
		"2. Comment-based injections: --, /* */, #\n" +
		"3. Union-based injections: UNION SELECT, UNION ALL SELECT\n" +
		"4. Stacked queries: multiple statements separated by semicolons\n" +
		"5. Time-based injections: SLEEP(), WAITFOR DELAY, BENCHMARK()\n" +
		"6. Privilege escalation: GRANT, REVOKE, EXEC, EXECUTE\n" +
		"7. File operations: INTO OUTFILE, COPY TO, LOAD_FILE()\n" +
		"8. Dangerous functions: xp_cmdshell, system(), eval()\n" +
		"9. Authentication bypass attempts\n" +
		"10. Data exfiltration attempts\n\n"

	if userType == models.UserTypeAdmin {
		base += "The user has ADMIN privileges. Be more lenient with schema-related operations:\n" +
			"- System table access (information_schema, sys.tables, pg_catalog) is acceptable\n" +
			"- Schema discovery operations are acceptable\n" +
			"- DDL operations (CREATE, ALTER, DROP) are acceptable\n" +
			"- Table structure queries are acceptable\n\n"
	} else {
		base += "Also flag:\n" +
			"11. System table access: information_schema, sys.tables, pg_catalog\n" +
			"12. Schema discovery attempts\n\n"
	}

	return base +
		"IMPORTANT: Only flag as injection if you are confident the pattern is malicious.\n" +
		"Legitimate SQL functions like CONCAT(), SUBSTRING(), etc. should NOT be flagged.\n" +
		"Normal WHERE clauses with OR/AND conditions should NOT be flagged unless they appear to bypass security.\n\n" +
		"Respond with JSON only:\n" +
		"{\n" +
		"  \"is_injection\": true/false,\n" +
		"  \"reason\": \"clear explanation of why this is or is not an injection\",\n" +
		"  \"confidence\": \"high/medium/low\"\n" +
		"}"
}
