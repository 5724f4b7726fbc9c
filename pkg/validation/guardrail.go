package validation

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/sageql/sage/pkg/models"
	"github.com/sageql/sage/pkg/oracle"
)

// oracleGuardrail implements Guardrail. The tier rule table is enforced
// programmatically after the oracle call: the oracle's classification is
// advisory and can never override a hard rule.
type oracleGuardrail struct {
	oracle     oracle.Client
	classifier *StatementClassifier
	logger     zerolog.Logger
}

// NewGuardrail creates the risk classifier.
func NewGuardrail(client oracle.Client, classifier *StatementClassifier, logger zerolog.Logger) Guardrail {
	return &oracleGuardrail{
		oracle:     client,
		classifier: classifier,
		logger:     logger,
	}
}

func (g *oracleGuardrail) Classify(ctx context.Context, sql string, userType models.UserType) (*models.GuardrailResult, error) {
	if strings.TrimSpace(sql) == "" {
		return &models.GuardrailResult{
			Decision: models.GuardrailReject,
			Feedback: "No SQL statement to classify",
		}, nil
	}

	advisory := g.advisoryClassify(ctx, sql, userType)
	result := g.enforceTierRules(sql, userType, advisory)

	g.logger.Info().
		Str("user_type", string(userType)).
		Str("decision", string(result.Decision)).
		Msg("Guardrail classification completed")

	return result, nil
}

// advisoryClassify asks the oracle for a risk judgment. Any failure
// degrades to nil and the deterministic rule table decides alone.
func (g *oracleGuardrail) advisoryClassify(ctx context.Context, sql string, userType models.UserType) *models.GuardrailResult {
	systemMessage := fmt.Sprintf(
		"You are a SQL risk classifier for a %s-privilege database session. Classify the SQL statement "+
			"into one of three decisions:\n"+
			"- accept: safe to execute automatically\n"+
			"- human_verification: requires explicit user confirmation before execution\n"+
			"- reject: must not be executed\n\n"+
			"Consider the operation type (read, write, DDL), whether it is destructive, whether it touches "+
			"system catalogs, and whether it carries injection-style patterns.\n\n"+
			"Respond with JSON only:\n"+
			"{\n"+
			"  \"decision\": \"accept|human_verification|reject\",\n"+
			"  \"feedback\": \"one or two sentences of reasoning\"\n"+
			"}",
		userType,
	)

	content, err := g.oracle.Complete(ctx, []oracle.Message{
		oracle.SystemMessage(systemMessage),
		oracle.UserMessage(fmt.Sprintf("SQL statement to classify:\n\n%s", sql)),
	})
	if err != nil {
		g.logger.Warn().Err(err).Msg("Guardrail oracle call failed, rule table decides alone")
		return nil
	}

	var parsed struct {
		Decision string `json:"decision"`
		Feedback string `json:"feedback"`
	}
	if err := oracle.ExtractJSON(content, &parsed); err != nil {
		g.logger.Warn().Err(err).Msg("Guardrail oracle output unparseable, rule table decides alone")
		return nil
	}

	decision := models.GuardrailVerdict(parsed.Decision)
	switch decision {
	case models.GuardrailAccept, models.GuardrailHumanVerification, models.GuardrailReject:
		return &models.GuardrailResult{Decision: decision, Feedback: parsed.Feedback}
	default:
		return nil
	}
}

// enforceTierRules applies the tier-asymmetric rule table. Hard rules
// fire regardless of the advisory outcome; where no hard rule applies,
// the advisory decision stands, and without one the deterministic
// default decides.
func (g *oracleGuardrail) enforceTierRules(sql string, userType models.UserType, advisory *models.GuardrailResult) *models.GuardrailResult {
	class := g.classifier.Classify(sql)
	statements := g.classifier.SplitStatements(sql)
	multiStatement := len(statements) > 1

	if userType == models.UserTypeAdmin {
		return g.adminRules(sql, class, advisory)
	}
	return g.userRules(sql, class, statements, multiStatement, advisory)
}

// adminRules: accept virtually all operations; reject only unambiguous
// injection; verification only for destructive whole-database operations.
func (g *oracleGuardrail) adminRules(sql string, class StatementClass, advisory *models.GuardrailResult) *models.GuardrailResult {
	if g.classifier.HasInjectionMarker(sql) {
		return &models.GuardrailResult{
			Decision: models.GuardrailReject,
			Feedback: "The statement contains injection-style patterns and cannot be executed.",
		}
	}
	if g.classifier.IsDangerous(sql) {
		return &models.GuardrailResult{
			Decision: models.GuardrailHumanVerification,
			Feedback: "This is a destructive database-wide operation. Please confirm before execution.",
		}
	}
	if advisory != nil && advisory.Decision != models.GuardrailAccept {
		// Advisory may be stricter than the admin default, never looser.
		return advisory
	}
	return &models.GuardrailResult{
		Decision: models.GuardrailAccept,
		Feedback: fmt.Sprintf("%s operation accepted for admin session.", class),
	}
}

// userRules: DELETE and DROP always require verification, DDL and
// multi-statement text route to verification unless the text is a
// consistent INSERT batch, and system-catalog or privilege statements
// are rejected.
func (g *oracleGuardrail) userRules(sql string, class StatementClass, statements []string, multiStatement bool, advisory *models.GuardrailResult) *models.GuardrailResult {
	if g.classifier.HasInjectionMarker(sql) || g.classifier.IsDangerous(sql) {
		return &models.GuardrailResult{
			Decision: models.GuardrailReject,
			Feedback: "The statement contains patterns that are not permitted for this session.",
		}
	}
	if class == ClassDCL {
		return &models.GuardrailResult{
			Decision: models.GuardrailReject,
			Feedback: "Privilege statements are not permitted for this session.",
		}
	}
	if g.classifier.TouchesSystemCatalog(sql) {
		return &models.GuardrailResult{
			Decision: models.GuardrailReject,
			Feedback: "System catalog access is not permitted for this session.",
		}
	}

	// Hard tier rule: every DELETE and DROP requires verification,
	// regardless of how well-formed the statement is.
	if class == ClassDelete || class == ClassDrop {
		return &models.GuardrailResult{
			Decision: models.GuardrailHumanVerification,
			Feedback: fmt.Sprintf("%s operations require explicit confirmation. Reply \"yes\" to execute or \"no\" to cancel.", class),
		}
	}

	if multiStatement {
		if g.classifier.IsInsertBatch(statements) {
			return &models.GuardrailResult{
				Decision: models.GuardrailAccept,
				Feedback: "Batch of INSERT statements against one table accepted.",
			}
		}
		return &models.GuardrailResult{
			Decision: models.GuardrailHumanVerification,
			Feedback: "Multi-statement SQL requires explicit confirmation before execution.",
		}
	}

	if class == ClassDDL {
		return &models.GuardrailResult{
			Decision: models.GuardrailHumanVerification,
			Feedback: "Schema-changing operations require explicit confirmation before execution.",
		}
	}

	switch class {
	case ClassSelect, ClassInsert, ClassUpdate:
		if advisory != nil && advisory.Decision != models.GuardrailAccept {
			// Advisory may tighten the default accept, never loosen a
			// hard rule.
			return advisory
		}
		return &models.GuardrailResult{
			Decision: models.GuardrailAccept,
			Feedback: fmt.Sprintf("%s operation accepted.", class),
		}
	default:
		return &models.GuardrailResult{
			Decision: models.GuardrailReject,
			Feedback: "Unrecognized statement type cannot be executed for this session.",
		}
	}
}
