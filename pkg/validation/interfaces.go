package validation

import (
	"context"

	"github.com/sageql/sage/pkg/models"
)

// SchemaValidator checks a SQL candidate's identifiers against the live
// catalog and the user's intent.
type SchemaValidator interface {
	Validate(ctx context.Context, sql, schemaText, userQuery string) (*models.SchemaResult, error)
}

// InjectionDetector classifies a SQL candidate as malicious or benign.
// The privilege tier changes detection sensitivity, not the output shape.
type InjectionDetector interface {
	Detect(ctx context.Context, sql string, userType models.UserType) (*models.InjectionResult, error)
}

// QueryValidator checks whether the SQL answers the natural-language
// intent given schema and retrieved context.
type QueryValidator interface {
	Validate(ctx context.Context, userQuery, schemaText, contextText, sql string) (*models.SemanticResult, error)
}

// Guardrail is the privilege-sensitive risk classifier. Hard tier rules
// are enforced programmatically; the oracle's judgment is advisory only.
type Guardrail interface {
	Classify(ctx context.Context, sql string, userType models.UserType) (*models.GuardrailResult, error)
}
