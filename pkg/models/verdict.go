package models

import "time"

// QueryComplexity represents the structural complexity tier of a SQL candidate.
type QueryComplexity string

const (
	ComplexityUnknown QueryComplexity = "unknown"
	ComplexityLow     QueryComplexity = "low"
	ComplexityMedium  QueryComplexity = "medium"
	ComplexityHigh    QueryComplexity = "high"
)

// ValidationStrategy represents the execution plan chosen for validation.
type ValidationStrategy string

const (
	// StrategyParallel runs the independent checks concurrently.
	StrategyParallel ValidationStrategy = "parallel"
	// StrategySequential runs checks in priority order with early exit.
	StrategySequential ValidationStrategy = "sequential"
	// StrategyMinimal runs only injection detection and the guardrail.
	StrategyMinimal ValidationStrategy = "minimal"
)

// StepStatus represents the lifecycle state of a single validation step.
type StepStatus string

const (
	StepPending   StepStatus = "pending"
	StepCompleted StepStatus = "completed"
	StepFailed    StepStatus = "failed"
)

// Validation step names as they appear in verdicts and metrics.
const (
	StepSchemaValidation   = "schema_validation"
	StepInjectionDetection = "injection_detection"
	StepQueryValidation    = "query_validation"
	StepGuardrail          = "guardrail"
)

// SchemaResult is the schema validator's structured output.
type SchemaResult struct {
	IsValid          bool     `json:"is_valid"`
	ValidationResult string   `json:"validation_result"` // pass | clarification_needed | fail
	Issues           []string `json:"issues"`
	Suggestions      []string `json:"suggestions"`
	MissingTables    []string `json:"missing_tables"`
	MissingColumns   []string `json:"missing_columns"`
	Feedback         string   `json:"feedback"`
}

// InjectionResult is the injection detector's structured output.
type InjectionResult struct {
	IsInjection bool   `json:"is_injection"`
	Reason      string `json:"reason"`
	Confidence  string `json:"confidence"` // high | medium | low
}

// SemanticResult is the semantic query validator's structured output.
type SemanticResult struct {
	IsCorrect       bool     `json:"is_correct"`
	Explanation     string   `json:"explanation"`
	Suggestions     []string `json:"suggestions"`
	ConfidenceScore float64  `json:"confidence_score"`
}

// GuardrailVerdict is the risk classifier's decision taxonomy.
type GuardrailVerdict string

const (
	GuardrailAccept            GuardrailVerdict = "accept"
	GuardrailHumanVerification GuardrailVerdict = "human_verification"
	GuardrailReject            GuardrailVerdict = "reject"
)

// GuardrailResult is the guardrail's structured output.
type GuardrailResult struct {
	Decision GuardrailVerdict `json:"decision"`
	Feedback string           `json:"feedback"`
}

// StepResult is the union of per-check results. Exactly one field is non-nil
// for a completed step; all are nil for a failed step.
type StepResult struct {
	Schema    *SchemaResult    `json:"schema,omitempty"`
	Injection *InjectionResult `json:"injection,omitempty"`
	Semantic  *SemanticResult  `json:"semantic,omitempty"`
	Guardrail *GuardrailResult `json:"guardrail,omitempty"`
}

// ValidationStep records the outcome of one named check within an
// orchestration run. Steps are created fresh per run, never reused.
type ValidationStep struct {
	Name     string      `json:"name"`
	Status   StepStatus  `json:"status"`
	Result   *StepResult `json:"result,omitempty"`
	Err      string      `json:"error,omitempty"`
	Parallel bool        `json:"parallel"`
}

// PerformanceMetrics summarizes an orchestration run for observability.
type PerformanceMetrics struct {
	TotalTime      time.Duration `json:"total_time"`
	StepsCompleted int           `json:"steps_completed"`
	ParallelSteps  int           `json:"parallel_steps"`
}

// Verdict is the orchestrator's aggregated validation outcome for one SQL
// candidate. One verdict per orchestration call; immutable once returned.
type Verdict struct {
	IsValid         bool                      `json:"is_valid"`
	Errors          []string                  `json:"errors"`
	Warnings        []string                  `json:"warnings"`
	Recommendations []string                  `json:"recommendations"`
	Complexity      QueryComplexity           `json:"query_complexity"`
	Strategy        ValidationStrategy        `json:"validation_strategy"`
	Steps           map[string]ValidationStep `json:"validation_results"`
	Metrics         PerformanceMetrics        `json:"performance_metrics"`
}

// GuardrailDecision returns the guardrail's decision from a verdict, or
// GuardrailReject if the guardrail step is absent or failed.
func (v *Verdict) GuardrailDecision() (GuardrailVerdict, string) {
	step, ok := v.Steps[StepGuardrail]
	if !ok || step.Status != StepCompleted || step.Result == nil || step.Result.Guardrail == nil {
		return GuardrailReject, "guardrail check did not complete"
	}
	return step.Result.Guardrail.Decision, step.Result.Guardrail.Feedback
}
