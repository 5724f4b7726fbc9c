package validation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/sageql/sage/pkg/infrastructure/metrics"
	"github.com/sageql/sage/pkg/models"
)

const defaultStepTimeout = 30 * time.Second

// Request carries everything the orchestrator needs for one run.
type Request struct {
	UserQuery   string
	SQL         string
	SchemaText  string
	ContextText string
	UserType    models.UserType
}

// Orchestrator coordinates the validation pipeline: it scores
// complexity, dispatches checks per the chosen strategy, and aggregates
// every step into a unified verdict. It never panics to the caller.
type Orchestrator struct {
	schema      SchemaValidator
	injection   InjectionDetector
	query       QueryValidator
	guardrail   Guardrail
	stepTimeout time.Duration
	metrics     metrics.Collector
	logger      zerolog.Logger
}

// NewOrchestrator creates a validation orchestrator.
func NewOrchestrator(
	schema SchemaValidator,
	injection InjectionDetector,
	query QueryValidator,
	guardrail Guardrail,
	stepTimeout time.Duration,
	collector metrics.Collector,
	logger zerolog.Logger,
) *Orchestrator {
	if stepTimeout <= 0 {
		stepTimeout = defaultStepTimeout
	}
	if collector == nil {
		collector = metrics.NewNoOpCollector()
	}
	return &Orchestrator{
		schema:      schema,
		injection:   injection,
		query:       query,
		guardrail:   guardrail,
		stepTimeout: stepTimeout,
		metrics:     collector,
		logger:      logger,
	}
}

// Orchestrate validates a SQL candidate and returns the aggregated
// verdict. This is the outermost safety net: any internal panic becomes
// a safe invalid verdict, never an error to the caller.
func (o *Orchestrator) Orchestrate(ctx context.Context, req Request) (verdict *models.Verdict) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			o.logger.Error().Interface("panic", r).Msg("Validation orchestrator panicked")
			verdict = &models.Verdict{
				IsValid:         false,
				Errors:          []string{fmt.Sprintf("Validation orchestrator error: %v", r)},
				Recommendations: []string{"Check system configuration and try again"},
				Complexity:      models.ComplexityUnknown,
				Strategy:        models.StrategySequential,
				Steps:           map[string]models.ValidationStep{},
				Metrics: models.PerformanceMetrics{
					TotalTime: time.Since(start),
				},
			}
		}
	}()

	analysis := AnalyzeComplexity(req.UserQuery, req.SQL)

	o.logger.Info().
		Str("complexity", string(analysis.Complexity)).
		Str("strategy", string(analysis.Strategy)).
		Int("score", analysis.Score).
		Msg("Validation strategy selected")

	var steps map[string]models.ValidationStep
	switch analysis.Strategy {
	case models.StrategyParallel:
		steps = o.runParallel(ctx, req)
	case models.StrategyMinimal:
		steps = o.runMinimal(ctx, req)
	default:
		steps = o.runSequential(ctx, req)
	}

	verdict = o.aggregate(steps)
	verdict.Complexity = analysis.Complexity
	verdict.Strategy = analysis.Strategy
	verdict.Metrics = models.PerformanceMetrics{
		TotalTime:      time.Since(start),
		StepsCompleted: len(steps),
		ParallelSteps:  countParallel(steps),
	}

	o.metrics.IncrementCounter("validation_runs_total", "strategy", string(analysis.Strategy))
	o.metrics.RecordHistogram("validation_duration_seconds", verdict.Metrics.TotalTime.Seconds(), "strategy", string(analysis.Strategy))
	if !verdict.IsValid {
		o.metrics.IncrementCounter("validation_failures_total", "complexity", string(analysis.Complexity))
	}

	return verdict
}

// runStep executes one check with its own timeout and converts errors
// into failed-step records.
func (o *Orchestrator) runStep(ctx context.Context, name string, parallel bool, fn func(context.Context) (*models.StepResult, error)) models.ValidationStep {
	stepCtx, cancel := context.WithTimeout(ctx, o.stepTimeout)
	defer cancel()

	result, err := fn(stepCtx)
	if err != nil {
		o.logger.Error().Err(err).Str("step", name).Msg("Validation step failed")
		return models.ValidationStep{
			Name:     name,
			Status:   models.StepFailed,
			Err:      err.Error(),
			Parallel: parallel,
		}
	}
	return models.ValidationStep{
		Name:     name,
		Status:   models.StepCompleted,
		Result:   result,
		Parallel: parallel,
	}
}

func (o *Orchestrator) schemaStep(ctx context.Context, req Request, parallel bool) models.ValidationStep {
	return o.runStep(ctx, models.StepSchemaValidation, parallel, func(ctx context.Context) (*models.StepResult, error) {
		res, err := o.schema.Validate(ctx, req.SQL, req.SchemaText, req.UserQuery)
		if err != nil {
			return nil, err
		}
		return &models.StepResult{Schema: res}, nil
	})
}

func (o *Orchestrator) injectionStep(ctx context.Context, req Request, parallel bool) models.ValidationStep {
	return o.runStep(ctx, models.StepInjectionDetection, parallel, func(ctx context.Context) (*models.StepResult, error) {
		res, err := o.injection.Detect(ctx, req.SQL, req.UserType)
		if err != nil {
			return nil, err
		}
		return &models.StepResult{Injection: res}, nil
	})
}

func (o *Orchestrator) queryStep(ctx context.Context, req Request, parallel bool) models.ValidationStep {
	return o.runStep(ctx, models.StepQueryValidation, parallel, func(ctx context.Context) (*models.StepResult, error) {
		res, err := o.query.Validate(ctx, req.UserQuery, req.SchemaText, req.ContextText, req.SQL)
		if err != nil {
			return nil, err
		}
		return &models.StepResult{Semantic: res}, nil
	})
}

func (o *Orchestrator) guardrailStep(ctx context.Context, req Request) models.ValidationStep {
	return o.runStep(ctx, models.StepGuardrail, false, func(ctx context.Context) (*models.StepResult, error) {
		res, err := o.guardrail.Classify(ctx, req.SQL, req.UserType)
		if err != nil {
			return nil, err
		}
		return &models.StepResult{Guardrail: res}, nil
	})
}

// runParallel launches the three independent checks concurrently, then
// runs the guardrail after they all resolve. The guardrail stays out of
// the parallel batch so its position in the audit trail is consistent.
func (o *Orchestrator) runParallel(ctx context.Context, req Request) map[string]models.ValidationStep {
	steps := make(map[string]models.ValidationStep, 4)
	var mu sync.Mutex
	var wg sync.WaitGroup

	tasks := []func() models.ValidationStep{
		func() models.ValidationStep { return o.schemaStep(ctx, req, true) },
		func() models.ValidationStep { return o.injectionStep(ctx, req, true) },
		func() models.ValidationStep { return o.queryStep(ctx, req, true) },
	}

	wg.Add(len(tasks))
	for _, task := range tasks {
		go func(run func() models.ValidationStep) {
			defer wg.Done()
			step := run()
			mu.Lock()
			steps[step.Name] = step
			mu.Unlock()
		}(task)
	}
	wg.Wait()

	guardrail := o.guardrailStep(ctx, req)
	steps[guardrail.Name] = guardrail
	return steps
}

// runSequential runs checks in priority order with early exit: a schema
// negative or an injection positive stops the run before further oracle
// calls are spent.
func (o *Orchestrator) runSequential(ctx context.Context, req Request) map[string]models.ValidationStep {
	steps := make(map[string]models.ValidationStep, 4)

	schema := o.schemaStep(ctx, req, false)
	steps[schema.Name] = schema
	if schema.Status == models.StepFailed {
		return steps
	}
	if schema.Result != nil && schema.Result.Schema != nil && !schema.Result.Schema.IsValid {
		o.logger.Info().Msg("Schema validation negative, skipping remaining validations")
		return steps
	}

	injection := o.injectionStep(ctx, req, false)
	steps[injection.Name] = injection
	if injection.Status == models.StepFailed {
		return steps
	}
	if injection.Result != nil && injection.Result.Injection != nil && injection.Result.Injection.IsInjection {
		o.logger.Info().Msg("Injection detected, skipping remaining validations")
		return steps
	}

	query := o.queryStep(ctx, req, false)
	steps[query.Name] = query

	guardrail := o.guardrailStep(ctx, req)
	steps[guardrail.Name] = guardrail
	return steps
}

// runMinimal runs only injection detection and the guardrail.
func (o *Orchestrator) runMinimal(ctx context.Context, req Request) map[string]models.ValidationStep {
	steps := make(map[string]models.ValidationStep, 2)

	injection := o.injectionStep(ctx, req, false)
	steps[injection.Name] = injection
	if injection.Result != nil && injection.Result.Injection != nil && injection.Result.Injection.IsInjection {
		o.logger.Info().Msg("Injection detected in minimal validation")
		return steps
	}

	guardrail := o.guardrailStep(ctx, req)
	steps[guardrail.Name] = guardrail
	return steps
}

// aggregate folds every step's status and result into the unified
// verdict per the validator-specific interpretation rules.
func (o *Orchestrator) aggregate(steps map[string]models.ValidationStep) *models.Verdict {
	verdict := &models.Verdict{
		IsValid: true,
		Steps:   steps,
	}

	for name, step := range steps {
		if step.Status == models.StepFailed {
			verdict.Errors = append(verdict.Errors, fmt.Sprintf("%s: %s", name, step.Err))
			verdict.IsValid = false
			continue
		}
		if step.Result == nil {
			continue
		}

		switch name {
		case models.StepSchemaValidation:
			res := step.Result.Schema
			if res == nil {
				continue
			}
			if !res.IsValid {
				verdict.Errors = append(verdict.Errors, res.Issues...)
				verdict.IsValid = false
			} else {
				verdict.Recommendations = append(verdict.Recommendations, res.Suggestions...)
			}

		case models.StepInjectionDetection:
			res := step.Result.Injection
			if res == nil {
				continue
			}
			if res.IsInjection {
				verdict.Errors = append(verdict.Errors, "SQL injection detected: "+res.Reason)
				verdict.IsValid = false
			} else if res.Confidence == ConfidenceLow {
				verdict.Warnings = append(verdict.Warnings, "Low confidence in SQL injection detection")
			}

		case models.StepQueryValidation:
			res := step.Result.Semantic
			if res == nil {
				continue
			}
			if !res.IsCorrect {
				verdict.Errors = append(verdict.Errors, "Query validation failed: "+res.Explanation)
				verdict.IsValid = false
			} else {
				verdict.Recommendations = append(verdict.Recommendations, res.Suggestions...)
			}

		case models.StepGuardrail:
			res := step.Result.Guardrail
			if res == nil {
				continue
			}
			switch res.Decision {
			case models.GuardrailReject:
				verdict.Errors = append(verdict.Errors, "Guardrail rejected: "+res.Feedback)
				verdict.IsValid = false
			case models.GuardrailHumanVerification:
				verdict.Warnings = append(verdict.Warnings, "Guardrail review required: "+res.Feedback)
			}
		}
	}

	return verdict
}

func countParallel(steps map[string]models.ValidationStep) int {
	n := 0
	for _, step := range steps {
		if step.Parallel {
			n++
		}
	}
	return n
}
