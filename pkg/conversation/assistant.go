package conversation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/sageql/sage/pkg/analyzer"
	"github.com/sageql/sage/pkg/generator"
	"github.com/sageql/sage/pkg/infrastructure/metrics"
	"github.com/sageql/sage/pkg/models"
	"github.com/sageql/sage/pkg/repositories"
	"github.com/sageql/sage/pkg/validation"
)

// Config tunes the assistant's per-turn behavior.
type Config struct {
	// MaxRegenerationAttempts bounds the in-turn regeneration loop.
	MaxRegenerationAttempts int
	// FreshContextResults is the retrieval depth for new requests.
	FreshContextResults int
	// ClarificationContextResults is the retrieval depth for clarification
	// and regeneration follow-ups.
	ClarificationContextResults int
	// HistoryWindow is how many trailing messages feed the prompt as
	// previous-chat context.
	HistoryWindow int
}

// DefaultConfig returns the assistant defaults.
func DefaultConfig() Config {
	return Config{
		MaxRegenerationAttempts:     generator.DefaultMaxRegenerationAttempts,
		FreshContextResults:         5,
		ClarificationContextResults: 3,
		HistoryWindow:               10,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxRegenerationAttempts <= 0 {
		c.MaxRegenerationAttempts = d.MaxRegenerationAttempts
	}
	if c.FreshContextResults <= 0 {
		c.FreshContextResults = d.FreshContextResults
	}
	if c.ClarificationContextResults <= 0 {
		c.ClarificationContextResults = d.ClarificationContextResults
	}
	if c.HistoryWindow <= 0 {
		c.HistoryWindow = d.HistoryWindow
	}
	return c
}

// Assistant drives one conversational turn: it derives the session's
// pending state, routes the user message through confirmation,
// clarification, regeneration, or fresh generation, and appends the
// resulting decision to history.
type Assistant struct {
	store        Store
	retriever    repositories.ContextRetriever
	generator    generator.Generator
	orchestrator *validation.Orchestrator
	analyzer     analyzer.ExecutionAnalyzer
	queries      repositories.QueryRepository
	metrics      metrics.Collector
	logger       zerolog.Logger
	cfg          Config
}

// NewAssistant wires the conversational pipeline.
func NewAssistant(
	store Store,
	retriever repositories.ContextRetriever,
	gen generator.Generator,
	orchestrator *validation.Orchestrator,
	failureAnalyzer analyzer.ExecutionAnalyzer,
	queries repositories.QueryRepository,
	collector metrics.Collector,
	logger zerolog.Logger,
	cfg Config,
) *Assistant {
	if collector == nil {
		collector = metrics.NewNoOpCollector()
	}
	return &Assistant{
		store:        store,
		retriever:    retriever,
		generator:    gen,
		orchestrator: orchestrator,
		analyzer:     failureAnalyzer,
		queries:      queries,
		metrics:      collector,
		logger:       logger,
		cfg:          cfg.withDefaults(),
	}
}

// HandleMessage processes one user message for a session and returns the
// turn's decision. The decision is also appended to session history so
// the next turn can derive pending state from it.
func (a *Assistant) HandleMessage(ctx context.Context, sessionID, content string) (models.Decision, error) {
	start := time.Now()

	meta, err := a.store.Metadata(sessionID)
	if err != nil {
		return models.Decision{}, err
	}

	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		// Rejected before any oracle or database work.
		decision := models.RejectDecision("", "Empty request")
		a.appendDecision(sessionID, decision)
		return decision, nil
	}

	if err := a.store.Append(sessionID, models.Message{
		Role:    models.RoleUser,
		Content: content,
	}); err != nil {
		return models.Decision{}, err
	}

	history, err := a.store.Get(sessionID)
	if err != nil {
		return models.Decision{}, err
	}
	pending := DerivePending(history[:len(history)-1])

	logger := a.logger.With().
		Str("session_id", sessionID).
		Str("user_type", string(meta.UserType)).
		Logger()

	var decision models.Decision
	switch pending.Kind {
	case models.PendingConfirmation:
		logger.Info().Msg("Handling confirmation reply")
		decision = a.handleConfirmation(ctx, pending, trimmed)
	case models.PendingClarification:
		logger.Info().Msg("Handling clarification reply")
		enhanced := fmt.Sprintf("%s. Additional clarification: %s", pending.OriginalQuery, trimmed)
		decision = a.processRequest(ctx, meta, history, enhanced, a.cfg.ClarificationContextResults)
	case models.PendingRegeneration:
		logger.Info().Msg("Continuing regeneration after execution failure")
		decision = a.continueRegeneration(ctx, meta, history, pending)
	default:
		logger.Info().Msg("Handling fresh request")
		decision = a.processRequest(ctx, meta, history, trimmed, a.cfg.FreshContextResults)
	}

	a.appendDecision(sessionID, decision)

	a.metrics.IncrementCounter("assistant_turns_total", "decision", string(decision.Kind))
	a.metrics.RecordHistogram("assistant_turn_duration_seconds", time.Since(start).Seconds())

	return decision, nil
}

// processRequest runs the full pipeline for a natural language request:
// context retrieval, generation, then validate-execute with bounded
// regeneration.
func (a *Assistant) processRequest(ctx context.Context, meta *models.SessionMetadata, history []models.Message, query string, nResults int) models.Decision {
	bundle := a.retriever.FetchContext(ctx, query, nResults)
	previousChat := renderHistory(history, a.cfg.HistoryWindow)

	result, err := a.generator.Generate(ctx, generator.Input{
		Query:        query,
		ContextText:  bundle.ContextText,
		SchemaText:   bundle.SchemaText,
		PreviousChat: previousChat,
		UserType:     meta.UserType,
	})
	if err != nil {
		a.logger.Error().Err(err).Msg("SQL generation failed")
		return models.RejectDecision("", "Failed to generate SQL query")
	}
	if result.TooVague {
		return a.clarificationDecision(query)
	}

	return a.validateAndExecute(ctx, meta, query, bundle, previousChat, result.SQL, 0)
}

// continueRegeneration picks up a turn that ended with a structural
// execution failure: regenerate from the stored feedback and run the
// pipeline on the corrected candidate.
func (a *Assistant) continueRegeneration(ctx context.Context, meta *models.SessionMetadata, history []models.Message, pending models.PendingState) models.Decision {
	bundle := a.retriever.FetchContext(ctx, pending.OriginalQuery, a.cfg.ClarificationContextResults)
	previousChat := renderHistory(history, a.cfg.HistoryWindow)

	result, err := a.generator.Regenerate(ctx, generator.RegenerationInput{
		Input: generator.Input{
			Query:        pending.OriginalQuery,
			ContextText:  bundle.ContextText,
			SchemaText:   bundle.SchemaText,
			PreviousChat: previousChat,
			UserType:     meta.UserType,
		},
		FailedSQL:     pending.SQL,
		FailureReason: pending.Feedback,
		FailureKind:   generator.FailureKindExecution,
	})
	if err != nil {
		a.logger.Error().Err(err).Msg("SQL regeneration failed")
		return models.RejectDecision(pending.SQL, "Failed to regenerate SQL query")
	}
	if result.TooVague {
		return a.clarificationDecision(pending.OriginalQuery)
	}

	return a.validateAndExecute(ctx, meta, pending.OriginalQuery, bundle, previousChat, result.SQL, 1)
}

// validateAndExecute validates a candidate and carries it to a terminal
// decision, regenerating within the attempt bound on validation failures
// and structural execution failures.
func (a *Assistant) validateAndExecute(ctx context.Context, meta *models.SessionMetadata, originalQuery string, bundle models.ContextBundle, previousChat, sql string, attempts int) models.Decision {
	for {
		verdict := a.orchestrator.Orchestrate(ctx, validation.Request{
			UserQuery:   originalQuery,
			SQL:         sql,
			SchemaText:  bundle.SchemaText,
			ContextText: bundle.ContextText,
			UserType:    meta.UserType,
		})

		if !verdict.IsValid {
			reason := strings.Join(verdict.Errors, "; ")
			if attempts >= a.cfg.MaxRegenerationAttempts {
				return models.RejectDecision(sql,
					"Unable to produce a valid query after multiple attempts. Last validation failure: "+reason)
			}
			regenerated, ok := a.regenerate(ctx, meta, originalQuery, bundle, previousChat, sql, reason, generator.FailureKindValidation)
			if !ok {
				return models.RejectDecision(sql, "Regenerated SQL failed validation: "+reason)
			}
			if regenerated.TooVague {
				return a.clarificationDecision(originalQuery)
			}
			sql = regenerated.SQL
			attempts++
			continue
		}

		guardrailDecision, feedback := verdict.GuardrailDecision()
		switch guardrailDecision {
		case models.GuardrailAccept:
			queryResult, err := a.queries.Execute(ctx, sql)
			if err == nil {
				return models.AcceptDecision(sql,
					strings.TrimSpace("Successfully generated and executed query. "+feedback),
					queryResult.Rows)
			}

			analysis := a.analyzer.Analyze(ctx, sql, err.Error(), originalQuery, bundle.SchemaText)
			if analysis.ShouldRegenerate && analysis.FailureType == analyzer.FailureSQLStructure && attempts < a.cfg.MaxRegenerationAttempts {
				regenerated, ok := a.regenerate(ctx, meta, originalQuery, bundle, previousChat, sql, analysis.RegenerationFeedback, generator.FailureKindExecution)
				if ok && !regenerated.TooVague {
					sql = regenerated.SQL
					attempts++
					continue
				}
			}
			return models.ExecutionFailedDecision(sql, analysis.UserFriendlyMessage, analysis.TechnicalDetails)

		case models.GuardrailHumanVerification:
			message := fmt.Sprintf(
				"I've generated a SQL query for you. Would you like me to execute it?\n\nSQL Query:\n%s\n\n**Reasoning:** %s\n\nPlease respond with \"yes\" to execute or \"no\" to cancel.",
				sql, feedback,
			)
			return models.HumanVerificationDecision(sql, originalQuery, feedback, message)

		default:
			return models.RejectDecision(sql, feedback)
		}
	}
}

// handleConfirmation resolves a yes/no reply against the pending SQL. The
// pending statement is executed verbatim on an affirmative reply and
// never altered.
func (a *Assistant) handleConfirmation(ctx context.Context, pending models.PendingState, reply string) models.Decision {
	switch InterpretConfirmation(reply) {
	case ConfirmationAffirmative:
		queryResult, err := a.queries.Execute(ctx, pending.SQL)
		if err == nil {
			return models.ExecutedDecision(pending.SQL, queryResult.Rows)
		}

		analysis := a.analyzer.Analyze(ctx, pending.SQL, err.Error(), pending.OriginalQuery, "")
		if analysis.ShouldRegenerate && analysis.FailureType == analyzer.FailureSQLStructure {
			message := fmt.Sprintf(
				"Query execution failed due to a structural issue. I'll try to fix it.\n\n**Error:** %s\n\n**Technical Details:** %s\n\nI'm regenerating the query with the following feedback: %s",
				analysis.UserFriendlyMessage, analysis.TechnicalDetails, analysis.RegenerationFeedback,
			)
			return models.RegenerationDecision(
				pending.SQL, pending.OriginalQuery,
				analysis.RegenerationFeedback, message,
				analysis.TechnicalDetails, analysis.SuggestedFixes,
			)
		}
		return models.ExecutionFailedDecision(pending.SQL,
			"Execution failed after confirmation: "+analysis.UserFriendlyMessage,
			analysis.TechnicalDetails)

	case ConfirmationNegative:
		return models.CancelledDecision(pending.SQL)

	default:
		feedback := fmt.Sprintf(
			"Please respond with 'yes' to execute or 'no' to cancel. Your response '%s' was not clear.",
			reply,
		)
		message := fmt.Sprintf(
			"I still need your confirmation.\n\nSQL Query:\n%s\n\n%s",
			pending.SQL, feedback,
		)
		return models.HumanVerificationDecision(pending.SQL, pending.OriginalQuery, feedback, message)
	}
}

func (a *Assistant) regenerate(ctx context.Context, meta *models.SessionMetadata, originalQuery string, bundle models.ContextBundle, previousChat, failedSQL, failureReason string, kind generator.FailureKind) (*generator.Result, bool) {
	result, err := a.generator.Regenerate(ctx, generator.RegenerationInput{
		Input: generator.Input{
			Query:        originalQuery,
			ContextText:  bundle.ContextText,
			SchemaText:   bundle.SchemaText,
			PreviousChat: previousChat,
			UserType:     meta.UserType,
		},
		FailedSQL:     failedSQL,
		FailureReason: failureReason,
		FailureKind:   kind,
	})
	if err != nil {
		a.logger.Error().Err(err).Str("failure_kind", string(kind)).Msg("SQL regeneration failed")
		return nil, false
	}
	a.metrics.IncrementCounter("sql_regenerations_total", "kind", string(kind))
	return result, true
}

func (a *Assistant) clarificationDecision(originalQuery string) models.Decision {
	feedback := "The request is too vague to answer with the available schema and context."
	message := "Could you clarify your request? Naming the data you are interested in, a table, or a time range helps me generate the right query."
	return models.ClarificationDecision(originalQuery, feedback, message)
}

func (a *Assistant) appendDecision(sessionID string, decision models.Decision) {
	if err := a.store.Append(sessionID, models.Message{
		Role:    models.RoleAssistant,
		Content: decision.Encode(),
	}); err != nil {
		a.logger.Error().Err(err).Str("session_id", sessionID).Msg("Failed to append decision to history")
	}
}

// renderHistory flattens the trailing window of messages into prompt
// context.
func renderHistory(history []models.Message, window int) string {
	if len(history) == 0 {
		return ""
	}
	start := len(history) - window
	if start < 0 {
		start = 0
	}
	var b strings.Builder
	for _, msg := range history[start:] {
		b.WriteString(string(msg.Role))
		b.WriteString(": ")
		b.WriteString(msg.Content)
		b.WriteString("\n")
	}
	return b.String()
}
