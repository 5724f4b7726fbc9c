package models

import "encoding/json"

// DecisionKind is the terminal classification attached to a SQL candidate
// after validation and, optionally, execution.
type DecisionKind string

const (
	DecisionAccept              DecisionKind = "accept"
	DecisionReject              DecisionKind = "reject"
	DecisionHumanVerification   DecisionKind = "human_verification"
	DecisionClarificationNeeded DecisionKind = "clarification_needed"
	DecisionRegenerationRequest DecisionKind = "regeneration_request"
	DecisionExecutedAfterVerify DecisionKind = "executed_after_verification"
	DecisionCancelledByUser     DecisionKind = "cancelled_by_user"
	DecisionExecutionFailed     DecisionKind = "execution_failed"
)

// Row is one result record, column name to value, preserving the engine's
// column ordering in the Columns slice of the carrying decision.
type Row map[string]any

// Decision is the terminal conversational outcome for one turn. The Kind
// discriminates which fields are meaningful; constructors below are the only
// intended way to build one.
//
// Invariant: HumanVerification and RegenerationRequest decisions carry the
// pending SQL (possibly empty for pure clarification) so a later user reply
// can be matched back to it.
type Decision struct {
	Kind     DecisionKind `json:"type"`
	SQL      string       `json:"sql"`
	Feedback string       `json:"feedback,omitempty"`
	Message  string       `json:"message,omitempty"`

	// Verification / clarification state.
	RequiresClarification bool   `json:"requires_clarification,omitempty"`
	OriginalQuery         string `json:"original_query,omitempty"`

	// Execution results, present on accept / executed_after_verification.
	RowCount int   `json:"row_count,omitempty"`
	Rows     []Row `json:"rows,omitempty"`

	// Diagnostic detail kept separate from the user-facing message.
	TechnicalDetails string   `json:"technical_details,omitempty"`
	SuggestedFixes   []string `json:"suggested_fixes,omitempty"`
}

// AcceptDecision builds the terminal decision for an executed query.
func AcceptDecision(sql, feedback string, rows []Row) Decision {
	return Decision{
		Kind:     DecisionAccept,
		SQL:      sql,
		Feedback: feedback,
		RowCount: len(rows),
		Rows:     rows,
	}
}

// RejectDecision builds a terminal rejection with user-facing feedback.
func RejectDecision(sql, feedback string) Decision {
	return Decision{Kind: DecisionReject, SQL: sql, Feedback: feedback}
}

// HumanVerificationDecision builds the pending-confirmation decision. The SQL
// must be the exact statement that will run on an affirmative reply.
func HumanVerificationDecision(sql, originalQuery, feedback, message string) Decision {
	return Decision{
		Kind:          DecisionHumanVerification,
		SQL:           sql,
		OriginalQuery: originalQuery,
		Feedback:      feedback,
		Message:       message,
	}
}

// ClarificationDecision builds the pending-clarification decision. It carries
// no SQL: a yes/no-shaped reply to it must never execute anything.
func ClarificationDecision(originalQuery, feedback, message string) Decision {
	return Decision{
		Kind:                  DecisionClarificationNeeded,
		OriginalQuery:         originalQuery,
		Feedback:              feedback,
		Message:               message,
		RequiresClarification: true,
	}
}

// RegenerationDecision builds the decision emitted when a structural
// execution failure warrants another generation attempt.
func RegenerationDecision(sql, originalQuery, feedback, message, technical string, fixes []string) Decision {
	return Decision{
		Kind:             DecisionRegenerationRequest,
		SQL:              sql,
		OriginalQuery:    originalQuery,
		Feedback:         feedback,
		Message:          message,
		TechnicalDetails: technical,
		SuggestedFixes:   fixes,
	}
}

// ExecutedDecision builds the terminal decision after a confirmed execution.
func ExecutedDecision(sql string, rows []Row) Decision {
	return Decision{
		Kind:     DecisionExecutedAfterVerify,
		SQL:      sql,
		Feedback: "Query executed after user confirmation.",
		RowCount: len(rows),
		Rows:     rows,
	}
}

// CancelledDecision builds the terminal decision for a declined execution.
func CancelledDecision(sql string) Decision {
	return Decision{
		Kind:     DecisionCancelledByUser,
		SQL:      sql,
		Feedback: "Query execution cancelled by user.",
	}
}

// ExecutionFailedDecision builds the terminal decision for a non-recoverable
// runtime failure. The raw engine error belongs in technical, not feedback.
func ExecutionFailedDecision(sql, feedback, technical string) Decision {
	return Decision{
		Kind:             DecisionExecutionFailed,
		SQL:              sql,
		Feedback:         feedback,
		TechnicalDetails: technical,
	}
}

// ParseDecision attempts to decode an assistant message body as a Decision
// payload. The second return is false when the content is not one.
func ParseDecision(content string) (Decision, bool) {
	var d Decision
	if err := json.Unmarshal([]byte(content), &d); err != nil {
		return Decision{}, false
	}
	switch d.Kind {
	case DecisionAccept, DecisionReject, DecisionHumanVerification,
		DecisionClarificationNeeded, DecisionRegenerationRequest,
		DecisionExecutedAfterVerify, DecisionCancelledByUser, DecisionExecutionFailed:
		return d, true
	default:
		return Decision{}, false
	}
}

// Encode renders the decision as its JSON payload for history storage.
func (d Decision) Encode() string {
	b, err := json.Marshal(d)
	if err != nil {
		return `{"type":"reject","sql":"","feedback":"internal encoding error"}`
	}
	return string(b)
}
