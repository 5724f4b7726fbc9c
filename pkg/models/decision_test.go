package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDecision_RoundTrip(t *testing.T) {
	decisions := []Decision{
		AcceptDecision("SELECT 1", "ok", []Row{{"n": 1}}),
		RejectDecision("DROP TABLE t", "not allowed"),
		HumanVerificationDecision("DELETE FROM t", "delete everything", "risky", "confirm?"),
		ClarificationDecision("show stuff", "too vague", "which stuff?"),
		RegenerationDecision("SELECT * FROM ordrs", "orders", "table not found", "retrying", "Catalog Error", []string{"check names"}),
		ExecutedDecision("DELETE FROM t WHERE id = 1", nil),
		CancelledDecision("DELETE FROM t"),
		ExecutionFailedDecision("SELECT 1/0", "division by zero", "engine trace"),
	}

	for _, d := range decisions {
		t.Run(string(d.Kind), func(t *testing.T) {
			parsed, ok := ParseDecision(d.Encode())
			require.True(t, ok)
			assert.Equal(t, d.Kind, parsed.Kind)
			assert.Equal(t, d.SQL, parsed.SQL)
			assert.Equal(t, d.Feedback, parsed.Feedback)
		})
	}
}

func TestParseDecision_RejectsNonDecisions(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"plain text", "I'll look into that for you."},
		{"empty string", ""},
		{"json without kind", `{"sql":"SELECT 1"}`},
		{"unknown kind", `{"type":"shrug","sql":""}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := ParseDecision(tt.content)
			assert.False(t, ok)
		})
	}
}

func TestClarificationDecisionCarriesNoSQL(t *testing.T) {
	d := ClarificationDecision("show stuff", "too vague", "which stuff?")
	assert.Empty(t, d.SQL)
	assert.True(t, d.RequiresClarification)
	assert.Equal(t, "show stuff", d.OriginalQuery)
}
