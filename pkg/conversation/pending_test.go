package conversation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sageql/sage/pkg/models"
)

func assistantMsg(d models.Decision) models.Message {
	return models.Message{Role: models.RoleAssistant, Content: d.Encode()}
}

func userMsg(content string) models.Message {
	return models.Message{Role: models.RoleUser, Content: content}
}

func TestDerivePending(t *testing.T) {
	verification := models.HumanVerificationDecision(
		"DELETE FROM orders", "delete all orders", "DELETE requires confirmation", "Execute?")
	clarification := models.ClarificationDecision(
		"show me stuff", "Too vague", "Which data?")
	regeneration := models.RegenerationDecision(
		"SELECT * FROM custmers", "show customers", "table custmers not found", "Fixing it", "", nil)

	tests := []struct {
		name    string
		history []models.Message
		kind    models.PendingKind
		sql     string
	}{
		{
			name:    "empty history",
			history: nil,
			kind:    models.PendingNone,
		},
		{
			name:    "only user messages",
			history: []models.Message{userMsg("show customers")},
			kind:    models.PendingNone,
		},
		{
			name: "pending confirmation",
			history: []models.Message{
				userMsg("delete all orders"),
				assistantMsg(verification),
			},
			kind: models.PendingConfirmation,
			sql:  "DELETE FROM orders",
		},
		{
			name: "pending clarification carries no sql",
			history: []models.Message{
				userMsg("show me stuff"),
				assistantMsg(clarification),
			},
			kind: models.PendingClarification,
		},
		{
			name: "pending regeneration",
			history: []models.Message{
				userMsg("show customers"),
				assistantMsg(regeneration),
			},
			kind: models.PendingRegeneration,
			sql:  "SELECT * FROM custmers",
		},
		{
			name: "terminal decision clears pending",
			history: []models.Message{
				userMsg("delete all orders"),
				assistantMsg(verification),
				userMsg("no"),
				assistantMsg(models.CancelledDecision("DELETE FROM orders")),
			},
			kind: models.PendingNone,
		},
		{
			name: "latest assistant message wins",
			history: []models.Message{
				assistantMsg(verification),
				userMsg("something else"),
				assistantMsg(clarification),
			},
			kind: models.PendingClarification,
		},
		{
			name: "non-decision assistant content means none",
			history: []models.Message{
				assistantMsg(verification),
				models.Message{Role: models.RoleAssistant, Content: "plain text reply"},
			},
			kind: models.PendingNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pending := DerivePending(tt.history)
			assert.Equal(t, tt.kind, pending.Kind)
			assert.Equal(t, tt.sql, pending.SQL)
		})
	}
}

func TestDerivePending_VerificationWithoutSQLIsNone(t *testing.T) {
	d := models.Decision{Kind: models.DecisionHumanVerification, SQL: ""}
	pending := DerivePending([]models.Message{assistantMsg(d)})
	assert.Equal(t, models.PendingNone, pending.Kind)
}
