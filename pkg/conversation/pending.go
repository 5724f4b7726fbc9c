package conversation

import (
	"github.com/sageql/sage/pkg/models"
)

// DerivePending computes the session's pending state from history by
// scanning backward for the most recent assistant message. Only a
// message that parses as a Decision payload can leave the session
// pending; anything else means a fresh request.
func DerivePending(history []models.Message) models.PendingState {
	for i := len(history) - 1; i >= 0; i-- {
		msg := history[i]
		if msg.Role != models.RoleAssistant || msg.Content == "" {
			continue
		}

		decision, ok := models.ParseDecision(msg.Content)
		if !ok {
			return models.PendingState{Kind: models.PendingNone}
		}

		switch decision.Kind {
		case models.DecisionHumanVerification:
			if decision.SQL == "" {
				return models.PendingState{Kind: models.PendingNone}
			}
			return models.PendingState{
				Kind:          models.PendingConfirmation,
				SQL:           decision.SQL,
				Feedback:      decision.Feedback,
				OriginalQuery: decision.OriginalQuery,
			}
		case models.DecisionClarificationNeeded:
			return models.PendingState{
				Kind:          models.PendingClarification,
				Feedback:      decision.Feedback,
				OriginalQuery: decision.OriginalQuery,
			}
		case models.DecisionRegenerationRequest:
			return models.PendingState{
				Kind:          models.PendingRegeneration,
				SQL:           decision.SQL,
				Feedback:      decision.Feedback,
				OriginalQuery: decision.OriginalQuery,
			}
		default:
			return models.PendingState{Kind: models.PendingNone}
		}
	}
	return models.PendingState{Kind: models.PendingNone}
}
