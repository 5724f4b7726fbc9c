package conversation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInterpretConfirmation(t *testing.T) {
	affirmatives := []string{"yes", "y", "execute", "run", "ok", "sure", "proceed", "YES", "  Yes  "}
	for _, reply := range affirmatives {
		assert.Equal(t, ConfirmationAffirmative, InterpretConfirmation(reply), "reply: %q", reply)
	}

	negatives := []string{"no", "n", "cancel", "stop", "abort", "don't", "dont", "No", " NO "}
	for _, reply := range negatives {
		assert.Equal(t, ConfirmationNegative, InterpretConfirmation(reply), "reply: %q", reply)
	}

	ambiguous := []string{"", "maybe", "yes please", "run it now", "why?", "noo"}
	for _, reply := range ambiguous {
		assert.Equal(t, ConfirmationAmbiguous, InterpretConfirmation(reply), "reply: %q", reply)
	}
}
