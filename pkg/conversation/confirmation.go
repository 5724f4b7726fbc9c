package conversation

import "strings"

// ConfirmationOutcome is the interpretation of a user reply to a pending
// human-verification decision.
type ConfirmationOutcome int

const (
	ConfirmationAmbiguous ConfirmationOutcome = iota
	ConfirmationAffirmative
	ConfirmationNegative
)

var affirmativeReplies = map[string]bool{
	"yes": true, "y": true, "execute": true, "run": true,
	"ok": true, "sure": true, "proceed": true,
}

var negativeReplies = map[string]bool{
	"no": true, "n": true, "cancel": true, "stop": true,
	"abort": true, "don't": true, "dont": true,
}

// InterpretConfirmation normalizes a user reply. Anything outside the
// two recognized sets is ambiguous and must re-prompt, never execute.
func InterpretConfirmation(reply string) ConfirmationOutcome {
	normalized := strings.ToLower(strings.TrimSpace(reply))
	if affirmativeReplies[normalized] {
		return ConfirmationAffirmative
	}
	if negativeReplies[normalized] {
		return ConfirmationNegative
	}
	return ConfirmationAmbiguous
}
