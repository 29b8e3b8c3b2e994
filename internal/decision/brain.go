package decision

import (
	"strings"

	"github.com/swccgarena/gemp-bot/internal/board"
)

// Brain is the pluggable decision-making contract. The core owns zero
// brain logic; it owns only this contract and the safety net around it
// (Pipeline).
type Brain interface {
	MakeDecision(ctx Context) Decision
	OnGameStart(mySide, myPlayerName, opponentName string)
	OnGameEnd(won bool, final *board.BoardState)
	GetPersonalityName() string
}

// strings that mark an option as the "pass" or "cancel" choice. Matching is
// a case-insensitive substring check against the option id or display
// text, since the server does not distinguish pass/cancel options with a
// dedicated field.
var passMarkers = []string{"pass", "cancel"}

// IsPassOption reports whether o represents a pass/cancel choice.
func IsPassOption(o Option) bool {
	return containsAnyFold(o.OptionID, passMarkers) || containsAnyFold(o.DisplayText, passMarkers)
}

func containsAnyFold(s string, markers []string) bool {
	lower := strings.ToLower(s)
	for _, m := range markers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}
