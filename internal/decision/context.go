package decision

import "github.com/swccgarena/gemp-bot/internal/board"

// History accumulates running, read-only counters across a single game,
// used by evaluators for light opponent-modeling.
type History struct {
	DecisionsSeen        int
	CardsOpponentDeployed int
	LocationsContested    map[int]int // location_index -> times both sides had cards present
}

// NewHistory returns a zero-value History ready for use.
func NewHistory() *History {
	return &History{LocationsContested: make(map[int]int)}
}

// RecordDecision increments the decision counter. Called once per decision
// seen by the pipeline.
func (h *History) RecordDecision() { h.DecisionsSeen++ }

// Context is the read-only view handed to a Brain for one decision.
type Context struct {
	Board   *board.BoardState
	Request Request
	History *History
}
