// Package evaluator implements the evaluator framework: a small scoring
// interface, a combining aggregator, and the scoring-band and
// reasoning-trail conventions. Rule weights for any concrete evaluator
// are implementation choices, not part of this contract.
package evaluator

import (
	"strconv"

	"github.com/swccgarena/gemp-bot/internal/decision"
)

// EvaluatedAction is one scored candidate response to a decision.
type EvaluatedAction struct {
	ActionID  string
	Score     float64
	Reasoning string
}

// Evaluator is a pure scoring function over a decision context.
type Evaluator interface {
	// CanEvaluate reports whether this evaluator has anything to say about
	// the given context. Evaluators that return false from CanEvaluate
	// must not be asked to Evaluate.
	CanEvaluate(ctx decision.Context) bool
	// Evaluate returns every candidate action this evaluator scores for
	// the context. Evaluators must attach reasoning whenever they modify
	// a score.
	Evaluate(ctx decision.Context) []EvaluatedAction
}

// CombinedEvaluator collects actions from every applicable Evaluator and
// picks the highest-scoring one, breaking ties by evaluator order then by
// option index.
type CombinedEvaluator struct {
	Evaluators []Evaluator
}

// Best returns the highest-scoring EvaluatedAction across every applicable
// evaluator, or false if none produced a candidate.
func (c *CombinedEvaluator) Best(ctx decision.Context) (EvaluatedAction, bool) {
	var best EvaluatedAction
	found := false

	for _, ev := range c.Evaluators {
		if !ev.CanEvaluate(ctx) {
			continue
		}
		for _, action := range ev.Evaluate(ctx) {
			if !found || action.Score > best.Score {
				best = action
				found = true
			}
		}
	}
	return best, found
}

// All returns every candidate action from every applicable evaluator, in
// evaluator order, for callers that want the full ranked set (e.g. admin
// display) rather than just the winner.
func (c *CombinedEvaluator) All(ctx decision.Context) []EvaluatedAction {
	var all []EvaluatedAction
	for _, ev := range c.Evaluators {
		if !ev.CanEvaluate(ctx) {
			continue
		}
		all = append(all, ev.Evaluate(ctx)...)
	}
	return all
}

// Reason appends a "<factor>: ±<delta>" entry to a reasoning trail,
// following the framework's reasoning discipline.
func Reason(trail string, factor string, delta float64) string {
	entry := formatFactor(factor, delta)
	if trail == "" {
		return entry
	}
	return trail + "; " + entry
}

func formatFactor(factor string, delta float64) string {
	sign := "+"
	if delta < 0 {
		sign = ""
	}
	return factor + ": " + sign + strconv.FormatFloat(delta, 'g', -1, 64)
}
