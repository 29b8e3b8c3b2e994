package static

import (
	"github.com/swccgarena/gemp-bot/internal/decision"
	"github.com/swccgarena/gemp-bot/internal/deploy"
	"github.com/swccgarena/gemp-bot/internal/evaluator"
)

// DeployEvaluator scores decision options against the in-flight deployment
// plan: it prefers whichever instruction the planner would have executed
// next, honoring the server's offer-based fallback and the deferred
// ship/pilot binding.
type DeployEvaluator struct {
	Plan *deploy.Plan
}

func (e *DeployEvaluator) CanEvaluate(ctx decision.Context) bool {
	return e.Plan != nil && e.Plan.Len() > 0 && hasCardOrLocationOptions(ctx.Request)
}

func (e *DeployEvaluator) Evaluate(ctx decision.Context) []evaluator.EvaluatedAction {
	offered := map[string]bool{}
	for _, o := range ctx.Request.SelectableOptions() {
		if o.Card != nil {
			offered[o.Card.BlueprintID] = true
		}
	}
	instr := e.Plan.NextEligible(offered)
	if instr == nil {
		return nil
	}

	var actions []evaluator.EvaluatedAction
	for _, o := range ctx.Request.SelectableOptions() {
		switch {
		case instr.AboardShipCardID != nil && o.Card != nil && o.Card.CardID == *instr.AboardShipCardID:
			actions = append(actions, evaluator.EvaluatedAction{
				ActionID:  o.OptionID,
				Score:     90,
				Reasoning: evaluator.Reason("", "pilot boards the ship the plan deployed this phase", 90),
			})
		case o.Card != nil && o.Card.BlueprintID == instr.CardBlueprintID:
			actions = append(actions, evaluator.EvaluatedAction{
				ActionID:  o.OptionID,
				Score:     60,
				Reasoning: evaluator.Reason("", "matches the plan's next instruction", 60),
			})
		case instr.BackupLocationIndex != nil && o.TargetLocation != nil && o.TargetLocation.LocationIndex == *instr.BackupLocationIndex:
			actions = append(actions, evaluator.EvaluatedAction{
				ActionID:  o.OptionID,
				Score:     40,
				Reasoning: evaluator.Reason("", "fallback to the planned system location, ship not offered", 40),
			})
		}
	}
	return actions
}

func hasCardOrLocationOptions(req decision.Request) bool {
	for _, o := range req.Options {
		if o.Card != nil || o.TargetLocation != nil {
			return true
		}
	}
	return false
}

// BattleEvaluator scores a location-targeted option by the power advantage
// a battle there would realize for our side.
type BattleEvaluator struct{}

func (e *BattleEvaluator) CanEvaluate(ctx decision.Context) bool {
	for _, o := range ctx.Request.SelectableOptions() {
		if o.TargetLocation != nil {
			return true
		}
	}
	return false
}

func (e *BattleEvaluator) Evaluate(ctx decision.Context) []evaluator.EvaluatedAction {
	var actions []evaluator.EvaluatedAction
	for _, o := range ctx.Request.SelectableOptions() {
		if o.TargetLocation == nil {
			continue
		}
		idx := o.TargetLocation.LocationIndex
		advantage := ctx.Board.MyPowerAt(idx) - ctx.Board.TheirPowerAt(idx)
		actions = append(actions, evaluator.EvaluatedAction{
			ActionID:  o.OptionID,
			Score:     battleScore(advantage),
			Reasoning: evaluator.Reason("", "power advantage at location", float64(advantage)),
		})
	}
	return actions
}

// battleScore maps a power advantage onto the framework's scoring bands:
// decisive wins score high, even fights sit in the moderate band, and
// unfavorable fights are scored low but never illegal (a battle decision
// is still a legal action to take).
func battleScore(advantage int) float64 {
	switch {
	case advantage >= 4:
		return 85
	case advantage >= 1:
		return 60
	case advantage == 0:
		return 30
	default:
		return 10
	}
}

// PassEvaluator supplies the mandatory pass-option score whenever the
// decision allows passing, so CombinedEvaluator always has a legal
// fallback candidate even when no other evaluator fires.
type PassEvaluator struct{}

func (e *PassEvaluator) CanEvaluate(ctx decision.Context) bool {
	return !ctx.Request.NoPass
}

func (e *PassEvaluator) Evaluate(ctx decision.Context) []evaluator.EvaluatedAction {
	for _, o := range ctx.Request.SelectableOptions() {
		if decision.IsPassOption(o) {
			return []evaluator.EvaluatedAction{{
				ActionID:  o.OptionID,
				Score:     15,
				Reasoning: evaluator.Reason("", "mandatory pass baseline", 15),
			}}
		}
	}
	return nil
}
