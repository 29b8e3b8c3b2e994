// Package static implements the reference "Static" brain personality: a
// deploy planner feeding a combined evaluator, with a mandatory pass
// fallback so every decision always has a legal candidate.
package static

import (
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/swccgarena/gemp-bot/internal/board"
	"github.com/swccgarena/gemp-bot/internal/card"
	"github.com/swccgarena/gemp-bot/internal/decision"
	"github.com/swccgarena/gemp-bot/internal/deploy"
	"github.com/swccgarena/gemp-bot/internal/evaluator"
)

// Brain is the reference personality: a deploy planner wired into a
// combined evaluator, rebuilt once per deploy phase.
type Brain struct {
	Registry *card.Registry
	Options  deploy.Options

	plan    *deploy.Plan
	planKey string
}

// New returns a ready-to-use Static brain.
func New(reg *card.Registry, opts deploy.Options) *Brain {
	return &Brain{Registry: reg, Options: opts}
}

func isDeployPhase(phase board.Phase) bool {
	return strings.Contains(strings.ToLower(string(phase)), "deploy")
}

// maybeRebuildPlan constructs a fresh deployment plan the first time a
// deploy phase is seen on a given turn, and discards it once the phase
// moves on.
func (b *Brain) maybeRebuildPlan(ctx decision.Context) {
	if !isDeployPhase(ctx.Board.CurrentPhase) {
		b.plan = nil
		b.planKey = ""
		return
	}

	key := fmt.Sprintf("%d|%s", ctx.Board.TurnNumber, ctx.Board.CurrentPhase)
	if key == b.planKey && b.plan != nil {
		return
	}

	hand := append([]string(nil), ctx.Board.MyZones.Hand...)
	b.plan = deploy.BuildPlan(ctx.Board, b.Registry, hand, b.Options)
	b.planKey = key
}

// MakeDecision answers a decision by combining the deploy planner's
// preference, the battle evaluator's power-advantage scoring, and the
// mandatory pass baseline, taking the highest-scored candidate.
func (b *Brain) MakeDecision(ctx decision.Context) decision.Decision {
	b.maybeRebuildPlan(ctx)

	combined := &evaluator.CombinedEvaluator{
		Evaluators: []evaluator.Evaluator{
			&DeployEvaluator{Plan: b.plan},
			&BattleEvaluator{},
			&PassEvaluator{},
		},
	}

	best, ok := combined.Best(ctx)
	if ok {
		return decision.Decision{Choice: best.ActionID, Reasoning: best.Reasoning}
	}

	if alt := firstSelectable(ctx.Request); alt != nil {
		return decision.Decision{
			Choice:    alt.OptionID,
			Reasoning: "no evaluator produced a candidate; defaulted to first selectable option",
		}
	}
	return decision.Decision{Reasoning: "no evaluator produced a candidate and no selectable option exists"}
}

func firstSelectable(req decision.Request) *decision.Option {
	sel := req.SelectableOptions()
	if len(sel) == 0 {
		return nil
	}
	return &sel[0]
}

// OnGameStart resets the planner for a new game.
func (b *Brain) OnGameStart(mySide, myPlayerName, opponentName string) {
	b.plan = nil
	b.planKey = ""
	log.WithFields(log.Fields{
		"my_side":     mySide,
		"my_player":   myPlayerName,
		"opponent":    opponentName,
		"personality": b.GetPersonalityName(),
	}).Info("game started")
}

// OnGameEnd logs the final outcome; persistence is the stats Sink's job.
func (b *Brain) OnGameEnd(won bool, final *board.BoardState) {
	log.WithFields(log.Fields{
		"won":         won,
		"personality": b.GetPersonalityName(),
	}).Info("game ended")
}

// GetPersonalityName identifies this brain for logs and config selection.
func (b *Brain) GetPersonalityName() string { return "Static" }

// NotifyCardDeployed implements the worker's optional deploy-plan-coupling
// hook: the event processor calls this whenever a card we own enters
// AT_LOCATION, letting the in-flight plan bind the assigned card_id on any
// instruction waiting for this blueprint to show up (e.g. a pilot's planned
// ship).
func (b *Brain) NotifyCardDeployed(cardID, blueprintID string) {
	b.plan.BindShip(blueprintID, cardID)
}
