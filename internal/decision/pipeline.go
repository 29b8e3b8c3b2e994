package decision

import (
	"errors"
	"math/rand"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// ErrWedgePersists is returned by Pipeline.Process when a
// non-MULTIPLE_CHOICE decision wedges twice in a row even after the
// abandon path, surfacing a hard error to the caller.
var ErrWedgePersists = errors.New("decision: wedge persisted across two consecutive abandon windows")

// tupleKey is the identity the loop detector tracks. The key must include
// prompt text, not decision_id alone, since the server reuses decision ids
// across unrelated prompts.
type tupleKey struct {
	DecisionID string
	Type       Type
	Prompt     string
	Choice     string
}

// loopDetector maintains a sliding window of the last three decisions.
type loopDetector struct {
	mu      sync.Mutex
	history []tupleKey
}

// observe records key and reports whether it completes three identical
// consecutive observations. On a wedge it resets the window so breaking
// the tie doesn't immediately retrigger on the very next decision.
func (d *loopDetector) observe(key tupleKey) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.history = append(d.history, key)
	if len(d.history) > 3 {
		d.history = d.history[len(d.history)-3:]
	}
	if len(d.history) == 3 && d.history[0] == d.history[1] && d.history[1] == d.history[2] {
		d.history = nil
		return true
	}
	return false
}

// Pipeline wraps a Brain with the safety overrides and the loop/wedge
// detector that run around every decision response.
type Pipeline struct {
	Brain Brain

	detector      loopDetector
	abandonStreak int
	abandonedKey  tupleKey

	// Rand is used by the wedge breaker's random legal choice; overridable
	// in tests for determinism.
	Rand *rand.Rand
}

// NewPipeline builds a Pipeline around brain with a non-deterministic
// wedge-breaking source.
func NewPipeline(brain Brain) *Pipeline {
	return &Pipeline{Brain: brain, Rand: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// Process invokes the brain, applies the safety overrides, and runs the
// loop detector, returning the final response to post. A non-nil error
// means the wedge persisted past the abandon path and the worker should
// surface a hard error, though it must not stop.
func (p *Pipeline) Process(ctx Context) (Decision, error) {
	if ctx.History != nil {
		ctx.History.RecordDecision()
	}

	if !ctx.Request.IsKnownType() {
		return FallbackForUnrecognizedType(ctx.Request), nil
	}

	dec := p.invokeBrain(ctx)
	if ctx.Request.Type == TypeInteger && strings.TrimSpace(dec.Choice) == "" {
		dec.Choice = DefaultIntegerChoice(ctx.Request)
		if dec.Choice != "" {
			dec.Reasoning = "integer default: " + dec.Reasoning
		}
	}
	dec = applySafety(ctx.Request, dec)

	key := tupleKey{
		DecisionID: ctx.Request.DecisionID,
		Type:       ctx.Request.Type,
		Prompt:     ctx.Request.Prompt,
		Choice:     dec.Choice,
	}

	if !p.detector.observe(key) {
		// The same decision re-sent after an abandon keeps the streak
		// alive; anything else ends it.
		if key != p.abandonedKey {
			p.abandonStreak = 0
		}
		return dec, nil
	}

	log.WithFields(log.Fields{
		"decision_id": ctx.Request.DecisionID,
		"type":        ctx.Request.Type,
		"prompt":      ctx.Request.Prompt,
		"choice":      dec.Choice,
	}).Warn("decision wedge detected; breaking loop")

	if ctx.Request.Type == TypeMultipleChoice {
		p.abandonStreak = 0
		return p.breakByRandomChoice(ctx.Request, dec), nil
	}

	if key != p.abandonedKey {
		p.abandonStreak = 0
	}
	p.abandonStreak++
	p.abandonedKey = key
	dec.Abandoned = true
	if p.abandonStreak >= 2 {
		p.abandonStreak = 0
		return dec, ErrWedgePersists
	}
	return dec, nil
}

// invokeBrain calls the brain, recovering from any panic: a brain
// exception falls back to pass if allowed else the first option, and the
// worker does not stop.
func (p *Pipeline) invokeBrain(ctx Context) (dec Decision) {
	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", r).Error("brain panicked while making a decision")
			dec = FallbackForBrainError(ctx.Request)
		}
	}()
	return p.Brain.MakeDecision(ctx)
}

func (p *Pipeline) breakByRandomChoice(req Request, dec Decision) Decision {
	candidates := make([]Option, 0, len(req.Options))
	for _, o := range req.SelectableOptions() {
		if o.OptionID != dec.Choice {
			candidates = append(candidates, o)
		}
	}
	if len(candidates) == 0 {
		return dec
	}
	pick := candidates[p.Rand.Intn(len(candidates))]
	return Decision{
		Choice:    pick.OptionID,
		Reasoning: "wedge breaker: randomly selected a different legal option",
	}
}

// applySafety applies the three ordered overrides that guard every
// decision response against an unusable choice.
func applySafety(req Request, dec Decision) Decision {
	selectable := req.SelectableOptions()

	// 1. Null/empty choice on a non-skippable decision.
	if strings.TrimSpace(dec.Choice) == "" && req.NoPass {
		if alt := firstNonPass(selectable); alt != nil {
			return substitute(dec, *alt, "empty choice on no_pass decision")
		}
	}

	// 2. Cancel-when-required.
	if chosen := req.OptionByID(dec.Choice); chosen != nil && IsPassOption(*chosen) && req.NoPass {
		if alt := firstNonPass(selectable); alt != nil {
			return substitute(dec, *alt, "cancel chosen on no_pass decision")
		}
	}

	// 3. Non-selectable choice. An empty choice on a skippable decision is
	// a deliberate pass, not an invalid option, so it is left alone here;
	// rule 1 already handled the non-skippable case above. INTEGER
	// responses carry a numeric payload rather than an option id and are
	// exempt.
	if req.Type == TypeInteger {
		return dec
	}
	if strings.TrimSpace(dec.Choice) == "" && !req.NoPass {
		return dec
	}
	chosen := req.OptionByID(dec.Choice)
	if chosen == nil || !chosen.Selectable {
		if alt := highestScored(selectable); alt != nil {
			return substitute(dec, *alt, "chosen option was not selectable")
		}
	}

	return dec
}

func firstNonPass(options []Option) *Option {
	for i := range options {
		if !IsPassOption(options[i]) {
			return &options[i]
		}
	}
	return nil
}

// highestScored returns the option with the greatest Hints["score"],
// falling back to the first selectable option when no hints are present.
func highestScored(options []Option) *Option {
	if len(options) == 0 {
		return nil
	}
	best := &options[0]
	bestScore, hasScore := best.Hints["score"]
	for i := 1; i < len(options); i++ {
		s, ok := options[i].Hints["score"]
		if ok && (!hasScore || s > bestScore) {
			best = &options[i]
			bestScore = s
			hasScore = true
		}
	}
	return best
}

func substitute(dec Decision, alt Option, reason string) Decision {
	original := dec.Choice
	dec.AlternativeConsidered = &original
	dec.Choice = alt.OptionID
	dec.Reasoning = "safety override (" + reason + "): " + dec.Reasoning
	return dec
}
