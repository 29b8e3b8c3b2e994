package decision

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/swccgarena/gemp-bot/internal/board"
)

type stubBrain struct {
	decision Decision
	panics   bool
}

func (b *stubBrain) MakeDecision(ctx Context) Decision {
	if b.panics {
		panic("boom")
	}
	return b.decision
}
func (b *stubBrain) OnGameStart(string, string, string)          {}
func (b *stubBrain) OnGameEnd(bool, *board.BoardState)           {}
func (b *stubBrain) GetPersonalityName() string                  { return "stub" }

func reqWith(opts ...Option) Request {
	return Request{DecisionID: "d1", Type: TypeMultipleChoice, Prompt: "Choose one", Options: opts}
}

func TestSafetyEmptyChoiceOnNoPass(t *testing.T) {
	req := reqWith(Option{OptionID: "a", DisplayText: "A", Selectable: true}, Option{OptionID: "b", DisplayText: "B", Selectable: true})
	req.NoPass = true

	brain := &stubBrain{decision: Decision{Choice: ""}}
	p := NewPipeline(brain)
	dec, err := p.Process(Context{Request: req, Board: board.New(), History: NewHistory()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dec.Choice != "a" {
		t.Errorf("Choice = %q, want first option", dec.Choice)
	}
}

func TestSafetyCancelWhenRequired(t *testing.T) {
	req := reqWith(Option{OptionID: "cancel", DisplayText: "Cancel", Selectable: true}, Option{OptionID: "b", DisplayText: "Deploy", Selectable: true})
	req.NoPass = true

	brain := &stubBrain{decision: Decision{Choice: "cancel"}}
	p := NewPipeline(brain)
	dec, err := p.Process(Context{Request: req, Board: board.New(), History: NewHistory()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dec.Choice != "b" {
		t.Errorf("Choice = %q, want non-pass option b", dec.Choice)
	}
}

func TestSafetyNonSelectableChoiceSubstituted(t *testing.T) {
	req := reqWith(
		Option{OptionID: "a", DisplayText: "A", Selectable: false, Hints: map[string]float64{"score": 10}},
		Option{OptionID: "b", DisplayText: "B", Selectable: true, Hints: map[string]float64{"score": 40}},
	)
	brain := &stubBrain{decision: Decision{Choice: "a"}}
	p := NewPipeline(brain)
	dec, err := p.Process(Context{Request: req, Board: board.New(), History: NewHistory()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dec.Choice != "b" {
		t.Errorf("Choice = %q, want highest-scored selectable option b", dec.Choice)
	}
}

func TestSelectableFilteringForcesSoleOption(t *testing.T) {
	req := reqWith(
		Option{OptionID: "a", DisplayText: "A", Selectable: false},
		Option{OptionID: "b", DisplayText: "B", Selectable: false},
		Option{OptionID: "c", DisplayText: "C", Selectable: true},
	)
	req.NoPass = true
	brain := &stubBrain{decision: Decision{Choice: "a"}}
	p := NewPipeline(brain)
	dec, err := p.Process(Context{Request: req, Board: board.New(), History: NewHistory()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dec.Choice != "c" {
		t.Errorf("Choice = %q, want the only selectable option c", dec.Choice)
	}
}

func TestWedgeDetectorTriggersOnThirdIdenticalTuple(t *testing.T) {
	req := reqWith(Option{OptionID: "0", DisplayText: "zero", Selectable: true}, Option{OptionID: "1", DisplayText: "one", Selectable: true})
	req.Prompt = "Optional responses"
	brain := &stubBrain{decision: Decision{Choice: "0"}}
	p := NewPipeline(brain)
	p.Rand = rand.New(rand.NewSource(42))

	var last Decision
	for i := 0; i < 3; i++ {
		dec, err := p.Process(Context{Request: req, Board: board.New(), History: NewHistory()})
		if err != nil {
			t.Fatalf("unexpected error on iter %d: %v", i, err)
		}
		last = dec
	}
	if last.Choice == "0" {
		t.Error("expected wedge breaker to choose a different legal option on the third repeat")
	}
}

func TestDifferentPromptsSameDecisionIDNeverWedge(t *testing.T) {
	brain := &stubBrain{decision: Decision{Choice: "0"}}
	p := NewPipeline(brain)

	for i := 0; i < 5; i++ {
		req := reqWith(Option{OptionID: "0", Selectable: true})
		req.DecisionID = "same-id"
		req.Prompt = "prompt variant"
		req.Prompt += string(rune('a' + i)) // distinct prompt each time
		dec, err := p.Process(Context{Request: req, Board: board.New(), History: NewHistory()})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if dec.Abandoned {
			t.Fatal("should never wedge when prompts differ")
		}
	}
}

func TestWedgeOnNonMultipleChoiceAbandonsThenHardErrors(t *testing.T) {
	req := Request{DecisionID: "d2", Type: TypeCardAction, Prompt: "Optional responses", Options: []Option{{OptionID: "0", Selectable: true}}}
	brain := &stubBrain{decision: Decision{Choice: "0"}}
	p := NewPipeline(brain)

	var lastErr error
	for i := 0; i < 6; i++ {
		_, err := p.Process(Context{Request: req, Board: board.New(), History: NewHistory()})
		if err != nil {
			lastErr = err
		}
	}
	if !errors.Is(lastErr, ErrWedgePersists) {
		t.Fatalf("expected ErrWedgePersists after repeated abandon windows, got %v", lastErr)
	}
}

func TestBrainPanicFallsBackGracefully(t *testing.T) {
	req := reqWith(Option{OptionID: "pass", DisplayText: "Pass", Selectable: true}, Option{OptionID: "a", Selectable: true})
	brain := &stubBrain{panics: true}
	p := NewPipeline(brain)
	dec, err := p.Process(Context{Request: req, Board: board.New(), History: NewHistory()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dec.Choice != "pass" {
		t.Errorf("Choice = %q, want pass fallback after brain panic", dec.Choice)
	}
}

func TestDefaultIntegerChoiceUsesServerDefault(t *testing.T) {
	dv := "3"
	req := Request{Type: TypeInteger, DefaultValue: &dv, Prompt: "pick a number"}
	if got := DefaultIntegerChoice(req); got != "3" {
		t.Errorf("DefaultIntegerChoice = %q, want 3", got)
	}
}

func TestDefaultIntegerChoiceFallsBackToZeroForKnownPrompt(t *testing.T) {
	req := Request{Type: TypeInteger, Prompt: "Allow opponent to activate?"}
	if got := DefaultIntegerChoice(req); got != "0" {
		t.Errorf("DefaultIntegerChoice = %q, want 0", got)
	}
}

func TestDefaultIntegerChoiceNoGuessForUnknownPrompt(t *testing.T) {
	req := Request{Type: TypeInteger, Prompt: "Pick your lucky number"}
	if got := DefaultIntegerChoice(req); got != "" {
		t.Errorf("DefaultIntegerChoice = %q, want empty (no guess)", got)
	}
}

func TestPipelineAnswersIntegerWithServerDefault(t *testing.T) {
	dv := "2"
	req := Request{DecisionID: "d9", Type: TypeInteger, Prompt: "How much Force?", DefaultValue: &dv}
	brain := &stubBrain{decision: Decision{Choice: ""}}
	p := NewPipeline(brain)
	dec, err := p.Process(Context{Request: req, Board: board.New(), History: NewHistory()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dec.Choice != "2" {
		t.Errorf("Choice = %q, want server default 2", dec.Choice)
	}
}

func TestPipelineKeepsBrainIntegerChoice(t *testing.T) {
	dv := "2"
	req := Request{DecisionID: "d9", Type: TypeInteger, Prompt: "How much Force?", DefaultValue: &dv}
	brain := &stubBrain{decision: Decision{Choice: "4", Reasoning: "spend big"}}
	p := NewPipeline(brain)
	dec, err := p.Process(Context{Request: req, Board: board.New(), History: NewHistory()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dec.Choice != "4" {
		t.Errorf("Choice = %q, want the brain's own 4", dec.Choice)
	}
}

func TestUnrecognizedTypeFallback(t *testing.T) {
	req := Request{Type: "SOMETHING_NEW", NoPass: true, Options: []Option{{OptionID: "x"}}}
	brain := &stubBrain{decision: Decision{Choice: "never-called"}}
	p := NewPipeline(brain)
	dec, err := p.Process(Context{Request: req, Board: board.New(), History: NewHistory()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dec.Choice != "x" {
		t.Errorf("Choice = %q, want default option 0 for unrecognized type", dec.Choice)
	}
}
