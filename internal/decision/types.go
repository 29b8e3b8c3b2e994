// Package decision implements the decision pipeline: request
// construction from a raw server decision, brain invocation, safety
// overrides, and the loop/wedge detector.
package decision

import "github.com/swccgarena/gemp-bot/internal/board"

// Type is the decision's server-reported kind.
type Type string

const (
	TypeMultipleChoice Type = "MULTIPLE_CHOICE"
	TypeActionChoice   Type = "ACTION_CHOICE"
	TypeCardSelection  Type = "CARD_SELECTION"
	TypeCardAction     Type = "CARD_ACTION"
	TypeArbitraryCards Type = "ARBITRARY_CARDS"
	TypeInteger        Type = "INTEGER"
)

// RawOption is the neutral (transport-agnostic) shape of one decision
// option as parsed off the wire, before resolution against board state.
type RawOption struct {
	OptionID            string
	DisplayText         string
	CardID              string
	TargetLocationIndex *int
	IntegerRange        *[2]int
}

// RawRequest is the neutral shape of a decision as parsed off the wire
// (the server's <ge> element), before resolution against board state.
type RawRequest struct {
	DecisionID   string
	Type         Type
	Prompt       string
	NoPass       bool
	DefaultValue *string
	Options      []RawOption
	// Selectable is a parallel bitmap; nil means every option is
	// selectable.
	Selectable []bool
}

// Option is one resolved, displayable choice within a DecisionRequest.
type Option struct {
	OptionID       string
	DisplayText    string
	Card           *board.CardInPlay
	TargetLocation *board.LocationInPlay
	IntegerRange   *[2]int
	Selectable     bool

	// Hints carries named scoring hints. BuildRequest leaves it nil; the
	// pipeline's non-selectable-choice override reads Hints["score"] to
	// pick the substitute option.
	Hints map[string]float64
}

// Request is the fully resolved decision the brain is asked to answer.
type Request struct {
	DecisionID   string
	Type         Type
	Prompt       string
	Options      []Option
	DefaultValue *string
	NoPass       bool
}

// SelectableOptions returns only the options the brain is legally allowed
// to choose; options marked non-selectable are eliminated before scoring.
func (r Request) SelectableOptions() []Option {
	out := make([]Option, 0, len(r.Options))
	for _, o := range r.Options {
		if o.Selectable {
			out = append(out, o)
		}
	}
	return out
}

// knownTypes is the closed set of decision types this core recognizes.
var knownTypes = map[Type]bool{
	TypeMultipleChoice: true,
	TypeActionChoice:   true,
	TypeCardSelection:  true,
	TypeCardAction:     true,
	TypeArbitraryCards: true,
	TypeInteger:        true,
}

// IsKnownType reports whether r.Type is one of the recognized decision
// types.
func (r Request) IsKnownType() bool {
	return knownTypes[r.Type]
}

// OptionByID returns the option with the given id, or nil.
func (r Request) OptionByID(id string) *Option {
	for i := range r.Options {
		if r.Options[i].OptionID == id {
			return &r.Options[i]
		}
	}
	return nil
}

// BuildRequest resolves a RawRequest against board state into a displayable
// Request.
func BuildRequest(raw RawRequest, state *board.BoardState) Request {
	req := Request{
		DecisionID:   raw.DecisionID,
		Type:         raw.Type,
		Prompt:       raw.Prompt,
		DefaultValue: raw.DefaultValue,
		NoPass:       raw.NoPass,
	}
	for i, ro := range raw.Options {
		opt := Option{
			OptionID:     ro.OptionID,
			DisplayText:  ro.DisplayText,
			IntegerRange: ro.IntegerRange,
			Selectable:   true,
		}
		if ro.CardID != "" {
			opt.Card = state.CardByID(ro.CardID)
		}
		if ro.TargetLocationIndex != nil {
			opt.TargetLocation = state.LocationByIndex(*ro.TargetLocationIndex)
		}
		if raw.Selectable != nil && i < len(raw.Selectable) {
			opt.Selectable = raw.Selectable[i]
		}
		req.Options = append(req.Options, opt)
	}
	return req
}

// Decision is the brain's response to a Request.
type Decision struct {
	Choice                string
	Reasoning             string
	Confidence            float64
	AlternativeConsidered *string

	// Abandoned is set by the wedge breaker for non-MULTIPLE_CHOICE
	// decisions that repeat three times identically: the worker must not
	// post a response for this decision and should simply let the next
	// long-poll proceed.
	Abandoned bool
}
