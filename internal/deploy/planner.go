package deploy

import (
	"sort"
	"strings"

	"github.com/swccgarena/gemp-bot/internal/board"
	"github.com/swccgarena/gemp-bot/internal/card"
)

// Options tunes the planner's location-selection heuristics, applied here
// at plan-construction time.
type Options struct {
	// FortificationThreshold: a legal site with MyPowerAt below this value
	// is treated as needing reinforcement and is preferred as a
	// character-deploy target over an already-strong site.
	FortificationThreshold int
}

// BuildPlan constructs a deployment plan from the hand, honoring each
// card's deploy restrictions and the locations → ships → characters
// ordering. handCardIDs are card_ids currently in our hand; the registry
// resolves their blueprint metadata.
func BuildPlan(state *board.BoardState, reg *card.Registry, handCardIDs []string, opts Options) *Plan {
	plan := &Plan{}

	var pendingShipBlueprint string // blueprint id of the most recently planned ship this pass, for pilot binding

	type candidate struct {
		cardID string
		meta   *card.Card
		kind   Kind
	}

	var candidates []candidate
	for _, cardID := range handCardIDs {
		cip := state.CardByID(cardID)
		var blueprintID string
		if cip != nil {
			blueprintID = cip.BlueprintID
		}
		meta := reg.Lookup(blueprintID)
		if meta == nil {
			continue
		}
		kind, ok := classify(meta)
		if !ok {
			continue
		}
		candidates = append(candidates, candidate{cardID: cardID, meta: meta, kind: kind})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return priority(candidates[i].kind) < priority(candidates[j].kind)
	})

	for _, c := range candidates {
		switch c.kind {
		case KindLocation:
			plan.Instructions = append(plan.Instructions, &Instruction{
				Kind:            KindLocation,
				HandCardID:      c.cardID,
				CardBlueprintID: c.meta.BlueprintID,
				TargetSystem:    systemNameOf(c.meta),
			})
		case KindShip:
			loc := bestSpaceLocation(state, c.meta)
			if loc == nil {
				continue
			}
			idx := loc.LocationIndex
			plan.Instructions = append(plan.Instructions, &Instruction{
				Kind:                KindShip,
				HandCardID:          c.cardID,
				CardBlueprintID:     c.meta.BlueprintID,
				TargetSystem:        loc.SystemName,
				TargetLocationIndex: &idx,
			})
			pendingShipBlueprint = c.meta.BlueprintID
		case KindCharacter:
			if c.meta.IsPilot() && pendingShipBlueprint != "" {
				plan.Instructions = append(plan.Instructions, &Instruction{
					Kind:                  KindCharacter,
					HandCardID:            c.cardID,
					CardBlueprintID:       c.meta.BlueprintID,
					AboardShipBlueprintID: pendingShipBlueprint,
					BackupLocationIndex:   backupSystemLocation(state, c.meta),
				})
				pendingShipBlueprint = ""
				continue
			}
			loc := bestSiteLocation(state, c.meta, opts.FortificationThreshold)
			if loc == nil {
				continue
			}
			idx := loc.LocationIndex
			plan.Instructions = append(plan.Instructions, &Instruction{
				Kind:                KindCharacter,
				HandCardID:          c.cardID,
				CardBlueprintID:     c.meta.BlueprintID,
				TargetSystem:        loc.SystemName,
				TargetLocationIndex: &idx,
			})
		}
	}

	return plan
}

func classify(meta *card.Card) (Kind, bool) {
	switch meta.Type {
	case card.TypeLocation:
		return KindLocation, true
	case card.TypeStarship, card.TypeVehicle:
		return KindShip, true
	case card.TypeCharacter:
		return KindCharacter, true
	default:
		return "", false
	}
}

// systemNameOf derives the system a location card represents by splitting
// its title on the first ":", the same rule the event processor applies
// once the card is actually in play.
func systemNameOf(meta *card.Card) string {
	if i := strings.Index(meta.Title, ":"); i >= 0 {
		return strings.TrimSpace(meta.Title[:i])
	}
	return meta.Title
}

// bestSpaceLocation returns a legal space location for a lone starship,
// honoring the card's deploy restriction.
func bestSpaceLocation(state *board.BoardState, meta *card.Card) *board.LocationInPlay {
	for i := 0; i < state.LocationCount(); i++ {
		loc := state.LocationByIndex(i)
		if loc == nil || loc.Placeholder || !loc.IsSpace {
			continue
		}
		if !meta.AllowsSystem(loc.SystemName) {
			continue
		}
		return loc
	}
	return nil
}

// bestSiteLocation returns a legal site for a character, preferring the
// first site whose MyPowerAt is below the fortification threshold (needs
// reinforcement) over an already-strong one.
func bestSiteLocation(state *board.BoardState, meta *card.Card, threshold int) *board.LocationInPlay {
	var fallback *board.LocationInPlay
	for i := 0; i < state.LocationCount(); i++ {
		loc := state.LocationByIndex(i)
		if loc == nil || loc.Placeholder || !loc.IsSite {
			continue
		}
		if !meta.AllowsSystem(loc.SystemName) {
			continue
		}
		if fallback == nil {
			fallback = loc
		}
		if state.MyPowerAt(i) < threshold {
			return loc
		}
	}
	return fallback
}

func backupSystemLocation(state *board.BoardState, meta *card.Card) *int {
	loc := bestSpaceLocation(state, meta)
	if loc == nil {
		return nil
	}
	idx := loc.LocationIndex
	return &idx
}
