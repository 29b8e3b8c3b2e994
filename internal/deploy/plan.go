// Package deploy implements the deploy planner: the reference brain's deep
// logic for sequencing deploy-phase decisions.
package deploy

import "sync"

// Kind is the broad category an instruction's card belongs to, used to
// enforce the planner's type ordering.
type Kind string

const (
	KindLocation  Kind = "location"
	KindShip      Kind = "ship" // starships and vehicles
	KindCharacter Kind = "character"
)

// priority returns the planner's ordering weight for a Kind: locations
// first, ships/vehicles next, characters last.
func priority(k Kind) int {
	switch k {
	case KindLocation:
		return 0
	case KindShip:
		return 1
	case KindCharacter:
		return 2
	default:
		return 3
	}
}

// Instruction is one planned card placement.
type Instruction struct {
	Kind Kind

	HandCardID      string
	CardBlueprintID string

	// TargetSystem is the system the card should deploy into (for
	// locations this is the system the location itself represents; for
	// ships/characters, the system of the chosen target location).
	TargetSystem        string
	TargetLocationIndex *int
	BackupLocationIndex *int

	// AboardShipBlueprintID is set when this instruction is a pilot
	// boarding a ship deployed earlier in the same plan, before the
	// server has assigned the ship a card_id.
	AboardShipBlueprintID string
	// AboardShipCardID is filled in once the event processor observes the
	// ship's PUT_CARD_IN_PLAY event.
	AboardShipCardID *string
}

// Plan is an ordered sequence of DeploymentInstructions built once per
// deploy phase.
type Plan struct {
	mu           sync.Mutex
	Instructions []*Instruction
}

// BindShip fills in AboardShipCardID on every unbound instruction whose
// AboardShipBlueprintID matches blueprintID. It is called from the event
// processor's deployment-plan coupling hook.
func (p *Plan) BindShip(blueprintID, cardID string) {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, instr := range p.Instructions {
		if instr.AboardShipBlueprintID == blueprintID && instr.AboardShipCardID == nil {
			id := cardID
			instr.AboardShipCardID = &id
		}
	}
}

// NextEligible returns the first instruction whose card blueprint is among
// offeredBlueprintIDs, implementing the fallback rule: if a higher
// priority type is planned but the server is not currently offering it,
// the next type may proceed.
func (p *Plan) NextEligible(offeredBlueprintIDs map[string]bool) *Instruction {
	if p == nil {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, instr := range p.Instructions {
		if offeredBlueprintIDs[instr.CardBlueprintID] {
			return instr
		}
	}
	return nil
}

// Len returns the number of instructions in the plan; instructions are
// never removed once planned.
func (p *Plan) Len() int {
	if p == nil {
		return 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Instructions)
}
