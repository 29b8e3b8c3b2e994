package event

import (
	"fmt"
	"strings"

	"github.com/swccgarena/gemp-bot/internal/board"
	"github.com/swccgarena/gemp-bot/internal/card"
)

// Outcome is the result of applying a single event: a handler never throws
// across the fold's boundary, it reports what happened instead.
type Outcome struct {
	Applied bool
	Reason  string
}

func applied() Outcome              { return Outcome{Applied: true} }
func skipped(reason string) Outcome { return Outcome{Applied: false, Reason: reason} }

// Processor is the deterministic fold. It holds no state of its own
// beyond the registry used to classify newly sighted cards and three
// optional hooks: one the deploy planner uses to learn the card_id
// assigned to a not-yet-deployed ship (deployment-plan coupling), one for
// opponent deployments, and one for game end.
type Processor struct {
	Registry *card.Registry

	// OnMyCardDeployed is invoked whenever a card we own transitions into
	// AT_LOCATION from some other zone (including first sighting). It is
	// nil-safe to leave unset.
	OnMyCardDeployed func(cardID, blueprintID string)

	// OnOpponentCardDeployed is invoked whenever a card the opponent owns
	// transitions into AT_LOCATION from some other zone (including first
	// sighting), feeding the brain context's per-opponent observation
	// counters. It is nil-safe to leave unset.
	OnOpponentCardDeployed func(cardID, blueprintID string)

	// OnGameEnd is invoked exactly once when a GAME_END event is applied,
	// letting the worker drive the stats Sink contract without this
	// package depending on it directly.
	OnGameEnd func()
}

// Apply folds one event into state, returning an Outcome describing
// whether it changed anything. Unknown tags and malformed events are
// logged by the caller using the returned reason; they are never treated
// as fatal.
func (p *Processor) Apply(state *board.BoardState, ev Event) Outcome {
	var out Outcome
	state.WithLock(func() {
		out = p.apply(state, ev)
	})
	return out
}

func (p *Processor) apply(state *board.BoardState, ev Event) Outcome {
	switch ev.Tag {
	case TagPutCardInPlay:
		return p.applyPutOrMove(state, ev)
	case TagMoveCardInPlay:
		return p.applyPutOrMove(state, ev)
	case TagRemoveCardInPlay:
		return p.applyRemove(state, ev)
	case TagGameState:
		return p.applyGameState(state, ev)
	case TagPhase:
		state.CurrentPhase = ev.Phase
		return applied()
	case TagTurnChange:
		state.CurrentPlayer = ev.NewPlayer
		if ev.NewPlayer == ev.StartingSide {
			state.TurnNumber++
		}
		return applied()
	case TagGameProcessChange, TagGameProgress, TagChat:
		return applied() // informational only, no board mutation
	case TagDecision:
		return skipped("decision events do not mutate state; routed to the decision pipeline")
	case TagGameEnd:
		if !state.GameEndSeen {
			state.GameEndSeen = true
			if ev.Winner != "" {
				won := ev.Winner == board.OwnerMe
				state.Won = &won
			}
			if p.OnGameEnd != nil {
				p.OnGameEnd()
			}
		}
		return applied()
	default:
		return skipped(fmt.Sprintf("unrecognized event tag %q", ev.Tag))
	}
}

func (p *Processor) applyGameState(state *board.BoardState, ev Event) Outcome {
	if ev.MyPower != nil {
		state.MyPower = append([]int(nil), ev.MyPower...)
	}
	if ev.TheirPower != nil {
		state.TheirPower = append([]int(nil), ev.TheirPower...)
	}
	state.MyZones.ForcePileSize = ev.MyForcePile
	state.MyZones.UsedPileSize = ev.MyUsedPile
	state.MyZones.LostPileSize = ev.MyLostPile
	state.MyZones.ReserveDeckSize = ev.MyReserveDeck
	state.MyZones.OutOfPlaySize = ev.MyOutOfPlay
	state.TheirZones.ForcePileSize = ev.TheirForcePile
	state.TheirZones.UsedPileSize = ev.TheirUsedPile
	state.TheirZones.LostPileSize = ev.TheirLostPile
	state.TheirZones.ReserveDeckSize = ev.TheirReserveDeck
	state.TheirZones.OutOfPlaySize = ev.TheirOutOfPlay
	if ev.MyHand != nil {
		state.MyZones.Hand = append([]string(nil), ev.MyHand...)
	}
	if ev.CurrentPlayer != "" {
		state.CurrentPlayer = ev.CurrentPlayer
	}
	if ev.MySide != "" {
		state.MySide = ev.MySide
	}
	if ev.MyPlayerName != "" {
		state.MyPlayerName = ev.MyPlayerName
	}
	if ev.OpponentName != "" {
		state.OpponentName = ev.OpponentName
	}
	return applied()
}

func (p *Processor) applyPutOrMove(state *board.BoardState, ev Event) Outcome {
	if ev.CardID == "" {
		return skipped("missing card_id")
	}

	// Validate the attachment before any mutation so a rejected event
	// leaves the state untouched rather than half-applied.
	if err := validateAttach(state, ev.CardID, ev.AttachedTo); err != nil {
		return skipped(err.Error())
	}

	cip, existed := state.Cards[ev.CardID]
	if !existed {
		created := CardInPlayFrom(ev.CardID, ev.BlueprintID, p.Registry)
		cip = &created
		state.Cards[ev.CardID] = cip
	} else if ev.BlueprintID != "" {
		cip.BlueprintID = ev.BlueprintID
		applyMetadata(cip, p.Registry)
	}

	wasAtLocation := cip.Zone == board.ZoneAtLocation
	removeFromCurrentPlacement(state, cip)

	cip.Owner = ev.Owner
	cip.Zone = ev.Zone
	cip.LocationIndex = ev.LocationIndex

	if meta := p.Registry.Lookup(cip.BlueprintID); meta != nil && meta.Type == card.TypeLocation {
		applyLocationPlacement(state, cip, meta, ev)
	} else if ev.Zone == board.ZoneAtLocation {
		applyNonLocationPlacement(state, cip, ev)
	} else if ev.Zone == board.ZoneHand {
		appendHand(state, cip)
	}

	attachLink(state, cip, ev.AttachedTo)

	if ev.Zone == board.ZoneAtLocation && !wasAtLocation {
		switch ev.Owner {
		case board.OwnerMe:
			if p.OnMyCardDeployed != nil {
				p.OnMyCardDeployed(cip.CardID, cip.BlueprintID)
			}
		case board.OwnerOpponent:
			if p.OnOpponentCardDeployed != nil {
				p.OnOpponentCardDeployed(cip.CardID, cip.BlueprintID)
			}
		}
	}

	return applied()
}

// CardInPlayFrom builds a new CardInPlay record for a first-sighted card,
// denormalizing display metadata from the registry.
func CardInPlayFrom(cardID, blueprintID string, reg *card.Registry) CardInPlay {
	cip := CardInPlay{CardID: cardID, BlueprintID: blueprintID}
	applyMetadata(&cip, reg)
	return cip
}

// CardInPlay is an alias of board.CardInPlay that keeps callers in this
// file terse.
type CardInPlay = board.CardInPlay

func applyMetadata(cip *CardInPlay, reg *card.Registry) {
	meta := reg.Lookup(cip.BlueprintID)
	if meta == nil {
		cip.Title = cip.BlueprintID
		return
	}
	cip.Title = meta.Title
	cip.Type = string(meta.Type)
	cip.Power = meta.PowerValue()
	cip.Ability = meta.AbilityValue()
	cip.Deploy = meta.DeployValue()
}

func applyLocationPlacement(state *board.BoardState, cip *CardInPlay, meta *card.Card, ev Event) {
	if ev.LocationIndex == nil {
		return
	}
	idx := *ev.LocationIndex
	loc := state.EnsureLocation(idx)
	loc.CardID = cip.CardID
	loc.BlueprintID = cip.BlueprintID
	loc.Title = meta.Title
	loc.SystemName = systemNameOf(meta.Title)
	loc.SiteName = meta.Title
	loc.IsSite = meta.IsSite()
	loc.IsSpace = meta.IsSpace()
	loc.IsGround = meta.IsGround()
	loc.Placeholder = false
}

func systemNameOf(title string) string {
	if i := strings.Index(title, ":"); i >= 0 {
		return strings.TrimSpace(title[:i])
	}
	return title
}

func applyNonLocationPlacement(state *board.BoardState, cip *CardInPlay, ev Event) {
	if ev.LocationIndex == nil {
		return
	}
	idx := *ev.LocationIndex
	loc := state.EnsureLocation(idx)
	switch ev.Owner {
	case board.OwnerMe:
		loc.MyCards = appendUnique(loc.MyCards, cip.CardID)
	case board.OwnerOpponent:
		loc.TheirCards = appendUnique(loc.TheirCards, cip.CardID)
	}
}

func appendHand(state *board.BoardState, cip *CardInPlay) {
	switch cip.Owner {
	case board.OwnerMe:
		state.MyZones.Hand = appendUnique(state.MyZones.Hand, cip.CardID)
	}
}

func appendUnique(list []string, id string) []string {
	for _, v := range list {
		if v == id {
			return list
		}
	}
	return append(list, id)
}

// removeFromCurrentPlacement strips cip out of whichever list it currently
// occupies (a hand or a location's side list) and drops its attachment
// edges bidirectionally.
func removeFromCurrentPlacement(state *board.BoardState, cip *CardInPlay) {
	switch cip.Zone {
	case board.ZoneAtLocation:
		if cip.LocationIndex != nil {
			if loc := state.LocationUnsafe(*cip.LocationIndex); loc != nil {
				loc.MyCards = removeID(loc.MyCards, cip.CardID)
				loc.TheirCards = removeID(loc.TheirCards, cip.CardID)
			}
		}
	case board.ZoneHand:
		state.MyZones.Hand = removeID(state.MyZones.Hand, cip.CardID)
	}
	detachAll(state, cip)
}

func removeID(list []string, id string) []string {
	out := list[:0:0]
	for _, v := range list {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

// detachAll clears cip's attachment edges in both directions.
func detachAll(state *board.BoardState, cip *CardInPlay) {
	if cip.AttachedTo != nil {
		if host := state.Cards[*cip.AttachedTo]; host != nil {
			host.Attachments = removeID(host.Attachments, cip.CardID)
		}
		cip.AttachedTo = nil
	}
	for _, attID := range cip.Attachments {
		if att := state.Cards[attID]; att != nil {
			att.AttachedTo = nil
		}
	}
	cip.Attachments = nil
}

// validateAttach rejects self-attachment, attachment to an unknown host,
// and any attachment that would close a cycle. It runs before the event
// mutates anything: attachments never point to themselves, and attachment
// chains stay acyclic.
func validateAttach(state *board.BoardState, cardID string, hostID *string) error {
	if hostID == nil {
		return nil
	}
	if *hostID == cardID {
		return fmt.Errorf("rejected self-attachment for card %s", cardID)
	}
	host := state.Cards[*hostID]
	if host == nil {
		return fmt.Errorf("rejected attachment to unknown host %s", *hostID)
	}
	if wouldCycle(state, host, cardID) {
		return fmt.Errorf("rejected attachment that would close a cycle: %s -> %s", cardID, *hostID)
	}
	return nil
}

// attachLink records the already-validated attachment edge in both
// directions.
func attachLink(state *board.BoardState, cip *CardInPlay, hostID *string) {
	if hostID == nil {
		return
	}
	host := state.Cards[*hostID]
	if host == nil {
		return
	}
	cip.AttachedTo = hostID
	host.Attachments = appendUnique(host.Attachments, cip.CardID)
}

// wouldCycle walks the attachment chain starting at host to see whether it
// ever reaches target, which would close a cycle if target attached to
// host.
func wouldCycle(state *board.BoardState, host *CardInPlay, target string) bool {
	seen := map[string]bool{}
	cur := host
	for cur != nil {
		if cur.CardID == target {
			return true
		}
		if seen[cur.CardID] {
			return false // already-malformed chain; don't loop forever
		}
		seen[cur.CardID] = true
		if cur.AttachedTo == nil {
			return false
		}
		cur = state.Cards[*cur.AttachedTo]
	}
	return false
}

func (p *Processor) applyRemove(state *board.BoardState, ev Event) Outcome {
	if ev.CardID == "" {
		return skipped("missing card_id")
	}
	cip, existed := state.Cards[ev.CardID]
	if !existed {
		// Unknown card_id on remove: treat as first sighting to avoid
		// divergence.
		cip = &CardInPlay{CardID: ev.CardID, BlueprintID: ev.BlueprintID}
		state.Cards[ev.CardID] = cip
		applyMetadata(cip, p.Registry)
	}
	removeFromCurrentPlacement(state, cip)
	cip.Zone = ev.Zone
	cip.LocationIndex = nil
	if ev.Zone == board.ZoneHand {
		appendHand(state, cip)
	}
	return applied()
}
