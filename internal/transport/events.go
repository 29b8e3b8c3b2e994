package transport

import (
	"encoding/xml"
	"strconv"
	"strings"

	"github.com/swccgarena/gemp-bot/internal/board"
	"github.com/swccgarena/gemp-bot/internal/decision"
	"github.com/swccgarena/gemp-bot/internal/event"
)

// translateBatch converts one gameState response body into the ordered
// event stream the processor folds, resolving owner/side attributes
// against myPlayerName. Events are returned in the order the server sent
// them; within-batch ordering is preserved verbatim.
func translateBatch(batch gameStateXML, myPlayerName string) []event.Event {
	out := make([]event.Event, 0, len(batch.Events))
	for _, raw := range batch.Events {
		out = append(out, translateEvent(raw, myPlayerName))
	}
	return out
}

func translateEvent(raw eventXML, myPlayerName string) event.Event {
	tag := event.Tag(raw.Type)
	switch tag {
	case event.TagPutCardInPlay, event.TagMoveCardInPlay, event.TagRemoveCardInPlay:
		return translateCardEvent(tag, raw, myPlayerName)
	case event.TagGameState:
		return translateGameState(raw, myPlayerName)
	case event.TagPhase:
		phase, _ := raw.param("phase")
		return event.Event{Tag: tag, Phase: board.Phase(phase)}
	case event.TagTurnChange:
		newPlayer, _ := raw.param("newPlayer")
		startingSide, _ := raw.param("startingSide")
		return event.Event{
			Tag:          tag,
			NewPlayer:    resolveOwner(newPlayer, myPlayerName),
			StartingSide: resolveOwner(startingSide, myPlayerName),
		}
	case event.TagChat:
		text, _ := raw.param("text")
		return event.Event{Tag: tag, ChatText: text}
	case event.TagGameProcessChange, event.TagGameProgress:
		return event.Event{Tag: tag}
	case event.TagGameEnd:
		ev := event.Event{Tag: tag}
		if winner, ok := raw.param("winner"); ok && winner != "" {
			ev.Winner = resolveOwner(winner, myPlayerName)
		}
		return ev
	case event.TagDecision:
		ev := event.Event{Tag: tag}
		if raw.Decision != nil {
			req := decisionFromXML(*raw.Decision)
			ev.DecisionRaw = req
		}
		return ev
	default:
		// Unknown tag: returned verbatim so the processor logs and skips
		// it rather than the transport layer silently dropping it.
		return event.Event{Tag: tag}
	}
}

func translateCardEvent(tag event.Tag, raw eventXML, myPlayerName string) event.Event {
	ev := event.Event{Tag: tag}
	ev.CardID, _ = raw.param("cardId")
	ev.BlueprintID, _ = raw.param("blueprintId")

	ownerRaw, hasOwner := raw.param("owner")
	if hasOwner {
		ev.Owner = resolveOwner(ownerRaw, myPlayerName)
	}

	zoneRaw, _ := raw.param("zone")
	ev.Zone = board.Zone(zoneRaw)

	if idxRaw, ok := raw.param("locationIndex"); ok {
		if idx, err := strconv.Atoi(idxRaw); err == nil {
			ev.LocationIndex = &idx
		}
	}
	if attachedTo, ok := raw.param("attachedTo"); ok && attachedTo != "" {
		ev.AttachedTo = &attachedTo
	}
	return ev
}

func translateGameState(raw eventXML, myPlayerName string) event.Event {
	ev := event.Event{Tag: event.TagGameState}

	mine := isMySide(raw.Player, myPlayerName)

	power := powerArrayFrom(raw.Attrs)
	if mine {
		ev.MyPower = power
	} else {
		ev.TheirPower = power
	}

	forcePile := intParam(raw, "forcePile")
	usedPile := intParam(raw, "usedPile")
	lostPile := intParam(raw, "lostPile")
	reserveDeck := intParam(raw, "reserveDeck")
	outOfPlay := intParam(raw, "outOfPlay")

	if mine {
		ev.MyForcePile = forcePile
		ev.MyUsedPile = usedPile
		ev.MyLostPile = lostPile
		ev.MyReserveDeck = reserveDeck
		ev.MyOutOfPlay = outOfPlay
		if hand, ok := raw.param("hand"); ok {
			ev.MyHand = splitNonEmpty(hand, ",")
		}
		if name, ok := raw.param("playerName"); ok {
			ev.MyPlayerName = name
		}
		if side, ok := raw.param("side"); ok {
			ev.MySide = side
		}
	} else {
		ev.TheirForcePile = forcePile
		ev.TheirUsedPile = usedPile
		ev.TheirLostPile = lostPile
		ev.TheirReserveDeck = reserveDeck
		ev.TheirOutOfPlay = outOfPlay
		if handSize, ok := raw.param("handSize"); ok {
			if n, err := strconv.Atoi(handSize); err == nil {
				ev.TheirHandSize = n
			}
		}
		if name, ok := raw.param("playerName"); ok {
			ev.OpponentName = name
		}
	}

	if current, ok := raw.param("currentPlayer"); ok {
		ev.CurrentPlayer = resolveOwner(current, myPlayerName)
	}
	return ev
}

func intParam(raw eventXML, name string) int {
	v, ok := raw.param(name)
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

func splitNonEmpty(s, sep string) []string {
	var out []string
	for _, part := range strings.Split(s, sep) {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// powerArrayFrom builds a dense, 0-based power array from the sparse
// "_N" attribute set, leaving unreported indices at 0 (which reads the
// same as "no contribution" under the power-clamping query rules).
func powerArrayFrom(attrs []xml.Attr) []int {
	max := -1
	indexed := map[int]int{}
	for _, a := range attrs {
		name := a.Name.Local
		if !strings.HasPrefix(name, "_") {
			continue
		}
		idx, err := strconv.Atoi(name[1:])
		if err != nil {
			continue
		}
		val, err := strconv.Atoi(a.Value)
		if err != nil {
			continue
		}
		indexed[idx] = val
		if idx > max {
			max = idx
		}
	}
	if max < 0 {
		return nil
	}
	out := make([]int, max+1)
	for idx, val := range indexed {
		out[idx] = val
	}
	return out
}

// resolveOwner maps a raw server-reported owner/player string onto the
// two-sided Owner enum. The server may report either the literal "me" /
// "opponent" or the actual player name; an exact case-insensitive match
// against myPlayerName is treated as "me", and everything else (including
// an empty or unrecognized value) defaults to "opponent" since a two-player
// game has no third side.
func resolveOwner(raw, myPlayerName string) board.Owner {
	lower := strings.ToLower(strings.TrimSpace(raw))
	if lower == "" {
		return board.OwnerOpponent
	}
	if lower == "me" || lower == "my" {
		return board.OwnerMe
	}
	if lower == "opponent" {
		return board.OwnerOpponent
	}
	if myPlayerName != "" && strings.EqualFold(raw, myPlayerName) {
		return board.OwnerMe
	}
	return board.OwnerOpponent
}

func isMySide(player, myPlayerName string) bool {
	return resolveOwner(player, myPlayerName) == board.OwnerMe
}

func decisionFromXML(ge geXML) decision.RawRequest {
	req := decision.RawRequest{
		DecisionID: ge.ID,
		Type:       decision.Type(ge.DecisionType),
		Prompt:     ge.Text,
		NoPass:     strings.EqualFold(ge.NoPass, "true"),
	}
	if ge.DefaultValue != "" {
		v := ge.DefaultValue
		req.DefaultValue = &v
	}

	hasSelectableAttr := false
	for _, o := range ge.Options {
		opt := decision.RawOption{OptionID: o.ID, DisplayText: o.Text, CardID: o.CardID}
		if o.TargetLocationIndex != "" {
			if idx, err := strconv.Atoi(o.TargetLocationIndex); err == nil {
				opt.TargetLocationIndex = &idx
			}
		}
		if o.IntegerMin != "" && o.IntegerMax != "" {
			min, errMin := strconv.Atoi(o.IntegerMin)
			max, errMax := strconv.Atoi(o.IntegerMax)
			if errMin == nil && errMax == nil {
				opt.IntegerRange = &[2]int{min, max}
			}
		}
		req.Options = append(req.Options, opt)

		if o.Selectable != "" {
			hasSelectableAttr = true
		}
	}

	if hasSelectableAttr {
		req.Selectable = make([]bool, len(ge.Options))
		for i, o := range ge.Options {
			// Absent per-option selectable attribute defaults to
			// selectable=true once any sibling option carries the
			// attribute at all.
			req.Selectable[i] = o.Selectable == "" || strings.EqualFold(o.Selectable, "true")
		}
	}

	return req
}
