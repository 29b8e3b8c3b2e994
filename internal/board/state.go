package board

import (
	"strconv"
	"sync"
)

// Phase is the current game phase as reported by the server.
type Phase string

// ZoneState holds the per-side pile sizes and ordered hand for one player.
type ZoneState struct {
	Hand []string // card_ids, ordered

	ForcePileSize   int
	UsedPileSize    int
	LostPileSize    int
	ReserveDeckSize int
	OutOfPlaySize   int
}

// BoardState is the canonical in-memory game state, mutated only by the
// event processor and read by the decision pipeline and admin
// observers. All mutation happens at event-batch boundaries;
// the mutex here exists to let admin reads (Snapshot) race safely against
// the worker goroutine rather than to express fine-grained concurrency.
type BoardState struct {
	mu sync.RWMutex

	Cards     map[string]*CardInPlay // card_id -> instance
	Locations []*LocationInPlay      // indexed by location_index

	MyZones    ZoneState
	TheirZones ZoneState

	// MyPower / TheirPower are authoritative per-location arrays as last
	// reported by a GAME_STATE event; they are overwritten wholesale, never
	// accumulated.
	MyPower    []int
	TheirPower []int

	CurrentPhase  Phase
	TurnNumber    int
	CurrentPlayer Owner

	MyPlayerName string
	OpponentName string
	MySide       string

	Plan *DeploymentPlanView

	GameEndSeen bool

	// Won is set once GAME_END reports an explicit winner; nil means the
	// event stream has not (yet) told us who won. When this is still nil at
	// game end (the stream ended without GAME_END, or GAME_END named no
	// winner), the worker falls back to pile-emptiness inference.
	Won *bool
}

// DeploymentPlanView is the read-only projection of the in-flight
// deployment plan exposed to queries; the authoritative plan lives in
// package deploy. No code in this module sets BoardState.Plan, so it
// stays nil, and Snapshot does not copy it.
type DeploymentPlanView struct {
	InstructionCount int
	NextCardID       string
}

// New creates an empty BoardState ready for the event processor to fold
// into.
func New() *BoardState {
	return &BoardState{
		Cards:     make(map[string]*CardInPlay),
		Locations: nil,
	}
}

// WithLock runs fn while holding the write lock. The event processor uses
// this to guarantee an event is applied fully or not at all.
func (s *BoardState) WithLock(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn()
}

// EnsureLocation returns the LocationInPlay at index i, creating a
// placeholder if it does not yet exist. Callers must already
// hold the write lock (via WithLock).
func (s *BoardState) EnsureLocation(index int) *LocationInPlay {
	for len(s.Locations) <= index {
		i := len(s.Locations)
		s.Locations = append(s.Locations, &LocationInPlay{
			LocationIndex: i,
			Title:         placeholderTitle(i),
			Placeholder:   true,
			IsGround:      false,
		})
	}
	return s.Locations[index]
}

// LocationUnsafe returns the LocationInPlay at index i without locking; it
// is for use by callers that already hold the write lock via WithLock
// (e.g. the event processor).
func (s *BoardState) LocationUnsafe(i int) *LocationInPlay {
	if i < 0 || i >= len(s.Locations) {
		return nil
	}
	return s.Locations[i]
}

func placeholderTitle(i int) string {
	return "Location " + strconv.Itoa(i)
}

// Snapshot returns a deep copy of the current state for admin/observer
// consumption: observers receive snapshots, never direct references.
func (s *BoardState) Snapshot() *BoardState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := &BoardState{
		Cards:         make(map[string]*CardInPlay, len(s.Cards)),
		Locations:     make([]*LocationInPlay, len(s.Locations)),
		MyZones:       cloneZoneState(s.MyZones),
		TheirZones:    cloneZoneState(s.TheirZones),
		MyPower:       append([]int(nil), s.MyPower...),
		TheirPower:    append([]int(nil), s.TheirPower...),
		CurrentPhase:  s.CurrentPhase,
		TurnNumber:    s.TurnNumber,
		CurrentPlayer: s.CurrentPlayer,
		MyPlayerName:  s.MyPlayerName,
		OpponentName:  s.OpponentName,
		MySide:        s.MySide,
		GameEndSeen:   s.GameEndSeen,
		Won:           s.Won,
	}
	for id, c := range s.Cards {
		cc := *c
		cc.Attachments = append([]string(nil), c.Attachments...)
		out.Cards[id] = &cc
	}
	for i, loc := range s.Locations {
		ll := *loc
		ll.MyCards = append([]string(nil), loc.MyCards...)
		ll.TheirCards = append([]string(nil), loc.TheirCards...)
		out.Locations[i] = &ll
	}
	return out
}

func cloneZoneState(z ZoneState) ZoneState {
	z.Hand = append([]string(nil), z.Hand...)
	return z
}
