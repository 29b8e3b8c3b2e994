package event

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/swccgarena/gemp-bot/internal/board"
	"github.com/swccgarena/gemp-bot/internal/card"
)

func testRegistry(t *testing.T) *card.Registry {
	t.Helper()
	dir := t.TempDir()
	body := `[
		{"blueprintId":"L42","title":"Yavin 4: Massassi Throne Room","side":"Light","type":"Location","subType":"Site"},
		{"blueprintId":"1_1","title":"Luke Skywalker","side":"Light","type":"Character","power":3}
	]`
	if err := os.WriteFile(filepath.Join(dir, "corpus.json"), []byte(body), 0o600); err != nil {
		t.Fatalf("write corpus: %v", err)
	}
	reg, err := card.LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	return reg
}

func intPtr(i int) *int { return &i }
func strPtr(s string) *string { return &s }

func TestPlaceholderSafety(t *testing.T) {
	reg := testRegistry(t)
	p := &Processor{Registry: reg}
	s := board.New()

	out1 := p.Apply(s, Event{
		Tag: TagPutCardInPlay, CardID: "c1", BlueprintID: "1_1",
		Owner: board.OwnerMe, Zone: board.ZoneAtLocation, LocationIndex: intPtr(2),
	})
	if !out1.Applied {
		t.Fatalf("expected c1 placement to apply, reason=%q", out1.Reason)
	}

	loc := s.LocationByIndex(2)
	if loc == nil || !loc.Placeholder {
		t.Fatalf("expected placeholder location at 2, got %+v", loc)
	}
	if len(loc.MyCards) != 1 || loc.MyCards[0] != "c1" {
		t.Fatalf("expected c1 in MyCards, got %v", loc.MyCards)
	}

	out2 := p.Apply(s, Event{
		Tag: TagPutCardInPlay, CardID: "loc", BlueprintID: "L42",
		Owner: board.OwnerMe, Zone: board.ZoneAtLocation, LocationIndex: intPtr(2),
	})
	if !out2.Applied {
		t.Fatalf("expected location event to apply, reason=%q", out2.Reason)
	}

	loc = s.LocationByIndex(2)
	if loc.Placeholder {
		t.Fatal("expected placeholder to be resolved")
	}
	if loc.Title != "Yavin 4: Massassi Throne Room" {
		t.Errorf("Title = %q", loc.Title)
	}
	if len(loc.MyCards) != 1 || loc.MyCards[0] != "c1" {
		t.Errorf("expected c1 to remain sole MyCards entry, got %v", loc.MyCards)
	}
}

func TestZoneConservationAcrossMove(t *testing.T) {
	reg := testRegistry(t)
	p := &Processor{Registry: reg}
	s := board.New()

	p.Apply(s, Event{Tag: TagPutCardInPlay, CardID: "c1", BlueprintID: "1_1", Owner: board.OwnerMe, Zone: board.ZoneAtLocation, LocationIndex: intPtr(0)})
	p.Apply(s, Event{Tag: TagMoveCardInPlay, CardID: "c1", BlueprintID: "1_1", Owner: board.OwnerMe, Zone: board.ZoneAtLocation, LocationIndex: intPtr(1)})

	loc0 := s.LocationByIndex(0)
	loc1 := s.LocationByIndex(1)
	if contains(loc0.MyCards, "c1") {
		t.Error("c1 should no longer be at location 0")
	}
	if !contains(loc1.MyCards, "c1") {
		t.Error("c1 should be at location 1")
	}

	occurrences := 0
	for _, l := range []*board.LocationInPlay{loc0, loc1} {
		if contains(l.MyCards, "c1") {
			occurrences++
		}
	}
	if occurrences != 1 {
		t.Errorf("expected exactly 1 occurrence of c1 across locations, got %d", occurrences)
	}
}

func contains(list []string, id string) bool {
	for _, v := range list {
		if v == id {
			return true
		}
	}
	return false
}

func TestAttachmentSymmetryAndRemoval(t *testing.T) {
	reg := testRegistry(t)
	p := &Processor{Registry: reg}
	s := board.New()

	p.Apply(s, Event{Tag: TagPutCardInPlay, CardID: "host", BlueprintID: "1_1", Owner: board.OwnerMe, Zone: board.ZoneAtLocation, LocationIndex: intPtr(0)})
	p.Apply(s, Event{Tag: TagPutCardInPlay, CardID: "weapon", BlueprintID: "1_1", Owner: board.OwnerMe, Zone: board.ZoneAtLocation, LocationIndex: intPtr(0), AttachedTo: strPtr("host")})

	host := s.CardByID("host")
	weapon := s.CardByID("weapon")
	if weapon.AttachedTo == nil || *weapon.AttachedTo != "host" {
		t.Fatalf("expected weapon.AttachedTo = host, got %+v", weapon.AttachedTo)
	}
	if !contains(host.Attachments, "weapon") {
		t.Fatalf("expected host.Attachments to contain weapon, got %v", host.Attachments)
	}

	p.Apply(s, Event{Tag: TagRemoveCardInPlay, CardID: "weapon", Zone: board.ZoneUsedPile})

	host = s.CardByID("host")
	weapon = s.CardByID("weapon")
	if weapon.AttachedTo != nil {
		t.Error("expected weapon.AttachedTo to be cleared after removal")
	}
	if contains(host.Attachments, "weapon") {
		t.Error("expected host.Attachments to no longer contain weapon")
	}
}

func TestSelfAttachmentRejected(t *testing.T) {
	reg := testRegistry(t)
	p := &Processor{Registry: reg}
	s := board.New()

	p.Apply(s, Event{Tag: TagPutCardInPlay, CardID: "c1", BlueprintID: "1_1", Owner: board.OwnerMe, Zone: board.ZoneAtLocation, LocationIndex: intPtr(0)})
	out := p.Apply(s, Event{Tag: TagMoveCardInPlay, CardID: "c1", BlueprintID: "1_1", Owner: board.OwnerMe, Zone: board.ZoneAtLocation, LocationIndex: intPtr(0), AttachedTo: strPtr("c1")})
	if out.Applied {
		t.Fatal("expected self-attachment to be rejected")
	}
	if s.CardByID("c1").AttachedTo != nil {
		t.Error("expected c1.AttachedTo to remain nil after rejected self-attach")
	}
}

func TestCycleAttachmentRejected(t *testing.T) {
	reg := testRegistry(t)
	p := &Processor{Registry: reg}
	s := board.New()

	p.Apply(s, Event{Tag: TagPutCardInPlay, CardID: "a", BlueprintID: "1_1", Owner: board.OwnerMe, Zone: board.ZoneAtLocation, LocationIndex: intPtr(0)})
	p.Apply(s, Event{Tag: TagPutCardInPlay, CardID: "b", BlueprintID: "1_1", Owner: board.OwnerMe, Zone: board.ZoneAtLocation, LocationIndex: intPtr(0), AttachedTo: strPtr("a")})

	out := p.Apply(s, Event{Tag: TagMoveCardInPlay, CardID: "a", BlueprintID: "1_1", Owner: board.OwnerMe, Zone: board.ZoneAtLocation, LocationIndex: intPtr(0), AttachedTo: strPtr("b")})
	if out.Applied {
		t.Fatal("expected cyclic attachment (a->b->a) to be rejected")
	}
}

func TestUnknownCardIDOnRemoveIsFirstSighting(t *testing.T) {
	reg := testRegistry(t)
	p := &Processor{Registry: reg}
	s := board.New()

	out := p.Apply(s, Event{Tag: TagRemoveCardInPlay, CardID: "ghost", BlueprintID: "1_1", Zone: board.ZoneUsedPile})
	if !out.Applied {
		t.Fatalf("expected unknown card_id remove to be applied as first sighting, reason=%q", out.Reason)
	}
	if s.CardByID("ghost") == nil {
		t.Error("expected ghost card to now exist in state")
	}
}

func TestGameStateOverwritesPowerWholesale(t *testing.T) {
	p := &Processor{Registry: testRegistry(t)}
	s := board.New()

	p.Apply(s, Event{Tag: TagGameState, MyPower: []int{1, 2}, TheirPower: []int{-1, -1}})
	p.Apply(s, Event{Tag: TagGameState, MyPower: []int{5}, TheirPower: []int{3}})

	if s.MyPowerAt(0) != 5 {
		t.Errorf("MyPowerAt(0) = %d, want 5 (overwritten, not accumulated)", s.MyPowerAt(0))
	}
	if s.LocationCount() != 0 {
		t.Errorf("LocationCount() = %d, want 0; power arrays must not create locations", s.LocationCount())
	}
}

func TestDeploymentPlanCouplingHookFires(t *testing.T) {
	reg := testRegistry(t)
	var notified []string
	p := &Processor{Registry: reg, OnMyCardDeployed: func(cardID, blueprintID string) {
		notified = append(notified, cardID)
	}}
	s := board.New()

	p.Apply(s, Event{Tag: TagPutCardInPlay, CardID: "ship1", BlueprintID: "1_1", Owner: board.OwnerMe, Zone: board.ZoneAtLocation, LocationIndex: intPtr(0)})
	if len(notified) != 1 || notified[0] != "ship1" {
		t.Fatalf("expected hook to fire once for ship1, got %v", notified)
	}

	// Moving within AT_LOCATION again should not re-fire (wasAtLocation true).
	p.Apply(s, Event{Tag: TagMoveCardInPlay, CardID: "ship1", BlueprintID: "1_1", Owner: board.OwnerMe, Zone: board.ZoneAtLocation, LocationIndex: intPtr(1)})
	if len(notified) != 1 {
		t.Fatalf("expected hook not to re-fire on in-zone move, got %v", notified)
	}
}

func TestGameEndFiresOnce(t *testing.T) {
	reg := testRegistry(t)
	calls := 0
	p := &Processor{Registry: reg, OnGameEnd: func() { calls++ }}
	s := board.New()

	p.Apply(s, Event{Tag: TagGameEnd})
	p.Apply(s, Event{Tag: TagGameEnd})

	if calls != 1 {
		t.Fatalf("expected OnGameEnd to fire exactly once, got %d", calls)
	}
}

func TestUnknownTagIsSkippedNotFatal(t *testing.T) {
	p := &Processor{Registry: testRegistry(t)}
	s := board.New()
	out := p.Apply(s, Event{Tag: "SOMETHING_NEW"})
	if out.Applied {
		t.Fatal("expected unknown tag to be skipped")
	}
	if out.Reason == "" {
		t.Error("expected a reason for skipping")
	}
}
