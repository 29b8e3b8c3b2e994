package card

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/swccgarena/gemp-bot/internal/util"
)

// rawCard mirrors the on-disk JSON shape of a single blueprint entry. Fields
// are loosely typed because the two corpora (light/dark) are maintained
// independently upstream and do not guarantee every optional field is
// present for every card.
type rawCard struct {
	BlueprintID       string   `json:"blueprintId"`
	Title             string   `json:"title"`
	Side              string   `json:"side"`
	Type              string   `json:"type"`
	SubType           string   `json:"subType"`
	Power             *int     `json:"power"`
	Ability           *int     `json:"ability"`
	Deploy            *int     `json:"deploy"`
	Forfeit           *int     `json:"forfeit"`
	Destiny           *int     `json:"destiny"`
	Icons             []string `json:"icons"`
	Characteristics   []string `json:"characteristics"`
	GameText          string   `json:"gametext"`
	IsUnique          bool     `json:"isUnique"`
	IsDefensiveShield bool     `json:"isDefensiveShield"`
}

// Registry is an immutable, read-only lookup from blueprint identifier to
// Card. It is built once at process start and never mutated afterward.
type Registry struct {
	byBlueprint map[string]*Card
}

// LoadDir scans dir for *.json corpus files (conventionally one per side)
// and builds a Registry from their combined contents. A blueprint id
// appearing in more than one file is overwritten by the later file in
// directory-listing order; corpora are expected not to collide in
// practice.
func LoadDir(dir string) (*Registry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, util.Wrap(err, "read card_json_dir")
	}

	reg := &Registry{byBlueprint: make(map[string]*Card)}
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".json") {
			continue
		}
		if err := reg.loadFile(filepath.Join(dir, entry.Name())); err != nil {
			return nil, util.Wrap(err, "load corpus "+entry.Name())
		}
	}
	return reg, nil
}

func (r *Registry) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var raws []rawCard
	if err := json.Unmarshal(data, &raws); err != nil {
		return err
	}

	for i := range raws {
		c := fromRaw(&raws[i])
		if c.BlueprintID == "" {
			continue
		}
		r.byBlueprint[c.BlueprintID] = c
	}
	return nil
}

func fromRaw(raw *rawCard) *Card {
	return &Card{
		BlueprintID:       raw.BlueprintID,
		Title:             raw.Title,
		Side:              Side(strings.ToLower(raw.Side)),
		Type:              Type(strings.ToLower(raw.Type)),
		SubType:           raw.SubType,
		Power:             raw.Power,
		Ability:           raw.Ability,
		Deploy:            raw.Deploy,
		Forfeit:           raw.Forfeit,
		Destiny:           raw.Destiny,
		Icons:             raw.Icons,
		Characteristics:   raw.Characteristics,
		GameText:          raw.GameText,
		IsUnique:          raw.IsUnique,
		IsDefensiveShield: raw.IsDefensiveShield,
		DeployRestriction: parseDeployRestriction(raw.GameText),
	}
}

// parseDeployRestriction extracts system names from a "Deploys only on X
// [and|or] Y" gametext clause. Unrecognized phrasing yields no restriction,
// which is the safe (unrestricted) default.
func parseDeployRestriction(text string) []string {
	const marker = "deploys only on "
	lower := strings.ToLower(text)
	idx := strings.Index(lower, marker)
	if idx < 0 {
		return nil
	}
	rest := text[idx+len(marker):]
	if end := strings.IndexAny(rest, ".;"); end >= 0 {
		rest = rest[:end]
	}
	rest = strings.ReplaceAll(rest, " or ", ",")
	rest = strings.ReplaceAll(rest, " and ", ",")
	parts := strings.Split(rest, ",")
	systems := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			systems = append(systems, p)
		}
	}
	return systems
}

// Lookup returns the Card for blueprintID, or nil if unknown. Callers must
// treat a nil result as "use blueprintID as the display string".
func (r *Registry) Lookup(blueprintID string) *Card {
	if r == nil {
		return nil
	}
	return r.byBlueprint[blueprintID]
}

// MustLookup returns the Card for blueprintID, panicking if it is unknown.
// It exists for process-init smoke tests (e.g. verifying a brain's
// hard-coded reference cards loaded correctly) and must never be called
// from the hot decision/event path, where Lookup's nil-safe result is
// required instead.
func (r *Registry) MustLookup(blueprintID string) *Card {
	c := r.Lookup(blueprintID)
	if c == nil {
		panic("card: unknown blueprint id " + blueprintID)
	}
	return c
}

// Size returns the number of loaded blueprints.
func (r *Registry) Size() int {
	if r == nil {
		return 0
	}
	return len(r.byBlueprint)
}

// DisplayTitle returns the card's title if known, else the blueprint id
// itself.
func (r *Registry) DisplayTitle(blueprintID string) string {
	if c := r.Lookup(blueprintID); c != nil && c.Title != "" {
		return c.Title
	}
	return blueprintID
}
