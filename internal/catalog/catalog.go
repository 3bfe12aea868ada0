// Package catalog holds the reference data the battle decoder validates against:
// loadout (weapon), ability and stage keys in the shape stat.ink publishes them,
// the lobby and mode tables, and the reskin table mapping cosmetic loadout variants
// to their canonical loadout.
//
// A Catalog is built once and never mutated afterwards, so it is safe to share
// between goroutines.
package catalog

import (
	"embed"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/samber/lo"
	"golang.org/x/exp/maps"
)

//go:embed data/*.json
var dataFS embed.FS

var lobbyDescriptions = map[string]string{
	"regular":             "Regular",
	"bankara_challenge":   "Anarchy (Series)",
	"bankara_open":        "Anarchy (Open)",
	"xmatch":              "X Battle",
	"splatfest_challenge": "Splatfest (Pro)",
	"splatfest_open":      "Splatfest (Open)",
	"event":               "Challenge Event",
}

var modeDescriptions = map[string]string{
	"nawabari": "Turf War",
	"area":     "Splat Zones",
	"yagura":   "Tower Control",
	"hoko":     "Rainmaker",
	"asari":    "Clam Blitz",
}

type entry struct {
	Key      string `json:"key"`
	Main     keyRef `json:"main,omitempty"`
	Sub      keyRef `json:"sub,omitempty"`
	Special  keyRef `json:"special,omitempty"`
	ReskinOf keyRef `json:"reskin_of,omitempty"`
}

// keyRef accepts a reference either as a bare key or as an object with a "key"
// field, the way the stat.ink API nests weapons, subs and specials.
type keyRef string

func (r *keyRef) UnmarshalJSON(data []byte) error {
	var key string
	if err := json.Unmarshal(data, &key); err == nil {
		*r = keyRef(key)
		return nil
	}

	var obj *struct {
		Key string `json:"key"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("key reference: %w", err)
	}
	if obj != nil {
		*r = keyRef(obj.Key)
	}
	return nil
}

// kit is what a loadout plays like: its main weapon, sub weapon and special.
// Loadouts sharing a kit only differ cosmetically.
type kit struct {
	main, sub, special string
}

func (k kit) String() string {
	return fmt.Sprintf("(%s, %s, %s)", k.main, k.sub, k.special)
}

type Catalog struct {
	loadouts  map[string]struct{}
	abilities map[string]struct{}
	stages    map[string]struct{}
	reskins   map[string]string
	kits      map[string]kit
}

var defaultCatalog = sync.OnceValue(func() *Catalog {
	c, err := load(dataFS)
	if err != nil {
		panic(fmt.Sprintf("catalog: embedded reference data is broken: %s", err))
	}
	return c
})

// Default returns the process-wide catalog built from the embedded reference data.
func Default() *Catalog {
	return defaultCatalog()
}

func load(fsys embed.FS) (*Catalog, error) {
	weapons, err := fsys.ReadFile("data/weapons.json")
	if err != nil {
		return nil, err
	}
	abilities, err := fsys.ReadFile("data/abilities.json")
	if err != nil {
		return nil, err
	}
	stages, err := fsys.ReadFile("data/stages.json")
	if err != nil {
		return nil, err
	}

	return New(weapons, abilities, stages)
}

// New builds a catalog from stat.ink style JSON arrays of {"key": ...} objects.
// Weapon entries may carry a "reskin_of" key naming their canonical loadout.
func New(weapons, abilities, stages []byte) (*Catalog, error) {
	weaponEntries, err := decodeEntries("weapons", weapons)
	if err != nil {
		return nil, err
	}
	abilityEntries, err := decodeEntries("abilities", abilities)
	if err != nil {
		return nil, err
	}
	stageEntries, err := decodeEntries("stages", stages)
	if err != nil {
		return nil, err
	}

	reskins := make(map[string]string)
	kits := make(map[string]kit)
	for _, e := range weaponEntries {
		if e.ReskinOf != "" {
			reskins[e.Key] = string(e.ReskinOf)
		}
		if e.Main != "" && e.Sub != "" && e.Special != "" {
			kits[e.Key] = kit{main: string(e.Main), sub: string(e.Sub), special: string(e.Special)}
		}
	}

	return &Catalog{
		loadouts:  keySet(weaponEntries),
		abilities: keySet(abilityEntries),
		stages:    keySet(stageEntries),
		reskins:   reskins,
		kits:      kits,
	}, nil
}

func decodeEntries(name string, data []byte) ([]entry, error) {
	var entries []entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", name, err)
	}

	for i, e := range entries {
		if e.Key == "" {
			return nil, fmt.Errorf("decoding %s: entry %d has an empty key", name, i)
		}
	}

	return entries, nil
}

func keySet(entries []entry) map[string]struct{} {
	return lo.SliceToMap(entries, func(e entry) (string, struct{}) {
		return e.Key, struct{}{}
	})
}

func (c *Catalog) IsLoadout(key string) bool {
	_, ok := c.loadouts[key]
	return ok
}

func (c *Catalog) IsAbility(key string) bool {
	_, ok := c.abilities[key]
	return ok
}

func (c *Catalog) IsStage(key string) bool {
	_, ok := c.stages[key]
	return ok
}

func (c *Catalog) IsLobby(key string) bool {
	_, ok := lobbyDescriptions[key]
	return ok
}

func (c *Catalog) IsMode(key string) bool {
	_, ok := modeDescriptions[key]
	return ok
}

// Canonical maps a reskinned loadout to the loadout it is a cosmetic variant of.
// Keys without a reskin entry are returned unchanged.
func (c *Catalog) Canonical(loadout string) string {
	if canonical, ok := c.reskins[loadout]; ok {
		return canonical
	}
	return loadout
}

// Loadouts returns every known loadout key in sorted order.
func (c *Catalog) Loadouts() []string {
	keys := maps.Keys(c.loadouts)
	sort.Strings(keys)
	return keys
}

// ReskinProblems lists inconsistencies of the reskin table: entries pointing
// at an unknown loadout or at another reskin, loadouts sharing a kit with
// others that no reskin entry links, and reskins whose canonical loadout has a
// different kit. A consistent catalog returns nothing.
func (c *Catalog) ReskinProblems() []string {
	var problems []string
	for key, target := range c.reskins {
		switch {
		case !c.IsLoadout(target):
			problems = append(problems, fmt.Sprintf("%s is a reskin of unknown loadout %s", key, target))
		case c.reskins[target] != "":
			problems = append(problems, fmt.Sprintf("%s is a reskin of %s which is itself a reskin", key, target))
		}
	}

	targets := lo.SliceToMap(lo.Values(c.reskins), func(t string) (string, struct{}) {
		return t, struct{}{}
	})

	identical := lo.GroupBy(maps.Keys(c.kits), func(key string) kit { return c.kits[key] })
	for k, keys := range identical {
		if len(keys) < 2 {
			continue
		}
		sort.Strings(keys)

		for _, key := range keys {
			if target, ok := c.reskins[key]; ok {
				if lo.Contains(keys, target) {
					continue
				}
				problems = append(problems, fmt.Sprintf("%s is a reskin of %s which is not among its identical loadouts %v", key, target, keys))
			}
			if _, ok := targets[key]; ok {
				continue
			}
			others := lo.Without(keys, key)
			problems = append(problems, fmt.Sprintf("%s shares kit %s with %v but has no reskin entry", key, k, others))
		}
	}

	sort.Strings(problems)
	return problems
}

func LobbyDescription(key string) string {
	return lobbyDescriptions[key]
}

func ModeDescription(key string) string {
	return modeDescriptions[key]
}

// Modes returns the mode keys in sorted order.
func Modes() []string {
	keys := maps.Keys(modeDescriptions)
	sort.Strings(keys)
	return keys
}
