// Package battle decodes stat.ink Splatoon 3 battle export rows into validated
// match records.
//
// Every value produced by this package has passed validation: key types can only
// be obtained through the Parse functions or a Validator, and a Match is only
// returned when every participant, team and top level field of its row decoded
// cleanly. Matches are plain values and are not mutated after decoding.
package battle

import (
	"fmt"
	"time"

	"github.com/condensedtea/turf-ratings/internal/catalog"
)

type (
	LoadoutKey string
	AbilityKey string
	StageKey   string
	LobbyKey   string
	ModeKey    string
	Rank       string
	Color      string
	MedalGrade string
)

type Team string

const (
	Alpha Team = "alpha"
	Bravo Team = "bravo"
)

// Teams lists both teams in column order.
var Teams = [2]Team{Alpha, Bravo}

const (
	Gold   MedalGrade = "gold"
	Silver MedalGrade = "silver"
)

// TeamSize is the number of participants on each team.
const TeamSize = 4

func (t Team) index() int {
	if t == Bravo {
		return 1
	}
	return 0
}

// Letter is the participant column prefix for the team: "A" or "B".
func (t Team) Letter() string {
	if t == Bravo {
		return "B"
	}
	return "A"
}

// Opponent returns the other team.
func (t Team) Opponent() Team {
	if t == Bravo {
		return Alpha
	}
	return Bravo
}

// Match is one decoded battle.
type Match struct {
	Season      string
	Period      time.Time
	GameVersion string
	Lobby       LobbyKey
	Mode        ModeKey
	Stage       StageKey
	Duration    time.Duration
	Winner      Team
	Knockout    bool
	// Rank is empty for unranked battles.
	Rank Rank
	// Power is nil when the export carries no power value.
	Power *float64

	Teams        [2]TeamCharacteristics
	Participants [2 * TeamSize]Participant
	Medals       []Medal
	// EventName is empty outside of challenge events.
	EventName string
}

// Team returns the characteristics of team t.
func (m Match) Team(t Team) TeamCharacteristics {
	return m.Teams[t.index()]
}

// Participant returns the participant in slot 1..4 of team t.
func (m Match) Participant(t Team, slot int) Participant {
	return m.Participants[t.index()*TeamSize+slot-1]
}

// TeamParticipants returns the four participants of team t in slot order.
func (m Match) TeamParticipants(t Team) []Participant {
	start := t.index() * TeamSize
	return m.Participants[start : start+TeamSize]
}

type Participant struct {
	Team            Team
	Slot            int
	Loadout         LoadoutKey
	KillsAndAssists int
	Kills           int
	Assists         int
	Deaths          int
	SpecialUses     int
	TurfInked       int
	Abilities       map[AbilityKey]float64
}

// ID is the column prefix of the participant, e.g. "A1" or "B4".
func (p Participant) ID() string {
	return participantID(p.Team, p.Slot)
}

// CanonicalLoadout resolves reskinned loadouts to the loadout they are a variant of.
func (p Participant) CanonicalLoadout(c *catalog.Catalog) LoadoutKey {
	return LoadoutKey(c.Canonical(string(p.Loadout)))
}

func participantID(t Team, slot int) string {
	return fmt.Sprintf("%s%d", t.Letter(), slot)
}

type TeamCharacteristics struct {
	Team Team
	// Color is empty when the export has no color for the team.
	Color Color
	// Performance is nil, RankedPerformance or TurfWarPerformance.
	Performance Performance
	// Theme is the splatfest team name, empty outside splatfest battles.
	Theme string
}

// Performance is the team result recorded for the battle's mode.
type Performance interface {
	performance()
}

// RankedPerformance is the objective count of a ranked mode battle.
type RankedPerformance struct {
	Count int
}

// TurfWarPerformance is the inked area result of a turf war battle.
type TurfWarPerformance struct {
	// Inked is nil when only the percentage was exported.
	Inked        *int
	InkedPercent float64
}

func (RankedPerformance) performance()  {}
func (TurfWarPerformance) performance() {}

type Medal struct {
	Name  string
	Grade MedalGrade
}
