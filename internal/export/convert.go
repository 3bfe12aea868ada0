package export

import (
	"errors"
	"fmt"
	"time"

	"github.com/condensedtea/turf-ratings/internal/battle"
	"github.com/samber/lo"
)

func toRecord(m battle.Match) matchRecord {
	return matchRecord{
		Season:      m.Season,
		Period:      m.Period,
		GameVersion: m.GameVersion,
		Lobby:       string(m.Lobby),
		Mode:        string(m.Mode),
		Stage:       string(m.Stage),
		Duration:    int64(m.Duration / time.Second),
		Winner:      string(m.Winner),
		Knockout:    m.Knockout,
		Rank:        string(m.Rank),
		Power:       m.Power,
		Teams: lo.Map(m.Teams[:], func(tc battle.TeamCharacteristics, _ int) teamRecord {
			return teamRecord{
				Team:        string(tc.Team),
				Color:       string(tc.Color),
				Performance: toPerformanceRecord(tc.Performance),
				Theme:       tc.Theme,
			}
		}),
		Participants: lo.Map(m.Participants[:], func(p battle.Participant, _ int) participantRecord {
			return participantRecord{
				Team:            string(p.Team),
				Slot:            p.Slot,
				Loadout:         string(p.Loadout),
				KillsAndAssists: p.KillsAndAssists,
				Kills:           p.Kills,
				Assists:         p.Assists,
				Deaths:          p.Deaths,
				SpecialUses:     p.SpecialUses,
				TurfInked:       p.TurfInked,
				Abilities: lo.MapKeys(p.Abilities, func(_ float64, k battle.AbilityKey) string {
					return string(k)
				}),
			}
		}),
		Medals: lo.Map(m.Medals, func(md battle.Medal, _ int) medalRecord {
			return medalRecord{Name: md.Name, Grade: string(md.Grade)}
		}),
		Event: m.EventName,
	}
}

func toPerformanceRecord(p battle.Performance) *performanceRecord {
	switch p := p.(type) {
	case battle.RankedPerformance:
		return &performanceRecord{Count: &p.Count}
	case battle.TurfWarPerformance:
		return &performanceRecord{Inked: p.Inked, InkedPercent: &p.InkedPercent}
	}
	return nil
}

// fromRecord rebuilds a match. Keys go through v again so a stale export is
// caught against the current catalog; the shape is checked too: both teams
// and every (team, slot) exactly once.
func fromRecord(v battle.Validator, rec matchRecord) (battle.Match, error) {
	var errs []error
	check := func(field string, err error) {
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", field, err))
		}
	}

	m := battle.Match{
		Season:      rec.Season,
		Period:      rec.Period,
		GameVersion: rec.GameVersion,
		Duration:    time.Duration(rec.Duration) * time.Second,
		Knockout:    rec.Knockout,
		Power:       rec.Power,
		EventName:   rec.Event,
	}

	var err error
	m.Winner, err = battle.ParseTeam(rec.Winner)
	check("winner", err)
	m.Lobby, err = v.Lobby(rec.Lobby)
	check("lobby", err)
	m.Mode, err = v.Mode(rec.Mode)
	check("mode", err)
	m.Stage, err = v.Stage(rec.Stage)
	check("stage", err)
	m.Rank, err = battle.ParseRank(rec.Rank)
	check("rank", err)

	if len(errs) > 0 {
		return battle.Match{}, errors.Join(errs...)
	}

	if len(rec.Teams) != len(m.Teams) {
		return battle.Match{}, fmt.Errorf("expected %d teams, got %d", len(m.Teams), len(rec.Teams))
	}
	for i, tr := range rec.Teams {
		team, err := battle.ParseTeam(tr.Team)
		if err != nil || team != battle.Teams[i] {
			return battle.Match{}, fmt.Errorf("team %d: unexpected team %q", i, tr.Team)
		}

		var color battle.Color
		if tr.Color != "" {
			if color, err = battle.ParseColor(tr.Color); err != nil {
				return battle.Match{}, fmt.Errorf("team %s: color: %w", team, err)
			}
		}

		m.Teams[i] = battle.TeamCharacteristics{
			Team:        team,
			Color:       color,
			Performance: fromPerformanceRecord(tr.Performance),
			Theme:       tr.Theme,
		}
	}

	if len(rec.Participants) != len(m.Participants) {
		return battle.Match{}, fmt.Errorf("expected %d participants, got %d", len(m.Participants), len(rec.Participants))
	}
	for i, pr := range rec.Participants {
		wantTeam, wantSlot := battle.Teams[i/battle.TeamSize], i%battle.TeamSize+1
		if pr.Team != string(wantTeam) || pr.Slot != wantSlot {
			return battle.Match{}, fmt.Errorf("participant %d: got %s%d, want %s%d", i, pr.Team, pr.Slot, wantTeam, wantSlot)
		}

		p, err := fromParticipantRecord(v, pr, wantTeam)
		if err != nil {
			return battle.Match{}, fmt.Errorf("participant %s: %w", p.ID(), err)
		}
		m.Participants[i] = p
	}

	for _, mr := range rec.Medals {
		grade, err := battle.ParseMedalGrade(mr.Grade)
		if err != nil {
			return battle.Match{}, fmt.Errorf("medal %q: %w", mr.Name, err)
		}
		m.Medals = append(m.Medals, battle.Medal{Name: mr.Name, Grade: grade})
	}

	return m, nil
}

func fromParticipantRecord(v battle.Validator, pr participantRecord, team battle.Team) (battle.Participant, error) {
	p := battle.Participant{
		Team:            team,
		Slot:            pr.Slot,
		KillsAndAssists: pr.KillsAndAssists,
		Kills:           pr.Kills,
		Assists:         pr.Assists,
		Deaths:          pr.Deaths,
		SpecialUses:     pr.SpecialUses,
		TurfInked:       pr.TurfInked,
		Abilities:       make(map[battle.AbilityKey]float64, len(pr.Abilities)),
	}

	loadout, err := v.Loadout(pr.Loadout)
	if err != nil {
		return p, fmt.Errorf("loadout: %w", err)
	}
	p.Loadout = loadout

	for key, weight := range pr.Abilities {
		ability, err := v.Ability(key)
		if err != nil {
			return p, fmt.Errorf("ability: %w", err)
		}
		p.Abilities[ability] = weight
	}

	return p, nil
}

func fromPerformanceRecord(p *performanceRecord) battle.Performance {
	switch {
	case p == nil:
		return nil
	case p.Count != nil:
		return battle.RankedPerformance{Count: *p.Count}
	case p.InkedPercent != nil:
		return battle.TurfWarPerformance{Inked: p.Inked, InkedPercent: *p.InkedPercent}
	}
	return nil
}
