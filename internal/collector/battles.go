package collector

import (
	"time"

	"github.com/condensedtea/turf-ratings/internal/battle"
	"github.com/condensedtea/turf-ratings/internal/db"
	"github.com/condensedtea/turf-ratings/internal/rating"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

func toBattle(runID uuid.UUID, row int64, m battle.Match) db.Battle {
	return db.Battle{
		RunID:    runID,
		Row:      row,
		Period:   m.Period,
		Lobby:    string(m.Lobby),
		Mode:     string(m.Mode),
		Stage:    string(m.Stage),
		Duration: int64(m.Duration / time.Second),
		Winner:   string(m.Winner),
		Knockout: m.Knockout,
		Rank:     string(m.Rank),
		Power:    m.Power,
		Participants: lo.Map(m.Participants[:], func(p battle.Participant, _ int) db.BattleParticipant {
			return db.BattleParticipant{
				Team:            string(p.Team),
				Slot:            p.Slot,
				Loadout:         string(p.Loadout),
				KillsAndAssists: p.KillsAndAssists,
				Kills:           p.Kills,
				Assists:         p.Assists,
				Deaths:          p.Deaths,
				SpecialUses:     p.SpecialUses,
				TurfInked:       p.TurfInked,
			}
		}),
	}
}

func toLoadoutRating(r rating.Rating) db.LoadoutRating {
	return db.LoadoutRating{
		Mode:             string(r.Mode),
		Loadout:          string(r.Loadout),
		Rating:           r.Mu,
		UncertaintyValue: r.Sigma,
		GamesPlayed:      r.Played,
		GamesWon:         r.Won,
	}
}
