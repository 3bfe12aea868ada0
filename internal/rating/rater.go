package rating

import (
	"context"
	"fmt"
	"sort"

	"github.com/condensedtea/turf-ratings/internal/battle"
	"github.com/condensedtea/turf-ratings/internal/catalog"
	"github.com/eullerpereira94/openskill"
	"github.com/samber/lo"
)

const (
	defaultMu    = 16.0
	defaultSigma = defaultMu / 3.0
)

const (
	ResultWin  = "win"
	ResultLoss = "loss"
)

// Rating is the strength estimate of a canonical loadout in one mode.
type Rating struct {
	Mode    battle.ModeKey
	Loadout battle.LoadoutKey

	Mu     float64
	Sigma  float64
	Played int64
	Won    int64
}

type ratingKey struct {
	mode    battle.ModeKey
	loadout battle.LoadoutKey
}

// Update is the change a single match made to one loadout's rating.
type Update struct {
	Rating Rating
	Diff   float64
	Result string
}

// Rater keeps openskill ratings of loadouts per mode. Reskinned loadouts are
// rated as their canonical loadout.
type Rater struct {
	cat     *catalog.Catalog
	ratings map[ratingKey]Rating
}

func NewRater(cat *catalog.Catalog) *Rater {
	return &Rater{cat: cat, ratings: make(map[ratingKey]Rating)}
}

// Seed replaces the current ratings of the given loadouts, e.g. with ratings
// loaded from storage before rating new matches.
func (r *Rater) Seed(ratings []Rating) {
	for _, rt := range ratings {
		r.ratings[ratingKey{rt.Mode, rt.Loadout}] = rt
	}
}

func (r *Rater) get(mode battle.ModeKey, loadout battle.LoadoutKey) Rating {
	if rt, ok := r.ratings[ratingKey{mode, loadout}]; ok {
		return rt
	}
	return Rating{Mode: mode, Loadout: loadout, Mu: defaultMu, Sigma: defaultSigma}
}

// Rating returns the current rating of a loadout in a mode. Loadouts that were
// never rated start at the default rating.
func (r *Rater) Rating(mode battle.ModeKey, loadout battle.LoadoutKey) Rating {
	return r.get(mode, loadout)
}

// Rate applies one match and returns the updates it caused, one per loadout and
// team. A loadout fielded several times by the same team gets the mean of the
// individual updates.
func (r *Rater) Rate(m battle.Match) []Update {
	teams := lo.Map(battle.Teams[:], func(t battle.Team, _ int) openskill.Team {
		ratings := lo.Map(m.TeamParticipants(t), func(p battle.Participant, _ int) *openskill.Rating {
			cur := r.get(m.Mode, p.CanonicalLoadout(r.cat))
			return openskill.NewRating(&openskill.NewRatingParams{
				AveragePlayerSkill:     cur.Mu,
				SkillUncertaintyDegree: cur.Sigma,
			}, nil)
		})
		return openskill.NewTeam(ratings...)
	})

	scores := lo.Map(battle.Teams[:], func(t battle.Team, _ int) int64 {
		if t == m.Winner {
			return 1
		}
		return 0
	})

	rated := openskill.Rate(teams, openskill.Options{Scores: scores})

	type total struct {
		mu, sigma   float64
		played, won int64
	}
	totals := make(map[battle.LoadoutKey]*total)

	var updates []Update
	for ti, t := range battle.Teams {
		result := ResultLoss
		if t == m.Winner {
			result = ResultWin
		}

		participants := m.TeamParticipants(t)
		grouped := lo.GroupBy(lo.Range(len(participants)), func(slot int) battle.LoadoutKey {
			return participants[slot].CanonicalLoadout(r.cat)
		})

		for _, loadout := range sortedKeys(grouped) {
			slots := grouped[loadout]
			n := float64(len(slots))
			before := r.get(m.Mode, loadout)

			after := before
			after.Mu = lo.SumBy(slots, func(s int) float64 { return rated[ti][s].AveragePlayerSkill }) / n
			after.Sigma = lo.SumBy(slots, func(s int) float64 { return rated[ti][s].SkillUncertaintyDegree }) / n
			after.Played += int64(len(slots))
			if result == ResultWin {
				after.Won += int64(len(slots))
			}

			updates = append(updates, Update{Rating: after, Diff: after.Mu - before.Mu, Result: result})

			tot, ok := totals[loadout]
			if !ok {
				tot = &total{}
				totals[loadout] = tot
			}
			tot.mu += after.Mu * n
			tot.sigma += after.Sigma * n
			tot.played += int64(len(slots))
			tot.won += after.Won - before.Won
		}
	}

	// A loadout fielded by both teams is stored as the mean over all its slots.
	for loadout, tot := range totals {
		rt := r.get(m.Mode, loadout)
		n := float64(tot.played)
		rt.Mu = tot.mu / n
		rt.Sigma = tot.sigma / n
		rt.Played += tot.played
		rt.Won += tot.won
		r.ratings[ratingKey{m.Mode, loadout}] = rt
	}

	return updates
}

func sortedKeys(m map[battle.LoadoutKey][]int) []battle.LoadoutKey {
	keys := lo.Keys(m)
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Ratings returns every rating, grouped by mode and strongest first.
func (r *Rater) Ratings() []Rating {
	ratings := lo.Values(r.ratings)
	sort.Slice(ratings, func(i, j int) bool {
		if ratings[i].Mode != ratings[j].Mode {
			return ratings[i].Mode < ratings[j].Mode
		}
		if ratings[i].Mu != ratings[j].Mu {
			return ratings[i].Mu > ratings[j].Mu
		}
		return ratings[i].Loadout < ratings[j].Loadout
	})
	return ratings
}

// RateAll rates every match of src in order and returns the number rated.
func (r *Rater) RateAll(ctx context.Context, src Source) (int, error) {
	n := 0
	for m, err := range src.Matches(ctx) {
		if err != nil {
			return n, fmt.Errorf("RateAll: %w", err)
		}
		r.Rate(m)
		n++
	}
	return n, nil
}
