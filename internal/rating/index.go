// Package rating estimates loadout strength from decoded matches.
//
// Two consumers live here: the observation builder, which turns matches into the
// coefficient vectors and alpha-win outcomes a strength model is fitted on, and
// Rater, an openskill based online rating of canonical loadouts per mode.
package rating

import (
	"context"
	"fmt"
	"iter"
	"sort"

	"github.com/condensedtea/turf-ratings/internal/battle"
	"github.com/condensedtea/turf-ratings/internal/catalog"
	"golang.org/x/exp/maps"
)

// Source is a restartable sequence of matches. Every call to Matches starts
// over from the first match.
type Source interface {
	Matches(ctx context.Context) iter.Seq2[battle.Match, error]
}

// Index assigns each canonical loadout seen in a source a position.
type Index struct {
	Keys      []battle.LoadoutKey
	positions map[battle.LoadoutKey]int
}

func NewIndex(keys []battle.LoadoutKey) Index {
	sorted := append([]battle.LoadoutKey(nil), keys...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	positions := make(map[battle.LoadoutKey]int, len(sorted))
	for i, k := range sorted {
		positions[k] = i
	}

	return Index{Keys: sorted, positions: positions}
}

func (i Index) Len() int {
	return len(i.Keys)
}

func (i Index) Position(k battle.LoadoutKey) (int, bool) {
	pos, ok := i.positions[k]
	return pos, ok
}

// LoadoutIndex reads src once and indexes every canonical loadout used.
func LoadoutIndex(ctx context.Context, src Source, cat *catalog.Catalog) (Index, error) {
	seen := make(map[battle.LoadoutKey]struct{})

	for m, err := range src.Matches(ctx) {
		if err != nil {
			return Index{}, fmt.Errorf("LoadoutIndex: %w", err)
		}
		for _, p := range m.Participants {
			seen[p.CanonicalLoadout(cat)] = struct{}{}
		}
	}

	return NewIndex(maps.Keys(seen)), nil
}

// Observations are the model inputs for a set of matches. Row i of X has
// 2*Index.Len() entries: the first half counts alpha's loadouts (+1 each), the
// second half bravo's (-1 each). AlphaWon[i] is 1 when alpha won match i.
type Observations struct {
	X        [][]int8
	AlphaWon []uint8
}

// Observe builds the coefficient vector and outcome of a single match.
func Observe(m battle.Match, idx Index, cat *catalog.Catalog) ([]int8, uint8, error) {
	n := idx.Len()
	x := make([]int8, 2*n)

	for _, p := range m.Participants {
		key := p.CanonicalLoadout(cat)
		pos, ok := idx.Position(key)
		if !ok {
			return nil, 0, fmt.Errorf("loadout %s is not indexed", key)
		}

		if p.Team == battle.Alpha {
			x[pos]++
		} else {
			x[n+pos]--
		}
	}

	var won uint8
	if m.Winner == battle.Alpha {
		won = 1
	}

	return x, won, nil
}

// BuildObservations reads src once more and observes every match against idx.
// Together with LoadoutIndex this is a two pass read of the same source.
func BuildObservations(ctx context.Context, src Source, idx Index, cat *catalog.Catalog) (Observations, error) {
	var obs Observations

	for m, err := range src.Matches(ctx) {
		if err != nil {
			return Observations{}, fmt.Errorf("BuildObservations: %w", err)
		}

		x, won, err := Observe(m, idx, cat)
		if err != nil {
			return Observations{}, fmt.Errorf("BuildObservations: match %d: %w", len(obs.X), err)
		}

		obs.X = append(obs.X, x)
		obs.AlphaWon = append(obs.AlphaWon, won)
	}

	return obs, nil
}
