package collector

import (
	"context"
	"errors"
	"iter"
	"testing"
	"time"

	"github.com/condensedtea/turf-ratings/internal/battle"
	"github.com/condensedtea/turf-ratings/internal/battle/battletest"
	"github.com/condensedtea/turf-ratings/internal/catalog"
	"github.com/condensedtea/turf-ratings/internal/db"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDB struct {
	stored   []db.LoadoutRating
	runs     []db.ImportRun
	finished []db.ImportRun
	battles  []db.Battle
	upserts  [][]db.LoadoutRating
	history  map[int64][]db.LoadoutRating

	failSave bool
}

func (f *fakeDB) StartImport(_ context.Context, run db.ImportRun) error {
	f.runs = append(f.runs, run)
	return nil
}

func (f *fakeDB) FinishImport(_ context.Context, run db.ImportRun) error {
	f.finished = append(f.finished, run)
	return nil
}

func (f *fakeDB) SaveBattle(_ context.Context, b db.Battle) (int64, error) {
	if f.failSave {
		return 0, errors.New("save failed")
	}
	f.battles = append(f.battles, b)
	return int64(len(f.battles)), nil
}

func (f *fakeDB) GetLoadoutRatings(context.Context) ([]db.LoadoutRating, error) {
	return f.stored, nil
}

func (f *fakeDB) UpsertLoadoutRatings(_ context.Context, ratings []db.LoadoutRating) ([]db.LoadoutRating, error) {
	f.upserts = append(f.upserts, ratings)
	return lo.Map(ratings, func(r db.LoadoutRating, i int) db.LoadoutRating {
		r.ID = int64(100 + i)
		return r
	}), nil
}

func (f *fakeDB) LogRatingUpdates(_ context.Context, battleID int64, ratings []db.LoadoutRating, _ time.Time) error {
	if f.history == nil {
		f.history = make(map[int64][]db.LoadoutRating)
	}
	f.history[battleID] = ratings
	return nil
}

type source struct {
	matches []battle.Match
	err     error
}

func (s source) Matches(context.Context) iter.Seq2[battle.Match, error] {
	return func(yield func(battle.Match, error) bool) {
		for _, m := range s.matches {
			if !yield(m, nil) {
				return
			}
		}
		if s.err != nil {
			yield(battle.Match{}, s.err)
		}
	}
}

func decode(t *testing.T, rows ...battle.Row) []battle.Match {
	t.Helper()

	d := battle.NewDecoder(catalog.Default())
	return lo.Map(rows, func(row battle.Row, i int) battle.Match {
		m, err := d.Decode(i, row)
		require.NoError(t, err)
		return m
	})
}

func TestCollect(t *testing.T) {
	fdb := &fakeDB{stored: []db.LoadoutRating{
		{ID: 1, Mode: "area", Loadout: "sshooter", Rating: 30, UncertaintyValue: 2, GamesPlayed: 20, GamesWon: 15},
	}}
	src := source{matches: decode(t, battletest.Row(), battletest.With(battletest.Row(), battle.ColWin, "bravo"))}

	c := New(fdb, src, catalog.Default())
	require.NoError(t, c.Collect(context.Background()))

	require.Len(t, fdb.runs, 1)
	require.Len(t, fdb.finished, 1)
	assert.Equal(t, fdb.runs[0].ID, fdb.finished[0].ID)
	assert.EqualValues(t, 2, fdb.finished[0].Battles)

	require.Len(t, fdb.battles, 2)
	assert.Equal(t, "area", fdb.battles[0].Mode)
	assert.EqualValues(t, 1, fdb.battles[1].Row)
	assert.Len(t, fdb.battles[0].Participants, 8)
	// Stored as exported, rated as canonical.
	assert.Equal(t, "heroshooter_replica", fdb.battles[0].Participants[3].Loadout)

	require.Len(t, fdb.upserts, 2)
	assert.Len(t, fdb.upserts[0], 7)

	sshooter, ok := lo.Find(fdb.upserts[0], func(r db.LoadoutRating) bool { return r.Loadout == "sshooter" })
	require.True(t, ok)
	assert.EqualValues(t, 22, sshooter.GamesPlayed)
	assert.EqualValues(t, 17, sshooter.GamesWon)
	assert.Greater(t, sshooter.Rating, 30.0)

	history := fdb.history[1]
	require.Len(t, history, 7)
	for _, h := range history {
		assert.NotZero(t, h.ID)
		assert.Contains(t, []string{"win", "loss"}, h.Result)
	}
}

func TestCollect_Errors(t *testing.T) {
	boom := errors.New("boom")

	fdb := &fakeDB{}
	c := New(fdb, source{matches: decode(t, battletest.Row()), err: boom}, catalog.Default())
	err := c.Collect(context.Background())
	assert.ErrorIs(t, err, boom)
	require.Len(t, fdb.finished, 1)
	assert.EqualValues(t, 1, fdb.finished[0].Battles)

	fdb = &fakeDB{failSave: true}
	c = New(fdb, source{matches: decode(t, battletest.Row())}, catalog.Default())
	assert.ErrorContains(t, c.Collect(context.Background()), "save failed")
	assert.Empty(t, fdb.upserts)
}

type pathSource struct{ source }

func (pathSource) Path() string { return "battles.zip" }

func TestSourceName(t *testing.T) {
	assert.Equal(t, "battles.zip", sourceName(pathSource{}))
	assert.Equal(t, "collector.source", sourceName(source{}))
}
