package collector

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"time"

	"github.com/condensedtea/turf-ratings/internal/battle"
	"github.com/condensedtea/turf-ratings/internal/catalog"
	"github.com/condensedtea/turf-ratings/internal/db"
	"github.com/condensedtea/turf-ratings/internal/rating"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

type database interface {
	StartImport(ctx context.Context, run db.ImportRun) error
	FinishImport(ctx context.Context, run db.ImportRun) error
	SaveBattle(ctx context.Context, battle db.Battle) (int64, error)
	GetLoadoutRatings(ctx context.Context) ([]db.LoadoutRating, error)
	UpsertLoadoutRatings(ctx context.Context, ratings []db.LoadoutRating) ([]db.LoadoutRating, error)
	LogRatingUpdates(ctx context.Context, battleID int64, ratings []db.LoadoutRating, ts time.Time) error
}

type matchSource interface {
	Matches(ctx context.Context) iter.Seq2[battle.Match, error]
}

type Collector struct {
	db    database
	src   matchSource
	rater *rating.Rater

	now func() time.Time
}

func New(db database, src matchSource, cat *catalog.Catalog) *Collector {
	return &Collector{db: db, src: src, rater: rating.NewRater(cat), now: time.Now}
}

// Collect stores every match of the source and rates its loadouts on top of the
// ratings already stored. The import run is finished even when the source fails
// half way, so the battles stored so far stay attributed to it.
func (c *Collector) Collect(ctx context.Context) (err error) {
	stored, err := c.db.GetLoadoutRatings(ctx)
	if err != nil {
		return err
	}

	c.rater.Seed(lo.Map(stored, func(r db.LoadoutRating, _ int) rating.Rating {
		return rating.Rating{
			Mode:    battle.ModeKey(r.Mode),
			Loadout: battle.LoadoutKey(r.Loadout),
			Mu:      r.Rating,
			Sigma:   r.UncertaintyValue,
			Played:  r.GamesPlayed,
			Won:     r.GamesWon,
		}
	}))

	run := db.ImportRun{ID: uuid.New(), Source: sourceName(c.src), StartedAt: c.now()}
	if err = c.db.StartImport(ctx, run); err != nil {
		return err
	}

	slog.Info("collecting battles", "run", run.ID, "source", run.Source, "known_ratings", len(stored))

	defer func() {
		run.FinishedAt = c.now()
		if ferr := c.db.FinishImport(context.WithoutCancel(ctx), run); err == nil {
			err = ferr
		}
		slog.Info("import finished", "run", run.ID, "battles", run.Battles)
	}()

	for m, err := range c.src.Matches(ctx) {
		if err != nil {
			return fmt.Errorf("collecting battles: %w", err)
		}

		slog.Debug("processing battle", "row", run.Battles, "mode", m.Mode, "stage", m.Stage)
		if err = c.processBattle(ctx, run.ID, run.Battles, m); err != nil {
			return err
		}
		run.Battles++
	}

	return nil
}

func (c *Collector) processBattle(ctx context.Context, runID uuid.UUID, row int64, m battle.Match) error {
	battleID, err := c.db.SaveBattle(ctx, toBattle(runID, row, m))
	if err != nil {
		return err
	}

	updates := c.rater.Rate(m)

	slog.Debug("new ratings calculated", "battle", battleID, "updates", len(updates))

	loadouts := lo.Uniq(lo.Map(updates, func(u rating.Update, _ int) battle.LoadoutKey {
		return u.Rating.Loadout
	}))

	leaderboard, err := c.db.UpsertLoadoutRatings(ctx, lo.Map(loadouts, func(l battle.LoadoutKey, _ int) db.LoadoutRating {
		return toLoadoutRating(c.rater.Rating(m.Mode, l))
	}))
	if err != nil {
		return err
	}

	ids := lo.SliceToMap(leaderboard, func(r db.LoadoutRating) (string, int64) {
		return r.Loadout, r.ID
	})

	history := lo.Map(updates, func(u rating.Update, _ int) db.LoadoutRating {
		r := toLoadoutRating(u.Rating)
		r.ID = ids[r.Loadout]
		r.Result = u.Result
		r.DiffValue = u.Diff
		return r
	})

	if err = c.db.LogRatingUpdates(ctx, battleID, history, m.Period); err != nil {
		return err
	}

	slog.Debug("ratings logged", "battle", battleID)

	return nil
}

func sourceName(src matchSource) string {
	if p, ok := src.(interface{ Path() string }); ok {
		return p.Path()
	}
	return fmt.Sprintf("%T", src)
}
