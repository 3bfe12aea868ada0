package http

import (
	"fmt"

	"github.com/condensedtea/turf-ratings/internal/catalog"
	"github.com/condensedtea/turf-ratings/internal/db"
	"github.com/gofiber/fiber/v2"
	"github.com/samber/lo"
)

type loadoutRatingEntry struct {
	BattleID   int64
	Stage      string
	Rating     string
	RatingDiff string
	Result     string
	Date       string
	Time       string
}

func (s *Server) loadoutPage(ctx *fiber.Ctx) error {
	mode := ctx.Params("mode")
	if err := requireMode(mode); err != nil {
		return err
	}

	loadout := ctx.Params("loadout")
	if !s.cat.IsLoadout(loadout) {
		return &fiber.Error{
			Code:    fiber.StatusNotFound,
			Message: fmt.Sprintf("unknown loadout %q", loadout),
		}
	}

	modes, err := s.modeLinks(ctx.Context())
	if err != nil {
		return err
	}

	history, err := s.db.GetLoadoutRatingHistory(ctx.Context(), mode, s.cat.Canonical(loadout))
	if err != nil {
		return fmt.Errorf("failed to get loadout history: %w", err)
	}

	var lastRatingValue float64
	entries := lo.Map(history, func(u db.RatingUpdate, _ int) loadoutRatingEntry {
		e := loadoutRatingEntry{
			BattleID:   u.BattleID,
			Stage:      u.Stage,
			Rating:     ratingLabel(u.Rating),
			RatingDiff: ratingDiffLabel(u.Rating, lastRatingValue),
			Result:     u.Result,
			Date:       u.Date,
			Time:       u.Time,
		}

		lastRatingValue = u.Rating
		return e
	})

	return ctx.Render("templates/loadout", fiber.Map{
		"PageTitle":     fmt.Sprintf("%s: %s", catalog.ModeDescription(mode), loadout),
		"Mode":          mode,
		"Modes":         modes,
		"Loadout":       loadout,
		"RatingEntries": lo.Reverse(entries),
	})
}

func ratingDiffLabel(rating float64, lastValue float64) string {
	if lastValue == 0.0 {
		return ratingLabel(0)
	}

	ratingDiff := rating - lastValue
	if ratingDiff > 0 {
		return "+" + ratingLabel(ratingDiff)
	}
	return ratingLabel(ratingDiff)
}
