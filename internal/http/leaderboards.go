package http

import (
	"github.com/condensedtea/turf-ratings/internal/catalog"
	"github.com/condensedtea/turf-ratings/internal/db"
	"github.com/gofiber/fiber/v2"
	"github.com/samber/lo"
)

type winrate struct {
	Wins   int
	Losses int
}

type rating struct {
	Position    int
	Loadout     string
	Rating      string
	Uncertainty string
	Winrate     winrate
}

func (s *Server) leaderboardsPage(ctx *fiber.Ctx) error {
	mode := ctx.Params("mode", defaultMode)
	if err := requireMode(mode); err != nil {
		return err
	}

	modes, err := s.modeLinks(ctx.Context())
	if err != nil {
		return err
	}

	offset := ctx.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}

	leaderboardEntries, err := s.db.GetLeaderboardForMode(ctx.Context(), mode, offset, leaderboardSize)
	if err != nil {
		return err
	}

	ratings := lo.Map(leaderboardEntries, func(e db.LeaderboardEntry, i int) rating {
		return rating{
			Position:    offset + i + 1,
			Loadout:     e.Loadout,
			Rating:      ratingLabel(e.Rating),
			Uncertainty: ratingLabel(e.Uncertainty),
			Winrate: winrate{
				Wins:   int(e.GamesWon),
				Losses: int(e.GamesPlayed - e.GamesWon),
			},
		}
	})

	return ctx.Render("templates/leaderboards", fiber.Map{
		"PageTitle": catalog.ModeDescription(mode),
		"Mode":      mode,
		"Modes":     modes,
		"Ratings":   ratings,
	})
}
