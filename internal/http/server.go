package http

import (
	"context"
	"embed"
	"fmt"
	"net/http"

	"github.com/condensedtea/turf-ratings/internal/catalog"
	"github.com/condensedtea/turf-ratings/internal/db"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/filesystem"
	"github.com/gofiber/template/html/v2"
)

const defaultMode = "nawabari"

const leaderboardSize = 50

//go:embed templates/*
var templateFS embed.FS

//go:embed assets/*
var assetFS embed.FS

type database interface {
	GetAvailableModes(ctx context.Context) ([]string, error)
	GetLeaderboardForMode(ctx context.Context, mode string, offset, limit int) ([]db.LeaderboardEntry, error)
	GetLoadoutRatingHistory(ctx context.Context, mode, loadout string) ([]db.RatingUpdate, error)
}

type Server struct {
	db  database
	cat *catalog.Catalog

	app *fiber.App
}

func NewServer(db database, cat *catalog.Catalog) *Server {
	app := fiber.New(fiber.Config{
		AppName: "turf-ratings",
		Views:   html.NewFileSystem(http.FS(templateFS), ".tmpl"),
	})

	s := &Server{app: app, db: db, cat: cat}

	s.app.Use("/assets", filesystem.New(filesystem.Config{
		MaxAge:     3600,
		Root:       http.FS(assetFS),
		PathPrefix: "assets",
	}))

	s.app.Get("/:mode?", s.leaderboardsPage)
	s.app.Get("/:mode/loadout/:loadout", s.loadoutPage)

	return s
}

func (s *Server) Run(port string) error {
	return s.app.Listen(":" + port)
}

func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

type modeLink struct {
	Key         string
	Description string
}

func (s *Server) modeLinks(ctx context.Context) ([]modeLink, error) {
	modes, err := s.db.GetAvailableModes(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get available modes: %w", err)
	}

	links := make([]modeLink, 0, len(modes))
	for _, m := range modes {
		links = append(links, modeLink{Key: m, Description: catalog.ModeDescription(m)})
	}

	return links, nil
}

func requireMode(mode string) error {
	if catalog.ModeDescription(mode) == "" {
		return &fiber.Error{
			Code:    fiber.StatusNotFound,
			Message: fmt.Sprintf("unknown mode %q", mode),
		}
	}
	return nil
}

func ratingLabel(v float64) string {
	return fmt.Sprintf("%.2f", v)
}
