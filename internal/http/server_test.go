package http

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/condensedtea/turf-ratings/internal/catalog"
	"github.com/condensedtea/turf-ratings/internal/db"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDB struct {
	leaderboardMode string
	historyLoadout  string
}

func (f *fakeDB) GetAvailableModes(context.Context) ([]string, error) {
	return []string{"area", "nawabari"}, nil
}

func (f *fakeDB) GetLeaderboardForMode(_ context.Context, mode string, _, _ int) ([]db.LeaderboardEntry, error) {
	f.leaderboardMode = mode
	return []db.LeaderboardEntry{
		{Loadout: "sshooter", Rating: 21.5, Uncertainty: 1.25, GamesWon: 30, GamesPlayed: 50},
		{Loadout: "wakaba", Rating: 18, Uncertainty: 2, GamesWon: 10, GamesPlayed: 40},
	}, nil
}

func (f *fakeDB) GetLoadoutRatingHistory(_ context.Context, _, loadout string) ([]db.RatingUpdate, error) {
	f.historyLoadout = loadout
	return []db.RatingUpdate{
		{BattleID: 1, Stage: "masaba", Rating: 16.5, Result: "win", Date: "2023/03/01", Time: "10:00:00"},
		{BattleID: 2, Stage: "yagara", Rating: 16.25, Result: "loss", Date: "2023/03/01", Time: "10:05:00"},
	}, nil
}

func get(t *testing.T, s *Server, path string) (int, string) {
	t.Helper()

	resp, err := s.app.Test(httptest.NewRequest(fiber.MethodGet, path, nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestLeaderboardsPage(t *testing.T) {
	fdb := &fakeDB{}
	s := NewServer(fdb, catalog.Default())

	code, body := get(t, s, "/")
	assert.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, defaultMode, fdb.leaderboardMode)
	assert.Contains(t, body, "Turf War")
	assert.Contains(t, body, `href="/nawabari/loadout/sshooter"`)
	assert.Contains(t, body, "21.50")

	code, _ = get(t, s, "/area")
	assert.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, "area", fdb.leaderboardMode)

	code, _ = get(t, s, "/splatball")
	assert.Equal(t, fiber.StatusNotFound, code)
}

func TestLoadoutPage(t *testing.T) {
	fdb := &fakeDB{}
	s := NewServer(fdb, catalog.Default())

	code, body := get(t, s, "/area/loadout/heroshooter_replica")
	assert.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, "sshooter", fdb.historyLoadout)
	assert.Contains(t, body, "-0.25")
	assert.Contains(t, body, "yagara")

	code, _ = get(t, s, "/area/loadout/nope")
	assert.Equal(t, fiber.StatusNotFound, code)
}

func TestRatingDiffLabel(t *testing.T) {
	assert.Equal(t, "0.00", ratingDiffLabel(16, 0))
	assert.Equal(t, "+0.50", ratingDiffLabel(16.5, 16))
	assert.Equal(t, "-0.50", ratingDiffLabel(15.5, 16))
}
