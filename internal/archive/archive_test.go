package archive

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/condensedtea/turf-ratings/internal/battle"
	"github.com/condensedtea/turf-ratings/internal/battle/battletest"
	"github.com/condensedtea/turf-ratings/internal/catalog"
	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type member struct {
	name    string
	content string
}

func writeArchive(t *testing.T, members ...member) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "battles.zip")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	for _, m := range members {
		w, err := zw.Create(m.name)
		require.NoError(t, err)
		_, err = w.Write([]byte(m.content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())

	return path
}

func newArchive(path string, opts ...Option) (*Archive, *bytes.Buffer) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	opts = append([]Option{WithLogger(logger)}, opts...)
	return New(path, battle.NewDecoder(catalog.Default()), opts...), &logs
}

func collect(t *testing.T, a *Archive) ([]battle.Match, error) {
	t.Helper()

	var matches []battle.Match
	for m, err := range a.Matches(context.Background()) {
		if err != nil {
			return matches, err
		}
		matches = append(matches, m)
	}
	return matches, nil
}

func TestMatches_SkipsInvalidRows(t *testing.T) {
	good := battletest.Row()
	bad := battletest.With(battletest.Row(), "A3-weapon", "not_a_weapon")
	turf := battletest.With(battletest.Row(), battle.ColTime, "300")

	path := writeArchive(t,
		member{name: "2023-03-01.csv", content: battletest.CSV(good, bad, turf)},
		member{name: "README.txt", content: "not a table"},
		member{name: "2023/", content: ""},
		member{name: "2023/2023-03-02.csv", content: battletest.CSV(bad, good)},
	)

	a, logs := newArchive(path)
	matches, err := collect(t, a)
	require.NoError(t, err)

	require.Len(t, matches, 3)
	assert.Equal(t, 180, int(matches[0].Duration.Seconds()))
	assert.Equal(t, 300, int(matches[1].Duration.Seconds()))

	out := logs.String()
	assert.Equal(t, 2, bytes.Count(logs.Bytes(), []byte("skipping invalid battle row")))
	assert.Contains(t, out, "member=2023-03-01.csv row=1")
	assert.Contains(t, out, "member=2023/2023-03-02.csv row=0")
	assert.Contains(t, out, "A3-weapon")
	assert.Contains(t, out, "decoded=3 skipped=2")
}

func TestMatches_Restartable(t *testing.T) {
	path := writeArchive(t,
		member{name: "a.csv", content: battletest.CSV(battletest.Row(), battletest.Row())},
		member{name: "b.csv", content: battletest.CSV(battletest.With(battletest.Row(), battle.ColWin, "bravo"))},
	)

	a, _ := newArchive(path)

	first, err := collect(t, a)
	require.NoError(t, err)
	second, err := collect(t, a)
	require.NoError(t, err)

	require.Len(t, first, 3)
	assert.Equal(t, first, second)
	assert.Equal(t, battle.Bravo, second[2].Winner)
}

func TestMatches_EarlyStop(t *testing.T) {
	path := writeArchive(t, member{name: "a.csv", content: battletest.CSV(battletest.Row(), battletest.Row(), battletest.Row())})
	a, _ := newArchive(path)

	n := 0
	for _, err := range a.Matches(context.Background()) {
		require.NoError(t, err)
		n++
		if n == 1 {
			break
		}
	}
	assert.Equal(t, 1, n)
}

func TestStream(t *testing.T) {
	path := writeArchive(t,
		member{name: "empty.csv", content: ""},
		member{name: "header-only.csv", content: battletest.CSV()},
		member{name: "a.csv", content: "\ufeff" + battletest.CSV(battletest.Row())},
	)

	var progress []Progress
	a, _ := newArchive(path, WithProgress(func(p Progress) {
		progress = append(progress, p)
	}))

	s, err := a.Open(context.Background())
	require.NoError(t, err)
	defer s.Close()

	require.True(t, s.Next())
	assert.Equal(t, "Fresh Season 2023", s.Match().Season)
	assert.False(t, s.Next())
	assert.NoError(t, s.Err())
	assert.Equal(t, Stats{Members: 3, Decoded: 1}, s.Stats())

	require.NotEmpty(t, progress)
	last := progress[len(progress)-1]
	assert.Equal(t, last.Total, last.Read)
	assert.Equal(t, "a.csv", last.Member)

	assert.False(t, s.Next())
	assert.NoError(t, s.Close())
}

func TestStream_Canceled(t *testing.T) {
	path := writeArchive(t, member{name: "a.csv", content: battletest.CSV(battletest.Row(), battletest.Row())})
	a, _ := newArchive(path)

	ctx, cancel := context.WithCancel(context.Background())
	s, err := a.Open(ctx)
	require.NoError(t, err)

	require.True(t, s.Next())
	cancel()
	assert.False(t, s.Next())
	assert.ErrorIs(t, s.Err(), context.Canceled)
}

func TestMatches_FatalErrors(t *testing.T) {
	t.Run("missing archive", func(t *testing.T) {
		a, _ := newArchive(filepath.Join(t.TempDir(), "nope.zip"))

		_, err := collect(t, a)
		assert.ErrorIs(t, err, ErrArchive)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("not a zip", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "garbage.zip")
		require.NoError(t, os.WriteFile(path, []byte("definitely not a zip file"), 0o644))
		a, _ := newArchive(path)

		_, err := collect(t, a)
		assert.ErrorIs(t, err, ErrArchive)
	})

	t.Run("invalid utf-8", func(t *testing.T) {
		row := battletest.With(battletest.Row(), battle.ColSeason, "bad \xff season")
		path := writeArchive(t,
			member{name: "a.csv", content: battletest.CSV(battletest.Row())},
			member{name: "b.csv", content: battletest.CSV(row, battletest.Row())},
		)
		a, _ := newArchive(path)

		matches, err := collect(t, a)
		assert.Len(t, matches, 1)

		var archiveErr *Error
		require.ErrorAs(t, err, &archiveErr)
		assert.Equal(t, "b.csv", archiveErr.Member)
		assert.ErrorIs(t, err, ErrArchive)
	})
}

func TestMatches_SkipsMalformedRows(t *testing.T) {
	table := battletest.CSV(battletest.Row())
	table += "\"Fresh Season 2023\",x\"y\n"
	table += battletest.CSV(battletest.With(battletest.Row(), battle.ColWin, "bravo"))[len(battletest.CSV()):]

	path := writeArchive(t, member{name: "2023-03-01.csv", content: table})

	a, logs := newArchive(path)
	matches, err := collect(t, a)
	require.NoError(t, err)

	require.Len(t, matches, 2)
	assert.Equal(t, battle.Alpha, matches[0].Winner)
	assert.Equal(t, battle.Bravo, matches[1].Winner)

	assert.Equal(t, 1, bytes.Count(logs.Bytes(), []byte("skipping malformed battle row")))
	assert.Contains(t, logs.String(), "member=2023-03-01.csv row=1")
	assert.Contains(t, logs.String(), "decoded=2 skipped=1")
}
