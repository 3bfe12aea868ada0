// Package export persists decoded matches as gzip compressed JSON lines so
// later runs can skip decoding the source archive.
package export

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"time"

	"github.com/condensedtea/turf-ratings/internal/battle"
	"github.com/condensedtea/turf-ratings/internal/catalog"
	"github.com/klauspost/compress/gzip"
)

type matchRecord struct {
	Season       string              `json:"season"`
	Period       time.Time           `json:"period"`
	GameVersion  string              `json:"game_version"`
	Lobby        string              `json:"lobby"`
	Mode         string              `json:"mode"`
	Stage        string              `json:"stage"`
	Duration     int64               `json:"duration"`
	Winner       string              `json:"winner"`
	Knockout     bool                `json:"knockout"`
	Rank         string              `json:"rank"`
	Power        *float64            `json:"power,omitempty"`
	Teams        []teamRecord        `json:"teams"`
	Participants []participantRecord `json:"participants"`
	Medals       []medalRecord       `json:"medals,omitempty"`
	Event        string              `json:"event"`
}

type teamRecord struct {
	Team        string             `json:"team"`
	Color       string             `json:"color,omitempty"`
	Performance *performanceRecord `json:"performance,omitempty"`
	Theme       string             `json:"theme,omitempty"`
}

type performanceRecord struct {
	Count        *int     `json:"count,omitempty"`
	Inked        *int     `json:"inked,omitempty"`
	InkedPercent *float64 `json:"inked_percent,omitempty"`
}

type participantRecord struct {
	Team            string             `json:"team"`
	Slot            int                `json:"slot"`
	Loadout         string             `json:"loadout"`
	KillsAndAssists int                `json:"kill_assist"`
	Kills           int                `json:"kill"`
	Assists         int                `json:"assist"`
	Deaths          int                `json:"death"`
	SpecialUses     int                `json:"special"`
	TurfInked       int                `json:"inked"`
	Abilities       map[string]float64 `json:"abilities"`
}

type medalRecord struct {
	Name  string `json:"name"`
	Grade string `json:"grade"`
}

// Writer writes matches as gzip compressed JSON lines.
type Writer struct {
	gz  *gzip.Writer
	enc *json.Encoder
	n   int
}

func NewWriter(w io.Writer) *Writer {
	gz := gzip.NewWriter(w)
	return &Writer{gz: gz, enc: json.NewEncoder(gz)}
}

func (w *Writer) Write(m battle.Match) error {
	if err := w.enc.Encode(toRecord(m)); err != nil {
		return fmt.Errorf("export: writing match %d: %w", w.n, err)
	}
	w.n++
	return nil
}

// Count returns the number of matches written.
func (w *Writer) Count() int {
	return w.n
}

// Close flushes the compressed stream. It does not close the underlying writer.
func (w *Writer) Close() error {
	return w.gz.Close()
}

// WriteFile drains matches into a new export at path and returns how many
// matches were written.
func WriteFile(path string, matches iter.Seq2[battle.Match, error]) (n int, err error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("export: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	w := NewWriter(f)
	for m, err := range matches {
		if err != nil {
			return w.Count(), err
		}
		if err := w.Write(m); err != nil {
			return w.Count(), err
		}
	}

	return w.Count(), w.Close()
}

// File is a restartable match source backed by an export written with Writer.
// Keys read back are validated against the catalog the File was opened with.
type File struct {
	path      string
	validator battle.Validator
}

func Open(path string, cat *catalog.Catalog) *File {
	return &File{path: path, validator: battle.NewValidator(cat)}
}

func (f *File) Path() string {
	return f.path
}

// Matches reads the export from the start. A read or decode failure is yielded
// once as the last element.
func (f *File) Matches(ctx context.Context) iter.Seq2[battle.Match, error] {
	return func(yield func(battle.Match, error) bool) {
		file, err := os.Open(f.path)
		if err != nil {
			yield(battle.Match{}, fmt.Errorf("export: %w", err))
			return
		}
		defer file.Close()

		gz, err := gzip.NewReader(file)
		if err != nil {
			yield(battle.Match{}, fmt.Errorf("export %s: %w", f.path, err))
			return
		}
		defer gz.Close()

		dec := json.NewDecoder(gz)
		for line := 0; ; line++ {
			if err := ctx.Err(); err != nil {
				yield(battle.Match{}, err)
				return
			}

			var rec matchRecord
			err := dec.Decode(&rec)
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(battle.Match{}, fmt.Errorf("export %s: record %d: %w", f.path, line, err))
				return
			}

			m, err := fromRecord(f.validator, rec)
			if err != nil {
				yield(battle.Match{}, fmt.Errorf("export %s: record %d: %w", f.path, line, err))
				return
			}

			if !yield(m, nil) {
				return
			}
		}
	}
}
