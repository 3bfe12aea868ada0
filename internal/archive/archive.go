// Package archive streams decoded battles out of a stat.ink export archive: a zip
// file holding one or more CSV tables of battle rows.
//
// Rows that fail to decode are logged and skipped. Problems with the archive
// itself (it cannot be opened, a member is corrupt or not UTF-8 text) end the
// stream with an error matching ErrArchive.
package archive

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"strings"

	"github.com/condensedtea/turf-ratings/internal/battle"
	"github.com/klauspost/compress/zip"
	"github.com/samber/lo"
)

const defaultExtension = ".csv"

var ErrArchive = errors.New("archive")

// Error is a fatal failure reading the archive container or one of its members.
type Error struct {
	Path   string
	Member string
	Err    error
}

func (e *Error) Error() string {
	if e.Member == "" {
		return fmt.Sprintf("archive %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("archive %s: member %s: %v", e.Path, e.Member, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	return target == ErrArchive
}

// Progress reports uncompressed bytes consumed across all CSV members.
type Progress struct {
	Member string
	Read   int64
	Total  int64
}

type Option func(*Archive)

// WithLogger sets the logger skipped rows are reported to.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Archive) {
		a.logger = logger
	}
}

// WithProgress registers fn to be called after every row read.
func WithProgress(fn func(Progress)) Option {
	return func(a *Archive) {
		a.progress = fn
	}
}

// WithExtension changes the member name suffix of tables (".csv" by default).
func WithExtension(ext string) Option {
	return func(a *Archive) {
		a.ext = ext
	}
}

// Archive is a restartable source of matches. Every Open or Matches call reads
// the archive again from the start, so it can back multi-pass consumers.
// Independent streams over the same Archive may be used concurrently.
type Archive struct {
	path     string
	decoder  *battle.Decoder
	logger   *slog.Logger
	progress func(Progress)
	ext      string
}

func New(path string, decoder *battle.Decoder, opts ...Option) *Archive {
	a := &Archive{
		path:     path,
		decoder:  decoder,
		logger:   slog.Default(),
		progress: func(Progress) {},
		ext:      defaultExtension,
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

func (a *Archive) Path() string {
	return a.path
}

// Open opens the archive and returns a stream positioned before the first match.
// The caller must Close the stream.
func (a *Archive) Open(ctx context.Context) (*Stream, error) {
	zr, err := zip.OpenReader(a.path)
	if err != nil {
		return nil, &Error{Path: a.path, Err: err}
	}

	members := a.tables(zr.File)
	total := lo.SumBy(members, func(f *zip.File) int64 {
		return int64(f.UncompressedSize64)
	})

	return &Stream{
		ctx:     ctx,
		archive: a,
		zr:      zr,
		members: members,
		total:   total,
	}, nil
}

func (a *Archive) tables(files []*zip.File) []*zip.File {
	return lo.Filter(files, func(f *zip.File, _ int) bool {
		return !f.FileInfo().IsDir() && strings.HasSuffix(f.Name, a.ext)
	})
}

// Matches returns a single pass sequence over the archive's matches. A fatal
// archive error is yielded once as the last element. Stopping the iteration
// early releases the archive.
func (a *Archive) Matches(ctx context.Context) iter.Seq2[battle.Match, error] {
	return func(yield func(battle.Match, error) bool) {
		s, err := a.Open(ctx)
		if err != nil {
			yield(battle.Match{}, err)
			return
		}
		defer s.Close()

		for s.Next() {
			if !yield(s.Match(), nil) {
				return
			}
		}

		stats := s.Stats()
		if err := s.Err(); err != nil {
			a.logger.Error("archive read aborted",
				"path", a.path,
				"decoded", stats.Decoded,
				"skipped", stats.Skipped,
				"error", err,
			)
			yield(battle.Match{}, err)
			return
		}

		a.logger.Info("archive read",
			"path", a.path,
			"members", stats.Members,
			"decoded", stats.Decoded,
			"skipped", stats.Skipped,
		)
	}
}
