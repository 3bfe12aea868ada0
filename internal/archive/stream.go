package archive

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/condensedtea/turf-ratings/internal/battle"
	"github.com/klauspost/compress/zip"
)

var errNotUTF8 = errors.New("member is not valid UTF-8 text")

// Stats counts what a stream has produced so far.
type Stats struct {
	Members int
	Decoded int
	Skipped int
}

// Stream is a single pass over the matches of an archive:
//
//	s, err := a.Open(ctx)
//	if err != nil {
//		return err
//	}
//	defer s.Close()
//
//	for s.Next() {
//		m := s.Match()
//		...
//	}
//	return s.Err()
//
// A Stream must not be used from more than one goroutine.
type Stream struct {
	ctx     context.Context
	archive *Archive

	zr      *zip.ReadCloser
	members []*zip.File
	next    int

	member  *zip.File
	rc      io.ReadCloser
	counter *countingReader
	csv     *csv.Reader
	header  []string
	row     int

	read  int64
	total int64

	match  battle.Match
	stats  Stats
	err    error
	closed bool
}

// Next advances to the next decoded match. It returns false at the end of the
// archive, on a fatal error and after Close.
func (s *Stream) Next() bool {
	if s.closed || s.err != nil {
		return false
	}

	for {
		if err := s.ctx.Err(); err != nil {
			s.fail(err)
			return false
		}

		if s.csv == nil {
			if s.next == len(s.members) {
				_ = s.Close()
				return false
			}

			member := s.members[s.next]
			s.next++

			if err := s.openMember(member); err != nil {
				s.fail(&Error{Path: s.archive.path, Member: member.Name, Err: err})
				return false
			}
			continue
		}

		record, err := s.csv.Read()
		if errors.Is(err, io.EOF) {
			if err = s.closeMember(); err != nil {
				s.fail(&Error{Path: s.archive.path, Member: s.member.Name, Err: err})
				return false
			}
			continue
		}
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			index := s.row
			s.row++
			s.stats.Skipped++
			s.archive.logger.Error("skipping malformed battle row",
				"member", s.member.Name,
				"row", index,
				"error", err,
			)
			continue
		}
		if err == nil && !validUTF8(record) {
			err = errNotUTF8
		}
		if err != nil {
			s.fail(&Error{Path: s.archive.path, Member: s.member.Name, Err: err})
			return false
		}

		s.archive.progress(Progress{Member: s.member.Name, Read: s.read + s.counter.n, Total: s.total})

		index := s.row
		s.row++

		m, err := s.archive.decoder.Decode(index, s.rowMap(record))
		if err != nil {
			s.stats.Skipped++
			s.archive.logger.Error("skipping invalid battle row",
				"member", s.member.Name,
				"row", index,
				"error", err,
			)
			continue
		}

		s.stats.Decoded++
		s.match = m
		return true
	}
}

// Match returns the match Next advanced to.
func (s *Stream) Match() battle.Match {
	return s.match
}

// Err returns the fatal error that ended the stream, if any.
func (s *Stream) Err() error {
	return s.err
}

func (s *Stream) Stats() Stats {
	return s.stats
}

// Close releases the open member and the archive. It is safe to call more than once.
func (s *Stream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	var errs []error
	if s.rc != nil {
		errs = append(errs, s.rc.Close())
		s.rc = nil
	}
	errs = append(errs, s.zr.Close())

	return errors.Join(errs...)
}

func (s *Stream) fail(err error) {
	s.err = err
	_ = s.Close()
}

func (s *Stream) openMember(f *zip.File) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}

	s.member = f
	s.rc = rc
	s.counter = &countingReader{r: rc}
	s.row = 0
	s.stats.Members++

	r := csv.NewReader(s.counter)
	r.FieldsPerRecord = -1
	r.ReuseRecord = true

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		// Empty table: nothing to decode, move on to the next member.
		return s.closeMember()
	}
	if err != nil {
		return err
	}
	if !validUTF8(header) {
		return errNotUTF8
	}

	s.header = make([]string, len(header))
	copy(s.header, header)
	s.header[0] = strings.TrimPrefix(s.header[0], "\ufeff")
	s.csv = r

	return nil
}

func (s *Stream) closeMember() error {
	s.read += int64(s.member.UncompressedSize64)
	s.archive.progress(Progress{Member: s.member.Name, Read: s.read, Total: s.total})

	err := s.rc.Close()
	s.rc = nil
	s.csv = nil
	s.counter = nil
	s.header = nil

	return err
}

func (s *Stream) rowMap(record []string) battle.Row {
	row := make(battle.Row, len(s.header))
	for i, value := range record {
		if i == len(s.header) {
			break
		}
		row[s.header[i]] = value
	}
	return row
}

func validUTF8(record []string) bool {
	for _, v := range record {
		if !utf8.ValidString(v) {
			return false
		}
	}
	return true
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
