// Package dataset reads recordings back into named series.
package dataset

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/multierr"

	"sleepywoodpecker/freq-monitor/internal/series"
)

// ErrInvalidID is returned for identifiers that are not a plain file name
// inside the data directory.
var ErrInvalidID = errors.New("recording id must be a file name inside the data directory")

type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("recording %q not found", e.ID)
}

type ParseError struct {
	ID   string
	Line int
	Text string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("recording %q line %d: cannot parse %q", e.ID, e.Line, e.Text)
}

// Source loads one recording by identifier.
type Source interface {
	Load(id string) (series.Series, error)
}

// Loader reads recordings stored as files under Dir. The identifier is the
// file name relative to Dir.
type Loader struct {
	Dir string
}

var _ Source = (*Loader)(nil)

func NewLoader(dir string) *Loader {
	return &Loader{Dir: dir}
}

func (l *Loader) Load(id string) (series.Series, error) {
	if id == "" || id == "." || id == ".." || filepath.Base(id) != id {
		return series.Series{}, fmt.Errorf("%q: %w", id, ErrInvalidID)
	}

	f, err := os.Open(filepath.Join(l.Dir, id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return series.Series{}, &NotFoundError{ID: id}
		}
		return series.Series{}, fmt.Errorf("opening recording %q: %w", id, err)
	}
	defer func() { _ = f.Close() }()

	samples, err := Parse(id, f)
	if err != nil {
		return series.Series{}, err
	}
	return series.New(id, samples), nil
}

// Parse reads the "freq" header followed by one integer per line. Blank lines
// are ignored.
func Parse(id string, r io.Reader) ([]series.Sample, error) {
	scanner := bufio.NewScanner(r)
	lineNo := 0
	sawHeader := false
	samples := []series.Sample{}

	for scanner.Scan() {
		lineNo++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		if !sawHeader {
			if text != series.Header {
				return nil, &ParseError{ID: id, Line: lineNo, Text: text}
			}
			sawHeader = true
			continue
		}
		v, err := strconv.Atoi(text)
		if err != nil {
			return nil, &ParseError{ID: id, Line: lineNo, Text: text}
		}
		samples = append(samples, v)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading recording %q: %w", id, err)
	}
	if !sawHeader {
		return nil, &ParseError{ID: id, Line: lineNo, Text: ""}
	}
	return samples, nil
}

// LoadAll loads every id into one column set. Repeated ids are loaded once. A
// failed id is left out and its error is combined into the returned error; the
// others are still returned.
func LoadAll(src Source, ids []string) (*series.ColumnSet, error) {
	cs, _ := series.NewColumnSet()
	var errs error
	for _, id := range ids {
		if _, ok := cs.Get(id); ok {
			continue
		}
		s, err := src.Load(id)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		if err := cs.Add(s); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	return cs, errs
}
