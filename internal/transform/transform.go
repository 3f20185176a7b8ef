// Package transform turns raw recorded columns into one aligned table: each
// series is sliced, optionally normalized against a baseline, optionally
// smoothed, then the results are laid side by side by position.
package transform

import (
	"errors"
	"fmt"
	"math"

	"sleepywoodpecker/freq-monitor/internal/series"
)

var ErrInvalidConfig = errors.New("invalid transform config")

// Config counts are in samples. RangeEnd and StartOffset are index bounds.
type Config struct {
	RangeEnd        int
	StartOffset     int
	Normalize       bool
	BaselineWindow  int
	Smooth          bool
	SmoothingWindow int
}

func (c Config) Validate() error {
	switch {
	case c.RangeEnd < 0:
		return fmt.Errorf("%w: range end %d is negative", ErrInvalidConfig, c.RangeEnd)
	case c.StartOffset < 0:
		return fmt.Errorf("%w: start offset %d is negative", ErrInvalidConfig, c.StartOffset)
	case c.BaselineWindow < 0:
		return fmt.Errorf("%w: baseline window %d is negative", ErrInvalidConfig, c.BaselineWindow)
	case c.SmoothingWindow < 0:
		return fmt.Errorf("%w: smoothing window %d is negative", ErrInvalidConfig, c.SmoothingWindow)
	}
	return nil
}

// Dataset is the aligned output. Every column has Rows() entries; NaN marks a
// position that is undefined for that column.
type Dataset struct {
	Names   []string
	Columns [][]float64
}

func (d *Dataset) Rows() int {
	if d == nil || len(d.Columns) == 0 {
		return 0
	}
	return len(d.Columns[0])
}

func (d *Dataset) Empty() bool {
	return d == nil || len(d.Columns) == 0
}

func (d *Dataset) Column(name string) ([]float64, bool) {
	if d == nil {
		return nil, false
	}
	for i, n := range d.Names {
		if n == name {
			return d.Columns[i], true
		}
	}
	return nil, false
}

// Transform applies the pipeline to every column of cs. The input is never
// modified. Data-shape problems (short series, offsets past the end, a zero
// baseline) produce empty or NaN-bearing output rather than an error.
func Transform(cs *series.ColumnSet, cfg Config) (*Dataset, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	columns := cs.Columns()
	ds := &Dataset{}
	if len(columns) == 0 {
		return ds, nil
	}

	if len(columns) == 1 {
		ds.Names = []string{columns[0].Name}
		ds.Columns = [][]float64{Process(columns[0], cfg)}
		return ds, nil
	}

	processed := make([][]float64, len(columns))
	rows := 0
	for i, c := range columns {
		processed[i] = Process(c, cfg)
		rows = max(rows, len(processed[i]))
	}

	for i, c := range columns {
		ds.Names = append(ds.Names, c.Name)
		ds.Columns = append(ds.Columns, pad(processed[i], rows))
	}
	return ds, nil
}

// Process runs slice, normalize and smooth on one series.
func Process(s series.Series, cfg Config) []float64 {
	values := Slice(s.Floats(), cfg.StartOffset, cfg.RangeEnd)
	if cfg.Normalize {
		values = Normalize(values, cfg.BaselineWindow)
	}
	if cfg.Smooth {
		values = MovingAverage(values, cfg.SmoothingWindow)
	}
	return values
}

// Slice keeps positions [start, end), clamped to the series length. The result
// is re-based to index 0.
func Slice(values []float64, start, end int) []float64 {
	n := len(values)
	start = min(max(start, 0), n)
	end = min(max(end, 0), n)
	if end <= start {
		return []float64{}
	}
	out := make([]float64, end-start)
	copy(out, values[start:end])
	return out
}

// Baseline is the mean of the first window values, or of all of them when
// fewer are available. An empty input has a NaN baseline.
func Baseline(values []float64, window int) float64 {
	n := min(window, len(values))
	if n <= 0 {
		return math.NaN()
	}
	sum := 0.0
	for _, v := range values[:n] {
		sum += v
	}
	return sum / float64(n)
}

// Normalize expresses each value as a percent deviation from the baseline.
// A zero baseline is not guarded; it yields Inf or NaN.
func Normalize(values []float64, baselineWindow int) []float64 {
	baseline := Baseline(values, baselineWindow)
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = (v/baseline - 1) * 100
	}
	return out
}

// MovingAverage is the absolute trailing mean over window positions, the
// current one included. Positions before the window fills, and windows that
// contain an undefined value, are NaN.
func MovingAverage(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	if window <= 0 {
		for i := range out {
			out[i] = math.NaN()
		}
		return out
	}

	sum := 0.0
	nans := 0
	for i, v := range values {
		if math.IsNaN(v) {
			nans++
		} else {
			sum += v
		}
		if i >= window {
			old := values[i-window]
			if math.IsNaN(old) {
				nans--
			} else {
				sum -= old
			}
		}

		if i < window-1 || nans > 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = math.Abs(sum / float64(window))
	}
	return out
}

func pad(values []float64, rows int) []float64 {
	if len(values) == rows {
		return values
	}
	out := make([]float64, rows)
	copy(out, values)
	for i := len(values); i < rows; i++ {
		out[i] = math.NaN()
	}
	return out
}
