// Package chart reshapes an aligned dataset into what a line chart needs:
// long-format points, y-axis bounds and labels.
package chart

import (
	"math"
	"time"

	"sleepywoodpecker/freq-monitor/internal/transform"
)

const (
	rawMargin        = 100.0
	normalizedMargin = 0.1
)

const (
	RawTitle            = "frequency versus time"
	NormalizedTitle     = "change in frequency versus time"
	RawAxisLabel        = "frequency (Hz)"
	NormalizedAxisLabel = "change in frequency (%)"
)

// Point is one (time, series, value) triple. Time is the row index read as
// whole seconds since the Unix epoch; sample cadence is assumed to be one per
// second.
type Point struct {
	Time   time.Time
	Series string
	Value  float64
}

// Elapsed is the offset of the point from the start of the recording.
func (p Point) Elapsed() time.Duration {
	return time.Duration(p.Time.Unix()) * time.Second
}

type Bounds struct {
	Min float64
	Max float64
}

// RowTime converts a row index into a chart time coordinate.
func RowTime(row int) time.Time {
	return time.Unix(int64(row), 0).UTC()
}

// ToPlotRows melts the dataset row by row. Undefined values are left out so
// the consumer draws a gap instead of a zero.
func ToPlotRows(ds *transform.Dataset) []Point {
	if ds.Empty() {
		return nil
	}
	points := make([]Point, 0, ds.Rows()*len(ds.Columns))
	for row := 0; row < ds.Rows(); row++ {
		for col, name := range ds.Names {
			v := ds.Columns[col][row]
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			points = append(points, Point{Time: RowTime(row), Series: name, Value: v})
		}
	}
	return points
}

// AxisBounds pads the observed value range: percent data is widened by 10% of
// each bound's magnitude, raw frequency data by a fixed 100 units. ok is false when there
// is no defined value to bound.
func AxisBounds(ds *transform.Dataset, normalized bool) (b Bounds, ok bool) {
	lo, hi := math.Inf(1), math.Inf(-1)
	if !ds.Empty() {
		for _, col := range ds.Columns {
			for _, v := range col {
				if math.IsNaN(v) || math.IsInf(v, 0) {
					continue
				}
				lo = math.Min(lo, v)
				hi = math.Max(hi, v)
			}
		}
	}
	if lo > hi {
		return Bounds{}, false
	}

	if normalized {
		return Bounds{Min: lo - normalizedMargin*math.Abs(lo), Max: hi + normalizedMargin*math.Abs(hi)}, true
	}
	return Bounds{Min: lo - rawMargin, Max: hi + rawMargin}, true
}

func AxisLabel(normalized bool) string {
	if normalized {
		return NormalizedAxisLabel
	}
	return RawAxisLabel
}

func Title(normalized bool) string {
	if normalized {
		return NormalizedTitle
	}
	return RawTitle
}

// FormatElapsed renders a point time the way the chart axis does, as
// hours:minutes:seconds.
func FormatElapsed(t time.Time) string {
	return t.UTC().Format(time.TimeOnly)
}
