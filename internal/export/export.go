// Package export writes chart data in the formats the results command offers.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/parquet-go/parquet-go"

	"sleepywoodpecker/freq-monitor/internal/chart"
	"sleepywoodpecker/freq-monitor/internal/transform"
)

// PlotRow is the Parquet row for one chart point.
type PlotRow struct {
	// ElapsedSeconds is the row index of the point
	ElapsedSeconds int64 `parquet:"elapsed_seconds,snappy"`

	Time time.Time `parquet:"time,snappy"`

	Series string `parquet:"series,dict,snappy"`

	Value float64 `parquet:"value,snappy"`
}

func toPlotRows(points []chart.Point) []PlotRow {
	rows := make([]PlotRow, len(points))
	for i, p := range points {
		rows[i] = PlotRow{
			ElapsedSeconds: int64(p.Elapsed() / time.Second),
			Time:           p.Time,
			Series:         p.Series,
			Value:          p.Value,
		}
	}
	return rows
}

// WriteParquet writes points to a Parquet file at outputPath.
func WriteParquet(points []chart.Point, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { _ = file.Close() }()

	writer := parquet.NewGenericWriter[PlotRow](file)
	if _, err := writer.Write(toPlotRows(points)); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close parquet writer: %w", err)
	}
	return nil
}

// WriteCSV writes points in long format: time, series, value.
func WriteCSV(w io.Writer, points []chart.Point, valueHeader string) error {
	csvWriter := csv.NewWriter(w)
	if err := csvWriter.Write([]string{"time", "legend", valueHeader}); err != nil {
		return err
	}
	for _, p := range points {
		record := []string{
			chart.FormatElapsed(p.Time),
			p.Series,
			strconv.FormatFloat(p.Value, 'f', -1, 64),
		}
		if err := csvWriter.Write(record); err != nil {
			return err
		}
	}
	csvWriter.Flush()
	return csvWriter.Error()
}

// SeriesSummary describes the defined values of one column.
type SeriesSummary struct {
	Series  string
	Defined int
	Min     float64
	Max     float64
	Mean    float64
	Last    float64
}

func Summarize(ds *transform.Dataset) []SeriesSummary {
	if ds.Empty() {
		return nil
	}
	out := make([]SeriesSummary, 0, len(ds.Names))
	for i, name := range ds.Names {
		s := SeriesSummary{Series: name, Min: math.NaN(), Max: math.NaN(), Mean: math.NaN(), Last: math.NaN()}
		sum := 0.0
		for _, v := range ds.Columns[i] {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			if s.Defined == 0 {
				s.Min, s.Max = v, v
			}
			s.Min = math.Min(s.Min, v)
			s.Max = math.Max(s.Max, v)
			s.Last = v
			sum += v
			s.Defined++
		}
		if s.Defined > 0 {
			s.Mean = sum / float64(s.Defined)
		}
		out = append(out, s)
	}
	return out
}

func formatValue(v float64, precision int) string {
	if math.IsNaN(v) {
		return "-"
	}
	return strconv.FormatFloat(v, 'f', precision, 64)
}

// WriteTable prints one row per series plus the chart's axis bounds.
func WriteTable(w io.Writer, ds *transform.Dataset, normalized bool) error {
	table := tablewriter.NewWriter(w)

	headers := []string{"Series", "Rows", "Defined", "Min", "Max", "Mean", "Last"}
	table.Header(headers)

	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	var data [][]string
	for _, s := range Summarize(ds) {
		data = append(data, []string{
			s.Series,
			strconv.Itoa(ds.Rows()),
			strconv.Itoa(s.Defined),
			formatValue(s.Min, 2),
			formatValue(s.Max, 2),
			formatValue(s.Mean, 2),
			formatValue(s.Last, 2),
		})
	}

	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}

	if b, ok := chart.AxisBounds(ds, normalized); ok {
		_, err := fmt.Fprintf(w, "%s: %s [%s, %s]\n", chart.Title(normalized), chart.AxisLabel(normalized),
			formatValue(b.Min, 2), formatValue(b.Max, 2))
		return err
	}
	_, err := fmt.Fprintln(w, "No data in the selected range.")
	return err
}
