package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"sleepywoodpecker/freq-monitor/internal/chart"
	"sleepywoodpecker/freq-monitor/internal/config"
	"sleepywoodpecker/freq-monitor/internal/dataset"
	"sleepywoodpecker/freq-monitor/internal/export"
	"sleepywoodpecker/freq-monitor/internal/logger"
	"sleepywoodpecker/freq-monitor/internal/transform"
)

func newResultsCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "results <recording>...",
		Short: "Compare recorded runs over a shared time axis",
		Long: `Load one or more recordings from data-dir, cut them to a time range, and
optionally express them as percent change from a baseline and smooth them with a
moving average. Times are HH:MM:SS, a duration such as 5m, or plain seconds; the
instrument reports once per second, so each second is one sample.

Examples:
  # First two hours of a run
  freqmon results freq_data_20240501_09:30.txt

  # Two runs as percent change from their first two minutes, 5 minute smoothing
  freqmon results a.txt b.txt --normalize --baseline 00:02:00 --smooth --window 00:05:00

  # Export chart points for plotting elsewhere
  freqmon results a.txt --output parquet --output-file a.parquet`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}

			log, err := logger.NewLogger(cfg.LogFile)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			loader := dataset.NewMemo(dataset.NewLoader(cfg.DataDir))
			return runResults(cmd.OutOrStdout(), cmd.ErrOrStderr(), cfg, loader, transform.NewMemo(), args, log)
		},
	}

	cmd.Flags().String("range", config.DefaultRange, "End of the data range from the start of each recording")
	cmd.Flags().String("start", config.DefaultStart, "Skip this much at the start of each recording")
	cmd.Flags().Bool("normalize", false, "Show percent change from the baseline")
	cmd.Flags().String("baseline", config.DefaultBaseline, "Length of the baseline averaged for normalization")
	cmd.Flags().Bool("smooth", false, "Apply a moving average")
	cmd.Flags().String("window", config.DefaultWindow, "Moving average window")
	cmd.Flags().StringP("output", "o", string(config.TableOut), "Output format: table or csv or parquet")
	cmd.Flags().String("output-file", "", "Optional path to write output to")
	bindFlags(v, cmd)
	return cmd
}

// runResults loads ids, transforms them and writes the chosen output. A
// recording that fails to load is reported and left out.
func runResults(out, errOut io.Writer, cfg *config.Config, loader dataset.Source, memo *transform.Memo, ids []string, log *zap.Logger) error {
	columns, err := dataset.LoadAll(loader, ids)
	if err != nil {
		log.Warn("[results] some recordings could not be loaded", zap.Error(err))
		fmt.Fprintf(errOut, "Warning: %v\n", err)
	}
	if columns.Len() == 0 {
		return fmt.Errorf("no recordings loaded")
	}
	log.Info("[results] recordings loaded", zap.Strings("recordings", columns.Names()))

	ds, err := memo.Transform(columns, cfg.Transform)
	if err != nil {
		return err
	}
	normalized := cfg.Transform.Normalize

	switch cfg.Output {
	case config.ParquetOut:
		if err := export.WriteParquet(chart.ToPlotRows(ds), cfg.OutputFile); err != nil {
			return err
		}
		fmt.Fprintf(out, "Wrote %s\n", cfg.OutputFile)
		return nil
	case config.CSVOut:
		return writeTo(out, cfg.OutputFile, func(w io.Writer) error {
			return export.WriteCSV(w, chart.ToPlotRows(ds), valueHeader(normalized))
		})
	default:
		return writeTo(out, cfg.OutputFile, func(w io.Writer) error {
			return export.WriteTable(w, ds, normalized)
		})
	}
}

func valueHeader(normalized bool) string {
	if normalized {
		return "change_percent"
	}
	return "frequency"
}

func writeTo(out io.Writer, path string, write func(io.Writer) error) error {
	if path == "" {
		return write(out)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := write(file); err != nil {
		_ = file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return err
	}
	fmt.Fprintf(out, "Wrote %s\n", path)
	return nil
}
