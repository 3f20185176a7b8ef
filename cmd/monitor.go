package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"sleepywoodpecker/freq-monitor/internal/chart"
	"sleepywoodpecker/freq-monitor/internal/config"
	"sleepywoodpecker/freq-monitor/internal/export"
	"sleepywoodpecker/freq-monitor/internal/logger"
	"sleepywoodpecker/freq-monitor/internal/processing"
	"sleepywoodpecker/freq-monitor/internal/recording"
	rserial "sleepywoodpecker/freq-monitor/internal/rSerial"
	"sleepywoodpecker/freq-monitor/internal/series"
	"sleepywoodpecker/freq-monitor/internal/transform"
)

const statusInterval = time.Second

func newMonitorCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Show live readings from the instrument and optionally record them",
		Long: `Connect to the instrument and poll it twice a second, printing a status line
every second. Type a command and press enter while monitoring:

  pause            stop polling (connection and readings are kept)
  resume           start polling again
  record [name]    toggle recording, or start recording to data-dir/name
  reset            drop all readings and reconnect
  snapshot [name]  summarize readings so far, or write them as CSV to data-dir/name
  open             reconnect after a connection failure
  quit             close the connection and exit

Examples:
  freqmon monitor --port /dev/ttyUSB0
  freqmon monitor --port COM3 --baud 115200 --record --filename run1.txt`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			if cfg.Port == "" {
				return errors.New("no port selected; pass --port (see 'freqmon ports')")
			}

			log, err := logger.NewLogger(cfg.LogFile)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			return runMonitor(cmd.Context(), cfg, log, os.Stdin, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringP("port", "p", "", "Serial port the instrument is connected to")
	cmd.Flags().IntP("baud", "b", rserial.DefaultBaudRate, fmt.Sprintf("Baud rate, one of %v", rserial.BaudRates))
	cmd.Flags().Duration("poll-interval", processing.DefaultPollInterval, "Minimum time between reads")
	cmd.Flags().Duration("read-timeout", config.DefaultReadTimeout, "Fail the connection after this long without data (0 waits forever)")
	cmd.Flags().Bool("record", false, "Start recording immediately")
	cmd.Flags().String("filename", "", "Recording file name inside data-dir (default freq_data_<date>_<time>.txt)")
	bindFlags(v, cmd)
	return cmd
}

func newSession(cfg *config.Config, log *zap.Logger) *processing.Session {
	openSource := func() (processing.SampleSource, error) {
		source, err := rserial.Open(cfg.Port, cfg.Baud, cfg.ReadTimeout, log)
		if err != nil {
			return nil, err
		}
		return source, nil
	}
	openSink := func(filename string) (processing.Sink, error) {
		recorder, err := recording.Open(filename, log)
		if err != nil {
			return nil, err
		}
		return recorder, nil
	}

	session := processing.NewSession(cfg.Port, openSource, openSink, log)
	session.PollInterval = cfg.PollInterval
	return session
}

func runMonitor(ctx context.Context, cfg *config.Config, log *zap.Logger, in io.Reader, out io.Writer) error {
	session := newSession(cfg, log)
	defer func() {
		if err := session.Close(); err != nil {
			log.Warn("[monitor] error closing session", zap.Error(err))
		}
	}()

	if err := session.Open(); err != nil {
		return err
	}
	if cfg.Record {
		if err := session.StartRecording(cfg.RecordPath); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	printer := newStatusPrinter(out)
	sampler := processing.NewSampler(statusInterval, []*processing.Session{session}, printer.Print, log)

	go func() { _ = session.Run(ctx) }()
	go sampler.Run(ctx)
	go func() {
		if readCommands(in, session, cfg, out) {
			cancel()
		}
	}()

	<-ctx.Done()
	return nil
}

// readCommands handles operator commands until quit or end of input. Closed
// input leaves the monitor running until it is signalled.
func readCommands(in io.Reader, session *processing.Session, cfg *config.Config, out io.Writer) (quit bool) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		done, err := handleCommand(scanner.Text(), session, cfg, out)
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
		}
		if done {
			return true
		}
	}
	return false
}

func handleCommand(line string, session *processing.Session, cfg *config.Config, out io.Writer) (quit bool, err error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}

	switch fields[0] {
	case "pause":
		return false, session.Pause()
	case "resume":
		return false, session.Resume()
	case "reset":
		return false, session.Reset()
	case "open":
		return false, session.Open()
	case "record":
		if len(fields) > 1 {
			path, err := dataPath(cfg, fields[1])
			if err != nil {
				return false, err
			}
			return false, session.StartRecording(path)
		}
		if session.RecordingFile() != "" {
			return false, session.StopRecording()
		}
		return false, session.StartRecording(cfg.RecordPath)
	case "snapshot":
		name := ""
		if len(fields) > 1 {
			name = fields[1]
		}
		return false, writeSnapshot(out, session, cfg, name)
	case "quit", "exit":
		return true, nil
	}
	return false, fmt.Errorf("unknown command %q", fields[0])
}

func dataPath(cfg *config.Config, name string) (string, error) {
	if name == "." || name == ".." || filepath.Base(name) != name {
		return "", fmt.Errorf("file name %q must not contain a directory", name)
	}
	return filepath.Join(cfg.DataDir, name), nil
}

// writeSnapshot charts everything the session has read so far. With a name the
// plot rows go to data-dir/name as CSV, otherwise a summary table goes to out.
func writeSnapshot(out io.Writer, session *processing.Session, cfg *config.Config, name string) error {
	snapshot := session.Buffer().Snapshot()
	columns, err := series.NewColumnSet(snapshot)
	if err != nil {
		return err
	}
	ds, err := transform.Transform(columns, transform.Config{RangeEnd: snapshot.Len()})
	if err != nil {
		return err
	}

	if name == "" {
		return export.WriteTable(out, ds, false)
	}
	path, err := dataPath(cfg, name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	return writeTo(out, path, func(w io.Writer) error {
		return export.WriteCSV(w, chart.ToPlotRows(ds), valueHeader(false))
	})
}
