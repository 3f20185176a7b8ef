// Package config turns the raw values gathered by viper (file, env, flags)
// into a validated Config.
package config

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"sleepywoodpecker/freq-monitor/internal/processing"
	"sleepywoodpecker/freq-monitor/internal/recording"
	rserial "sleepywoodpecker/freq-monitor/internal/rSerial"
	"sleepywoodpecker/freq-monitor/internal/transform"
)

// Default values for configuration.
const (
	DefaultDataDir     = "data"
	DefaultLogFile     = "freqmon.logs"
	DefaultReadTimeout = 5 * time.Second
	DefaultRange       = "02:00:00"
	DefaultStart       = "00:00:00"
	DefaultBaseline    = "00:02:00"
	DefaultWindow      = "00:05:00"
)

type OutputFormat string

const (
	TableOut   OutputFormat = "table"
	CSVOut     OutputFormat = "csv"
	ParquetOut OutputFormat = "parquet"
)

// RawInput holds unvalidated values as viper unmarshals them.
type RawInput struct {
	Port         string        `mapstructure:"port"`
	Baud         int           `mapstructure:"baud"`
	PollInterval time.Duration `mapstructure:"poll-interval"`
	ReadTimeout  time.Duration `mapstructure:"read-timeout"`
	DataDir      string        `mapstructure:"data-dir"`
	LogFile      string        `mapstructure:"log-file"`
	Record       bool          `mapstructure:"record"`
	Filename     string        `mapstructure:"filename"`

	Range     string `mapstructure:"range"`
	Start     string `mapstructure:"start"`
	Normalize bool   `mapstructure:"normalize"`
	Baseline  string `mapstructure:"baseline"`
	Smooth    bool   `mapstructure:"smooth"`
	Window    string `mapstructure:"window"`

	Output     string `mapstructure:"output"`
	OutputFile string `mapstructure:"output-file"`
	Color      string `mapstructure:"color"`
}

// Config is the validated configuration.
type Config struct {
	Port         string
	Baud         int
	PollInterval time.Duration
	ReadTimeout  time.Duration
	DataDir      string
	LogFile      string
	Record       bool
	// RecordPath is the recording file inside DataDir.
	RecordPath string

	Transform transform.Config

	Output     OutputFormat
	OutputFile string
	UseColors  bool
}

// ProcessAndValidate fills cfg from input. now picks the default recording
// file name.
func ProcessAndValidate(cfg *Config, input *RawInput, now time.Time) error {
	if input.Baud == 0 {
		input.Baud = rserial.DefaultBaudRate
	}
	if err := rserial.ValidateBaudRate(input.Baud); err != nil {
		return err
	}
	cfg.Port = input.Port
	cfg.Baud = input.Baud

	cfg.PollInterval = input.PollInterval
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = processing.DefaultPollInterval
	}
	if input.ReadTimeout < 0 {
		return fmt.Errorf("read-timeout must not be negative, got %v", input.ReadTimeout)
	}
	cfg.ReadTimeout = input.ReadTimeout

	cfg.DataDir = orDefault(input.DataDir, DefaultDataDir)
	cfg.LogFile = orDefault(input.LogFile, DefaultLogFile)
	cfg.Record = input.Record
	filename := orDefault(input.Filename, recording.DefaultFilename(now))
	if filepath.Base(filename) != filename {
		return fmt.Errorf("filename %q must not contain a directory", filename)
	}
	cfg.RecordPath = filepath.Join(cfg.DataDir, filename)

	var err error
	tc := transform.Config{Normalize: input.Normalize, Smooth: input.Smooth}
	if tc.RangeEnd, err = ParseSeconds(orDefault(input.Range, DefaultRange)); err != nil {
		return fmt.Errorf("invalid range: %w", err)
	}
	if tc.StartOffset, err = ParseSeconds(orDefault(input.Start, DefaultStart)); err != nil {
		return fmt.Errorf("invalid start: %w", err)
	}
	if tc.BaselineWindow, err = ParseSeconds(orDefault(input.Baseline, DefaultBaseline)); err != nil {
		return fmt.Errorf("invalid baseline: %w", err)
	}
	if tc.SmoothingWindow, err = ParseSeconds(orDefault(input.Window, DefaultWindow)); err != nil {
		return fmt.Errorf("invalid window: %w", err)
	}
	if err := tc.Validate(); err != nil {
		return err
	}
	cfg.Transform = tc

	switch out := OutputFormat(strings.ToLower(orDefault(input.Output, string(TableOut)))); out {
	case TableOut, CSVOut, ParquetOut:
		cfg.Output = out
	default:
		return fmt.Errorf("invalid output format %q (want table, csv or parquet)", input.Output)
	}
	if cfg.Output == ParquetOut && input.OutputFile == "" {
		return fmt.Errorf("parquet output requires --output-file")
	}
	cfg.OutputFile = input.OutputFile

	if cfg.UseColors, err = ParseBool(orDefault(input.Color, "yes")); err != nil {
		return fmt.Errorf("invalid color setting: %w", err)
	}
	return nil
}

// ParseSeconds reads a sample count given as HH:MM:SS, MM:SS, a Go duration
// such as "5m", or a bare number of seconds. One sample is taken per second,
// so the result is also a sample count.
func ParseSeconds(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty duration")
	}

	if strings.Contains(s, ":") {
		parts := strings.Split(s, ":")
		if len(parts) > 3 {
			return 0, fmt.Errorf("%q is not HH:MM:SS", s)
		}
		total := 0
		for _, p := range parts {
			n, err := strconv.Atoi(p)
			if err != nil || n < 0 {
				return 0, fmt.Errorf("%q is not HH:MM:SS", s)
			}
			total = total*60 + n
		}
		return total, nil
	}

	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 {
			return 0, fmt.Errorf("%q is negative", s)
		}
		return n, nil
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%q is not a duration", s)
	}
	if d < 0 {
		return 0, fmt.Errorf("%q is negative", s)
	}
	return int(d / time.Second), nil
}

// ParseBool accepts yes/no in addition to what strconv.ParseBool does.
func ParseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "y", "on":
		return true, nil
	case "no", "n", "off":
		return false, nil
	}
	return strconv.ParseBool(s)
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
