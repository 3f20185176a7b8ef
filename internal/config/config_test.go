package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sleepywoodpecker/freq-monitor/internal/transform"
)

var fixedNow = time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)

func TestProcessAndValidateDefaults(t *testing.T) {
	cfg := &Config{}
	require.NoError(t, ProcessAndValidate(cfg, &RawInput{}, fixedNow))

	assert.Equal(t, 230400, cfg.Baud)
	assert.Equal(t, 500*time.Millisecond, cfg.PollInterval)
	assert.Equal(t, "data", cfg.DataDir)
	assert.Equal(t, filepath.Join("data", "freq_data_20240501_09:30.txt"), cfg.RecordPath)
	assert.Equal(t, transform.Config{RangeEnd: 7200, StartOffset: 0, BaselineWindow: 120, SmoothingWindow: 300}, cfg.Transform)
	assert.Equal(t, TableOut, cfg.Output)
	assert.True(t, cfg.UseColors)
}

func TestProcessAndValidateOverrides(t *testing.T) {
	cfg := &Config{}
	input := &RawInput{
		Port:         "/dev/ttyUSB0",
		Baud:         921600,
		PollInterval: time.Second,
		DataDir:      "recordings",
		Filename:     "run1.txt",
		Range:        "00:10:00",
		Start:        "30",
		Normalize:    true,
		Baseline:     "1m",
		Smooth:       true,
		Window:       "00:00:20",
		Output:       "CSV",
		Color:        "no",
	}
	require.NoError(t, ProcessAndValidate(cfg, input, fixedNow))

	assert.Equal(t, "/dev/ttyUSB0", cfg.Port)
	assert.Equal(t, 921600, cfg.Baud)
	assert.Equal(t, time.Second, cfg.PollInterval)
	assert.Equal(t, filepath.Join("recordings", "run1.txt"), cfg.RecordPath)
	assert.Equal(t, transform.Config{RangeEnd: 600, StartOffset: 30, Normalize: true, BaselineWindow: 60, Smooth: true, SmoothingWindow: 20}, cfg.Transform)
	assert.Equal(t, CSVOut, cfg.Output)
	assert.False(t, cfg.UseColors)
}

func TestProcessAndValidateErrors(t *testing.T) {
	tests := []struct {
		name  string
		input RawInput
	}{
		{"baud", RawInput{Baud: 57600}},
		{"range", RawInput{Range: "soon"}},
		{"start", RawInput{Start: "-5"}},
		{"baseline", RawInput{Baseline: "1:2:3:4"}},
		{"window", RawInput{Window: "-1m"}},
		{"output", RawInput{Output: "xml"}},
		{"parquet without file", RawInput{Output: "parquet"}},
		{"color", RawInput{Color: "maybe"}},
		{"filename with dir", RawInput{Filename: "../x.txt"}},
		{"read timeout", RawInput{ReadTimeout: -time.Second}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, ProcessAndValidate(&Config{}, &tt.input, fixedNow))
		})
	}
}

func TestParseSeconds(t *testing.T) {
	tests := map[string]int{
		"02:00:00": 7200,
		"00:02:00": 120,
		"05:30":    330,
		"45":       45,
		"0":        0,
		"5m":       300,
		"1h30m":    5400,
	}
	for in, want := range tests {
		got, err := ParseSeconds(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, in := range []string{"", "abc", "1:x:3", "-3", "-2s", "1:-1"} {
		_, err := ParseSeconds(in)
		assert.Error(t, err, in)
	}
}

func TestParseBool(t *testing.T) {
	for _, in := range []string{"yes", "true", "1", "ON"} {
		v, err := ParseBool(in)
		require.NoError(t, err)
		assert.True(t, v, in)
	}
	for _, in := range []string{"no", "false", "0"} {
		v, err := ParseBool(in)
		require.NoError(t, err)
		assert.False(t, v, in)
	}
}
