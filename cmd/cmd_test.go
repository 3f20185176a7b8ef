package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"sleepywoodpecker/freq-monitor/internal/config"
	"sleepywoodpecker/freq-monitor/internal/dataset"
	"sleepywoodpecker/freq-monitor/internal/processing"
	"sleepywoodpecker/freq-monitor/internal/series"
	"sleepywoodpecker/freq-monitor/internal/transform"
)

var fixedTime = time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)

func init() {
	color.NoColor = true
}

type listSource struct {
	values []series.Sample
}

func (l *listSource) NextSample() (series.Sample, error) {
	if len(l.values) == 0 {
		return 0, errors.New("drained")
	}
	v := l.values[0]
	l.values = l.values[1:]
	return v, nil
}

func (l *listSource) Close() error { return nil }

func testConfig(t *testing.T, input config.RawInput) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	require.NoError(t, config.ProcessAndValidate(cfg, &input, fixedTime))
	return cfg
}

func TestHandleCommand(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t, config.RawInput{DataDir: dir, Filename: "default.txt"})

	session := processing.NewSession("dev",
		func() (processing.SampleSource, error) { return &listSource{values: []series.Sample{1, 2, 3}}, nil },
		func(name string) (processing.Sink, error) { return newFileSink(t, name), nil },
		zap.NewNop())
	t.Cleanup(func() { _ = session.Close() })
	require.NoError(t, session.Open())

	var out bytes.Buffer
	quit, err := handleCommand("pause", session, cfg, &out)
	require.NoError(t, err)
	assert.False(t, quit)
	assert.Equal(t, processing.Paused, session.State())

	_, err = handleCommand("resume", session, cfg, &out)
	require.NoError(t, err)
	assert.Equal(t, processing.Running, session.State())

	_, err = handleCommand("record", session, cfg, &out)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "default.txt"), session.RecordingFile())

	_, err = handleCommand("record", session, cfg, &out)
	require.NoError(t, err)
	assert.Empty(t, session.RecordingFile())

	_, err = handleCommand("record other.txt", session, cfg, &out)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "other.txt"), session.RecordingFile())

	_, err = handleCommand("record ../escape.txt", session, cfg, &out)
	assert.Error(t, err)

	require.NoError(t, session.Step())
	_, err = handleCommand("reset", session, cfg, &out)
	require.NoError(t, err)
	assert.Equal(t, 0, session.Buffer().Len())

	_, err = handleCommand("bogus", session, cfg, &out)
	assert.Error(t, err)

	quit, err = handleCommand("  ", session, cfg, &out)
	require.NoError(t, err)
	assert.False(t, quit)

	quit, err = handleCommand("quit", session, cfg, &out)
	require.NoError(t, err)
	assert.True(t, quit)
}

func TestSnapshotCommand(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t, config.RawInput{DataDir: filepath.Join(dir, "data")})

	session := processing.NewSession("dev",
		func() (processing.SampleSource, error) { return &listSource{values: []series.Sample{1, 2, 3}}, nil },
		nil, zap.NewNop())
	t.Cleanup(func() { _ = session.Close() })
	require.NoError(t, session.Open())

	var out bytes.Buffer
	_, err := handleCommand("snapshot", session, cfg, &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "No data in the selected range.")

	require.NoError(t, session.Step())
	require.NoError(t, session.Step())

	out.Reset()
	_, err = handleCommand("snapshot", session, cfg, &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "dev")
	assert.Contains(t, out.String(), "frequency versus time: frequency (Hz) [-99.00, 102.00]")

	out.Reset()
	_, err = handleCommand("snapshot live.csv", session, cfg, &out)
	require.NoError(t, err)
	got, err := os.ReadFile(filepath.Join(dir, "data", "live.csv"))
	require.NoError(t, err)
	assert.Equal(t, "time,legend,frequency\n00:00:00,dev,1\n00:00:01,dev,2\n", string(got))
	assert.Contains(t, out.String(), "Wrote")

	_, err = handleCommand("snapshot ../live.csv", session, cfg, &out)
	assert.Error(t, err)

	assert.Equal(t, 2, session.Buffer().Len())
}

type fileSink struct {
	file *os.File
}

func newFileSink(t *testing.T, name string) *fileSink {
	f, err := os.Create(name)
	require.NoError(t, err)
	return &fileSink{file: f}
}

func (f *fileSink) WriteSample(series.Sample) error { return nil }
func (f *fileSink) Close() error                    { return f.file.Close() }

func TestReadCommandsStopsOnQuit(t *testing.T) {
	cfg := testConfig(t, config.RawInput{DataDir: t.TempDir()})
	session := processing.NewSession("dev",
		func() (processing.SampleSource, error) { return &listSource{}, nil }, nil, zap.NewNop())
	require.NoError(t, session.Open())

	var out bytes.Buffer
	quit := readCommands(strings.NewReader("pause\nnope\nquit\nresume\n"), session, cfg, &out)
	assert.True(t, quit)
	assert.Contains(t, out.String(), `unknown command "nope"`)
	assert.Equal(t, processing.Paused, session.State())

	quit = readCommands(strings.NewReader("resume\n"), session, cfg, &out)
	assert.False(t, quit)
}

func TestRunMonitorBadPort(t *testing.T) {
	cfg := testConfig(t, config.RawInput{Port: filepath.Join(t.TempDir(), "no-such-port"), DataDir: t.TempDir()})

	err := runMonitor(context.Background(), cfg, zap.NewNop(), strings.NewReader(""), &bytes.Buffer{})
	assert.Error(t, err)
}

func TestFormatStatus(t *testing.T) {
	line := formatStatus(processing.Status{Session: "COM3", State: processing.Running, Samples: 12, Latest: 23001, HasLatest: true, Recording: "data/x.txt"})
	assert.Equal(t, "[running] COM3 samples=12 latest=23001 Hz REC data/x.txt", line)

	line = formatStatus(processing.Status{Session: "COM3", State: processing.Idle, Err: errors.New("unplugged")})
	assert.Equal(t, `[idle] COM3 samples=0 latest=- error="unplugged" (type 'open' to reconnect)`, line)
}

func writeRecording(t *testing.T, dir, name string, values ...int) {
	t.Helper()
	var b strings.Builder
	b.WriteString("freq\n")
	for _, v := range values {
		b.WriteString(strconv.Itoa(v) + "\n")
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(b.String()), 0o644))
}

func TestRunResultsTable(t *testing.T) {
	dir := t.TempDir()
	writeRecording(t, dir, "a.txt", 100, 100, 100, 100, 200, 200)
	cfg := testConfig(t, config.RawInput{DataDir: dir, Normalize: true, Baseline: "2"})

	var out, errOut bytes.Buffer
	loader := dataset.NewMemo(dataset.NewLoader(dir))
	require.NoError(t, runResults(&out, &errOut, cfg, loader, transform.NewMemo(), []string{"a.txt"}, zap.NewNop()))

	assert.Contains(t, out.String(), "a.txt")
	assert.Contains(t, out.String(), "change in frequency versus time: change in frequency (%) [0.00, 110.00]")
	assert.Empty(t, errOut.String())
}

func TestRunResultsSkipsMissingRecording(t *testing.T) {
	dir := t.TempDir()
	writeRecording(t, dir, "a.txt", 1, 2, 3)
	writeRecording(t, dir, "b.txt", 4, 5)
	cfg := testConfig(t, config.RawInput{DataDir: dir, Output: "csv", OutputFile: filepath.Join(dir, "out.csv")})

	var out, errOut bytes.Buffer
	loader := dataset.NewMemo(dataset.NewLoader(dir))
	require.NoError(t, runResults(&out, &errOut, cfg, loader, transform.NewMemo(), []string{"a.txt", "gone.txt", "b.txt"}, zap.NewNop()))

	assert.Contains(t, errOut.String(), `recording "gone.txt" not found`)
	assert.Contains(t, out.String(), "Wrote")

	got, err := os.ReadFile(filepath.Join(dir, "out.csv"))
	require.NoError(t, err)
	assert.Equal(t, "time,legend,frequency\n"+
		"00:00:00,a.txt,1\n00:00:00,b.txt,4\n"+
		"00:00:01,a.txt,2\n00:00:01,b.txt,5\n"+
		"00:00:02,a.txt,3\n", string(got))
}

func TestRunResultsNothingLoaded(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t, config.RawInput{DataDir: dir})

	var out, errOut bytes.Buffer
	err := runResults(&out, &errOut, cfg, dataset.NewLoader(dir), transform.NewMemo(), []string{"gone.txt"}, zap.NewNop())
	assert.Error(t, err)
}

func TestRunResultsParquet(t *testing.T) {
	dir := t.TempDir()
	writeRecording(t, dir, "a.txt", 1, 2, 3)
	path := filepath.Join(dir, "a.parquet")
	cfg := testConfig(t, config.RawInput{DataDir: dir, Output: "parquet", OutputFile: path})

	var out, errOut bytes.Buffer
	require.NoError(t, runResults(&out, &errOut, cfg, dataset.NewLoader(dir), transform.NewMemo(), []string{"a.txt"}, zap.NewNop()))
	assert.FileExists(t, path)
}

func TestWriteRecordings(t *testing.T) {
	dir := t.TempDir()
	writeRecording(t, dir, "a.txt", 1)

	var out bytes.Buffer
	require.NoError(t, writeRecordings(&out, dataset.DirCatalog{Dir: dir}, dir))
	assert.Contains(t, out.String(), "a.txt")

	out.Reset()
	empty := t.TempDir()
	require.NoError(t, writeRecordings(&out, dataset.DirCatalog{Dir: empty}, empty))
	assert.Contains(t, out.String(), "No recordings in")
}

func TestWritePorts(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, writePorts(&out, []string{"/dev/ttyUSB0"}))
	assert.Contains(t, out.String(), "/dev/ttyUSB0")

	out.Reset()
	require.NoError(t, writePorts(&out, nil))
	assert.Equal(t, "No serial ports found.\n", out.String())
}

func TestRootCommandWiring(t *testing.T) {
	root := newRootCmd()
	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"monitor", "results", "ports", "recordings"} {
		assert.True(t, names[want], want)
	}
}
