// Package recording writes the flat text log a recording session produces: a
// "freq" header followed by one sample per line.
package recording

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"go.uber.org/zap"

	"sleepywoodpecker/freq-monitor/internal/series"
)

var ErrNotOpen = errors.New("[recorder] no recording file open")

// DefaultFilename names a recording after the minute it was started in.
func DefaultFilename(now time.Time) string {
	return fmt.Sprintf("freq_data_%s.txt", now.Format("20060102_15:04"))
}

// Recorder is an append-only sample log. Every write reaches the file before
// WriteSample returns; a crash loses at most the write in flight.
type Recorder struct {
	Filename string
	file     *os.File
	logger   *zap.Logger
	written  int
}

// Open truncates (or creates) filename and writes the header line.
func Open(filename string, logger *zap.Logger) (*Recorder, error) {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("[recorder] creating directory for %s: %w", filename, err)
		}
	}

	file, err := os.OpenFile(filename, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("[recorder] opening %s: %w", filename, err)
	}

	r := &Recorder{
		Filename: filename,
		file:     file,
		logger:   logger,
	}
	if err := r.writeLine(series.Header); err != nil {
		_ = file.Close()
		return nil, err
	}

	logger.Info("[recorder] recording started", zap.String("outputFile", filename))
	return r, nil
}

func (r *Recorder) WriteSample(v series.Sample) error {
	if r == nil || r.file == nil {
		return ErrNotOpen
	}
	if err := r.writeLine(strconv.Itoa(v)); err != nil {
		return err
	}
	r.written++
	return nil
}

func (r *Recorder) writeLine(line string) error {
	if _, err := r.file.WriteString(line + "\n"); err != nil {
		return fmt.Errorf("[recorder] writing to %s: %w", r.Filename, err)
	}
	if err := r.file.Sync(); err != nil {
		return fmt.Errorf("[recorder] flushing %s: %w", r.Filename, err)
	}
	return nil
}

func (r *Recorder) Close() error {
	if r == nil || r.file == nil {
		return nil
	}
	file := r.file
	r.file = nil
	r.logger.Info("[recorder] recording closed", zap.String("outputFile", r.Filename), zap.Int("samples", r.written))
	if err := file.Close(); err != nil {
		return fmt.Errorf("[recorder] closing %s: %w", r.Filename, err)
	}
	return nil
}
