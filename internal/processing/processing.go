package processing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"sleepywoodpecker/freq-monitor/internal/series"
)

const DefaultPollInterval = 500 * time.Millisecond

var (
	ErrClosed     = errors.New("[session] session is closed")
	ErrNotRunning = errors.New("[session] session is not running")
	ErrNotOpen    = errors.New("[session] no open connection")
)

type State int

const (
	Idle State = iota
	Running
	Paused
	Closed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Paused:
		return "paused"
	case Closed:
		return "closed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// SampleSource yields one sample per call and blocks until it has one.
type SampleSource interface {
	NextSample() (series.Sample, error)
	Close() error
}

// SourceOpener establishes a fresh connection. Reset calls it again rather
// than reusing a connection that may still hold undelivered bytes.
type SourceOpener func() (SampleSource, error)

// Sink mirrors samples to durable storage.
type Sink interface {
	WriteSample(series.Sample) error
	Close() error
}

type SinkOpener func(filename string) (Sink, error)

// Session owns one device connection, the buffer of everything read from it,
// and optionally a recording sink.
type Session struct {
	Name         string
	PollInterval time.Duration

	openSource SourceOpener
	openSink   SinkOpener
	logger     *zap.Logger

	mutex      sync.Mutex
	state      State
	source     SampleSource
	generation int
	buffer     *SeriesBuffer
	sink       Sink
	recordFile string
	lastErr    error
}

func NewSession(name string, openSource SourceOpener, openSink SinkOpener, logger *zap.Logger) *Session {
	return &Session{
		Name:         name,
		PollInterval: DefaultPollInterval,
		openSource:   openSource,
		openSink:     openSink,
		logger:       logger,
		buffer:       NewSeriesBuffer(name),
	}
}

// Open connects and starts polling. A session left idle by a read failure can
// be reopened; its buffer is kept.
func (s *Session) Open() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	switch s.state {
	case Closed:
		return ErrClosed
	case Running, Paused:
		return nil
	}

	source, err := s.openSource()
	if err != nil {
		s.lastErr = err
		return fmt.Errorf("[session] opening %s: %w", s.Name, err)
	}
	s.source = source
	s.generation++
	s.state = Running
	s.lastErr = nil

	s.logger.Info("[session] connection opened", zap.String("session", s.Name), zap.Int("bufferedSamples", s.buffer.Len()))
	return nil
}

// Pause stops scheduling reads. A read already in flight still completes.
func (s *Session) Pause() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	switch s.state {
	case Closed:
		return ErrClosed
	case Idle:
		return ErrNotOpen
	}
	s.state = Paused
	s.logger.Info("[session] paused", zap.String("session", s.Name))
	return nil
}

func (s *Session) Resume() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	switch s.state {
	case Closed:
		return ErrClosed
	case Idle:
		return ErrNotOpen
	}
	s.state = Running
	s.logger.Info("[session] resumed", zap.String("session", s.Name))
	return nil
}

// Reset drops the buffer and reconnects. The session returns to the state it
// was in (running or paused); an active recording keeps its file.
func (s *Session) Reset() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	switch s.state {
	case Closed:
		return ErrClosed
	case Idle:
		return ErrNotOpen
	}

	prev := s.state
	s.generation++
	s.buffer = NewSeriesBuffer(s.Name)
	if err := s.source.Close(); err != nil {
		s.logger.Warn("[session] error closing connection during reset", zap.Error(err), zap.String("session", s.Name))
	}
	s.source = nil

	source, err := s.openSource()
	if err != nil {
		s.state = Idle
		s.lastErr = err
		s.logger.Error("[session] reconnect failed", zap.Error(err), zap.String("session", s.Name))
		return fmt.Errorf("[session] reconnecting %s: %w", s.Name, err)
	}
	s.source = source
	s.state = prev

	s.logger.Info("[session] buffer reset", zap.String("session", s.Name))
	return nil
}

// Close releases the connection and any recording. It is terminal.
func (s *Session) Close() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.state == Closed {
		return nil
	}
	s.state = Closed
	s.generation++

	var err error
	if s.source != nil {
		err = multierr.Append(err, s.source.Close())
		s.source = nil
	}
	err = multierr.Append(err, s.closeSinkLocked())

	s.logger.Info("[session] closed", zap.String("session", s.Name), zap.Int("bufferedSamples", s.buffer.Len()))
	return err
}

// StartRecording mirrors every sample read from now on into filename. Samples
// already buffered are not written.
func (s *Session) StartRecording(filename string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.state == Closed {
		return ErrClosed
	}
	if err := s.closeSinkLocked(); err != nil {
		s.logger.Warn("[session] error closing previous recording", zap.Error(err), zap.String("session", s.Name))
	}

	sink, err := s.openSink(filename)
	if err != nil {
		return err
	}
	s.sink = sink
	s.recordFile = filename
	return nil
}

func (s *Session) StopRecording() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.closeSinkLocked()
}

func (s *Session) closeSinkLocked() error {
	if s.sink == nil {
		return nil
	}
	sink := s.sink
	s.sink = nil
	s.recordFile = ""
	return sink.Close()
}

// Step performs one read. Samples from a connection that was reset or closed
// while the read was pending are discarded. A read or write failure leaves the
// buffer and anything already recorded intact and drops the session to Idle.
func (s *Session) Step() error {
	s.mutex.Lock()
	if s.state != Running {
		s.mutex.Unlock()
		return ErrNotRunning
	}
	source, generation := s.source, s.generation
	s.mutex.Unlock()

	sample, err := source.NextSample()

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if generation != s.generation || s.state == Closed || s.state == Idle {
		return nil
	}
	if err != nil {
		s.failLocked(err)
		return err
	}

	index := s.buffer.Append(sample)
	if s.sink != nil {
		if err := s.sink.WriteSample(sample); err != nil {
			s.logger.Error("[session] recording write failed", zap.Error(err), zap.String("session", s.Name), zap.String("outputFile", s.recordFile))
			if cerr := s.closeSinkLocked(); cerr != nil {
				s.logger.Warn("[session] error closing recording", zap.Error(cerr))
			}
			s.failLocked(err)
			return err
		}
	}

	s.logger.Debug("[session] sample", zap.String("session", s.Name), zap.Int("index", index), zap.Int("value", sample))
	return nil
}

func (s *Session) failLocked(err error) {
	s.lastErr = err
	s.state = Idle
	s.generation++
	if s.source != nil {
		if cerr := s.source.Close(); cerr != nil {
			s.logger.Warn("[session] error closing failed connection", zap.Error(cerr), zap.String("session", s.Name))
		}
		s.source = nil
	}
	s.logger.Error("[session] connection failed", zap.Error(err), zap.String("session", s.Name))
}

// Run polls while the session is running, at most once per PollInterval. It
// returns when ctx is cancelled or the session is closed. Read failures do not
// end Run; the session idles until it is reopened.
func (s *Session) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("[session] received shutdown signal", zap.String("session", s.Name))
			return ctx.Err()
		case <-ticker.C:
		}

		switch s.State() {
		case Closed:
			return nil
		case Running:
			_ = s.Step()
		}
	}
}

func (s *Session) State() State {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.state
}

// Err is the failure that last left the session idle.
func (s *Session) Err() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.lastErr
}

// Buffer is the live buffer. Reset replaces it, so callers should not hold on
// to it across a reset.
func (s *Session) Buffer() *SeriesBuffer {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.buffer
}

// RecordingFile is the active recording path, or "" when not recording.
func (s *Session) RecordingFile() string {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.recordFile
}
