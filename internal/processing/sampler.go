package processing

import (
	"context"
	"time"

	"go.uber.org/zap"

	"sleepywoodpecker/freq-monitor/internal/series"
)

// Status is a point-in-time view of a session for live display.
type Status struct {
	Session   string
	State     State
	Samples   int
	Latest    series.Sample
	HasLatest bool
	Recording string
	Err       error
}

func (s *Session) Status() Status {
	s.mutex.Lock()
	st := Status{
		Session:   s.Name,
		State:     s.state,
		Recording: s.recordFile,
		Err:       s.lastErr,
	}
	buffer := s.buffer
	s.mutex.Unlock()

	st.Latest, _, st.HasLatest = buffer.Latest()
	st.Samples = buffer.Len()
	return st
}

// The session appends on its own cadence; the sampler reads whatever prefix is
// complete at each tick, so the display never waits on the device.

type sampler struct {
	samplingFrequency time.Duration
	sessions          []*Session
	display           func(Status)
	logger            *zap.Logger
}

func NewSampler(samplingFrequency time.Duration, sessions []*Session, display func(Status), logger *zap.Logger) *sampler {
	return &sampler{
		samplingFrequency: samplingFrequency,
		sessions:          sessions,
		display:           display,
		logger:            logger,
	}
}

func (s *sampler) SampleAndDisplay() {
	for _, session := range s.sessions {
		status := session.Status()
		s.display(status)
		s.logger.Debug("[sampler] collected status",
			zap.String("session", status.Session),
			zap.Stringer("state", status.State),
			zap.Int("samples", status.Samples),
		)
	}
}

func (s *sampler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.samplingFrequency)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.SampleAndDisplay()
		}
	}
}
