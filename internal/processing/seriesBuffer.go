package processing

import (
	"sync"

	"sleepywoodpecker/freq-monitor/internal/series"
)

// The display path reads while the session appends, so every access goes
// through the mutex. Readers only ever copy a prefix that is already complete.

type SeriesBuffer struct {
	name         string
	samples      []series.Sample
	samplesMutex sync.RWMutex
}

func NewSeriesBuffer(name string) *SeriesBuffer {
	return &SeriesBuffer{name: name}
}

// Append stores v at the next index and returns that index.
func (b *SeriesBuffer) Append(v series.Sample) int {
	b.samplesMutex.Lock()
	defer b.samplesMutex.Unlock()

	b.samples = append(b.samples, v)
	return len(b.samples) - 1
}

func (b *SeriesBuffer) Len() int {
	b.samplesMutex.RLock()
	defer b.samplesMutex.RUnlock()

	return len(b.samples)
}

// Latest returns the last sample and its index.
func (b *SeriesBuffer) Latest() (series.Sample, int, bool) {
	b.samplesMutex.RLock()
	defer b.samplesMutex.RUnlock()

	if len(b.samples) == 0 {
		return 0, -1, false
	}
	return b.samples[len(b.samples)-1], len(b.samples) - 1, true
}

// Snapshot copies the buffer out as a static series.
func (b *SeriesBuffer) Snapshot() series.Series {
	b.samplesMutex.RLock()
	defer b.samplesMutex.RUnlock()

	out := make([]series.Sample, len(b.samples))
	copy(out, b.samples)
	return series.New(b.name, out)
}
