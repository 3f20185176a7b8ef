package dataset

import (
	"sync"

	"sleepywoodpecker/freq-monitor/internal/series"
)

// MemoStats counts lookups served from memory versus the underlying source.
type MemoStats struct {
	Hits    int
	Misses  int
	Entries int
}

// Memo caches successful loads by identifier. Recordings are immutable once
// listed, so entries stay valid until the caller invalidates them. Failed
// loads are never cached.
type Memo struct {
	sync.RWMutex
	src     Source
	entries map[string]series.Series
	hits    int
	misses  int
}

var _ Source = (*Memo)(nil)

func NewMemo(src Source) *Memo {
	return &Memo{
		src:     src,
		entries: make(map[string]series.Series),
	}
}

func (m *Memo) Load(id string) (series.Series, error) {
	m.Lock()
	if s, ok := m.entries[id]; ok {
		m.hits++
		m.Unlock()
		return s, nil
	}
	m.misses++
	m.Unlock()

	s, err := m.src.Load(id)
	if err != nil {
		return series.Series{}, err
	}

	m.Lock()
	m.entries[id] = s
	m.Unlock()
	return s, nil
}

func (m *Memo) Invalidate(id string) {
	m.Lock()
	defer m.Unlock()
	delete(m.entries, id)
}

// Reset drops every entry and zeroes the counters.
func (m *Memo) Reset() {
	m.Lock()
	defer m.Unlock()
	m.entries = make(map[string]series.Series)
	m.hits, m.misses = 0, 0
}

func (m *Memo) Stats() MemoStats {
	m.RLock()
	defer m.RUnlock()
	return MemoStats{Hits: m.hits, Misses: m.misses, Entries: len(m.entries)}
}
