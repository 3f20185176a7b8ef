package transform

import (
	"encoding/binary"
	"sync"

	"github.com/cespare/xxhash/v2"

	"sleepywoodpecker/freq-monitor/internal/series"
)

// Memo caches Transform results keyed by a digest of the input columns and
// the config. Returned datasets are shared between callers and must not be
// modified.
type Memo struct {
	sync.RWMutex
	entries map[uint64]*Dataset
	hits    int
	misses  int
}

func NewMemo() *Memo {
	return &Memo{entries: make(map[uint64]*Dataset)}
}

// Key digests every column name and sample plus the config fields.
func Key(cs *series.ColumnSet, cfg Config) uint64 {
	d := xxhash.New()
	buf := make([]byte, 0, 64)

	for _, c := range cs.Columns() {
		buf = buf[:0]
		buf = binary.LittleEndian.AppendUint64(buf, uint64(len(c.Name)))
		_, _ = d.Write(buf)
		_, _ = d.WriteString(c.Name)

		buf = binary.LittleEndian.AppendUint64(buf[:0], uint64(len(c.Samples)))
		for _, v := range c.Samples {
			buf = binary.LittleEndian.AppendUint64(buf, uint64(int64(v)))
			if len(buf) >= 56 {
				_, _ = d.Write(buf)
				buf = buf[:0]
			}
		}
		_, _ = d.Write(buf)
	}

	buf = buf[:0]
	for _, v := range []int{cfg.RangeEnd, cfg.StartOffset, cfg.BaselineWindow, cfg.SmoothingWindow} {
		buf = binary.LittleEndian.AppendUint64(buf, uint64(int64(v)))
	}
	buf = append(buf, boolByte(cfg.Normalize), boolByte(cfg.Smooth))
	_, _ = d.Write(buf)

	return d.Sum64()
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

func (m *Memo) Transform(cs *series.ColumnSet, cfg Config) (*Dataset, error) {
	key := Key(cs, cfg)

	m.Lock()
	if ds, ok := m.entries[key]; ok {
		m.hits++
		m.Unlock()
		return ds, nil
	}
	m.misses++
	m.Unlock()

	ds, err := Transform(cs, cfg)
	if err != nil {
		return nil, err
	}

	m.Lock()
	m.entries[key] = ds
	m.Unlock()
	return ds, nil
}

func (m *Memo) Invalidate() {
	m.Lock()
	defer m.Unlock()
	m.entries = make(map[uint64]*Dataset)
}

// Stats returns hit and miss counts.
func (m *Memo) Stats() (hits, misses int) {
	m.RLock()
	defer m.RUnlock()
	return m.hits, m.misses
}
