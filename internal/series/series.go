// Package series holds the sample types shared by the acquisition loop and the
// offline transform pipeline.
package series

import (
	"fmt"
)

// Header is the first line of every recording log.
const Header = "freq"

// Sample is one integer measurement. Its position in a Series is its only
// temporal coordinate.
type Sample = int

// Series is an ordered run of samples labeled by its source (a device session
// or a recording file name).
type Series struct {
	Name    string
	Samples []Sample
}

func New(name string, samples []Sample) Series {
	return Series{Name: name, Samples: samples}
}

func (s Series) Len() int {
	return len(s.Samples)
}

// Floats copies the samples out as float64 so transforms never touch the
// original backing array.
func (s Series) Floats() []float64 {
	out := make([]float64, len(s.Samples))
	for i, v := range s.Samples {
		out[i] = float64(v)
	}
	return out
}

// ColumnSet is a set of uniquely named series kept in insertion order.
type ColumnSet struct {
	columns []Series
	index   map[string]int
}

func NewColumnSet(columns ...Series) (*ColumnSet, error) {
	cs := &ColumnSet{index: make(map[string]int, len(columns))}
	for _, c := range columns {
		if err := cs.Add(c); err != nil {
			return nil, err
		}
	}
	return cs, nil
}

// Add appends a column. Names must be unique within the set.
func (cs *ColumnSet) Add(s Series) error {
	if cs.index == nil {
		cs.index = make(map[string]int)
	}
	if _, ok := cs.index[s.Name]; ok {
		return fmt.Errorf("duplicate series name %q", s.Name)
	}
	cs.index[s.Name] = len(cs.columns)
	cs.columns = append(cs.columns, s)
	return nil
}

func (cs *ColumnSet) Get(name string) (Series, bool) {
	if cs == nil {
		return Series{}, false
	}
	i, ok := cs.index[name]
	if !ok {
		return Series{}, false
	}
	return cs.columns[i], true
}

func (cs *ColumnSet) Len() int {
	if cs == nil {
		return 0
	}
	return len(cs.columns)
}

// Columns returns the series in insertion order. The returned slice is a copy;
// the samples inside it are shared and must be treated as read-only.
func (cs *ColumnSet) Columns() []Series {
	if cs == nil {
		return nil
	}
	out := make([]Series, len(cs.columns))
	copy(out, cs.columns)
	return out
}

func (cs *ColumnSet) Names() []string {
	if cs == nil {
		return nil
	}
	names := make([]string, len(cs.columns))
	for i, c := range cs.columns {
		names[i] = c.Name
	}
	return names
}
