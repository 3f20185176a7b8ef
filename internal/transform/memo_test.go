package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sleepywoodpecker/freq-monitor/internal/series"
)

func TestMemoHitOnSameInputs(t *testing.T) {
	memo := NewMemo()
	cfg := Config{RangeEnd: 10, Normalize: true, BaselineWindow: 2}

	first, err := memo.Transform(columns(t, series.New("a", ramp(10))), cfg)
	require.NoError(t, err)
	second, err := memo.Transform(columns(t, series.New("a", ramp(10))), cfg)
	require.NoError(t, err)

	assert.Same(t, first, second)
	hits, misses := memo.Stats()
	assert.Equal(t, 1, hits)
	assert.Equal(t, 1, misses)
}

func TestMemoMissOnChangedInputs(t *testing.T) {
	memo := NewMemo()
	cfg := Config{RangeEnd: 10}

	_, err := memo.Transform(columns(t, series.New("a", ramp(10))), cfg)
	require.NoError(t, err)

	changed := ramp(10)
	changed[9]++
	_, err = memo.Transform(columns(t, series.New("a", changed)), cfg)
	require.NoError(t, err)
	_, err = memo.Transform(columns(t, series.New("b", ramp(10))), cfg)
	require.NoError(t, err)
	_, err = memo.Transform(columns(t, series.New("a", ramp(10))), Config{RangeEnd: 10, Smooth: true, SmoothingWindow: 2})
	require.NoError(t, err)

	hits, misses := memo.Stats()
	assert.Equal(t, 0, hits)
	assert.Equal(t, 4, misses)
}

func TestMemoInvalidate(t *testing.T) {
	memo := NewMemo()
	cs := columns(t, series.New("a", ramp(3)))

	_, err := memo.Transform(cs, Config{RangeEnd: 3})
	require.NoError(t, err)
	memo.Invalidate()
	_, err = memo.Transform(cs, Config{RangeEnd: 3})
	require.NoError(t, err)

	hits, misses := memo.Stats()
	assert.Equal(t, 0, hits)
	assert.Equal(t, 2, misses)
}

func TestMemoDoesNotCacheInvalidConfig(t *testing.T) {
	memo := NewMemo()
	_, err := memo.Transform(columns(t, series.New("a", ramp(3))), Config{RangeEnd: -1})
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.Empty(t, memo.entries)
}

func TestKeyIsOrderSensitive(t *testing.T) {
	a := series.New("a", ramp(4))
	b := series.New("b", ramp(4))
	assert.NotEqual(t, Key(columns(t, a, b), Config{}), Key(columns(t, b, a), Config{}))
}
