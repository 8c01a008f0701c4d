package stream

import (
	"errors"
	"math"
	"sync"

	"github.com/pro100Roman/plotting-tools/src/types"
)

// RollingBuffers is the shared state between one producer and one consumer: a
// fixed-capacity sequence of timestamps paired with one equally sized value
// series per tracked key. Appends evict the oldest entry from every sequence
// at once, so len(T) == len(Y[k]) holds for every key at all times.
//
// One mutex guards both append and snapshot; either operation observes and
// leaves a consistent pair of sequences.
type RollingBuffers struct {
	mu   sync.Mutex
	cap  int
	keys []string
	t    []float64
	y    map[string][]float64
}

// NewRollingBuffers creates buffers of the given capacity for the tracked
// keys. Capacity must be positive and the key set non-empty.
func NewRollingBuffers(capacity int, keys []string) (*RollingBuffers, error) {
	if capacity <= 0 {
		return nil, errors.New("buffers: capacity must be positive")
	}
	if len(keys) == 0 {
		return nil, errors.New("buffers: no keys configured")
	}
	y := make(map[string][]float64, len(keys))
	for _, k := range keys {
		y[k] = make([]float64, 0, capacity)
	}
	return &RollingBuffers{
		cap:  capacity,
		keys: append([]string(nil), keys...),
		t:    make([]float64, 0, capacity),
		y:    y,
	}, nil
}

// Append pushes one timestamp and one value per tracked key. A key missing
// from values is recorded as NaN so the length invariant survives partial
// samples from merged sources. At capacity the oldest element of every
// sequence is dropped first.
func (b *RollingBuffers) Append(t float64, values map[string]float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.t) >= b.cap {
		b.t = b.t[1:]
		for _, k := range b.keys {
			b.y[k] = b.y[k][1:]
		}
	}
	b.t = append(b.t, t)
	for _, k := range b.keys {
		v, ok := values[k]
		if !ok {
			v = math.NaN()
		}
		b.y[k] = append(b.y[k], v)
	}
}

// Snapshot copies the timestamps and every series under one critical section.
func (b *RollingBuffers) Snapshot() types.Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	snap := types.Snapshot{
		T: append([]float64(nil), b.t...),
		Y: make(map[string][]float64, len(b.keys)),
	}
	for _, k := range b.keys {
		snap.Y[k] = append([]float64(nil), b.y[k]...)
	}
	return snap
}

// Len returns the current number of buffered samples.
func (b *RollingBuffers) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.t)
}

// Keys returns the tracked key names in configured order.
func (b *RollingBuffers) Keys() []string { return b.keys }
