package stream

import "sync/atomic"

// Flag is a shared binary signal. Two instances coordinate the whole
// pipeline: the readiness flag (set by a producer after appending, cleared by
// the consumer once it has redrawn; level triggered, so appends between polls
// coalesce) and the stop flag (set once by whoever shuts down first and never
// cleared).
type Flag struct {
	v atomic.Bool
}

// Set raises the flag.
func (f *Flag) Set() { f.v.Store(true) }

// Clear lowers the flag. The stop flag is one-shot by convention: nothing in
// this repository calls Clear on it.
func (f *Flag) Clear() { f.v.Store(false) }

// IsSet reports whether the flag is raised.
func (f *Flag) IsSet() bool { return f.v.Load() }

// TestAndClear atomically observes and lowers the flag, returning the prior
// state. The consumer uses it to consume one pending readiness notification.
func (f *Flag) TestAndClear() bool { return f.v.Swap(false) }
