// Package worker provides the interchangeable sample producers: a serial
// device reader, an MQTT subscriber and two file-replay variants. All of them
// share one contract: frame or decode raw input, parse it into samples,
// timestamp them, append into the shared rolling buffers and raise the
// readiness flag. Exactly one worker runs against a buffer set at a time.
package worker

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/pro100Roman/plotting-tools/src/stream"
	"github.com/pro100Roman/plotting-tools/src/types"
)

// Worker is the polymorphic producer capability set. Start begins background
// production and never blocks. Join requests a stop and waits a bounded time
// for the producer goroutine to finish; a wedged producer yields an error
// after the timeout instead of hanging process exit.
type Worker interface {
	Start()
	Join(timeout time.Duration) error
}

// Deps carries the shared pipeline state a worker produces into.
type Deps struct {
	Buffers *stream.RollingBuffers
	Ready   *stream.Flag
	Stop    *stream.Flag
	Clock   *stream.Clock
	// Tap, when non-nil, receives every accepted sample before buffer
	// eviction can touch it (feeds the session loggers).
	Tap func(types.Sample)
}

func (d Deps) validate() error {
	if d.Buffers == nil {
		return errors.New("worker: nil buffers")
	}
	if d.Ready == nil || d.Stop == nil {
		return errors.New("worker: nil signal flag")
	}
	if d.Clock == nil {
		return errors.New("worker: nil clock")
	}
	return nil
}

// accept routes one accepted sample into the shared state: append, tap,
// readiness. Appending never leaves the buffers partially mutated, so a
// failure anywhere else in the worker cannot corrupt them.
func (d Deps) accept(t float64, values map[string]float64) {
	d.Buffers.Append(t, values)
	if d.Tap != nil {
		d.Tap(types.Sample{T: t, Values: values})
	}
	d.Ready.Set()
}

// New constructs the worker variant selected by cfg.Kind. Construction fails
// fast when prerequisites are unmet (empty key set, missing replay file);
// transport-level failures surface later, at Start.
func New(cfg types.WorkerConfig, deps Deps) (Worker, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	if len(cfg.Keys) == 0 {
		return nil, errors.New("worker: no keys configured")
	}
	switch cfg.Kind {
	case types.KindSerial:
		return newSerialWorker(cfg, deps)
	case types.KindMessageBus:
		return newMQTTWorker(cfg, deps)
	case types.KindCSVReplay:
		return newCSVWorker(cfg, deps)
	case types.KindLogReplay:
		return newLogWorker(cfg, deps)
	default:
		return nil, fmt.Errorf("worker: unknown kind %d", cfg.Kind)
	}
}

// requireFile validates a replay prerequisite at construction time.
func requireFile(path string) error {
	if path == "" {
		return errors.New("worker: no input file configured")
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("worker: file %s not found: %w", path, err)
	}
	return nil
}

// joinDone implements the bounded wait shared by the goroutine-backed
// variants.
func joinDone(done <-chan struct{}, timeout time.Duration) error {
	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("worker: join timed out after %s", timeout)
	}
}
