package worker

import (
	"errors"
	"time"

	"go.bug.st/serial"

	"github.com/pro100Roman/plotting-tools/src/stream"
	"github.com/pro100Roman/plotting-tools/src/types"
)

const defaultReadTimeout = 100 * time.Millisecond

// serialWorker reads framed text lines from a serial device. The read
// timeout bounds every blocking read so the loop observes the stop flag
// promptly; an optional idle window ends the reader when the device goes
// quiet.
type serialWorker struct {
	cfg    types.WorkerConfig
	deps   Deps
	parser *stream.SampleParser
	done   chan struct{}
}

func newSerialWorker(cfg types.WorkerConfig, deps Deps) (*serialWorker, error) {
	if cfg.Port == "" {
		return nil, errors.New("worker: no serial port configured")
	}
	if cfg.Baud <= 0 {
		cfg.Baud = 115200
	}
	p, err := stream.NewSampleParser(cfg.Keys)
	if err != nil {
		return nil, err
	}
	return &serialWorker{cfg: cfg, deps: deps, parser: p, done: make(chan struct{})}, nil
}

// Start opens the port and launches the reader goroutine. An open failure is
// reported (with the currently available ports for the operator), converts to
// a stop, and is not retried; no goroutine is started in that case.
func (w *serialWorker) Start() {
	port, err := serial.Open(w.cfg.Port, &serial.Mode{BaudRate: w.cfg.Baud})
	if err != nil {
		ports, lerr := serial.GetPortsList()
		if lerr != nil {
			ports = nil
		}
		stream.Errorf("Failed to open '%s': %v. Available ports: %v", w.cfg.Port, err, ports)
		w.deps.Stop.Set()
		close(w.done)
		return
	}
	timeout := time.Duration(w.cfg.ReadTimeout) * time.Millisecond
	if timeout <= 0 {
		timeout = defaultReadTimeout
	}
	if err := port.SetReadTimeout(timeout); err != nil {
		stream.Errorf("Failed to set read timeout on '%s': %v", w.cfg.Port, err)
		port.Close()
		w.deps.Stop.Set()
		close(w.done)
		return
	}
	stream.Infof("Opened '%s' @ %d (timeout=%s)", w.cfg.Port, w.cfg.Baud, timeout)
	stream.Infof("Keys=%v", w.cfg.Keys)
	stream.Infof("Reading... Close the plot window or Ctrl+C to stop.")
	go w.readLoop(port)
}

func (w *serialWorker) readLoop(port serial.Port) {
	defer close(w.done)
	defer func() {
		if rec := recover(); rec != nil {
			stream.Errorf("Reader panic: %v", rec)
			w.deps.Stop.Set()
		}
	}()
	defer port.Close()
	defer stream.Infof("Reader stopped.")

	framer := &stream.LineFramer{}
	chunk := make([]byte, 256)
	lastRx := time.Now()
	idle := time.Duration(w.cfg.IdleExitSec) * time.Second

	for !w.deps.Stop.IsSet() {
		n, err := port.Read(chunk)
		if err != nil {
			stream.Errorf("Reader error: %v", err)
			w.deps.Stop.Set()
			return
		}
		if n > 0 {
			framer.Push(chunk[:n])
			lastRx = time.Now()
		}
		for {
			line, ok := framer.Next()
			if !ok {
				break
			}
			w.handleLine(line)
		}
		if idle > 0 && time.Since(lastRx) >= idle {
			stream.Infof("Idle for %s; stopping reader.", idle)
			return
		}
	}
}

func (w *serialWorker) handleLine(line string) {
	if w.cfg.Echo && line != "" {
		stream.Infof(line)
	}
	vals, err := w.parser.Parse(line)
	switch {
	case err == nil:
		w.deps.accept(w.deps.Clock.Next(), vals)
	case errors.Is(err, stream.ErrEmptyLine):
		// Nothing to parse; distinct from a parse failure.
	default:
		stream.Warnf("Unparsed line: %s", line)
	}
}

// Join waits for the reader goroutine up to timeout. The stop flag is the
// only cancellation mechanism, so the caller sets it (or a reader failure
// already has) before joining.
func (w *serialWorker) Join(timeout time.Duration) error {
	w.deps.Stop.Set()
	return joinDone(w.done, timeout)
}
