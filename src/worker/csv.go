package worker

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/pro100Roman/plotting-tools/src/stream"
	"github.com/pro100Roman/plotting-tools/src/types"
)

// rowDelay emulates live arrival pacing between replayed rows.
const rowDelay = time.Millisecond

// csvWorker replays a recorded CSV file. The first column is the timestamp,
// the remaining columns are named after the tracked keys. The goroutine ends
// naturally at EOF without setting the stop flag, so the render surface keeps
// showing the final buffer state until the operator closes it.
type csvWorker struct {
	cfg  types.WorkerConfig
	deps Deps
	done chan struct{}
}

func newCSVWorker(cfg types.WorkerConfig, deps Deps) (*csvWorker, error) {
	if err := requireFile(cfg.File); err != nil {
		return nil, err
	}
	return &csvWorker{cfg: cfg, deps: deps, done: make(chan struct{})}, nil
}

func (w *csvWorker) Start() {
	stream.Infof("Keys=%v", w.cfg.Keys)
	stream.Infof("Reading... Close the plot window or Ctrl+C to stop.")
	go w.replay()
}

func (w *csvWorker) replay() {
	defer close(w.done)
	defer func() {
		if rec := recover(); rec != nil {
			stream.Errorf("Reader panic: %v", rec)
			w.deps.Stop.Set()
		}
	}()

	f, err := os.Open(w.cfg.File)
	if err != nil {
		stream.Errorf("Open %s: %v", w.cfg.File, err)
		w.deps.Stop.Set()
		return
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true
	header, err := r.Read()
	if err != nil {
		stream.Errorf("Read header of %s: %v", w.cfg.File, err)
		w.deps.Stop.Set()
		return
	}
	stream.Infof("headers: %v", header)
	cols, err := columnIndex(header, w.cfg.Keys)
	if err != nil {
		stream.Errorf("%v", err)
		w.deps.Stop.Set()
		return
	}

	for !w.deps.Stop.IsSet() {
		rec, err := r.Read()
		if err == io.EOF {
			stream.Infof("Replay of %s finished", w.cfg.File)
			return
		}
		if err != nil {
			stream.Warnf("Skipping malformed row: %v", err)
			continue
		}
		t, err := strconv.ParseFloat(rec[0], 64)
		if err != nil {
			stream.Warnf("Skipping row with bad timestamp %q", rec[0])
			continue
		}
		vals := make(map[string]float64, len(w.cfg.Keys))
		for k, idx := range cols {
			if idx < len(rec) {
				if v, perr := strconv.ParseFloat(rec[idx], 64); perr == nil {
					vals[k] = v
				}
			}
			// Missing or unparsable cells stay absent; Append records NaN.
		}
		w.deps.accept(t, vals)
		time.Sleep(rowDelay)
	}
}

// columnIndex maps each tracked key to its header column. Every key must be
// present; the timestamp lives in column 0 regardless of its header name.
func columnIndex(header []string, keys []string) (map[string]int, error) {
	byName := make(map[string]int, len(header))
	for i, h := range header {
		byName[h] = i
	}
	cols := make(map[string]int, len(keys))
	for _, k := range keys {
		idx, ok := byName[k]
		if !ok {
			return nil, fmt.Errorf("worker: csv header %v missing key %q", header, k)
		}
		cols[k] = idx
	}
	return cols, nil
}

func (w *csvWorker) Join(timeout time.Duration) error {
	w.deps.Stop.Set()
	return joinDone(w.done, timeout)
}
