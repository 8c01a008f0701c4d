package worker

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"time"

	"github.com/pro100Roman/plotting-tools/src/stream"
	"github.com/pro100Roman/plotting-tools/src/types"
)

// defaultTSPattern recovers a leading integer millisecond stamp from a log
// line. Sources with a different framing supply their own pattern whose first
// capture group is the stamp.
const defaultTSPattern = `^\s*(\d+)`

// logWorker replays a free-text log file through the sample parser. The first
// recovered stamp becomes offset zero; later samples carry their distance to
// it, converted from milliseconds to seconds.
type logWorker struct {
	cfg    types.WorkerConfig
	deps   Deps
	parser *stream.SampleParser
	tsRe   *regexp.Regexp
	done   chan struct{}
}

func newLogWorker(cfg types.WorkerConfig, deps Deps) (*logWorker, error) {
	if err := requireFile(cfg.File); err != nil {
		return nil, err
	}
	p, err := stream.NewSampleParser(cfg.Keys)
	if err != nil {
		return nil, err
	}
	pat := cfg.TSPattern
	if pat == "" {
		pat = defaultTSPattern
	}
	re, err := regexp.Compile(pat)
	if err != nil {
		return nil, fmt.Errorf("worker: timestamp pattern %q: %w", pat, err)
	}
	if re.NumSubexp() < 1 {
		return nil, fmt.Errorf("worker: timestamp pattern %q has no capture group", pat)
	}
	return &logWorker{cfg: cfg, deps: deps, parser: p, tsRe: re, done: make(chan struct{})}, nil
}

func (w *logWorker) Start() {
	stream.Infof("Keys=%v", w.cfg.Keys)
	stream.Infof("Reading... Close the plot window or Ctrl+C to stop.")
	go w.replay()
}

func (w *logWorker) replay() {
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

	var offset int64
	haveOffset := false
	sc := bufio.NewScanner(f)
	for sc.Scan() && !w.deps.Stop.IsSet() {
		line := sc.Text()
		vals, err := w.parser.Parse(line)
		if err != nil {
			if !errors.Is(err, stream.ErrEmptyLine) {
				stream.Warnf("Unparsed line: %s", line)
			}
			continue
		}
		ts, ok := w.extractStamp(line)
		if !ok {
			stream.Warnf("No timestamp in line: %s", line)
			continue
		}
		if !haveOffset {
			offset = ts
			haveOffset = true
		}
		w.deps.accept(float64(ts-offset)/1000.0, vals)
		time.Sleep(rowDelay)
	}
	if err := sc.Err(); err != nil {
		stream.Errorf("Reader error: %v", err)
		w.deps.Stop.Set()
		return
	}
	stream.Infof("Replay of %s finished", w.cfg.File)
}

func (w *logWorker) extractStamp(line string) (int64, bool) {
	m := w.tsRe.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	ts, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, false
	}
	return ts, true
}

func (w *logWorker) Join(timeout time.Duration) error {
	w.deps.Stop.Set()
	return joinDone(w.done, timeout)
}
