package stream

import (
	"bufio"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/pro100Roman/plotting-tools/src/types"
)

// SegmentControl drives start/stop-toggled session logging from a line-based
// operator channel (stdin in production). An empty line stops the current
// segment; any other content closes the current segment and starts a new one
// whose file is named from that input plus a capture timestamp. Accepted
// samples routed through Write land in the active segment only.
type SegmentControl struct {
	keys []string
	stop *Flag

	mu  sync.Mutex
	cur *SessionLogger

	wg sync.WaitGroup

	// now is swapped in tests to pin file names.
	now func() time.Time
}

// NewSegmentControl creates a control that honors the shared stop flag.
func NewSegmentControl(keys []string, stop *Flag) *SegmentControl {
	return &SegmentControl{keys: keys, stop: stop, now: time.Now}
}

// Start launches the reader goroutine consuming operator lines from r. It
// returns immediately; the goroutine ends when r is exhausted or the stop
// flag is observed after a read.
func (c *SegmentControl) Start(r io.Reader) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			if c.stop.IsSet() {
				return
			}
			c.Handle(sc.Text())
		}
		if err := sc.Err(); err != nil {
			Warnf("segment control: read: %v", err)
		}
	}()
}

// Handle processes one operator line. Exported so the reader loop and tests
// share the exact toggle protocol.
func (c *SegmentControl) Handle(line string) {
	name := strings.TrimSpace(line)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cur != nil {
		if err := c.cur.Close(); err != nil {
			Warnf("segment control: close %s: %v", c.cur.Path(), err)
		}
		c.cur = nil
		Infof("STOP received; segment closed")
	}
	if name == "" {
		return
	}
	path := SessionFileName(name, c.now())
	l, err := NewSessionLogger(path, c.keys)
	if err != nil {
		Errorf("segment control: %v", err)
		return
	}
	c.cur = l
}

// Write appends the sample to the active segment, if any.
func (c *SegmentControl) Write(s types.Sample) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cur == nil {
		return
	}
	if err := c.cur.Write(s); err != nil {
		Warnf("segment control: %v", err)
	}
	if err := c.cur.Flush(); err != nil {
		Warnf("segment control: flush: %v", err)
	}
}

// Active reports whether a segment is currently recording.
func (c *SegmentControl) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cur != nil
}

// Close stops the active segment. It does not wait for the reader goroutine:
// a blocked stdin read cannot be interrupted, and the process exits anyway.
func (c *SegmentControl) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cur == nil {
		return nil
	}
	err := c.cur.Close()
	c.cur = nil
	return err
}
