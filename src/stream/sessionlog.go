package stream

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"strconv"
	"time"

	"github.com/pro100Roman/plotting-tools/src/types"
)

// timestampLayout is the capture-time suffix appended to session file names.
const timestampLayout = "2006-01-02_15_04_05"

// SessionLogger appends accepted samples to a delimited file, one row per
// sample in configured key order. The header row `t,<key1>,...,<keyN>` is
// written only when the file is newly created or empty, so reopening an
// existing log in append mode never duplicates it.
type SessionLogger struct {
	path string
	keys []string
	f    *os.File
	w    *csv.Writer
}

// SessionFileName derives the on-disk name for a session log: the base name
// plus a capture timestamp suffix and .csv extension.
func SessionFileName(base string, now time.Time) string {
	return fmt.Sprintf("%s_%s.csv", base, now.Format(timestampLayout))
}

// NewSessionLogger opens (appending) or creates the session file at path and
// writes the header if the file is empty.
func NewSessionLogger(path string, keys []string) (*SessionLogger, error) {
	if len(keys) == 0 {
		return nil, fmt.Errorf("session log: no keys configured")
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("session log: open %s: %w", path, err)
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("session log: stat %s: %w", path, err)
	}
	w := csv.NewWriter(f)
	if st.Size() == 0 {
		header := append([]string{"t"}, keys...)
		if err := w.Write(header); err != nil {
			f.Close()
			return nil, fmt.Errorf("session log: write header: %w", err)
		}
		w.Flush()
	}
	l := &SessionLogger{path: path, keys: append([]string(nil), keys...), f: f, w: w}
	Infof("Logging to CSV: %s (append)", path)
	return l, nil
}

// Path returns the file the logger writes to.
func (l *SessionLogger) Path() string { return l.path }

// Write appends one sample row. NaN values become empty fields.
func (l *SessionLogger) Write(s types.Sample) error {
	row := make([]string, 0, len(l.keys)+1)
	row = append(row, formatValue(s.T))
	for _, k := range l.keys {
		v, ok := s.Values[k]
		if !ok {
			v = math.NaN()
		}
		row = append(row, formatValue(v))
	}
	if err := l.w.Write(row); err != nil {
		return fmt.Errorf("session log: write row: %w", err)
	}
	return nil
}

// Flush pushes buffered rows to the file.
func (l *SessionLogger) Flush() error {
	l.w.Flush()
	return l.w.Error()
}

// Close flushes and closes the underlying file.
func (l *SessionLogger) Close() error {
	l.w.Flush()
	if err := l.w.Error(); err != nil {
		l.f.Close()
		return err
	}
	return l.f.Close()
}

func formatValue(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
