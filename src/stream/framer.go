package stream

import (
	"bytes"
	"strings"
	"unicode/utf8"
)

// LineFramer splits an incoming byte stream into logical text lines. It
// accepts CR, LF and CRLF terminators (CRLF counts as a single terminator)
// and tolerates terminators split across arrival chunks: a CR at the very end
// of the accumulated buffer is held back until the next chunk reveals whether
// an LF follows.
//
// Decoding is best effort: invalid UTF-8 sequences are replaced with U+FFFD,
// never reported as an error.
type LineFramer struct {
	buf []byte
}

// Push appends newly arrived bytes to the accumulation buffer.
func (f *LineFramer) Push(p []byte) {
	f.buf = append(f.buf, p...)
}

// Next extracts the earliest complete line, or returns ok=false when no
// complete line is buffered yet. The buffer is only modified when a line is
// returned.
func (f *LineFramer) Next() (string, bool) {
	idx := bytes.IndexAny(f.buf, "\r\n")
	if idx < 0 {
		return "", false
	}
	if f.buf[idx] == '\r' && idx == len(f.buf)-1 {
		// Cannot tell yet whether this CR is the first half of a CRLF.
		return "", false
	}
	line := f.buf[:idx]
	skip := idx + 1
	if f.buf[idx] == '\r' && f.buf[skip] == '\n' {
		skip++
	}
	text := decodeLine(line)
	f.buf = f.buf[skip:]
	return text, true
}

// Flush returns any trailing unterminated line and resets the framer. Call it
// once at end of stream; a buffer holding only a bare CR yields one empty line
// (the CR was a real terminator with nothing after it).
func (f *LineFramer) Flush() (string, bool) {
	if len(f.buf) == 0 {
		return "", false
	}
	line := f.buf
	if line[len(line)-1] == '\r' {
		line = line[:len(line)-1]
	}
	text := decodeLine(line)
	f.buf = nil
	return text, true
}

// Pending reports how many bytes are buffered without a terminator yet.
func (f *LineFramer) Pending() int { return len(f.buf) }

func decodeLine(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	var sb strings.Builder
	sb.Grow(len(b))
	for len(b) > 0 {
		r, size := utf8.DecodeRune(b)
		if r == utf8.RuneError && size == 1 {
			sb.WriteRune('�')
		} else {
			sb.WriteRune(r)
		}
		b = b[size:]
	}
	return sb.String()
}
