package stream

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Parse outcomes that are not successes. ErrEmptyLine means there was nothing
// to parse (blank input); ErrNoMatch means a non-empty line did not yield all
// required keys. Callers treat the two differently: blanks are silent, misses
// are reported.
var (
	ErrEmptyLine = errors.New("empty line")
	ErrNoMatch   = errors.New("line does not match all keys")
)

const numberPattern = `-?\d+(?:\.\d+)?`

// SampleParser extracts a fixed set of named numeric fields from one text
// line. Keys may appear in any order, separated from their value by ':' or
// '=' with optional whitespace, and matching is keyword bounded so a key
// never matches inside a longer identifier. Parsing is all or nothing: if any
// required key is absent the whole line is rejected.
type SampleParser struct {
	keys []string
	res  map[string]*regexp.Regexp
}

// NewSampleParser compiles one matcher per tracked key. The key set must be
// non-empty and keys must be non-blank.
func NewSampleParser(keys []string) (*SampleParser, error) {
	if len(keys) == 0 {
		return nil, errors.New("parser: no keys configured")
	}
	res := make(map[string]*regexp.Regexp, len(keys))
	for _, k := range keys {
		if strings.TrimSpace(k) == "" {
			return nil, errors.New("parser: blank key")
		}
		re, err := regexp.Compile(`\b` + regexp.QuoteMeta(k) + `\s*[:=]\s*(` + numberPattern + `)\b`)
		if err != nil {
			return nil, fmt.Errorf("parser: compile key %q: %w", k, err)
		}
		res[k] = re
	}
	return &SampleParser{keys: append([]string(nil), keys...), res: res}, nil
}

// Keys returns the tracked key names in configured order.
func (p *SampleParser) Keys() []string { return p.keys }

// Parse attempts to extract every tracked key from line. It returns
// ErrEmptyLine for blank input and ErrNoMatch when any key is missing; on
// success the returned map contains exactly the tracked keys.
func (p *SampleParser) Parse(line string) (map[string]float64, error) {
	if strings.TrimSpace(line) == "" {
		return nil, ErrEmptyLine
	}
	vals := make(map[string]float64, len(p.keys))
	for _, k := range p.keys {
		m := p.res[k].FindStringSubmatch(line)
		if m == nil {
			return nil, ErrNoMatch
		}
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			// The capture group only admits decimal numbers, so this is
			// effectively unreachable; treat it as a miss regardless.
			return nil, ErrNoMatch
		}
		vals[k] = v
	}
	return vals, nil
}
