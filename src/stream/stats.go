package stream

import (
	"fmt"
	"math"
	"strings"

	"github.com/pro100Roman/plotting-tools/src/types"
)

// KeyStats summarizes one value series of a snapshot. NaN entries (missing
// values from merged sources) are excluded from Count and the aggregates.
type KeyStats struct {
	Key   string
	Count int
	Min   float64
	Max   float64
	Mean  float64
	Last  float64
}

// Summarize computes per-key stats over a snapshot in the given key order.
func Summarize(snap types.Snapshot, keys []string) []KeyStats {
	out := make([]KeyStats, 0, len(keys))
	for _, k := range keys {
		st := KeyStats{Key: k, Min: math.NaN(), Max: math.NaN(), Mean: math.NaN(), Last: math.NaN()}
		var sum float64
		for _, v := range snap.Y[k] {
			if math.IsNaN(v) {
				continue
			}
			if st.Count == 0 || v < st.Min {
				st.Min = v
			}
			if st.Count == 0 || v > st.Max {
				st.Max = v
			}
			sum += v
			st.Last = v
			st.Count++
		}
		if st.Count > 0 {
			st.Mean = sum / float64(st.Count)
		}
		out = append(out, st)
	}
	return out
}

// FormatStats renders a one-line progress summary in the style
// `out(n=120 min=1.2 max=9.8 avg=4.4 last=5.0) up(...)`.
func FormatStats(stats []KeyStats) string {
	parts := make([]string, 0, len(stats))
	for _, st := range stats {
		if st.Count == 0 {
			parts = append(parts, fmt.Sprintf("%s(n=0)", st.Key))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s(n=%d min=%s max=%s avg=%s last=%s)",
			st.Key, st.Count, trimFloat(st.Min), trimFloat(st.Max), trimFloat(st.Mean), trimFloat(st.Last)))
	}
	return strings.Join(parts, " ")
}

func trimFloat(v float64) string {
	s := fmt.Sprintf("%.3f", v)
	s = strings.TrimRight(s, "0")
	return strings.TrimRight(s, ".")
}
