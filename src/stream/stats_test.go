package stream

import (
	"math"
	"strings"
	"testing"

	"github.com/pro100Roman/plotting-tools/src/types"
)

func TestSummarize_SkipsNaN(t *testing.T) {
	snap := types.Snapshot{
		T: []float64{0, 1, 2, 3},
		Y: map[string][]float64{
			"out": {1, math.NaN(), 3, 2},
			"up":  {math.NaN(), math.NaN(), math.NaN(), math.NaN()},
		},
	}
	stats := Summarize(snap, []string{"out", "up"})
	if len(stats) != 2 {
		t.Fatalf("len = %d", len(stats))
	}
	out := stats[0]
	if out.Count != 3 || out.Min != 1 || out.Max != 3 || out.Last != 2 {
		t.Fatalf("out = %+v", out)
	}
	if diff := out.Mean - 2; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("mean = %v, want 2", out.Mean)
	}
	up := stats[1]
	if up.Count != 0 || !math.IsNaN(up.Mean) {
		t.Fatalf("up = %+v", up)
	}
}

func TestFormatStats(t *testing.T) {
	stats := []KeyStats{
		{Key: "out", Count: 2, Min: 1, Max: 2.5, Mean: 1.75, Last: 2.5},
		{Key: "up", Count: 0},
	}
	got := FormatStats(stats)
	if !strings.Contains(got, "out(n=2 min=1 max=2.5 avg=1.75 last=2.5)") {
		t.Fatalf("got %q", got)
	}
	if !strings.Contains(got, "up(n=0)") {
		t.Fatalf("got %q", got)
	}
}
