package worker

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pro100Roman/plotting-tools/src/stream"
	"github.com/pro100Roman/plotting-tools/src/types"
)

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func waitForSamples(t *testing.T, b *stream.RollingBuffers, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for b.Len() < n {
		if time.Now().After(deadline) {
			t.Fatalf("buffers stuck at %d samples, want %d", b.Len(), n)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestCSVWorker_ReplaysFileInOrder(t *testing.T) {
	path := writeTempFile(t, "replay.csv", "t,out,up\n0.0,1,10\n0.5,2,20\n1.0,3,30\n")
	deps := testDeps(t, "out", "up")

	var taps []types.Sample
	deps.Tap = func(s types.Sample) { taps = append(taps, s) }

	w, err := New(types.WorkerConfig{Kind: types.KindCSVReplay, Keys: []string{"out", "up"}, File: path}, deps)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	w.Start()
	waitForSamples(t, deps.Buffers, 3)
	if err := w.Join(time.Second); err != nil {
		t.Fatalf("Join: %v", err)
	}

	if !deps.Ready.IsSet() {
		t.Fatal("readiness flag never observed")
	}
	snap := deps.Buffers.Snapshot()
	wantT := []float64{0, 0.5, 1}
	wantOut := []float64{1, 2, 3}
	wantUp := []float64{10, 20, 30}
	if len(snap.T) != 3 {
		t.Fatalf("len(T) = %d, want 3", len(snap.T))
	}
	for i := range wantT {
		if snap.T[i] != wantT[i] || snap.Y["out"][i] != wantOut[i] || snap.Y["up"][i] != wantUp[i] {
			t.Fatalf("row %d = (%v, %v, %v)", i, snap.T[i], snap.Y["out"][i], snap.Y["up"][i])
		}
	}
	if len(taps) != 3 {
		t.Fatalf("tap saw %d samples, want 3", len(taps))
	}
}

func TestCSVWorker_ColumnsMayBeReordered(t *testing.T) {
	path := writeTempFile(t, "replay.csv", "t,up,out\n0,10,1\n1,20,2\n")
	deps := testDeps(t, "out", "up")
	w, err := New(types.WorkerConfig{Kind: types.KindCSVReplay, Keys: []string{"out", "up"}, File: path}, deps)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	w.Start()
	waitForSamples(t, deps.Buffers, 2)
	w.Join(time.Second)
	snap := deps.Buffers.Snapshot()
	if snap.Y["out"][1] != 2 || snap.Y["up"][1] != 20 {
		t.Fatalf("reordered columns mismapped: out=%v up=%v", snap.Y["out"], snap.Y["up"])
	}
}

func TestCSVWorker_MissingCellBecomesNaN(t *testing.T) {
	path := writeTempFile(t, "replay.csv", "t,out,up\n0,1,\n1,2,20\n")
	deps := testDeps(t, "out", "up")
	w, err := New(types.WorkerConfig{Kind: types.KindCSVReplay, Keys: []string{"out", "up"}, File: path}, deps)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	w.Start()
	waitForSamples(t, deps.Buffers, 2)
	w.Join(time.Second)
	snap := deps.Buffers.Snapshot()
	if !math.IsNaN(snap.Y["up"][0]) {
		t.Fatalf("Y[up][0] = %v, want NaN", snap.Y["up"][0])
	}
	if snap.Y["up"][1] != 20 {
		t.Fatalf("Y[up][1] = %v, want 20", snap.Y["up"][1])
	}
}

func TestCSVWorker_HeaderMissingKeyStops(t *testing.T) {
	path := writeTempFile(t, "replay.csv", "t,out\n0,1\n")
	deps := testDeps(t, "out", "up")
	w, err := New(types.WorkerConfig{Kind: types.KindCSVReplay, Keys: []string{"out", "up"}, File: path}, deps)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	w.Start()
	deadline := time.Now().Add(2 * time.Second)
	for !deps.Stop.IsSet() {
		if time.Now().After(deadline) {
			t.Fatal("missing header key did not stop the worker")
		}
		time.Sleep(time.Millisecond)
	}
	if deps.Buffers.Len() != 0 {
		t.Fatalf("buffers mutated on failed start: %d", deps.Buffers.Len())
	}
}

func TestCSVWorker_JoinIsBounded(t *testing.T) {
	// Enough rows that a full replay takes much longer than the join
	// timeout; Join must interrupt via the stop flag.
	var sb strings.Builder
	sb.WriteString("t,out\n")
	for i := 0; i < 5000; i++ {
		fmt.Fprintf(&sb, "%d,%d\n", i, i)
	}
	path := writeTempFile(t, "big.csv", sb.String())
	deps := testDeps(t, "out")
	w, err := New(types.WorkerConfig{Kind: types.KindCSVReplay, Keys: []string{"out"}, File: path}, deps)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	w.Start()
	waitForSamples(t, deps.Buffers, 1)
	start := time.Now()
	if err := w.Join(time.Second); err != nil {
		t.Fatalf("Join: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 1500*time.Millisecond {
		t.Fatalf("join took %s, want bounded by timeout", elapsed)
	}
}
