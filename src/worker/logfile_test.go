package worker

import (
	"testing"
	"time"

	"github.com/pro100Roman/plotting-tools/src/types"
)

func TestLogWorker_DefaultPatternAndOffset(t *testing.T) {
	content := "" +
		"1000 status out:1 up=10\n" +
		"noise without values\n" +
		"1500 status out:2 up=20\n" +
		"3000 status out:3 up=30\n"
	path := writeTempFile(t, "device.log", content)
	deps := testDeps(t, "out", "up")
	w, err := New(types.WorkerConfig{Kind: types.KindLogReplay, Keys: []string{"out", "up"}, File: path}, deps)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	w.Start()
	waitForSamples(t, deps.Buffers, 3)
	if err := w.Join(time.Second); err != nil {
		t.Fatalf("Join: %v", err)
	}

	snap := deps.Buffers.Snapshot()
	// First stamp is the offset; later stamps are relative, ms converted to s.
	wantT := []float64{0, 0.5, 2}
	for i, want := range wantT {
		if snap.T[i] != want {
			t.Fatalf("T[%d] = %v, want %v", i, snap.T[i], want)
		}
	}
	if snap.Y["out"][2] != 3 || snap.Y["up"][2] != 30 {
		t.Fatalf("last row = (%v, %v)", snap.Y["out"][2], snap.Y["up"][2])
	}
	if deps.Ready.IsSet() == false {
		t.Fatal("readiness flag never set")
	}
}

func TestLogWorker_CustomTimestampPattern(t *testing.T) {
	content := "" +
		"dev [ts=200] out:1\n" +
		"dev [ts=700] out:2\n"
	path := writeTempFile(t, "device.log", content)
	deps := testDeps(t, "out")
	cfg := types.WorkerConfig{
		Kind:      types.KindLogReplay,
		Keys:      []string{"out"},
		File:      path,
		TSPattern: `\[ts=(\d+)\]`,
	}
	w, err := New(cfg, deps)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	w.Start()
	waitForSamples(t, deps.Buffers, 2)
	w.Join(time.Second)

	snap := deps.Buffers.Snapshot()
	if snap.T[0] != 0 || snap.T[1] != 0.5 {
		t.Fatalf("T = %v, want [0 0.5]", snap.T)
	}
}

func TestLogWorker_LineWithValuesButNoStampSkipped(t *testing.T) {
	content := "" +
		"100 out:1\n" +
		"out:99\n" + // parses but carries no stamp
		"600 out:2\n"
	path := writeTempFile(t, "device.log", content)
	deps := testDeps(t, "out")
	w, err := New(types.WorkerConfig{Kind: types.KindLogReplay, Keys: []string{"out"}, File: path}, deps)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	w.Start()
	waitForSamples(t, deps.Buffers, 2)
	w.Join(time.Second)

	snap := deps.Buffers.Snapshot()
	if len(snap.T) != 2 {
		t.Fatalf("len(T) = %d, want 2 (stampless line skipped)", len(snap.T))
	}
	if snap.Y["out"][0] != 1 || snap.Y["out"][1] != 2 {
		t.Fatalf("Y[out] = %v", snap.Y["out"])
	}
}

func TestLogWorker_RejectsPatternWithoutCaptureGroup(t *testing.T) {
	path := writeTempFile(t, "device.log", "100 out:1\n")
	deps := testDeps(t, "out")
	cfg := types.WorkerConfig{Kind: types.KindLogReplay, Keys: []string{"out"}, File: path, TSPattern: `\d+`}
	if _, err := New(cfg, deps); err == nil {
		t.Fatal("expected error for pattern without capture group")
	}
}

func TestLogWorker_RejectsInvalidPattern(t *testing.T) {
	path := writeTempFile(t, "device.log", "100 out:1\n")
	deps := testDeps(t, "out")
	cfg := types.WorkerConfig{Kind: types.KindLogReplay, Keys: []string{"out"}, File: path, TSPattern: `([`}
	if _, err := New(cfg, deps); err == nil {
		t.Fatal("expected error for invalid pattern")
	}
}
