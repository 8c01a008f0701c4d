package stream

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pro100Roman/plotting-tools/src/types"
)

func newTestControl(t *testing.T) (*SegmentControl, string) {
	t.Helper()
	dir := t.TempDir()
	var stop Flag
	c := NewSegmentControl([]string{"out"}, &stop)
	c.now = func() time.Time { return time.Date(2024, 3, 1, 9, 30, 5, 0, time.UTC) }
	// Segment files land in the test dir.
	wd, _ := os.Getwd()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	t.Cleanup(func() { os.Chdir(wd) })
	return c, dir
}

func TestSegmentControl_ToggleProtocol(t *testing.T) {
	c, dir := newTestControl(t)

	// Samples before any segment starts go nowhere.
	c.Write(types.Sample{T: 0, Values: map[string]float64{"out": 1}})
	if c.Active() {
		t.Fatal("no segment should be active yet")
	}

	c.Handle("warmup")
	if !c.Active() {
		t.Fatal("named line should start a segment")
	}
	c.Write(types.Sample{T: 1, Values: map[string]float64{"out": 2}})

	// Empty line stops the segment.
	c.Handle("")
	if c.Active() {
		t.Fatal("empty line should stop the segment")
	}
	c.Write(types.Sample{T: 2, Values: map[string]float64{"out": 3}})

	b, err := os.ReadFile(filepath.Join(dir, "warmup_2024-03-01_09_30_05.csv"))
	if err != nil {
		t.Fatalf("segment file: %v", err)
	}
	content := string(b)
	if !strings.Contains(content, "t,out") {
		t.Fatalf("missing header:\n%s", content)
	}
	if !strings.Contains(content, "1,2") {
		t.Fatalf("missing in-segment row:\n%s", content)
	}
	if strings.Contains(content, "2,3") {
		t.Fatalf("post-stop row leaked into segment:\n%s", content)
	}
}

func TestSegmentControl_NewNameRollsSegment(t *testing.T) {
	c, dir := newTestControl(t)
	c.Handle("first")
	c.Write(types.Sample{T: 1, Values: map[string]float64{"out": 1}})
	c.Handle("second")
	c.Write(types.Sample{T: 2, Values: map[string]float64{"out": 2}})
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	first, err := os.ReadFile(filepath.Join(dir, "first_2024-03-01_09_30_05.csv"))
	if err != nil {
		t.Fatalf("first segment: %v", err)
	}
	second, err := os.ReadFile(filepath.Join(dir, "second_2024-03-01_09_30_05.csv"))
	if err != nil {
		t.Fatalf("second segment: %v", err)
	}
	if !strings.Contains(string(first), "1,1") || strings.Contains(string(first), "2,2") {
		t.Fatalf("first segment rows wrong:\n%s", first)
	}
	if !strings.Contains(string(second), "2,2") {
		t.Fatalf("second segment rows wrong:\n%s", second)
	}
}

func TestSegmentControl_ReaderLoop(t *testing.T) {
	c, dir := newTestControl(t)
	c.Start(strings.NewReader("runA\n"))
	deadline := time.Now().Add(time.Second)
	for !c.Active() {
		if time.Now().After(deadline) {
			t.Fatal("segment never became active")
		}
		time.Sleep(time.Millisecond)
	}
	c.Write(types.Sample{T: 1, Values: map[string]float64{"out": 4}})
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "runA_2024-03-01_09_30_05.csv")); err != nil {
		t.Fatalf("segment file: %v", err)
	}
}
