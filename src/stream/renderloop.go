package stream

import (
	"time"

	"github.com/pro100Roman/plotting-tools/src/types"
)

// Snapshotter is the read side of the rolling buffers, as seen by the render
// loop. *RollingBuffers satisfies it.
type Snapshotter interface {
	Snapshot() types.Snapshot
}

// RenderLoop polls the readiness flag at a bounded rate and hands consistent
// buffer snapshots to a redraw callback. It owns no GUI state: the fyne
// viewer and the headless CLI both drive their surface from the callback,
// which keeps the consumer logic testable without a display.
type RenderLoop struct {
	MaxFPS int
	Ready  *Flag
	Stop   *Flag
	Src    Snapshotter
	// Redraw receives each consumed snapshot. A panic inside it is logged
	// and converted to a stop, never propagated.
	Redraw func(types.Snapshot)
}

// Run blocks until the stop flag is set, invoking Redraw at most MaxFPS times
// per second and only when the readiness flag indicates unconsumed updates.
func (r *RenderLoop) Run() {
	fps := r.MaxFPS
	if fps <= 0 {
		fps = 20
	}
	period := time.Second / time.Duration(fps)
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for range ticker.C {
		if r.Stop.IsSet() {
			return
		}
		if !r.Ready.TestAndClear() {
			continue
		}
		r.redrawSafely()
		if r.Stop.IsSet() {
			return
		}
	}
}

func (r *RenderLoop) redrawSafely() {
	defer func() {
		if rec := recover(); rec != nil {
			Errorf("render loop: redraw panic: %v", rec)
			r.Stop.Set()
		}
	}()
	r.Redraw(r.Src.Snapshot())
}
