// scopeview renders a live scrolling chart of samples produced by one of the
// interchangeable workers (serial device, MQTT subscriber, CSV/log replay).
//
// Threading model: the worker produces into the shared rolling buffers on its
// own goroutine; a render loop goroutine polls the readiness flag at the
// configured frame rate, renders the chart off-screen with go-chart and hands
// the finished image to the fyne main loop via fyne.Do. Closing the window
// sets the stop flag, joins the worker with a bounded timeout and optionally
// saves a final PNG.
package main

import (
	"flag"
	"fmt"
	"image/color"
	"image/png"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	fyne "fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/pro100Roman/plotting-tools/cmd/scopeview/uihelpers"
	"github.com/pro100Roman/plotting-tools/src/stream"
	"github.com/pro100Roman/plotting-tools/src/types"
	"github.com/pro100Roman/plotting-tools/src/worker"
)

const joinTimeout = 2 * time.Second

type uiState struct {
	app    fyne.App
	window fyne.Window

	keys  []string
	title string

	chartCanvas *canvas.Image
	statusLabel *widget.Label

	segments *stream.SegmentControl
}

// dark theme wrapper
type darkTheme struct{}

func (d *darkTheme) Color(name fyne.ThemeColorName, variant fyne.ThemeVariant) color.Color {
	return theme.DefaultTheme().Color(name, theme.VariantDark)
}
func (d *darkTheme) Font(style fyne.TextStyle) fyne.Resource { return theme.DefaultTheme().Font(style) }
func (d *darkTheme) Icon(name fyne.ThemeIconName) fyne.Resource {
	return theme.DefaultTheme().Icon(name)
}
func (d *darkTheme) Size(name fyne.ThemeSizeName) float32 { return theme.DefaultTheme().Size(name) }

func main() {
	source := flag.String("source", "serial", "Sample source (serial|mqtt|csv|log)")
	port := flag.String("p", "/dev/tty.usbmodem143300", "Serial port, e.g. /dev/cu.usbmodem143302, COM3")
	baud := flag.Int("b", 115200, "Serial port baud rate")
	keysFlag := flag.String("k", "out", "Comma separated keys to find")
	window := flag.Int("wp", 500, "Number of data points to show")
	sampleMs := flag.Int("st", 0, "Fixed time between samples in ms (0 = wall clock)")
	logBase := flag.String("f", "", "If set, accepted samples are saved to <f>_<timestamp>.csv")
	echo := flag.Bool("o", false, "Show raw input lines")
	name := flag.String("n", "test", "Plot name")
	file := flag.String("file", "", "Replay file path (csv/log sources)")
	tsPattern := flag.String("ts-pattern", "", "Regexp extracting a ms timestamp from log lines (first capture group)")
	broker := flag.String("broker", "", "MQTT broker host:port")
	topic := flag.String("topic", "", "MQTT status topic (default /device/status/response)")
	device := flag.String("device", "", "Device name to accept MQTT messages from")
	idleExit := flag.Int("idle-exit", 0, "Stop the serial reader after this many idle seconds (0 disables)")
	maxFPS := flag.Int("max-fps", 20, "Maximum chart refresh rate (frames per second)")
	savePNG := flag.String("save-png", "", "If set, save the final chart to this PNG on exit")
	logLevel := flag.String("log-level", "info", "Log level (debug|info|warn|error)")
	flag.Parse()

	stream.SetLogLevel(*logLevel)

	keys := splitKeys(*keysFlag)
	if len(keys) == 0 {
		fmt.Fprintln(os.Stderr, "no keys configured")
		os.Exit(1)
	}
	kind, err := parseKind(*source)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	buffers, err := stream.NewRollingBuffers(*window, keys)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	var ready, stop stream.Flag
	clock := stream.NewClock(time.Duration(*sampleMs) * time.Millisecond)

	var runLog *stream.SessionLogger
	if *logBase != "" {
		runLog, err = stream.NewSessionLogger(stream.SessionFileName(*logBase, time.Now()), keys)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
	segments := stream.NewSegmentControl(keys, &stop)
	segments.Start(os.Stdin)

	tap := func(s types.Sample) {
		if runLog != nil {
			if err := runLog.Write(s); err != nil {
				stream.Warnf("run log: %v", err)
			}
		}
		segments.Write(s)
	}

	w, err := worker.New(types.WorkerConfig{
		Kind:        kind,
		Keys:        keys,
		Port:        *port,
		Baud:        *baud,
		IdleExitSec: *idleExit,
		Echo:        *echo,
		Broker:      *broker,
		Topic:       *topic,
		Device:      *device,
		File:        *file,
		TSPattern:   *tsPattern,
	}, worker.Deps{
		Buffers: buffers,
		Ready:   &ready,
		Stop:    &stop,
		Clock:   clock,
		Tap:     tap,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	a := app.NewWithID("com.serialscope.scopeview")
	a.Settings().SetTheme(&darkTheme{})
	win := a.NewWindow(fmt.Sprintf("SerialScope - %s", *name))
	win.Resize(fyne.NewSize(1000, 640))

	state := &uiState{
		app:         a,
		window:      win,
		keys:        keys,
		title:       *name,
		statusLabel: widget.NewLabel("waiting for data..."),
		segments:    segments,
	}
	cw, chh := uihelpers.ComputeChartDimensions(1000)
	state.chartCanvas = canvas.NewImageFromImage(blank(cw, chh))
	state.chartCanvas.FillMode = canvas.ImageFillContain
	state.chartCanvas.SetMinSize(fyne.NewSize(640, 320))

	win.SetContent(container.NewBorder(nil, state.statusLabel, nil, nil, state.chartCanvas))

	// Last rendered snapshot, kept for the final PNG export.
	var lastSnap types.Snapshot

	loop := &stream.RenderLoop{
		MaxFPS: *maxFPS,
		Ready:  &ready,
		Stop:   &stop,
		Src:    buffers,
		Redraw: func(snap types.Snapshot) {
			lastSnap = snap
			cw, chh := uihelpers.ComputeChartDimensions(int(win.Canvas().Size().Width))
			img := renderSnapshotChart(snap, keys, *name, cw, chh)
			status := fmt.Sprintf("samples=%d", len(snap.T))
			if segments.Active() {
				status += "  [recording segment]"
			}
			img = drawStatus(img, status)
			fyne.Do(func() {
				state.chartCanvas.Image = img
				state.chartCanvas.Refresh()
				state.statusLabel.SetText(stream.FormatStats(stream.Summarize(snap, keys)))
			})
		},
	}

	w.Start()
	loopDone := make(chan struct{})
	var closing atomic.Bool
	go func() {
		defer close(loopDone)
		loop.Run()
		// A worker failure or idle exit stops the loop without the window
		// being closed; close it so the app quits on every shutdown path.
		// When the window itself initiated the stop, a second Close would
		// re-enter the OnClosed handler.
		finishLoop(&closing, func() { fyne.Do(func() { win.Close() }) })
	}()

	var teardown sync.Once
	win.SetOnClosed(func() {
		closing.Store(true)
		stop.Set()
		<-loopDone
		teardown.Do(func() {
			if err := w.Join(joinTimeout); err != nil {
				stream.Warnf("shutdown: %v", err)
			}
			if err := segments.Close(); err != nil {
				stream.Warnf("shutdown: %v", err)
			}
			if runLog != nil {
				if err := runLog.Close(); err != nil {
					stream.Warnf("shutdown: %v", err)
				}
				stream.Infof("CSV closed: %s", runLog.Path())
			}
			if *savePNG != "" {
				saveFinalPNG(*savePNG, lastSnap, keys, *name)
			}
		})
	})

	win.ShowAndRun()
	os.Exit(0)
}

// finishLoop runs once the render loop ends: it asks the window to close
// unless the window already initiated the shutdown (closing the window stops
// the loop, which must not close the window again).
func finishLoop(closing *atomic.Bool, closeWin func()) {
	if closing.Load() {
		return
	}
	closeWin()
}

// saveFinalPNG persists a static image of the last rendered buffer state.
func saveFinalPNG(path string, snap types.Snapshot, keys []string, title string) {
	img := renderSnapshotChart(snap, keys, title, 1000, 500)
	f, err := os.Create(path)
	if err != nil {
		stream.Warnf("Could not save final plot: %v", err)
		return
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		stream.Warnf("Could not save final plot: %v", err)
		return
	}
	stream.Infof("Saved final plot: %s", path)
}

func splitKeys(s string) []string {
	var keys []string
	for _, k := range strings.Split(s, ",") {
		k = strings.TrimSpace(k)
		if k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

func parseKind(s string) (types.WorkerKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "serial":
		return types.KindSerial, nil
	case "mqtt":
		return types.KindMessageBus, nil
	case "csv":
		return types.KindCSVReplay, nil
	case "log":
		return types.KindLogReplay, nil
	default:
		return 0, fmt.Errorf("unknown source %q (serial|mqtt|csv|log)", s)
	}
}
