// SerialScope headless capture entrypoint.
//
// Reads numeric samples from one configured source (serial device, MQTT
// broker, or a replayed CSV/log file), keeps the most recent window in
// rolling buffers, and optionally persists every accepted sample to CSV.
//
// Two logging shapes are supported simultaneously:
//  1. Run log (-f): one timestamped CSV covering the whole run.
//  2. Segment logs: stdin acts as the operator control channel; typing a name
//     starts a new timestamped segment file, an empty line stops it.
//
// Design notes:
//   - The pipeline state is explicit: buffers, readiness flag and stop flag
//     are created here and passed into the worker; no ambient globals beyond
//     the leveled logger.
//   - Every shutdown path (Ctrl+C, worker failure, replay end + Ctrl+C) joins
//     the producer with a bounded timeout and exits with status 0.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/pro100Roman/plotting-tools/src/stream"
	"github.com/pro100Roman/plotting-tools/src/types"
	"github.com/pro100Roman/plotting-tools/src/worker"
)

const joinTimeout = 2 * time.Second

func main() {
	source := flag.String("source", "serial", "Sample source (serial|mqtt|csv|log)")
	port := flag.String("p", "/dev/tty.usbmodem143300", "Serial port, e.g. /dev/cu.usbmodem143302, COM3")
	baud := flag.Int("b", 115200, "Serial port baud rate")
	keysFlag := flag.String("k", "out", "Comma separated keys to track")
	window := flag.Int("wp", 500, "Number of data points to keep")
	sampleMs := flag.Int("st", 0, "Fixed time between samples in ms (0 = wall clock)")
	logBase := flag.String("f", "", "If set, accepted samples are saved to <f>_<timestamp>.csv")
	echo := flag.Bool("o", false, "Show raw input lines")
	file := flag.String("file", "", "Replay file path (csv/log sources)")
	tsPattern := flag.String("ts-pattern", "", "Regexp extracting a ms timestamp from log lines (first capture group)")
	broker := flag.String("broker", "", "MQTT broker host:port")
	topic := flag.String("topic", "", "MQTT status topic (default /device/status/response)")
	device := flag.String("device", "", "Device name to accept MQTT messages from")
	idleExit := flag.Int("idle-exit", 0, "Stop the serial reader after this many idle seconds (0 disables)")
	maxFPS := flag.Int("max-fps", 20, "Maximum buffer poll rate per second")
	progressInterval := flag.Duration("progress-interval", 5*time.Second, "Interval for progress stats logging (0 disables)")
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

	// Continuous run log, if requested.
	var runLog *stream.SessionLogger
	if *logBase != "" {
		runLog, err = stream.NewSessionLogger(stream.SessionFileName(*logBase, time.Now()), keys)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}

	// Operator-toggled segment logs on stdin.
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

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		stream.Infof("Interrupt received; shutting down")
		stop.Set()
	}()

	w.Start()

	var lastProgress time.Time
	loop := &stream.RenderLoop{
		MaxFPS: *maxFPS,
		Ready:  &ready,
		Stop:   &stop,
		Src:    buffers,
		Redraw: func(snap types.Snapshot) {
			if *progressInterval <= 0 || time.Since(lastProgress) < *progressInterval {
				return
			}
			lastProgress = time.Now()
			stream.Infof("samples=%d %s", len(snap.T), stream.FormatStats(stream.Summarize(snap, keys)))
		},
	}
	loop.Run()

	// Bounded shutdown: a wedged producer must not hang process exit.
	var errs error
	if err := w.Join(joinTimeout); err != nil {
		errs = multierror.Append(errs, err)
	}
	if err := segments.Close(); err != nil {
		errs = multierror.Append(errs, err)
	}
	if runLog != nil {
		if err := runLog.Close(); err != nil {
			errs = multierror.Append(errs, err)
		}
		stream.Infof("CSV closed: %s", runLog.Path())
	}
	if errs != nil {
		stream.Warnf("shutdown: %v", errs)
	}

	final := buffers.Snapshot()
	stream.Infof("final: samples=%d %s", len(final.T), stream.FormatStats(stream.Summarize(final, keys)))
	os.Exit(0)
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
