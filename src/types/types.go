// Package types holds the value types shared between the stream pipeline,
// the worker implementations and the entrypoints. It has no dependencies so
// every other package can import it freely.
package types

// Sample is one timestamped set of named numeric readings. Values always
// contains an entry for every tracked key of the run; a source that could not
// supply a key contributes NaN for it (the rolling buffers enforce this).
type Sample struct {
	T      float64
	Values map[string]float64
}

// Snapshot is a consistent copy of the rolling buffers taken under one
// critical section. T and every series in Y have equal length.
type Snapshot struct {
	T []float64
	Y map[string][]float64
}

// WorkerKind enumerates the closed set of sample producers.
type WorkerKind int

const (
	// KindSerial reads framed text lines from a serial device.
	KindSerial WorkerKind = iota
	// KindMessageBus subscribes to device status messages on an MQTT broker.
	KindMessageBus
	// KindCSVReplay replays a recorded CSV file row by row.
	KindCSVReplay
	// KindLogReplay replays a free-text log file through the line parser.
	KindLogReplay
)

func (k WorkerKind) String() string {
	switch k {
	case KindSerial:
		return "serial"
	case KindMessageBus:
		return "mqtt"
	case KindCSVReplay:
		return "csv"
	case KindLogReplay:
		return "log"
	default:
		return "unknown"
	}
}

// WorkerConfig carries the per-variant parameters for worker construction.
// Only the fields relevant to Kind are consulted.
type WorkerConfig struct {
	Kind WorkerKind

	// Keys is the ordered set of tracked value names. Required for every kind.
	Keys []string

	// Serial parameters.
	Port        string
	Baud        int
	ReadTimeout int  // milliseconds; bounds each blocking read
	IdleExitSec int  // if >0, stop the reader after this many idle seconds
	Echo        bool // log every raw line as received

	// MQTT parameters.
	Broker   string
	Topic    string
	ClientID string
	Device   string

	// Replay parameters.
	File string
	// TSPattern is a regexp whose first capture group is an integer
	// millisecond timestamp embedded in a log line. Empty selects the
	// default leading-integer pattern.
	TSPattern string
}
