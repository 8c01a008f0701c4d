package worker

import (
	"testing"

	"github.com/pro100Roman/plotting-tools/src/types"
)

// fakeMessage implements mqtt.Message for callback tests without a broker.
type fakeMessage struct {
	topic   string
	payload []byte
}

func (m *fakeMessage) Duplicate() bool   { return false }
func (m *fakeMessage) Qos() byte         { return 0 }
func (m *fakeMessage) Retained() bool    { return false }
func (m *fakeMessage) Topic() string     { return m.topic }
func (m *fakeMessage) MessageID() uint16 { return 0 }
func (m *fakeMessage) Payload() []byte   { return m.payload }
func (m *fakeMessage) Ack()              {}

func newTestMQTTWorker(t *testing.T, deps Deps, keys ...string) *mqttWorker {
	t.Helper()
	cfg := types.WorkerConfig{
		Kind:   types.KindMessageBus,
		Keys:   keys,
		Broker: "localhost:1883",
		Device: "station1",
	}
	w, err := newMQTTWorker(cfg, deps)
	if err != nil {
		t.Fatalf("newMQTTWorker: %v", err)
	}
	return w
}

func TestMQTTWorker_AcceptsMatchingDevice(t *testing.T) {
	deps := testDeps(t, "out", "up")
	w := newTestMQTTWorker(t, deps, "out", "up")

	w.onMessage(nil, &fakeMessage{topic: "/device/status/response",
		payload: []byte(`{"nameDevice":"station1","out":1.5,"up":"7"}`)})

	snap := deps.Buffers.Snapshot()
	if len(snap.T) != 1 {
		t.Fatalf("len(T) = %d, want 1", len(snap.T))
	}
	if snap.Y["out"][0] != 1.5 {
		t.Fatalf("out = %v, want 1.5", snap.Y["out"][0])
	}
	// Devices report numerics both as JSON numbers and as strings.
	if snap.Y["up"][0] != 7 {
		t.Fatalf("up = %v, want 7", snap.Y["up"][0])
	}
	if !deps.Ready.IsSet() {
		t.Fatal("readiness flag not set after accepted message")
	}
}

func TestMQTTWorker_IgnoresOtherDevices(t *testing.T) {
	deps := testDeps(t, "out")
	w := newTestMQTTWorker(t, deps, "out")

	w.onMessage(nil, &fakeMessage{payload: []byte(`{"nameDevice":"other","out":1}`)})
	if deps.Buffers.Len() != 0 {
		t.Fatal("message from a different device must be ignored")
	}
	if deps.Ready.IsSet() {
		t.Fatal("readiness must stay clear")
	}
}

func TestMQTTWorker_RejectsPartialPayload(t *testing.T) {
	deps := testDeps(t, "out", "up")
	w := newTestMQTTWorker(t, deps, "out", "up")

	w.onMessage(nil, &fakeMessage{payload: []byte(`{"nameDevice":"station1","out":1}`)})
	if deps.Buffers.Len() != 0 {
		t.Fatal("payload missing a key must be rejected whole")
	}
}

func TestMQTTWorker_IgnoresMalformedPayload(t *testing.T) {
	deps := testDeps(t, "out")
	w := newTestMQTTWorker(t, deps, "out")

	w.onMessage(nil, &fakeMessage{payload: []byte(`not json`)})
	if deps.Buffers.Len() != 0 {
		t.Fatal("malformed payload must be ignored")
	}
}

func TestMQTTWorker_IgnoresMessagesAfterStop(t *testing.T) {
	deps := testDeps(t, "out")
	w := newTestMQTTWorker(t, deps, "out")
	deps.Stop.Set()

	w.onMessage(nil, &fakeMessage{payload: []byte(`{"nameDevice":"station1","out":1}`)})
	if deps.Buffers.Len() != 0 {
		t.Fatal("messages after stop must be dropped")
	}
}

func TestNumericField(t *testing.T) {
	if v, ok := numericField(3.5); !ok || v != 3.5 {
		t.Fatalf("float: %v %v", v, ok)
	}
	if v, ok := numericField("-2.25"); !ok || v != -2.25 {
		t.Fatalf("string: %v %v", v, ok)
	}
	if _, ok := numericField("abc"); ok {
		t.Fatal("non-numeric string accepted")
	}
	if _, ok := numericField(true); ok {
		t.Fatal("bool accepted")
	}
	if _, ok := numericField(nil); ok {
		t.Fatal("nil accepted")
	}
}
