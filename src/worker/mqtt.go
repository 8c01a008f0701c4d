package worker

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/pro100Roman/plotting-tools/src/stream"
	"github.com/pro100Roman/plotting-tools/src/types"
)

const (
	defaultStatusTopic = "/device/status/response"
	connectTimeout     = 5 * time.Second
)

// mqttWorker subscribes to device status messages on a broker. Payloads are
// already structured, so there is no line framing: each JSON message whose
// nameDevice field matches the configured device contributes one sample with
// the tracked keys extracted directly.
type mqttWorker struct {
	cfg    types.WorkerConfig
	deps   Deps
	client mqtt.Client
	topic  string
}

func newMQTTWorker(cfg types.WorkerConfig, deps Deps) (*mqttWorker, error) {
	if cfg.Broker == "" {
		return nil, errors.New("worker: no mqtt broker configured")
	}
	if cfg.Device == "" {
		return nil, errors.New("worker: no device name configured")
	}
	w := &mqttWorker{cfg: cfg, deps: deps, topic: cfg.Topic}
	if w.topic == "" {
		w.topic = defaultStatusTopic
	}

	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "plot-" + uuid.NewString()[:8]
	}
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s", cfg.Broker))
	opts.SetClientID(clientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)
	opts.OnConnect = func(c mqtt.Client) {
		stream.Infof("Connected to %s", cfg.Broker)
		if token := c.Subscribe(w.topic, 0, w.onMessage); token.Wait() && token.Error() != nil {
			stream.Errorf("Subscribe %s: %v", w.topic, token.Error())
			w.deps.Stop.Set()
		}
	}
	opts.OnConnectionLost = func(c mqtt.Client, err error) {
		stream.Warnf("Connection to %s lost, will auto-reconnect: %v", cfg.Broker, err)
	}
	w.client = mqtt.NewClient(opts)
	return w, nil
}

// Start connects to the broker. A connect failure is reported, converts to a
// stop, and is not retried here (auto-reconnect only covers established
// sessions).
func (w *mqttWorker) Start() {
	stream.Infof("Keys=%v", w.cfg.Keys)
	token := w.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		stream.Errorf("Failed to connect to '%s': timeout after %s", w.cfg.Broker, connectTimeout)
		w.deps.Stop.Set()
		return
	}
	if err := token.Error(); err != nil {
		stream.Errorf("Failed to connect to '%s': %v", w.cfg.Broker, err)
		w.deps.Stop.Set()
		return
	}
}

// onMessage runs on the paho callback goroutine; it is the producer thread of
// this variant.
func (w *mqttWorker) onMessage(_ mqtt.Client, msg mqtt.Message) {
	if w.deps.Stop.IsSet() {
		return
	}
	var data map[string]interface{}
	if err := json.Unmarshal(msg.Payload(), &data); err != nil {
		stream.Warnf("Undecodable payload on %s: %v", msg.Topic(), err)
		return
	}
	name, _ := data["nameDevice"].(string)
	if name != w.cfg.Device {
		return
	}
	stream.Debugf("Received message on topic '%s': %s", msg.Topic(), msg.Payload())
	vals := make(map[string]float64, len(w.cfg.Keys))
	for _, k := range w.cfg.Keys {
		v, ok := numericField(data[k])
		if !ok {
			stream.Warnf("Message missing key %q; rejected", k)
			return
		}
		vals[k] = v
	}
	w.deps.accept(w.deps.Clock.Next(), vals)
}

// numericField accepts JSON numbers and numeric strings (devices report both).
func numericField(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case string:
		f, err := strconv.ParseFloat(t, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// Join unsubscribes and disconnects. Disconnect waits for in-flight work up
// to the given timeout.
func (w *mqttWorker) Join(timeout time.Duration) error {
	if w.client.IsConnected() {
		if token := w.client.Unsubscribe(w.topic); !token.WaitTimeout(timeout) {
			stream.Warnf("Unsubscribe %s timed out", w.topic)
		}
		w.client.Disconnect(uint(timeout.Milliseconds()))
	}
	return nil
}
