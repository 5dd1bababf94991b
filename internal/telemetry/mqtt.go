package telemetry

import (
	"fmt"
	"os"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/bilalemiroglu/RSS-Vakit-ESP/internal/logging"
)

const (
	publishQoS     = 0
	publishTimeout = 2 * time.Second
	connectTimeout = 5 * time.Second
)

// MQTT publishes events to a broker. The connection is established in the
// background and retried, since the broker is only reachable while the
// station is associated. Events published while offline are dropped.
type MQTT struct {
	client mqtt.Client
	topic  string
}

// NewMQTT creates a publisher for broker (e.g. "tcp://10.0.0.2:1883").
func NewMQTT(broker, topic string) *MQTT {
	if topic == "" {
		topic = DefaultTopic()
	}
	host, _ := os.Hostname()

	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(fmt.Sprintf("vakitd-%s-%d", host, os.Getpid()))
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectTimeout(connectTimeout)
	opts.SetKeepAlive(30 * time.Second)
	opts.SetOnConnectHandler(func(mqtt.Client) {
		logging.Info("MQTT telemetry connected", zap.String("broker", broker))
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logging.Warn("MQTT telemetry connection lost", zap.String("broker", broker), zap.Error(err))
	})

	client := mqtt.NewClient(opts)
	// With ConnectRetry the token only completes once connected; do not wait on it.
	client.Connect()

	return &MQTT{client: client, topic: topic}
}

// Publish implements Publisher.
func (m *MQTT) Publish(e Event) {
	if !m.client.IsConnectionOpen() {
		logging.Debug("MQTT telemetry offline, event dropped", zap.String("state", e.State))
		return
	}

	payload, err := e.Marshal()
	if err != nil {
		logging.Error("Failed to marshal telemetry event", zap.Error(err))
		return
	}

	token := m.client.Publish(m.topic, publishQoS, false, payload)
	if !token.WaitTimeout(publishTimeout) {
		logging.Warn("MQTT telemetry publish timed out", zap.String("topic", m.topic))
		return
	}
	if err := token.Error(); err != nil {
		logging.Warn("MQTT telemetry publish failed", zap.String("topic", m.topic), zap.Error(err))
		return
	}
	logging.Debug("Telemetry event published", zap.String("topic", m.topic), zap.String("state", e.State))
}

// Close disconnects from the broker.
func (m *MQTT) Close() {
	m.client.Disconnect(250)
}
