// Package emitter publishes executed commands to an MQTT broker so other
// systems can follow what the gesture pipeline does.
package emitter

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/echocat/slf4g"

	"github.com/ayusman/mudra/internal/pipeline"
)

var (
	// ErrNotConnected is returned when publishing without a broker connection.
	ErrNotConnected = errors.New("mqtt not connected")

	// ErrDisabled is returned by Connect when no broker is configured.
	ErrDisabled = errors.New("mqtt emitter disabled")
)

// Config configures the MQTT emitter. An empty Broker disables it.
type Config struct {
	Broker   string `koanf:"broker" yaml:"broker"`
	ClientID string `koanf:"client_id" yaml:"client_id"`
	Topic    string `koanf:"topic" yaml:"topic"`
	QoS      byte   `koanf:"qos" yaml:"qos"`
	Codec    string `koanf:"codec" yaml:"codec"`
	Queue    int    `koanf:"queue" yaml:"queue"`
}

// DefaultConfig returns a disabled emitter configuration.
func DefaultConfig() Config {
	return Config{
		ClientID: "mudra",
		Topic:    "mudra/commands",
		Codec:    "json",
		Queue:    64,
	}
}

// Enabled reports whether a broker is configured.
func (c Config) Enabled() bool {
	return c.Broker != ""
}

// Stats contains emitter statistics
type Stats struct {
	Connected bool              `json:"connected"`
	Published map[string]uint64 `json:"published"`
	Errors    uint64            `json:"errors"`
	Dropped   uint64            `json:"dropped"`
}

// MQTTEmitter publishes dispatched commands. It implements
// pipeline.Observer; reports are queued and published from Run so the
// processing loop never waits on the broker.
type MQTTEmitter struct {
	cfg    Config
	codec  Codec
	Client mqtt.Client

	queue chan Message

	mu        sync.RWMutex
	published map[string]uint64
	errors    uint64
	dropped   uint64
	connected bool
}

// NewMQTTEmitter creates a new MQTT emitter
func NewMQTTEmitter(cfg Config) (*MQTTEmitter, error) {
	codec, err := NewCodec(cfg.Codec)
	if err != nil {
		return nil, err
	}
	if cfg.Queue <= 0 {
		cfg.Queue = DefaultConfig().Queue
	}
	return &MQTTEmitter{
		cfg:       cfg,
		codec:     codec,
		queue:     make(chan Message, cfg.Queue),
		published: make(map[string]uint64),
	}, nil
}

func brokerURL(broker string) string {
	if strings.Contains(broker, "://") {
		return broker
	}
	return "tcp://" + broker
}

// Connect establishes connection to MQTT broker
func (e *MQTTEmitter) Connect(ctx context.Context) error {
	if !e.cfg.Enabled() {
		return ErrDisabled
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(brokerURL(e.cfg.Broker))
	opts.SetClientID(e.cfg.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)

	opts.OnConnect = func(c mqtt.Client) {
		e.setConnected(true)
		log.With("broker", e.cfg.Broker).
			With("clientId", e.cfg.ClientID).
			Info("MQTT connection established.")
	}

	opts.OnConnectionLost = func(c mqtt.Client, err error) {
		e.setConnected(false)
		log.With("broker", e.cfg.Broker).
			WithError(err).
			Warn("MQTT connection lost, will auto-reconnect.")
	}

	e.Client = mqtt.NewClient(opts)

	log.With("broker", e.cfg.Broker).Info("Connecting to MQTT broker...")

	token := e.Client.Connect()
	select {
	case <-token.Done():
	case <-time.After(5 * time.Second):
		return fmt.Errorf("mqtt connection timeout")
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connection failed: %w", err)
	}

	e.setConnected(true)
	return nil
}

// Observe queues a message for every dispatched command in r. Messages are
// dropped when the queue is full.
func (e *MQTTEmitter) Observe(_ context.Context, r pipeline.Report) {
	for _, m := range Messages(r) {
		select {
		case e.queue <- m:
		default:
			e.mu.Lock()
			e.dropped++
			e.mu.Unlock()
		}
	}
}

// Run publishes queued messages until ctx is done.
func (e *MQTTEmitter) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case m := <-e.queue:
			if err := e.Publish(m); err != nil {
				log.With("command", m.Command).
					WithError(err).
					Debug("Cannot publish command.")
			}
		}
	}
}

// Topic returns the topic a message of kind is published to.
func (e *MQTTEmitter) Topic(kind string) string {
	return e.cfg.Topic + "/" + kind
}

// Publish publishes m to the topic of its command kind.
func (e *MQTTEmitter) Publish(m Message) error {
	if !e.isConnected() {
		e.countError()
		return ErrNotConnected
	}

	topic := e.Topic(m.Kind)

	payload, err := e.codec.Marshal(m)
	if err != nil {
		e.countError()
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	token := e.Client.Publish(topic, e.cfg.QoS, false, payload)
	if !token.WaitTimeout(2 * time.Second) {
		e.countError()
		return fmt.Errorf("publish timeout")
	}
	if err := token.Error(); err != nil {
		e.countError()
		return fmt.Errorf("publish failed: %w", err)
	}

	e.mu.Lock()
	e.published[topic]++
	e.mu.Unlock()

	log.With("topic", topic).
		With("codec", e.codec.Name()).
		With("size", len(payload)).
		Debug("Command published.")

	return nil
}

// Disconnect closes the MQTT connection
func (e *MQTTEmitter) Disconnect() {
	if e.Client != nil {
		wasConnected := e.Client.IsConnected()
		// Also stops a pending connect retry.
		e.Client.Disconnect(250)
		if wasConnected {
			log.Info("MQTT disconnected.")
		}
	}
	e.setConnected(false)
}

// Stats returns emitter statistics
func (e *MQTTEmitter) Stats() Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()

	published := make(map[string]uint64, len(e.published))
	for k, v := range e.published {
		published[k] = v
	}

	return Stats{
		Connected: e.connected,
		Published: published,
		Errors:    e.errors,
		Dropped:   e.dropped,
	}
}

func (e *MQTTEmitter) setConnected(v bool) {
	e.mu.Lock()
	e.connected = v
	e.mu.Unlock()
}

func (e *MQTTEmitter) countError() {
	e.mu.Lock()
	e.errors++
	e.mu.Unlock()
}

func (e *MQTTEmitter) isConnected() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.connected
}
