// v2
// internal/broker/manager.go

package broker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/vpp-edge/metersim/internal/config"
	"github.com/vpp-edge/metersim/internal/observability"
	"github.com/vpp-edge/metersim/internal/state"
)

// State of the broker connection. Auto-reconnect loops Connected back
// through Connecting transparently; there is no terminal state while the
// process runs.
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "CONNECTING"
	case Connected:
		return "CONNECTED"
	default:
		return "DISCONNECTED"
	}
}

// client is the slice of mqtt.Client the manager actually uses. The paho
// client satisfies it; tests substitute a fake.
type client interface {
	Connect() mqtt.Token
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// Manager owns the long-lived connection to the broker topic. Connection
// events drive the state machine; the underlying transport handles
// reconnection on its own once the first connect succeeds.
type Manager struct {
	log     *slog.Logger
	store   *state.Store
	metrics *observability.Metrics

	cli           client
	host          string
	port          int
	topic         string
	retryInterval time.Duration

	mu sync.Mutex
	st State
}

// New wires a paho client with auto-reconnect (1s min, 60s max backoff),
// clean session and the asset ID as client ID.
func New(cfg config.Config, store *state.Store, metrics *observability.Metrics, log *slog.Logger) *Manager {
	m := &Manager{
		log:           log.With(slog.String("component", "broker")),
		store:         store,
		metrics:       metrics,
		host:          cfg.BrokerHost,
		port:          cfg.BrokerPort,
		topic:         cfg.Topic,
		retryInterval: cfg.RetryInterval,
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.BrokerURL()).
		SetClientID(cfg.AssetID).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetMaxReconnectInterval(60 * time.Second).
		SetKeepAlive(60 * time.Second)
	opts.OnConnect = func(mqtt.Client) { m.handleConnect() }
	opts.OnConnectionLost = func(_ mqtt.Client, err error) { m.handleConnectionLost(err) }
	opts.OnReconnecting = func(mqtt.Client, *mqtt.ClientOptions) { m.transition(Connecting) }

	m.cli = mqtt.NewClient(opts)
	return m
}

// ConnectBlocking attempts the initial connection, retrying every
// retry-interval until an attempt succeeds. It returns a non-nil error only
// when ctx is cancelled; a broker outage alone never fails outward.
func (m *Manager) ConnectBlocking(ctx context.Context) error {
	for {
		m.transition(Connecting)
		tok := m.cli.Connect()
		tok.Wait()
		if err := tok.Error(); err != nil {
			m.log.Error("cannot reach broker, retrying",
				"host", m.host, "port", m.port, "retry", m.retryInterval.String(), "err", err)
			m.store.RecordError(err)
			m.transition(Disconnected)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(m.retryInterval):
			}
			continue
		}
		return nil
	}
}

// Publish sends one payload at QoS 1 and waits for the acknowledgment
// token. An acknowledged publish increments the shared counter; a transport
// failure is reported to the caller and otherwise leaves state alone.
func (m *Manager) Publish(payload []byte) error {
	tok := m.cli.Publish(m.topic, 1, false, payload)
	tok.Wait()
	if err := tok.Error(); err != nil {
		m.metrics.PublishError()
		return err
	}
	m.store.IncPublished()
	m.metrics.Published()
	return nil
}

// Connected reports the shared connection flag.
func (m *Manager) Connected() bool { return m.store.Connected() }

// State reports the current connection state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st
}

// Close disconnects from the broker, allowing in-flight work to drain.
func (m *Manager) Close() {
	m.cli.Disconnect(250)
	m.transition(Disconnected)
	m.store.MarkDisconnected()
	m.metrics.SetConnected(false)
}

func (m *Manager) handleConnect() {
	m.transition(Connected)
	m.store.MarkConnected()
	m.metrics.SetConnected(true)
	m.log.Info("broker connected", "host", m.host, "port", m.port)
}

func (m *Manager) handleConnectionLost(err error) {
	m.transition(Disconnected)
	m.store.MarkDisconnected()
	m.metrics.SetConnected(false)
	m.log.Warn("broker connection lost, transport will retry automatically", "err", err)
}

func (m *Manager) transition(to State) {
	m.mu.Lock()
	from := m.st
	m.st = to
	m.mu.Unlock()
	if from != to {
		m.log.Info("connection state", "from", from.String(), "to", to.String())
	}
}
