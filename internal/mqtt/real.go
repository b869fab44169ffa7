package mqtt

import (
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/sweeney/screen-powersave/internal/logic"
	"github.com/sweeney/screen-powersave/internal/wire"
)

// bufferCapacity bounds the messages kept while the broker is unreachable.
const bufferCapacity = 100

// RealClient talks to an actual MQTT broker.
type RealClient struct {
	client paho.Client
	topics Topics
	log    log.FieldLogger

	mu      sync.Mutex
	buffer  *ringBuffer
	handler Handler
}

// NewRealClient creates a client for broker. Connecting happens in the
// background: if the broker is down, messages are buffered until it is back.
func NewRealClient(broker, prefix, clientID string, logger log.FieldLogger) (*RealClient, error) {
	if logger == nil {
		logger = log.StandardLogger()
	}
	c := &RealClient{
		topics: Topics{Prefix: prefix},
		log:    logger,
		buffer: newRingBuffer(bufferCapacity),
	}

	will, err := FormatSystemPayload(SystemEvent{Timestamp: time.Now(), Event: "OFFLINE", Reason: "MQTT_DISCONNECT"})
	if err != nil {
		return nil, fmt.Errorf("format will: %w", err)
	}

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID + "-" + uuid.NewString()[:8]).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetWill(c.topics.System(), string(will), 1, true).
		SetOnConnectHandler(c.onConnect).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			c.log.WithError(err).Warn("MQTT connection lost")
		})

	c.client = paho.NewClient(opts)
	token := c.client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		c.log.Warnf("MQTT broker %s not reachable yet, retrying in background", broker)
		return c, nil
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}
	return c, nil
}

func (c *RealClient) onConnect(client paho.Client) {
	c.log.Info("MQTT connected")

	c.mu.Lock()
	h := c.handler
	msgs, dropped := c.buffer.drainAll()
	c.mu.Unlock()

	if h != nil {
		if err := c.subscribe(h); err != nil {
			c.log.WithError(err).Error("Resubscribing failed")
		}
	}
	if dropped > 0 {
		c.log.Warnf("Dropped %d messages while disconnected", dropped)
	}
	for _, m := range msgs {
		client.Publish(m.topic, m.qos, m.retained, m.payload)
	}
}

// Notify publishes a notification. Errors are logged.
func (c *RealClient) Notify(n logic.Notification) {
	payload, err := wire.Encode(n)
	if err != nil {
		c.log.WithError(err).Error("Cannot encode notification")
		return
	}
	if err := c.publish(c.topics.Out(n.Name), 0, false, payload); err != nil {
		c.log.WithError(err).Errorf("Publishing %s failed", n.Name)
	}
}

// PublishSystem sends a lifecycle event.
func (c *RealClient) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	// QoS 1 (at-least-once): lifecycle events are rare and worth delivering.
	return c.publish(c.topics.System(), 1, event.Retained, payload)
}

func (c *RealClient) publish(topic string, qos byte, retained bool, payload []byte) error {
	if !c.client.IsConnectionOpen() {
		c.mu.Lock()
		if c.buffer.push(bufferedMsg{topic: topic, payload: payload, qos: qos, retained: retained}) {
			c.log.Debugf("MQTT buffer full, dropped oldest message")
		}
		c.mu.Unlock()
		return nil
	}

	token := c.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish %s: timeout", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// Subscribe registers h for inbound events.
func (c *RealClient) Subscribe(h Handler) error {
	c.mu.Lock()
	c.handler = h
	c.mu.Unlock()

	if !c.client.IsConnectionOpen() {
		// onConnect subscribes once the broker is reachable.
		return nil
	}
	return c.subscribe(h)
}

func (c *RealClient) subscribe(h Handler) error {
	token := c.client.Subscribe(c.topics.In(), 1, func(_ paho.Client, msg paho.Message) {
		h(EventName(msg.Topic()), msg.Payload())
	})
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("subscribe %s: timeout", c.topics.In())
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe %s: %w", c.topics.In(), err)
	}
	return nil
}

// IsConnected reports whether the broker connection is up.
func (c *RealClient) IsConnected() bool {
	return c.client.IsConnectionOpen()
}

// Close disconnects from the broker.
func (c *RealClient) Close() error {
	c.client.Disconnect(1000) // 1 second timeout
	return nil
}
