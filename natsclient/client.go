// Package natsclient wraps a NATS connection with the publish/subscribe
// shapes feedcore's fan-out worker and impression sink need.
package natsclient

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats.go"
)

// Client wraps a core NATS connection plus its JetStream context.
type Client struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// Config controls the underlying connection's reconnect behavior.
type Config struct {
	URL           string
	ClientID      string
	MaxReconnects int
	ReconnectWait time.Duration
}

// NewClient dials NATS and opens a JetStream context for durable
// subscriptions (the fan-out worker needs at-least-once delivery of
// new-posts; fire-and-forget impression publish uses the plain conn).
func NewClient(cfg Config) (*Client, error) {
	if cfg.MaxReconnects == 0 {
		cfg.MaxReconnects = 10
	}
	if cfg.ReconnectWait == 0 {
		cfg.ReconnectWait = 2 * time.Second
	}

	opts := []nats.Option{
		nats.Name(cfg.ClientID),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				log.Printf("[nats] disconnected: %v", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Printf("[nats] reconnected to %s", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			log.Printf("[nats] connection closed")
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	log.Printf("[nats] connected to %s", nc.ConnectedUrl())

	return &Client{conn: nc, js: js}, nil
}

// Close releases the underlying connection.
func (c *Client) Close() {
	if c.conn != nil {
		c.conn.Close()
	}
}

// Publish fire-and-forgets a JSON payload on subject over core NATS. Used
// for the impressions topic: a publish failure is logged and dropped,
// never surfaced to the caller's request path.
func (c *Client) Publish(subject string, v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := c.conn.Publish(subject, payload); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}
	return nil
}

// EnsureStream creates (or confirms) a JetStream stream covering subjects.
func (c *Client) EnsureStream(streamName string, subjects []string) error {
	_, err := c.js.AddStream(&nats.StreamConfig{
		Name:      streamName,
		Subjects:  subjects,
		Storage:   nats.FileStorage,
		MaxAge:    7 * 24 * time.Hour,
		Retention: nats.WorkQueuePolicy,
	})
	if err != nil && err != nats.ErrStreamNameAlreadyInUse {
		return fmt.Errorf("failed to create stream %s: %w", streamName, err)
	}
	return nil
}

// SubscribeDurable creates a JetStream durable, explicit-ack, queue-group
// subscription: at-least-once delivery, at most 3 deliveries per message
// (the first plus up to 2 redeliveries), 30s ack window.
func (c *Client) SubscribeDurable(subject, durableName, queueGroup string, handler nats.MsgHandler) (*nats.Subscription, error) {
	sub, err := c.js.QueueSubscribe(
		subject,
		queueGroup,
		handler,
		nats.Durable(durableName),
		nats.ManualAck(),
		nats.AckExplicit(),
		nats.MaxDeliver(3),
		nats.AckWait(30*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create durable subscription to %s: %w", subject, err)
	}
	log.Printf("[nats] durable subscription created: %s (durable=%s queue=%s)", subject, durableName, queueGroup)
	return sub, nil
}

// DecodeEvent unmarshals a message payload into v.
func DecodeEvent(msg *nats.Msg, v interface{}) error {
	return json.Unmarshal(msg.Data, v)
}
