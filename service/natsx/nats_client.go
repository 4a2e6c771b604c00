package natsx

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

// Config for the gateway relay client.
type Config struct {
	Servers       []string
	Name          string
	ReconnectWait time.Duration
	Timeout       time.Duration
}

// Client carries envelopes between gateway nodes over core NATS. Delivery is
// fire-and-forget: a lost relay behaves exactly like an offline recipient.
type Client struct {
	cfg Config
	nc  *nats.Conn

	mu   sync.Mutex
	subs []*nats.Subscription
}

func New(cfg Config) (*Client, error) {
	if len(cfg.Servers) == 0 {
		return nil, errors.New("nats servers missing")
	}
	if cfg.ReconnectWait == 0 {
		cfg.ReconnectWait = 500 * time.Millisecond
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 3 * time.Second
	}
	opts := []nats.Option{
		nats.Name(cfg.Name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.ReconnectJitter(100*time.Millisecond, 500*time.Millisecond),
		nats.Timeout(cfg.Timeout),
	}
	nc, err := nats.Connect(strings.Join(cfg.Servers, ","), opts...)
	if err != nil {
		return nil, err
	}
	return &Client{cfg: cfg, nc: nc}, nil
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, sub := range c.subs {
		_ = sub.Drain()
	}
	c.subs = nil
	if c.nc != nil {
		return c.nc.Drain()
	}
	return nil
}

func deliverSubject(gatewayID string) string {
	return "im.deliver." + gatewayID
}

type deliverMsg struct {
	To      string          `json:"to"`
	Payload json.RawMessage `json:"payload"`
}

// Deliver publishes an already-marshaled envelope to the node holding userID.
// Implements the dispatcher's Relay interface.
func (c *Client) Deliver(_ context.Context, gatewayID, userID string, payload []byte) error {
	b, err := json.Marshal(deliverMsg{To: userID, Payload: payload})
	if err != nil {
		return err
	}
	return c.nc.Publish(deliverSubject(gatewayID), b)
}

// SubscribeDeliver consumes this node's deliver subject; h receives the
// recipient user id and the envelope bytes.
func (c *Client) SubscribeDeliver(gatewayID string, h func(userID string, payload []byte)) error {
	sub, err := c.nc.Subscribe(deliverSubject(gatewayID), func(m *nats.Msg) {
		var d deliverMsg
		if err := json.Unmarshal(m.Data, &d); err != nil || d.To == "" {
			return
		}
		h(d.To, d.Payload)
	})
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.subs = append(c.subs, sub)
	c.mu.Unlock()
	return nil
}
