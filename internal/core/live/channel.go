// Package live maintains the persistent push connection that feeds the
// status projection.
package live

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	stdsync "sync"
	"time"

	"github.com/gorilla/websocket"
	"gopkg.in/yaml.v3"

	"github.com/bridgesync/bridgesync/internal/core/observability/log"
	"github.com/bridgesync/bridgesync/internal/core/observability/metrics"
	"github.com/bridgesync/bridgesync/internal/core/status"
	"github.com/bridgesync/bridgesync/pkg/concurrent"
)

// Config holds configuration for the live event channel.
type Config struct {
	// URL is the websocket push endpoint, e.g. "ws://localhost:8080/api/v1/events".
	URL string `json:"url" yaml:"url"`

	// ReconnectDelay is the fixed debounce applied after a channel
	// failure. There is no backoff growth and no retry ceiling.
	ReconnectDelay time.Duration `json:"reconnect_delay" yaml:"reconnect_delay"`
}

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() Config {
	return Config{
		URL:            "ws://localhost:8080/api/v1/events",
		ReconnectDelay: 3 * time.Second,
	}
}

// UnmarshalYAML fills the config from YAML, leaving unmentioned fields
// untouched and accepting durations in time.ParseDuration form.
func (c *Config) UnmarshalYAML(node *yaml.Node) error {
	var raw struct {
		URL            *string `yaml:"url"`
		ReconnectDelay *string `yaml:"reconnect_delay"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	if raw.URL != nil {
		c.URL = *raw.URL
	}
	if raw.ReconnectDelay != nil {
		d, err := time.ParseDuration(*raw.ReconnectDelay)
		if err != nil {
			return fmt.Errorf("reconnect_delay: %w", err)
		}
		c.ReconnectDelay = d
	}
	return nil
}

// envelope is the wire frame: a named event carrying a JSON string payload.
type envelope struct {
	Event   string `json:"event"`
	Payload string `json:"payload"`
}

// Channel is one persistent subscription to the push endpoint. Failures
// schedule a single debounced reconnect; a new failure before the timer
// fires restarts the delay rather than stacking attempts.
type Channel struct {
	cfg     Config
	dialer  *websocket.Dialer
	proj    *status.Projection
	logger  log.Log
	metrics *metrics.Metrics

	reconnect *concurrent.ResettableTimer

	mu      stdsync.Mutex
	conn    *websocket.Conn
	started bool
	closed  bool
}

// ChannelOption tweaks channel construction.
type ChannelOption func(*Channel)

// WithDialer replaces the websocket dialer. Tests use this to point the
// channel at an in-process server.
func WithDialer(d *websocket.Dialer) ChannelOption {
	return func(c *Channel) { c.dialer = d }
}

// WithChannelMetrics attaches a metrics bundle.
func WithChannelMetrics(m *metrics.Metrics) ChannelOption {
	return func(c *Channel) { c.metrics = m }
}

// NewChannel builds a channel feeding the given projection.
func NewChannel(cfg Config, proj *status.Projection, logger log.Log, opts ...ChannelOption) *Channel {
	c := &Channel{
		cfg:       cfg,
		dialer:    websocket.DefaultDialer,
		proj:      proj,
		logger:    logger.With(log.String("component", "live_channel")),
		reconnect: concurrent.NewResettableTimer(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start opens the subscription. Calling it again on a started channel is a
// no-op. A failed initial dial is treated like any other channel failure:
// the reconnect timer takes over.
func (c *Channel) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrChannelClosed
	}
	if c.started {
		c.mu.Unlock()
		return nil
	}
	c.started = true
	c.mu.Unlock()

	c.open(ctx)
	return nil
}

// Stop cancels any pending reconnect and closes the connection. Idempotent.
func (c *Channel) Stop() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	c.reconnect.Cancel()
	if conn != nil {
		_ = conn.Close()
	}
	c.logger.Info("live channel stopped")
	return nil
}

// open dials the endpoint and hands the connection to the read loop.
func (c *Channel) open(ctx context.Context) {
	conn, resp, err := c.dialer.DialContext(ctx, c.cfg.URL, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		c.logger.Warn("push endpoint dial failed", log.Error(err))
		c.scheduleReconnect()
		return
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		_ = conn.Close()
		return
	}
	c.conn = conn
	c.mu.Unlock()

	c.logger.Info("push subscription open", log.String("url", c.cfg.URL))
	go c.readLoop(conn)
}

func (c *Channel) readLoop(conn *websocket.Conn) {
	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			c.handleFailure(conn, err)
			return
		}
		c.dispatch(frame)
	}
}

// handleFailure tears down the failed connection and arms the single-slot
// reconnect timer.
func (c *Channel) handleFailure(conn *websocket.Conn, cause error) {
	_ = conn.Close()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	if c.conn == conn {
		c.conn = nil
	}
	c.mu.Unlock()

	if !errors.Is(cause, websocket.ErrCloseSent) {
		c.logger.Warn("push subscription lost", log.Error(cause))
	}
	c.scheduleReconnect()
}

func (c *Channel) scheduleReconnect() {
	c.reconnect.Schedule(c.cfg.ReconnectDelay, func() {
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return
		}
		c.mu.Unlock()

		c.metrics.IncReconnects()
		c.logger.Info("reconnecting push subscription")
		c.open(context.Background())
	})
}

func (c *Channel) dispatch(frame []byte) {
	var env envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		c.metrics.IncMalformedEvents()
		c.logger.Warn("undecodable push frame", log.Error(err))
		return
	}

	handled, err := Dispatch(c.proj, env.Event, []byte(env.Payload))
	if err != nil {
		c.metrics.IncMalformedEvents()
		c.logger.Warn("malformed event payload",
			log.String("event", env.Event),
			log.Error(err))
		return
	}
	if !handled {
		c.logger.Debug("ignoring unknown event", log.String("event", env.Event))
		return
	}
	c.metrics.IncEventsDispatched()
}
