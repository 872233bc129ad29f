package emotion

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// StreamClient consumes emotion samples from the external detection
// collaborator over WebSocket, reconnecting on failure.
type StreamClient struct {
	url            string
	reconnectDelay time.Duration
	logger         zerolog.Logger

	mu        sync.RWMutex
	conn      *websocket.Conn
	connected bool
	cancel    context.CancelFunc

	onSample func(Sample)
	onError  func(error)
}

// NewStreamClient creates a client for the given ws:// URL.
func NewStreamClient(url string, reconnectDelay time.Duration, logger zerolog.Logger) *StreamClient {
	if reconnectDelay <= 0 {
		reconnectDelay = 5 * time.Second
	}
	return &StreamClient{
		url:            url,
		reconnectDelay: reconnectDelay,
		logger:         logger.With().Str("component", "emotion-stream").Logger(),
	}
}

// SetSampleCallback sets the callback invoked for each received sample.
func (c *StreamClient) SetSampleCallback(cb func(Sample)) {
	c.onSample = cb
}

// SetErrorCallback sets the callback for stream errors.
func (c *StreamClient) SetErrorCallback(cb func(error)) {
	c.onError = cb
}

// Connect starts the connection loop in the background.
func (c *StreamClient) Connect(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.cancel = cancel
	c.mu.Unlock()

	go c.connectLoop(ctx)
}

// Disconnect closes the stream and stops reconnecting.
func (c *StreamClient) Disconnect() {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.connected = false
	c.mu.Unlock()
}

// IsConnected reports whether the stream is currently up.
func (c *StreamClient) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

func (c *StreamClient) connectLoop(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
		if err != nil {
			c.logger.Warn().Err(err).Str("url", c.url).Msg("emotion stream dial failed")
			if c.onError != nil {
				c.onError(err)
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(c.reconnectDelay):
				continue
			}
		}

		c.mu.Lock()
		c.conn = conn
		c.connected = true
		c.mu.Unlock()
		c.logger.Info().Str("url", c.url).Msg("emotion stream connected")

		c.readLoop(ctx, conn)

		c.mu.Lock()
		c.connected = false
		c.conn = nil
		c.mu.Unlock()

		select {
		case <-ctx.Done():
			return
		case <-time.After(c.reconnectDelay):
		}
	}
}

func (c *StreamClient) readLoop(ctx context.Context, conn *websocket.Conn) {
	defer conn.Close()

	for {
		if ctx.Err() != nil {
			return
		}

		var sample Sample
		if err := conn.ReadJSON(&sample); err != nil {
			if ctx.Err() == nil {
				c.logger.Warn().Err(err).Msg("emotion stream read failed")
				if c.onError != nil {
					c.onError(err)
				}
			}
			return
		}

		if sample.Timestamp.IsZero() {
			sample.Timestamp = time.Now()
		}
		if c.onSample != nil {
			c.onSample(sample)
		}
	}
}
