// Package server adapts gorilla WebSocket connections to the relay's
// connection abstraction, handling write serialization, keepalive pings and
// close classification for each client.
package server

import (
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pborman/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/Tyrowin/signal-relay/internal/relay"
)

const defaultControlTimeout = time.Second

// wsConn is a relay.Conn backed by a gorilla WebSocket connection.
type wsConn struct {
	id             string
	addr           string
	conn           *websocket.Conn
	logger         logrus.FieldLogger
	maxMessageSize int64
	writeTimeout   time.Duration
	pingInterval   time.Duration

	// gorilla allows one concurrent writer; broadcasts from different
	// senders may target the same recipient at once.
	writeMu sync.Mutex

	closeOnce sync.Once
	closeErr  error
	done      chan struct{}
}

// newWSConn wraps conn and, when keepalive is enabled, starts its ping loop.
func newWSConn(conn *websocket.Conn, addr string, cfg *Config, logger logrus.FieldLogger) *wsConn {
	id := uuid.New()
	c := &wsConn{
		id:             id,
		addr:           addr,
		conn:           conn,
		logger:         logger.WithFields(logrus.Fields{"conn-id": id, "remote-addr": addr}),
		maxMessageSize: cfg.MaxMessageSize,
		writeTimeout:   cfg.WriteTimeout,
		pingInterval:   cfg.PingInterval,
		done:           make(chan struct{}),
	}

	conn.SetReadLimit(c.maxMessageSize)
	if c.pingInterval > 0 {
		c.setupReadConnection()
		go c.keepalive()
	}
	return c
}

func (c *wsConn) ID() string {
	return c.id
}

// setupReadConnection configures the read deadline and pong handler. A peer
// that misses a whole ping interval without answering is considered dead.
func (c *wsConn) setupReadConnection() {
	if err := c.conn.SetReadDeadline(time.Now().Add(2 * c.pingInterval)); err != nil {
		c.logger.WithError(err).Warn("Error setting initial read deadline")
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(2 * c.pingInterval))
	})
}

func (c *wsConn) keepalive() {
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, c.controlDeadline()); err != nil {
				if !relay.IsExpectedCloseError(err) {
					c.logger.WithError(err).Debug("Error writing ping message")
				}
				return
			}
		}
	}
}

// controlDeadline bounds a ping or close frame write. Without a configured
// write timeout a zero deadline would fail every control write immediately.
func (c *wsConn) controlDeadline() time.Time {
	if c.writeTimeout > 0 {
		return time.Now().Add(c.writeTimeout)
	}
	return time.Now().Add(defaultControlTimeout)
}

// Receive reads the next data frame. Control frames are handled by gorilla
// inside ReadMessage.
func (c *wsConn) Receive() (relay.Message, error) {
	messageType, payload, err := c.conn.ReadMessage()
	if err != nil {
		return relay.Message{}, c.classifyReadError(err)
	}

	kind := relay.Text
	if messageType == websocket.BinaryMessage {
		kind = relay.Binary
	}
	return relay.Message{Kind: kind, Payload: payload}, nil
}

func (c *wsConn) classifyReadError(err error) error {
	if websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived) {
		return errors.WithMessage(relay.ErrPeerClosed, err.Error())
	}

	if errors.Is(err, websocket.ErrReadLimit) {
		return errors.Wrapf(err, "message exceeded maximum size of %d bytes", c.maxMessageSize)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return errors.Wrap(err, "keepalive timed out")
	}

	return errors.Wrap(err, "websocket read")
}

// Send writes msg as a single frame of the same kind it arrived as.
func (c *wsConn) Send(msg relay.Message) error {
	messageType := websocket.TextMessage
	if msg.Kind == relay.Binary {
		messageType = websocket.BinaryMessage
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.writeTimeout > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
			return errors.Wrap(err, "setting write deadline")
		}
	}
	if err := c.conn.WriteMessage(messageType, msg.Payload); err != nil {
		return errors.Wrapf(err, "writing to %s", c.addr)
	}
	return nil
}

// Close sends a close frame, best effort, and releases the network
// connection. Only the first call has any effect.
func (c *wsConn) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)

		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		if err := c.conn.WriteControl(websocket.CloseMessage, msg, c.controlDeadline()); err != nil && !relay.IsExpectedCloseError(err) {
			c.logger.WithError(err).Debug("Error writing close message")
		}

		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}
