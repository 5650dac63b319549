// Package relay defines the connection abstraction, the registry of live
// connections and the per-connection loop that fans messages out to peers.
package relay

import (
	"errors"
	"strings"
)

// MessageKind identifies how a payload was framed by the transport.
type MessageKind int

const (
	// Text is a UTF-8 text frame.
	Text MessageKind = iota + 1
	// Binary is an opaque binary frame.
	Binary
)

// String returns a short name for the kind, used in log fields.
func (k MessageKind) String() string {
	switch k {
	case Text:
		return "text"
	case Binary:
		return "binary"
	default:
		return "unknown"
	}
}

// Message is an opaque payload relayed between clients. The relay never
// inspects or modifies Payload.
type Message struct {
	Kind    MessageKind
	Payload []byte
}

var (
	// ErrPeerClosed is wrapped by Conn.Receive when the remote side closed
	// the connection normally.
	ErrPeerClosed = errors.New("relay: peer closed connection")

	// ErrShuttingDown is reported for connections handed to a Relay after
	// Shutdown has started.
	ErrShuttingDown = errors.New("relay: shutting down")
)

// Conn is one open bidirectional transport session.
//
// Receive is only ever called from the connection's own relay loop. Send may
// be called concurrently from the loops of other connections, so
// implementations must serialize writes themselves. Close must be safe to
// call more than once.
type Conn interface {
	// ID returns an identifier assigned at accept time, used for logging.
	ID() string

	// Receive blocks until the next inbound message arrives. A normal close
	// by the peer is reported as an error wrapping ErrPeerClosed.
	Receive() (Message, error)

	// Send delivers msg to the peer.
	Send(msg Message) error

	// Close releases the transport.
	Close() error
}

// IsExpectedCloseError reports whether err is the kind of error a transport
// returns when it is used or closed after the connection already went away.
func IsExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe")
}
