package testhelpers

import (
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

// Frame is one data message read by an Inbox.
type Frame struct {
	Type    int
	Payload []byte
}

// Inbox reads a client connection in the background so tests can wait for
// messages, or for their absence, without poisoning the connection with read
// deadlines.
type Inbox struct {
	frames chan Frame
	closed chan error
}

// StartInbox starts reading conn until it fails.
func StartInbox(conn *websocket.Conn) *Inbox {
	in := &Inbox{
		frames: make(chan Frame, 64),
		closed: make(chan error, 1),
	}
	go func() {
		for {
			messageType, payload, err := conn.ReadMessage()
			if err != nil {
				in.closed <- err
				return
			}
			in.frames <- Frame{Type: messageType, Payload: payload}
		}
	}()
	return in
}

// Next waits for the next frame.
func (in *Inbox) Next(t *testing.T) Frame {
	t.Helper()
	select {
	case frame := <-in.frames:
		return frame
	case err := <-in.closed:
		t.Fatalf("Connection closed while waiting for a message: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for a message")
	}
	return Frame{}
}

// Expect waits for a text frame equal to want.
func (in *Inbox) Expect(t *testing.T, want string) {
	t.Helper()
	frame := in.Next(t)
	require.Equal(t, websocket.TextMessage, frame.Type)
	require.Equal(t, want, string(frame.Payload))
}

// ExpectNone checks that no frame arrives within wait.
func (in *Inbox) ExpectNone(t *testing.T, wait time.Duration) {
	t.Helper()
	select {
	case frame := <-in.frames:
		t.Fatalf("Expected no message, got %q", frame.Payload)
	case <-time.After(wait):
	}
}

// ExpectClosed waits for the server to end the connection and returns the
// read error that ended it.
func (in *Inbox) ExpectClosed(t *testing.T, wait time.Duration) error {
	t.Helper()
	for {
		select {
		case <-in.frames:
		case err := <-in.closed:
			return err
		case <-time.After(wait):
			t.Fatal("Connection was not closed by the server")
			return nil
		}
	}
}
