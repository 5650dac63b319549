package relay_test

import (
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/signal-relay/internal/relay"
)

// mockConn is an in-memory relay.Conn. Messages pushed with deliverInbound
// are returned by Receive; messages passed to Send land on the sent channel.
type mockConn struct {
	id      string
	inbound chan relay.Message
	sent    chan relay.Message
	done    chan struct{}

	mu        sync.Mutex
	sendErr   error
	sendPanic bool
	closes    int
	closeOnce sync.Once
}

func newMockConn(id string) *mockConn {
	return &mockConn{
		id:      id,
		inbound: make(chan relay.Message),
		sent:    make(chan relay.Message, 64),
		done:    make(chan struct{}),
	}
}

func (c *mockConn) ID() string { return c.id }

func (c *mockConn) Receive() (relay.Message, error) {
	select {
	case msg, ok := <-c.inbound:
		if !ok {
			return relay.Message{}, fmt.Errorf("%s: %w", c.id, relay.ErrPeerClosed)
		}
		return msg, nil
	case <-c.done:
		return relay.Message{}, net.ErrClosed
	}
}

func (c *mockConn) Send(msg relay.Message) error {
	c.mu.Lock()
	err, shouldPanic := c.sendErr, c.sendPanic
	c.mu.Unlock()

	if shouldPanic {
		panic("transport exploded")
	}
	if err != nil {
		return err
	}
	c.sent <- msg
	return nil
}

func (c *mockConn) Close() error {
	c.mu.Lock()
	c.closes++
	c.mu.Unlock()
	c.closeOnce.Do(func() { close(c.done) })
	return nil
}

func (c *mockConn) failSends(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sendErr = err
}

func (c *mockConn) panicOnSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sendPanic = true
}

func (c *mockConn) closeCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closes
}

// say makes the peer send text; it blocks until the relay loop picks it up.
func (c *mockConn) say(t *testing.T, text string) {
	t.Helper()
	select {
	case c.inbound <- relay.Message{Kind: relay.Text, Payload: []byte(text)}:
	case <-time.After(time.Second):
		t.Fatalf("%s: relay loop did not read message %q", c.id, text)
	}
}

// hangUp simulates a normal close by the peer.
func (c *mockConn) hangUp() {
	close(c.inbound)
}

func expectMessage(t *testing.T, c *mockConn, want string) {
	t.Helper()
	select {
	case msg := <-c.sent:
		require.Equal(t, want, string(msg.Payload), "%s received wrong payload", c.id)
	case <-time.After(time.Second):
		t.Fatalf("%s did not receive %q", c.id, want)
	}
}

func expectNoMessage(t *testing.T, c *mockConn, wait time.Duration) {
	t.Helper()
	select {
	case msg := <-c.sent:
		t.Fatalf("%s unexpectedly received %q", c.id, msg.Payload)
	case <-time.After(wait):
	}
}
