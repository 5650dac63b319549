package relay

import (
	"context"
	"fmt"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// State is a position in a connection's lifecycle.
type State int

const (
	// Connected means the transport upgrade completed.
	Connected State = iota
	// Relaying means the connection is registered and its loop is reading.
	Relaying
	// Closing means the loop stopped reading and is tearing down.
	Closing
	// Closed is terminal: the connection is unregistered and released.
	Closed
)

func (s State) String() string {
	switch s {
	case Connected:
		return "connected"
	case Relaying:
		return "relaying"
	case Closing:
		return "closing"
	case Closed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Recorder receives counters about relay activity. Implementations must be
// safe for concurrent use.
type Recorder interface {
	ConnectionOpened()
	ConnectionClosed()
	MessageRelayed(kind string, delivered, failed int)
}

type nopRecorder struct{}

func (nopRecorder) ConnectionOpened()               {}
func (nopRecorder) ConnectionClosed()               {}
func (nopRecorder) MessageRelayed(string, int, int) {}

// Option configures a Relay.
type Option func(*Relay)

// WithLogger sets the logger used for lifecycle and delivery events.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(r *Relay) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithRecorder sets the sink for relay counters.
func WithRecorder(rec Recorder) Option {
	return func(r *Relay) {
		if rec != nil {
			r.recorder = rec
		}
	}
}

// WithStateObserver registers fn to be called on every lifecycle transition
// of every connection. fn runs on the connection's loop goroutine.
func WithStateObserver(fn func(conn Conn, state State)) Option {
	return func(r *Relay) {
		r.observer = fn
	}
}

// Relay runs one receive loop per connection and broadcasts every inbound
// message to all other registered connections.
type Relay struct {
	registry *Registry
	logger   logrus.FieldLogger
	recorder Recorder
	observer func(Conn, State)

	mu      sync.Mutex
	closing bool
	wg      sync.WaitGroup
}

// New creates a Relay that tracks its connections in registry.
func New(registry *Registry, opts ...Option) *Relay {
	if registry == nil {
		registry = NewRegistry()
	}
	r := &Relay{
		registry: registry,
		logger:   logrus.StandardLogger(),
		recorder: nopRecorder{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Registry returns the registry the relay maintains.
func (r *Relay) Registry() *Registry {
	return r.registry
}

// OnConnect takes ownership of conn and runs its relay loop until the peer
// closes, the transport fails, or the relay shuts down. It returns once conn
// has been unregistered and closed.
func (r *Relay) OnConnect(conn Conn) {
	log := r.logger.WithField("conn-id", conn.ID())
	r.transition(conn, log, Connected)

	if !r.admit(conn) {
		log.WithError(ErrShuttingDown).Info("Rejecting connection")
		r.transition(conn, log, Closing)
		r.closeConn(conn, log)
		r.transition(conn, log, Closed)
		return
	}
	defer r.wg.Done()
	defer r.teardown(conn, log)

	r.recorder.ConnectionOpened()
	log.WithField("clients", r.registry.Len()).Info("Client connected")
	r.transition(conn, log, Relaying)

	for {
		msg, err := conn.Receive()
		if err != nil {
			r.logReceiveError(log, err)
			return
		}
		r.broadcast(conn, msg, log)
	}
}

// admit registers conn unless shutdown has begun. Registration happens under
// the same lock that Shutdown takes, so every admitted connection is visible
// to the shutdown snapshot.
func (r *Relay) admit(conn Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closing {
		return false
	}
	r.wg.Add(1)
	r.registry.Add(conn)
	return true
}

// teardown runs on every exit path of the loop, including panics.
func (r *Relay) teardown(conn Conn, log logrus.FieldLogger) {
	if p := recover(); p != nil {
		log.WithField("panic", p).Error("Relay loop panicked")
	}

	r.transition(conn, log, Closing)
	r.registry.Remove(conn)
	r.closeConn(conn, log)
	r.recorder.ConnectionClosed()
	r.transition(conn, log, Closed)
	log.WithField("clients", r.registry.Len()).Info("Client disconnected")
}

func (r *Relay) closeConn(conn Conn, log logrus.FieldLogger) {
	if err := conn.Close(); err != nil && !IsExpectedCloseError(err) {
		log.WithError(err).Warn("Error closing connection")
	}
}

func (r *Relay) logReceiveError(log logrus.FieldLogger, err error) {
	switch {
	case errors.Is(err, ErrPeerClosed):
		log.WithError(err).Debug("Peer closed connection")
	case IsExpectedCloseError(err):
		log.WithError(err).Debug("Connection closed locally")
	default:
		log.WithError(err).Warn("Receive failed")
	}
}

func (r *Relay) transition(conn Conn, log logrus.FieldLogger, state State) {
	log.WithField("state", state).Debug("Connection state changed")
	if r.observer != nil {
		r.observer(conn, state)
	}
}

// broadcast delivers msg to every registered connection except sender and
// waits for all deliveries to finish, so the sender's next message cannot
// overtake this one at any recipient.
func (r *Relay) broadcast(sender Conn, msg Message, log logrus.FieldLogger) {
	recipients := r.registry.SnapshotExcluding(sender)
	if len(recipients) == 0 {
		return
	}

	var (
		g      errgroup.Group
		mu     sync.Mutex
		failed int
	)
	for _, recipient := range recipients {
		recipient := recipient
		g.Go(func() error {
			if err := r.deliver(recipient, msg); err != nil {
				log.WithFields(logrus.Fields{
					"recipient": recipient.ID(),
					"kind":      msg.Kind,
				}).WithError(err).Warn("Send failed")
				mu.Lock()
				failed++
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	r.recorder.MessageRelayed(msg.Kind.String(), len(recipients)-failed, failed)
	log.WithFields(logrus.Fields{
		"kind":       msg.Kind,
		"bytes":      len(msg.Payload),
		"recipients": len(recipients),
		"failed":     failed,
	}).Debug("Relayed message")
}

// deliver sends msg to one recipient. A panic in the recipient's transport is
// turned into an error so it stays contained to that delivery.
func (r *Relay) deliver(recipient Conn, msg Message) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = errors.Errorf("panic during send: %v", p)
		}
	}()
	return recipient.Send(msg)
}

// Shutdown stops admitting connections, closes every registered connection
// and waits for their loops to finish or for ctx to be done.
func (r *Relay) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	r.closing = true
	conns := r.registry.Snapshot()
	r.mu.Unlock()

	r.logger.WithField("clients", len(conns)).Info("Closing client connections")
	for _, conn := range conns {
		r.closeConn(conn, r.logger.WithField("conn-id", conn.ID()))
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("All relay loops finished")
		return nil
	case <-ctx.Done():
		r.logger.Warn("Shutdown deadline reached before all relay loops finished")
		return errors.Wrap(ctx.Err(), "relay shutdown")
	}
}
