package netconn

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// State is the per-link FSM state (spec.md section 4.9, "Connection
// state machine").
type State uint8

const (
	StateHandshaking State = iota
	StateEstablished
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateHandshaking:
		return "handshaking"
	case StateEstablished:
		return "established"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Handler processes one inbound request frame and produces replies on
// the returned channel. It is the link's entry point into the
// Variant-selected actor set (C10's admin and block operations, as
// pkg/broker's Handler dispatches them; no topic operations). A nil Handler makes the link response-only
// (suitable for a pure client that only issues requests).
type Handler func(kind string, payload []byte) <-chan ActorReply

// Conn is one established, framed, Noise-encrypted link: a transport,
// a framer keyed by the session's cipher states, an actor table for
// in-flight requests, and the read loop that keeps both fed. Grounded
// on the teacher's pooled-connection lifecycle (core/connection_pool.go)
// generalised from "dial, reuse, idle-reap" to "handshake, frame,
// multiplex, cancel, close".
type Conn struct {
	variant Variant
	rw      io.ReadWriteCloser
	framer  *Framer
	actors  *ActorTable
	handler Handler
	log     *logrus.Logger

	state     atomic.Int32
	nextID    atomic.Uint64
	writeMu   sync.Mutex
	closeOnce sync.Once
	closed    chan struct{}
}

// NewConn wraps a completed handshake and its underlying transport
// into an established link. handler may be nil for a request-only
// client link.
func NewConn(variant Variant, rw io.ReadWriteCloser, result *HandshakeResult, handler Handler, log *logrus.Logger) *Conn {
	if log == nil {
		log = logrus.New()
	}
	c := &Conn{
		variant: variant,
		rw:      rw,
		framer:  NewFramer(rw, result),
		actors:  NewActorTable(),
		handler: handler,
		log:     log,
		closed:  make(chan struct{}),
	}
	c.state.Store(int32(StateEstablished))
	return c
}

func (c *Conn) State() State {
	return State(c.state.Load())
}

// ActorCount reports the number of in-flight actors on this link, for
// callers (e.g. pkg/metrics via Broker.RegisterActorTable) that need
// to sum load across every open connection.
func (c *Conn) ActorCount() int {
	return c.actors.Len()
}

// Send issues a request of kind/payload and returns the actor whose
// reply channel the caller should drain.
func (c *Conn) Send(kind string, payload []byte) (*Actor, error) {
	if c.State() != StateEstablished {
		return nil, fmt.Errorf("netconn: send on %s link", c.State())
	}
	id := c.nextID.Add(1)
	actor, err := c.actors.Register(id)
	if err != nil {
		return nil, err
	}
	if err := c.writeFrame(ProtocolMessage{ID: id, Kind: kind, Payload: payload}); err != nil {
		c.actors.Cancel(id)
		return nil, err
	}
	return actor, nil
}

// Cancel aborts the caller's own in-flight request without affecting
// any other actor on the link.
func (c *Conn) Cancel(requestID uint64) {
	c.actors.Cancel(requestID)
}

// Request issues kind/payload and blocks for its single terminal
// reply, timing out after d (spec.md: "Timeouts are per-request and
// configurable"). Not for streaming requests — those should drain
// Actor.Replies() directly to see every PartialContent frame.
func (c *Conn) Request(kind string, payload []byte, d time.Duration) (ActorReply, error) {
	actor, err := c.Send(kind, payload)
	if err != nil {
		return ActorReply{}, err
	}
	return c.actors.WaitTimeout(actor, d), nil
}

func (c *Conn) writeFrame(m ProtocolMessage) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.framer.WriteMessage(m)
}

// ServeLoop runs the connection's read loop until the transport errors
// or closes. It dispatches frames addressed to an open actor (a
// response to an earlier Send) and routes unrecognised request ids
// into the Handler, if one is configured, replying on the caller's
// behalf. Run this in its own goroutine per spec.md's "connection
// read/write loops run as two concurrent tasks per link".
func (c *Conn) ServeLoop() error {
	defer c.transitionClosed()
	for {
		msg, err := c.framer.ReadMessage()
		if err != nil {
			return fmt.Errorf("netconn: read loop: %w", err)
		}
		if c.actors.has(msg.ID) {
			// serveRequest sends each reply's Code as the frame's Kind.
			code := ResultCode(msg.Kind)
			if dispatchErr := c.actors.Dispatch(msg.ID, ActorReply{Code: code, Payload: msg.Payload}); dispatchErr != nil {
				c.log.WithError(dispatchErr).Warn("netconn: dropping reply for unknown actor")
			}
			continue
		}
		if c.handler == nil {
			c.log.WithField("request_id", msg.ID).Warn("netconn: no handler for inbound request")
			continue
		}
		go c.serveRequest(msg)
	}
}

func (c *Conn) serveRequest(msg ProtocolMessage) {
	for reply := range c.handler(msg.Kind, msg.Payload) {
		if err := c.writeFrame(ProtocolMessage{ID: msg.ID, Kind: string(reply.Code), Payload: reply.Payload}); err != nil {
			c.log.WithError(err).Warn("netconn: write reply failed")
			return
		}
	}
}

func (c *Conn) transitionClosed() {
	c.closeOnce.Do(func() {
		c.state.Store(int32(StateClosed))
		c.actors.CloseAll()
		close(c.closed)
	})
}

// Close tears down the transport and signals Closing to every pending
// actor (spec.md: "A dropped connection triggers Closing on every
// pending actor.").
func (c *Conn) Close() error {
	c.state.Store(int32(StateClosing))
	err := c.rw.Close()
	c.transitionClosed()
	return err
}

// Done is closed once the connection has fully transitioned to Closed.
func (c *Conn) Done() <-chan struct{} {
	return c.closed
}
