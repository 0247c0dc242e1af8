package network

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"nhooyr.io/websocket"

	"snapsync/pb"
)

// ConnectionListener observes the client connection. Callbacks run on the
// goroutine calling PollAndDispatch, never on an IO goroutine.
type ConnectionListener interface {
	OnConnected()
	OnDisconnected(reason error)
}

var ErrNotConnected = errors.New("not connected")

type ClientOptions struct {
	// InboundBuffer bounds the messages waiting for PollAndDispatch. Messages
	// arriving while it is full are dropped.
	InboundBuffer int
	// OutboundBuffer bounds the messages waiting to be written.
	OutboundBuffer int
}

// event is either an inbound message or a lifecycle callback.
type event struct {
	msg       pb.Message
	lifecycle func()
}

// Client is the client side of a server connection. IO goroutines queue
// inbound messages; the game loop drains them with PollAndDispatch.
type Client struct {
	dispatcher *Dispatcher
	logger     *slog.Logger
	opts       ClientOptions

	conn atomic.Pointer[Conn]
	// inbound holds messages and lifecycle callbacks in arrival order.
	inbound chan event

	mu        sync.Mutex
	listeners []ConnectionListener
}

func NewClient(dispatcher *Dispatcher, opts ClientOptions, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.InboundBuffer <= 0 {
		opts.InboundBuffer = 1024
	}
	if opts.OutboundBuffer <= 0 {
		opts.OutboundBuffer = 1024
	}
	return &Client{
		dispatcher: dispatcher,
		logger:     logger,
		opts:       opts,
		inbound:    make(chan event, opts.InboundBuffer),
	}
}

func (c *Client) Dispatcher() *Dispatcher {
	return c.dispatcher
}

// Connect dials url and starts the IO goroutines. It returns once the
// websocket handshake is done; ctx bounds the whole connection.
func (c *Client) Connect(ctx context.Context, url string) error {
	ws, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return err
	}
	conn := NewConn(url, ws, c.opts.OutboundBuffer, c.logger)
	c.conn.Store(conn)
	c.enqueueLifecycle(c.notifyConnected)

	go func() {
		err := conn.Run(ctx, c.receive)
		c.conn.CompareAndSwap(conn, nil)
		c.logger.Info("disconnected from server", "err", err)
		c.enqueueLifecycle(func() { c.notifyDisconnected(err) })
	}()
	return nil
}

func (c *Client) IsConnected() bool {
	conn := c.conn.Load()
	return conn != nil && !conn.IsClosed()
}

// Send writes msg to the server.
func (c *Client) Send(channel uint32, msg pb.Message, reliable bool) error {
	conn := c.conn.Load()
	if conn == nil {
		if reliable {
			c.logger.Warn("not connected, cannot send reliable message", "kind", msg.Kind())
		}
		return ErrNotConnected
	}
	return conn.Send(channel, msg, reliable)
}

func (c *Client) Close(reason string) {
	if conn := c.conn.Load(); conn != nil {
		conn.Close(websocket.StatusNormalClosure, reason)
	}
}

func (c *Client) AddConnectionListener(l ConnectionListener) {
	if l == nil {
		return
	}
	c.mu.Lock()
	c.listeners = append(c.listeners, l)
	c.mu.Unlock()
}

func (c *Client) RemoveConnectionListener(l ConnectionListener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, listener := range c.listeners {
		if listener == l {
			c.listeners = append(c.listeners[:i], c.listeners[i+1:]...)
			return
		}
	}
}

// PollAndDispatch runs queued lifecycle callbacks and dispatches queued
// inbound messages, in the order they arrived. Call it from the game loop. It
// returns the number of messages dispatched.
func (c *Client) PollAndDispatch() int {
	n := 0
	for len(c.inbound) > 0 {
		select {
		case e := <-c.inbound:
			if e.lifecycle != nil {
				c.runLifecycle(e.lifecycle)
				continue
			}
			c.dispatcher.Dispatch(c.session(), e.msg)
			n++
		default:
		}
	}
	return n
}

func (c *Client) session() Session {
	if conn := c.conn.Load(); conn != nil {
		return conn
	}
	return nil
}

func (c *Client) receive(msg pb.Message) {
	select {
	case c.inbound <- event{msg: msg}:
	default:
		c.logger.Warn("inbound queue full, dropping message", "kind", msg.Kind())
	}
}

// enqueueLifecycle may block while the queue is full: a dropped disconnect
// would leave the replica holding the old session's ticks.
func (c *Client) enqueueLifecycle(fn func()) {
	c.inbound <- event{lifecycle: fn}
}

func (c *Client) runLifecycle(fn func()) {
	defer func() {
		if rec := recover(); rec != nil {
			c.logger.Warn("connection listener panicked", "err", rec)
		}
	}()
	fn()
}

func (c *Client) snapshotListeners() []ConnectionListener {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]ConnectionListener(nil), c.listeners...)
}

func (c *Client) notifyConnected() {
	for _, l := range c.snapshotListeners() {
		l.OnConnected()
	}
}

func (c *Client) notifyDisconnected(reason error) {
	for _, l := range c.snapshotListeners() {
		l.OnDisconnected(reason)
	}
}
