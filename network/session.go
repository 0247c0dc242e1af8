package network

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"nhooyr.io/websocket"

	"snapsync/pb"
)

var (
	ErrSessionClosed = errors.New("session closed")
	ErrWouldBlock    = errors.New("write would block")
)

// Session is the remote end of a connection as seen by message handlers.
type Session interface {
	ID() string
	Send(channel uint32, msg pb.Message, reliable bool) error
}

// Conn is a Session over a binary websocket. Reads and writes run on their
// own goroutines; Send only queues.
type Conn struct {
	id     string
	c      *websocket.Conn
	out    chan []byte
	logger *slog.Logger

	closeOnce sync.Once
	closed    atomic.Bool
	done      chan struct{}
}

// NewConn wraps c. queue bounds the number of outbound messages waiting to be
// written.
func NewConn(id string, c *websocket.Conn, queue int, logger *slog.Logger) *Conn {
	if logger == nil {
		logger = slog.Default()
	}
	if queue <= 0 {
		queue = 1
	}
	return &Conn{
		id:     id,
		c:      c,
		out:    make(chan []byte, queue),
		logger: logger.With("session", id),
		done:   make(chan struct{}),
	}
}

func (c *Conn) ID() string {
	return c.id
}

func (c *Conn) IsClosed() bool {
	return c.closed.Load()
}

// Send queues msg. An unreliable message is dropped when the queue is full; a
// reliable one closes the connection instead, since it cannot be dropped.
func (c *Conn) Send(channel uint32, msg pb.Message, reliable bool) error {
	if c.IsClosed() {
		return ErrSessionClosed
	}
	b, err := pb.Encode(channel, msg)
	if err != nil {
		return err
	}
	select {
	case c.out <- b:
		return nil
	case <-c.done:
		return ErrSessionClosed
	default:
	}
	if !reliable {
		c.logger.Debug("outbound queue full, dropping message", "kind", msg.Kind())
		return nil
	}
	c.Close(websocket.StatusPolicyViolation, "write would block")
	return fmt.Errorf("send %v: %w", msg.Kind(), ErrWouldBlock)
}

// Close marks the connection closed and returns. The close handshake runs on
// its own goroutine because it waits for the peer, which may never answer.
func (c *Conn) Close(code websocket.StatusCode, reason string) {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		close(c.done)
		go func() {
			if err := c.c.Close(code, reason); err != nil {
				c.logger.Debug("close handshake failed", "err", err)
			}
		}()
	})
}

// Run reads messages and hands each to onMessage until the connection fails or
// ctx is done. It writes queued messages meanwhile. Messages that cannot be
// decoded are logged and skipped.
func (c *Conn) Run(ctx context.Context, onMessage func(pb.Message)) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errc := make(chan error, 1)
	go func() {
		errc <- c.writeLoop(ctx)
	}()

	err := c.readLoop(ctx, onMessage)
	cancel()
	if werr := <-errc; err == nil {
		err = werr
	}
	c.Close(websocket.StatusNormalClosure, "")
	return err
}

func (c *Conn) readLoop(ctx context.Context, onMessage func(pb.Message)) error {
	for {
		typ, b, err := c.c.Read(ctx)
		if err != nil {
			return err
		}
		if typ != websocket.MessageBinary || len(b) == 0 {
			continue
		}
		_, msg, err := pb.Decode(b)
		if err != nil {
			c.logger.Warn("dropping malformed message", "err", err)
			continue
		}
		onMessage(msg)
	}
}

func (c *Conn) writeLoop(ctx context.Context) error {
	for {
		select {
		case b := <-c.out:
			if err := c.c.Write(ctx, websocket.MessageBinary, b); err != nil {
				return err
			}
		case <-c.done:
			return nil
		case <-ctx.Done():
			return nil
		}
	}
}
