package network

import (
	"fmt"
	"log/slog"
	"sync"

	"snapsync/pb"
)

// Handler processes one inbound message. Returned errors are logged by the
// dispatcher and never reach the caller of Dispatch.
type Handler func(session Session, msg pb.Message) error

// Registration is the token returned by Register. Go func values are not
// comparable, so Unregister matches on the token instead of the handler.
type Registration struct {
	kind    pb.Kind
	handler Handler
}

func (r *Registration) Kind() pb.Kind {
	return r.kind
}

// Dispatcher routes inbound messages to the one handler registered for their
// kind. Register and Unregister may be called from any goroutine; Dispatch is
// called from the game loop.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[pb.Kind]*Registration
	logger   *slog.Logger
}

func NewDispatcher(logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		handlers: make(map[pb.Kind]*Registration),
		logger:   logger,
	}
}

// Register installs handler for kind, replacing any previous handler.
func (d *Dispatcher) Register(kind pb.Kind, handler Handler) *Registration {
	if kind == pb.KindUnknown || handler == nil {
		d.logger.Warn("ignoring handler registration", "kind", kind, "handler", handler != nil)
		return nil
	}
	reg := &Registration{kind: kind, handler: handler}
	d.mu.Lock()
	d.handlers[kind] = reg
	d.mu.Unlock()
	return reg
}

// Handle registers a handler typed on the concrete message. The kind is taken
// from T itself.
func Handle[T pb.Message](d *Dispatcher, fn func(session Session, msg T) error) *Registration {
	if fn == nil {
		return d.Register(pb.KindUnknown, nil)
	}
	var zero T
	return d.Register(zero.Kind(), func(session Session, msg pb.Message) error {
		m, ok := msg.(T)
		if !ok {
			return fmt.Errorf("unexpected message %T for %v", msg, zero.Kind())
		}
		return fn(session, m)
	})
}

// Unregister removes reg only if it is still the installed handler for its
// kind.
func (d *Dispatcher) Unregister(reg *Registration) bool {
	if reg == nil {
		return false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.handlers[reg.kind] != reg {
		return false
	}
	delete(d.handlers, reg.kind)
	return true
}

func (d *Dispatcher) Has(kind pb.Kind) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.handlers[kind]
	return ok
}

// Dispatch invokes the handler for msg. Handler errors and panics are logged
// with the message kind and swallowed. It reports whether a handler ran to
// completion without error.
func (d *Dispatcher) Dispatch(session Session, msg pb.Message) (ok bool) {
	if msg == nil {
		d.logger.Warn("dropping nil message")
		return false
	}
	kind := msg.Kind()
	d.mu.RLock()
	reg := d.handlers[kind]
	d.mu.RUnlock()
	if reg == nil {
		d.logger.Info("no handler registered, dropping message", "kind", kind)
		return false
	}

	defer func() {
		if rec := recover(); rec != nil {
			d.logger.Error("message handler panicked", "kind", kind, "session", sessionID(session), "err", rec)
			ok = false
		}
	}()
	if err := reg.handler(session, msg); err != nil {
		d.logger.Error("message handler failed", "kind", kind, "session", sessionID(session), "err", err)
		return false
	}
	return true
}

func sessionID(s Session) string {
	if s == nil {
		return ""
	}
	return s.ID()
}
