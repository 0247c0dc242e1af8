package network

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"snapsync/pb"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeSession struct {
	id   string
	sent []pb.Message
}

func (s *fakeSession) ID() string { return s.id }

func (s *fakeSession) Send(_ uint32, msg pb.Message, _ bool) error {
	s.sent = append(s.sent, msg)
	return nil
}

func TestDispatchReplacesHandler(t *testing.T) {
	d := NewDispatcher(discardLogger())
	var a, b int
	d.Register(pb.KindSnapshot, func(Session, pb.Message) error { a++; return nil })
	d.Register(pb.KindSnapshot, func(Session, pb.Message) error { b++; return nil })

	if !d.Dispatch(&fakeSession{id: "s"}, &pb.Snapshot{ServerTick: 1}) {
		t.Fatal("Dispatch = false")
	}
	if a != 0 || b != 1 {
		t.Fatalf("calls a=%d b=%d, want a=0 b=1", a, b)
	}
}

func TestDispatchIsolatesFailures(t *testing.T) {
	d := NewDispatcher(discardLogger())
	d.Register(pb.KindSnapshot, func(Session, pb.Message) error { panic("boom") })
	d.Register(pb.KindConnectAck, func(Session, pb.Message) error { return errors.New("bad ack") })
	var spawns int
	d.Register(pb.KindRequestEntitySpawn, func(Session, pb.Message) error { spawns++; return nil })

	if d.Dispatch(nil, &pb.Snapshot{}) {
		t.Fatal("panicking handler reported success")
	}
	if d.Dispatch(nil, &pb.ConnectAck{}) {
		t.Fatal("failing handler reported success")
	}
	if !d.Dispatch(nil, &pb.RequestEntitySpawn{EntityId: 3}) || spawns != 1 {
		t.Fatalf("unrelated dispatch failed, spawns = %d", spawns)
	}
}

func TestDispatchWithoutHandler(t *testing.T) {
	d := NewDispatcher(discardLogger())
	if d.Dispatch(nil, &pb.EntitySpawn{}) {
		t.Fatal("Dispatch without handler = true")
	}
	if d.Dispatch(nil, nil) {
		t.Fatal("Dispatch(nil) = true")
	}
}

func TestRegisterIgnoresMissingArguments(t *testing.T) {
	d := NewDispatcher(discardLogger())
	if reg := d.Register(pb.KindSnapshot, nil); reg != nil {
		t.Fatal("Register with nil handler returned a registration")
	}
	if reg := d.Register(pb.KindUnknown, func(Session, pb.Message) error { return nil }); reg != nil {
		t.Fatal("Register with unknown kind returned a registration")
	}
	if d.Has(pb.KindSnapshot) || d.Has(pb.KindUnknown) {
		t.Fatal("ignored registration was installed")
	}
}

func TestUnregisterOnlyCurrentHandler(t *testing.T) {
	d := NewDispatcher(discardLogger())
	first := d.Register(pb.KindSnapshot, func(Session, pb.Message) error { return nil })
	second := d.Register(pb.KindSnapshot, func(Session, pb.Message) error { return nil })

	if d.Unregister(first) {
		t.Fatal("Unregister of a replaced registration = true")
	}
	if !d.Has(pb.KindSnapshot) {
		t.Fatal("replacing handler was removed")
	}
	if !d.Unregister(second) {
		t.Fatal("Unregister of the current registration = false")
	}
	if d.Has(pb.KindSnapshot) {
		t.Fatal("handler still installed")
	}
	if d.Unregister(second) || d.Unregister(nil) {
		t.Fatal("repeated Unregister = true")
	}
}

func TestHandleTyped(t *testing.T) {
	d := NewDispatcher(discardLogger())
	session := &fakeSession{id: "abc"}
	var got int32
	reg := Handle(d, func(s Session, msg *pb.RequestEntitySpawn) error {
		got = msg.EntityId
		return s.Send(0, &pb.EntitySpawn{}, true)
	})
	if reg == nil || reg.Kind() != pb.KindRequestEntitySpawn {
		t.Fatalf("registration = %+v", reg)
	}
	if !d.Dispatch(session, &pb.RequestEntitySpawn{EntityId: 12}) {
		t.Fatal("Dispatch = false")
	}
	if got != 12 || len(session.sent) != 1 {
		t.Fatalf("got = %d, sent = %d", got, len(session.sent))
	}
}

func TestRegisterConcurrentWithDispatch(t *testing.T) {
	d := NewDispatcher(discardLogger())
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				reg := d.Register(pb.KindSnapshot, func(Session, pb.Message) error { return nil })
				d.Unregister(reg)
			}
		}()
	}
	for j := 0; j < 100; j++ {
		d.Dispatch(nil, &pb.Snapshot{})
	}
	wg.Wait()
}
