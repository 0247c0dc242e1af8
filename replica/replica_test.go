package replica

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"snapsync/network"
	"snapsync/pb"
	"snapsync/snapshot"
	"snapsync/world"
)

type fakeSender struct {
	requests []int32
}

func (s *fakeSender) Send(_ uint32, msg pb.Message, _ bool) error {
	if req, ok := msg.(*pb.RequestEntitySpawn); ok {
		s.requests = append(s.requests, req.EntityId)
	}
	return nil
}

func newReplica() (*Replica, *network.Dispatcher, *fakeSender) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sender := &fakeSender{}
	r := New(world.NewWorld(), sender, 0, logger)
	d := network.NewDispatcher(logger)
	r.Register(d)
	return r, d, sender
}

func heroState(x float32) *pb.EntityState {
	state := snapshot.EntityState{
		EntityID:   1,
		EntityName: snapshot.Some("hero"),
		Position:   snapshot.Some(world.Point{X: x}),
		StateName:  snapshot.Some(world.StateIdle),
		MaxHealth:  snapshot.Some[int32](10),
	}
	return state.ToProto()
}

func TestReplicaSpawnsThenApplies(t *testing.T) {
	r, d, sender := newReplica()

	d.Dispatch(nil, &pb.ConnectAck{SessionId: "abc", ServerTick: 3})
	if r.SessionID() != "abc" {
		t.Fatalf("SessionID() = %q", r.SessionID())
	}

	d.Dispatch(nil, &pb.Snapshot{ServerTick: 4, Entities: []*pb.EntityState{heroState(1)}})
	if len(sender.requests) != 1 || sender.requests[0] != 1 {
		t.Fatalf("requests = %v, want [1]", sender.requests)
	}
	if got := r.LastReport().SpawnRequested; len(got) != 1 {
		t.Fatalf("SpawnRequested = %v", got)
	}

	if !d.Dispatch(nil, &pb.EntitySpawn{State: heroState(1)}) {
		t.Fatal("EntitySpawn dispatch failed")
	}
	// A second answer to the same request is harmless.
	if !d.Dispatch(nil, &pb.EntitySpawn{State: heroState(1)}) {
		t.Fatal("repeated EntitySpawn dispatch failed")
	}

	d.Dispatch(nil, &pb.Snapshot{ServerTick: 5, Entities: []*pb.EntityState{heroState(6)}})
	hero, ok := r.World().Entity(1)
	if !ok {
		t.Fatal("hero missing")
	}
	if got := world.Position.Get(hero).Position.X; got != 6 {
		t.Fatalf("x = %v, want 6", got)
	}
	if r.LatestTick() != 5 {
		t.Fatalf("LatestTick() = %d, want 5", r.LatestTick())
	}
}

func TestReplicaResetsOnDisconnect(t *testing.T) {
	r, d, _ := newReplica()
	d.Dispatch(nil, &pb.ConnectAck{SessionId: "abc"})
	d.Dispatch(nil, &pb.Snapshot{ServerTick: 50})

	r.OnDisconnected(errors.New("gone"))
	if r.SessionID() != "" || r.LatestTick() != snapshot.NilTick {
		t.Fatalf("session = %q, tick = %d after disconnect", r.SessionID(), r.LatestTick())
	}
	d.Dispatch(nil, &pb.Snapshot{ServerTick: 1})
	if r.LatestTick() != 1 {
		t.Fatalf("LatestTick() = %d, want 1 from the new server", r.LatestTick())
	}
}

func TestReplicaUnregister(t *testing.T) {
	r, d, _ := newReplica()
	r.Unregister(d)
	if d.Has(pb.KindSnapshot) || d.Has(pb.KindEntitySpawn) || d.Has(pb.KindConnectAck) {
		t.Fatal("handlers still registered")
	}
}

func TestReplicaRejectsSpawnWithoutState(t *testing.T) {
	r, d, _ := newReplica()
	d.Dispatch(nil, &pb.EntitySpawn{})
	if r.World().Len() != 0 {
		t.Fatal("spawned an entity without state")
	}
}
