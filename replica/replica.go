// Package replica keeps a client side copy of the server world up to date
// from the messages the server sends.
package replica

import (
	"errors"
	"log/slog"
	"time"

	"snapsync/network"
	"snapsync/pb"
	"snapsync/snapshot"
	"snapsync/world"
)

// Replica owns the local world. All of its methods, including the handlers it
// registers, run on the game loop.
type Replica struct {
	world     *world.World
	applier   *snapshot.Applier
	sender    snapshot.Sender
	logger    *slog.Logger
	sessionID string
	last      snapshot.Report

	registrations []*network.Registration
}

func New(w *world.World, sender snapshot.Sender, spawnCooldown time.Duration, logger *slog.Logger) *Replica {
	if logger == nil {
		logger = slog.Default()
	}
	return &Replica{
		world:   w,
		applier: snapshot.NewApplier(w, spawnCooldown, logger),
		sender:  sender,
		logger:  logger,
	}
}

// Register installs the replica's handlers on d.
func (r *Replica) Register(d *network.Dispatcher) {
	r.registrations = append(r.registrations,
		network.Handle(d, r.onConnectAck),
		network.Handle(d, r.onSnapshot),
		network.Handle(d, r.onEntitySpawn),
	)
}

// Unregister removes the handlers installed by Register, unless they were
// replaced in the meantime.
func (r *Replica) Unregister(d *network.Dispatcher) {
	for _, reg := range r.registrations {
		d.Unregister(reg)
	}
	r.registrations = nil
}

func (r *Replica) World() *world.World {
	return r.world
}

func (r *Replica) SessionID() string {
	return r.sessionID
}

func (r *Replica) LatestTick() int64 {
	return r.applier.LatestTick()
}

// LastReport is the outcome of the last snapshot applied.
func (r *Replica) LastReport() snapshot.Report {
	return r.last
}

func (r *Replica) OnConnected() {
	r.logger.Info("connected to server")
}

// OnDisconnected forgets the session. The next server may restart its ticks,
// so the applier accepts any tick again.
func (r *Replica) OnDisconnected(reason error) {
	r.logger.Info("disconnected from server", "err", reason)
	r.sessionID = ""
	r.applier.Reset()
}

func (r *Replica) onConnectAck(_ network.Session, msg *pb.ConnectAck) error {
	r.sessionID = msg.SessionId
	r.logger.Info("session assigned", "session", msg.SessionId, "tick", msg.ServerTick)
	return nil
}

func (r *Replica) onSnapshot(_ network.Session, msg *pb.Snapshot) error {
	r.last = r.applier.Apply(snapshot.SnapshotFromProto(msg), r.sender)
	return nil
}

func (r *Replica) onEntitySpawn(_ network.Session, msg *pb.EntitySpawn) error {
	state := msg.GetState()
	if state == nil {
		r.logger.Warn("entity spawn without state")
		return nil
	}
	entry, err := r.applier.SpawnEntity(snapshot.EntityStateFromProto(state))
	if errors.Is(err, world.ErrEntityExists) {
		// Answer to a repeated request, the snapshots keep it current.
		r.logger.Debug("entity already spawned", "entity", state.EntityId)
		return nil
	}
	if err != nil {
		return err
	}
	r.logger.Debug("entity spawned", "entity", world.ID(entry), "name", world.Name(entry))
	return nil
}
