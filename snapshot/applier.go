package snapshot

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/component"

	"snapsync/pb"
	"snapsync/world"
)

// SpawnChannel carries spawn requests to the server.
const SpawnChannel uint32 = 0

// DefaultSpawnRequestCooldown is how long the applier waits before asking for
// the same missing entity again.
const DefaultSpawnRequestCooldown = 5 * time.Second

var ErrNoSender = errors.New("no sender for spawn request")

// Sender is the outbound side of a client connection.
type Sender interface {
	Send(channel uint32, msg pb.Message, reliable bool) error
}

// Report is the per entity outcome of one Apply call. Missing lists entities
// without a local counterpart whose spawn request is still cooling down.
type Report struct {
	Tick           int64
	Stale          bool
	Applied        []int32
	SpawnRequested []int32
	Missing        []int32
	Failed         map[int32]error
}

type outcome int

const (
	applied outcome = iota
	spawnRequested
	missing
)

// Err joins the entity failures in id order, nil if there were none.
func (r Report) Err() error {
	if len(r.Failed) == 0 {
		return nil
	}
	ids := make([]int32, 0, len(r.Failed))
	for id := range r.Failed {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	errs := make([]error, 0, len(ids))
	for _, id := range ids {
		errs = append(errs, fmt.Errorf("entity %d: %w", id, r.Failed[id]))
	}
	return errors.Join(errs...)
}

// Applier merges received snapshots into the local world.
type Applier struct {
	world            *world.World
	sequencer        *Sequencer
	logger           *slog.Logger
	cooldown         time.Duration
	now              func() time.Time
	lastSpawnRequest map[int32]time.Time
}

// NewApplier returns an applier for w. A zero cooldown sends a spawn request
// every time a missing entity is seen.
func NewApplier(w *world.World, cooldown time.Duration, logger *slog.Logger) *Applier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Applier{
		world:            w,
		sequencer:        NewSequencer(),
		logger:           logger,
		cooldown:         cooldown,
		now:              time.Now,
		lastSpawnRequest: make(map[int32]time.Time),
	}
}

func (a *Applier) LatestTick() int64 {
	return a.sequencer.Latest()
}

// Reset forgets the latest tick and pending spawn requests, for a new
// connection.
func (a *Applier) Reset() {
	a.sequencer.Reset()
	clear(a.lastSpawnRequest)
}

// Apply merges every entity of snapshot on its own; one failing entity does
// not stop the others. Stale snapshots are dropped whole.
func (a *Applier) Apply(snapshot *SnapshotMessage, sender Sender) Report {
	report := Report{Tick: snapshot.ServerTick}
	if !a.sequencer.Accept(snapshot.ServerTick) {
		a.logger.Debug("not the latest server tick, skipping snapshot",
			"tick", snapshot.ServerTick, "latest", a.sequencer.Latest())
		report.Stale = true
		return report
	}

	for i := range snapshot.Entities {
		state := &snapshot.Entities[i]
		result, err := a.applyEntity(state, sender)
		if err != nil {
			if report.Failed == nil {
				report.Failed = make(map[int32]error)
			}
			report.Failed[state.EntityID] = err
			a.logger.Error("error applying snapshot for entity",
				"entity", state.EntityID, "tick", snapshot.ServerTick, "err", err)
			continue
		}
		switch result {
		case spawnRequested:
			report.SpawnRequested = append(report.SpawnRequested, state.EntityID)
		case missing:
			report.Missing = append(report.Missing, state.EntityID)
		default:
			report.Applied = append(report.Applied, state.EntityID)
		}
	}
	return report
}

// SpawnEntity creates the local counterpart of an entity announced by the
// server and merges its state. Position and draw components are created from
// the fields present; health, mana and stamina follow the usual merge rules.
func (a *Applier) SpawnEntity(state EntityState) (*donburi.Entry, error) {
	var components []component.IComponentType
	if state.Position.IsPresent() {
		components = append(components, world.Position)
	}
	if state.StateName.IsPresent() || state.TintColor.IsPresent() {
		components = append(components, world.Draw)
	}
	name := state.EntityName.OrElse("")
	entry, err := a.world.SpawnWithID(state.EntityID, name, components...)
	if err != nil {
		return nil, err
	}
	if entry.HasComponent(world.Draw) {
		world.Draw.SetValue(entry, world.DrawData{
			StateMachine: world.StateMachineFor(name, state.StateName.OrElse("")),
			TintColor:    world.NoTint,
		})
	}
	delete(a.lastSpawnRequest, state.EntityID)
	if err := a.merge(entry, &state); err != nil {
		return entry, err
	}
	return entry, nil
}

func (a *Applier) applyEntity(state *EntityState, sender Sender) (result outcome, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()

	entry, ok := a.world.Entity(state.EntityID)
	if !ok {
		return a.requestSpawn(state.EntityID, sender)
	}
	delete(a.lastSpawnRequest, state.EntityID)
	return applied, a.merge(entry, state)
}

func (a *Applier) requestSpawn(id int32, sender Sender) (outcome, error) {
	now := a.now()
	if last, ok := a.lastSpawnRequest[id]; ok && now.Sub(last) < a.cooldown {
		a.logger.Debug("skipping spawn request, cooldown active", "entity", id)
		return missing, nil
	}
	if sender == nil {
		return missing, ErrNoSender
	}
	if err := sender.Send(SpawnChannel, &pb.RequestEntitySpawn{EntityId: id}, true); err != nil {
		return missing, fmt.Errorf("request spawn: %w", err)
	}
	a.lastSpawnRequest[id] = now
	a.logger.Warn("no entity found for snapshot, requesting spawn", "entity", id)
	return spawnRequested, nil
}

func (a *Applier) merge(entry *donburi.Entry, state *EntityState) error {
	if name, ok := state.EntityName.Get(); ok {
		world.SetName(entry, name)
	}

	direction := mergePosition(entry, state)
	if err := mergeDraw(entry, state, direction); err != nil {
		return err
	}
	mergeHealth(entry, state)
	mergeResource(entry, world.Mana, state.CurrentMana, state.MaxMana)
	mergeResource(entry, world.Stamina, state.CurrentStamina, state.MaxStamina)
	return nil
}

// mergePosition returns the direction animations should face.
func mergePosition(entry *donburi.Entry, state *EntityState) world.Direction {
	direction := world.Down
	if !entry.HasComponent(world.Position) {
		if name, ok := state.ViewDirection.Get(); ok {
			if d, err := world.ParseDirection(name); err == nil {
				direction = d
			}
		}
		return direction
	}

	p := world.Position.Get(entry)
	if position, ok := state.Position.Get(); ok {
		p.Position = position
	}
	if name, ok := state.ViewDirection.Get(); ok {
		// Unknown directions keep the current one.
		if d, err := world.ParseDirection(name); err == nil {
			p.ViewDirection = d
		}
	}
	if rotation, ok := state.Rotation.Get(); ok {
		p.Rotation = rotation
	}
	return p.ViewDirection
}

func mergeDraw(entry *donburi.Entry, state *EntityState, direction world.Direction) error {
	if !entry.HasComponent(world.Draw) {
		return nil
	}
	d := world.Draw.Get(entry)
	if name, ok := state.StateName.Get(); ok {
		if d.StateMachine == nil {
			d.StateMachine = world.StateMachineFor(world.Name(entry), "")
		}
		if err := d.StateMachine.SetState(name, direction); err != nil {
			return err
		}
	}
	if tint, ok := state.TintColor.Get(); ok {
		d.TintColor = tint
	}
	return nil
}

// mergeHealth only updates the current value of an existing component. A
// missing component is created from the max value when one is sent.
func mergeHealth(entry *donburi.Entry, state *EntityState) {
	if entry.HasComponent(world.Health) {
		if current, ok := state.CurrentHealth.Get(); ok {
			world.Health.Get(entry).Current = current
		}
		return
	}
	maxHealth, ok := state.MaxHealth.Get()
	if !ok {
		return
	}
	entry.AddComponent(world.Health)
	h := world.NewHealth(maxHealth)
	if current, ok := state.CurrentHealth.Get(); ok {
		h.Current = current
	}
	world.Health.SetValue(entry, h)
}

func mergeResource(entry *donburi.Entry, ctype *donburi.ComponentType[world.ResourceData], current, maxValue Option[float32]) {
	if entry.HasComponent(ctype) {
		if v, ok := current.Get(); ok {
			ctype.Get(entry).Current = v
		}
		return
	}
	m, ok := maxValue.Get()
	if !ok {
		return
	}
	entry.AddComponent(ctype)
	r := world.NewResource(m)
	if v, ok := current.Get(); ok {
		r.Current = v
	}
	ctype.SetValue(entry, r)
}
