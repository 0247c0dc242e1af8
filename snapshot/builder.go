package snapshot

import (
	"log/slog"

	"github.com/yohamta/donburi"

	"snapsync/world"
)

// Builder extracts snapshots from the authoritative world.
type Builder struct {
	world     *world.World
	sequencer *Sequencer
	logger    *slog.Logger
}

func NewBuilder(w *world.World, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{
		world:     w,
		sequencer: NewSequencer(),
		logger:    logger,
	}
}

// IsClientRelevant reports whether clients need the entity: it is placed and
// drawn, or it is part of the UI.
func IsClientRelevant(entry *donburi.Entry) bool {
	if entry.HasComponent(world.Position) && entry.HasComponent(world.Draw) {
		return true
	}
	return entry.HasComponent(world.UI)
}

// Build returns the client relevant state for tick. It returns false when the
// tick was already built or is older than the last one.
func (b *Builder) Build(tick int64) (*SnapshotMessage, bool) {
	if !b.sequencer.Accept(tick) {
		b.logger.Debug("no new server tick, skipping snapshot", "tick", tick, "latest", b.sequencer.Latest())
		return nil, false
	}

	snapshot := &SnapshotMessage{ServerTick: tick}
	b.world.ForEachEntity(func(_ int32, entry *donburi.Entry) {
		if !IsClientRelevant(entry) {
			return
		}
		snapshot.Entities = append(snapshot.Entities, BuildEntity(entry))
	})
	return snapshot, true
}

// BuildEntity sets a field only when the entity has the matching component.
func BuildEntity(entry *donburi.Entry) EntityState {
	identity := world.Identity.Get(entry)
	state := EntityState{
		EntityID:   identity.ID,
		EntityName: Some(identity.Name),
	}

	if entry.HasComponent(world.Position) {
		p := world.Position.Get(entry)
		state.Position = Some(p.Position)
		state.ViewDirection = Some(p.ViewDirection.String())
		state.Rotation = Some(p.Rotation)
	}

	if entry.HasComponent(world.Health) {
		h := world.Health.Get(entry)
		state.CurrentHealth = Some(h.Current)
		state.MaxHealth = Some(h.Max)
	}

	if entry.HasComponent(world.Mana) {
		m := world.Mana.Get(entry)
		state.CurrentMana = Some(m.Current)
		state.MaxMana = Some(m.Max)
	}

	if entry.HasComponent(world.Stamina) {
		s := world.Stamina.Get(entry)
		state.CurrentStamina = Some(s.Current)
		state.MaxStamina = Some(s.Max)
	}

	if entry.HasComponent(world.Draw) {
		d := world.Draw.Get(entry)
		if d.StateMachine != nil {
			state.StateName = Some(d.StateMachine.CurrentStateName())
		}
		state.TintColor = Some(d.TintColor)
	}
	return state
}
