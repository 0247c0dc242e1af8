package snapshot

import (
	"snapsync/pb"
	"snapsync/world"
)

// EntityState describes one entity as of a server tick. An absent field means
// unknown or unchanged, never zero.
type EntityState struct {
	EntityID       int32
	EntityName     Option[string]
	Position       Option[world.Point]
	ViewDirection  Option[string]
	Rotation       Option[float32]
	CurrentHealth  Option[int32]
	MaxHealth      Option[int32]
	CurrentMana    Option[float32]
	MaxMana        Option[float32]
	CurrentStamina Option[float32]
	MaxStamina     Option[float32]
	StateName      Option[string]
	TintColor      Option[int32]
}

type SnapshotMessage struct {
	ServerTick int64
	Entities   []EntityState
}

func EntityStateFromProto(p *pb.EntityState) EntityState {
	s := EntityState{
		EntityID:       p.EntityId,
		EntityName:     OptionOf(p.EntityName),
		ViewDirection:  OptionOf(p.ViewDirection),
		Rotation:       OptionOf(p.Rotation),
		CurrentHealth:  OptionOf(p.CurrentHealth),
		MaxHealth:      OptionOf(p.MaxHealth),
		CurrentMana:    OptionOf(p.CurrentMana),
		MaxMana:        OptionOf(p.MaxMana),
		CurrentStamina: OptionOf(p.CurrentStamina),
		MaxStamina:     OptionOf(p.MaxStamina),
		StateName:      OptionOf(p.StateName),
		TintColor:      OptionOf(p.TintColor),
	}
	if p.Position != nil {
		s.Position = Some(world.PointFromProto(p.Position))
	}
	return s
}

func (s *EntityState) ToProto() *pb.EntityState {
	p := &pb.EntityState{
		EntityId:       s.EntityID,
		EntityName:     s.EntityName.Ptr(),
		ViewDirection:  s.ViewDirection.Ptr(),
		Rotation:       s.Rotation.Ptr(),
		CurrentHealth:  s.CurrentHealth.Ptr(),
		MaxHealth:      s.MaxHealth.Ptr(),
		CurrentMana:    s.CurrentMana.Ptr(),
		MaxMana:        s.MaxMana.Ptr(),
		CurrentStamina: s.CurrentStamina.Ptr(),
		MaxStamina:     s.MaxStamina.Ptr(),
		StateName:      s.StateName.Ptr(),
		TintColor:      s.TintColor.Ptr(),
	}
	if position, ok := s.Position.Get(); ok {
		p.Position = position.ToProto()
	}
	return p
}

func SnapshotFromProto(p *pb.Snapshot) *SnapshotMessage {
	s := &SnapshotMessage{
		ServerTick: p.ServerTick,
		Entities:   make([]EntityState, 0, len(p.Entities)),
	}
	for _, entity := range p.Entities {
		if entity == nil {
			continue
		}
		s.Entities = append(s.Entities, EntityStateFromProto(entity))
	}
	return s
}

func (s *SnapshotMessage) ToProto() *pb.Snapshot {
	p := &pb.Snapshot{
		ServerTick: s.ServerTick,
		Entities:   make([]*pb.EntityState, 0, len(s.Entities)),
	}
	for i := range s.Entities {
		p.Entities = append(p.Entities, s.Entities[i].ToProto())
	}
	return p
}
