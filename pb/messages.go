package pb

import "google.golang.org/protobuf/encoding/protowire"

type Vector struct {
	X float32
	Y float32
}

var vectorFields = fieldTypes{
	1: protowire.Fixed32Type,
	2: protowire.Fixed32Type,
}

func (v *Vector) appendTo(b []byte) []byte {
	b = appendFloat32(b, 1, v.X)
	return appendFloat32(b, 2, v.Y)
}

func (v *Vector) unmarshal(b []byte) error {
	*v = Vector{}
	return consumeFields(b, vectorFields, func(num protowire.Number, b []byte) int {
		f, n := consumeFloat32(b)
		if num == 1 {
			v.X = f
		} else {
			v.Y = f
		}
		return n
	})
}

// EntityState is the compact state of one entity. Every field but EntityId is
// optional.
type EntityState struct {
	EntityId       int32
	EntityName     *string
	Position       *Vector
	ViewDirection  *string
	Rotation       *float32
	CurrentHealth  *int32
	MaxHealth      *int32
	CurrentMana    *float32
	MaxMana        *float32
	CurrentStamina *float32
	MaxStamina     *float32
	StateName      *string
	TintColor      *int32
}

var entityStateFields = fieldTypes{
	1:  protowire.VarintType,
	2:  protowire.BytesType,
	3:  protowire.BytesType,
	4:  protowire.BytesType,
	5:  protowire.Fixed32Type,
	6:  protowire.VarintType,
	7:  protowire.VarintType,
	8:  protowire.Fixed32Type,
	9:  protowire.Fixed32Type,
	10: protowire.Fixed32Type,
	11: protowire.Fixed32Type,
	12: protowire.BytesType,
	13: protowire.VarintType,
}

func (x *EntityState) Kind() Kind { return KindUnknown }

func (x *EntityState) appendTo(b []byte) []byte {
	b = appendInt32(b, 1, x.EntityId)
	if x.EntityName != nil {
		b = appendString(b, 2, *x.EntityName)
	}
	if x.Position != nil {
		b = appendMessage(b, 3, x.Position.appendTo(nil))
	}
	if x.ViewDirection != nil {
		b = appendString(b, 4, *x.ViewDirection)
	}
	if x.Rotation != nil {
		b = appendFloat32(b, 5, *x.Rotation)
	}
	if x.CurrentHealth != nil {
		b = appendInt32(b, 6, *x.CurrentHealth)
	}
	if x.MaxHealth != nil {
		b = appendInt32(b, 7, *x.MaxHealth)
	}
	if x.CurrentMana != nil {
		b = appendFloat32(b, 8, *x.CurrentMana)
	}
	if x.MaxMana != nil {
		b = appendFloat32(b, 9, *x.MaxMana)
	}
	if x.CurrentStamina != nil {
		b = appendFloat32(b, 10, *x.CurrentStamina)
	}
	if x.MaxStamina != nil {
		b = appendFloat32(b, 11, *x.MaxStamina)
	}
	if x.StateName != nil {
		b = appendString(b, 12, *x.StateName)
	}
	if x.TintColor != nil {
		b = appendInt32(b, 13, *x.TintColor)
	}
	return b
}

func (x *EntityState) unmarshal(b []byte) error {
	*x = EntityState{}
	return consumeFields(b, entityStateFields, func(num protowire.Number, b []byte) int {
		switch num {
		case 1:
			v, n := consumeInt32(b)
			x.EntityId = v
			return n
		case 2, 4, 12:
			v, n := protowire.ConsumeString(b)
			switch num {
			case 2:
				x.EntityName = &v
			case 4:
				x.ViewDirection = &v
			default:
				x.StateName = &v
			}
			return n
		case 3:
			x.Position = &Vector{}
			return consumeMessage(b, x.Position)
		case 6, 7, 13:
			v, n := consumeInt32(b)
			switch num {
			case 6:
				x.CurrentHealth = &v
			case 7:
				x.MaxHealth = &v
			default:
				x.TintColor = &v
			}
			return n
		default:
			v, n := consumeFloat32(b)
			switch num {
			case 5:
				x.Rotation = &v
			case 8:
				x.CurrentMana = &v
			case 9:
				x.MaxMana = &v
			case 10:
				x.CurrentStamina = &v
			default:
				x.MaxStamina = &v
			}
			return n
		}
	})
}

// Snapshot is the full client relevant state as of one server tick.
type Snapshot struct {
	ServerTick int64
	Entities   []*EntityState
}

var snapshotFields = fieldTypes{
	1: protowire.VarintType,
	2: protowire.BytesType,
}

func (x *Snapshot) Kind() Kind { return KindSnapshot }

func (x *Snapshot) appendTo(b []byte) []byte {
	b = appendInt64(b, 1, x.ServerTick)
	for _, entity := range x.Entities {
		if entity == nil {
			continue
		}
		b = appendMessage(b, 2, entity.appendTo(nil))
	}
	return b
}

func (x *Snapshot) unmarshal(b []byte) error {
	*x = Snapshot{}
	return consumeFields(b, snapshotFields, func(num protowire.Number, b []byte) int {
		if num == 1 {
			v, n := consumeInt64(b)
			x.ServerTick = v
			return n
		}
		entity := &EntityState{}
		n := consumeMessage(b, entity)
		if n >= 0 {
			x.Entities = append(x.Entities, entity)
		}
		return n
	})
}

// RequestEntitySpawn asks the server for the state of an entity the client
// does not know yet.
type RequestEntitySpawn struct {
	EntityId int32
}

var requestEntitySpawnFields = fieldTypes{
	1: protowire.VarintType,
}

func (x *RequestEntitySpawn) Kind() Kind { return KindRequestEntitySpawn }

func (x *RequestEntitySpawn) appendTo(b []byte) []byte {
	return appendInt32(b, 1, x.EntityId)
}

func (x *RequestEntitySpawn) unmarshal(b []byte) error {
	*x = RequestEntitySpawn{}
	return consumeFields(b, requestEntitySpawnFields, func(_ protowire.Number, b []byte) int {
		v, n := consumeInt32(b)
		x.EntityId = v
		return n
	})
}

// EntitySpawn answers a RequestEntitySpawn with the entity's full state.
type EntitySpawn struct {
	State *EntityState
}

var entitySpawnFields = fieldTypes{
	1: protowire.BytesType,
}

func (x *EntitySpawn) Kind() Kind { return KindEntitySpawn }

func (x *EntitySpawn) GetState() *EntityState {
	if x == nil {
		return nil
	}
	return x.State
}

func (x *EntitySpawn) appendTo(b []byte) []byte {
	if x.State == nil {
		return b
	}
	return appendMessage(b, 1, x.State.appendTo(nil))
}

func (x *EntitySpawn) unmarshal(b []byte) error {
	*x = EntitySpawn{}
	return consumeFields(b, entitySpawnFields, func(_ protowire.Number, b []byte) int {
		x.State = &EntityState{}
		return consumeMessage(b, x.State)
	})
}

// ConnectAck is sent once to every accepted session.
type ConnectAck struct {
	SessionId  string
	ServerTick int64
}

var connectAckFields = fieldTypes{
	1: protowire.BytesType,
	2: protowire.VarintType,
}

func (x *ConnectAck) Kind() Kind { return KindConnectAck }

func (x *ConnectAck) appendTo(b []byte) []byte {
	b = appendString(b, 1, x.SessionId)
	return appendInt64(b, 2, x.ServerTick)
}

func (x *ConnectAck) unmarshal(b []byte) error {
	*x = ConnectAck{}
	return consumeFields(b, connectAckFields, func(num protowire.Number, b []byte) int {
		if num == 1 {
			v, n := protowire.ConsumeString(b)
			x.SessionId = v
			return n
		}
		v, n := consumeInt64(b)
		x.ServerTick = v
		return n
	})
}
