package pb

import (
	"errors"
	"testing"

	"google.golang.org/protobuf/encoding/protowire"
)

func int32p(v int32) *int32       { return &v }
func float32p(v float32) *float32 { return &v }
func stringp(v string) *string    { return &v }

func TestEntityStatePresence(t *testing.T) {
	in := &EntityState{
		EntityId:      7,
		Position:      &Vector{X: 0, Y: 0},
		CurrentHealth: int32p(0),
		MaxMana:       float32p(50),
		TintColor:     int32p(-1),
	}
	b, err := Marshal(in)
	if err != nil {
		t.Fatal(err)
	}

	var out EntityState
	if err := Unmarshal(b, &out); err != nil {
		t.Fatal(err)
	}
	if out.EntityId != 7 {
		t.Fatalf("EntityId = %d, want 7", out.EntityId)
	}
	if out.Position == nil || *out.Position != (Vector{}) {
		t.Fatalf("Position = %+v, want present zero vector", out.Position)
	}
	if out.CurrentHealth == nil || *out.CurrentHealth != 0 {
		t.Fatalf("CurrentHealth = %v, want present 0", out.CurrentHealth)
	}
	if out.MaxHealth != nil {
		t.Fatalf("MaxHealth = %v, want absent", *out.MaxHealth)
	}
	if out.CurrentMana != nil || out.MaxMana == nil || *out.MaxMana != 50 {
		t.Fatalf("mana = %v/%v, want absent/50", out.CurrentMana, out.MaxMana)
	}
	if out.TintColor == nil || *out.TintColor != -1 {
		t.Fatalf("TintColor = %v, want -1", out.TintColor)
	}
	if out.EntityName != nil || out.ViewDirection != nil || out.StateName != nil || out.Rotation != nil {
		t.Fatalf("unexpected optional fields: %+v", out)
	}
}

func TestEncodeDecodeSnapshot(t *testing.T) {
	snapshot := &Snapshot{
		ServerTick: 42,
		Entities: []*EntityState{
			{EntityId: 1, EntityName: stringp("hero"), ViewDirection: stringp("LEFT")},
			{EntityId: 2, StateName: stringp("idle"), CurrentStamina: float32p(3.5)},
		},
	}
	b, err := Encode(3, snapshot)
	if err != nil {
		t.Fatal(err)
	}

	channel, msg, err := Decode(b)
	if err != nil {
		t.Fatal(err)
	}
	if channel != 3 {
		t.Fatalf("channel = %d, want 3", channel)
	}
	got, ok := msg.(*Snapshot)
	if !ok {
		t.Fatalf("decoded %T, want *Snapshot", msg)
	}
	if got.ServerTick != 42 || len(got.Entities) != 2 {
		t.Fatalf("got tick=%d entities=%d", got.ServerTick, len(got.Entities))
	}
	if *got.Entities[0].EntityName != "hero" || *got.Entities[0].ViewDirection != "LEFT" {
		t.Fatalf("first entity = %+v", got.Entities[0])
	}
	if *got.Entities[1].StateName != "idle" || *got.Entities[1].CurrentStamina != 3.5 {
		t.Fatalf("second entity = %+v", got.Entities[1])
	}
}

func TestDecodeSkipsUnknownFields(t *testing.T) {
	b, _ := Marshal(&RequestEntitySpawn{EntityId: 9})
	b = protowire.AppendTag(b, 99, protowire.BytesType)
	b = protowire.AppendString(b, "future field")
	// Known number with the wrong wire type is skipped as well.
	b = protowire.AppendTag(b, 1, protowire.Fixed64Type)
	b = protowire.AppendFixed64(b, 123)

	var got RequestEntitySpawn
	if err := Unmarshal(b, &got); err != nil {
		t.Fatal(err)
	}
	if got.EntityId != 9 {
		t.Fatalf("EntityId = %d, want 9", got.EntityId)
	}
}

func TestDecodeErrors(t *testing.T) {
	if _, err := Encode(0, &EntityState{}); !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("Encode(EntityState) err = %v, want ErrUnknownKind", err)
	}
	if _, err := Encode(0, nil); !errors.Is(err, ErrNilMessage) {
		t.Fatalf("Encode(nil) err = %v, want ErrNilMessage", err)
	}

	b, _ := Encode(0, &ConnectAck{SessionId: "abc", ServerTick: 5})
	if _, _, err := Decode(b[:len(b)-1]); err == nil {
		t.Fatal("Decode of truncated envelope succeeded")
	}

	unknown := appendVarint(nil, 1, 200)
	if _, _, err := Decode(unknown); !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("Decode(kind 200) err = %v, want ErrUnknownKind", err)
	}
}

func TestDecodeRejectsWideKind(t *testing.T) {
	payload, _ := Marshal(&Snapshot{ServerTick: 4})
	// Both values truncate to KindSnapshot in eight bits.
	for _, kind := range []uint64{258, 1<<32 + uint64(KindSnapshot)} {
		b := appendVarint(nil, 1, kind)
		b = protowire.AppendTag(b, 3, protowire.BytesType)
		b = protowire.AppendBytes(b, payload)
		if _, msg, err := Decode(b); !errors.Is(err, ErrUnknownKind) {
			t.Fatalf("Decode(kind %d) = %T, %v; want ErrUnknownKind", kind, msg, err)
		}
	}

	wide := appendVarint(nil, 1, uint64(KindSnapshot))
	wide = appendVarint(wide, 2, 1<<32+1)
	if _, _, err := Decode(wide); err == nil {
		t.Fatal("Decode of a channel wider than 32 bits succeeded")
	}
}

func TestEntitySpawnWithoutState(t *testing.T) {
	b, err := Encode(0, &EntitySpawn{})
	if err != nil {
		t.Fatal(err)
	}
	_, msg, err := Decode(b)
	if err != nil {
		t.Fatal(err)
	}
	if msg.(*EntitySpawn).GetState() != nil {
		t.Fatal("want nil state")
	}
}
