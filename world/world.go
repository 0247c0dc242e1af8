package world

import (
	"errors"
	"fmt"
	"sort"

	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/component"
)

var ErrEntityExists = errors.New("entity already exists")

// World is the simulation state of the active level. Entities are addressed
// by their network id, which is stable across server and clients.
type World struct {
	ecs    donburi.World
	ids    map[int32]donburi.Entity
	nextID int32
	tick   int64
	// level is nil for a world without walls.
	level *Level
}

func NewWorld() *World {
	return &World{
		ecs:    donburi.NewWorld(),
		ids:    make(map[int32]donburi.Entity),
		nextID: 1,
	}
}

func (w *World) Level() *Level {
	return w.level
}

// SetLevel sets the layout Step collides against.
func (w *World) SetLevel(l *Level) {
	w.level = l
}

func (w *World) Tick() int64 {
	return w.tick
}

// Spawn creates an entity with the next free id. Identity is always attached.
func (w *World) Spawn(name string, components ...component.IComponentType) *donburi.Entry {
	for {
		if _, ok := w.ids[w.nextID]; !ok {
			break
		}
		w.nextID++
	}
	entry, _ := w.SpawnWithID(w.nextID, name, components...)
	w.nextID++
	return entry
}

// SpawnWithID materializes an entity announced by a remote peer.
func (w *World) SpawnWithID(id int32, name string, components ...component.IComponentType) (*donburi.Entry, error) {
	if _, ok := w.ids[id]; ok {
		return nil, fmt.Errorf("%w: %d", ErrEntityExists, id)
	}
	types := make([]component.IComponentType, 0, len(components)+1)
	types = append(types, Identity)
	types = append(types, components...)
	e := w.ecs.Create(types...)
	entry := w.ecs.Entry(e)
	Identity.SetValue(entry, IdentityData{ID: id, Name: name})
	w.ids[id] = e
	return entry, nil
}

func (w *World) Entity(id int32) (*donburi.Entry, bool) {
	e, ok := w.ids[id]
	if !ok {
		return nil, false
	}
	if !w.ecs.Valid(e) {
		delete(w.ids, id)
		return nil, false
	}
	return w.ecs.Entry(e), true
}

func (w *World) RemoveEntity(id int32) bool {
	e, ok := w.ids[id]
	if !ok {
		return false
	}
	delete(w.ids, id)
	if w.ecs.Valid(e) {
		w.ecs.Remove(e)
	}
	return true
}

// ForEachEntity visits every live entity in id order.
func (w *World) ForEachEntity(callback func(int32, *donburi.Entry)) {
	ids := make([]int32, 0, len(w.ids))
	for id := range w.ids {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		if entry, ok := w.Entity(id); ok {
			callback(id, entry)
		}
	}
}

func (w *World) Len() int {
	return len(w.ids)
}

func ID(entry *donburi.Entry) int32 {
	return Identity.Get(entry).ID
}

func Name(entry *donburi.Entry) string {
	return Identity.Get(entry).Name
}

func SetName(entry *donburi.Entry, name string) {
	Identity.Get(entry).Name = name
}
