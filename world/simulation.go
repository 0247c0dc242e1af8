package world

import (
	"time"

	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/filter"
)

var (
	moving    = donburi.NewQuery(filter.Contains(Position, Velocity))
	resources = donburi.NewQuery(filter.Or(filter.Contains(Mana), filter.Contains(Stamina)))
)

// Step advances the simulation by one tick of length dt.
func (w *World) Step(dt time.Duration) {
	w.tick++
	seconds := float32(dt.Seconds())

	moving.Each(w.ecs, func(entry *donburi.Entry) {
		v := Velocity.Get(entry)
		p := Position.Get(entry)
		idle := v.X == 0 && v.Y == 0
		if !idle {
			next := p.Position.Add(v.X*seconds, v.Y*seconds)
			if w.level != nil && w.level.Blocked(next) {
				// Bounce off the wall.
				v.X, v.Y = -v.X, -v.Y
			} else {
				p.Position = next
			}
			p.ViewDirection = DirectionOf(v.X, v.Y)
		}
		if !entry.HasComponent(Draw) {
			return
		}
		machine := Draw.Get(entry).StateMachine
		if machine == nil {
			return
		}
		switch current := machine.CurrentStateName(); {
		case current == StateDie:
		case idle && current == StateMove:
			machine.SetState(StateIdle, p.ViewDirection)
		case !idle:
			machine.SetState(StateMove, p.ViewDirection)
		}
	})

	resources.Each(w.ecs, func(entry *donburi.Entry) {
		if entry.HasComponent(Mana) {
			Mana.Get(entry).restore(seconds)
		}
		if entry.HasComponent(Stamina) {
			Stamina.Get(entry).restore(seconds)
		}
	})
}
