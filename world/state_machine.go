package world

import (
	"errors"
	"fmt"
)

const (
	StateIdle   = "idle"
	StateMove   = "move"
	StateAttack = "attack"
	StateDie    = "die"
)

var ErrUnknownState = errors.New("unknown animation state")

// StateMachine tracks the current animation state of a drawable entity and
// the direction it is played in.
type StateMachine struct {
	states    map[string]struct{}
	current   string
	direction Direction
}

func NewStateMachine(initial string, states ...string) *StateMachine {
	m := &StateMachine{
		states:  make(map[string]struct{}, len(states)+1),
		current: initial,
	}
	m.states[initial] = struct{}{}
	for _, state := range states {
		m.states[state] = struct{}{}
	}
	return m
}

// DefaultStateMachine knows the states every character animation provides.
func DefaultStateMachine() *StateMachine {
	return NewStateMachine(StateIdle, StateMove, StateAttack, StateDie)
}

func (m *StateMachine) SetState(name string, direction Direction) error {
	if _, ok := m.states[name]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownState, name)
	}
	m.current = name
	m.direction = direction
	return nil
}

func (m *StateMachine) CurrentStateName() string {
	return m.current
}

func (m *StateMachine) Direction() Direction {
	return m.direction
}

const (
	StateClosed = "closed"
	StateOpen   = "open"
)

func ChestStateMachine() *StateMachine {
	return NewStateMachine(StateClosed, StateOpen)
}

// StateMachineFor returns the animations available to entities with the given
// name, starting in initial when it is one of them.
func StateMachineFor(name, initial string) *StateMachine {
	var m *StateMachine
	switch name {
	case "chest":
		m = ChestStateMachine()
	default:
		m = DefaultStateMachine()
	}
	if initial != "" {
		_ = m.SetState(initial, Down)
	}
	return m
}
