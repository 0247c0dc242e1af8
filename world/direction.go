package world

import (
	"fmt"
	"strings"
)

type Direction uint8

const (
	Down Direction = iota
	Up
	Left
	Right
)

var directionNames = [...]string{
	Down:  "DOWN",
	Up:    "UP",
	Left:  "LEFT",
	Right: "RIGHT",
}

func (d Direction) String() string {
	if int(d) < len(directionNames) {
		return directionNames[d]
	}
	return fmt.Sprintf("Direction(%d)", uint8(d))
}

// ParseDirection accepts the names produced by Direction.String, ignoring case.
func ParseDirection(s string) (Direction, error) {
	for d, name := range directionNames {
		if strings.EqualFold(s, name) {
			return Direction(d), nil
		}
	}
	return Down, fmt.Errorf("unknown direction %q", s)
}

// DirectionOf picks the dominant axis of a movement vector.
func DirectionOf(dx, dy float32) Direction {
	if abs(dx) > abs(dy) {
		if dx < 0 {
			return Left
		}
		return Right
	}
	if dy < 0 {
		return Up
	}
	return Down
}

func abs(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
