package world

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

type tileIndex int

const (
	floorTile tileIndex = iota
	wallTile
)

var tileIndices = []Tile{
	// floorTile
	{
		Dense: false,
		Image: "floor",
	},
	// wallTile
	{
		Dense: true,
		Image: "wall",
	},
}

// DefaultLevel is served when no layout file is configured.
const DefaultLevel = `12
8
############
#..........#
#.w......c.#
#...m......#
#......x...#
#..m....w..#
#..........#
############
`

type Tile struct {
	Dense bool
	Image string
}

// Marker is an entity placed in the level layout.
type Marker struct {
	Glyph rune
	At    Point
}

type Level struct {
	Tiles   []tileIndex
	Markers []Marker
	Width   int64
	Height  int64
}

func (l *Level) At(x, y int64) (*Tile, error) {
	if x < 0 || x >= l.Width || y < 0 || y >= l.Height {
		return nil, errors.New("out of bounds")
	}
	return &tileIndices[l.Tiles[l.Width*y+x]], nil
}

// Blocked reports whether p lies on a wall or outside the level.
func (l *Level) Blocked(p Point) bool {
	if p.X < 0 || p.Y < 0 {
		return true
	}
	tile, err := l.At(p.ToTileCoordinates())
	return err != nil || tile.Dense
}

func (l *Level) ForEach(callback func(x, y int64, tile Tile)) {
	for y := int64(0); y < l.Height; y++ {
		for x := int64(0); x < l.Width; x++ {
			callback(x, y, tileIndices[l.Tiles[l.Width*y+x]])
		}
	}
}

// ReadLevel loads the layout file at path, or DefaultLevel when path is empty.
func ReadLevel(path string) (*Level, error) {
	if path == "" {
		return LoadLevel(DefaultLevel)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return LoadLevel(string(b))
}

// LoadLevel parses a layout: the width and height on the first two lines,
// then height rows of width tiles. '#' is a wall, every other glyph is floor. Letters
// place entities, see Populate.
func LoadLevel(contents string) (*Level, error) {
	scanner := bufio.NewScanner(strings.NewReader(contents))

	scanner.Scan()
	width, err := strconv.Atoi(strings.TrimSpace(scanner.Text()))
	if err != nil {
		return nil, err
	}

	scanner.Scan()
	height, err := strconv.Atoi(strings.TrimSpace(scanner.Text()))
	if err != nil {
		return nil, err
	}

	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid level size %dx%d", width, height)
	}

	level := &Level{
		Tiles:  make([]tileIndex, 0, width*height),
		Width:  int64(width),
		Height: int64(height),
	}
	y := 0
	for scanner.Scan() {
		row := []rune(strings.TrimRight(scanner.Text(), "\r"))
		if len(row) == 0 {
			continue
		}
		if y == height {
			return nil, fmt.Errorf("level has more than %d rows", height)
		}
		if len(row) != width {
			return nil, fmt.Errorf("row %d has %d tiles, want %d", y, len(row), width)
		}
		for x, item := range row {
			switch item {
			case '#':
				level.Tiles = append(level.Tiles, wallTile)
			case '.':
				level.Tiles = append(level.Tiles, floorTile)
			default:
				level.Tiles = append(level.Tiles, floorTile)
				level.Markers = append(level.Markers, Marker{
					Glyph: item,
					At:    Point{X: float32(x), Y: float32(y)},
				})
			}
		}
		y++
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(level.Tiles) != width*height {
		return nil, fmt.Errorf("level has %d tiles, want %dx%d", len(level.Tiles), width, height)
	}
	return level, nil
}

// Populate spawns the level's markers:
//
//	m  monster: position, draw, health, velocity
//	w  wizard: position, draw, health, mana, stamina
//	c  chest: position, draw
//	x  trap trigger: position only, never sent to clients
//
// The world also takes l as its layout.
func (l *Level) Populate(w *World) {
	w.SetLevel(l)
	for _, marker := range l.Markers {
		switch marker.Glyph {
		case 'm':
			entry := w.Spawn("monster", Position, Draw, Health, Velocity)
			Position.SetValue(entry, PositionData{Position: marker.At})
			Draw.SetValue(entry, NewDraw())
			Health.SetValue(entry, NewHealth(10))
			Velocity.SetValue(entry, VelocityData{X: 1})
		case 'w':
			entry := w.Spawn("wizard", Position, Draw, Health, Mana, Stamina)
			Position.SetValue(entry, PositionData{Position: marker.At})
			Draw.SetValue(entry, NewDraw())
			Health.SetValue(entry, NewHealth(20))
			mana := NewResource(50)
			mana.RestorePerSecond = 2
			Mana.SetValue(entry, mana)
			Stamina.SetValue(entry, NewResource(100))
		case 'c':
			entry := w.Spawn("chest", Position, Draw)
			Position.SetValue(entry, PositionData{Position: marker.At})
			Draw.SetValue(entry, DrawData{
				StateMachine: ChestStateMachine(),
				TintColor:    NoTint,
			})
		case 'x':
			entry := w.Spawn("trap", Position)
			Position.SetValue(entry, PositionData{Position: marker.At})
		}
	}
}
