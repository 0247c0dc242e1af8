package client

import (
	"fmt"
	"image/color"
	"math"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/yohamta/donburi"

	"snapsync/world"
)

// TileSize is the number of pixels per world unit.
const TileSize = 32

func lerp(v0, v1, t float64) float64 {
	return (1-t)*v0 + t*v1
}

// LerpState smooths the jump between two snapshot positions over a few frames.
type LerpState struct {
	source    world.Point
	target    world.Point
	iteration float64
}

func (l *LerpState) Current() world.Point {
	return world.Point{
		X: float32(lerp(float64(l.source.X), float64(l.target.X), l.iteration)),
		Y: float32(lerp(float64(l.source.Y), float64(l.target.Y), l.iteration)),
	}
}

func (l *LerpState) Advance() {
	l.iteration = math.Min(l.iteration+0.25, 1.00)
}

type Renderer struct {
	lerps map[int32]*LerpState
}

func NewRenderer() *Renderer {
	return &Renderer{
		lerps: make(map[int32]*LerpState),
	}
}

// drawPosition returns where to draw an entity whose latest known position is
// target, starting a new interpolation when target moved.
func (r *Renderer) drawPosition(id int32, target world.Point) world.Point {
	current := r.lerps[id]
	if current == nil || current.target != target {
		source := target
		if current != nil {
			source = current.Current()
		}
		current = &LerpState{source: source, target: target}
		r.lerps[id] = current
	}
	current.Advance()
	return current.Current()
}

var wallColor = color.RGBA{60, 60, 70, 255}

func (r *Renderer) Render(screen *ebiten.Image, w *world.World) {
	if level := w.Level(); level != nil {
		level.ForEach(func(x, y int64, tile world.Tile) {
			if tile.Dense {
				ebitenutil.DrawRect(screen, float64(x)*TileSize, float64(y)*TileSize, TileSize, TileSize, wallColor)
			}
		})
	}

	seen := make(map[int32]struct{}, len(r.lerps))
	w.ForEachEntity(func(id int32, entry *donburi.Entry) {
		if !entry.HasComponent(world.Position) {
			return
		}
		seen[id] = struct{}{}
		p := r.drawPosition(id, world.Position.Get(entry).Position)
		x, y := float64(p.X)*TileSize, float64(p.Y)*TileSize

		clr := color.Color(color.RGBA{200, 200, 200, 255})
		state := ""
		if entry.HasComponent(world.Draw) {
			d := world.Draw.Get(entry)
			clr = TintColor(d.TintColor, clr)
			if d.StateMachine != nil {
				state = d.StateMachine.CurrentStateName()
			}
		}
		ebitenutil.DrawRect(screen, x, y, TileSize, TileSize, clr)
		ebitenutil.DebugPrintAt(screen, label(entry, state), int(x), int(y)+TileSize)
	})

	for id := range r.lerps {
		if _, ok := seen[id]; !ok {
			delete(r.lerps, id)
		}
	}
}

// TintColor decodes a 0xRRGGBB tint, returning fallback for world.NoTint.
func TintColor(tint int32, fallback color.Color) color.Color {
	if tint == world.NoTint {
		return fallback
	}
	return color.RGBA{
		R: uint8(tint >> 16),
		G: uint8(tint >> 8),
		B: uint8(tint),
		A: 255,
	}
}

func label(entry *donburi.Entry, state string) string {
	s := fmt.Sprintf("%s#%d %s", world.Name(entry), world.ID(entry), state)
	if entry.HasComponent(world.Health) {
		h := world.Health.Get(entry)
		s += fmt.Sprintf("\nhp %d/%d", h.Current, h.Max)
	}
	if entry.HasComponent(world.Mana) {
		m := world.Mana.Get(entry)
		s += fmt.Sprintf("\nmp %0.0f/%0.0f", m.Current, m.Max)
	}
	return s
}
