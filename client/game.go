package client

import (
	"errors"
	"fmt"
	"image/color"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"

	"snapsync/network"
	"snapsync/replica"
)

// ErrQuit ends the game loop when the player quits.
var ErrQuit = errors.New("quit")

// Game is the viewer: it drains the connection once per frame and draws the
// replicated world.
type Game struct {
	client   *network.Client
	replica  *replica.Replica
	renderer *Renderer
}

func NewGame(client *network.Client, r *replica.Replica) *Game {
	return &Game{
		client:   client,
		replica:  r,
		renderer: NewRenderer(),
	}
}

func (g *Game) Update() error {
	g.client.PollAndDispatch()
	if ebiten.IsKeyPressed(ebiten.KeyEscape) {
		g.client.Close("quit")
		return ErrQuit
	}
	return nil
}

func (g *Game) debugString() string {
	report := g.replica.LastReport()
	return strings.Join([]string{
		fmt.Sprintf("TPS: %0.02f, FPS: %0.02f", ebiten.CurrentTPS(), ebiten.CurrentFPS()),
		fmt.Sprintf("Session: %s, Tick: %d, Entities: %d", g.replica.SessionID(), g.replica.LatestTick(), g.replica.World().Len()),
		fmt.Sprintf("Applied: %d, Spawn requests: %d, Failed: %d", len(report.Applied), len(report.SpawnRequested), len(report.Failed)),
	}, "\n")
}

func (g *Game) Draw(screen *ebiten.Image) {
	screen.Fill(color.RGBA{
		164,
		178,
		191,
		255,
	})
	g.renderer.Render(screen, g.replica.World())
	ebitenutil.DebugPrint(screen, g.debugString())
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (screenWidth, screenHeight int) {
	return outsideWidth, outsideHeight
}
