package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"time"

	"github.com/hajimehoshi/ebiten/v2"

	"snapsync/client"
	"snapsync/network"
	"snapsync/replica"
	"snapsync/server"
	"snapsync/utils"
	"snapsync/world"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Llongfile)
	configPath := flag.String("config", "config.toml", "path to the TOML config")
	flag.Parse()

	if flag.Arg(0) == "server" {
		if err := server.Run(*configPath); err != nil {
			log.Fatal(err)
		}
		return
	}

	cfg, err := utils.ReadTOMLOrDefault(*configPath)
	if err != nil {
		log.Fatal(err)
	}
	logger := utils.NewLogger(cfg.Log)

	resolutionConfig := cfg.UI.Resolution
	ebiten.SetWindowSize(resolutionConfig.X, resolutionConfig.Y)
	ebiten.SetWindowTitle("snapsync")

	dispatcher := network.NewDispatcher(logger)
	c := network.NewClient(dispatcher, network.ClientOptions{
		InboundBuffer: cfg.Client.InboundBuffer,
	}, logger)
	// Entities come from the server; the layout is read locally from the same
	// config the server uses.
	level, err := world.ReadLevel(cfg.Server.Level)
	if err != nil {
		log.Fatal(err)
	}
	w := world.NewWorld()
	w.SetLevel(level)
	r := replica.New(w, c, cfg.Client.SpawnRequestCooldown(), logger)
	r.Register(dispatcher)
	c.AddConnectionListener(r)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := c.Connect(ctx, cfg.Client.ServerURL); err != nil {
		logger.Warn("could not connect, starting a local server", "err", err)

		// Try to spin up the server if we fail to connect.
		go func() {
			if err := server.Run(*configPath); err != nil {
				log.Fatal(err)
			}
			log.Fatal("server shutdown")
		}()

		// TODO: Should have a good way of testing if the server is up.
		time.Sleep(50 * time.Millisecond)
		if err := c.Connect(ctx, cfg.Client.ServerURL); err != nil {
			log.Fatal(err)
		}
	}
	defer c.Close("shutdown")

	if err := ebiten.RunGame(client.NewGame(c, r)); err != nil && !errors.Is(err, client.ErrQuit) {
		log.Fatal(err)
	}
}
