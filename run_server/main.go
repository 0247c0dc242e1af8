package main

import (
	"flag"
	"log"

	"github.com/pkg/profile"

	"snapsync/server"
	"snapsync/utils"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Llongfile)
	configPath := flag.String("config", "config.toml", "path to the TOML config")
	flag.Parse()

	cfg, err := utils.ReadTOMLOrDefault(*configPath)
	if err != nil {
		log.Fatal(err)
	}
	switch cfg.Server.Profile {
	case "cpu":
		defer profile.Start(profile.CPUProfile, profile.ProfilePath(".")).Stop()
	case "mem":
		defer profile.Start(profile.MemProfile, profile.ProfilePath(".")).Stop()
	case "":
	default:
		log.Fatalf("unknown profile mode %q", cfg.Server.Profile)
	}

	if err := server.Run(*configPath); err != nil {
		log.Fatal(err)
	}
}
