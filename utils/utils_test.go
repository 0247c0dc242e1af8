package utils

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

const testConfig = `
[server]
address = "0.0.0.0:6969"
tick_interval_ms = 25
origin_patterns = ["example.com"]

[client]
spawn_request_cooldown_ms = 0

[ui.resolution]
x = 1
y = 2

[log]
level = "debug"
`

func TestReadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(testConfig), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := ReadTOML(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Address != "0.0.0.0:6969" {
		t.Fatalf("Server.Address = %q, want 0.0.0.0:6969", cfg.Server.Address)
	}
	if cfg.Server.TickInterval() != 25*time.Millisecond {
		t.Fatalf("TickInterval() = %v, want 25ms", cfg.Server.TickInterval())
	}
	if len(cfg.Server.OriginPatterns) != 1 || cfg.Server.OriginPatterns[0] != "example.com" {
		t.Fatalf("OriginPatterns = %v", cfg.Server.OriginPatterns)
	}
	if cfg.Client.SpawnRequestCooldown() != 0 {
		t.Fatalf("SpawnRequestCooldown() = %v, want 0", cfg.Client.SpawnRequestCooldown())
	}
	// Missing keys keep their defaults.
	if cfg.Client.ServerURL != "ws://localhost:4242" || cfg.Client.InboundBuffer != 1024 {
		t.Fatalf("Client = %+v, want defaults", cfg.Client)
	}
	if cfg.UI.Resolution.X != 1 || cfg.UI.Resolution.Y != 2 {
		t.Fatalf("UI.Resolution = %+v, want {1 2}", cfg.UI.Resolution)
	}
	level, err := ParseLevel(cfg.Log.Level)
	if err != nil || level != slog.LevelDebug {
		t.Fatalf("ParseLevel(%q) = %v, %v", cfg.Log.Level, level, err)
	}
}

func TestParseTOMLRejectsBadValues(t *testing.T) {
	for _, in := range []string{
		"[server]\ntick_interval_ms = 0\n",
		"[client]\nspawn_request_cooldown_ms = -1\n",
		"[server\n",
	} {
		if _, err := ParseTOML([]byte(in)); err == nil {
			t.Fatalf("ParseTOML(%q) succeeded", in)
		}
	}
}

func TestReadTOMLOrDefault(t *testing.T) {
	cfg, err := ReadTOMLOrDefault(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Address != DefaultConfig().Server.Address {
		t.Fatalf("Server.Address = %q, want default", cfg.Server.Address)
	}
}
