package utils

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

type ServerConfig struct {
	Address        string   `toml:"address"`
	TickIntervalMs int      `toml:"tick_interval_ms"`
	OriginPatterns []string `toml:"origin_patterns"`
	Level          string   `toml:"level"`
	// Profile is "", "cpu" or "mem".
	Profile string `toml:"profile"`
}

func (c ServerConfig) TickInterval() time.Duration {
	return time.Duration(c.TickIntervalMs) * time.Millisecond
}

type ClientConfig struct {
	ServerURL              string `toml:"server_url"`
	SpawnRequestCooldownMs int    `toml:"spawn_request_cooldown_ms"`
	InboundBuffer          int    `toml:"inbound_buffer"`
}

func (c ClientConfig) SpawnRequestCooldown() time.Duration {
	return time.Duration(c.SpawnRequestCooldownMs) * time.Millisecond
}

type ResolutionConfig struct {
	X, Y int
}

type UIConfig struct {
	Resolution ResolutionConfig
}

type LogConfig struct {
	Level string `toml:"level"`
}

type Config struct {
	Server ServerConfig
	Client ClientConfig
	UI     UIConfig
	Log    LogConfig
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Address:        "localhost:4242",
			TickIntervalMs: 17,
			OriginPatterns: []string{"localhost:8080"},
		},
		Client: ClientConfig{
			ServerURL:              "ws://localhost:4242",
			SpawnRequestCooldownMs: 5000,
			InboundBuffer:          1024,
		},
		UI: UIConfig{
			Resolution: ResolutionConfig{X: 640, Y: 480},
		},
		Log: LogConfig{Level: "info"},
	}
}

// ReadTOML reads fileName over the defaults. Keys missing from the file keep
// their default value.
func ReadTOML(fileName string) (*Config, error) {
	file, err := os.ReadFile(fileName)
	if err != nil {
		return nil, err
	}
	return ParseTOML(file)
}

func ParseTOML(b []byte) (*Config, error) {
	config := DefaultConfig()
	if err := toml.Unmarshal(b, config); err != nil {
		return nil, err
	}
	if config.Server.TickIntervalMs <= 0 {
		return nil, fmt.Errorf("server.tick_interval_ms must be positive, got %d", config.Server.TickIntervalMs)
	}
	if config.Client.SpawnRequestCooldownMs < 0 {
		return nil, fmt.Errorf("client.spawn_request_cooldown_ms must not be negative, got %d", config.Client.SpawnRequestCooldownMs)
	}
	return config, nil
}

// ReadTOMLOrDefault falls back to the defaults when fileName does not exist.
func ReadTOMLOrDefault(fileName string) (*Config, error) {
	config, err := ReadTOML(fileName)
	if os.IsNotExist(err) {
		return DefaultConfig(), nil
	}
	return config, err
}

func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, err
	}
	return level, nil
}

// NewLogger returns a text logger on stderr at the configured level.
func NewLogger(c LogConfig) *slog.Logger {
	level, err := ParseLevel(c.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
