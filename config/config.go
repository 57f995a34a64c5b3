// Package config loads runtime settings from the environment. An optional
// .env file is read first; variables already set in the shell win.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Transport names accepted by BACKROOM_TRANSPORT.
const (
	TransportNDJSON = "ndjson"
	TransportSSE    = "sse"
	TransportWS     = "ws"
)

// Config holds client and dev backend settings.
type Config struct {
	// Client
	ServerURL    string `env:"BACKROOM_SERVER_URL" envDefault:"http://localhost:8000"`
	Transport    string `env:"BACKROOM_TRANSPORT" envDefault:"ndjson"`
	SessionFile  string `env:"BACKROOM_SESSION_FILE" envDefault:"~/.backroom/session"`
	SaveDir      string `env:"BACKROOM_SAVE_DIR" envDefault:"~/.backroom/saves"`
	LogLevel     string `env:"BACKROOM_LOG_LEVEL" envDefault:"info"`
	LogFile      string `env:"BACKROOM_LOG_FILE" envDefault:"~/.backroom/client.log"`
	TypewriterMS int    `env:"BACKROOM_TYPEWRITER_MS" envDefault:"20"`
	TransitionMS int    `env:"BACKROOM_TRANSITION_MS" envDefault:"500"`
	DiceMS       int    `env:"BACKROOM_DICE_MS" envDefault:"1200"`

	// Dev backend
	Listen       string        `env:"BACKROOM_LISTEN" envDefault:":8000"`
	RedisAddr    string        `env:"BACKROOM_REDIS_ADDR"`
	ScenarioDir  string        `env:"BACKROOM_SCENARIO_DIR"`
	ChunkDelayMS int           `env:"BACKROOM_CHUNK_DELAY_MS" envDefault:"60"`
	Seed         int64         `env:"BACKROOM_SEED"`
	SessionTTL   time.Duration `env:"BACKROOM_SESSION_TTL" envDefault:"24h"`
}

// Load reads dotenvPath (if it exists) and parses the environment.
// An empty dotenvPath means ".env" in the working directory.
func Load(dotenvPath string) (*Config, error) {
	if dotenvPath == "" {
		dotenvPath = ".env"
	}
	if err := godotenv.Load(dotenvPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", dotenvPath, err)
	}
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.SessionFile = ExpandHome(cfg.SessionFile)
	cfg.SaveDir = ExpandHome(cfg.SaveDir)
	cfg.LogFile = ExpandHome(cfg.LogFile)
	cfg.ScenarioDir = ExpandHome(cfg.ScenarioDir)
	return &cfg, nil
}

// Validate checks values env parsing cannot.
func (c *Config) Validate() error {
	switch c.Transport {
	case TransportNDJSON, TransportSSE, TransportWS:
	default:
		return fmt.Errorf("invalid transport %q: want ndjson, sse or ws", c.Transport)
	}
	if c.ServerURL == "" {
		return errors.New("server url is required")
	}
	if c.TypewriterMS < 0 || c.TransitionMS < 0 || c.DiceMS < 0 || c.ChunkDelayMS < 0 {
		return errors.New("animation and delay durations must not be negative")
	}
	return nil
}

// Typewriter returns the per-character reveal interval.
func (c *Config) Typewriter() time.Duration {
	return time.Duration(c.TypewriterMS) * time.Millisecond
}

// Transition returns the duration of each half of a level fade.
func (c *Config) Transition() time.Duration {
	return time.Duration(c.TransitionMS) * time.Millisecond
}

// Dice returns the dice animation duration.
func (c *Config) Dice() time.Duration {
	return time.Duration(c.DiceMS) * time.Millisecond
}

// ChunkDelay returns the dev backend's pause between streamed chunks.
func (c *Config) ChunkDelay() time.Duration {
	return time.Duration(c.ChunkDelayMS) * time.Millisecond
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}
