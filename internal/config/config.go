// Package config loads the share engine's runtime configuration from an
// optional YAML file and environment overrides.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"gopkg.in/yaml.v3"

	"github.com/gravitas/share-engine/internal/address"
	"github.com/gravitas/share-engine/internal/curve"
)

// Config holds every setting the server reads at startup.
// Load fills defaults first, then the file, then environment variables.
type Config struct {
	Server struct {
		Port            string        `yaml:"port"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
		RequestTimeout  time.Duration `yaml:"request_timeout"`
	} `yaml:"server"`

	Database struct {
		URL string `yaml:"url"` // empty selects the in-memory store
	} `yaml:"database"`

	Redis struct {
		URL      string        `yaml:"url"` // empty disables the cache
		CacheTTL time.Duration `yaml:"cache_ttl"`
	} `yaml:"redis"`

	Engine struct {
		ProgramID string `yaml:"program_id"`
		BasePrice uint64 `yaml:"base_price"`
		Steepness uint64 `yaml:"steepness"`
	} `yaml:"engine"`

	Limits struct {
		MaxTradeAmount int64 `yaml:"max_trade_amount"`
		MaxPerCreator  int64 `yaml:"max_per_creator"`
		MaxTotal       int64 `yaml:"max_total"`
	} `yaml:"limits"`

	Faucet struct {
		Enabled   bool   `yaml:"enabled"`
		MaxAmount uint64 `yaml:"max_amount"`
	} `yaml:"faucet"`

	Logging struct {
		Level  string `yaml:"level"`  // debug, info, warn, error
		Format string `yaml:"format"` // json or text
	} `yaml:"logging"`
}

// Default returns a configuration for a local in-memory server on :8080.
func Default() *Config {
	var cfg Config
	cfg.Server.Port = "8080"
	cfg.Server.ShutdownTimeout = 5 * time.Second
	cfg.Server.RequestTimeout = 30 * time.Second
	cfg.Redis.CacheTTL = 30 * time.Second
	cfg.Engine.ProgramID = address.DefaultProgramID.String()
	cfg.Engine.BasePrice = curve.DefaultBase
	cfg.Engine.Steepness = curve.DefaultSteepness
	cfg.Faucet.MaxAmount = 1_000_000_000
	cfg.Logging.Level = "info"
	cfg.Logging.Format = "json"
	return &cfg
}

// Load reads the YAML file at path (skipped when path is empty), applies
// environment overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	if err := overrideWithEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// overrideWithEnv applies environment variables on top of the file values.
func overrideWithEnv(cfg *Config) error {
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Port = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Redis.URL = v
	}
	if v := os.Getenv("PROGRAM_ID"); v != "" {
		cfg.Engine.ProgramID = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("FAUCET_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: FAUCET_ENABLED: %w", err)
		}
		cfg.Faucet.Enabled = enabled
	}
	return nil
}

// Validate checks configuration validity.
func (c *Config) Validate() error {
	port, err := strconv.Atoi(c.Server.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("invalid port: %q", c.Server.Port)
	}
	if c.Server.ShutdownTimeout <= 0 || c.Server.RequestTimeout <= 0 {
		return fmt.Errorf("server timeouts must be positive")
	}
	if _, err := c.ProgramKey(); err != nil {
		return err
	}
	if c.Engine.BasePrice == 0 {
		return fmt.Errorf("base price must be positive")
	}
	if c.Limits.MaxTradeAmount < 0 || c.Limits.MaxPerCreator < 0 || c.Limits.MaxTotal < 0 {
		return fmt.Errorf("limits must not be negative")
	}
	if c.Redis.URL != "" && c.Database.URL == "" {
		return fmt.Errorf("redis cache requires a database url")
	}
	if c.Redis.URL != "" && c.Redis.CacheTTL <= 0 {
		return fmt.Errorf("cache ttl must be positive")
	}
	if c.Faucet.Enabled && c.Faucet.MaxAmount == 0 {
		return fmt.Errorf("faucet max amount must be positive when enabled")
	}
	if _, err := parseLevel(c.Logging.Level); err != nil {
		return err
	}
	switch c.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("invalid log format: %q", c.Logging.Format)
	}
	return nil
}

// ProgramKey parses the configured program id.
func (c *Config) ProgramKey() (solana.PublicKey, error) {
	key, err := solana.PublicKeyFromBase58(c.Engine.ProgramID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("invalid program id %q: %w", c.Engine.ProgramID, err)
	}
	return key, nil
}

// FaucetMax is the airdrop cap, or 0 when the faucet is off.
func (c *Config) FaucetMax() uint64 {
	if !c.Faucet.Enabled {
		return 0
	}
	return c.Faucet.MaxAmount
}

// NewLogger builds the slog logger described by the logging section.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	level, _ := parseLevel(c.Logging.Level)
	opts := &slog.HandlerOptions{Level: level}
	if c.Logging.Format == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level: %q", s)
	}
	return level, nil
}
