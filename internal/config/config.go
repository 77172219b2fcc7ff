// Package config loads server configuration from YAML and DECKPLAY_* env vars.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/magefree/deckplay-server-go/internal/deck"
)

// Config is the full server configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Logging LoggingConfig `mapstructure:"logging"`
	Rules   RulesConfig   `mapstructure:"rules"`
	Storage StorageConfig `mapstructure:"storage"`
	Catalog CatalogConfig `mapstructure:"catalog"`
	Auth    AuthConfig    `mapstructure:"auth"`
}

type ServerConfig struct {
	WebSocket WebSocketConfig `mapstructure:"websocket"`
	GRPC      GRPCConfig      `mapstructure:"grpc"`
}

type WebSocketConfig struct {
	Address string `mapstructure:"address"`
	// CommandsPerSecond limits commands per connection; burst is CommandBurst.
	CommandsPerSecond float64 `mapstructure:"commands_per_second"`
	CommandBurst      int     `mapstructure:"command_burst"`
}

type GRPCConfig struct {
	Address              string `mapstructure:"address"`
	MaxConcurrentStreams int    `mapstructure:"max_concurrent_streams"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// RulesConfig mirrors deck.Rules.
type RulesConfig struct {
	BaseTarget      int    `mapstructure:"base_target"`
	MinNulls        int    `mapstructure:"min_nulls"`
	DefaultCapacity int    `mapstructure:"default_capacity"`
	HandLimit       int    `mapstructure:"hand_limit"`
	SimpleCounters  bool   `mapstructure:"simple_counters"`
	CapacityPolicy  string `mapstructure:"capacity_policy"`
	MaxDeckSize     int    `mapstructure:"max_deck_size"`
}

type StorageConfig struct {
	// Driver is one of memory, sqlite, postgres.
	Driver       string `mapstructure:"driver"`
	Path         string `mapstructure:"path"`
	DSN          string `mapstructure:"dsn"`
	Namespace    string `mapstructure:"namespace"`
	BackupPrefix string `mapstructure:"backup_prefix"`
}

type CatalogConfig struct {
	Path        string `mapstructure:"path"`
	PresetsPath string `mapstructure:"presets_path"`
	// Source is file or postgres.
	Source string `mapstructure:"source"`
	Watch  bool   `mapstructure:"watch"`
}

type AuthConfig struct {
	// AdminPasswordHash is a bcrypt hash; empty disables export/import.
	AdminPasswordHash string `mapstructure:"admin_password_hash"`
}

// Load reads path (any viper-supported format) over the defaults. A missing
// file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("DECKPLAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.websocket.address", ":8080")
	v.SetDefault("server.websocket.commands_per_second", 20.0)
	v.SetDefault("server.websocket.command_burst", 40)
	v.SetDefault("server.grpc.address", ":50051")
	v.SetDefault("server.grpc.max_concurrent_streams", 100)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("rules.base_target", 26)
	v.SetDefault("rules.min_nulls", 5)
	v.SetDefault("rules.default_capacity", 10)
	v.SetDefault("rules.hand_limit", 5)
	v.SetDefault("rules.simple_counters", false)
	v.SetDefault("rules.capacity_policy", "cost")
	v.SetDefault("rules.max_deck_size", deck.DefaultMaxDeckSize)

	v.SetDefault("storage.driver", "memory")
	v.SetDefault("storage.path", "data/deckplay.db")
	v.SetDefault("storage.dsn", "")
	v.SetDefault("storage.namespace", "deckplay/")
	v.SetDefault("storage.backup_prefix", "deckplay-backup/")

	v.SetDefault("catalog.path", "config/cards.yaml")
	v.SetDefault("catalog.presets_path", "config/presets.yaml")
	v.SetDefault("catalog.source", "file")
	v.SetDefault("catalog.watch", false)

	v.SetDefault("auth.admin_password_hash", "")
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "memory", "sqlite", "postgres":
	default:
		return fmt.Errorf("storage.driver %q: want memory, sqlite or postgres", c.Storage.Driver)
	}
	if c.Storage.Driver == "postgres" && c.Storage.DSN == "" {
		return errors.New("storage.dsn is required for the postgres driver")
	}
	if c.Storage.Namespace == "" {
		return errors.New("storage.namespace is required")
	}
	if strings.HasPrefix(c.Storage.BackupPrefix, c.Storage.Namespace) {
		return fmt.Errorf("storage.backup_prefix %q must not start with storage.namespace %q",
			c.Storage.BackupPrefix, c.Storage.Namespace)
	}
	if err := c.Rules.DeckRules().Validate(); err != nil {
		return fmt.Errorf("rules: %w", err)
	}
	switch c.Catalog.Source {
	case "file", "postgres":
	default:
		return fmt.Errorf("catalog.source %q: want file or postgres", c.Catalog.Source)
	}
	if c.Catalog.Source == "postgres" && c.Storage.DSN == "" {
		return errors.New("catalog.source postgres needs storage.dsn")
	}
	return nil
}

// DeckRules converts the rules section.
func (r RulesConfig) DeckRules() deck.Rules {
	return deck.Rules{
		BaseTarget:       r.BaseTarget,
		MinNulls:         r.MinNulls,
		DefaultCapacity:  r.DefaultCapacity,
		DefaultHandLimit: r.HandLimit,
		SimpleCounters:   r.SimpleCounters,
		Policy:           deck.CapacityPolicy(r.CapacityPolicy),
		MaxDeckSize:      r.MaxDeckSize,
	}
}
