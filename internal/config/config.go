// Package config loads the game server configuration from YAML with
// environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/waka2kekagg-star/bomzh-simulator/internal/database"
	"github.com/waka2kekagg-star/bomzh-simulator/internal/namefilter"
)

// GameConfig is the root of data/config.yaml.
type GameConfig struct {
	Database   database.Config   `yaml:"database"`
	Game       GameSettings      `yaml:"game"`
	Server     ServerConfig      `yaml:"server"`
	Telemetry  TelemetryConfig   `yaml:"telemetry"`
	Catalog    CatalogConfig     `yaml:"catalog"`
	NameFilter namefilter.Config `yaml:"name_filter"`
}

// GameSettings tunes the simulation.
type GameSettings struct {
	// FightTTL overrides the catalog fight lifetime when positive.
	FightTTL time.Duration `yaml:"fight_ttl" env:"BOMZH_FIGHT_TTL"`

	// StatGranularity is the shortest interval that triggers need decay.
	StatGranularity time.Duration `yaml:"stat_granularity" env:"BOMZH_STAT_GRANULARITY"`

	// SchedulerInterval is how often due walks and expired fights are swept.
	SchedulerInterval time.Duration `yaml:"scheduler_interval" env:"BOMZH_SCHEDULER_INTERVAL"`

	// DefaultGuild scopes world bosses for requests that carry no guild.
	DefaultGuild string `yaml:"default_guild" env:"BOMZH_DEFAULT_GUILD"`

	// Locale selects the message catalog, "ru" or "en".
	Locale string `yaml:"locale" env:"BOMZH_LOCALE"`

	// Seed fixes the random source; 0 seeds from the clock.
	Seed int64 `yaml:"seed" env:"BOMZH_SEED"`
}

// ServerConfig holds the gateway settings.
type ServerConfig struct {
	Address     string            `yaml:"address" env:"BOMZH_SERVER_ADDRESS"`
	WebSocket   WebSocketConfig   `yaml:"websocket"`
	Connections ConnectionsConfig `yaml:"connections"`
	RateLimit   RateLimitConfig   `yaml:"rate_limit"`
	Flood       FloodConfig       `yaml:"flood"`
}

// FloodConfig throttles how many requests one connection may send.
type FloodConfig struct {
	Enabled       bool `yaml:"enabled" env:"BOMZH_FLOOD_ENABLED"`
	MaxRequests   int  `yaml:"max_requests"`
	WindowSeconds int  `yaml:"window_seconds"`
}

// RateLimitConfig locks out clients that keep sending malformed requests.
type RateLimitConfig struct {
	// MaxBadRequests is the number of rejected requests before lockout.
	MaxBadRequests int `yaml:"max_bad_requests"`

	// LockoutSeconds is the initial lockout duration in seconds.
	LockoutSeconds int `yaml:"lockout_seconds"`

	// MaxLockoutSeconds caps the exponential backoff.
	MaxLockoutSeconds int `yaml:"max_lockout_seconds"`
}

// ConnectionsConfig holds connection limit settings.
type ConnectionsConfig struct {
	// MaxPerIP is the maximum concurrent connections from a single IP address.
	// 0 means unlimited.
	MaxPerIP int `yaml:"max_per_ip"`

	// MaxTotal is the maximum total concurrent connections. 0 means unlimited.
	MaxTotal int `yaml:"max_total"`
}

// WebSocketConfig holds WebSocket-specific settings.
type WebSocketConfig struct {
	// AllowedOrigins is a list of origins allowed to connect.
	// Empty list enforces same-origin policy; "*" allows all.
	AllowedOrigins []string `yaml:"allowed_origins" env:"BOMZH_ALLOWED_ORIGINS" envSeparator:","`

	// MaxMessageSize is the maximum WebSocket message size in bytes.
	MaxMessageSize int64 `yaml:"max_message_size"`
}

// TelemetryConfig configures OTLP trace export.
type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled" env:"BOMZH_OTEL_ENABLED"`
	Endpoint    string `yaml:"endpoint" env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	Insecure    bool   `yaml:"insecure" env:"BOMZH_OTEL_INSECURE"`
	ServiceName string `yaml:"service_name" env:"OTEL_SERVICE_NAME"`
}

// CatalogConfig points at a directory of YAML files replacing the embedded catalog.
type CatalogConfig struct {
	Dir string `yaml:"dir" env:"BOMZH_CATALOG_DIR"`
}

// DefaultConfig returns a GameConfig with secure defaults.
func DefaultConfig() *GameConfig {
	return &GameConfig{
		Database: database.DefaultConfig("data/bomzh.db"),
		Game: GameSettings{
			StatGranularity:   6 * time.Minute,
			SchedulerInterval: 30 * time.Second,
			DefaultGuild:      "global",
			Locale:            "ru",
		},
		Server: ServerConfig{
			Address: ":8080",
			WebSocket: WebSocketConfig{
				AllowedOrigins: []string{}, // same-origin only
				MaxMessageSize: 4096,
			},
			Connections: ConnectionsConfig{
				MaxPerIP: 5,
				MaxTotal: 500,
			},
			RateLimit: RateLimitConfig{
				MaxBadRequests:    10,
				LockoutSeconds:    30,
				MaxLockoutSeconds: 300,
			},
			Flood: FloodConfig{
				Enabled:       true,
				MaxRequests:   20,
				WindowSeconds: 10,
			},
		},
		Telemetry: TelemetryConfig{
			ServiceName: "bomzh-simulator",
		},
		NameFilter: namefilter.Config{
			Enabled:   true,
			MinLength: namefilter.DefaultMinLength,
			MaxLength: namefilter.DefaultMaxLength,
		},
	}
}

// LoadConfig loads configuration from a YAML file and applies environment
// overrides. A missing file yields the defaults.
func LoadConfig(path string) (*GameConfig, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, config); err != nil {
			return DefaultConfig(), fmt.Errorf("parse %s: %w", path, err)
		}
	case !os.IsNotExist(err):
		return config, fmt.Errorf("read %s: %w", path, err)
	}

	if err := env.Parse(config); err != nil {
		return config, fmt.Errorf("parse env: %w", err)
	}

	if err := config.Validate(); err != nil {
		return config, err
	}
	return config, nil
}

// Validate rejects settings the server cannot start with.
func (c *GameConfig) Validate() error {
	switch database.DialectType(c.Database.Driver) {
	case database.DialectSQLite:
		if c.Database.SQLitePath == "" {
			return fmt.Errorf("database.sqlite_path is required for the sqlite driver")
		}
	case database.DialectPostgres:
		if c.Database.Postgres.Host == "" || c.Database.Postgres.Database == "" {
			return fmt.Errorf("database.postgres host and database are required")
		}
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}
	if c.Game.SchedulerInterval <= 0 {
		return fmt.Errorf("game.scheduler_interval must be positive")
	}
	if c.Game.FightTTL < 0 {
		return fmt.Errorf("game.fight_ttl must not be negative")
	}
	return nil
}

// IsOriginAllowed checks if the given origin is allowed based on the config.
// Returns true if:
// - AllowedOrigins contains "*" (allow all)
// - AllowedOrigins contains the exact origin
// - AllowedOrigins is empty and origin matches the request host (same-origin)
func (c *WebSocketConfig) IsOriginAllowed(origin, requestHost string) bool {
	if len(c.AllowedOrigins) == 0 {
		return isSameOrigin(origin, requestHost)
	}

	for _, allowed := range c.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

// isSameOrigin checks if the origin matches the request host.
func isSameOrigin(origin, requestHost string) bool {
	if origin == "" {
		return true // non-browser client
	}

	originHost := origin
	if idx := strings.Index(origin, "://"); idx != -1 {
		originHost = origin[idx+3:]
	}
	originHost = strings.TrimSuffix(originHost, "/")

	return originHost == requestHost
}
