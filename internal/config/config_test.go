package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Database.Driver != "sqlite" || cfg.Database.SQLitePath != "data/bomzh.db" {
		t.Errorf("database defaults = %+v", cfg.Database)
	}
	if len(cfg.Server.WebSocket.AllowedOrigins) != 0 {
		t.Errorf("expected empty allowed origins by default, got %v", cfg.Server.WebSocket.AllowedOrigins)
	}
	if cfg.Server.WebSocket.MaxMessageSize != 4096 {
		t.Errorf("expected max message size 4096, got %d", cfg.Server.WebSocket.MaxMessageSize)
	}
	if cfg.Game.Locale != "ru" || cfg.Game.DefaultGuild != "global" {
		t.Errorf("game defaults = %+v", cfg.Game)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults must validate: %v", err)
	}
}

func TestLoadConfig_FileNotExists(t *testing.T) {
	cfg, err := LoadConfig("/nonexistent/path/config.yaml")
	if err != nil {
		t.Errorf("expected no error for missing file, got %v", err)
	}
	if cfg == nil || cfg.Server.Address != ":8080" {
		t.Fatalf("expected defaults for missing file, got %+v", cfg)
	}
}

func TestLoadConfig_ValidFile(t *testing.T) {
	path := writeConfig(t, `
database:
  driver: postgres
  postgres:
    host: db.internal
    port: 5433
    database: bomzh
game:
  fight_ttl: 10m
  locale: en
server:
  websocket:
    allowed_origins:
      - "https://example.com"
    max_message_size: 8192
name_filter:
  enabled: true
  banned_words: [admin]
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Database.Driver != "postgres" || cfg.Database.Postgres.Host != "db.internal" || cfg.Database.Postgres.Port != 5433 {
		t.Errorf("database = %+v", cfg.Database)
	}
	// unset keys keep their defaults
	if cfg.Database.Postgres.MaxOpenConns != 25 {
		t.Errorf("MaxOpenConns = %d, want default 25", cfg.Database.Postgres.MaxOpenConns)
	}
	if cfg.Game.FightTTL != 10*time.Minute || cfg.Game.Locale != "en" || cfg.Game.SchedulerInterval != 30*time.Second {
		t.Errorf("game = %+v", cfg.Game)
	}
	if len(cfg.Server.WebSocket.AllowedOrigins) != 1 || cfg.Server.WebSocket.MaxMessageSize != 8192 {
		t.Errorf("websocket = %+v", cfg.Server.WebSocket)
	}
	if !cfg.NameFilter.Enabled || len(cfg.NameFilter.BannedWords) != 1 {
		t.Errorf("name filter = %+v", cfg.NameFilter)
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	path := writeConfig(t, "game:\n  locale: en\n")
	t.Setenv("BOMZH_LOCALE", "ru")
	t.Setenv("BOMZH_DB_PATH", "/tmp/other.db")
	t.Setenv("BOMZH_FIGHT_TTL", "2m")
	t.Setenv("BOMZH_ALLOWED_ORIGINS", "https://a.example,https://b.example")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Game.Locale != "ru" || cfg.Database.SQLitePath != "/tmp/other.db" || cfg.Game.FightTTL != 2*time.Minute {
		t.Errorf("env overrides not applied: game=%+v db=%+v", cfg.Game, cfg.Database)
	}
	if got := cfg.Server.WebSocket.AllowedOrigins; len(got) != 2 || got[1] != "https://b.example" {
		t.Errorf("AllowedOrigins = %v", got)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad yaml", "game: [unclosed"},
		{"unknown driver", "database:\n  driver: mysql\n"},
		{"empty sqlite path", "database:\n  driver: sqlite\n  sqlite_path: \"\"\n"},
		{"zero scheduler interval", "game:\n  scheduler_interval: 0s\n"},
		{"negative fight ttl", "game:\n  fight_ttl: -1m\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadConfig(writeConfig(t, tt.content)); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestIsOriginAllowed_EmptyList_SameOrigin(t *testing.T) {
	cfg := WebSocketConfig{AllowedOrigins: []string{}}

	if !cfg.IsOriginAllowed("", "localhost:4000") {
		t.Error("expected empty origin to be allowed (same-origin)")
	}
	if !cfg.IsOriginAllowed("http://localhost:4000", "localhost:4000") {
		t.Error("expected matching origin to be allowed (same-origin)")
	}
	if cfg.IsOriginAllowed("http://evil.com", "localhost:4000") {
		t.Error("expected different origin to be rejected (same-origin policy)")
	}
}

func TestIsOriginAllowed_List(t *testing.T) {
	cfg := WebSocketConfig{AllowedOrigins: []string{"https://example.com", "http://localhost:3000"}}

	if !cfg.IsOriginAllowed("https://example.com", "localhost:4000") {
		t.Error("expected exact match to be allowed")
	}
	if cfg.IsOriginAllowed("https://example.com:8080", "localhost:4000") {
		t.Error("expected partial match to be rejected")
	}

	wildcard := WebSocketConfig{AllowedOrigins: []string{"*"}}
	if !wildcard.IsOriginAllowed("http://anything.com", "localhost:4000") {
		t.Error("expected wildcard to allow any origin")
	}
}

func TestIsSameOrigin(t *testing.T) {
	tests := []struct {
		origin      string
		requestHost string
		expected    bool
	}{
		{"", "localhost:4000", true},
		{"http://localhost:4000", "localhost:4000", true},
		{"https://localhost:4000", "localhost:4000", true},
		{"http://localhost:4000/", "localhost:4000", true},
		{"http://example.com", "localhost:4000", false},
		{"http://localhost:3000", "localhost:4000", false},
		{"ws://localhost:4000", "localhost:4000", true},
	}

	for _, tt := range tests {
		if got := isSameOrigin(tt.origin, tt.requestHost); got != tt.expected {
			t.Errorf("isSameOrigin(%q, %q) = %v, want %v", tt.origin, tt.requestHost, got, tt.expected)
		}
	}
}
