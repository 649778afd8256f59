package database

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/lib/pq"
)

// =============================================================================
// Dialect Tests
// =============================================================================

func TestNewDialect(t *testing.T) {
	if _, ok := NewDialect(DialectSQLite).(*SQLiteDialect); !ok {
		t.Error("Expected *SQLiteDialect for sqlite")
	}
	if _, ok := NewDialect(DialectPostgres).(*PostgresDialect); !ok {
		t.Error("Expected *PostgresDialect for postgres")
	}
	// Unknown dialect should default to SQLite
	if _, ok := NewDialect("unknown").(*SQLiteDialect); !ok {
		t.Error("Expected default *SQLiteDialect")
	}
}

func TestDialect_Placeholder(t *testing.T) {
	tests := []struct {
		dialect  Dialect
		position int
		want     string
	}{
		{&SQLiteDialect{}, 1, "?"},
		{&SQLiteDialect{}, 10, "?"},
		{&PostgresDialect{}, 1, "$1"},
		{&PostgresDialect{}, 2, "$2"},
		{&PostgresDialect{}, 100, "$100"},
	}
	for _, tt := range tests {
		if got := tt.dialect.Placeholder(tt.position); got != tt.want {
			t.Errorf("%T.Placeholder(%d) = %q, want %q", tt.dialect, tt.position, got, tt.want)
		}
	}
}

func TestDialect_LockingAndPool(t *testing.T) {
	sqlite, pg := &SQLiteDialect{}, &PostgresDialect{}
	if sqlite.LockClause() != "" || pg.LockClause() != " FOR UPDATE" {
		t.Errorf("LockClause() = %q / %q", sqlite.LockClause(), pg.LockClause())
	}
	if sqlite.MaxOpenConns() != 1 || pg.MaxOpenConns() != 0 {
		t.Errorf("MaxOpenConns() = %d / %d, want 1 / 0", sqlite.MaxOpenConns(), pg.MaxOpenConns())
	}
	if len(pg.InitStatements()) != 0 {
		t.Errorf("Postgres InitStatements() = %v, want none", pg.InitStatements())
	}
	if got := sqlite.InitStatements(); len(got) != 3 || got[0] != "PRAGMA foreign_keys = ON" {
		t.Errorf("SQLite InitStatements() = %v", got)
	}
}

func TestDialect_IsDuplicateKeyError(t *testing.T) {
	tests := []struct {
		dialect Dialect
		err     error
		want    bool
	}{
		{&SQLiteDialect{}, nil, false},
		{&SQLiteDialect{}, errors.New("some random error"), false},
		{&SQLiteDialect{}, errors.New("UNIQUE constraint failed: active_walks.player_id"), true},
		{&SQLiteDialect{}, errors.New("constraint failed: PRIMARY KEY constraint failed"), true},
		{&SQLiteDialect{}, errors.New("FOREIGN KEY constraint failed"), false},
		{&PostgresDialect{}, nil, false},
		{&PostgresDialect{}, &pq.Error{Code: "23505"}, true},
		{&PostgresDialect{}, fmt.Errorf("create walk: %w", &pq.Error{Code: "23505"}), true},
		{&PostgresDialect{}, &pq.Error{Code: "23503"}, false},
		{&PostgresDialect{}, errors.New("duplicate key value violates unique constraint"), true},
	}
	for _, tt := range tests {
		if got := tt.dialect.IsDuplicateKeyError(tt.err); got != tt.want {
			t.Errorf("%T.IsDuplicateKeyError(%v) = %v, want %v", tt.dialect, tt.err, got, tt.want)
		}
	}
}

// =============================================================================
// QueryBuilder Tests
// =============================================================================

func TestQueryBuilder_Build(t *testing.T) {
	sqlite := NewQueryBuilder(&SQLiteDialect{})
	pg := NewQueryBuilder(&PostgresDialect{})

	tests := []struct {
		input  string
		sqlite string
		pg     string
	}{
		{"SELECT * FROM players", "SELECT * FROM players", "SELECT * FROM players"},
		{"SELECT * FROM players WHERE id = ?", "SELECT * FROM players WHERE id = ?", "SELECT * FROM players WHERE id = $1"},
		{
			"UPDATE inventory SET quantity = ? WHERE player_id = ? AND item_id = ?",
			"UPDATE inventory SET quantity = ? WHERE player_id = ? AND item_id = ?",
			"UPDATE inventory SET quantity = $1 WHERE player_id = $2 AND item_id = $3",
		},
	}
	for _, tt := range tests {
		if got := sqlite.Build(tt.input); got != tt.sqlite {
			t.Errorf("SQLite Build(%q) = %q, want %q", tt.input, got, tt.sqlite)
		}
		if got := pg.Build(tt.input); got != tt.pg {
			t.Errorf("Postgres Build(%q) = %q, want %q", tt.input, got, tt.pg)
		}
	}
}

func TestQueryBuilder_InsertAndUpdate(t *testing.T) {
	pg := NewQueryBuilder(&PostgresDialect{})

	if got, want := pg.Insert("active_walks", []string{"id", "tier"}),
		"INSERT INTO active_walks (id, tier) VALUES ($1, $2)"; got != want {
		t.Errorf("Insert = %q, want %q", got, want)
	}
	if got, want := pg.Update("players", []string{"money", "energy", "updated_at"}, "id = ?"),
		"UPDATE players SET money = $1, energy = $2, updated_at = $3 WHERE id = $4"; got != want {
		t.Errorf("Update = %q, want %q", got, want)
	}
	if got := placeholders(0); got != "" {
		t.Errorf("placeholders(0) = %q", got)
	}
}

// =============================================================================
// Config Tests
// =============================================================================

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("/path/to/test.db")
	if cfg.Driver != "sqlite" || cfg.SQLitePath != "/path/to/test.db" {
		t.Errorf("DefaultConfig = %+v", cfg)
	}
	if cfg.Postgres.Port != 5432 || cfg.Postgres.MaxOpenConns != 25 || cfg.Postgres.ConnMaxLifetime != 5*time.Minute {
		t.Errorf("Postgres defaults = %+v", cfg.Postgres)
	}
}

func TestPostgresConfig_DSN(t *testing.T) {
	tests := []struct {
		cfg  PostgresConfig
		want string
	}{
		{
			PostgresConfig{Host: "db", Port: 5433, User: "u", Database: "bomzh", SSLMode: "require", Password: "secret"},
			"host=db port=5433 user=u dbname=bomzh sslmode=require password=secret",
		},
		{
			PostgresConfig{Host: "localhost", Port: 5432, User: "u", Database: "d"},
			"host=localhost port=5432 user=u dbname=d sslmode=disable",
		},
	}
	for _, tt := range tests {
		if got := tt.cfg.DSN(); got != tt.want {
			t.Errorf("DSN() = %q, want %q", got, tt.want)
		}
	}
}
