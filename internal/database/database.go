// Package database persists players, inventories, sessions and world bosses
// in SQLite or PostgreSQL. Database implements storage.Repository.
package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/waka2kekagg-star/bomzh-simulator/internal/storage"
)

// Database wraps the SQL connection pool.
type Database struct {
	db      *sql.DB
	dialect Dialect
	qb      *QueryBuilder
	now     func() time.Time
}

var _ storage.Repository = (*Database)(nil)

// Open opens or creates the SQLite database at the given path.
func Open(path string) (*Database, error) {
	return OpenWithConfig(DefaultConfig(path))
}

// OpenWithConfig opens the database named by cfg and runs migrations.
func OpenWithConfig(cfg Config) (*Database, error) {
	dialect := NewDialect(DialectType(cfg.Driver))

	var dsn string
	switch dialect.(type) {
	case *PostgresDialect:
		dsn = cfg.Postgres.DSN()
	default:
		if cfg.SQLitePath == "" {
			return nil, fmt.Errorf("sqlite path is empty")
		}
		if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		dsn = cfg.SQLitePath
	}

	db, err := sql.Open(dialect.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if n := dialect.MaxOpenConns(); n > 0 {
		db.SetMaxOpenConns(n)
	} else if _, ok := dialect.(*PostgresDialect); ok {
		db.SetMaxOpenConns(cfg.Postgres.MaxOpenConns)
		db.SetMaxIdleConns(cfg.Postgres.MaxIdleConns)
		db.SetConnMaxLifetime(cfg.Postgres.ConnMaxLifetime)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	for _, stmt := range dialect.InitStatements() {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("init statement %q: %w", stmt, err)
		}
	}

	d := &Database{
		db:      db,
		dialect: dialect,
		qb:      NewQueryBuilder(dialect),
		now:     time.Now,
	}

	if err := d.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return d, nil
}

// Close closes the database connection.
func (d *Database) Close() error {
	return d.db.Close()
}

// DB returns the underlying sql.DB for advanced operations.
func (d *Database) DB() *sql.DB {
	return d.db
}

// Dialect returns the dialect the database was opened with.
func (d *Database) Dialect() Dialect {
	return d.dialect
}

// Tables lists every table in dependency order, parents first.
var Tables = []string{"players", "inventory", "active_fights", "active_walks", "world_bosses"}

// migrate creates the schema if it doesn't exist. Timestamps are unix
// milliseconds so both dialects order and compare them the same way.
func (d *Database) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS players (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			country_id TEXT NOT NULL DEFAULT '',
			class_id TEXT NOT NULL DEFAULT '',
			level INTEGER NOT NULL DEFAULT 1,
			xp INTEGER NOT NULL DEFAULT 0,
			skill_points INTEGER NOT NULL DEFAULT 0,
			title TEXT NOT NULL DEFAULT '',
			health INTEGER NOT NULL DEFAULT 100,
			max_health INTEGER NOT NULL DEFAULT 100,
			hunger INTEGER NOT NULL DEFAULT 100,
			thirst INTEGER NOT NULL DEFAULT 100,
			energy INTEGER NOT NULL DEFAULT 100,
			addiction INTEGER NOT NULL DEFAULT 0,
			money INTEGER NOT NULL DEFAULT 100,
			bank INTEGER NOT NULL DEFAULT 0,
			rep_cops INTEGER NOT NULL DEFAULT 0,
			rep_bandits INTEGER NOT NULL DEFAULT 0,
			rep_street INTEGER NOT NULL DEFAULT 0,
			trait_aggressive INTEGER NOT NULL DEFAULT 0,
			trait_greedy INTEGER NOT NULL DEFAULT 0,
			trait_loyal INTEGER NOT NULL DEFAULT 0,
			trait_addict INTEGER NOT NULL DEFAULT 0,
			equipped_weapon TEXT NOT NULL DEFAULT 'fists',
			equipped_armor TEXT NOT NULL DEFAULT 'rags',
			equipped_backpack TEXT NOT NULL DEFAULT 'plastic_bag',
			weapon_durability INTEGER NOT NULL DEFAULT 100,
			armor_durability INTEGER NOT NULL DEFAULT 100,
			backpack_durability INTEGER NOT NULL DEFAULT 100,
			total_fights INTEGER NOT NULL DEFAULT 0,
			fights_won INTEGER NOT NULL DEFAULT 0,
			fights_lost INTEGER NOT NULL DEFAULT 0,
			bosses_killed INTEGER NOT NULL DEFAULT 0,
			total_money_earned INTEGER NOT NULL DEFAULT 0,
			total_items_found INTEGER NOT NULL DEFAULT 0,
			walks_completed INTEGER NOT NULL DEFAULT 0,
			players_killed INTEGER NOT NULL DEFAULT 0,
			deaths INTEGER NOT NULL DEFAULT 0,
			daily_streak INTEGER NOT NULL DEFAULT 0,
			last_daily BIGINT,
			last_walk BIGINT,
			last_fight BIGINT,
			last_stat_update BIGINT,
			walk_ends_at BIGINT,
			created_at BIGINT NOT NULL,
			updated_at BIGINT NOT NULL,
			is_dead BOOLEAN NOT NULL DEFAULT FALSE,
			is_in_fight BOOLEAN NOT NULL DEFAULT FALSE,
			is_walking BOOLEAN NOT NULL DEFAULT FALSE
		)`,

		`CREATE TABLE IF NOT EXISTS inventory (
			player_id TEXT NOT NULL REFERENCES players(id) ON DELETE CASCADE,
			item_id TEXT NOT NULL,
			quantity INTEGER NOT NULL,
			durability INTEGER NOT NULL,
			obtained_at BIGINT NOT NULL,
			PRIMARY KEY (player_id, item_id, durability)
		)`,

		`CREATE TABLE IF NOT EXISTS active_fights (
			id TEXT PRIMARY KEY,
			player_id TEXT NOT NULL UNIQUE REFERENCES players(id) ON DELETE CASCADE,
			opponent_player_id TEXT UNIQUE REFERENCES players(id) ON DELETE CASCADE,
			enemy_kind TEXT NOT NULL,
			enemy_id TEXT NOT NULL DEFAULT '',
			player_hp INTEGER NOT NULL,
			opponent_hp INTEGER NOT NULL DEFAULT 0,
			enemy_hp INTEGER NOT NULL DEFAULT 0,
			enemy_max_hp INTEGER NOT NULL DEFAULT 0,
			round INTEGER NOT NULL DEFAULT 1,
			channel_id TEXT NOT NULL DEFAULT '',
			started_at BIGINT NOT NULL,
			expires_at BIGINT NOT NULL,
			state TEXT NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS active_walks (
			id TEXT PRIMARY KEY,
			player_id TEXT NOT NULL UNIQUE REFERENCES players(id) ON DELETE CASCADE,
			tier TEXT NOT NULL,
			started_at BIGINT NOT NULL,
			ends_at BIGINT NOT NULL,
			events TEXT NOT NULL DEFAULT '[]',
			channel_id TEXT NOT NULL DEFAULT ''
		)`,

		`CREATE TABLE IF NOT EXISTS world_bosses (
			boss_id TEXT NOT NULL,
			guild_id TEXT NOT NULL,
			current_hp INTEGER NOT NULL,
			max_hp INTEGER NOT NULL,
			alive BOOLEAN NOT NULL DEFAULT TRUE,
			damage TEXT NOT NULL DEFAULT '{}',
			killed_by TEXT NOT NULL DEFAULT '',
			killed_at BIGINT,
			respawns_at BIGINT,
			PRIMARY KEY (boss_id, guild_id)
		)`,

		// Indexes for the scheduler sweeps and leaderboards
		`CREATE INDEX IF NOT EXISTS idx_active_fights_expires_at ON active_fights(expires_at)`,
		`CREATE INDEX IF NOT EXISTS idx_active_walks_ends_at ON active_walks(ends_at)`,
		`CREATE INDEX IF NOT EXISTS idx_players_level ON players(level)`,
		`CREATE INDEX IF NOT EXISTS idx_players_money ON players(money)`,
	}

	// Columns added after the first release (errors mean the column exists)
	safeMigrations := []string{
		`ALTER TABLE players ADD COLUMN players_killed INTEGER NOT NULL DEFAULT 0`,
		`ALTER TABLE players ADD COLUMN skill_points INTEGER NOT NULL DEFAULT 0`,
	}

	for _, m := range migrations {
		if _, err := d.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}

	for _, m := range safeMigrations {
		_, _ = d.db.Exec(m)
	}

	return nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// toMillis stores the zero time as NULL.
func toMillis(t time.Time) sql.NullInt64 {
	if t.IsZero() {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixMilli(), Valid: true}
}

func fromMillis(v sql.NullInt64) time.Time {
	if !v.Valid {
		return time.Time{}
	}
	return time.UnixMilli(v.Int64).UTC()
}

// dbValue converts a patch value to its column representation.
func dbValue(v any) any {
	if t, ok := v.(time.Time); ok {
		return toMillis(t)
	}
	return v
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
