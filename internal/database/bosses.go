package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/waka2kekagg-star/bomzh-simulator/internal/storage"
)

const bossColumns = `boss_id, guild_id, current_hp, max_hp, alive, damage, killed_by, killed_at, respawns_at`

func scanBoss(s scanner) (*storage.WorldBoss, error) {
	var (
		b                   storage.WorldBoss
		damage              string
		killedAt, respawnAt sql.NullInt64
	)
	if err := s.Scan(&b.BossID, &b.GuildID, &b.CurrentHP, &b.MaxHP, &b.Alive, &damage,
		&b.KilledBy, &killedAt, &respawnAt); err != nil {
		return nil, err
	}
	b.Damage = make(map[string]int)
	if err := json.Unmarshal([]byte(damage), &b.Damage); err != nil {
		return nil, fmt.Errorf("decode damage ledger of %s/%s: %w", b.GuildID, b.BossID, err)
	}
	b.KilledAt = fromMillis(killedAt)
	b.RespawnsAt = fromMillis(respawnAt)
	return &b, nil
}

func (d *Database) GetWorldBoss(ctx context.Context, bossID, guildID string) (*storage.WorldBoss, error) {
	row := d.db.QueryRowContext(ctx, d.qb.Build(
		"SELECT "+bossColumns+" FROM world_bosses WHERE boss_id = ? AND guild_id = ?"), bossID, guildID)
	b, err := scanBoss(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get world boss %s/%s: %w", guildID, bossID, err)
	}
	return b, nil
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (d *Database) upsertBoss(ctx context.Context, ex execer, b *storage.WorldBoss) error {
	damage, err := json.Marshal(b.Damage)
	if err != nil {
		return fmt.Errorf("encode damage ledger: %w", err)
	}
	if b.Damage == nil {
		damage = []byte("{}")
	}

	_, err = ex.ExecContext(ctx, d.qb.Build(`
		INSERT INTO world_bosses (`+bossColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (boss_id, guild_id) DO UPDATE SET
			current_hp = excluded.current_hp,
			max_hp = excluded.max_hp,
			alive = excluded.alive,
			damage = excluded.damage,
			killed_by = excluded.killed_by,
			killed_at = excluded.killed_at,
			respawns_at = excluded.respawns_at`),
		b.BossID, b.GuildID, b.CurrentHP, b.MaxHP, b.Alive, string(damage),
		b.KilledBy, toMillis(b.KilledAt), toMillis(b.RespawnsAt))
	if err != nil {
		return fmt.Errorf("save world boss %s/%s: %w", b.GuildID, b.BossID, err)
	}
	return nil
}

// SaveWorldBoss creates or replaces the boss row.
func (d *Database) SaveWorldBoss(ctx context.Context, b *storage.WorldBoss) error {
	return d.upsertBoss(ctx, d.db, b)
}

// ApplyBossDamage reads, damages and writes the boss in one transaction.
// The row is seeded at full health first so the locking read always finds it.
func (d *Database) ApplyBossDamage(ctx context.Context, req storage.BossDamage) (storage.BossDamageResult, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return storage.BossDamageResult{}, fmt.Errorf("begin boss damage: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, d.qb.Build(`
		INSERT INTO world_bosses (boss_id, guild_id, current_hp, max_hp, alive, damage, killed_by)
		VALUES (?, ?, ?, ?, ?, '{}', '')
		ON CONFLICT (boss_id, guild_id) DO NOTHING`),
		req.BossID, req.GuildID, req.MaxHP, req.MaxHP, true)
	if err != nil {
		return storage.BossDamageResult{}, fmt.Errorf("seed world boss: %w", err)
	}

	row := tx.QueryRowContext(ctx, d.qb.Build(
		"SELECT "+bossColumns+" FROM world_bosses WHERE boss_id = ? AND guild_id = ?"+d.dialect.LockClause()),
		req.BossID, req.GuildID)
	current, err := scanBoss(row)
	if err != nil {
		return storage.BossDamageResult{}, fmt.Errorf("read world boss: %w", err)
	}

	res, err := storage.ApplyDamage(current, req)
	if err != nil {
		// nothing changed; the seed row is rolled back with the rest
		return res, err
	}

	if err := d.upsertBoss(ctx, tx, res.Boss); err != nil {
		return storage.BossDamageResult{}, err
	}
	if err := tx.Commit(); err != nil {
		return storage.BossDamageResult{}, fmt.Errorf("commit boss damage: %w", err)
	}
	return res, nil
}
