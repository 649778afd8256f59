package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/waka2kekagg-star/bomzh-simulator/internal/player"
	"github.com/waka2kekagg-star/bomzh-simulator/internal/storage"
)

// playerColumns is the column order shared by playerValues and scanPlayer.
var playerColumns = []string{
	"id", "name", "country_id", "class_id", "level", "xp", "skill_points", "title",
	"health", "max_health", "hunger", "thirst", "energy", "addiction",
	"money", "bank", "rep_cops", "rep_bandits", "rep_street",
	"trait_aggressive", "trait_greedy", "trait_loyal", "trait_addict",
	"equipped_weapon", "equipped_armor", "equipped_backpack",
	"weapon_durability", "armor_durability", "backpack_durability",
	"total_fights", "fights_won", "fights_lost", "bosses_killed", "total_money_earned",
	"total_items_found", "walks_completed", "players_killed", "deaths",
	"daily_streak",
	"last_daily", "last_walk", "last_fight", "last_stat_update", "walk_ends_at",
	"created_at", "updated_at",
	"is_dead", "is_in_fight", "is_walking",
}

var selectPlayer = "SELECT " + strings.Join(playerColumns, ", ") + " FROM players"

func playerValues(p *player.Player) []any {
	return []any{
		p.ID, p.Name, p.Country, p.Class, p.Level, p.XP, p.SkillPoints, p.Title,
		p.Health, p.MaxHealth, p.Hunger, p.Thirst, p.Energy, p.Addiction,
		p.Money, p.Bank, p.RepCops, p.RepBandits, p.RepStreet,
		p.TraitAggressive, p.TraitGreedy, p.TraitLoyal, p.TraitAddict,
		p.EquippedWeapon, p.EquippedArmor, p.EquippedBackpack,
		p.WeaponDura, p.ArmorDura, p.BackpackDura,
		p.TotalFights, p.FightsWon, p.FightsLost, p.BossesKilled, p.TotalMoneyEarned,
		p.TotalItemsFound, p.WalksCompleted, p.PlayersKilled, p.Deaths,
		p.DailyStreak,
		toMillis(p.LastDaily), toMillis(p.LastWalk), toMillis(p.LastFight),
		toMillis(p.LastStatUpdate), toMillis(p.WalkEndsAt),
		toMillis(p.CreatedAt), toMillis(p.UpdatedAt),
		p.IsDead, p.IsInFight, p.IsWalking,
	}
}

func scanPlayer(s scanner) (*player.Player, error) {
	var (
		p                                                  player.Player
		lastDaily, lastWalk, lastFight, lastStat, walkEnds sql.NullInt64
		createdAt, updatedAt                               sql.NullInt64
	)
	err := s.Scan(
		&p.ID, &p.Name, &p.Country, &p.Class, &p.Level, &p.XP, &p.SkillPoints, &p.Title,
		&p.Health, &p.MaxHealth, &p.Hunger, &p.Thirst, &p.Energy, &p.Addiction,
		&p.Money, &p.Bank, &p.RepCops, &p.RepBandits, &p.RepStreet,
		&p.TraitAggressive, &p.TraitGreedy, &p.TraitLoyal, &p.TraitAddict,
		&p.EquippedWeapon, &p.EquippedArmor, &p.EquippedBackpack,
		&p.WeaponDura, &p.ArmorDura, &p.BackpackDura,
		&p.TotalFights, &p.FightsWon, &p.FightsLost, &p.BossesKilled, &p.TotalMoneyEarned,
		&p.TotalItemsFound, &p.WalksCompleted, &p.PlayersKilled, &p.Deaths,
		&p.DailyStreak,
		&lastDaily, &lastWalk, &lastFight, &lastStat, &walkEnds,
		&createdAt, &updatedAt,
		&p.IsDead, &p.IsInFight, &p.IsWalking,
	)
	if err != nil {
		return nil, err
	}
	p.LastDaily = fromMillis(lastDaily)
	p.LastWalk = fromMillis(lastWalk)
	p.LastFight = fromMillis(lastFight)
	p.LastStatUpdate = fromMillis(lastStat)
	p.WalkEndsAt = fromMillis(walkEnds)
	p.CreatedAt = fromMillis(createdAt)
	p.UpdatedAt = fromMillis(updatedAt)
	return &p, nil
}

// GetPlayer loads a player by chat-platform id.
func (d *Database) GetPlayer(ctx context.Context, id string) (*player.Player, error) {
	row := d.db.QueryRowContext(ctx, d.qb.Build(selectPlayer+" WHERE id = ?"), id)
	p, err := scanPlayer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get player %s: %w", id, err)
	}
	return p, nil
}

// CreatePlayer inserts a new player. A taken id fails with storage.ErrConflict.
func (d *Database) CreatePlayer(ctx context.Context, p *player.Player) error {
	_, err := d.db.ExecContext(ctx, d.qb.Insert("players", playerColumns), playerValues(p)...)
	if d.dialect.IsDuplicateKeyError(err) {
		return storage.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("create player %s: %w", p.ID, err)
	}
	return nil
}

// UpdatePlayer writes only the columns set in patch, plus updated_at.
func (d *Database) UpdatePlayer(ctx context.Context, id string, patch player.Patch) error {
	cols := patch.Columns()
	if len(cols) == 0 {
		var exists int
		err := d.db.QueryRowContext(ctx, d.qb.Build("SELECT 1 FROM players WHERE id = ?"), id).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return storage.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("check player %s: %w", id, err)
		}
		return nil
	}

	names := make([]string, 0, len(cols)+1)
	args := make([]any, 0, len(cols)+2)
	for _, c := range cols {
		names = append(names, c.Name)
		args = append(args, dbValue(c.Value))
	}
	names = append(names, "updated_at")
	args = append(args, toMillis(d.now()), id)

	res, err := d.db.ExecContext(ctx, d.qb.Update("players", names, "id = ?"), args...)
	if err != nil {
		return fmt.Errorf("update player %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update player %s: %w", id, err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// DeletePlayer removes a player; inventory and sessions cascade.
func (d *Database) DeletePlayer(ctx context.Context, id string) error {
	res, err := d.db.ExecContext(ctx, d.qb.Build("DELETE FROM players WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("delete player %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete player %s: %w", id, err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// GetLeaderboard returns the top players by key, ties broken by id.
func (d *Database) GetLeaderboard(ctx context.Context, key storage.LeaderboardKey, limit int) ([]*player.Player, error) {
	if !key.IsValid() {
		return nil, fmt.Errorf("unknown leaderboard key %q", key)
	}

	// key is one of a closed set of column names
	query := selectPlayer + " ORDER BY " + string(key) + " DESC, id ASC"
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := d.db.QueryContext(ctx, d.qb.Build(query), args...)
	if err != nil {
		return nil, fmt.Errorf("leaderboard by %s: %w", key, err)
	}
	defer rows.Close()

	var out []*player.Player
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan leaderboard row: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ListPlayers returns every player ordered by id.
func (d *Database) ListPlayers(ctx context.Context) ([]*player.Player, error) {
	rows, err := d.db.QueryContext(ctx, selectPlayer+" ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	defer rows.Close()

	var out []*player.Player
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan player: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
