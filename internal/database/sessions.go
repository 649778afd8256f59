package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/waka2kekagg-star/bomzh-simulator/internal/storage"
)

const fightColumns = `id, player_id, opponent_player_id, enemy_kind, enemy_id,
	player_hp, opponent_hp, enemy_hp, enemy_max_hp, round, channel_id,
	started_at, expires_at, state`

func scanFight(s scanner) (*storage.Fight, error) {
	var (
		f                  storage.Fight
		opponent           sql.NullString
		started, expiresAt sql.NullInt64
	)
	err := s.Scan(&f.ID, &f.PlayerID, &opponent, &f.EnemyKind, &f.EnemyID,
		&f.PlayerHP, &f.OpponentHP, &f.EnemyHP, &f.EnemyMaxHP, &f.Round, &f.ChannelID,
		&started, &expiresAt, &f.State)
	if err != nil {
		return nil, err
	}
	f.OpponentPlayerID = opponent.String
	f.StartedAt = fromMillis(started)
	f.ExpiresAt = fromMillis(expiresAt)
	return &f, nil
}

func (d *Database) queryFight(ctx context.Context, where string, args ...any) (*storage.Fight, error) {
	row := d.db.QueryRowContext(ctx, d.qb.Build("SELECT "+fightColumns+" FROM active_fights WHERE "+where), args...)
	f, err := scanFight(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get fight: %w", err)
	}
	return f, nil
}

func (d *Database) GetFight(ctx context.Context, id string) (*storage.Fight, error) {
	return d.queryFight(ctx, "id = ?", id)
}

// GetPlayerFight finds the fight a player is in on either side.
func (d *Database) GetPlayerFight(ctx context.Context, playerID string) (*storage.Fight, error) {
	return d.queryFight(ctx, "player_id = ? OR opponent_player_id = ?", playerID, playerID)
}

// CreateFight stores a new fight. Either fighter already being in a fight
// fails with storage.ErrConflict.
func (d *Database) CreateFight(ctx context.Context, f *storage.Fight) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create fight: %w", err)
	}
	defer tx.Rollback()

	other := f.OpponentPlayerID
	if other == "" {
		other = f.PlayerID
	}
	var busy int
	err = tx.QueryRowContext(ctx, d.qb.Build(`
		SELECT COUNT(*) FROM active_fights
		WHERE id = ? OR player_id IN (?, ?) OR opponent_player_id IN (?, ?)`),
		f.ID, f.PlayerID, other, f.PlayerID, other).Scan(&busy)
	if err != nil {
		return fmt.Errorf("check fight conflict: %w", err)
	}
	if busy > 0 {
		return storage.ErrConflict
	}

	_, err = tx.ExecContext(ctx, d.qb.Build(`
		INSERT INTO active_fights (`+fightColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		f.ID, f.PlayerID, nullString(f.OpponentPlayerID), string(f.EnemyKind), f.EnemyID,
		f.PlayerHP, f.OpponentHP, f.EnemyHP, f.EnemyMaxHP, f.Round, f.ChannelID,
		toMillis(f.StartedAt), toMillis(f.ExpiresAt), string(f.State))
	if d.dialect.IsDuplicateKeyError(err) {
		return storage.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("create fight %s: %w", f.ID, err)
	}

	return tx.Commit()
}

// UpdateFight writes the mutable round state of a fight.
func (d *Database) UpdateFight(ctx context.Context, f *storage.Fight) error {
	res, err := d.db.ExecContext(ctx, d.qb.Build(`
		UPDATE active_fights SET player_hp = ?, opponent_hp = ?, enemy_hp = ?, round = ?,
			expires_at = ?, state = ?
		WHERE id = ?`),
		f.PlayerHP, f.OpponentHP, f.EnemyHP, f.Round, toMillis(f.ExpiresAt), string(f.State), f.ID)
	if err != nil {
		return fmt.Errorf("update fight %s: %w", f.ID, err)
	}
	return affectedOne(res)
}

func (d *Database) DeleteFight(ctx context.Context, id string) error {
	res, err := d.db.ExecContext(ctx, d.qb.Build("DELETE FROM active_fights WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("delete fight %s: %w", id, err)
	}
	return affectedOne(res)
}

// ExpiredFights returns fights whose TTL has passed at now, oldest first.
func (d *Database) ExpiredFights(ctx context.Context, now time.Time) ([]*storage.Fight, error) {
	rows, err := d.db.QueryContext(ctx, d.qb.Build(
		"SELECT "+fightColumns+" FROM active_fights WHERE expires_at <= ? ORDER BY expires_at"),
		now.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("expired fights: %w", err)
	}
	defer rows.Close()

	var out []*storage.Fight
	for rows.Next() {
		f, err := scanFight(rows)
		if err != nil {
			return nil, fmt.Errorf("scan fight: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

const walkColumns = "id, player_id, tier, started_at, ends_at, events, channel_id"

func scanWalk(s scanner) (*storage.Walk, error) {
	var (
		w            storage.Walk
		started, end sql.NullInt64
		events       string
	)
	if err := s.Scan(&w.ID, &w.PlayerID, &w.Tier, &started, &end, &events, &w.ChannelID); err != nil {
		return nil, err
	}
	w.StartedAt = fromMillis(started)
	w.EndsAt = fromMillis(end)
	if err := json.Unmarshal([]byte(events), &w.Events); err != nil {
		return nil, fmt.Errorf("decode events of walk %s: %w", w.ID, err)
	}
	return &w, nil
}

func encodeEvents(events []storage.WalkEvent) (string, error) {
	if events == nil {
		events = []storage.WalkEvent{}
	}
	data, err := json.Marshal(events)
	if err != nil {
		return "", fmt.Errorf("encode walk events: %w", err)
	}
	return string(data), nil
}

func (d *Database) queryWalk(ctx context.Context, where string, args ...any) (*storage.Walk, error) {
	row := d.db.QueryRowContext(ctx, d.qb.Build("SELECT "+walkColumns+" FROM active_walks WHERE "+where), args...)
	w, err := scanWalk(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get walk: %w", err)
	}
	return w, nil
}

func (d *Database) GetWalk(ctx context.Context, id string) (*storage.Walk, error) {
	return d.queryWalk(ctx, "id = ?", id)
}

func (d *Database) GetPlayerWalk(ctx context.Context, playerID string) (*storage.Walk, error) {
	return d.queryWalk(ctx, "player_id = ?", playerID)
}

// CreateWalk stores a new walk; a second walk for the player fails with
// storage.ErrConflict.
func (d *Database) CreateWalk(ctx context.Context, w *storage.Walk) error {
	events, err := encodeEvents(w.Events)
	if err != nil {
		return err
	}

	_, err = d.db.ExecContext(ctx, d.qb.Build(`
		INSERT INTO active_walks (`+walkColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`),
		w.ID, w.PlayerID, w.Tier, toMillis(w.StartedAt), toMillis(w.EndsAt), events, w.ChannelID)
	if d.dialect.IsDuplicateKeyError(err) {
		return storage.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("create walk %s: %w", w.ID, err)
	}
	return nil
}

func (d *Database) UpdateWalk(ctx context.Context, w *storage.Walk) error {
	events, err := encodeEvents(w.Events)
	if err != nil {
		return err
	}

	res, err := d.db.ExecContext(ctx, d.qb.Build(
		"UPDATE active_walks SET ends_at = ?, events = ?, channel_id = ? WHERE id = ?"),
		toMillis(w.EndsAt), events, w.ChannelID, w.ID)
	if err != nil {
		return fmt.Errorf("update walk %s: %w", w.ID, err)
	}
	return affectedOne(res)
}

func (d *Database) DeleteWalk(ctx context.Context, id string) error {
	res, err := d.db.ExecContext(ctx, d.qb.Build("DELETE FROM active_walks WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("delete walk %s: %w", id, err)
	}
	return affectedOne(res)
}

// DueWalks returns walks that have ended at now, earliest first.
func (d *Database) DueWalks(ctx context.Context, now time.Time) ([]*storage.Walk, error) {
	rows, err := d.db.QueryContext(ctx, d.qb.Build(
		"SELECT "+walkColumns+" FROM active_walks WHERE ends_at <= ? ORDER BY ends_at"),
		now.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("due walks: %w", err)
	}
	defer rows.Close()

	var out []*storage.Walk
	for rows.Next() {
		w, err := scanWalk(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// affectedOne maps an update or delete that touched no row to storage.ErrNotFound.
func affectedOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}
