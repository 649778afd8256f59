package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/waka2kekagg-star/bomzh-simulator/internal/storage"
)

// GetInventory returns a player's stacks ordered by item, best durability first.
func (d *Database) GetInventory(ctx context.Context, playerID string) ([]storage.InventoryEntry, error) {
	rows, err := d.db.QueryContext(ctx, d.qb.Build(`
		SELECT player_id, item_id, quantity, durability, obtained_at
		FROM inventory WHERE player_id = ?
		ORDER BY item_id, durability DESC`), playerID)
	if err != nil {
		return nil, fmt.Errorf("get inventory %s: %w", playerID, err)
	}
	defer rows.Close()

	var entries []storage.InventoryEntry
	for rows.Next() {
		var (
			e          storage.InventoryEntry
			obtainedAt sql.NullInt64
		)
		if err := rows.Scan(&e.PlayerID, &e.ItemID, &e.Quantity, &e.Durability, &obtainedAt); err != nil {
			return nil, fmt.Errorf("scan inventory row: %w", err)
		}
		e.ObtainedAt = fromMillis(obtainedAt)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// AddItem grants qty items, stacking onto an existing stack of the same durability.
func (d *Database) AddItem(ctx context.Context, playerID, itemID string, qty, durability int) error {
	if qty <= 0 {
		return nil
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin add item: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, d.qb.Build("SELECT 1 FROM players WHERE id = ?"), playerID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("check player %s: %w", playerID, err)
	}

	_, err = tx.ExecContext(ctx, d.qb.Build(`
		INSERT INTO inventory (player_id, item_id, quantity, durability, obtained_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (player_id, item_id, durability)
		DO UPDATE SET quantity = inventory.quantity + excluded.quantity`),
		playerID, itemID, qty, durability, toMillis(d.now()))
	if err != nil {
		return fmt.Errorf("add item %s to %s: %w", itemID, playerID, err)
	}

	return tx.Commit()
}

// RemoveItem takes qty items, draining the most durable stacks first.
// Owning fewer than qty fails with storage.ErrInsufficient and changes nothing.
func (d *Database) RemoveItem(ctx context.Context, playerID, itemID string, qty int) error {
	if qty <= 0 {
		return nil
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin remove item: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, d.qb.Build(`
		SELECT durability, quantity FROM inventory
		WHERE player_id = ? AND item_id = ?
		ORDER BY durability DESC`+d.dialect.LockClause()), playerID, itemID)
	if err != nil {
		return fmt.Errorf("read stacks of %s: %w", itemID, err)
	}

	type stack struct{ durability, quantity int }
	var stacks []stack
	total := 0
	for rows.Next() {
		var s stack
		if err := rows.Scan(&s.durability, &s.quantity); err != nil {
			rows.Close()
			return fmt.Errorf("scan stack: %w", err)
		}
		stacks = append(stacks, s)
		total += s.quantity
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("read stacks of %s: %w", itemID, err)
	}

	if total < qty {
		return storage.ErrInsufficient
	}

	remaining := qty
	for _, s := range stacks {
		if remaining == 0 {
			break
		}
		take := min(s.quantity, remaining)
		remaining -= take

		if take == s.quantity {
			_, err = tx.ExecContext(ctx, d.qb.Build(
				"DELETE FROM inventory WHERE player_id = ? AND item_id = ? AND durability = ?"),
				playerID, itemID, s.durability)
		} else {
			_, err = tx.ExecContext(ctx, d.qb.Build(
				"UPDATE inventory SET quantity = quantity - ? WHERE player_id = ? AND item_id = ? AND durability = ?"),
				take, playerID, itemID, s.durability)
		}
		if err != nil {
			return fmt.Errorf("remove %s from %s: %w", itemID, playerID, err)
		}
	}

	return tx.Commit()
}
