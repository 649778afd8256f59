package game

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/waka2kekagg-star/bomzh-simulator/internal/catalog"
	"github.com/waka2kekagg-star/bomzh-simulator/internal/gameerr"
	"github.com/waka2kekagg-star/bomzh-simulator/internal/logger"
	"github.com/waka2kekagg-star/bomzh-simulator/internal/player"
	"github.com/waka2kekagg-star/bomzh-simulator/internal/storage"
	"github.com/waka2kekagg-star/bomzh-simulator/internal/walk"
)

// WalkResult reports a started or completed walk.
type WalkResult struct {
	Result
	Walk   *storage.Walk  `json:"walk,omitempty"`
	Player *player.Player `json:"player,omitempty"`
	Money  int            `json:"money,omitempty"`
	Fine   int            `json:"fine,omitempty"`
	XP     int            `json:"xp,omitempty"`
	Damage int            `json:"damage,omitempty"`
	Items  []string       `json:"items,omitempty"`
}

// TradeResult reports a purchase or a sale.
type TradeResult struct {
	Result
	Player   *player.Player `json:"player,omitempty"`
	ShopID   string         `json:"shop_id,omitempty"`
	ItemID   string         `json:"item_id,omitempty"`
	Quantity int            `json:"quantity,omitempty"`
	Price    int            `json:"price,omitempty"`
}

// DailyResult reports an opened daily chest.
type DailyResult struct {
	Result
	Player     *player.Player `json:"player,omitempty"`
	Chest      catalog.Rarity `json:"chest,omitempty"`
	Money      int            `json:"money,omitempty"`
	Items      []string       `json:"items,omitempty"`
	Streak     int            `json:"streak,omitempty"`
	Multiplier float64        `json:"multiplier,omitempty"`
}

// StartWalk sends the player on a walk of the given tier.
func (e *Engine) StartWalk(ctx context.Context, id, tierID, channelID string) (WalkResult, error) {
	ctx, span := e.start(ctx, "StartWalk", id)
	defer span.End()

	unlock := e.locks.Lock(id)
	defer unlock()

	rec, err := e.startWalk(ctx, id, tierID, channelID)
	if err != nil {
		rec.Result, err = e.failure(ctx, span, e.printer(rec.Player), err)
	}
	return rec, err
}

func (e *Engine) startWalk(ctx context.Context, id, tierID, channelID string) (WalkResult, error) {
	p, err := e.load(ctx, id)
	if err != nil {
		return WalkResult{}, err
	}
	if p, err = e.settle(ctx, p); err != nil {
		return WalkResult{Player: p}, err
	}

	w, next, err := e.walks.Start(p, tierID, channelID, e.now())
	if err != nil {
		return WalkResult{Player: p}, err
	}
	if err := e.repo.CreateWalk(ctx, w); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return WalkResult{Player: p}, gameerr.Conflict("walk")
		}
		return WalkResult{Player: p}, fmt.Errorf("create walk: %w", err)
	}
	if err := e.save(ctx, p, next); err != nil {
		return WalkResult{Player: p}, err
	}

	tier, _ := e.cat.WalkTier(w.Tier)
	logger.DebugContext(ctx, "Walk started", "player", id, "tier", w.Tier, "events", len(w.Events))
	return WalkResult{
		Result: ok(e.printer(next).Text("walk.started", tier.Minutes, p.Energy-next.Energy)),
		Walk:   w,
		Player: next,
	}, nil
}

// CompleteWalk settles the player's walk once its time is up.
func (e *Engine) CompleteWalk(ctx context.Context, id string) (WalkResult, error) {
	ctx, span := e.start(ctx, "CompleteWalk", id)
	defer span.End()

	unlock := e.locks.Lock(id)
	defer unlock()

	rec, err := e.completeWalk(ctx, id)
	if err != nil {
		rec.Result, err = e.failure(ctx, span, e.printer(rec.Player), err)
	}
	return rec, err
}

func (e *Engine) completeWalk(ctx context.Context, id string) (WalkResult, error) {
	p, err := e.load(ctx, id)
	if err != nil {
		return WalkResult{}, err
	}
	w, err := e.repo.GetPlayerWalk(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		if p.IsWalking {
			next := walk.Abandon(p)
			if err := e.save(ctx, p, next); err != nil {
				return WalkResult{Player: p}, err
			}
			p = next
		}
		return WalkResult{Player: p}, gameerr.Expired("walk")
	}
	if err != nil {
		return WalkResult{Player: p}, fmt.Errorf("get walk of %s: %w", id, err)
	}
	return e.settleWalk(ctx, p, w)
}

// FinishWalk completes a due walk on behalf of the scheduler. A walk that is
// gone or not yet due is left alone; the finished result goes to the notifier.
func (e *Engine) FinishWalk(ctx context.Context, walkID string) error {
	ctx, span := e.start(ctx, "FinishWalk", "")
	defer span.End()

	peek, err := e.repo.GetWalk(ctx, walkID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("get walk %s: %w", walkID, err)
	}

	unlock := e.locks.Lock(peek.PlayerID)
	defer unlock()

	w, err := e.repo.GetWalk(ctx, walkID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("get walk %s: %w", walkID, err)
	}
	if e.now().Before(w.EndsAt) {
		return nil
	}

	p, err := e.load(ctx, w.PlayerID)
	if gameerr.CodeOf(err) == gameerr.CodeEntityNotFound {
		// The owner is gone; drop the orphan.
		if err := e.repo.DeleteWalk(ctx, walkID); err != nil && !errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("delete walk %s: %w", walkID, err)
		}
		return nil
	}
	if err != nil {
		return err
	}

	rec, err := e.settleWalk(ctx, p, w)
	if err != nil {
		if ge, isDomain := gameerr.As(err); isDomain {
			logger.DebugContext(ctx, "Walk not finished", "walk", walkID, "code", ge.Code)
			return nil
		}
		return err
	}
	if e.notify != nil {
		e.notify(w.PlayerID, EventWalkFinished, rec)
	}
	return nil
}

// settleWalk pays out w to p. Deleting the walk row is the claim, so a
// walk completed twice pays once.
func (e *Engine) settleWalk(ctx context.Context, p *player.Player, w *storage.Walk) (WalkResult, error) {
	sum, err := e.walks.Complete(p, w, e.now())
	if err != nil {
		return WalkResult{Player: p}, err
	}
	if err := e.repo.DeleteWalk(ctx, w.ID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return WalkResult{Player: p}, gameerr.Expired("walk")
		}
		return WalkResult{Player: p}, fmt.Errorf("delete walk %s: %w", w.ID, err)
	}
	if err := e.save(ctx, p, sum.Player); err != nil {
		return WalkResult{Player: p}, err
	}
	if err := e.grant(ctx, p.ID, sum.Items); err != nil {
		return WalkResult{Player: p}, err
	}

	pr := e.printer(sum.Player)
	text := []string{pr.Text("walk.completed", sum.Money, sum.XP, len(sum.Items), sum.Damage)}
	if sum.Fine > 0 {
		text = append(text, pr.Text("walk.fined", sum.Fine))
	}
	text = append(text, progressText(pr, sum.Progress))

	logger.InfoContext(ctx, "Walk completed", "player", p.ID, "walk", w.ID, "money", sum.Money, "xp", sum.XP, "items", len(sum.Items))
	return WalkResult{
		Result: ok(join(text...)),
		Walk:   w,
		Player: sum.Player,
		Money:  sum.Money,
		Fine:   sum.Fine,
		XP:     sum.XP,
		Damage: sum.Damage,
		Items:  sum.Items,
	}, nil
}

// Buy purchases qty units of an item from a shop.
func (e *Engine) Buy(ctx context.Context, id, shopID, itemID string, qty int) (TradeResult, error) {
	ctx, span := e.start(ctx, "Buy", id)
	defer span.End()

	unlock := e.locks.Lock(id)
	defer unlock()

	rec, err := e.buy(ctx, id, shopID, itemID, qty)
	if err != nil {
		rec.Result, err = e.failure(ctx, span, e.printer(rec.Player), err)
	}
	return rec, err
}

func (e *Engine) buy(ctx context.Context, id, shopID, itemID string, qty int) (TradeResult, error) {
	p, err := e.load(ctx, id)
	if err != nil {
		return TradeResult{}, err
	}
	if p.IsDead {
		return TradeResult{Player: p}, gameerr.Dead()
	}
	inv, err := e.repo.GetInventory(ctx, id)
	if err != nil {
		return TradeResult{Player: p}, fmt.Errorf("get inventory of %s: %w", id, err)
	}

	trade, err := e.shop.Buy(p, inv, shopID, itemID, qty)
	if err != nil {
		return TradeResult{Player: p}, err
	}
	if err := e.repo.AddItem(ctx, id, itemID, trade.Quantity, player.StartingDura); err != nil {
		return TradeResult{Player: p}, fmt.Errorf("add %s to %s: %w", itemID, id, err)
	}
	if err := e.save(ctx, p, trade.Player); err != nil {
		return TradeResult{Player: p}, err
	}

	pr := e.printer(trade.Player)
	return TradeResult{
		Result:   ok(pr.Text("shop.bought", trade.Quantity, e.itemName(itemID), trade.Price)),
		Player:   trade.Player,
		ShopID:   trade.ShopID,
		ItemID:   trade.ItemID,
		Quantity: trade.Quantity,
		Price:    trade.Price,
	}, nil
}

// Sell sells qty units of an owned item.
func (e *Engine) Sell(ctx context.Context, id, itemID string, qty int) (TradeResult, error) {
	ctx, span := e.start(ctx, "Sell", id)
	defer span.End()

	unlock := e.locks.Lock(id)
	defer unlock()

	rec, err := e.sell(ctx, id, itemID, qty)
	if err != nil {
		rec.Result, err = e.failure(ctx, span, e.printer(rec.Player), err)
	}
	return rec, err
}

func (e *Engine) sell(ctx context.Context, id, itemID string, qty int) (TradeResult, error) {
	p, err := e.load(ctx, id)
	if err != nil {
		return TradeResult{}, err
	}
	if p.IsDead {
		return TradeResult{Player: p}, gameerr.Dead()
	}
	inv, err := e.repo.GetInventory(ctx, id)
	if err != nil {
		return TradeResult{Player: p}, fmt.Errorf("get inventory of %s: %w", id, err)
	}

	trade, err := e.shop.Sell(p, inv, itemID, qty)
	if err != nil {
		return TradeResult{Player: p}, err
	}
	if err := e.repo.RemoveItem(ctx, id, itemID, trade.Quantity); err != nil {
		if errors.Is(err, storage.ErrInsufficient) {
			return TradeResult{Player: p}, gameerr.Insufficient(gameerr.ResourceItem, trade.Quantity, storage.CountItem(inv, itemID))
		}
		return TradeResult{Player: p}, fmt.Errorf("remove %s from %s: %w", itemID, id, err)
	}
	if err := e.save(ctx, p, trade.Player); err != nil {
		return TradeResult{Player: p}, err
	}

	pr := e.printer(trade.Player)
	return TradeResult{
		Result:   ok(pr.Text("shop.sold", trade.Quantity, e.itemName(itemID), trade.Price)),
		Player:   trade.Player,
		ShopID:   trade.ShopID,
		ItemID:   trade.ItemID,
		Quantity: trade.Quantity,
		Price:    trade.Price,
	}, nil
}

// ClaimDaily opens the daily chest.
func (e *Engine) ClaimDaily(ctx context.Context, id string) (DailyResult, error) {
	ctx, span := e.start(ctx, "ClaimDaily", id)
	defer span.End()

	unlock := e.locks.Lock(id)
	defer unlock()

	rec, err := e.claimDaily(ctx, id)
	if err != nil {
		rec.Result, err = e.failure(ctx, span, e.printer(rec.Player), err)
	}
	return rec, err
}

func (e *Engine) claimDaily(ctx context.Context, id string) (DailyResult, error) {
	p, err := e.load(ctx, id)
	if err != nil {
		return DailyResult{}, err
	}
	if p.IsDead {
		return DailyResult{Player: p}, gameerr.Dead()
	}

	r, err := e.daily.Claim(p, e.now())
	if err != nil {
		return DailyResult{Player: p}, err
	}
	if err := e.save(ctx, p, r.Player); err != nil {
		return DailyResult{Player: p}, err
	}
	if err := e.grant(ctx, id, r.Items); err != nil {
		return DailyResult{Player: p}, err
	}

	logger.InfoContext(ctx, "Daily claimed", "player", id, "chest", r.Chest, "streak", r.Streak)
	return DailyResult{
		Result:     ok(e.printer(r.Player).Text("daily.claimed", string(r.Chest), r.Money, r.Streak)),
		Player:     r.Player,
		Chest:      r.Chest,
		Money:      r.Money,
		Items:      r.Items,
		Streak:     r.Streak,
		Multiplier: r.Multiplier,
	}, nil
}

// DailyRemaining reports how long until the player may claim again.
func (e *Engine) DailyRemaining(p *player.Player) time.Duration {
	return e.daily.Remaining(p, e.now())
}
