package game

import (
	"context"
	"errors"
	"fmt"

	"github.com/waka2kekagg-star/bomzh-simulator/internal/catalog"
	"github.com/waka2kekagg-star/bomzh-simulator/internal/combat"
	"github.com/waka2kekagg-star/bomzh-simulator/internal/dice"
	"github.com/waka2kekagg-star/bomzh-simulator/internal/gameerr"
	"github.com/waka2kekagg-star/bomzh-simulator/internal/logger"
	"github.com/waka2kekagg-star/bomzh-simulator/internal/messages"
	"github.com/waka2kekagg-star/bomzh-simulator/internal/player"
	"github.com/waka2kekagg-star/bomzh-simulator/internal/storage"
	"github.com/waka2kekagg-star/bomzh-simulator/internal/walk"
	"github.com/waka2kekagg-star/bomzh-simulator/internal/worldboss"
)

// BossLevelGap is how far below a boss's level a player may still attack it.
const BossLevelGap = 5

// FightResult reports a fight action.
type FightResult struct {
	Result
	Fight     *storage.Fight     `json:"fight,omitempty"`
	State     storage.FightState `json:"state,omitempty"`
	Log       []combat.Round     `json:"log,omitempty"`
	Player    *player.Player     `json:"player,omitempty"`
	Opponent  *player.Player     `json:"opponent,omitempty"`
	XP        int                `json:"xp,omitempty"`
	Money     int                `json:"money,omitempty"`
	Items     []string           `json:"items,omitempty"`
	MoneyLost int                `json:"money_lost,omitempty"`
}

// BossResult reports one hit against a world boss.
type BossResult struct {
	Result
	Boss    *catalog.Boss      `json:"boss,omitempty"`
	State   *storage.WorldBoss `json:"state,omitempty"`
	Damage  int                `json:"damage"`
	Crit    bool               `json:"crit,omitempty"`
	Counter int                `json:"counter"`
	Killed  bool               `json:"killed,omitempty"`
	XP      int                `json:"xp,omitempty"`
	Money   int                `json:"money,omitempty"`
	Items   []string           `json:"items,omitempty"`
	Player  *player.Player     `json:"player,omitempty"`
}

// BossesResult lists the bosses of a guild.
type BossesResult struct {
	Result
	Bosses []worldboss.Status `json:"bosses"`
}

// StartFight opens a fight against a street enemy. An empty enemyID picks
// one at random.
func (e *Engine) StartFight(ctx context.Context, id, enemyID, channelID string) (FightResult, error) {
	ctx, span := e.start(ctx, "StartFight", id)
	defer span.End()

	unlock := e.locks.Lock(id)
	defer unlock()

	rec, err := e.startFight(ctx, id, enemyID, channelID)
	if err != nil {
		rec.Result, err = e.failure(ctx, span, e.printer(rec.Player), err)
	}
	return rec, err
}

func (e *Engine) startFight(ctx context.Context, id, enemyID, channelID string) (FightResult, error) {
	p, err := e.load(ctx, id)
	if err != nil {
		return FightResult{}, err
	}
	if p, err = e.settle(ctx, p); err != nil {
		return FightResult{Player: p}, err
	}
	if enemyID == "" {
		enemy, found := dice.Pick(e.rng, e.cat.Enemies())
		if !found {
			return FightResult{Player: p}, gameerr.Invalid("no enemies around")
		}
		enemyID = enemy.ID
	}

	f, next, err := e.fights.Start(p, enemyID, channelID, e.now())
	if err != nil {
		return FightResult{Player: p}, err
	}
	if err := e.repo.CreateFight(ctx, f); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return FightResult{Player: p}, gameerr.Conflict("fight")
		}
		return FightResult{Player: p}, fmt.Errorf("create fight: %w", err)
	}
	if err := e.save(ctx, p, next); err != nil {
		return FightResult{Player: p}, err
	}

	enemy, _ := e.cat.Enemy(f.EnemyID)
	logger.DebugContext(ctx, "Fight started", "player", id, "enemy", f.EnemyID, "fight", f.ID)
	return FightResult{
		Result: ok(e.printer(next).Text("fight.started", enemy.Name, f.EnemyHP)),
		Fight:  f,
		State:  f.State,
		Player: next,
	}, nil
}

// Duel challenges another player. Both must be idle.
func (e *Engine) Duel(ctx context.Context, id, targetID, channelID string) (FightResult, error) {
	ctx, span := e.start(ctx, "Duel", id)
	defer span.End()

	unlock := e.lockPair(id, targetID)
	defer unlock()

	rec, err := e.duel(ctx, id, targetID, channelID)
	if err != nil {
		rec.Result, err = e.failure(ctx, span, e.printer(rec.Player), err)
	}
	return rec, err
}

func (e *Engine) duel(ctx context.Context, id, targetID, channelID string) (FightResult, error) {
	p, err := e.load(ctx, id)
	if err != nil {
		return FightResult{}, err
	}
	if targetID == "" || targetID == id {
		return FightResult{Player: p}, gameerr.Invalid("cannot duel yourself")
	}
	target, err := e.load(ctx, targetID)
	if err != nil {
		return FightResult{Player: p}, err
	}
	if p, err = e.settle(ctx, p); err != nil {
		return FightResult{Player: p}, err
	}
	if target, err = e.settle(ctx, target); err != nil {
		return FightResult{Player: p}, err
	}

	f, a, b, err := e.fights.StartDuel(p, target, channelID, e.now())
	if err != nil {
		return FightResult{Player: p}, err
	}
	if err := e.repo.CreateFight(ctx, f); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return FightResult{Player: p}, gameerr.Conflict("fight")
		}
		return FightResult{Player: p}, fmt.Errorf("create duel: %w", err)
	}
	if err := e.save(ctx, p, a); err != nil {
		return FightResult{Player: p}, err
	}
	if err := e.save(ctx, target, b); err != nil {
		return FightResult{Player: p}, err
	}

	logger.DebugContext(ctx, "Duel started", "player", id, "target", targetID, "fight", f.ID)
	return FightResult{
		Result:   ok(e.printer(a).Text("duel.started", b.Name)),
		Fight:    f,
		State:    f.State,
		Player:   a,
		Opponent: b,
	}, nil
}

// Attack plays one round of the player's fight.
func (e *Engine) Attack(ctx context.Context, id string) (FightResult, error) {
	return e.act(ctx, "Attack", id, false)
}

// Flee tries to leave the player's fight.
func (e *Engine) Flee(ctx context.Context, id string) (FightResult, error) {
	return e.act(ctx, "Flee", id, true)
}

func (e *Engine) act(ctx context.Context, op, id string, flee bool) (FightResult, error) {
	ctx, span := e.start(ctx, op, id)
	defer span.End()

	rec, err := e.lockedAct(ctx, id, flee)
	if err != nil {
		rec.Result, err = e.failure(ctx, span, e.printer(rec.Player), err)
	}
	return rec, err
}

// lockedAct finds the opponent first so both duelists are locked before the
// session is read again and acted on.
func (e *Engine) lockedAct(ctx context.Context, id string, flee bool) (FightResult, error) {
	peek, err := e.playerFight(ctx, id)
	if err != nil {
		return FightResult{}, err
	}
	other := opponentOf(peek, id)

	unlock := e.lockPair(id, other)
	defer unlock()

	f, err := e.playerFight(ctx, id)
	if err != nil {
		return FightResult{}, err
	}
	if f.ID != peek.ID || opponentOf(f, id) != other {
		return FightResult{}, gameerr.Expired("fight")
	}

	p, err := e.load(ctx, id)
	if err != nil {
		return FightResult{}, err
	}
	var opp *player.Player
	if other != "" {
		if opp, err = e.load(ctx, other); err != nil {
			return FightResult{Player: p}, err
		}
	}

	now := e.now()
	if f.Expired(now) {
		if err := e.expire(ctx, f, id); err != nil {
			return FightResult{Player: p}, err
		}
		return FightResult{Player: combat.Release(p)}, gameerr.Expired("fight")
	}
	if p.IsDead {
		return FightResult{Player: p}, gameerr.Dead()
	}

	var out combat.Outcome
	if flee {
		out, err = e.fights.Flee(p, opp, f, now)
	} else {
		out, err = e.fights.Attack(p, opp, f, now)
	}
	if err != nil {
		return FightResult{Player: p}, err
	}

	if out.Ended() {
		if err := e.repo.DeleteFight(ctx, f.ID); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return FightResult{Player: p}, gameerr.Expired("fight")
			}
			return FightResult{Player: p}, fmt.Errorf("delete fight %s: %w", f.ID, err)
		}
	} else if err := e.repo.UpdateFight(ctx, out.Fight); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return FightResult{Player: p}, gameerr.Expired("fight")
		}
		return FightResult{Player: p}, fmt.Errorf("update fight %s: %w", f.ID, err)
	}

	if err := e.save(ctx, p, out.Player); err != nil {
		return FightResult{Player: p}, err
	}
	if opp != nil && out.Opponent != nil {
		if err := e.save(ctx, opp, out.Opponent); err != nil {
			return FightResult{Player: p}, err
		}
	}

	rec := FightResult{
		Fight:     out.Fight,
		State:     out.State,
		Log:       out.Log,
		Player:    out.Player,
		Opponent:  out.Opponent,
		MoneyLost: out.MoneyLost,
	}
	if out.Rewards != nil {
		winner := id
		if out.State == storage.FightDefeat {
			winner = other
		}
		if err := e.grant(ctx, winner, out.Rewards.Items); err != nil {
			return FightResult{Player: p}, err
		}
		rec.XP, rec.Money, rec.Items = out.Rewards.XP, out.Rewards.Money, out.Rewards.Items
	}
	rec.Result = ok(e.fightText(e.printer(out.Player), id, f.Round, &out))

	if out.Ended() {
		logger.DebugContext(ctx, "Fight ended", "player", id, "fight", f.ID, "state", out.State)
	}
	if other != "" && e.notify != nil {
		e.notify(other, EventDuelRound, rec)
	}
	return rec, nil
}

func (e *Engine) fightText(pr *messages.Printer, id string, round int, out *combat.Outcome) string {
	f := out.Fight
	duel := f.EnemyKind == storage.EnemyPlayer
	switch out.State {
	case storage.FightFled:
		return pr.Text("fight.fled")
	case storage.FightVictory:
		if duel {
			return pr.Text("duel.victory", out.Player.Name, out.Rewards.Money)
		}
		enemy := f.EnemyID
		if en, found := e.cat.Enemy(f.EnemyID); found {
			enemy = en.Name
		}
		return join(pr.Text("fight.victory", enemy, out.Rewards.XP, out.Rewards.Money), levelText(pr, out.Rewards))
	case storage.FightDefeat:
		if duel && out.Opponent != nil && out.Rewards != nil {
			return join(pr.Text("fight.defeat", out.MoneyLost), pr.Text("duel.victory", out.Opponent.Name, out.Rewards.Money))
		}
		return pr.Text("fight.defeat", out.MoneyLost)
	}
	mine, theirs := sides(f, id)
	return pr.Text("fight.round", round, theirs, mine)
}

func levelText(pr *messages.Printer, r *combat.Rewards) string {
	if r == nil || !r.Progress.LeveledUp {
		return ""
	}
	return pr.Text("level.up", r.Progress.Level)
}

// ReapFight ends a fight whose TTL has passed. A fight already gone or still
// live is left alone.
func (e *Engine) ReapFight(ctx context.Context, fightID string) error {
	ctx, span := e.start(ctx, "ReapFight", "")
	defer span.End()

	peek, err := e.repo.GetFight(ctx, fightID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("get fight %s: %w", fightID, err)
	}

	unlock := e.lockPair(peek.PlayerID, peek.OpponentPlayerID)
	defer unlock()

	f, err := e.repo.GetFight(ctx, fightID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("get fight %s: %w", fightID, err)
	}
	if !f.Expired(e.now()) {
		return nil
	}
	return e.expire(ctx, f, "")
}

// expire deletes an expired fight and frees its players. The caller holds
// the locks of both fighters. Players other than skip are notified.
func (e *Engine) expire(ctx context.Context, f *storage.Fight, skip string) error {
	if err := e.repo.DeleteFight(ctx, f.ID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("delete fight %s: %w", f.ID, err)
	}

	for _, id := range []string{f.PlayerID, f.OpponentPlayerID} {
		if id == "" {
			continue
		}
		p, err := e.repo.GetPlayer(ctx, id)
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			return fmt.Errorf("get player %s: %w", id, err)
		}
		next := combat.Release(p)
		if err := e.save(ctx, p, next); err != nil {
			return err
		}
		if id != skip && e.notify != nil {
			expired := gameerr.Expired("fight")
			e.notify(id, EventFightExpired, FightResult{
				Result: Result{Code: expired.Code, Message: e.printer(next).Error(expired)},
				Fight:  f,
				State:  storage.FightExpired,
				Player: next,
			})
		}
	}
	logger.DebugContext(ctx, "Fight expired", "fight", f.ID, "player", f.PlayerID)
	return nil
}

// settle clears session flags that outlived their rows, such as a fight
// flag left behind by a crash between writes, and reaps an expired fight.
// Reaping a duel also frees the opponent: the delete is the claim and their
// side of the write is the fight flag alone.
func (e *Engine) settle(ctx context.Context, p *player.Player) (*player.Player, error) {
	if p.IsInFight {
		f, err := e.repo.GetPlayerFight(ctx, p.ID)
		switch {
		case errors.Is(err, storage.ErrNotFound):
			next := combat.Release(p)
			if err := e.save(ctx, p, next); err != nil {
				return p, err
			}
			p = next
		case err != nil:
			return p, fmt.Errorf("get fight of %s: %w", p.ID, err)
		case f.Expired(e.now()):
			if err := e.expire(ctx, f, p.ID); err != nil {
				return p, err
			}
			p = combat.Release(p)
		}
	}
	if p.IsWalking {
		_, err := e.repo.GetPlayerWalk(ctx, p.ID)
		switch {
		case errors.Is(err, storage.ErrNotFound):
			next := walk.Abandon(p)
			if err := e.save(ctx, p, next); err != nil {
				return p, err
			}
			p = next
		case err != nil:
			return p, fmt.Errorf("get walk of %s: %w", p.ID, err)
		}
	}
	return p, nil
}

func (e *Engine) playerFight(ctx context.Context, id string) (*storage.Fight, error) {
	f, err := e.repo.GetPlayerFight(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, gameerr.Expired("fight")
	}
	if err != nil {
		return nil, fmt.Errorf("get fight of %s: %w", id, err)
	}
	return f, nil
}

func opponentOf(f *storage.Fight, id string) string {
	if f.OpponentPlayerID == "" {
		return ""
	}
	if f.PlayerID == id {
		return f.OpponentPlayerID
	}
	return f.PlayerID
}

// sides returns the HP of id and of whoever they fight.
func sides(f *storage.Fight, id string) (mine, theirs int) {
	if f.OpponentPlayerID == "" {
		return f.PlayerHP, f.EnemyHP
	}
	if f.OpponentPlayerID == id {
		return f.OpponentHP, f.PlayerHP
	}
	return f.PlayerHP, f.OpponentHP
}

// AttackBoss hits a world boss once. The boss hits back unless the blow
// killed it; the player who lands the kill takes the boss reward.
func (e *Engine) AttackBoss(ctx context.Context, id, guildID, bossID string) (BossResult, error) {
	ctx, span := e.start(ctx, "AttackBoss", id)
	defer span.End()

	unlock := e.locks.Lock(id)
	defer unlock()

	rec, err := e.attackBoss(ctx, id, e.guildOf(guildID), bossID)
	if err != nil {
		rec.Result, err = e.failure(ctx, span, e.printer(rec.Player), err)
	}
	return rec, err
}

func (e *Engine) attackBoss(ctx context.Context, id, guildID, bossID string) (BossResult, error) {
	p, err := e.load(ctx, id)
	if err != nil {
		return BossResult{}, err
	}
	boss, found := e.cat.Boss(bossID)
	if !found {
		return BossResult{Player: p}, gameerr.NotFound("boss", bossID)
	}
	if p.IsDead {
		return BossResult{Player: p}, gameerr.Dead()
	}
	if p, err = e.settle(ctx, p); err != nil {
		return BossResult{Player: p}, err
	}
	switch {
	case p.IsInFight:
		return BossResult{Player: p}, gameerr.Conflict("fight")
	case p.IsWalking:
		return BossResult{Player: p}, gameerr.Conflict("walk")
	}
	if required := boss.Level - BossLevelGap; p.Level < required {
		return BossResult{Player: p}, gameerr.Insufficient(gameerr.ResourceLevel, required, p.Level)
	}

	st, err := e.bosses.Status(ctx, bossID, guildID)
	if err != nil {
		return BossResult{Player: p}, err
	}
	hit := e.resolver.ResolveAttack(e.resolver.FromPlayer(p, p.Health), e.resolver.FromBoss(boss, st.State.CurrentHP), true)
	res, err := e.bosses.ApplyDamage(ctx, bossID, guildID, id, hit.Damage)
	if err != nil {
		return BossResult{Player: p}, err
	}

	next := p.Clone()
	rec := BossResult{Boss: boss, State: res.Boss, Damage: res.Dealt, Crit: hit.Crit, Killed: res.Killed}
	pr := e.printer(p)
	var text []string

	if res.Killed {
		cfg := e.cat.Fight()
		rec.XP = boss.Level * cfg.BossXPPerLevel
		rec.Money = boss.Level * cfg.BossMoneyPerLevel
		if item := e.loot.One(boss.Loot); item != "" {
			rec.Items = append(rec.Items, item)
		}
		next.Earn(rec.Money)
		next.BossesKilled++
		next.RecordItemsFound(len(rec.Items))
		player.ApplyAction(next, e.cat.Personality(), player.ActionFightWin)
		prog := e.ledger.AddXP(next, rec.XP)
		rec.Items = append(rec.Items, prog.Items...)
		text = append(text, pr.Text("boss.killed", boss.Name, rec.XP, rec.Money), progressText(pr, prog))
	} else {
		rec.Counter = combat.BossCounterHit(boss, e.cat.ArmorDefense(p.EquippedArmor))
		next.Health = max(1, next.Health-rec.Counter)
		text = append(text, pr.Text("boss.hit", boss.Name, res.Dealt, res.Boss.CurrentHP, rec.Counter))
	}
	next.Clamp()

	if err := e.save(ctx, p, next); err != nil {
		return BossResult{Player: p}, err
	}
	if err := e.grant(ctx, id, rec.Items); err != nil {
		return BossResult{Player: p}, err
	}
	if res.Killed {
		logger.AlwaysContext(ctx, "World boss killed", "boss", bossID, "guild", guildID, "player", id)
	}

	rec.Player = next
	rec.Result = ok(join(text...))
	return rec, nil
}

// Bosses returns the state of every boss in a guild.
func (e *Engine) Bosses(ctx context.Context, guildID string) (BossesResult, error) {
	ctx, span := e.start(ctx, "Bosses", "")
	defer span.End()

	list, err := e.bosses.List(ctx, e.guildOf(guildID))
	if err != nil {
		var rec BossesResult
		rec.Result, err = e.failure(ctx, span, e.printer(nil), err)
		return rec, err
	}
	return BossesResult{Result: ok(""), Bosses: list}, nil
}

func (e *Engine) guildOf(guildID string) string {
	if guildID == "" {
		return e.guild
	}
	return guildID
}
