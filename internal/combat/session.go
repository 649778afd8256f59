package combat

import (
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/waka2kekagg-star/bomzh-simulator/internal/catalog"
	"github.com/waka2kekagg-star/bomzh-simulator/internal/dice"
	"github.com/waka2kekagg-star/bomzh-simulator/internal/gameerr"
	"github.com/waka2kekagg-star/bomzh-simulator/internal/leveling"
	"github.com/waka2kekagg-star/bomzh-simulator/internal/loot"
	"github.com/waka2kekagg-star/bomzh-simulator/internal/player"
	"github.com/waka2kekagg-star/bomzh-simulator/internal/storage"
)

// DuelXPPerLevel is the XP a duel winner earns per level of the loser.
const DuelXPPerLevel = 10

// Sessions runs the fight state machine:
//
//	active -> resolving_round -> active | victory | defeat | fled
//
// plus expired for sessions past their TTL. Methods never touch storage; they
// return the new session state and mutated player copies for the caller to
// persist.
type Sessions struct {
	cat      *catalog.Catalog
	cfg      *catalog.Fight
	resolver *Resolver
	ledger   *leveling.Ledger
	loot     *loot.Table
	rng      dice.Source
	ttl      time.Duration
}

// NewSessions wires the fight state machine. A non-positive ttl uses the
// catalog's fight TTL.
func NewSessions(cat *catalog.Catalog, resolver *Resolver, ledger *leveling.Ledger, table *loot.Table, rng dice.Source, ttl time.Duration) *Sessions {
	if ttl <= 0 {
		ttl = time.Duration(cat.Fight().TTLMinutes) * time.Minute
	}
	return &Sessions{
		cat:      cat,
		cfg:      cat.Fight(),
		resolver: resolver,
		ledger:   ledger,
		loot:     table,
		rng:      rng,
		ttl:      ttl,
	}
}

// TTL returns the session lifetime.
func (s *Sessions) TTL() time.Duration {
	return s.ttl
}

// Round is one logged hit.
type Round struct {
	Attacker string
	Target   string
	Hit      Hit
	TargetHP int
}

// Rewards is what the winner of a fight receives.
type Rewards struct {
	XP       int
	Money    int
	Items    []string
	Progress leveling.Progress
}

// Outcome is the result of one fight action.
type Outcome struct {
	Fight *storage.Fight
	State storage.FightState
	Log   []Round

	// Player is the acting player after the action.
	Player *player.Player
	// Opponent is the other player in a duel after the action, nil otherwise.
	Opponent *player.Player

	// Rewards for the winner; in a duel they may belong to Opponent.
	Rewards   *Rewards
	MoneyLost int
	Fled      bool
}

// Ended reports whether the session is over and must be deleted.
func (o *Outcome) Ended() bool {
	switch o.State {
	case storage.FightVictory, storage.FightDefeat, storage.FightFled:
		return true
	}
	return false
}

// Start opens a fight against a street enemy.
func (s *Sessions) Start(p *player.Player, enemyID, channelID string, now time.Time) (*storage.Fight, *player.Player, error) {
	if p.IsDead {
		return nil, nil, gameerr.Dead()
	}
	if err := conflict(p); err != nil {
		return nil, nil, err
	}
	enemy, ok := s.cat.Enemy(enemyID)
	if !ok {
		return nil, nil, gameerr.Invalid("unknown enemy: " + enemyID)
	}

	f := &storage.Fight{
		ID:         uuid.NewString(),
		PlayerID:   p.ID,
		EnemyKind:  storage.EnemyNPC,
		EnemyID:    enemy.ID,
		PlayerHP:   p.Health,
		EnemyHP:    enemy.Health,
		EnemyMaxHP: enemy.Health,
		Round:      1,
		ChannelID:  channelID,
		StartedAt:  now,
		ExpiresAt:  now.Add(s.ttl),
		State:      storage.FightActive,
	}

	next := p.Clone()
	next.IsInFight = true
	next.LastFight = now
	return f, next, nil
}

// StartDuel opens a fight between two players.
func (s *Sessions) StartDuel(challenger, target *player.Player, channelID string, now time.Time) (*storage.Fight, *player.Player, *player.Player, error) {
	if challenger.ID == target.ID {
		return nil, nil, nil, gameerr.Invalid("cannot duel yourself")
	}
	if challenger.IsDead {
		return nil, nil, nil, gameerr.Dead()
	}
	if target.IsDead {
		return nil, nil, nil, gameerr.Invalid("target is dead")
	}
	if err := conflict(challenger); err != nil {
		return nil, nil, nil, err
	}
	if target.Busy() {
		return nil, nil, nil, gameerr.Invalid("target is busy")
	}

	f := &storage.Fight{
		ID:               uuid.NewString(),
		PlayerID:         challenger.ID,
		OpponentPlayerID: target.ID,
		EnemyKind:        storage.EnemyPlayer,
		EnemyID:          target.ID,
		PlayerHP:         challenger.Health,
		OpponentHP:       target.Health,
		Round:            1,
		ChannelID:        channelID,
		StartedAt:        now,
		ExpiresAt:        now.Add(s.ttl),
		State:            storage.FightActive,
	}

	a := challenger.Clone()
	a.IsInFight = true
	a.LastFight = now
	b := target.Clone()
	b.IsInFight = true
	b.LastFight = now
	return f, a, b, nil
}

// Attack resolves one round for the acting player p. opponent is the other
// player in a duel and nil for fights against enemies.
func (s *Sessions) Attack(p, opponent *player.Player, f *storage.Fight, now time.Time) (Outcome, error) {
	if err := s.check(p, opponent, f, now); err != nil {
		return Outcome{}, err
	}
	if f.EnemyKind == storage.EnemyPlayer {
		return s.duelRound(p, opponent, f, false), nil
	}
	return s.enemyRound(p, f, false), nil
}

// Flee tries to escape. Failure lets the other side hit back exactly as after
// an attack.
func (s *Sessions) Flee(p, opponent *player.Player, f *storage.Fight, now time.Time) (Outcome, error) {
	if err := s.check(p, opponent, f, now); err != nil {
		return Outcome{}, err
	}

	chance := s.cfg.FleeBaseChance + s.cat.Bonuses(p.Class).EscapeChance
	if dice.Chance(s.rng, chance) {
		fight := *f
		fight.State = storage.FightFled

		me := p.Clone()
		me.Health = hpOf(&fight, p.ID)
		me.IsInFight = false
		me.Clamp()

		out := Outcome{Fight: &fight, State: storage.FightFled, Player: me, Fled: true}
		if opponent != nil {
			other := opponent.Clone()
			other.Health = hpOf(&fight, opponent.ID)
			other.IsInFight = false
			other.Clamp()
			out.Opponent = other
		}
		return out, nil
	}

	if f.EnemyKind == storage.EnemyPlayer {
		return s.duelRound(p, opponent, f, true), nil
	}
	return s.enemyRound(p, f, true), nil
}

func (s *Sessions) check(p, opponent *player.Player, f *storage.Fight, now time.Time) error {
	if f == nil || f.State != storage.FightActive || f.Expired(now) {
		return gameerr.Expired("fight")
	}
	if !f.Involves(p.ID) {
		return gameerr.Expired("fight")
	}
	if f.EnemyKind == storage.EnemyPlayer && (opponent == nil || !f.Involves(opponent.ID)) {
		return gameerr.NotFound("player", f.OpponentPlayerID)
	}
	return nil
}

// enemyRound plays one round against a street enemy. With skipAttack the
// player's own hit is skipped (a failed escape).
func (s *Sessions) enemyRound(p *player.Player, f *storage.Fight, skipAttack bool) Outcome {
	enemy, ok := s.cat.Enemy(f.EnemyID)
	if !ok {
		enemy = &catalog.Enemy{ID: f.EnemyID, Name: f.EnemyID, Health: f.EnemyMaxHP}
	}

	fight := *f
	fight.State = storage.FightResolvingRound
	out := Outcome{Fight: &fight}

	if !skipAttack {
		hit := s.resolver.ResolveAttack(s.resolver.FromPlayer(p, fight.PlayerHP), s.resolver.FromEnemy(enemy, fight.EnemyHP), true)
		fight.EnemyHP = max(0, fight.EnemyHP-hit.Damage)
		out.Log = append(out.Log, Round{Attacker: p.Name, Target: enemy.Name, Hit: hit, TargetHP: fight.EnemyHP})

		if fight.EnemyHP == 0 {
			me := p.Clone()
			me.Health = fight.PlayerHP
			out.Rewards = s.winAgainstEnemy(me, enemy)
			me.IsInFight = false
			me.Clamp()
			fight.State = storage.FightVictory
			out.State = fight.State
			out.Player = me
			return out
		}
	}

	counter := s.resolver.ResolveAttack(s.resolver.FromEnemy(enemy, fight.EnemyHP), s.resolver.FromPlayer(p, fight.PlayerHP), false)
	fight.PlayerHP = max(0, fight.PlayerHP-counter.Damage)
	out.Log = append(out.Log, Round{Attacker: enemy.Name, Target: p.Name, Hit: counter, TargetHP: fight.PlayerHP})

	if fight.PlayerHP == 0 {
		me := p.Clone()
		out.MoneyLost = s.lose(me)
		fight.State = storage.FightDefeat
		out.State = fight.State
		out.Player = me
		return out
	}

	if !skipAttack {
		fight.Round++
	}
	fight.State = storage.FightActive
	out.State = fight.State
	out.Player = p.Clone()
	return out
}

// duelRound plays one round between two players. p acts, opponent answers.
func (s *Sessions) duelRound(p, opponent *player.Player, f *storage.Fight, skipAttack bool) Outcome {
	fight := *f
	fight.State = storage.FightResolvingRound
	out := Outcome{Fight: &fight}

	myHP, theirHP := hpOf(&fight, p.ID), hpOf(&fight, opponent.ID)

	if !skipAttack {
		hit := s.resolver.ResolveAttack(s.resolver.FromPlayer(p, myHP), s.resolver.FromPlayer(opponent, theirHP), true)
		theirHP = max(0, theirHP-hit.Damage)
		setHP(&fight, opponent.ID, theirHP)
		out.Log = append(out.Log, Round{Attacker: p.Name, Target: opponent.Name, Hit: hit, TargetHP: theirHP})

		if theirHP == 0 {
			winner, loser := p.Clone(), opponent.Clone()
			winner.Health = myHP
			out.Rewards, out.MoneyLost = s.settleDuel(winner, loser)
			fight.State = storage.FightVictory
			out.State = fight.State
			out.Player, out.Opponent = winner, loser
			return out
		}
	}

	counter := s.resolver.ResolveAttack(s.resolver.FromPlayer(opponent, theirHP), s.resolver.FromPlayer(p, myHP), true)
	myHP = max(0, myHP-counter.Damage)
	setHP(&fight, p.ID, myHP)
	out.Log = append(out.Log, Round{Attacker: opponent.Name, Target: p.Name, Hit: counter, TargetHP: myHP})

	if myHP == 0 {
		winner, loser := opponent.Clone(), p.Clone()
		winner.Health = theirHP
		out.Rewards, out.MoneyLost = s.settleDuel(winner, loser)
		fight.State = storage.FightDefeat
		out.State = fight.State
		out.Player, out.Opponent = loser, winner
		return out
	}

	if !skipAttack {
		fight.Round++
	}
	fight.State = storage.FightActive
	out.State = fight.State
	out.Player, out.Opponent = p.Clone(), opponent.Clone()
	return out
}

// winAgainstEnemy grants the victory rewards to me.
func (s *Sessions) winAgainstEnemy(me *player.Player, enemy *catalog.Enemy) *Rewards {
	r := &Rewards{
		XP:    enemy.XP,
		Money: dice.RangeInt(s.rng, s.cfg.RewardMoney.Min(), s.cfg.RewardMoney.Max()),
		Items: s.loot.Roll(enemy.Loot, s.cfg.LootDropChance),
	}
	me.Earn(r.Money)
	me.RecordFightWon()
	me.RecordItemsFound(len(r.Items))
	for faction, delta := range s.cfg.ReputationOnWin {
		me.AddReputation(faction, delta)
	}
	player.ApplyAction(me, s.cat.Personality(), player.ActionFightWin)
	r.Progress = s.ledger.AddXP(me, r.XP)
	r.Items = append(r.Items, r.Progress.Items...)
	return r
}

// settleDuel pays the winner the money the loser forfeits plus XP scaled
// by the loser's level.
func (s *Sessions) settleDuel(winner, loser *player.Player) (*Rewards, int) {
	lost := s.lose(loser)

	r := &Rewards{XP: loser.Level * DuelXPPerLevel, Money: lost}
	winner.Earn(lost)
	winner.RecordFightWon()
	winner.PlayersKilled++
	winner.IsInFight = false
	player.ApplyAction(winner, s.cat.Personality(), player.ActionFightWin)
	r.Progress = s.ledger.AddXP(winner, r.XP)
	r.Items = r.Progress.Items
	winner.Clamp()
	return r, lost
}

// lose applies the defeat penalty and returns the money forfeited.
func (s *Sessions) lose(me *player.Player) int {
	lost := me.Spend(int(math.Floor(float64(me.Money) * s.cfg.LossMoneyFraction)))
	me.Health = 1
	me.IsInFight = false
	me.RecordFightLost()
	me.RecordDeath()
	player.ApplyAction(me, s.cat.Personality(), player.ActionFightLose)
	me.Clamp()
	return lost
}

// Release clears the fight flag of a player whose session ended without a
// result, such as an expired one.
func Release(p *player.Player) *player.Player {
	next := p.Clone()
	next.IsInFight = false
	return next
}

func conflict(p *player.Player) error {
	if p.IsInFight {
		return gameerr.Conflict("fight")
	}
	if p.IsWalking {
		return gameerr.Conflict("walk")
	}
	return nil
}

func hpOf(f *storage.Fight, playerID string) int {
	if f.OpponentPlayerID != "" && playerID == f.OpponentPlayerID {
		return f.OpponentHP
	}
	return f.PlayerHP
}

func setHP(f *storage.Fight, playerID string, hp int) {
	if f.OpponentPlayerID != "" && playerID == f.OpponentPlayerID {
		f.OpponentHP = hp
		return
	}
	f.PlayerHP = hp
}
