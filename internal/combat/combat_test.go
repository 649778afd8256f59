package combat

import (
	"testing"
	"time"

	"github.com/waka2kekagg-star/bomzh-simulator/internal/catalog"
	"github.com/waka2kekagg-star/bomzh-simulator/internal/dice"
	"github.com/waka2kekagg-star/bomzh-simulator/internal/gameerr"
	"github.com/waka2kekagg-star/bomzh-simulator/internal/leveling"
	"github.com/waka2kekagg-star/bomzh-simulator/internal/loot"
	"github.com/waka2kekagg-star/bomzh-simulator/internal/player"
	"github.com/waka2kekagg-star/bomzh-simulator/internal/storage"
)

var now = time.Date(2026, 6, 1, 20, 0, 0, 0, time.UTC)

func newTestSessions(rng dice.Source) *Sessions {
	cat := catalog.MustDefault()
	return NewSessions(cat, NewResolver(cat, rng), leveling.New(cat.Levels()), loot.New(cat, rng), rng, 0)
}

func newTestPlayer(id, class string) *player.Player {
	return player.New(id, "Игрок "+id, nil, &catalog.Class{ID: class}, now)
}

func TestResolveAttackDefenseScenario(t *testing.T) {
	r := NewResolver(catalog.MustDefault(), dice.Sequence(0.5, 0.9))

	hit := r.ResolveAttack(Combatant{BaseDamage: 20}, Combatant{Defense: 10}, true)

	if hit.Damage != 15 {
		t.Errorf("Damage = %d, want 15", hit.Damage)
	}
	if hit.Crit {
		t.Error("unexpected crit")
	}
	if hit.Blocked != 5 {
		t.Errorf("Blocked = %d, want 5", hit.Blocked)
	}
}

func TestResolveAttackNoDefenseIsBase(t *testing.T) {
	for _, base := range []int{1, 5, 17, 60} {
		r := NewResolver(catalog.MustDefault(), dice.Sequence(0.5, 0.99))
		hit := r.ResolveAttack(Combatant{BaseDamage: base}, Combatant{}, false)
		if hit.Damage != base {
			t.Errorf("base %d: Damage = %d", base, hit.Damage)
		}
	}
}

func TestResolveAttackCrit(t *testing.T) {
	r := NewResolver(catalog.MustDefault(), dice.Sequence(0.5, 0.0))
	hit := r.ResolveAttack(Combatant{BaseDamage: 21}, Combatant{}, true)
	if !hit.Crit || hit.Damage != 31 {
		t.Errorf("hit = %+v, want crit 31", hit)
	}

	// NPC crit chance is lower
	r = NewResolver(catalog.MustDefault(), dice.Sequence(0.5, 0.07))
	if hit := r.ResolveAttack(Combatant{BaseDamage: 10}, Combatant{}, false); hit.Crit {
		t.Error("0.07 should not crit for an NPC attacker")
	}
}

func TestResolveAttackMinimumDamage(t *testing.T) {
	r := NewResolver(catalog.MustDefault(), dice.NewRand(99))
	for i := 0; i < 500; i++ {
		hit := r.ResolveAttack(Combatant{BaseDamage: 3}, Combatant{Defense: 50}, i%2 == 0)
		if hit.Damage < 1 {
			t.Fatalf("Damage = %d, want >= 1", hit.Damage)
		}
	}
}

func TestResolveAttackClassBonuses(t *testing.T) {
	cat := catalog.MustDefault()

	tests := []struct {
		name    string
		bonuses catalog.ClassBonuses
		health  int
		want    int
	}{
		{"berserker low health", catalog.ClassBonuses{Berserker: 0.25}, 20, 25},
		{"berserker healthy", catalog.ClassBonuses{Berserker: 0.25}, 80, 20},
		{"stealth", catalog.ClassBonuses{StealthDamage: 0.2}, 100, 22},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver(cat, dice.Sequence(0.5, 0.9))
			attacker := Combatant{BaseDamage: 20, Health: tt.health, MaxHealth: 100, Bonuses: tt.bonuses}
			if hit := r.ResolveAttack(attacker, Combatant{}, true); hit.Damage != tt.want {
				t.Errorf("Damage = %d, want %d", hit.Damage, tt.want)
			}
		})
	}

	// NPC attackers never get class bonuses
	r := NewResolver(cat, dice.Sequence(0.5, 0.9))
	attacker := Combatant{BaseDamage: 20, Health: 1, MaxHealth: 100, Bonuses: catalog.ClassBonuses{Berserker: 1}}
	if hit := r.ResolveAttack(attacker, Combatant{}, false); hit.Damage != 20 {
		t.Errorf("NPC Damage = %d, want 20", hit.Damage)
	}
}

func TestFromPlayerEquipment(t *testing.T) {
	r := NewResolver(catalog.MustDefault(), dice.NewRand(1))
	p := newTestPlayer("1", "thief")
	p.EquippedWeapon = "pipe"
	p.EquippedArmor = "dark_hood"

	c := r.FromPlayer(p, 50)
	if c.BaseDamage != 15 || c.Defense != 4 || c.Health != 50 {
		t.Errorf("combatant = %+v", c)
	}

	p.EquippedWeapon = "no_such_weapon"
	if c := r.FromPlayer(p, 50); c.BaseDamage != 5 {
		t.Errorf("unknown weapon damage = %d, want unarmed 5", c.BaseDamage)
	}
}

func TestBossCounterHit(t *testing.T) {
	b := &catalog.Boss{Damage: 50}
	if got := BossCounterHit(b, 20); got != 40 {
		t.Errorf("BossCounterHit = %d, want 40", got)
	}
	if got := BossCounterHit(b, 0); got != 50 {
		t.Errorf("BossCounterHit unarmored = %d, want 50", got)
	}
}

func TestStartValidation(t *testing.T) {
	s := newTestSessions(dice.NewRand(1))
	p := newTestPlayer("1", "thief")

	if _, _, err := s.Start(p, "dragon", "", now); gameerr.CodeOf(err) != gameerr.CodeInvalidTarget {
		t.Errorf("unknown enemy error = %v", err)
	}

	busy := p.Clone()
	busy.IsWalking = true
	if _, _, err := s.Start(busy, "gopnik", "", now); gameerr.CodeOf(err) != gameerr.CodeSessionConflict {
		t.Errorf("walking player error = %v", err)
	}

	dead := p.Clone()
	dead.IsDead = true
	if _, _, err := s.Start(dead, "gopnik", "", now); gameerr.CodeOf(err) != gameerr.CodePlayerDead {
		t.Errorf("dead player error = %v", err)
	}

	f, next, err := s.Start(p, "gopnik", "chan", now)
	if err != nil {
		t.Fatal(err)
	}
	if f.EnemyHP != 50 || f.PlayerHP != 100 || f.Round != 1 || f.State != storage.FightActive {
		t.Errorf("fight = %+v", f)
	}
	if !f.ExpiresAt.Equal(now.Add(10 * time.Minute)) {
		t.Errorf("ExpiresAt = %v", f.ExpiresAt)
	}
	if !next.IsInFight || p.IsInFight {
		t.Error("Start must flag the returned copy only")
	}
}

func TestAttackVictory(t *testing.T) {
	// variance 1, no crit, loot rolls: drop, keep
	rng := &dice.Scripted{Floats: []float64{0.5, 0.9, 0.1, 0.9}, Ints: []int{0}}
	s := newTestSessions(rng)
	p := newTestPlayer("1", "businessman")
	f, fighting, _ := s.Start(p, "gopnik", "", now)
	f.EnemyHP = 3

	out, err := s.Attack(fighting, nil, f, now.Add(time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if out.State != storage.FightVictory || !out.Ended() {
		t.Fatalf("State = %s, want victory", out.State)
	}

	me := out.Player
	if me.IsInFight {
		t.Error("IsInFight still set after victory")
	}
	if me.Money != 110 || out.Rewards.Money != 10 {
		t.Errorf("money = %d reward %d, want 110 and 10", me.Money, out.Rewards.Money)
	}
	if me.XP != 20 {
		t.Errorf("XP = %d, want 20", me.XP)
	}
	if me.RepBandits != 2 || me.RepStreet != 1 || me.TraitAggressive != 5 {
		t.Errorf("rep/trait = %d/%d/%d", me.RepBandits, me.RepStreet, me.TraitAggressive)
	}
	if me.FightsWon != 1 || me.TotalFights != 1 {
		t.Errorf("counters = %d/%d", me.FightsWon, me.TotalFights)
	}
	if len(out.Rewards.Items) != 1 || out.Rewards.Items[0] != "semechki" {
		t.Errorf("items = %v, want [semechki]", out.Rewards.Items)
	}
}

func TestAttackDefeat(t *testing.T) {
	s := newTestSessions(dice.Sequence(0.5, 0.9, 0.5, 0.9))
	p := newTestPlayer("1", "businessman")
	f, fighting, _ := s.Start(p, "gopnik", "", now)
	f.PlayerHP = 5

	out, err := s.Attack(fighting, nil, f, now)
	if err != nil {
		t.Fatal(err)
	}
	if out.State != storage.FightDefeat {
		t.Fatalf("State = %s, want defeat", out.State)
	}
	if len(out.Log) != 2 || out.Log[1].Hit.Damage != 9 {
		t.Errorf("log = %+v, want counter hit of 9", out.Log)
	}

	me := out.Player
	if me.Health != 1 {
		t.Errorf("Health = %d, want 1", me.Health)
	}
	if me.Money != 50 || out.MoneyLost != 50 {
		t.Errorf("money = %d lost %d, want 50/50", me.Money, out.MoneyLost)
	}
	if me.Deaths != 1 || me.FightsLost != 1 || me.TraitAggressive != -3 || me.IsInFight {
		t.Errorf("player = %+v", me)
	}
}

func TestAttackContinues(t *testing.T) {
	s := newTestSessions(dice.Sequence(0.5, 0.9))
	p := newTestPlayer("1", "businessman")
	f, fighting, _ := s.Start(p, "gopnik", "", now)

	out, err := s.Attack(fighting, nil, f, now)
	if err != nil {
		t.Fatal(err)
	}
	if out.State != storage.FightActive || out.Ended() {
		t.Fatalf("State = %s, want active", out.State)
	}
	if out.Fight.EnemyHP != 45 || out.Fight.PlayerHP != 91 || out.Fight.Round != 2 {
		t.Errorf("fight = %+v", out.Fight)
	}
	if f.EnemyHP != 50 {
		t.Error("input fight must not be modified")
	}
}

func TestFlee(t *testing.T) {
	s := newTestSessions(dice.Sequence(0.1))
	p := newTestPlayer("1", "businessman")
	f, fighting, _ := s.Start(p, "gopnik", "", now)
	f.PlayerHP = 70

	out, err := s.Flee(fighting, nil, f, now)
	if err != nil {
		t.Fatal(err)
	}
	if out.State != storage.FightFled || !out.Fled {
		t.Fatalf("State = %s, want fled", out.State)
	}
	if out.Player.IsInFight || out.Player.Health != 70 || out.Player.Money != 100 {
		t.Errorf("fled player = %+v", out.Player)
	}
}

func TestFleeFailureCounterAttacks(t *testing.T) {
	s := newTestSessions(dice.Sequence(0.95, 0.5, 0.9))
	p := newTestPlayer("1", "businessman")
	f, fighting, _ := s.Start(p, "gopnik", "", now)

	out, err := s.Flee(fighting, nil, f, now)
	if err != nil {
		t.Fatal(err)
	}
	if out.State != storage.FightActive {
		t.Fatalf("State = %s, want active", out.State)
	}
	if out.Fight.PlayerHP != 91 || out.Fight.EnemyHP != 50 {
		t.Errorf("fight = %+v", out.Fight)
	}
}

func TestEscapeBonus(t *testing.T) {
	// 0.5 fails the base 0.3 chance but passes 0.3 + 0.35 for the cunning class
	s := newTestSessions(dice.Sequence(0.5))
	p := newTestPlayer("1", "cunning")
	f, fighting, _ := s.Start(p, "gopnik", "", now)

	out, err := s.Flee(fighting, nil, f, now)
	if err != nil {
		t.Fatal(err)
	}
	if !out.Fled {
		t.Error("cunning player should escape at 0.5")
	}
}

func TestExpiredSession(t *testing.T) {
	s := newTestSessions(dice.NewRand(1))
	p := newTestPlayer("1", "thief")
	f, fighting, _ := s.Start(p, "gopnik", "", now)

	_, err := s.Attack(fighting, nil, f, now.Add(s.TTL()))
	if gameerr.CodeOf(err) != gameerr.CodeSessionExpiredOrMissing {
		t.Errorf("error = %v, want SESSION_EXPIRED_OR_MISSING", err)
	}
	if _, err := s.Flee(fighting, nil, nil, now); gameerr.CodeOf(err) != gameerr.CodeSessionExpiredOrMissing {
		t.Errorf("nil fight error = %v", err)
	}

	if Release(fighting).IsInFight {
		t.Error("Release should clear IsInFight")
	}
}

func TestDuel(t *testing.T) {
	s := newTestSessions(dice.Sequence(0.5, 0.9))
	a := newTestPlayer("a", "businessman")
	b := newTestPlayer("b", "businessman")
	b.Level = 3

	if _, _, _, err := s.StartDuel(a, a, "", now); gameerr.CodeOf(err) != gameerr.CodeInvalidTarget {
		t.Errorf("self duel error = %v", err)
	}

	f, a2, b2, err := s.StartDuel(a, b, "", now)
	if err != nil {
		t.Fatal(err)
	}
	if !a2.IsInFight || !b2.IsInFight {
		t.Error("both duelists should be flagged")
	}
	f.OpponentHP = 2

	out, err := s.Attack(a2, b2, f, now)
	if err != nil {
		t.Fatal(err)
	}
	if out.State != storage.FightVictory {
		t.Fatalf("State = %s, want victory", out.State)
	}
	if out.Player.PlayersKilled != 1 || out.Player.Money != 150 {
		t.Errorf("winner = kills %d money %d, want 1 and 150", out.Player.PlayersKilled, out.Player.Money)
	}
	if out.Player.XP != 30 {
		t.Errorf("winner XP = %d, want 30", out.Player.XP)
	}
	if out.Opponent.Health != 1 || out.Opponent.Money != 50 || out.Opponent.IsInFight {
		t.Errorf("loser = %+v", out.Opponent)
	}
}

func TestDuelCounterFromOpponentSide(t *testing.T) {
	s := newTestSessions(dice.Sequence(0.5, 0.9, 0.5, 0.9))
	a := newTestPlayer("a", "businessman")
	b := newTestPlayer("b", "businessman")
	f, a2, b2, _ := s.StartDuel(a, b, "", now)

	// The challenged player attacks; the challenger answers.
	out, err := s.Attack(b2, a2, f, now)
	if err != nil {
		t.Fatal(err)
	}
	// fists 5 - rags 2*0.5 = 4 each way
	if out.Fight.PlayerHP != 96 || out.Fight.OpponentHP != 96 {
		t.Errorf("hp = %d/%d, want 96/96", out.Fight.PlayerHP, out.Fight.OpponentHP)
	}
}
