package balance

import (
	"testing"

	"github.com/waka2kekagg-star/bomzh-simulator/internal/catalog"
	"github.com/waka2kekagg-star/bomzh-simulator/internal/dice"
)

var alcoholic = Profile{Class: "alcoholic", Country: "russia"}

func TestSimulateFightsDeterministic(t *testing.T) {
	cat := catalog.MustDefault()

	// 0.99 never crits and never drops loot
	a, err := New(cat, dice.Fixed(0.99)).SimulateFights(alcoholic, "gopnik", 5)
	if err != nil {
		t.Fatal(err)
	}
	b, err := New(cat, dice.Fixed(0.99)).SimulateFights(alcoholic, "gopnik", 5)
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Errorf("same rolls gave different results:\n%+v\n%+v", a, b)
	}
	if a.Simulations != 5 || a.Wins+a.Losses+a.Stalemates != 5 {
		t.Errorf("counts = %+v", a)
	}
	if a.WinRate != 1 || a.MinRounds != a.MaxRounds || a.AvgHPLeft <= 0 {
		t.Errorf("fixed rolls should win the same way every time: %+v", a)
	}
}

func TestSimulateFightsErrors(t *testing.T) {
	s := New(catalog.MustDefault(), dice.NewRand(1))

	if _, err := s.SimulateFights(alcoholic, "dragon", 1); err == nil {
		t.Error("unknown enemy accepted")
	}
	if _, err := s.SimulateFights(Profile{Class: "wizard", Country: "russia"}, "gopnik", 1); err == nil {
		t.Error("unknown class accepted")
	}
	if _, err := s.SimulateFights(Profile{Class: "alcoholic", Country: "russia", Weapon: "rags"}, "gopnik", 1); err == nil {
		t.Error("non-weapon accepted as weapon")
	}
}

func TestSimulateAllEnemies(t *testing.T) {
	cat := catalog.MustDefault()
	results, err := New(cat, dice.NewRand(7)).SimulateAllEnemies(alcoholic, 20)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != len(cat.Enemies()) {
		t.Fatalf("results = %d, enemies = %d", len(results), len(cat.Enemies()))
	}
	for _, r := range results {
		if r.WinRate < 0 || r.WinRate > 1 || r.MinRounds < 1 || r.MaxRounds < r.MinRounds {
			t.Errorf("%s: %+v", r.Enemy, r)
		}
	}
}

func TestSimulateWalks(t *testing.T) {
	s := New(catalog.MustDefault(), dice.Fixed(0.1))

	r, err := s.SimulateWalks(alcoholic, "short", 3)
	if err != nil {
		t.Fatal(err)
	}
	if r.Minutes != 30 || r.EnergyCost != 20 || r.Simulations != 3 {
		t.Errorf("tier = %+v", r)
	}
	if r.AvgXP != 10 || r.XPPerEnergy != 0.5 {
		t.Errorf("xp = %v per energy %v, want 10 and 0.5", r.AvgXP, r.XPPerEnergy)
	}

	if _, err := s.SimulateWalks(alcoholic, "marathon", 1); err == nil {
		t.Error("unknown tier accepted")
	}

	all, err := s.SimulateAllTiers(alcoholic, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 || all[2].Tier != "long" {
		t.Errorf("tiers = %+v", all)
	}
}

func TestLevelCurve(t *testing.T) {
	s := New(catalog.MustDefault(), dice.NewRand(1))
	rows := s.LevelCurve()
	if len(rows) != s.ledger.MaxLevel() {
		t.Fatalf("rows = %d", len(rows))
	}
	if rows[0].XPRequired != 100 || rows[0].Cumulative != 0 {
		t.Errorf("level 1 = %+v", rows[0])
	}
	if rows[1].Cumulative != 100 || rows[2].Cumulative != 100+rows[1].XPRequired {
		t.Errorf("cumulative = %d, %d", rows[1].Cumulative, rows[2].Cumulative)
	}
	if last := rows[len(rows)-1]; last.XPRequired != 0 {
		t.Errorf("level cap still requires XP: %+v", last)
	}
	for i := 1; i < len(rows)-1; i++ {
		if rows[i].XPRequired < rows[i-1].XPRequired {
			t.Errorf("curve drops at level %d", rows[i].Level)
		}
	}
}

func TestFightsToLevel(t *testing.T) {
	s := New(catalog.MustDefault(), dice.NewRand(1))

	if got := s.FightsToLevel(20, 2); got != 5 {
		t.Errorf("FightsToLevel(20, 2) = %d, want 5", got)
	}
	if got := s.FightsToLevel(30, 2); got != 4 {
		t.Errorf("FightsToLevel(30, 2) = %d, want 4", got)
	}
	if got := s.FightsToLevel(0, 5); got != 0 {
		t.Errorf("zero xp = %d", got)
	}
}
