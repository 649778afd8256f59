package dice

import "testing"

func TestRangeInt(t *testing.T) {
	src := NewRand(42)
	for i := 0; i < 200; i++ {
		got := RangeInt(src, 10, 59)
		if got < 10 || got > 59 {
			t.Fatalf("RangeInt(10, 59) = %d, out of range", got)
		}
	}

	if got := RangeInt(src, 7, 7); got != 7 {
		t.Errorf("RangeInt(7, 7) = %d, want 7", got)
	}
	if got := RangeInt(src, 9, 3); got != 9 {
		t.Errorf("RangeInt(9, 3) = %d, want min 9", got)
	}
}

func TestRangeIntScriptedBounds(t *testing.T) {
	if got := RangeInt(&Scripted{Ints: []int{0}}, 10, 100); got != 10 {
		t.Errorf("low roll = %d, want 10", got)
	}
	if got := RangeInt(&Scripted{Ints: []int{90}}, 10, 100); got != 100 {
		t.Errorf("high roll = %d, want 100", got)
	}
}

func TestChance(t *testing.T) {
	tests := []struct {
		roll float64
		p    float64
		want bool
	}{
		{0.0, 0.3, true},
		{0.29, 0.3, true},
		{0.3, 0.3, false},
		{0.5, 0.0, false},
		{0.0, 0.0, false},
		{0.99, 1.0, true},
	}

	for _, tt := range tests {
		if got := Chance(Fixed(tt.roll), tt.p); got != tt.want {
			t.Errorf("Chance(roll=%v, p=%v) = %v, want %v", tt.roll, tt.p, got, tt.want)
		}
	}
}

func TestWeightedPick(t *testing.T) {
	entries := []Weighted[string]{
		{Value: "common", Weight: 0.60},
		{Value: "uncommon", Weight: 0.25},
		{Value: "rare", Weight: 0.10},
		{Value: "epic", Weight: 0.04},
		{Value: "legendary", Weight: 0.01},
	}

	tests := []struct {
		roll float64
		want string
	}{
		{0.0, "common"},
		{0.59, "common"},
		{0.60, "uncommon"},
		{0.84, "uncommon"},
		{0.85, "rare"},
		{0.95, "epic"},
		{0.995, "legendary"},
	}

	for _, tt := range tests {
		got, ok := WeightedPick(entries, Fixed(tt.roll))
		if !ok || got != tt.want {
			t.Errorf("WeightedPick(roll=%v) = %q, %v; want %q", tt.roll, got, ok, tt.want)
		}
	}
}

func TestWeightedPickFallsThrough(t *testing.T) {
	entries := []Weighted[int]{{Value: 1, Weight: 0.2}, {Value: 2, Weight: 0.3}}

	if _, ok := WeightedPick(entries, Fixed(0.75)); ok {
		t.Error("expected no pick when roll exceeds total weight")
	}
	if _, ok := WeightedPick[int](nil, Fixed(0)); ok {
		t.Error("expected no pick from empty table")
	}
}

func TestPick(t *testing.T) {
	items := []string{"a", "b", "c"}
	got, ok := Pick(&Scripted{Ints: []int{2}}, items)
	if !ok || got != "c" {
		t.Errorf("Pick = %q, %v; want c, true", got, ok)
	}
	if _, ok := Pick[string](NewRand(1), nil); ok {
		t.Error("Pick on empty slice should fail")
	}
}

func TestRoll(t *testing.T) {
	src := NewRand(7)
	for i := 0; i < 100; i++ {
		result := Roll(src, 2, 6)
		if result < 2 || result > 12 {
			t.Errorf("Roll(2, 6) = %d, expected 2-12", result)
		}
	}
}

func TestScriptedWraps(t *testing.T) {
	s := &Scripted{Floats: []float64{0.1, 0.2}, Ints: []int{5}}
	want := []float64{0.1, 0.2, 0.1}
	for i, w := range want {
		if got := s.Float64(); got != w {
			t.Errorf("Float64() #%d = %v, want %v", i, got, w)
		}
	}
	if got := s.Intn(3); got != 2 {
		t.Errorf("Intn(3) = %d, want 5 mod 3 = 2", got)
	}
}
