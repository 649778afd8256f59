package player

import "github.com/waka2kekagg-star/bomzh-simulator/internal/catalog"

// Personality actions recorded by the game.
const (
	ActionFightWin  = "fight_win"
	ActionFightLose = "fight_lose"
	ActionUseDrugs  = "use_drugs"
	ActionSteal     = "steal"
	ActionShare     = "share"
)

// TraitValue returns the accumulator of a personality axis.
func (p *Player) TraitValue(axis string) int {
	if v := p.trait(axis); v != nil {
		return *v
	}
	return 0
}

// AddTrait shifts a personality axis, clamped to [-100, 100].
func (p *Player) AddTrait(axis string, delta int) {
	v := p.trait(axis)
	if v == nil {
		return
	}
	*v = clamp(*v+delta, -TraitLimit, TraitLimit)
}

func (p *Player) trait(axis string) *int {
	switch axis {
	case AxisAggressive:
		return &p.TraitAggressive
	case AxisGreedy:
		return &p.TraitGreedy
	case AxisLoyal:
		return &p.TraitLoyal
	case AxisAddict:
		return &p.TraitAddict
	}
	return nil
}

// ApplyAction adds the axis deltas configured for an action.
// Unknown actions change nothing.
func ApplyAction(p *Player, pers *catalog.Personality, action string) {
	for axis, delta := range pers.Actions[action] {
		p.AddTrait(axis, delta)
	}
}

// DominantTraits returns the traits whose axis has reached the threshold.
// Positive thresholds are reached from below, negative ones from above.
func DominantTraits(p *Player, pers *catalog.Personality) []catalog.Trait {
	var out []catalog.Trait
	for _, t := range pers.Traits {
		v := p.TraitValue(t.Axis)
		switch {
		case t.Threshold > 0 && v >= t.Threshold:
			out = append(out, t)
		case t.Threshold < 0 && v <= t.Threshold:
			out = append(out, t)
		}
	}
	return out
}
