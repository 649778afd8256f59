package balance

// LevelRow is one step of the XP curve.
type LevelRow struct {
	Level      int
	XPRequired int // to reach the next level
	Cumulative int // total XP spent to reach Level
	Unlocks    []string
	Title      string
	Money      int
}

// LevelCurve tabulates the XP curve up to the level cap.
func (s *Simulator) LevelCurve() []LevelRow {
	rewards := s.cat.Levels().Rewards
	rows := make([]LevelRow, 0, s.ledger.MaxLevel())
	total := 0
	for level := 1; level <= s.ledger.MaxLevel(); level++ {
		row := LevelRow{Level: level, Cumulative: total, Unlocks: s.ledger.UnlocksAt(level)}
		if r, ok := rewards[level]; ok {
			row.Title = r.Title
			row.Money = r.Money
		}
		if level < s.ledger.MaxLevel() {
			row.XPRequired = s.ledger.XPRequired(level)
			total += row.XPRequired
		}
		rows = append(rows, row)
	}
	return rows
}

// FightsToLevel estimates how many won fights against an enemy worth xp
// reach target from level 1.
func (s *Simulator) FightsToLevel(xp, target int) int {
	if xp <= 0 {
		return 0
	}
	need := 0
	for level := 1; level < min(target, s.ledger.MaxLevel()+1); level++ {
		need += s.ledger.XPRequired(level)
	}
	return (need + xp - 1) / xp
}
