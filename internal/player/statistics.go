package player

// Statistics tracks lifetime activity shown on profiles and leaderboards.
type Statistics struct {
	TotalFights      int
	FightsWon        int
	FightsLost       int
	BossesKilled     int
	TotalMoneyEarned int
	TotalItemsFound  int
	WalksCompleted   int
	PlayersKilled    int
	Deaths           int
}

// RecordFightWon counts a won fight.
func (s *Statistics) RecordFightWon() {
	s.TotalFights++
	s.FightsWon++
}

// RecordFightLost counts a lost fight.
func (s *Statistics) RecordFightLost() {
	s.TotalFights++
	s.FightsLost++
}

// RecordDeath counts a death.
func (s *Statistics) RecordDeath() {
	s.Deaths++
}

// RecordItemsFound adds found items.
func (s *Statistics) RecordItemsFound(n int) {
	if n > 0 {
		s.TotalItemsFound += n
	}
}
