package economy

import (
	"github.com/waka2kekagg-star/bomzh-simulator/internal/catalog"
	"github.com/waka2kekagg-star/bomzh-simulator/internal/gameerr"
	"github.com/waka2kekagg-star/bomzh-simulator/internal/player"
)

var factions = []string{player.FactionCops, player.FactionBandits, player.FactionStreet}

// ReputationTier returns the highest tier whose threshold does not exceed
// value. Values below every threshold get the lowest tier.
func ReputationTier(f *catalog.Faction, value int) (catalog.ReputationTier, bool) {
	if len(f.Tiers) == 0 {
		return catalog.ReputationTier{}, false
	}
	tier := f.Tiers[0]
	for _, t := range f.Tiers {
		if value >= t.Threshold {
			tier = t
		}
	}
	return tier, true
}

// Standing is a player's reputation with one faction.
type Standing struct {
	Faction *catalog.Faction
	Value   int
	Tier    catalog.ReputationTier
}

// Standings returns the player's standing with every faction.
func (s *Shop) Standings(p *player.Player) []Standing {
	out := make([]Standing, 0, len(factions))
	for _, id := range factions {
		f, ok := s.cat.Faction(id)
		if !ok {
			continue
		}
		v := p.Reputation(id)
		tier, _ := ReputationTier(f, v)
		out = append(out, Standing{Faction: f, Value: v, Tier: tier})
	}
	return out
}

// Adjust applies a faction's reputation action to p and returns the delta.
func (s *Shop) Adjust(p *player.Player, factionID, action string) (int, error) {
	f, ok := s.cat.Faction(factionID)
	if !ok {
		return 0, gameerr.NotFound("faction", factionID)
	}
	delta, ok := f.Actions[action]
	if !ok {
		return 0, gameerr.Input("unknown reputation action: " + action)
	}
	p.AddReputation(factionID, delta)
	return delta, nil
}

// ApplyAction applies action to every faction that defines it.
func (s *Shop) ApplyAction(p *player.Player, action string) {
	for _, id := range factions {
		if f, ok := s.cat.Faction(id); ok {
			p.AddReputation(id, f.Actions[action])
		}
	}
}
