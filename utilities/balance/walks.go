package balance

import "fmt"

// WalkResult aggregates many walks of one tier.
type WalkResult struct {
	Tier        string
	Minutes     int
	EnergyCost  int
	Simulations int
	AvgMoney    float64
	AvgXP       float64
	AvgDamage   float64
	AvgItems    float64
	AvgFine     float64
	FineRate    float64 // share of walks with a police fine
	XPPerEnergy float64
}

// SimulateWalks completes iterations walks of tierID with a fresh player each.
func (s *Simulator) SimulateWalks(prof Profile, tierID string, iterations int) (WalkResult, error) {
	tier, ok := s.cat.WalkTier(tierID)
	if !ok {
		return WalkResult{}, fmt.Errorf("unknown walk tier %q", tierID)
	}
	res := WalkResult{Tier: tier.ID, Minutes: tier.Minutes, EnergyCost: tier.EnergyCost}

	var money, xp, damage, items, fine, fined int
	for i := 0; i < iterations; i++ {
		p, err := s.NewPlayer(prof)
		if err != nil {
			return res, err
		}
		w, p, err := s.walks.Start(p, tierID, "", epoch)
		if err != nil {
			return res, err
		}
		sum, err := s.walks.Complete(p, w, w.EndsAt)
		if err != nil {
			return res, err
		}
		money += sum.Money
		xp += sum.XP
		damage += sum.Damage
		items += len(sum.Items)
		fine += sum.Fine
		if sum.Fine > 0 {
			fined++
		}
	}

	res.Simulations = iterations
	if iterations == 0 {
		return res, nil
	}
	n := float64(iterations)
	res.AvgMoney = float64(money) / n
	res.AvgXP = float64(xp) / n
	res.AvgDamage = float64(damage) / n
	res.AvgItems = float64(items) / n
	res.AvgFine = float64(fine) / n
	res.FineRate = float64(fined) / n
	if tier.EnergyCost > 0 {
		res.XPPerEnergy = res.AvgXP / float64(tier.EnergyCost)
	}
	return res, nil
}

// SimulateAllTiers runs SimulateWalks for every walk tier.
func (s *Simulator) SimulateAllTiers(prof Profile, iterations int) ([]WalkResult, error) {
	var out []WalkResult
	for _, t := range s.cat.Walk().Tiers {
		r, err := s.SimulateWalks(prof, t.ID, iterations)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}
