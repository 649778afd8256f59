package dice

import "sync"

// Scripted replays fixed values, for deterministic tests and simulations.
// Floats and Ints are consumed in order and wrap around when exhausted;
// an empty list yields 0. Intn results are reduced modulo n.
type Scripted struct {
	Floats []float64
	Ints   []int

	mu   sync.Mutex
	fpos int
	ipos int
}

// Fixed returns a Scripted source whose every Float64 is f and Intn is 0.
func Fixed(f float64) *Scripted {
	return &Scripted{Floats: []float64{f}}
}

func (s *Scripted) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.Floats) == 0 {
		return 0
	}
	v := s.Floats[s.fpos%len(s.Floats)]
	s.fpos++
	return v
}

func (s *Scripted) Intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.Ints) == 0 || n <= 0 {
		return 0
	}
	v := s.Ints[s.ipos%len(s.Ints)]
	s.ipos++
	if v < 0 {
		v = -v
	}
	return v % n
}

// Sequence returns a Scripted source replaying floats in order.
func Sequence(floats ...float64) *Scripted {
	return &Scripted{Floats: floats}
}
