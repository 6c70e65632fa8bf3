// Package history keeps a bounded, oldest-first price log per good.
package history

// Store owns all price histories. Only Update mutates them; everything
// else hands out read-only views or copies.
type Store struct {
	maxLen int
	prices map[int][]float64
}

// NewStore creates a store that keeps at most maxLen observations per good.
func NewStore(maxLen int) *Store {
	return &Store{
		maxLen: maxLen,
		prices: make(map[int][]float64),
	}
}

// SetMaxLen applies a new cap. Existing histories are trimmed lazily on
// their next Update.
func (s *Store) SetMaxLen(n int) {
	if n > 0 {
		s.maxLen = n
	}
}

// Update appends price to the good's history, evicting oldest entries
// while the cap is exceeded.
func (s *Store) Update(goodID int, price float64) {
	h := append(s.prices[goodID], price)
	for len(h) > s.maxLen {
		h = h[1:]
	}
	s.prices[goodID] = h
}

// Prices returns the good's history, oldest first. Callers must not
// mutate the returned slice.
func (s *Store) Prices(goodID int) []float64 {
	return s.prices[goodID]
}

// Len returns the number of observations held for the good.
func (s *Store) Len(goodID int) int {
	return len(s.prices[goodID])
}

// MinMax returns the extremes of the good's history. ok is false when
// fewer than two observations exist; callers treat that as insufficient
// data, never as a zero minimum.
func (s *Store) MinMax(goodID int) (min, max float64, ok bool) {
	h := s.prices[goodID]
	if len(h) < 2 {
		return 0, 0, false
	}
	min, max = h[0], h[0]
	for _, p := range h[1:] {
		if p < min {
			min = p
		}
		if p > max {
			max = p
		}
	}
	return min, max, true
}

// Reset drops every history, used when the good universe is (re)initialized.
func (s *Store) Reset() {
	s.prices = make(map[int][]float64)
}
