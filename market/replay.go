package market

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// ReplayMarket plays back a recorded tape of market frames, one JSON
// snapshot per line. Holdings and capital are tracked locally so a
// recorded session can be re-traded against.
type ReplayMarket struct {
	mu      sync.Mutex
	frames  []Snapshot
	idx     int
	capital float64
	stock   map[int]int64
}

// NewReplayMarket loads a JSON Lines tape from path.
func NewReplayMarket(path string, capital float64) (*ReplayMarket, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open replay file: %w", err)
	}
	defer f.Close()

	var frames []Snapshot
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var snap Snapshot
		if err := json.Unmarshal(line, &snap); err != nil {
			return nil, fmt.Errorf("failed to decode replay frame %d: %w", len(frames), err)
		}
		frames = append(frames, snap)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read replay file: %w", err)
	}
	if len(frames) == 0 {
		return nil, fmt.Errorf("replay file %s contains no frames", path)
	}

	return &ReplayMarket{
		frames:  frames,
		capital: capital,
		stock:   make(map[int]int64),
	}, nil
}

// Advance moves to the next recorded frame. Past the end of the tape the
// market reports itself unavailable.
func (m *ReplayMarket) Advance() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.idx < len(m.frames) {
		m.idx++
	}
}

// Exhausted reports whether the tape has run out.
func (m *ReplayMarket) Exhausted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.idx >= len(m.frames)
}

// Snapshot returns the current frame with local capital and holdings
// overlaid.
func (m *ReplayMarket) Snapshot() (*Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.idx >= len(m.frames) {
		return nil, fmt.Errorf("replay tape exhausted after %d frames", len(m.frames))
	}
	frame := m.frames[m.idx]
	goods := make([]Good, len(frame.Goods))
	copy(goods, frame.Goods)
	for i := range goods {
		goods[i].Stock = m.stock[goods[i].ID]
	}
	return &Snapshot{Tick: frame.Tick, Capital: m.capital, Goods: goods}, nil
}

func (m *ReplayMarket) Buy(_ context.Context, goodID int, qty int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	price, err := m.price(goodID)
	if err != nil {
		return err
	}
	if qty <= 0 {
		return fmt.Errorf("buy quantity must be positive, got %d", qty)
	}
	cost := float64(qty) * price
	if cost > m.capital {
		return fmt.Errorf("insufficient capital: need %.2f, have %.2f", cost, m.capital)
	}
	m.capital -= cost
	m.stock[goodID] += qty
	return nil
}

func (m *ReplayMarket) Sell(_ context.Context, goodID int, qty int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	price, err := m.price(goodID)
	if err != nil {
		return err
	}
	if qty <= 0 || qty > m.stock[goodID] {
		return fmt.Errorf("sell quantity %d out of range, holding %d of good %d", qty, m.stock[goodID], goodID)
	}
	m.stock[goodID] -= qty
	m.capital += float64(qty) * price
	return nil
}

func (m *ReplayMarket) price(goodID int) (float64, error) {
	if m.idx >= len(m.frames) {
		return 0, fmt.Errorf("replay tape exhausted")
	}
	for _, g := range m.frames[m.idx].Goods {
		if g.ID == goodID {
			return g.Price, nil
		}
	}
	return 0, fmt.Errorf("unknown good id %d", goodID)
}
