package market

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
)

// defaultGoodNames seeds the simulation when the config lists none.
var defaultGoodNames = []string{"CRL", "CHC", "BTR", "SUG", "NUT", "SLT"}

// SimMarket is a self-contained host market: a seeded random walk per
// good with phase switching, plus capital and holdings bookkeeping. The
// same seed always produces the same tape, which is what the tests and
// the use_simulation mode rely on.
type SimMarket struct {
	mu        sync.Mutex
	rng       *rand.Rand
	tick      int64
	capital   float64
	goods     []Good
	modeAge   []int
	available bool
}

// NewSimMarket creates a simulated market with one good per name.
func NewSimMarket(seed int64, capital float64, names []string) *SimMarket {
	if len(names) == 0 {
		names = defaultGoodNames
	}
	m := &SimMarket{
		rng:       rand.New(rand.NewSource(seed)),
		capital:   capital,
		goods:     make([]Good, len(names)),
		modeAge:   make([]int, len(names)),
		available: true,
	}
	for i, name := range names {
		price := 5 + m.rng.Float64()*20
		m.goods[i] = Good{
			ID:           i,
			Name:         name,
			Price:        price,
			RestingPrice: price,
			Active:       true,
			Mode:         Mode(m.rng.Intn(6)),
		}
	}
	return m
}

// Advance steps the simulation one tick.
func (m *SimMarket) Advance() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.tick++
	for i := range m.goods {
		g := &m.goods[i]

		m.modeAge[i]++
		if m.modeAge[i] > 20 && m.rng.Float64() < 0.1 {
			g.Mode = Mode(m.rng.Intn(6))
			m.modeAge[i] = 0
		}

		drift := 0.0
		switch g.Mode {
		case ModeSlowRise:
			drift = 0.05
		case ModeSlowFall:
			drift = -0.05
		case ModeFastRise:
			drift = 0.25
		case ModeFastFall:
			drift = -0.25
		case ModeChaotic:
			drift = (m.rng.Float64() - 0.5) * 0.8
		}
		noise := (m.rng.Float64() - 0.5) * 0.4
		pull := (g.RestingPrice - g.Price) * 0.02
		g.Price = math.Max(0.01, g.Price+drift+noise+pull)
		g.RestingPrice = math.Max(0.01, g.RestingPrice+(m.rng.Float64()-0.5)*0.02)
	}
}

// Snapshot returns a copy of the current market state.
func (m *SimMarket) Snapshot() (*Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.available {
		return nil, fmt.Errorf("simulated market is unavailable")
	}
	goods := make([]Good, len(m.goods))
	copy(goods, m.goods)
	return &Snapshot{Tick: m.tick, Capital: m.capital, Goods: goods}, nil
}

// Buy debits capital and credits holdings for the requested quantity.
func (m *SimMarket) Buy(_ context.Context, goodID int, qty int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, err := m.good(goodID)
	if err != nil {
		return err
	}
	if qty <= 0 {
		return fmt.Errorf("buy quantity must be positive, got %d", qty)
	}
	cost := float64(qty) * g.Price
	if cost > m.capital {
		return fmt.Errorf("insufficient capital: need %.2f, have %.2f", cost, m.capital)
	}
	m.capital -= cost
	g.Stock += qty
	return nil
}

// Sell debits holdings and credits capital at the current price.
func (m *SimMarket) Sell(_ context.Context, goodID int, qty int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, err := m.good(goodID)
	if err != nil {
		return err
	}
	if qty <= 0 || qty > g.Stock {
		return fmt.Errorf("sell quantity %d out of range, holding %d of %s", qty, g.Stock, g.Name)
	}
	g.Stock -= qty
	m.capital += float64(qty) * g.Price
	return nil
}

// SetAvailable toggles snapshot availability, used to exercise the
// missing-context path.
func (m *SimMarket) SetAvailable(ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.available = ok
}

// SetPrice pins one good's price, handy for scripted scenarios.
func (m *SimMarket) SetPrice(goodID int, price float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, err := m.good(goodID)
	if err != nil {
		return err
	}
	g.Price = price
	return nil
}

func (m *SimMarket) good(goodID int) (*Good, error) {
	if goodID < 0 || goodID >= len(m.goods) {
		return nil, fmt.Errorf("unknown good id %d", goodID)
	}
	return &m.goods[goodID], nil
}
