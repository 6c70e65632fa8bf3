package profit

import "sync"

// Trade is a single fill reported to the accountant.
type Trade struct {
	GoodID int
	Name   string
	Side   string // "BUY" or "SELL"
	Price  float64
	Qty    int64
}

// Accountant tracks realized profit across closed long trades using the
// weighted average cost of each good's open quantity.
type Accountant struct {
	mu       sync.Mutex
	avgCost  map[int]float64
	quantity map[int]int64
	realized float64
}

func NewAccountant() *Accountant {
	return &Accountant{
		avgCost:  make(map[int]float64),
		quantity: make(map[int]int64),
	}
}

// RecordTrade folds one fill into the books. Buys move the average cost,
// sells realize (price - avgCost) * qty. Sells beyond the tracked
// quantity only realize the tracked part.
func (a *Accountant) RecordTrade(t Trade) {
	a.mu.Lock()
	defer a.mu.Unlock()

	held := a.quantity[t.GoodID]
	cost := a.avgCost[t.GoodID]

	if t.Side == "BUY" {
		total := held + t.Qty
		if total > 0 {
			a.avgCost[t.GoodID] = (cost*float64(held) + t.Price*float64(t.Qty)) / float64(total)
		}
		a.quantity[t.GoodID] = total
		return
	}

	closed := t.Qty
	if closed > held {
		closed = held
	}
	a.realized += (t.Price - cost) * float64(closed)
	remaining := held - closed
	a.quantity[t.GoodID] = remaining
	if remaining == 0 {
		delete(a.avgCost, t.GoodID)
		delete(a.quantity, t.GoodID)
	}
}

// RealizedPNL returns the cumulative realized profit.
func (a *Accountant) RealizedPNL() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.realized
}
