// Package ledger tracks open positions, at most one per good.
package ledger

import "fmt"

// Position is one open trade on a single good. PeakPrice never
// decreases, PartialSold never reverts, and Quantity only shrinks.
type Position struct {
	EntryPrice  float64
	PeakPrice   float64
	Quantity    int64
	PartialSold bool
}

// Ledger owns the position map. It is not safe for concurrent use; the
// decision loop is its only writer.
type Ledger struct {
	positions map[int]*Position
}

func New() *Ledger {
	return &Ledger{positions: make(map[int]*Position)}
}

// Open creates a position for the good. Opening on a good that already
// has one is a caller error and leaves the ledger untouched.
func (l *Ledger) Open(goodID int, entryPrice float64, qty int64) error {
	if _, exists := l.positions[goodID]; exists {
		return fmt.Errorf("position already open for good %d", goodID)
	}
	if qty <= 0 {
		return fmt.Errorf("position quantity must be positive, got %d", qty)
	}
	l.positions[goodID] = &Position{
		EntryPrice: entryPrice,
		PeakPrice:  entryPrice,
		Quantity:   qty,
	}
	return nil
}

// Get returns a copy of the good's position, if one is open.
func (l *Ledger) Get(goodID int) (Position, bool) {
	p, ok := l.positions[goodID]
	if !ok {
		return Position{}, false
	}
	return *p, true
}

// RecordPeak lifts the peak to price if higher. No-op without a position.
func (l *Ledger) RecordPeak(goodID int, price float64) {
	if p, ok := l.positions[goodID]; ok && price > p.PeakPrice {
		p.PeakPrice = price
	}
}

// PartialClose removes qty from the position and marks it partially
// sold. Calling it twice on the same position, or with a quantity out of
// range, is a caller error.
func (l *Ledger) PartialClose(goodID int, qty int64) error {
	p, ok := l.positions[goodID]
	if !ok {
		return fmt.Errorf("no open position for good %d", goodID)
	}
	if p.PartialSold {
		return fmt.Errorf("position for good %d already partially sold", goodID)
	}
	if qty <= 0 || qty > p.Quantity {
		return fmt.Errorf("partial close quantity %d out of range (0, %d]", qty, p.Quantity)
	}
	p.Quantity -= qty
	p.PartialSold = true
	return nil
}

// Close removes the position entirely.
func (l *Ledger) Close(goodID int) error {
	if _, ok := l.positions[goodID]; !ok {
		return fmt.Errorf("no open position for good %d", goodID)
	}
	delete(l.positions, goodID)
	return nil
}

// Len returns the number of open positions.
func (l *Ledger) Len() int { return len(l.positions) }

// Reset drops every position.
func (l *Ledger) Reset() { l.positions = make(map[int]*Position) }
