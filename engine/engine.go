// Package engine holds the tick-driven decision core: volatility-ranked
// entry selection, a two-stage exit (partial take-profit then trailing
// stop), and the per-good position state machine.
package engine

import (
	"context"
	"math"

	"auto_traider_go/analysis"
	"auto_traider_go/config"
	"auto_traider_go/history"
	"auto_traider_go/ledger"
	"auto_traider_go/logs"
	"auto_traider_go/market"
)

// Executor fires orders against the host market. Orders are assumed
// fully transacted when the call returns nil.
type Executor interface {
	Buy(ctx context.Context, goodID int, qty int64) error
	Sell(ctx context.Context, goodID int, qty int64) error
}

// Engine owns all mutable decision state. It is single-threaded by
// contract: one goroutine drives OnTick, nothing else touches the maps.
type Engine struct {
	exec      Executor
	history   *history.Store
	ledger    *ledger.Ledger
	lastPrice map[int]float64
	topVol    []int
	lastTick  int64
	started   bool
}

// New creates an engine that executes orders through exec.
func New(exec Executor) *Engine {
	return &Engine{
		exec:      exec,
		history:   history.NewStore(1),
		ledger:    ledger.New(),
		lastPrice: make(map[int]float64),
		lastTick:  -1,
	}
}

// Ledger exposes the position book read-only (reporting, tests).
func (e *Engine) Ledger() *ledger.Ledger { return e.ledger }

// TopVolatile returns the ids of the current top volatility set.
func (e *Engine) TopVolatile() []int { return e.topVol }

// OnTick runs one decision pass over the snapshot. Invoking it again
// with a tick counter it has already seen is a no-op: the driving clock
// may fire more often than the host market advances. Settings are read
// fresh on every call.
func (e *Engine) OnTick(ctx context.Context, snap *market.Snapshot, st config.Settings) []Event {
	if snap == nil {
		return nil
	}
	if snap.Tick == e.lastTick {
		return nil
	}
	e.lastTick = snap.Tick
	e.history.SetMaxLen(st.HistoryLength)

	var events []Event

	if !e.started {
		e.initData(snap)
		events = append(events, Event{Type: EventStart, Tick: snap.Tick})
		events = append(events, e.rankMarket(snap, st))
		e.started = true
		logs.Infof("[Engine] started on tick %d with %d goods", snap.Tick, len(snap.Goods))
	}
	if snap.Tick%int64(st.RankInterval) == 0 {
		events = append(events, e.rankMarket(snap, st))
	}

	capital := snap.Capital
	for _, g := range snap.Goods {
		now := g.Price

		if old, seen := e.lastPrice[g.ID]; seen && now != old {
			events = append(events, Event{
				Type: EventPriceChange, Tick: snap.Tick,
				GoodID: g.ID, Name: g.Name, Price: now, OldPrice: old,
			})
		}
		e.lastPrice[g.ID] = now
		e.history.Update(g.ID, now)

		if _, open := e.ledger.Get(g.ID); open {
			if ev, ok := e.manageExit(ctx, g, now, st); ok {
				events = append(events, ev)
			}
		} else if ev, ok := e.tryEntry(ctx, g, now, capital, st); ok {
			capital -= float64(ev.Qty) * now
			events = append(events, ev)
		}
	}
	return events
}

// manageExit evaluates the two exit rules on a pre-existing position.
// The peak is lifted first so the trailing stop always measures against
// the latest high, including this tick's price.
func (e *Engine) manageExit(ctx context.Context, g market.Good, now float64, st config.Settings) (Event, bool) {
	e.ledger.RecordPeak(g.ID, now)
	pos, _ := e.ledger.Get(g.ID)

	switch {
	case !pos.PartialSold && now >= pos.EntryPrice*st.SellThreshold:
		qty := int64(math.Floor(float64(pos.Quantity) * st.PartialSellPct))
		if qty <= 0 {
			// Rounds to zero: hold and retry while the condition lasts.
			return Event{}, false
		}
		if err := e.exec.Sell(ctx, g.ID, qty); err != nil {
			logs.Errorf("[Engine] partial sell of %s failed: %v", g.Name, err)
			return Event{}, false
		}
		if err := e.ledger.PartialClose(g.ID, qty); err != nil {
			logs.Errorf("[Engine] ledger partial close of %s failed: %v", g.Name, err)
			return Event{}, false
		}
		logs.Infof("[Engine] PARTIAL SELL %s x%d @ %.2f (entry %.2f)", g.Name, qty, now, pos.EntryPrice)
		return Event{
			Type: EventPartialSell, Tick: e.lastTick,
			GoodID: g.ID, Name: g.Name, Qty: qty, Price: now, EntryPrice: pos.EntryPrice,
		}, true

	case pos.PartialSold && now <= pos.PeakPrice*st.TrailingStopPct:
		qty := pos.Quantity
		if err := e.exec.Sell(ctx, g.ID, qty); err != nil {
			logs.Errorf("[Engine] full sell of %s failed: %v", g.Name, err)
			return Event{}, false
		}
		if err := e.ledger.Close(g.ID); err != nil {
			logs.Errorf("[Engine] ledger close of %s failed: %v", g.Name, err)
			return Event{}, false
		}
		logs.Infof("[Engine] SELL %s x%d @ %.2f (entry %.2f, peak %.2f)", g.Name, qty, now, pos.EntryPrice, pos.PeakPrice)
		return Event{
			Type: EventSell, Tick: e.lastTick,
			GoodID: g.ID, Name: g.Name, Qty: qty, Price: now, EntryPrice: pos.EntryPrice,
		}, true
	}
	return Event{}, false
}

// tryEntry evaluates the buy rule on a good that was flat at tick start.
// capital is the remaining spendable balance for this tick.
func (e *Engine) tryEntry(ctx context.Context, g market.Good, now, capital float64, st config.Settings) (Event, bool) {
	if !st.Enabled || !g.Active || g.Mode.Falling() {
		return Event{}, false
	}
	if !e.inTopSet(g.ID) {
		return Event{}, false
	}
	if now > g.RestingPrice*st.BuyThreshold {
		return Event{}, false
	}
	if !analysis.MomentumUp(e.history.Prices(g.ID), st.MomentumTicks) {
		return Event{}, false
	}
	qty := int64(math.Floor(capital / now))
	if qty <= 0 {
		return Event{}, false
	}
	if err := e.exec.Buy(ctx, g.ID, qty); err != nil {
		logs.Errorf("[Engine] buy of %s failed: %v", g.Name, err)
		return Event{}, false
	}
	if err := e.ledger.Open(g.ID, now, qty); err != nil {
		logs.Errorf("[Engine] ledger open of %s failed: %v", g.Name, err)
		return Event{}, false
	}
	logs.Infof("[Engine] BUY %s x%d @ %.2f", g.Name, qty, now)
	return Event{
		Type: EventBuy, Tick: e.lastTick,
		GoodID: g.ID, Name: g.Name, Qty: qty, Price: now,
	}, true
}

// rankMarket recomputes the top volatility set, replacing it wholesale.
func (e *Engine) rankMarket(snap *market.Snapshot, st config.Settings) Event {
	top, scores := analysis.RankVolatility(snap.Goods, e.history, st.TopAssetsCount)
	e.topVol = top
	summary := analysis.Summary(scores)
	logs.Infof("[Engine] market top volatility: %s", summary)
	return Event{Type: EventMarket, Tick: snap.Tick, Summary: summary}
}

// initData resets histories, last prices and positions for the goods in
// the first observed snapshot.
func (e *Engine) initData(snap *market.Snapshot) {
	e.history.Reset()
	e.ledger.Reset()
	e.lastPrice = make(map[int]float64, len(snap.Goods))
	for _, g := range snap.Goods {
		e.lastPrice[g.ID] = g.Price
	}
}

func (e *Engine) inTopSet(goodID int) bool {
	for _, id := range e.topVol {
		if id == goodID {
			return true
		}
	}
	return false
}
