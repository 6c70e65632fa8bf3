package engine

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auto_traider_go/config"
	"auto_traider_go/market"
)

type fakeOrder struct {
	goodID int
	qty    int64
}

type fakeExec struct {
	buys     []fakeOrder
	sells    []fakeOrder
	failBuy  bool
	failSell bool
}

func (f *fakeExec) Buy(_ context.Context, goodID int, qty int64) error {
	if f.failBuy {
		return fmt.Errorf("buy rejected")
	}
	f.buys = append(f.buys, fakeOrder{goodID, qty})
	return nil
}

func (f *fakeExec) Sell(_ context.Context, goodID int, qty int64) error {
	if f.failSell {
		return fmt.Errorf("sell rejected")
	}
	f.sells = append(f.sells, fakeOrder{goodID, qty})
	return nil
}

func testSettings() config.Settings {
	return config.Settings{
		Enabled:          true,
		BuyThreshold:     0.95,
		SellThreshold:    1.10,
		HistoryLength:    200,
		MomentumTicks:    2,
		TrailingStopPct:  0.98,
		PartialSellPct:   0.5,
		TopAssetsCount:   3,
		RankInterval:     300,
		SendPriceUpdates: true,
		SendTradeUpdates: true,
	}
}

func good(id int, name string, price, resting float64) market.Good {
	return market.Good{ID: id, Name: name, Price: price, RestingPrice: resting, Active: true, Mode: market.ModeStable}
}

func snap(tick int64, capital float64, goods ...market.Good) *market.Snapshot {
	return &market.Snapshot{Tick: tick, Capital: capital, Goods: goods}
}

func ofType(events []Event, t EventType) []Event {
	var out []Event
	for _, ev := range events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

// TestFullLifecycle walks one good through the whole state machine:
// flat, buy on momentum below resting, partial take-profit, then the
// trailing stop after a retracement from the peak.
func TestFullLifecycle(t *testing.T) {
	ctx := context.Background()
	exec := &fakeExec{}
	eng := New(exec)
	st := testSettings()

	// Tick 1: cold start. Histories initialize, the top set is ranked.
	events := eng.OnTick(ctx, snap(1, 1000, good(0, "CRL", 90, 100)), st)
	assert.Len(t, ofType(events, EventStart), 1)
	assert.Len(t, ofType(events, EventMarket), 1)
	assert.Empty(t, ofType(events, EventPriceChange), "initial prices are not changes")
	assert.Equal(t, []int{0}, eng.TopVolatile())

	// Tick 2: price moves, still no entry (momentum window not filled).
	events = eng.OnTick(ctx, snap(2, 1000, good(0, "CRL", 92, 100)), st)
	assert.Len(t, ofType(events, EventPriceChange), 1)
	assert.Empty(t, exec.buys)

	// Tick 3: two rising steps and price below resting*0.95 -> buy.
	events = eng.OnTick(ctx, snap(3, 1000, good(0, "CRL", 94.9, 100)), st)
	buys := ofType(events, EventBuy)
	require.Len(t, buys, 1)
	assert.Equal(t, int64(10), buys[0].Qty)
	require.Len(t, exec.buys, 1)
	assert.Equal(t, fakeOrder{0, 10}, exec.buys[0])

	pos, ok := eng.Ledger().Get(0)
	require.True(t, ok)
	assert.Equal(t, 94.9, pos.EntryPrice)
	assert.Equal(t, 94.9, pos.PeakPrice)

	// Re-running the same tick is a no-op: no events, no new orders.
	events = eng.OnTick(ctx, snap(3, 1000, good(0, "CRL", 94.9, 100)), st)
	assert.Empty(t, events)
	assert.Len(t, exec.buys, 1)

	// Tick 4: above entry*1.10 -> partial sell of half, flag flips.
	events = eng.OnTick(ctx, snap(4, 1000, good(0, "CRL", 104.5, 100)), st)
	psells := ofType(events, EventPartialSell)
	require.Len(t, psells, 1)
	assert.Equal(t, int64(5), psells[0].Qty)
	assert.Equal(t, 94.9, psells[0].EntryPrice)

	pos, _ = eng.Ledger().Get(0)
	assert.True(t, pos.PartialSold)
	assert.Equal(t, int64(5), pos.Quantity)

	// Tick 5: rally to the peak; trailing stop not hit.
	events = eng.OnTick(ctx, snap(5, 1000, good(0, "CRL", 120, 100)), st)
	assert.Empty(t, ofType(events, EventSell))
	pos, _ = eng.Ledger().Get(0)
	assert.Equal(t, 120.0, pos.PeakPrice)

	// Tick 6: just above the stop line, still holding.
	events = eng.OnTick(ctx, snap(6, 1000, good(0, "CRL", 117.7, 100)), st)
	assert.Empty(t, ofType(events, EventSell))

	// Tick 7: at peak*trailingStopPct the rest is sold and the position
	// disappears.
	stopPrice := 120 * st.TrailingStopPct
	events = eng.OnTick(ctx, snap(7, 1000, good(0, "CRL", stopPrice, 100)), st)
	sells := ofType(events, EventSell)
	require.Len(t, sells, 1)
	assert.Equal(t, int64(5), sells[0].Qty)
	require.Len(t, exec.sells, 2)
	assert.Equal(t, fakeOrder{0, 5}, exec.sells[1])

	_, ok = eng.Ledger().Get(0)
	assert.False(t, ok)
}

func openPosition(t *testing.T, eng *Engine, st config.Settings) {
	t.Helper()
	ctx := context.Background()
	eng.OnTick(ctx, snap(1, 1000, good(0, "CRL", 90, 100)), st)
	eng.OnTick(ctx, snap(2, 1000, good(0, "CRL", 92, 100)), st)
	eng.OnTick(ctx, snap(3, 1000, good(0, "CRL", 94.9, 100)), st)
	_, ok := eng.Ledger().Get(0)
	require.True(t, ok, "expected position to open")
}

func TestDisabledStillManagesExits(t *testing.T) {
	ctx := context.Background()
	exec := &fakeExec{}
	eng := New(exec)
	st := testSettings()
	openPosition(t, eng, st)

	st.Enabled = false
	events := eng.OnTick(ctx, snap(4, 1000, good(0, "CRL", 104.5, 100)), st)
	assert.Len(t, ofType(events, EventPartialSell), 1, "exit rules run even when disabled")
}

func TestDisabledBlocksEntries(t *testing.T) {
	ctx := context.Background()
	exec := &fakeExec{}
	eng := New(exec)
	st := testSettings()
	st.Enabled = false

	eng.OnTick(ctx, snap(1, 1000, good(0, "CRL", 90, 100)), st)
	eng.OnTick(ctx, snap(2, 1000, good(0, "CRL", 92, 100)), st)
	eng.OnTick(ctx, snap(3, 1000, good(0, "CRL", 94.9, 100)), st)
	assert.Empty(t, exec.buys)
}

func TestFallingModeBlocksEntry(t *testing.T) {
	ctx := context.Background()
	exec := &fakeExec{}
	eng := New(exec)
	st := testSettings()

	g := good(0, "CRL", 90, 100)
	eng.OnTick(ctx, snap(1, 1000, g), st)
	g.Price = 92
	eng.OnTick(ctx, snap(2, 1000, g), st)
	g.Price = 94.9
	g.Mode = market.ModeFastFall
	eng.OnTick(ctx, snap(3, 1000, g), st)
	assert.Empty(t, exec.buys)

	// Same setup with an inactive good.
	exec2 := &fakeExec{}
	eng2 := New(exec2)
	g2 := good(0, "CRL", 90, 100)
	eng2.OnTick(ctx, snap(1, 1000, g2), st)
	g2.Price = 92
	eng2.OnTick(ctx, snap(2, 1000, g2), st)
	g2.Price = 94.9
	g2.Active = false
	eng2.OnTick(ctx, snap(3, 1000, g2), st)
	assert.Empty(t, exec2.buys)
}

func TestEntryRequiresTopSet(t *testing.T) {
	ctx := context.Background()
	exec := &fakeExec{}
	eng := New(exec)
	st := testSettings()
	st.TopAssetsCount = 1

	// Good 0 ranks first at cold start (all scores zero, stable order),
	// so good 1 is never entry-eligible despite perfect buy conditions.
	eng.OnTick(ctx, snap(1, 1000, good(0, "CRL", 100, 100), good(1, "CHC", 90, 100)), st)
	eng.OnTick(ctx, snap(2, 1000, good(0, "CRL", 100, 100), good(1, "CHC", 92, 100)), st)
	eng.OnTick(ctx, snap(3, 1000, good(0, "CRL", 100, 100), good(1, "CHC", 94.9, 100)), st)

	assert.Equal(t, []int{0}, eng.TopVolatile())
	assert.Empty(t, exec.buys)
}

func TestPeriodicReRankReplacesTopSet(t *testing.T) {
	ctx := context.Background()
	eng := New(&fakeExec{})
	st := testSettings()
	st.TopAssetsCount = 1
	st.RankInterval = 4

	eng.OnTick(ctx, snap(1, 1000, good(0, "CRL", 100, 100), good(1, "CHC", 50, 100)), st)
	eng.OnTick(ctx, snap(2, 1000, good(0, "CRL", 100, 100), good(1, "CHC", 60, 100)), st)
	eng.OnTick(ctx, snap(3, 1000, good(0, "CRL", 100, 100), good(1, "CHC", 40, 100)), st)
	require.Equal(t, []int{0}, eng.TopVolatile())

	events := eng.OnTick(ctx, snap(4, 1000, good(0, "CRL", 100, 100), good(1, "CHC", 55, 100)), st)
	assert.Len(t, ofType(events, EventMarket), 1)
	assert.Equal(t, []int{1}, eng.TopVolatile(), "volatile good displaces the flat one")
}

func TestZeroQuantityBuySkipped(t *testing.T) {
	ctx := context.Background()
	exec := &fakeExec{}
	eng := New(exec)
	st := testSettings()

	eng.OnTick(ctx, snap(1, 50, good(0, "CRL", 90, 100)), st)
	eng.OnTick(ctx, snap(2, 50, good(0, "CRL", 92, 100)), st)
	eng.OnTick(ctx, snap(3, 50, good(0, "CRL", 94.9, 100)), st)

	assert.Empty(t, exec.buys, "capital below price buys nothing")
	assert.Equal(t, 0, eng.Ledger().Len())
}

func TestZeroQuantityPartialSellRetries(t *testing.T) {
	ctx := context.Background()
	exec := &fakeExec{}
	eng := New(exec)
	st := testSettings()

	// Capital for exactly one unit, so the half partial rounds to zero.
	eng.OnTick(ctx, snap(1, 94.9, good(0, "CRL", 90, 100)), st)
	eng.OnTick(ctx, snap(2, 94.9, good(0, "CRL", 92, 100)), st)
	eng.OnTick(ctx, snap(3, 94.9, good(0, "CRL", 94.9, 100)), st)
	pos, ok := eng.Ledger().Get(0)
	require.True(t, ok)
	require.Equal(t, int64(1), pos.Quantity)

	for tick := int64(4); tick <= 6; tick++ {
		events := eng.OnTick(ctx, snap(tick, 0, good(0, "CRL", 105, 100)), st)
		assert.Empty(t, ofType(events, EventPartialSell))
	}
	pos, _ = eng.Ledger().Get(0)
	assert.False(t, pos.PartialSold, "position stays in its first stage")
	assert.Equal(t, int64(1), pos.Quantity)
}

func TestBuyFailureLeavesStateUntouched(t *testing.T) {
	ctx := context.Background()
	exec := &fakeExec{failBuy: true}
	eng := New(exec)
	st := testSettings()

	eng.OnTick(ctx, snap(1, 1000, good(0, "CRL", 90, 100)), st)
	eng.OnTick(ctx, snap(2, 1000, good(0, "CRL", 92, 100)), st)
	events := eng.OnTick(ctx, snap(3, 1000, good(0, "CRL", 94.9, 100)), st)

	assert.Empty(t, ofType(events, EventBuy))
	assert.Equal(t, 0, eng.Ledger().Len())
}

func TestCapitalIsSpentAcrossGoodsWithinTick(t *testing.T) {
	ctx := context.Background()
	exec := &fakeExec{}
	eng := New(exec)
	st := testSettings()

	goods := func(p0, p1 float64) []market.Good {
		return []market.Good{good(0, "CRL", p0, 100), good(1, "CHC", p1, 100)}
	}
	eng.OnTick(ctx, &market.Snapshot{Tick: 1, Capital: 100, Goods: goods(80, 80)}, st)
	eng.OnTick(ctx, &market.Snapshot{Tick: 2, Capital: 100, Goods: goods(85, 85)}, st)
	eng.OnTick(ctx, &market.Snapshot{Tick: 3, Capital: 100, Goods: goods(90, 90)}, st)

	require.Len(t, exec.buys, 1, "the first fill consumes the tick's capital")
	assert.Equal(t, fakeOrder{0, 1}, exec.buys[0])
}

func TestNilSnapshotIsNoOp(t *testing.T) {
	eng := New(&fakeExec{})
	assert.Nil(t, eng.OnTick(context.Background(), nil, testSettings()))
}
