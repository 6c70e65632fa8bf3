package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auto_traider_go/config"
	"auto_traider_go/engine"
)

func allOn() config.Settings {
	return config.Settings{SendPriceUpdates: true, SendTradeUpdates: true}
}

func TestRenderLine(t *testing.T) {
	cases := []struct {
		name string
		ev   engine.Event
		want string
	}{
		{
			"price change",
			engine.Event{Type: engine.EventPriceChange, Name: "CRL", OldPrice: 90, Price: 92},
			"CRL: 90.00 → 92.00",
		},
		{
			"buy",
			engine.Event{Type: engine.EventBuy, Name: "CRL", Qty: 10, Price: 94.9},
			"BUY CRL x10@94.90",
		},
		{
			"partial sell gain",
			engine.Event{Type: engine.EventPartialSell, Name: "CRL", EntryPrice: 100, Price: 110},
			"PSELL CRL B(100.00) → S(110.00) +10.00%",
		},
		{
			"sell at a loss",
			engine.Event{Type: engine.EventSell, Name: "CRL", EntryPrice: 120, Price: 117.6},
			"SELL CRL B(120.00) → S(117.60) -2.00%",
		},
		{
			"start has no line",
			engine.Event{Type: engine.EventStart},
			"",
		},
		{
			"market summary has no line",
			engine.Event{Type: engine.EventMarket, Summary: "CRL:10.0%"},
			"",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, RenderLine(tc.ev))
		})
	}
}

func TestSinkFlushAggregatesTick(t *testing.T) {
	s := NewSink()
	st := allOn()
	s.Collect(engine.Event{Type: engine.EventPriceChange, Name: "CRL", OldPrice: 90, Price: 92}, st)
	s.Collect(engine.Event{Type: engine.EventBuy, Name: "CRL", Qty: 10, Price: 92}, st)
	require.Equal(t, 2, s.Pending())

	at := time.Date(2026, 8, 31, 14, 5, 9, 0, time.UTC)
	msg, ok := s.Flush(st, at)
	require.True(t, ok)
	assert.Equal(t, "Auto Traider [14:05:09]\nCRL: 90.00 → 92.00\nBUY CRL x10@92.00", msg)
	assert.Equal(t, 0, s.Pending())

	// Nothing buffered: no message.
	_, ok = s.Flush(st, at)
	assert.False(t, ok)
}

func TestSinkCollectRespectsSettings(t *testing.T) {
	s := NewSink()
	st := allOn()
	st.SendPriceUpdates = false
	s.Collect(engine.Event{Type: engine.EventPriceChange, Name: "CRL", OldPrice: 1, Price: 2}, st)
	assert.Equal(t, 0, s.Pending(), "price lines are opt-in")

	st.SendPriceUpdates = true
	st.SendTradeUpdates = false
	s.Collect(engine.Event{Type: engine.EventBuy, Name: "CRL", Qty: 1, Price: 2}, st)
	assert.Equal(t, 0, s.Pending(), "trade lines are opt-in")

	s.Collect(engine.Event{Type: engine.EventStart}, allOn())
	s.Collect(engine.Event{Type: engine.EventMarket, Summary: "x"}, allOn())
	assert.Equal(t, 0, s.Pending(), "start and market events stay in the logs")
}

func TestSinkFlushDrainsEvenWhenMuted(t *testing.T) {
	s := NewSink()
	s.Collect(engine.Event{Type: engine.EventPriceChange, Name: "CRL", OldPrice: 1, Price: 2}, allOn())

	muted := allOn()
	muted.SendTradeUpdates = false
	_, ok := s.Flush(muted, time.Now())
	assert.False(t, ok)
	assert.Equal(t, 0, s.Pending(), "buffered lines never leak into the next tick")
}
