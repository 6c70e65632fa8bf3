// Package notify turns engine events into outbound text and drives the
// telegram channel in both directions.
package notify

import (
	"fmt"

	"auto_traider_go/engine"
)

// RenderLine formats one engine event as a notification line. Events
// with no notification form render to "".
func RenderLine(ev engine.Event) string {
	switch ev.Type {
	case engine.EventPriceChange:
		return fmt.Sprintf("%s: %.2f → %.2f", ev.Name, ev.OldPrice, ev.Price)
	case engine.EventBuy:
		return fmt.Sprintf("BUY %s x%d@%.2f", ev.Name, ev.Qty, ev.Price)
	case engine.EventPartialSell:
		return fmt.Sprintf("PSELL %s B(%.2f) → S(%.2f) %s", ev.Name, ev.EntryPrice, ev.Price, pctText(ev.EntryPrice, ev.Price))
	case engine.EventSell:
		return fmt.Sprintf("SELL %s B(%.2f) → S(%.2f) %s", ev.Name, ev.EntryPrice, ev.Price, pctText(ev.EntryPrice, ev.Price))
	}
	return ""
}

// pctText renders the gain from entry to exit as a signed percentage.
func pctText(entry, exit float64) string {
	pct := (exit/entry - 1) * 100
	sign := ""
	if pct >= 0 {
		sign = "+"
	}
	return fmt.Sprintf("%s%.2f%%", sign, pct)
}
