package notify

import (
	"strings"
	"time"

	"auto_traider_go/config"
	"auto_traider_go/engine"
)

// Sink aggregates the notification lines of a single tick. The buffer is
// tick-scoped: Flush always empties it, whether or not a message is
// produced, so lines never leak into the next tick.
type Sink struct {
	lines []string
}

func NewSink() *Sink {
	return &Sink{}
}

// Collect buffers the event if the settings say its category should be
// notified. Start and market events stay in the logs only.
func (s *Sink) Collect(ev engine.Event, st config.Settings) {
	switch ev.Type {
	case engine.EventPriceChange:
		if !st.SendPriceUpdates {
			return
		}
	case engine.EventBuy, engine.EventPartialSell, engine.EventSell:
		if !st.SendTradeUpdates {
			return
		}
	default:
		return
	}
	if line := RenderLine(ev); line != "" {
		s.lines = append(s.lines, line)
	}
}

// Flush drains the buffer. It returns the aggregated message for the
// tick and true when there is something to send and trade updates are
// enabled; otherwise "" and false.
func (s *Sink) Flush(st config.Settings, now time.Time) (string, bool) {
	lines := s.lines
	s.lines = nil
	if len(lines) == 0 || !st.SendTradeUpdates {
		return "", false
	}
	header := "Auto Traider [" + now.Format("15:04:05") + "]\n"
	return header + strings.Join(lines, "\n"), true
}

// Pending returns the number of buffered lines, for tests and reporting.
func (s *Sink) Pending() int { return len(s.lines) }
