package engine

// EventType classifies the observable outcomes of one decision pass.
type EventType int

const (
	EventStart EventType = iota
	EventMarket
	EventPriceChange
	EventBuy
	EventPartialSell
	EventSell
)

func (t EventType) String() string {
	switch t {
	case EventStart:
		return "start"
	case EventMarket:
		return "market"
	case EventPriceChange:
		return "price"
	case EventBuy:
		return "buy"
	case EventPartialSell:
		return "partial_sell"
	case EventSell:
		return "sell"
	}
	return "unknown"
}

// Event is a structured record of something the engine did or observed
// during a tick. The engine never formats text; renderers subscribe to
// these records instead.
type Event struct {
	Type       EventType
	Tick       int64
	GoodID     int
	Name       string
	Qty        int64
	Price      float64
	EntryPrice float64
	OldPrice   float64
	Summary    string
}
