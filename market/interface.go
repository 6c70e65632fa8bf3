package market

import "context"

// Mode is the host market's phase for a single good.
type Mode int

const (
	ModeStable Mode = iota
	ModeSlowRise
	ModeSlowFall
	ModeFastRise
	ModeFastFall
	ModeChaotic
)

var modeNames = [...]string{"Stable", "Slow rise", "Slow fall", "Fast rise", "Fast fall", "Chaotic"}

func (m Mode) String() string {
	if m < 0 || int(m) >= len(modeNames) {
		return "Unknown"
	}
	return modeNames[m]
}

// Falling reports whether the phase is one of the two downward phases
// that block new entries.
func (m Mode) Falling() bool { return m == ModeSlowFall || m == ModeFastFall }

// Good is one tradable asset as the host market reports it for a tick.
type Good struct {
	ID           int     `json:"id"`
	Name         string  `json:"name"`
	Price        float64 `json:"price"`
	RestingPrice float64 `json:"resting_price"`
	Stock        int64   `json:"stock"`
	Active       bool    `json:"active"`
	Mode         Mode    `json:"mode"`
}

// Snapshot is the host market state for a single tick. Tick only moves
// forward; Capital is the spendable balance used to size new entries.
type Snapshot struct {
	Tick    int64   `json:"tick"`
	Capital float64 `json:"capital"`
	Goods   []Good  `json:"goods"`
}

// Market is the host-market collaborator consumed by the decision core.
type Market interface {
	// Snapshot returns the current market state, or an error when the
	// market is unavailable this tick. Callers treat an error as "skip
	// the tick and retry next cadence".
	Snapshot() (*Snapshot, error)

	// Buy and Sell fire orders against the host market. The full
	// requested quantity is assumed transacted on a nil return.
	Buy(ctx context.Context, goodID int, qty int64) error
	Sell(ctx context.Context, goodID int, qty int64) error
}

// Advancer is implemented by markets that are stepped by the caller
// rather than by an external host.
type Advancer interface {
	Advance()
}
