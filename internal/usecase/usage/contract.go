package usage

import domusage "github.com/artomart/craftsearch/internal/domain/usage"

// CounterReader provides read-only access to extraction budget windows.
type CounterReader interface {
	Counters(p domusage.Period) domusage.Counters
}
