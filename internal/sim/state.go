package sim

import "math"

// ColumnState is the mutable per-column state carried across bars: the
// position/debt/valuation mark the execute-order machine reads and writes,
// plus the transient stop-loss/take-profit flags the from-signals driver
// maintains between bars.
type ColumnState struct {
	Position float64
	Debt     float64
	ValPrice float64

	// Transient, reset/updated once per bar by the from-signals driver.
	SLStop      bool
	SLTrail     bool
	SLInitPrice float64
	SLInitIdx   int
	TPStop      bool
	TPInitPrice float64
}

// GroupState is the mutable per-group state: the shared wallet (when
// CashSharing is set) plus Value and Return fields. Value is seeded to the
// initial cash and Return to 0; the drivers do not update either during a
// run, and the derived series are rebuilt from records instead.
type GroupState struct {
	Cash     float64
	FreeCash float64
	Value    float64
	Return   float64
}

// NewColumnStates initializes n columns from per-column initial positions,
// with ValPrice seeded to NaN (resolved to the first bar's close on first
// use, matching "use current close" semantics for an unmarked column).
func NewColumnStates(n int, initPosition []float64) []ColumnState {
	cs := make([]ColumnState, n)
	for i := range cs {
		pos := 0.0
		if initPosition != nil {
			pos = initPosition[i]
		}
		cs[i] = ColumnState{Position: pos, ValPrice: math.NaN()}
	}
	return cs
}

// NewGroupStates initializes G groups' wallets from per-group initial cash.
// When cash_sharing is false, callers instead keep one GroupState per
// column (G == N) — the sharing flag only changes how draws interact, not
// the state shape.
func NewGroupStates(g int, initCash []float64) []GroupState {
	gs := make([]GroupState, g)
	for i := range gs {
		cash := 0.0
		if initCash != nil {
			cash = initCash[i]
		}
		gs[i] = GroupState{Cash: cash, FreeCash: cash, Value: cash}
	}
	return gs
}

// MirrorValPrice resolves a column's valuation price for this bar: if the
// column has never traded (NaN ValPrice), it mirrors forward the bar's
// close so Percent/Target conversions and Auto call-seq ranking have a
// usable reference before any order in the segment executes.
func MirrorValPrice(cs *ColumnState, close float64) {
	if math.IsNaN(cs.ValPrice) {
		cs.ValPrice = close
	}
}
