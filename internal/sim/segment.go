package sim

import (
	"github.com/kestrelquant/vectorsim/internal/fees"
	"github.com/kestrelquant/vectorsim/pkg/models"
)

// SimInput bundles everything the segment-loop skeleton needs regardless of
// which front end is producing orders: the OHLC grid, the grouping/call-seq
// model, initial wallets/positions, and record-buffer sizing.
type SimInput struct {
	Grid     Grid
	Grouping Grouping
	CallSeq  CallSeq

	InitCash     []float64 // one entry per wallet (see Grouping.CashSharing)
	InitPosition []float64 // length N

	CashDeposits    FlexArray // indexed by (row, wallet)
	HasCashDeposits bool
	CashEarnings    FlexArray // indexed by (row, wallet)
	HasCashEarnings bool

	SegmentMask [][]bool // T x G; nil means every segment is active

	MaxOrders int
	MaxLogs   int
	Tol       Tolerance
	Seed      int64

	// Fees, when set, computes each fill's Fees/FixedFees from a schedule
	// instead of the literal values carried on each produced Order.
	Fees fees.Schedule
}

// SimResult is the immutable output of a completed simulation: the record
// buffer plus the final per-column/per-wallet state. Callers derive full
// time series from Records via package derive; the final state here is a
// fast path for summary stats that don't need to replay the whole history.
type SimResult struct {
	Records      *RecordBuffer
	ColumnStates []ColumnState
	GroupStates  []GroupState // one per wallet — see Grouping.CashSharing
	Grouping     Grouping
	Rows, Cols   int
}

// ProduceOrderFunc is the per-driver order-production callback: given the
// current (row, column) and its live state, it returns an order to submit
// and true, or a zero order and false to submit nothing this bar.
type ProduceOrderFunc func(row, col int, cs *ColumnState, gs *GroupState) (models.Order, bool)

// WalletAt resolves a wallet (GroupState) by its position within the
// currently executing group, for hooks that need to read or adjust cash.
type WalletAt func(localIdx int) *GroupState

// SegmentHook runs once per (row, group) segment, before (pre) or after
// (post) its call-seq loop. Pre-segment hooks may mutate ColumnState
// (val_price mirroring is already done by the skeleton before the hook
// runs); post-segment hooks typically cache value/return for next bar.
type SegmentHook func(row, group int, states []ColumnState, wallet WalletAt)

// runSegments drives the shared per-bar, per-group, per-call-seq-slot loop
// every front end (from-orders, from-signals, from-order-func) rides on top
// of. It owns state initialization, wallet sharing, record capacity, and
// Auto call-seq resolution; drivers only supply produce and, optionally,
// pre/post hooks.
func runSegments(input SimInput, produce ProduceOrderFunc, pre, post SegmentHook) (*SimResult, error) {
	return runSegmentsWithRecordsHook(input, produce, pre, post, nil)
}

// runSegmentsWithRecordsHook is runSegments plus a callback fired once,
// right after the record buffer is allocated but before the first bar runs.
// The strict from-order-func driver uses this to hand its own callback a
// *RecordBuffer to read from (records-so-far) before the loop starts
// appending to it.
func runSegmentsWithRecordsHook(input SimInput, produce ProduceOrderFunc, pre, post SegmentHook, onRecords func(*RecordBuffer)) (*SimResult, error) {
	grid := input.Grid
	if err := grid.Validate(); err != nil {
		return nil, err
	}
	g := input.Grouping
	if g.GroupLens == nil {
		g = Ungrouped(grid.Cols)
	}
	if err := g.Validate(grid.Cols); err != nil {
		return nil, err
	}

	tol := input.Tol
	if tol == (Tolerance{}) {
		tol = DefaultTolerance()
	}
	maxOrders := input.MaxOrders
	if maxOrders <= 0 {
		maxOrders = grid.Rows
	}
	maxLogs := input.MaxLogs
	if maxLogs <= 0 {
		maxLogs = grid.Rows
	}

	numWallets := g.NumGroups()
	if !g.CashSharing {
		numWallets = grid.Cols
	}
	walletOf := func(col int) int {
		if g.CashSharing {
			return g.ColumnToGroup(col)
		}
		return col
	}

	colStates := NewColumnStates(grid.Cols, input.InitPosition)
	grpStates := NewGroupStates(numWallets, input.InitCash)
	records := NewRecordBuffer(grid.Cols, maxOrders, maxLogs)
	if onRecords != nil {
		onRecords(records)
	}
	rnd := NewRand(input.Seed)

	callSeq := input.CallSeq
	if callSeq.Seq == nil {
		callSeq = BuildCallSeq(grid.Rows, g, callSeq.Mode, rnd)
	}

	segmentActive := func(row, group int) bool {
		if input.SegmentMask == nil {
			return true
		}
		return input.SegmentMask[row][group]
	}

	for row := 0; row < grid.Rows; row++ {
		for group := 0; group < g.NumGroups(); group++ {
			start, end := g.GroupRange(group)
			for col := start; col < end; col++ {
				MirrorValPrice(&colStates[col], grid.Close.Select(row, col))
			}
			if !segmentActive(row, group) {
				continue
			}

			wallet := func(local int) *GroupState { return &grpStates[walletOf(start+local)] }

			if input.HasCashDeposits {
				for _, w := range distinctWallets(start, end, walletOf) {
					d := input.CashDeposits.Select(row, w)
					grpStates[w].Cash += d
					grpStates[w].FreeCash += d
				}
			}

			if pre != nil {
				pre(row, group, colStates[start:end], wallet)
			}

			if callSeq.Mode == CallSeqAuto {
				callSeq.ReorderAuto(row, start, end, func(local int) float64 {
					col := start + local
					order, ok := produce(row, col, &colStates[col], &grpStates[walletOf(col)])
					if !ok {
						return 0
					}
					ctx := newOrderContext(&colStates[col], &grpStates[walletOf(col)], grid.PriceAreaAt(row, col), tol, rnd, input.Fees)
					return orderValueHint(ctx, order, tol)
				})
			}

			for _, local := range callSeq.Seq[row][start:end] {
				col := start + local
				order, ok := produce(row, col, &colStates[col], &grpStates[walletOf(col)])
				if !ok {
					continue
				}
				cs := &colStates[col]
				gs := &grpStates[walletOf(col)]
				posBefore, debtBefore := cs.Position, cs.Debt
				cashBefore, freeCashBefore := gs.Cash, gs.FreeCash
				ctx := newOrderContext(cs, gs, grid.PriceAreaAt(row, col), tol, rnd, input.Fees)
				result, err := ExecuteOrder(ctx, order)
				writeBackOrderContext(ctx, cs, gs)
				if err != nil {
					return nil, err
				}
				if order.Log {
					rec := models.LogRecord{
						Column: col, Row: row, Group: group,
						PositionBefore: posBefore, PositionAfter: cs.Position,
						DebtBefore: debtBefore, DebtAfter: cs.Debt,
						CashBefore: cashBefore, CashAfter: gs.Cash,
						FreeCashBefore: freeCashBefore, FreeCashAfter: gs.FreeCash,
						ValPrice: cs.ValPrice,
						Order:    order, Result: result,
					}
					if err := records.AppendLog(col, rec); err != nil {
						return nil, err
					}
				}
				if result.Status == models.StatusFilled {
					if err := records.AppendOrder(col, row, result); err != nil {
						return nil, err
					}
				}
			}

			if input.HasCashEarnings {
				for col := start; col < end; col++ {
					w := walletOf(col)
					e := input.CashEarnings.Select(row, w)
					grpStates[w].Cash += e
					grpStates[w].FreeCash += e
				}
			}

			if post != nil {
				post(row, group, colStates[start:end], wallet)
			}
		}
	}

	return &SimResult{
		Records: records, ColumnStates: colStates, GroupStates: grpStates,
		Grouping: g, Rows: grid.Rows, Cols: grid.Cols,
	}, nil
}

// distinctWallets returns the unique wallet indices touched by columns
// [start, end) without double-crediting a shared wallet once per column.
func distinctWallets(start, end int, walletOf func(int) int) []int {
	seen := map[int]bool{}
	var out []int
	for col := start; col < end; col++ {
		w := walletOf(col)
		if !seen[w] {
			seen[w] = true
			out = append(out, w)
		}
	}
	return out
}

// newOrderContext snapshots a column/wallet pair into the mutable
// OrderContext ExecuteOrder operates on.
func newOrderContext(cs *ColumnState, gs *GroupState, area models.PriceArea, tol Tolerance, rnd *Rand, sched fees.Schedule) *OrderContext {
	return &OrderContext{
		Position:    cs.Position,
		Debt:        cs.Debt,
		Cash:        gs.Cash,
		FreeCash:    gs.FreeCash,
		ValPrice:    cs.ValPrice,
		PriceArea:   area,
		UpdateValue: true,
		Tol:         tol,
		Rand:        rnd,
		Fees:        sched,
	}
}

// writeBackOrderContext copies ExecuteOrder's mutations back into the
// column/wallet state it was snapshotted from.
func writeBackOrderContext(ctx *OrderContext, cs *ColumnState, gs *GroupState) {
	cs.Position = ctx.Position
	cs.Debt = ctx.Debt
	cs.ValPrice = ctx.ValPrice
	gs.Cash = ctx.Cash
	gs.FreeCash = ctx.FreeCash
}

// orderValueHint computes the tentative signed notional of order at the
// column's currently mirrored val_price, for Auto call-seq ranking — sells
// (negative) sort before buys (positive) so a same-bar sell's cash is
// visible to a same-bar buy.
func orderValueHint(ctx *OrderContext, order models.Order, tol Tolerance) float64 {
	delta, err := resolveDelta(ctx, order, ctx.ValPrice, tol)
	if err != nil {
		return 0
	}
	return delta * ctx.ValPrice
}
