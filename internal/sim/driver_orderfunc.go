package sim

import (
	"fmt"

	"github.com/kestrelquant/vectorsim/pkg/models"
)

// OrderFuncContext is what a user callback sees: the current bar/column/
// group coordinates, live per-column and per-wallet state, the bar's price
// area, and the records appended so far (for strategies that react to their
// own fill history).
type OrderFuncContext struct {
	Row, Col, Group int
	ColumnState     *ColumnState
	GroupState      *GroupState
	PriceArea       models.PriceArea
	Records         *RecordBuffer
}

// OrderFunc is the strict from-order-func callback: one order (or none) per
// column per bar, call-seq respected.
type OrderFunc func(ctx OrderFuncContext) (models.Order, bool)

// FlexOrderFunc is the flexible from-order-func callback: called repeatedly
// within a segment until it returns ok=false or the segment's per-bar order
// cap is reached, letting one segment emit multiple orders across (and
// within) columns. groupCols lists the group's absolute column indices.
type FlexOrderFunc func(group, attempt int, ctxFor func(col int) OrderFuncContext, groupCols []int) (col int, order models.Order, ok bool)

// OrderFuncInput configures the strict from-order-func driver.
type OrderFuncInput struct {
	SimInput
	Produce     OrderFunc
	PreSim      func(records *RecordBuffer)
	PreGroup    func(group int, wallet *GroupState)
	PreRow      func(row int)
	PreSegment  SegmentHook
	PostSegment SegmentHook
}

// SimulateFromOrderFunc runs the strict order-func driver: Produce is called
// at most once per (bar, column) via the shared segment loop, with the
// user's pre-hooks wired at simulation/group/row/segment granularity.
func SimulateFromOrderFunc(input OrderFuncInput) (*SimResult, error) {
	if input.CallSeq.Mode == CallSeqAuto {
		return nil, fmt.Errorf("%w: call_seq=Auto is not supported by the order-func driver — "+
			"Auto would invoke Produce twice per segment, once to rank and once to execute", ErrInvalidInput)
	}

	var records *RecordBuffer
	lastRow := -1

	produce := func(row, col int, cs *ColumnState, gs *GroupState) (models.Order, bool) {
		if input.PreRow != nil && row != lastRow {
			input.PreRow(row)
			lastRow = row
		}
		group := input.Grouping.ColumnToGroup(col)
		return input.Produce(OrderFuncContext{
			Row: row, Col: col, Group: group,
			ColumnState: cs, GroupState: gs,
			PriceArea: input.Grid.PriceAreaAt(row, col),
			Records:   records,
		})
	}

	pre := func(row, group int, states []ColumnState, wallet WalletAt) {
		if input.PreGroup != nil {
			input.PreGroup(group, wallet(0))
		}
		if input.PreSegment != nil {
			input.PreSegment(row, group, states, wallet)
		}
	}

	return runSegmentsWithRecordsHook(input.SimInput, produce, pre, input.PostSegment, func(rb *RecordBuffer) {
		records = rb
		if input.PreSim != nil {
			input.PreSim(rb)
		}
	})
}

// SimulateFromFlexOrderFunc runs the flexible order-func driver: within each
// active segment, Produce is invoked repeatedly — ignoring call_seq, since
// the callback itself picks a target column — until it signals done or
// maxPerSegment attempts are used.
func SimulateFromFlexOrderFunc(input SimInput, groupCols func(group int) []int, produce FlexOrderFunc, maxPerSegment int) (*SimResult, error) {
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
	if maxPerSegment <= 0 {
		maxPerSegment = maxOrders
	}

	colStates := NewColumnStates(grid.Cols, input.InitPosition)
	grpStates := NewGroupStates(numWallets, input.InitCash)
	records := NewRecordBuffer(grid.Cols, maxOrders, maxLogs)
	rnd := NewRand(input.Seed)

	for row := 0; row < grid.Rows; row++ {
		for group := 0; group < g.NumGroups(); group++ {
			start, end := g.GroupRange(group)
			for col := start; col < end; col++ {
				MirrorValPrice(&colStates[col], grid.Close.Select(row, col))
			}
			if input.SegmentMask != nil && !input.SegmentMask[row][group] {
				continue
			}
			cols := groupCols(group)
			ctxFor := func(col int) OrderFuncContext {
				return OrderFuncContext{
					Row: row, Col: col, Group: group,
					ColumnState: &colStates[col], GroupState: &grpStates[walletOf(col)],
					PriceArea: grid.PriceAreaAt(row, col), Records: records,
				}
			}
			for attempt := 0; attempt < maxPerSegment; attempt++ {
				col, order, ok := produce(group, attempt, ctxFor, cols)
				if !ok {
					break
				}
				cs := &colStates[col]
				gs := &grpStates[walletOf(col)]
				posBefore, debtBefore := cs.Position, cs.Debt
				cashBefore, freeCashBefore := gs.Cash, gs.FreeCash
				octx := newOrderContext(cs, gs, grid.PriceAreaAt(row, col), tol, rnd, input.Fees)
				result, err := ExecuteOrder(octx, order)
				writeBackOrderContext(octx, cs, gs)
				if err != nil {
					return nil, err
				}
				if order.Log {
					if err := records.AppendLog(col, models.LogRecord{
						Column: col, Row: row, Group: group,
						PositionBefore: posBefore, PositionAfter: cs.Position,
						DebtBefore: debtBefore, DebtAfter: cs.Debt,
						CashBefore: cashBefore, CashAfter: gs.Cash,
						FreeCashBefore: freeCashBefore, FreeCashAfter: gs.FreeCash,
						ValPrice: cs.ValPrice,
						Order:    order, Result: result,
					}); err != nil {
						return nil, err
					}
				}
				if result.Status == models.StatusFilled {
					if err := records.AppendOrder(col, row, result); err != nil {
						return nil, err
					}
				}
			}
		}
	}

	return &SimResult{
		Records: records, ColumnStates: colStates, GroupStates: grpStates,
		Grouping: g, Rows: grid.Rows, Cols: grid.Cols,
	}, nil
}
