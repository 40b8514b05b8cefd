package sim

import "github.com/kestrelquant/vectorsim/pkg/models"

// SignalsInput adds the from-signals driver's per-(row,column) signal
// streams and stop configuration to the shared SimInput.
type SignalsInput struct {
	SimInput

	LongEntry  [][]bool // T x N
	LongExit   [][]bool
	ShortEntry [][]bool
	ShortExit  [][]bool

	Size      FlexArray
	SizeType  models.SizeType
	Direction models.Direction

	Fees            FlexArray
	FixedFees       FlexArray
	Slippage        FlexArray
	SizeGranularity FlexArray
	LockCash        bool
	AllowPartial    bool
	RaiseReject     bool
	Log             bool

	Rules SignalRules

	UseStops bool
	SLStop   FlexArray // per column, fractional (0.1 == 10%)
	SLTrail  bool
	TPStop   FlexArray
	Priority SignalPriority
	ExitMode StopExitPriceMode

	// AdjustSL/AdjustTP let a caller override a column's stop parameters
	// per bar before evaluation, mirroring the reference implementation's
	// adjust_sl/adjust_tp hooks. Either may be nil.
	AdjustSL func(row, col int, cs *ColumnState) (newStop float64, newTrail bool)
	AdjustTP func(row, col int, cs *ColumnState) (newStop float64)
}

// SimulateFromSignals converts entry/exit streams (and, when UseStops is
// set, a stop-loss/take-profit state machine) into at most one order per
// (bar, column) and drives it through the shared segment loop.
func SimulateFromSignals(input SignalsInput) (*SimResult, error) {
	produce := func(row, col int, cs *ColumnState, gs *GroupState) (models.Order, bool) {
		area := input.Grid.PriceAreaAt(row, col)

		slFrac, tpFrac := input.SLStop.Select(row, col), input.TPStop.Select(row, col)
		slTrail := input.SLTrail
		if input.AdjustSL != nil {
			slFrac, slTrail = input.AdjustSL(row, col, cs)
		}
		if input.AdjustTP != nil {
			tpFrac = input.AdjustTP(row, col, cs)
		}

		stopTrigger, stopPrice := StopNone, 0.0
		if input.UseStops && cs.Position != 0 {
			if cs.SLTrail {
				ratchetTrailingStop(cs, cs.Position > 0, area.Close)
			}
			stopTrigger, stopPrice = evaluateStops(cs, cs.Position > 0, slFrac, tpFrac, area, input.ExitMode)
		}

		longEntry := boolAt(input.LongEntry, row, col)
		longExit := boolAt(input.LongExit, row, col)
		shortEntry := boolAt(input.ShortEntry, row, col)
		shortExit := boolAt(input.ShortExit, row, col)
		hasUserSignal := longEntry || longExit || shortEntry || shortExit

		useStop := stopTrigger != StopNone && (input.Priority == PriorityStopWins || !hasUserSignal)
		if useStop {
			disarmStop(cs)
			return closeOrder(input, stopPrice, row, col), true
		}

		intent := resolveBar(input.Rules, longEntry, longExit, shortEntry, shortExit, cs.Position)
		size := input.Size.Select(row, col)

		switch intent {
		case intentNone:
			return models.Order{}, false
		case intentCloseToFlat:
			disarmStop(cs)
			return closeOrder(input, area.Close, row, col), true
		case intentOpenLong:
			if input.UseStops {
				armStop(cs, row, area.Close, slFrac, slTrail, tpFrac)
			}
			return sideOrder(input, size, row, col), true
		case intentOpenShort:
			if input.UseStops {
				armStop(cs, row, area.Close, slFrac, slTrail, tpFrac)
			}
			return sideOrder(input, -size, row, col), true
		case intentReverseToLong:
			if input.UseStops {
				armStop(cs, row, area.Close, slFrac, slTrail, tpFrac)
			}
			return models.Order{
				Size: size, Price: areaClosePrice(area), SizeType: models.SizeTargetAmount,
				Direction: input.Direction, Fees: input.Fees.Select(row, col),
				FixedFees: input.FixedFees.Select(row, col), Slippage: input.Slippage.Select(row, col),
				SizeGranularity: input.SizeGranularity.Select(row, col),
				LockCash:        input.LockCash, AllowPartial: input.AllowPartial,
				RaiseReject: input.RaiseReject, Log: input.Log,
			}, true
		case intentReverseToShort:
			if input.UseStops {
				armStop(cs, row, area.Close, slFrac, slTrail, tpFrac)
			}
			return models.Order{
				Size: -size, Price: areaClosePrice(area), SizeType: models.SizeTargetAmount,
				Direction: input.Direction, Fees: input.Fees.Select(row, col),
				FixedFees: input.FixedFees.Select(row, col), Slippage: input.Slippage.Select(row, col),
				SizeGranularity: input.SizeGranularity.Select(row, col),
				LockCash:        input.LockCash, AllowPartial: input.AllowPartial,
				RaiseReject: input.RaiseReject, Log: input.Log,
			}, true
		default:
			return models.Order{}, false
		}
	}
	return runSegments(input.SimInput, produce, nil, nil)
}

func boolAt(grid [][]bool, row, col int) bool {
	if grid == nil {
		return false
	}
	return grid[row][col]
}

func areaClosePrice(area models.PriceArea) float64 { return area.Close }

// sideOrder builds an Amount-sized order (signed: positive opens/adds long,
// negative opens/adds short) at the bar's close.
func sideOrder(input SignalsInput, signedSize float64, row, col int) models.Order {
	return models.Order{
		Size: signedSize, Price: areaClosePrice(input.Grid.PriceAreaAt(row, col)),
		SizeType: models.SizeAmount, Direction: input.Direction,
		Fees: input.Fees.Select(row, col), FixedFees: input.FixedFees.Select(row, col),
		Slippage: input.Slippage.Select(row, col), SizeGranularity: input.SizeGranularity.Select(row, col),
		LockCash: input.LockCash, AllowPartial: input.AllowPartial,
		RaiseReject: input.RaiseReject, Log: input.Log,
	}
}

// closeOrder builds a TargetAmount(0) order that flattens whatever position
// the column currently holds at the given price.
func closeOrder(input SignalsInput, price float64, row, col int) models.Order {
	return models.Order{
		Size: 0, Price: price, SizeType: models.SizeTargetAmount, Direction: input.Direction,
		Fees: input.Fees.Select(row, col), FixedFees: input.FixedFees.Select(row, col),
		SizeGranularity: input.SizeGranularity.Select(row, col),
		LockCash:        input.LockCash, AllowPartial: input.AllowPartial,
		RaiseReject: input.RaiseReject, Log: input.Log,
	}
}
