package sim

import (
	"fmt"
	"math"

	"github.com/kestrelquant/vectorsim/internal/fees"
	"github.com/kestrelquant/vectorsim/pkg/models"
)

// OrderContext is a single column's mutable state as seen by ExecuteOrder:
// position/debt/cash/free_cash, the valuation price, and the current bar's
// PriceArea. ExecuteOrder mutates Position/Debt/Cash/FreeCash (and ValPrice,
// when UpdateValue is set) in place and returns the fill outcome.
type OrderContext struct {
	Position    float64
	Debt        float64
	Cash        float64
	FreeCash    float64
	ValPrice    float64
	PriceArea   models.PriceArea
	UpdateValue bool
	Tol         Tolerance
	Rand        *Rand
	// Fees, when set, overrides the order's literal Fees/FixedFees with a
	// schedule computed from the fill's side and notional.
	Fees fees.Schedule
}

// ExecuteOrder runs the single-order state machine: validate & normalize,
// apply direction, resolve price, apply bounds, check cash feasibility,
// apply random rejection, and commit. It never panics on malformed input —
// malformed orders resolve to a Rejected result (escalated to ErrHardReject
// only when order.RaiseReject is set).
func ExecuteOrder(ctx *OrderContext, order models.Order) (models.OrderResult, error) {
	tol := ctx.Tol
	if tol == (Tolerance{}) {
		tol = DefaultTolerance()
	}

	reject := func(info string) (models.OrderResult, error) {
		res := models.OrderResult{Price: math.NaN(), Side: models.None, Status: models.StatusRejected, StatusInfo: info}
		if order.RaiseReject {
			return res, fmt.Errorf("%w: %s", ErrHardReject, info)
		}
		return res, nil
	}
	ignore := func() (models.OrderResult, error) {
		return models.OrderResult{Side: models.None, Status: models.StatusIgnored}, nil
	}

	// 1. Validate & normalize.
	if math.IsNaN(order.Size) {
		return reject("size is NaN")
	}
	if math.IsInf(order.Size, 0) {
		return reject("size is infinite")
	}
	if math.IsNaN(order.Price) && !math.IsInf(order.Price, 0) {
		return reject("price is NaN")
	}
	if order.Fees < 0 || order.FixedFees < 0 || order.Slippage < 0 {
		return reject("negative fees, fixed_fees, or slippage")
	}
	if order.RejectProb < 0 || order.RejectProb > 1 {
		return reject("reject_prob out of [0,1]")
	}
	if order.MinSize < 0 || order.MaxSize < 0 {
		return reject("negative min_size or max_size")
	}

	nominal := order.Price
	switch {
	case math.IsInf(nominal, 1):
		nominal = ctx.PriceArea.Close
	case math.IsInf(nominal, -1):
		nominal = ctx.ValPrice
	}
	if math.IsNaN(nominal) || nominal <= 0 {
		return reject("no valid reference price available")
	}

	delta, err := resolveDelta(ctx, order, nominal, tol)
	if err != nil {
		return reject(err.Error())
	}
	if tol.IsClose(delta, 0) {
		return ignore()
	}

	// 2. Apply direction. Both permits a sign flip; LongOnly/ShortOnly clip
	// the delta to close-only when it would cross zero.
	newPos := tol.Add(ctx.Position, delta)
	switch order.Direction {
	case models.LongOnly:
		if tol.IsLess(newPos, 0) {
			delta = -ctx.Position
		}
	case models.ShortOnly:
		if tol.IsLess(0, newPos) {
			delta = -ctx.Position
		}
	}
	if tol.IsClose(delta, 0) {
		return ignore()
	}

	side := models.Buy
	if delta < 0 {
		side = models.Sell
	}

	// A fee schedule, when set, supersedes the order's literal Fees/
	// FixedFees — this is what lets a locale-specific commission table
	// (internal/fees) drive cost instead of a flat per-order override.
	if ctx.Fees != nil {
		order.Fees, order.FixedFees = ctx.Fees.Compute(side, math.Abs(delta)*nominal)
	}

	// 3. Resolve price: slippage, then price-area clip/reject.
	execPrice := nominal
	if side == models.Buy {
		execPrice = nominal * (1 + order.Slippage)
	} else {
		execPrice = nominal * (1 - order.Slippage)
	}
	execPrice, ok := clipToPriceArea(execPrice, ctx.PriceArea, order.PriceAreaVioMode)
	if !ok {
		return reject("price outside price area")
	}

	// 4. Apply bounds: min/max/granularity.
	size := math.Abs(delta)
	if order.MinSize > 0 && tol.IsLess(size, order.MinSize) {
		return reject("size below min_size")
	}
	if order.MaxSize > 0 && !math.IsInf(order.MaxSize, 1) && tol.IsLess(order.MaxSize, size) {
		if !order.AllowPartial {
			return reject("size exceeds max_size")
		}
		size = order.MaxSize
	}
	if size = applyGranularity(size, order.SizeGranularity); tol.IsClose(size, 0) {
		return ignore()
	}

	// 5. Cash feasibility, with closed-form partial fill when allowed.
	newSize, newCashAfter, newDebtAfter, feasible := checkCashFeasibility(ctx, order, side, size, execPrice, tol)
	if !feasible {
		if !order.AllowPartial {
			return reject("insufficient cash" + lockCashSuffix(order))
		}
		return ignore()
	}
	size = newSize
	if tol.IsClose(size, 0) {
		return ignore()
	}
	if order.MinSize > 0 && tol.IsLess(size, order.MinSize) {
		return reject("partial fill below min_size")
	}

	// 6. Random rejection.
	if order.RejectProb > 0 && ctx.Rand != nil && ctx.Rand.Float64() < order.RejectProb {
		return reject("random rejection")
	}

	// 7. Commit.
	if side == models.Sell {
		delta = -size
	} else {
		delta = size
	}
	fees := size*execPrice*order.Fees + order.FixedFees

	ctx.Position = tol.Add(ctx.Position, delta)
	ctx.Cash = newCashAfter
	ctx.Debt = newDebtAfter
	ctx.FreeCash = ctx.Cash - ctx.Debt
	if ctx.UpdateValue {
		ctx.ValPrice = execPrice
	}

	return models.OrderResult{
		Size:   delta,
		Price:  execPrice,
		Fees:   fees,
		Side:   side,
		Status: models.StatusFilled,
	}, nil
}

// resolveDelta converts an Order's SizeType into a signed asset-unit delta,
// using nominal (the pre-slippage resolved price) as the conversion price.
func resolveDelta(ctx *OrderContext, order models.Order, nominal float64, tol Tolerance) (float64, error) {
	switch order.SizeType {
	case models.SizeAmount:
		return order.Size, nil
	case models.SizeValue:
		return order.Size / nominal, nil
	case models.SizePercent:
		if order.Size >= 0 {
			avail := ctx.Cash
			if order.LockCash {
				avail = math.Min(ctx.Cash, ctx.FreeCash)
			}
			return order.Size * (avail / nominal), nil
		}
		return order.Size * math.Abs(ctx.Position), nil
	case models.SizeTargetAmount:
		return order.Size - ctx.Position, nil
	case models.SizeTargetValue:
		targetPos := order.Size / nominal
		return targetPos - ctx.Position, nil
	case models.SizeTargetPercent:
		totalValue := ctx.Cash + ctx.Position*nominal
		targetValue := order.Size * totalValue
		targetPos := targetValue / nominal
		return targetPos - ctx.Position, nil
	default:
		return 0, fmt.Errorf("unknown size_type %v", order.SizeType)
	}
}

// clipToPriceArea enforces that execPrice lies within [Low, High] of the
// bar, per PriceAreaVioMode. NaN bounds are treated as "no constraint on
// that side." Returns ok=false when mode is VioError and the price is out
// of range.
func clipToPriceArea(execPrice float64, area models.PriceArea, mode models.PriceAreaVioMode) (float64, bool) {
	if mode == models.VioIgnore {
		return execPrice, true
	}
	lo, hi := area.Low, area.High
	violated := (!math.IsNaN(lo) && execPrice < lo) || (!math.IsNaN(hi) && execPrice > hi)
	if !violated {
		return execPrice, true
	}
	switch mode {
	case models.VioCap:
		if !math.IsNaN(lo) && execPrice < lo {
			return lo, true
		}
		if !math.IsNaN(hi) && execPrice > hi {
			return hi, true
		}
		return execPrice, true
	case models.VioError:
		return execPrice, false
	default:
		return execPrice, true
	}
}

// applyGranularity truncates size toward zero to the nearest multiple of
// granularity (no-op when granularity <= 0).
func applyGranularity(size, granularity float64) float64 {
	if granularity <= 0 {
		return size
	}
	steps := math.Trunc(size / granularity)
	return steps * granularity
}

// checkCashFeasibility verifies the order fits the column's cash/free-cash
// constraints and, when allow_partial is set, solves the closed-form
// maximal size that does fit (fee rate is linear in size so no search is
// needed). It returns the feasible size (which may be smaller than the
// requested size) along with the resulting cash and debt after commit.
func checkCashFeasibility(ctx *OrderContext, order models.Order, side models.OrderSide, size, execPrice float64, tol Tolerance) (newSize, newCash, newDebt float64, ok bool) {
	switch side {
	case models.Buy:
		cost := size*execPrice + order.FixedFees + size*execPrice*order.Fees
		avail := ctx.Cash
		if order.LockCash {
			avail = math.Min(ctx.Cash, ctx.FreeCash)
		}
		if !tol.IsLess(avail, cost) {
			newPos := ctx.Position + size
			debt := math.Max(0, -newPos) * execPrice
			return size, ctx.Cash - cost, debt, true
		}
		if !order.AllowPartial {
			return 0, 0, 0, false
		}
		budget := avail - order.FixedFees
		if budget <= 0 {
			return 0, 0, 0, false
		}
		fitSize := budget / (execPrice * (1 + order.Fees))
		fitSize = applyGranularity(fitSize, order.SizeGranularity)
		if tol.IsClose(fitSize, 0) || fitSize < 0 {
			return 0, 0, 0, false
		}
		fitCost := fitSize*execPrice + fitSize*execPrice*order.Fees + order.FixedFees
		newPos := ctx.Position + fitSize
		debt := math.Max(0, -newPos) * execPrice
		return fitSize, ctx.Cash - fitCost, debt, true

	default: // Sell
		fees := size*execPrice*order.Fees + order.FixedFees
		proceeds := size*execPrice - fees
		newPos := ctx.Position - size
		debt := math.Max(0, -newPos) * execPrice
		cashAfter := ctx.Cash + proceeds
		freeCashAfter := cashAfter - debt
		if proceeds < 0 && !order.AllowPartial {
			return 0, 0, 0, false
		}
		if order.LockCash && tol.IsLess(freeCashAfter, 0) {
			if !order.AllowPartial {
				// A long-to-short sign flip keeps only its closing leg: sell
				// the existing long down to flat and drop the opening leg.
				if ctx.Position > 0 && newPos < 0 {
					closeProceeds := ctx.Position*execPrice - (ctx.Position*execPrice*order.Fees + order.FixedFees)
					if closeProceeds >= 0 {
						return ctx.Position, ctx.Cash + closeProceeds, 0, true
					}
				}
				return 0, 0, 0, false
			}
			// Reduce the sell so the newly reserved debt doesn't exceed
			// cash: solve freeCash(size') = 0 under the assumption the
			// position stays short throughout (the common lock_cash case
			// — selling further into an existing short).
			// cash + size'*price*(1-fees) - fixed - max(0,-(pos-size'))*price = 0
			denom := execPrice*(1-order.Fees) - execPrice
			if denom == 0 {
				return 0, 0, 0, false
			}
			fitSize := (-ctx.Cash + order.FixedFees + math.Max(0, -ctx.Position)*execPrice) / denom
			fitSize = applyGranularity(fitSize, order.SizeGranularity)
			if tol.IsClose(fitSize, 0) || fitSize < 0 || fitSize > size {
				return 0, 0, 0, false
			}
			fFees := fitSize*execPrice*order.Fees + order.FixedFees
			fProceeds := fitSize*execPrice - fFees
			fPos := ctx.Position - fitSize
			fDebt := math.Max(0, -fPos) * execPrice
			return fitSize, ctx.Cash + fProceeds, fDebt, true
		}
		if proceeds < 0 {
			return 0, 0, 0, false
		}
		return size, cashAfter, debt, true
	}
}

func lockCashSuffix(order models.Order) string {
	if order.LockCash {
		return " (lock_cash)"
	}
	return ""
}
