package sim

import (
	"math"

	"github.com/kestrelquant/vectorsim/pkg/models"
)

// StopTrigger identifies which stop (if either) fired on a bar.
type StopTrigger int

const (
	StopNone StopTrigger = iota
	StopLoss
	StopTakeProfit
)

// StopExitPriceMode selects the price a synthesized stop-exit order carries:
// the stop/target level itself, or the bar's close.
type StopExitPriceMode int

const (
	StopExitAtStopPrice StopExitPriceMode = iota
	StopExitAtClose
)

// armStop seeds a freshly opened position's stop state: the SL/TP reference
// starts at the entry price, and for a trailing SL the ratchet reference is
// the same price until a more favorable close arrives.
func armStop(cs *ColumnState, row int, entryPrice, slStop float64, slTrail bool, tpStop float64) {
	cs.SLStop = !math.IsNaN(slStop) && slStop > 0
	cs.SLTrail = slTrail
	cs.SLInitPrice = entryPrice
	cs.SLInitIdx = row
	cs.TPStop = !math.IsNaN(tpStop) && tpStop > 0
	cs.TPInitPrice = entryPrice
}

// disarmStop clears stop state after a position closes (by stop or by
// ordinary exit signal).
func disarmStop(cs *ColumnState) {
	cs.SLStop, cs.SLTrail, cs.TPStop = false, false, false
}

// ratchetTrailingStop advances a trailing SL's reference price toward the
// most favorable close seen since entry. For a long position the reference
// only ever rises (tracking the running high); for a short it only falls.
func ratchetTrailingStop(cs *ColumnState, long bool, close float64) {
	if !cs.SLStop || !cs.SLTrail {
		return
	}
	if long && close > cs.SLInitPrice {
		cs.SLInitPrice = close
	}
	if !long && close < cs.SLInitPrice {
		cs.SLInitPrice = close
	}
}

// evaluateStops checks the current bar's OHLC against the column's armed
// stops and returns which one (if any) triggered, along with the price a
// synthesized close order should use. long reports the position's side at
// the start of the bar (stops only apply to an open position).
func evaluateStops(cs *ColumnState, long bool, slFrac, tpFrac float64, area models.PriceArea, exitMode StopExitPriceMode) (StopTrigger, float64) {
	var slHit, tpHit bool
	var slPrice, tpPrice float64

	if cs.SLStop {
		frac := math.Max(slFrac, 0)
		if long {
			slPrice = cs.SLInitPrice * (1 - frac)
			slHit = area.Low < slPrice
		} else {
			slPrice = cs.SLInitPrice * (1 + frac)
			slHit = area.High > slPrice
		}
	}
	if cs.TPStop {
		frac := math.Max(tpFrac, 0)
		if long {
			tpPrice = cs.TPInitPrice * (1 + frac)
			tpHit = area.High > tpPrice
		} else {
			tpPrice = cs.TPInitPrice * (1 - frac)
			tpHit = area.Low < tpPrice
		}
	}

	trigger := StopNone
	switch {
	case slHit:
		// Stop-loss wins a same-bar tie against take-profit — the
		// conservative choice given no true intrabar price path (Non-goals).
		trigger = StopLoss
	case tpHit:
		trigger = StopTakeProfit
	}

	switch trigger {
	case StopLoss:
		if exitMode == StopExitAtClose {
			return trigger, area.Close
		}
		return trigger, slPrice
	case StopTakeProfit:
		if exitMode == StopExitAtClose {
			return trigger, area.Close
		}
		return trigger, tpPrice
	default:
		return StopNone, math.NaN()
	}
}
