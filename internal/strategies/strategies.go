// Package strategies adapts the teacher's imperative bar-loop strategies
// into pure signal generators: functions that look at a whole bar history
// at once and emit entry/exit boolean series, which is the shape
// internal/sim's from-signals driver consumes instead of a per-bar
// callback engine.
package strategies

import (
	"github.com/kestrelquant/vectorsim/internal/analysis/technical"
	"github.com/kestrelquant/vectorsim/pkg/models"
)

// Strategy names a signal generator and the function that produces it.
// Generate returns four same-length boolean series, one entry per bar in
// bars, meant to feed driver_signals.SignalsInput.LongEntry/LongExit/
// ShortEntry/ShortExit for a single column.
type Strategy struct {
	Name     string
	Generate func(bars []models.OHLCV) (longEntry, longExit, shortEntry, shortExit []bool)
}

// BuiltinStrategies returns all built-in strategies with default parameters.
func BuiltinStrategies() []Strategy {
	return []Strategy{
		SMACrossover(20, 50),
		RSIMeanReversion(14, 30, 70),
		SuperTrendStrategy(7, 3.0),
		VWAPBreakout(20),
		MACDCrossover(12, 26, 9),
	}
}

func emptySignals(n int) (longEntry, longExit, shortEntry, shortExit []bool) {
	return make([]bool, n), make([]bool, n), make([]bool, n), make([]bool, n)
}

func closesOf(bars []models.OHLCV) []float64 {
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	return closes
}

// ────────────────────────────────────────────────────────────────────
// 1. SMA Crossover
// ────────────────────────────────────────────────────────────────────

// SMACrossover goes long when the fast SMA crosses above the slow SMA and
// exits when it crosses back below. Long-only, same as the teacher's.
func SMACrossover(fast, slow int) Strategy {
	return Strategy{
		Name: "SMA Crossover",
		Generate: func(bars []models.OHLCV) (longEntry, longExit, shortEntry, shortExit []bool) {
			n := len(bars)
			longEntry, longExit, shortEntry, shortExit = emptySignals(n)
			if n <= slow {
				return
			}
			fastSMA := technical.SMA(closesOf(bars), fast)
			slowSMA := technical.SMA(closesOf(bars), slow)
			if fastSMA == nil || slowSMA == nil {
				return
			}
			for i := slow; i < n; i++ {
				if fastSMA[i-1] <= slowSMA[i-1] && fastSMA[i] > slowSMA[i] {
					longEntry[i] = true
				}
				if fastSMA[i-1] >= slowSMA[i-1] && fastSMA[i] < slowSMA[i] {
					longExit[i] = true
				}
			}
			return
		},
	}
}

// ────────────────────────────────────────────────────────────────────
// 2. RSI Mean Reversion
// ────────────────────────────────────────────────────────────────────

// RSIMeanReversion enters long when RSI crosses up through oversold and
// exits when it crosses up through overbought.
func RSIMeanReversion(period int, oversold, overbought float64) Strategy {
	return Strategy{
		Name: "RSI Mean Reversion",
		Generate: func(bars []models.OHLCV) (longEntry, longExit, shortEntry, shortExit []bool) {
			n := len(bars)
			longEntry, longExit, shortEntry, shortExit = emptySignals(n)
			if n <= period+1 {
				return
			}
			rsi := technical.RSI(bars, period)
			if rsi == nil {
				return
			}
			for i := period + 1; i < n; i++ {
				prev, curr := rsi[i-1], rsi[i]
				if prev <= oversold && curr > oversold {
					longEntry[i] = true
				}
				if prev <= overbought && curr > overbought {
					longExit[i] = true
				}
			}
			return
		},
	}
}

// ────────────────────────────────────────────────────────────────────
// 3. SuperTrend
// ────────────────────────────────────────────────────────────────────

// SuperTrendStrategy follows the SuperTrend indicator's trend flips.
func SuperTrendStrategy(period int, mult float64) Strategy {
	return Strategy{
		Name: "SuperTrend",
		Generate: func(bars []models.OHLCV) (longEntry, longExit, shortEntry, shortExit []bool) {
			n := len(bars)
			longEntry, longExit, shortEntry, shortExit = emptySignals(n)
			if n <= period {
				return
			}
			st := technical.SuperTrend(bars, period, mult)
			if st == nil {
				return
			}
			for i := period; i < n; i++ {
				prev, curr := st[i-1], st[i]
				if prev.Trend == "DOWN" && curr.Trend == "UP" {
					longEntry[i] = true
				}
				if prev.Trend == "UP" && curr.Trend == "DOWN" {
					longExit[i] = true
				}
			}
			return
		},
	}
}

// ────────────────────────────────────────────────────────────────────
// 4. VWAP Breakout
// ────────────────────────────────────────────────────────────────────

// VWAPBreakout enters long on a breakout above VWAP confirmed by an SMA
// uptrend, and exits on a breakdown below VWAP.
func VWAPBreakout(smaPeriod int) Strategy {
	return Strategy{
		Name: "VWAP Breakout",
		Generate: func(bars []models.OHLCV) (longEntry, longExit, shortEntry, shortExit []bool) {
			n := len(bars)
			longEntry, longExit, shortEntry, shortExit = emptySignals(n)
			if n <= smaPeriod {
				return
			}
			vwap := technical.VWAP(bars)
			sma := technical.SMA(closesOf(bars), smaPeriod)
			if vwap == nil || sma == nil {
				return
			}
			for i := smaPeriod; i < n; i++ {
				prevClose := bars[i-1].Close
				close := bars[i].Close
				if prevClose <= vwap[i] && close > vwap[i] && close > sma[i] {
					longEntry[i] = true
				}
				if prevClose >= vwap[i] && close < vwap[i] {
					longExit[i] = true
				}
			}
			return
		},
	}
}

// ────────────────────────────────────────────────────────────────────
// 5. MACD Crossover
// ────────────────────────────────────────────────────────────────────

// MACDCrossover trades MACD-line/signal-line crossovers.
func MACDCrossover(fast, slow, signal int) Strategy {
	return Strategy{
		Name: "MACD Crossover",
		Generate: func(bars []models.OHLCV) (longEntry, longExit, shortEntry, shortExit []bool) {
			n := len(bars)
			longEntry, longExit, shortEntry, shortExit = emptySignals(n)
			if n <= slow+signal {
				return
			}
			macd := technical.MACD(bars, fast, slow, signal)
			if macd == nil {
				return
			}
			for i := slow + signal; i < n; i++ {
				prev, curr := macd[i-1], macd[i]
				if prev.MACD <= prev.Signal && curr.MACD > curr.Signal {
					longEntry[i] = true
				}
				if prev.MACD >= prev.Signal && curr.MACD < curr.Signal {
					longExit[i] = true
				}
			}
			return
		},
	}
}
