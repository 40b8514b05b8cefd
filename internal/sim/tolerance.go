// Package sim implements the vectorized portfolio simulation kernel: the
// execute-order state machine, the grouping/call-sequence model, and the
// three drivers (from-orders, from-signals, from-order-func) that repeatedly
// invoke it to turn a time×column OHLCV grid and a description of trading
// intent into an immutable order/log record stream.
package sim

import "math"

// Tolerance holds the relative/absolute tolerance used by every float
// comparison in the kernel. The zero value is invalid — use
// DefaultTolerance or a value resolved through config.
type Tolerance struct {
	RelTol float64
	AbsTol float64
}

// DefaultTolerance matches the reference implementation's defaults: tight
// enough to catch real sign-flip bugs, loose enough to absorb IEEE-754
// accumulation error over a long bar sequence.
func DefaultTolerance() Tolerance {
	return Tolerance{RelTol: 1e-9, AbsTol: 1e-12}
}

// IsClose reports whether a and b are equal within tolerance.
func (t Tolerance) IsClose(a, b float64) bool {
	if a == b {
		return true
	}
	if math.IsNaN(a) || math.IsNaN(b) {
		return false
	}
	if math.IsInf(a, 0) || math.IsInf(b, 0) {
		return a == b
	}
	diff := math.Abs(a - b)
	return diff <= math.Max(t.RelTol*math.Max(math.Abs(a), math.Abs(b)), t.AbsTol)
}

// IsCloseOrLess reports whether a <= b, treating near-equal as equal.
func (t Tolerance) IsCloseOrLess(a, b float64) bool {
	if t.IsClose(a, b) {
		return true
	}
	return a < b
}

// IsLess reports whether a < b once near-equal values are folded to equal.
func (t Tolerance) IsLess(a, b float64) bool {
	if t.IsClose(a, b) {
		return false
	}
	return a < b
}

// IsAdditionZero reports whether a+b is within tolerance of exact zero —
// used to detect a fill that exactly closes a position instead of leaving a
// phantom near-zero residual.
func (t Tolerance) IsAdditionZero(a, b float64) bool {
	return t.IsClose(a+b, 0)
}

// Add returns a+b, snapping the result to exactly 0 when the pair is a
// near-zero addition. This is what keeps closed positions at a clean 0.0
// instead of leaking float dust into later IsClose comparisons.
func (t Tolerance) Add(a, b float64) float64 {
	if t.IsAdditionZero(a, b) {
		return 0
	}
	return a + b
}

var defaultTol = DefaultTolerance()

// IsClose is a package-level convenience using DefaultTolerance.
func IsClose(a, b float64) bool { return defaultTol.IsClose(a, b) }
