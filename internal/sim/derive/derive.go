// Package derive turns an immutable order-record stream back into the
// per-bar time series a caller actually wants to look at: asset flow and
// holdings, cash and total value, returns, and a buy-and-hold benchmark —
// everything spec.md §4.E names, built as a group-aware pass over
// sim.SimResult rather than a vectorized pandas column operation.
package derive

import (
	"github.com/kestrelquant/vectorsim/internal/sim"
)

// AssetFlow computes, per (row, col), the sum of signed fill sizes from
// records at that row/col. direction, when non-nil, restricts the sum to
// fills that occurred while long (*direction > 0) or short (*direction < 0)
// at the time of the fill — isolating position-building-while-long from
// position-building-while-short.
func AssetFlow(res *sim.SimResult, direction *int) [][]float64 {
	out := make([][]float64, res.Rows)
	for i := range out {
		out[i] = make([]float64, res.Cols)
	}
	for col := 0; col < res.Cols; col++ {
		pos := 0.0
		for _, rec := range res.Records.Orders(col) {
			if direction != nil {
				if *direction > 0 && pos <= 0 {
					pos += rec.Size
					continue
				}
				if *direction < 0 && pos >= 0 {
					pos += rec.Size
					continue
				}
			}
			out[rec.Row][col] += rec.Size
			pos += rec.Size
		}
	}
	return out
}

// Assets computes cumulative position per (row, col) from asset_flow plus
// each column's initial position.
func Assets(assetFlow [][]float64, initPosition []float64) [][]float64 {
	rows := len(assetFlow)
	out := make([][]float64, rows)
	running := make([]float64, len(assetFlow[0]))
	if initPosition != nil {
		copy(running, initPosition)
	}
	for i := 0; i < rows; i++ {
		out[i] = make([]float64, len(running))
		for c := range running {
			running[c] += assetFlow[i][c]
			out[i][c] = running[c]
		}
	}
	return out
}

// PositionMask reports, per (row, col), whether the column held a nonzero
// position.
func PositionMask(assets [][]float64) [][]bool {
	out := make([][]bool, len(assets))
	for i, row := range assets {
		out[i] = make([]bool, len(row))
		for c, v := range row {
			out[i][c] = !sim.IsClose(v, 0)
		}
	}
	return out
}

// PositionCoverage is the fraction of bars each column held a nonzero
// position, per column.
func PositionCoverage(mask [][]bool) []float64 {
	if len(mask) == 0 {
		return nil
	}
	n := len(mask[0])
	counts := make([]float64, n)
	for _, row := range mask {
		for c, held := range row {
			if held {
				counts[c]++
			}
		}
	}
	for c := range counts {
		counts[c] /= float64(len(mask))
	}
	return counts
}

// CashFlow computes, per (row, col), -(signed_size*price + fees + fixed_fees)
// plus cashEarnings at that cell — the per-column contribution to its
// wallet's cash balance that bar. cashEarnings may be nil (treated as 0).
func CashFlow(res *sim.SimResult, cashEarnings [][]float64) [][]float64 {
	out := make([][]float64, res.Rows)
	for i := range out {
		out[i] = make([]float64, res.Cols)
		if cashEarnings != nil {
			copy(out[i], cashEarnings[i])
		}
	}
	for col := 0; col < res.Cols; col++ {
		for _, rec := range res.Records.Orders(col) {
			out[rec.Row][col] -= rec.Size*rec.Price + rec.Fees
		}
	}
	return out
}

// Cash aggregates per-column cash_flow into per-wallet cumulative cash,
// starting from each wallet's init_cash plus, per bar, cash_deposits.
// grouping resolves which wallet a column belongs to (see
// sim.Grouping.CashSharing).
func Cash(cashFlow [][]float64, grouping sim.Grouping, initCash []float64, cashDeposits [][]float64) [][]float64 {
	rows := len(cashFlow)
	numWallets := grouping.NumGroups()
	if !grouping.CashSharing {
		numWallets = grouping.NumColumns()
	}
	walletOf := func(col int) int {
		if grouping.CashSharing {
			return grouping.ColumnToGroup(col)
		}
		return col
	}
	running := make([]float64, numWallets)
	if initCash != nil {
		copy(running, initCash)
	}
	out := make([][]float64, rows)
	for i := 0; i < rows; i++ {
		if cashDeposits != nil {
			for w := 0; w < numWallets; w++ {
				running[w] += cashDeposits[i][w]
			}
		}
		for col, flow := range cashFlow[i] {
			running[walletOf(col)] += flow
		}
		out[i] = append([]float64(nil), running...)
	}
	return out
}

// AssetValue computes close*assets per (row, col), forcing 0 where assets
// is ~0 so an untraded column never propagates a stray NaN close.
func AssetValue(assets [][]float64, close func(row, col int) float64) [][]float64 {
	out := make([][]float64, len(assets))
	for i, row := range assets {
		out[i] = make([]float64, len(row))
		for c, a := range row {
			if sim.IsClose(a, 0) {
				continue
			}
			out[i][c] = close(i, c) * a
		}
	}
	return out
}

// Value computes per-wallet total value: cash plus the group-sum of
// asset_value across the wallet's columns.
func Value(cash [][]float64, assetValue [][]float64, grouping sim.Grouping) [][]float64 {
	rows := len(cash)
	out := make([][]float64, rows)
	walletOf := func(col int) int {
		if grouping.CashSharing {
			return grouping.ColumnToGroup(col)
		}
		return col
	}
	for i := 0; i < rows; i++ {
		out[i] = append([]float64(nil), cash[i]...)
		for col, av := range assetValue[i] {
			out[i][walletOf(col)] += av
		}
	}
	return out
}

// Returns computes value_t/(value_{t-1}+cash_deposits_t) - 1 per wallet,
// with row 0 computed against initValue (the wallet's starting value before
// any bar ran).
func Returns(value [][]float64, cashDeposits [][]float64, initValue []float64) [][]float64 {
	rows := len(value)
	if rows == 0 {
		return nil
	}
	numWallets := len(value[0])
	out := make([][]float64, rows)
	prev := append([]float64(nil), initValue...)
	for i := 0; i < rows; i++ {
		out[i] = make([]float64, numWallets)
		for w := 0; w < numWallets; w++ {
			deposit := 0.0
			if cashDeposits != nil {
				deposit = cashDeposits[i][w]
			}
			denom := prev[w] + deposit
			if denom == 0 {
				out[i][w] = 0
			} else {
				out[i][w] = value[i][w]/denom - 1
			}
			prev[w] = value[i][w]
		}
	}
	return out
}

// MarketValue computes a buy-and-hold baseline: initValue spread evenly
// across ungrouped columns at bar 0's close, marked to market each bar.
func MarketValue(close [][]float64, initValue float64) []float64 {
	rows := len(close)
	if rows == 0 {
		return nil
	}
	n := len(close[0])
	shares := make([]float64, n)
	alloc := initValue / float64(n)
	for c := 0; c < n; c++ {
		if close[0][c] > 0 {
			shares[c] = alloc / close[0][c]
		}
	}
	out := make([]float64, rows)
	for i := 0; i < rows; i++ {
		v := 0.0
		for c := 0; c < n; c++ {
			v += shares[c] * close[i][c]
		}
		out[i] = v
	}
	return out
}

// MarketReturns converts a market_value series into bar-over-bar returns.
func MarketReturns(marketValue []float64) []float64 {
	out := make([]float64, len(marketValue))
	for i := range marketValue {
		if i == 0 || marketValue[i-1] == 0 {
			out[i] = 0
			continue
		}
		out[i] = marketValue[i]/marketValue[i-1] - 1
	}
	return out
}

// TotalProfit computes, per column, net realized+unrealized profit directly
// from order records and final state — a closed-form fast path for summary
// statistics that avoids replaying the whole cash/value series.
func TotalProfit(res *sim.SimResult, finalClose []float64) []float64 {
	out := make([]float64, res.Cols)
	for col := 0; col < res.Cols; col++ {
		spent := 0.0
		for _, rec := range res.Records.Orders(col) {
			spent -= rec.Size*rec.Price + rec.Fees
		}
		finalValue := 0.0
		if res.ColumnStates != nil {
			finalValue = res.ColumnStates[col].Position * finalClose[col]
		}
		out[col] = spent + finalValue
	}
	return out
}

// GroupSum collapses N per-column columns into G per-group columns by
// summing within each group's column span.
func GroupSum(perColumn [][]float64, grouping sim.Grouping) [][]float64 {
	rows := len(perColumn)
	g := grouping.NumGroups()
	out := make([][]float64, rows)
	for i := 0; i < rows; i++ {
		out[i] = make([]float64, g)
		for group := 0; group < g; group++ {
			start, end := grouping.GroupRange(group)
			for col := start; col < end; col++ {
				out[i][group] += perColumn[i][col]
			}
		}
	}
	return out
}

// CloseGrid reads a sim.Grid's Close flex array into a dense T x N slice,
// the shape the derive functions above operate on.
func CloseGrid(g sim.Grid) [][]float64 {
	out := make([][]float64, g.Rows)
	for i := 0; i < g.Rows; i++ {
		out[i] = make([]float64, g.Cols)
		for c := 0; c < g.Cols; c++ {
			out[i][c] = g.Close.Select(i, c)
		}
	}
	return out
}
