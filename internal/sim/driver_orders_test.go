package sim

import (
	"math"
	"testing"

	"github.com/kestrelquant/vectorsim/pkg/models"
)

// TestS1BuyAndHold mirrors the buy-and-hold scenario: a single Amount buy of
// size 10 at bar 0, held to the end.
func TestS1BuyAndHold(t *testing.T) {
	grid := NewGridFromBars(bars(1, 2, 3, 4, 5))
	size := NewFullFlex([][]float64{{10}, {math.NaN()}, {math.NaN()}, {math.NaN()}, {math.NaN()}})
	input := OrdersInput{
		SimInput: SimInput{Grid: grid, InitCash: []float64{100}},
		Size:     size,
		SizeType: models.SizeAmount,
	}
	res, err := SimulateFromOrders(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := res.ColumnStates[0].Position; got != 10 {
		t.Errorf("final assets = %v, want 10", got)
	}
	if got := res.GroupStates[0].Cash; got != 90 {
		t.Errorf("final cash = %v, want 90", got)
	}
	orders := res.Records.Orders(0)
	if len(orders) != 1 || orders[0].Row != 0 || orders[0].Size != 10 || orders[0].Price != 1 {
		t.Fatalf("unexpected order records: %+v", orders)
	}
}

// TestS1BuyAndHoldConstrainedCash checks the reduced-cash variant: a size-10
// buy against init_cash=30 at price 1 costs 10, fits within the 30 available
// (up to 30 units would), and fills in full, leaving cash=20.
func TestS1BuyAndHoldConstrainedCash(t *testing.T) {
	grid := NewGridFromBars(bars(1, 2, 3, 4, 5))
	size := NewFullFlex([][]float64{{10}, {math.NaN()}, {math.NaN()}, {math.NaN()}, {math.NaN()}})
	input := OrdersInput{
		SimInput: SimInput{Grid: grid, InitCash: []float64{30}},
		Size:     size,
		SizeType: models.SizeAmount,
	}
	res, err := SimulateFromOrders(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := res.GroupStates[0].Cash; got != 20 {
		t.Errorf("final cash = %v, want 20", got)
	}
}

// TestS6RecordOverflow checks that a second fill on a column whose
// max_orders=1 returns the typed overflow error on append.
func TestS6RecordOverflow(t *testing.T) {
	grid := NewGridFromBars(bars(1, 2, 3))
	size := NewScalarFlex(1)
	input := OrdersInput{
		SimInput: SimInput{Grid: grid, InitCash: []float64{1000}, MaxOrders: 1},
		Size:     size,
		SizeType: models.SizeAmount,
	}
	_, err := SimulateFromOrders(input)
	if err == nil {
		t.Fatal("expected record overflow error")
	}
}

// TestS5GroupedCashSharingAutoSeq checks that Auto call-seq actually
// reorders execution to sell-before-buy, rather than merely reproducing
// whatever the default column order happens to be. Column 0 wants to buy
// (needs cash) and column 1 wants to sell (produces cash) — the opposite of
// the default [0,1] execution order, so the default order alone would
// reject column 0's buy (no cash yet) while Auto must reorder column 1's
// sell first to fund it.
func TestS5GroupedCashSharingAutoSeq(t *testing.T) {
	grid := Grid{
		Rows: 1, Cols: 2,
		Open: NewScalarFlex(2), High: NewScalarFlex(2), Low: NewScalarFlex(2), Close: NewScalarFlex(2),
		HasOpen: true, HasHigh: true, HasLow: true,
	}
	size := NewFullFlex([][]float64{{1, -1}})
	input := OrdersInput{
		SimInput: SimInput{
			Grid:         grid,
			Grouping:     NewGrouping([]int{2}, true),
			CallSeq:      CallSeq{Mode: CallSeqAuto},
			InitCash:     []float64{0},
			InitPosition: []float64{0, 1},
		},
		Size:     size,
		SizeType: models.SizeAmount,
	}
	res, err := SimulateFromOrders(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := res.GroupStates[0].Cash; got != 0 {
		t.Errorf("final shared cash = %v, want 0 (Auto reorders the sell before the buy)", got)
	}
	if len(res.Records.Orders(0)) != 1 || len(res.Records.Orders(1)) != 1 {
		t.Fatalf("expected exactly one fill per column, got %d and %d",
			len(res.Records.Orders(0)), len(res.Records.Orders(1)))
	}
	if res.Records.Orders(1)[0].Side != models.Sell || res.Records.Orders(0)[0].Side != models.Buy {
		t.Fatalf("unexpected sides: col0=%v col1=%v", res.Records.Orders(0)[0].Side, res.Records.Orders(1)[0].Side)
	}
}

func bars(closes ...float64) []models.OHLCV {
	out := make([]models.OHLCV, len(closes))
	for i, c := range closes {
		out[i] = models.OHLCV{Open: c, High: c, Low: c, Close: c}
	}
	return out
}
