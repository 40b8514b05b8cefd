package sim

import (
	"testing"

	"github.com/kestrelquant/vectorsim/pkg/models"
)

// TestS3SignalsLongOnly mirrors the longonly signals scenario: entries at
// bars 0-2, exits at bars 2-4, accumulation disabled ⇒ a single buy at i=0
// and a single sell at i=2.
func TestS3SignalsLongOnly(t *testing.T) {
	grid := NewGridFromBars(bars(1, 2, 3, 4, 5))
	entries := []bool{true, true, true, false, false}
	exits := []bool{false, false, true, true, true}
	input := SignalsInput{
		SimInput: SimInput{Grid: grid, InitCash: []float64{100}},
		LongEntry: [][]bool{{entries[0]}, {entries[1]}, {entries[2]}, {entries[3]}, {entries[4]}},
		LongExit:  [][]bool{{exits[0]}, {exits[1]}, {exits[2]}, {exits[3]}, {exits[4]}},
		Size:      NewScalarFlex(1),
		SizeType:  models.SizeAmount,
		Direction: models.LongOnly,
		Rules:     SignalRules{Accumulation: AccumulationDisabled, UponLongConflict: ConflictExit},
	}
	res, err := SimulateFromSignals(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	orders := res.Records.Orders(0)
	if len(orders) != 2 {
		t.Fatalf("expected exactly 2 fills, got %d: %+v", len(orders), orders)
	}
	if orders[0].Row != 0 || orders[0].Side != models.Buy {
		t.Errorf("first fill = %+v, want buy at row 0", orders[0])
	}
	if orders[1].Row != 2 || orders[1].Side != models.Sell {
		t.Errorf("second fill = %+v, want sell at row 2", orders[1])
	}
	if res.ColumnStates[0].Position != 0 {
		t.Errorf("final position = %v, want 0 (fully exited)", res.ColumnStates[0].Position)
	}
}

// TestS4StopLossTrailingTrigger mirrors the trailing-stop scenario: entry at
// i=0, sl_stop=0.1 trailing, tp_stop=0.2. The trailing reference ratchets to
// the running high (12 at i=2), so the stop level sits at 10.8; it is
// crossed when close drops to 10 at i=4.
func TestS4StopLossTrailingTrigger(t *testing.T) {
	grid := NewGridFromBars(bars(10, 11, 12, 11, 10, 9))
	entries := [][]bool{{true}, {false}, {false}, {false}, {false}, {false}}
	exits := make([][]bool, 6)
	for i := range exits {
		exits[i] = []bool{false}
	}
	input := SignalsInput{
		SimInput:  SimInput{Grid: grid, InitCash: []float64{1000}},
		LongEntry: entries,
		LongExit:  exits,
		Size:      NewScalarFlex(10),
		SizeType:  models.SizeAmount,
		Direction: models.LongOnly,
		UseStops:  true,
		SLStop:    NewScalarFlex(0.1),
		SLTrail:   true,
		TPStop:    NewScalarFlex(0.2),
		ExitMode:  StopExitAtClose,
	}
	res, err := SimulateFromSignals(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	orders := res.Records.Orders(0)
	if len(orders) != 2 {
		t.Fatalf("expected entry + stop-exit fills, got %d: %+v", len(orders), orders)
	}
	if orders[0].Row != 0 || orders[0].Size != 10 {
		t.Errorf("entry fill = %+v, want row 0 size 10", orders[0])
	}
	if orders[1].Row != 4 {
		t.Errorf("stop-exit fired at row %d, want row 4", orders[1].Row)
	}
	if res.ColumnStates[0].Position != 0 {
		t.Errorf("final position = %v, want 0 after stop exit", res.ColumnStates[0].Position)
	}
}
