package runner

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/kestrelquant/vectorsim/internal/sim"
	"github.com/kestrelquant/vectorsim/pkg/models"
)

func testBars(closes ...float64) []models.OHLCV {
	bars := make([]models.OHLCV, len(closes))
	for i, c := range closes {
		bars[i] = models.OHLCV{Open: c, High: c, Low: c, Close: c}
	}
	return bars
}

func buyAndHoldRequest(label string, initCash float64) SimRequest {
	grid := sim.NewGridFromBars(testBars(1, 2, 3, 4, 5))
	size := sim.NewFullFlex([][]float64{{10}, {math.NaN()}, {math.NaN()}, {math.NaN()}, {math.NaN()}})
	return SimRequest{
		Label: label,
		Run: func(ctx context.Context) (*sim.SimResult, error) {
			return sim.SimulateFromOrders(sim.OrdersInput{
				SimInput: sim.SimInput{Grid: grid, InitCash: []float64{initCash}},
				Size:     size,
				SizeType: models.SizeAmount,
			})
		},
	}
}

func TestRunManyRunsRequestsIndependently(t *testing.T) {
	requests := []SimRequest{
		buyAndHoldRequest("a", 100),
		buyAndHoldRequest("b", 30),
	}
	results, err := RunMany(context.Background(), requests)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	byLabel := map[string]Result{}
	for _, r := range results {
		byLabel[r.Label] = r
	}
	if byLabel["a"].SimResult.GroupStates[0].Cash != 90 {
		t.Errorf("request a final cash = %v, want 90", byLabel["a"].SimResult.GroupStates[0].Cash)
	}
	if byLabel["b"].SimResult.GroupStates[0].Cash != 20 {
		t.Errorf("request b final cash = %v, want 20", byLabel["b"].SimResult.GroupStates[0].Cash)
	}
}

func TestRunManyCollectsPerRequestErrors(t *testing.T) {
	boom := errors.New("boom")
	requests := []SimRequest{
		buyAndHoldRequest("ok", 100),
		{
			Label: "bad",
			Run: func(ctx context.Context) (*sim.SimResult, error) {
				return nil, boom
			},
		},
	}
	results, err := RunMany(context.Background(), requests)
	if err != nil {
		t.Fatalf("RunMany should not fail the whole batch on one request's error: %v", err)
	}
	byLabel := map[string]Result{}
	for _, r := range results {
		byLabel[r.Label] = r
	}
	if byLabel["bad"].Err != boom {
		t.Errorf("bad request error = %v, want %v", byLabel["bad"].Err, boom)
	}
	if byLabel["ok"].SimResult == nil {
		t.Error("ok request should still have produced a result")
	}
}

func TestRunManyRejectsSplitPartition(t *testing.T) {
	g := sim.NewGrouping([]int{2, 2}, true)
	requests := []SimRequest{
		{
			Label:       "split",
			Grouping:    g,
			PartitionLo: 1,
			PartitionHi: 3, // cuts group 0 (cols 0-1) from group 1 (cols 2-3)
			Run: func(ctx context.Context) (*sim.SimResult, error) {
				t.Fatal("Run should never be called for a rejected partition")
				return nil, nil
			},
		},
	}
	if _, err := RunMany(context.Background(), requests); !errors.Is(err, sim.ErrGroupSplit) {
		t.Fatalf("expected ErrGroupSplit, got %v", err)
	}
}
