package metrics

import (
	"testing"
	"time"

	"github.com/kestrelquant/vectorsim/pkg/models"
)

func day(n int) time.Time {
	return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func TestTradesFromOrdersSimpleRoundTrip(t *testing.T) {
	orders := []models.OrderRecord{
		{Row: 0, Size: 10, Price: 100, Fees: 1, Side: models.Buy},
		{Row: 5, Size: -10, Price: 110, Fees: 1, Side: models.Sell},
	}
	trades := TradesFromOrders(orders, day)
	if len(trades) != 1 {
		t.Fatalf("expected 1 trade, got %d", len(trades))
	}
	tr := trades[0]
	if tr.EntryPrice != 100 || tr.ExitPrice != 110 || tr.Size != 10 {
		t.Errorf("trade = %+v, want entry 100 exit 110 size 10", tr)
	}
	wantPnL := (110-100)*10 - 2.0
	if tr.PnL != wantPnL {
		t.Errorf("PnL = %v, want %v", tr.PnL, wantPnL)
	}
}

func TestTradesFromOrdersPartialCloses(t *testing.T) {
	orders := []models.OrderRecord{
		{Row: 0, Size: 10, Price: 100, Side: models.Buy},
		{Row: 1, Size: -4, Price: 105, Side: models.Sell},
		{Row: 2, Size: -6, Price: 115, Side: models.Sell},
	}
	trades := TradesFromOrders(orders, day)
	if len(trades) != 1 {
		t.Fatalf("expected 1 trade from two partial exits, got %d", len(trades))
	}
	wantExit := (4*105.0 + 6*115.0) / 10
	if trades[0].ExitPrice != wantExit {
		t.Errorf("exit price = %v, want %v", trades[0].ExitPrice, wantExit)
	}
}

func TestTradesFromOrdersReversal(t *testing.T) {
	// A direction-Both reversal expressed as one oversized sell order should
	// close the long leg and open a new short leg.
	orders := []models.OrderRecord{
		{Row: 0, Size: 10, Price: 100, Side: models.Buy},
		{Row: 1, Size: -15, Price: 90, Side: models.Sell},
	}
	trades := TradesFromOrders(orders, day)
	if len(trades) != 1 {
		t.Fatalf("expected exactly one closed trade (the reversal leaves one open), got %d", len(trades))
	}
	if trades[0].Side != models.Buy || trades[0].Size != 10 {
		t.Errorf("closed leg = %+v, want the original 10-unit long", trades[0])
	}
}

func TestComputeDrawdownAndCAGR(t *testing.T) {
	r := &models.BacktestSummary{
		From:           day(0),
		To:             day(365),
		InitialCapital: 1000,
		FinalValue:     1100,
		EquityCurve: []models.EquityPoint{
			{Date: day(0), Value: 1000},
			{Date: day(1), Value: 1200},
			{Date: day(2), Value: 900},
			{Date: day(3), Value: 1100},
		},
	}
	Compute(r, 0)
	if r.MaxDrawdown != 300 {
		t.Errorf("MaxDrawdown = %v, want 300", r.MaxDrawdown)
	}
	if r.CAGR <= 9 || r.CAGR >= 11 {
		t.Errorf("CAGR = %v, want ~10 (1000 -> 1100 over ~1yr)", r.CAGR)
	}
}

func TestComputeTradeStats(t *testing.T) {
	r := &models.BacktestSummary{
		Trades: []models.BacktestTrade{
			{PnL: 50},
			{PnL: -20},
			{PnL: 30},
		},
	}
	Compute(r, 0)
	if r.TotalTrades != 3 || r.WinningTrades != 2 || r.LosingTrades != 1 {
		t.Fatalf("trade stats = %+v", r)
	}
	if r.ProfitFactor != 80.0/20.0 {
		t.Errorf("ProfitFactor = %v, want 4", r.ProfitFactor)
	}
}
