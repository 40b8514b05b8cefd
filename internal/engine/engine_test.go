package engine

import (
	"context"
	"testing"
	"time"

	"github.com/kestrelquant/vectorsim/internal/config"
	"github.com/kestrelquant/vectorsim/pkg/models"
)

func testBars(closes ...float64) []models.OHLCV {
	bars := make([]models.OHLCV, len(closes))
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, c := range closes {
		bars[i] = models.OHLCV{
			Timestamp: base.AddDate(0, 0, i),
			Open:      c, High: c, Low: c, Close: c,
		}
	}
	return bars
}

func TestFindStrategyMatchesByNormalizedName(t *testing.T) {
	if _, ok := FindStrategy("sma_crossover"); !ok {
		t.Error("expected sma_crossover to resolve to SMA Crossover")
	}
	if _, ok := FindStrategy("SMA-Crossover"); !ok {
		t.Error("expected hyphenated name to resolve")
	}
	if _, ok := FindStrategy("not-a-strategy"); ok {
		t.Error("expected unknown strategy to fail resolution")
	}
}

func TestRunSignalStrategyProducesSummary(t *testing.T) {
	bars := testBars(10, 11, 12, 13, 14, 15, 14, 13, 12, 11, 10, 9, 8, 9, 10, 11, 12, 13, 14, 15,
		16, 17, 18, 19, 20, 21, 22, 23, 24, 25, 26, 27, 28, 29, 30, 31, 32, 33, 34, 35,
		36, 37, 38, 39, 40, 41, 42, 43, 44, 45, 46, 47, 48, 49, 50, 51, 52, 53, 54, 55)
	cfg := config.Default()

	result, err := RunSignalStrategy(bars, "sma_crossover", cfg)
	if err != nil {
		t.Fatalf("RunSignalStrategy() error: %v", err)
	}
	if result.Sim == nil || result.Summary == nil {
		t.Fatal("expected both a SimResult and a BacktestSummary")
	}
	if result.Summary.InitialCapital != cfg.Sim.InitCash {
		t.Errorf("InitialCapital = %v, want %v", result.Summary.InitialCapital, cfg.Sim.InitCash)
	}
	if len(result.Summary.EquityCurve) != len(bars) {
		t.Errorf("equity curve length = %d, want %d", len(result.Summary.EquityCurve), len(bars))
	}
}

func TestRunSignalStrategyUnknownStrategyErrors(t *testing.T) {
	bars := testBars(1, 2, 3)
	if _, err := RunSignalStrategy(bars, "does-not-exist", config.Default()); err == nil {
		t.Fatal("expected an error for an unknown strategy")
	}
}

func TestRunSignalStrategyNoBarsErrors(t *testing.T) {
	if _, err := RunSignalStrategy(nil, "sma_crossover", config.Default()); err == nil {
		t.Fatal("expected an error for empty bars")
	}
}

func TestRunManyStrategiesRunsEachIndependently(t *testing.T) {
	bars := testBars(10, 11, 12, 13, 14, 15, 14, 13, 12, 11, 10, 9, 8, 9, 10, 11, 12, 13, 14, 15,
		16, 17, 18, 19, 20, 21, 22, 23, 24, 25, 26, 27, 28, 29, 30, 31, 32, 33, 34, 35,
		36, 37, 38, 39, 40, 41, 42, 43, 44, 45, 46, 47, 48, 49, 50, 51, 52, 53, 54, 55)
	cfg := config.Default()

	results, err := RunManyStrategies(context.Background(), bars, []string{"sma_crossover", "rsi_mean_reversion", "not-a-strategy"}, cfg)
	if err != nil {
		t.Fatalf("RunManyStrategies() error: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	if results[0].Err != nil || results[0].Result == nil {
		t.Errorf("sma_crossover: expected a result, got err=%v", results[0].Err)
	}
	if results[1].Err != nil || results[1].Result == nil {
		t.Errorf("rsi_mean_reversion: expected a result, got err=%v", results[1].Err)
	}
	if results[2].Err == nil {
		t.Error("not-a-strategy: expected an error")
	}
}

func TestRunManyStrategiesNoBarsErrors(t *testing.T) {
	if _, err := RunManyStrategies(context.Background(), nil, []string{"sma_crossover"}, config.Default()); err == nil {
		t.Fatal("expected an error for empty bars")
	}
}
