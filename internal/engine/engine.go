// Package engine wires a named strategy's signal generators through the
// vectorized kernel (internal/sim) and the derived-series/metrics pipeline
// (internal/sim/derive, internal/metrics) into a single BacktestSummary —
// the glue the teacher's imperative backtest.Engine.Run used to provide,
// rebuilt around SimulateFromSignals instead of a per-bar strategy callback.
package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kestrelquant/vectorsim/internal/config"
	"github.com/kestrelquant/vectorsim/internal/fees"
	"github.com/kestrelquant/vectorsim/internal/metrics"
	"github.com/kestrelquant/vectorsim/internal/runner"
	"github.com/kestrelquant/vectorsim/internal/sim"
	"github.com/kestrelquant/vectorsim/internal/sim/derive"
	"github.com/kestrelquant/vectorsim/internal/strategies"
	"github.com/kestrelquant/vectorsim/pkg/models"
)

// Result bundles the raw simulation output with its derived summary so a
// caller can inspect either the record-level or statistics-level view.
type Result struct {
	Sim     *sim.SimResult
	Summary *models.BacktestSummary
}

// FindStrategy resolves a strategy by name (case/space/hyphen-insensitive,
// substring match), mirroring the teacher's api.findStrategy lookup.
func FindStrategy(name string) (strategies.Strategy, bool) {
	key := normalizeStrategyName(name)
	for _, s := range strategies.BuiltinStrategies() {
		n := normalizeStrategyName(s.Name)
		if n == key || strings.Contains(n, key) {
			return s, true
		}
	}
	return strategies.Strategy{}, false
}

func normalizeStrategyName(name string) string {
	name = strings.ToLower(name)
	name = strings.ReplaceAll(name, "-", "_")
	name = strings.ReplaceAll(name, " ", "_")
	return name
}

// RunSignalStrategy runs one strategy's signal generator over bars through
// SimulateFromSignals against a single ungrouped column, then derives the
// equity curve, trade list, and performance metrics that make up a
// BacktestSummary.
func RunSignalStrategy(bars []models.OHLCV, strategyName string, cfg *config.Config) (*Result, error) {
	strat, ok := FindStrategy(strategyName)
	if !ok {
		return nil, fmt.Errorf("engine: unknown strategy %q", strategyName)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("engine: no bars supplied")
	}

	grid, input, grouping, initCash := buildSignalsInput(bars, strat, cfg)
	res, err := sim.SimulateFromSignals(input)
	if err != nil {
		return nil, err
	}

	summary := summarize(res, grid, bars, grouping, initCash)
	return &Result{Sim: res, Summary: summary}, nil
}

// NamedResult pairs a strategy name with its RunSignalStrategy outcome (or
// the error that prevented it), the shape runner.RunMany's per-request
// results take once engine has summarized them.
type NamedResult struct {
	Strategy string
	Result   *Result
	Err      error
}

// RunManyStrategies runs every named strategy against the same bars
// concurrently through internal/runner, mirroring the teacher's aggregator
// concurrency shape for independent fetches — here, independent single-
// column simulations instead of independent data sources.
func RunManyStrategies(ctx context.Context, bars []models.OHLCV, strategyNames []string, cfg *config.Config) ([]NamedResult, error) {
	if len(bars) == 0 {
		return nil, fmt.Errorf("engine: no bars supplied")
	}

	grids := make([]sim.Grid, len(strategyNames))
	initCashes := make([][]float64, len(strategyNames))
	requests := make([]runner.SimRequest, len(strategyNames))
	lookupErrs := make([]error, len(strategyNames))

	for i, name := range strategyNames {
		strat, ok := FindStrategy(name)
		if !ok {
			lookupErrs[i] = fmt.Errorf("engine: unknown strategy %q", name)
			requests[i] = runner.SimRequest{Label: name, Grouping: sim.Ungrouped(1), Run: func(context.Context) (*sim.SimResult, error) {
				return nil, lookupErrs[i]
			}}
			continue
		}
		grid, input, grouping, initCash := buildSignalsInput(bars, strat, cfg)
		grids[i] = grid
		initCashes[i] = initCash
		requests[i] = runner.SimRequest{
			Label:    strat.Name,
			Grouping: grouping,
			Run: func(context.Context) (*sim.SimResult, error) {
				return sim.SimulateFromSignals(input)
			},
		}
	}

	raw, err := runner.RunMany(ctx, requests)
	if err != nil {
		return nil, err
	}

	out := make([]NamedResult, len(raw))
	grouping := sim.Ungrouped(1)
	for i, r := range raw {
		out[i] = NamedResult{Strategy: strategyNames[i], Err: r.Err}
		if r.Err != nil || r.SimResult == nil {
			continue
		}
		summary := summarize(r.SimResult, grids[i], bars, grouping, initCashes[i])
		out[i].Result = &Result{Sim: r.SimResult, Summary: summary}
	}
	return out, nil
}

// buildSignalsInput translates a strategy's generated signals and the
// resolved config into the kernel's SignalsInput, the shared construction
// path for both RunSignalStrategy and RunManyStrategies.
func buildSignalsInput(bars []models.OHLCV, strat strategies.Strategy, cfg *config.Config) (sim.Grid, sim.SignalsInput, sim.Grouping, []float64) {
	grid := sim.NewGridFromBars(bars)
	longEntry, longExit, shortEntry, shortExit := strat.Generate(bars)
	grouping := sim.Ungrouped(1)
	initCash := []float64{cfg.Sim.InitCash}

	input := sim.SignalsInput{
		SimInput: sim.SimInput{
			Grid:      grid,
			Grouping:  grouping,
			InitCash:  initCash,
			MaxOrders: cfg.Sim.MaxOrders,
			MaxLogs:   cfg.Sim.MaxLogs,
			Tol:       sim.Tolerance{RelTol: cfg.Sim.TolRel, AbsTol: cfg.Sim.TolAbs},
			Seed:      cfg.Sim.Seed,
			Fees:      resolveFeeSchedule(cfg.Fee),
		},
		LongEntry:  wrapColumn(longEntry),
		LongExit:   wrapColumn(longExit),
		ShortEntry: wrapColumn(shortEntry),
		ShortExit:  wrapColumn(shortExit),
		Size:       sim.NewScalarFlex(100),
		SizeType:   models.SizePercent,
		Direction:  models.Both,
		Rules:      resolveSignalRules(cfg.Signal),
		UseStops:   cfg.Signal.SLStop > 0 || cfg.Signal.TPStop > 0,
		SLStop:     sim.NewScalarFlex(cfg.Signal.SLStop),
		SLTrail:    cfg.Signal.SLTrail,
		TPStop:     sim.NewScalarFlex(cfg.Signal.TPStop),
		Priority:   resolveSignalPriority(cfg.Signal.SignalPriority),
	}
	return grid, input, grouping, initCash
}

func wrapColumn(sig []bool) [][]bool {
	out := make([][]bool, len(sig))
	for i, v := range sig {
		out[i] = []bool{v}
	}
	return out
}

func resolveFeeSchedule(cfg config.FeeConfig) fees.Schedule {
	if strings.EqualFold(cfg.Kind, "tiered") {
		return fees.TieredSchedule{
			Tiers: []fees.Tier{{Ceiling: 1e18, Rate: cfg.Rate}},
			Fixed: cfg.Fixed,
		}
	}
	return fees.PercentPlusFixed{Rate: cfg.Rate, Fixed: cfg.Fixed, Surcharge: cfg.Surcharge}
}

func resolveSignalRules(cfg config.SignalConfig) sim.SignalRules {
	return sim.SignalRules{
		UponLongConflict:  resolveConflictMode(cfg.UponLongConflict),
		UponShortConflict: resolveConflictMode(cfg.UponShortConflict),
		UponDirConflict:   resolveConflictMode(cfg.UponDirConflict),
		UponOppositeEntry: resolveOppositeMode(cfg.UponOppositeEntry),
		Accumulation:      resolveAccumulationMode(cfg.AccumulationMode),
	}
}

func resolveConflictMode(s string) sim.ConflictMode {
	switch strings.ToLower(s) {
	case "entry":
		return sim.ConflictEntry
	case "exit":
		return sim.ConflictExit
	case "adjacent":
		return sim.ConflictAdjacent
	case "opposite":
		return sim.ConflictOpposite
	default:
		return sim.ConflictIgnore
	}
}

func resolveOppositeMode(s string) sim.OppositeEntryMode {
	switch strings.ToLower(s) {
	case "close":
		return sim.OppositeClose
	case "close_reduce":
		return sim.OppositeCloseReduce
	case "reverse":
		return sim.OppositeReverse
	case "reverse_reduce":
		return sim.OppositeReverseReduce
	default:
		return sim.OppositeIgnore
	}
}

func resolveAccumulationMode(s string) sim.AccumulationMode {
	switch strings.ToLower(s) {
	case "add_only":
		return sim.AccumulationAddOnly
	case "remove_only":
		return sim.AccumulationRemoveOnly
	case "both":
		return sim.AccumulationBoth
	default:
		return sim.AccumulationDisabled
	}
}

func resolveSignalPriority(s string) sim.SignalPriority {
	if strings.EqualFold(s, "user_wins") {
		return sim.PriorityUserWins
	}
	return sim.PriorityStopWins
}

// summarize turns a single-wallet SimResult into a BacktestSummary via the
// derive package's asset-flow/cash/value pipeline plus internal/metrics.
func summarize(res *sim.SimResult, grid sim.Grid, bars []models.OHLCV, grouping sim.Grouping, initCash []float64) *models.BacktestSummary {
	closeGrid := derive.CloseGrid(grid)
	assetFlow := derive.AssetFlow(res, nil)
	assets := derive.Assets(assetFlow, nil)
	cashFlow := derive.CashFlow(res, nil)
	cash := derive.Cash(cashFlow, grouping, initCash, nil)
	assetValue := derive.AssetValue(assets, func(row, col int) float64 { return closeGrid[row][col] })
	value := derive.Value(cash, assetValue, grouping)

	curve := make([]models.EquityPoint, len(bars))
	for i, b := range bars {
		curve[i] = models.EquityPoint{Date: b.Timestamp, Value: value[i][0]}
	}

	trades := metrics.TradesFromOrders(res.Records.AllOrders(), func(row int) time.Time { return bars[row].Timestamp })

	marketValue := derive.MarketValue(closeGrid, initCash[0])
	marketReturnPct := 0.0
	if len(marketValue) > 0 && marketValue[0] != 0 {
		marketReturnPct = (marketValue[len(marketValue)-1]/marketValue[0] - 1) * 100
	}

	finalValue := initCash[0]
	if len(curve) > 0 {
		finalValue = curve[len(curve)-1].Value
	}

	summary := &models.BacktestSummary{
		From:            bars[0].Timestamp,
		To:              bars[len(bars)-1].Timestamp,
		InitialCapital:  initCash[0],
		FinalValue:      finalValue,
		EquityCurve:     curve,
		Trades:          trades,
		MarketReturnPct: marketReturnPct,
	}
	if summary.InitialCapital > 0 {
		summary.TotalReturnPct = (summary.FinalValue/summary.InitialCapital - 1) * 100
	}

	metrics.Compute(summary, 0.065)
	return summary
}
