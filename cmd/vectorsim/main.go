// VectorSim — vectorized portfolio backtesting simulation engine.
//
// Main CLI entrypoint using the cobra command framework.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kestrelquant/vectorsim/api"
	"github.com/kestrelquant/vectorsim/internal/config"
	"github.com/kestrelquant/vectorsim/internal/dataload"
	"github.com/kestrelquant/vectorsim/internal/engine"
	"github.com/kestrelquant/vectorsim/internal/metrics"
	"github.com/kestrelquant/vectorsim/internal/strategies"
	"github.com/kestrelquant/vectorsim/pkg/models"
)

// Build-time variables (set via -ldflags).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Global config
var cfg *config.Config

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "vectorsim",
	Short: "VectorSim — a vectorized portfolio backtesting simulation engine",
	Long: `VectorSim
A Go engine for simulating order execution and portfolio state across a
price grid, the way vectorbt's Portfolio.from_signals/from_orders drivers
do, built around an append-only order/log record stream.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		configFile, _ := cmd.Flags().GetString("config")
		if configFile != "" {
			cfg, err = config.LoadFromFile(configFile)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if level, _ := cmd.Flags().GetString("log-level"); level != "" {
			cfg.Logging.Level = level
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: vectorsim.yaml searched in ./config, ~/.vectorsim, /etc/vectorsim)")
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(demoCmd)
}

// --- Version Command ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("VectorSim %s\n", version)
		fmt.Printf("  commit:  %s\n", commit)
		fmt.Printf("  built:   %s\n", date)
	},
}

// --- Run Command ---

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a single-column backtest against a price grid",
	Long: `Load a price grid from --data and simulate one strategy's signals
through it, printing a trade-stats / CAGR / Sharpe / Sortino / drawdown
summary.

Currently only the signals driver is wired to a named strategy; the
orders/orderfunc drivers are exercised directly by internal/sim's test
suite and are not yet exposed as a CLI surface.

Examples:
  vectorsim run --strategy sma_crossover --data prices.csv
  vectorsim run --strategy rsi_mean_reversion --data prices.csv --capital 500000`,
	RunE: func(cmd *cobra.Command, args []string) error {
		strategyName, _ := cmd.Flags().GetString("strategy")
		dataPath, _ := cmd.Flags().GetString("data")
		driver, _ := cmd.Flags().GetString("driver")
		capital, _ := cmd.Flags().GetFloat64("capital")
		outputJSON, _ := cmd.Flags().GetBool("json")

		if strategyName == "" || dataPath == "" {
			return fmt.Errorf("--strategy and --data are required")
		}
		if driver != "" && driver != "signals" {
			return fmt.Errorf("driver %q not yet exposed via the CLI; only \"signals\" is wired", driver)
		}

		fmt.Printf("Running %s against %s\n", strategyName, dataPath)
		fmt.Println()

		bars, err := dataload.BarsFromCSV(dataPath)
		if err != nil {
			return fmt.Errorf("failed to load data: %w", err)
		}
		if len(bars) < 2 {
			return fmt.Errorf("insufficient data: got %d bars, need at least 2", len(bars))
		}

		runCfg := *cfg
		if capital > 0 {
			runCfg.Sim.InitCash = capital
		}

		result, err := engine.RunSignalStrategy(bars, strategyName, &runCfg)
		if err != nil {
			return fmt.Errorf("simulation failed: %w", err)
		}

		if outputJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(result.Summary)
		}

		printSummary(strategyName, result.Summary)
		return nil
	},
}

func init() {
	runCmd.Flags().StringP("strategy", "s", "", "strategy name (required)")
	runCmd.Flags().StringP("data", "d", "", "CSV price history path (required)")
	runCmd.Flags().String("driver", "signals", "simulation driver (only \"signals\" is CLI-wired)")
	runCmd.Flags().Float64("capital", 0, "initial capital (default from config)")
	runCmd.Flags().Bool("json", false, "output result as JSON")
}

// --- Serve Command ---

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start the HTTP REST/WebSocket API server for programmatic access.

The server exposes endpoints for running simulations, inspecting runs,
streaming order/log records, and reading the resolved configuration.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		port, _ := cmd.Flags().GetInt("port")
		if port == 0 {
			port = cfg.API.Port
		}
		host, _ := cmd.Flags().GetString("host")
		if host == "" {
			host = cfg.API.Host
		}

		srv, err := api.NewServer(cfg)
		if err != nil {
			return fmt.Errorf("failed to create API server: %w", err)
		}

		addr := fmt.Sprintf("%s:%d", host, port)
		fmt.Printf("Starting VectorSim server on %s\n", addr)
		fmt.Printf("   API:  http://%s/api/v1\n", resolveDisplayAddr(host, port))
		fmt.Println()
		fmt.Println("   Endpoints:")
		fmt.Println("     POST /api/v1/simulate                — run a strategy")
		fmt.Println("     GET  /api/v1/simulate/:id             — run status + summary")
		fmt.Println("     GET  /api/v1/simulate/:id/records     — paginated order/log records")
		fmt.Println("     WS   /api/v1/simulate/:id/stream      — replay a run's records")
		fmt.Println("     WS   /api/v1/events                   — run-completion notifications")
		fmt.Println("     GET  /api/v1/config                   — resolved configuration")
		fmt.Println("     GET  /api/v1/config/keys              — data-source key status")
		fmt.Println()
		fmt.Println("   Press Ctrl+C to stop")

		return srv.ListenAndServe(addr)
	},
}

func resolveDisplayAddr(host string, port int) string {
	if host == "" || host == "0.0.0.0" {
		return fmt.Sprintf("localhost:%d", port)
	}
	return fmt.Sprintf("%s:%d", host, port)
}

func init() {
	serveCmd.Flags().IntP("port", "p", 0, "server port (default from config)")
	serveCmd.Flags().String("host", "", "server host (default from config)")
}

// --- Demo Command ---

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run all built-in strategies against bundled sample data",
	Long:  "Runs every strategy in internal/strategies against --data and prints a comparison table.",
	RunE: func(cmd *cobra.Command, args []string) error {
		dataPath, _ := cmd.Flags().GetString("data")
		if dataPath == "" {
			dataPath = "testdata/sample.csv"
		}

		bars, err := dataload.BarsFromCSV(dataPath)
		if err != nil {
			return fmt.Errorf("failed to load sample data: %w", err)
		}
		if len(bars) < 2 {
			return fmt.Errorf("insufficient data: got %d bars, need at least 2", len(bars))
		}

		builtins := strategies.BuiltinStrategies()
		names := make([]string, len(builtins))
		for i, s := range builtins {
			names[i] = s.Name
		}

		fmt.Printf("Comparing %d built-in strategies over %d bars\n\n", len(names), len(bars))
		fmt.Printf("  %-22s %10s %10s %8s %8s %8s\n", "STRATEGY", "RETURN%", "CAGR%", "SHARPE", "SORTINO", "MAXDD%")
		fmt.Println("  " + strings.Repeat("─", 72))

		results, err := engine.RunManyStrategies(context.Background(), bars, names, cfg)
		if err != nil {
			return fmt.Errorf("comparison failed: %w", err)
		}
		for _, r := range results {
			if r.Err != nil {
				fmt.Printf("  %-22s  error: %s\n", r.Strategy, r.Err)
				continue
			}
			s := r.Result.Summary
			fmt.Printf("  %-22s %10.2f %10.2f %8.2f %8.2f %8.2f\n",
				r.Strategy, s.TotalReturnPct, s.CAGR, s.SharpeRatio, s.SortinoRatio, s.MaxDrawdownPct)
		}
		return nil
	},
}

func init() {
	demoCmd.Flags().StringP("data", "d", "", "CSV price history path (default: testdata/sample.csv)")
}

// ============================================================
// Helper functions
// ============================================================

func printSummary(strategyName string, s *models.BacktestSummary) {
	fmt.Println(strings.Repeat("─", 45))
	fmt.Println("  Backtest Results")
	fmt.Println(strings.Repeat("─", 45))
	fmt.Printf("  Strategy:       %s\n", strategyName)
	fmt.Printf("  Period:         %s to %s\n",
		s.From.Format("2006-01-02"), s.To.Format("2006-01-02"))
	fmt.Printf("  Initial:        %.2f\n", s.InitialCapital)
	fmt.Printf("  Final:          %.2f\n", s.FinalValue)
	fmt.Println()
	fmt.Printf("  Total Return:   %.2f%%\n", s.TotalReturnPct)
	fmt.Printf("  Market Return:  %.2f%%\n", s.MarketReturnPct)
	fmt.Printf("  CAGR:           %.2f%%\n", s.CAGR)
	fmt.Printf("  Sharpe Ratio:   %.2f\n", s.SharpeRatio)
	fmt.Printf("  Sortino Ratio:  %.2f\n", s.SortinoRatio)
	fmt.Printf("  Max Drawdown:   %.2f%%\n", s.MaxDrawdownPct)
	fmt.Println()
	fmt.Printf("  Total Trades:   %d\n", s.TotalTrades)
	fmt.Printf("  Win Rate:       %.2f%%\n", s.WinRate)
	fmt.Printf("  Profit Factor:  %.2f\n", s.ProfitFactor)
	fmt.Printf("  Avg Win/Loss:   %.2f / %.2f\n", s.AvgWin, s.AvgLoss)
	fmt.Printf("  Max Consec W/L: %d / %d\n", metrics.MaxConsecutiveWins(s.Trades), metrics.MaxConsecutiveLosses(s.Trades))
	fmt.Println(strings.Repeat("─", 45))
}
