// Package config handles configuration loading for VectorSim.
// It supports YAML config files with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config represents the complete application configuration.
type Config struct {
	Sim     SimConfig     `mapstructure:"sim"     yaml:"sim"     json:"sim"`
	Fee     FeeConfig     `mapstructure:"fee"     yaml:"fee"     json:"fee"`
	Signal  SignalConfig  `mapstructure:"signal"  yaml:"signal"  json:"signal"`
	API     APIConfig     `mapstructure:"api"     yaml:"api"     json:"api"`
	Data    DataConfig    `mapstructure:"data"    yaml:"data"    json:"data"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging" json:"logging"`
}

// SimConfig holds the default kernel knobs every driver falls back to when a
// request doesn't set them explicitly.
type SimConfig struct {
	TolAbs       float64 `mapstructure:"tol_abs"        yaml:"tol_abs"        json:"tol_abs"`
	TolRel       float64 `mapstructure:"tol_rel"        yaml:"tol_rel"        json:"tol_rel"`
	InitCashMode string  `mapstructure:"init_cash_mode" yaml:"init_cash_mode" json:"init_cash_mode"` // "auto", "auto_align", "fixed"
	InitCash     float64 `mapstructure:"init_cash"      yaml:"init_cash"      json:"init_cash"`
	CallSeqMode  string  `mapstructure:"call_seq_mode"  yaml:"call_seq_mode"  json:"call_seq_mode"` // "default", "reversed", "random", "auto"
	Seed         int64   `mapstructure:"seed"           yaml:"seed"           json:"seed"`
	MaxOrders    int     `mapstructure:"max_orders"     yaml:"max_orders"     json:"max_orders"`
	MaxLogs      int     `mapstructure:"max_logs"       yaml:"max_logs"       json:"max_logs"`
	Freq         string  `mapstructure:"freq"           yaml:"freq"           json:"freq"` // bar period, e.g. "1D"
	RowWise      bool    `mapstructure:"row_wise"       yaml:"row_wise"       json:"row_wise"`
}

// FeeConfig holds the default commission schedule handed to internal/fees
// when a simulation request doesn't supply its own.
type FeeConfig struct {
	Kind      string  `mapstructure:"kind"       yaml:"kind"       json:"kind"` // "tiered" selects a single-bracket TieredSchedule (no surcharge); any other value selects PercentPlusFixed. No kind selects AsymmetricSchedule.
	Rate      float64 `mapstructure:"rate"       yaml:"rate"       json:"rate"`
	Fixed     float64 `mapstructure:"fixed"      yaml:"fixed"      json:"fixed"`
	Surcharge float64 `mapstructure:"surcharge"  yaml:"surcharge"  json:"surcharge"`
}

// SignalConfig holds the default conflict-resolution, accumulation, and stop
// knobs the from-signals driver falls back to.
type SignalConfig struct {
	UponLongConflict  string  `mapstructure:"upon_long_conflict"  yaml:"upon_long_conflict"  json:"upon_long_conflict"`
	UponShortConflict string  `mapstructure:"upon_short_conflict" yaml:"upon_short_conflict" json:"upon_short_conflict"`
	UponDirConflict   string  `mapstructure:"upon_dir_conflict"   yaml:"upon_dir_conflict"   json:"upon_dir_conflict"`
	UponOppositeEntry string  `mapstructure:"upon_opposite_entry" yaml:"upon_opposite_entry" json:"upon_opposite_entry"`
	AccumulationMode  string  `mapstructure:"accumulation_mode"   yaml:"accumulation_mode"   json:"accumulation_mode"`
	SignalPriority    string  `mapstructure:"signal_priority"     yaml:"signal_priority"     json:"signal_priority"`
	SLStop            float64 `mapstructure:"sl_stop"             yaml:"sl_stop"             json:"sl_stop"`
	SLTrail           bool    `mapstructure:"sl_trail"            yaml:"sl_trail"            json:"sl_trail"`
	TPStop            float64 `mapstructure:"tp_stop"             yaml:"tp_stop"             json:"tp_stop"`
	StopEntryPrice    string  `mapstructure:"stop_entry_price"    yaml:"stop_entry_price"    json:"stop_entry_price"`
	StopExitPrice     string  `mapstructure:"stop_exit_price"     yaml:"stop_exit_price"     json:"stop_exit_price"`
}

// APIConfig holds HTTP/WS API server settings.
type APIConfig struct {
	Host           string   `mapstructure:"host"             yaml:"host"             json:"host"`
	Port           int      `mapstructure:"port"             yaml:"port"             json:"port"`
	CORSOrigins    []string `mapstructure:"cors_origins"     yaml:"cors_origins"     json:"cors_origins"`
	WSPingInterval int      `mapstructure:"ws_ping_interval" yaml:"ws_ping_interval" json:"ws_ping_interval"` // seconds
}

// DataConfig holds internal/dataload's default source and cache behavior.
type DataConfig struct {
	DefaultLoader string `mapstructure:"default_loader" yaml:"default_loader" json:"default_loader"` // "csv", "html", "feed"
	CacheTTL      int    `mapstructure:"cache_ttl"      yaml:"cache_ttl"      json:"cache_ttl"`       // seconds
	APIKey        string `mapstructure:"api_key"        yaml:"api_key"        json:"-"`                // excluded from JSON — use /config/keys
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"  json:"level"`  // "debug", "info", "warn", "error"
	Format string `mapstructure:"format" yaml:"format" json:"format"` // "text" or "json"
	Output string `mapstructure:"output" yaml:"output" json:"output"` // "stdout", "stderr", or a file path
}

// Default returns a Config populated with the same values setDefaults would
// hand to viper, for callers that want a starting point without touching
// the filesystem or environment (tests, `vectorsim demo`).
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Errorf("default config failed to unmarshal: %w", err))
	}
	return &cfg
}

// Load reads the configuration from file and environment variables.
// Config file search order:
//  1. ./config/vectorsim.yaml (project root)
//  2. ~/.vectorsim/vectorsim.yaml (home directory)
//  3. /etc/vectorsim/vectorsim.yaml (system)
//
// Environment variables override config file values.
// Format: VECTORSIM_<SECTION>_<KEY>, e.g., VECTORSIM_DATA_API_KEY
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("vectorsim")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(filepath.Join(homeDir(), ".vectorsim"))
	v.AddConfigPath("/etc/vectorsim")

	v.SetEnvPrefix("VECTORSIM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found — that's fine, use defaults + env vars.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	overrideFromEnv(&cfg)
	return &cfg, nil
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.SetEnvPrefix("VECTORSIM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	overrideFromEnv(&cfg)
	return &cfg, nil
}

// setDefaults sets sensible defaults for all config values.
func setDefaults(v *viper.Viper) {
	// Sim defaults
	v.SetDefault("sim.tol_abs", 1e-8)
	v.SetDefault("sim.tol_rel", 1e-6)
	v.SetDefault("sim.init_cash_mode", "fixed")
	v.SetDefault("sim.init_cash", 100000.0)
	v.SetDefault("sim.call_seq_mode", "default")
	v.SetDefault("sim.seed", 42)
	v.SetDefault("sim.max_orders", 0) // 0 means "grid row count"
	v.SetDefault("sim.max_logs", 0)
	v.SetDefault("sim.freq", "1D")
	v.SetDefault("sim.row_wise", false)

	// Fee defaults
	v.SetDefault("fee.kind", "percent_plus_fixed")
	v.SetDefault("fee.rate", 0.001)
	v.SetDefault("fee.fixed", 0.0)
	v.SetDefault("fee.surcharge", 0.0)

	// Signal defaults
	v.SetDefault("signal.upon_long_conflict", "ignore")
	v.SetDefault("signal.upon_short_conflict", "ignore")
	v.SetDefault("signal.upon_dir_conflict", "ignore")
	v.SetDefault("signal.upon_opposite_entry", "reverse")
	v.SetDefault("signal.accumulation_mode", "disabled")
	v.SetDefault("signal.signal_priority", "stop_wins")
	v.SetDefault("signal.sl_stop", 0.0)
	v.SetDefault("signal.sl_trail", false)
	v.SetDefault("signal.tp_stop", 0.0)
	v.SetDefault("signal.stop_entry_price", "close")
	v.SetDefault("signal.stop_exit_price", "stop_price")

	// API defaults
	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 8090)
	v.SetDefault("api.cors_origins", []string{"http://localhost:3000"})
	v.SetDefault("api.ws_ping_interval", 30)

	// Data defaults
	v.SetDefault("data.default_loader", "csv")
	v.SetDefault("data.cache_ttl", 3600)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.output", "stdout")
}

// overrideFromEnv explicitly reads sensitive keys from environment variables.
func overrideFromEnv(cfg *Config) {
	if key := os.Getenv("VECTORSIM_DATA_API_KEY"); key != "" {
		cfg.Data.APIKey = key
	}
}

// SaveToFile writes the current configuration to a YAML file.
// If path is empty, it writes to ./config/vectorsim.yaml.
func SaveToFile(cfg *Config, path string) error {
	if path == "" {
		path = filepath.Join(".", "config", "vectorsim.yaml")
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create config directory %s: %w", dir, err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", path, err)
	}
	return nil
}

// ConfigFilePath returns the path to the active config file (if any).
// Returns empty string if no config file was found.
func ConfigFilePath() string {
	v := viper.New()
	v.SetConfigName("vectorsim")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(filepath.Join(homeDir(), ".vectorsim"))
	v.AddConfigPath("/etc/vectorsim")

	if err := v.ReadInConfig(); err != nil {
		return ""
	}
	return v.ConfigFileUsed()
}

// homeDir returns the user's home directory.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
