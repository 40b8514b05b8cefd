package config

import (
	"os"
	"path/filepath"
	"testing"
)

// ── Load / Defaults ──

func TestLoadReturnsDefaults(t *testing.T) {
	os.Unsetenv("VECTORSIM_DATA_API_KEY")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Sim.InitCashMode != "fixed" {
		t.Errorf("Sim.InitCashMode: got %q, want %q", cfg.Sim.InitCashMode, "fixed")
	}
	if cfg.Sim.InitCash != 100000.0 {
		t.Errorf("Sim.InitCash: got %f, want 100000", cfg.Sim.InitCash)
	}
	if cfg.Sim.CallSeqMode != "default" {
		t.Errorf("Sim.CallSeqMode: got %q, want %q", cfg.Sim.CallSeqMode, "default")
	}
	if cfg.Sim.Freq != "1D" {
		t.Errorf("Sim.Freq: got %q, want %q", cfg.Sim.Freq, "1D")
	}
	if cfg.Sim.RowWise {
		t.Error("Sim.RowWise should default to false")
	}

	if cfg.Fee.Kind != "percent_plus_fixed" {
		t.Errorf("Fee.Kind: got %q, want %q", cfg.Fee.Kind, "percent_plus_fixed")
	}
	if cfg.Fee.Rate != 0.001 {
		t.Errorf("Fee.Rate: got %f, want 0.001", cfg.Fee.Rate)
	}

	if cfg.Signal.UponOppositeEntry != "reverse" {
		t.Errorf("Signal.UponOppositeEntry: got %q, want %q", cfg.Signal.UponOppositeEntry, "reverse")
	}
	if cfg.Signal.AccumulationMode != "disabled" {
		t.Errorf("Signal.AccumulationMode: got %q, want %q", cfg.Signal.AccumulationMode, "disabled")
	}
	if cfg.Signal.SignalPriority != "stop_wins" {
		t.Errorf("Signal.SignalPriority: got %q, want %q", cfg.Signal.SignalPriority, "stop_wins")
	}

	if cfg.API.Host != "0.0.0.0" {
		t.Errorf("API.Host: got %q, want %q", cfg.API.Host, "0.0.0.0")
	}
	if cfg.API.Port != 8090 {
		t.Errorf("API.Port: got %d, want 8090", cfg.API.Port)
	}
	if cfg.API.WSPingInterval != 30 {
		t.Errorf("API.WSPingInterval: got %d, want 30", cfg.API.WSPingInterval)
	}

	if cfg.Data.DefaultLoader != "csv" {
		t.Errorf("Data.DefaultLoader: got %q, want %q", cfg.Data.DefaultLoader, "csv")
	}
	if cfg.Data.CacheTTL != 3600 {
		t.Errorf("Data.CacheTTL: got %d, want 3600", cfg.Data.CacheTTL)
	}

	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level: got %q, want %q", cfg.Logging.Level, "info")
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Logging.Format: got %q, want %q", cfg.Logging.Format, "text")
	}
	if cfg.Logging.Output != "stdout" {
		t.Errorf("Logging.Output: got %q, want %q", cfg.Logging.Output, "stdout")
	}
}

func TestDefaultMatchesLoad(t *testing.T) {
	os.Unsetenv("VECTORSIM_DATA_API_KEY")
	loaded, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	def := Default()
	if def.Sim.InitCash != loaded.Sim.InitCash || def.Fee.Rate != loaded.Fee.Rate {
		t.Errorf("Default() diverged from Load() defaults: %+v vs %+v", def, loaded)
	}
}

// ── LoadFromFile ──

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "test_vectorsim.yaml")
	content := []byte(`
sim:
  init_cash_mode: "auto"
  init_cash: 500000
  call_seq_mode: "auto"
  seed: 7
fee:
  kind: "tiered"
  rate: 0.0005
signal:
  upon_opposite_entry: "close"
  accumulation_mode: "both"
api:
  port: 9191
logging:
  level: "debug"
  format: "json"
`)
	if err := os.WriteFile(cfgPath, content, 0644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}

	os.Unsetenv("VECTORSIM_DATA_API_KEY")

	cfg, err := LoadFromFile(cfgPath)
	if err != nil {
		t.Fatalf("LoadFromFile() error: %v", err)
	}
	if cfg.Sim.InitCashMode != "auto" {
		t.Errorf("Sim.InitCashMode: got %q, want %q", cfg.Sim.InitCashMode, "auto")
	}
	if cfg.Sim.InitCash != 500000 {
		t.Errorf("Sim.InitCash: got %f, want 500000", cfg.Sim.InitCash)
	}
	if cfg.Sim.Seed != 7 {
		t.Errorf("Sim.Seed: got %d, want 7", cfg.Sim.Seed)
	}
	if cfg.Fee.Kind != "tiered" {
		t.Errorf("Fee.Kind: got %q, want %q", cfg.Fee.Kind, "tiered")
	}
	if cfg.Signal.AccumulationMode != "both" {
		t.Errorf("Signal.AccumulationMode: got %q, want %q", cfg.Signal.AccumulationMode, "both")
	}
	if cfg.API.Port != 9191 {
		t.Errorf("API.Port: got %d, want 9191", cfg.API.Port)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level: got %q, want %q", cfg.Logging.Level, "debug")
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Logging.Format: got %q, want %q", cfg.Logging.Format, "json")
	}
}

func TestLoadFromFileNotFound(t *testing.T) {
	_, err := LoadFromFile("/nonexistent/path/vectorsim.yaml")
	if err == nil {
		t.Error("LoadFromFile() with nonexistent path should return error")
	}
}

// ── overrideFromEnv ──

func TestOverrideFromEnv(t *testing.T) {
	cfg := &Config{}

	os.Setenv("VECTORSIM_DATA_API_KEY", "data-source-key-123456")
	defer os.Unsetenv("VECTORSIM_DATA_API_KEY")

	overrideFromEnv(cfg)

	if cfg.Data.APIKey != "data-source-key-123456" {
		t.Errorf("Data.APIKey: got %q", cfg.Data.APIKey)
	}
}

func TestOverrideFromEnvNoEnvSet(t *testing.T) {
	os.Unsetenv("VECTORSIM_DATA_API_KEY")

	cfg := &Config{
		Data: DataConfig{APIKey: "from-config"},
	}
	overrideFromEnv(cfg)

	if cfg.Data.APIKey != "from-config" {
		t.Errorf("Data.APIKey should stay as 'from-config' when env is unset, got %q", cfg.Data.APIKey)
	}
}

// ── SaveToFile / round trip ──

func TestSaveAndLoadRoundTrip(t *testing.T) {
	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "roundtrip.yaml")

	cfg := Default()
	cfg.API.Port = 7777
	cfg.Fee.Rate = 0.002

	if err := SaveToFile(cfg, cfgPath); err != nil {
		t.Fatalf("SaveToFile() error: %v", err)
	}

	loaded, err := LoadFromFile(cfgPath)
	if err != nil {
		t.Fatalf("LoadFromFile() error: %v", err)
	}
	if loaded.API.Port != 7777 {
		t.Errorf("API.Port round trip: got %d, want 7777", loaded.API.Port)
	}
	if loaded.Fee.Rate != 0.002 {
		t.Errorf("Fee.Rate round trip: got %f, want 0.002", loaded.Fee.Rate)
	}
}

// ── maskKey ──

func TestMaskKeyShort(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", "***"},
		{"a", "***"},
		{"abcd", "***"},
		{"12345678", "***"},
	}
	for _, tc := range tests {
		got := maskKey(tc.input)
		if got != tc.want {
			t.Errorf("maskKey(%q): got %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestMaskKeyLong(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"123456789", "123...789"},
		{"sk-ant-1234567890", "sk-...890"},
	}
	for _, tc := range tests {
		got := maskKey(tc.input)
		if got != tc.want {
			t.Errorf("maskKey(%q): got %q, want %q", tc.input, got, tc.want)
		}
	}
}

// ── CheckAPIKeys ──

func TestCheckAPIKeysReportsUnset(t *testing.T) {
	os.Unsetenv("VECTORSIM_DATA_API_KEY")
	cfg := Default()
	statuses := CheckAPIKeys(cfg)
	if len(statuses) != 1 {
		t.Fatalf("expected 1 key status, got %d", len(statuses))
	}
	if statuses[0].IsSet {
		t.Error("Data API key should be unset by default")
	}
	if statuses[0].Source != KeySourceNone {
		t.Errorf("Source: got %q, want %q", statuses[0].Source, KeySourceNone)
	}
}

func TestCheckAPIKeysReportsConfigSource(t *testing.T) {
	os.Unsetenv("VECTORSIM_DATA_API_KEY")
	cfg := Default()
	cfg.Data.APIKey = "configured-key-123456"
	statuses := CheckAPIKeys(cfg)
	if !statuses[0].IsSet {
		t.Error("Data API key should be set")
	}
	if statuses[0].Source != KeySourceConfig {
		t.Errorf("Source: got %q, want %q", statuses[0].Source, KeySourceConfig)
	}
	if statuses[0].Masked == "" {
		t.Error("expected a masked representation")
	}
}
