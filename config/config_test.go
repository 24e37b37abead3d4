package config

import (
	"os"
	"path/filepath"
	"testing"
)

func validConfig() EngineConfig {
	cfg := Defaults()
	cfg.Strategy = "ema_cross"
	return cfg
}

func TestValidateSuccess(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestValidateFailsOnMissingStrategy(t *testing.T) {
	cfg := validConfig()
	cfg.Strategy = " "
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for empty strategy")
	}
}

func TestValidateFailsOnBadInterval(t *testing.T) {
	cfg := validConfig()
	cfg.BarInterval = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for zero bar_interval")
	}
}

func TestValidateFailsOnFee(t *testing.T) {
	cfg := validConfig()
	cfg.FeePct = 0.5
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for fee_pct")
	}
}

func TestValidateFailsOnRiskWithoutStop(t *testing.T) {
	cfg := validConfig()
	cfg.MaxRisk = 0.01
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for max_risk without stop_loss_pct")
	}
	cfg.StopLossPct = 0.02
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestLoadAppliesDefaultsAndFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run.yaml")
	body := "strategy: iching\nlookback: 4\nparams:\n  ma1_period: 7\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Strategy != "iching" || cfg.Lookback != 4 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.BarInterval != 86400 || cfg.Workers != 4 {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
	if cfg.Params["ma1_period"] != 7 {
		t.Fatalf("param override missing: %+v", cfg.Params)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
