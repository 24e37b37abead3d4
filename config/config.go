package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// EngineConfig holds the run-level settings of a replay: which strategy,
// where its parameters come from, and the paper-wallet assumptions.
type EngineConfig struct {
	Strategy string `mapstructure:"strategy"`
	Symbol   string `mapstructure:"symbol"`

	// BarInterval is the bar length in seconds; cooldown rests are
	// expressed in multiples of it.
	BarInterval int64 `mapstructure:"bar_interval"`
	// Lookback is how many historical values each snapshot series keeps.
	Lookback int `mapstructure:"lookback"`

	ParamsFile string             `mapstructure:"params_file"`
	Params     map[string]float64 `mapstructure:"params"`

	// Paper wallet
	StartEquity float64 `mapstructure:"start_equity"`
	FeePct      float64 `mapstructure:"fee_pct"`
	// MaxRisk > 0 sizes each Buy so a StopLossPct drop loses MaxRisk of
	// the balance; zero buys all-in.
	MaxRisk      float64 `mapstructure:"max_risk"`
	StopLossPct  float64 `mapstructure:"stop_loss_pct"`
	QtyPrecision int32   `mapstructure:"qty_precision"`

	LogLevel string `mapstructure:"log_level"`
	DBPath   string `mapstructure:"db_path"`
	Workers  int    `mapstructure:"workers"`
}

// Defaults returns the configuration used when a key is absent.
func Defaults() EngineConfig {
	return EngineConfig{
		Symbol:       "BTC/USDT",
		BarInterval:  86400,
		Lookback:     8,
		StartEquity:  1,
		FeePct:       0,
		QtyPrecision: 8,
		LogLevel:     "info",
		Workers:      4,
	}
}

// Load reads a YAML/TOML/JSON config file (format by extension). Any key
// can be overridden with a GOSIGNAL_ prefixed environment variable.
func Load(path string) (EngineConfig, error) {
	d := Defaults()
	v := viper.New()
	v.SetDefault("symbol", d.Symbol)
	v.SetDefault("bar_interval", d.BarInterval)
	v.SetDefault("lookback", d.Lookback)
	v.SetDefault("start_equity", d.StartEquity)
	v.SetDefault("fee_pct", d.FeePct)
	v.SetDefault("qty_precision", d.QtyPrecision)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("workers", d.Workers)
	v.SetEnvPrefix("GOSIGNAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return EngineConfig{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	var cfg EngineConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return EngineConfig{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate checks that all fields are within sensible bounds.
// It returns the first encountered error, allowing the caller to surface a
// clear configuration problem before any replay starts.
func (c *EngineConfig) Validate() error {
	if strings.TrimSpace(c.Strategy) == "" {
		return errors.New("strategy must be set")
	}
	if c.BarInterval <= 0 {
		return fmt.Errorf("bar_interval (%d) must be positive", c.BarInterval)
	}
	if c.Lookback < 2 {
		return fmt.Errorf("lookback (%d) must be at least 2", c.Lookback)
	}
	if c.StartEquity <= 0 {
		return fmt.Errorf("start_equity (%f) must be positive", c.StartEquity)
	}
	if c.FeePct < 0 || c.FeePct >= 0.1 {
		return fmt.Errorf("fee_pct (%f) must be >=0 and <0.1", c.FeePct)
	}
	if c.MaxRisk < 0 || c.MaxRisk > 1 {
		return fmt.Errorf("max_risk (%f) must be within [0, 1]", c.MaxRisk)
	}
	if c.MaxRisk > 0 && c.StopLossPct <= 0 {
		return errors.New("max_risk needs a positive stop_loss_pct")
	}
	if c.Workers <= 0 {
		return errors.New("workers must be positive")
	}
	return nil
}
