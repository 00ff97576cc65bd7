// Package config handles application configuration.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Valid fallback modes for the strategy.
const (
	FallbackORB        = "orb"
	FallbackEMA15      = "ema15_pullback"
	FallbackBestOfBoth = "best_of_both"
)

// Config defines the structure for all application configuration.
type Config struct {
	Symbol       string         `yaml:"symbol"`
	SignalTF     string         `yaml:"signal_timeframe"`
	HTFTimeframe string         `yaml:"htf_timeframe"`
	Strategy     StrategyConfig `yaml:"strategy"`
	Session      SessionConfig  `yaml:"session"`
	Database     DatabaseConfig `yaml:"database"`
	DBWriter     DBWriterConfig `yaml:"db_writer"`
	OutputCSV    string         `yaml:"output_csv"`
	LogLevel     string         `yaml:"-"` // Loaded from env or defaults
}

// StrategyConfig holds the risk and signal-detection parameters.
type StrategyConfig struct {
	RiskUSDT        float64  `yaml:"risk_usdt"`
	DailyTarget     float64  `yaml:"daily_target"`
	DailyMaxLoss    float64  `yaml:"daily_max_loss"`
	ForceOneTrade   FlexBool `yaml:"force_one_trade"`
	FallbackMode    string   `yaml:"fallback_mode"`
	ADXMin          float64  `yaml:"adx_min"`
	MinRR           float64  `yaml:"min_rr"`
	ATRMultORB      float64  `yaml:"atr_mult_orb"`
	ATRMultFallback float64  `yaml:"atr_mult_fallback"`
	TPMultiplier    float64  `yaml:"tp_multiplier"`
	MaxDailyTrades  int      `yaml:"max_daily_trades"`
}

// SessionConfig holds the UTC hour boundaries of the trading day.
type SessionConfig struct {
	ORBStartHour   int `yaml:"orb_start_hour"`
	ORBEndHour     int `yaml:"orb_end_hour"`
	EntryStartHour int `yaml:"entry_start_hour"`
	EntryEndHour   int `yaml:"entry_end_hour"`
	SessionEndHour int `yaml:"session_end_hour"`
}

// DatabaseConfig holds the optional Postgres connection parameters for the
// trade-ledger sink. Credentials are loaded from environment variables.
type DatabaseConfig struct {
	Host     string `yaml:"-"`
	Port     string `yaml:"-"`
	User     string `yaml:"-"`
	Password string `yaml:"-"`
	Name     string `yaml:"-"`
	SSLMode  string `yaml:"ssl_mode"`
}

// URL builds the postgres connection string.
func (d DatabaseConfig) URL() string {
	sslMode := d.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, sslMode)
}

// Enabled reports whether a database sink was configured.
func (d DatabaseConfig) Enabled() bool {
	return d.Host != "" && d.Name != ""
}

// DBWriterConfig tunes the batching of ledger writes.
type DBWriterConfig struct {
	BatchSize            int `yaml:"batch_size"`
	WriteIntervalSeconds int `yaml:"write_interval_seconds"`
}

// DefaultConfig returns a Config populated with the documented defaults.
func DefaultConfig() *Config {
	return &Config{
		Symbol:       "BTC/USDT:USDT",
		SignalTF:     "15m",
		HTFTimeframe: "1h",
		Strategy: StrategyConfig{
			RiskUSDT:        20.0,
			DailyTarget:     50.0,
			DailyMaxLoss:    -30.0,
			ForceOneTrade:   true,
			FallbackMode:    FallbackBestOfBoth,
			ADXMin:          15.0,
			MinRR:           1.5,
			ATRMultORB:      1.2,
			ATRMultFallback: 1.5,
			TPMultiplier:    2.0,
			MaxDailyTrades:  1,
		},
		Session: SessionConfig{
			ORBStartHour:   11,
			ORBEndHour:     12,
			EntryStartHour: 11,
			EntryEndHour:   13,
			SessionEndHour: 17,
		},
		OutputCSV: "trades.csv",
		LogLevel:  "info",
	}
}

// LoadConfig loads configuration from the specified YAML file path and
// environment variables. An empty path returns the defaults with env
// overrides applied.
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if configPath != "" {
		file, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(file, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	// Load sensitive data and overrides from environment variables
	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if dbHost := os.Getenv("DB_HOST"); dbHost != "" {
		cfg.Database.Host = dbHost
	}
	if dbPort := os.Getenv("DB_PORT"); dbPort != "" {
		cfg.Database.Port = dbPort
	}
	if dbUser := os.Getenv("DB_USER"); dbUser != "" {
		cfg.Database.User = dbUser
	}
	if dbPassword := os.Getenv("DB_PASSWORD"); dbPassword != "" {
		cfg.Database.Password = dbPassword
	}
	if dbName := os.Getenv("DB_NAME"); dbName != "" {
		cfg.Database.Name = dbName
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the parameter combinations the simulation depends on.
func (c *Config) Validate() error {
	s := c.Strategy
	if s.RiskUSDT <= 0 {
		return fmt.Errorf("risk_usdt must be positive, got %f", s.RiskUSDT)
	}
	if s.DailyTarget <= 0 {
		return fmt.Errorf("daily_target must be positive, got %f", s.DailyTarget)
	}
	if s.DailyMaxLoss >= 0 {
		return fmt.Errorf("daily_max_loss must be negative, got %f", s.DailyMaxLoss)
	}
	switch s.FallbackMode {
	case FallbackORB, FallbackEMA15, FallbackBestOfBoth:
	default:
		return fmt.Errorf("unknown fallback_mode %q", s.FallbackMode)
	}
	if s.ADXMin < 0 {
		return fmt.Errorf("adx_min must not be negative, got %f", s.ADXMin)
	}
	if s.MinRR <= 0 {
		return fmt.Errorf("min_rr must be positive, got %f", s.MinRR)
	}
	if s.ATRMultORB <= 0 || s.ATRMultFallback <= 0 {
		return fmt.Errorf("atr multipliers must be positive, got orb=%f fallback=%f", s.ATRMultORB, s.ATRMultFallback)
	}
	if s.TPMultiplier <= 0 {
		return fmt.Errorf("tp_multiplier must be positive, got %f", s.TPMultiplier)
	}
	if s.MaxDailyTrades < 1 {
		return fmt.Errorf("max_daily_trades must be at least 1, got %d", s.MaxDailyTrades)
	}

	w := c.Session
	if w.ORBStartHour >= w.ORBEndHour {
		return fmt.Errorf("orb window [%d,%d) is empty", w.ORBStartHour, w.ORBEndHour)
	}
	if w.EntryStartHour >= w.EntryEndHour {
		return fmt.Errorf("entry window [%d,%d) is empty", w.EntryStartHour, w.EntryEndHour)
	}
	if w.SessionEndHour <= w.EntryEndHour {
		return fmt.Errorf("session_end_hour %d must be after the entry window end %d", w.SessionEndHour, w.EntryEndHour)
	}
	return nil
}
