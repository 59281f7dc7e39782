package store

import (
	"errors"
	"fmt"
	"os"
	"time"

	"rfactor-bot/internal/market"
	"rfactor-bot/internal/types"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Mode       string `yaml:"mode"`
	Exchange   string `yaml:"exchange"`
	Symbol     string `yaml:"symbol"`
	Timeframes struct {
		Short string `yaml:"short"`
		Long  string `yaml:"long"`
	} `yaml:"timeframes"`
	SMAWindow int `yaml:"sma_window"`
	Risk      struct {
		Capital       float64 `yaml:"capital"`
		RiskPerTrade  float64 `yaml:"risk_per_trade"`
		Leverage      float64 `yaml:"leverage"`
		RFactor       float64 `yaml:"r_factor"`
		MinWinRate    float64 `yaml:"min_win_rate"`
		StopFraction  float64 `yaml:"stop_fraction"`
		SizePrecision int32   `yaml:"size_precision"`
	} `yaml:"risk"`
	Schedule struct {
		ExecuteSeconds     int `yaml:"execute_seconds"`
		ReconcileSeconds   int `yaml:"reconcile_seconds"`
		CooldownSeconds    int `yaml:"cooldown_seconds"`
		MaxCooldownSeconds int `yaml:"max_cooldown_seconds"`
		StartupRetries     int `yaml:"startup_retries"`
	} `yaml:"schedule"`
	Broker struct {
		RateLimitBurst    int `yaml:"rate_limit_burst"`
		RateLimitRefillMS int `yaml:"rate_limit_refill_ms"`
	} `yaml:"broker"`
	Paper struct {
		Seed       int64   `yaml:"seed"`
		StartPrice float64 `yaml:"start_price"`
		Spread     float64 `yaml:"spread"`
		Volatility float64 `yaml:"volatility"`
	} `yaml:"paper"`
	StatusAddr string `yaml:"status_addr"`
	JournalDir string `yaml:"journal_dir"`

	// stopFractionSet and sizePrecisionSet distinguish an explicit 0 from an absent key.
	stopFractionSet  bool
	sizePrecisionSet bool
}

// Credentials are read from the environment only.
type Credentials struct {
	APIKey      string `envconfig:"KITE_API_KEY"`
	AccessToken string `envconfig:"KITE_ACCESS_TOKEN"`
	ConfigPath  string `envconfig:"TRADER_CONFIG" default:"config.yaml"`
	// RetentionDays gzips journal files older than this many days on startup. 0 disables.
	RetentionDays int `envconfig:"TRADER_LOG_RETENTION_DAYS" default:"0"`
}

func LoadCredentials() (Credentials, error) {
	var c Credentials
	if err := envconfig.Process("", &c); err != nil {
		return Credentials{}, err
	}
	return c, nil
}

func (c *Config) Validate() error {
	if c.Mode != "DRY_RUN" && c.Mode != "LIVE" {
		return fmt.Errorf("invalid mode '%s': must be 'DRY_RUN' or 'LIVE'", c.Mode)
	}
	if c.Symbol == "" {
		return errors.New("symbol cannot be empty")
	}
	if c.Timeframes.Short == "" || c.Timeframes.Long == "" {
		return errors.New("timeframes.short and timeframes.long are required")
	}
	if c.Timeframes.Short == c.Timeframes.Long {
		return fmt.Errorf("timeframes must differ, both are '%s'", c.Timeframes.Short)
	}
	for _, tf := range c.TimeframeList() {
		if _, err := market.ParseTimeframe(tf); err != nil {
			return err
		}
	}
	if c.SMAWindow <= 0 {
		return fmt.Errorf("sma_window must be positive, got %d", c.SMAWindow)
	}
	if c.Risk.RiskPerTrade <= 0 {
		return fmt.Errorf("risk.risk_per_trade must be positive, got %.4f", c.Risk.RiskPerTrade)
	}
	if c.Risk.Leverage <= 0 {
		return fmt.Errorf("risk.leverage must be positive, got %.4f", c.Risk.Leverage)
	}
	if c.Risk.RFactor <= 0 {
		return fmt.Errorf("risk.r_factor must be positive, got %.4f", c.Risk.RFactor)
	}
	if c.Risk.StopFraction < 0 || c.Risk.StopFraction >= 1 {
		return fmt.Errorf("risk.stop_fraction must be in [0, 1), got %.4f", c.Risk.StopFraction)
	}
	if c.Risk.SizePrecision < 0 {
		return fmt.Errorf("risk.size_precision cannot be negative, got %d", c.Risk.SizePrecision)
	}
	if c.Schedule.ExecuteSeconds <= 0 || c.Schedule.ReconcileSeconds <= 0 {
		return errors.New("schedule intervals must be positive")
	}
	if c.Schedule.CooldownSeconds < 0 {
		return fmt.Errorf("schedule.cooldown_seconds cannot be negative, got %d", c.Schedule.CooldownSeconds)
	}
	if c.Schedule.MaxCooldownSeconds < c.Schedule.CooldownSeconds {
		return fmt.Errorf("schedule.max_cooldown_seconds (%d) is below cooldown_seconds (%d)",
			c.Schedule.MaxCooldownSeconds, c.Schedule.CooldownSeconds)
	}
	return nil
}

func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseConfig(b)
}

func ParseConfig(b []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}

	var probe struct {
		Risk map[string]any `yaml:"risk"`
	}
	if err := yaml.Unmarshal(b, &probe); err == nil {
		_, c.stopFractionSet = probe.Risk["stop_fraction"]
		_, c.sizePrecisionSet = probe.Risk["size_precision"]
	}

	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.Mode == "" {
		c.Mode = "DRY_RUN"
	}
	if c.Exchange == "" {
		c.Exchange = "NSE"
	}
	if c.Timeframes.Short == "" {
		c.Timeframes.Short = "15m"
	}
	if c.Timeframes.Long == "" {
		c.Timeframes.Long = "1d"
	}
	if c.SMAWindow == 0 {
		c.SMAWindow = 20
	}
	if c.Risk.Capital == 0 {
		c.Risk.Capital = 100
	}
	if c.Risk.RiskPerTrade == 0 {
		c.Risk.RiskPerTrade = 10
	}
	if c.Risk.Leverage == 0 {
		c.Risk.Leverage = 5
	}
	if c.Risk.RFactor == 0 {
		c.Risk.RFactor = 2
	}
	if c.Risk.MinWinRate == 0 {
		c.Risk.MinWinRate = 35
	}
	if !c.stopFractionSet {
		c.Risk.StopFraction = 0.01
	}
	if !c.sizePrecisionSet {
		c.Risk.SizePrecision = 6
	}
	if c.Schedule.ExecuteSeconds == 0 {
		c.Schedule.ExecuteSeconds = 30
	}
	if c.Schedule.ReconcileSeconds == 0 {
		c.Schedule.ReconcileSeconds = 60
	}
	if c.Schedule.CooldownSeconds == 0 {
		c.Schedule.CooldownSeconds = 30
	}
	if c.Schedule.MaxCooldownSeconds == 0 {
		c.Schedule.MaxCooldownSeconds = 300
	}
	if c.Schedule.StartupRetries == 0 {
		c.Schedule.StartupRetries = 3
	}
	if c.Broker.RateLimitBurst == 0 {
		c.Broker.RateLimitBurst = 5
	}
	if c.Broker.RateLimitRefillMS == 0 {
		c.Broker.RateLimitRefillMS = 200
	}
	if c.Paper.StartPrice == 0 {
		c.Paper.StartPrice = 100
	}
	if c.Paper.Spread == 0 {
		c.Paper.Spread = 0.0005
	}
	if c.Paper.Volatility == 0 {
		c.Paper.Volatility = 0.002
	}
	if c.JournalDir == "" {
		c.JournalDir = "logs"
	}
}

// TimeframeList returns the short and long timeframes, short first.
func (c *Config) TimeframeList() []string {
	return []string{c.Timeframes.Short, c.Timeframes.Long}
}

// RiskParameters converts the risk section into the immutable decimal form used by the engine.
func (c *Config) RiskParameters() types.RiskParameters {
	return types.RiskParameters{
		RiskPerTrade:  decimal.NewFromFloat(c.Risk.RiskPerTrade),
		Leverage:      decimal.NewFromFloat(c.Risk.Leverage),
		RFactor:       decimal.NewFromFloat(c.Risk.RFactor),
		MinWinRate:    decimal.NewFromFloat(c.Risk.MinWinRate),
		StopFraction:  decimal.NewFromFloat(c.Risk.StopFraction),
		SizePrecision: c.Risk.SizePrecision,
	}
}

func (c *Config) ExecuteInterval() time.Duration {
	return time.Duration(c.Schedule.ExecuteSeconds) * time.Second
}

func (c *Config) ReconcileInterval() time.Duration {
	return time.Duration(c.Schedule.ReconcileSeconds) * time.Second
}

func (c *Config) Cooldown() time.Duration {
	return time.Duration(c.Schedule.CooldownSeconds) * time.Second
}

func (c *Config) MaxCooldown() time.Duration {
	return time.Duration(c.Schedule.MaxCooldownSeconds) * time.Second
}

func (c *Config) RateLimitRefill() time.Duration {
	return time.Duration(c.Broker.RateLimitRefillMS) * time.Millisecond
}
