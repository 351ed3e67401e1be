// =================================
// File: internal/config/config.go
// =================================
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/rovshanmuradov/launchpad/internal/fees"
	"github.com/rovshanmuradov/launchpad/internal/market"
)

type Config struct {
	Admin              string `mapstructure:"admin"`
	MarketAddress      string `mapstructure:"market_address"`
	DexAddress         string `mapstructure:"dex_address"`
	MaxCurveSteps      int    `mapstructure:"max_curve_steps"`
	CreationEnabled    bool   `mapstructure:"creation_enabled"`
	TokenTemplate      string `mapstructure:"token_template"`
	BalanceToDex       string `mapstructure:"balance_to_dex"`       // whole units, e.g. "50"
	CreateFee          string `mapstructure:"create_fee"`           // whole units, e.g. "0.1"
	ExchangeFeePercent string `mapstructure:"exchange_fee_percent"` // percent, e.g. "10"
	DexFeePercent      string `mapstructure:"dex_fee_percent"`
	DebugLogging       bool   `mapstructure:"debug_logging"`
	LogFile            string `mapstructure:"log_file"`
	PostgresURL        string `mapstructure:"postgres_url"`
	MetricsAddr        string `mapstructure:"metrics_addr"`
	EventBuffer        int    `mapstructure:"event_buffer"`
}

const (
	DefaultMaxCurveSteps = 100
	DefaultTokenTemplate = "erc20"
	DefaultBalanceToDex  = "50"
	DefaultCreateFee     = "0.1"
	DefaultExchangeFee   = "1"
	DefaultDexFee        = "0"
	DefaultLogFile       = "launchpad.log"
	DefaultMetricsAddr   = ":9102"
	DefaultEventBuffer   = 1024

	EnvPrefix = "LAUNCHPAD"

	// ValueDecimals is the number of base units in one whole value unit (wei per ether).
	ValueDecimals = 18
)

var configKeys = []string{
	"admin", "market_address", "dex_address", "max_curve_steps", "creation_enabled",
	"token_template", "balance_to_dex", "create_fee", "exchange_fee_percent",
	"dex_fee_percent", "debug_logging", "log_file", "postgres_url", "metrics_addr",
	"event_buffer",
}

func newViper() *viper.Viper {
	v := viper.New()

	defaults := map[string]interface{}{
		"max_curve_steps":      DefaultMaxCurveSteps,
		"creation_enabled":     true,
		"token_template":       DefaultTokenTemplate,
		"balance_to_dex":       DefaultBalanceToDex,
		"create_fee":           DefaultCreateFee,
		"exchange_fee_percent": DefaultExchangeFee,
		"dex_fee_percent":      DefaultDexFee,
		"log_file":             DefaultLogFile,
		"metrics_addr":         DefaultMetricsAddr,
		"event_buffer":         DefaultEventBuffer,
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// AutomaticEnv only applies to keys viper knows about; bind the rest explicitly
	for _, key := range configKeys {
		_ = v.BindEnv(key)
	}
	return v
}

// LoadConfig reads a JSON or YAML file and applies LAUNCHPAD_* environment overrides.
func LoadConfig(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return decode(v)
}

// LoadDefaults builds a configuration from defaults and the environment only.
func LoadDefaults() (*Config, error) {
	return decode(newViper())
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, validateConfig(&cfg)
}

func validateConfig(cfg *Config) error {
	for name, addr := range map[string]string{
		"admin":          cfg.Admin,
		"market_address": cfg.MarketAddress,
		"dex_address":    cfg.DexAddress,
	} {
		if addr == "" {
			return fmt.Errorf("missing %s in configuration", name)
		}
		if !common.IsHexAddress(addr) {
			return fmt.Errorf("invalid %s: %q is not a hex address", name, addr)
		}
	}
	if cfg.MaxCurveSteps <= 0 {
		return errors.New("invalid max_curve_steps")
	}
	if cfg.EventBuffer <= 0 {
		return errors.New("invalid event_buffer")
	}
	if _, err := ParseValue(cfg.BalanceToDex); err != nil {
		return fmt.Errorf("invalid balance_to_dex: %w", err)
	}
	if _, err := ParseValue(cfg.CreateFee); err != nil {
		return fmt.Errorf("invalid create_fee: %w", err)
	}
	if _, err := ParsePercent(cfg.ExchangeFeePercent); err != nil {
		return fmt.Errorf("invalid exchange_fee_percent: %w", err)
	}
	if _, err := ParsePercent(cfg.DexFeePercent); err != nil {
		return fmt.Errorf("invalid dex_fee_percent: %w", err)
	}
	if cfg.PostgresURL != "" {
		u, err := url.Parse(cfg.PostgresURL)
		if err != nil || (u.Scheme != "postgres" && u.Scheme != "postgresql") {
			return errors.New("postgres_url must be a postgres:// URL")
		}
	}
	return nil
}

// MarketSettings converts the configuration into market settings.
func (c *Config) MarketSettings() (market.Settings, error) {
	threshold, err := ParseValue(c.BalanceToDex)
	if err != nil {
		return market.Settings{}, fmt.Errorf("invalid balance_to_dex: %w", err)
	}
	createFee, err := ParseValue(c.CreateFee)
	if err != nil {
		return market.Settings{}, fmt.Errorf("invalid create_fee: %w", err)
	}
	exchangeFee, err := ParsePercent(c.ExchangeFeePercent)
	if err != nil {
		return market.Settings{}, fmt.Errorf("invalid exchange_fee_percent: %w", err)
	}
	return market.Settings{
		MaxCurveSteps:      c.MaxCurveSteps,
		CreationEnabled:    c.CreationEnabled,
		TokenTemplate:      c.TokenTemplate,
		DexAddress:         common.HexToAddress(c.DexAddress),
		BalanceToDex:       threshold,
		CreateFee:          createFee,
		ExchangeFeePercent: exchangeFee,
	}, nil
}

// DexFee returns the pool fee in parts-per-100000.
func (c *Config) DexFee() (uint64, error) {
	return ParsePercent(c.DexFeePercent)
}

// ParseValue converts a whole-unit decimal string ("0.1") into base units.
func ParseValue(s string) (*uint256.Int, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return nil, err
	}
	if d.IsNegative() {
		return nil, errors.New("value must not be negative")
	}
	scaled := d.Shift(ValueDecimals)
	if !scaled.Equal(scaled.Truncate(0)) {
		return nil, fmt.Errorf("value %s has more than %d decimals", s, ValueDecimals)
	}
	v, overflow := uint256.FromBig(scaled.BigInt())
	if overflow {
		return nil, errors.New("value overflows 256 bits")
	}
	return v, nil
}

// FormatValue renders base units as a whole-unit decimal string.
func FormatValue(v *uint256.Int) string {
	return decimal.NewFromBigInt(v.ToBig(), -ValueDecimals).String()
}

// ParsePercent converts a percent string ("10", "2.5") into parts-per-100000.
func ParsePercent(s string) (uint64, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	if d.IsNegative() {
		return 0, errors.New("percent must not be negative")
	}
	ppm := d.Mul(decimal.NewFromInt(int64(fees.PercentScale / 100)))
	if !ppm.Equal(ppm.Truncate(0)) {
		return 0, fmt.Errorf("percent %s is finer than 0.001", s)
	}
	p := ppm.BigInt()
	if !p.IsUint64() {
		return 0, fees.ErrInvalidPercent
	}
	if err := fees.ValidatePercent(p.Uint64()); err != nil {
		return 0, err
	}
	return p.Uint64(), nil
}
