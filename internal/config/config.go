// =================================
// File: internal/config/config.go
// =================================
package config

import (
	"errors"
	"net/url"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	RPCURL          string  `mapstructure:"rpc_url"`
	ChainID         int64   `mapstructure:"chain_id"`
	PrivateKey      string  `mapstructure:"private_key"`
	RouterAddress   string  `mapstructure:"router_address"`
	FactoryAddress  string  `mapstructure:"factory_address"`
	WBaseAddress    string  `mapstructure:"wbase_address"`
	SlippageBps     int     `mapstructure:"slippage_bps"`
	GasMultiplier   float64 `mapstructure:"gas_multiplier"`
	DeadlineSeconds int     `mapstructure:"deadline_seconds"`
	MinLiquidity    string  `mapstructure:"min_liquidity"`
	HoneypotCheck   bool    `mapstructure:"honeypot_check"`
	DailyTradeLimit int     `mapstructure:"daily_trade_limit"`
	UnlimitedTier   bool    `mapstructure:"unlimited_tier"`
	ExplorerAPIURL  string  `mapstructure:"explorer_api_url"`
	ExplorerAPIKey  string  `mapstructure:"explorer_api_key"`
	ListenAddr      string  `mapstructure:"listen_addr"`
	PostgresURL     string  `mapstructure:"postgres_url"`
	RedisURL        string  `mapstructure:"redis_url"`
	DebugLogging    bool    `mapstructure:"debug_logging"`
	LogFile         string  `mapstructure:"log_file"`
}

const (
	DefaultChainID         = 1
	DefaultSlippageBps     = 500
	DefaultGasMultiplier   = 1.1
	DefaultDeadlineSeconds = 300
	DefaultDailyTradeLimit = 3
	DefaultListenAddr      = ":8080"
)

func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	defaults := map[string]interface{}{
		"chain_id":          DefaultChainID,
		"slippage_bps":      DefaultSlippageBps,
		"gas_multiplier":    DefaultGasMultiplier,
		"deadline_seconds":  DefaultDeadlineSeconds,
		"daily_trade_limit": DefaultDailyTradeLimit,
		"listen_addr":       DefaultListenAddr,
		"honeypot_check":    true,
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	loadEnvironmentVariables(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, validateConfig(&cfg)
}

func validateConfig(cfg *Config) error {
	if cfg.RPCURL == "" {
		return errors.New("missing rpc_url in configuration")
	}
	if err := validateURL(cfg.RPCURL, "http"); err != nil {
		return errors.New("invalid RPC URL protocol")
	}
	if cfg.RouterAddress == "" {
		return errors.New("missing router_address in configuration")
	}
	if cfg.FactoryAddress == "" {
		return errors.New("missing factory_address in configuration")
	}
	if cfg.WBaseAddress == "" {
		return errors.New("missing wbase_address in configuration")
	}
	if cfg.ExplorerAPIURL != "" {
		if err := validateURL(cfg.ExplorerAPIURL, "http"); err != nil {
			return errors.New("invalid explorer API URL protocol")
		}
	}
	return validateNumericParams(cfg)
}

func validateNumericParams(cfg *Config) error {
	if cfg.ChainID <= 0 {
		return errors.New("invalid chain_id")
	}
	if cfg.SlippageBps < 0 || cfg.SlippageBps >= 10000 {
		return errors.New("invalid slippage_bps")
	}
	if cfg.GasMultiplier <= 0 {
		return errors.New("invalid gas_multiplier")
	}
	if cfg.DeadlineSeconds <= 0 {
		return errors.New("invalid deadline_seconds")
	}
	if cfg.DailyTradeLimit <= 0 {
		return errors.New("invalid daily_trade_limit")
	}
	return nil
}

func validateURL(rawURL string, protocol string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errors.New("invalid URL format")
	}
	if !strings.HasPrefix(parsed.Scheme, protocol) {
		return errors.New("invalid URL protocol")
	}
	return nil
}

func loadEnvironmentVariables(v *viper.Viper) {
	v.AutomaticEnv()
	v.SetEnvPrefix("TRADE_ENGINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Viper only sees env vars for keys it knows about.
	keys := []string{
		"rpc_url", "chain_id", "private_key",
		"router_address", "factory_address", "wbase_address",
		"slippage_bps", "gas_multiplier", "deadline_seconds",
		"min_liquidity", "honeypot_check",
		"daily_trade_limit", "unlimited_tier",
		"explorer_api_url", "explorer_api_key",
		"listen_addr", "postgres_url", "redis_url",
		"debug_logging", "log_file",
	}
	for _, key := range keys {
		_ = v.BindEnv(key)
	}
}

// ReadOnly reports whether the engine runs without a signing key.
func (c *Config) ReadOnly() bool {
	return c.PrivateKey == ""
}
