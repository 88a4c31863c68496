// Package config loads and validates adapter settings.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/viper"
)

// Config holds application settings loaded from config.json.
type Config struct {
	RPCList         []string `mapstructure:"rpc_list"`
	ChainID         int64    `mapstructure:"chain_id"`
	OracleAddress   string   `mapstructure:"oracle_address"`
	RegistryAddress string   `mapstructure:"registry_address"`

	// MaxSlippageBps ограничивает отклонение цены, базис-поинты (10000 = 100%)
	MaxSlippageBps uint64 `mapstructure:"max_slippage_bps"`

	Workers    int  `mapstructure:"workers"`
	RPCDelayMS int  `mapstructure:"rpc_delay"`
	DryRun     bool `mapstructure:"dry_run"`

	TasksFile   string `mapstructure:"tasks_file"`
	WalletsFile string `mapstructure:"wallets_file"`

	DebugLogging bool   `mapstructure:"debug_logging"`
	LogFile      string `mapstructure:"log_file"`

	RPCDelay time.Duration `mapstructure:"-"`
}

const (
	DefaultMaxSlippageBps = 300 // 3%
	DefaultWorkers        = 1
	DefaultRPCDelay       = 100
)

// LoadConfig reads configuration from the specified file path and performs validation.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	defaults := map[string]interface{}{
		"max_slippage_bps": DefaultMaxSlippageBps,
		"workers":          DefaultWorkers,
		"rpc_delay":        DefaultRPCDelay,
		"chain_id":         1,
		"tasks_file":       "configs/tasks.yaml",
		"wallets_file":     "configs/wallets.yaml",
		"log_file":         "adapter.log",
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config error: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal error: %w", err)
	}

	cfg.RPCDelay = time.Duration(cfg.RPCDelayMS) * time.Millisecond

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// validate checks required fields and applies defaults if necessary.
func (c *Config) validate() error {
	if !c.DryRun {
		if len(c.RPCList) == 0 {
			return fmt.Errorf("rpc_list must contain at least one RPC endpoint")
		}
		for _, rpcURL := range c.RPCList {
			if err := validateURL(rpcURL); err != nil {
				return fmt.Errorf("invalid RPC URL %s: %w", MaskRPCForLogging(rpcURL), err)
			}
		}
		if !common.IsHexAddress(c.OracleAddress) {
			return fmt.Errorf("oracle_address is not a valid address")
		}
		if !common.IsHexAddress(c.RegistryAddress) {
			return fmt.Errorf("registry_address is not a valid address")
		}
	}

	if c.MaxSlippageBps == 0 || c.MaxSlippageBps >= 10_000 {
		return fmt.Errorf("max_slippage_bps must be in (0, 10000), got %d", c.MaxSlippageBps)
	}
	if c.ChainID <= 0 {
		return fmt.Errorf("invalid chain_id %d", c.ChainID)
	}
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
	if c.RPCDelay <= 0 {
		c.RPCDelay = DefaultRPCDelay * time.Millisecond
	}
	return nil
}

// Oracle returns the parsed oracle contract address.
func (c *Config) Oracle() common.Address {
	return common.HexToAddress(c.OracleAddress)
}

// Registry returns the parsed Augustus registry contract address.
func (c *Config) Registry() common.Address {
	return common.HexToAddress(c.RegistryAddress)
}

func validateURL(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return err
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" && parsed.Scheme != "ws" && parsed.Scheme != "wss" {
		return fmt.Errorf("unsupported scheme %q", parsed.Scheme)
	}
	return nil
}

// MaskRPCForLogging hides API keys embedded in RPC URLs before they reach logs.
func MaskRPCForLogging(rpcURL string) string {
	parsed, err := url.Parse(rpcURL)
	if err != nil {
		return rpcURL
	}

	query := parsed.Query()
	for key := range query {
		lower := strings.ToLower(key)
		if strings.Contains(lower, "key") || strings.Contains(lower, "token") {
			query.Set(key, "masked")
		}
	}
	parsed.RawQuery = query.Encode()
	return parsed.String()
}

// GetMaskedRPCList returns RPC list with masked API keys for logging.
func (c *Config) GetMaskedRPCList() []string {
	masked := make([]string, len(c.RPCList))
	for i, rpc := range c.RPCList {
		masked[i] = MaskRPCForLogging(rpc)
	}
	return masked
}
