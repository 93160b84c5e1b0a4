// Package config loads client configuration from YAML with environment overrides.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the full client configuration.
type Config struct {
	Chain   ChainConfig   `yaml:"chain"`
	Relayer RelayerConfig `yaml:"relayer"`
	Wallet  WalletConfig  `yaml:"wallet"`
	Watch   WatchConfig   `yaml:"watch"`
	Logging LoggingConfig `yaml:"logging"`
}

// ChainConfig configures the registry chain connection.
type ChainConfig struct {
	RPCURL          string        `yaml:"rpc_url"`
	WSURL           string        `yaml:"ws_url"`
	ContractAddress string        `yaml:"contract_address"`
	Timeout         time.Duration `yaml:"timeout"`
	RequestsPerSec  int           `yaml:"requests_per_sec"`
	Burst           int           `yaml:"burst"`
}

// RelayerConfig configures the FHE relayer endpoint.
type RelayerConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// WalletConfig identifies the connected account.
type WalletConfig struct {
	Account string `yaml:"account"`
}

// WatchConfig configures daemon mode.
type WatchConfig struct {
	RefreshSchedule string `yaml:"refresh_schedule"`
	ListenAddr      string `yaml:"listen_addr"`
}

// LoggingConfig configures log output.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Chain: ChainConfig{
			RPCURL:         "http://localhost:8545",
			Timeout:        30 * time.Second,
			RequestsPerSec: 10,
			Burst:          20,
		},
		Relayer: RelayerConfig{
			BaseURL: "http://localhost:8745",
			Timeout: 60 * time.Second,
		},
		Watch: WatchConfig{
			RefreshSchedule: "@every 30s",
			ListenAddr:      ":9090",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
	}
}

// Load reads configuration from path, falling back to defaults when the file
// is absent, and applies environment overrides last.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.loadFromEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFromEnv() {
	if v := os.Getenv("SCHOLAR_RPC_URL"); v != "" {
		c.Chain.RPCURL = v
	}
	if v := os.Getenv("SCHOLAR_WS_URL"); v != "" {
		c.Chain.WSURL = v
	}
	if v := os.Getenv("SCHOLAR_CONTRACT_ADDRESS"); v != "" {
		c.Chain.ContractAddress = v
	}
	if v := os.Getenv("SCHOLAR_RELAYER_URL"); v != "" {
		c.Relayer.BaseURL = v
	}
	if v := os.Getenv("SCHOLAR_ACCOUNT"); v != "" {
		c.Wallet.Account = v
	}
	if v := os.Getenv("SCHOLAR_REFRESH_SCHEDULE"); v != "" {
		c.Watch.RefreshSchedule = v
	}
	if v := os.Getenv("SCHOLAR_LISTEN_ADDR"); v != "" {
		c.Watch.ListenAddr = v
	}
	if v := os.Getenv("SCHOLAR_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// Validate checks required fields.
func (c *Config) Validate() error {
	if c.Chain.RPCURL == "" {
		return fmt.Errorf("chain: rpc_url is required")
	}
	if c.Relayer.BaseURL == "" {
		return fmt.Errorf("relayer: base_url is required")
	}
	if c.Chain.Timeout <= 0 {
		c.Chain.Timeout = 30 * time.Second
	}
	if c.Relayer.Timeout <= 0 {
		c.Relayer.Timeout = 60 * time.Second
	}
	return nil
}
