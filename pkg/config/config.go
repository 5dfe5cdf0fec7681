package config

// Package config provides a reusable loader for xchain configuration files
// and environment variables. It is versioned so that applications can depend
// on a stable API contract.
//
// Version: v0.1.0

import (
	"fmt"

	"github.com/spf13/viper"

	"xchain/pkg/utils"
)

// Version is the semantic version of this configuration package.
const Version = "v0.1.0"

// Config represents the unified configuration for an xchain bridge node. It
// mirrors the structure of the YAML files under config/.
type Config struct {
	Network struct {
		ThisChainID uint16 `mapstructure:"this_chain_id" json:"this_chain_id"`
		ListenAddr  string `mapstructure:"listen_addr" json:"listen_addr"`
		RPCEnabled  bool   `mapstructure:"rpc_enabled" json:"rpc_enabled"`
	} `mapstructure:"network" json:"network"`

	Guardian struct {
		SetIndex         uint32   `mapstructure:"set_index" json:"set_index"`
		Addresses        []string `mapstructure:"addresses" json:"addresses"`
		ExpirationWindow int64    `mapstructure:"expiration_window_seconds" json:"expiration_window_seconds"`
	} `mapstructure:"guardian" json:"guardian"`

	TokenBridge struct {
		GovernanceChainID  uint16 `mapstructure:"governance_chain_id" json:"governance_chain_id"`
		GovernanceEmitter  string `mapstructure:"governance_emitter" json:"governance_emitter"`
	} `mapstructure:"token_bridge" json:"token_bridge"`

	Accountant struct {
		Enabled bool `mapstructure:"enabled" json:"enabled"`
	} `mapstructure:"accountant" json:"accountant"`

	Storage struct {
		DBPath string `mapstructure:"db_path" json:"db_path"`
	} `mapstructure:"storage" json:"storage"`

	Logging struct {
		Level string `mapstructure:"level" json:"level"`
		File  string `mapstructure:"file" json:"file"`
	} `mapstructure:"logging" json:"logging"`
}

// AppConfig holds the configuration loaded via Load or LoadFromEnv.
var AppConfig Config

// Load reads configuration files and merges any environment specific
// overrides. The resulting configuration is stored in AppConfig and returned.
//
// The function uses the provided environment name to merge additional config
// files. If env is empty, only the default configuration is loaded.
func Load(env string) (*Config, error) {
	viper.SetConfigName("default")
	viper.AddConfigPath("config")
	viper.SetConfigType("yaml")
	if err := viper.ReadInConfig(); err != nil {
		return nil, utils.Wrap(err, "load config")
	}

	if env != "" {
		viper.SetConfigName(env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, utils.Wrap(err, fmt.Sprintf("merge %s config", env))
		}
	}

	viper.AutomaticEnv() // picks up overrides from environment variables

	if err := viper.Unmarshal(&AppConfig); err != nil {
		return nil, utils.Wrap(err, "unmarshal config")
	}
	return &AppConfig, nil
}

// LoadFromEnv loads configuration using the XCHAIN_ENV environment variable.
func LoadFromEnv() (*Config, error) {
	return Load(utils.EnvOrDefault("XCHAIN_ENV", ""))
}

// ToBridgeConfig copies the loaded configuration into a BridgeConfigInput.
// The governance emitter is passed through as its hex string; no address is
// decoded here.
func (c *Config) ToBridgeConfig() (BridgeConfigInput, error) {
	return BridgeConfigInput{
		ThisChain:         c.Network.ThisChainID,
		GovernanceChain:   c.TokenBridge.GovernanceChainID,
		GovernanceEmitter: c.TokenBridge.GovernanceEmitter,
		ExpirationWindow:  c.Guardian.ExpirationWindow,
	}, nil
}

// BridgeConfigInput is the subset of Config needed to populate
// core.BridgeConfig, kept free of an import on the core package so this
// package has no circular dependency on it; cmd/ entry points perform the
// final hex decode and call core.Configure directly.
type BridgeConfigInput struct {
	ThisChain         uint16
	GovernanceChain   uint16
	GovernanceEmitter string
	ExpirationWindow  int64
}
