// Copyright 2025 Certen Protocol
//
// Package config loads the relayer's configuration from a TOML or YAML
// file via viper, overlaying RELAYER_-prefixed environment variables on
// top of the file and the built-in defaults.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// ChainConfig describes one chain the relayer connects to.
type ChainConfig struct {
	ChainID  string `mapstructure:"chain_id"`
	Type     string `mapstructure:"type"` // "tendermint" or "host"
	RPCAddr  string `mapstructure:"rpc_addr"`
	Contract string `mapstructure:"contract_address"` // host-chain only
}

// ChannelPairConfig is one (port, channel) pair the relayer actively
// relays, with its counterparty coordinates.
type ChannelPairConfig struct {
	SourceChain   string `mapstructure:"source_chain"`
	SourcePort    string `mapstructure:"source_port"`
	SourceChannel string `mapstructure:"source_channel"`
	DestChain     string `mapstructure:"dest_chain"`
	DestPort      string `mapstructure:"dest_port"`
	DestChannel   string `mapstructure:"dest_channel"`
	// DestClientID is the light client on the destination chain tracking
	// the source chain, updated before each recv_packet submission.
	DestClientID string `mapstructure:"dest_client_id"`
	Ordered      bool   `mapstructure:"ordered"`
	Window       int    `mapstructure:"window"`
}

// RelayerConfig is the root configuration document.
type RelayerConfig struct {
	Chains   []ChainConfig       `mapstructure:"chains"`
	Channels []ChannelPairConfig `mapstructure:"channels"`

	PollInterval       time.Duration `mapstructure:"poll_interval"`
	ScanInterval       time.Duration `mapstructure:"scan_interval"`
	ProofCacheTTL      time.Duration `mapstructure:"proof_cache_ttl"`
	MaxRetries         int           `mapstructure:"max_retries"`
	RetryDelay         time.Duration `mapstructure:"retry_delay"`
	MaxCompletedAge    time.Duration `mapstructure:"max_completed_age"`
	MaxParallelPackets int           `mapstructure:"max_parallel_packets"`

	DatabaseURL       string `mapstructure:"database_url"`
	LifecycleStoreDir string `mapstructure:"lifecycle_store_dir"`
	KeystoreDir       string `mapstructure:"keystore_dir"`
	EnvKeyPrefix      string `mapstructure:"env_key_prefix"`
}

// Defaults returns a RelayerConfig with the same cadence defaults as
// monitor.DefaultConfig/scanner/engine.DefaultConfig/timeoutmgr.DefaultConfig.
func Defaults() RelayerConfig {
	return RelayerConfig{
		PollInterval:       5 * time.Second,
		ScanInterval:       60 * time.Second,
		ProofCacheTTL:      10 * time.Second,
		MaxRetries:         8,
		RetryDelay:         5 * time.Second,
		MaxCompletedAge:    24 * time.Hour,
		MaxParallelPackets: 16,
		EnvKeyPrefix:       "RELAYER_KEY",
	}
}

// Load reads path (TOML or YAML, inferred from its extension) via viper,
// overlays RELAYER_-prefixed environment variables, and merges over
// Defaults().
func Load(path string) (RelayerConfig, error) {
	cfg := Defaults()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("RELAYER")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return cfg, fmt.Errorf("read relayer config %s: %w", path, err)
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("parse relayer config %s: %w", path, err)
	}
	return cfg, nil
}
