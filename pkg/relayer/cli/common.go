// Copyright 2025 Certen Protocol
//
// Package cli assembles the relayer's cobra command tree: key management,
// handshake drivers, and the long-lived relay process.
package cli

import (
	"fmt"
	"os"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/ibcx/tm-ibc-core/pkg/relayer/chainadapter"
	"github.com/ibcx/tm-ibc-core/pkg/relayer/config"
)

const (
	FlagConfig      = "config"
	FlagKeystoreDir = "keystore-dir"

	// EnvKeystorePassword names the environment variable the key and start
	// subcommands read the keystore password from; a secret like this must
	// never be a plain CLI flag.
	EnvKeystorePassword = "RELAYER_KEYSTORE_PASSWORD"
)

func loadConfig(cmd *cobra.Command) (config.RelayerConfig, error) {
	path, _ := cmd.Flags().GetString(FlagConfig)
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, wrapConfigErr(err)
	}
	if dir, _ := cmd.Flags().GetString(FlagKeystoreDir); dir != "" {
		cfg.KeystoreDir = dir
	}
	return cfg, nil
}

func keystorePassword() (string, error) {
	pw := os.Getenv(EnvKeystorePassword)
	if pw == "" {
		return "", wrapConfigErr(fmt.Errorf("%s env var not set", EnvKeystorePassword))
	}
	return pw, nil
}

func chainConfig(cfg config.RelayerConfig, chainID string) (config.ChainConfig, error) {
	for _, c := range cfg.Chains {
		if c.ChainID == chainID {
			return c, nil
		}
	}
	return config.ChainConfig{}, fmt.Errorf("chain %q not found in config", chainID)
}

// buildAdapter dials the chain described by c.
func buildAdapter(c config.ChainConfig) (chainadapter.Adapter, error) {
	switch c.Type {
	case "tendermint":
		return chainadapter.NewTendermintAdapter(c.ChainID, c.RPCAddr)
	case "host":
		if c.Contract == "" {
			return nil, fmt.Errorf("chain %s: contract_address required for a host chain", c.ChainID)
		}
		return chainadapter.NewHostChainAdapter(c.ChainID, c.RPCAddr, ethcommon.HexToAddress(c.Contract))
	default:
		return nil, fmt.Errorf("chain %s: unknown chain type %q (want \"tendermint\" or \"host\")", c.ChainID, c.Type)
	}
}
