// Copyright 2025 Certen Protocol
package cli

import (
	"github.com/spf13/cobra"
)

// NewRootCmd assembles the relayer's full command tree: key management,
// handshake drivers, and the long-lived relay process.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "relayer",
		Short:         "Relay IBC packets between a Tendermint chain and a host chain",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().String(FlagConfig, "relayer.toml", "path to the relayer TOML or YAML config file")
	root.PersistentFlags().String(FlagKeystoreDir, "", "override the keystore directory from the config file")

	root.AddCommand(keyCmd())
	root.AddCommand(createConnectionCmd())
	root.AddCommand(createChannelCmd())
	root.AddCommand(startCmd())
	root.AddCommand(configShowCmd())

	return root
}

// Execute runs the root command with os.Args: exit code 0 on success, 1
// on a configuration error, 2 on a runtime error.
func Execute() int {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		if isConfigErr(err) {
			return 1
		}
		return 2
	}
	return 0
}

// configErr marks errors that originate from config/flag parsing rather
// than a runtime relay failure, so Execute can map them to exit code 1.
type configErr struct{ error }

func wrapConfigErr(err error) error {
	if err == nil {
		return nil
	}
	return configErr{err}
}

func isConfigErr(err error) bool {
	_, ok := err.(configErr)
	return ok
}
