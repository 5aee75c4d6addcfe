// Copyright 2025 Certen Protocol
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// configShowCmd prints the fully-resolved configuration (file plus
// RELAYER_-prefixed env overrides plus defaults) as YAML, an operator
// debugging aid; Load itself accepts TOML or YAML via viper.
func configShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config-show",
		Short: "Print the resolved relayer configuration as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			out, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("marshal resolved config: %w", err)
			}
			fmt.Fprint(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
}
