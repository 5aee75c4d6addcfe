// Copyright 2025 Certen Protocol
package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ibcx/tm-ibc-core/pkg/relayer/handshake"
	"github.com/ibcx/tm-ibc-core/pkg/relayer/proofgen"
)

// createConnectionCmd drives the ICS-03 connection handshake end to end
// between two configured chains.
func createConnectionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create-connection [chain-a] [chain-b] [client-id-on-a] [client-id-on-b]",
		Short: "Drive the four-phase connection handshake between two chains",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			chainAID, chainBID, clientOnA, clientOnB := args[0], args[1], args[2], args[3]

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			chainACfg, err := chainConfig(cfg, chainAID)
			if err != nil {
				return wrapConfigErr(err)
			}
			chainBCfg, err := chainConfig(cfg, chainBID)
			if err != nil {
				return wrapConfigErr(err)
			}
			chainA, err := buildAdapter(chainACfg)
			if err != nil {
				return fmt.Errorf("build adapter for %s: %w", chainAID, err)
			}
			chainB, err := buildAdapter(chainBCfg)
			if err != nil {
				return fmt.Errorf("build adapter for %s: %w", chainBID, err)
			}

			proofs := proofgen.New(cfg.ProofCacheTTL, chainA, chainB)
			coord := handshake.New(proofs)

			timeout, _ := cmd.Flags().GetDuration("timeout")
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			req := handshake.ConnectionRequest{
				ChainA:      chainA,
				ChainB:      chainB,
				ClientIDOnA: clientOnA,
				ClientIDOnB: clientOnB,
			}
			if err := coord.DriveConnection(ctx, req, jsonConnectionEncoder{}); err != nil {
				return fmt.Errorf("drive connection handshake: %w", err)
			}
			cmd.Printf("connection handshake complete: %s <-> %s\n", chainAID, chainBID)
			return nil
		},
	}
	cmd.Flags().Duration("timeout", 2*time.Minute, "overall handshake timeout")
	return cmd
}
