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

// createChannelCmd drives the ICS-04 channel handshake riding an
// already-open connection.
func createChannelCmd() *cobra.Command {
	var ordered bool
	cmd := &cobra.Command{
		Use:   "create-channel [chain-a] [chain-b] [connection-id] [port-a] [port-b] [version]",
		Short: "Drive the four-phase channel handshake over an open connection",
		Args:  cobra.ExactArgs(6),
		RunE: func(cmd *cobra.Command, args []string) error {
			chainAID, chainBID, connID, portA, portB, version := args[0], args[1], args[2], args[3], args[4], args[5]

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

			req := handshake.ChannelRequest{
				ChainA:       chainA,
				ChainB:       chainB,
				ConnectionID: connID,
				PortA:        portA,
				PortB:        portB,
				Version:      version,
				Ordered:      ordered,
			}
			if err := coord.DriveChannel(ctx, req, jsonChannelEncoder{}); err != nil {
				return fmt.Errorf("drive channel handshake: %w", err)
			}
			cmd.Printf("channel handshake complete: %s/%s <-> %s/%s over connection %s\n", chainAID, portA, chainBID, portB, connID)
			return nil
		},
	}
	cmd.Flags().BoolVar(&ordered, "ordered", false, "open an ORDERED channel instead of UNORDERED")
	cmd.Flags().Duration("timeout", 2*time.Minute, "overall handshake timeout")
	return cmd
}
