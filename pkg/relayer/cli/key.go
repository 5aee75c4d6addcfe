// Copyright 2025 Certen Protocol
package cli

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ibcx/tm-ibc-core/pkg/relayer/keystore"
)

func keyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "key",
		Short: "Manage per-chain signer keys in the encrypted keystore",
	}
	cmd.AddCommand(keyAddCmd())
	cmd.AddCommand(keyListCmd())
	cmd.AddCommand(keyShowCmd())
	cmd.AddCommand(keyExportCmd())
	cmd.AddCommand(keyRemoveCmd())
	return cmd
}

func keyAddCmd() *cobra.Command {
	var keyType string
	cmd := &cobra.Command{
		Use:   "add [chain-id] [private-key-hex]",
		Short: "Encrypt and store a signer key for chain-id",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			chainID, keyHex := args[0], args[1]
			if keyType != keystore.KeyTypeSecp256k1 && keyType != keystore.KeyTypeEd25519 {
				return wrapConfigErr(fmt.Errorf("unknown key type %q (want %q or %q)", keyType, keystore.KeyTypeSecp256k1, keystore.KeyTypeEd25519))
			}
			privateKey, err := hex.DecodeString(keyHex)
			if err != nil {
				return fmt.Errorf("decode private key: %w", err)
			}
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			password, err := keystorePassword()
			if err != nil {
				return err
			}
			path := filepath.Join(cfg.KeystoreDir, chainID+".json")
			if err := keystore.Save(path, chainID, keyType, password, privateKey); err != nil {
				return fmt.Errorf("save keystore: %w", err)
			}
			cmd.Printf("saved %s signer key for %s to %s\n", keyType, chainID, path)
			return nil
		},
	}
	cmd.Flags().StringVar(&keyType, "key-type", keystore.KeyTypeSecp256k1, "signer key algorithm (secp256k1 or ed25519)")
	return cmd
}

func keyListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the chain ids with a stored signer key",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			entries, err := os.ReadDir(cfg.KeystoreDir)
			if err != nil {
				if os.IsNotExist(err) {
					cmd.Println("(keystore directory does not exist yet)")
					return nil
				}
				return fmt.Errorf("read keystore directory: %w", err)
			}
			for _, entry := range entries {
				if entry.IsDir() {
					continue
				}
				cmd.Println(entry.Name())
			}
			return nil
		},
	}
}

func keyShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [chain-id]",
		Short: "Confirm a signer key exists for chain-id without revealing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			chainID := args[0]
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			password, err := keystorePassword()
			if err != nil {
				return err
			}
			path := filepath.Join(cfg.KeystoreDir, chainID+".json")
			gotChainID, keyType, privateKey, err := keystore.Load(path, password)
			if err != nil {
				return err
			}
			cmd.Printf("chain_id=%s key_type=%s key_bytes=%d\n", gotChainID, keyType, len(privateKey))
			return nil
		},
	}
}

func keyExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export [chain-id]",
		Short: "Print the decrypted signer key for chain-id as hex",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			chainID := args[0]
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			password, err := keystorePassword()
			if err != nil {
				return err
			}
			path := filepath.Join(cfg.KeystoreDir, chainID+".json")
			_, _, privateKey, err := keystore.Load(path, password)
			if err != nil {
				return err
			}
			cmd.Println(hex.EncodeToString(privateKey))
			return nil
		},
	}
}

func keyRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove [chain-id]",
		Short: "Delete the stored signer key for chain-id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			chainID := args[0]
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			path := filepath.Join(cfg.KeystoreDir, chainID+".json")
			if err := os.Remove(path); err != nil {
				return fmt.Errorf("remove keystore file: %w", err)
			}
			cmd.Printf("removed signer key for %s\n", chainID)
			return nil
		},
	}
}
