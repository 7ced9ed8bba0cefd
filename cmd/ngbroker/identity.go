package main

import (
	"crypto/ed25519"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nextgraph-core/ng/pkg/config"
	"github.com/nextgraph-core/ng/pkg/netconn"
)

var initIdentityCmd = &cobra.Command{
	Use:   "init-identity",
	Short: "Generate the admin, peer, and Noise static keys a broker needs",
	RunE:  runInitIdentity,
}

func init() {
	rootCmd.AddCommand(initIdentityCmd)
}

func runInitIdentity(cmd *cobra.Command, args []string) error {
	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("ngbroker: build logger: %w", err)
	}
	defer logger.Sync()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("ngbroker: load config: %w", err)
	}

	if err := writeEd25519Key(cfg.Identity.AdminKeyPath); err != nil {
		return fmt.Errorf("ngbroker: admin key: %w", err)
	}
	logger.Info("admin key written", zap.String("path", cfg.Identity.AdminKeyPath))

	if err := writeEd25519Key(cfg.Identity.PeerKeyPath); err != nil {
		return fmt.Errorf("ngbroker: peer key: %w", err)
	}
	logger.Info("peer key written", zap.String("path", cfg.Identity.PeerKeyPath))

	if err := writeNoiseKey(cfg.Network.NoiseStaticKeyPath); err != nil {
		return fmt.Errorf("ngbroker: noise static key: %w", err)
	}
	logger.Info("noise static key written", zap.String("path", cfg.Network.NoiseStaticKeyPath))
	return nil
}

func writeEd25519Key(path string) error {
	if path == "" {
		return fmt.Errorf("path not configured")
	}
	_, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		return err
	}
	return writeKeyFile(path, priv)
}

func writeNoiseKey(path string) error {
	if path == "" {
		return fmt.Errorf("path not configured")
	}
	kp, err := netconn.GenerateStaticKeypair()
	if err != nil {
		return err
	}
	return writeKeyFile(path, kp.Private)
}

// writeKeyFile persists raw key bytes with owner-only permissions, the
// same 0600 private-key convention every corpus repo's key-writing
// helper uses.
func writeKeyFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}
