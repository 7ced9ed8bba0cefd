// Command ngcli is a thin client over one broker link: it dials a
// broker's known Noise static public key, issues a single request
// (get/put a block, or an admin operation on an Admin link), prints
// the reply, and exits. Subcommands register themselves on rootCmd
// from their own files, mirroring cmd/ngbroker's layout.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	dialAddr         string
	responderKeyPath string
	identityKeyPath  string
	requestTimeout   time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "ngcli",
	Short: "Talk to a NextGraph broker over one Noise-encrypted link",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dialAddr, "addr", "127.0.0.1:14400", "broker address to dial")
	rootCmd.PersistentFlags().StringVar(&responderKeyPath, "broker-key", "", "path to the broker's Noise static public key")
	rootCmd.PersistentFlags().StringVar(&identityKeyPath, "identity", "", "path to this client's own Noise static private key")
	rootCmd.PersistentFlags().DurationVar(&requestTimeout, "timeout", 10*time.Second, "per-request timeout")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
