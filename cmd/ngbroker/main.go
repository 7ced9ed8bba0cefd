// Command ngbroker runs a NextGraph broker: the block store, object
// assembler, verifier, and broker surface (C1/C2/C7/C10) wired behind
// a Noise-encrypted listener (C9). Subcommands live in their own
// files (serve.go, identity.go), each registering itself on rootCmd
// from an init function, the same layout the teacher's cmd/cli
// package uses for its own per-feature command files.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "ngbroker",
	Short: "Run a NextGraph broker process",
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
