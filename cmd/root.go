package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "apikeys",
	Short: "API key issuance and validation service",
	Long:  `Issues project API keys, validates them on every request over HTTP and gRPC, and keeps an audit trail of each successful use.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
