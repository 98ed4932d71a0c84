package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "fixture-pipeline",
	Short: "Keeps the fixture ledger in sync with the match provider",
	Long: `fixture-pipeline reconciles one competition season against the match
provider, drains queued finished matches into the stats store and serves
the resulting fixture board over HTTP.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(newRunCmd(), newServeCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "fixture-pipeline: %v\n", err)
		os.Exit(1)
	}
}
