package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information set at build time.
var version = "dev"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "hxwire",
		Short: "Stateful HTMX components for Go",
		Long: `hxwire - stateful server-rendered components for Go, Templ and HTMX.

Examples:
  hxwire generate ./...                   Generate parameter code for all packages
  hxwire generate --dry-run ./...         Preview generation
  hxwire clean ./...                      Remove all generated files
  hxwire inspect --key $KEY snapshot.json Decode a snapshot`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		generateCmd(),
		cleanCmd(),
		inspectCmd(),
		versionCmd(),
	)
	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "hxwire version %s\n", version)
		},
	}
}
