// Command signetd is the Signet memory daemon entrypoint: a thin cobra
// dispatcher over the three subcommands the boundary contract needs —
// serve, migrate and version.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is stamped at build time via -ldflags; it flows into
// httpapi.Version and every /health and /api/status response.
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:           "signetd",
	Short:         "Signet memory daemon",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "signetd:", err)
		os.Exit(exitCodeFor(err))
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the daemon version",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println(Version)
		return nil
	},
}
