package commands

import (
	"context"
	"fmt"
	"os"

	"nsdotgo/lib/telemetry"

	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "nsprep",
	Short: "nsprep preps puppet nations for the world assembly, one key press per page load.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		telemetry.InitSlog(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.json5", "The config file to read, a template is written if it does not exist.")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output and dump every exchange to .nsprep/resty.")
}

// ExecuteContext exits with status 1 when a command fails, so deferred
// cleanup in main does not run past this point on failure.
func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
