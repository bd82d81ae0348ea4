package commands

import (
	"context"
	"fmt"
	"os"

	"magister-backend/lib/telemetry"

	"github.com/spf13/cobra"
)

var debug *bool

var rootCmd = &cobra.Command{
	Use:   "magister-cli",
	Short: "magister-cli logs into the Magister school portal and scrapes portal data.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		telemetry.InitSlog(*debug)
	},
}

func init() {
	debug = rootCmd.PersistentFlags().Bool("debug", false, "Log at debug level and dump http traffic to .dev/resty.")
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
