// Command sonarmap reads angle,distance lines from a scanning ultrasonic
// sensor, smooths them into a 2D map, and serves, draws and saves that map.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/banshee-data/sonarmap/internal/version"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "sonarmap",
		Short: "sonarmap - live 2D map from a scanning ultrasonic sensor",
		Long: `sonarmap reads "<angle>,<distance>" lines from a serial sensor (or a
replay file), filters and median-smooths them, and keeps a rolling map of the
most recent points. The map is served over HTTP, drawn in the terminal with
--tui, and saved as PNG snapshots on a frame schedule.`,
		SilenceUsage: true,
	}

	root.AddCommand(
		newRunCmd(),
		newWatchCmd(),
		newMigrateCmd(),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
