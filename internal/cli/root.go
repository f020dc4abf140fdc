package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	verbose    bool
	ephemeral  bool
}

// NewRootCmd builds the command tree. Each call returns a fresh tree so
// tests can run commands side by side.
func NewRootCmd(version string) *cobra.Command {
	g := &globalFlags{}

	root := &cobra.Command{
		Use:   "docket",
		Short: "Daily Docket - plan your day hour by hour",
		Long: `Daily Docket keeps a pool of today's tasks and an hourly schedule from
6 AM to 11 PM. Run it without arguments to open the planning board.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBoard(cmd, g)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	root.PersistentFlags().StringVar(&g.configPath, "config", "", "config file (default ~/.config/daily-docket/config.yaml)")
	root.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "log debug output to stderr")
	root.PersistentFlags().BoolVar(&g.ephemeral, "ephemeral", false, "keep tasks in memory only")

	root.AddCommand(
		newAddCmd(g),
		newListCmd(g),
		newScheduleCmd(g),
		newUnscheduleCmd(g),
		newDoneCmd(g),
		newRmCmd(g),
		newClearCmd(g),
		newStatsCmd(g),
		newExportCmd(g),
		newImportCmd(g),
		newMailCmd(g),
		newConfigCmd(g),
		newVersionCmd(version),
	)

	root.Version = version
	return root
}

// Execute runs the root command
func Execute(version string) error {
	if err := NewRootCmd(version).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}
