// Package cli provides the command-line interface for rtcheck.
package cli

import (
	"fmt"

	"github.com/runoshun/rtcheck/internal/app"
	"github.com/spf13/cobra"
)

// Command group IDs.
const (
	groupRun   = "run"
	groupSetup = "setup"
)

// NewRootCommand creates the root command for rtcheck.
// It receives the container for dependency injection and version for display.
func NewRootCommand(c *app.Container, version string) *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "rtcheck",
		Short: "Real-time kernel self-test harness",
		Long: `rtcheck runs a set of concurrent self-test tasks on a small preemptive
scheduler and watches them with a periodic health check.

Tasks are created and deleted continuously, values flow through bounded
queues, characters loop through a simulated UART and every subsystem must
prove progress on each check. The first missed check latches a fault and
speeds up the on-board LED.`,
		Version: version,
		// SilenceUsage prevents usage from being printed on errors
		SilenceUsage: true,
		// SilenceErrors prevents Cobra from printing errors (we handle it in main)
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Skip if container is nil (e.g. in tests)
			if c == nil {
				return nil
			}
			if cmd.Flags().Changed("config") {
				c.SetConfigPath(configPath)
			}

			cfg, err := c.ConfigLoader.Load()
			if err != nil {
				// Reported by the commands that need the config
				return nil
			}

			for _, w := range cfg.Warnings {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %s\n", w)
			}
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file layered over the global config")

	// Define command groups
	root.AddGroup(
		&cobra.Group{ID: groupRun, Title: "Self-test Commands:"},
		&cobra.Group{ID: groupSetup, Title: "Setup Commands:"},
	)

	runCmd := newRunCommand(c)
	runCmd.GroupID = groupRun

	monitorCmd := newMonitorCommand(c)
	monitorCmd.GroupID = groupRun

	configCmd := newConfigCommand(c)
	configCmd.GroupID = groupSetup

	root.AddCommand(runCmd, monitorCmd, configCmd)
	return root
}
