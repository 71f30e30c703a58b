package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/shutdown-timer/internal/config"
	"github.com/oshokin/shutdown-timer/internal/service/client"
	"github.com/oshokin/shutdown-timer/internal/version"
)

var (
	// options is shared by every subcommand.
	options = new(client.Options)

	// rootCmd represents the base command for talking to the settings daemon.
	rootCmd = &cobra.Command{
		Use:   "timer-settings",
		Short: "Read, change and watch the shutdown timer settings.",
		Long: `Talks to timer-settingsd to manage the shutdown timer settings:

  delay         minutes before the action runs, greater than 1
  elapsed-time  minutes already counted down, not negative
  forced        run the action without asking applications, true or false
  action        action selector, not negative`,
		SilenceUsage: true,
	}

	getCmd = &cobra.Command{
		Use:   "get",
		Short: "Print every setting.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return client.Get(cmd.Context(), options)
		},
	}

	setCmd = &cobra.Command{
		Use:     "set <key> <value>",
		Short:   "Change one setting.",
		Example: "  timer-settings set delay 15\n  timer-settings set forced true",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return client.Set(cmd.Context(), options, args[0], args[1])
		},
	}

	resetCmd = &cobra.Command{
		Use:   "reset <key>",
		Short: "Restore the default of one setting.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return client.Reset(cmd.Context(), options, args[0])
		},
	}

	watchCmd = &cobra.Command{
		Use:   "watch",
		Short: "Print settings changes as they happen.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return client.Watch(cmd.Context(), options)
		},
	}
)

// Execute runs the timer-settings CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	// Setup graceful shutdown handling.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.PersistentFlags().StringVarP(&options.ConfigPath, "config", "c", "",
		"path to configuration file (default "+config.DefaultConfigFilename+")")
	rootCmd.PersistentFlags().StringVarP(&options.ServerAddress, "server", "a", "",
		"daemon address, overrides the configuration")

	rootCmd.AddCommand(getCmd, setCmd, resetCmd, watchCmd)
}
