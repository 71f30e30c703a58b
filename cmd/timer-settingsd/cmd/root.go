package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/shutdown-timer/internal/config"
	"github.com/oshokin/shutdown-timer/internal/logger"
	"github.com/oshokin/shutdown-timer/internal/service/server"
	"github.com/oshokin/shutdown-timer/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// storeFile overrides the settings document path.
	storeFile string
	// schemaDir overrides the schema directory.
	schemaDir string
	// allowMultiple disables the single-instance check.
	allowMultiple bool

	// rootCmd represents the base command for running the settings daemon.
	rootCmd = &cobra.Command{
		Use:   "timer-settingsd [listen-address]",
		Short: "Serve the shutdown timer settings over gRPC.",
		Long: `Opens the shutdown timer settings store and serves it to other processes.

The schema is looked up in the schema directory and the daemon refuses to start
without it. Values are kept in a JSON document that is flushed on every write
and watched for edits made by other processes; subscribers are notified of
every change. Listen address can be provided as argument to override config.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			var listenAddress string
			if len(args) > 0 {
				listenAddress = args[0]
			}

			logger.InfoKV(ctx, "Starting settings daemon", version.KV()...)

			err := server.Run(ctx, &server.Options{
				ConfigPath:    configPath,
				ListenAddress: listenAddress,
				StoreFile:     storeFile,
				SchemaDir:     schemaDir,
				AllowMultiple: allowMultiple,
			})
			if err != nil {
				logger.FatalKV(ctx, "Settings daemon failed", "error", err)
			}

			return nil
		},
	}
)

// Execute runs the timer-settingsd CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "path to configuration file (default "+config.DefaultConfigFilename+")")
	rootCmd.Flags().StringVarP(&storeFile, "store-file", "s", "", "path to the settings document")
	rootCmd.Flags().StringVar(&schemaDir, "schema-dir", "", "directory holding settings schemas")

	// Hidden flag to run several daemons side by side while debugging.
	rootCmd.Flags().BoolVar(&allowMultiple, "allow-multiple", false, "skip the single-instance check")

	err := rootCmd.Flags().MarkHidden("allow-multiple")
	if err != nil {
		panic(err)
	}
}
