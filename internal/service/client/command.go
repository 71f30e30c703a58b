package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/oshokin/shutdown-timer/internal/config"
	domain "github.com/oshokin/shutdown-timer/internal/domain/settings"
	"github.com/oshokin/shutdown-timer/internal/logger"
	"github.com/oshokin/shutdown-timer/internal/service/common"
)

// Options configures how the client reaches the daemon and where it prints.
type Options struct {
	// ConfigPath to YAML settings file, defaults to standard filename if empty.
	ConfigPath string
	// ServerAddress overrides the daemon address from config when specified.
	ServerAddress string
	// Output receives the printed settings, stdout when nil.
	Output io.Writer
	// RetryInterval is the pause before Watch reconnects.
	RetryInterval time.Duration
}

// defaultRetryInterval defines the reconnect delay of Watch.
const defaultRetryInterval = 1 * time.Second

// Get prints every setting.
func Get(ctx context.Context, opts *Options) error {
	return withClient(ctx, opts, func(ctx context.Context, client *common.Client) error {
		snapshot, err := client.GetSettings(ctx)
		if err != nil {
			return err
		}

		printSnapshot(opts.output(), snapshot)

		return nil
	})
}

// Set parses text according to the key type, writes it and prints the result.
func Set(ctx context.Context, opts *Options, name, text string) error {
	key, err := domain.ParseKey(name)
	if err != nil {
		return err
	}

	value, err := domain.ParseValue(key, text)
	if err != nil {
		return err
	}

	return withClient(ctx, opts, func(ctx context.Context, client *common.Client) error {
		snapshot, err := client.SetSetting(ctx, value)
		if err != nil {
			return err
		}

		logger.InfoKV(ctx, "Setting updated", "key", key.String(), "value", value.String())
		printSnapshot(opts.output(), snapshot)

		return nil
	})
}

// Reset restores the schema default of a key and prints the result.
func Reset(ctx context.Context, opts *Options, name string) error {
	key, err := domain.ParseKey(name)
	if err != nil {
		return err
	}

	return withClient(ctx, opts, func(ctx context.Context, client *common.Client) error {
		snapshot, err := client.ResetSetting(ctx, key)
		if err != nil {
			return err
		}

		logger.InfoKV(ctx, "Setting reset", "key", key.String())
		printSnapshot(opts.output(), snapshot)

		return nil
	})
}

// Watch prints the current settings and then every change as "key=value"
// lines. A lost connection is retried until the context is canceled.
func Watch(ctx context.Context, opts *Options) error {
	interval := opts.RetryInterval
	if interval <= 0 {
		interval = defaultRetryInterval
	}

	out := opts.output()

	return withClient(ctx, opts, func(ctx context.Context, client *common.Client) error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			err := client.WatchSettings(ctx, func(value domain.Value) {
				_, _ = fmt.Fprintf(out, "%s=%s\n", value.Name, value.String())
			})
			if err != nil {
				logger.ErrorKV(ctx, "Watch failed", "error", err)
			}

			select {
			case <-ctx.Done():
				logger.Info(ctx, "Context canceled, exiting")

				return nil
			case <-ticker.C:
				logger.Debugf(ctx, "Reconnecting to watch settings")
			}
		}
	})
}

// withClient loads the configuration, dials the daemon and runs fn.
func withClient(ctx context.Context, opts *Options, fn func(context.Context, *common.Client) error) error {
	ctx = logger.WithName(ctx, "timer-settings")

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}

	if err = logger.SetLevelName(cfg.LogLevel); err != nil {
		return err
	}

	serverAddress := cfg.ServerAddress
	if opts.ServerAddress != "" {
		serverAddress = opts.ServerAddress
	}

	client, err := common.Dial(ctx, serverAddress, common.WithCallTimeout(cfg.Timeout))
	if err != nil {
		return err
	}

	defer func() {
		_ = client.Close()
	}()

	ctx = logger.WithKV(ctx, "server_address", serverAddress)

	if err = fn(ctx, client); err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}

		return err
	}

	return nil
}

// output returns the configured writer or stdout.
func (o *Options) output() io.Writer {
	if o.Output != nil {
		return o.Output
	}

	return os.Stdout
}

// printSnapshot writes one "key: value" line per setting.
func printSnapshot(out io.Writer, snapshot domain.Snapshot) {
	for _, value := range snapshot.Values() {
		_, _ = fmt.Fprintf(out, "%s: %s\n", value.Name, value.String())
	}
}
