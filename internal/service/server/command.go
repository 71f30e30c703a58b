package server

import (
	"context"
	"errors"
	"fmt"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	api "github.com/oshokin/shutdown-timer/internal/api/grpc/settings"
	"github.com/oshokin/shutdown-timer/internal/config"
	"github.com/oshokin/shutdown-timer/internal/logger"
	"github.com/oshokin/shutdown-timer/internal/service/common"
	"github.com/oshokin/shutdown-timer/internal/service/settings"
)

// Options controls the daemon process and configuration.
type Options struct {
	// ConfigPath specifies the path to the settings YAML file.
	ConfigPath string
	// ListenAddress overrides the listen address derived from the configuration.
	ListenAddress string
	// StoreFile overrides the path of the settings document.
	StoreFile string
	// SchemaDir overrides the schema directory.
	SchemaDir string
	// AllowMultiple skips the single-instance check.
	AllowMultiple bool
	// Ready, when set, receives the bound listen address once serving starts.
	Ready chan<- string
}

// ErrNoServerAddress indicates missing server configuration.
var ErrNoServerAddress = errors.New("no server address configured")

// Run opens the store and serves it over gRPC. It blocks until the context
// is canceled or the server stops. A schema that cannot be found aborts
// start-up: the store has no degraded mode.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "timer-settingsd")

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	if err = logger.SetLevelName(cfg.LogLevel); err != nil {
		return err
	}

	if !opts.AllowMultiple {
		if err = common.EnsureSingleInstance(); err != nil {
			return err
		}
	}

	storeOptions := &settings.Options{
		SchemaDir: firstNonEmpty(opts.SchemaDir, cfg.SchemaDir),
		SchemaID:  cfg.SchemaID,
		StoreFile: firstNonEmpty(opts.StoreFile, cfg.StoreFile),
	}

	listenAddress, err := resolveListenAddress(cfg.ServerAddress, opts.ListenAddress)
	if err != nil {
		return fmt.Errorf("resolve listen address: %w", err)
	}

	store, err := settings.Open(storeOptions)
	if err != nil {
		return fmt.Errorf("open settings store: %w", err)
	}

	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			logger.ErrorKV(ctx, "Failed to close settings store", "error", closeErr)
		}
	}()

	handler, err := api.NewServer(ctx, store)
	if err != nil {
		return fmt.Errorf("initialise transport: %w", err)
	}

	lc := net.ListenConfig{}

	lis, err := lc.Listen(ctx, "tcp", listenAddress)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", listenAddress, err)
	}

	grpcServer := grpc.NewServer()
	api.RegisterSettingsServiceServer(grpcServer, handler)

	healthServer := health.NewServer()
	healthServer.SetServingStatus(api.ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcServer, healthServer)

	ctx = logger.WithFields(ctx, map[string]any{
		"store_file": storeOptions.StoreFile,
		"schema_dir": storeOptions.SchemaDir,
	})

	logger.InfoKV(ctx, "Settings daemon listening", "listen_address", lis.Addr().String())

	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()

	go func() {
		if watchErr := store.Watch(watchCtx); watchErr != nil {
			logger.ErrorKV(ctx, "Store watcher stopped", "error", watchErr)
		}
	}()

	// Done channel is closed after GracefulStop finishes to ensure we block
	// until the server fully stops before returning.
	done := make(chan struct{})

	go func() {
		<-ctx.Done()
		logger.Info(ctx, "Shutting down gRPC server")
		healthServer.Shutdown()
		grpcServer.GracefulStop()
		close(done)
	}()

	if opts.Ready != nil {
		opts.Ready <- lis.Addr().String()
	}

	if err = grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("serve gRPC: %w", err)
	}

	<-done
	logger.Info(ctx, "GRPC server stopped")

	return nil
}

// resolveListenAddress determines the listen address for the gRPC server.
// An override is used as is, otherwise the port of configAddr is bound on the
// same host.
func resolveListenAddress(configAddr, override string) (string, error) {
	if override != "" {
		return override, nil
	}

	if configAddr == "" {
		return "", ErrNoServerAddress
	}

	host, port, err := net.SplitHostPort(configAddr)
	if err != nil {
		return "", fmt.Errorf("invalid server address format %q: %w", configAddr, err)
	}

	return net.JoinHostPort(host, port), nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}

	return ""
}
