//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/emptypb"

	api "github.com/oshokin/shutdown-timer/internal/api/grpc/settings"
	"github.com/oshokin/shutdown-timer/internal/config"
	domain "github.com/oshokin/shutdown-timer/internal/domain/settings"
)

// Client wraps the settings gRPC client with convenience helpers.
type Client struct {
	// conn is the underlying gRPC connection to the daemon.
	conn *grpc.ClientConn
	// api is the settings service client.
	api *api.SettingsServiceClient

	// callTimeout is the default timeout for unary calls.
	callTimeout time.Duration
}

// Option configures client behaviour.
type Option func(*Client)

// WithCallTimeout sets a default timeout for unary calls.
func WithCallTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.callTimeout = timeout
		}
	}
}

// errAddressRequired is returned when a required address value is missing.
var errAddressRequired = errors.New("address must be provided")

// Dial prepares a gRPC connection to the settings daemon.
// The daemon is expected on localhost, so the transport is not encrypted.
func Dial(_ context.Context, address string, opts ...Option) (*Client, error) {
	if address == "" {
		return nil, errAddressRequired
	}

	conn, err := grpc.NewClient(address, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("dial settings daemon: %w", err)
	}

	client := &Client{
		conn:        conn,
		api:         api.NewSettingsServiceClient(conn),
		callTimeout: config.DefaultTimeout,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

// Close releases the underlying gRPC connection.
func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}

	return c.conn.Close()
}

// GetSettings retrieves every setting.
func (c *Client) GetSettings(ctx context.Context) (domain.Snapshot, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	resp, err := c.api.GetSettings(callCtx, new(emptypb.Empty))
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("get settings: %w", err)
	}

	return api.SnapshotFromProto(resp)
}

// SetSetting writes one setting and returns the settings afterwards.
func (c *Client) SetSetting(ctx context.Context, value domain.Value) (domain.Snapshot, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	resp, err := c.api.SetSetting(callCtx, api.ChangeToProto(value))
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("set %s: %w", value.Name, err)
	}

	return api.SnapshotFromProto(resp)
}

// ResetSetting restores the default of key and returns the settings afterwards.
func (c *Client) ResetSetting(ctx context.Context, key domain.Key) (domain.Snapshot, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	resp, err := c.api.SetSetting(callCtx, api.ResetToProto(key))
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("reset %s: %w", key, err)
	}

	return api.SnapshotFromProto(resp)
}

// WatchSettings calls fn with the current values and then with every change
// until the context is canceled or the stream ends. The stream has no call
// timeout.
func (c *Client) WatchSettings(ctx context.Context, fn func(domain.Value)) error {
	stream, err := c.api.WatchSettings(ctx, new(emptypb.Empty))
	if err != nil {
		return fmt.Errorf("watch settings: %w", err)
	}

	for {
		msg, err := stream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				return nil
			}

			return fmt.Errorf("receive change: %w", err)
		}

		value, err := api.ChangeFromProto(msg)
		if err != nil {
			return fmt.Errorf("decode change: %w", err)
		}

		fn(value)
	}
}

// callContext returns a context with the client's call timeout if configured,
// otherwise a cancellable child context without a deadline.
func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, c.callTimeout)
}
