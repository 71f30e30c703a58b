package settings

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	domain "github.com/oshokin/shutdown-timer/internal/domain/settings"
	"github.com/oshokin/shutdown-timer/internal/logger"
)

// watchBuffer is the number of changes queued per watcher before new ones are dropped.
const watchBuffer = 64

// Service abstracts the settings operations the transport layer depends on.
type Service interface {
	Snapshot() domain.Snapshot
	SetValue(ctx context.Context, value domain.Value) error
	Reset(ctx context.Context, key domain.Key) error
	BindKey(key string, callback func(domain.Value)) error
}

// Server implements the SettingsService gRPC API.
type Server struct {
	// service provides the settings operations.
	service Service
	// log reports dropped notifications.
	log *zap.SugaredLogger

	// mu protects watchers and nextID.
	mu       sync.Mutex
	watchers map[int]chan domain.Value
	nextID   int
}

// NewServer wires the provided service into a gRPC handler and subscribes
// to every key once; bindings live as long as the service.
func NewServer(ctx context.Context, service Service) (*Server, error) {
	s := &Server{
		service:  service,
		log:      logger.FromContext(ctx),
		watchers: make(map[int]chan domain.Value),
	}

	for _, key := range domain.Keys() {
		if err := service.BindKey(key.String(), s.broadcast); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// GetSettings returns every setting.
func (s *Server) GetSettings(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	return SnapshotToProto(s.service.Snapshot()), nil
}

// SetSetting writes one setting, or resets it when the value is null.
func (s *Server) SetSetting(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	value, err := ChangeFromProto(req)

	switch {
	case err == nil:
		err = s.service.SetValue(ctx, value)
	case errors.Is(err, errNullValue):
		// Key was already validated by ChangeFromProto.
		key, _ := domain.ParseKey(req.GetFields()[KeyField].GetStringValue())
		err = s.service.Reset(ctx, key)
	}

	if err != nil {
		return nil, toStatus(err)
	}

	return SnapshotToProto(s.service.Snapshot()), nil
}

// WatchSettings streams the current values followed by every change until
// the client goes away.
func (s *Server) WatchSettings(_ *emptypb.Empty, stream grpc.ServerStreamingServer[structpb.Struct]) error {
	id, changes := s.subscribe()
	defer s.unsubscribe(id)

	for _, value := range s.service.Snapshot().Values() {
		if err := stream.Send(ChangeToProto(value)); err != nil {
			return err
		}
	}

	ctx := stream.Context()

	for {
		select {
		case <-ctx.Done():
			return nil
		case value := <-changes:
			if err := stream.Send(ChangeToProto(value)); err != nil {
				return err
			}
		}
	}
}

// subscribe registers a watcher channel.
func (s *Server) subscribe() (int, <-chan domain.Value) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	ch := make(chan domain.Value, watchBuffer)
	s.watchers[s.nextID] = ch

	return s.nextID, ch
}

// unsubscribe removes a watcher channel.
func (s *Server) unsubscribe(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.watchers, id)
}

// broadcast fans a change out to every watcher without blocking the
// backend dispatch.
func (s *Server) broadcast(value domain.Value) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, ch := range s.watchers {
		select {
		case ch <- value:
		default:
			s.log.Warnw("Watcher is lagging, change dropped", "watcher", id, "key", value.Name)
		}
	}
}

// toStatus maps domain errors to gRPC status codes.
func toStatus(err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, domain.ErrNotWritable):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, domain.ErrWriteFailed):
		return status.Error(codes.Internal, "unable to persist setting")
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
