package rpc

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/danielpatrickdp/twin-engine/internal/engine"
	"github.com/danielpatrickdp/twin-engine/internal/metrics"
)

// subscribeBuffer bounds results queued per streaming client.
const subscribeBuffer = 16

// #region server-struct

// Server exposes one controller over gRPC.
type Server struct {
	ctrl    *engine.Controller
	metrics *metrics.Metrics
	logger  *slog.Logger
	health  *health.Server

	stopOnce sync.Once
	stopped  chan struct{}
}

// NewServer wraps ctrl. m may be nil.
func NewServer(ctrl *engine.Controller, m *metrics.Metrics, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		ctrl:    ctrl,
		metrics: m,
		logger:  logger.With("component", "rpc"),
		health:  health.NewServer(),
		stopped: make(chan struct{}),
	}
}

// Register installs the simulation and health services on g.
func (s *Server) Register(g *grpc.Server) {
	RegisterSimulationServer(g, s)
	healthpb.RegisterHealthServer(g, s.health)
	s.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
}

// Shutdown marks every service NOT_SERVING and ends open Subscribe streams.
func (s *Server) Shutdown() {
	s.stopOnce.Do(func() {
		s.health.Shutdown()
		close(s.stopped)
	})
}

// #endregion server-struct

// #region unary

// SetInput applies one factor update.
func (s *Server) SetInput(_ context.Context, in *structpb.Struct) (*emptypb.Empty, error) {
	name, value, err := decodeSetInput(in)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if err := s.ctrl.SetInput(name, value); err != nil {
		if errors.Is(err, engine.ErrInvalidInput) {
			s.metrics.InvalidInput(s.factorLabel(name))
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
		return nil, status.Error(codes.Internal, err.Error())
	}
	return &emptypb.Empty{}, nil
}

// Run starts or joins a run and returns its result.
func (s *Server) Run(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	res, err := s.ctrl.Run(ctx)
	if err != nil {
		return nil, status.FromContextError(err).Err()
	}
	return encodeResult(res), nil
}

// State reports the controller snapshot.
func (s *Server) State(_ context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return encodeSnapshot(s.ctrl.CurrentState()), nil
}

// factorLabel keeps metric label values within the model's factor names.
func (s *Server) factorLabel(name string) string {
	if _, ok := s.ctrl.Model().Lookup(name); ok {
		return name
	}
	return metrics.UnknownFactor
}

// #endregion unary

// #region subscribe

// Subscribe streams every completed result until the client goes away or the
// server shuts down.
// A slow client drops the oldest queued results; only the latest is authoritative.
func (s *Server) Subscribe(_ *emptypb.Empty, stream grpc.ServerStreamingServer[structpb.Struct]) error {
	ctx := stream.Context()
	queue := make(chan engine.Result, subscribeBuffer)

	unsubscribe := s.ctrl.Subscribe(func(res engine.Result) error {
		for {
			select {
			case queue <- res:
				return nil
			default:
			}
			select {
			case dropped := <-queue:
				s.logger.Warn("subscriber lagging, dropped result", "run_id", dropped.RunID)
			default:
			}
		}
	})
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.stopped:
			return nil
		case res := <-queue:
			if err := stream.Send(encodeResult(res)); err != nil {
				return err
			}
		}
	}
}

// #endregion subscribe
