package rpc

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/danielpatrickdp/aisp-verify/internal/batch"
)

// Server implements VerifierServer on top of a validator.
type Server struct {
	validator batch.Validator
	logger    *slog.Logger
	health    *health.Server
}

// NewServer wraps v. A nil logger uses slog.Default.
func NewServer(v batch.Validator, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{validator: v, logger: logger, health: health.NewServer()}
}

// NewGRPCServer returns a grpc.Server with the Verifier and health services
// registered and request logging installed.
func NewGRPCServer(s *Server, opts ...grpc.ServerOption) *grpc.Server {
	opts = append(opts, grpc.ChainUnaryInterceptor(s.logCalls))
	gs := grpc.NewServer(opts...)
	s.Register(gs)
	return gs
}

// Register adds the Verifier and health services to gs and marks them
// serving.
func (s *Server) Register(gs *grpc.Server) {
	gs.RegisterService(&ServiceDesc, s)
	healthpb.RegisterHealthServer(gs, s.health)
	s.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
}

// Shutdown marks every service not serving.
func (s *Server) Shutdown() { s.health.Shutdown() }

func (s *Server) Validate(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	name, src, err := readRequest(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	res, err := s.validator.Validate(ctx, name, src)
	if err != nil {
		return nil, statusFor(err)
	}
	out, err := encodeResult(res)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

func (s *Server) Tier(ctx context.Context, req *structpb.Struct) (*wrapperspb.StringValue, error) {
	name, src, err := readRequest(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	res, err := s.validator.Validate(ctx, name, src)
	if err != nil {
		return nil, statusFor(err)
	}
	return wrapperspb.String(res.Tier), nil
}

func statusFor(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return status.FromContextError(err).Err()
	}
	return status.Error(codes.Internal, err.Error())
}

func (s *Server) logCalls(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	s.logger.Info("rpc",
		"method", info.FullMethod,
		"code", status.Code(err).String(),
		"duration_ms", time.Since(start).Milliseconds())
	return resp, err
}
