package grpcserver

import (
	"context"
	"encoding/json"
	"net"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"poRequestTracker/internal/auth"
	"poRequestTracker/internal/health"
	"poRequestTracker/models"
	"poRequestTracker/repository"
)

const (
	healthCheckMethod = "/grpc.health.v1.Health/Check"

	StorageServiceName   = "storage.v1.Storage"
	GetStatusMethod      = "/storage.v1.Storage/GetStatus"
	GetSetupReportMethod = "/storage.v1.Storage/GetSetupReport"
)

// How often the health service re-runs the checkers.
const defaultHealthInterval = 30 * time.Second

// StorageService reports where data lives and whether it survives a redeploy.
type StorageService interface {
	GetStatus(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	GetSetupReport(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

// StorageServer implements StorageService on top of the health manager.
type StorageServer struct {
	Health   *health.Manager
	Verifier *health.Verifier
	Users    *repository.UserRepository
}

// GetStatus returns the persistence report. Office and admin users only.
func (s *StorageServer) GetStatus(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	if _, err := auth.RequireKind(ctx, models.RoleOffice, models.RoleAdmin); err != nil {
		return nil, err
	}
	return toStruct(s.Health.Health(ctx))
}

// GetSetupReport returns the configuration report. The caller must be an admin
// in the users table, not just carry an admin claim.
func (s *StorageServer) GetSetupReport(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	if _, err := auth.RequireAdmin(ctx, s.Users); err != nil {
		return nil, err
	}
	if s.Verifier == nil {
		return nil, status.Error(codes.Unavailable, "setup report not configured")
	}
	return toStruct(s.Verifier.Verify(ctx))
}

// toStruct converts v through its JSON form so field names match the HTTP API.
func toStruct(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode: %v", err)
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(b, out); err != nil {
		return nil, status.Errorf(codes.Internal, "encode: %v", err)
	}
	return out, nil
}

func unaryHandler(method string, call func(StorageService, context.Context, *structpb.Struct) (*structpb.Struct, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := &structpb.Struct{}
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(StorageService), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
		return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
			return call(srv.(StorageService), ctx, req.(*structpb.Struct))
		})
	}
}

var storageServiceDesc = grpc.ServiceDesc{
	ServiceName: StorageServiceName,
	HandlerType: (*StorageService)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetStatus", Handler: unaryHandler(GetStatusMethod, StorageService.GetStatus)},
		{MethodName: "GetSetupReport", Handler: unaryHandler(GetSetupReportMethod, StorageService.GetSetupReport)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "storage/v1/storage.proto",
}

// Options configures the gRPC server.
type Options struct {
	Address        string
	Secret         string
	Sessions       *auth.Sessions // optional; rejects tokens of logged-out sessions
	HealthInterval time.Duration
	Logger         zerolog.Logger
}

// Server is the gRPC listener with the health and storage services registered.
type Server struct {
	grpc    *grpc.Server
	health  *grpchealth.Server
	checks  *health.Manager
	opts    Options
	stopped chan struct{}
}

// New registers the services. Everything except the health check requires a bearer token.
func New(opts Options, storage *StorageServer) *Server {
	if opts.HealthInterval <= 0 {
		opts.HealthInterval = defaultHealthInterval
	}
	gs := grpc.NewServer(grpc.UnaryInterceptor(auth.NewUnaryAuthInterceptor(opts.Secret, opts.Sessions, healthCheckMethod)))
	hs := grpchealth.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	gs.RegisterService(&storageServiceDesc, storage)

	s := &Server{grpc: gs, health: hs, checks: storage.Health, opts: opts, stopped: make(chan struct{})}
	s.refresh(context.Background())
	return s
}

// refresh maps the health manager's verdict onto the gRPC serving status.
func (s *Server) refresh(ctx context.Context) {
	st := healthpb.HealthCheckResponse_SERVING
	if !s.checks.Serving(ctx) {
		st = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(StorageServiceName, st)
}

// Serve accepts connections on lis and refreshes the health status until
// Shutdown is called.
func (s *Server) Serve(lis net.Listener) error {
	go func() {
		t := time.NewTicker(s.opts.HealthInterval)
		defer t.Stop()
		for {
			select {
			case <-s.stopped:
				return
			case <-t.C:
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				s.refresh(ctx)
				cancel()
			}
		}
	}()
	s.opts.Logger.Info().Str("address", lis.Addr().String()).Msg("gRPC server listening")
	return s.grpc.Serve(lis)
}

// ListenAndServe listens on the configured address.
func (s *Server) ListenAndServe() error {
	addr := s.opts.Address
	if addr == "" {
		addr = ":50051"
	}
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(lis)
}

// Shutdown stops gracefully, or forcibly once ctx is done.
func (s *Server) Shutdown(ctx context.Context) error {
	select {
	case <-s.stopped:
	default:
		close(s.stopped)
	}
	s.health.Shutdown()
	done := make(chan struct{})
	go func() { s.grpc.GracefulStop(); close(done) }()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		s.grpc.Stop()
		return ctx.Err()
	}
}
