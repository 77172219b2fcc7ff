package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"runtime"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/magefree/deckplay-server-go/internal/config"
	"github.com/magefree/deckplay-server-go/internal/session"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "deckplay.v1.DeckBuilder"

// DeckBuilderServer is the gRPC surface over session.Manager. Messages are
// google.protobuf.Struct values carrying the same JSON shapes the websocket
// hub uses.
type DeckBuilderServer interface {
	Execute(context.Context, *structpb.Struct) (*structpb.Struct, error)
	View(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Export(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Import(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// DeckBuilderServiceDesc describes ServiceName for grpc.Server.RegisterService.
var DeckBuilderServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*DeckBuilderServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Execute", Handler: unaryHandler("Execute", DeckBuilderServer.Execute)},
		{MethodName: "View", Handler: unaryHandler("View", DeckBuilderServer.View)},
		{MethodName: "Export", Handler: unaryHandler("Export", DeckBuilderServer.Export)},
		{MethodName: "Import", Handler: unaryHandler("Import", DeckBuilderServer.Import)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "deckplay/v1/deckbuilder.proto",
}

func unaryHandler(method string, call func(DeckBuilderServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) grpc.MethodHandler {
	fullMethod := "/" + ServiceName + "/" + method
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(DeckBuilderServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(DeckBuilderServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// deckBuilderServer implements DeckBuilderServer.
type deckBuilderServer struct {
	manager *session.Manager
	admin   *AdminAuth
	logger  *zap.Logger
}

// NewDeckBuilderServer returns the service implementation.
func NewDeckBuilderServer(manager *session.Manager, admin *AdminAuth, logger *zap.Logger) DeckBuilderServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &deckBuilderServer{manager: manager, admin: admin, logger: logger}
}

type executeRequest struct {
	Key     string          `json:"key"`
	Command session.Command `json:"command"`
}

type viewRequest struct {
	Key string `json:"key"`
}

func (s *deckBuilderServer) Execute(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in executeRequest
	if err := fromStruct(req, &in); err != nil {
		return failure("malformed request")
	}
	resp, err := s.manager.Execute(ctx, in.Key, in.Command)
	if err != nil {
		return failure(err.Error())
	}
	return toStruct(resp)
}

func (s *deckBuilderServer) View(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in viewRequest
	if err := fromStruct(req, &in); err != nil {
		return failure("malformed request")
	}
	view, err := s.manager.View(ctx, in.Key)
	if err != nil {
		return failure(err.Error())
	}
	return toStruct(map[string]any{"success": true, "view": view})
}

func (s *deckBuilderServer) Export(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in adminRequest
	if err := fromStruct(req, &in); err != nil {
		return failure("malformed request")
	}
	if err := s.admin.Check(in.Password); err != nil {
		s.logger.Warn("export denied", zap.String("host", extractHostFromContext(ctx)))
		return failure(err.Error())
	}
	bundle, err := s.manager.Export(ctx)
	if err != nil {
		s.logger.Error("export failed", zap.Error(err))
		return failure("export failed")
	}
	return toStruct(map[string]any{"success": true, "bundle": string(bundle)})
}

// Import expects the bundle as a JSON string in "bundle".
func (s *deckBuilderServer) Import(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.GetFields()
	if err := s.admin.Check(fields["password"].GetStringValue()); err != nil {
		s.logger.Warn("import denied", zap.String("host", extractHostFromContext(ctx)))
		return failure(err.Error())
	}
	raw := []byte(fields["bundle"].GetStringValue())
	backupKey, err := s.manager.Import(ctx, raw, fields["confirm"].GetBoolValue())
	if err != nil {
		return failure(err.Error())
	}
	s.logger.Info("import applied", zap.String("backup_key", backupKey))
	return toStruct(map[string]any{"success": true, "backup_key": backupKey})
}

func failure(msg string) (*structpb.Struct, error) {
	return toStruct(map[string]any{"success": false, "error": msg})
}

func toStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	out := &structpb.Struct{}
	if err := out.UnmarshalJSON(raw); err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return out, nil
}

func fromStruct(in *structpb.Struct, v any) error {
	raw, err := in.MarshalJSON()
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

// NewGRPCServer builds a grpc.Server with the deck builder and health services.
func NewGRPCServer(cfg config.GRPCConfig, manager *session.Manager, admin *AdminAuth, logger *zap.Logger) (*grpc.Server, *health.Server) {
	opts := []grpc.ServerOption{
		grpc.UnaryInterceptor(ChainUnaryInterceptors(
			RecoveryInterceptor(logger),
			LoggingInterceptor(logger),
		)),
		grpc.KeepaliveParams(keepalive.ServerParameters{
			Time:    30 * time.Second,
			Timeout: 10 * time.Second,
		}),
	}
	if cfg.MaxConcurrentStreams > 0 {
		opts = append(opts, grpc.MaxConcurrentStreams(uint32(cfg.MaxConcurrentStreams)))
	}

	srv := grpc.NewServer(opts...)
	srv.RegisterService(&DeckBuilderServiceDesc, NewDeckBuilderServer(manager, admin, logger))

	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(srv, healthSrv)
	healthSrv.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	return srv, healthSrv
}

// ChainUnaryInterceptors runs interceptors in order, the first outermost.
func ChainUnaryInterceptors(interceptors ...grpc.UnaryServerInterceptor) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		chained := handler
		for i := len(interceptors) - 1; i >= 0; i-- {
			next, interceptor := chained, interceptors[i]
			chained = func(ctx context.Context, req any) (any, error) {
				return interceptor(ctx, req, info, next)
			}
		}
		return chained(ctx, req)
	}
}

// RecoveryInterceptor turns handler panics into codes.Internal.
func RecoveryInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		defer func() {
			if r := recover(); r != nil {
				buf := make([]byte, 4096)
				buf = buf[:runtime.Stack(buf, false)]
				logger.Error("panic in gRPC handler",
					zap.String("method", info.FullMethod),
					zap.Any("panic", r),
					zap.ByteString("stack", buf),
				)
				err = status.Error(codes.Internal, fmt.Sprintf("internal error in %s", info.FullMethod))
			}
		}()
		return handler(ctx, req)
	}
}

// LoggingInterceptor logs each call with its duration and status code.
func LoggingInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		logger.Debug("gRPC call",
			zap.String("method", info.FullMethod),
			zap.String("host", extractHostFromContext(ctx)),
			zap.Duration("duration", time.Since(start)),
			zap.String("code", status.Code(err).String()),
		)
		return resp, err
	}
}

func extractHostFromContext(ctx context.Context) string {
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		if host, _, err := net.SplitHostPort(p.Addr.String()); err == nil {
			return host
		}
		return p.Addr.String()
	}
	return "unknown"
}

// DeckBuilderClient calls ServiceName over a client connection.
type DeckBuilderClient struct {
	cc grpc.ClientConnInterface
}

// NewDeckBuilderClient wraps cc.
func NewDeckBuilderClient(cc grpc.ClientConnInterface) *DeckBuilderClient {
	return &DeckBuilderClient{cc: cc}
}

// Call invokes method with req encoded as a Struct and decodes the reply into out.
func (c *DeckBuilderClient) Call(ctx context.Context, method string, req any, out any) error {
	in, err := toStruct(req)
	if err != nil {
		return err
	}
	reply := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, reply); err != nil {
		return err
	}
	return fromStruct(reply, out)
}
