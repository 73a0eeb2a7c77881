package grpc

import (
	"DocQA/backend/go/internal/config"
	"DocQA/backend/go/pkg/circuitbreaker"
	"DocQA/backend/go/pkg/grpcinterceptor"
	"DocQA/backend/go/pkg/logger"
	"DocQA/backend/go/pkg/ratelimiter"
	"context"
	"errors"
	"fmt"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName 是健康检查中本服务的名称。
const ServiceName = "docqa"

// Server 是一个自定义的 gRPC 服务器，封装了标准的 grpc.Server，
// 内置 grpc.health.v1 健康检查以及限流、熔断拦截器。
type Server struct {
	grpcServer *grpc.Server
	health     *health.Server
	address    string
	log        *logger.Logger
}

// ServerOption 定义了用于配置 Server 的函数。
type ServerOption func(*Server)

// WithAddress 设置服务器监听的地址。
func WithAddress(addr string) ServerOption {
	return func(s *Server) {
		s.address = addr
	}
}

// NewServer 根据提供的 AppConfig 和选项创建并配置一个新的 Server 实例。
// 它会自动应用配置中启用的限流和熔断拦截器。
func NewServer(cfg *config.AppConfig, log *logger.Logger, opts ...ServerOption) (*Server, error) {
	interceptors := []grpc.UnaryServerInterceptor{grpcinterceptor.LoggingUnaryInterceptor(log)}

	// 如果启用了限流器，则添加限流拦截器。
	if cfg.Middleware.RateLimiter.Enabled {
		limiters, err := ratelimiter.NewKeyedFromConfig(cfg.Middleware.RateLimiter)
		if err != nil {
			return nil, fmt.Errorf("failed to create rate limiter: %w", err)
		}
		log.Info(fmt.Sprintf("Enabling gRPC Rate Limiter middleware with algorithm: %s", cfg.Middleware.RateLimiter.Algorithm))
		interceptors = append(interceptors, grpcinterceptor.RateLimitUnaryInterceptor(limiters))
	}

	// 如果启用了熔断器，则添加熔断拦截器。
	if cfg.Middleware.CircuitBreaker.Enabled {
		breaker, err := circuitbreaker.NewFromConfig(cfg.Middleware.CircuitBreaker,
			circuitbreaker.WithStateChange(func(from, to circuitbreaker.State) {
				log.Warn(fmt.Sprintf("gRPC circuit breaker %s -> %s", from, to))
			}))
		if err != nil {
			return nil, fmt.Errorf("failed to create circuit breaker: %w", err)
		}
		log.Info("Enabling gRPC Circuit Breaker middleware.")
		interceptors = append(interceptors, grpcinterceptor.CircuitBreakUnaryInterceptor(breaker))
	}

	// 将所有拦截器链接起来，并创建一个 gRPC 服务器实例。
	g := grpc.NewServer(grpc.ChainUnaryInterceptor(interceptors...))
	hs := health.NewServer()
	healthpb.RegisterHealthServer(g, hs)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)

	srv := &Server{
		grpcServer: g,
		health:     hs,
		address:    cfg.Server.GRPCAddress,
		log:        log,
	}

	// 应用所有传入的选项。
	for _, opt := range opts {
		opt(srv)
	}

	// 如果没有提供地址，则设置一个默认地址。
	if srv.address == "" {
		srv.address = ":9090"
	}

	return srv, nil
}

// RegisterService 暴露底层的 gRPC RegisterService 方法，用于注册服务实现。
func (s *Server) RegisterService(desc *grpc.ServiceDesc, impl interface{}) {
	s.grpcServer.RegisterService(desc, impl)
}

// SetServing 切换某个服务的健康状态。
func (s *Server) SetServing(service string, serving bool) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		st = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus(service, st)
}

// Addr 返回监听地址。
func (s *Server) Addr() string {
	return s.address
}

// Serve 在给定的 listener 上提供服务，GracefulStop 之后返回 nil。
func (s *Server) Serve(lis net.Listener) error {
	s.log.Info(fmt.Sprintf("Starting gRPC server on %s", lis.Addr()))
	if err := s.grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}

// ListenAndServe 开始监听并提供 gRPC 服务。
func (s *Server) ListenAndServe() error {
	lis, err := net.Listen("tcp", s.address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.address, err)
	}
	return s.Serve(lis)
}

// GracefulStop 先把所有服务标记为 NOT_SERVING，再优雅地停止 gRPC 服务器。
func (s *Server) GracefulStop() {
	s.health.Shutdown()
	s.grpcServer.GracefulStop()
}

// Run 一直服务到 ctx 被取消。
func (s *Server) Run(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.address, err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.Serve(lis)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	s.log.Info("Shutting down gRPC server...")
	s.GracefulStop()
	return <-errCh
}
