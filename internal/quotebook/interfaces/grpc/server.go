package grpc

import (
	"github.com/wyfcoding/quotebook/internal/quotebook/application"
	"github.com/wyfcoding/quotebook/internal/quotebook/domain"
	"github.com/wyfcoding/quotebook/pkg/config"
	"github.com/wyfcoding/quotebook/pkg/metrics"
	"github.com/wyfcoding/quotebook/pkg/middleware"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName 健康检查中报价簿服务的名称
const ServiceName = "quotebook.v1.QuoteBookService"

// NewServer 创建 gRPC 服务器，注册健康检查与反射
// 快照构建前报价簿服务处于 NOT_SERVING，第一次重建成功后切换为 SERVING
func NewServer(service *application.QuoteBookService, m *metrics.Metrics, cfg config.GRPCConfig) (*grpc.Server, *health.Server) {
	srv := grpc.NewServer(serverOptions(m, cfg)...)

	healthSrv := health.NewServer()
	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	if service.Ready() {
		healthSrv.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	} else {
		healthSrv.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	}
	service.OnRebuilt(func(*domain.Snapshot) {
		healthSrv.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	})

	healthpb.RegisterHealthServer(srv, healthSrv)
	reflection.Register(srv)
	return srv, healthSrv
}

func serverOptions(m *metrics.Metrics, cfg config.GRPCConfig) []grpc.ServerOption {
	opts := []grpc.ServerOption{
		grpc.ChainUnaryInterceptor(
			middleware.GRPCRecoveryInterceptor(),
			middleware.GRPCLoggingInterceptor(m),
		),
	}
	// 0 表示使用 gRPC 默认值
	if cfg.MaxConcurrentStreams > 0 {
		opts = append(opts, grpc.MaxConcurrentStreams(uint32(cfg.MaxConcurrentStreams)))
	}
	return opts
}
