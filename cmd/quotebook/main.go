package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/quotebook/internal/quotebook/application"
	"github.com/wyfcoding/quotebook/internal/quotebook/domain"
	"github.com/wyfcoding/quotebook/internal/quotebook/infrastructure/events"
	"github.com/wyfcoding/quotebook/internal/quotebook/infrastructure/persistence/mysql"
	"github.com/wyfcoding/quotebook/internal/quotebook/infrastructure/source"
	"github.com/wyfcoding/quotebook/internal/quotebook/infrastructure/source/csvsource"
	"github.com/wyfcoding/quotebook/internal/quotebook/interfaces/consumer"
	grpcserver "github.com/wyfcoding/quotebook/internal/quotebook/interfaces/grpc"
	httpserver "github.com/wyfcoding/quotebook/internal/quotebook/interfaces/http"
	"github.com/wyfcoding/quotebook/pkg/cache"
	"github.com/wyfcoding/quotebook/pkg/config"
	"github.com/wyfcoding/quotebook/pkg/db"
	"github.com/wyfcoding/quotebook/pkg/grpcclient"
	"github.com/wyfcoding/quotebook/pkg/logger"
	"github.com/wyfcoding/quotebook/pkg/metrics"
	"github.com/wyfcoding/quotebook/pkg/middleware"
	"github.com/wyfcoding/quotebook/pkg/mq"
	"github.com/wyfcoding/quotebook/pkg/ratelimit"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

var (
	configPath = flag.String("config", "configs/quotebook/config.toml", "config file path")
	importCSV  = flag.String("import-csv", "", "import a quote CSV file into MySQL and exit")
	probe      = flag.Bool("healthcheck", false, "probe the local gRPC health endpoint and exit")
)

func main() {
	flag.Parse()

	// 1. Config（支持热更新）
	var current atomic.Pointer[application.QuoteBookService]
	cfg, err := config.Watch(*configPath, func(next *config.Config) {
		svc := current.Load()
		if svc == nil {
			return
		}
		if err := svc.UpdateSettings(next.QuoteBook.ResultLimit, next.QuoteBook.WindowBoundary); err != nil {
			slog.Warn("failed to apply reloaded settings", "error", err)
			return
		}
		slog.Info("quotebook settings updated",
			"result_limit", next.QuoteBook.ResultLimit,
			"window_boundary", next.QuoteBook.WindowBoundary,
		)
	})
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	// 2. Logger
	if _, err := logger.Init(cfg.Logger); err != nil {
		panic(fmt.Sprintf("failed to init logger: %v", err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *probe {
		if err := runHealthcheck(ctx, cfg); err != nil {
			slog.Error("healthcheck failed", "error", err)
			os.Exit(1)
		}
		return
	}

	if *importCSV != "" {
		if err := runImport(ctx, cfg, *importCSV); err != nil {
			slog.Error("import failed", "error", err)
			os.Exit(1)
		}
		return
	}

	// 3. Metrics
	metricsImpl := metrics.New(cfg.Server.Name)
	var metricsSrv *http.Server
	if cfg.Metrics.Enabled {
		metricsSrv = metricsImpl.StartHTTPServer(cfg.Metrics.Port, cfg.Metrics.Path)
	}

	// 4. Quote source
	quoteSource, cleanupSource, err := newQuoteSource(ctx, cfg)
	if err != nil {
		slog.Error("failed to create quote source", "error", err)
		os.Exit(1)
	}
	defer cleanupSource()

	// 5. Event publisher
	var publisher domain.EventPublisher = events.LogPublisher{}
	if cfg.QuoteBook.Events.Enabled {
		producer := mq.NewProducer(cfg.Kafka)
		defer producer.Close()
		publisher = producer
	}

	// 6. Application
	svc, err := application.NewQuoteBookService(quoteSource, publisher, metricsImpl, application.ServiceConfig{
		ResultLimit:    cfg.QuoteBook.ResultLimit,
		WindowBoundary: cfg.QuoteBook.WindowBoundary,
		SnapshotTopic:  cfg.QuoteBook.Events.SnapshotTopic,
		NodeID:         1,
	})
	if err != nil {
		slog.Error("failed to create quotebook service", "error", err)
		os.Exit(1)
	}
	current.Store(svc)

	// 7. Interfaces
	grpcSrv, _ := grpcserver.NewServer(svc, metricsImpl, cfg.Server.GRPC)

	limiter, cleanupLimiter := newRateLimiter(ctx, cfg.RateLimit, cfg.Redis)
	defer cleanupLimiter()

	gin.SetMode(gin.ReleaseMode)
	if cfg.Server.Environment == "dev" {
		gin.SetMode(gin.DebugMode)
	}
	r := gin.New()
	r.Use(
		middleware.GinRecoveryMiddleware(),
		middleware.GinLoggingMiddleware(),
		middleware.GinMetricsMiddleware(metricsImpl),
		middleware.GinCORSMiddleware(),
		middleware.RateLimitMiddleware(limiter, cfg.RateLimit),
	)
	httpserver.NewHandler(svc, cfg.QuoteBook.DefaultSymbol, cfg.QuoteBook.DefaultPointInTime).RegisterRoutes(r)

	httpSrv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.HTTP.Host, cfg.Server.HTTP.Port),
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.Server.HTTP.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.HTTP.WriteTimeout) * time.Second,
	}

	// 8. Initial snapshot
	if _, err := svc.Rebuild(ctx); err != nil {
		// 服务照常启动，健康检查保持未就绪，等待下一次重建
		slog.Error("initial snapshot build failed", "error", err)
	}

	// 9. Start
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		addr := fmt.Sprintf("%s:%d", cfg.Server.GRPC.Host, cfg.Server.GRPC.Port)
		lis, err := net.Listen("tcp", addr)
		if err != nil {
			return err
		}
		slog.Info("gRPC server starting", "addr", addr)
		return grpcSrv.Serve(lis)
	})

	g.Go(func() error {
		slog.Info("HTTP server starting", "addr", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return svc.RunRefresher(gctx, cfg.QuoteBook.RefreshEvery())
	})

	if cfg.QuoteBook.Events.Enabled && cfg.QuoteBook.Events.RebuildTopic != "" {
		kafkaConsumer := mq.NewConsumer(cfg.Kafka, cfg.QuoteBook.Events.RebuildTopic)
		defer kafkaConsumer.Close()
		handler := consumer.NewRebuildRequestHandler(consumer.RebuildFunc(func(ctx context.Context) (uint64, error) {
			snap, err := svc.Rebuild(ctx)
			if err != nil {
				return 0, err
			}
			return snap.ID, nil
		}))
		g.Go(func() error {
			return kafkaConsumer.Consume(gctx, handler.Handle)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down servers...")
		shutdown(grpcSrv, httpSrv, metricsSrv)
		return nil
	})

	if err := g.Wait(); err != nil {
		slog.Error("server exited with error", "error", err)
	}
}

func shutdown(grpcSrv *grpc.Server, httpSrv, metricsSrv *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(ctx); err != nil {
		slog.Error("HTTP server shutdown failed", "error", err)
	}
	if metricsSrv != nil {
		if err := metricsSrv.Shutdown(ctx); err != nil {
			slog.Error("metrics server shutdown failed", "error", err)
		}
	}
	grpcSrv.GracefulStop()
}

// newQuoteSource 按 quotebook.source.driver 选择报价来源，并包装重试与熔断
func newQuoteSource(ctx context.Context, cfg *config.Config) (domain.QuoteSource, func(), error) {
	var (
		next    domain.QuoteSource
		cleanup = func() {}
	)
	switch cfg.QuoteBook.Source.Driver {
	case "mysql":
		gdb, err := db.Init(ctx, cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		next = mysql.NewQuoteSource(gdb)
		cleanup = func() {
			if err := db.Close(gdb); err != nil {
				slog.Error("failed to close database", "error", err)
			}
		}
	default:
		next = csvsource.New(cfg.QuoteBook.Source.Path)
	}
	return source.NewResilient(next, cfg.QuoteBook.Retry, cfg.CircuitBreaker), cleanup, nil
}

// newRateLimiter redis 后端不可用时退回进程内限流
func newRateLimiter(ctx context.Context, cfg config.RateLimitConfig, redisCfg config.RedisConfig) (ratelimit.RateLimiter, func()) {
	if !cfg.Enabled {
		return nil, func() {}
	}
	if cfg.Backend == "redis" {
		client, cleanup, err := cache.NewClient(ctx, redisCfg)
		if err == nil {
			return ratelimit.NewRedisRateLimiter(client), cleanup
		}
		slog.Warn("redis rate limiter unavailable, falling back to local", "error", err)
	}
	return ratelimit.NewLocalRateLimiter(), func() {}
}

// runHealthcheck 探测本机 gRPC 健康接口，快照未就绪时返回错误
func runHealthcheck(ctx context.Context, cfg *config.Config) error {
	conn, err := grpcclient.NewClient(grpcclient.ClientConfig{
		Target:         fmt.Sprintf("127.0.0.1:%d", cfg.Server.GRPC.Port),
		ConnTimeout:    3,
		RequestTimeout: 3,
		MaxRetries:     2,
		RetryDelay:     200,
	})
	if err != nil {
		return err
	}
	defer conn.Close()

	st, err := grpcclient.CheckHealth(ctx, conn, grpcserver.ServiceName)
	if err != nil {
		return err
	}
	if st != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("%s is %s", grpcserver.ServiceName, st)
	}
	return nil
}

// runImport 把 CSV 报价导入 MySQL 报价表
func runImport(ctx context.Context, cfg *config.Config, path string) error {
	quotes, err := csvsource.New(path).Load(ctx)
	if err != nil {
		return err
	}

	gdb, err := db.Init(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close(gdb)

	repo := mysql.NewQuoteSource(gdb)
	if err := repo.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}
	if err := repo.Import(ctx, quotes); err != nil {
		return err
	}
	slog.Info("quotes imported", "file", path, "count", len(quotes))
	return nil
}
