// Package metrics 提供 Prometheus 指标集合：HTTP/gRPC 请求、NBBO 查询与报价快照
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/wyfcoding/quotebook/pkg/logger"
)

// Metrics 指标集合
// 所有记录方法对 nil 接收者安全，便于在测试中省略指标
type Metrics struct {
	registry *prometheus.Registry

	// HTTP 请求计数
	HTTPRequestsTotal *prometheus.CounterVec
	// HTTP 请求耗时
	HTTPRequestDuration *prometheus.HistogramVec

	// gRPC 请求计数
	GRPCRequestsTotal *prometheus.CounterVec
	// gRPC 请求耗时
	GRPCRequestDuration prometheus.Histogram

	// NBBO 查询计数（result: ok, empty, invalid）
	QueriesTotal *prometheus.CounterVec
	// NBBO 查询耗时
	QueryDuration prometheus.Histogram
	// 每次查询的有效报价数量
	LiveQuotes prometheus.Histogram

	// 当前快照报价数量
	SnapshotQuotes prometheus.Gauge
	// 快照重建计数（status: success, failure）
	SnapshotRebuildsTotal *prometheus.CounterVec
	// 快照构建耗时
	SnapshotBuildDuration prometheus.Histogram
}

// New 创建指标实例并注册到独立的 registry
func New(serviceName string) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "trading",
			Subsystem: serviceName,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests",
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "trading",
			Subsystem: serviceName,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
		GRPCRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "trading",
			Subsystem: serviceName,
			Name:      "grpc_requests_total",
			Help:      "Total gRPC requests",
		}, []string{"method", "code"}),
		GRPCRequestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "trading",
			Subsystem: serviceName,
			Name:      "grpc_request_duration_seconds",
			Help:      "gRPC request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		QueriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "trading",
			Subsystem: serviceName,
			Name:      "nbbo_queries_total",
			Help:      "Total point-in-time NBBO queries",
		}, []string{"result"}),
		QueryDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "trading",
			Subsystem: serviceName,
			Name:      "nbbo_query_duration_seconds",
			Help:      "Point-in-time NBBO query duration in seconds",
			Buckets:   []float64{0.00001, 0.0001, 0.001, 0.01, 0.1, 1},
		}),
		LiveQuotes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "trading",
			Subsystem: serviceName,
			Name:      "nbbo_live_quotes",
			Help:      "Number of live quotes matched per query",
			Buckets:   []float64{0, 1, 5, 10, 50, 100, 1000},
		}),
		SnapshotQuotes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "trading",
			Subsystem: serviceName,
			Name:      "snapshot_quotes",
			Help:      "Number of quotes in the serving snapshot",
		}),
		SnapshotRebuildsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "trading",
			Subsystem: serviceName,
			Name:      "snapshot_rebuilds_total",
			Help:      "Total snapshot rebuild attempts",
		}, []string{"status"}),
		SnapshotBuildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "trading",
			Subsystem: serviceName,
			Name:      "snapshot_build_duration_seconds",
			Help:      "Snapshot build duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	m.registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.GRPCRequestsTotal,
		m.GRPCRequestDuration,
		m.QueriesTotal,
		m.QueryDuration,
		m.LiveQuotes,
		m.SnapshotQuotes,
		m.SnapshotRebuildsTotal,
		m.SnapshotBuildDuration,
	)
	return m
}

// Registry 返回指标所在的 registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler 返回 /metrics 处理器
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// StartHTTPServer 在独立端口启动 Prometheus HTTP 服务器
func (m *Metrics) StartHTTPServer(port int, path string) *http.Server {
	if path == "" {
		path = "/metrics"
	}
	mux := http.NewServeMux()
	mux.Handle(path, m.Handler())

	addr := fmt.Sprintf(":%d", port)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	logger.Info(context.Background(), "Starting Prometheus HTTP server", "addr", addr, "path", path)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error(context.Background(), "Prometheus HTTP server stopped", "error", err)
		}
	}()
	return srv
}

// RecordHTTPRequest 记录 HTTP 请求
func (m *Metrics) RecordHTTPRequest(method, path string, statusCode int, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(statusCode)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordGRPCRequest 记录 gRPC 请求
func (m *Metrics) RecordGRPCRequest(method, code string, duration time.Duration) {
	if m == nil {
		return
	}
	m.GRPCRequestsTotal.WithLabelValues(method, code).Inc()
	m.GRPCRequestDuration.Observe(duration.Seconds())
}

// RecordQuery 记录一次 NBBO 查询
func (m *Metrics) RecordQuery(result string, liveCount int, duration time.Duration) {
	if m == nil {
		return
	}
	m.QueriesTotal.WithLabelValues(result).Inc()
	m.QueryDuration.Observe(duration.Seconds())
	m.LiveQuotes.Observe(float64(liveCount))
}

// RecordRebuild 记录一次快照重建
func (m *Metrics) RecordRebuild(success bool, quotes int, duration time.Duration) {
	if m == nil {
		return
	}
	m.SnapshotBuildDuration.Observe(duration.Seconds())
	if !success {
		m.SnapshotRebuildsTotal.WithLabelValues("failure").Inc()
		return
	}
	m.SnapshotRebuildsTotal.WithLabelValues("success").Inc()
	m.SnapshotQuotes.Set(float64(quotes))
}
