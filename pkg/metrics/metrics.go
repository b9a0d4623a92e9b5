// Package metrics 提供定价服务的 Prometheus 指标
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/wyfcoding/lsmpricing/pkg/logger"
)

const namespace = "lsm"

// Metrics 指标集合，nil 接收者上的记录方法为空操作
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	GRPCRequestsTotal   *prometheus.CounterVec
	GRPCRequestDuration *prometheus.HistogramVec

	PricingRequestsTotal *prometheus.CounterVec
	PricingDuration      *prometheus.HistogramVec
	SimulatedPaths       prometheus.Counter
	DegenerateDates      prometheus.Counter
	CacheLookupsTotal    *prometheus.CounterVec
	ConvergenceRuns      *prometheus.CounterVec
	OutboxPending        prometheus.Gauge
	OutboxDelivered      *prometheus.CounterVec
}

// New 创建指标实例
func New(serviceName string) *Metrics {
	opts := func(name, help string) prometheus.Opts {
		return prometheus.Opts{Namespace: namespace, Subsystem: serviceName, Name: name, Help: help}
	}
	histOpts := func(name, help string, buckets []float64) prometheus.HistogramOpts {
		return prometheus.HistogramOpts{Namespace: namespace, Subsystem: serviceName, Name: name, Help: help, Buckets: buckets}
	}

	return &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts(opts("http_requests_total", "Total HTTP requests")),
			[]string{"method", "path", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(histOpts("http_request_duration_seconds", "HTTP request duration in seconds", prometheus.DefBuckets),
			[]string{"method", "path"}),
		GRPCRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts(opts("grpc_requests_total", "Total gRPC requests")),
			[]string{"method", "code"}),
		GRPCRequestDuration: prometheus.NewHistogramVec(histOpts("grpc_request_duration_seconds", "gRPC request duration in seconds", prometheus.DefBuckets),
			[]string{"method"}),

		PricingRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts(opts("pricing_requests_total", "Total option pricing requests")),
			[]string{"process", "option_type", "status"}),
		PricingDuration: prometheus.NewHistogramVec(histOpts("pricing_duration_seconds", "Monte Carlo pricing duration in seconds",
			prometheus.ExponentialBuckets(0.005, 2, 14)), []string{"process"}),
		SimulatedPaths: prometheus.NewCounter(prometheus.CounterOpts(opts("simulated_paths_total", "Total simulated price paths"))),
		DegenerateDates: prometheus.NewCounter(prometheus.CounterOpts(opts("degenerate_regression_dates_total",
			"Exercise dates skipped because the regression was degenerate"))),
		CacheLookupsTotal: prometheus.NewCounterVec(prometheus.CounterOpts(opts("cache_lookups_total", "Pricing result cache lookups")),
			[]string{"result"}),
		ConvergenceRuns: prometheus.NewCounterVec(prometheus.CounterOpts(opts("convergence_runs_total", "Convergence analyses run")),
			[]string{"kind", "status"}),
		OutboxPending: prometheus.NewGauge(prometheus.GaugeOpts(opts("outbox_pending", "Outbox messages waiting for delivery"))),
		OutboxDelivered: prometheus.NewCounterVec(prometheus.CounterOpts(opts("outbox_delivered_total", "Outbox delivery attempts")),
			[]string{"status"}),
	}
}

// Register 向 reg 注册所有指标，reg 为 nil 时使用默认注册器
func (m *Metrics) Register(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	collectors := []prometheus.Collector{
		m.HTTPRequestsTotal, m.HTTPRequestDuration,
		m.GRPCRequestsTotal, m.GRPCRequestDuration,
		m.PricingRequestsTotal, m.PricingDuration, m.SimulatedPaths, m.DegenerateDates,
		m.CacheLookupsTotal, m.ConvergenceRuns, m.OutboxPending, m.OutboxDelivered,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			logger.Error(context.Background(), "Failed to register metric", "error", err)
			return err
		}
	}
	logger.Info(context.Background(), "Metrics registered successfully")
	return nil
}

// RecordHTTPRequest 记录 HTTP 请求
func (m *Metrics) RecordHTTPRequest(method, path string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, path, fmt.Sprint(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(d.Seconds())
}

// RecordGRPCRequest 记录 gRPC 请求
func (m *Metrics) RecordGRPCRequest(method, code string, d time.Duration) {
	if m == nil {
		return
	}
	m.GRPCRequestsTotal.WithLabelValues(method, code).Inc()
	m.GRPCRequestDuration.WithLabelValues(method).Observe(d.Seconds())
}

// RecordPricing 记录一次定价调用
func (m *Metrics) RecordPricing(process, optionType string, err error, paths, degenerate int, d time.Duration) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.PricingRequestsTotal.WithLabelValues(process, optionType, status).Inc()
	if err != nil {
		return
	}
	m.PricingDuration.WithLabelValues(process).Observe(d.Seconds())
	m.SimulatedPaths.Add(float64(paths))
	m.DegenerateDates.Add(float64(degenerate))
}

// RecordCacheLookup 记录缓存命中情况
func (m *Metrics) RecordCacheLookup(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.CacheLookupsTotal.WithLabelValues("hit").Inc()
		return
	}
	m.CacheLookupsTotal.WithLabelValues("miss").Inc()
}

// RecordConvergence 记录收敛分析
func (m *Metrics) RecordConvergence(kind string, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.ConvergenceRuns.WithLabelValues(kind, status).Inc()
}

// RecordOutbox 记录发件箱投递结果与剩余积压
func (m *Metrics) RecordOutbox(delivered, failed int, pending int64) {
	if m == nil {
		return
	}
	m.OutboxDelivered.WithLabelValues("ok").Add(float64(delivered))
	m.OutboxDelivered.WithLabelValues("error").Add(float64(failed))
	m.OutboxPending.Set(float64(pending))
}

// NewHTTPServer 创建暴露 Prometheus 指标的 HTTP 服务
func NewHTTPServer(port int, path string, gatherer prometheus.Gatherer) *http.Server {
	if path == "" {
		path = "/metrics"
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	mux := http.NewServeMux()
	mux.Handle(path, promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// StartHTTPServer 在后台启动指标服务
func StartHTTPServer(srv *http.Server) {
	logger.Info(context.Background(), "Starting Prometheus HTTP server", "addr", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(context.Background(), "Prometheus HTTP server stopped", "error", err)
		}
	}()
}
