// Package metrics 提供 Prometheus 指标：HTTP 请求、区间调整、最长连续段查询与缓存命中
package metrics

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/wyfcoding/runtracker/pkg/logger"
)

// Metrics 指标集合
type Metrics struct {
	// HTTP 请求计数
	HTTPRequestsTotal *prometheus.CounterVec
	// HTTP 请求耗时
	HTTPRequestDuration *prometheus.HistogramVec

	// 区间调整次数，按结果区分
	AdjustmentsTotal *prometheus.CounterVec
	// 查询次数，按结果区分
	QueriesTotal *prometheus.CounterVec
	// 树操作耗时
	OperationDuration *prometheus.HistogramVec
	// 查询缓存命中/未命中
	CacheLookupsTotal *prometheus.CounterVec
	// 当前序列数
	SeriesActive prometheus.Gauge
	// 消费的命令消息数
	CommandsConsumed *prometheus.CounterVec

	registry *prometheus.Registry
}

// New 创建指标实例，注册到独立的 Registry
func New(serviceName string) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "runtracker",
			Subsystem: serviceName,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests",
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "runtracker",
			Subsystem: serviceName,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
		AdjustmentsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "runtracker",
			Subsystem: serviceName,
			Name:      "range_adjustments_total",
			Help:      "Total range add operations",
		}, []string{"result"}),
		QueriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "runtracker",
			Subsystem: serviceName,
			Name:      "run_queries_total",
			Help:      "Total longest non-decreasing run queries",
		}, []string{"result"}),
		OperationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "runtracker",
			Subsystem: serviceName,
			Name:      "operation_duration_seconds",
			Help:      "Segment tree operation duration in seconds",
			Buckets:   []float64{1e-6, 1e-5, 1e-4, 1e-3, 1e-2, 1e-1},
		}, []string{"op"}),
		CacheLookupsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "runtracker",
			Subsystem: serviceName,
			Name:      "cache_lookups_total",
			Help:      "Run query cache lookups",
		}, []string{"outcome"}),
		SeriesActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "runtracker",
			Subsystem: serviceName,
			Name:      "series_active",
			Help:      "Number of live series",
		}),
		CommandsConsumed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "runtracker",
			Subsystem: serviceName,
			Name:      "commands_consumed_total",
			Help:      "Kafka command messages consumed",
		}, []string{"op", "result"}),
		registry: prometheus.NewRegistry(),
	}
	return m
}

// Register 注册所有指标
func (m *Metrics) Register() error {
	collectors := []prometheus.Collector{
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.AdjustmentsTotal,
		m.QueriesTotal,
		m.OperationDuration,
		m.CacheLookupsTotal,
		m.SeriesActive,
		m.CommandsConsumed,
	}

	for _, c := range collectors {
		if err := m.registry.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			logger.Error(context.Background(), "Failed to register metric", "error", err)
			return err
		}
	}
	return nil
}

// Registry 返回指标所在的 Registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler 返回 /metrics 处理器
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// StartHTTPServer 启动 Prometheus HTTP 服务器，返回 server 以便优雅关闭
func (m *Metrics) StartHTTPServer(port int, path string) *http.Server {
	if path == "" {
		path = "/metrics"
	}
	mux := http.NewServeMux()
	mux.Handle(path, m.Handler())

	srv := &http.Server{Addr: ":" + strconv.Itoa(port), Handler: mux}
	logger.Info(context.Background(), "Starting Prometheus HTTP server", "addr", srv.Addr, "path", path)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(context.Background(), "Prometheus HTTP server stopped", "error", err)
		}
	}()
	return srv
}

// MetricsCollector 指标收集接口，nil 安全的实现见 *Metrics
type MetricsCollector interface {
	RecordHTTPRequest(method, path string, statusCode int, duration float64)
	RecordAdjustment(err error, duration float64)
	RecordQuery(err error, duration float64)
	RecordCacheLookup(hit bool)
	SetSeriesActive(count int)
	RecordCommand(op string, err error)
}

var _ MetricsCollector = (*Metrics)(nil)

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// RecordHTTPRequest 记录 HTTP 请求
func (m *Metrics) RecordHTTPRequest(method, path string, statusCode int, duration float64) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(statusCode)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// RecordAdjustment 记录一次区间调整
func (m *Metrics) RecordAdjustment(err error, duration float64) {
	if m == nil {
		return
	}
	m.AdjustmentsTotal.WithLabelValues(result(err)).Inc()
	m.OperationDuration.WithLabelValues("adjust").Observe(duration)
}

// RecordQuery 记录一次查询
func (m *Metrics) RecordQuery(err error, duration float64) {
	if m == nil {
		return
	}
	m.QueriesTotal.WithLabelValues(result(err)).Inc()
	m.OperationDuration.WithLabelValues("query").Observe(duration)
}

// RecordCacheLookup 记录缓存命中情况
func (m *Metrics) RecordCacheLookup(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.CacheLookupsTotal.WithLabelValues("hit").Inc()
	} else {
		m.CacheLookupsTotal.WithLabelValues("miss").Inc()
	}
}

// SetSeriesActive 更新序列数
func (m *Metrics) SetSeriesActive(count int) {
	if m == nil {
		return
	}
	m.SeriesActive.Set(float64(count))
}

// RecordCommand 记录消费的命令
func (m *Metrics) RecordCommand(op string, err error) {
	if m == nil {
		return
	}
	m.CommandsConsumed.WithLabelValues(op, result(err)).Inc()
}
