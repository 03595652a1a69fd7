package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// =============================================================================
// 📊 指标收集器
// =============================================================================

// Collector 网关指标收集器。
// 每个实例持有独立的 registry，避免测试中重复注册冲突。
type Collector struct {
	registry *prometheus.Registry

	// HTTP 指标
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	gatewayOverhead     prometheus.Histogram

	// 上游指标
	upstreamRequestsTotal   *prometheus.CounterVec
	upstreamRequestDuration *prometheus.HistogramVec
	tokensTotal             *prometheus.CounterVec
	costTotal               *prometheus.CounterVec

	// 防火墙指标
	runsKilledTotal   *prometheus.CounterVec
	loopsTotal        *prometheus.CounterVec
	dlpTriggersTotal  *prometheus.CounterVec
	budgetAlertsTotal prometheus.Counter

	// 遥测队列指标
	telemetryQueueDepth prometheus.Gauge
	telemetryDropped    prometheus.Gauge

	logger *zap.Logger
}

// NewCollector 创建指标收集器
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	c := &Collector{
		registry: registry,
		logger:   logger.With(zap.String("component", "metrics")),
	}

	// HTTP 指标
	c.httpRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	c.httpRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	c.gatewayOverhead = factory.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "gateway_overhead_ms",
			Help:      "Gateway processing overhead per request in milliseconds (excludes upstream latency)",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 25, 50, 100},
		},
	)

	// 上游指标
	c.upstreamRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      "Total number of upstream LLM requests",
		},
		[]string{"provider", "model", "status"},
	)

	c.upstreamRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_request_duration_seconds",
			Help:      "Upstream LLM request duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"provider", "model"},
	)

	c.tokensTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_used_total",
			Help:      "Total number of tokens used",
		},
		[]string{"provider", "model", "type"}, // type: prompt, completion
	)

	c.costTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cost_usd_total",
			Help:      "Total upstream cost in USD",
		},
		[]string{"provider", "model"},
	)

	// 防火墙指标
	c.runsKilledTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_killed_total",
			Help:      "Total number of runs killed by the firewall",
		},
		[]string{"reason"},
	)

	c.loopsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "loops_detected_total",
			Help:      "Total number of loop detections",
		},
		[]string{"loop_type"},
	)

	c.dlpTriggersTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dlp_triggers_total",
			Help:      "Total number of DLP pattern triggers",
		},
		[]string{"action"}, // mask, block, shadow_log
	)

	c.budgetAlertsTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "budget_alerts_total",
			Help:      "Total number of budget alert-threshold crossings",
		},
	)

	// 遥测队列指标
	c.telemetryQueueDepth = factory.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "telemetry_queue_depth",
			Help:      "Current depth of the telemetry queue",
		},
	)

	c.telemetryDropped = factory.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "telemetry_dropped_total",
			Help:      "Total number of telemetry rows dropped",
		},
	)

	logger.Info("metrics collector initialized", zap.String("namespace", namespace))

	return c
}

// Handler 返回 /metrics 的 HTTP handler。
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// =============================================================================
// 🎯 HTTP 指标记录
// =============================================================================

// RecordHTTPRequest 记录 HTTP 请求
func (c *Collector) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	c.httpRequestsTotal.WithLabelValues(method, path, statusCode(status)).Inc()
	c.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordOverhead 记录网关自身开销（不含上游耗时）
func (c *Collector) RecordOverhead(overheadMs float64) {
	c.gatewayOverhead.Observe(overheadMs)
}

// =============================================================================
// 🤖 上游指标记录
// =============================================================================

// RecordUpstreamRequest 记录一次上游调用
func (c *Collector) RecordUpstreamRequest(provider, model, status string, duration time.Duration, promptTokens, completionTokens int, costUSD float64) {
	c.upstreamRequestsTotal.WithLabelValues(provider, model, status).Inc()
	c.upstreamRequestDuration.WithLabelValues(provider, model).Observe(duration.Seconds())
	c.tokensTotal.WithLabelValues(provider, model, "prompt").Add(float64(promptTokens))
	c.tokensTotal.WithLabelValues(provider, model, "completion").Add(float64(completionTokens))
	c.costTotal.WithLabelValues(provider, model).Add(costUSD)
}

// =============================================================================
// 🛡️ 防火墙指标记录
// =============================================================================

// RecordRunKilled 记录一次 Run 终止
func (c *Collector) RecordRunKilled(reason string) {
	c.runsKilledTotal.WithLabelValues(reason).Inc()
}

// RecordLoopDetected 记录一次循环检出
func (c *Collector) RecordLoopDetected(loopType string) {
	c.loopsTotal.WithLabelValues(loopType).Inc()
}

// RecordDLPTrigger 记录一次 DLP 命中
func (c *Collector) RecordDLPTrigger(action string) {
	c.dlpTriggersTotal.WithLabelValues(action).Inc()
}

// RecordBudgetAlert 记录一次预算告警阈值穿越
func (c *Collector) RecordBudgetAlert() {
	c.budgetAlertsTotal.Inc()
}

// =============================================================================
// 📮 遥测队列指标记录
// =============================================================================

// RecordTelemetryQueue 记录遥测队列水位
func (c *Collector) RecordTelemetryQueue(depth int, dropped uint64) {
	c.telemetryQueueDepth.Set(float64(depth))
	c.telemetryDropped.Set(float64(dropped))
}

// =============================================================================
// 🔧 辅助函数
// =============================================================================

// statusCode 将 HTTP 状态码转换为字符串
func statusCode(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}
