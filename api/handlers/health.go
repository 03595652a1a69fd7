package handlers

import (
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/agentwall/firewall/runstate"
	"github.com/BaSui01/agentwall/logstore"
)

// =============================================================================
// 🏥 健康检查处理器
// =============================================================================

// detailedCacheTTL 详细健康检查结果缓存时长，避免探针打爆依赖
const detailedCacheTTL = 10 * time.Second

// HealthHandler 健康检查处理器
type HealthHandler struct {
	tracker *runstate.Tracker
	sink    *logstore.Sink
	// upstreamConfigured 主上游凭据是否已配置
	upstreamConfigured bool
	version            string
	logger             *zap.Logger

	mu         sync.Mutex
	cached     map[string]any
	cachedAt   time.Time
}

// NewHealthHandler 创建健康检查处理器
func NewHealthHandler(tracker *runstate.Tracker, sink *logstore.Sink, upstreamConfigured bool, version string, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		tracker:            tracker,
		sink:               sink,
		upstreamConfigured: upstreamConfigured,
		version:            version,
		logger:             logger.With(zap.String("component", "health")),
	}
}

// Health GET /health — 常量 200。
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "agentwall",
		"version": h.version,
	})
}

// Live GET /health/live — 进程存活即 200。
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]any{"status": "alive"})
}

// Ready GET /health/ready — KV 可达返回 200，否则 503。
// 降级模式下网关仍在服务，但就绪探针如实上报依赖缺失。
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.tracker.Healthy(r.Context()) {
		WriteJSON(w, http.StatusOK, map[string]any{"status": "ready"})
		return
	}
	WriteJSON(w, http.StatusServiceUnavailable, map[string]any{
		"status": "degraded",
		"reason": "kv store unreachable",
	})
}

// Detailed GET /health/detailed — 依赖逐项检查，结果缓存 10 秒。
func (h *HealthHandler) Detailed(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	if h.cached != nil && time.Since(h.cachedAt) < detailedCacheTTL {
		body := h.cached
		h.mu.Unlock()
		WriteJSON(w, http.StatusOK, body)
		return
	}
	h.mu.Unlock()

	redisOK := h.tracker.Healthy(r.Context())
	sinkOK := h.sink == nil || h.sink.Healthy()

	checks := map[string]any{
		"redis": checkResult(redisOK, "unreachable"),
		"log_store": map[string]any{
			"healthy":     sinkOK,
			"queue_depth": h.queueDepth(),
			"dropped":     h.dropped(),
		},
		"upstream_credentials": checkResult(h.upstreamConfigured, "primary upstream API key not configured"),
	}

	status := "ok"
	if !redisOK || !sinkOK || !h.upstreamConfigured {
		status = "degraded"
	}

	body := map[string]any{
		"status":  status,
		"version": h.version,
		"checks":  checks,
	}

	h.mu.Lock()
	h.cached = body
	h.cachedAt = time.Now()
	h.mu.Unlock()

	WriteJSON(w, http.StatusOK, body)
}

func (h *HealthHandler) queueDepth() int {
	if h.sink == nil {
		return 0
	}
	return h.sink.QueueDepth()
}

func (h *HealthHandler) dropped() uint64 {
	if h.sink == nil {
		return 0
	}
	return h.sink.Dropped()
}

func checkResult(ok bool, failReason string) map[string]any {
	if ok {
		return map[string]any{"healthy": true}
	}
	return map[string]any{"healthy": false, "reason": failReason}
}
