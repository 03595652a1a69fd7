package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/agentwall/firewall/runstate"
	"github.com/BaSui01/agentwall/logstore"
)

// =============================================================================
// 🧪 健康检查测试
// =============================================================================

func newHealthFixture(t *testing.T) (*HealthHandler, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	tracker := runstate.NewTrackerWithClient(client, runstate.Config{}, zap.NewNop())
	sink := logstore.NewSink(logstore.SinkConfig{
		BaseURL:       "http://127.0.0.1:1",
		FlushInterval: time.Hour,
	}, zap.NewNop())

	return NewHealthHandler(tracker, sink, true, "0.1.0", zap.NewNop()), mr
}

func getJSON(t *testing.T, fn http.HandlerFunc, path string) (int, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	fn(rec, httptest.NewRequest(http.MethodGet, path, nil))
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec.Code, body
}

func TestHealth_Constant(t *testing.T) {
	h, _ := newHealthFixture(t)

	code, body := getJSON(t, h.Health, "/health")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "agentwall", body["service"])

	code, body = getJSON(t, h.Live, "/health/live")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "alive", body["status"])
}

func TestHealth_ReadyReflectsKVStore(t *testing.T) {
	h, mr := newHealthFixture(t)

	code, body := getJSON(t, h.Ready, "/health/ready")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ready", body["status"])

	mr.Close()

	code, body = getJSON(t, h.Ready, "/health/ready")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "degraded", body["status"])
}

func TestHealth_DetailedChecksAndCaches(t *testing.T) {
	h, mr := newHealthFixture(t)

	code, body := getJSON(t, h.Detailed, "/health/detailed")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])

	checks, ok := body["checks"].(map[string]any)
	require.True(t, ok)
	redisCheck := checks["redis"].(map[string]any)
	assert.Equal(t, true, redisCheck["healthy"])

	// 10 秒缓存：依赖状态变化不立即反映
	mr.Close()
	code, body = getJSON(t, h.Detailed, "/health/detailed")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
}

func TestHealth_DetailedReportsMissingCredential(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	tracker := runstate.NewTrackerWithClient(client, runstate.Config{}, zap.NewNop())

	h := NewHealthHandler(tracker, nil, false, "0.1.0", zap.NewNop())

	code, body := getJSON(t, h.Detailed, "/health/detailed")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "degraded", body["status"])
	checks := body["checks"].(map[string]any)
	cred := checks["upstream_credentials"].(map[string]any)
	assert.Equal(t, false, cred["healthy"])
}
