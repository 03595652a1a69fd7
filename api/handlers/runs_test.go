package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/agentwall/firewall/runstate"
	"github.com/BaSui01/agentwall/identity"
)

// =============================================================================
// 🧪 Run 状态接口测试
// =============================================================================

func newRunsFixture(t *testing.T) (*http.ServeMux, *runstate.Tracker) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	tracker := runstate.NewTrackerWithClient(client, runstate.Config{
		DefaultLimits: runstate.Limits{MaxSteps: 30, MaxBudget: decimal.NewFromInt(10), TimeoutSeconds: 120},
	}, zap.NewNop())

	h := NewRunsHandler(
		identity.NewClient(identity.Config{DevMode: true}, nil, zap.NewNop()),
		tracker,
		zap.NewNop(),
	)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/runs/{id}", h.Get)
	mux.HandleFunc("POST /v1/runs/{id}/kill", h.Kill)
	return mux, tracker
}

func seedRun(t *testing.T, tracker *runstate.Tracker, runID string) {
	t.Helper()
	_, res := tracker.ProcessStep(context.Background(), runstate.StepRequest{
		RunID: runID, TeamID: "team-1", UserID: "user-1",
	})
	require.True(t, res.Allowed)
}

func TestRuns_Get(t *testing.T) {
	mux, tracker := newRunsFixture(t)
	seedRun(t, tracker, "run-1")

	req := httptest.NewRequest(http.MethodGet, "/v1/runs/run-1", nil)
	req.Header.Set("Authorization", "Bearer aw-dev-key")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var view map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, "run-1", view["run_id"])
	assert.Equal(t, "running", view["status"])
	assert.Equal(t, float64(1), view["step_count"])
	// 历史环不对外暴露
	assert.NotContains(t, view, "recent_prompts")
}

func TestRuns_GetNotFound(t *testing.T) {
	mux, _ := newRunsFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/runs/nope", nil)
	req.Header.Set("Authorization", "Bearer aw-dev-key")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRuns_GetRequiresAuth(t *testing.T) {
	mux, tracker := newRunsFixture(t)
	seedRun(t, tracker, "run-1")

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/runs/run-1", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRuns_Kill(t *testing.T) {
	mux, tracker := newRunsFixture(t)
	seedRun(t, tracker, "run-1")

	req := httptest.NewRequest(http.MethodPost, "/v1/runs/run-1/kill",
		strings.NewReader(`{"reason": "operator stop"}`))
	req.Header.Set("Authorization", "Bearer aw-dev-key")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var view map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, "killed", view["status"])
	assert.Equal(t, "manual_kill", view["kill_reason"])

	// 终止后的准入被拒绝
	_, res := tracker.ProcessStep(context.Background(), runstate.StepRequest{RunID: "run-1"})
	assert.False(t, res.Allowed)
}

func TestRuns_KillWithoutBody(t *testing.T) {
	mux, tracker := newRunsFixture(t)
	seedRun(t, tracker, "run-1")

	req := httptest.NewRequest(http.MethodPost, "/v1/runs/run-1/kill", nil)
	req.Header.Set("Authorization", "Bearer aw-dev-key")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
