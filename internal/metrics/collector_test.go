package metrics

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func scrape(t *testing.T, c *Collector) string {
	t.Helper()
	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)
	return rec.Body.String()
}

func TestCollector_RecordsHTTPAndUpstream(t *testing.T) {
	c := NewCollector("agentwall", zap.NewNop())

	c.RecordHTTPRequest("POST", "/v1/chat/completions", 200, 50*time.Millisecond)
	c.RecordUpstreamRequest("openai", "gpt-4o", "2xx", time.Second, 100, 20, 0.0015)

	body := scrape(t, c)
	assert.Contains(t, body, `agentwall_http_requests_total{method="POST",path="/v1/chat/completions",status="2xx"} 1`)
	assert.Contains(t, body, `agentwall_upstream_requests_total{model="gpt-4o",provider="openai",status="2xx"} 1`)
	assert.Contains(t, body, `agentwall_tokens_used_total{model="gpt-4o",provider="openai",type="prompt"} 100`)
}

func TestCollector_RecordsFirewallEvents(t *testing.T) {
	c := NewCollector("agentwall", zap.NewNop())

	c.RecordRunKilled("step_limit_exceeded")
	c.RecordRunKilled("step_limit_exceeded")
	c.RecordLoopDetected("exact_prompt")
	c.RecordDLPTrigger("mask")
	c.RecordBudgetAlert()

	body := scrape(t, c)
	assert.Contains(t, body, `agentwall_runs_killed_total{reason="step_limit_exceeded"} 2`)
	assert.Contains(t, body, `agentwall_loops_detected_total{loop_type="exact_prompt"} 1`)
	assert.Contains(t, body, `agentwall_dlp_triggers_total{action="mask"} 1`)
	assert.Contains(t, body, `agentwall_budget_alerts_total 1`)
}

func TestCollector_RecordsQueueGauges(t *testing.T) {
	c := NewCollector("agentwall", zap.NewNop())

	c.RecordTelemetryQueue(42, 7)

	body := scrape(t, c)
	assert.Contains(t, body, "agentwall_telemetry_queue_depth 42")
	assert.Contains(t, body, "agentwall_telemetry_dropped_total 7")
}

// 两个独立实例不应因重复注册 panic。
func TestCollector_IndependentRegistries(t *testing.T) {
	_ = NewCollector("agentwall", zap.NewNop())
	_ = NewCollector("agentwall", zap.NewNop())
}
