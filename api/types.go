package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/BaSui01/agentwall/firewall/runstate"
)

// =============================================================================
// 📦 AgentWall 信封
// =============================================================================

// Envelope 合并进非流式响应 JSON 的 "agentwall" 字段。
type Envelope struct {
	RunID      string `json:"run_id"`
	Step       int    `json:"step"`
	OverheadMs int64  `json:"overhead_ms"`

	// CostUSD 本次请求成本；TotalRunCost 为 Run 累计成本
	CostUSD      decimal.Decimal `json:"cost_usd"`
	TotalRunCost decimal.Decimal `json:"total_run_cost"`

	TotalRunSteps int    `json:"total_run_steps"`
	Provider      string `json:"provider"`

	// Warning 未达阻断阈值的治理提示（步数临界、疑似循环等）
	Warning string `json:"warning,omitempty"`
}

// =============================================================================
// 📋 Run 状态视图
// =============================================================================

// RunView 是 GET /v1/runs/{id} 返回的 Run 状态快照。
type RunView struct {
	RunID   string `json:"run_id"`
	TeamID  string `json:"team_id,omitempty"`
	UserID  string `json:"user_id,omitempty"`
	AgentID string `json:"agent_id,omitempty"`

	Status     string `json:"status"`
	KillReason string `json:"kill_reason,omitempty"`

	StepCount   int             `json:"step_count"`
	MaxSteps    int             `json:"max_steps"`
	TotalTokens int             `json:"total_tokens"`
	TotalCost   decimal.Decimal `json:"total_cost"`
	MaxBudget   decimal.Decimal `json:"max_budget"`

	LoopDetected   bool `json:"loop_detected"`
	BudgetExceeded bool `json:"budget_exceeded"`

	StartedAt    time.Time `json:"started_at"`
	LastActivity time.Time `json:"last_activity"`
}

// NewRunView 把持久化 Run 状态投影为对外视图（不暴露历史环）。
func NewRunView(state *runstate.RunState) RunView {
	return RunView{
		RunID:          state.RunID,
		TeamID:         state.TeamID,
		UserID:         state.UserID,
		AgentID:        state.AgentID,
		Status:         string(state.Status),
		KillReason:     state.KillReason,
		StepCount:      state.StepCount,
		MaxSteps:       state.MaxSteps,
		TotalTokens:    state.TotalTokens,
		TotalCost:      state.TotalCost,
		MaxBudget:      state.MaxBudget,
		LoopDetected:   state.LoopDetected,
		BudgetExceeded: state.BudgetExceeded,
		StartedAt:      state.StartedAt,
		LastActivity:   state.LastActivity,
	}
}

// KillRequest 是 POST /v1/runs/{id}/kill 的请求体。
type KillRequest struct {
	Reason string `json:"reason,omitempty"`
}
