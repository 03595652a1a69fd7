package runstate

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// 📦 Run 状态模型
// =============================================================================

// Status Run 生命周期状态（闭集）
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusKilled    Status = "killed"
)

// 终止原因（写入 kill_reason 字段）
const (
	KillReasonStepLimit = "step_limit_exceeded"
	KillReasonTimeout   = "timeout"
	KillReasonBudget    = "budget_exceeded"
	KillReasonLoop      = "loop_detected"
	KillReasonManual    = "manual_kill"
)

// historyRingSize 循环检测历史环容量
const historyRingSize = 5

// historyEntryMaxLen 历史环单条截断长度（字符）
const historyEntryMaxLen = 500

// RunState 一个 Agent Run 的完整治理状态。
// JSON 形态即 KV 存储中的持久化格式。
type RunState struct {
	RunID   string `json:"run_id"`
	TeamID  string `json:"team_id"`
	UserID  string `json:"user_id"`
	AgentID string `json:"agent_id"`

	// 计数器
	StepCount   int             `json:"step_count"`
	TotalTokens int             `json:"total_tokens"`
	TotalCost   decimal.Decimal `json:"total_cost"`

	// 时间
	StartedAt    time.Time `json:"started_at"`
	LastActivity time.Time `json:"last_activity"`

	// 状态
	Status     Status `json:"status"`
	KillReason string `json:"kill_reason"`

	// 标记
	LoopDetected   bool `json:"loop_detected"`
	BudgetExceeded bool `json:"budget_exceeded"`

	// 循环检测历史环（最近 5 条，单条截断 500 字符）
	RecentPrompts   []string `json:"recent_prompts"`
	RecentResponses []string `json:"recent_responses"`

	// 限额（来自调用方套餐）
	MaxSteps       int             `json:"max_steps"`
	MaxBudget      decimal.Decimal `json:"max_budget"`
	TimeoutSeconds int             `json:"timeout_seconds"`
}

// Limits Run 限额
type Limits struct {
	MaxSteps       int
	MaxBudget      decimal.Decimal
	TimeoutSeconds int
}

// newRunState 构造全新 Run。
func newRunState(runID, teamID, userID, agentID string, limits Limits) *RunState {
	now := time.Now().UTC()
	return &RunState{
		RunID:          runID,
		TeamID:         teamID,
		UserID:         userID,
		AgentID:        agentID,
		TotalCost:      decimal.Zero,
		StartedAt:      now,
		LastActivity:   now,
		Status:         StatusRunning,
		MaxSteps:       limits.MaxSteps,
		MaxBudget:      limits.MaxBudget,
		TimeoutSeconds: limits.TimeoutSeconds,
	}
}

// appendHistory 向历史环追加一条记录，截断并保留最近 5 条。
func appendHistory(ring []string, entry string) []string {
	ring = append(ring, truncateRunes(entry, historyEntryMaxLen))
	if len(ring) > historyRingSize {
		ring = ring[len(ring)-historyRingSize:]
	}
	return ring
}

// truncateRunes 按字符截断，避免切断多字节序列。
func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

// StepResult 一次准入判定的结果
type StepResult struct {
	Allowed    bool     `json:"allowed"`
	Reason     string   `json:"reason"`
	StepNumber int      `json:"step_number"`
	Warnings   []string `json:"warnings,omitempty"`
}
