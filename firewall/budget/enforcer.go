package budget

import (
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// =============================================================================
// 💵 预算策略
// =============================================================================

// ExceededLimit 超限类别（闭集）
type ExceededLimit string

const (
	LimitNone    ExceededLimit = ""
	LimitPerRun  ExceededLimit = "per_run"
	LimitDaily   ExceededLimit = "daily"
	LimitMonthly ExceededLimit = "monthly"
)

// Policy 预算策略：三级限额 + 告警阈值 + 自动终止开关
type Policy struct {
	PerRunLimit    decimal.Decimal `yaml:"per_run_limit" json:"per_run_limit"`
	DailyLimit     decimal.Decimal `yaml:"daily_limit" json:"daily_limit"`
	MonthlyLimit   decimal.Decimal `yaml:"monthly_limit" json:"monthly_limit"`
	AlertThreshold decimal.Decimal `yaml:"alert_threshold" json:"alert_threshold"`
	AutoKill       bool            `yaml:"auto_kill" json:"auto_kill"`
}

// DefaultPolicy 返回默认预算策略。
func DefaultPolicy() Policy {
	return Policy{
		PerRunLimit:    decimal.RequireFromString("10.0"),
		DailyLimit:     decimal.RequireFromString("100.0"),
		MonthlyLimit:   decimal.RequireFromString("3000.0"),
		AlertThreshold: decimal.RequireFromString("5.0"),
		AutoKill:       true,
	}
}

// ShouldAlert 成本是否超过告警阈值。
func (p Policy) ShouldAlert(cost decimal.Decimal) bool {
	return cost.GreaterThan(p.AlertThreshold)
}

// =============================================================================
// 🚧 预算闸门
// =============================================================================

// Decision 一次预算判定结果
type Decision struct {
	ShouldKill    bool            `json:"should_kill"`
	Reason        string          `json:"reason,omitempty"`
	ExceededLimit ExceededLimit   `json:"exceeded_limit,omitempty"`
	CurrentCost   decimal.Decimal `json:"current_cost"`
	Limit         decimal.Decimal `json:"limit"`
}

// Exceeded 是否有任一限额超限（与 ShouldKill 无关，auto_kill 关闭时仍为 true）。
func (d Decision) Exceeded() bool {
	return d.ExceededLimit != LimitNone
}

// Enforcer 预算闸门。纯内存判定，无 I/O，并发安全。
type Enforcer struct {
	policy Policy
	logger *zap.Logger
}

// NewEnforcer 创建预算闸门。
func NewEnforcer(policy Policy, logger *zap.Logger) *Enforcer {
	return &Enforcer{
		policy: policy,
		logger: logger.With(zap.String("component", "budget")),
	}
}

// Policy 返回当前策略。
func (e *Enforcer) Policy() Policy {
	return e.policy
}

// CheckRunBudget 判定 Run 是否超预算。
//
// currentCost 为 Run 累计成本；daily/monthly 检查把本次成本计入增量。
// 比较为严格大于，优先级 per_run → daily → monthly。
func (e *Enforcer) CheckRunBudget(runID string, currentCost, dailySpent, monthlySpent decimal.Decimal) Decision {
	// 检查 1：单 Run 限额
	if currentCost.GreaterThan(e.policy.PerRunLimit) {
		e.logger.Warn("Run 超出单次预算",
			zap.String("run_id", runID),
			zap.String("cost", currentCost.String()),
			zap.String("limit", e.policy.PerRunLimit.String()),
		)
		return Decision{
			ShouldKill:    e.policy.AutoKill,
			Reason:        fmt.Sprintf("Per-run budget exceeded: $%s > $%s", currentCost, e.policy.PerRunLimit),
			ExceededLimit: LimitPerRun,
			CurrentCost:   currentCost,
			Limit:         e.policy.PerRunLimit,
		}
	}

	// 检查 2：当日限额（含本次增量）
	if dailySpent.Add(currentCost).GreaterThan(e.policy.DailyLimit) {
		e.logger.Warn("Run 将超出当日预算",
			zap.String("run_id", runID),
			zap.String("daily_total", dailySpent.Add(currentCost).String()),
		)
		return Decision{
			ShouldKill:    e.policy.AutoKill,
			Reason:        fmt.Sprintf("Daily budget exceeded: $%s > $%s", dailySpent.Add(currentCost), e.policy.DailyLimit),
			ExceededLimit: LimitDaily,
			CurrentCost:   currentCost,
			Limit:         e.policy.DailyLimit,
		}
	}

	// 检查 3：当月限额（含本次增量）
	if monthlySpent.Add(currentCost).GreaterThan(e.policy.MonthlyLimit) {
		e.logger.Warn("Run 将超出当月预算",
			zap.String("run_id", runID),
			zap.String("monthly_total", monthlySpent.Add(currentCost).String()),
		)
		return Decision{
			ShouldKill:    e.policy.AutoKill,
			Reason:        fmt.Sprintf("Monthly budget exceeded: $%s > $%s", monthlySpent.Add(currentCost), e.policy.MonthlyLimit),
			ExceededLimit: LimitMonthly,
			CurrentCost:   currentCost,
			Limit:         e.policy.MonthlyLimit,
		}
	}

	return Decision{CurrentCost: currentCost}
}

// Remaining 当前剩余预算快照（状态查询接口用）。
type Remaining struct {
	DailyRemaining   decimal.Decimal `json:"daily_remaining"`
	DailyLimit       decimal.Decimal `json:"daily_limit"`
	DailySpent       decimal.Decimal `json:"daily_spent"`
	MonthlyRemaining decimal.Decimal `json:"monthly_remaining"`
	MonthlyLimit     decimal.Decimal `json:"monthly_limit"`
	MonthlySpent     decimal.Decimal `json:"monthly_spent"`
	PerRunLimit      decimal.Decimal `json:"per_run_limit"`
}

// RemainingBudget 计算当日与当月剩余预算。
func (e *Enforcer) RemainingBudget(dailySpent, monthlySpent decimal.Decimal) Remaining {
	return Remaining{
		DailyRemaining:   e.policy.DailyLimit.Sub(dailySpent),
		DailyLimit:       e.policy.DailyLimit,
		DailySpent:       dailySpent,
		MonthlyRemaining: e.policy.MonthlyLimit.Sub(monthlySpent),
		MonthlyLimit:     e.policy.MonthlyLimit,
		MonthlySpent:     monthlySpent,
		PerRunLimit:      e.policy.PerRunLimit,
	}
}
