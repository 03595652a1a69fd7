package runstate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// =============================================================================
// 🎛️ Run 追踪器
// =============================================================================

// ErrRunNotFound 指定 Run 不存在（或已过期）
var ErrRunNotFound = errors.New("run not found")

// runTTL 每次写入后的过期时间
const runTTL = 24 * time.Hour

// keyPrefix KV 键前缀
const keyPrefix = "agentwall:run:"

// Config 追踪器配置
type Config struct {
	// RedisURL 形如 redis://localhost:6379/0；为空则直接进入降级模式
	RedisURL string `yaml:"redis_url" json:"redis_url"`

	// DefaultLimits 调用方未携带限额时的兜底
	DefaultLimits Limits `yaml:"-" json:"-"`
}

// Tracker 基于 Redis 的 Run 状态追踪器。
// Redis 不可达时自动降级为无记忆模式（每步全新零状态）。
type Tracker struct {
	client *redis.Client
	config Config
	logger *zap.Logger

	mu        sync.RWMutex
	connected bool
}

// NewTracker 创建追踪器。连接失败不是致命错误，只记录日志并降级。
func NewTracker(config Config, logger *zap.Logger) *Tracker {
	t := &Tracker{
		config: config,
		logger: logger.With(zap.String("component", "runstate")),
	}

	if config.RedisURL == "" {
		t.logger.Warn("未配置 Redis，Run 追踪进入无记忆降级模式")
		return t
	}

	opts, err := redis.ParseURL(config.RedisURL)
	if err != nil {
		t.logger.Warn("Redis URL 解析失败，进入无记忆降级模式", zap.Error(err))
		return t
	}

	t.client = redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := t.client.Ping(ctx).Err(); err != nil {
		t.logger.Warn("Redis 连接失败，进入无记忆降级模式", zap.Error(err))
		return t
	}

	t.connected = true
	t.logger.Info("Run 追踪器已连接 Redis")
	return t
}

// NewTrackerWithClient 用现成客户端创建追踪器（测试用）。
func NewTrackerWithClient(client *redis.Client, config Config, logger *zap.Logger) *Tracker {
	return &Tracker{
		client:    client,
		config:    config,
		logger:    logger.With(zap.String("component", "runstate")),
		connected: true,
	}
}

// Healthy 返回 KV 连接是否可用。
func (t *Tracker) Healthy(ctx context.Context) bool {
	t.mu.RLock()
	connected := t.connected
	t.mu.RUnlock()

	if !connected || t.client == nil {
		return false
	}
	return t.client.Ping(ctx).Err() == nil
}

// Close 关闭底层连接。
func (t *Tracker) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.connected = false
	if t.client != nil {
		return t.client.Close()
	}
	return nil
}

func runKey(runID string) string {
	return keyPrefix + runID
}

// =============================================================================
// 🎯 核心治理操作
// =============================================================================

// StepRequest 一次准入请求
type StepRequest struct {
	RunID   string
	TeamID  string
	UserID  string
	AgentID string

	// Limits 为 nil 时使用配置兜底
	Limits *Limits
}

// ProcessStep 处理 Run 的一个新步骤。
//
// 治理核心：依次检查 killed → 步数上限 → 超时 → 预算，
// 全部通过后步数加一并持久化。prompt 不在此处写入历史环。
func (t *Tracker) ProcessStep(ctx context.Context, req StepRequest) (*RunState, StepResult) {
	state := t.getOrCreateRun(ctx, req)
	result := StepResult{Allowed: true, StepNumber: state.StepCount + 1}

	// 检查 1：Run 已被终止？
	if state.Status == StatusKilled {
		result.Allowed = false
		result.Reason = fmt.Sprintf("Run killed: %s", state.KillReason)
		return state, result
	}

	// 检查 2：步数上限
	if state.StepCount >= state.MaxSteps {
		result.Allowed = false
		result.Reason = fmt.Sprintf("Step limit exceeded (%d steps)", state.MaxSteps)
		state.Status = StatusKilled
		state.KillReason = KillReasonStepLimit
		t.saveState(ctx, state)
		return state, result
	}

	// 检查 3：超时
	elapsed := time.Now().UTC().Sub(state.StartedAt)
	if elapsed > time.Duration(state.TimeoutSeconds)*time.Second {
		result.Allowed = false
		result.Reason = fmt.Sprintf("Run timeout (%ds)", state.TimeoutSeconds)
		state.Status = StatusKilled
		state.KillReason = KillReasonTimeout
		t.saveState(ctx, state)
		return state, result
	}

	// 检查 4：预算
	if state.TotalCost.GreaterThanOrEqual(state.MaxBudget) {
		result.Allowed = false
		result.Reason = fmt.Sprintf("Budget exceeded ($%s)", state.MaxBudget)
		state.Status = StatusKilled
		state.KillReason = KillReasonBudget
		state.BudgetExceeded = true
		t.saveState(ctx, state)
		return state, result
	}

	// 全部通过，步数加一
	state.StepCount++
	state.LastActivity = time.Now().UTC()

	// 接近上限时附带告警
	if state.StepCount*10 >= state.MaxSteps*8 {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("Approaching step limit: %d/%d", state.StepCount, state.MaxSteps))
	}

	t.saveState(ctx, state)
	return state, result
}

// StepUpdate 步骤完成后的增量
type StepUpdate struct {
	Tokens       int
	Cost         decimal.Decimal
	Prompt       string
	Response     string
	LoopDetected bool
}

// CompleteStep 在步骤完成后累计用量，并把 prompt/response 写入历史环。
func (t *Tracker) CompleteStep(ctx context.Context, runID string, upd StepUpdate) {
	state, err := t.GetRunState(ctx, runID)
	if err != nil {
		return
	}

	state.TotalTokens += upd.Tokens
	state.TotalCost = state.TotalCost.Add(upd.Cost)
	state.LastActivity = time.Now().UTC()

	if upd.Prompt != "" {
		state.RecentPrompts = appendHistory(state.RecentPrompts, upd.Prompt)
	}
	if upd.Response != "" {
		state.RecentResponses = appendHistory(state.RecentResponses, upd.Response)
	}
	if upd.LoopDetected {
		state.LoopDetected = true
	}

	t.saveState(ctx, state)
}

// KillRun 终止 Run，阻断其后续所有请求。
func (t *Tracker) KillRun(ctx context.Context, runID, reason string) {
	state, err := t.GetRunState(ctx, runID)
	if err != nil {
		return
	}

	state.Status = StatusKilled
	state.KillReason = reason
	if reason == KillReasonBudget {
		state.BudgetExceeded = true
	}
	t.saveState(ctx, state)

	t.logger.Warn("Run 已终止",
		zap.String("run_id", runID),
		zap.String("reason", reason),
	)
}

// GetRunState 读取 Run 状态；不存在时返回 ErrRunNotFound。
func (t *Tracker) GetRunState(ctx context.Context, runID string) (*RunState, error) {
	if !t.available() {
		return nil, ErrRunNotFound
	}

	data, err := t.client.Get(ctx, runKey(runID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		t.logger.Warn("读取 Run 状态失败", zap.String("run_id", runID), zap.Error(err))
		return nil, err
	}

	var state RunState
	if err := json.Unmarshal([]byte(data), &state); err != nil {
		t.logger.Error("Run 状态反序列化失败", zap.String("run_id", runID), zap.Error(err))
		return nil, err
	}
	return &state, nil
}

// =============================================================================
// 💾 内部持久化
// =============================================================================

func (t *Tracker) available() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.connected && t.client != nil
}

// getOrCreateRun 读取或创建 Run。降级模式下返回不落盘的全新状态。
func (t *Tracker) getOrCreateRun(ctx context.Context, req StepRequest) *RunState {
	limits := t.config.DefaultLimits
	if req.Limits != nil {
		limits = *req.Limits
	}

	if !t.available() {
		return newRunState(req.RunID, req.TeamID, req.UserID, req.AgentID, limits)
	}

	state, err := t.GetRunState(ctx, req.RunID)
	if err == nil {
		return state
	}
	if !errors.Is(err, ErrRunNotFound) {
		// KV 故障：按无记忆模式继续，不阻断请求
		return newRunState(req.RunID, req.TeamID, req.UserID, req.AgentID, limits)
	}

	state = newRunState(req.RunID, req.TeamID, req.UserID, req.AgentID, limits)
	t.saveState(ctx, state)
	return state
}

// saveState 持久化 Run 状态并重置 24h TTL。
func (t *Tracker) saveState(ctx context.Context, state *RunState) {
	if !t.available() {
		return
	}

	data, err := json.Marshal(state)
	if err != nil {
		t.logger.Error("Run 状态序列化失败", zap.String("run_id", state.RunID), zap.Error(err))
		return
	}

	if err := t.client.Set(ctx, runKey(state.RunID), data, runTTL).Err(); err != nil {
		t.logger.Warn("写入 Run 状态失败", zap.String("run_id", state.RunID), zap.Error(err))
	}
}
