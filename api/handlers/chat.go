package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/BaSui01/agentwall/api"
	"github.com/BaSui01/agentwall/firewall/budget"
	"github.com/BaSui01/agentwall/firewall/dlp"
	"github.com/BaSui01/agentwall/firewall/loopdetect"
	"github.com/BaSui01/agentwall/firewall/pricing"
	"github.com/BaSui01/agentwall/firewall/runstate"
	"github.com/BaSui01/agentwall/identity"
	"github.com/BaSui01/agentwall/internal/ctxkeys"
	"github.com/BaSui01/agentwall/internal/metrics"
	"github.com/BaSui01/agentwall/llm"
	"github.com/BaSui01/agentwall/llm/router"
	"github.com/BaSui01/agentwall/llm/upstream"
	"github.com/BaSui01/agentwall/logstore"
	"github.com/BaSui01/agentwall/types"
)

// =============================================================================
// 🚪 聊天代理处理器
// =============================================================================

// blockConfidence 循环预检的阻断置信度下限。
// 低于该值的检出只作为 warning 附在信封上。
const blockConfidence = 0.95

// previewMaxLen 遥测行中 prompt/response 预览的截断长度
const previewMaxLen = 500

// ChatConfig 聊天管线配置
type ChatConfig struct {
	// MaxSteps 身份未携带限额时的步数兜底
	MaxSteps int
	// TimeoutSeconds 单 Run 最长持续秒数
	TimeoutSeconds int
	// DLPEnabled 是否启用敏感数据扫描
	DLPEnabled bool
}

// ChatHandler OpenAI 兼容聊天代理，承载完整治理管线。
type ChatHandler struct {
	config   ChatConfig
	identity *identity.Client
	tracker  *runstate.Tracker
	dlp      *dlp.Engine
	loops    *loopdetect.Detector
	budget   *budget.Enforcer
	router   *router.Router
	upstream *upstream.Client
	sink     *logstore.Sink
	shipper  *logstore.Shipper
	metrics  *metrics.Collector
	logger   *zap.Logger
}

// ChatDeps 聊天处理器依赖集合
type ChatDeps struct {
	Identity *identity.Client
	Tracker  *runstate.Tracker
	DLP      *dlp.Engine
	Loops    *loopdetect.Detector
	Budget   *budget.Enforcer
	Router   *router.Router
	Upstream *upstream.Client
	Sink     *logstore.Sink
	Shipper  *logstore.Shipper
	Metrics  *metrics.Collector
}

// NewChatHandler 创建聊天代理处理器
func NewChatHandler(config ChatConfig, deps ChatDeps, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{
		config:   config,
		identity: deps.Identity,
		tracker:  deps.Tracker,
		dlp:      deps.DLP,
		loops:    deps.Loops,
		budget:   deps.Budget,
		router:   deps.Router,
		upstream: deps.Upstream,
		sink:     deps.Sink,
		shipper:  deps.Shipper,
		metrics:  deps.Metrics,
		logger:   logger.With(zap.String("component", "chat")),
	}
}

// Completions POST /v1/chat/completions — 治理管线入口。
func (h *ChatHandler) Completions(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()

	// 1. 身份校验
	apiKey := identity.ExtractAPIKey(r)
	id, err := h.identity.Validate(ctx, apiKey)
	if err != nil {
		WriteErrorMessage(w, http.StatusUnauthorized, types.ErrAuthentication, authMessage(err), h.logger)
		return
	}

	// 2. 解析请求体
	var req llm.ChatCompletionRequest
	if !DecodeJSONBody(w, r, &req, h.logger) {
		return
	}
	if req.Model == "" || len(req.Messages) == 0 {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest,
			"model and messages are required", h.logger)
		return
	}

	// 3. Run 标识：头 → 请求体扩展字段 → 新建
	runID := r.Header.Get("X-AgentWall-Run-ID")
	if runID == "" {
		runID = req.RunID
	}
	if runID == "" {
		runID = uuid.NewString()
	}
	ctx = ctxkeys.WithRunID(ctx, runID)

	// 4. 防火墙准入
	state, stepRes := h.tracker.ProcessStep(ctx, runstate.StepRequest{
		RunID:   runID,
		TeamID:  id.TeamID,
		UserID:  id.UserID,
		AgentID: req.AgentID,
		Limits:  h.limitsFor(id),
	})
	step := stepRes.StepNumber

	w.Header().Set("X-AgentWall-Run-ID", runID)
	w.Header().Set("X-AgentWall-Step", strconv.Itoa(step))

	if !stepRes.Allowed {
		// 本次调用触发的击杀计入指标；此前已死的 Run 不重复计数
		if !strings.HasPrefix(stepRes.Reason, "Run killed:") {
			h.metrics.RecordRunKilled(state.KillReason)
		}
		rejErr := admissionError(runID, step, state, stepRes)
		h.pushLog(r, req, id, runID, step, rejectedRow(rejErr, stepRes.Reason))
		WriteError(w, rejErr, h.logger)
		return
	}

	var warning string
	if len(stepRes.Warnings) > 0 {
		warning = stepRes.Warnings[0]
	}

	// 5. DLP 前扫：mask 就地替换；block 拒绝；shadow_log 只记录
	dlpTriggered := false
	if h.config.DLPEnabled {
		for i := range req.Messages {
			res := h.dlp.Scan(req.Messages[i].Content)
			if res.Blocked {
				h.metrics.RecordDLPTrigger(string(dlp.ModeBlock))
				blockErr := types.NewError(types.ErrDLPBlocked,
					"request blocked: sensitive data detected").
					WithHTTPStatus(http.StatusBadRequest).
					WithDetail("run_id", runID).
					WithDetail("step", step)
				row := rejectedRow(blockErr, "dlp_blocked")
				row.DLPTriggered = true
				row.DLPAction = string(dlp.ModeBlock)
				h.pushLog(r, req, id, runID, step, row)
				WriteError(w, blockErr, h.logger)
				return
			}
			if res.Triggered() {
				dlpTriggered = true
				if h.dlp.Mode() == dlp.ModeMask {
					req.Messages[i].Content = res.Redacted
				}
			}
		}
		if dlpTriggered {
			h.metrics.RecordDLPTrigger(string(h.dlp.Mode()))
		}
	}

	// 历史环与循环检测统一使用脱敏后的 prompt
	prompt := req.LastUserContent()

	// 6. 循环预检：高置信度阻断，低置信度降级为 warning
	preLoop := h.loops.Check(prompt, "", state.RecentPrompts, state.RecentResponses)
	if preLoop.IsLoop {
		h.metrics.RecordLoopDetected(string(preLoop.Type))
		if preLoop.Confidence >= blockConfidence {
			h.tracker.KillRun(ctx, runID, runstate.KillReasonLoop)
			h.metrics.RecordRunKilled(runstate.KillReasonLoop)
			loopErr := types.NewError(types.ErrLoopDetected, preLoop.Message).
				WithHTTPStatus(http.StatusTooManyRequests).
				WithDetail("run_id", runID).
				WithDetail("step", step).
				WithDetail("loop_type", string(preLoop.Type)).
				WithDetail("confidence", preLoop.Confidence)
			h.pushLog(r, req, id, runID, step, loopRow(loopErr, preLoop))
			WriteError(w, loopErr, h.logger)
			return
		}
		if warning == "" {
			warning = preLoop.Message
		}
	}

	// 7. 路由
	overrideKey := ""
	if id.PassThrough {
		overrideKey = apiKey
	}
	route := h.router.Resolve(req.Model, overrideKey)

	body, err := req.ForwardBody(route.Model)
	if err != nil {
		WriteErrorMessage(w, http.StatusInternalServerError, types.ErrInternalError,
			"failed to serialize upstream request", h.logger)
		return
	}

	pipe := &pipelineState{
		start:        start,
		req:          &req,
		id:           id,
		runID:        runID,
		step:         step,
		state:        state,
		route:        route,
		prompt:       prompt,
		warning:      warning,
		dlpTriggered: dlpTriggered,
	}

	// 8. 上游调用
	if req.Stream {
		h.streamCompletion(ctx, w, r, pipe, body)
		return
	}
	h.completeJSON(ctx, w, r, pipe, body)
}

// pipelineState 贯穿上游调用前后的管线上下文
type pipelineState struct {
	start        time.Time
	req          *llm.ChatCompletionRequest
	id           *identity.Identity
	runID        string
	step         int
	state        *runstate.RunState
	route        router.Route
	prompt       string
	warning      string
	dlpTriggered bool
}

// =============================================================================
// 📨 非流式管线后半段
// =============================================================================

func (h *ChatHandler) completeJSON(ctx context.Context, w http.ResponseWriter, r *http.Request, pipe *pipelineState, body []byte) {
	// 客户端断连不得中断非流式调用：上游照常计费，后账必须落盘
	ctx = context.WithoutCancel(ctx)

	result, err := h.upstream.ChatCompletion(ctx, pipe.route, body)
	if err != nil {
		h.writeUpstreamError(w, r, pipe, err)
		return
	}
	resp := result.Response

	// DLP 后扫：mask 替换助手消息；block 在计费后拒绝
	content := resp.AssistantContent()
	blocked := false
	if h.config.DLPEnabled && content != "" {
		res := h.dlp.Scan(content)
		if res.Triggered() {
			pipe.dlpTriggered = true
			h.metrics.RecordDLPTrigger(string(h.dlp.Mode()))
			switch {
			case res.Blocked:
				blocked = true
			case h.dlp.Mode() == dlp.ModeMask:
				content = res.Redacted
				if len(resp.Choices) > 0 {
					resp.Choices[0].Message.Content = content
				}
			}
		}
	}

	// 循环后检：只标记，不拒绝（响应已付费）
	postLoop := h.loops.Check(pipe.prompt, content, pipe.state.RecentPrompts, pipe.state.RecentResponses)
	if postLoop.IsLoop {
		h.metrics.RecordLoopDetected(string(postLoop.Type))
		if pipe.warning == "" {
			pipe.warning = postLoop.Message
		}
	}

	// 用量与成本：优先上游上报，缺失时本地估算
	var promptTokens, completionTokens int
	if resp.Usage != nil {
		promptTokens = resp.Usage.PromptTokens
		completionTokens = resp.Usage.CompletionTokens
	} else {
		promptTokens = pricing.EstimatePromptTokens(pipe.prompt)
		completionTokens = pricing.EstimateCompletionTokens(content)
	}
	cost := pricing.Cost(pipe.route.Model, promptTokens, completionTokens)
	newTotal := pipe.state.TotalCost.Add(cost)

	// 持久化本步用量与历史环
	h.tracker.CompleteStep(ctx, pipe.runID, runstate.StepUpdate{
		Tokens:       promptTokens + completionTokens,
		Cost:         cost,
		Prompt:       pipe.prompt,
		Response:     content,
		LoopDetected: postLoop.IsLoop,
	})

	// 预算闸：花费已发生，击杀阻断的是下一步
	decision := h.budget.CheckRunBudget(pipe.runID, newTotal, decimal.Zero, decimal.Zero)
	if h.budget.Policy().ShouldAlert(newTotal) {
		h.metrics.RecordBudgetAlert()
		h.logger.Warn("run cost crossed alert threshold",
			zap.String("run_id", pipe.runID),
			zap.String("total_cost", newTotal.String()),
		)
	}

	overhead := time.Since(pipe.start) - result.Elapsed
	h.metrics.RecordOverhead(float64(overhead.Microseconds()) / 1000)
	h.metrics.RecordUpstreamRequest(string(pipe.route.Provider), pipe.route.Model, "2xx",
		result.Elapsed, promptTokens, completionTokens, cost.InexactFloat64())

	row := logstore.RequestLog{
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
		TotalTokens:      promptTokens + completionTokens,
		CostUSD:          cost,
		LatencyMs:        result.Elapsed.Milliseconds(),
		OverheadMs:       overhead.Milliseconds(),
		StatusCode:       http.StatusOK,
		LoopDetected:     postLoop.IsLoop,
		SimilarityScore:  postLoop.Confidence,
		DLPTriggered:     pipe.dlpTriggered,
		DLPAction:        h.dlpAction(pipe.dlpTriggered),
		ResponseContent:  truncatePreview(content),
	}

	if decision.ShouldKill {
		h.tracker.KillRun(ctx, pipe.runID, runstate.KillReasonBudget)
		h.metrics.RecordRunKilled(runstate.KillReasonBudget)
		budgetErr := types.NewError(types.ErrBudgetExceeded, decision.Reason).
			WithHTTPStatus(http.StatusTooManyRequests).
			WithDetail("run_id", pipe.runID).
			WithDetail("step", pipe.step).
			WithDetail("exceeded_limit", string(decision.ExceededLimit)).
			WithDetail("current_cost", decision.CurrentCost.String()).
			WithDetail("limit", decision.Limit.String())
		row.StatusCode = http.StatusTooManyRequests
		row.ErrorMessage = decision.Reason
		h.pushLog(r, *pipe.req, pipe.id, pipe.runID, pipe.step, row)
		WriteError(w, budgetErr, h.logger)
		return
	}

	if blocked {
		blockErr := types.NewError(types.ErrDLPBlocked,
			"response blocked: sensitive data detected").
			WithHTTPStatus(http.StatusBadRequest).
			WithDetail("run_id", pipe.runID).
			WithDetail("step", pipe.step)
		row.StatusCode = http.StatusBadRequest
		row.ErrorMessage = blockErr.Message
		h.pushLog(r, *pipe.req, pipe.id, pipe.runID, pipe.step, row)
		WriteError(w, blockErr, h.logger)
		return
	}

	h.pushLog(r, *pipe.req, pipe.id, pipe.runID, pipe.step, row)

	// 信封合并进响应 JSON
	envelope := api.Envelope{
		RunID:         pipe.runID,
		Step:          pipe.step,
		OverheadMs:    overhead.Milliseconds(),
		CostUSD:       cost,
		TotalRunCost:  newTotal,
		TotalRunSteps: pipe.step,
		Provider:      string(pipe.route.Provider),
		Warning:       pipe.warning,
	}
	envJSON, err := json.Marshal(envelope)
	if err == nil {
		if resp.Extra == nil {
			resp.Extra = make(map[string]json.RawMessage)
		}
		resp.Extra["agentwall"] = envJSON
	}

	w.Header().Set("X-AgentWall-Cost", cost.String())
	WriteJSON(w, http.StatusOK, resp)
}

// =============================================================================
// 🌊 流式管线后半段
// =============================================================================

func (h *ChatHandler) streamCompletion(ctx context.Context, w http.ResponseWriter, r *http.Request, pipe *pipelineState, body []byte) {
	stream, err := h.upstream.OpenStream(ctx, pipe.route, body)
	if err != nil {
		h.writeUpstreamError(w, r, pipe, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	m, copyErr := stream.Copy(ctx, w)
	if copyErr != nil {
		// 字节已写出，只能记录；客户端断连是常态，不击杀 Run
		h.logger.Warn("stream interrupted",
			zap.String("run_id", pipe.runID),
			zap.Error(copyErr),
		)
	}

	// 断连后的流式后账仍需落盘
	ctx = context.WithoutCancel(ctx)

	// 流式后账：上游上报的 usage 优先，缺失时估算
	promptTokens := m.PromptTokens
	completionTokens := m.CompletionTokens
	if promptTokens == 0 {
		promptTokens = pricing.EstimatePromptTokens(pipe.prompt)
	}
	if completionTokens == 0 {
		completionTokens = pricing.EstimateCompletionTokens(m.Content)
	}
	cost := pricing.Cost(pipe.route.Model, promptTokens, completionTokens)
	newTotal := pipe.state.TotalCost.Add(cost)

	// DLP 后扫只能观察：流式字节已经发出
	if h.config.DLPEnabled && m.Content != "" {
		if res := h.dlp.ScanMode(m.Content, dlp.ModeShadowLog); res.Triggered() {
			pipe.dlpTriggered = true
			h.metrics.RecordDLPTrigger(string(dlp.ModeShadowLog))
		}
	}

	postLoop := h.loops.Check(pipe.prompt, m.Content, pipe.state.RecentPrompts, pipe.state.RecentResponses)
	if postLoop.IsLoop {
		h.metrics.RecordLoopDetected(string(postLoop.Type))
	}

	h.tracker.CompleteStep(ctx, pipe.runID, runstate.StepUpdate{
		Tokens:       promptTokens + completionTokens,
		Cost:         cost,
		Prompt:       pipe.prompt,
		Response:     m.Content,
		LoopDetected: postLoop.IsLoop,
	})

	// 预算闸只能影响下一步：流已经结束
	decision := h.budget.CheckRunBudget(pipe.runID, newTotal, decimal.Zero, decimal.Zero)
	if decision.ShouldKill {
		h.tracker.KillRun(ctx, pipe.runID, runstate.KillReasonBudget)
		h.metrics.RecordRunKilled(runstate.KillReasonBudget)
	}
	if h.budget.Policy().ShouldAlert(newTotal) {
		h.metrics.RecordBudgetAlert()
	}

	elapsed := time.Duration(m.TotalMs * float64(time.Millisecond))
	overhead := time.Since(pipe.start) - elapsed
	if overhead < 0 {
		overhead = 0
	}
	h.metrics.RecordUpstreamRequest(string(pipe.route.Provider), pipe.route.Model, "2xx",
		elapsed, promptTokens, completionTokens, cost.InexactFloat64())

	h.pushLog(r, *pipe.req, pipe.id, pipe.runID, pipe.step, logstore.RequestLog{
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
		TotalTokens:      promptTokens + completionTokens,
		CostUSD:          cost,
		LatencyMs:        int64(m.TotalMs),
		OverheadMs:       overhead.Milliseconds(),
		TTFBMs:           int64(m.FirstChunkMs),
		StatusCode:       http.StatusOK,
		LoopDetected:     postLoop.IsLoop,
		SimilarityScore:  postLoop.Confidence,
		DLPTriggered:     pipe.dlpTriggered,
		DLPAction:        h.dlpAction(pipe.dlpTriggered),
		ResponseContent:  truncatePreview(m.Content),
	})
}

// =============================================================================
// 🔧 管线辅助
// =============================================================================

// limitsFor 叠加身份限额与配置兜底。
func (h *ChatHandler) limitsFor(id *identity.Identity) *runstate.Limits {
	maxSteps := h.config.MaxSteps
	if id.Limits.MaxSteps > 0 {
		maxSteps = id.Limits.MaxSteps
	}
	return &runstate.Limits{
		MaxSteps:       maxSteps,
		MaxBudget:      h.budget.Policy().PerRunLimit,
		TimeoutSeconds: h.config.TimeoutSeconds,
	}
}

// admissionError 把准入拒绝翻译成类型化错误。
func admissionError(runID string, step int, state *runstate.RunState, res runstate.StepResult) *types.Error {
	code := types.ErrRunLimit
	switch state.KillReason {
	case runstate.KillReasonBudget:
		code = types.ErrBudgetExceeded
	case runstate.KillReasonLoop:
		code = types.ErrLoopDetected
	}
	return types.NewError(code, res.Reason).
		WithHTTPStatus(http.StatusTooManyRequests).
		WithDetail("run_id", runID).
		WithDetail("step", step)
}

// writeUpstreamError 上游失败：4xx 原样透传状态，5xx/网络错误 502。
// 上游故障是瞬态，不击杀 Run。
func (h *ChatHandler) writeUpstreamError(w http.ResponseWriter, r *http.Request, pipe *pipelineState, err error) {
	var terr *types.Error
	if !errors.As(err, &terr) {
		terr = types.NewError(types.ErrInternalError, "upstream call failed").
			WithCause(err).
			WithHTTPStatus(http.StatusInternalServerError)
	}
	terr.WithDetail("run_id", pipe.runID).WithDetail("step", pipe.step)

	status := terr.HTTPStatus
	if status == 0 {
		status = http.StatusBadGateway
	}
	h.metrics.RecordUpstreamRequest(string(pipe.route.Provider), pipe.route.Model,
		statusClass(status), time.Since(pipe.start), 0, 0, 0)

	row := logstore.RequestLog{
		StatusCode:   status,
		ErrorMessage: terr.Message,
	}
	h.pushLog(r, *pipe.req, pipe.id, pipe.runID, pipe.step, row)
	WriteError(w, terr, h.logger)
}

// rejectedRow 准入/DLP 拒绝的遥测行。
func rejectedRow(err *types.Error, reason string) logstore.RequestLog {
	status := err.HTTPStatus
	return logstore.RequestLog{
		StatusCode:   status,
		ErrorMessage: reason,
	}
}

// loopRow 循环拒绝的遥测行。
func loopRow(err *types.Error, res loopdetect.Result) logstore.RequestLog {
	row := rejectedRow(err, res.Message)
	row.LoopDetected = true
	row.SimilarityScore = res.Confidence
	return row
}

// pushLog 填充公共字段后推入遥测汇与仪表盘队列。
// fire-and-forget：任何失败都不影响请求。
func (h *ChatHandler) pushLog(r *http.Request, req llm.ChatCompletionRequest, id *identity.Identity, runID string, step int, row logstore.RequestLog) {
	requestID, _ := ctxkeys.RequestID(r.Context())
	if requestID == "" {
		requestID = uuid.NewString()
	}

	row.RunID = runID
	row.StepNumber = step
	row.RequestID = requestID
	row.TeamID = id.TeamID
	row.UserID = id.UserID
	row.APIKeyID = id.APIKeyID
	row.Model = req.Model
	row.Endpoint = r.URL.Path
	if row.Provider == "" {
		row.Provider = string(router.DetectProvider(req.Model))
	}
	row.AgentID = req.AgentID
	if row.RequestMessages == "" {
		row.RequestMessages = truncatePreview(req.LastUserContent())
	}
	row.IPAddress = clientIP(r)
	row.UserAgent = r.UserAgent()
	if len(req.Metadata) > 0 {
		if meta, err := json.Marshal(req.Metadata); err == nil {
			row.Metadata = string(meta)
		}
	}

	h.sink.Push(row)
	h.shipper.Push(logstore.DashboardLog{
		RequestID:        row.RequestID,
		Model:            row.Model,
		RunID:            row.RunID,
		TeamID:           row.TeamID,
		UserID:           row.UserID,
		APIKeyID:         row.APIKeyID,
		Provider:         row.Provider,
		Endpoint:         row.Endpoint,
		Stream:           req.Stream,
		PromptTokens:     row.PromptTokens,
		CompletionTokens: row.CompletionTokens,
		TotalTokens:      row.TotalTokens,
		CostUSD:          row.CostUSD,
		LatencyMs:        row.LatencyMs,
		TTFBMs:           row.TTFBMs,
		StatusCode:       row.StatusCode,
		ErrorMessage:     row.ErrorMessage,
		DLPTriggered:     row.DLPTriggered,
		LoopDetected:     row.LoopDetected,
		IPAddress:        row.IPAddress,
		UserAgent:        row.UserAgent,
	})
	h.metrics.RecordTelemetryQueue(h.sink.QueueDepth(), h.sink.Dropped())
}

// dlpAction 遥测行的 dlp_action 字段：未触发时留空。
func (h *ChatHandler) dlpAction(triggered bool) string {
	if !triggered {
		return ""
	}
	return string(h.dlp.Mode())
}

// truncatePreview 遥测预览截断。
func truncatePreview(s string) string {
	runes := []rune(s)
	if len(runes) <= previewMaxLen {
		return s
	}
	return string(runes[:previewMaxLen])
}

// clientIP 提取客户端地址（去端口）。
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i > 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	host := r.RemoteAddr
	if i := strings.LastIndexByte(host, ':'); i > 0 {
		host = host[:i]
	}
	return host
}

// statusClass 将状态码折叠为指标标签。
func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	default:
		return "2xx"
	}
}
