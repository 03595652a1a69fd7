package logstore

import "github.com/shopspring/decimal"

// =============================================================================
// 📋 遥测行
// =============================================================================

// RequestLog 单次请求的不可变遥测行。
type RequestLog struct {
	RunID      string `json:"run_id"`
	StepNumber int    `json:"step_number"`
	RequestID  string `json:"request_id"`
	TeamID     string `json:"team_id"`
	UserID     string `json:"user_id"`
	APIKeyID   string `json:"api_key_id"`

	Model    string `json:"model"`
	Endpoint string `json:"endpoint"`
	Provider string `json:"provider"`

	PromptTokens     int             `json:"prompt_tokens"`
	CompletionTokens int             `json:"completion_tokens"`
	TotalTokens      int             `json:"total_tokens"`
	CostUSD          decimal.Decimal `json:"cost_usd"`

	LatencyMs  int64 `json:"latency_ms"`
	OverheadMs int64 `json:"overhead_ms"`
	TTFBMs     int64 `json:"ttfb_ms"`

	StatusCode   int    `json:"status_code"`
	ErrorMessage string `json:"error_message"`

	LoopDetected    bool    `json:"loop_detected"`
	SimilarityScore float64 `json:"similarity_score"`
	DLPTriggered    bool    `json:"dlp_triggered"`
	DLPAction       string  `json:"dlp_action"`

	AgentID   string `json:"agent_id"`
	AgentName string `json:"agent_name"`

	// RequestMessages / ResponseContent 为截断预览
	RequestMessages string `json:"request_messages"`
	ResponseContent string `json:"response_content"`

	IPAddress string `json:"ip_address"`
	UserAgent string `json:"user_agent"`

	// Metadata 调用方自由格式元数据（JSON 字符串）
	Metadata string `json:"metadata"`
}

// DashboardLog 投递给仪表盘的精简行（省略零值字段）。
type DashboardLog struct {
	RequestID string `json:"request_id"`
	Model     string `json:"model"`
	RunID     string `json:"run_id,omitempty"`
	TeamID    string `json:"team_id,omitempty"`
	UserID    string `json:"user_id,omitempty"`
	APIKeyID  string `json:"api_key_id,omitempty"`
	Provider  string `json:"provider,omitempty"`
	Endpoint  string `json:"endpoint,omitempty"`
	Stream    bool   `json:"stream,omitempty"`

	PromptTokens     int             `json:"prompt_tokens,omitempty"`
	CompletionTokens int             `json:"completion_tokens,omitempty"`
	TotalTokens      int             `json:"total_tokens,omitempty"`
	CostUSD          decimal.Decimal `json:"cost_usd,omitempty"`

	LatencyMs int64 `json:"latency_ms,omitempty"`
	TTFBMs    int64 `json:"ttfb_ms,omitempty"`

	StatusCode   int    `json:"status_code,omitempty"`
	ErrorType    string `json:"error_type,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`

	DLPTriggered   bool `json:"dlp_triggered,omitempty"`
	LoopDetected   bool `json:"loop_detected,omitempty"`
	BudgetExceeded bool `json:"budget_exceeded,omitempty"`

	IPAddress string `json:"ip_address,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
}
