package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/BaSui01/agentwall/types"
)

// =============================================================================
// 📦 错误响应（OpenAI 风格）
// =============================================================================

// errorBody 是 4xx/5xx 响应的统一错误体:
// {"error": {"message": ..., "type": ..., "code": ..., run_id?, step?, ...}}
type errorBody struct {
	Error map[string]any `json:"error"`
}

// WriteJSON 写入 JSON 响应
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteError 将结构化错误写为 OpenAI 风格错误体。
// Details 中的附加字段（run_id、step、loop_type ...）并入错误对象。
func WriteError(w http.ResponseWriter, err *types.Error, logger *zap.Logger) {
	status := err.HTTPStatus
	if status == 0 {
		status = mapErrorCodeToHTTPStatus(err.Code)
	}

	fields := map[string]any{
		"message": err.Message,
		"type":    string(types.WireTypeFor(err.Code)),
		"code":    types.WireCodeFor(err.Code, err.Provider),
	}
	for k, v := range err.Details {
		fields[k] = v
	}

	if logger != nil {
		logger.Warn("request rejected",
			zap.String("code", string(err.Code)),
			zap.String("message", err.Message),
			zap.Int("status", status),
			zap.Error(err.Cause),
		)
	}

	WriteJSON(w, status, errorBody{Error: fields})
}

// WriteErrorMessage 写入简单错误消息
func WriteErrorMessage(w http.ResponseWriter, status int, code types.ErrorCode, message string, logger *zap.Logger) {
	WriteError(w, types.NewError(code, message).WithHTTPStatus(status), logger)
}

// mapErrorCodeToHTTPStatus 错误码到 HTTP 状态码的兜底映射
func mapErrorCodeToHTTPStatus(code types.ErrorCode) int {
	switch code {
	case types.ErrInvalidRequest, types.ErrDLPBlocked:
		return http.StatusBadRequest
	case types.ErrAuthentication:
		return http.StatusUnauthorized
	case types.ErrRunLimit, types.ErrLoopDetected, types.ErrBudgetExceeded:
		return http.StatusTooManyRequests
	case types.ErrUpstreamError, types.ErrUpstreamNetwork, types.ErrUpstreamTimeout:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// =============================================================================
// 🛡️ 请求解析辅助
// =============================================================================

// DecodeJSONBody 解码 JSON 请求体。
// 代理表面必须接受任意 OpenAI 字段，因此不拒绝未知字段。
func DecodeJSONBody(w http.ResponseWriter, r *http.Request, dst any, logger *zap.Logger) bool {
	if r.Body == nil {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest, "request body is empty", logger)
		return false
	}

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		WriteError(w, types.NewError(types.ErrInvalidRequest, "invalid JSON body").
			WithCause(err).
			WithHTTPStatus(http.StatusBadRequest), logger)
		return false
	}
	return true
}

// =============================================================================
// 📊 响应包装器（用于捕获状态码）
// =============================================================================

// ResponseWriter 包装 http.ResponseWriter 以捕获状态码
type ResponseWriter struct {
	http.ResponseWriter
	StatusCode int
	Written    bool
}

// NewResponseWriter 创建新的 ResponseWriter
func NewResponseWriter(w http.ResponseWriter) *ResponseWriter {
	return &ResponseWriter{
		ResponseWriter: w,
		StatusCode:     http.StatusOK,
	}
}

// WriteHeader 重写 WriteHeader 以捕获状态码
func (rw *ResponseWriter) WriteHeader(code int) {
	if !rw.Written {
		rw.StatusCode = code
		rw.Written = true
		rw.ResponseWriter.WriteHeader(code)
	}
}

// Write 重写 Write 以标记已写入
func (rw *ResponseWriter) Write(b []byte) (int, error) {
	if !rw.Written {
		rw.WriteHeader(http.StatusOK)
	}
	return rw.ResponseWriter.Write(b)
}

// Flush 透传 Flush，SSE 透传依赖逐帧刷新
func (rw *ResponseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
