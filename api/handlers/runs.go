package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/BaSui01/agentwall/api"
	"github.com/BaSui01/agentwall/firewall/runstate"
	"github.com/BaSui01/agentwall/identity"
	"github.com/BaSui01/agentwall/types"
)

// =============================================================================
// 📋 Run 状态处理器
// =============================================================================

// RunsHandler Run 状态查询与手工终止
type RunsHandler struct {
	identity *identity.Client
	tracker  *runstate.Tracker
	logger   *zap.Logger
}

// NewRunsHandler 创建 Run 状态处理器
func NewRunsHandler(idc *identity.Client, tracker *runstate.Tracker, logger *zap.Logger) *RunsHandler {
	return &RunsHandler{
		identity: idc,
		tracker:  tracker,
		logger:   logger.With(zap.String("component", "runs")),
	}
}

// authorize 复用聊天表面的身份校验；失败写 401。
func (h *RunsHandler) authorize(w http.ResponseWriter, r *http.Request) bool {
	_, err := h.identity.Validate(r.Context(), identity.ExtractAPIKey(r))
	if err != nil {
		WriteErrorMessage(w, http.StatusUnauthorized, types.ErrAuthentication, authMessage(err), h.logger)
		return false
	}
	return true
}

// Get GET /v1/runs/{id} — 返回 Run 状态快照。
func (h *RunsHandler) Get(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r) {
		return
	}

	runID := r.PathValue("id")
	state, err := h.tracker.GetRunState(r.Context(), runID)
	if err != nil {
		if errors.Is(err, runstate.ErrRunNotFound) {
			WriteErrorMessage(w, http.StatusNotFound, types.ErrInvalidRequest, "run not found: "+runID, h.logger)
			return
		}
		WriteErrorMessage(w, http.StatusInternalServerError, types.ErrInternalError, "failed to load run state", h.logger)
		return
	}

	WriteJSON(w, http.StatusOK, api.NewRunView(state))
}

// Kill POST /v1/runs/{id}/kill — 手工终止 Run。
// 终止后该 Run 的所有后续请求都会被 429 拒绝。
func (h *RunsHandler) Kill(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r) {
		return
	}

	runID := r.PathValue("id")
	if _, err := h.tracker.GetRunState(r.Context(), runID); err != nil {
		if errors.Is(err, runstate.ErrRunNotFound) {
			WriteErrorMessage(w, http.StatusNotFound, types.ErrInvalidRequest, "run not found: "+runID, h.logger)
			return
		}
		WriteErrorMessage(w, http.StatusInternalServerError, types.ErrInternalError, "failed to load run state", h.logger)
		return
	}

	var req api.KillRequest
	if r.Body != nil && r.ContentLength != 0 {
		if !DecodeJSONBody(w, r, &req, h.logger) {
			return
		}
	}

	h.tracker.KillRun(r.Context(), runID, runstate.KillReasonManual)
	h.logger.Info("run killed manually",
		zap.String("run_id", runID),
		zap.String("caller_reason", req.Reason),
	)

	state, err := h.tracker.GetRunState(r.Context(), runID)
	if err != nil {
		WriteJSON(w, http.StatusOK, map[string]any{"run_id": runID, "status": string(runstate.StatusKilled)})
		return
	}
	WriteJSON(w, http.StatusOK, api.NewRunView(state))
}

// authMessage 将身份错误翻译成对外提示。
func authMessage(err error) string {
	switch {
	case errors.Is(err, identity.ErrMissingAPIKey):
		return "missing API key"
	case errors.Is(err, identity.ErrInvalidAPIKey):
		return "invalid API key"
	default:
		return "identity service unavailable"
	}
}
