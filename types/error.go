package types

import "fmt"

// ErrorCode represents a unified error code across the gateway.
type ErrorCode string

// Gateway error codes
const (
	ErrInvalidRequest  ErrorCode = "INVALID_REQUEST"
	ErrAuthentication  ErrorCode = "AUTHENTICATION"
	ErrRunLimit        ErrorCode = "RUN_LIMIT"
	ErrLoopDetected    ErrorCode = "LOOP_DETECTED"
	ErrBudgetExceeded  ErrorCode = "BUDGET_EXCEEDED"
	ErrDLPBlocked      ErrorCode = "DLP_BLOCKED"
	ErrUpstreamError   ErrorCode = "UPSTREAM_ERROR"
	ErrUpstreamTimeout ErrorCode = "UPSTREAM_TIMEOUT"
	ErrUpstreamNetwork ErrorCode = "UPSTREAM_NETWORK"
	ErrInternalError   ErrorCode = "INTERNAL_ERROR"
)

// WireType is the string serialized into the OpenAI-style error body
// ("type" field). Closed set; serialization happens only at the wire.
type WireType string

const (
	WireRunLimitExceeded WireType = "run_limit_exceeded"
	WireLoopDetected     WireType = "loop_detected"
	WireBudgetExceeded   WireType = "budget_exceeded"
	WireUpstreamError    WireType = "upstream_error"
	WireInvalidRequest   WireType = "invalid_request_error"
	WireInternalError    WireType = "internal_error"
)

// WireTypeFor maps an error code to its wire representation.
func WireTypeFor(code ErrorCode) WireType {
	switch code {
	case ErrRunLimit:
		return WireRunLimitExceeded
	case ErrLoopDetected:
		return WireLoopDetected
	case ErrBudgetExceeded:
		return WireBudgetExceeded
	case ErrUpstreamError, ErrUpstreamTimeout, ErrUpstreamNetwork:
		return WireUpstreamError
	case ErrInvalidRequest, ErrAuthentication, ErrDLPBlocked:
		return WireInvalidRequest
	default:
		return WireInternalError
	}
}

// WireCodeFor maps an error code to the "code" field of the wire error body.
// Kill verdicts carry agentwall_* codes so callers can distinguish gateway
// rejections from upstream ones; upstream failures are tagged by provider.
func WireCodeFor(code ErrorCode, provider string) string {
	switch code {
	case ErrRunLimit:
		return "agentwall_limit"
	case ErrLoopDetected:
		return "agentwall_loop"
	case ErrBudgetExceeded:
		return "agentwall_budget"
	case ErrDLPBlocked:
		return "dlp_blocked"
	case ErrUpstreamError, ErrUpstreamTimeout, ErrUpstreamNetwork:
		if provider != "" {
			return provider + "_error"
		}
		return "upstream_error"
	case ErrInvalidRequest:
		return "invalid_request"
	case ErrAuthentication:
		return "invalid_api_key"
	default:
		return "internal_error"
	}
}

// Error represents a structured error with code, message, and metadata.
type Error struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	HTTPStatus int       `json:"http_status,omitempty"`
	Retryable  bool      `json:"retryable"`
	Provider   string    `json:"provider,omitempty"`
	Cause      error     `json:"-"`

	// Details carries extra wire fields (run_id, step, loop_type, ...)
	// merged into the error body alongside message/type/code.
	Details map[string]any `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithHTTPStatus sets the HTTP status code.
func (e *Error) WithHTTPStatus(status int) *Error {
	e.HTTPStatus = status
	return e
}

// WithRetryable marks the error as retryable.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// WithProvider sets the provider name.
func (e *Error) WithProvider(provider string) *Error {
	e.Provider = provider
	return e
}

// WithDetail attaches an extra wire field to the error body.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	if e, ok := err.(*Error); ok {
		return e.Retryable
	}
	return false
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) ErrorCode {
	if e, ok := err.(*Error); ok {
		return e.Code
	}
	return ""
}
