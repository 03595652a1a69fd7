package types

import (
	"errors"
	"testing"
)

func TestError_ChainingAndHelpers(t *testing.T) {
	t.Parallel()

	root := errors.New("root")
	err := NewError(ErrUpstreamError, "upstream failed").
		WithCause(root).
		WithHTTPStatus(502).
		WithRetryable(true).
		WithProvider("openai")

	if GetErrorCode(err) != ErrUpstreamError {
		t.Fatalf("expected code %s, got %s", ErrUpstreamError, GetErrorCode(err))
	}
	if !IsRetryable(err) {
		t.Fatalf("expected retryable")
	}
	if !errors.Is(err, root) {
		t.Fatalf("expected errors.Is unwrap to root")
	}
	if got := err.Error(); got == "" {
		t.Fatalf("expected non-empty error string")
	}
}

func TestWireCodeFor(t *testing.T) {
	t.Parallel()

	cases := []struct {
		code     ErrorCode
		provider string
		want     string
	}{
		{ErrRunLimit, "", "agentwall_limit"},
		{ErrLoopDetected, "", "agentwall_loop"},
		{ErrBudgetExceeded, "", "agentwall_budget"},
		{ErrDLPBlocked, "", "dlp_blocked"},
		{ErrUpstreamError, "openai", "openai_error"},
		{ErrUpstreamTimeout, "", "upstream_error"},
		{ErrInvalidRequest, "", "invalid_request"},
		{ErrAuthentication, "", "invalid_api_key"},
		{ErrInternalError, "", "internal_error"},
	}
	for _, tc := range cases {
		if got := WireCodeFor(tc.code, tc.provider); got != tc.want {
			t.Fatalf("WireCodeFor(%s, %q) = %q, want %q", tc.code, tc.provider, got, tc.want)
		}
	}
}
