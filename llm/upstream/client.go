// =============================================================================
// AgentWall Upstream Client
// =============================================================================
// Speaks OpenAI-compatible chat completions against whatever endpoint the
// router resolved. Two operations: a plain JSON round trip and a verbatim
// SSE pass-through. Both attach provider-tagged metrics; all failures map
// to typed errors the pipeline can surface.
// =============================================================================

package upstream

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/BaSui01/agentwall/internal/tlsutil"
	"github.com/BaSui01/agentwall/llm"
	"github.com/BaSui01/agentwall/llm/router"
	"github.com/BaSui01/agentwall/types"
	"go.uber.org/zap"
)

const completionsPath = "/v1/chat/completions"

// maxErrorBodyBytes caps how much of an upstream error body is retained.
const maxErrorBodyBytes = 4096

// Client is the upstream HTTP client. The streaming client carries no
// overall timeout: streams are bounded by caller disconnect and context.
type Client struct {
	httpClient   *http.Client
	streamClient *http.Client
	logger       *zap.Logger
}

// NewClient creates an upstream client with the given non-streaming timeout.
func NewClient(timeout time.Duration, logger *zap.Logger) *Client {
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		httpClient:   tlsutil.SecureHTTPClient(timeout),
		streamClient: &http.Client{Transport: tlsutil.SecureTransport()},
		logger:       logger.With(zap.String("component", "upstream")),
	}
}

// buildHeaders sets auth and provider-specific headers on the request.
func buildHeaders(req *http.Request, route router.Route) {
	req.Header.Set("Authorization", "Bearer "+route.APIKey)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range route.ExtraHeaders {
		req.Header.Set(k, v)
	}
}

// Result is a completed non-streaming round trip.
type Result struct {
	Response *llm.ChatCompletionResponse
	Elapsed  time.Duration
	Provider router.Provider
}

// ChatCompletion performs a non-streaming chat completion.
func (c *Client) ChatCompletion(ctx context.Context, route router.Route, body []byte) (*Result, error) {
	start := time.Now()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(route.BaseURL, "/")+completionsPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	buildHeaders(httpReq, route)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, networkError(err, route.Provider)
	}
	defer resp.Body.Close()

	elapsed := time.Since(start)

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		c.logger.Error("upstream error",
			zap.String("provider", string(route.Provider)),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", errBody),
		)
		return nil, MapHTTPError(resp.StatusCode, string(errBody), route.Provider)
	}

	var parsed llm.ChatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, types.NewError(types.ErrUpstreamError, "invalid upstream response: "+err.Error()).
			WithHTTPStatus(http.StatusBadGateway).
			WithRetryable(true).
			WithProvider(string(route.Provider))
	}

	c.logger.Info("chat completion",
		zap.String("provider", string(route.Provider)),
		zap.String("model", route.Model),
		zap.Duration("latency", elapsed),
	)

	return &Result{Response: &parsed, Elapsed: elapsed, Provider: route.Provider}, nil
}

// =============================================================================
// Streaming
// =============================================================================

// StreamMetrics is collected while copying an SSE stream.
type StreamMetrics struct {
	ChunkCount       int
	TotalChars       int
	FirstChunkMs     float64
	TotalMs          float64
	PromptTokens     int
	CompletionTokens int
	// Content accumulates the assistant text for post-stream scanning.
	Content string
}

// Stream is an open upstream SSE connection. Callers must invoke Copy
// exactly once; Copy releases the connection on every exit path.
type Stream struct {
	body     io.ReadCloser
	provider router.Provider
	model    string
	start    time.Time
	logger   *zap.Logger
}

// OpenStream starts a streaming chat completion. A non-2xx upstream status
// is read, closed, and returned as a typed error before any SSE is copied.
func (c *Client) OpenStream(ctx context.Context, route router.Route, body []byte) (*Stream, error) {
	start := time.Now()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(route.BaseURL, "/")+completionsPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	buildHeaders(httpReq, route)
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := c.streamClient.Do(httpReq)
	if err != nil {
		return nil, networkError(err, route.Provider)
	}

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		resp.Body.Close()
		return nil, MapHTTPError(resp.StatusCode, string(errBody), route.Provider)
	}

	return &Stream{
		body:     resp.Body,
		provider: route.Provider,
		model:    route.Model,
		start:    start,
		logger:   c.logger,
	}, nil
}

// Copy forwards SSE data lines from upstream to w verbatim, reframed as
// "data: <payload>\n\n", ending with "data: [DONE]\n\n". Non-data lines are
// dropped. If w implements http.Flusher every frame is flushed immediately.
func (s *Stream) Copy(ctx context.Context, w io.Writer) (StreamMetrics, error) {
	defer s.body.Close()

	metrics := StreamMetrics{}
	flusher, _ := w.(http.Flusher)
	reader := bufio.NewReader(s.body)
	var content strings.Builder

	defer func() {
		metrics.TotalMs = float64(time.Since(s.start).Microseconds()) / 1000
		metrics.Content = content.String()
		s.logger.Info("stream completed",
			zap.String("provider", string(s.provider)),
			zap.String("model", s.model),
			zap.Int("chunks", metrics.ChunkCount),
			zap.Float64("ttfb_ms", metrics.FirstChunkMs),
		)
	}()

	for {
		select {
		case <-ctx.Done():
			return metrics, ctx.Err()
		default:
		}

		line, err := reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				return metrics, nil
			}
			return metrics, networkError(err, s.provider)
		}

		line = strings.TrimSpace(line)
		if line == "" || !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))

		if metrics.ChunkCount == 0 {
			metrics.FirstChunkMs = float64(time.Since(s.start).Microseconds()) / 1000
		}
		metrics.ChunkCount++

		if payload == "[DONE]" {
			if _, err := io.WriteString(w, "data: [DONE]\n\n"); err != nil {
				return metrics, err
			}
			if flusher != nil {
				flusher.Flush()
			}
			return metrics, nil
		}

		// account content and final usage; malformed frames still pass through
		var delta llm.StreamDelta
		if err := json.Unmarshal([]byte(payload), &delta); err == nil {
			for _, choice := range delta.Choices {
				metrics.TotalChars += len(choice.Delta.Content)
				content.WriteString(choice.Delta.Content)
			}
			if delta.Usage != nil {
				metrics.PromptTokens = delta.Usage.PromptTokens
				metrics.CompletionTokens = delta.Usage.CompletionTokens
			}
		}

		if _, err := io.WriteString(w, "data: "+payload+"\n\n"); err != nil {
			return metrics, err
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
}

// =============================================================================
// Error mapping
// =============================================================================

// MapHTTPError converts an upstream non-2xx into a typed error. 4xx keep
// the upstream status; 5xx become 502 for the caller.
func MapHTTPError(status int, body string, provider router.Provider) *types.Error {
	msg := strings.TrimSpace(body)
	if msg == "" {
		msg = http.StatusText(status)
	}

	e := types.NewError(types.ErrUpstreamError,
		fmt.Sprintf("%s API error %d: %s", provider, status, msg)).
		WithProvider(string(provider)).
		WithDetail("upstream_status", status)

	if status >= 500 {
		return e.WithHTTPStatus(http.StatusBadGateway).WithRetryable(true)
	}
	return e.WithHTTPStatus(status)
}

// networkError wraps a transport-level failure as a 502.
func networkError(err error, provider router.Provider) *types.Error {
	code := types.ErrUpstreamNetwork
	if errors.Is(err, context.DeadlineExceeded) {
		code = types.ErrUpstreamTimeout
	}
	return types.NewError(code, err.Error()).
		WithCause(err).
		WithHTTPStatus(http.StatusBadGateway).
		WithRetryable(true).
		WithProvider(string(provider))
}
