package pricing

import (
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// =============================================================================
// 🔢 Token 估算
// =============================================================================

// wordsPerToken 流式估算系数：tokens ≈ words × 1.3
const tokensPerWordNumerator = 13
const tokensPerWordDenominator = 10

var (
	encOnce sync.Once
	enc     *tiktoken.Tiktoken
	encErr  error
)

// encoding lazily 初始化 cl100k_base 编码（首次使用时可能下载数据）。
func encoding() (*tiktoken.Tiktoken, error) {
	encOnce.Do(func() {
		enc, encErr = tiktoken.GetEncoding("cl100k_base")
	})
	return enc, encErr
}

// EstimateCompletionTokens 按累计字数估算 completion tokens。
// 仅在上游流式响应未携带 usage 时使用；有 usage 时以上游为准。
func EstimateCompletionTokens(content string) int {
	if content == "" {
		return 0
	}
	words := len(strings.Fields(content))
	return words * tokensPerWordNumerator / tokensPerWordDenominator
}

// EstimatePromptTokens 用 tiktoken 估算 prompt tokens，
// 编码不可用时回退到字数估算。
func EstimatePromptTokens(text string) int {
	if text == "" {
		return 0
	}
	e, err := encoding()
	if err != nil {
		return EstimateCompletionTokens(text)
	}
	return len(e.Encode(text, nil, nil))
}
