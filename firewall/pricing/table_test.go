package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// =============================================================================
// 🧪 成本计算测试
// =============================================================================

func TestCost_KnownModel(t *testing.T) {
	// gpt-4o-mini: $0.15 / $0.60 per 1M tokens
	cost := Cost("gpt-4o-mini", 1_000_000, 1_000_000)
	assert.True(t, cost.Equal(decimal.RequireFromString("0.75")), "got %s", cost)
}

func TestCost_UnknownModelUsesDefault(t *testing.T) {
	// default: $1.00 / $3.00 per 1M tokens
	cost := Cost("totally-unknown-model", 2_000_000, 1_000_000)
	assert.True(t, cost.Equal(decimal.RequireFromString("5")), "got %s", cost)
}

func TestCost_ZeroTokensIsZero(t *testing.T) {
	cost := Cost("gpt-4o", 0, 0)
	assert.True(t, cost.IsZero())
}

func TestCost_FractionalPrecision(t *testing.T) {
	// 10 prompt tokens of gpt-3.5-turbo = 10 * 0.50 / 1e6 = 0.000005
	cost := Cost("gpt-3.5-turbo", 10, 0)
	assert.True(t, cost.Equal(decimal.RequireFromString("0.000005")), "got %s", cost)
}

func TestProperty_Cost_NonNegativeAndMonotone(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		model := rapid.SampledFrom([]string{
			"gpt-4o", "gpt-4o-mini", "gpt-4", "gpt-3.5-turbo", "unknown-model",
		}).Draw(rt, "model")
		prompt := rapid.IntRange(0, 1_000_000).Draw(rt, "prompt")
		completion := rapid.IntRange(0, 1_000_000).Draw(rt, "completion")

		cost := Cost(model, prompt, completion)
		require.False(t, cost.IsNegative(), "cost must be non-negative")

		// 单调性：任一 Token 数增加时成本不减
		more := rapid.IntRange(1, 10_000).Draw(rt, "more")
		assert.True(t, Cost(model, prompt+more, completion).GreaterThanOrEqual(cost))
		assert.True(t, Cost(model, prompt, completion+more).GreaterThanOrEqual(cost))
	})
}

func TestProperty_Cost_EqualsSumOfParts(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		prompt := rapid.IntRange(0, 500_000).Draw(rt, "prompt")
		completion := rapid.IntRange(0, 500_000).Draw(rt, "completion")

		full := Cost("gpt-4o", prompt, completion)
		split := Cost("gpt-4o", prompt, 0).Add(Cost("gpt-4o", 0, completion))
		assert.True(t, full.Equal(split), "full=%s split=%s", full, split)
	})
}

// =============================================================================
// 🧪 Token 估算测试
// =============================================================================

func TestEstimateCompletionTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateCompletionTokens(""))
	// 10 words * 1.3 = 13
	assert.Equal(t, 13, EstimateCompletionTokens("a b c d e f g h i j"))
}

func TestEstimatePromptTokens_Empty(t *testing.T) {
	assert.Equal(t, 0, EstimatePromptTokens(""))
}

func TestEstimatePromptTokens_NonEmpty(t *testing.T) {
	n := EstimatePromptTokens("What is the capital of France?")
	assert.Greater(t, n, 0)
}
