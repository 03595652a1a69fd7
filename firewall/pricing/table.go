package pricing

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// 💰 模型价格表
// =============================================================================

// ModelPricing 单个模型的价格（每 1M Token，美元）
type ModelPricing struct {
	Input  decimal.Decimal
	Output decimal.Decimal
}

// millionTokens 计价基数
var millionTokens = decimal.NewFromInt(1_000_000)

// price 构造价格条目（仅限包内字面量使用）
func price(input, output string) ModelPricing {
	return ModelPricing{
		Input:  decimal.RequireFromString(input),
		Output: decimal.RequireFromString(output),
	}
}

// modelPricing 价格表：启动时加载的单一字面量，不做网络拉取。
// 价格来源: https://openai.com/pricing （2025-01 快照）
var modelPricing = map[string]ModelPricing{
	// GPT-4o
	"gpt-4o":            price("2.50", "10.00"),
	"gpt-4o-2024-11-20": price("2.50", "10.00"),
	"gpt-4o-2024-08-06": price("2.50", "10.00"),

	// GPT-4o mini
	"gpt-4o-mini":            price("0.15", "0.60"),
	"gpt-4o-mini-2024-07-18": price("0.15", "0.60"),

	// GPT-4 Turbo
	"gpt-4-turbo":         price("10.00", "30.00"),
	"gpt-4-turbo-preview": price("10.00", "30.00"),
	"gpt-4-1106-preview":  price("10.00", "30.00"),

	// GPT-4
	"gpt-4":     price("30.00", "60.00"),
	"gpt-4-32k": price("60.00", "120.00"),

	// GPT-3.5 Turbo
	"gpt-3.5-turbo":      price("0.50", "1.50"),
	"gpt-3.5-turbo-0125": price("0.50", "1.50"),
	"gpt-3.5-turbo-1106": price("1.00", "2.00"),

	// o1 推理模型
	"o1":         price("15.00", "60.00"),
	"o1-preview": price("15.00", "60.00"),
	"o1-mini":    price("3.00", "12.00"),

	// Claude（经 OpenAI 兼容网关）
	"claude-3-5-sonnet-20241022": price("3.00", "15.00"),
	"claude-3-5-haiku-20241022":  price("0.80", "4.00"),
	"claude-3-opus-20240229":     price("15.00", "75.00"),
}

// defaultPricing 未知模型的兜底价格
var defaultPricing = price("1.00", "3.00")

// =============================================================================
// 🎯 成本计算
// =============================================================================

// Lookup 返回模型价格，未命中时返回默认价格。
func Lookup(model string) ModelPricing {
	if p, ok := modelPricing[model]; ok {
		return p
	}
	return defaultPricing
}

// Cost 计算一次请求的美元成本（定点十进制，8 位小数）。
// 对任意非负 Token 数结果有限且非负；Token 为零时成本为零。
func Cost(model string, promptTokens, completionTokens int) decimal.Decimal {
	p := Lookup(model)

	inputCost := decimal.NewFromInt(int64(promptTokens)).
		Mul(p.Input).
		Div(millionTokens)
	outputCost := decimal.NewFromInt(int64(completionTokens)).
		Mul(p.Output).
		Div(millionTokens)

	return inputCost.Add(outputCost).Round(8)
}

// EstimateRunCost 在请求前估算成本（预算预检用），按输入/输出均价折算。
func EstimateRunCost(model string, estimatedTokens int) decimal.Decimal {
	p := Lookup(model)
	avg := p.Input.Add(p.Output).Div(decimal.NewFromInt(2))
	return decimal.NewFromInt(int64(estimatedTokens)).Mul(avg).Div(millionTokens).Round(8)
}
