package dlp

import (
	"math"
	"unicode"

	"go.uber.org/zap"
)

// =============================================================================
// 🛡️ DLP 引擎
// =============================================================================

// Mode DLP 动作模式
type Mode string

const (
	// ModeMask 用替换模板替换命中内容
	ModeMask Mode = "mask"
	// ModeBlock 存在命中即拒绝请求
	ModeBlock Mode = "block"
	// ModeShadowLog 只记录命中事实，原样放行
	ModeShadowLog Mode = "shadow_log"
)

// ParseMode 解析模式字符串，非法值回退到 mask。
func ParseMode(s string) Mode {
	switch Mode(s) {
	case ModeMask, ModeBlock, ModeShadowLog:
		return Mode(s)
	default:
		return ModeMask
	}
}

// Match 单次命中记录
type Match struct {
	Type  string `json:"type"`
	Value string `json:"value"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// Result 一次扫描的结果
type Result struct {
	// Redacted 处理后的文本。mask 模式下为脱敏文本，
	// shadow_log 模式下与输入完全一致。
	Redacted string
	// Matches 全部命中（shadow_log 模式下同样填充）
	Matches []Match
	// Blocked block 模式下存在命中时为 true
	Blocked bool
}

// Triggered 是否有任何命中。
func (r Result) Triggered() bool {
	return len(r.Matches) > 0
}

// Engine 敏感数据扫描引擎。模式目录在构造时固定，扫描无锁并发安全。
type Engine struct {
	patterns []Pattern
	mode     Mode
	logger   *zap.Logger
}

// NewEngine 创建使用内置模式目录的引擎。
func NewEngine(mode Mode, logger *zap.Logger) *Engine {
	return &Engine{
		patterns: defaultPatterns,
		mode:     mode,
		logger:   logger.With(zap.String("component", "dlp")),
	}
}

// Mode 返回引擎当前动作模式。
func (e *Engine) Mode() Mode {
	return e.mode
}

// Scan 按引擎配置的模式扫描文本。
func (e *Engine) Scan(text string) Result {
	return e.ScanMode(text, e.mode)
}

// ScanMode 按指定模式扫描文本。
func (e *Engine) ScanMode(text string, mode Mode) Result {
	if text == "" {
		return Result{Redacted: text}
	}

	var matches []Match
	redacted := text

	for _, p := range e.patterns {
		for _, loc := range p.Regexp.FindAllStringIndex(text, -1) {
			value := text[loc[0]:loc[1]]
			if p.RequireLuhn && !ValidateCreditCard(value) {
				continue
			}
			matches = append(matches, Match{
				Type:  p.Name,
				Value: value,
				Start: loc[0],
				End:   loc[1],
			})
		}

		if p.RequireLuhn {
			redacted = p.Regexp.ReplaceAllStringFunc(redacted, func(m string) string {
				if !ValidateCreditCard(m) {
					return m
				}
				return p.Replacement
			})
		} else {
			redacted = p.Regexp.ReplaceAllString(redacted, p.Replacement)
		}
	}

	switch {
	case mode == ModeBlock && len(matches) > 0:
		e.logger.Warn("DLP 拦截请求", zap.Int("matches", len(matches)))
		return Result{Redacted: redacted, Matches: matches, Blocked: true}

	case mode == ModeShadowLog && len(matches) > 0:
		e.logger.Info("DLP 影子记录", zap.Int("matches", len(matches)))
		// 只观测不修改
		return Result{Redacted: text, Matches: matches}

	default:
		return Result{Redacted: redacted, Matches: matches}
	}
}

// =============================================================================
// 💳 Luhn 校验
// =============================================================================

// ValidateCreditCard 用 Luhn 算法校验信用卡号（允许分隔符）。
func ValidateCreditCard(cardNumber string) bool {
	var digits []int
	for _, r := range cardNumber {
		if unicode.IsDigit(r) {
			digits = append(digits, int(r-'0'))
		}
	}

	if len(digits) < 13 || len(digits) > 19 {
		return false
	}

	total := 0
	for i := 0; i < len(digits); i++ {
		n := digits[len(digits)-1-i]
		if i%2 == 1 {
			n *= 2
			if n > 9 {
				n -= 9
			}
		}
		total += n
	}
	return total%10 == 0
}

// =============================================================================
// 🎲 熵启发式
// =============================================================================

// CalculateEntropy 计算文本的 Shannon 熵（bit/字符）。
// 熵 >4.0 通常意味着随机或加密数据。
func CalculateEntropy(text string) float64 {
	if text == "" {
		return 0
	}

	freq := make(map[rune]int)
	n := 0
	for _, r := range text {
		freq[r]++
		n++
	}

	entropy := 0.0
	for _, count := range freq {
		p := float64(count) / float64(n)
		entropy -= p * math.Log2(p)
	}
	return entropy
}

// IsLikelySecret 启发式判断文本是否像密钥：
// 长度 ≥20、熵 ≥3.5、且至少包含三类字符（大写/小写/数字/特殊）。
func IsLikelySecret(text string) bool {
	if len(text) < 20 {
		return false
	}
	if CalculateEntropy(text) < 3.5 {
		return false
	}

	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, r := range text {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		default:
			hasSpecial = true
		}
	}

	types := 0
	for _, b := range []bool{hasUpper, hasLower, hasDigit, hasSpecial} {
		if b {
			types++
		}
	}
	return types >= 3
}
