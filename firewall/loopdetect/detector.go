package loopdetect

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// =============================================================================
// 🔄 循环类型
// =============================================================================

// LoopType 循环类别（闭集，仅在写出日志/错误体时序列化为字符串）
type LoopType string

const (
	LoopNone          LoopType = ""
	LoopExactPrompt   LoopType = "exact_prompt"
	LoopExactResponse LoopType = "exact_response"
	LoopSimilarPrompt LoopType = "similar_prompt"
	LoopOscillation   LoopType = "oscillation"
)

// Result 一次循环检测的结果
type Result struct {
	IsLoop     bool     `json:"is_loop"`
	Confidence float64  `json:"confidence"`
	Type       LoopType `json:"loop_type"`
	Message    string   `json:"message"`
}

// =============================================================================
// 🔍 检测器
// =============================================================================

// Detector 基于哈希与 Jaccard 相似度的循环检测器。无状态，并发安全。
type Detector struct {
	similarityThreshold float64
	logger              *zap.Logger
}

// NewDetector 创建检测器。threshold 为相似 prompt 的判定阈值（0,1]。
func NewDetector(threshold float64, logger *zap.Logger) *Detector {
	return &Detector{
		similarityThreshold: threshold,
		logger:              logger.With(zap.String("component", "loopdetect")),
	}
}

// Check 检测当前交互是否构成循环。
//
// currentResponse 为空表示请求前预检（只比对 prompt 历史）；
// recentPrompts / recentResponses 为该 Run 最近 N 步的历史环，
// 不包含当前 prompt。
func (d *Detector) Check(currentPrompt, currentResponse string, recentPrompts, recentResponses []string) Result {
	if len(recentPrompts) == 0 {
		return Result{}
	}

	// 检查 1：prompt 完全重复
	currentHash := hashText(currentPrompt)
	for i, prev := range recentPrompts {
		if hashText(prev) == currentHash {
			d.logger.Warn("检测到循环：prompt 完全重复")
			return Result{
				IsLoop:     true,
				Confidence: 1.0,
				Type:       LoopExactPrompt,
				Message:    fmt.Sprintf("Exact prompt repetition detected (matches step -%d)", len(recentPrompts)-i),
			}
		}
	}

	// 检查 2：response 完全重复（仅后检）
	if currentResponse != "" && len(recentResponses) > 0 {
		responseHash := hashText(currentResponse)
		for _, prev := range recentResponses {
			if hashText(prev) == responseHash {
				d.logger.Warn("检测到循环：response 完全重复")
				return Result{
					IsLoop:     true,
					Confidence: 1.0,
					Type:       LoopExactResponse,
					Message:    "Exact response repetition detected",
				}
			}
		}
	}

	// 检查 3：高相似 prompt（只看最近 3 条）
	recent := recentPrompts
	if len(recent) > 3 {
		recent = recent[len(recent)-3:]
	}
	for _, prev := range recent {
		similarity := JaccardSimilarity(currentPrompt, prev)
		if similarity >= d.similarityThreshold {
			d.logger.Warn("检测到循环：高相似 prompt", zap.Float64("similarity", similarity))
			return Result{
				IsLoop:     true,
				Confidence: similarity,
				Type:       LoopSimilarPrompt,
				Message:    fmt.Sprintf("Similar prompt detected (similarity: %.2f%%)", similarity*100),
			}
		}
	}

	// 检查 4：振荡模式 A->B->A->B（含当前 prompt）
	if len(recentPrompts) >= 3 {
		history := append(append([]string{}, recentPrompts...), currentPrompt)
		if detectOscillation(history) {
			d.logger.Warn("检测到循环：振荡模式")
			return Result{
				IsLoop:     true,
				Confidence: 0.9,
				Type:       LoopOscillation,
				Message:    "Oscillation pattern detected (A->B->A->B)",
			}
		}
	}

	return Result{}
}

// hashText 归一化（小写 + 去首尾空白）后取 MD5。
func hashText(text string) string {
	normalized := strings.ToLower(strings.TrimSpace(text))
	sum := md5.Sum([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// JaccardSimilarity 按空白分词的小写词集计算 Jaccard 相似度。
// 对称，值域 [0,1]；任一侧无词时为 0。
func JaccardSimilarity(text1, text2 string) float64 {
	words1 := wordSet(text1)
	words2 := wordSet(text2)

	if len(words1) == 0 || len(words2) == 0 {
		return 0
	}

	intersection := 0
	for w := range words1 {
		if _, ok := words2[w]; ok {
			intersection++
		}
	}
	union := len(words1) + len(words2) - intersection

	return float64(intersection) / float64(union)
}

func wordSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(text)) {
		set[w] = struct{}{}
	}
	return set
}

// detectOscillation 判断最后四条 prompt 是否构成 A-B-A-B。
func detectOscillation(prompts []string) bool {
	if len(prompts) < 4 {
		return false
	}

	last4 := prompts[len(prompts)-4:]
	hashes := make([]string, 4)
	for i, p := range last4 {
		hashes[i] = hashText(p)
	}

	return hashes[0] == hashes[2] && hashes[1] == hashes[3] && hashes[0] != hashes[1]
}
