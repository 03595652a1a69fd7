package loopdetect

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"pgregory.net/rapid"
)

func newTestDetector() *Detector {
	return NewDetector(0.95, zap.NewNop())
}

// =============================================================================
// 🧪 精确重复检测
// =============================================================================

func TestCheck_EmptyHistoryIsNeverLoop(t *testing.T) {
	d := newTestDetector()

	res := d.Check("do the thing", "", nil, nil)

	assert.False(t, res.IsLoop)
	assert.Equal(t, LoopNone, res.Type)
}

func TestCheck_ExactPromptRepetition(t *testing.T) {
	d := newTestDetector()

	res := d.Check("search for cats", "",
		[]string{"first step", "search for cats"}, nil)

	assert.True(t, res.IsLoop)
	assert.Equal(t, 1.0, res.Confidence)
	assert.Equal(t, LoopExactPrompt, res.Type)
}

func TestCheck_ExactPromptIsCaseAndSpaceInsensitive(t *testing.T) {
	d := newTestDetector()

	res := d.Check("  Search FOR Cats ", "",
		[]string{"search for cats"}, nil)

	assert.True(t, res.IsLoop)
	assert.Equal(t, LoopExactPrompt, res.Type)
}

func TestCheck_ExactResponseRepetition(t *testing.T) {
	d := newTestDetector()

	res := d.Check("a totally fresh prompt", "I cannot do that",
		[]string{"previous different prompt"},
		[]string{"I cannot do that"})

	assert.True(t, res.IsLoop)
	assert.Equal(t, 1.0, res.Confidence)
	assert.Equal(t, LoopExactResponse, res.Type)
}

func TestCheck_PreCheckSkipsResponseComparison(t *testing.T) {
	d := newTestDetector()

	// 预检 response 为空，不得因历史 response 判循环
	res := d.Check("a totally fresh prompt", "",
		[]string{"previous different prompt"},
		[]string{"I cannot do that"})

	assert.False(t, res.IsLoop)
}

// =============================================================================
// 🧪 相似与振荡检测
// =============================================================================

func TestCheck_SimilarPrompt(t *testing.T) {
	d := NewDetector(0.80, zap.NewNop())

	res := d.Check("please search the web for cat pictures now", "",
		[]string{"please search the web for cat pictures today"}, nil)

	assert.True(t, res.IsLoop)
	assert.Equal(t, LoopSimilarPrompt, res.Type)
	assert.GreaterOrEqual(t, res.Confidence, 0.80)
	assert.Less(t, res.Confidence, 1.0)
}

func TestCheck_SimilarOnlyConsidersLastThree(t *testing.T) {
	d := NewDetector(0.80, zap.NewNop())

	// 相似条目在倒数第 4 位，应不参与相似度比较
	history := []string{
		"please search the web for cat pictures today",
		"step two entirely different words",
		"step three more unrelated content here",
		"step four nothing in common either",
	}
	res := d.Check("please search the web for cat pictures now", "", history, nil)

	assert.False(t, res.IsLoop)
}

func TestCheck_OscillatingRunIsBlockedAsExactRepetition(t *testing.T) {
	d := newTestDetector()

	// 历史 A, B, A；当前 B 构成 A-B-A-B，但 B 同时是环内精确重复，
	// 优先级上精确重复先命中
	res := d.Check("state b", "",
		[]string{"state a", "state b", "state a"}, nil)

	assert.True(t, res.IsLoop)
	assert.Equal(t, LoopExactPrompt, res.Type)
	assert.Equal(t, 1.0, res.Confidence)
}

func TestDetectOscillation(t *testing.T) {
	tests := []struct {
		name    string
		prompts []string
		want    bool
	}{
		{"abab", []string{"a", "b", "a", "b"}, true},
		{"longer history tail abab", []string{"x", "y", "a", "b", "a", "b"}, true},
		{"aaaa is not oscillation", []string{"a", "a", "a", "a"}, false},
		{"abca", []string{"a", "b", "c", "a"}, false},
		{"too short", []string{"a", "b", "a"}, false},
		{"normalized", []string{"A ", "b", " a", "B"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, detectOscillation(tt.prompts))
		})
	}
}

func TestCheck_NoOscillationWhenAllIdenticalWouldBeExact(t *testing.T) {
	d := newTestDetector()

	// A-A-A-A 先被精确重复拦截，且 hashes[0]==hashes[1] 不算振荡
	res := d.Check("state a", "",
		[]string{"state a", "state a", "state a"}, nil)

	assert.True(t, res.IsLoop)
	assert.Equal(t, LoopExactPrompt, res.Type)
}

func TestCheck_ProgressingRunIsNotLoop(t *testing.T) {
	d := newTestDetector()

	res := d.Check("now summarize everything we found", "quick summary",
		[]string{"search the web", "open the first result", "extract the table"},
		[]string{"ok searching", "opened page", "table extracted"})

	assert.False(t, res.IsLoop)
	assert.Equal(t, 0.0, res.Confidence)
}

// =============================================================================
// 🧪 Jaccard 性质测试
// =============================================================================

func TestJaccardSimilarity_Basics(t *testing.T) {
	assert.Equal(t, 1.0, JaccardSimilarity("hello world", "world hello"))
	assert.Equal(t, 0.0, JaccardSimilarity("abc def", "ghi jkl"))
	assert.Equal(t, 0.0, JaccardSimilarity("", "hello"))
	assert.Equal(t, 0.0, JaccardSimilarity("", ""))
}

func TestProperty_JaccardSymmetricAndBounded(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		gen := rapid.StringMatching(`[a-z ]{0,60}`)
		t1 := gen.Draw(rt, "t1")
		t2 := gen.Draw(rt, "t2")

		s12 := JaccardSimilarity(t1, t2)
		s21 := JaccardSimilarity(t2, t1)

		assert.Equal(rt, s12, s21, "similarity must be symmetric")
		assert.GreaterOrEqual(rt, s12, 0.0)
		assert.LessOrEqual(rt, s12, 1.0)
		assert.False(rt, math.IsNaN(s12))
	})
}

func TestProperty_JaccardIdentityIsOne(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		text := rapid.StringMatching(`[a-z]{1,10}( [a-z]{1,10}){0,8}`).Draw(rt, "text")
		assert.Equal(rt, 1.0, JaccardSimilarity(text, text))
	})
}

func TestProperty_ExactDuplicateAlwaysConfidenceOne(t *testing.T) {
	d := newTestDetector()

	rapid.Check(t, func(rt *rapid.T) {
		prompt := rapid.StringMatching(`[a-zA-Z ]{1,80}`).Draw(rt, "prompt")
		filler := rapid.StringMatching(`[a-z ]{1,40}`).Draw(rt, "filler")
		if strings.EqualFold(strings.TrimSpace(filler), strings.TrimSpace(prompt)) {
			rt.Skip()
		}

		res := d.Check(prompt, "", []string{filler, prompt}, nil)

		assert.True(rt, res.IsLoop)
		assert.Equal(rt, 1.0, res.Confidence)
		assert.Equal(rt, LoopExactPrompt, res.Type)
	})
}
