package budget

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"pgregory.net/rapid"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTestEnforcer(policy Policy) *Enforcer {
	return NewEnforcer(policy, zap.NewNop())
}

// =============================================================================
// 🧪 闸门判定测试
// =============================================================================

func TestCheckRunBudget_UnderAllLimits(t *testing.T) {
	e := newTestEnforcer(DefaultPolicy())

	d := e.CheckRunBudget("run-1", dec("1.0"), dec("10.0"), dec("100.0"))

	assert.False(t, d.ShouldKill)
	assert.False(t, d.Exceeded())
	assert.Equal(t, LimitNone, d.ExceededLimit)
}

func TestCheckRunBudget_ExactlyAtLimitIsAllowed(t *testing.T) {
	e := newTestEnforcer(Policy{
		PerRunLimit:  dec("10"),
		DailyLimit:   dec("100"),
		MonthlyLimit: dec("3000"),
		AutoKill:     true,
	})

	// 严格大于才触发：刚好等于限额时放行
	d := e.CheckRunBudget("run-1", dec("10"), dec("90"), dec("2990"))

	assert.False(t, d.ShouldKill)
	assert.False(t, d.Exceeded())
}

func TestCheckRunBudget_PerRunExceeded(t *testing.T) {
	e := newTestEnforcer(Policy{
		PerRunLimit:  dec("0.0001"),
		DailyLimit:   dec("100"),
		MonthlyLimit: dec("3000"),
		AutoKill:     true,
	})

	d := e.CheckRunBudget("run-1", dec("0.0002"), decimal.Zero, decimal.Zero)

	assert.True(t, d.ShouldKill)
	assert.Equal(t, LimitPerRun, d.ExceededLimit)
	assert.True(t, d.Limit.Equal(dec("0.0001")))
}

func TestCheckRunBudget_DailyIncludesIncrement(t *testing.T) {
	e := newTestEnforcer(Policy{
		PerRunLimit:  dec("10"),
		DailyLimit:   dec("100"),
		MonthlyLimit: dec("3000"),
		AutoKill:     true,
	})

	// 99.5 已花 + 1.0 本次 = 100.5 > 100
	d := e.CheckRunBudget("run-1", dec("1.0"), dec("99.5"), decimal.Zero)

	assert.True(t, d.ShouldKill)
	assert.Equal(t, LimitDaily, d.ExceededLimit)
}

func TestCheckRunBudget_MonthlyIncludesIncrement(t *testing.T) {
	e := newTestEnforcer(Policy{
		PerRunLimit:  dec("10"),
		DailyLimit:   dec("100"),
		MonthlyLimit: dec("3000"),
		AutoKill:     true,
	})

	d := e.CheckRunBudget("run-1", dec("1.0"), decimal.Zero, dec("2999.5"))

	assert.True(t, d.ShouldKill)
	assert.Equal(t, LimitMonthly, d.ExceededLimit)
}

func TestCheckRunBudget_PerRunTakesPrecedence(t *testing.T) {
	e := newTestEnforcer(Policy{
		PerRunLimit:  dec("1"),
		DailyLimit:   dec("1"),
		MonthlyLimit: dec("1"),
		AutoKill:     true,
	})

	d := e.CheckRunBudget("run-1", dec("2"), dec("5"), dec("5"))

	assert.Equal(t, LimitPerRun, d.ExceededLimit)
}

func TestCheckRunBudget_AutoKillDisabledStillLabels(t *testing.T) {
	e := newTestEnforcer(Policy{
		PerRunLimit:  dec("0.01"),
		DailyLimit:   dec("100"),
		MonthlyLimit: dec("3000"),
		AutoKill:     false,
	})

	d := e.CheckRunBudget("run-1", dec("1"), decimal.Zero, decimal.Zero)

	assert.False(t, d.ShouldKill)
	assert.True(t, d.Exceeded())
	assert.Equal(t, LimitPerRun, d.ExceededLimit)
	assert.NotEmpty(t, d.Reason)
}

func TestShouldAlert(t *testing.T) {
	p := DefaultPolicy()

	assert.False(t, p.ShouldAlert(dec("5.0")))
	assert.True(t, p.ShouldAlert(dec("5.01")))
}

func TestRemainingBudget(t *testing.T) {
	e := newTestEnforcer(DefaultPolicy())

	r := e.RemainingBudget(dec("40"), dec("500"))

	assert.True(t, r.DailyRemaining.Equal(dec("60")))
	assert.True(t, r.MonthlyRemaining.Equal(dec("2500")))
	assert.True(t, r.PerRunLimit.Equal(dec("10.0")))
}

// =============================================================================
// 🧪 性质测试
// =============================================================================

func TestProperty_WithinAllLimitsNeverKills(t *testing.T) {
	policy := Policy{
		PerRunLimit:  dec("10"),
		DailyLimit:   dec("100"),
		MonthlyLimit: dec("3000"),
		AutoKill:     true,
	}
	e := newTestEnforcer(policy)

	rapid.Check(t, func(rt *rapid.T) {
		// 以整数“微美元”生成，换算为 decimal，避免浮点
		costMicros := rapid.Int64Range(0, 10_000_000).Draw(rt, "cost")
		cost := decimal.NewFromInt(costMicros).Div(decimal.NewFromInt(1_000_000))

		dailyHeadroom := policy.DailyLimit.Sub(cost)
		monthlyHeadroom := policy.MonthlyLimit.Sub(cost)

		dailyMicros := rapid.Int64Range(0, dailyHeadroom.Mul(decimal.NewFromInt(1_000_000)).IntPart()).Draw(rt, "daily")
		monthlyMicros := rapid.Int64Range(0, monthlyHeadroom.Mul(decimal.NewFromInt(1_000_000)).IntPart()).Draw(rt, "monthly")

		d := e.CheckRunBudget("run-p",
			cost,
			decimal.NewFromInt(dailyMicros).Div(decimal.NewFromInt(1_000_000)),
			decimal.NewFromInt(monthlyMicros).Div(decimal.NewFromInt(1_000_000)),
		)

		assert.False(rt, d.ShouldKill, "within all limits must not kill: %+v", d)
		assert.False(rt, d.Exceeded())
	})
}

func TestProperty_ExceededAlwaysCarriesLimitLabel(t *testing.T) {
	e := newTestEnforcer(Policy{
		PerRunLimit:  dec("1"),
		DailyLimit:   dec("2"),
		MonthlyLimit: dec("3"),
		AutoKill:     true,
	})

	rapid.Check(t, func(rt *rapid.T) {
		costMicros := rapid.Int64Range(0, 10_000_000).Draw(rt, "cost")
		cost := decimal.NewFromInt(costMicros).Div(decimal.NewFromInt(1_000_000))

		d := e.CheckRunBudget("run-p", cost, decimal.Zero, decimal.Zero)

		if d.ShouldKill {
			assert.NotEqual(rt, LimitNone, d.ExceededLimit)
			assert.NotEmpty(rt, d.Reason)
		}
	})
}
