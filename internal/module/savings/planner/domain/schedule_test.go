package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"savingsplanner/internal/module/savings/calendar"
)

func day(y int, m time.Month, d int) calendar.EpochDay {
	return calendar.ToEpochDay(time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func planGoal(name, remaining string, deadline calendar.EpochDay) PlanGoal {
	return PlanGoal{ID: uuid.New(), Name: name, Currency: "USD", Remaining: dec(remaining), Deadline: deadline, Priority: 1}
}

var (
	today = day(2026, time.January, 10)
	pc    = calendar.NewPaymentCalendar(1)
)

func almostEqual(t *testing.T, want, got decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	assert.True(t, want.Sub(got).Abs().LessThan(dec("0.000001")),
		"want %s got %s %v", want, got, msgAndArgs)
}

// Single goal, exact fit: 1200 over 12 months at 100/month fills every
// payment exactly and completes on the final anchor before the deadline.
func TestGenerateSchedule_SingleGoalExactFit(t *testing.T) {
	g := planGoal("house", "1200", day(2027, time.January, 10))

	plan := GenerateSchedule([]PlanGoal{g}, dec("100"), today, pc)

	require.Len(t, plan.Payments, 12)
	assert.Empty(t, plan.Infeasible)
	assert.Equal(t, day(2026, time.February, 1), plan.Payments[0].Date)
	assert.Equal(t, day(2027, time.January, 1), plan.Payments[11].Date)

	for i, p := range plan.Payments {
		assert.Equal(t, i+1, p.Number)
		require.Len(t, p.Contributions, 1)
		almostEqual(t, dec("100"), p.Contributions[0].Amount, "payment", i+1)
	}
	assert.True(t, plan.Payments[0].Contributions[0].IsGoalStart)
	assert.False(t, plan.Payments[0].Contributions[0].IsGoalComplete)
	assert.True(t, plan.Payments[11].Contributions[0].IsGoalComplete)
	almostEqual(t, dec("1200"), plan.TotalAmount)
}

// Two goals, binding earlier deadline: the minimum budget is decided by
// the cumulative scan, and at that budget both deadlines are met with the
// earlier goal funded ahead of the later one.
func TestMinimumBudget_BindingEarlierDeadline(t *testing.T) {
	g1 := planGoal("car", "600", day(2026, time.April, 10))   // 3 anchors away
	g2 := planGoal("trip", "1200", day(2026, time.July, 10))  // 6 anchors away

	minimum := MinimumBudget([]PlanGoal{g2, g1}, today, pc)

	// max(600/3, 1800/6) = max(200, 300) = 300
	assert.True(t, dec("300").Equal(minimum), "got %s", minimum)
}

func TestGenerateSchedule_TwoGoalsSplitThenSolo(t *testing.T) {
	g1 := planGoal("car", "600", day(2026, time.April, 10))
	g2 := planGoal("trip", "1200", day(2026, time.July, 10))

	plan := GenerateSchedule([]PlanGoal{g2, g1}, dec("300"), today, pc)

	require.Len(t, plan.Payments, 6)
	assert.Empty(t, plan.Infeasible)

	// Payments 1-3 split between both goals, earlier deadline first.
	for i := 0; i < 3; i++ {
		p := plan.Payments[i]
		require.Len(t, p.Contributions, 2, "payment %d", i+1)
		assert.Equal(t, g1.ID, p.Contributions[0].GoalID)
		assert.Equal(t, g2.ID, p.Contributions[1].GoalID)
		almostEqual(t, dec("200"), p.Contributions[0].Amount)
		almostEqual(t, dec("100"), p.Contributions[1].Amount)
	}
	assert.True(t, plan.Payments[2].Contributions[0].IsGoalComplete, "g1 completes on payment 3")

	// Payments 4-6 fund the later goal alone.
	for i := 3; i < 6; i++ {
		p := plan.Payments[i]
		require.Len(t, p.Contributions, 1, "payment %d", i+1)
		assert.Equal(t, g2.ID, p.Contributions[0].GoalID)
		almostEqual(t, dec("300"), p.Contributions[0].Amount)
	}
	assert.True(t, plan.Payments[5].Contributions[0].IsGoalComplete, "g2 completes on payment 6")
}

// Infeasibility with suggestions: a 1000 remainder due next month at a 400
// budget reports the shortfall and suggests either raising the budget to
// the minimum or extending the deadline two months.
func TestCheckFeasibility_InfeasibleWithSuggestions(t *testing.T) {
	g1 := planGoal("roof", "1000", day(2026, time.February, 10))

	result := CheckFeasibility([]PlanGoal{g1}, dec("400"), today, pc)

	assert.False(t, result.Feasible)
	require.Len(t, result.InfeasibleGoals, 1)
	assert.Equal(t, g1.ID, result.InfeasibleGoals[0].GoalID)
	assert.True(t, dec("1000").Equal(result.InfeasibleGoals[0].Required))
	assert.True(t, dec("600").Equal(result.InfeasibleGoals[0].Shortfall))

	require.Len(t, result.Suggestions, 2)
	assert.Equal(t, SuggestIncreaseBudget, result.Suggestions[0].Kind)
	assert.True(t, dec("1000").Equal(result.Suggestions[0].Amount))
	assert.Equal(t, SuggestExtendDeadline, result.Suggestions[1].Kind)
	assert.Equal(t, g1.ID, result.Suggestions[1].GoalID)
	// ceil(1000/400) - 1 = 2
	assert.Equal(t, 2, result.Suggestions[1].ByMonths)
}

func TestCheckFeasibility_FeasibleBudget(t *testing.T) {
	g1 := planGoal("car", "600", day(2026, time.April, 10))
	g2 := planGoal("trip", "1200", day(2026, time.July, 10))

	result := CheckFeasibility([]PlanGoal{g1, g2}, dec("300"), today, pc)

	assert.True(t, result.Feasible)
	assert.Empty(t, result.InfeasibleGoals)
	assert.Empty(t, result.Suggestions)
	assert.True(t, dec("300").Equal(result.MinimumBudget))
	// leveled: 1800 / 6
	assert.True(t, dec("300").Equal(result.LeveledBudget))
}

// Pre-converted cross-currency remainder: 1000 EUR at 1.10 becomes an
// 1100 target-currency remainder over four months.
func TestMinimumBudget_ConvertedRemainder(t *testing.T) {
	g := planGoal("emergency", "1100", day(2026, time.May, 10))

	minimum := MinimumBudget([]PlanGoal{g}, today, pc)

	assert.True(t, dec("275").Equal(minimum), "got %s", minimum)
}

// Quantified schedule properties over a mixed fixture.
func TestGenerateSchedule_Properties(t *testing.T) {
	goals := []PlanGoal{
		planGoal("a", "750.50", day(2026, time.May, 10)),
		planGoal("b", "1999.99", day(2026, time.November, 10)),
		planGoal("c", "120", day(2026, time.March, 10)),
	}
	budget := dec("450")
	tolerance := dec("0.000001")

	plan := GenerateSchedule(goals, budget, today, pc)
	require.NotEmpty(t, plan.Payments)
	assert.Empty(t, plan.Infeasible)

	deadlines := map[uuid.UUID]calendar.EpochDay{}
	for _, g := range goals {
		deadlines[g.ID] = g.Deadline
	}

	for _, p := range plan.Payments {
		// Per-payment total never exceeds the budget.
		assert.True(t, p.Total.LessThanOrEqual(budget.Add(tolerance)),
			"payment %d total %s exceeds budget", p.Number, p.Total)

		// No contribution lands past its goal's deadline.
		for _, c := range p.Contributions {
			assert.False(t, p.Date.After(deadlines[c.GoalID]),
				"payment %d contributes to %s past deadline", p.Number, c.GoalName)
		}
	}

	// Every goal is funded in full: the feasibility scan said the budget
	// suffices, so nothing may be left stranded.
	for _, g := range goals {
		almostEqual(t, g.Remaining, plan.ContributionsTo(g.ID), "goal", g.Name)
	}
}

// The minimum-budget property: scheduling at exactly MinimumBudget leaves
// no infeasible remainder.
func TestGenerateSchedule_AtMinimumBudgetIsFeasible(t *testing.T) {
	goals := []PlanGoal{
		planGoal("a", "600", day(2026, time.April, 10)),
		planGoal("b", "1200", day(2026, time.July, 10)),
		planGoal("c", "333.33", day(2026, time.March, 10)),
	}

	minimum := MinimumBudget(goals, today, pc)
	plan := GenerateSchedule(goals, minimum, today, pc)

	assert.Empty(t, plan.Infeasible)
	for _, g := range goals {
		almostEqual(t, g.Remaining, plan.ContributionsTo(g.ID), "goal", g.Name)
	}
}

// A budget below the requirement strands the unfundable remainder and
// reports it instead of silently truncating the schedule.
func TestGenerateSchedule_StrandedRemainderIsReported(t *testing.T) {
	g := planGoal("roof", "1000", day(2026, time.February, 10))

	plan := GenerateSchedule([]PlanGoal{g}, dec("400"), today, pc)

	require.Len(t, plan.Payments, 1)
	almostEqual(t, dec("400"), plan.Payments[0].Total)
	require.Len(t, plan.Infeasible, 1)
	assert.Equal(t, g.ID, plan.Infeasible[0].GoalID)
	almostEqual(t, dec("600"), plan.Infeasible[0].Shortfall)
}

func TestGenerateSchedule_DeterministicForSameInputs(t *testing.T) {
	goals := []PlanGoal{
		planGoal("a", "750.50", day(2026, time.May, 10)),
		planGoal("b", "1999.99", day(2026, time.November, 10)),
	}

	p1 := GenerateSchedule(goals, dec("450"), today, pc)
	p2 := GenerateSchedule(goals, dec("450"), today, pc)

	require.Equal(t, len(p1.Payments), len(p2.Payments))
	for i := range p1.Payments {
		assert.Equal(t, p1.Payments[i].Date, p2.Payments[i].Date)
		require.Equal(t, len(p1.Payments[i].Contributions), len(p2.Payments[i].Contributions))
		for j := range p1.Payments[i].Contributions {
			assert.True(t, p1.Payments[i].Contributions[j].Amount.Equal(p2.Payments[i].Contributions[j].Amount))
		}
	}
}

// Recalculating with the planned amount is a no-op: the plan is identical
// from the next payment onward (and before it, trivially).
func TestRecalculate_PlannedAmountIsIdentity(t *testing.T) {
	goals := []PlanGoal{
		planGoal("car", "600", day(2026, time.April, 10)),
		planGoal("trip", "1200", day(2026, time.July, 10)),
	}
	plan := GenerateSchedule(goals, dec("300"), today, pc)
	require.Len(t, plan.Payments, 6)

	recalced, err := RecalculateAfterContribution(&plan, goals, plan.Payments[1].Total, 2, PolicyFinishFaster, today, pc)
	require.NoError(t, err)

	require.Equal(t, len(plan.Payments), len(recalced.Payments))
	for i := range plan.Payments {
		assert.Equal(t, plan.Payments[i].Date, recalced.Payments[i].Date, "payment %d", i+1)
		require.Equal(t, len(plan.Payments[i].Contributions), len(recalced.Payments[i].Contributions), "payment %d", i+1)
		for j := range plan.Payments[i].Contributions {
			assert.True(t, plan.Payments[i].Contributions[j].Amount.Equal(recalced.Payments[i].Contributions[j].Amount),
				"payment %d contribution %d", i+1, j)
		}
	}
}

// FINISH_FASTER: an over-contribution at the original budget compresses
// the timeline instead of shrinking future payments.
func TestRecalculate_FinishFasterCompressesTimeline(t *testing.T) {
	g := planGoal("house", "1200", day(2027, time.January, 10))
	plan := GenerateSchedule([]PlanGoal{g}, dec("100"), today, pc)
	require.Len(t, plan.Payments, 12)

	recalced, err := RecalculateAfterContribution(&plan, []PlanGoal{g}, dec("600"), 1, PolicyFinishFaster, today, pc)
	require.NoError(t, err)

	// 600 up front leaves 600 at 100/month: payments 1 + 6 = 7.
	require.Len(t, recalced.Payments, 7)
	almostEqual(t, dec("600"), recalced.Payments[0].Total)
	almostEqual(t, dec("1200"), recalced.ContributionsTo(g.ID))
	assert.Empty(t, recalced.Infeasible)
}

// LOWER_PAYMENTS: an over-contribution re-levels the remainder across the
// payments the original plan had left.
func TestRecalculate_LowerPaymentsRelevels(t *testing.T) {
	g := planGoal("house", "1200", day(2027, time.January, 10))
	plan := GenerateSchedule([]PlanGoal{g}, dec("100"), today, pc)
	require.Len(t, plan.Payments, 12)

	recalced, err := RecalculateAfterContribution(&plan, []PlanGoal{g}, dec("600"), 1, PolicyLowerPayments, today, pc)
	require.NoError(t, err)

	// 600 left over 11 remaining payments.
	require.Len(t, recalced.Payments, 12)
	almostEqual(t, dec("600"), recalced.Payments[0].Total)
	for i := 1; i < 12; i++ {
		almostEqual(t, dec("54.54545455"), recalced.Payments[i].Total, "payment", i+1)
	}
	almostEqual(t, dec("1200"), recalced.ContributionsTo(g.ID))
}

func TestRecalculate_PaymentNumberOutOfRange(t *testing.T) {
	g := planGoal("house", "1200", day(2027, time.January, 10))
	plan := GenerateSchedule([]PlanGoal{g}, dec("100"), today, pc)

	_, err := RecalculateAfterContribution(&plan, []PlanGoal{g}, dec("100"), 13, PolicyFinishFaster, today, pc)
	assert.ErrorIs(t, err, ErrPaymentNumberOutOfRange)

	_, err = RecalculateAfterContribution(&plan, []PlanGoal{g}, dec("100"), 0, PolicyFinishFaster, today, pc)
	assert.ErrorIs(t, err, ErrPaymentNumberOutOfRange)
}

func TestBuildTimelineBlocks_AggregatesConsecutivePayments(t *testing.T) {
	g1 := planGoal("car", "600", day(2026, time.April, 10))
	g2 := planGoal("trip", "1200", day(2026, time.July, 10))
	plan := GenerateSchedule([]PlanGoal{g2, g1}, dec("300"), today, pc)

	blocks := BuildTimelineBlocks(&plan)

	require.Len(t, blocks, 2)
	assert.Equal(t, g1.ID, blocks[0].GoalID)
	assert.Equal(t, 1, blocks[0].StartPayment)
	assert.Equal(t, 3, blocks[0].EndPayment)
	assert.Equal(t, 3, blocks[0].PaymentCount)
	almostEqual(t, dec("600"), blocks[0].TotalAmount)

	assert.Equal(t, g2.ID, blocks[1].GoalID)
	assert.Equal(t, 1, blocks[1].StartPayment)
	assert.Equal(t, 6, blocks[1].EndPayment)
	assert.Equal(t, 6, blocks[1].PaymentCount)
	almostEqual(t, dec("1200"), blocks[1].TotalAmount)
}

func TestSortGoals_DeadlineThenPriorityThenID(t *testing.T) {
	early := planGoal("early", "100", day(2026, time.March, 10))
	lateHigh := planGoal("late-high", "100", day(2026, time.June, 10))
	lateHigh.Priority = 0
	lateLow := planGoal("late-low", "100", day(2026, time.June, 10))
	lateLow.Priority = 2

	sorted := SortGoals([]PlanGoal{lateLow, lateHigh, early})

	assert.Equal(t, "early", sorted[0].Name)
	assert.Equal(t, "late-high", sorted[1].Name)
	assert.Equal(t, "late-low", sorted[2].Name)
}

// An epsilon-scale remainder does not generate a phantom payment.
func TestGenerateSchedule_IgnoresEpsilonRemainders(t *testing.T) {
	g := planGoal("dust", "0.000000001", day(2026, time.June, 10))

	plan := GenerateSchedule([]PlanGoal{g}, dec("100"), today, pc)

	assert.Empty(t, plan.Payments)
	assert.Empty(t, plan.Infeasible)
}
