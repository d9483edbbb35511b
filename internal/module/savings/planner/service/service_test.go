package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"savingsplanner/internal/core"
	"savingsplanner/internal/module/savings/calendar"
	"savingsplanner/internal/module/savings/events"
	goaldomain "savingsplanner/internal/module/savings/goal/domain"
	"savingsplanner/internal/module/savings/planner/domain"
	settingsdomain "savingsplanner/internal/module/savings/settings/domain"
	"savingsplanner/internal/savingserr"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

type fakeTotals struct {
	totals map[uuid.UUID]decimal.Decimal
	calls  int
}

func (f *fakeTotals) CurrentTotal(ctx context.Context, cc core.CoreContext, goal *goaldomain.Goal) (decimal.Decimal, error) {
	f.calls++
	return f.totals[goal.ID], nil
}

type fakeRates struct {
	rates map[string]decimal.Decimal
	err   error
}

func (f *fakeRates) FetchRate(ctx context.Context, from, to string) (core.RateQuote, error) {
	if f.err != nil {
		return core.RateQuote{}, f.err
	}
	if r, ok := f.rates[from+"/"+to]; ok {
		return core.RateQuote{Rate: r}, nil
	}
	return core.RateQuote{}, savingserr.ErrRateUnavailable
}

func (f *fakeRates) HasValidConfiguration() bool { return true }

func testContext(rates core.RateProvider) core.CoreContext {
	return core.CoreContext{
		Settings:     core.SettingsSnapshot{Version: 1, PaymentDay: 1, DisplayCurrency: "USD"},
		RateProvider: rates,
	}
}

func activeGoal(name, currency, target string, deadline calendar.EpochDay) goaldomain.Goal {
	return goaldomain.Goal{
		ID:        uuid.New(),
		Name:      name,
		Currency:  currency,
		Target:    dec(target),
		Deadline:  deadline,
		Lifecycle: goaldomain.LifecycleActive,
		Priority:  goaldomain.PriorityMedium,
	}
}

// Cross-currency minimum budget: a 1000 EUR remainder at EUR→USD 1.10 over
// four months requires 275 USD per month.
func TestMinimumBudget_CrossCurrency(t *testing.T) {
	g := activeGoal("emergency", "EUR", "1000", fourMonthsOut())

	totals := &fakeTotals{totals: map[uuid.UUID]decimal.Decimal{}}
	rates := &fakeRates{rates: map[string]decimal.Decimal{"EUR/USD": dec("1.10")}}
	svc := New(totals, events.NewBus(), nil)

	minimum, err := svc.MinimumBudget(context.Background(), testContext(rates), []goaldomain.Goal{g}, "USD")
	require.NoError(t, err)
	assert.True(t, dec("275").Equal(minimum), "got %s", minimum)
}

// fourMonthsOut returns a deadline one day after the fourth payment anchor
// (day 1) following the real current date, so exactly four anchors fall
// strictly between today and the deadline, mirroring how the planner counts
// months.
func fourMonthsOut() calendar.EpochDay {
	pc := calendar.NewPaymentCalendar(1)
	d := pc.NextAnchor(calendar.Today())
	for i := 0; i < 3; i++ {
		d = pc.AdvanceMonth(d)
	}
	return d.AddDays(1)
}

func TestGenerateSchedule_NonActiveGoalsExcluded(t *testing.T) {
	active := activeGoal("a", "USD", "1200", fourMonthsOut())
	paused := activeGoal("b", "USD", "900", fourMonthsOut())
	paused.Lifecycle = goaldomain.LifecyclePaused

	totals := &fakeTotals{totals: map[uuid.UUID]decimal.Decimal{}}
	svc := New(totals, events.NewBus(), nil)

	plan, err := svc.GenerateSchedule(context.Background(), testContext(&fakeRates{}), []goaldomain.Goal{active, paused}, dec("300"), "USD")
	require.NoError(t, err)

	assert.True(t, plan.ContributionsTo(active.ID).IsPositive())
	assert.True(t, plan.ContributionsTo(paused.ID).IsZero())
}

// Within the TTL, identical inputs return the identical plan value: same
// pointer, same GeneratedAt, no recomputation.
func TestGenerateSchedule_CacheReturnsIdenticalPlan(t *testing.T) {
	g := activeGoal("a", "USD", "1200", fourMonthsOut())
	totals := &fakeTotals{totals: map[uuid.UUID]decimal.Decimal{}}
	svc := New(totals, events.NewBus(), nil)
	cc := testContext(&fakeRates{})

	first, err := svc.GenerateSchedule(context.Background(), cc, []goaldomain.Goal{g}, dec("300"), "USD")
	require.NoError(t, err)
	callsAfterFirst := totals.calls

	second, err := svc.GenerateSchedule(context.Background(), cc, []goaldomain.Goal{g}, dec("300"), "USD")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, callsAfterFirst, totals.calls, "cached plan must not recompute totals")
}

// A budget that rounds to the same cent as a cached one hits the same entry.
func TestGenerateSchedule_CacheKeyCentGranularity(t *testing.T) {
	g := activeGoal("a", "USD", "1200", fourMonthsOut())
	totals := &fakeTotals{totals: map[uuid.UUID]decimal.Decimal{}}
	svc := New(totals, events.NewBus(), nil)
	cc := testContext(&fakeRates{})

	first, err := svc.GenerateSchedule(context.Background(), cc, []goaldomain.Goal{g}, dec("300.001"), "USD")
	require.NoError(t, err)
	second, err := svc.GenerateSchedule(context.Background(), cc, []goaldomain.Goal{g}, dec("300.004"), "USD")
	require.NoError(t, err)

	assert.Same(t, first, second)
}

func TestGenerateSchedule_EventInvalidatesCache(t *testing.T) {
	g := activeGoal("a", "USD", "1200", fourMonthsOut())
	totals := &fakeTotals{totals: map[uuid.UUID]decimal.Decimal{}}
	bus := events.NewBus()
	svc := New(totals, bus, nil)
	cc := testContext(&fakeRates{})

	first, err := svc.GenerateSchedule(context.Background(), cc, []goaldomain.Goal{g}, dec("300"), "USD")
	require.NoError(t, err)

	bus.Publish(events.Event{Kind: events.KindGoalChanged, GoalID: g.ID})

	second, err := svc.GenerateSchedule(context.Background(), cc, []goaldomain.Goal{g}, dec("300"), "USD")
	require.NoError(t, err)
	assert.NotSame(t, first, second)
}

func TestGenerateSchedule_SettingsVersionChangesKey(t *testing.T) {
	g := activeGoal("a", "USD", "1200", fourMonthsOut())
	totals := &fakeTotals{totals: map[uuid.UUID]decimal.Decimal{}}
	svc := New(totals, events.NewBus(), nil)

	cc := testContext(&fakeRates{})
	first, err := svc.GenerateSchedule(context.Background(), cc, []goaldomain.Goal{g}, dec("300"), "USD")
	require.NoError(t, err)

	cc.Settings.Version = 2
	second, err := svc.GenerateSchedule(context.Background(), cc, []goaldomain.Goal{g}, dec("300"), "USD")
	require.NoError(t, err)
	assert.NotSame(t, first, second)
}

func TestGenerateSchedule_RateFailureIsTyped(t *testing.T) {
	g := activeGoal("a", "EUR", "1200", fourMonthsOut())
	totals := &fakeTotals{totals: map[uuid.UUID]decimal.Decimal{}}
	svc := New(totals, events.NewBus(), nil)

	_, err := svc.GenerateSchedule(context.Background(), testContext(&fakeRates{err: errors.New("down")}), []goaldomain.Goal{g}, dec("300"), "USD")
	require.Error(t, err)
	assert.True(t, savingserr.Is(err, savingserr.CodeRateUnavailable))
}

// Feasibility surfaces conversion failures in the result rather than
// failing the whole check.
func TestCheckFeasibility_RateIssuesSurfaced(t *testing.T) {
	usd := activeGoal("usd-goal", "USD", "600", fourMonthsOut())
	eur := activeGoal("eur-goal", "EUR", "1000", fourMonthsOut())

	totals := &fakeTotals{totals: map[uuid.UUID]decimal.Decimal{}}
	svc := New(totals, events.NewBus(), nil)

	result, err := svc.CheckFeasibility(context.Background(), testContext(&fakeRates{err: errors.New("down")}), []goaldomain.Goal{usd, eur}, dec("300"), "USD")
	require.NoError(t, err)
	assert.Equal(t, []string{"eur-goal"}, result.RateIssues)
}

func TestDefaultPolicy_MapsSettings(t *testing.T) {
	assert.Equal(t, domain.PolicyLowerPayments, DefaultPolicy(core.SettingsSnapshot{RecalculationPolicy: string(settingsdomain.RecalcKeepPace)}))
	assert.Equal(t, domain.PolicyFinishFaster, DefaultPolicy(core.SettingsSnapshot{RecalculationPolicy: string(settingsdomain.RecalcBankSurplus)}))
	assert.Equal(t, domain.PolicyLowerPayments, DefaultPolicy(core.SettingsSnapshot{}))
}
