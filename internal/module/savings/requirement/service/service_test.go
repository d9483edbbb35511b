package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"savingsplanner/internal/core"
	allocdomain "savingsplanner/internal/module/savings/allocation/domain"
	"savingsplanner/internal/module/savings/calendar"
	goaldomain "savingsplanner/internal/module/savings/goal/domain"
	"savingsplanner/internal/module/savings/requirement/domain"
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

type fakeAllocations struct {
	byGoal map[uuid.UUID][]allocdomain.Allocation
	funded map[uuid.UUID]map[uuid.UUID]decimal.Decimal // asset -> goal -> funded
}

func (f *fakeAllocations) ListByGoal(ctx context.Context, goalID uuid.UUID) ([]allocdomain.Allocation, error) {
	return f.byGoal[goalID], nil
}

func (f *fakeAllocations) FundedPortions(ctx context.Context, cc core.CoreContext, assetID uuid.UUID) (map[uuid.UUID]decimal.Decimal, error) {
	return f.funded[assetID], nil
}

type fakeAssets struct {
	currencies map[uuid.UUID]string
}

func (f *fakeAssets) CurrencyCode(ctx context.Context, assetID uuid.UUID) (string, error) {
	code, ok := f.currencies[assetID]
	if !ok {
		return "", errors.New("asset not found")
	}
	return code, nil
}

type fakeRates struct {
	rates map[string]decimal.Decimal // "FROM/TO"
	err   error
}

func (f *fakeRates) FetchRate(ctx context.Context, from, to string) (core.RateQuote, error) {
	if f.err != nil {
		return core.RateQuote{}, f.err
	}
	if r, ok := f.rates[from+"/"+to]; ok {
		return core.RateQuote{Rate: r}, nil
	}
	return core.RateQuote{}, errors.New("pair not found")
}

func (f *fakeRates) HasValidConfiguration() bool { return true }

func activeGoal(target string, deadline calendar.EpochDay, currency string) *goaldomain.Goal {
	return &goaldomain.Goal{
		ID:        uuid.New(),
		Name:      "test",
		Currency:  currency,
		Target:    dec(target),
		Deadline:  deadline,
		Lifecycle: goaldomain.LifecycleActive,
	}
}

func TestComputeRequirement_StatusBands(t *testing.T) {
	pc := calendar.NewPaymentCalendar(1)
	today := day(2026, time.January, 10)

	tests := []struct {
		name         string
		target       string
		currentTotal string
		deadline     calendar.EpochDay
		wantStatus   domain.Status
		wantMonths   int
		wantRequired string
	}{
		{
			name:         "fully funded is completed",
			target:       "1000",
			currentTotal: "1000",
			deadline:     day(2026, time.June, 1),
			wantStatus:   domain.StatusCompleted,
			wantMonths:   4,
			wantRequired: "0",
		},
		{
			name:         "one month left, most of target unfunded, is critical",
			target:       "1000",
			currentTotal: "100",
			deadline:     day(2026, time.February, 5),
			wantStatus:   domain.StatusCritical,
			wantMonths:   1,
			wantRequired: "900",
		},
		{
			name:         "monthly ask above half the target is attention",
			target:       "1000",
			currentTotal: "300",
			deadline:     day(2026, time.February, 5),
			wantStatus:   domain.StatusAttention,
			wantMonths:   1,
			wantRequired: "700",
		},
		{
			name:         "comfortable runway is on track",
			target:       "1200",
			currentTotal: "200",
			deadline:     day(2027, time.January, 10),
			wantStatus:   domain.StatusOnTrack,
			wantMonths:   12,
			wantRequired: "83.33333333",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := activeGoal(tt.target, tt.deadline, "USD")
			req := ComputeRequirement(g, dec(tt.currentTotal), today, pc)

			assert.Equal(t, tt.wantStatus, req.Status)
			assert.Equal(t, tt.wantMonths, req.MonthsRemaining)
			assert.True(t, dec(tt.wantRequired).Equal(req.RequiredMonthly),
				"required monthly: want %s got %s", tt.wantRequired, req.RequiredMonthly)
		})
	}
}

// One month left but only a small slice unfunded: not critical, because
// the critical band requires most of the target to still be open.
func TestComputeRequirement_SmallRemainderNearDeadline(t *testing.T) {
	pc := calendar.NewPaymentCalendar(1)
	today := day(2026, time.January, 10)

	g := activeGoal("1000", day(2026, time.February, 5), "USD")
	req := ComputeRequirement(g, dec("900"), today, pc)

	assert.Equal(t, domain.StatusOnTrack, req.Status)
	assert.True(t, dec("100").Equal(req.Remaining))
}

func TestComputeRequirement_OverfundedClampsRemaining(t *testing.T) {
	pc := calendar.NewPaymentCalendar(1)
	g := activeGoal("1000", day(2026, time.June, 1), "USD")

	req := ComputeRequirement(g, dec("1500"), day(2026, time.January, 10), pc)

	assert.True(t, req.Remaining.IsZero())
	assert.Equal(t, domain.StatusCompleted, req.Status)
}

func TestCurrentTotal_ConvertsIntoGoalCurrency(t *testing.T) {
	goal := activeGoal("2000", day(2026, time.December, 1), "USD")
	eurAsset := uuid.New()
	usdAsset := uuid.New()

	allocs := &fakeAllocations{
		byGoal: map[uuid.UUID][]allocdomain.Allocation{
			goal.ID: {
				{AssetID: eurAsset, GoalID: goal.ID, Amount: dec("500")},
				{AssetID: usdAsset, GoalID: goal.ID, Amount: dec("300")},
			},
		},
		funded: map[uuid.UUID]map[uuid.UUID]decimal.Decimal{
			eurAsset: {goal.ID: dec("500")},
			usdAsset: {goal.ID: dec("300")},
		},
	}
	assets := &fakeAssets{currencies: map[uuid.UUID]string{eurAsset: "EUR", usdAsset: "USD"}}
	rates := &fakeRates{rates: map[string]decimal.Decimal{"EUR/USD": dec("1.10")}}

	svc := New(allocs, assets, nil)
	cc := core.CoreContext{Settings: core.SettingsSnapshot{PaymentDay: 1}, RateProvider: rates}

	total, err := svc.CurrentTotal(context.Background(), cc, goal)
	require.NoError(t, err)

	// 500 EUR * 1.10 + 300 USD = 850 USD
	assert.True(t, dec("850").Equal(total), "got %s", total)
}

// Conversion failure is fail-open: the unconverted amount is included
// rather than silently dropped.
func TestCurrentTotal_RateFailureFailsOpen(t *testing.T) {
	goal := activeGoal("2000", day(2026, time.December, 1), "USD")
	eurAsset := uuid.New()

	allocs := &fakeAllocations{
		byGoal: map[uuid.UUID][]allocdomain.Allocation{
			goal.ID: {{AssetID: eurAsset, GoalID: goal.ID, Amount: dec("500")}},
		},
		funded: map[uuid.UUID]map[uuid.UUID]decimal.Decimal{
			eurAsset: {goal.ID: dec("500")},
		},
	}
	assets := &fakeAssets{currencies: map[uuid.UUID]string{eurAsset: "EUR"}}
	rates := &fakeRates{err: errors.New("provider down")}

	svc := New(allocs, assets, nil)
	cc := core.CoreContext{Settings: core.SettingsSnapshot{PaymentDay: 1}, RateProvider: rates}

	total, err := svc.CurrentTotal(context.Background(), cc, goal)
	require.NoError(t, err)
	assert.True(t, dec("500").Equal(total), "got %s", total)
}

func TestComputeAll_SkipsInactiveGoals(t *testing.T) {
	active := activeGoal("1000", day(2026, time.December, 1), "USD")
	paused := activeGoal("1000", day(2026, time.December, 1), "USD")
	paused.Lifecycle = goaldomain.LifecyclePaused

	allocs := &fakeAllocations{byGoal: map[uuid.UUID][]allocdomain.Allocation{}}
	assets := &fakeAssets{currencies: map[uuid.UUID]string{}}

	svc := New(allocs, assets, nil)
	cc := core.CoreContext{Settings: core.SettingsSnapshot{PaymentDay: 1}, RateProvider: &fakeRates{}}

	reqs, err := svc.ComputeAll(context.Background(), cc, []goaldomain.Goal{*active, *paused}, day(2026, time.January, 10))
	require.NoError(t, err)
	require.Len(t, reqs, 1)
	assert.Equal(t, active.ID, reqs[0].GoalID)
}
