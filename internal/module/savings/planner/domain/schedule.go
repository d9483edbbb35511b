package domain

import (
	"errors"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"savingsplanner/internal/core"
	"savingsplanner/internal/module/savings/calendar"
)

// maxScheduleIterations bounds the outer scheduling loop so a degenerate
// input (a goal that can never be funded) terminates instead of spinning.
const maxScheduleIterations = 600

// maxDeadlineExtensionMonths caps the extend-deadline suggestion.
const maxDeadlineExtensionMonths = 12

// ErrPaymentNumberOutOfRange is returned by RecalculateAfterContribution
// when the payment number does not exist in the plan.
var ErrPaymentNumberOutOfRange = errors.New("payment number out of range")

// SortGoals orders goals deadline-ascending, the order every scheduling
// decision processes them in. Priority breaks exact deadline ties; the id
// string breaks priority ties so the order is total and reproducible.
func SortGoals(goals []PlanGoal) []PlanGoal {
	sorted := append([]PlanGoal(nil), goals...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Deadline != sorted[j].Deadline {
			return sorted[i].Deadline < sorted[j].Deadline
		}
		if sorted[i].Priority != sorted[j].Priority {
			return sorted[i].Priority < sorted[j].Priority
		}
		return sorted[i].ID.String() < sorted[j].ID.String()
	})
	return sorted
}

// MinimumBudget derives the smallest monthly budget that can meet every
// deadline: scanning goals deadline-ascending, the cumulative remaining
// amount up to each deadline must be coverable by (budget × months to that
// deadline). The binding constraint is the maximum of those quotients.
func MinimumBudget(goals []PlanGoal, today calendar.EpochDay, pc calendar.PaymentCalendar) decimal.Decimal {
	minimum := decimal.Zero
	cumulative := decimal.Zero
	for _, g := range SortGoals(goals) {
		if !g.Remaining.IsPositive() {
			continue
		}
		cumulative = cumulative.Add(g.Remaining)
		months := pc.MonthsRemaining(today, g.Deadline)
		required := cumulative.Div(decimal.NewFromInt(int64(months)))
		if required.GreaterThan(minimum) {
			minimum = required
		}
	}
	return core.Round(minimum)
}

// LeveledBudget is the relaxed alternative: the total remaining spread
// evenly to the latest deadline. It meets the last deadline but may miss
// earlier ones; it is reported alongside MinimumBudget, never substituted
// for it.
func LeveledBudget(goals []PlanGoal, today calendar.EpochDay, pc calendar.PaymentCalendar) decimal.Decimal {
	total := decimal.Zero
	var latest calendar.EpochDay
	found := false
	for _, g := range goals {
		if !g.Remaining.IsPositive() {
			continue
		}
		total = total.Add(g.Remaining)
		if !found || g.Deadline.After(latest) {
			latest = g.Deadline
			found = true
		}
	}
	if !found {
		return decimal.Zero
	}
	months := pc.MonthsRemaining(today, latest)
	return core.Round(total.Div(decimal.NewFromInt(int64(months))))
}

// CheckFeasibility runs the same cumulative scan as MinimumBudget against a
// proposed budget, collecting every goal whose cumulative requirement the
// budget cannot cover, plus up to two suggestions for making the set
// feasible again.
func CheckFeasibility(goals []PlanGoal, budget decimal.Decimal, today calendar.EpochDay, pc calendar.PaymentCalendar) FeasibilityResult {
	result := FeasibilityResult{
		Feasible:      true,
		Budget:        budget,
		MinimumBudget: MinimumBudget(goals, today, pc),
		LeveledBudget: LeveledBudget(goals, today, pc),
	}

	cumulative := decimal.Zero
	for _, g := range SortGoals(goals) {
		if !g.Remaining.IsPositive() {
			continue
		}
		cumulative = cumulative.Add(g.Remaining)
		months := pc.MonthsRemaining(today, g.Deadline)
		required := core.Round(cumulative.Div(decimal.NewFromInt(int64(months))))
		if required.Sub(budget).GreaterThan(core.Epsilon) {
			result.Feasible = false
			result.InfeasibleGoals = append(result.InfeasibleGoals, InfeasibleGoal{
				GoalID:    g.ID,
				GoalName:  g.Name,
				Required:  required,
				Shortfall: core.Round(required.Sub(budget)),
			})
		}
	}

	if !result.Feasible {
		result.Suggestions = buildSuggestions(result, goals, budget, today, pc)
	}
	return result
}

// buildSuggestions emits at most two: raise the budget to the minimum, and
// extend the earliest infeasible goal's deadline just far enough that the
// proposed budget could fund it.
func buildSuggestions(result FeasibilityResult, goals []PlanGoal, budget decimal.Decimal, today calendar.EpochDay, pc calendar.PaymentCalendar) []FeasibilitySuggestion {
	suggestions := []FeasibilitySuggestion{{
		Kind:   SuggestIncreaseBudget,
		Amount: result.MinimumBudget,
	}}

	if !budget.IsPositive() || len(result.InfeasibleGoals) == 0 {
		return suggestions
	}

	first := result.InfeasibleGoals[0]
	for _, g := range goals {
		if g.ID != first.GoalID {
			continue
		}
		currentMonths := pc.MonthsRemaining(today, g.Deadline)
		neededMonths := int(g.Remaining.Div(budget).Ceil().IntPart())
		byMonths := neededMonths - currentMonths
		if byMonths >= 1 && byMonths <= maxDeadlineExtensionMonths {
			suggestions = append(suggestions, FeasibilitySuggestion{
				Kind:     SuggestExtendDeadline,
				GoalID:   g.ID,
				ByMonths: byMonths,
			})
		}
		break
	}
	return suggestions
}

// goalState is one goal's mutable position during schedule generation.
type goalState struct {
	goal         PlanGoal
	remaining    decimal.Decimal
	runningTotal decimal.Decimal
}

func newStates(goals []PlanGoal) []*goalState {
	sorted := SortGoals(goals)
	states := make([]*goalState, 0, len(sorted))
	for _, g := range sorted {
		states = append(states, &goalState{goal: g, remaining: core.ClampNonNegative(g.Remaining), runningTotal: decimal.Zero})
	}
	return states
}

// monthsIncludingPayment counts the payment anchors from date through the
// deadline, counting date itself: the number of payments the goal can still
// receive. date is always an anchor when called from the scheduling loop.
func monthsIncludingPayment(date, deadline calendar.EpochDay, pc calendar.PaymentCalendar) int {
	if deadline.Before(date) {
		return 1
	}
	return 1 + len(pc.AnchorsBetween(date, deadline))
}

// allocateRound distributes one payment's budget across the eligible goals
// at date. Goals are already in deadline order; each receives its per-month
// minimum in turn while budget lasts, then any leftover flows back through
// the same order capped at each goal's remaining. Funding minimums in
// deadline order — rather than scaling every goal down proportionally — is
// what lets a budget equal to MinimumBudget meet every deadline: money a
// later goal could defer is never taken from an earlier goal's last chance.
func allocateRound(states []*goalState, budget decimal.Decimal, date calendar.EpochDay, pc calendar.PaymentCalendar) []ScheduledContribution {
	type pending struct {
		state  *goalState
		amount decimal.Decimal
		wasNew bool
	}

	var eligible []*goalState
	for _, st := range states {
		if st.remaining.GreaterThan(core.Epsilon) && !st.goal.Deadline.Before(date) {
			eligible = append(eligible, st)
		}
	}
	if len(eligible) == 0 {
		return nil
	}

	remainingBudget := budget
	allocated := make([]pending, 0, len(eligible))
	for _, st := range eligible {
		if !remainingBudget.GreaterThan(core.Epsilon) {
			break
		}
		months := monthsIncludingPayment(date, st.goal.Deadline, pc)
		minimum := st.remaining.Div(decimal.NewFromInt(int64(months)))
		// Rounded at assignment so the emitted figure and the state update
		// are the same number; a replay of emitted payments then restores
		// the internal positions exactly.
		amount := core.Round(decimal.Min(remainingBudget, minimum))
		if !amount.IsPositive() {
			continue
		}
		allocated = append(allocated, pending{state: st, amount: amount, wasNew: st.runningTotal.LessThanOrEqual(core.Epsilon)})
		remainingBudget = remainingBudget.Sub(amount)
	}

	// Leftover pass: earlier deadlines absorb surplus first, capped at
	// what each goal still needs.
	if remainingBudget.GreaterThan(core.Epsilon) {
		for _, st := range eligible {
			if !remainingBudget.GreaterThan(core.Epsilon) {
				break
			}
			already := decimal.Zero
			for i := range allocated {
				if allocated[i].state == st {
					already = allocated[i].amount
				}
			}
			headroom := st.remaining.Sub(already)
			if !headroom.IsPositive() {
				continue
			}
			extra := core.Round(decimal.Min(remainingBudget, headroom))
			remainingBudget = remainingBudget.Sub(extra)
			found := false
			for i := range allocated {
				if allocated[i].state == st {
					allocated[i].amount = allocated[i].amount.Add(extra)
					found = true
					break
				}
			}
			if !found {
				allocated = append(allocated, pending{state: st, amount: extra, wasNew: st.runningTotal.LessThanOrEqual(core.Epsilon)})
			}
		}
	}

	contributions := make([]ScheduledContribution, 0, len(allocated))
	for _, p := range allocated {
		if !p.amount.GreaterThan(core.Epsilon) {
			continue
		}
		p.state.remaining = core.ClampNonNegative(p.state.remaining.Sub(p.amount))
		p.state.runningTotal = p.state.runningTotal.Add(p.amount)
		contributions = append(contributions, ScheduledContribution{
			GoalID:         p.state.goal.ID,
			GoalName:       p.state.goal.Name,
			Amount:         p.amount,
			IsGoalStart:    p.wasNew,
			IsGoalComplete: !p.state.remaining.GreaterThan(core.Epsilon),
		})
	}
	return contributions
}

// generateFrom runs the scheduling loop from startDate, numbering payments
// from startNumber, mutating states. Returns the payments emitted and the
// goals stranded past their deadlines with amounts still open.
func generateFrom(states []*goalState, budget decimal.Decimal, startDate calendar.EpochDay, startNumber int, pc calendar.PaymentCalendar) ([]ScheduledPayment, []InfeasibleGoal) {
	var payments []ScheduledPayment
	date := startDate
	number := startNumber

	for iter := 0; iter < maxScheduleIterations; iter++ {
		anyOpen := false
		anyEligible := false
		for _, st := range states {
			if st.remaining.GreaterThan(core.Epsilon) {
				anyOpen = true
				if !st.goal.Deadline.Before(date) {
					anyEligible = true
				}
			}
		}
		if !anyOpen || !anyEligible {
			break
		}

		contributions := allocateRound(states, budget, date, pc)
		if len(contributions) > 0 {
			total := decimal.Zero
			for _, c := range contributions {
				total = total.Add(c.Amount)
			}
			payments = append(payments, ScheduledPayment{
				Number:        number,
				Date:          date,
				Contributions: contributions,
				Total:         core.Round(total),
			})
			number++
		}
		date = pc.AdvanceMonth(date)
	}

	var stranded []InfeasibleGoal
	for _, st := range states {
		if st.remaining.GreaterThan(core.Epsilon) {
			stranded = append(stranded, InfeasibleGoal{
				GoalID:    st.goal.ID,
				GoalName:  st.goal.Name,
				Required:  core.Round(st.remaining),
				Shortfall: core.Round(st.remaining),
			})
		}
	}
	return payments, stranded
}

// GenerateSchedule produces the deterministic payment-by-payment plan for
// the goal set at the given monthly budget. The first payment lands on the
// first anchor strictly after today; contributions within a payment are in
// deadline-ascending goal order.
func GenerateSchedule(goals []PlanGoal, budget decimal.Decimal, today calendar.EpochDay, pc calendar.PaymentCalendar) FixedBudgetPlan {
	states := newStates(goals)
	payments, stranded := generateFrom(states, budget, pc.NextAnchor(today), 1, pc)

	total := decimal.Zero
	for _, p := range payments {
		total = total.Add(p.Total)
	}
	return FixedBudgetPlan{
		MonthlyBudget: budget,
		Payments:      payments,
		TotalAmount:   core.Round(total),
		Infeasible:    stranded,
	}
}

// RecalculateAfterContribution rebuilds the plan given that payment number
// paymentNumber was actually contributed as actual (instead of the planned
// total). Payments before it are preserved; the actual amount is allocated
// at its date by the same deadline-ordered rule; the tail is regenerated
// under the chosen policy. goals must be the same inputs the original plan
// was generated from.
func RecalculateAfterContribution(plan *FixedBudgetPlan, goals []PlanGoal, actual decimal.Decimal, paymentNumber int, policy RecalculationPolicy, today calendar.EpochDay, pc calendar.PaymentCalendar) (*FixedBudgetPlan, error) {
	if paymentNumber < 1 || paymentNumber > len(plan.Payments) {
		return nil, ErrPaymentNumberOutOfRange
	}

	states := newStates(goals)
	byID := make(map[uuid.UUID]*goalState, len(states))
	for _, st := range states {
		byID[st.goal.ID] = st
	}

	// Replay the untouched head so goal positions match what the original
	// plan had reached just before the diverging payment.
	head := make([]ScheduledPayment, 0, paymentNumber)
	for _, payment := range plan.Payments[:paymentNumber-1] {
		for _, c := range payment.Contributions {
			if st, ok := byID[c.GoalID]; ok {
				st.remaining = core.ClampNonNegative(st.remaining.Sub(c.Amount))
				st.runningTotal = st.runningTotal.Add(c.Amount)
			}
		}
		head = append(head, payment)
	}

	// The diverging payment: allocate the actual contribution with the
	// same rule a planned payment uses, at the planned date.
	divergedDate := plan.Payments[paymentNumber-1].Date
	contributions := allocateRound(states, actual, divergedDate, pc)
	if len(contributions) > 0 {
		total := decimal.Zero
		for _, c := range contributions {
			total = total.Add(c.Amount)
		}
		head = append(head, ScheduledPayment{
			Number:        paymentNumber,
			Date:          divergedDate,
			Contributions: contributions,
			Total:         core.Round(total),
		})
	}

	tailBudget := plan.MonthlyBudget
	if policy == PolicyLowerPayments {
		tailBudget = lowerPaymentsBudget(plan, states, paymentNumber, divergedDate, pc)
	}

	tail, stranded := generateFrom(states, tailBudget, pc.AdvanceMonth(divergedDate), paymentNumber+1, pc)

	payments := append(head, tail...)
	total := decimal.Zero
	for _, p := range payments {
		total = total.Add(p.Total)
	}
	return &FixedBudgetPlan{
		Currency:      plan.Currency,
		MonthlyBudget: tailBudget,
		Payments:      payments,
		TotalAmount:   core.Round(total),
		Infeasible:    stranded,
	}, nil
}

// lowerPaymentsBudget levels the post-contribution remainder over the
// payments the original plan had left, floored at the minimum budget the
// surviving goals still require from the next payment date.
func lowerPaymentsBudget(plan *FixedBudgetPlan, states []*goalState, paymentNumber int, divergedDate calendar.EpochDay, pc calendar.PaymentCalendar) decimal.Decimal {
	remaining := decimal.Zero
	var openGoals []PlanGoal
	for _, st := range states {
		if st.remaining.GreaterThan(core.Epsilon) {
			remaining = remaining.Add(st.remaining)
			g := st.goal
			g.Remaining = st.remaining
			openGoals = append(openGoals, g)
		}
	}
	if remaining.IsZero() {
		return plan.MonthlyBudget
	}

	remainingPayments := len(plan.Payments) - paymentNumber
	if remainingPayments < 1 {
		remainingPayments = 1
	}
	leveled := remaining.Div(decimal.NewFromInt(int64(remainingPayments)))

	floor := MinimumBudget(openGoals, divergedDate, pc)
	if leveled.LessThan(floor) {
		return floor
	}
	return core.Round(leveled)
}

// BuildTimelineBlocks aggregates each goal's consecutive contributions into
// blocks, sorted by starting payment then goal deadline order within ties.
func BuildTimelineBlocks(plan *FixedBudgetPlan) []ScheduledGoalBlock {
	open := make(map[uuid.UUID]*ScheduledGoalBlock)
	var blocks []*ScheduledGoalBlock

	for _, payment := range plan.Payments {
		seen := make(map[uuid.UUID]bool, len(payment.Contributions))
		for _, c := range payment.Contributions {
			seen[c.GoalID] = true
			if block, ok := open[c.GoalID]; ok {
				block.EndPayment = payment.Number
				block.EndDate = payment.Date
				block.TotalAmount = block.TotalAmount.Add(c.Amount)
				block.PaymentCount++
				continue
			}
			block := &ScheduledGoalBlock{
				GoalID:       c.GoalID,
				GoalName:     c.GoalName,
				StartPayment: payment.Number,
				EndPayment:   payment.Number,
				StartDate:    payment.Date,
				EndDate:      payment.Date,
				TotalAmount:  c.Amount,
				PaymentCount: 1,
			}
			open[c.GoalID] = block
			blocks = append(blocks, block)
		}
		// A gap closes the goal's running block; a later contribution
		// starts a fresh one.
		for id, block := range open {
			if !seen[id] && block.EndPayment < payment.Number {
				delete(open, id)
			}
		}
	}

	sort.SliceStable(blocks, func(i, j int) bool {
		return blocks[i].StartPayment < blocks[j].StartPayment
	})

	out := make([]ScheduledGoalBlock, 0, len(blocks))
	for _, b := range blocks {
		b.TotalAmount = core.Round(b.TotalAmount)
		out = append(out, *b)
	}
	return out
}
