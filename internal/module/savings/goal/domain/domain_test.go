package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"savingsplanner/internal/module/savings/calendar"
)

func TestGoal_IsOverdue(t *testing.T) {
	tests := []struct {
		name      string
		lifecycle Lifecycle
		deadline  calendar.EpochDay
		today     calendar.EpochDay
		want      bool
	}{
		{"past deadline active", LifecycleActive, 100, 200, true},
		{"future deadline active", LifecycleActive, 300, 200, false},
		{"past deadline but completed", LifecycleCompleted, 100, 200, false},
		{"past deadline but archived", LifecycleArchived, 100, 200, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := Goal{Lifecycle: tt.lifecycle, Deadline: tt.deadline}
			assert.Equal(t, tt.want, g.IsOverdue(tt.today))
		})
	}
}

func TestGoal_DaysRemaining(t *testing.T) {
	g := Goal{Deadline: 110}
	assert.Equal(t, 10, g.DaysRemaining(100))
	assert.Equal(t, -5, g.DaysRemaining(115))
}

func TestGoal_FundedPortion(t *testing.T) {
	tests := []struct {
		name    string
		target  string
		current string
		want    string
	}{
		{"half funded", "1000", "500", "0.5"},
		{"fully funded", "1000", "1000", "1"},
		{"overfunded clamps to 1", "1000", "1500", "1"},
		{"zero target", "0", "500", "0"},
		{"negative current clamps to 0", "1000", "-10", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := Goal{Target: decimal.RequireFromString(tt.target)}
			got := g.FundedPortion(decimal.RequireFromString(tt.current))
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)), "got %s want %s", got, tt.want)
		})
	}
}

func TestLifecycle_CanTransitionTo(t *testing.T) {
	assert.True(t, LifecycleActive.CanTransitionTo(LifecyclePaused))
	assert.True(t, LifecycleActive.CanTransitionTo(LifecycleCompleted))
	assert.False(t, LifecycleCompleted.CanTransitionTo(LifecycleActive))
	assert.False(t, LifecycleArchived.CanTransitionTo(LifecycleActive))
	assert.True(t, LifecyclePaused.CanTransitionTo(LifecycleActive))
}

func TestPriority_Before(t *testing.T) {
	assert.True(t, PriorityHigh.Before(PriorityMedium))
	assert.True(t, PriorityMedium.Before(PriorityLow))
	assert.False(t, PriorityLow.Before(PriorityHigh))
}

func TestReminder_Validate(t *testing.T) {
	assert.True(t, ReminderOff().Validate())
	assert.True(t, ReminderOn(ReminderWeekly, "09:00", 100).Validate())
	assert.False(t, ReminderOn("bogus", "09:00", 100).Validate())
	assert.False(t, ReminderOn(ReminderWeekly, "9am", 100).Validate())
}
