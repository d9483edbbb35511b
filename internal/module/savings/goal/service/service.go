// Package service implements goal CRUD and lifecycle transitions.
package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"savingsplanner/internal/module/savings/calendar"
	"savingsplanner/internal/module/savings/events"
	"savingsplanner/internal/module/savings/goal/domain"
	"savingsplanner/internal/module/savings/goal/dto"
	"savingsplanner/internal/module/savings/goal/repository"
	"savingsplanner/internal/savingserr"
)

// Service manages Goal aggregates.
type Service interface {
	Create(ctx context.Context, userID uuid.UUID, req dto.CreateGoalRequest) (*domain.Goal, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Goal, error)
	Update(ctx context.Context, id uuid.UUID, req dto.UpdateGoalRequest) (*domain.Goal, error)
	Transition(ctx context.Context, id uuid.UUID, to domain.Lifecycle) (*domain.Goal, error)
	List(ctx context.Context, userID uuid.UUID, includeArchived bool) ([]domain.Goal, error)
}

type service struct {
	repo repository.Repository
	bus  *events.Bus
}

// New constructs the goal Service.
func New(repo repository.Repository, bus *events.Bus) Service {
	return &service{repo: repo, bus: bus}
}

func (s *service) Create(ctx context.Context, userID uuid.UUID, req dto.CreateGoalRequest) (*domain.Goal, error) {
	if req.Target.IsZero() || req.Target.IsNegative() {
		return nil, savingserr.ErrValidation.WithDetails("field", "target")
	}
	if req.Currency == "" {
		return nil, savingserr.ErrValidation.WithDetails("field", "currency")
	}
	if !req.Deadline.After(calendar.Today()) {
		return nil, savingserr.ErrValidation.WithDetails("field", "deadline")
	}

	priority := req.Priority
	if priority == "" {
		priority = domain.PriorityMedium
	}
	if !priority.IsValid() {
		return nil, savingserr.ErrValidation.WithDetails("field", "priority")
	}

	g := &domain.Goal{
		ID:        uuid.New(),
		UserID:    userID,
		Name:      req.Name,
		Currency:  req.Currency,
		Target:    req.Target,
		Deadline:  req.Deadline,
		Lifecycle: domain.LifecycleActive,
		Priority:  priority,
		Category:  req.Category,
		Reminder:  domain.ReminderOff(),
	}

	if err := s.repo.Create(ctx, g); err != nil {
		return nil, savingserr.ErrInternal.WithError(err)
	}
	s.bus.Publish(events.Event{Kind: events.KindGoalChanged, GoalID: g.ID})
	return g, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*domain.Goal, error) {
	g, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, savingserr.ErrNotFound.WithDetails("goal_id", id.String())
	}
	return g, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, req dto.UpdateGoalRequest) (*domain.Goal, error) {
	g, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		g.Name = *req.Name
	}
	if req.Target != nil {
		if req.Target.IsZero() || req.Target.IsNegative() {
			return nil, savingserr.ErrValidation.WithDetails("field", "target")
		}
		g.Target = *req.Target
	}
	if req.Deadline != nil {
		g.Deadline = *req.Deadline
	}
	if req.Priority != nil {
		if !req.Priority.IsValid() {
			return nil, savingserr.ErrValidation.WithDetails("field", "priority")
		}
		g.Priority = *req.Priority
	}
	if req.Category != nil {
		g.Category = req.Category
	}

	if err := s.repo.Update(ctx, g); err != nil {
		return nil, savingserr.ErrInternal.WithError(err)
	}
	s.bus.Publish(events.Event{Kind: events.KindGoalChanged, GoalID: g.ID})
	return g, nil
}

func (s *service) Transition(ctx context.Context, id uuid.UUID, to domain.Lifecycle) (*domain.Goal, error) {
	g, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !to.IsValid() {
		return nil, savingserr.ErrValidation.WithDetails("field", "lifecycle")
	}
	if !g.Lifecycle.CanTransitionTo(to) {
		return nil, savingserr.ErrStateViolation.WithDetails("from", string(g.Lifecycle)).WithDetails("to", string(to))
	}

	if to == domain.LifecycleCompleted {
		g.Complete(time.Now().UTC())
	} else {
		g.Lifecycle = to
	}

	if err := s.repo.Update(ctx, g); err != nil {
		return nil, savingserr.ErrInternal.WithError(err)
	}
	s.bus.Publish(events.Event{Kind: events.KindGoalChanged, GoalID: g.ID})
	return g, nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID, includeArchived bool) ([]domain.Goal, error) {
	goals, err := s.repo.ListByUser(ctx, userID, includeArchived)
	if err != nil {
		return nil, savingserr.ErrInternal.WithError(err)
	}
	return goals, nil
}
