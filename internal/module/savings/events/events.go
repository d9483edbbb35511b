// Package events implements the typed publish/subscribe bus that lets
// services react to each other's writes without calling one another
// directly: goal writes publish GoalChanged, allocation and transaction
// writes publish AllocationChanged, and the planner drops its cached plans
// when either arrives.
package events

import (
	"sync"

	"github.com/google/uuid"
)

// Kind identifies the event variant carried by Event.
type Kind string

const (
	KindGoalChanged       Kind = "goal_changed"
	KindAllocationChanged Kind = "allocation_changed"
	KindPlanRecomputed    Kind = "plan_recomputed"
)

// Event is published on the bus. Fields that do not apply are left zero; an
// AllocationChanged event can carry AssetID, GoalID and MonthLabel together.
type Event struct {
	Kind       Kind
	GoalID     uuid.UUID
	AssetID    uuid.UUID
	MonthLabel string
}

// Handler receives published events. Handlers are invoked synchronously and
// in registration order; a slow or blocking handler delays the publisher,
// so handlers that need to do real work should hand off to a goroutine.
type Handler func(Event)

// Bus is a minimal, in-process, typed pub/sub bus. It replaces the
// package-level singleton listeners found in process-wide event handling
// with an explicit component any service can be constructed with and hand
// to its collaborators.
type Bus struct {
	mu       sync.RWMutex
	handlers map[Kind][]Handler
}

// NewBus constructs an empty Bus.
func NewBus() *Bus {
	return &Bus{handlers: make(map[Kind][]Handler)}
}

// Subscribe registers h to run whenever an event of kind k is published.
func (b *Bus) Subscribe(k Kind, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[k] = append(b.handlers[k], h)
}

// Publish invokes every handler registered for ev.Kind.
func (b *Bus) Publish(ev Event) {
	b.mu.RLock()
	handlers := append([]Handler(nil), b.handlers[ev.Kind]...)
	b.mu.RUnlock()

	for _, h := range handlers {
		h(ev)
	}
}
