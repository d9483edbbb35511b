package service

import (
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"savingsplanner/internal/module/savings/calendar"
	"savingsplanner/internal/module/savings/planner/domain"
)

// planCacheTTL is how long a generated plan stays valid for identical
// inputs before it is recomputed.
const planCacheTTL = 5 * time.Minute

// planCache memoizes the last generated plans keyed on the exact planner
// inputs: the sorted goal id set, the budget rounded to cents, the target
// currency, and the settings version the plan was built under. A settings
// change bumps the version and naturally orphans every prior key; goal and
// allocation edits invalidate explicitly through the event bus.
type planCache struct {
	mu      sync.Mutex
	entries map[string]planCacheEntry
}

type planCacheEntry struct {
	plan     *domain.FixedBudgetPlan
	storedAt calendar.EpochMillis
}

func newPlanCache() *planCache {
	return &planCache{entries: make(map[string]planCacheEntry)}
}

// cacheKey builds the deterministic lookup key. Budget is compared at cent
// granularity: two budgets that round to the same cent hit the same entry.
func cacheKey(goalIDs []uuid.UUID, budget decimal.Decimal, currency string, settingsVersion int64) string {
	ids := make([]string, 0, len(goalIDs))
	for _, id := range goalIDs {
		ids = append(ids, id.String())
	}
	sort.Strings(ids)

	var b strings.Builder
	b.WriteString(strings.Join(ids, ","))
	b.WriteByte('|')
	b.WriteString(budget.Round(2).String())
	b.WriteByte('|')
	b.WriteString(currency)
	b.WriteByte('|')
	b.WriteString(strconv.FormatInt(settingsVersion, 10))
	return b.String()
}

// get returns the cached plan when present and within TTL. Expiry is
// checked on access; there is no background sweeper.
func (c *planCache) get(key string) (*domain.FixedBudgetPlan, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	age := time.Duration(int64(calendar.Now())-int64(entry.storedAt)) * time.Millisecond
	if age < 0 || age > planCacheTTL {
		delete(c.entries, key)
		return nil, false
	}
	return entry.plan, true
}

func (c *planCache) put(key string, plan *domain.FixedBudgetPlan) {
	c.mu.Lock()
	c.entries[key] = planCacheEntry{plan: plan, storedAt: calendar.Now()}
	c.mu.Unlock()
}

// invalidate drops every entry; called when any planner input changes.
func (c *planCache) invalidate() {
	c.mu.Lock()
	c.entries = make(map[string]planCacheEntry)
	c.mu.Unlock()
}
