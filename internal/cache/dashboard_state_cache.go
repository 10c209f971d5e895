package cache

import (
	"strings"
	"sync"
	"time"

	"github.com/smallbiznis/royalty/internal/earnings/domain"
)

const defaultDashboardStateTTL = 15 * time.Minute

// DashboardStateCache keeps one DashboardQueryState per open dashboard view
// so overlapping refreshes from the same view are sequence-guarded.
type DashboardStateCache struct {
	mu     sync.Mutex
	states Cache[string, *domain.DashboardQueryState]
	ttl    time.Duration
}

func NewDashboardStateCache() *DashboardStateCache {
	return &DashboardStateCache{
		states: NewTTLCache[string, *domain.DashboardQueryState](),
		ttl:    defaultDashboardStateTTL,
	}
}

// State returns the view's state, creating it on first use. Every access
// extends the view's lifetime.
func (c *DashboardStateCache) State(creatorID, viewID string) *domain.DashboardQueryState {
	key := cacheKey(creatorID, viewID)
	c.mu.Lock()
	defer c.mu.Unlock()
	state, ok := c.states.Get(key)
	if !ok {
		state = &domain.DashboardQueryState{}
	}
	c.states.Set(key, state, c.ttl)
	return state
}

func cacheKey(parts ...string) string {
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return strings.Join(parts, ":")
}
