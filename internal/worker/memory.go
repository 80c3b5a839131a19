package worker

import (
	"context"
	"sync"

	"github.com/oneany574/eduflow-calendar-hub/internal/attendance"
	"github.com/oneany574/eduflow-calendar-hub/internal/store"
)

// MemoryCache is a Cache kept in process, used when redis is not configured.
// It answers the same reads as store.SummaryCache.
type MemoryCache struct {
	mu        sync.RWMutex
	summaries map[string]attendance.Summary
	events    map[string]int64
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		summaries: make(map[string]attendance.Summary),
		events:    make(map[string]int64),
	}
}

func (c *MemoryCache) PutSummary(_ context.Context, sessionID string, sum attendance.Summary) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.summaries[sessionID] = sum
	return nil
}

func (c *MemoryCache) IncrEvent(_ context.Context, typ string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events[typ]++
	return nil
}

// GetSummary returns the cached summary of a session or store.ErrMiss.
func (c *MemoryCache) GetSummary(_ context.Context, sessionID string) (attendance.Summary, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	sum, ok := c.summaries[sessionID]
	if !ok {
		return attendance.Summary{}, store.ErrMiss
	}
	return sum, nil
}

// EventCounts returns a copy of the event counters.
func (c *MemoryCache) EventCounts(context.Context) (map[string]int64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]int64, len(c.events))
	for k, v := range c.events {
		out[k] = v
	}
	return out, nil
}
