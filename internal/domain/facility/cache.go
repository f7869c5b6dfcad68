package facility

import (
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// HoursCache keeps recently used facility hours in memory so slot listings
// do not hit the store on every request. Entries expire after the configured
// TTL, bounding staleness when an admin edits hours.
type HoursCache struct {
	lru *expirable.LRU[uuid.UUID, WeeklyHours]
}

// NewHoursCache creates a cache holding up to size facilities.
func NewHoursCache(size int, ttl time.Duration) *HoursCache {
	return &HoursCache{
		lru: expirable.NewLRU[uuid.UUID, WeeklyHours](size, nil, ttl),
	}
}

func (c *HoursCache) Get(id uuid.UUID) (WeeklyHours, bool) {
	return c.lru.Get(id)
}

func (c *HoursCache) Put(id uuid.UUID, hours WeeklyHours) {
	c.lru.Add(id, hours)
}

func (c *HoursCache) Invalidate(id uuid.UUID) {
	c.lru.Remove(id)
}
