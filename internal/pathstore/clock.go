package pathstore

import (
	"sync"
	"time"
)

// millisClock hands out strictly increasing epoch milliseconds. When the wall
// clock repeats or steps back, the last value is bumped by one.
type millisClock struct {
	mu   sync.Mutex
	now  func() time.Time
	last int64
}

func (c *millisClock) next() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	ms := c.now().UnixMilli()
	if ms <= c.last {
		ms = c.last + 1
	}
	c.last = ms
	return ms
}
