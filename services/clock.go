package services

import (
	"sync"
	"time"
)

// IDClock issues message ids from the wall clock in milliseconds. Ids are
// strictly increasing within one clock even when the wall clock stalls or
// steps backwards.
type IDClock struct {
	mu   sync.Mutex
	now  func() time.Time
	last int64
}

func NewIDClock(now func() time.Time) *IDClock {
	if now == nil {
		now = time.Now
	}
	return &IDClock{now: now}
}

// Next returns a fresh id and the instant it was derived from.
func (c *IDClock) Next() (int64, time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	at := c.now()
	id := at.UnixMilli()
	if id <= c.last {
		id = c.last + 1
	}
	c.last = id
	return id, at
}

// Observe moves the clock past an id issued elsewhere.
func (c *IDClock) Observe(id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if id > c.last {
		c.last = id
	}
}
