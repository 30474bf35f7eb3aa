package cache

import (
	"sync"
	"time"
)

// Value caches a single value for a fixed TTL. It has no loader: callers
// check Get, fetch on a miss and Set the result. Concurrent misses may fetch
// more than once; the last Set wins.
type Value[T any] struct {
	mu        sync.RWMutex
	ttl       time.Duration
	now       Clock
	value     T
	fetchedAt time.Time
	set       bool
}

// NewValue returns an empty Value. A nil clock means time.Now.
func NewValue[T any](ttl time.Duration, clock Clock) *Value[T] {
	if clock == nil {
		clock = time.Now
	}
	return &Value[T]{ttl: ttl, now: clock}
}

// Get returns the value and when it was stored, if it is younger than the TTL.
func (v *Value[T]) Get() (T, time.Time, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	var zero T
	if !v.set || v.now().Sub(v.fetchedAt) >= v.ttl {
		return zero, time.Time{}, false
	}
	return v.value, v.fetchedAt, true
}

// Set stores val stamped with the current clock time.
func (v *Value[T]) Set(val T) time.Time {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.value = val
	v.fetchedAt = v.now()
	v.set = true
	return v.fetchedAt
}

// Reset empties the cell.
func (v *Value[T]) Reset() {
	v.mu.Lock()
	defer v.mu.Unlock()

	var zero T
	v.value = zero
	v.fetchedAt = time.Time{}
	v.set = false
}

// CleanExpired implements Cleaner.
func (v *Value[T]) CleanExpired() int {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.set && v.now().Sub(v.fetchedAt) >= v.ttl {
		var zero T
		v.value = zero
		v.set = false
		return 1
	}
	return 0
}
