package cache

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a manually advanced Clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func TestLRUCache_Expiry(t *testing.T) {
	clock := newFakeClock()
	c := NewLRUCache[string](10, time.Minute, clock.Now)

	c.Set("a", "1")
	got, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, "1", got)

	clock.Advance(59 * time.Second)
	_, ok = c.Get("a")
	assert.True(t, ok)

	clock.Advance(time.Second)
	_, ok = c.Get("a")
	assert.False(t, ok)
	assert.Zero(t, c.Size())
}

func TestLRUCache_Eviction(t *testing.T) {
	c := NewLRUCache[int](2, time.Hour, nil)

	c.Set("a", 1)
	c.Set("b", 2)
	_, _ = c.Get("a")
	c.Set("c", 3)

	_, ok := c.Get("b")
	assert.False(t, ok, "least recently used entry should be evicted")
	_, ok = c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 2, c.Size())
}

func TestLRUCache_PurgeAndDelete(t *testing.T) {
	c := NewLRUCache[int](5, time.Hour, nil)
	c.Set("a", 1)
	c.Set("b", 2)

	c.Delete("a")
	assert.Equal(t, 1, c.Size())

	c.Purge()
	assert.Zero(t, c.Size())
	c.Set("c", 3)
	assert.Equal(t, 1, c.Size())
}

func TestLRUCache_CleanExpired(t *testing.T) {
	clock := newFakeClock()
	c := NewLRUCache[int](5, time.Minute, clock.Now)
	c.Set("a", 1)
	clock.Advance(30 * time.Second)
	c.Set("b", 2)
	clock.Advance(45 * time.Second)

	assert.Equal(t, 1, c.CleanExpired())
	assert.Equal(t, 1, c.Size())
}

func TestValue_TTL(t *testing.T) {
	clock := newFakeClock()
	v := NewValue[int](5*time.Minute, clock.Now)

	_, _, ok := v.Get()
	assert.False(t, ok, "empty value is a miss")

	stamped := v.Set(42)
	got, at, ok := v.Get()
	require.True(t, ok)
	assert.Equal(t, 42, got)
	assert.Equal(t, stamped, at)

	clock.Advance(4*time.Minute + 59*time.Second)
	_, _, ok = v.Get()
	assert.True(t, ok)

	clock.Advance(time.Second)
	_, _, ok = v.Get()
	assert.False(t, ok)
	assert.Equal(t, 1, v.CleanExpired())
	assert.Equal(t, 0, v.CleanExpired())
}

func TestValue_Reset(t *testing.T) {
	v := NewValue[string](time.Hour, nil)
	v.Set("x")
	v.Reset()
	_, _, ok := v.Get()
	assert.False(t, ok)
}

func TestManager_CleanAllAndStop(t *testing.T) {
	clock := newFakeClock()
	lru := NewLRUCache[int](5, time.Minute, clock.Now)
	val := NewValue[int](time.Minute, clock.Now)
	lru.Set("a", 1)
	val.Set(1)

	m := NewManager(nil)
	m.Register(lru)
	m.Register(val)

	clock.Advance(2 * time.Minute)
	assert.Equal(t, 2, m.CleanAll())

	m.StartCleanup(time.Millisecond)
	m.Stop()
	m.Stop()
}
