package keycache

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/openpgp"
)

func testEntity() *openpgp.Entity {
	// The cache never inspects the entity; an empty one is enough.
	return &openpgp.Entity{}
}

func TestGetSet(t *testing.T) {
	c := New(DefaultTTL)

	_, ok := c.Get("A1B2C3D4E5F60718")
	assert.False(t, ok)

	entity := testEntity()
	c.Set("A1B2C3D4E5F60718", entity)

	got, ok := c.Get("A1B2C3D4E5F60718")
	require.True(t, ok)
	assert.Same(t, entity, got)
}

func TestTTLExpiry(t *testing.T) {
	c := New(5 * time.Minute)

	now := time.Now()
	c.now = func() time.Time { return now }

	c.Set("KEY1", testEntity())

	now = now.Add(4 * time.Minute)
	_, ok := c.Get("KEY1")
	assert.True(t, ok)

	now = now.Add(2 * time.Minute)
	_, ok = c.Get("KEY1")
	assert.False(t, ok)

	// The expired entry was evicted, not just hidden.
	assert.Equal(t, 0, c.Stats().Size)
}

func TestInvalidate(t *testing.T) {
	c := New(DefaultTTL)

	c.Set("KEY1", testEntity())
	c.Set("KEY2", testEntity())

	c.Invalidate("KEY1")

	_, ok := c.Get("KEY1")
	assert.False(t, ok)
	_, ok = c.Get("KEY2")
	assert.True(t, ok)
}

func TestClear(t *testing.T) {
	c := New(DefaultTTL)

	c.Set("KEY1", testEntity())
	c.Set("KEY2", testEntity())
	c.Clear()

	assert.Equal(t, 0, c.Stats().Size)
}

func TestStats_PrunesExpired(t *testing.T) {
	c := New(time.Minute)

	now := time.Now()
	c.now = func() time.Time { return now }

	c.Set("OLD1", testEntity())
	c.Set("OLD2", testEntity())

	now = now.Add(2 * time.Minute)
	c.Set("FRESH", testEntity())

	stats := c.Stats()
	assert.Equal(t, 1, stats.Size)
	assert.Equal(t, time.Minute, stats.TTL)
}

func TestConcurrentAccess(t *testing.T) {
	c := New(DefaultTTL)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Set("SHARED", testEntity())
			c.Get("SHARED")
			c.Stats()
		}()
	}
	wg.Wait()

	_, ok := c.Get("SHARED")
	assert.True(t, ok)
}
