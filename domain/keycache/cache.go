package keycache

import (
	"sync"
	"time"

	"golang.org/x/crypto/openpgp"
)

// DefaultTTL is how long decrypted key material stays cached.
const DefaultTTL = 5 * time.Minute

type entry struct {
	entity    *openpgp.Entity
	expiresAt time.Time
}

// Stats reports the cache size after pruning expired entries.
type Stats struct {
	Size int           `json:"size"`
	TTL  time.Duration `json:"ttl"`
}

// Cache holds decrypted PGP entities in memory with TTL expiry. Entries are
// owned by this process only and are removed on rotation, deletion, or
// process exit. Safe for concurrent use.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry
	ttl     time.Duration
	now     func() time.Time
}

func New(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		entries: make(map[string]entry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns the cached entity for keyID, lazily evicting it when expired.
func (c *Cache) Get(keyID string) (*openpgp.Entity, bool) {
	c.mu.RLock()
	e, ok := c.entries[keyID]
	c.mu.RUnlock()

	if !ok {
		return nil, false
	}
	if c.now().After(e.expiresAt) {
		c.mu.Lock()
		// Recheck under the write lock; a concurrent Set may have renewed it.
		if cur, still := c.entries[keyID]; still && c.now().After(cur.expiresAt) {
			delete(c.entries, keyID)
		}
		c.mu.Unlock()
		return nil, false
	}
	return e.entity, true
}

func (c *Cache) Set(keyID string, entity *openpgp.Entity) {
	c.mu.Lock()
	c.entries[keyID] = entry{entity: entity, expiresAt: c.now().Add(c.ttl)}
	c.mu.Unlock()
}

// Invalidate removes one entry; called on key rotation and deletion.
func (c *Cache) Invalidate(keyID string) {
	c.mu.Lock()
	delete(c.entries, keyID)
	c.mu.Unlock()
}

// Clear purges all entries.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]entry)
	c.mu.Unlock()
}

// Stats prunes expired entries and reports the remaining size.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for keyID, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, keyID)
		}
	}
	return Stats{Size: len(c.entries), TTL: c.ttl}
}
