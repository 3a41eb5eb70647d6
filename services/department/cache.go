package department

import (
	"container/list"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/regit-contracts/regit/models"
)

// cacheEntry represents a single cache entry with TTL
type cacheEntry struct {
	department *models.Department
	insertedAt time.Time
	element    *list.Element // For LRU tracking
}

// Cache is an in-memory LRU cache with TTL for department lookups.
// Every department is indexed by ID and by name.
type Cache struct {
	mu      sync.Mutex
	clock   clockwork.Clock
	entries map[string]*cacheEntry
	lruList *list.List
	maxSize int
	ttl     time.Duration
	hits    uint64
	misses  uint64
}

// NewCache creates a new Cache with specified max size and TTL
func NewCache(maxSize int, ttl time.Duration, clock clockwork.Clock) *Cache {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Cache{
		clock:   clock,
		entries: make(map[string]*cacheEntry),
		lruList: list.New(),
		maxSize: maxSize,
		ttl:     ttl,
	}
}

func idKey(id uuid.UUID) string { return "id:" + id.String() }

func nameKey(name string) string { return "name:" + strings.ToLower(name) }

// GetByID returns a cached department, or nil when missing or expired
func (c *Cache) GetByID(id uuid.UUID) *models.Department {
	return c.get(idKey(id))
}

// GetByName returns a cached department by name, or nil when missing or expired
func (c *Cache) GetByName(name string) *models.Department {
	return c.get(nameKey(name))
}

// Set stores a department under both of its keys
func (c *Cache) Set(d *models.Department) {
	if c == nil || d == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.set(idKey(d.ID), d)
	c.set(nameKey(d.Name), d)
}

// Clear removes all entries from the cache
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*cacheEntry)
	c.lruList.Init()
}

// Stats returns cache statistics
func (c *Cache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := CacheStats{
		Size:    c.lruList.Len(),
		MaxSize: c.maxSize,
		Hits:    c.hits,
		Misses:  c.misses,
	}
	if total := c.hits + c.misses; total > 0 {
		stats.HitRate = float64(c.hits) / float64(total)
	}
	return stats
}

// CacheStats represents cache statistics
type CacheStats struct {
	Size    int
	MaxSize int
	Hits    uint64
	Misses  uint64
	HitRate float64
}

func (c *Cache) get(key string) *models.Department {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.entries[key]
	if !exists || c.clock.Since(entry.insertedAt) > c.ttl {
		c.misses++
		if exists {
			c.removeEntry(key)
		}
		return nil
	}

	c.lruList.MoveToFront(entry.element)
	c.hits++
	return entry.department
}

// set must be called with lock held
func (c *Cache) set(key string, d *models.Department) {
	if entry, exists := c.entries[key]; exists {
		entry.department = d
		entry.insertedAt = c.clock.Now()
		c.lruList.MoveToFront(entry.element)
		return
	}

	if c.maxSize > 0 && c.lruList.Len() >= c.maxSize {
		c.evictLRU()
	}

	entry := &cacheEntry{department: d, insertedAt: c.clock.Now()}
	entry.element = c.lruList.PushFront(key)
	c.entries[key] = entry
}

// removeEntry must be called with lock held
func (c *Cache) removeEntry(key string) {
	if entry, exists := c.entries[key]; exists {
		c.lruList.Remove(entry.element)
		delete(c.entries, key)
	}
}

// evictLRU must be called with lock held
func (c *Cache) evictLRU() {
	if back := c.lruList.Back(); back != nil {
		key := back.Value.(string)
		c.lruList.Remove(back)
		delete(c.entries, key)
	}
}
