// ABOUTME: Thread-safe TTL cache over recently handled mailbox message ids
// ABOUTME: Fast path in front of the durable processed-message store during polling

package dedupe

import (
	"container/list"
	"sync"
	"time"

	"github.com/taskmill/taskmill/internal/store"
)

// cacheEntry stores the timestamp and list element for a cached key.
type cacheEntry struct {
	timestamp time.Time
	element   *list.Element
}

// Cache tracks mailbox messages handled in recent polling ticks so the
// poller can skip them without a store round trip. Entries expire after
// the TTL and the oldest entry is evicted when the cache is full; a miss
// is never authoritative, the durable store still decides.
type Cache struct {
	mu      sync.RWMutex
	seen    map[string]*cacheEntry
	order   *list.List // keys in insertion order, oldest at front
	ttl     time.Duration
	maxSize int
	done    chan struct{}
	closed  bool
}

// New creates a message cache with the specified TTL and maximum size.
// A background goroutine periodically cleans up expired entries.
func New(ttl time.Duration, maxSize int) *Cache {
	c := &Cache{
		seen:    make(map[string]*cacheEntry),
		order:   list.New(),
		ttl:     ttl,
		maxSize: maxSize,
		done:    make(chan struct{}),
	}
	go c.cleanup()
	return c
}

// messageKey scopes a provider message id to one user's mailbox. The same
// provider id seen by two users is two distinct messages.
func messageKey(userID string, provider store.Provider, messageID string) string {
	return userID + "\x00" + string(provider) + "\x00" + messageID
}

// Seen reports whether the message was handled within the TTL.
func (c *Cache) Seen(userID string, provider store.Provider, messageID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.seen[messageKey(userID, provider, messageID)]
	if !ok {
		return false
	}
	return time.Since(entry.timestamp) < c.ttl
}

// Remember records that a message was handled. If the cache is at
// capacity, the oldest entry is evicted to make room.
func (c *Cache) Remember(userID string, provider store.Provider, messageID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rememberLocked(messageKey(userID, provider, messageID))
}

// rememberLocked is the internal mark implementation. Must be called with mu held.
func (c *Cache) rememberLocked(key string) {
	now := time.Now()

	// If the key already exists, refresh its timestamp and move to back
	if entry, exists := c.seen[key]; exists {
		entry.timestamp = now
		c.order.MoveToBack(entry.element)
		return
	}

	if len(c.seen) >= c.maxSize {
		c.evictOldest()
	}

	elem := c.order.PushBack(key)
	c.seen[key] = &cacheEntry{
		timestamp: now,
		element:   elem,
	}
}

// evictOldest removes the oldest entry from the cache.
// Must be called with mu held. O(1) operation using the linked list.
func (c *Cache) evictOldest() {
	front := c.order.Front()
	if front == nil {
		return
	}

	key, _ := front.Value.(string)
	c.order.Remove(front)
	delete(c.seen, key)
}

// cleanup runs in a background goroutine, periodically removing expired entries.
func (c *Cache) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.runCleanup()
		case <-c.done:
			return
		}
	}
}

// runCleanup removes all expired entries from the cache.
func (c *Cache) runCleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for key, entry := range c.seen {
		if now.Sub(entry.timestamp) > c.ttl {
			c.order.Remove(entry.element)
			delete(c.seen, key)
		}
	}
}

// Close stops the background cleanup goroutine. It is safe to call multiple times.
func (c *Cache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		close(c.done)
		c.closed = true
	}
}
