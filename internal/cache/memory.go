package cache

import (
	"container/list"
	"sync"
)

// Memory is the in-memory cache layer with strict LRU eviction. Lookups
// and inserts are O(1); eviction walks from the least recently used end
// until the entry-count and byte budgets both hold.
type Memory struct {
	maxEntries int
	maxBytes   int64
	bytes      int64

	// LRU implementation
	items    map[string]*list.Element
	eviction *list.List

	mu    sync.Mutex
	stats Stats
}

// memoryEntry is one fingerprint → buffer pair in the eviction list.
type memoryEntry struct {
	fp    string
	audio []byte
}

// NewMemory creates a memory store bounded by maxEntries and maxBytes.
// Either bound may be zero, meaning unbounded in that dimension.
func NewMemory(maxEntries int, maxBytes int64) *Memory {
	return &Memory{
		maxEntries: maxEntries,
		maxBytes:   maxBytes,
		items:      make(map[string]*list.Element),
		eviction:   list.New(),
	}
}

// Get retrieves the buffer for a fingerprint. A hit marks the entry most
// recently used.
func (c *Memory) Get(fp string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[fp]
	if !ok {
		c.stats.Misses++
		return nil, false
	}

	c.eviction.MoveToFront(elem)
	c.stats.Hits++
	return elem.Value.(*memoryEntry).audio, true
}

// Put inserts a buffer for a fingerprint. A fingerprint that is already
// present is left untouched so that racing workers which synthesized the
// same unit store exactly one value. Entries larger than the byte budget
// are rejected rather than flushing the whole cache for one buffer.
func (c *Memory) Put(fp string, audio []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.items[fp]; ok {
		return nil
	}

	size := int64(len(audio))
	if c.maxBytes > 0 && size > c.maxBytes {
		return ErrEntryTooLarge
	}

	for c.overBudget(size) && c.eviction.Len() > 0 {
		c.evictOldest()
	}

	elem := c.eviction.PushFront(&memoryEntry{fp: fp, audio: audio})
	c.items[fp] = elem
	c.bytes += size
	return nil
}

// overBudget reports whether adding size bytes and one entry would
// exceed either budget (must be called with lock held).
func (c *Memory) overBudget(size int64) bool {
	if c.maxEntries > 0 && c.eviction.Len()+1 > c.maxEntries {
		return true
	}
	if c.maxBytes > 0 && c.bytes+size > c.maxBytes {
		return true
	}
	return false
}

// evictOldest removes the least recently used entry (must be called
// with lock held).
func (c *Memory) evictOldest() {
	elem := c.eviction.Back()
	if elem == nil {
		return
	}
	entry := elem.Value.(*memoryEntry)
	c.eviction.Remove(elem)
	delete(c.items, entry.fp)
	c.bytes -= int64(len(entry.audio))
	c.stats.Evictions++
}

// Contains checks for a fingerprint without updating recency.
func (c *Memory) Contains(fp string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.items[fp]
	return ok
}

// Len returns the current entry count.
func (c *Memory) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.eviction.Len()
}

// Stats returns cache counters.
func (c *Memory) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := c.stats
	stats.Entries = int64(c.eviction.Len())
	stats.Bytes = c.bytes
	return stats
}

// Close does nothing for the memory layer.
func (c *Memory) Close() error { return nil }
