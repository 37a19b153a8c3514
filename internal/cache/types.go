package cache

import (
	"errors"
	"time"
)

// Common errors for cache operations
var (
	// ErrEntryTooLarge is returned when a buffer exceeds the cache capacity
	ErrEntryTooLarge = errors.New("audio buffer too large for cache")

	// ErrCorrupted is returned when a persisted entry cannot be read back
	ErrCorrupted = errors.New("cache entry corrupted")
)

// Store is a bounded fingerprint → audio buffer map shared by the
// synthesis workers of a run. Implementations must be safe for
// concurrent use, and Put must be first-writer-wins: a put for a
// fingerprint that is already present leaves the stored value
// untouched, keeping racing workers idempotent.
type Store interface {
	// Get returns the buffer for a fingerprint. A hit refreshes the
	// entry's recency.
	Get(fp string) ([]byte, bool)

	// Put inserts a buffer, evicting least-recently-used entries while
	// a capacity budget is exceeded. Inserting an already-present
	// fingerprint is a no-op.
	Put(fp string, audio []byte) error

	// Stats returns counters accumulated since the store was created.
	Stats() Stats

	// Close releases resources and persists state where applicable.
	Close() error
}

// Stats holds cache performance counters.
type Stats struct {
	Hits       int64 // successful lookups
	Misses     int64 // failed lookups
	Evictions  int64 // entries removed under capacity pressure
	Promotions int64 // disk entries copied up to memory
	Entries    int64 // current entry count
	Bytes      int64 // current total buffer size
}

// HitRate returns the fraction of lookups that hit, in [0,1].
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// Config holds configuration for the cache layer of one conversion run.
type Config struct {
	// Memory layer bounds. Either may be zero for unbounded, but not
	// both when the layer is the only one.
	MaxEntries int   // entry count budget (0 = unbounded)
	MaxBytes   int64 // byte budget (0 = unbounded)

	// Persistent layer
	Dir              string        // directory for cache files
	DiskBytes        int64         // disk byte budget (0 disables persistence)
	CompressionLevel int           // zstd level for persisted entries (0 = default)
	MaxAge           time.Duration // prune persisted entries older than this on open (0 = keep)
}

// DefaultConfig returns the cache configuration used when the caller
// does not override it.
func DefaultConfig() Config {
	return Config{
		MaxEntries:       0,
		MaxBytes:         256 * 1024 * 1024,
		Dir:              "tts_cache",
		DiskBytes:        512 * 1024 * 1024,
		CompressionLevel: 3,
		MaxAge:           30 * 24 * time.Hour,
	}
}

// Noop is a Store that stores nothing. It stands in for the cache when
// caching is disabled, so callers need no special case.
type Noop struct{}

// Get always misses.
func (Noop) Get(string) ([]byte, bool) { return nil, false }

// Put discards the buffer.
func (Noop) Put(string, []byte) error { return nil }

// Stats returns zero counters.
func (Noop) Stats() Stats { return Stats{} }

// Close does nothing.
func (Noop) Close() error { return nil }
