package cache

import (
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
)

// Layered combines the memory and disk layers into one Store. Lookups
// check memory first and promote disk hits so repeated fingerprints
// stay hot. Writes go through to both layers so a finished run survives
// process exit.
type Layered struct {
	memory *Memory
	disk   *Disk

	mu    sync.Mutex
	stats Stats
}

// New builds a layered store from the configuration. A zero-value
// Config is filled in from DefaultConfig.
func New(cfg Config) (*Layered, error) {
	def := DefaultConfig()
	if cfg.Dir == "" {
		cfg.Dir = def.Dir
	}
	if cfg.MaxBytes == 0 {
		cfg.MaxBytes = def.MaxBytes
	}
	if cfg.DiskBytes == 0 {
		cfg.DiskBytes = def.DiskBytes
	}
	if cfg.CompressionLevel == 0 {
		cfg.CompressionLevel = def.CompressionLevel
	}
	if cfg.MaxAge == 0 {
		cfg.MaxAge = def.MaxAge
	}

	disk, err := NewDisk(cfg.Dir, cfg.DiskBytes, cfg.CompressionLevel, cfg.MaxAge)
	if err != nil {
		return nil, fmt.Errorf("opening disk cache: %w", err)
	}

	return &Layered{
		memory: NewMemory(cfg.MaxEntries, cfg.MaxBytes),
		disk:   disk,
	}, nil
}

// Get retrieves the buffer for a fingerprint, checking memory before
// disk. A disk hit is promoted into memory.
func (l *Layered) Get(fp string) ([]byte, bool) {
	if audio, ok := l.memory.Get(fp); ok {
		l.count(func(s *Stats) { s.Hits++ })
		return audio, true
	}

	if audio, ok := l.disk.Get(fp); ok {
		l.count(func(s *Stats) { s.Hits++; s.Promotions++ })
		// Promotion is best effort; an oversized buffer just stays
		// disk-only.
		_ = l.memory.Put(fp, audio)
		return audio, true
	}

	l.count(func(s *Stats) { s.Misses++ })
	return nil, false
}

// Put stores a buffer in both layers. The first write for a fingerprint
// wins; later writes for the same fingerprint are no-ops. A buffer that
// exceeds one layer's budget still lands in the other.
func (l *Layered) Put(fp string, audio []byte) error {
	memErr := l.memory.Put(fp, audio)
	if memErr != nil && memErr != ErrEntryTooLarge {
		return fmt.Errorf("memory cache: %w", memErr)
	}

	if err := l.disk.Put(fp, audio); err != nil {
		if err == ErrEntryTooLarge {
			log.Debug("Buffer exceeds disk cache budget, kept in memory only", "fingerprint", fp, "bytes", len(audio))
			return nil
		}
		return fmt.Errorf("disk cache: %w", err)
	}
	return nil
}

// Stats returns combined counters. Hits and misses are counted per
// lookup against the layered store; entries, bytes and evictions are
// summed across layers.
func (l *Layered) Stats() Stats {
	l.mu.Lock()
	stats := l.stats
	l.mu.Unlock()

	mem := l.memory.Stats()
	disk := l.disk.Stats()
	stats.Evictions = mem.Evictions + disk.Evictions
	stats.Entries = mem.Entries + disk.Entries
	stats.Bytes = mem.Bytes + disk.Bytes
	return stats
}

// Close releases both layers, persisting the disk index.
func (l *Layered) Close() error {
	if err := l.memory.Close(); err != nil {
		return err
	}
	return l.disk.Close()
}

func (l *Layered) count(update func(*Stats)) {
	l.mu.Lock()
	update(&l.stats)
	l.mu.Unlock()
}
