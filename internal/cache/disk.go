package cache

import (
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/klauspost/compress/zstd"
)

const indexFileName = "index.gob"

// diskEntry is the index record for one cached buffer on disk.
type diskEntry struct {
	File       string
	Size       int64
	StoredSize int64
	CreatedAt  time.Time
	AccessedAt time.Time
}

// Disk is the persistent cache layer. Buffers are zstd-compressed into
// individual files named by the hash of their fingerprint, and an index
// maps fingerprints to files. The index is loaded on open and written
// back on Close; a crash loses access order but never stored audio,
// since every buffer lands through a rename.
type Disk struct {
	dir      string
	maxBytes int64
	maxAge   time.Duration
	bytes    int64

	encoder *zstd.Encoder
	decoder *zstd.Decoder

	index map[string]*diskEntry

	mu    sync.Mutex
	stats Stats
}

// NewDisk opens (or creates) a disk store rooted at dir. Entries older
// than maxAge are pruned on open.
func NewDisk(dir string, maxBytes int64, compressionLevel int, maxAge time.Duration) (*Disk, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}

	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(compressionLevel)))
	if err != nil {
		return nil, fmt.Errorf("creating zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		encoder.Close()
		return nil, fmt.Errorf("creating zstd decoder: %w", err)
	}

	d := &Disk{
		dir:      dir,
		maxBytes: maxBytes,
		maxAge:   maxAge,
		encoder:  encoder,
		decoder:  decoder,
		index:    make(map[string]*diskEntry),
	}

	if err := d.loadIndex(); err != nil {
		log.Debug("Cache index unreadable, starting fresh", "dir", dir, "error", err)
		d.index = make(map[string]*diskEntry)
		d.bytes = 0
	}
	d.pruneExpired()

	return d, nil
}

// Get retrieves and decompresses the buffer for a fingerprint.
func (d *Disk) Get(fp string) ([]byte, bool) {
	d.mu.Lock()
	entry, ok := d.index[fp]
	if !ok {
		d.stats.Misses++
		d.mu.Unlock()
		return nil, false
	}
	entry.AccessedAt = time.Now()
	path := filepath.Join(d.dir, entry.File)
	d.mu.Unlock()

	compressed, err := os.ReadFile(path)
	if err != nil {
		d.dropEntry(fp)
		return nil, false
	}

	audio, err := d.decoder.DecodeAll(compressed, nil)
	if err != nil {
		log.Debug("Corrupted cache file removed", "fingerprint", fp, "error", err)
		d.dropEntry(fp)
		return nil, false
	}

	d.mu.Lock()
	d.stats.Hits++
	d.mu.Unlock()
	return audio, true
}

// Put compresses and stores a buffer under a fingerprint. An existing
// fingerprint is left untouched. The file lands via a temp file and
// rename so readers never observe a partial write.
func (d *Disk) Put(fp string, audio []byte) error {
	d.mu.Lock()
	if _, ok := d.index[fp]; ok {
		d.mu.Unlock()
		return nil
	}
	d.mu.Unlock()

	size := int64(len(audio))
	if d.maxBytes > 0 && size > d.maxBytes {
		return ErrEntryTooLarge
	}

	compressed := d.encoder.EncodeAll(audio, nil)
	fileName := fingerprintFileName(fp)
	path := filepath.Join(d.dir, fileName)

	tmp, err := os.CreateTemp(d.dir, "put-*")
	if err != nil {
		return fmt.Errorf("creating temp cache file: %w", err)
	}
	if _, err := tmp.Write(compressed); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("closing cache file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("placing cache file: %w", err)
	}

	now := time.Now()
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.index[fp]; ok {
		// Another writer finished while we were compressing. Identical
		// fingerprints carry identical content, so the rename above was
		// harmless; just skip the double-count.
		return nil
	}
	d.index[fp] = &diskEntry{
		File:       fileName,
		Size:       size,
		StoredSize: int64(len(compressed)),
		CreatedAt:  now,
		AccessedAt: now,
	}
	d.bytes += int64(len(compressed))
	d.evictOverBudget()
	return nil
}

// evictOverBudget removes least recently accessed entries until the
// byte budget holds (must be called with lock held).
func (d *Disk) evictOverBudget() {
	if d.maxBytes <= 0 {
		return
	}
	for d.bytes > d.maxBytes && len(d.index) > 0 {
		var oldestFp string
		var oldest *diskEntry
		for fp, entry := range d.index {
			if oldest == nil || entry.AccessedAt.Before(oldest.AccessedAt) {
				oldestFp = fp
				oldest = entry
			}
		}
		d.removeLocked(oldestFp, oldest)
		d.stats.Evictions++
	}
}

// pruneExpired drops entries older than maxAge.
func (d *Disk) pruneExpired() {
	if d.maxAge <= 0 {
		return
	}
	cutoff := time.Now().Add(-d.maxAge)

	d.mu.Lock()
	defer d.mu.Unlock()

	for fp, entry := range d.index {
		if entry.CreatedAt.Before(cutoff) {
			d.removeLocked(fp, entry)
		}
	}
}

// dropEntry removes a single fingerprint after a read failure.
func (d *Disk) dropEntry(fp string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if entry, ok := d.index[fp]; ok {
		d.removeLocked(fp, entry)
	}
	d.stats.Misses++
}

// removeLocked deletes an entry's file and index record (must be called
// with lock held).
func (d *Disk) removeLocked(fp string, entry *diskEntry) {
	os.Remove(filepath.Join(d.dir, entry.File))
	delete(d.index, fp)
	d.bytes -= entry.StoredSize
}

// Contains checks for a fingerprint without touching the file.
func (d *Disk) Contains(fp string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	_, ok := d.index[fp]
	return ok
}

// Stats returns cache counters.
func (d *Disk) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()

	stats := d.stats
	stats.Entries = int64(len(d.index))
	stats.Bytes = d.bytes
	return stats
}

// Close persists the index and releases the compressor.
func (d *Disk) Close() error {
	err := d.saveIndex()
	d.encoder.Close()
	d.decoder.Close()
	return err
}

// loadIndex reads the gob index and reconciles it against the files
// actually present, dropping records whose file vanished.
func (d *Disk) loadIndex() error {
	path := filepath.Join(d.dir, indexFileName)
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer file.Close()

	index := make(map[string]*diskEntry)
	if err := gob.NewDecoder(file).Decode(&index); err != nil {
		return fmt.Errorf("%w: %v", ErrCorrupted, err)
	}

	var total int64
	for fp, entry := range index {
		info, err := os.Stat(filepath.Join(d.dir, entry.File))
		if err != nil {
			delete(index, fp)
			continue
		}
		entry.StoredSize = info.Size()
		total += entry.StoredSize
	}

	d.index = index
	d.bytes = total
	return nil
}

// saveIndex writes the gob index atomically.
func (d *Disk) saveIndex() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	tmp, err := os.CreateTemp(d.dir, "index-*")
	if err != nil {
		return fmt.Errorf("creating temp index: %w", err)
	}
	if err := gob.NewEncoder(tmp).Encode(d.index); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("encoding index: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("closing index: %w", err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(d.dir, indexFileName)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("placing index: %w", err)
	}
	return nil
}

// fingerprintFileName converts a fingerprint to an opaque fixed-length
// file name.
func fingerprintFileName(fp string) string {
	sum := sha256.Sum256([]byte(fp))
	return hex.EncodeToString(sum[:]) + ".zst"
}
