package cache

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestDisk(t *testing.T, dir string, maxAge time.Duration) *Disk {
	t.Helper()
	d, err := NewDisk(dir, 0, 3, maxAge)
	if err != nil {
		t.Fatalf("NewDisk failed: %v", err)
	}
	return d
}

func TestDisk_PutGetRoundtrip(t *testing.T) {
	dir := t.TempDir()
	d := newTestDisk(t, dir, 0)
	defer d.Close()

	fp := Fingerprint("some sentence", "espeak-ng", "en", 1.0, 1.0, 22050)
	audio := bytes.Repeat([]byte("RIFF-data-"), 100)

	if err := d.Put(fp, audio); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	retrieved, ok := d.Get(fp)
	if !ok {
		t.Fatal("Get missed a stored fingerprint")
	}
	if !bytes.Equal(retrieved, audio) {
		t.Error("Buffer did not survive the compression roundtrip")
	}

	// The buffer must be compressed on disk, not stored raw.
	files, err := filepath.Glob(filepath.Join(dir, "*.zst"))
	if err != nil || len(files) != 1 {
		t.Fatalf("Expected one cache file, got %v (err %v)", files, err)
	}
	info, err := os.Stat(files[0])
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if info.Size() >= int64(len(audio)) {
		t.Errorf("Repetitive buffer did not compress: %d on disk vs %d raw", info.Size(), len(audio))
	}
}

func TestDisk_FirstWriterWins(t *testing.T) {
	d := newTestDisk(t, t.TempDir(), 0)
	defer d.Close()

	fp := "v1_samekey"
	first := []byte("first write")

	if err := d.Put(fp, first); err != nil {
		t.Fatalf("First Put failed: %v", err)
	}
	if err := d.Put(fp, []byte("second write")); err != nil {
		t.Fatalf("Second Put failed: %v", err)
	}

	retrieved, ok := d.Get(fp)
	if !ok {
		t.Fatal("Fingerprint missing after double Put")
	}
	if !bytes.Equal(retrieved, first) {
		t.Errorf("Second Put replaced the stored buffer: got %q", retrieved)
	}
}

func TestDisk_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	d := newTestDisk(t, dir, 0)
	fp := Fingerprint("persist me", "espeak-ng", "en", 1.0, 1.0, 22050)
	audio := []byte("audio that outlives the process")
	if err := d.Put(fp, audio); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened := newTestDisk(t, dir, 0)
	defer reopened.Close()

	retrieved, ok := reopened.Get(fp)
	if !ok {
		t.Fatal("Entry did not survive reopen")
	}
	if !bytes.Equal(retrieved, audio) {
		t.Error("Buffer corrupted across reopen")
	}
}

func TestDisk_EntryTooLarge(t *testing.T) {
	d, err := NewDisk(t.TempDir(), 64, 3, 0)
	if err != nil {
		t.Fatalf("NewDisk failed: %v", err)
	}
	defer d.Close()

	if err := d.Put("fp-large", make([]byte, 128)); err != ErrEntryTooLarge {
		t.Errorf("Expected ErrEntryTooLarge, got %v", err)
	}
}

func TestDisk_CorruptedFileDropped(t *testing.T) {
	dir := t.TempDir()
	d := newTestDisk(t, dir, 0)
	defer d.Close()

	fp := "v1_willcorrupt"
	if err := d.Put(fp, []byte("valid audio")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	files, _ := filepath.Glob(filepath.Join(dir, "*.zst"))
	if len(files) != 1 {
		t.Fatalf("Expected one cache file, got %d", len(files))
	}
	if err := os.WriteFile(files[0], []byte("not a zstd frame"), 0o644); err != nil {
		t.Fatalf("Corrupting file failed: %v", err)
	}

	if _, ok := d.Get(fp); ok {
		t.Fatal("Get returned a corrupted entry")
	}
	if d.Contains(fp) {
		t.Error("Corrupted entry should have been dropped from the index")
	}
}

func TestDisk_MissingFileDropped(t *testing.T) {
	dir := t.TempDir()
	d := newTestDisk(t, dir, 0)
	defer d.Close()

	fp := "v1_willvanish"
	if err := d.Put(fp, []byte("here today")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	files, _ := filepath.Glob(filepath.Join(dir, "*.zst"))
	for _, f := range files {
		os.Remove(f)
	}

	if _, ok := d.Get(fp); ok {
		t.Fatal("Get hit for an entry whose file is gone")
	}
	if d.Contains(fp) {
		t.Error("Entry with a missing file should have been dropped")
	}
}

func TestDisk_PrunesExpiredOnOpen(t *testing.T) {
	dir := t.TempDir()

	d := newTestDisk(t, dir, 0)
	if err := d.Put("v1_stale", []byte("old audio")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	time.Sleep(30 * time.Millisecond)

	reopened := newTestDisk(t, dir, 10*time.Millisecond)
	defer reopened.Close()

	if reopened.Contains("v1_stale") {
		t.Error("Stale entry should have been pruned on open")
	}
	files, _ := filepath.Glob(filepath.Join(dir, "*.zst"))
	if len(files) != 0 {
		t.Errorf("Pruned entry left %d files behind", len(files))
	}
}

func TestDisk_Stats(t *testing.T) {
	d := newTestDisk(t, t.TempDir(), 0)
	defer d.Close()

	d.Put("fp-1", []byte("value"))
	d.Get("fp-1")
	d.Get("fp-2")

	stats := d.Stats()
	if stats.Hits != 1 {
		t.Errorf("Expected 1 hit, got %d", stats.Hits)
	}
	if stats.Misses != 1 {
		t.Errorf("Expected 1 miss, got %d", stats.Misses)
	}
	if stats.Entries != 1 {
		t.Errorf("Expected 1 entry, got %d", stats.Entries)
	}
	if stats.Bytes <= 0 {
		t.Error("Expected nonzero stored bytes")
	}
}
