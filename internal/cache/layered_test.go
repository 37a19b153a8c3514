package cache

import (
	"bytes"
	"testing"
)

func newTestLayered(t *testing.T) *Layered {
	t.Helper()
	l, err := New(Config{Dir: t.TempDir()})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

func TestLayered_WriteThrough(t *testing.T) {
	l := newTestLayered(t)

	fp := Fingerprint("both layers", "espeak-ng", "en", 1.0, 1.0, 22050)
	audio := []byte("stored twice")

	if err := l.Put(fp, audio); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	if !l.memory.Contains(fp) {
		t.Error("Put did not reach the memory layer")
	}
	if !l.disk.Contains(fp) {
		t.Error("Put did not reach the disk layer")
	}

	retrieved, ok := l.Get(fp)
	if !ok {
		t.Fatal("Get missed after Put")
	}
	if !bytes.Equal(retrieved, audio) {
		t.Error("Buffer mismatch through the layered store")
	}
}

func TestLayered_PromotesDiskHits(t *testing.T) {
	l := newTestLayered(t)

	fp := "v1_diskonly"
	audio := []byte("came from a previous run")

	// Seed the disk layer directly, simulating an entry left by an
	// earlier process.
	if err := l.disk.Put(fp, audio); err != nil {
		t.Fatalf("disk Put failed: %v", err)
	}
	if l.memory.Contains(fp) {
		t.Fatal("Fingerprint unexpectedly already in memory")
	}

	retrieved, ok := l.Get(fp)
	if !ok {
		t.Fatal("Get missed a disk-resident entry")
	}
	if !bytes.Equal(retrieved, audio) {
		t.Error("Buffer mismatch on disk hit")
	}

	if !l.memory.Contains(fp) {
		t.Error("Disk hit was not promoted to memory")
	}
	if stats := l.Stats(); stats.Promotions != 1 {
		t.Errorf("Expected 1 promotion, got %d", stats.Promotions)
	}
}

func TestLayered_FirstWriterWins(t *testing.T) {
	l := newTestLayered(t)

	fp := "v1_contested"
	first := []byte("winner")

	if err := l.Put(fp, first); err != nil {
		t.Fatalf("First Put failed: %v", err)
	}
	if err := l.Put(fp, []byte("loser")); err != nil {
		t.Fatalf("Second Put failed: %v", err)
	}

	retrieved, _ := l.Get(fp)
	if !bytes.Equal(retrieved, first) {
		t.Errorf("Expected the first write to win, got %q", retrieved)
	}
}

func TestLayered_Stats(t *testing.T) {
	l := newTestLayered(t)

	l.Put("fp-1", []byte("value"))
	l.Get("fp-1")
	l.Get("fp-missing")

	stats := l.Stats()
	if stats.Hits != 1 {
		t.Errorf("Expected 1 hit, got %d", stats.Hits)
	}
	if stats.Misses != 1 {
		t.Errorf("Expected 1 miss, got %d", stats.Misses)
	}
	if stats.Entries != 2 { // one per layer
		t.Errorf("Expected 2 entries across layers, got %d", stats.Entries)
	}
	if rate := stats.HitRate(); rate != 0.5 {
		t.Errorf("Expected hit rate 0.5, got %f", rate)
	}
}

func TestNoop_StoresNothing(t *testing.T) {
	var n Noop

	if err := n.Put("fp", []byte("discarded")); err != nil {
		t.Fatalf("Noop Put returned error: %v", err)
	}
	if _, ok := n.Get("fp"); ok {
		t.Error("Noop Get should always miss")
	}
	if stats := n.Stats(); stats != (Stats{}) {
		t.Errorf("Noop stats should stay zero, got %+v", stats)
	}
	if err := n.Close(); err != nil {
		t.Errorf("Noop Close returned error: %v", err)
	}
}
