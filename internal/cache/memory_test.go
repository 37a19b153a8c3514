package cache

import (
	"bytes"
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestMemory_BasicOperations(t *testing.T) {
	cache := NewMemory(0, 1024)

	fp := Fingerprint("hello world", "espeak-ng", "en", 1.0, 1.0, 22050)
	audio := []byte("pcm-bytes")

	if err := cache.Put(fp, audio); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	retrieved, ok := cache.Get(fp)
	if !ok {
		t.Fatal("Get failed: fingerprint not found")
	}
	if !bytes.Equal(retrieved, audio) {
		t.Errorf("Retrieved buffer mismatch: got %q, want %q", retrieved, audio)
	}

	if !cache.Contains(fp) {
		t.Error("Contains returned false for stored fingerprint")
	}
	if cache.Len() != 1 {
		t.Errorf("Len mismatch: got %d, want 1", cache.Len())
	}
}

func TestMemory_FirstWriterWins(t *testing.T) {
	cache := NewMemory(0, 1024)

	fp := "v1_somefingerprint"
	first := []byte("first synthesis")
	second := []byte("second synthesis")

	if err := cache.Put(fp, first); err != nil {
		t.Fatalf("First Put failed: %v", err)
	}
	if err := cache.Put(fp, second); err != nil {
		t.Fatalf("Second Put failed: %v", err)
	}

	retrieved, ok := cache.Get(fp)
	if !ok {
		t.Fatal("Fingerprint not found after double Put")
	}
	if !bytes.Equal(retrieved, first) {
		t.Errorf("Second Put replaced the stored buffer: got %q, want %q", retrieved, first)
	}
	if cache.Len() != 1 {
		t.Errorf("Len mismatch after double Put: got %d, want 1", cache.Len())
	}
}

func TestMemory_EntryCountEviction(t *testing.T) {
	cache := NewMemory(2, 0)

	cache.Put("fp-0", []byte("a"))
	cache.Put("fp-1", []byte("b"))
	cache.Put("fp-2", []byte("c"))

	// fp-0 was least recently used and must be gone.
	if cache.Contains("fp-0") {
		t.Error("fp-0 should have been evicted")
	}
	if !cache.Contains("fp-1") || !cache.Contains("fp-2") {
		t.Error("Recently inserted entries should have survived")
	}

	if _, ok := cache.Get("fp-0"); ok {
		t.Error("Get should miss for an evicted fingerprint")
	}
}

func TestMemory_GetRefreshesRecency(t *testing.T) {
	cache := NewMemory(2, 0)

	cache.Put("fp-0", []byte("a"))
	cache.Put("fp-1", []byte("b"))

	// Touch fp-0 so fp-1 becomes the eviction candidate.
	cache.Get("fp-0")
	cache.Put("fp-2", []byte("c"))

	if !cache.Contains("fp-0") {
		t.Error("fp-0 was accessed most recently and should have survived")
	}
	if cache.Contains("fp-1") {
		t.Error("fp-1 should have been evicted")
	}
}

func TestMemory_ByteBudgetEviction(t *testing.T) {
	cache := NewMemory(0, 100)

	cache.Put("fp-0", make([]byte, 60))
	cache.Put("fp-1", make([]byte, 60))

	if cache.Contains("fp-0") {
		t.Error("fp-0 should have been evicted to fit fp-1")
	}
	if !cache.Contains("fp-1") {
		t.Error("fp-1 should be present")
	}

	stats := cache.Stats()
	if stats.Evictions != 1 {
		t.Errorf("Expected 1 eviction, got %d", stats.Evictions)
	}
	if stats.Bytes != 60 {
		t.Errorf("Expected 60 bytes held, got %d", stats.Bytes)
	}
}

func TestMemory_EntryTooLarge(t *testing.T) {
	cache := NewMemory(0, 100)

	err := cache.Put("fp-large", make([]byte, 200))
	if err != ErrEntryTooLarge {
		t.Errorf("Expected ErrEntryTooLarge, got %v", err)
	}
	if cache.Len() != 0 {
		t.Errorf("Oversized Put should not have stored anything, Len = %d", cache.Len())
	}
}

func TestMemory_Stats(t *testing.T) {
	cache := NewMemory(0, 1024)

	stats := cache.Stats()
	if stats.Hits != 0 || stats.Misses != 0 {
		t.Error("Initial stats should be zero")
	}

	cache.Put("fp-1", []byte("value"))
	cache.Get("fp-1")
	cache.Get("fp-2")

	stats = cache.Stats()
	if stats.Hits != 1 {
		t.Errorf("Expected 1 hit, got %d", stats.Hits)
	}
	if stats.Misses != 1 {
		t.Errorf("Expected 1 miss, got %d", stats.Misses)
	}
	if rate := stats.HitRate(); rate != 0.5 {
		t.Errorf("Expected hit rate 0.5, got %f", rate)
	}
}

func TestMemory_ConcurrentSameFingerprint(t *testing.T) {
	cache := NewMemory(0, 0)

	fp := "v1_contested"
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			cache.Put(fp, []byte(fmt.Sprintf("worker-%d", id)))
		}(i)
	}
	wg.Wait()

	if cache.Len() != 1 {
		t.Fatalf("Expected exactly one entry, got %d", cache.Len())
	}

	// Whatever value won the race must be stable across reads.
	winner, ok := cache.Get(fp)
	if !ok {
		t.Fatal("Fingerprint missing after concurrent puts")
	}
	for i := 0; i < 10; i++ {
		again, _ := cache.Get(fp)
		if !bytes.Equal(winner, again) {
			t.Fatal("Stored value changed between reads")
		}
	}
}

func TestMemory_ConcurrentAccess(t *testing.T) {
	cache := NewMemory(0, 10240)

	var wg sync.WaitGroup
	errors := make(chan error, 100)

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				fp := fmt.Sprintf("writer-%d-fp-%d", id, j)
				if err := cache.Put(fp, []byte(fmt.Sprintf("value-%d-%d", id, j))); err != nil {
					errors <- fmt.Errorf("writer %d: %v", id, err)
				}
			}
		}(i)
	}

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				// Some reads race ahead of the writes and miss; that is fine.
				cache.Get(fmt.Sprintf("writer-%d-fp-%d", id, j))
			}
		}(i)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case err := <-errors:
		t.Fatal(err)
	case <-time.After(5 * time.Second):
		t.Fatal("Test timed out")
	}
}

func BenchmarkMemory_Put(b *testing.B) {
	cache := NewMemory(0, 64*1024*1024)
	audio := make([]byte, 100)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		cache.Put(fmt.Sprintf("fp-%d", i), audio)
	}
}

func BenchmarkMemory_Get(b *testing.B) {
	cache := NewMemory(0, 64*1024*1024)
	for i := 0; i < 1000; i++ {
		cache.Put(fmt.Sprintf("fp-%d", i), make([]byte, 100))
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		cache.Get(fmt.Sprintf("fp-%d", i%1000))
	}
}
