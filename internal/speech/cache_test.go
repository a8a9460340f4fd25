package speech

import (
	"os"
	"testing"

	"github.com/hammamikhairi/polyglot/internal/logger"
)

func TestAudioCacheMemory(t *testing.T) {
	c := NewAudioCache("gtts", "", false, logger.New(logger.LevelOff, nil))

	if _, ok := c.Get("en", "hello"); ok {
		t.Fatal("unexpected hit on empty cache")
	}
	c.Put("en", "hello", []byte("a"))

	if data, ok := c.Get("en", "hello"); !ok || string(data) != "a" {
		t.Fatalf("Get = %q, %v", data, ok)
	}
	if _, ok := c.Get("hi", "hello"); ok {
		t.Fatal("language must be part of the key")
	}

	hits, misses := c.Stats()
	if hits != 1 || misses != 2 {
		t.Fatalf("stats = %d/%d, want 1/2", hits, misses)
	}
	if c.Len() != 1 {
		t.Fatalf("Len = %d", c.Len())
	}
}

func TestAudioCacheDisk(t *testing.T) {
	dir := t.TempDir()
	log := logger.New(logger.LevelOff, nil)

	first := NewAudioCache("azure", dir, true, log)
	first.Put("hi", "namaste", []byte("mp3"))

	entries, err := os.ReadDir(dir)
	if err != nil || len(entries) != 1 {
		t.Fatalf("disk entries = %v, err %v", entries, err)
	}

	// A read-only cache still sees entries from earlier runs.
	second := NewAudioCache("azure", dir, false, log)
	if data, ok := second.Get("hi", "namaste"); !ok || string(data) != "mp3" {
		t.Fatalf("disk Get = %q, %v", data, ok)
	}

	other := NewAudioCache("gtts", dir, false, log)
	if _, ok := other.Get("hi", "namaste"); ok {
		t.Fatal("namespace must be part of the key")
	}
}
