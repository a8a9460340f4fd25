package speech

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"sync"

	"github.com/hammamikhairi/polyglot/internal/logger"
)

// AudioCache is a thread-safe two-tier cache (in-memory + filesystem) for
// synthesized replies. Entries are keyed by sha256(backend, language,
// text), so switching backend or language never returns stale audio.
//
// The disk layer is always read when cacheDir is set; diskWrite only
// decides whether new entries are persisted there.
type AudioCache struct {
	mu        sync.RWMutex
	entries   map[string][]byte // hash -> MP3 bytes
	log       *logger.Logger
	namespace string
	cacheDir  string // empty = memory only
	diskWrite bool
	hits      int64
	misses    int64
}

// NewAudioCache creates an audio cache. namespace is usually the TTS
// backend name.
func NewAudioCache(namespace, cacheDir string, diskWrite bool, log *logger.Logger) *AudioCache {
	c := &AudioCache{
		entries:   make(map[string][]byte),
		log:       log,
		namespace: namespace,
		cacheDir:  cacheDir,
		diskWrite: diskWrite,
	}

	if cacheDir != "" && diskWrite {
		if err := os.MkdirAll(cacheDir, 0o755); err != nil {
			log.Error("cache: failed to create cache dir %s: %v", cacheDir, err)
		}
	}
	return c
}

// Get returns cached audio for (lang, text), checking memory then disk.
func (c *AudioCache) Get(lang, text string) ([]byte, bool) {
	key := c.hashKey(lang, text)

	c.mu.RLock()
	data, ok := c.entries[key]
	c.mu.RUnlock()

	if ok {
		c.mu.Lock()
		c.hits++
		c.mu.Unlock()
		c.log.Debug("cache hit (mem): [%s] %s (%d bytes)", lang, truncateForLog(text, 40), len(data))
		return data, true
	}

	if c.cacheDir != "" {
		if diskData, err := os.ReadFile(c.diskPath(key)); err == nil && len(diskData) > 0 {
			c.mu.Lock()
			c.entries[key] = diskData
			c.hits++
			c.mu.Unlock()
			c.log.Debug("cache hit (disk): [%s] %s (%d bytes)", lang, truncateForLog(text, 40), len(diskData))
			return diskData, true
		}
	}

	c.mu.Lock()
	c.misses++
	c.mu.Unlock()
	return nil, false
}

// Put stores audio for (lang, text) in memory and, if enabled, on disk.
func (c *AudioCache) Put(lang, text string, audio []byte) {
	key := c.hashKey(lang, text)

	c.mu.Lock()
	c.entries[key] = audio
	size := len(c.entries)
	c.mu.Unlock()

	c.log.Debug("cache store (mem): [%s] %s (%d bytes, %d entries)", lang, truncateForLog(text, 40), len(audio), size)

	if c.cacheDir == "" || !c.diskWrite {
		return
	}
	path := c.diskPath(key)
	if err := os.WriteFile(path, audio, 0o644); err != nil {
		c.log.Error("cache: disk write failed for %s: %v", path, err)
	}
}

// Len returns the number of in-memory entries.
func (c *AudioCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stats returns hit and miss counts.
func (c *AudioCache) Stats() (hits, misses int64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses
}

func (c *AudioCache) hashKey(lang, text string) string {
	h := sha256.Sum256([]byte(c.namespace + ":" + lang + ":" + text))
	return hex.EncodeToString(h[:])
}

func (c *AudioCache) diskPath(key string) string {
	return filepath.Join(c.cacheDir, key+".mp3")
}

func truncateForLog(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
