package feed

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// CacheRecord is the persisted shape of the seen-cache. The JSON layout
// (ISO-8601 string plus ordered URL array) predates this implementation and
// must stay readable by and for older deployments.
type CacheRecord struct {
	LastUpdate    string   `json:"last_update"`
	ProcessedURLs []string `json:"processed_urls"`
}

// CacheStore loads and saves the persisted cache record.
type CacheStore interface {
	Load() (CacheRecord, error)
	Save(CacheRecord) error
}

// SeenCache is a bounded FIFO record of processed article URLs. Persistence
// failures are logged and swallowed: losing the cache only means some
// articles may be reprocessed, which must never abort a delivery cycle.
type SeenCache struct {
	mu            sync.Mutex
	seen          map[string]struct{}
	order         []string
	capacity      int
	lastRefreshed time.Time
	store         CacheStore
}

// NewSeenCache builds a cache with the given capacity, warmed from the
// store. A load failure yields an empty cache.
func NewSeenCache(capacity int, store CacheStore) *SeenCache {
	if capacity <= 0 {
		capacity = 1
	}

	c := &SeenCache{
		seen:     make(map[string]struct{}, capacity),
		capacity: capacity,
		store:    store,
	}

	if store == nil {
		return c
	}

	record, err := store.Load()
	if err != nil {
		slog.Warn("Failed to load seen-cache, starting empty", "error", err)
		return c
	}

	for _, url := range record.ProcessedURLs {
		if _, ok := c.seen[url]; ok {
			continue
		}
		c.seen[url] = struct{}{}
		c.order = append(c.order, url)
	}
	c.evictLocked()
	c.lastRefreshed = parseTimestamp(record.LastUpdate)

	slog.Debug("Seen-cache loaded", "entries", len(c.order))
	return c
}

// Has reports whether a URL was already processed.
func (c *SeenCache) Has(url string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.seen[url]
	return ok
}

// Mark records a URL as processed, evicts the oldest entries beyond
// capacity, and persists the cache. Safe for concurrent fetch workers.
func (c *SeenCache) Mark(url string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.seen[url]; !ok {
		c.seen[url] = struct{}{}
		c.order = append(c.order, url)
		c.evictLocked()
	}
	c.lastRefreshed = time.Now().UTC()

	c.persistLocked()
}

// Len returns the number of remembered URLs.
func (c *SeenCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.order)
}

// LastRefreshed returns the time of the most recent mark, or the persisted
// timestamp right after startup.
func (c *SeenCache) LastRefreshed() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.lastRefreshed
}

func (c *SeenCache) evictLocked() {
	for len(c.order) > c.capacity {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.seen, oldest)
	}
}

func (c *SeenCache) persistLocked() {
	if c.store == nil {
		return
	}

	record := CacheRecord{
		LastUpdate:    c.lastRefreshed.Format(time.RFC3339),
		ProcessedURLs: make([]string, len(c.order)),
	}
	copy(record.ProcessedURLs, c.order)

	if err := c.store.Save(record); err != nil {
		slog.Error("Failed to persist seen-cache", "error", err)
	}
}

// parseTimestamp accepts RFC 3339 as well as the zone-less ISO-8601 form
// written by earlier deployments.
func parseTimestamp(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05.999999", "2006-01-02T15:04:05"} {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts
		}
	}
	slog.Debug("Unparseable seen-cache timestamp", "value", raw)
	return time.Time{}
}

// FileStore persists the cache record as a JSON file.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Load() (CacheRecord, error) {
	var record CacheRecord

	data, err := os.ReadFile(s.path)
	if err != nil {
		return record, err
	}
	if err := json.Unmarshal(data, &record); err != nil {
		return CacheRecord{}, err
	}
	return record, nil
}

func (s *FileStore) Save(record CacheRecord) error {
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return err
	}

	// Write-then-rename keeps the previous record intact on a partial write.
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

// DefaultCachePath returns the cache location under the data directory.
func DefaultCachePath(dataDir string) string {
	return filepath.Join(dataDir, "news_cache.json")
}
