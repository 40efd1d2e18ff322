package feed

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func TestSeenCache_HasAndMark(t *testing.T) {
	cache := NewSeenCache(10, nil)

	if cache.Has("https://example.com/a") {
		t.Error("Empty cache should not report any URL as seen")
	}

	cache.Mark("https://example.com/a")
	if !cache.Has("https://example.com/a") {
		t.Error("Marked URL should be reported as seen")
	}
	if cache.Has("https://example.com/b") {
		t.Error("Unmarked URL should not be reported as seen")
	}
	if cache.LastRefreshed().IsZero() {
		t.Error("Mark should stamp the refresh time")
	}
}

func TestSeenCache_FIFOEviction(t *testing.T) {
	const capacity = 5
	cache := NewSeenCache(capacity, nil)

	for i := 0; i < capacity*2; i++ {
		cache.Mark(fmt.Sprintf("https://example.com/%d", i))
	}

	if cache.Len() != capacity {
		t.Fatalf("Expected exactly %d entries after overflow, got %d", capacity, cache.Len())
	}

	// The oldest half must be gone, the newest half retained.
	for i := 0; i < capacity; i++ {
		if cache.Has(fmt.Sprintf("https://example.com/%d", i)) {
			t.Errorf("Expected oldest entry %d to be evicted", i)
		}
	}
	for i := capacity; i < capacity*2; i++ {
		if !cache.Has(fmt.Sprintf("https://example.com/%d", i)) {
			t.Errorf("Expected newest entry %d to be retained", i)
		}
	}
}

func TestSeenCache_MarkIsIdempotent(t *testing.T) {
	cache := NewSeenCache(10, nil)
	cache.Mark("https://example.com/a")
	cache.Mark("https://example.com/a")
	cache.Mark("https://example.com/a")

	if cache.Len() != 1 {
		t.Errorf("Repeated marks of one URL should keep a single entry, got %d", cache.Len())
	}
}

func TestSeenCache_PersistsThroughFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "news_cache.json")
	store := NewFileStore(path)

	cache := NewSeenCache(10, store)
	cache.Mark("https://example.com/a")
	cache.Mark("https://example.com/b")

	// A fresh cache over the same store sees the previous state.
	reloaded := NewSeenCache(10, NewFileStore(path))
	if !reloaded.Has("https://example.com/a") || !reloaded.Has("https://example.com/b") {
		t.Error("Reloaded cache should contain previously marked URLs")
	}
	if reloaded.Len() != 2 {
		t.Errorf("Expected 2 entries after reload, got %d", reloaded.Len())
	}
	if reloaded.LastRefreshed().IsZero() {
		t.Error("Reloaded cache should carry the persisted timestamp")
	}
}

func TestSeenCache_PersistedFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "news_cache.json")

	cache := NewSeenCache(10, NewFileStore(path))
	cache.Mark("https://example.com/a")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read cache file: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("Cache file is not valid JSON: %v", err)
	}
	if _, ok := raw["last_update"].(string); !ok {
		t.Error("Cache file must keep the 'last_update' string field")
	}
	urls, ok := raw["processed_urls"].([]any)
	if !ok || len(urls) != 1 {
		t.Errorf("Cache file must keep the 'processed_urls' array, got %v", raw["processed_urls"])
	}
}

func TestSeenCache_ReadsLegacyTimestamp(t *testing.T) {
	path := filepath.Join(t.TempDir(), "news_cache.json")
	legacy := `{"last_update": "2024-05-02T08:00:00.123456", "processed_urls": ["https://example.com/old"]}`
	if err := os.WriteFile(path, []byte(legacy), 0o644); err != nil {
		t.Fatalf("Failed to write legacy cache file: %v", err)
	}

	cache := NewSeenCache(10, NewFileStore(path))
	if !cache.Has("https://example.com/old") {
		t.Error("Legacy cache entries should be loaded")
	}
	if cache.LastRefreshed().IsZero() {
		t.Error("Legacy zone-less timestamp should be parsed")
	}
}

func TestSeenCache_LoadFailureStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "news_cache.json")
	if err := os.WriteFile(path, []byte("not json"), 0o644); err != nil {
		t.Fatalf("Failed to write corrupt cache file: %v", err)
	}

	cache := NewSeenCache(10, NewFileStore(path))
	if cache.Len() != 0 {
		t.Errorf("Corrupt store should yield an empty cache, got %d entries", cache.Len())
	}

	// The cache must remain usable.
	cache.Mark("https://example.com/a")
	if !cache.Has("https://example.com/a") {
		t.Error("Cache should keep working after a load failure")
	}
}

func TestSeenCache_LoadedEntriesHonorCapacity(t *testing.T) {
	path := filepath.Join(t.TempDir(), "news_cache.json")

	record := CacheRecord{LastUpdate: "2024-05-02T08:00:00Z"}
	for i := 0; i < 20; i++ {
		record.ProcessedURLs = append(record.ProcessedURLs, fmt.Sprintf("https://example.com/%d", i))
	}
	data, _ := json.Marshal(record)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("Failed to write cache file: %v", err)
	}

	cache := NewSeenCache(5, NewFileStore(path))
	if cache.Len() != 5 {
		t.Fatalf("Expected capacity trim on load, got %d entries", cache.Len())
	}
	if !cache.Has("https://example.com/19") {
		t.Error("Trim on load must keep the newest entries")
	}
	if cache.Has("https://example.com/0") {
		t.Error("Trim on load must drop the oldest entries")
	}
}
