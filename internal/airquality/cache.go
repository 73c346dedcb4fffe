package airquality

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/sensordeck/sensordeck/internal/stats"
)

// DefaultCacheTTL is how long a persisted baseline stays valid.
const DefaultCacheTTL = time.Hour

// CacheRecord is the persisted form of a completed burn-in baseline.
type CacheRecord struct {
	Baseline    stats.Baseline `json:"baseline"`
	CreatedAt   int64          `json:"created_at"`
	SampleCount int            `json:"sample_count"`
}

// Cache persists the burn-in baseline across restarts. The file may be
// shared by several processes under a cooperative single-writer
// contract: exactly one process is constructed as the writer, all
// others must pass readOnly. This is an external contract, not
// enforced by file locks; the writer path uses an atomic rename so
// readers never observe a partial record.
type Cache struct {
	path       string
	ttl        time.Duration
	minSamples int
	readOnly   bool
	now        func() time.Time
}

// NewCache creates a cache at path. A zero ttl takes DefaultCacheTTL.
func NewCache(path string, ttl time.Duration, minSamples int, readOnly bool) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if minSamples < 1 {
		minSamples = DefaultMinSamples
	}
	return &Cache{
		path:       path,
		ttl:        ttl,
		minSamples: minSamples,
		readOnly:   readOnly,
		now:        time.Now,
	}
}

// Load returns the cached baseline if the file exists, parses, is
// younger than the TTL and carries enough samples. Any other outcome
// is a cache miss: corrupt or stale records are discarded, never fatal.
func (c *Cache) Load() (stats.Baseline, bool) {
	if c.path == "" {
		return stats.Baseline{}, false
	}
	raw, err := os.ReadFile(c.path)
	if err != nil {
		return stats.Baseline{}, false
	}
	var rec CacheRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		log.Printf("airquality: discarding corrupt cache %s: %v", c.path, err)
		return stats.Baseline{}, false
	}
	age := c.now().Sub(time.Unix(rec.CreatedAt, 0))
	if age < 0 || age >= c.ttl {
		return stats.Baseline{}, false
	}
	if rec.SampleCount < c.minSamples {
		return stats.Baseline{}, false
	}
	return rec.Baseline, true
}

// Save writes the baseline as a fresh cache record. In read-only mode
// it is a no-op. The record is written to a temp file and renamed into
// place so concurrent readers never see a torn write.
func (c *Cache) Save(b stats.Baseline) error {
	if c.readOnly || c.path == "" {
		return nil
	}
	rec := CacheRecord{
		Baseline:    b,
		CreatedAt:   c.now().Unix(),
		SampleCount: b.SampleCount,
	}
	raw, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("encode cache record: %w", err)
	}
	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".baseline-*.json")
	if err != nil {
		return fmt.Errorf("create cache temp file: %w", err)
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close cache temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), c.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("install cache: %w", err)
	}
	return nil
}
