// Package store persists collected merge request records as
// newline-delimited JSON keyed by (project id, merge request iid).
package store

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/glmr-tools/glmr/pkg/gitlab"
	"github.com/glmr-tools/glmr/pkg/logging"
)

// Prometheus metrics for record cache operations.
var (
	cacheRecords = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "glmr_record_cache_records",
		Help: "Number of records currently held by the cache",
	})

	cacheCorruptLinesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "glmr_record_cache_corrupt_lines_total",
		Help: "Cache lines dropped during load because they failed to parse or validate",
	})
)

const cacheFilename = "merge_requests.jsonl"

// Lines can carry a merge request with hundreds of discussions; the scanner
// buffer must accommodate them.
const maxLineBytes = 16 * 1024 * 1024

// Cache holds the latest known record per merge request identity and
// persists the full set back to disk on Flush.
type Cache struct {
	path    string
	records map[gitlab.RecordKey]gitlab.Record
	logger  zerolog.Logger
}

// Open creates the cache directory if needed and loads existing records.
// A missing or zero-byte cache file both mean an empty cache. Lines that
// fail to parse or validate are logged and dropped; load only fails on I/O
// errors.
func Open(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory %s: %w", dir, err)
	}

	c := &Cache{
		path:    filepath.Join(dir, cacheFilename),
		records: make(map[gitlab.RecordKey]gitlab.Record),
		logger:  logging.NewLogger("record-cache"),
	}

	if err := c.load(); err != nil {
		return nil, err
	}

	cacheRecords.Set(float64(len(c.records)))

	return c, nil
}

func (c *Cache) load() error {
	file, err := os.Open(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open cache file %s: %w", c.path, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		record, err := gitlab.DecodeRecord(line)
		if err != nil {
			cacheCorruptLinesTotal.Inc()
			c.logger.Warn().
				Err(err).
				Int("line", lineNo).
				Str("file", c.path).
				Msg("Dropping unreadable cache line")
			continue
		}

		c.records[record.Key()] = record
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read cache file %s: %w", c.path, err)
	}

	c.logger.Debug().
		Int("records", len(c.records)).
		Str("file", c.path).
		Msg("Cache loaded")

	return nil
}

// Len returns the number of cached records.
func (c *Cache) Len() int {
	return len(c.records)
}

// Path returns the backing file path.
func (c *Cache) Path() string {
	return c.path
}

// ShouldStore reports whether the record should update the cache: true when
// no record exists for its identity, or when the incoming merge request's
// update timestamp is strictly newer than the stored one's. Equal
// timestamps keep the existing record.
func (c *Cache) ShouldStore(record gitlab.Record) bool {
	existing, ok := c.records[record.Key()]
	if !ok {
		return true
	}
	return record.MergeRequest.UpdatedAt.After(existing.MergeRequest.UpdatedAt)
}

// Upsert replaces the in-memory entry for the record's identity. It
// performs no ordering check of its own; callers are expected to consult
// ShouldStore first.
func (c *Cache) Upsert(record gitlab.Record) {
	c.records[record.Key()] = record
	cacheRecords.Set(float64(len(c.records)))
}

// Flush writes all records back to disk, one JSON object per line, ordered
// by (project id, iid). The write goes to a temporary file in the same
// directory which is renamed over the previous one, so a crash mid-write
// leaves the prior file untouched. An empty cache writes an empty file.
func (c *Cache) Flush() error {
	keys := make([]gitlab.RecordKey, 0, len(c.records))
	for key := range c.records {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].ProjectID != keys[j].ProjectID {
			return keys[i].ProjectID < keys[j].ProjectID
		}
		return keys[i].IID < keys[j].IID
	})

	dir := filepath.Dir(c.path)
	tmp, err := os.CreateTemp(dir, cacheFilename+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp cache file: %w", err)
	}
	tmpPath := tmp.Name()

	writer := bufio.NewWriter(tmp)
	for _, key := range keys {
		data, err := json.Marshal(c.records[key])
		if err != nil {
			tmp.Close()
			os.Remove(tmpPath)
			return fmt.Errorf("marshal record %s: %w", key, err)
		}
		if _, err := writer.Write(data); err != nil {
			tmp.Close()
			os.Remove(tmpPath)
			return fmt.Errorf("write cache file: %w", err)
		}
		if err := writer.WriteByte('\n'); err != nil {
			tmp.Close()
			os.Remove(tmpPath)
			return fmt.Errorf("write cache file: %w", err)
		}
	}

	if err := writer.Flush(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("flush cache file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("sync cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close cache file: %w", err)
	}

	if err := os.Rename(tmpPath, c.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replace cache file %s: %w", c.path, err)
	}

	c.logger.Info().
		Int("records", len(keys)).
		Str("file", c.path).
		Msg("Cache flushed")

	return nil
}
