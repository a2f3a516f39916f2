// Package cache persists the latest enriched feed as a JSON snapshot on
// disk. The snapshot doubles as the warm-start source after a restart and
// as the first fallback tier when the live source is unreachable.
package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/futuresdesk/newsradar/internal/event"
)

// Record is the cache file shape: the enriched feed plus the instant it
// was written, which drives freshness decisions.
type Record struct {
	LastUpdated string                `json:"lastUpdated"`
	News        []event.EnrichedEvent `json:"news"`
}

// Store reads and writes the snapshot file. The fallback closure supplies
// synthetic events when no usable snapshot exists, so Read never fails.
type Store struct {
	path     string
	fallback func() []event.EnrichedEvent
	now      func() time.Time
}

// New creates a store over the given file path. fallback may be nil, in
// which case Read returns an empty feed when the snapshot is unusable.
func New(path string, fallback func() []event.EnrichedEvent) *Store {
	return &Store{path: path, fallback: fallback, now: time.Now}
}

// Path returns the snapshot file path.
func (s *Store) Path() string {
	return s.path
}

// Write persists the feed atomically: marshal to a temp file in the same
// directory, then rename over the destination. A reader never observes a
// partially written snapshot.
func (s *Store) Write(events []event.EnrichedEvent) error {
	rec := Record{
		LastUpdated: s.now().UTC().Format(time.RFC3339),
		News:        events,
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding cache record: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".news-*.json")
	if err != nil {
		return fmt.Errorf("creating temp cache file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing temp cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("closing temp cache file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replacing cache file: %w", err)
	}
	return nil
}

// ReadRecord loads the snapshot. It reports an error for a missing file,
// unparseable JSON or an empty feed; callers decide what tier comes next.
func (s *Store) ReadRecord() (*Record, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("reading cache file: %w", err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decoding cache file: %w", err)
	}
	if len(rec.News) == 0 {
		return nil, errors.New("cache record holds no events")
	}
	return &rec, nil
}

// Read returns the cached feed, substituting the fallback feed when the
// snapshot is missing or unusable. It never fails.
func (s *Store) Read() []event.EnrichedEvent {
	rec, err := s.ReadRecord()
	if err == nil {
		return rec.News
	}
	if !errors.Is(err, os.ErrNotExist) {
		log.Printf("Cache unusable (%v); using fallback feed", err)
	}
	if s.fallback == nil {
		return nil
	}
	return s.fallback()
}

// Age reports how long ago the snapshot was written. It returns an error
// when the snapshot or its timestamp is unusable.
func (s *Store) Age() (time.Duration, error) {
	rec, err := s.ReadRecord()
	if err != nil {
		return 0, err
	}
	written, err := time.Parse(time.RFC3339, rec.LastUpdated)
	if err != nil {
		return 0, fmt.Errorf("parsing cache timestamp: %w", err)
	}
	return s.now().Sub(written), nil
}

// Fresh reports whether the snapshot exists and is younger than ttl.
func (s *Store) Fresh(ttl time.Duration) bool {
	age, err := s.Age()
	return err == nil && age >= 0 && age < ttl
}
