package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"sync"
	"time"

	"dtek-shutdowns-monitor/internal/models"
)

// DefaultTTL is how long a cache snapshot counts as fresh.
const DefaultTTL = time.Hour

// ErrCacheCorrupt marks a cache file that exists but cannot be parsed.
// Callers treat it as cache-absent and force a re-extraction.
var ErrCacheCorrupt = errors.New("cache file corrupt")

// Store persists one JSON cache file per address under a data directory.
// Writers for the same address serialize on a per-address mutex; files are
// replaced atomically so readers never observe a half-written cache.
type Store struct {
	dir string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &Store{dir: dir, locks: make(map[string]*sync.Mutex)}, nil
}

func (s *Store) addressLock(addr models.Address) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := s.cachePath(addr)
	l, ok := s.locks[key]
	if !ok {
		l = &sync.Mutex{}
		s.locks[key] = l
	}
	return l
}

func (s *Store) cachePath(addr models.Address) string {
	h := fnv.New64a()
	fmt.Fprintf(h, "%s|%s|%s", addr.City, addr.Street, addr.HouseNumber)
	return filepath.Join(s.dir, fmt.Sprintf("schedule_%016x.json", h.Sum64()))
}

// Load returns the cached schedule for addr, nil when no cache exists yet,
// or ErrCacheCorrupt when the file cannot be parsed.
func (s *Store) Load(addr models.Address) (*models.ScheduleCache, error) {
	path := s.cachePath(addr)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read cache: %w", err)
	}
	var cache models.ScheduleCache
	if err := json.Unmarshal(data, &cache); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCacheCorrupt, err)
	}
	return &cache, nil
}

// Save replaces the whole cache for addr.
func (s *Store) Save(addr models.Address, cache models.ScheduleCache) error {
	if err := validateActual(cache.ActualSchedules); err != nil {
		return err
	}
	lock := s.addressLock(addr)
	lock.Lock()
	defer lock.Unlock()
	return s.write(addr, cache)
}

// ReplaceActual swaps only the actual half of the cache, leaving the weekly
// forecast untouched, and stamps last_updated.
func (s *Store) ReplaceActual(addr models.Address, intervals []models.OutageInterval, now time.Time) error {
	if err := validateActual(intervals); err != nil {
		return err
	}
	lock := s.addressLock(addr)
	lock.Lock()
	defer lock.Unlock()

	cache := s.loadOrEmpty(addr)
	cache.ActualSchedules = intervals
	cache.LastUpdated = now
	return s.write(addr, cache)
}

// ReplacePossible swaps only the weekly-forecast half of the cache, leaving
// actual data untouched, and stamps last_updated.
func (s *Store) ReplacePossible(addr models.Address, intervals []models.OutageInterval, now time.Time) error {
	lock := s.addressLock(addr)
	lock.Lock()
	defer lock.Unlock()

	cache := s.loadOrEmpty(addr)
	cache.PossibleSchedules = intervals
	cache.LastUpdated = now
	return s.write(addr, cache)
}

// IsStale reports whether the snapshot is older than ttl at now. Callers
// decide whether staleness forces a refresh or degraded use.
func IsStale(cache *models.ScheduleCache, now time.Time, ttl time.Duration) bool {
	if cache == nil {
		return true
	}
	return now.Sub(cache.LastUpdated) > ttl
}

func (s *Store) loadOrEmpty(addr models.Address) models.ScheduleCache {
	cache, err := s.Load(addr)
	if err != nil || cache == nil {
		// A corrupt file is treated as absent; the write below replaces it.
		return models.ScheduleCache{}
	}
	return *cache
}

// write marshals and atomically replaces the cache file via temp + rename.
func (s *Store) write(addr models.Address, cache models.ScheduleCache) error {
	data, err := json.MarshalIndent(cache, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal cache: %w", err)
	}
	path := s.cachePath(addr)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write cache: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace cache: %w", err)
	}
	return nil
}

// validateActual rejects actual snapshots where two intervals for the same
// date overlap.
func validateActual(intervals []models.OutageInterval) error {
	seen := make(map[string]bool)
	for _, iv := range intervals {
		if iv.ScheduleKind != models.ScheduleActual {
			return fmt.Errorf("interval %s %02d-%02d is not an actual interval", iv.Date, iv.StartHour, iv.EndHour)
		}
		if err := iv.Validate(); err != nil {
			return err
		}
		for h := iv.StartHour; h < iv.EndHour; h++ {
			key := fmt.Sprintf("%s|%02d", iv.Date, h)
			if seen[key] {
				return fmt.Errorf("overlapping actual intervals on %s at hour %02d", iv.Date, h)
			}
			seen[key] = true
		}
	}
	return nil
}
