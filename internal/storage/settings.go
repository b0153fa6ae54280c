package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"dtek-shutdowns-monitor/internal/models"
)

// SettingsStore persists the monitoring configuration so that a concurrent
// configure command takes effect on the running daemon's next tick.
type SettingsStore struct {
	path string
	mu   sync.Mutex
}

func NewSettingsStore(dir string) (*SettingsStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &SettingsStore{path: filepath.Join(dir, "settings.json")}, nil
}

// Load returns the persisted monitoring config, or the defaults when no
// settings file exists yet. A corrupt file also falls back to defaults.
func (s *SettingsStore) Load() (models.MonitoringConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return models.DefaultMonitoringConfig(), nil
	}
	if err != nil {
		return models.DefaultMonitoringConfig(), fmt.Errorf("read settings: %w", err)
	}
	var cfg models.MonitoringConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return models.DefaultMonitoringConfig(), fmt.Errorf("%w: %v", ErrCacheCorrupt, err)
	}
	if err := cfg.Validate(); err != nil {
		return models.DefaultMonitoringConfig(), err
	}
	return cfg, nil
}

func (s *SettingsStore) Save(cfg models.MonitoringConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace settings: %w", err)
	}
	return nil
}
