package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// ProfileInfo summarizes a profile file for listings
type ProfileInfo struct {
	Filename string `json:"filename"`
	Name     string `json:"name"`
	URL      string `json:"url"`
}

// Manager handles profile loading and caching
type Manager struct {
	profileDir    string
	defaultConfig *Config
	profiles      map[string]*Config
	mu            sync.RWMutex
}

// NewManager creates a profile manager over profileDir
func NewManager(profileDir string) (*Manager, error) {
	if _, err := os.Stat(profileDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("profile directory does not exist: %s", profileDir)
	}

	m := &Manager{
		profileDir: profileDir,
		profiles:   make(map[string]*Config),
	}

	if err := m.loadDefaultConfig(); err != nil {
		return nil, fmt.Errorf("failed to load default profile: %w", err)
	}

	return m, nil
}

// Load loads a profile by name
func (m *Manager) Load(name string) (*Config, error) {
	name = strings.TrimSuffix(name, ".json")

	m.mu.RLock()
	if cfg, exists := m.profiles[name]; exists {
		m.mu.RUnlock()
		return cfg, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring write lock
	if cfg, exists := m.profiles[name]; exists {
		return cfg, nil
	}

	cfg, err := LoadFile(filepath.Join(m.profileDir, name+".json"))
	if err != nil {
		return nil, err
	}
	if cfg.Name == "" {
		cfg.Name = name
	}

	m.profiles[name] = cfg
	return cfg, nil
}

// List returns every valid profile in the directory, sorted by file name
func (m *Manager) List() ([]*ProfileInfo, error) {
	entries, err := os.ReadDir(m.profileDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile directory: %w", err)
	}

	var profiles []*ProfileInfo
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		cfg, err := m.Load(entry.Name())
		if err != nil {
			// Skip invalid profiles
			continue
		}

		profiles = append(profiles, &ProfileInfo{
			Filename: entry.Name(),
			Name:     cfg.Name,
			URL:      cfg.URL,
		})
	}

	sort.Slice(profiles, func(i, j int) bool {
		return profiles[i].Filename < profiles[j].Filename
	})
	return profiles, nil
}

// Default returns the default profile
func (m *Manager) Default() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultConfig
}

// loadDefaultConfig uses default.json when present and valid, the built-in
// defaults otherwise
func (m *Manager) loadDefaultConfig() error {
	cfg, err := m.Load("default")
	if err != nil {
		m.defaultConfig = Default()
		return nil
	}
	m.defaultConfig = cfg
	return nil
}
