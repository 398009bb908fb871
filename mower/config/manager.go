package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/wricardo/lawnmower/logger"
	"github.com/wricardo/lawnmower/mower/grid"
	"github.com/wricardo/lawnmower/mower/service"
)

var (
	ErrConfigNotFound = service.ErrYardNotFound
	ErrInvalidConfig  = errors.New("invalid configuration")
)

// DefaultYard is loaded as the default configuration when present
const DefaultYard = "backyard"

// extensions are tried in order when resolving a yard ID to a file
var extensions = []string{".json", ".yaml", ".yml"}

// Manager handles yard configuration loading and caching
type Manager struct {
	configDir     string
	defaultConfig *grid.YardConfig
	configs       map[string]*grid.YardConfig
	mu            sync.RWMutex
}

// NewManager creates a new configuration manager
func NewManager(configDir string) (*Manager, error) {
	if _, err := os.Stat(configDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("config directory does not exist: %s", configDir)
	}

	m := &Manager{
		configDir: configDir,
		configs:   make(map[string]*grid.YardConfig),
	}

	m.loadDefaultConfig()
	return m, nil
}

// yardID strips a known extension from name
func yardID(name string) string {
	for _, ext := range extensions {
		if strings.HasSuffix(name, ext) {
			return strings.TrimSuffix(name, ext)
		}
	}
	return name
}

// LoadConfig loads a configuration by ID, with or without extension
func (m *Manager) LoadConfig(name string) (*grid.YardConfig, error) {
	id := yardID(name)
	if id == "" || strings.ContainsAny(id, `/\`) || strings.HasPrefix(id, ".") {
		return nil, ErrConfigNotFound
	}

	m.mu.RLock()
	if config, exists := m.configs[id]; exists {
		m.mu.RUnlock()
		return config, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring write lock
	if config, exists := m.configs[id]; exists {
		return config, nil
	}

	config, err := m.readConfig(id)
	if err != nil {
		return nil, err
	}

	m.configs[id] = config
	return config, nil
}

// readConfig finds, decodes and validates the file for id
func (m *Manager) readConfig(id string) (*grid.YardConfig, error) {
	for _, ext := range extensions {
		path := filepath.Join(m.configDir, id+ext)
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		return parse(data, path)
	}
	return nil, ErrConfigNotFound
}

// ReadFile decodes and validates a single yard file. The extension picks
// JSON or YAML.
func ReadFile(path string) (*grid.YardConfig, error) {
	if !IsYardFile(path) {
		return nil, fmt.Errorf("%w: %s: unsupported extension", ErrInvalidConfig, filepath.Base(path))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return parse(data, path)
}

// IsYardFile reports whether name has a yard file extension
func IsYardFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, known := range extensions {
		if ext == known {
			return true
		}
	}
	return false
}

func parse(data []byte, path string) (*grid.YardConfig, error) {
	config, err := decode(data, strings.ToLower(filepath.Ext(path)))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, filepath.Base(path), err)
	}
	if err := grid.ValidateYardConfig(config); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, filepath.Base(path), err)
	}
	return config, nil
}

func decode(data []byte, ext string) (*grid.YardConfig, error) {
	var config grid.YardConfig
	var err error
	if ext == ".json" {
		err = json.Unmarshal(data, &config)
	} else {
		err = yaml.Unmarshal(data, &config)
	}
	if err != nil {
		return nil, err
	}
	return &config, nil
}

// ListConfigs returns information about all valid configurations, sorted by ID
func (m *Manager) ListConfigs() ([]*service.YardInfo, error) {
	entries, err := os.ReadDir(m.configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read config directory: %w", err)
	}

	seen := make(map[string]bool)
	var configs []*service.YardInfo

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		id := yardID(entry.Name())
		if id == entry.Name() || seen[id] {
			continue
		}
		seen[id] = true

		config, err := m.LoadConfig(id)
		if err != nil {
			logger.Component("config").WithError(err).WithField("file", entry.Name()).Debug("skipping yard")
			continue
		}

		info := &service.YardInfo{
			Filename:    entry.Name(),
			YardID:      id,
			Name:        config.Name,
			Description: config.Description,
			Strategy:    config.Strategy,
		}
		if g, err := config.Grid(); err == nil {
			info.Rows, info.Cols, info.Targets = g.Rows(), g.Cols(), g.TargetCount()
		}
		configs = append(configs, info)
	}

	sort.Slice(configs, func(i, j int) bool { return configs[i].YardID < configs[j].YardID })
	return configs, nil
}

// GetDefault returns the default configuration
func (m *Manager) GetDefault() *grid.YardConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultConfig
}

// SetDefault sets the default configuration by ID
func (m *Manager) SetDefault(name string) error {
	config, err := m.LoadConfig(name)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultConfig = config
	return nil
}

// RefreshCache drops cached configurations and reloads the default
func (m *Manager) RefreshCache() {
	m.mu.Lock()
	m.configs = make(map[string]*grid.YardConfig)
	m.mu.Unlock()

	m.loadDefaultConfig()
}

// loadDefaultConfig picks backyard, then the first valid yard, then a
// built-in minimal yard
func (m *Manager) loadDefaultConfig() {
	config, err := m.LoadConfig(DefaultYard)
	if err != nil {
		config = nil
		if configs, listErr := m.ListConfigs(); listErr == nil && len(configs) > 0 {
			config, _ = m.LoadConfig(configs[0].YardID)
		}
	}
	if config == nil {
		config = createMinimalConfig()
	}

	m.mu.Lock()
	m.defaultConfig = config
	m.mu.Unlock()
}

// SaveConfig saves a configuration to disk. IDs ending in .yaml or .yml are
// written as YAML, everything else as JSON.
func (m *Manager) SaveConfig(name string, config *grid.YardConfig) error {
	if err := grid.ValidateYardConfig(config); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	id := yardID(name)
	if id == "" || strings.ContainsAny(id, `/\`) || strings.HasPrefix(id, ".") {
		return fmt.Errorf("%w: invalid yard id %q", ErrInvalidConfig, name)
	}

	ext := filepath.Ext(name)
	var data []byte
	var err error
	switch ext {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(config)
	default:
		ext = ".json"
		data, err = json.MarshalIndent(config, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	configPath := filepath.Join(m.configDir, id+ext)
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	m.mu.Lock()
	m.configs[id] = config
	m.mu.Unlock()

	return nil
}

// createMinimalConfig creates a minimal valid configuration
func createMinimalConfig() *grid.YardConfig {
	return &grid.YardConfig{
		Name:        "default",
		Description: "Default minimal yard",
		Layout: []string{
			".+.",
			"+.+",
			".+.",
		},
	}
}
