package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/justyntemme/salpanel/internal/logging"
)

// Config holds all user-configurable settings loaded from config.json
type Config struct {
	Navigation NavigationConfig `json:"navigation"`
	View       ViewConfig       `json:"view"`
	Icons      IconsConfig      `json:"icons"`
	Compare    CompareConfig    `json:"compare"`
	History    HistoryConfig    `json:"history"`
	Logging    LoggingConfig    `json:"logging"`
	S3         S3Config         `json:"s3"`
}

// NavigationConfig holds path-change behaviour
type NavigationConfig struct {
	RescuePath            string `json:"rescuePath"`            // Preferred fallback before a fixed drive
	ShortenWarnings       bool   `json:"shortenWarnings"`       // Show why a path had to be shortened
	AutoNetReconnect      bool   `json:"autoNetReconnect"`      // Try to restore mapped/UNC connections
	KeepOldFSListing      bool   `json:"keepOldFSListing"`      // List plugin paths into a scratch tree first
	RelistDeletedDelayMS  int    `json:"relistDeletedDelayMs"`  // Re-list delay when a refreshed dir vanished
	DriveNotReadyRetries  int    `json:"driveNotReadyRetries"`  // Prompt limit for removable media
	AutoRefreshDebounceMS int    `json:"autoRefreshDebounceMs"` // Watcher debounce
}

// ViewConfig holds listing geometry settings
type ViewConfig struct {
	Mode          string `json:"mode"` // "brief" | "detailed" | "icons" | "thumbnails" | "tiles"
	ThumbnailSize int    `json:"thumbnailSize"`
	TileWidth     int    `json:"tileWidth"`
	FullRowSelect bool   `json:"fullRowSelect"`
	ShowDotfiles  bool   `json:"showDotfiles"`
	SortBy        string `json:"sortBy"` // "name" | "ext" | "time" | "size"
}

// IconsConfig holds icon pool settings
type IconsConfig struct {
	Workers       int `json:"workers"`
	QueueCapacity int `json:"queueCapacity"`
}

// CompareConfig holds directory compare defaults
type CompareConfig struct {
	BySize        bool `json:"bySize"`
	ByTime        bool `json:"byTime"`
	ByContent     bool `json:"byContent"`
	IgnoreSeconds bool `json:"ignoreSeconds"`
	IgnoreDST     bool `json:"ignoreDst"` // Treat exact 1h/2h differences as equal
	Subdirs       bool `json:"subdirs"`
}

// HistoryConfig holds directory history settings
type HistoryConfig struct {
	MaxEntries int    `json:"maxEntries"`
	Persist    bool   `json:"persist"`
	DBPath     string `json:"dbPath"`
}

// LoggingConfig holds zap settings
type LoggingConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
	Output string `json:"output"`
}

// S3Config configures the s3: plugin filesystem
type S3Config struct {
	Enabled   bool   `json:"enabled"`
	Endpoint  string `json:"endpoint"`
	Region    string `json:"region"`
	AccessKey string `json:"accessKey,omitempty"`
	SecretKey string `json:"secretKey,omitempty"`
	PathStyle bool   `json:"pathStyle"`
}

// RelistDelay returns the delay used when a refreshed directory may be going away
func (n NavigationConfig) RelistDelay() time.Duration {
	return time.Duration(n.RelistDeletedDelayMS) * time.Millisecond
}

// RefreshDebounce returns how long directory events must be quiet before a panel refreshes
func (n NavigationConfig) RefreshDebounce() time.Duration {
	return time.Duration(n.AutoRefreshDebounceMS) * time.Millisecond
}

// Manager handles loading, saving, and accessing configuration
type Manager struct {
	mu       sync.RWMutex
	config   *Config
	path     string
	parseErr error // Stores parsing error if config failed to load
}

// NewManager creates a configuration manager for the default config path
func NewManager() *Manager {
	return NewManagerAt(ConfigPath())
}

// NewManagerAt creates a configuration manager for an explicit file
func NewManagerAt(path string) *Manager {
	return &Manager{
		config: DefaultConfig(),
		path:   path,
	}
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Navigation: NavigationConfig{
			RescuePath:            "",
			ShortenWarnings:       true,
			AutoNetReconnect:      true,
			KeepOldFSListing:      true,
			RelistDeletedDelayMS:  400,
			DriveNotReadyRetries:  3,
			AutoRefreshDebounceMS: 200,
		},
		View: ViewConfig{
			Mode:          "detailed",
			ThumbnailSize: 94,
			TileWidth:     240,
			FullRowSelect: false,
			ShowDotfiles:  true,
			SortBy:        "name",
		},
		Icons: IconsConfig{
			Workers:       4,
			QueueCapacity: 256,
		},
		Compare: CompareConfig{
			BySize:    true,
			ByTime:    true,
			IgnoreDST: true,
			Subdirs:   true,
		},
		History: HistoryConfig{
			MaxEntries: 30,
			Persist:    true,
			DBPath:     filepath.Join(configDir(), "history.db"),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
			Output: "stderr",
		},
		S3: S3Config{
			Region:    "us-east-1",
			PathStyle: true,
		},
	}
}

func configDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "salpanel")
}

// ConfigPath returns the config file path: ~/.config/salpanel/config.json
func ConfigPath() string {
	return filepath.Join(configDir(), "config.json")
}

// Path returns the file this manager loads from and saves to
func (m *Manager) Path() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.path
}

// Load reads the configuration from the config file
// If the file doesn't exist, creates it with defaults
// If parsing fails, stores the error and returns defaults
func (m *Manager) Load() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	log := logging.Named("config")
	m.parseErr = nil

	dir := filepath.Dir(m.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Error("failed to create config directory", zap.String("dir", dir), zap.Error(err))
		return err
	}

	data, err := os.ReadFile(m.path)
	if errors.Is(err, os.ErrNotExist) {
		log.Info("creating default config", zap.String("path", m.path))
		m.config = DefaultConfig()
		return m.saveUnlocked()
	}
	if err != nil {
		log.Error("failed to read config", zap.String("path", m.path), zap.Error(err))
		return err
	}

	// Unmarshal over defaults so sections missing from older files keep sane values
	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		log.Warn("config parse error, using defaults", zap.Error(err))
		m.parseErr = err
		m.config = DefaultConfig()
		return nil
	}

	m.config = cfg
	return nil
}

// saveUnlocked saves config without acquiring lock (caller must hold lock)
func (m *Manager) saveUnlocked() error {
	data, err := json.MarshalIndent(m.config, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(m.path, data, 0o644)
}

// Save writes the current configuration to disk
func (m *Manager) Save() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveUnlocked()
}

// Get returns a copy of the current configuration
func (m *Manager) Get() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.config == nil {
		return *DefaultConfig()
	}
	return *m.config
}

// ParseError returns the parsing error if config failed to load
func (m *Manager) ParseError() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.parseErr
}

// SetRescuePath updates the rescue path setting
func (m *Manager) SetRescuePath(path string) error {
	m.mu.Lock()
	m.config.Navigation.RescuePath = path
	m.mu.Unlock()
	return m.Save()
}

// SetViewMode updates the listing view mode
func (m *Manager) SetViewMode(mode string) error {
	m.mu.Lock()
	m.config.View.Mode = mode
	m.mu.Unlock()
	return m.Save()
}

// Environment overrides recognised by ApplyEnv.
const (
	EnvRescuePath = "SALPANEL_RESCUE_PATH"
	EnvLogLevel   = "SALPANEL_LOG_LEVEL"
	EnvHistoryDB  = "SALPANEL_DB"
	EnvIconWorker = "SALPANEL_ICON_WORKERS"
	EnvS3Endpoint = "SALPANEL_S3_ENDPOINT"
)

// ApplyEnv overlays values from the given .env files and the process
// environment. Process variables win over file values. Overrides are not saved.
func (m *Manager) ApplyEnv(files ...string) error {
	values := map[string]string{}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		read, err := godotenv.Read(f)
		if err != nil {
			return err
		}
		for k, v := range read {
			values[k] = v
		}
	}
	for _, k := range []string{EnvRescuePath, EnvLogLevel, EnvHistoryDB, EnvIconWorker, EnvS3Endpoint} {
		if v, ok := os.LookupEnv(k); ok {
			values[k] = v
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := values[EnvRescuePath]; ok {
		m.config.Navigation.RescuePath = v
	}
	if v, ok := values[EnvLogLevel]; ok && v != "" {
		m.config.Logging.Level = strings.ToLower(v)
	}
	if v, ok := values[EnvHistoryDB]; ok && v != "" {
		m.config.History.DBPath = v
	}
	if v, ok := values[EnvIconWorker]; ok {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			m.config.Icons.Workers = n
		}
	}
	if v, ok := values[EnvS3Endpoint]; ok && v != "" {
		m.config.S3.Endpoint = v
		m.config.S3.Enabled = true
	}
	return nil
}
