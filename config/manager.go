package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix is the prefix of every environment override (CINESPOT_TMDB_API_KEY, ...).
const EnvPrefix = "cinespot"

// envOverrides lists the settings that may be supplied through the environment.
// Empty values leave the file settings untouched.
type envOverrides struct {
	Port          int    `envconfig:"PORT"`
	Origin        string `envconfig:"ORIGIN"`
	TMDBAPIKey    string `envconfig:"TMDB_API_KEY"`
	TMDBBaseURL   string `envconfig:"TMDB_BASE_URL"`
	FanartAPIKey  string `envconfig:"FANART_API_KEY"`
	Language      string `envconfig:"LANGUAGE"`
	CacheDir      string `envconfig:"CACHE_DIR"`
	DatabasePath  string `envconfig:"DATABASE_PATH"`
	LogFile       string `envconfig:"LOG_FILE"`
	IntervalMS    int    `envconfig:"CAROUSEL_INTERVAL_MS"`
	SlowWarningMS int    `envconfig:"PLAYER_SLOW_WARNING_MS"`
	// Comma separated, e.g. CINESPOT_TRUSTED_PROXIES=10.0.0.0/8,127.0.0.1
	TrustedProxies []string `envconfig:"TRUSTED_PROXIES"`
}

// Manager loads and persists Settings from a JSON file.
type Manager struct {
	mu   sync.RWMutex
	path string
}

func NewManager(path string) *Manager {
	return &Manager{path: path}
}

// LoadDotEnv loads a .env file into the process environment when one exists.
func LoadDotEnv(paths ...string) {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			_ = godotenv.Load(p)
		}
	}
}

// Path returns the settings file location.
func (m *Manager) Path() string {
	return m.path
}

// Load reads the settings file (missing file means defaults) and applies
// environment overrides on top.
func (m *Manager) Load() (Settings, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	settings := DefaultSettings()
	if strings.TrimSpace(m.path) != "" {
		data, err := os.ReadFile(m.path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return Settings{}, fmt.Errorf("read settings: %w", err)
		default:
			settings = Settings{}
			if err := json.Unmarshal(data, &settings); err != nil {
				return Settings{}, fmt.Errorf("parse settings: %w", err)
			}
		}
	}
	settings.applyDefaults()

	if err := applyEnv(&settings); err != nil {
		return Settings{}, err
	}
	return settings, nil
}

// Save writes settings to disk atomically.
func (m *Manager) Save(s Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if strings.TrimSpace(m.path) == "" {
		return errors.New("settings path not configured")
	}
	if err := os.MkdirAll(filepath.Dir(m.path), 0o755); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	tmp := m.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return os.Rename(tmp, m.path)
}

func applyEnv(s *Settings) error {
	var env envOverrides
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return fmt.Errorf("read environment: %w", err)
	}
	if env.Port > 0 {
		s.Server.Port = env.Port
	}
	if env.Origin != "" {
		s.Server.Origin = env.Origin
	}
	if env.TMDBAPIKey != "" {
		s.Metadata.TMDBAPIKey = env.TMDBAPIKey
	}
	if env.TMDBBaseURL != "" {
		s.Metadata.TMDBBaseURL = env.TMDBBaseURL
	}
	if env.FanartAPIKey != "" {
		s.Metadata.FanartAPIKey = env.FanartAPIKey
	}
	if env.Language != "" {
		s.Metadata.Language = env.Language
	}
	if env.CacheDir != "" {
		s.Metadata.CacheDir = env.CacheDir
	}
	if env.DatabasePath != "" {
		s.Storage.DatabasePath = env.DatabasePath
	}
	if env.LogFile != "" {
		s.Log.File = env.LogFile
	}
	if env.IntervalMS > 0 {
		s.Carousel.IntervalMS = env.IntervalMS
	}
	if env.SlowWarningMS > 0 {
		s.Player.SlowWarningMS = env.SlowWarningMS
	}
	if len(env.TrustedProxies) > 0 {
		s.Server.TrustedProxies = env.TrustedProxies
	}
	return nil
}
