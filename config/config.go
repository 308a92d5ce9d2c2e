package config

import (
	"strings"
	"time"
)

// Settings is the persisted configuration of the service.
type Settings struct {
	Server    ServerSettings     `json:"server"`
	Metadata  MetadataSettings   `json:"metadata"`
	Carousel  CarouselSettings   `json:"carousel"`
	Player    PlayerSettings     `json:"player"`
	Providers []ProviderSettings `json:"providers"`
	Storage   StorageSettings    `json:"storage"`
	Sessions  SessionSettings    `json:"sessions"`
	Log       LogSettings        `json:"log"`
}

type ServerSettings struct {
	Host string `json:"host"`
	Port int    `json:"port"`
	// Origin is passed to the YouTube preview embed (origin=...).
	Origin string `json:"origin"`
	// TrustedProxies lists proxy addresses or CIDRs whose X-Forwarded-For
	// and X-Real-IP headers are believed. Empty trusts no proxy.
	TrustedProxies []string `json:"trustedProxies,omitempty"`
}

type MetadataSettings struct {
	TMDBAPIKey    string `json:"tmdbApiKey"`
	TMDBBaseURL   string `json:"tmdbBaseUrl"`
	FanartAPIKey  string `json:"fanartApiKey"`
	FanartBaseURL string `json:"fanartBaseUrl"`
	Language      string `json:"language"`
	CacheDir      string `json:"cacheDir"`
	CacheTTLHours int    `json:"cacheTtlHours"`
}

type CarouselSettings struct {
	Size                int `json:"size"`
	IntervalMS          int `json:"intervalMs"`
	PreviewLookupTimeMS int `json:"previewLookupTimeoutMs"`
}

// Interval returns the auto-advance period.
func (c CarouselSettings) Interval() time.Duration {
	return time.Duration(c.IntervalMS) * time.Millisecond
}

// LookupTimeout bounds a single preview-key lookup.
func (c CarouselSettings) LookupTimeout() time.Duration {
	return time.Duration(c.PreviewLookupTimeMS) * time.Millisecond
}

type PlayerSettings struct {
	SlowWarningMS int `json:"slowWarningMs"`
}

// SlowAfter returns how long an embed may stay loading before the slow hint.
func (p PlayerSettings) SlowAfter() time.Duration {
	return time.Duration(p.SlowWarningMS) * time.Millisecond
}

// ProviderSettings describes one embed provider. URLTemplate must contain {id}.
type ProviderSettings struct {
	Key         string `json:"key"`
	Label       string `json:"label"`
	URLTemplate string `json:"urlTemplate"`
}

type StorageSettings struct {
	DatabasePath string `json:"databasePath"`
}

type SessionSettings struct {
	IdleTTLMinutes int `json:"idleTtlMinutes"`
}

func (s SessionSettings) IdleTTL() time.Duration {
	return time.Duration(s.IdleTTLMinutes) * time.Minute
}

type LogSettings struct {
	File       string `json:"file"`
	MaxSizeMB  int    `json:"maxSizeMb"`
	MaxBackups int    `json:"maxBackups"`
	MaxAgeDays int    `json:"maxAgeDays"`
}

// DefaultProviders mirrors the embed services the web client ships with.
func DefaultProviders() []ProviderSettings {
	return []ProviderSettings{
		{Key: "videasy", Label: "Videasy", URLTemplate: "https://player.videasy.net/movie/{id}"},
		{Key: "vidsrc", Label: "VidSrc", URLTemplate: "https://vidsrc.to/embed/movie/{id}"},
		{Key: "vidlink", Label: "VidLink", URLTemplate: "https://vidlink.pro/movie/{id}"},
	}
}

// DefaultSettings returns a Settings value with every field populated.
func DefaultSettings() Settings {
	return Settings{
		Server: ServerSettings{
			Host:   "0.0.0.0",
			Port:   7777,
			Origin: "http://localhost:5173",
		},
		Metadata: MetadataSettings{
			TMDBBaseURL:   "https://api.themoviedb.org/3",
			FanartBaseURL: "https://webservice.fanart.tv/v3",
			Language:      "en-US",
			CacheDir:      "cache",
			CacheTTLHours: 6,
		},
		Carousel: CarouselSettings{
			Size:                5,
			IntervalMS:          8000,
			PreviewLookupTimeMS: 10000,
		},
		Player: PlayerSettings{
			SlowWarningMS: 10000,
		},
		Providers: DefaultProviders(),
		Storage: StorageSettings{
			DatabasePath: "data/cinespot.db",
		},
		Sessions: SessionSettings{
			IdleTTLMinutes: 30,
		},
		Log: LogSettings{
			File:       "logs/cinespot.log",
			MaxSizeMB:  20,
			MaxBackups: 3,
			MaxAgeDays: 14,
		},
	}
}

// applyDefaults fills zero values left by a partial settings file.
func (s *Settings) applyDefaults() {
	def := DefaultSettings()
	if strings.TrimSpace(s.Server.Host) == "" {
		s.Server.Host = def.Server.Host
	}
	if s.Server.Port <= 0 {
		s.Server.Port = def.Server.Port
	}
	if strings.TrimSpace(s.Server.Origin) == "" {
		s.Server.Origin = def.Server.Origin
	}
	if strings.TrimSpace(s.Metadata.TMDBBaseURL) == "" {
		s.Metadata.TMDBBaseURL = def.Metadata.TMDBBaseURL
	}
	if strings.TrimSpace(s.Metadata.FanartBaseURL) == "" {
		s.Metadata.FanartBaseURL = def.Metadata.FanartBaseURL
	}
	if strings.TrimSpace(s.Metadata.Language) == "" {
		s.Metadata.Language = def.Metadata.Language
	}
	if strings.TrimSpace(s.Metadata.CacheDir) == "" {
		s.Metadata.CacheDir = def.Metadata.CacheDir
	}
	if s.Metadata.CacheTTLHours <= 0 {
		s.Metadata.CacheTTLHours = def.Metadata.CacheTTLHours
	}
	if s.Carousel.Size <= 0 {
		s.Carousel.Size = def.Carousel.Size
	}
	if s.Carousel.IntervalMS <= 0 {
		s.Carousel.IntervalMS = def.Carousel.IntervalMS
	}
	if s.Carousel.PreviewLookupTimeMS <= 0 {
		s.Carousel.PreviewLookupTimeMS = def.Carousel.PreviewLookupTimeMS
	}
	if s.Player.SlowWarningMS <= 0 {
		s.Player.SlowWarningMS = def.Player.SlowWarningMS
	}
	if len(s.Providers) == 0 {
		s.Providers = def.Providers
	}
	if strings.TrimSpace(s.Storage.DatabasePath) == "" {
		s.Storage.DatabasePath = def.Storage.DatabasePath
	}
	if s.Sessions.IdleTTLMinutes <= 0 {
		s.Sessions.IdleTTLMinutes = def.Sessions.IdleTTLMinutes
	}
	if s.Log.MaxSizeMB <= 0 {
		s.Log.MaxSizeMB = def.Log.MaxSizeMB
	}
	if s.Log.MaxBackups <= 0 {
		s.Log.MaxBackups = def.Log.MaxBackups
	}
	if s.Log.MaxAgeDays <= 0 {
		s.Log.MaxAgeDays = def.Log.MaxAgeDays
	}
}
