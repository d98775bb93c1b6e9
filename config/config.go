package config

import (
	"log/slog"
	"os"
	"strings"

	"github.com/golobby/config/v3"
	"github.com/golobby/config/v3/pkg/feeder"
)

type Config struct {
	Cartelera CarteleraConfig
	Playlist  PlaylistConfig
	Display   DisplayConfig
}

type CarteleraConfig struct {
	BackgroundJobsEnabled string `env:"BACKGROUND_JOBS_ENABLED"`
	CacheDir              string `env:"CACHE_DIR"`
	ControlPort           int    `env:"CONTROL_PORT"`
	DbPath                string `env:"DB_PATH"`
	LogLevel              string `env:"LOG_LEVEL"`
	StatusPort            int    `env:"STATUS_PORT"`
}

type PlaylistConfig struct {
	URL      string `env:"PLAYLIST_URL"`
	BaseURL  string `env:"BASE_URL"`
	ProbeURL string `env:"PROBE_URL"`
	Timezone string `env:"TIMEZONE"`
}

type DisplayConfig struct {
	Backend     string `env:"SURFACE"` // framebuffer or headless
	Framebuffer string `env:"FRAMEBUFFER_DEVICE"`
	TargetFPS   int    `env:"TARGET_FPS"`
}

// Load feeds the config from the environment, with an optional .env file
// taking lower precedence. Unset values fall back to kiosk defaults.
func Load() (Config, error) {
	cfg := Config{}

	c := config.New()
	if _, err := os.Stat(".env"); err == nil {
		c.AddFeeder(feeder.DotEnv{Path: ".env"})
	}
	c.AddFeeder(feeder.Env{})
	c.AddStruct(&cfg)

	if err := c.Feed(); err != nil {
		return cfg, err
	}

	applyDefaults(&cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Cartelera.BackgroundJobsEnabled == "" {
		cfg.Cartelera.BackgroundJobsEnabled = "true"
	}
	if cfg.Cartelera.CacheDir == "" {
		cfg.Cartelera.CacheDir = "cache"
	}
	if cfg.Cartelera.ControlPort == 0 {
		cfg.Cartelera.ControlPort = 9999
	}
	if cfg.Cartelera.DbPath == "" {
		cfg.Cartelera.DbPath = "cache/cartelera.db"
	}
	if cfg.Cartelera.StatusPort == 0 {
		cfg.Cartelera.StatusPort = 8080
	}
	if cfg.Playlist.URL == "" {
		cfg.Playlist.URL = "https://api.jaison.mx/raspi/api.php?action=listarImagenes"
	}
	if cfg.Playlist.BaseURL == "" {
		cfg.Playlist.BaseURL = "http://api.jaison.mx/"
	}
	if cfg.Playlist.ProbeURL == "" {
		cfg.Playlist.ProbeURL = "https://www.google.com"
	}
	if cfg.Playlist.Timezone == "" {
		cfg.Playlist.Timezone = "America/Mexico_City"
	}
	if cfg.Display.Backend == "" {
		cfg.Display.Backend = "framebuffer"
	}
	if cfg.Display.Framebuffer == "" {
		cfg.Display.Framebuffer = "/dev/fb0"
	}
	if cfg.Display.TargetFPS == 0 {
		cfg.Display.TargetFPS = 30
	}
}

func (c *Config) JobsEnabled() bool {
	return !strings.EqualFold(c.Cartelera.BackgroundJobsEnabled, "false")
}

func (c *Config) GetLogLevel() slog.Leveler {
	logLevel := strings.ToLower(c.Cartelera.LogLevel)
	if logLevel == "error" {
		return slog.LevelError
	}
	if logLevel == "warning" {
		return slog.LevelWarn
	}
	if logLevel == "info" {
		return slog.LevelInfo
	}
	if logLevel == "debug" {
		return slog.LevelDebug
	}
	// default to info if unknown
	slog.With(slog.String("log_level", logLevel)).Info("Received invalid log level. Defaulting to INFO.")
	return slog.LevelInfo
}
