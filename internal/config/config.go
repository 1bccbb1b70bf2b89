// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	env "github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type BotConfig struct {
	Token       string `yaml:"token"`
	Mode        string `yaml:"mode"`         // polling | webhook (future)
	Workers     int    `yaml:"workers"`      // update workers
	PollTimeout int    `yaml:"poll_timeout"` // seconds
	Debug       bool   `yaml:"debug"`
	Language    string `yaml:"language"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type AdminConfig struct {
	Port int `yaml:"port"` // 0 disables the admin server
}

type RedisConfig struct {
	Addr     string `yaml:"addr"` // empty disables rate limiting and the reaper lock
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type RemovalConfig struct {
	Provider        string        `yaml:"provider"` // rembg | removebg | noop; empty picks the first configured
	RembgURL        string        `yaml:"rembg_url"`
	RembgModel      string        `yaml:"rembg_model"`
	RemoveBGKey     string        `yaml:"removebg_api_key"`
	RemoveBGURL     string        `yaml:"removebg_url"`
	Timeout         time.Duration `yaml:"timeout"`          // 0 = no per-call timeout
	ConcurrentLimit int           `yaml:"concurrent_limit"` // 0 = unlimited
	MaxDimension    int           `yaml:"max_dimension"`
}

type StorageConfig struct {
	Dir string `yaml:"dir"`
}

type WatermarkConfig struct {
	Text      string   `yaml:"text"`
	FontPaths []string `yaml:"font_paths"`
}

type ReaperConfig struct {
	Schedule string        `yaml:"schedule"` // cron spec, empty disables
	TTL      time.Duration `yaml:"ttl"`
}

// RateLimitConfig is per user and per minute. An explicit 0 disables the
// limit; an absent key keeps the default.
type RateLimitConfig struct {
	PhotosPerMinute    int `yaml:"photos_per_minute"`
	CallbacksPerMinute int `yaml:"callbacks_per_minute"`
}

const (
	DefaultPhotosPerMinute    = 10
	DefaultCallbacksPerMinute = 30
)

type Config struct {
	Bot       BotConfig       `yaml:"bot"`
	Log       LogConfig       `yaml:"log"`
	Admin     AdminConfig     `yaml:"admin"`
	Redis     RedisConfig     `yaml:"redis"`
	Removal   RemovalConfig   `yaml:"removal"`
	Storage   StorageConfig   `yaml:"storage"`
	Watermark WatermarkConfig `yaml:"watermark"`
	Reaper    ReaperConfig    `yaml:"reaper"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`

	Runtime RuntimeConfig `yaml:"-"`
}

// envOverrides lists the settings that may come from the process environment.
// Secrets belong here rather than in the YAML file.
type envOverrides struct {
	BotToken    string `env:"BOT_TOKEN"`
	RembgURL    string `env:"REMBG_URL"`
	RemoveBGKey string `env:"REMOVEBG_API_KEY"`
	RedisAddr   string `env:"REDIS_ADDR"`
	RedisPass   string `env:"REDIS_PASSWORD"`
	StorageDir  string `env:"STORAGE_DIR"`
	LogLevel    string `env:"LOG_LEVEL"`
}

const DefaultWatermarkText = "Edit By Kishan Soni"

// LoadConfig reads the YAML file at path (a missing file is allowed when the
// environment supplies everything), applies .env and environment overrides,
// fills defaults and validates.
func LoadConfig(path string, dev bool) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	// seeded before decoding so keys missing from the file keep their default
	cfg := Config{RateLimit: RateLimitConfig{
		PhotosPerMinute:    DefaultPhotosPerMinute,
		CallbacksPerMinute: DefaultCallbacksPerMinute,
	}}
	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	case errors.Is(err, fs.ErrNotExist):
		// environment-only deployment
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	cfg.Runtime.Dev = dev
	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) error {
	var ov envOverrides
	if _, err := env.UnmarshalFromEnviron(&ov); err != nil {
		return fmt.Errorf("read environment: %w", err)
	}
	set := func(dst *string, v string) {
		if strings.TrimSpace(v) != "" {
			*dst = v
		}
	}
	set(&cfg.Bot.Token, ov.BotToken)
	set(&cfg.Removal.RembgURL, ov.RembgURL)
	set(&cfg.Removal.RemoveBGKey, ov.RemoveBGKey)
	set(&cfg.Redis.Addr, ov.RedisAddr)
	set(&cfg.Redis.Password, ov.RedisPass)
	set(&cfg.Storage.Dir, ov.StorageDir)
	set(&cfg.Log.Level, ov.LogLevel)
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.Bot.Workers <= 0 {
		cfg.Bot.Workers = 8
	}
	if cfg.Bot.PollTimeout <= 0 {
		cfg.Bot.PollTimeout = 60
	}
	if cfg.Bot.Mode == "" {
		cfg.Bot.Mode = "polling"
	}
	if cfg.Bot.Language == "" {
		cfg.Bot.Language = "en"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Removal.MaxDimension <= 0 {
		cfg.Removal.MaxDimension = 4096
	}
	if cfg.Removal.RemoveBGURL == "" {
		cfg.Removal.RemoveBGURL = "https://api.remove.bg/v1.0/removebg"
	}
	if cfg.Removal.Provider == "" {
		switch {
		case cfg.Removal.RembgURL != "":
			cfg.Removal.Provider = "rembg"
		case cfg.Removal.RemoveBGKey != "":
			cfg.Removal.Provider = "removebg"
		case cfg.Runtime.Dev:
			cfg.Removal.Provider = "noop"
		}
	}
	if cfg.Storage.Dir == "" {
		cfg.Storage.Dir = "temp"
	}
	if cfg.Watermark.Text == "" {
		cfg.Watermark.Text = DefaultWatermarkText
	}
	if len(cfg.Watermark.FontPaths) == 0 {
		cfg.Watermark.FontPaths = []string{
			"arial.ttf",
			"/usr/share/fonts/truetype/msttcorefonts/Arial.ttf",
			"DejaVuSans.ttf",
			"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
		}
	}
	if cfg.Reaper.TTL <= 0 {
		cfg.Reaper.TTL = 24 * time.Hour
	}
}

// Validate performs the minimal checks needed before wiring starts.
func (c *Config) Validate() error {
	if c.Bot.Token == "" {
		return errors.New("bot.token is required (set BOT_TOKEN)")
	}
	switch c.Removal.Provider {
	case "rembg":
		if c.Removal.RembgURL == "" {
			return errors.New("removal.rembg_url is required for provider rembg")
		}
	case "removebg":
		if c.Removal.RemoveBGKey == "" {
			return errors.New("removal.removebg_api_key is required for provider removebg")
		}
	case "noop":
		if !c.Runtime.Dev {
			return errors.New("removal provider noop is only allowed with -dev")
		}
	case "":
		return errors.New("no removal provider configured: set removal.rembg_url or removal.removebg_api_key")
	default:
		return fmt.Errorf("unknown removal provider %q", c.Removal.Provider)
	}
	return nil
}
