package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config carries the knobs that are deployment choices rather than
// protocol: host, pacing, and the photo-transfer concurrency cap.
type Config struct {
	BaseURL           string        `yaml:"base_url" env:"REPOSTER_BASE_URL" env-default:"https://www.vinted.fr"`
	UserAgent         string        `yaml:"user_agent" env:"REPOSTER_USER_AGENT" env-default:""`
	RequestTimeout    time.Duration `yaml:"request_timeout" env:"REPOSTER_REQUEST_TIMEOUT" env-default:"30s"`
	RequestsPerSecond float64       `yaml:"requests_per_second" env:"REPOSTER_REQUESTS_PER_SECOND" env-default:"2"`
	PhotoConcurrency  int           `yaml:"photo_concurrency" env:"REPOSTER_PHOTO_CONCURRENCY" env-default:"3"`
	RecoveryDir       string        `yaml:"recovery_dir" env:"REPOSTER_RECOVERY_DIR" env-default:"recovery"`
	CachePath         string        `yaml:"cache_path" env:"REPOSTER_CACHE_PATH" env-default:""`
}

// Load reads the optional YAML config file and applies environment
// overrides. A missing file is fine; environment-only configuration works.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := cleanenv.ReadConfig(path, &cfg); err != nil {
				return nil, fmt.Errorf("cannot read config %s: %w", path, err)
			}
			return &cfg, nil
		}
	}
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("cannot read config from environment: %w", err)
	}
	return &cfg, nil
}
