package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config is loaded from an optional YAML file, then overridden by
// environment variables, so deployments can use either.
type Config struct {
	Port           string `yaml:"port"`
	DBPath         string `yaml:"db_path"`
	AudioDir       string `yaml:"audio_dir"`
	MaxUploadSize  int64  `yaml:"max_upload_size"`
	PeakCount      int    `yaml:"peak_count"`
	AutosaveSec    int    `yaml:"autosave_sec"`
	StreamTickMsec int    `yaml:"stream_tick_msec"`
}

func Default() *Config {
	return &Config{
		Port:           "8080",
		DBPath:         "./choreo.db",
		AudioDir:       "./audio",
		MaxUploadSize:  104857600,
		PeakCount:      1000,
		AutosaveSec:    30,
		StreamTickMsec: 33,
	}
}

// Load reads path when it exists (an empty path or missing file is fine) and
// applies env overrides on top of the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	if v := os.Getenv("PORT"); v != "" {
		cfg.Port = v
	}
	if v := os.Getenv("DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("AUDIO_DIR"); v != "" {
		cfg.AudioDir = v
	}
	if v := os.Getenv("MAX_UPLOAD_SIZE"); v != "" {
		size, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid MAX_UPLOAD_SIZE: %w", err)
		}
		cfg.MaxUploadSize = size
	}
	if v := os.Getenv("PEAK_COUNT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid PEAK_COUNT: %w", err)
		}
		cfg.PeakCount = n
	}
	if v := os.Getenv("AUTOSAVE_SEC"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid AUTOSAVE_SEC: %w", err)
		}
		cfg.AutosaveSec = n
	}

	return cfg, nil
}
