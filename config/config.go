// Package config loads gateway settings from a YAML file with environment
// variable overrides, mirroring the env-var fallback pattern the teacher
// repo used directly against os.Getenv.
package config

import (
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds the settings a gateway process needs at startup.
type Config struct {
	ListenAddr    string `yaml:"listen_addr"`
	DefaultTicker string `yaml:"default_ticker"`
	QueueCapacity int    `yaml:"queue_capacity"`
	SnapshotDepth int    `yaml:"snapshot_depth"`
	WSReadBuffer  int    `yaml:"ws_read_buffer"`
	WSWriteBuffer int    `yaml:"ws_write_buffer"`
}

// Default returns the settings the gateway falls back to when neither a
// config file nor environment overrides are present.
func Default() Config {
	return Config{
		ListenAddr:    ":9090",
		DefaultTicker: "SIM",
		QueueCapacity: 1024,
		SnapshotDepth: 10,
		WSReadBuffer:  1024,
		WSWriteBuffer: 1024,
	}
}

// Load reads path (if non-empty and present) into a Config seeded with
// Default, then applies environment variable overrides on top, matching
// the teacher's own getEnv/parseIntEnv fallback order (env wins over file,
// file wins over built-in default).
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return Config{}, err
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, err
		}
	}

	cfg.ListenAddr = getEnv("LISTEN_ADDR", cfg.ListenAddr)
	cfg.DefaultTicker = getEnv("DEFAULT_TICKER", cfg.DefaultTicker)
	cfg.QueueCapacity = getEnvInt("QUEUE_CAPACITY", cfg.QueueCapacity)
	cfg.SnapshotDepth = getEnvInt("SNAPSHOT_DEPTH", cfg.SnapshotDepth)

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}
