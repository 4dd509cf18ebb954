package config

import (
	"os"

	"github.com/ghodss/yaml"
	"github.com/joho/godotenv"
)

type Config struct {
	BaseDir     string `json:"base_dir"`
	LogLevel    string `json:"log_level"`
	WideSCSIBus bool   `json:"wide_scsi_bus"`
}

// Load loads configuration from the optional config file named by
// VIRTCONF_CONFIG, then lets environment variables override it.
// Automatically loads .env file if present.
func Load() (*Config, error) {
	// Try to load .env file (fail silently if not present)
	_ = godotenv.Load()

	cfg := &Config{
		BaseDir:  "/etc/virtconf",
		LogLevel: "info",
	}
	if path := os.Getenv("VIRTCONF_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}
	cfg.BaseDir = getEnv("VIRTCONF_BASE_DIR", cfg.BaseDir)
	cfg.LogLevel = getEnv("VIRTCONF_LOG_LEVEL", cfg.LogLevel)
	if v := os.Getenv("VIRTCONF_WIDE_SCSI_BUS"); v != "" {
		cfg.WideSCSIBus = v == "1" || v == "true" || v == "yes"
	}
	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
