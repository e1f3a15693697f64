package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the base server configuration.
type Config struct {
	Host         string
	Port         string
	SQLiteDBPath string

	// Player connection settings.
	TascamHost string
	TascamMAC  string
	TascamPort int

	// Audit log settings.
	AuditEnabled       bool
	AuditRetentionDays int

	// Power routine cron expressions (empty disables the routine).
	PowerOnCron  string
	PowerOffCron string
}

// fileConfig mirrors Config for the optional YAML overlay file. File
// values fill in anything the environment leaves unset; environment
// variables always win.
type fileConfig struct {
	Host         string `yaml:"host"`
	Port         string `yaml:"port"`
	SQLiteDBPath string `yaml:"sqlite_db_path"`

	TascamHost string `yaml:"tascam_host"`
	TascamMAC  string `yaml:"tascam_mac"`
	TascamPort int    `yaml:"tascam_port"`

	AuditEnabled       *bool  `yaml:"audit_enabled"`
	AuditRetentionDays int    `yaml:"audit_retention_days"`
	PowerOnCron        string `yaml:"power_on_cron"`
	PowerOffCron       string `yaml:"power_off_cron"`
}

// Load reads configuration from environment variables, falling back to
// the YAML file named by CONFIG_FILE and then to built-in defaults.
func Load() (Config, error) {
	file, err := loadFile(os.Getenv("CONFIG_FILE"))
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Host:         envString("HOST", file.Host, "0.0.0.0"),
		Port:         envString("PORT", file.Port, "9000"),
		SQLiteDBPath: envString("SQLITE_DB_PATH", file.SQLiteDBPath, "./data/tascam-hub.db"),

		TascamHost: envString("TASCAM_HOST", file.TascamHost, ""),
		TascamMAC:  envString("TASCAM_MAC", file.TascamMAC, ""),
		TascamPort: envInt("TASCAM_PORT", file.TascamPort, 9030),

		AuditEnabled:       envBool("AUDIT_ENABLED", file.AuditEnabled, true),
		AuditRetentionDays: envInt("AUDIT_RETENTION_DAYS", file.AuditRetentionDays, 90),

		PowerOnCron:  envString("POWER_ON_CRON", file.PowerOnCron, ""),
		PowerOffCron: envString("POWER_OFF_CRON", file.PowerOffCron, ""),
	}

	if strings.TrimSpace(cfg.TascamHost) == "" {
		return Config{}, fmt.Errorf("TASCAM_HOST is required")
	}
	if cfg.TascamPort < 1 || cfg.TascamPort > 65535 {
		return Config{}, fmt.Errorf("TASCAM_PORT out of range: %d", cfg.TascamPort)
	}

	return cfg, nil
}

func loadFile(path string) (fileConfig, error) {
	var fc fileConfig
	if path == "" {
		return fc, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fc, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fc, fmt.Errorf("parse config file: %w", err)
	}
	return fc, nil
}

func envString(key, fileVal, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	if fileVal != "" {
		return fileVal
	}
	return fallback
}

func envInt(key string, fileVal, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	if fileVal != 0 {
		return fileVal
	}
	return fallback
}

func envBool(key string, fileVal *bool, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		return strings.EqualFold(val, "true")
	}
	if fileVal != nil {
		return *fileVal
	}
	return fallback
}
