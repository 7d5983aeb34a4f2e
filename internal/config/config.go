package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Listen              string    `yaml:"listen"`
	DBDir               string    `yaml:"db_dir"`
	DBName              string    `yaml:"db_name"`
	CORSOrigins         []string  `yaml:"cors_origins"`
	MaintenanceSchedule string    `yaml:"maintenance_schedule"`
	ReportCacheEntries  int       `yaml:"report_cache_entries"`
	Log                 LogConfig `yaml:"log"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// DBPath is the full path of the default log database.
func (c *Config) DBPath() string {
	return filepath.Join(c.DBDir, c.DBName)
}

// Load reads the YAML file at path (a missing file means defaults), then
// applies .env and environment overrides.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		ReportCacheEntries: 256,
		Log:                LogConfig{MaxSizeMB: 50, MaxBackups: 3, MaxAgeDays: 28, Compress: true},
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, err
	}

	cfg.Listen = envStr("ARWIKICATS_LISTEN", cfg.Listen)
	cfg.DBDir = envStr("ARWIKICATS_DB_DIR", cfg.DBDir)
	cfg.DBName = envStr("ARWIKICATS_DB_NAME", cfg.DBName)
	cfg.Log.Level = envStr("ARWIKICATS_LOG_LEVEL", cfg.Log.Level)
	cfg.Log.File = envStr("ARWIKICATS_LOG_FILE", cfg.Log.File)

	if cfg.Listen == "" {
		cfg.Listen = ":8000"
	}
	if cfg.DBDir == "" {
		cfg.DBDir = DefaultDBDir()
	}
	if cfg.DBName == "" {
		cfg.DBName = "new_logs.db"
	}
	if len(cfg.CORSOrigins) == 0 {
		cfg.CORSOrigins = []string{"https://ar.wikipedia.org", "https://www.ar.wikipedia.org"}
	}
	if cfg.MaintenanceSchedule == "" {
		cfg.MaintenanceSchedule = "30 3 * * *"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	var errs []string
	if _, err := cron.ParseStandard(c.MaintenanceSchedule); err != nil {
		errs = append(errs, fmt.Sprintf("maintenance_schedule %q: %v", c.MaintenanceSchedule, err))
	}
	if c.ReportCacheEntries < 0 {
		errs = append(errs, fmt.Sprintf("report_cache_entries %d must be 0 (disabled) or positive", c.ReportCacheEntries))
	}
	if filepath.Ext(c.DBName) != ".db" || filepath.Base(c.DBName) != c.DBName {
		errs = append(errs, fmt.Sprintf("db_name %q must be a bare *.db file name", c.DBName))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// DefaultDBDir places databases under $HOME/www/python/dbs on the hosting
// platform and falls back to ./dbs elsewhere.
func DefaultDBDir() string {
	if home := os.Getenv("HOME"); home != "" {
		www := filepath.Join(home, "www", "python")
		if info, err := os.Stat(www); err == nil && info.IsDir() {
			return filepath.Join(www, "dbs")
		}
	}
	return "dbs"
}

func envStr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
