package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Listen != ":8000" {
		t.Errorf("Listen = %q, want :8000", cfg.Listen)
	}
	if cfg.DBDir != "dbs" {
		t.Errorf("DBDir = %q, want dbs", cfg.DBDir)
	}
	if cfg.DBPath() != filepath.Join("dbs", "new_logs.db") {
		t.Errorf("DBPath = %q", cfg.DBPath())
	}
	if len(cfg.CORSOrigins) != 2 {
		t.Errorf("CORSOrigins = %v", cfg.CORSOrigins)
	}
	if cfg.ReportCacheEntries != 256 {
		t.Errorf("ReportCacheEntries = %d, want 256", cfg.ReportCacheEntries)
	}
	if cfg.Log.Level != "info" || cfg.Log.MaxSizeMB != 50 {
		t.Errorf("unexpected log defaults: %+v", cfg.Log)
	}
}

func TestLoad_YAMLAndEnvOverrides(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "config.yaml")
	yml := `
listen: ":9000"
db_dir: "/srv/dbs"
db_name: "logs.db"
report_cache_entries: 10
log:
  level: warn
`
	if err := os.WriteFile(path, []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ARWIKICATS_LISTEN", ":7000")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Listen != ":7000" {
		t.Errorf("Listen = %q, want env override :7000", cfg.Listen)
	}
	if cfg.DBPath() != filepath.Join("/srv/dbs", "logs.db") {
		t.Errorf("DBPath = %q", cfg.DBPath())
	}
	if cfg.ReportCacheEntries != 10 {
		t.Errorf("ReportCacheEntries = %d", cfg.ReportCacheEntries)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("Log.Level = %q", cfg.Log.Level)
	}
}

func TestLoad_ZeroReportCacheDisablesIt(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("report_cache_entries: 0\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ReportCacheEntries != 0 {
		t.Errorf("ReportCacheEntries = %d, want 0 kept", cfg.ReportCacheEntries)
	}
}

func TestDefaultDBDir_UsesHostingLayout(t *testing.T) {
	home := t.TempDir()
	if err := os.MkdirAll(filepath.Join(home, "www", "python"), 0o755); err != nil {
		t.Fatal(err)
	}
	t.Setenv("HOME", home)

	want := filepath.Join(home, "www", "python", "dbs")
	if got := DefaultDBDir(); got != want {
		t.Errorf("DefaultDBDir = %q, want %q", got, want)
	}
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	tests := []struct {
		name string
		yml  string
		want string
	}{
		{"bad schedule", `maintenance_schedule: "every day"`, "maintenance_schedule"},
		{"db name with dir", `db_name: "../x.db"`, "db_name"},
		{"db name without ext", `db_name: "logs"`, "db_name"},
		{"negative report cache", `report_cache_entries: -1`, "report_cache_entries"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tt.yml), 0o644); err != nil {
				t.Fatal(err)
			}
			_, err := Load(path)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("Load error = %v, want mention of %q", err, tt.want)
			}
		})
	}
}
