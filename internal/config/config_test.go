package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.APIURL != "http://127.0.0.1:7433" {
		t.Fatalf("expected default API URL, got %q", cfg.APIURL)
	}
	if cfg.DBPath != "" {
		t.Fatalf("expected empty db path, got %q", cfg.DBPath)
	}
	if cfg.Upload.MaxUploadBytes != DefaultMaxUploadBytes {
		t.Fatalf("expected upload max default %d, got %d", DefaultMaxUploadBytes, cfg.Upload.MaxUploadBytes)
	}
	if cfg.Cache.CapacityBytes != DefaultCacheCapacityBytes {
		t.Fatalf("expected cache capacity default %d, got %d", DefaultCacheCapacityBytes, cfg.Cache.CapacityBytes)
	}
	if cfg.Cache.TriggerRatio != DefaultCacheTriggerRatio || cfg.Cache.TargetRatio != DefaultCacheTargetRatio {
		t.Fatalf("expected default eviction ratios, got %+v", cfg.Cache)
	}
	if cfg.Cache.DecayFactor != DefaultCacheDecayFactor {
		t.Fatalf("expected decay default %v, got %v", DefaultCacheDecayFactor, cfg.Cache.DecayFactor)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".picdepot.toml")
	if err := os.WriteFile(path, []byte(`api_url = "http://localhost:9999"
log_level = "warn"

[cache]
capacity_bytes = 4096
decay_factor = 0.5
`), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg := Default()
	if err := loadFile(path, &cfg); err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.APIURL != "http://localhost:9999" {
		t.Fatalf("expected api_url 'http://localhost:9999', got %q", cfg.APIURL)
	}
	if cfg.LogLevel != "warn" {
		t.Fatalf("expected log_level 'warn', got %q", cfg.LogLevel)
	}
	if cfg.Cache.CapacityBytes != 4096 || cfg.Cache.DecayFactor != 0.5 {
		t.Fatalf("expected cache overrides, got %+v", cfg.Cache)
	}
}

func TestLoadFileMissing(t *testing.T) {
	cfg := Default()
	if err := loadFile("/nonexistent/path/.picdepot.toml", &cfg); err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if cfg.APIURL != DefaultAPIURL {
		t.Fatal("defaults should be preserved")
	}
}

func TestIsAllowedKey(t *testing.T) {
	for _, key := range AllowedKeys() {
		if !IsAllowedKey(key) {
			t.Fatalf("expected %q allowed", key)
		}
	}
	for _, key := range []string{"", "unknown", "cache", "upload.bogus"} {
		if IsAllowedKey(key) {
			t.Fatalf("expected %q rejected", key)
		}
	}
}

func TestSetKeyAndGet(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".picdepot.toml")

	if err := SetKey(path, "cache.capacity_bytes", "8192"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := SetKey(path, "api_url", "http://localhost:7500"); err != nil {
		t.Fatalf("set second key: %v", err)
	}

	cfg := Default()
	if err := loadFile(path, &cfg); err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Cache.CapacityBytes != 8192 {
		t.Fatalf("expected capacity 8192, got %d", cfg.Cache.CapacityBytes)
	}

	value, err := cfg.Get("api_url")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if value != "http://localhost:7500" {
		t.Fatalf("expected set value back, got %q", value)
	}
}

func TestSetKey_Validation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".picdepot.toml")

	if err := SetKey(path, "bogus_key", "x"); err == nil {
		t.Fatal("expected unknown key rejection")
	}
	if err := SetKey(path, "cache.decay_factor", "1.5"); err == nil {
		t.Fatal("expected out-of-range decay factor rejection")
	}
	if err := SetKey(path, "upload.max_upload_bytes", "-1"); err == nil {
		t.Fatal("expected negative upload limit rejection")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv(configDirEnvKey, t.TempDir())
	t.Setenv("PICDEPOT_API_URL", "http://localhost:7600")
	t.Setenv("PICDEPOT_DB", "/tmp/pd-test.db")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.APIURL != "http://localhost:7600" {
		t.Fatalf("expected env api_url, got %q", cfg.APIURL)
	}
	if cfg.DBPath != "/tmp/pd-test.db" {
		t.Fatalf("expected env db path, got %q", cfg.DBPath)
	}
}
