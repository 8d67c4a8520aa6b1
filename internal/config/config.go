package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	DefaultAPIURL      = "http://127.0.0.1:7433"
	DefaultDBFileName  = ".picdepot.db"
	DefaultDataDirName = ".picdepot-data"

	DefaultMaxUploadBytes     int64 = 32 * 1024 * 1024
	DefaultMultipartMaxMemory int64 = 8 * 1024 * 1024

	DefaultCacheCapacityBytes int64 = 1024 * 1024 * 1024
	DefaultCacheTriggerRatio        = 0.8
	DefaultCacheTargetRatio         = 0.6
	DefaultCacheDecayFactor         = 0.9
	DefaultCacheInitialHeat         = 1.0
	DefaultCacheHitBoost            = 1.0

	DefaultLogLevel = "debug"

	configFileName  = ".picdepot.toml"
	configDirEnvKey = "PICDEPOT_CONFIG_DIR"
)

// UploadConfig defines runtime configuration for uploads.
type UploadConfig struct {
	MaxUploadBytes     int64 `toml:"max_upload_bytes"`
	MultipartMaxMemory int64 `toml:"multipart_max_memory"`
}

// CacheConfig tunes the derived-artifact cache and its eviction engine.
type CacheConfig struct {
	CapacityBytes int64   `toml:"capacity_bytes"`
	TriggerRatio  float64 `toml:"trigger_ratio"`
	TargetRatio   float64 `toml:"target_ratio"`
	DecayFactor   float64 `toml:"decay_factor"`
	InitialHeat   float64 `toml:"initial_heat"`
	HitBoost      float64 `toml:"hit_boost"`
}

// Config defines runtime configuration for picdepot.
type Config struct {
	APIURL         string       `toml:"api_url"`
	DBPath         string       `toml:"db_path"`
	DataDir        string       `toml:"data_dir"`
	LogLevel       string       `toml:"log_level"`
	AdminTokenHash string       `toml:"admin_token_hash"`
	Upload         UploadConfig `toml:"upload"`
	Cache          CacheConfig  `toml:"cache"`
}

// Default returns default configuration values.
func Default() Config {
	return Config{
		APIURL: DefaultAPIURL,
		Upload: UploadConfig{
			MaxUploadBytes:     DefaultMaxUploadBytes,
			MultipartMaxMemory: DefaultMultipartMaxMemory,
		},
		Cache: CacheConfig{
			CapacityBytes: DefaultCacheCapacityBytes,
			TriggerRatio:  DefaultCacheTriggerRatio,
			TargetRatio:   DefaultCacheTargetRatio,
			DecayFactor:   DefaultCacheDecayFactor,
			InitialHeat:   DefaultCacheInitialHeat,
			HitBoost:      DefaultCacheHitBoost,
		},
	}
}

func loadFile(path string, cfg *Config) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if info.IsDir() {
		return nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return nil
}

func overrideConfigPath() (string, bool) {
	dir := strings.TrimSpace(os.Getenv(configDirEnvKey))
	if dir == "" {
		return "", false
	}
	return filepath.Join(dir, configFileName), true
}

var allowedKeys = []string{
	"api_url",
	"db_path",
	"data_dir",
	"log_level",
	"admin_token_hash",
	"upload.max_upload_bytes",
	"upload.multipart_max_memory",
	"cache.capacity_bytes",
	"cache.trigger_ratio",
	"cache.target_ratio",
	"cache.decay_factor",
	"cache.initial_heat",
	"cache.hit_boost",
}

// AllowedKeys returns the set of valid config keys.
func AllowedKeys() []string {
	return allowedKeys
}

// IsAllowedKey checks if a key is a valid config key.
func IsAllowedKey(key string) bool {
	for _, k := range allowedKeys {
		if k == key {
			return true
		}
	}
	return false
}

// Get returns the value of a config key.
func (c *Config) Get(key string) (string, error) {
	switch key {
	case "api_url":
		return c.APIURL, nil
	case "db_path":
		return c.DBPath, nil
	case "data_dir":
		return c.DataDir, nil
	case "log_level":
		return c.LogLevel, nil
	case "admin_token_hash":
		return c.AdminTokenHash, nil
	case "upload.max_upload_bytes":
		return strconv.FormatInt(c.Upload.MaxUploadBytes, 10), nil
	case "upload.multipart_max_memory":
		return strconv.FormatInt(c.Upload.MultipartMaxMemory, 10), nil
	case "cache.capacity_bytes":
		return strconv.FormatInt(c.Cache.CapacityBytes, 10), nil
	case "cache.trigger_ratio":
		return strconv.FormatFloat(c.Cache.TriggerRatio, 'f', -1, 64), nil
	case "cache.target_ratio":
		return strconv.FormatFloat(c.Cache.TargetRatio, 'f', -1, 64), nil
	case "cache.decay_factor":
		return strconv.FormatFloat(c.Cache.DecayFactor, 'f', -1, 64), nil
	case "cache.initial_heat":
		return strconv.FormatFloat(c.Cache.InitialHeat, 'f', -1, 64), nil
	case "cache.hit_boost":
		return strconv.FormatFloat(c.Cache.HitBoost, 'f', -1, 64), nil
	default:
		return "", fmt.Errorf("unknown key: %s", key)
	}
}

// GlobalPath returns the path to the global config file.
func GlobalPath() (string, error) {
	if path, ok := overrideConfigPath(); ok {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, configFileName), nil
}

// ProjectPath returns the path to the config file in the working directory.
func ProjectPath() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, configFileName), nil
}

// SetKey reads the TOML file at path, sets key=value, and writes it back.
func SetKey(path, key, value string) error {
	if !IsAllowedKey(key) {
		return fmt.Errorf("unknown key: %s", key)
	}

	data := make(map[string]any)
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &data); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	}

	parsedValue, err := parseSetValue(key, value)
	if err != nil {
		return err
	}
	if err := setNestedKey(data, strings.Split(key, "."), parsedValue); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(data)
}

// Load reads config from the global file and applies env overrides.
func Load() (*Config, error) {
	cfg := Default()

	if path, err := GlobalPath(); err == nil {
		if err := loadFile(path, &cfg); err != nil {
			return nil, err
		}
	}
	// Project config in the working directory overrides the global file.
	if path, err := ProjectPath(); err == nil {
		if err := loadFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	if cfg.DBPath == "" {
		if cwd, err := os.Getwd(); err == nil {
			cfg.DBPath = filepath.Join(cwd, DefaultDBFileName)
		}
	}
	if cfg.DataDir == "" {
		if cwd, err := os.Getwd(); err == nil {
			cfg.DataDir = filepath.Join(cwd, DefaultDataDirName)
		}
	}

	if apiURL := os.Getenv("PICDEPOT_API_URL"); apiURL != "" {
		cfg.APIURL = apiURL
	}
	if dbPath := os.Getenv("PICDEPOT_DB"); dbPath != "" {
		cfg.DBPath = dbPath
	}
	if dataDir := os.Getenv("PICDEPOT_DATA_DIR"); dataDir != "" {
		cfg.DataDir = dataDir
	}
	if hash := os.Getenv("PICDEPOT_ADMIN_TOKEN_HASH"); hash != "" {
		cfg.AdminTokenHash = hash
	}

	cfg.normalizeDefaults()

	return &cfg, nil
}

func parseSetValue(key, value string) (any, error) {
	value = strings.TrimSpace(value)
	switch key {
	case "upload.max_upload_bytes", "upload.multipart_max_memory", "cache.capacity_bytes":
		parsed, err := strconv.ParseInt(value, 10, 64)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("%s must be a positive integer", key)
		}
		return parsed, nil
	case "cache.trigger_ratio", "cache.target_ratio", "cache.decay_factor":
		parsed, err := strconv.ParseFloat(value, 64)
		if err != nil || parsed <= 0 || parsed > 1 {
			return nil, fmt.Errorf("%s must be in (0, 1]", key)
		}
		return parsed, nil
	case "cache.initial_heat", "cache.hit_boost":
		parsed, err := strconv.ParseFloat(value, 64)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("%s must be a positive number", key)
		}
		return parsed, nil
	default:
		return value, nil
	}
}

func setNestedKey(data map[string]any, parts []string, value any) error {
	if len(parts) == 0 {
		return fmt.Errorf("invalid config key")
	}
	if len(parts) == 1 {
		data[parts[0]] = value
		return nil
	}
	childRaw, ok := data[parts[0]]
	if !ok {
		child := map[string]any{}
		data[parts[0]] = child
		return setNestedKey(child, parts[1:], value)
	}
	child, ok := childRaw.(map[string]any)
	if !ok {
		return fmt.Errorf("cannot set nested key %q", strings.Join(parts, "."))
	}
	return setNestedKey(child, parts[1:], value)
}

func (c *Config) normalizeDefaults() {
	if c.Upload.MaxUploadBytes <= 0 {
		c.Upload.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if c.Upload.MultipartMaxMemory <= 0 {
		c.Upload.MultipartMaxMemory = DefaultMultipartMaxMemory
	}
	if c.Cache.CapacityBytes <= 0 {
		c.Cache.CapacityBytes = DefaultCacheCapacityBytes
	}
	if c.Cache.TriggerRatio <= 0 || c.Cache.TriggerRatio > 1 {
		c.Cache.TriggerRatio = DefaultCacheTriggerRatio
	}
	if c.Cache.TargetRatio <= 0 || c.Cache.TargetRatio > 1 {
		c.Cache.TargetRatio = DefaultCacheTargetRatio
	}
	if c.Cache.DecayFactor <= 0 || c.Cache.DecayFactor > 1 {
		c.Cache.DecayFactor = DefaultCacheDecayFactor
	}
	if c.Cache.InitialHeat <= 0 {
		c.Cache.InitialHeat = DefaultCacheInitialHeat
	}
	if c.Cache.HitBoost <= 0 {
		c.Cache.HitBoost = DefaultCacheHitBoost
	}
}
