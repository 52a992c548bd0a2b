package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.yaml.in/yaml/v4"
)

const (
	DriverBolt   = "bolt"
	DriverSQLite = "sqlite"
)

type StorageConfig struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

type Config struct {
	ListenAddr     string        `yaml:"listen_addr"`
	APIBaseURL     string        `yaml:"api_base_url"`
	AuthEnabled    bool          `yaml:"auth_enabled"`
	JWTSecret      string        `yaml:"jwt_secret"`
	TokenTTL       time.Duration `yaml:"token_ttl"`
	CookieHashKey  string        `yaml:"cookie_hash_key"`
	CookieBlockKey string        `yaml:"cookie_block_key"`
	CORSOrigins    []string      `yaml:"cors_origins"`
	WeekStart      string        `yaml:"week_start"`
	Storage        StorageConfig `yaml:"storage"`
	Log            LogConfig     `yaml:"log"`
}

func Default() Config {
	return Config{
		ListenAddr:  ":8080",
		APIBaseURL:  "http://localhost:8080",
		AuthEnabled: true,
		TokenTTL:    7 * 24 * time.Hour,
		WeekStart:   "sunday",
		Storage:     StorageConfig{Driver: DriverBolt, Path: "habits.db"},
		Log:         LogConfig{Level: "info", Format: "text"},
	}
}

// Path returns the config file location, $HABITS_CONFIG or config.yaml.
func Path() string {
	if p := os.Getenv("HABITS_CONFIG"); p != "" {
		return p
	}
	return "config.yaml"
}

// Load reads a .env file if present, then the YAML config file, then applies
// environment overrides. A missing file named by HABITS_CONFIG is an error;
// a missing default config.yaml is not.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	path := Path()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && os.Getenv("HABITS_CONFIG") == "":
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.ListenAddr, "HABITS_LISTEN_ADDR")
	setString(&c.APIBaseURL, "HABITS_API_BASE")
	setString(&c.JWTSecret, "HABITS_JWT_SECRET")
	setString(&c.Storage.Driver, "HABITS_DB_DRIVER")
	setString(&c.Storage.Path, "HABITS_DB_PATH")
	setString(&c.Log.Level, "HABITS_LOG_LEVEL")
	if v := os.Getenv("HABITS_AUTH_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("HABITS_AUTH_ENABLED must be a boolean: %w", err)
		}
		c.AuthEnabled = b
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// Validate checks the settings the server needs before it starts.
func (c *Config) Validate() error {
	if c.AuthEnabled && c.JWTSecret == "" {
		return errors.New("jwt_secret is required when auth is enabled (set HABITS_JWT_SECRET)")
	}
	if c.TokenTTL <= 0 {
		return errors.New("token_ttl must be positive")
	}
	switch c.Storage.Driver {
	case DriverBolt, DriverSQLite:
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.Storage.Path == "" {
		return errors.New("storage path is required")
	}
	if _, err := c.FirstWeekday(); err != nil {
		return err
	}
	return nil
}

// FirstWeekday parses WeekStart; only sunday and monday are accepted.
func (c *Config) FirstWeekday() (time.Weekday, error) {
	switch strings.ToLower(c.WeekStart) {
	case "", "sunday":
		return time.Sunday, nil
	case "monday":
		return time.Monday, nil
	}
	return 0, fmt.Errorf("week_start must be sunday or monday, got %q", c.WeekStart)
}
