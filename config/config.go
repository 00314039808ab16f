package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Database struct {
	URL      string `yaml:"url"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	Name     string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

type Config struct {
	Addr          string        `yaml:"addr"`
	Database      Database      `yaml:"database"`
	JWTSecret     string        `yaml:"jwt_secret"`
	RedisURL      string        `yaml:"redis_url"`
	CacheTTL      time.Duration `yaml:"cache_ttl"`
	AllowedOrigin string        `yaml:"allowed_origin"`
	LogLevel      string        `yaml:"log_level"`
	LogFile       string        `yaml:"log_file"`
}

func defaults() *Config {
	return &Config{
		Addr:          ":8080",
		Database:      Database{Port: "5432", SSLMode: "require"},
		CacheTTL:      12 * time.Hour,
		AllowedOrigin: "*",
		LogLevel:      "info",
	}
}

// LoadDotEnv loads a .env file into the process environment if one exists.
func LoadDotEnv() error {
	return godotenv.Load()
}

// Load builds the configuration from defaults, then the optional YAML file at
// path, then the environment. Later sources win.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	envString("DATABASE_URL", &cfg.Database.URL)
	envString("user", &cfg.Database.User)
	envString("password", &cfg.Database.Password)
	envString("host", &cfg.Database.Host)
	envString("port", &cfg.Database.Port)
	envString("dbname", &cfg.Database.Name)
	envString("sslmode", &cfg.Database.SSLMode)

	envString("JOURNAL_ADDR", &cfg.Addr)
	envString("SUPABASE_JWT_SECRET", &cfg.JWTSecret)
	envString("REDIS_URL", &cfg.RedisURL)
	envString("JOURNAL_ALLOWED_ORIGIN", &cfg.AllowedOrigin)
	envString("JOURNAL_LOG_LEVEL", &cfg.LogLevel)
	envString("JOURNAL_LOG_FILE", &cfg.LogFile)

	if v := strings.TrimSpace(os.Getenv("JOURNAL_CACHE_TTL")); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid JOURNAL_CACHE_TTL %q: %w", v, err)
		}
		cfg.CacheTTL = ttl
	}
	return nil
}

func envString(key string, dst *string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

// DSN returns the Postgres connection string.
func (d Database) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     d.Host + ":" + d.Port,
		Path:     "/" + d.Name,
		RawQuery: "sslmode=" + d.SSLMode,
	}
	return u.String()
}

// Validate reports settings the server cannot run without.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("SUPABASE_JWT_SECRET is not set")
	}
	if c.Database.URL == "" && (c.Database.Host == "" || c.Database.Name == "") {
		return fmt.Errorf("database host and dbname are required")
	}
	return nil
}
