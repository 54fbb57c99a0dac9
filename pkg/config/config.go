// Package config loads service settings from the environment, optionally
// layered over a YAML file. Environment variables always win.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds every setting the binaries read.
type Config struct {
	Port        string `yaml:"port"`
	MetricsPort string `yaml:"metricsPort"`
	CORSOrigin  string `yaml:"corsOrigin"`

	CatalogueURL     string        `yaml:"catalogueURL"`
	CatalogueFile    string        `yaml:"catalogueFile"`
	EnginesFile      string        `yaml:"enginesFile"`
	CatalogueRefresh time.Duration `yaml:"catalogueRefresh"`

	PlateAPIURL   string        `yaml:"plateAPIURL"`
	PlateAPIKey   string        `yaml:"plateAPIKey"`
	PlateRate     float64       `yaml:"plateRate"`
	PlateCacheTTL time.Duration `yaml:"plateCacheTTL"`
	RedisURL      string        `yaml:"redisURL"`

	NATSURL string `yaml:"natsURL"`

	Neo4jURL  string `yaml:"neo4jURL"`
	Neo4jUser string `yaml:"neo4jUser"`
	Neo4jPass string `yaml:"neo4jPass"`

	LogLevel string `yaml:"logLevel"`
}

// Defaults returns the settings used when nothing is configured.
func Defaults() Config {
	return Config{
		Port:             "8080",
		MetricsPort:      "9090",
		CORSOrigin:       "*",
		CatalogueRefresh: 15 * time.Minute,
		PlateRate:        5,
		PlateCacheTTL:    24 * time.Hour,
		NATSURL:          "nats://localhost:4222",
		Neo4jURL:         "neo4j://localhost:7687",
		Neo4jUser:        "neo4j",
		Neo4jPass:        "password",
		LogLevel:         "info",
	}
}

// Load builds the configuration: defaults, then the YAML file at path if
// path is not empty, then environment variables.
func Load(path string) (Config, error) {
	cfg := Defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(os.Getenv); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	envOr := func(key, fallback string) string {
		if v := getenv(key); v != "" {
			return v
		}
		return fallback
	}

	c.Port = envOr("PORT", c.Port)
	c.MetricsPort = envOr("METRICS_PORT", c.MetricsPort)
	c.CORSOrigin = envOr("CORS_ORIGIN", c.CORSOrigin)
	c.CatalogueURL = envOr("CATALOGUE_URL", c.CatalogueURL)
	c.CatalogueFile = envOr("CATALOGUE_FILE", c.CatalogueFile)
	c.EnginesFile = envOr("ENGINES_FILE", c.EnginesFile)
	c.PlateAPIURL = envOr("PLATE_API_URL", c.PlateAPIURL)
	c.PlateAPIKey = envOr("PLATE_API_KEY", c.PlateAPIKey)
	c.RedisURL = envOr("REDIS_URL", c.RedisURL)
	c.NATSURL = envOr("NATS_URL", c.NATSURL)
	c.Neo4jURL = envOr("NEO4J_URL", c.Neo4jURL)
	c.Neo4jUser = envOr("NEO4J_USER", c.Neo4jUser)
	c.Neo4jPass = envOr("NEO4J_PASS", c.Neo4jPass)
	c.LogLevel = envOr("LOG_LEVEL", c.LogLevel)

	if v := getenv("CATALOGUE_REFRESH"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: CATALOGUE_REFRESH: %w", err)
		}
		c.CatalogueRefresh = d
	}
	if v := getenv("PLATE_CACHE_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: PLATE_CACHE_TTL: %w", err)
		}
		c.PlateCacheTTL = d
	}
	if v := getenv("PLATE_RATE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("config: PLATE_RATE: %w", err)
		}
		c.PlateRate = f
	}
	return nil
}

// Level parses LogLevel ("debug", "info", "warn", "error"), falling back to
// info.
func (c Config) Level() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return l
}
