package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Auth struct {
		JWTSecret string `yaml:"jwt_secret"`
		// Static admin allow-list; identities matching either list are
		// promoted to admin on claim or on resolve.
		AdminEmails  []string `yaml:"admin_emails"`
		AdminHandles []string `yaml:"admin_handles"`
	} `yaml:"auth"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Quiz struct {
		TTL string `yaml:"ttl"`
	} `yaml:"quiz"`
	Leaderboard struct {
		// Poll interval for live streams when the result store has no
		// native change feed.
		PollInterval string `yaml:"poll_interval"`
	} `yaml:"leaderboard"`
}

// Load reads YAML config from path. Environment variables override the
// secrets so they can be kept out of the file.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		cfg.Auth.JWTSecret = secret
	}
	if url := os.Getenv("DATABASE_URL"); url != "" {
		cfg.Postgres.URL = url
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Redis.Addr = addr
	}
	return cfg, nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
