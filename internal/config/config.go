package config

import (
	"errors"
	"os"
	"time"
)

var (
	ErrMissingDatabaseURL   = errors.New("DATABASE_URL is required")
	ErrMissingYouTubeAPIKey = errors.New("YOUTUBE_API_KEY is required")
)

// Config holds application configuration: database and cache connections,
// API keys, and sync tuning.
type Config struct {
	DatabaseURL   string        `yaml:"database_url" env:"DATABASE_URL"`
	RedisURL      string        `yaml:"redis_url" env:"REDIS_URL"`
	ServerPort    string        `yaml:"server_port" env:"SERVER_PORT"`
	YouTubeAPIKey string        `yaml:"youtube_api_key" env:"YOUTUBE_API_KEY"`
	GroqAPIKey    string        `yaml:"groq_api_key" env:"GROQ_API_KEY"`
	SyncInterval  time.Duration `yaml:"sync_interval" env:"SYNC_INTERVAL"`
	Timeout       time.Duration `yaml:"timeout" env:"HTTP_TIMEOUT"`
}

// Load builds config from environment variables.
// If DATABASE_URL is not set, Load tries to load .env.local and .env from
// the current directory. DATABASE_URL and YOUTUBE_API_KEY are required;
// REDIS_URL and GROQ_API_KEY are optional and disable the cache mirror and
// summaries respectively when empty.
func Load() (*Config, error) {
	if os.Getenv("DATABASE_URL") == "" {
		loadEnvFiles()
	}
	c := &Config{
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		RedisURL:      os.Getenv("REDIS_URL"),
		ServerPort:    os.Getenv("SERVER_PORT"),
		YouTubeAPIKey: os.Getenv("YOUTUBE_API_KEY"),
		GroqAPIKey:    os.Getenv("GROQ_API_KEY"),
		SyncInterval:  time.Hour,
		Timeout:       30 * time.Second,
	}
	if c.ServerPort == "" {
		c.ServerPort = "8080"
	}
	if s := os.Getenv("SYNC_INTERVAL"); s != "" {
		if d, err := time.ParseDuration(s); err == nil {
			c.SyncInterval = d
		}
	}
	if s := os.Getenv("HTTP_TIMEOUT"); s != "" {
		if d, err := time.ParseDuration(s); err == nil {
			c.Timeout = d
		}
	}
	if c.DatabaseURL == "" {
		return nil, ErrMissingDatabaseURL
	}
	if c.YouTubeAPIKey == "" {
		return nil, ErrMissingYouTubeAPIKey
	}
	return c, nil
}
