package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type fileConfig struct {
	DatabaseURL   string `yaml:"database_url"`
	RedisURL      string `yaml:"redis_url"`
	ServerPort    string `yaml:"server_port"`
	YouTubeAPIKey string `yaml:"youtube_api_key"`
	GroqAPIKey    string `yaml:"groq_api_key"`
	SyncInterval  string `yaml:"sync_interval"`
	Timeout       string `yaml:"timeout"`
}

// LoadFromFile loads config from a YAML file. database_url and
// youtube_api_key are required.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f fileConfig
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	if f.DatabaseURL == "" {
		return nil, ErrMissingDatabaseURL
	}
	if f.YouTubeAPIKey == "" {
		return nil, ErrMissingYouTubeAPIKey
	}
	c := &Config{
		DatabaseURL:   f.DatabaseURL,
		RedisURL:      f.RedisURL,
		ServerPort:    f.ServerPort,
		YouTubeAPIKey: f.YouTubeAPIKey,
		GroqAPIKey:    f.GroqAPIKey,
		SyncInterval:  time.Hour,
		Timeout:       30 * time.Second,
	}
	if c.ServerPort == "" {
		c.ServerPort = "8080"
	}
	if f.SyncInterval != "" {
		if d, err := time.ParseDuration(f.SyncInterval); err == nil {
			c.SyncInterval = d
		}
	}
	if f.Timeout != "" {
		if d, err := time.ParseDuration(f.Timeout); err == nil {
			c.Timeout = d
		}
	}
	return c, nil
}
