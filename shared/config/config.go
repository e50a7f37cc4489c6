package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	YouTube    YouTubeConfig    `yaml:"youtube"`
	AI         AIConfig         `yaml:"ai"`
	Redis      RedisConfig      `yaml:"redis"`
	Cache      CacheConfig      `yaml:"cache"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Schedule   string           `yaml:"schedule"`
}

type YouTubeConfig struct {
	// APIKeys is the rotation pool. YOUTUBE_API_KEYS accepts a
	// comma-separated list.
	APIKeys []string `yaml:"api_keys"`
	// Endpoint overrides the API base URL. Leave empty for production.
	Endpoint             string `yaml:"endpoint"`
	SearchTimeoutSeconds int    `yaml:"search_timeout_seconds"`
	VideoTimeoutSeconds  int    `yaml:"video_timeout_seconds"`
}

type AIConfig struct {
	GeminiAPIKey        string  `yaml:"gemini_api_key" env:"GEMINI_API_KEY"`
	EmbeddingModel      string  `yaml:"embedding_model"`
	EmbeddingDimensions int     `yaml:"embedding_dimensions"`
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db"`
}

type CacheConfig struct {
	Prefix                string `yaml:"prefix"`
	DefaultTTLSeconds     int    `yaml:"default_ttl_seconds"`
	EducationalTTLSeconds int    `yaml:"educational_ttl_seconds"`
}

type MonitoringConfig struct {
	HealthPort int `yaml:"health_port"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	configFile := os.Getenv("CONFIG_FILE")
	if configFile == "" {
		configFile = "config.yaml"
	}

	data, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configFile, err)
	}

	if len(cfg.YouTube.APIKeys) == 0 {
		if raw := os.Getenv("YOUTUBE_API_KEYS"); raw != "" {
			for _, k := range strings.Split(raw, ",") {
				if k = strings.TrimSpace(k); k != "" {
					cfg.YouTube.APIKeys = append(cfg.YouTube.APIKeys, k)
				}
			}
		}
	}
	if cfg.AI.GeminiAPIKey == "" {
		cfg.AI.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = os.Getenv("REDIS_ADDR")
	}
	if cfg.Redis.Password == "" {
		cfg.Redis.Password = os.Getenv("REDIS_PASSWORD")
	}

	if cfg.YouTube.SearchTimeoutSeconds == 0 {
		cfg.YouTube.SearchTimeoutSeconds = 30
	}
	if cfg.YouTube.VideoTimeoutSeconds == 0 {
		cfg.YouTube.VideoTimeoutSeconds = 15
	}
	if cfg.AI.EmbeddingModel == "" {
		cfg.AI.EmbeddingModel = "gemini-embedding-001"
	}
	if cfg.AI.EmbeddingDimensions == 0 {
		cfg.AI.EmbeddingDimensions = 768
	}
	if cfg.AI.SimilarityThreshold == 0 {
		cfg.AI.SimilarityThreshold = 0.8
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = "localhost:6379"
	}
	if cfg.Cache.Prefix == "" {
		cfg.Cache.Prefix = "youtube_search"
	}
	if cfg.Cache.DefaultTTLSeconds == 0 {
		cfg.Cache.DefaultTTLSeconds = 3600 // 1 hour
	}
	if cfg.Cache.EducationalTTLSeconds == 0 {
		cfg.Cache.EducationalTTLSeconds = 7200 // 2 hours
	}
	if cfg.Monitoring.HealthPort == 0 {
		cfg.Monitoring.HealthPort = 8080
	}
	if cfg.Schedule == "" {
		cfg.Schedule = "0 0 * * * *" // Hourly maintenance (seconds field enabled)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if len(c.YouTube.APIKeys) == 0 {
		return fmt.Errorf("at least one YouTube API key is required (set YOUTUBE_API_KEYS or youtube.api_keys)")
	}
	if c.AI.GeminiAPIKey == "" {
		return fmt.Errorf("Gemini API key is required (set GEMINI_API_KEY or ai.gemini_api_key)")
	}
	if c.AI.SimilarityThreshold <= 0 || c.AI.SimilarityThreshold > 1 {
		return fmt.Errorf("similarity threshold must be in (0, 1], got %v", c.AI.SimilarityThreshold)
	}
	return nil
}
