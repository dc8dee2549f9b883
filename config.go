package main

import (
	"log"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/avolkov/filehub/internal/storage"
)

type ServerConfig struct {
	Port    string `yaml:"port"`
	BaseURL string `yaml:"base_url"`
	Debug   bool   `yaml:"debug"`
}

type StorageConfig struct {
	Disk       string           `yaml:"disk"`
	Path       string           `yaml:"path"`
	DefaultDir string           `yaml:"default_dir"`
	Staging    string           `yaml:"staging"`
	Database   string           `yaml:"database"`
	S3         storage.S3Config `yaml:"s3"`
}

type QueueConfig struct {
	Database       string `yaml:"database"`
	Workers        int    `yaml:"workers"`
	PollIntervalMS int    `yaml:"poll_interval_ms"`
	MaxAttempts    int    `yaml:"max_attempts"`
}

type UploadConfig struct {
	MaxSizeKB           int64 `yaml:"max_size_kb"`
	ProcessDelaySeconds int   `yaml:"process_delay_seconds"`
	DeleteDelaySeconds  int   `yaml:"delete_delay_seconds"`
	StagingTTLHours     int   `yaml:"staging_ttl_hours"`
}

type PreviewConfig struct {
	DurationMinutes int    `yaml:"duration_minutes"`
	SigningSecret   string `yaml:"signing_secret"`
}

type AuthConfig struct {
	Secret string `yaml:"secret"`
}

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Auth    AuthConfig    `yaml:"auth"`
	Storage StorageConfig `yaml:"storage"`
	Queue   QueueConfig   `yaml:"queue"`
	Upload  UploadConfig  `yaml:"upload"`
	Preview PreviewConfig `yaml:"preview"`
}

func LoadConfig() *Config {
	configPath := "config.yaml"
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		configPath = envPath
	}

	config := defaultConfig()

	data, err := os.ReadFile(configPath)
	if err != nil {
		log.Printf("Failed to read config file, using defaults: %v", err)
	} else if err := yaml.Unmarshal(data, config); err != nil {
		log.Printf("Failed to parse config file, using defaults: %v", err)
		config = defaultConfig()
	}

	// Secrets may be supplied via environment instead of the config file
	if secret := os.Getenv("FILEHUB_AUTH_SECRET"); secret != "" {
		config.Auth.Secret = secret
	}
	if secret := os.Getenv("FILEHUB_SIGNING_SECRET"); secret != "" {
		config.Preview.SigningSecret = secret
	}

	if config.Auth.Secret == "" {
		log.Fatal("Auth secret must be set via FILEHUB_AUTH_SECRET environment variable or config file")
	}
	if config.Preview.SigningSecret == "" {
		log.Fatal("Signing secret must be set via FILEHUB_SIGNING_SECRET environment variable or config file")
	}

	return config
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:    "8080",
			BaseURL: "http://localhost:8080",
		},
		Storage: StorageConfig{
			Disk:       "local",
			Path:       "./storage/files",
			DefaultDir: "uploads",
			Staging:    "./storage/staging",
			Database:   "./filehub.db",
		},
		Queue: QueueConfig{
			Database:       "./queue.db",
			Workers:        2,
			PollIntervalMS: 250,
			MaxAttempts:    3,
		},
		Upload: UploadConfig{
			MaxSizeKB:           4096,
			ProcessDelaySeconds: 3,
			DeleteDelaySeconds:  3,
			StagingTTLHours:     24,
		},
		Preview: PreviewConfig{
			DurationMinutes: 60,
		},
	}
}
