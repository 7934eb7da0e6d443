package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env         string `yaml:"env" env:"ENV" env-default:"local"`
	StoragePath string `yaml:"storage_path" env:"STORAGE_PATH"`
	RedisAddr   string `yaml:"redis_addr" env:"REDIS_ADDR"`
	HTTPServer  `yaml:"http_server"`
	Ledger      Ledger  `yaml:"ledger"`
	Bulk        Bulk    `yaml:"bulk"`
	Archive     Archive `yaml:"archive"`
}

type HTTPServer struct {
	Address         string        `yaml:"address" env:"HTTP_ADDRESS" env-default:"localhost:8080"`
	Timeout         time.Duration `yaml:"timeout" env-default:"4s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env-default:"15s"`
}

type Ledger struct {
	CreateAttempts int           `yaml:"create_attempts" env-default:"3"`
	RetryBaseDelay time.Duration `yaml:"retry_base_delay" env-default:"1s"`
	CreateLockTTL  time.Duration `yaml:"create_lock_ttl" env-default:"10s"`
}

type Bulk struct {
	// 0 dispatches every write of a bulk operation at once
	MaxConcurrency int `yaml:"max_concurrency" env-default:"0"`
}

type Archive struct {
	Bucket    string `yaml:"bucket" env:"ARCHIVE_BUCKET"`
	Region    string `yaml:"region" env:"ARCHIVE_REGION" env-default:"us-east-1"`
	Endpoint  string `yaml:"endpoint" env:"ARCHIVE_ENDPOINT"`
	AccessKey string `yaml:"access_key" env:"ARCHIVE_ACCESS_KEY"`
	SecretKey string `yaml:"secret_key" env:"ARCHIVE_SECRET_KEY"`
	UseSSL    bool   `yaml:"use_ssl" env-default:"true"`
}

func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/local.yaml"
	}

	cfg, err := Load(configPath)
	if err != nil {
		log.Fatalf("%v", err)
	}

	return cfg
}

func Load(configPath string) (*Config, error) {
	var cfg Config

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", configPath)
	}

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if cfg.Env != "local" && cfg.StoragePath == "" {
		return nil, fmt.Errorf("storage_path is required in %q env", cfg.Env)
	}

	return &cfg, nil
}
