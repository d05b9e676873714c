package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"cpenv/pkg/utils/logger"
)

const (
	DefaultCommandTimeout = 5 * time.Minute
	DefaultBuildTimeout   = 10 * time.Minute
	DefaultMaxWorkers     = 4
)

// TrackingConfig configures the container/image tracking store.
type TrackingConfig struct {
	Enabled bool   `yaml:"enabled"`
	DSN     string `yaml:"dsn"`
}

// StorageConfig configures the test-data object storage.
type StorageConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
	UseSSL    bool   `yaml:"useSSL"`
	Bucket    string `yaml:"bucket"`
}

// RedisConfig configures the download-lock redis instance.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// JudgeConfig configures the judge HTTP client.
type JudgeConfig struct {
	BaseURL        string        `yaml:"baseURL"`
	Timeout        time.Duration `yaml:"timeout"`
	TokenStatePath string        `yaml:"tokenStatePath"`
}

// Config holds the tool configuration.
type Config struct {
	WorkspaceRoot  string        `yaml:"workspaceRoot"`
	EnvConfigPaths []string      `yaml:"envConfigPaths"`
	StateFilePath  string        `yaml:"stateFilePath"`
	DockerfileDir  string        `yaml:"dockerfileDir"`
	CommandTimeout time.Duration `yaml:"commandTimeout"`
	BuildTimeout   time.Duration `yaml:"buildTimeout"`
	MaxWorkers     int           `yaml:"maxWorkers"`

	Logging  logger.Config  `yaml:"logging"`
	Tracking TrackingConfig `yaml:"tracking"`
	Storage  StorageConfig  `yaml:"storage"`
	Redis    RedisConfig    `yaml:"redis"`
	Judge    JudgeConfig    `yaml:"judge"`
}

// Load reads the tool configuration from a YAML file and applies defaults.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config file failed: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config file failed: %w", err)
	}
	applyDefaults(&cfg)
	return cfg, nil
}

// Default returns a configuration with every default applied, used when no
// config file exists.
func Default() Config {
	cfg := Config{}
	applyDefaults(&cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	home, _ := os.UserHomeDir()
	if cfg.WorkspaceRoot == "" {
		cfg.WorkspaceRoot = filepath.Join(home, "contest_env", "workspace")
	}
	if len(cfg.EnvConfigPaths) == 0 {
		cfg.EnvConfigPaths = []string{
			filepath.Join(home, ".config", "cpenv", "env.json"),
			"env.json",
		}
	}
	if cfg.StateFilePath == "" {
		cfg.StateFilePath = filepath.Join(home, ".config", "cpenv", "docker_state.json")
	}
	if cfg.DockerfileDir == "" {
		cfg.DockerfileDir = filepath.Join(home, ".config", "cpenv", "dockerfiles")
	}
	if cfg.CommandTimeout == 0 {
		cfg.CommandTimeout = DefaultCommandTimeout
	}
	if cfg.BuildTimeout == 0 {
		cfg.BuildTimeout = DefaultBuildTimeout
	}
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = DefaultMaxWorkers
	}
	if cfg.Judge.Timeout == 0 {
		cfg.Judge.Timeout = 10 * time.Second
	}
	if cfg.Judge.TokenStatePath == "" {
		cfg.Judge.TokenStatePath = filepath.Join(home, ".config", "cpenv", "judge_token.json")
	}
}
