// Package config provides layered configuration for the forum server:
// protocol defaults, then environment variables (with optional .env file),
// then an optional YAML file, with command-line positionals applied last by
// the caller.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds every tunable of the forum server.
type Config struct {
	Port            int           `yaml:"port"`
	DataDir         string        `yaml:"data_dir"`
	UploadDir       string        `yaml:"upload_dir"`
	CredentialsFile string        `yaml:"credentials_file"`
	LossRate        float64       `yaml:"loss_rate"`
	AckTimeout      time.Duration `yaml:"ack_timeout"`
	MaxRetries      int           `yaml:"max_retries"`
	BufferSize      int           `yaml:"buffer_size"`
}

// Default returns the protocol's stock configuration.
func Default() *Config {
	return &Config{
		Port:            9090,
		DataDir:         "threads",
		UploadDir:       "uploads",
		CredentialsFile: "credentials.txt",
		LossRate:        0,
		AckTimeout:      2 * time.Second,
		MaxRetries:      3,
		BufferSize:      1024,
	}
}

// Load reads a YAML config file from path and returns a validated Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes over the defaults into a validated Config.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overlays FORUM_* environment variables, loading a .env file
// first if one exists in the working directory. Unset variables leave the
// current values alone.
func (c *Config) ApplyEnv() error {
	// Missing .env is the normal case, not an error.
	godotenv.Load()

	if v := os.Getenv("FORUM_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: FORUM_PORT: %w", err)
		}
		c.Port = port
	}
	if v := os.Getenv("FORUM_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("FORUM_UPLOAD_DIR"); v != "" {
		c.UploadDir = v
	}
	if v := os.Getenv("FORUM_CREDENTIALS_FILE"); v != "" {
		c.CredentialsFile = v
	}
	if v := os.Getenv("FORUM_LOSS_RATE"); v != "" {
		rate, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("config: FORUM_LOSS_RATE: %w", err)
		}
		c.LossRate = rate
	}
	if v := os.Getenv("FORUM_ACK_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: FORUM_ACK_TIMEOUT: %w", err)
		}
		c.AckTimeout = d
	}
	if v := os.Getenv("FORUM_MAX_RETRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: FORUM_MAX_RETRIES: %w", err)
		}
		c.MaxRetries = n
	}
	return nil
}

// applyDefaults fills in zero values left by a sparse YAML file.
func (c *Config) applyDefaults() {
	d := Default()
	if c.DataDir == "" {
		c.DataDir = d.DataDir
	}
	if c.UploadDir == "" {
		c.UploadDir = d.UploadDir
	}
	if c.CredentialsFile == "" {
		c.CredentialsFile = d.CredentialsFile
	}
	if c.AckTimeout <= 0 {
		c.AckTimeout = d.AckTimeout
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = d.MaxRetries
	}
	if c.BufferSize <= 0 {
		c.BufferSize = d.BufferSize
	}
}

// Validate checks that all fields are present and in range.
func (c *Config) Validate() error {
	var errs []string
	if c.Port < 0 || c.Port > 65535 {
		errs = append(errs, fmt.Sprintf("port %d out of range 0-65535", c.Port))
	}
	if c.LossRate < 0 || c.LossRate > 1 {
		errs = append(errs, fmt.Sprintf("loss_rate %g outside [0,1]", c.LossRate))
	}
	if c.DataDir == "" {
		errs = append(errs, "data_dir is required")
	}
	if c.UploadDir == "" {
		errs = append(errs, "upload_dir is required")
	}
	if c.CredentialsFile == "" {
		errs = append(errs, "credentials_file is required")
	}
	if c.MaxRetries <= 0 {
		errs = append(errs, "max_retries must be positive")
	}
	if c.BufferSize <= 0 {
		errs = append(errs, "buffer_size must be positive")
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
