package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/creasty/defaults"
	validatorV10 "github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const (
	AppName = "photomark"

	// Environment variable names for configuration overrides
	EnvLogLevel     = "PHOTOMARK_LOG_LEVEL"
	EnvQuality      = "PHOTOMARK_QUALITY"
	EnvParallel     = "PHOTOMARK_PARALLEL"
	EnvTimeout      = "PHOTOMARK_TIMEOUT"
	EnvOTLPEndpoint = "PHOTOMARK_OTLP_ENDPOINT"
	EnvS3Endpoint   = "PHOTOMARK_S3_ENDPOINT"
	EnvS3Bucket     = "PHOTOMARK_S3_BUCKET"
	EnvS3AccessKey  = "PHOTOMARK_S3_ACCESS_KEY"
	EnvS3SecretKey  = "PHOTOMARK_S3_SECRET_KEY"

	DefaultTimeout = 2 * time.Minute
)

type Config struct {
	LogLevel    string             `yaml:"log_level" default:"info" validate:"oneof=debug info warn warning error"`
	LogFormat   string             `yaml:"log_format" default:"json" validate:"oneof=json text"`
	Quality     int                `yaml:"quality" default:"85" validate:"min=1,max=100"`
	Parallel    int                `yaml:"parallel" default:"4" validate:"min=1,max=256"`
	Timeout     string             `yaml:"timeout" default:"2m" validate:"duration"`
	MetricsFile string             `yaml:"metrics_file,omitempty"`
	Tracing     TracingConfig      `yaml:"tracing"`
	Storage     StorageConfig      `yaml:"storage"`
	Profiles    map[string]Profile `yaml:"profiles,omitempty"`
}

type TracingConfig struct {
	Enabled    bool    `yaml:"enabled"`
	Endpoint   string  `yaml:"endpoint" default:"localhost:4317"`
	SampleRate float64 `yaml:"sample_rate" default:"1" validate:"min=0,max=1"`
}

// StorageConfig points batch publishing at an S3-compatible bucket.
type StorageConfig struct {
	Endpoint  string `yaml:"endpoint,omitempty"`
	Bucket    string `yaml:"bucket,omitempty" validate:"required_with=Endpoint"`
	Prefix    string `yaml:"prefix,omitempty"`
	Region    string `yaml:"region" default:"us-east-1"`
	AccessKey string `yaml:"access_key,omitempty"`
	SecretKey string `yaml:"secret_key,omitempty"`
	Insecure  bool   `yaml:"insecure,omitempty"`
}

func (s StorageConfig) Configured() bool {
	return s.Endpoint != "" && s.Bucket != ""
}

var validator *validatorV10.Validate

func init() {
	validator = validatorV10.New()
	_ = validator.RegisterValidation("duration", func(fl validatorV10.FieldLevel) bool {
		d, err := time.ParseDuration(fl.Field().String())
		return err == nil && d >= 0
	})
}

// Default returns a config with every default applied.
func Default() *Config {
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		panic(fmt.Sprintf("config defaults: %v", err))
	}
	return cfg
}

// Dir is $XDG_CONFIG_HOME/photomark, falling back to ~/.config/photomark.
func Dir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", AppName), nil
}

func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load reads the config at path, or at Path() when path is empty. A
// missing default file is not an error; a missing explicit one is.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		p, err := Path()
		if err != nil {
			return finish(Default())
		}
		path = p
	}

	cfg := &Config{}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	return finish(cfg)
}

func finish(cfg *Config) (*Config, error) {
	// Environment variables take precedence over config file
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv(EnvQuality); v != "" {
		q, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvQuality, err)
		}
		c.Quality = q
	}
	if v := os.Getenv(EnvParallel); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvParallel, err)
		}
		c.Parallel = n
	}
	if v := os.Getenv(EnvTimeout); v != "" {
		c.Timeout = v
	}
	if v := os.Getenv(EnvOTLPEndpoint); v != "" {
		c.Tracing.Endpoint = v
		c.Tracing.Enabled = true
	}
	if v := os.Getenv(EnvS3Endpoint); v != "" {
		c.Storage.Endpoint = v
	}
	if v := os.Getenv(EnvS3Bucket); v != "" {
		c.Storage.Bucket = v
	}
	if v := os.Getenv(EnvS3AccessKey); v != "" {
		c.Storage.AccessKey = v
	}
	if v := os.Getenv(EnvS3SecretKey); v != "" {
		c.Storage.SecretKey = v
	}
	return nil
}

func (c *Config) Validate() error {
	if err := validator.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	for name, p := range c.Profiles {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("profile %q: %w", name, err)
		}
	}
	return nil
}

// Save writes c to path, creating the parent directory.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o600)
}

// TimeoutDuration parses Timeout; an unparsable value falls back to the
// default and zero disables the limit.
func (c *Config) TimeoutDuration() time.Duration {
	if c.Timeout == "" {
		return DefaultTimeout
	}
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return DefaultTimeout
	}
	return d
}
