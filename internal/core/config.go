package core

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	EnvironmentProduction = "production"

	defaultPort         = 5000
	defaultPathPrefix   = "/api/v1"
	defaultUploadsRoot  = "uploads"
	defaultPublicPrefix = "/uploads"
)

type Database struct {
	Type             string `yaml:"type"`
	ConnectionString string `yaml:"connectionString"`
}

type BlobStore struct {
	Root         string `yaml:"root"`
	PublicPrefix string `yaml:"publicPrefix"`
}

type Sessions struct {
	Type     string `yaml:"type"`
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type Auth struct {
	Secret           string        `yaml:"secret"`
	RegisterTokenTTL time.Duration `yaml:"registerTokenTTL"`
	LoginTokenTTL    time.Duration `yaml:"loginTokenTTL"`
}

type Transforms struct {
	MaxConcurrent int `yaml:"maxConcurrent"`
	MaxQueued     int `yaml:"maxQueued"`
	JPEGQuality   int `yaml:"jpegQuality"`
}

type Upload struct {
	// MaxSize uses the echo body limit notation, e.g. "10M".
	MaxSize string `yaml:"maxSize"`
}

type Reconcile struct {
	GracePeriod time.Duration `yaml:"gracePeriod"`
	// Interval of the in-process reconcile loop; 0 disables it.
	Interval time.Duration `yaml:"interval"`
}

type ServiceConfig struct {
	Port        int        `yaml:"port"`
	Environment string     `yaml:"environment"`
	LogLevel    string     `yaml:"logLevel"`
	PathPrefix  string     `yaml:"pathPrefix"`
	Database    Database   `yaml:"database"`
	BlobStore   BlobStore  `yaml:"blobStore"`
	Sessions    Sessions   `yaml:"sessions"`
	Auth        Auth       `yaml:"auth"`
	Transforms  Transforms `yaml:"transforms"`
	Upload      Upload     `yaml:"upload"`
	Reconcile   Reconcile  `yaml:"reconcile"`
}

func (c *ServiceConfig) IsProduction() bool {
	return strings.EqualFold(c.Environment, EnvironmentProduction)
}

// ConfigPath returns CONFIG_PATH if set, otherwise config.yaml in the working directory.
func ConfigPath() string {
	if configPath := os.Getenv("CONFIG_PATH"); configPath != "" {
		return configPath
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(cwd, "config.yaml")
}

// LoadConfig loads configuration from the specified YAML file, applies defaults
// and environment overrides, and validates the result.
func LoadConfig(configPath string) (*ServiceConfig, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	var config ServiceConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
	}

	config.ApplyDefaults()
	if err := config.applyEnvOverrides(); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration in %s: %w", configPath, err)
	}

	return &config, nil
}

// ApplyDefaults fills every unset field with its default value.
func (c *ServiceConfig) ApplyDefaults() {
	if c.Port == 0 {
		c.Port = defaultPort
	}
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.PathPrefix == "" {
		c.PathPrefix = defaultPathPrefix
	}
	c.PathPrefix = "/" + strings.Trim(c.PathPrefix, "/")
	if c.Database.Type == "" {
		c.Database.Type = "sqlite"
	}
	if c.Database.ConnectionString == "" {
		c.Database.ConnectionString = "imagehost.db"
	}
	if c.BlobStore.Root == "" {
		c.BlobStore.Root = defaultUploadsRoot
	}
	if c.BlobStore.PublicPrefix == "" {
		c.BlobStore.PublicPrefix = defaultPublicPrefix
	}
	if c.Sessions.Type == "" {
		c.Sessions.Type = "memory"
	}
	if c.Auth.RegisterTokenTTL == 0 {
		c.Auth.RegisterTokenTTL = 24 * time.Hour
	}
	if c.Auth.LoginTokenTTL == 0 {
		c.Auth.LoginTokenTTL = 10 * time.Minute
	}
	if c.Transforms.MaxConcurrent == 0 {
		c.Transforms.MaxConcurrent = 4
	}
	if c.Transforms.MaxQueued == 0 {
		c.Transforms.MaxQueued = 64
	}
	if c.Transforms.JPEGQuality == 0 {
		c.Transforms.JPEGQuality = 80
	}
	if c.Upload.MaxSize == "" {
		c.Upload.MaxSize = "10M"
	}
	if c.Reconcile.GracePeriod == 0 {
		c.Reconcile.GracePeriod = 10 * time.Minute
	}
}

func (c *ServiceConfig) applyEnvOverrides() error {
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		c.Auth.Secret = secret
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		c.Sessions.Type = "redis"
		c.Sessions.Address = addr
	}
	if env := os.Getenv("APP_ENV"); env != "" {
		c.Environment = env
	}
	if port := os.Getenv("PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", port, err)
		}
		c.Port = p
	}
	return nil
}

func (c *ServiceConfig) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.Auth.Secret == "" {
		return fmt.Errorf("auth secret is empty; set auth.secret or JWT_SECRET")
	}
	switch c.Sessions.Type {
	case "memory":
	case "redis":
		if c.Sessions.Address == "" {
			return fmt.Errorf("sessions.address is required for redis sessions")
		}
	default:
		return fmt.Errorf("unsupported session store: %s", c.Sessions.Type)
	}
	if c.Transforms.MaxConcurrent < 1 {
		return fmt.Errorf("transforms.maxConcurrent must be positive, got %d", c.Transforms.MaxConcurrent)
	}
	if c.Transforms.MaxQueued < 0 {
		return fmt.Errorf("transforms.maxQueued must not be negative, got %d", c.Transforms.MaxQueued)
	}
	if c.Transforms.JPEGQuality < 1 || c.Transforms.JPEGQuality > 100 {
		return fmt.Errorf("transforms.jpegQuality must be within 1..100, got %d", c.Transforms.JPEGQuality)
	}
	if c.Reconcile.GracePeriod < 0 || c.Reconcile.Interval < 0 {
		return fmt.Errorf("reconcile durations must not be negative")
	}
	return nil
}
