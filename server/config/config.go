package config

import (
	"os"
	"path/filepath"

	"github.com/gear6io/icecat/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config represents the catalog server configuration
type Config struct {
	Log      LogConfig      `yaml:"log"`
	Database DatabaseConfig `yaml:"database"`
	Storage  StorageConfig  `yaml:"storage"`
	HTTP     HTTPConfig     `yaml:"http"`
}

// LogConfig represents logging configuration
type LogConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`    // "json" or "console"
	FilePath string `yaml:"file_path"` // optional log file
	Console  bool   `yaml:"console"`
}

// DatabaseConfig carries the catalog store DSN
type DatabaseConfig struct {
	URL string `yaml:"url"`
}

// StorageConfig carries the warehouse location used by the storage accessor
type StorageConfig struct {
	WarehousePath string `yaml:"warehouse_path"`
}

// HTTPConfig represents the REST transport configuration
type HTTPConfig struct {
	Address string `yaml:"address"`
	Port    int    `yaml:"port"`
	CORS    bool   `yaml:"cors"`
}

// Environment variables applied on top of the config file. Both are the
// process-wide settings the REST catalog contract names.
const (
	EnvDatabaseURL   = "DATABASE_URL"
	EnvWarehousePath = "ICEBERG_WAREHOUSE_PATH"
)

// LoadDefaultConfig returns a default configuration
func LoadDefaultConfig() *Config {
	return &Config{
		Log: LogConfig{
			Level:   "info",
			Format:  "console",
			Console: true,
		},
		Database: DatabaseConfig{
			URL: "file:catalog.db?_foreign_keys=on",
		},
		Storage: StorageConfig{
			WarehousePath: defaultWarehousePath(),
		},
		HTTP: HTTPConfig{
			Address: DEFAULT_SERVER_ADDRESS,
			Port:    HTTP_SERVER_PORT,
		},
	}
}

func defaultWarehousePath() string {
	cwd, err := os.Getwd()
	if err != nil {
		return "/tmp/icecat-warehouse"
	}
	return filepath.Join(cwd, "warehouse")
}

// LoadConfig loads configuration from a file, then applies env overrides
func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.New(ErrConfigFileReadFailed, "failed to read config file", err)
	}

	config := LoadDefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, errors.New(ErrConfigFileParseFailed, "failed to parse config file", err)
	}

	config.ApplyEnv()

	if err := config.Validate(); err != nil {
		return nil, errors.New(ErrConfigValidationFailed, "configuration validation failed", err)
	}

	return config, nil
}

// ApplyEnv overrides file values with process environment settings
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvDatabaseURL); v != "" {
		c.Database.URL = v
	}
	if v := os.Getenv(EnvWarehousePath); v != "" {
		c.Storage.WarehousePath = v
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return errors.New(ErrDatabaseURLRequired, "database url is required", nil)
	}
	if c.Storage.WarehousePath == "" {
		return errors.New(ErrWarehousePathRequired, "warehouse path is required", nil)
	}
	if !filepath.IsAbs(c.Storage.WarehousePath) {
		abs, err := filepath.Abs(c.Storage.WarehousePath)
		if err != nil {
			return errors.New(ErrWarehousePathRelative, "warehouse path must be absolute", err)
		}
		c.Storage.WarehousePath = abs
	}
	if c.HTTP.Port == 0 {
		c.HTTP.Port = HTTP_SERVER_PORT
	}
	if c.HTTP.Address == "" {
		c.HTTP.Address = DEFAULT_SERVER_ADDRESS
	}
	return nil
}

// GetHTTPPort returns the HTTP server port
func (c *Config) GetHTTPPort() int {
	return c.HTTP.Port
}

// GetHTTPAddress returns the HTTP server bind address
func (c *Config) GetHTTPAddress() string {
	return c.HTTP.Address
}

// GetWarehousePath returns the warehouse root directory
func (c *Config) GetWarehousePath() string {
	return c.Storage.WarehousePath
}

// GetDatabaseURL returns the catalog store DSN
func (c *Config) GetDatabaseURL() string {
	return c.Database.URL
}
