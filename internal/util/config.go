// Package util provides common utilities for tattletale.
package util

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variables read into the config.
const EnvPrefix = "TATTLETALE"

// Config holds all application configuration.
type Config struct {
	DataDir  string `mapstructure:"data_dir"`
	LogLevel string `mapstructure:"log_level"`
	LogFile  string `mapstructure:"log_file"`

	// Ingestion
	MmapThreshold string `mapstructure:"mmap_threshold"`
	Parallel      bool   `mapstructure:"parallel"`
	Workers       int    `mapstructure:"workers"`
	Diagnostics   bool   `mapstructure:"diagnostics"`
	Dedupe        bool   `mapstructure:"dedupe"`

	// Report
	TopN      int    `mapstructure:"top_n"`
	OutputDir string `mapstructure:"output_dir"`

	// Database sink
	DBDriver string `mapstructure:"db_driver"`
	DBDSN    string `mapstructure:"db_dsn"`

	// Web server
	WebHost string `mapstructure:"web_host"`
	WebPort int    `mapstructure:"web_port"`
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".tattletale")

	return &Config{
		DataDir:  dataDir,
		LogLevel: "info",

		MmapThreshold: "16MiB",
		Parallel:      false,
		Workers:       runtime.NumCPU(),

		TopN:      10,
		OutputDir: ".",

		DBDriver: "sqlite3",

		WebHost: "127.0.0.1",
		WebPort: 8080,
	}
}

// LoadConfig loads configuration from file, .env and environment.
// cfgFile overrides the search path when set.
func LoadConfig(cfgFile string) (*Config, error) {
	cfg := DefaultConfig()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(cfg.DataDir)
		viper.AddConfigPath(".")
	}

	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("data_dir", cfg.DataDir)
	viper.SetDefault("log_level", cfg.LogLevel)
	viper.SetDefault("log_file", cfg.LogFile)
	viper.SetDefault("mmap_threshold", cfg.MmapThreshold)
	viper.SetDefault("parallel", cfg.Parallel)
	viper.SetDefault("workers", cfg.Workers)
	viper.SetDefault("diagnostics", cfg.Diagnostics)
	viper.SetDefault("dedupe", cfg.Dedupe)
	viper.SetDefault("top_n", cfg.TopN)
	viper.SetDefault("output_dir", cfg.OutputDir)
	viper.SetDefault("db_driver", cfg.DBDriver)
	viper.SetDefault("db_dsn", cfg.DBDSN)
	viper.SetDefault("web_host", cfg.WebHost)
	viper.SetDefault("web_port", cfg.WebPort)

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if _, err := cfg.MmapThresholdBytes(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// MmapThresholdBytes parses MmapThreshold, which accepts plain byte counts
// or sizes such as "16MiB". Zero disables memory mapping.
func (c *Config) MmapThresholdBytes() (int64, error) {
	s := strings.TrimSpace(c.MmapThreshold)
	if s == "" {
		return 0, nil
	}
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("invalid mmap_threshold %q: %w", c.MmapThreshold, err)
	}
	return int64(n), nil
}

// DatabaseDSN returns DBDSN, falling back to a SQLite file in DataDir.
func (c *Config) DatabaseDSN() string {
	if c.DBDSN != "" {
		return c.DBDSN
	}
	return filepath.Join(c.DataDir, "tattletale.db")
}

// WebAddr returns the listen address of the web server.
func (c *Config) WebAddr() string {
	return fmt.Sprintf("%s:%d", c.WebHost, c.WebPort)
}

// EnsureDir ensures a directory exists.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}

// FileExists checks if a file exists.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false
	}
	return err == nil && !info.IsDir()
}
