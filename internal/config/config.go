// Package config provides configuration management for the lip-sync engine
package config

import (
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/normanking/cortexlipsync/internal/blend"
	"github.com/normanking/cortexlipsync/internal/cache"
	"github.com/normanking/cortexlipsync/internal/coart"
	"github.com/normanking/cortexlipsync/internal/intensity"
	"github.com/normanking/cortexlipsync/internal/logging"
	"github.com/normanking/cortexlipsync/internal/mapper"
	"github.com/normanking/cortexlipsync/internal/sink"
)

// Config holds all engine configuration
type Config struct {
	Logging        logging.Config   `mapstructure:"logging"`
	Intensity      intensity.Config `mapstructure:"intensity"`
	Coarticulation coart.Config     `mapstructure:"coarticulation"`
	Blending       blend.Config     `mapstructure:"blending"`
	Mapper         mapper.Config    `mapstructure:"mapper"`
	Cache          cache.Config     `mapstructure:"cache"`
	Sink           sink.Config      `mapstructure:"sink"`
}

// DefaultConfig returns sensible default configuration
func DefaultConfig() *Config {
	return &Config{
		Logging:        logging.DefaultConfig(),
		Intensity:      intensity.DefaultConfig(),
		Coarticulation: coart.DefaultConfig(),
		Blending:       blend.DefaultConfig(),
		Mapper:         mapper.DefaultConfig(),
		Cache:          cache.DefaultConfig(),
		Sink:           sink.DefaultConfig(),
	}
}

// Load reads configuration from file and environment
func Load() (*Config, error) {
	cfg := DefaultConfig()

	configDir, err := GetConfigDir()
	if err != nil {
		return cfg, err
	}
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return cfg, err
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".")

	// Environment variable overrides
	viper.SetEnvPrefix("CORTEXLIPSYNC")
	viper.AutomaticEnv()

	// Read config file if it exists
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return cfg, err
		}
		// Config file not found, use defaults and create one
		if err := Save(cfg); err != nil {
			return cfg, err
		}
	}

	if err := viper.Unmarshal(cfg); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// LoadFile reads configuration from an explicit path, with defaults for
// anything the file does not set.
func LoadFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return cfg, err
	}
	if err := v.Unmarshal(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Save writes the configuration to file
func Save(cfg *Config) error {
	configDir, err := GetConfigDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return err
	}

	viper.Set("logging", cfg.Logging)
	viper.Set("intensity", cfg.Intensity)
	viper.Set("coarticulation", cfg.Coarticulation)
	viper.Set("blending", cfg.Blending)
	viper.Set("mapper", cfg.Mapper)
	viper.Set("cache", cfg.Cache)
	viper.Set("sink", cfg.Sink)

	configPath := filepath.Join(configDir, "config.yaml")
	return viper.WriteConfigAs(configPath)
}

// GetConfigDir returns the configuration directory path
func GetConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".cortexlipsync"), nil
}
