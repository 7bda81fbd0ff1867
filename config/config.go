package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/isdmx/execbox/sandbox"
)

// Config represents the application configuration
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Exec    ExecConfig    `mapstructure:"exec"`
	Sandbox SandboxConfig `mapstructure:"sandbox"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Transport string `mapstructure:"transport"`
	HTTPPort  int    `mapstructure:"http_port"`
}

// ExecConfig holds execution engine configuration
type ExecConfig struct {
	DefaultTimeoutMS int `mapstructure:"default_timeout_ms"`
}

// SandboxConfig holds the session sandbox policy
type SandboxConfig struct {
	Mode            string   `mapstructure:"mode"`
	WritableRoots   []string `mapstructure:"writable_roots"`
	NetworkAccess   bool     `mapstructure:"network_access"`
	LinuxHelperPath string   `mapstructure:"linux_helper_path"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Mode  string `mapstructure:"mode"`
	Level string `mapstructure:"level"`
}

// New loads and validates the application configuration
func New() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Set default values
	viper.SetDefault("server.transport", "stdio")
	viper.SetDefault("server.http_port", 8080)
	viper.SetDefault("exec.default_timeout_ms", 10_000)
	viper.SetDefault("sandbox.mode", string(sandbox.ModeWorkspaceWrite))
	viper.SetDefault("sandbox.writable_roots", []string{})
	viper.SetDefault("sandbox.network_access", false)
	viper.SetDefault("sandbox.linux_helper_path", "")
	viper.SetDefault("logging.mode", "production")
	viper.SetDefault("logging.level", "info")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// If config file not found, continue with defaults
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation error: %w", err)
	}

	return &config, nil
}

// validate ensures the configuration is valid
func (c *Config) validate() error {
	if c.Server.Transport != "stdio" && c.Server.Transport != "http" {
		return fmt.Errorf("invalid server.transport: %s, must be 'stdio' or 'http'", c.Server.Transport)
	}

	if c.Exec.DefaultTimeoutMS <= 0 {
		return fmt.Errorf("exec.default_timeout_ms must be positive, got: %d", c.Exec.DefaultTimeoutMS)
	}

	if err := c.Policy().Validate(); err != nil {
		return err
	}

	return nil
}

// Policy returns the session sandbox policy described by the configuration.
func (c *Config) Policy() sandbox.Policy {
	return sandbox.Policy{
		Mode:          sandbox.Mode(c.Sandbox.Mode),
		WritableRoots: c.Sandbox.WritableRoots,
		NetworkAccess: c.Sandbox.NetworkAccess,
	}
}

// DefaultTimeout returns the default execution timeout as a duration
func (c *Config) DefaultTimeout() time.Duration {
	return time.Duration(c.Exec.DefaultTimeoutMS) * time.Millisecond
}
