// Package config loads preptrack settings from a YAML file, a .env file and
// PREPTRACK_* environment variables, in increasing order of precedence.
package config

import (
	"time"

	"github.com/sadopc/preptrack/internal/api"
	"github.com/sadopc/preptrack/internal/workflow"
)

type Config struct {
	// Client
	ServerURL      string        `yaml:"server_url" mapstructure:"server_url"`
	Token          string        `yaml:"token" mapstructure:"token"`
	PollInterval   time.Duration `yaml:"poll_interval" mapstructure:"poll_interval"`
	RequestTimeout time.Duration `yaml:"request_timeout" mapstructure:"request_timeout"`
	ExportDir      string        `yaml:"export_dir" mapstructure:"export_dir"`

	// Server
	DBPath     string `yaml:"db_path" mapstructure:"db_path"`
	ListenAddr string `yaml:"listen_addr" mapstructure:"listen_addr"`
	JWTSecret  string `yaml:"jwt_secret" mapstructure:"jwt_secret"`
}

func Default() *Config {
	return &Config{
		ServerURL:      "http://localhost:8080",
		PollInterval:   workflow.DefaultPollInterval,
		RequestTimeout: api.DefaultTimeout,
		ExportDir:      ".",
		ListenAddr:     ":8080",
	}
}

// normalize clamps durations into their supported ranges.
func (c *Config) normalize() {
	c.PollInterval = workflow.ClampPollInterval(c.PollInterval)
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = api.DefaultTimeout
	}
	if c.ExportDir == "" {
		c.ExportDir = "."
	}
}
