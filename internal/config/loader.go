package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const envPrefix = "PREPTRACK"

var keys = []string{
	"server_url", "token", "poll_interval", "request_timeout",
	"export_dir", "db_path", "listen_addr", "jwt_secret",
}

// DefaultPath is ~/.config/preptrack/config.yaml, or $PREPTRACK_CONFIG.
func DefaultPath() string {
	if p := os.Getenv(envPrefix + "_CONFIG"); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(home, ".config", "preptrack", "config.yaml")
}

// Load reads the config file at path if it exists, then applies .env from
// the working directory and the environment. An empty path means
// DefaultPath.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	def := Default()
	defaults := map[string]any{
		"server_url":      def.ServerURL,
		"token":           def.Token,
		"poll_interval":   def.PollInterval,
		"request_timeout": def.RequestTimeout,
		"export_dir":      def.ExportDir,
		"db_path":         def.DBPath,
		"listen_addr":     def.ListenAddr,
		"jwt_secret":      def.JWTSecret,
	}
	for _, k := range keys {
		v.SetDefault(k, defaults[k])
	}

	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("stat config %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.normalize()
	return cfg, nil
}

// fileConfig is the on-disk form; durations are written as "5s".
type fileConfig struct {
	ServerURL      string `yaml:"server_url"`
	Token          string `yaml:"token"`
	PollInterval   string `yaml:"poll_interval"`
	RequestTimeout string `yaml:"request_timeout"`
	ExportDir      string `yaml:"export_dir"`
	DBPath         string `yaml:"db_path"`
	ListenAddr     string `yaml:"listen_addr"`
	JWTSecret      string `yaml:"jwt_secret"`
}

// Marshal renders cfg as YAML in the format Load reads.
func Marshal(cfg *Config) ([]byte, error) {
	return yaml.Marshal(fileConfig{
		ServerURL:      cfg.ServerURL,
		Token:          cfg.Token,
		PollInterval:   cfg.PollInterval.String(),
		RequestTimeout: cfg.RequestTimeout.String(),
		ExportDir:      cfg.ExportDir,
		DBPath:         cfg.DBPath,
		ListenAddr:     cfg.ListenAddr,
		JWTSecret:      cfg.JWTSecret,
	})
}

// WriteDefault writes the default config to path. It refuses to overwrite
// an existing file.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config %s already exists", path)
	}
	data, err := Marshal(Default())
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}
