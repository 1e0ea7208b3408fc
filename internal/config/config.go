// Package config handles agtrace configuration loading.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the full agtrace configuration.
type Config struct {
	Backend BackendConfig `toml:"backend"`
	Server  ServerConfig  `toml:"server"`
	Paths   PathsConfig   `toml:"paths"`
}

// BackendConfig points at the agent backend the traces are fetched from.
type BackendConfig struct {
	BaseURL      string   `toml:"base_url"`
	APIToken     string   `toml:"api_token"`
	Timeout      duration `toml:"timeout"`
	PollInterval duration `toml:"poll_interval"`
}

// ServerConfig configures the serve command.
type ServerConfig struct {
	Addr string `toml:"addr"`
	Port int    `toml:"port"`
}

// PathsConfig locates local state.
type PathsConfig struct {
	DataDir    string `toml:"data_dir"`
	SnapshotDB string `toml:"snapshot_db"`
}

// duration lets TOML carry values like "5s".
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// Default returns the default configuration.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".agtrace")

	return &Config{
		Backend: BackendConfig{
			BaseURL:      "http://127.0.0.1:8720",
			Timeout:      duration{30 * time.Second},
			PollInterval: duration{2 * time.Second},
		},
		Server: ServerConfig{
			Addr: "127.0.0.1",
			Port: 6143,
		},
		Paths: PathsConfig{
			DataDir:    dataDir,
			SnapshotDB: filepath.Join(dataDir, "snapshot.db"),
		},
	}
}

// Load loads the configuration from the given path. A missing file is not
// an error; defaults are returned.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// DefaultPath returns the conventional config file location.
func DefaultPath() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".agtrace", "config.toml")
}
