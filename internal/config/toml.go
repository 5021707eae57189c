// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Practice PracticeConfig   `toml:"practice"`
	Remote   RemoteFileConfig `toml:"remote"`
	Sync     SyncFileConfig   `toml:"sync"`
	Log      LogFileConfig    `toml:"log"`
}

// PracticeConfig maps practice-related settings.
type PracticeConfig struct {
	Lang     *string `toml:"lang"`
	Words    *int    `toml:"words"`
	WordList *string `toml:"wordlist"`
}

// RemoteFileConfig maps the remote score store connection.
type RemoteFileConfig struct {
	DSN             *string        `toml:"dsn"`
	MaxConns        *int32         `toml:"max_conns"`
	MaxConnIdleTime *time.Duration `toml:"max_conn_idle_time"`
	ConnectTimeout  *time.Duration `toml:"connect_timeout"`
}

// SyncFileConfig maps reconciliation settings.
type SyncFileConfig struct {
	ProbeInterval *time.Duration `toml:"probe_interval"`
	PushRate      *float64       `toml:"push_rate"`
	PushBurst     *int           `toml:"push_burst"`
}

// LogFileConfig maps logging settings.
type LogFileConfig struct {
	Level  *string `toml:"level"`
	Format *string `toml:"format"`
	File   *string `toml:"file"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}

// Encode writes cfg as TOML, used by the config command.
func Encode(w io.Writer, cfg any) error {
	return toml.NewEncoder(w).Encode(cfg)
}
