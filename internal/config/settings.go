package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Settings are the resolved runtime settings.
// Priority: ENV > TOML file > defaults (via env-default tags).
type Settings struct {
	Remote RemoteConfig `toml:"remote"`
	Sync   SyncConfig   `toml:"sync"`
	Log    LogConfig    `toml:"log"`
}

// RemoteConfig holds the remote PostgreSQL connection settings.
// An empty DSN means the device runs offline only.
type RemoteConfig struct {
	DSN             string        `toml:"dsn"                env:"TUIPESYNC_REMOTE_DSN"`
	MaxConns        int32         `toml:"max_conns"          env:"TUIPESYNC_REMOTE_MAX_CONNS"          env-default:"4"`
	MaxConnIdleTime time.Duration `toml:"max_conn_idle_time" env:"TUIPESYNC_REMOTE_MAX_CONN_IDLE_TIME" env-default:"5m"`
	ConnectTimeout  time.Duration `toml:"connect_timeout"    env:"TUIPESYNC_REMOTE_CONNECT_TIMEOUT"    env-default:"5s"`
}

// SyncConfig holds reconciliation settings.
type SyncConfig struct {
	ProbeInterval time.Duration `toml:"probe_interval" env:"TUIPESYNC_SYNC_PROBE_INTERVAL" env-default:"15s"`
	PushRate      float64       `toml:"push_rate"      env:"TUIPESYNC_SYNC_PUSH_RATE"      env-default:"5"`
	PushBurst     int           `toml:"push_burst"     env:"TUIPESYNC_SYNC_PUSH_BURST"     env-default:"1"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level      string `toml:"level"  env:"TUIPESYNC_LOG_LEVEL"  env-default:"info"`
	Format     string `toml:"format" env:"TUIPESYNC_LOG_FORMAT" env-default:"text"`
	File       string `toml:"file"   env:"TUIPESYNC_LOG_FILE"`
	MaxSizeMB  int    `toml:"-"      env:"TUIPESYNC_LOG_MAX_SIZE_MB" env-default:"10"`
	MaxBackups int    `toml:"-"      env:"TUIPESYNC_LOG_MAX_BACKUPS" env-default:"3"`
}

// Resolve merges the file config with the environment and defaults.
func Resolve(file FileConfig) (Settings, error) {
	var s Settings
	applyFile(&s, file)
	// cleanenv keeps values already set when a variable is absent and only
	// fills env-default into zero fields.
	if err := cleanenv.ReadEnv(&s); err != nil {
		return Settings{}, fmt.Errorf("config: read env: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Settings{}, fmt.Errorf("config: validate: %w", err)
	}
	return s, nil
}

// Validate checks the resolved settings.
func (s Settings) Validate() error {
	if s.Remote.MaxConns <= 0 {
		return fmt.Errorf("remote.max_conns must be > 0")
	}
	if s.Sync.ProbeInterval <= 0 {
		return fmt.Errorf("sync.probe_interval must be > 0")
	}
	if s.Sync.PushRate <= 0 {
		return fmt.Errorf("sync.push_rate must be > 0")
	}
	if s.Sync.PushBurst <= 0 {
		return fmt.Errorf("sync.push_burst must be > 0")
	}
	switch s.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json")
	}
	return nil
}

func applyFile(s *Settings, file FileConfig) {
	if v := file.Remote.DSN; v != nil {
		s.Remote.DSN = *v
	}
	if v := file.Remote.MaxConns; v != nil {
		s.Remote.MaxConns = *v
	}
	if v := file.Remote.MaxConnIdleTime; v != nil {
		s.Remote.MaxConnIdleTime = *v
	}
	if v := file.Remote.ConnectTimeout; v != nil {
		s.Remote.ConnectTimeout = *v
	}
	if v := file.Sync.ProbeInterval; v != nil {
		s.Sync.ProbeInterval = *v
	}
	if v := file.Sync.PushRate; v != nil {
		s.Sync.PushRate = *v
	}
	if v := file.Sync.PushBurst; v != nil {
		s.Sync.PushBurst = *v
	}
	if v := file.Log.Level; v != nil {
		s.Log.Level = *v
	}
	if v := file.Log.Format; v != nil {
		s.Log.Format = *v
	}
	if v := file.Log.File; v != nil {
		s.Log.File = *v
	}
}
