package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeTOML(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write toml: %v", err)
	}
	return path
}

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Practice.Words != nil || cfg.Remote.DSN != nil {
		t.Fatalf("expected empty config, got %+v", cfg)
	}
	if _, err := LoadConfig(""); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestLoadConfigSections(t *testing.T) {
	path := writeTOML(t, `
[practice]
words = 40
wordlist = "/tmp/words.txt"

[remote]
dsn = "postgres://u:p@localhost:5432/scores"
max_conns = 2
connect_timeout = "3s"

[sync]
probe_interval = "1m"
push_rate = 2.5

[log]
level = "debug"
format = "json"
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Practice.Words == nil || *cfg.Practice.Words != 40 {
		t.Fatalf("unexpected words: %v", cfg.Practice.Words)
	}
	if cfg.Remote.ConnectTimeout == nil || *cfg.Remote.ConnectTimeout != 3*time.Second {
		t.Fatalf("unexpected connect timeout: %v", cfg.Remote.ConnectTimeout)
	}
	if cfg.Sync.ProbeInterval == nil || *cfg.Sync.ProbeInterval != time.Minute {
		t.Fatalf("unexpected probe interval: %v", cfg.Sync.ProbeInterval)
	}
	if cfg.Sync.PushBurst != nil {
		t.Fatalf("push burst should be unset, got %d", *cfg.Sync.PushBurst)
	}
}

func TestLoadConfigInvalid(t *testing.T) {
	path := writeTOML(t, "[practice\nwords = ")
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestResolvePriority(t *testing.T) {
	path := writeTOML(t, `
[remote]
dsn = "postgres://file/scores"
max_conns = 2

[log]
level = "debug"
`)
	file, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	t.Setenv("TUIPESYNC_REMOTE_DSN", "postgres://env/scores")

	s, err := Resolve(file)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if s.Remote.DSN != "postgres://env/scores" {
		t.Fatalf("env should win, got %q", s.Remote.DSN)
	}
	if s.Remote.MaxConns != 2 {
		t.Fatalf("file should beat default, got %d", s.Remote.MaxConns)
	}
	if s.Remote.ConnectTimeout != 5*time.Second {
		t.Fatalf("expected default connect timeout, got %v", s.Remote.ConnectTimeout)
	}
	if s.Sync.ProbeInterval != 15*time.Second || s.Sync.PushRate != 5 || s.Sync.PushBurst != 1 {
		t.Fatalf("unexpected sync defaults: %+v", s.Sync)
	}
	if s.Log.Level != "debug" || s.Log.Format != "text" {
		t.Fatalf("unexpected log config: %+v", s.Log)
	}
}

func TestResolveRejectsBadFormat(t *testing.T) {
	t.Setenv("TUIPESYNC_LOG_FORMAT", "xml")
	if _, err := Resolve(FileConfig{}); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestNewLoggerLevelAndFormat(t *testing.T) {
	var buf bytes.Buffer
	logger, closer := NewLogger(LogConfig{Level: "warn", Format: "json"}, &buf)
	defer closer.Close()

	logger.Info("hidden")
	logger.Warn("shown", "n", 1)
	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info should be filtered: %s", out)
	}
	if !strings.Contains(out, `"msg":"shown"`) {
		t.Fatalf("expected json warn line, got %s", out)
	}
}

func TestNewLoggerWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "sync.log")
	var buf bytes.Buffer
	logger, closer := NewLogger(LogConfig{Level: "info", Format: "text", File: path, MaxSizeMB: 1, MaxBackups: 1}, &buf)
	logger.Info("to file")
	if err := closer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("fallback should be unused, got %q", buf.String())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "to file") {
		t.Fatalf("missing log line: %s", data)
	}
}

func TestDefaultPathsFollowXDG(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "cfg"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))
	t.Setenv("XDG_STATE_HOME", filepath.Join(dir, "state"))

	if got, want := DefaultConfigPath(), filepath.Join(dir, "cfg", "tuipesync", "config.toml"); got != want {
		t.Fatalf("config path = %q, want %q", got, want)
	}
	if got, want := DefaultDBPath(), filepath.Join(dir, "data", "tuipesync", "tuipesync.db"); got != want {
		t.Fatalf("db path = %q, want %q", got, want)
	}
	if got, want := DefaultWordListPath("en"), filepath.Join(dir, "cfg", "tuipesync", "wordlists", "en.txt"); got != want {
		t.Fatalf("wordlist path = %q, want %q", got, want)
	}
	if got, want := DefaultLogPath(), filepath.Join(dir, "state", "tuipesync", "tuipesync.log"); got != want {
		t.Fatalf("log path = %q, want %q", got, want)
	}
}
