package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/verte-zerg/tuipesync/internal/config"
	"github.com/verte-zerg/tuipesync/internal/model"
)

func TestDefaultConfigTemplateDecodes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		t.Fatalf("template must decode: %v", err)
	}
	if cfg.Practice.Words != nil || cfg.Remote.DSN != nil {
		t.Fatalf("template values must be commented out: %+v", cfg)
	}
}

func TestApplyConfigRespectsFlags(t *testing.T) {
	cmd := newRootCmd()
	lang, words := "en", 25
	fileLang, fileWords := "de", 40

	if err := cmd.Flags().Set("words", "10"); err != nil {
		t.Fatalf("set flag: %v", err)
	}
	applyStringConfig(cmd, "lang", &lang, &fileLang)
	applyIntConfig(cmd, "words", &words, &fileWords)
	if lang != "de" {
		t.Fatalf("expected file value for unset flag, got %q", lang)
	}
	if words != 25 {
		t.Fatalf("changed flag must win over the file, got %d", words)
	}
}

func TestValidateConfig(t *testing.T) {
	if err := validateConfig(model.Config{Lang: "en", Words: 0}); err == nil {
		t.Fatal("expected error for zero words")
	}
	if err := validateConfig(model.Config{Lang: " ", Words: 5}); err == nil {
		t.Fatal("expected error for empty lang")
	}
	if err := validateConfig(model.Config{Lang: "en", Words: 5}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestResolveWordListPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	if got := resolveWordListPath(model.Config{Lang: "en", WordList: "/tmp/words.txt"}); got != "/tmp/words.txt" {
		t.Fatalf("explicit file must win, got %q", got)
	}
	if got := resolveWordListPath(model.Config{Lang: "en"}); got != "" {
		t.Fatalf("missing download must select the built-in pool, got %q", got)
	}

	path := config.DefaultWordListPath("en")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("alpha\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if got := resolveWordListPath(model.Config{Lang: "en"}); got != path {
		t.Fatalf("expected downloaded list %q, got %q", path, got)
	}
}
