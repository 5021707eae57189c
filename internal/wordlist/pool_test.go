package wordlist

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolveDefaultPool(t *testing.T) {
	words, err := Resolve("", "en")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(words) != 40 {
		t.Fatalf("expected 40 default words, got %d", len(words))
	}
	words[0] = "changed"
	if Default()[0] != "the" {
		t.Fatalf("default pool must not be shared")
	}
}

func TestResolveFiltersFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "en.txt")
	if err := os.WriteFile(path, []byte("hello\nnaïve\n\nworld\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	words, err := Resolve(path, "en")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(words) != 2 || words[0] != "hello" || words[1] != "world" {
		t.Fatalf("unexpected words: %v", words)
	}
}

func TestFilterForLang(t *testing.T) {
	en := FilterForLang("EN")
	if !en("hello") {
		t.Fatalf("expected hello to pass english filter")
	}
	for _, word := range []string{"résumé", "don’t", "co-op", "Hello", ""} {
		if en(word) {
			t.Fatalf("expected %q to be rejected", word)
		}
	}
	de := FilterForLang("de")
	if !de("Straße") || de("zwei2") {
		t.Fatalf("expected letters-only filter for de")
	}
}

func TestLoadWordsSkipsCommentsAndDuplicates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "words.txt")
	if err := os.WriteFile(path, []byte("# common words\nalpha\nbeta\nalpha\n  \n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	words, err := LoadWords(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(words) != 2 || words[0] != "alpha" || words[1] != "beta" {
		t.Fatalf("unexpected words: %v", words)
	}
}

func TestLoadWordsEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.txt")
	if err := os.WriteFile(path, []byte("# nothing\n\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadWords(path); err == nil {
		t.Fatal("expected error for empty list")
	}
}
