// Package wordlist supplies the word pools practice sessions draw from.
package wordlist

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"unicode"
)

var errEmpty = errors.New("word list is empty")

// FilterFunc returns true when a word should be kept.
type FilterFunc func(string) bool

// FilterForLang returns the filter for lang. English keeps lowercase ASCII
// words; other languages keep any word made only of letters.
func FilterForLang(lang string) FilterFunc {
	if strings.EqualFold(lang, "en") {
		return isLowerASCII
	}
	return isLetters
}

func isLowerASCII(word string) bool {
	if word == "" {
		return false
	}
	for i := 0; i < len(word); i++ {
		if word[i] < 'a' || word[i] > 'z' {
			return false
		}
	}
	return true
}

func isLetters(word string) bool {
	if word == "" {
		return false
	}
	for _, r := range word {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

// LoadWords reads one word per line from path. Blank lines, lines starting
// with '#' and repeated words are skipped.
func LoadWords(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open word list: %w", err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil {
			// Best-effort close for read-only word list.
			_ = cerr
		}
	}()

	var words []string
	seen := make(map[string]struct{})
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		word := strings.TrimSpace(scanner.Text())
		if word == "" || strings.HasPrefix(word, "#") {
			continue
		}
		if _, dup := seen[word]; dup {
			continue
		}
		seen[word] = struct{}{}
		words = append(words, word)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read word list: %w", err)
	}
	if len(words) == 0 {
		return nil, errEmpty
	}
	return words, nil
}
