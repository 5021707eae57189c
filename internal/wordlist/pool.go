package wordlist

// defaultPool is the built-in list of common English words.
var defaultPool = []string{
	"the", "be", "to", "of", "and", "a", "in", "that", "have", "I",
	"it", "for", "not", "on", "with", "he", "as", "you", "do", "at",
	"this", "but", "his", "by", "from", "they", "we", "say", "her", "she",
	"or", "an", "will", "my", "one", "all", "would", "there", "their", "what",
}

// Default returns a copy of the built-in word pool.
func Default() []string {
	out := make([]string, len(defaultPool))
	copy(out, defaultPool)
	return out
}

// Resolve loads the word list at path filtered for lang, falling back to the
// built-in pool when path is empty.
func Resolve(path, lang string) ([]string, error) {
	if path == "" {
		return Default(), nil
	}
	words, err := LoadWords(path)
	if err != nil {
		return nil, err
	}
	keep := FilterForLang(lang)
	filtered := words[:0]
	for _, w := range words {
		if keep(w) {
			filtered = append(filtered, w)
		}
	}
	if len(filtered) == 0 {
		return nil, errEmpty
	}
	return filtered, nil
}
