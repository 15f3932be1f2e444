package lexical

import (
	"strings"
	"unicode"
)

// Analyze lowercases text, extracts tokens of two or more word characters,
// drops English stop words and returns the remaining unigrams followed by
// the bigrams formed from adjacent remaining tokens.
func Analyze(text string) []string {
	tokens := tokenize(strings.ToLower(text))
	kept := tokens[:0]
	for _, tok := range tokens {
		if _, stop := englishStopWords[tok]; !stop {
			kept = append(kept, tok)
		}
	}
	if len(kept) == 0 {
		return nil
	}
	terms := make([]string, 0, 2*len(kept)-1)
	terms = append(terms, kept...)
	for i := 0; i+1 < len(kept); i++ {
		terms = append(terms, kept[i]+" "+kept[i+1])
	}
	return terms
}

// tokenize returns maximal runs of word characters (letters, digits, underscore)
// that are at least two characters long.
func tokenize(text string) []string {
	var tokens []string
	start := -1
	runes := 0
	flush := func(end int) {
		if start >= 0 && runes >= 2 {
			tokens = append(tokens, text[start:end])
		}
		start = -1
		runes = 0
	}
	for i, r := range text {
		if isWordRune(r) {
			if start < 0 {
				start = i
			}
			runes++
			continue
		}
		flush(i)
	}
	flush(len(text))
	return tokens
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r)
}

// termCounts counts analyzed terms of text.
func termCounts(text string) map[string]int {
	terms := Analyze(text)
	counts := make(map[string]int, len(terms))
	for _, t := range terms {
		counts[t]++
	}
	return counts
}
