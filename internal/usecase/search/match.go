package search

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// wholeWordMatch reports whether word occurs in text as a whole word, not a
// substring. Go's regexp \b is ASCII-only, which silently breaks Cyrillic
// queries, so boundaries are checked on runes directly. Phrases (terms with
// internal whitespace) match the same way, boundary-checked at both ends.
func wholeWordMatch(word, text string) bool {
	word = strings.ToLower(word)
	text = strings.ToLower(text)
	if word == "" || len(word) > len(text) {
		return false
	}

	for from := 0; ; {
		idx := strings.Index(text[from:], word)
		if idx < 0 {
			return false
		}
		start := from + idx
		end := start + len(word)

		if boundaryBefore(text, start) && boundaryAfter(text, end) {
			return true
		}
		from = start + 1
	}
}

func boundaryBefore(text string, pos int) bool {
	if pos == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(text[:pos])
	return !isWordRune(r)
}

func boundaryAfter(text string, pos int) bool {
	if pos >= len(text) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(text[pos:])
	return !isWordRune(r)
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

// anyFormMatches reports whether any surface form occurs as a whole word.
func anyFormMatches(forms []string, text string) bool {
	if text == "" {
		return false
	}
	for _, f := range forms {
		if wholeWordMatch(f, text) {
			return true
		}
	}
	return false
}
