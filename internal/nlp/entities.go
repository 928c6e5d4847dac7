package nlp

import (
	"context"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/finradar/newsrank/internal/config"
	"github.com/finradar/newsrank/internal/domain"
)

// LexiconExtractor finds named entities by scanning text against a curated
// alias lexicon. It is deterministic and needs no external model; the
// production lexicon covers the banks, companies, and regulators the corpus
// is about.
type LexiconExtractor struct {
	entries []lexiconEntry
	banking []string
}

type lexiconEntry struct {
	alias     string // lowercase surface form to look for
	canonical string
	typ       domain.EntityType
}

// NewLexiconExtractor compiles the lexicon. Longer aliases are tried first
// so "банк россии" wins over "банк" at the same position.
func NewLexiconExtractor(lexicon []config.EntityLexeme, bankingKeywords []string) *LexiconExtractor {
	var entries []lexiconEntry
	for _, lex := range lexicon {
		typ := domain.EntityType(strings.ToLower(lex.Type))
		switch typ {
		case domain.EntityPerson, domain.EntityOrganization, domain.EntityLocation:
		default:
			typ = domain.EntityOrganization
		}
		for _, alias := range lex.Aliases {
			alias = strings.ToLower(strings.TrimSpace(alias))
			if alias == "" {
				continue
			}
			entries = append(entries, lexiconEntry{
				alias:     alias,
				canonical: lex.Canonical,
				typ:       typ,
			})
		}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return len(entries[i].alias) > len(entries[j].alias)
	})

	banking := make([]string, 0, len(bankingKeywords))
	for _, kw := range bankingKeywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" {
			banking = append(banking, kw)
		}
	}
	return &LexiconExtractor{entries: entries, banking: banking}
}

// Extract finds lexicon entities in text. One canonical entity is reported
// at most once, at its first occurrence; results come back ordered by
// position.
func (e *LexiconExtractor) Extract(_ context.Context, text string) ([]domain.ExtractedEntity, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	lower := strings.ToLower(text)

	seen := make(map[string]struct{})
	var out []domain.ExtractedEntity
	for _, entry := range e.entries {
		if _, ok := seen[entry.canonical]; ok {
			continue
		}
		pos, ok := findWholeWord(lower, entry.alias)
		if !ok {
			continue
		}
		seen[entry.canonical] = struct{}{}
		out = append(out, domain.ExtractedEntity{
			Text:       text[pos : pos+len(entry.alias)],
			Normalized: strings.ToLower(entry.canonical),
			Type:       entry.typ,
			Position:   pos,
		})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

// IsBanking reports whether an entity mention relates to the banking domain,
// judged by keyword containment over its surface and normalized forms.
func (e *LexiconExtractor) IsBanking(entity domain.ExtractedEntity) bool {
	text := strings.ToLower(entity.Text)
	norm := strings.ToLower(entity.Normalized)
	for _, kw := range e.banking {
		if strings.Contains(text, kw) || strings.Contains(norm, kw) {
			return true
		}
	}
	return false
}

// findWholeWord locates word in text with word boundaries on both sides.
// Boundaries are checked on runes because \b in Go regexp is ASCII-only.
func findWholeWord(text, word string) (int, bool) {
	if word == "" || len(word) > len(text) {
		return 0, false
	}
	for from := 0; ; {
		idx := strings.Index(text[from:], word)
		if idx < 0 {
			return 0, false
		}
		start := from + idx
		end := start + len(word)
		if runeBoundary(text, start, true) && runeBoundary(text, end, false) {
			return start, true
		}
		from = start + 1
	}
}

func runeBoundary(text string, pos int, before bool) bool {
	if before {
		if pos == 0 {
			return true
		}
		r, _ := utf8.DecodeLastRuneInString(text[:pos])
		return !isWordRune(r)
	}
	if pos >= len(text) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(text[pos:])
	return !isWordRune(r)
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}
