package search

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/finradar/newsrank/internal/domain"
)

// Positional weights. Phrase terms carry more evidence than single tokens,
// and a title hit outweighs a description hit, which outweighs a body hit.
const (
	titleWeight       = 5.0
	descriptionWeight = 1.5
	fullTextWeight    = 1.0

	phraseTitleWeight       = 10.0
	phraseDescriptionWeight = 3.0
	phraseFullTextWeight    = 2.0

	// nerMultiplier scales the contribution of terms that coincide with a
	// named entity extracted from the query.
	nerMultiplier = 5.0

	// multiMatchStep grows the title boost per matched term beyond the first.
	multiMatchStep = 0.3

	// entityMatchStep grows the boost per stored entity equal to a query entity.
	entityMatchStep = 0.4

	minTermRunes = 3
)

// expandQuery performs query expansion. Phrase-level synonyms short-circuit:
// when the query contains a known multi-word domain phrase, only that
// phrase's canonical variants are searched. Otherwise individual tokens are
// expanded through the per-term synonym table.
func (s *Service) expandQuery(query string) []string {
	lowered := strings.ToLower(query)

	for _, phrase := range sortedKeys(s.cfg.PhraseSynonyms) {
		if strings.Contains(lowered, phrase) {
			return append([]string(nil), s.cfg.PhraseSynonyms[phrase]...)
		}
	}

	words := strings.Fields(lowered)
	seen := make(map[string]struct{}, len(words))
	expanded := make([]string, 0, len(words))

	add := func(term string) {
		if _, ok := seen[term]; ok {
			return
		}
		seen[term] = struct{}{}
		expanded = append(expanded, term)
	}

	for _, w := range words {
		add(w)
	}
	synKeys := sortedKeys(s.cfg.Synonyms)
	for _, w := range words {
		for _, key := range synKeys {
			if w == key || strings.Contains(w, key) {
				for _, v := range s.cfg.Synonyms[key] {
					add(v)
				}
			}
		}
	}

	return expanded
}

// dropStopTerms removes stop words and terms shorter than three runes.
func (s *Service) dropStopTerms(terms []string) []string {
	kept := terms[:0]
	for _, t := range terms {
		if _, stop := s.stop[t]; stop {
			continue
		}
		if utf8.RuneCountInString(t) < minTermRunes {
			continue
		}
		kept = append(kept, t)
	}
	return kept
}

// formsOf returns the morphological surface forms of a term, always
// including the term itself.
func (s *Service) formsOf(term string) []string {
	forms := []string{term}
	if s.morph == nil {
		return forms
	}

	seen := map[string]struct{}{term: {}}
	for _, f := range s.morph.FormsOf(term) {
		f = strings.ToLower(f)
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		forms = append(forms, f)
	}
	return forms
}

// lexicalScores computes the normalized keyword channel for the whole corpus.
// An empty map means the channel is absent, not zero: fusion then falls back
// to the semantic channel alone.
func (s *Service) lexicalScores(query string, queryNER map[string]struct{}, corp *domain.Corpus) map[string]float64 {
	terms := s.dropStopTerms(s.expandQuery(query))
	if len(terms) == 0 {
		return nil
	}

	formsByTerm := make(map[string][]string, len(terms))
	for _, t := range terms {
		formsByTerm[t] = s.formsOf(t)
	}

	raw := make(map[string]float64)
	for i := range corp.Documents {
		doc := &corp.Documents[i]

		var score float64
		matchedInTitle := 0

		for _, term := range terms {
			forms := formsByTerm[term]
			inTitle := anyFormMatches(forms, doc.Title)
			inDesc := anyFormMatches(forms, doc.Description)
			inText := anyFormMatches(forms, doc.FullText)
			if !inTitle && !inDesc && !inText {
				continue
			}

			tw, dw, xw := titleWeight, descriptionWeight, fullTextWeight
			if strings.ContainsRune(term, ' ') {
				tw, dw, xw = phraseTitleWeight, phraseDescriptionWeight, phraseFullTextWeight
			}

			mult := 1.0
			if _, isEntity := queryNER[term]; isEntity {
				mult = nerMultiplier
			}

			if inTitle {
				score += tw * mult
				matchedInTitle++
			}
			if inDesc {
				score += dw * mult
			}
			if inText {
				score += xw * mult
			}
		}

		if score == 0 {
			continue
		}

		if matchedInTitle >= 2 {
			score *= 1.0 + float64(matchedInTitle-1)*multiMatchStep
		}

		if len(queryNER) > 0 {
			if matches := s.storedEntityMatches(queryNER, corp.EntitiesOf(doc.ID)); matches > 0 {
				score *= 1.0 + float64(matches)*entityMatchStep
			}
		}

		raw[doc.ID] = score
	}

	normalizeByMax(raw)
	return raw
}

// storedEntityMatches counts distinct stored entities whose normalized form
// equals a normalized entity extracted from the query.
func (s *Service) storedEntityMatches(queryNER map[string]struct{}, entities []domain.Entity) int {
	matched := make(map[string]struct{})
	for _, e := range entities {
		norm := strings.ToLower(e.Normalized)
		if _, ok := queryNER[norm]; ok {
			matched[norm] = struct{}{}
		}
	}
	return len(matched)
}

// normalizeByMax scales raw scores into [0,1]. The denominator never drops
// below 1, so an all-zero channel cannot divide by zero.
func normalizeByMax(scores map[string]float64) {
	max := 0.0
	for _, v := range scores {
		if v > max {
			max = v
		}
	}
	if max < 1 {
		max = 1
	}
	for id := range scores {
		scores[id] /= max
	}
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
