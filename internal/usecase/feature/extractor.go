// Package feature computes the fixed feature vector for (query, candidate)
// pairs. The same extractor instance serves both offline dataset generation
// and online model scoring; a second implementation of these formulas would
// be a correctness bug, because the model only ever sees one of them at
// training time.
package feature

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/finradar/newsrank/internal/domain"
	domfeature "github.com/finradar/newsrank/internal/domain/feature"
	"github.com/finradar/newsrank/internal/domain/pubdate"
)

// Morphology expands a word into its inflected surface forms.
type Morphology interface {
	FormsOf(word string) []string
}

// Config holds the source authority allowlists.
type Config struct {
	HighAuthority   []string
	MediumAuthority []string
}

// Extractor computes feature vectors.
type Extractor struct {
	morph Morphology
	cfg   Config
	now   func() time.Time
}

// NewExtractor creates a feature extractor.
func NewExtractor(morph Morphology, cfg Config) *Extractor {
	return &Extractor{morph: morph, cfg: cfg, now: time.Now}
}

// WithClock overrides the time source used for the days_ago feature.
func (e *Extractor) WithClock(now func() time.Time) *Extractor {
	if now != nil {
		e.now = now
	}
	return e
}

// Extract computes the feature vector for one (query, candidate) pair.
// queryNER is the normalized entity lemma set of the query, shared with the
// retrieval pipeline so the ner_overlap feature matches the fusion boost.
func (e *Extractor) Extract(query string, queryNER map[string]struct{}, cand *domain.Candidate) domfeature.Vector {
	doc := &cand.Document
	queryLower := strings.ToLower(query)
	terms := strings.Fields(queryLower)
	titleDesc := strings.ToLower(doc.Title + " " + doc.Description)

	exact := 0.0
	if queryLower != "" && strings.Contains(strings.ToLower(doc.Title), queryLower) {
		exact = 1.0
	}

	return domfeature.Vector{
		EmbeddingScore:  cand.Semantic,
		BM25Score:       termPresenceFraction(terms, titleDesc),
		NEROverlap:      domain.Jaccard(queryNER, entitySet(cand.Entities)),
		MorphoMatch:     e.morphoMatchFraction(terms, titleDesc),
		TitleMatch:      tokenJaccard(terms, strings.Fields(strings.ToLower(doc.Title))),
		ExactMatch:      exact,
		DaysAgo:         pubdate.DaysAgo(doc.Published, e.now()),
		SourceAuthority: e.sourceAuthority(doc.Source),
		TextLength:      float64(utf8.RuneCountInString(doc.Title) + utf8.RuneCountInString(doc.Description)),
	}
}

// termPresenceFraction approximates BM25 as the fraction of query terms
// literally present anywhere in the text.
func termPresenceFraction(terms []string, text string) float64 {
	unique := uniqueTerms(terms)
	if len(unique) == 0 {
		return 0
	}
	matches := 0
	for _, t := range unique {
		if strings.Contains(text, t) {
			matches++
		}
	}
	return float64(matches) / float64(len(unique))
}

// morphoMatchFraction is the fraction of query terms whose surface form or
// lemma appears in the text.
func (e *Extractor) morphoMatchFraction(terms []string, text string) float64 {
	if len(terms) == 0 {
		return 0
	}
	matches := 0
	for _, t := range terms {
		if strings.Contains(text, t) {
			matches++
			continue
		}
		if e.morph == nil {
			continue
		}
		for _, form := range e.morph.FormsOf(t) {
			if strings.Contains(text, strings.ToLower(form)) {
				matches++
				break
			}
		}
	}
	return float64(matches) / float64(len(terms))
}

// tokenJaccard is the Jaccard similarity of two token lists as sets.
func tokenJaccard(a, b []string) float64 {
	return domain.Jaccard(toSet(a), toSet(b))
}

func (e *Extractor) sourceAuthority(source string) float64 {
	lowered := strings.ToLower(source)
	for _, s := range e.cfg.HighAuthority {
		if strings.Contains(lowered, strings.ToLower(s)) {
			return 1.0
		}
	}
	for _, s := range e.cfg.MediumAuthority {
		if strings.Contains(lowered, strings.ToLower(s)) {
			return 0.5
		}
	}
	return 0.0
}

func entitySet(entities []domain.Entity) map[string]struct{} {
	if len(entities) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(entities))
	for _, e := range entities {
		if e.Normalized != "" {
			set[strings.ToLower(e.Normalized)] = struct{}{}
		}
	}
	return set
}

func toSet(tokens []string) map[string]struct{} {
	if len(tokens) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}

func uniqueTerms(terms []string) []string {
	seen := make(map[string]struct{}, len(terms))
	out := terms[:0:0]
	for _, t := range terms {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
