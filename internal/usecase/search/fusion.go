package search

import (
	"sort"
	"strings"
	"time"

	"github.com/finradar/newsrank/internal/domain"
	"github.com/finradar/newsrank/internal/domain/pubdate"
)

// Channel blend. Keyword evidence dominates; the semantic channel refines.
const (
	lexicalShare  = 0.85
	semanticShare = 0.15
)

// fuse combines the lexical and semantic channels into base-ranked candidates.
//
// When the lexical channel produced any hit, only lexically matched documents
// survive: surfacing vector-only hits dilutes precision and stays off unless
// explicitly configured. When the lexical channel is absent entirely, the
// semantic channel alone carries the ranking. Documents with neither signal
// are always excluded.
//
// Ties on the fused score break by ascending document ID, keeping repeated
// searches byte-identical.
func (s *Service) fuse(
	lex, sem map[string]float64,
	queryNER map[string]struct{},
	corp *domain.Corpus,
	now time.Time,
) []domain.Candidate {
	semanticOnly := len(lex) == 0

	candidates := make([]domain.Candidate, 0, len(lex))
	for i := range corp.Documents {
		doc := &corp.Documents[i]
		l := lex[doc.ID]
		sm := sem[doc.ID]

		var base float64
		switch {
		case l > 0:
			base = lexicalShare*l + semanticShare*sm
		case (semanticOnly || s.cfg.IncludeVectorOnly) && sm > 0:
			base = sm
		default:
			continue
		}

		entities := corp.EntitiesOf(doc.ID)
		recency := pubdate.Boost(doc.Published, now)

		candidates = append(candidates, domain.Candidate{
			Document:         *doc,
			Entities:         entities,
			Lexical:          l,
			Semantic:         sm,
			EntityOverlap:    domain.Jaccard(queryNER, normalizedEntitySet(entities)),
			RecencyBoost:     recency,
			Fused:            base * recency,
			CriticalKeywords: keywordHits(doc, s.cfg.Critical),
			HighKeywords:     keywordHits(doc, s.cfg.High),
			IsExcluded:       keywordHits(doc, s.cfg.Exclude) > 0,
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Fused != candidates[j].Fused {
			return candidates[i].Fused > candidates[j].Fused
		}
		return candidates[i].Document.ID < candidates[j].Document.ID
	})

	return candidates
}

// normalizedEntitySet lowercases a document's normalized entity lemmas.
func normalizedEntitySet(entities []domain.Entity) map[string]struct{} {
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

// keywordHits counts keyword occurrences from one tier in title+description.
// Observability only: the relevance boost for these is neutralized at 1.0.
func keywordHits(doc *domain.Document, keywords []string) int {
	if len(keywords) == 0 {
		return 0
	}
	text := strings.ToLower(doc.Title + " " + doc.Description)
	count := 0
	for _, kw := range keywords {
		if strings.Contains(text, strings.ToLower(kw)) {
			count++
		}
	}
	return count
}
