package corpus

import (
	"context"
	"sort"

	"github.com/finradar/newsrank/internal/domain"
)

// Stats describes the stored corpus.
type Stats struct {
	Documents     int            `json:"documents"`
	WithEmbedding int            `json:"with_embedding"`
	Entities      int            `json:"entities"`
	BySource      map[string]int `json:"by_source"`
	ByCategory    map[string]int `json:"by_category"`
}

// EntityCount is one normalized entity with its mention count.
type EntityCount struct {
	Normalized string `json:"normalized"`
	Type       string `json:"type"`
	Count      int    `json:"count"`
}

// EntityStats summarizes extracted entities across the corpus.
type EntityStats struct {
	Total   int            `json:"total"`
	Banking int            `json:"banking"`
	ByType  map[string]int `json:"by_type"`
	Top     []EntityCount  `json:"top"`
}

// Stats computes corpus statistics from the current snapshot.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	snap, err := s.Snapshot(ctx, "")
	if err != nil {
		return nil, err
	}

	stats := &Stats{
		Documents:  len(snap.Documents),
		BySource:   make(map[string]int),
		ByCategory: make(map[string]int),
	}
	for _, doc := range snap.Documents {
		if doc.Source != "" {
			stats.BySource[doc.Source]++
		}
		if doc.Category != "" {
			stats.ByCategory[doc.Category]++
		}
		if len(doc.Embedding) > 0 {
			stats.WithEmbedding++
		}
	}
	for _, ents := range snap.Entities {
		stats.Entities += len(ents)
	}
	return stats, nil
}

// EntityStats aggregates entity mentions, most frequent first. topN bounds
// the Top list; topN <= 0 means 20.
func (s *Store) EntityStats(ctx context.Context, topN int) (*EntityStats, error) {
	snap, err := s.Snapshot(ctx, "")
	if err != nil {
		return nil, err
	}
	if topN <= 0 {
		topN = 20
	}

	type key struct {
		normalized string
		typ        domain.EntityType
	}
	counts := make(map[key]int)

	stats := &EntityStats{ByType: make(map[string]int)}
	for _, ents := range snap.Entities {
		for _, e := range ents {
			stats.Total++
			stats.ByType[string(e.Type)]++
			if e.IsBanking {
				stats.Banking++
			}
			norm := e.Normalized
			if norm == "" {
				norm = e.Text
			}
			counts[key{normalized: norm, typ: e.Type}]++
		}
	}

	top := make([]EntityCount, 0, len(counts))
	for k, n := range counts {
		top = append(top, EntityCount{Normalized: k.normalized, Type: string(k.typ), Count: n})
	}
	sort.Slice(top, func(i, j int) bool {
		if top[i].Count != top[j].Count {
			return top[i].Count > top[j].Count
		}
		return top[i].Normalized < top[j].Normalized
	})
	if len(top) > topN {
		top = top[:topN]
	}
	stats.Top = top
	return stats, nil
}
