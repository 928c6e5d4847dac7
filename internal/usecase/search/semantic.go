package search

import (
	"context"
	"math"

	"go.uber.org/zap"

	"github.com/finradar/newsrank/internal/domain"
)

// semanticScores computes cosine similarity between the query embedding and
// every document embedding by full linear scan. The corpus is small enough
// that a scan is cheaper and always fresher than maintaining an index.
// A document without a usable embedding drops out of this channel only.
func (s *Service) semanticScores(ctx context.Context, query string, corp *domain.Corpus) map[string]float64 {
	res, err := s.embed.Embed(ctx, query)
	if err != nil {
		s.logger.Warn("query embedding failed, semantic channel disabled",
			zap.Error(err))
		return nil
	}
	qvec := res.Embedding
	if len(qvec) == 0 {
		return nil
	}

	out := make(map[string]float64, len(corp.Documents))
	for i := range corp.Documents {
		doc := &corp.Documents[i]
		if len(doc.Embedding) == 0 {
			continue
		}
		if len(doc.Embedding) != len(qvec) {
			// Dimension mismatch is stored-data corruption; the document is
			// excluded loudly rather than the vector coerced.
			s.logger.Error("document embedding dimension mismatch",
				zap.String("id", doc.ID),
				zap.Int("doc_dim", len(doc.Embedding)),
				zap.Int("query_dim", len(qvec)),
				zap.Error(domain.ErrVectorDimMismatch))
			continue
		}

		// Negative similarity carries no retrieval evidence and would
		// produce negative fused scores; clamp at zero.
		out[doc.ID] = math.Max(0, cosine(qvec, doc.Embedding))
	}
	return out
}

// cosine computes the cosine similarity of two equal-length vectors.
// Stored embeddings are L2-normalized but the norms are still computed, so a
// denormalized vector degrades gracefully instead of inflating scores.
func cosine(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		av, bv := float64(a[i]), float64(b[i])
		dot += av * bv
		normA += av * av
		normB += bv * bv
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
