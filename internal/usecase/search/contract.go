package search

import (
	"context"

	"github.com/finradar/newsrank/internal/domain"
)

// CorpusReader hands out consistent snapshots of the document store.
type CorpusReader interface {
	Snapshot(ctx context.Context, category string) (*domain.Corpus, error)
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Morphology expands a word into its inflected surface forms.
type Morphology interface {
	FormsOf(word string) []string
}

// EntityExtractor finds named entities in free text.
type EntityExtractor interface {
	Extract(ctx context.Context, text string) ([]domain.ExtractedEntity, error)
}
