package domain

import "context"

// Embedder is the shared text vectorization contract between layers.
// Implementations return a normalized vector of a fixed dimensionality.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// EmbeddingResult carries the embedding vector and token usage.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// Morphology expands a word into its inflected and lemma surface forms.
// The production model lives outside this module; tests use static tables.
type Morphology interface {
	FormsOf(word string) []string
}

// ExtractedEntity is a typed span produced by the entity extractor.
type ExtractedEntity struct {
	Text       string
	Normalized string
	Type       EntityType
	Position   int
}

// EntityExtractor finds named entities in free text. A failed extraction is
// reported as an error by implementations; callers treat it as an empty set.
type EntityExtractor interface {
	Extract(ctx context.Context, text string) ([]ExtractedEntity, error)
}
