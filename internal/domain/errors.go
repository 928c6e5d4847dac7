package domain

import "errors"

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrDocumentNotFound signals a missing document.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrDuplicateDocument signals a content-hash collision on append.
	ErrDuplicateDocument = errors.New("duplicate document")
	// ErrVectorDimMismatch signals an embedding dimension mismatch.
	// A mismatched vector is corruption, never silently coerced.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrModelNotLoaded signals that no ranking model artifact is loaded.
	ErrModelNotLoaded = errors.New("ranking model not loaded")
	// ErrNotEnoughExamples signals a training set below the configured minimum.
	ErrNotEnoughExamples = errors.New("not enough labeled examples")
	// ErrInvalidLabel signals a relevance label outside 0..3.
	ErrInvalidLabel = errors.New("invalid relevance label")
	// ErrEmptyQuery signals a blank search query.
	ErrEmptyQuery = errors.New("empty query")
)
