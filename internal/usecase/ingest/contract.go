package ingest

import (
	"context"

	"github.com/finradar/newsrank/internal/domain"
)

// FeedItem is one raw item from a news source, before cleanup.
type FeedItem struct {
	Title       string
	Description string
	Link        string
	Published   string
	FullText    string
}

// Source identifies one feed to poll.
type Source struct {
	Name     string
	URL      string
	Category string
}

// Fetcher pulls raw items from one source. limit bounds the number of items
// per poll; implementations return the newest first.
type Fetcher interface {
	Fetch(ctx context.Context, src Source, limit int) ([]FeedItem, error)
}

// CorpusWriter is the slice of the document store ingestion needs.
type CorpusWriter interface {
	HasContentHash(ctx context.Context, hash string) (bool, error)
	AppendBatch(ctx context.Context, docs []domain.Document, entities map[string][]domain.Entity) (added, skipped int, err error)
}

// EntityMarker augments entity extraction with the banking-domain flag.
type EntityMarker interface {
	domain.EntityExtractor
	IsBanking(entity domain.ExtractedEntity) bool
}
