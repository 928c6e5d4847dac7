package domain

import "time"

// Document is a stored news item. Documents are created by ingestion and never
// mutated afterwards except for embedding backfills.
type Document struct {
	ID          string
	ContentHash string
	Source      string
	Category    string
	Title       string
	Description string
	Link        string
	Published   string // free-form feed date, parsed lazily by recency/feature code
	FullText    string
	Embedding   []float32 // L2-normalized, one dimensionality per corpus
	FetchedAt   time.Time
}

// EntityType classifies a named entity.
type EntityType string

const (
	EntityPerson       EntityType = "person"
	EntityOrganization EntityType = "organization"
	EntityLocation     EntityType = "location"
)

// Entity is a named entity extracted from a document. Entities are written
// once per document and are immutable; they are removed with their document.
type Entity struct {
	NewsID     string
	Text       string
	Normalized string
	Type       EntityType
	Position   int
	IsBanking  bool
}
