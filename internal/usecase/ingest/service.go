// Package ingest polls configured news feeds in the background, cleans the
// raw items, embeds and entity-tags them, and appends them to the corpus.
// One bad item never fails a batch; one bad source never fails a run.
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"html"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/finradar/newsrank/internal/domain"
	"github.com/finradar/newsrank/internal/domain/pubdate"
	"github.com/finradar/newsrank/internal/metrics"
)

// Config holds the ingestion settings.
type Config struct {
	Interval           time.Duration
	InitialDelay       time.Duration
	LimitPerSource     int
	MaxConcurrentEmbed int
	MaxAgeDays         int
	DedupeCapacity     int
	DedupeTTL          time.Duration
	Sources            []Source
}

// Service runs the ingestion pipeline.
type Service struct {
	fetcher Fetcher
	store   CorpusWriter
	embed   domain.Embedder
	ner     EntityMarker
	cfg     Config
	cache   *dedupeCache
	pool    *ants.Pool
	logger  *zap.Logger
	now     func() time.Time
}

// New creates an ingestion service with a bounded embedding worker pool.
func New(fetcher Fetcher, store CorpusWriter, embed domain.Embedder, ner EntityMarker, cfg Config, logger *zap.Logger) (*Service, error) {
	if cfg.LimitPerSource <= 0 {
		cfg.LimitPerSource = 50
	}
	if cfg.MaxConcurrentEmbed <= 0 {
		cfg.MaxConcurrentEmbed = 5
	}
	if cfg.DedupeCapacity <= 0 {
		cfg.DedupeCapacity = 10000
	}
	if cfg.DedupeTTL <= 0 {
		cfg.DedupeTTL = 24 * time.Hour
	}

	pool, err := ants.NewPool(cfg.MaxConcurrentEmbed)
	if err != nil {
		return nil, fmt.Errorf("create embedding pool: %w", err)
	}
	return &Service{
		fetcher: fetcher,
		store:   store,
		embed:   embed,
		ner:     ner,
		cfg:     cfg,
		cache:   newDedupeCache(cfg.DedupeCapacity, cfg.DedupeTTL),
		pool:    pool,
		logger:  logger,
		now:     time.Now,
	}, nil
}

// WithClock overrides the time source for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	if now != nil {
		s.now = now
		s.cache.now = now
	}
	return s
}

// Close releases the worker pool.
func (s *Service) Close() {
	s.pool.Release()
}

// Run polls all sources on the configured interval until the context is
// canceled. The initial delay lets the HTTP server come up first.
func (s *Service) Run(ctx context.Context) {
	if s.cfg.InitialDelay > 0 {
		select {
		case <-ctx.Done():
			return
		case <-time.After(s.cfg.InitialDelay):
		}
	}

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	s.RunOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce performs one full pass over all sources. A failing source is
// logged and skipped.
func (s *Service) RunOnce(ctx context.Context) {
	start := s.now()
	totalAdded := 0

	for _, src := range s.cfg.Sources {
		added, err := s.ingestSource(ctx, src)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.logger.Warn("source ingestion failed",
				zap.String("source", src.Name),
				zap.Error(err))
			continue
		}
		totalAdded += added
	}

	metrics.IngestRunDuration.Observe(time.Since(start).Seconds())
	s.logger.Info("ingestion pass finished",
		zap.Int("sources", len(s.cfg.Sources)),
		zap.Int("added", totalAdded),
		zap.Duration("took", time.Since(start)))
}

func (s *Service) ingestSource(ctx context.Context, src Source) (int, error) {
	items, err := s.fetcher.Fetch(ctx, src, s.cfg.LimitPerSource)
	if err != nil {
		return 0, fmt.Errorf("fetch %s: %w", src.Name, err)
	}

	var docs []domain.Document
	for _, item := range items {
		doc, ok := s.prepare(item, src)
		if !ok {
			continue
		}

		dup, err := s.store.HasContentHash(ctx, doc.ContentHash)
		if err != nil {
			return 0, err
		}
		if dup {
			s.cache.markSeen(doc.ContentHash)
			metrics.IngestDocumentsTotal.WithLabelValues(src.Name, "duplicate").Inc()
			continue
		}
		docs = append(docs, doc)
	}
	if len(docs) == 0 {
		return 0, nil
	}

	s.embedAll(ctx, docs)
	entities := s.extractEntities(ctx, docs)

	added, skipped, err := s.store.AppendBatch(ctx, docs, entities)
	if err != nil {
		return 0, fmt.Errorf("append batch for %s: %w", src.Name, err)
	}
	for _, doc := range docs {
		s.cache.markSeen(doc.ContentHash)
	}

	metrics.IngestDocumentsTotal.WithLabelValues(src.Name, "stored").Add(float64(added))
	if skipped > 0 {
		metrics.IngestDocumentsTotal.WithLabelValues(src.Name, "duplicate").Add(float64(skipped))
	}
	return added, nil
}

// prepare cleans a raw item and turns it into a document. It reports false
// for items that should be dropped: empty, too old, or recently seen.
func (s *Service) prepare(item FeedItem, src Source) (domain.Document, bool) {
	title, embeddedSource := splitTitleSource(cleanHTML(item.Title))
	if title == "" {
		return domain.Document{}, false
	}

	source := embeddedSource
	if source == "" {
		source = src.Name
	}

	if s.cfg.MaxAgeDays > 0 {
		if t, ok := pubdate.Parse(item.Published); ok {
			if s.now().Sub(t) > time.Duration(s.cfg.MaxAgeDays)*24*time.Hour {
				return domain.Document{}, false
			}
		}
	}

	doc := domain.Document{
		Source:      source,
		Category:    src.Category,
		Title:       title,
		Description: cleanHTML(item.Description),
		Link:        strings.TrimSpace(item.Link),
		Published:   strings.TrimSpace(item.Published),
		FullText:    cleanHTML(item.FullText),
		FetchedAt:   s.now().UTC(),
	}
	doc.ID = hashOf(doc.Link + "|" + doc.Title)[:16]
	doc.ContentHash = hashOf(doc.Title + "|" + doc.Description)

	if s.cache.isSeen(doc.ContentHash) {
		metrics.IngestDocumentsTotal.WithLabelValues(src.Name, "duplicate").Inc()
		return domain.Document{}, false
	}
	return doc, true
}

// embedAll computes embeddings through the bounded worker pool. A failed
// embedding leaves the document without a vector; the lexical channel still
// covers it.
func (s *Service) embedAll(ctx context.Context, docs []domain.Document) {
	var wg sync.WaitGroup
	for i := range docs {
		i := i
		wg.Add(1)
		err := s.pool.Submit(func() {
			defer wg.Done()
			text := docs[i].Title
			if docs[i].Description != "" {
				text += "\n" + docs[i].Description
			}
			result, err := s.embed.Embed(ctx, text)
			if err != nil {
				s.logger.Warn("embedding failed, storing without vector",
					zap.String("id", docs[i].ID),
					zap.Error(err))
				return
			}
			docs[i].Embedding = result.Embedding
		})
		if err != nil {
			wg.Done()
			s.logger.Warn("embedding pool rejected task", zap.Error(err))
		}
	}
	wg.Wait()
}

func (s *Service) extractEntities(ctx context.Context, docs []domain.Document) map[string][]domain.Entity {
	out := make(map[string][]domain.Entity)
	for _, doc := range docs {
		text := doc.Title
		if doc.Description != "" {
			text += "\n" + doc.Description
		}
		extracted, err := s.ner.Extract(ctx, text)
		if err != nil {
			s.logger.Debug("entity extraction failed",
				zap.String("id", doc.ID),
				zap.Error(err))
			continue
		}
		for _, e := range extracted {
			out[doc.ID] = append(out[doc.ID], domain.Entity{
				NewsID:     doc.ID,
				Text:       e.Text,
				Normalized: e.Normalized,
				Type:       e.Type,
				Position:   e.Position,
				IsBanking:  s.ner.IsBanking(e),
			})
		}
	}
	return out
}

var (
	tagRe        = regexp.MustCompile(`<[^>]*>`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// cleanHTML strips markup and collapses whitespace. Feed descriptions often
// arrive as HTML fragments.
func cleanHTML(s string) string {
	s = tagRe.ReplaceAllString(s, " ")
	s = html.UnescapeString(s)
	s = whitespaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// splitTitleSource splits a "Заголовок - Источник" feed title into the bare
// title and the embedded source name. Aggregator feeds append the publisher
// after the last dash; a dash deep inside the title is left alone.
func splitTitleSource(title string) (string, string) {
	for _, sep := range []string{" - ", " — ", " – "} {
		idx := strings.LastIndex(title, sep)
		if idx <= 0 {
			continue
		}
		tail := strings.TrimSpace(title[idx+len(sep):])
		// A real source suffix is short; a long tail is part of the title.
		if tail != "" && len([]rune(tail)) <= 40 && !strings.ContainsAny(tail, ".!?") {
			return strings.TrimSpace(title[:idx]), tail
		}
	}
	return title, ""
}

func hashOf(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
