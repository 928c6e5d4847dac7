// Package rss fetches news items from RSS 2.0 feeds.
package rss

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/finradar/newsrank/internal/usecase/ingest"
)

const (
	userAgent       = "newsrank/1.0"
	maxResponseSize = 10 << 20 // 10 MiB
)

// Fetcher pulls RSS 2.0 feeds over HTTP.
type Fetcher struct {
	client *http.Client
	logger *zap.Logger
}

// NewFetcher creates a feed fetcher with its own request timeout.
func NewFetcher(timeout time.Duration, logger *zap.Logger) *Fetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Fetcher{
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

type rssDocument struct {
	Channel struct {
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Description string `xml:"description"`
	Link        string `xml:"link"`
	PubDate     string `xml:"pubDate"`
	Encoded     string `xml:"encoded"` // content:encoded full text, when present
}

// Fetch implements ingest.Fetcher.
func (f *Fetcher) Fetch(ctx context.Context, src ingest.Source, limit int) ([]ingest.FeedItem, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request for %s: %w", src.Name, err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", src.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d", src.Name, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", src.Name, err)
	}

	var doc rssDocument
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", src.Name, err)
	}

	items := doc.Channel.Items
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}

	out := make([]ingest.FeedItem, 0, len(items))
	for _, item := range items {
		out = append(out, ingest.FeedItem{
			Title:       item.Title,
			Description: item.Description,
			Link:        item.Link,
			Published:   item.PubDate,
			FullText:    item.Encoded,
		})
	}
	f.logger.Debug("feed fetched",
		zap.String("source", src.Name),
		zap.Int("items", len(out)))
	return out, nil
}
