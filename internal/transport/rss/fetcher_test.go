package rss

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/finradar/newsrank/internal/usecase/ingest"
)

const sampleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:content="http://purl.org/rss/1.0/modules/content/">
<channel>
<title>Тестовая лента</title>
<item>
<title>ЦБ сохранил ключевую ставку</title>
<description>Совет директоров оставил ставку на уровне 16%</description>
<link>https://example.com/news/1</link>
<pubDate>Tue, 10 Jun 2025 09:00:00 +0300</pubDate>
<content:encoded>Полный текст новости о решении регулятора.</content:encoded>
</item>
<item>
<title>Сбербанк отчитался о прибыли</title>
<description>Чистая прибыль выросла</description>
<link>https://example.com/news/2</link>
<pubDate>Tue, 10 Jun 2025 08:00:00 +0300</pubDate>
</item>
<item>
<title>Третья новость</title>
<link>https://example.com/news/3</link>
</item>
</channel>
</rss>`

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("User-Agent"); got != userAgent {
			t.Errorf("unexpected user agent %q", got)
		}
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(sampleFeed))
	}))
	defer srv.Close()

	f := NewFetcher(5*time.Second, zap.NewNop())
	items, err := f.Fetch(context.Background(), ingest.Source{Name: "test", URL: srv.URL}, 0)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("got %d items, want 3", len(items))
	}

	first := items[0]
	if first.Title != "ЦБ сохранил ключевую ставку" {
		t.Errorf("unexpected title %q", first.Title)
	}
	if first.Link != "https://example.com/news/1" {
		t.Errorf("unexpected link %q", first.Link)
	}
	if first.Published != "Tue, 10 Jun 2025 09:00:00 +0300" {
		t.Errorf("unexpected pubDate %q", first.Published)
	}
	if first.FullText != "Полный текст новости о решении регулятора." {
		t.Errorf("content:encoded not captured: %q", first.FullText)
	}
	if items[1].FullText != "" {
		t.Errorf("expected empty full text for item without content:encoded")
	}
}

func TestFetchLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sampleFeed))
	}))
	defer srv.Close()

	f := NewFetcher(5*time.Second, zap.NewNop())
	items, err := f.Fetch(context.Background(), ingest.Source{Name: "test", URL: srv.URL}, 2)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("got %d items, want limit 2", len(items))
	}
}

func TestFetchHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	f := NewFetcher(5*time.Second, zap.NewNop())
	if _, err := f.Fetch(context.Background(), ingest.Source{Name: "test", URL: srv.URL}, 0); err == nil {
		t.Fatal("expected error for non-200 response")
	}
}

func TestFetchMalformedXML(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<rss><channel><item>"))
	}))
	defer srv.Close()

	f := NewFetcher(5*time.Second, zap.NewNop())
	if _, err := f.Fetch(context.Background(), ingest.Source{Name: "test", URL: srv.URL}, 0); err == nil {
		t.Fatal("expected error for malformed feed")
	}
}
