package corpus

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"

	"go.uber.org/zap"

	"github.com/finradar/newsrank/internal/domain"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open("", true, zap.NewNop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleDocs() ([]domain.Document, map[string][]domain.Entity) {
	docs := []domain.Document{
		{ID: "n2", ContentHash: "h2", Source: "РБК", Category: "economy", Title: "Сбербанк повысил ставки"},
		{ID: "n1", ContentHash: "h1", Source: "ТАСС", Category: "finance", Title: "ЦБ сохранил ключевую ставку", Embedding: []float32{0.1, 0.2}},
	}
	entities := map[string][]domain.Entity{
		"n1": {{NewsID: "n1", Text: "ЦБ", Normalized: "цб", Type: domain.EntityOrganization, IsBanking: true}},
		"n2": {{NewsID: "n2", Text: "Сбербанк", Normalized: "сбербанк", Type: domain.EntityOrganization, IsBanking: true}},
	}
	return docs, entities
}

func TestAppendBatchAndSnapshot(t *testing.T) {
	s := openTestStore(t)
	docs, entities := sampleDocs()

	added, skipped, err := s.AppendBatch(context.Background(), docs, entities)
	if err != nil {
		t.Fatalf("AppendBatch: %v", err)
	}
	if added != 2 || skipped != 0 {
		t.Fatalf("added=%d skipped=%d, want 2/0", added, skipped)
	}

	snap, err := s.Snapshot(context.Background(), "")
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if len(snap.Documents) != 2 {
		t.Fatalf("snapshot has %d documents, want 2", len(snap.Documents))
	}
	// Snapshot order is sorted by ID regardless of insertion order.
	if snap.Documents[0].ID != "n1" || snap.Documents[1].ID != "n2" {
		t.Fatalf("snapshot order = [%s %s], want [n1 n2]", snap.Documents[0].ID, snap.Documents[1].ID)
	}
	if len(snap.EntitiesOf("n1")) != 1 {
		t.Fatalf("n1 entities = %v, want 1 entry", snap.EntitiesOf("n1"))
	}
}

func TestSnapshotCategoryFilter(t *testing.T) {
	s := openTestStore(t)
	docs, entities := sampleDocs()
	if _, _, err := s.AppendBatch(context.Background(), docs, entities); err != nil {
		t.Fatalf("AppendBatch: %v", err)
	}

	snap, err := s.Snapshot(context.Background(), "finance")
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if len(snap.Documents) != 1 || snap.Documents[0].ID != "n1" {
		t.Fatalf("filtered snapshot = %v, want only n1", snap.Documents)
	}
	if _, ok := snap.Entities["n2"]; ok {
		t.Fatal("filtered snapshot leaked entities of another category")
	}
}

func TestAppendBatchDeduplicatesByContentHash(t *testing.T) {
	s := openTestStore(t)
	docs, entities := sampleDocs()
	if _, _, err := s.AppendBatch(context.Background(), docs, entities); err != nil {
		t.Fatalf("AppendBatch: %v", err)
	}

	// Same content under a new ID, plus an intra-batch duplicate pair.
	again := []domain.Document{
		{ID: "n3", ContentHash: "h1", Title: "repost"},
		{ID: "n4", ContentHash: "h9", Title: "fresh"},
		{ID: "n5", ContentHash: "h9", Title: "fresh repost"},
	}
	added, skipped, err := s.AppendBatch(context.Background(), again, nil)
	if err != nil {
		t.Fatalf("AppendBatch: %v", err)
	}
	if added != 1 || skipped != 2 {
		t.Fatalf("added=%d skipped=%d, want 1/2", added, skipped)
	}

	has, err := s.HasContentHash(context.Background(), "h9")
	if err != nil || !has {
		t.Fatalf("HasContentHash(h9) = %v, %v, want true", has, err)
	}
}

func TestDeleteRemovesEntitiesAndHash(t *testing.T) {
	s := openTestStore(t)
	docs, entities := sampleDocs()
	if _, _, err := s.AppendBatch(context.Background(), docs, entities); err != nil {
		t.Fatalf("AppendBatch: %v", err)
	}

	if err := s.Delete(context.Background(), "n1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if _, _, err := s.Get(context.Background(), "n1"); !errors.Is(err, domain.ErrDocumentNotFound) {
		t.Fatalf("Get after delete = %v, want ErrDocumentNotFound", err)
	}
	snap, _ := s.Snapshot(context.Background(), "")
	if _, ok := snap.Entities["n1"]; ok {
		t.Fatal("entities survived document deletion")
	}
	has, err := s.HasContentHash(context.Background(), "h1")
	if err != nil || has {
		t.Fatalf("HasContentHash(h1) after delete = %v, %v, want false", has, err)
	}

	if err := s.Delete(context.Background(), "absent"); !errors.Is(err, domain.ErrDocumentNotFound) {
		t.Fatalf("Delete(absent) = %v, want ErrDocumentNotFound", err)
	}
}

func TestStats(t *testing.T) {
	s := openTestStore(t)
	docs, entities := sampleDocs()
	if _, _, err := s.AppendBatch(context.Background(), docs, entities); err != nil {
		t.Fatalf("AppendBatch: %v", err)
	}

	stats, err := s.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Documents != 2 || stats.WithEmbedding != 1 || stats.Entities != 2 {
		t.Fatalf("stats = %+v, want 2 docs, 1 embedded, 2 entities", stats)
	}
	if stats.BySource["ТАСС"] != 1 || stats.ByCategory["economy"] != 1 {
		t.Fatalf("stats breakdowns = %+v", stats)
	}
}

func TestEntityStats(t *testing.T) {
	s := openTestStore(t)
	docs, entities := sampleDocs()
	entities["n2"] = append(entities["n2"], domain.Entity{
		NewsID: "n2", Text: "Москва", Normalized: "москва", Type: domain.EntityLocation,
	})
	if _, _, err := s.AppendBatch(context.Background(), docs, entities); err != nil {
		t.Fatalf("AppendBatch: %v", err)
	}

	stats, err := s.EntityStats(context.Background(), 2)
	if err != nil {
		t.Fatalf("EntityStats: %v", err)
	}
	if stats.Total != 3 || stats.Banking != 2 {
		t.Fatalf("total=%d banking=%d, want 3/2", stats.Total, stats.Banking)
	}
	if stats.ByType[string(domain.EntityOrganization)] != 2 {
		t.Fatalf("by_type = %v, want 2 organizations", stats.ByType)
	}
	if len(stats.Top) != 2 {
		t.Fatalf("top has %d entries, want 2 (capped)", len(stats.Top))
	}
}

func TestSnapshotIsolationUnderAppend(t *testing.T) {
	s := openTestStore(t)
	docs, entities := sampleDocs()
	if _, _, err := s.AppendBatch(context.Background(), docs, entities); err != nil {
		t.Fatalf("AppendBatch: %v", err)
	}

	before, err := s.Snapshot(context.Background(), "")
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 20; i++ {
			doc := domain.Document{
				ID:          fmt.Sprintf("x%02d", i),
				ContentHash: fmt.Sprintf("xh%02d", i),
				Title:       "новая новость",
			}
			if _, _, err := s.AppendBatch(context.Background(), []domain.Document{doc}, nil); err != nil {
				t.Errorf("concurrent AppendBatch: %v", err)
				return
			}
		}
	}()

	// The snapshot handed out before the writes never changes under them.
	for i := 0; i < 50; i++ {
		if len(before.Documents) != 2 {
			t.Fatalf("old snapshot mutated: %d documents", len(before.Documents))
		}
		if _, err := s.Snapshot(context.Background(), ""); err != nil {
			t.Fatalf("Snapshot during writes: %v", err)
		}
	}
	<-done

	after, err := s.Snapshot(context.Background(), "")
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if len(after.Documents) != 22 {
		t.Fatalf("final snapshot has %d documents, want 22", len(after.Documents))
	}
	if !sort.SliceIsSorted(after.Documents, func(i, j int) bool {
		return after.Documents[i].ID < after.Documents[j].ID
	}) {
		t.Fatal("final snapshot not sorted by ID")
	}
}
