// Package corpus persists the news corpus in BadgerDB and serves immutable
// in-memory snapshots to the ranking pipeline. Retrieval is a full scan over
// the snapshot, so reads never touch disk; writes rebuild the snapshot
// copy-on-write and publish it atomically.
package corpus

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"go.uber.org/zap"

	"github.com/finradar/newsrank/internal/domain"
)

const (
	docPrefix    = "doc:"
	entityPrefix = "ent:"
	hashPrefix   = "hash:"
)

// Store is a badger-backed corpus with an atomically published snapshot.
type Store struct {
	db       *badger.DB
	logger   *zap.Logger
	snapshot atomic.Pointer[domain.Corpus]

	// mu serializes writers so concurrent batches cannot interleave their
	// snapshot rebuilds. Readers never take it.
	mu sync.Mutex
}

// badgerLogger adapts zap to badger's logging interface. Badger chatter goes
// to debug so it does not drown the application log.
type badgerLogger struct {
	logger *zap.SugaredLogger
}

func (l badgerLogger) Errorf(msg string, args ...any)   { l.logger.Errorf(msg, args...) }
func (l badgerLogger) Warningf(msg string, args ...any) { l.logger.Warnf(msg, args...) }
func (l badgerLogger) Infof(msg string, args ...any)    { l.logger.Debugf(msg, args...) }
func (l badgerLogger) Debugf(msg string, args ...any)   { l.logger.Debugf(msg, args...) }

// Open opens (or creates) the corpus database and loads the initial
// snapshot. With inMemory set the store keeps everything in RAM; tests use
// that mode.
func Open(path string, inMemory bool, logger *zap.Logger) (*Store, error) {
	var opts badger.Options
	if inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(path, 0o755); err != nil {
			return nil, fmt.Errorf("create corpus dir: %w", err)
		}
		opts = badger.DefaultOptions(path)
	}
	opts.Logger = badgerLogger{logger: logger.Sugar()}
	opts.Compression = options.None

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open corpus db: %w", err)
	}

	s := &Store{db: db, logger: logger}
	if err := s.rebuildSnapshot(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Snapshot returns the current corpus, optionally filtered to one category.
// The unfiltered snapshot is shared and must not be mutated by callers.
func (s *Store) Snapshot(_ context.Context, category string) (*domain.Corpus, error) {
	snap := s.snapshot.Load()
	if snap == nil {
		return &domain.Corpus{}, nil
	}
	if category == "" {
		return snap, nil
	}

	filtered := &domain.Corpus{Entities: make(map[string][]domain.Entity)}
	for _, doc := range snap.Documents {
		if doc.Category != category {
			continue
		}
		filtered.Documents = append(filtered.Documents, doc)
		if ents, ok := snap.Entities[doc.ID]; ok {
			filtered.Entities[doc.ID] = ents
		}
	}
	return filtered, nil
}

// HasContentHash reports whether a document with the given content hash is
// already stored. Ingestion uses it to drop republished items cheaply.
func (s *Store) HasContentHash(_ context.Context, hash string) (bool, error) {
	if hash == "" {
		return false, nil
	}
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(hashPrefix + hash))
		return err
	})
	if err == badger.ErrKeyNotFound {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check content hash: %w", err)
	}
	return true, nil
}

// Get returns one document with its entities.
func (s *Store) Get(_ context.Context, id string) (*domain.Document, []domain.Entity, error) {
	snap := s.snapshot.Load()
	if snap == nil {
		return nil, nil, domain.ErrDocumentNotFound
	}
	for i := range snap.Documents {
		if snap.Documents[i].ID == id {
			doc := snap.Documents[i]
			return &doc, snap.Entities[id], nil
		}
	}
	return nil, nil, domain.ErrDocumentNotFound
}

// AppendBatch stores new documents and their entities in one transaction and
// publishes a fresh snapshot. Documents whose content hash is already present
// are skipped, not errors; the returned counts report both outcomes.
func (s *Store) AppendBatch(ctx context.Context, docs []domain.Document, entities map[string][]domain.Entity) (added, skipped int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	// Hashes written earlier in this batch are not visible to reads until
	// the flush, so duplicates inside one batch are tracked separately.
	inBatch := make(map[string]struct{}, len(docs))

	for _, doc := range docs {
		if doc.ID == "" {
			return added, skipped, fmt.Errorf("store document: empty id")
		}
		dup, err := s.HasContentHash(ctx, doc.ContentHash)
		if err != nil {
			return added, skipped, err
		}
		if doc.ContentHash != "" {
			if _, seen := inBatch[doc.ContentHash]; seen {
				dup = true
			}
			inBatch[doc.ContentHash] = struct{}{}
		}
		if dup {
			skipped++
			continue
		}

		docJSON, err := json.Marshal(doc)
		if err != nil {
			return added, skipped, fmt.Errorf("encode document %s: %w", doc.ID, err)
		}
		if err := wb.Set([]byte(docPrefix+doc.ID), docJSON); err != nil {
			return added, skipped, fmt.Errorf("store document %s: %w", doc.ID, err)
		}
		if doc.ContentHash != "" {
			if err := wb.Set([]byte(hashPrefix+doc.ContentHash), []byte(doc.ID)); err != nil {
				return added, skipped, fmt.Errorf("store content hash for %s: %w", doc.ID, err)
			}
		}
		if ents := entities[doc.ID]; len(ents) > 0 {
			entJSON, err := json.Marshal(ents)
			if err != nil {
				return added, skipped, fmt.Errorf("encode entities for %s: %w", doc.ID, err)
			}
			if err := wb.Set([]byte(entityPrefix+doc.ID), entJSON); err != nil {
				return added, skipped, fmt.Errorf("store entities for %s: %w", doc.ID, err)
			}
		}
		added++
	}

	if err := wb.Flush(); err != nil {
		return added, skipped, fmt.Errorf("flush corpus batch: %w", err)
	}
	if err := s.rebuildSnapshot(); err != nil {
		return added, skipped, err
	}
	return added, skipped, nil
}

// Delete removes a document together with its entities and hash index entry.
func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var doc domain.Document
	err := s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(docPrefix + id))
		if err == badger.ErrKeyNotFound {
			return domain.ErrDocumentNotFound
		}
		if err != nil {
			return err
		}
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &doc)
		}); err != nil {
			return fmt.Errorf("decode document %s: %w", id, err)
		}

		if err := txn.Delete([]byte(docPrefix + id)); err != nil {
			return err
		}
		if err := txn.Delete([]byte(entityPrefix + id)); err != nil {
			return err
		}
		if doc.ContentHash != "" {
			if err := txn.Delete([]byte(hashPrefix + doc.ContentHash)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	return s.rebuildSnapshot()
}

// rebuildSnapshot loads the full corpus from badger and publishes it.
// Documents come out sorted by ID so downstream iteration order is stable.
func (s *Store) rebuildSnapshot() error {
	snap := &domain.Corpus{Entities: make(map[string][]domain.Entity)}

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(docPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var doc domain.Document
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &doc)
			}); err != nil {
				return fmt.Errorf("decode document %s: %w", it.Item().Key(), err)
			}
			snap.Documents = append(snap.Documents, doc)
		}
		return nil
	})
	if err != nil {
		return err
	}

	err = s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(entityPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			id := string(it.Item().Key()[len(entityPrefix):])
			var ents []domain.Entity
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &ents)
			}); err != nil {
				return fmt.Errorf("decode entities for %s: %w", id, err)
			}
			snap.Entities[id] = ents
		}
		return nil
	})
	if err != nil {
		return err
	}

	sort.Slice(snap.Documents, func(i, j int) bool {
		return snap.Documents[i].ID < snap.Documents[j].ID
	})
	s.snapshot.Store(snap)
	return nil
}
