// Package memory implements docstore.Store with in-memory maps. It backs the
// test suites and the "memory" store driver, where nothing outlives the process.
package memory

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"

	"todoer/internal/docstore"
)

// Store is an in-memory document store.
type Store struct {
	mu          sync.RWMutex
	collections map[string]map[string]docstore.Fields // collection -> id -> fields
	order       map[string][]string                   // collection -> ids in insertion order

	hub    *docstore.Hub
	clock  *docstore.Clock
	logger *slog.Logger
}

var _ docstore.Store = (*Store)(nil)

// New creates an empty store.
func New(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		collections: make(map[string]map[string]docstore.Fields),
		order:       make(map[string][]string),
		hub:         docstore.NewHub(),
		clock:       docstore.NewClock(nil),
		logger:      logger,
	}
}

// Hub exposes the change hub, mainly so tests can count live listeners.
func (s *Store) Hub() *docstore.Hub {
	return s.hub
}

// Close is a no-op kept for parity with the SQLite store.
func (s *Store) Close() error {
	return nil
}

// Subscribe implements docstore.Store.
func (s *Store) Subscribe(ctx context.Context, q docstore.Query) (<-chan docstore.Snapshot, error) {
	if err := docstore.AuthorizeQuery(ctx, q); err != nil {
		return nil, err
	}
	return s.hub.Follow(ctx, q, func(ctx context.Context) ([]docstore.Document, error) {
		return s.ReadMany(ctx, q)
	}), nil
}

// ReadMany implements docstore.Store.
func (s *Store) ReadMany(ctx context.Context, q docstore.Query) ([]docstore.Document, error) {
	if err := docstore.AuthorizeQuery(ctx, q); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var docs []docstore.Document
	for _, id := range s.order[q.Collection] {
		fields := s.collections[q.Collection][id]
		if q.Match(fields) {
			docs = append(docs, docstore.Document{ID: id, Fields: fields.Clone()})
		}
	}
	return docs, nil
}

// Insert implements docstore.Store.
func (s *Store) Insert(ctx context.Context, collection string, fields docstore.Fields) (string, error) {
	if err := docstore.AuthorizeInsert(ctx, collection, fields); err != nil {
		return "", err
	}
	id := uuid.NewString()
	s.mu.Lock()
	stored, _, err := docstore.Prepare(fields, s.clock.Now())
	if err != nil {
		s.mu.Unlock()
		return "", err
	}
	if s.collections[collection] == nil {
		s.collections[collection] = make(map[string]docstore.Fields)
	}
	s.collections[collection][id] = stored
	s.order[collection] = append(s.order[collection], id)
	s.mu.Unlock()

	s.hub.Notify(collection)
	return id, nil
}

// Update implements docstore.Store. Only the given fields change.
func (s *Store) Update(ctx context.Context, collection, id string, fields docstore.Fields) error {
	// Stamped under the lock so updatedAt follows commit order.
	s.mu.Lock()
	changes, _, err := docstore.Prepare(fields, s.clock.Now())
	if err != nil {
		s.mu.Unlock()
		return err
	}
	existing, ok := s.collections[collection][id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("update %s/%s: %w", collection, id, docstore.ErrNotFound)
	}
	if err := docstore.AuthorizeWrite(ctx, collection, existing, changes); err != nil {
		s.mu.Unlock()
		return err
	}
	merged := existing.Clone()
	for k, v := range changes {
		merged[k] = v
	}
	s.collections[collection][id] = merged
	s.mu.Unlock()

	s.hub.Notify(collection)
	return nil
}

// Delete implements docstore.Store.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	b := s.Batch()
	b.Delete(collection, id)
	return b.Commit(ctx)
}

// Batch implements docstore.Store.
func (s *Store) Batch() docstore.Batch {
	return &batch{store: s}
}

type batch struct {
	store *Store
	ops   []docstore.BatchOp
}

func (b *batch) Delete(collection, id string) {
	b.ops = append(b.ops, docstore.BatchOp{Collection: collection, ID: id})
}

// Commit checks every queued delete before applying any of them.
func (b *batch) Commit(ctx context.Context) error {
	s := b.store
	s.mu.Lock()
	for _, op := range b.ops {
		existing, ok := s.collections[op.Collection][op.ID]
		if !ok {
			continue
		}
		if err := docstore.AuthorizeWrite(ctx, op.Collection, existing, nil); err != nil {
			s.mu.Unlock()
			return fmt.Errorf("commit batch: %w", err)
		}
	}

	touched := make(map[string]struct{})
	for _, op := range b.ops {
		if _, ok := s.collections[op.Collection][op.ID]; !ok {
			continue
		}
		delete(s.collections[op.Collection], op.ID)
		touched[op.Collection] = struct{}{}
	}
	for c := range touched {
		s.order[c] = compact(s.order[c], s.collections[c])
	}
	s.mu.Unlock()

	collections := make([]string, 0, len(touched))
	for c := range touched {
		collections = append(collections, c)
	}
	sort.Strings(collections)
	s.hub.Notify(collections...)
	s.logger.Debug("batch committed", slog.Int("ops", len(b.ops)))
	return nil
}

func compact(ids []string, live map[string]docstore.Fields) []string {
	out := ids[:0]
	for _, id := range ids {
		if _, ok := live[id]; ok {
			out = append(out, id)
		}
	}
	return out
}
