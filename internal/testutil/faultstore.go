// Package testutil provides testing utilities.
package testutil

import (
	"context"
	"sync"

	"todoer/internal/docstore"
)

// UpdateCall records one Update that reached the store.
type UpdateCall struct {
	Collection string
	ID         string
	Fields     docstore.Fields
}

// FaultStore wraps a docstore.Store, records writes and injects errors.
type FaultStore struct {
	docstore.Store

	mu      sync.Mutex
	updates []UpdateCall
	inserts int

	// Error injection for testing
	SubscribeErr error // returned by Subscribe itself
	SnapshotErr  error // delivered as the first snapshot instead of data
	InsertErr    error
	UpdateErr    error
	ReadManyErr  error
	CommitErr    error
}

// NewFaultStore wraps inner.
func NewFaultStore(inner docstore.Store) *FaultStore {
	return &FaultStore{Store: inner}
}

// Subscribe implements docstore.Store.
func (f *FaultStore) Subscribe(ctx context.Context, q docstore.Query) (<-chan docstore.Snapshot, error) {
	f.mu.Lock()
	subErr, snapErr := f.SubscribeErr, f.SnapshotErr
	f.mu.Unlock()

	if subErr != nil {
		return nil, subErr
	}
	if snapErr != nil {
		ch := make(chan docstore.Snapshot, 1)
		ch <- docstore.Snapshot{Err: snapErr}
		close(ch)
		return ch, nil
	}
	return f.Store.Subscribe(ctx, q)
}

// SetSnapshotErr changes SnapshotErr while subscriptions may be running.
func (f *FaultStore) SetSnapshotErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.SnapshotErr = err
}

// Insert implements docstore.Store.
func (f *FaultStore) Insert(ctx context.Context, collection string, fields docstore.Fields) (string, error) {
	if f.InsertErr != nil {
		return "", f.InsertErr
	}
	f.mu.Lock()
	f.inserts++
	f.mu.Unlock()
	return f.Store.Insert(ctx, collection, fields)
}

// Update implements docstore.Store.
func (f *FaultStore) Update(ctx context.Context, collection, id string, fields docstore.Fields) error {
	if f.UpdateErr != nil {
		return f.UpdateErr
	}
	f.mu.Lock()
	f.updates = append(f.updates, UpdateCall{Collection: collection, ID: id, Fields: fields.Clone()})
	f.mu.Unlock()
	return f.Store.Update(ctx, collection, id, fields)
}

// ReadMany implements docstore.Store.
func (f *FaultStore) ReadMany(ctx context.Context, q docstore.Query) ([]docstore.Document, error) {
	if f.ReadManyErr != nil {
		return nil, f.ReadManyErr
	}
	return f.Store.ReadMany(ctx, q)
}

// Batch implements docstore.Store.
func (f *FaultStore) Batch() docstore.Batch {
	return &faultBatch{Batch: f.Store.Batch(), err: f.CommitErr}
}

type faultBatch struct {
	docstore.Batch
	err error
}

// Commit fails without applying anything when an error is injected.
func (b *faultBatch) Commit(ctx context.Context) error {
	if b.err != nil {
		return b.err
	}
	return b.Batch.Commit(ctx)
}

// Updates returns the updates that reached the store.
func (f *FaultStore) Updates() []UpdateCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]UpdateCall(nil), f.updates...)
}

// Inserts returns how many inserts reached the store.
func (f *FaultStore) Inserts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.inserts
}
