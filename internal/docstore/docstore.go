// Package docstore describes the remote document store the repositories sit
// on: owner-scoped collections of schemaless documents with filtered queries,
// change subscriptions, per-field merge updates and atomic batches.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"time"
)

var (
	// ErrNotFound is returned when an update targets a missing document.
	ErrNotFound = errors.New("document not found")
	// ErrPermissionDenied is returned when the principal may not read or
	// write the requested documents.
	ErrPermissionDenied = errors.New("permission denied")
)

// Fields is the content of a document keyed by field name.
type Fields map[string]any

// Clone returns a shallow copy of f.
func (f Fields) Clone() Fields {
	return maps.Clone(f)
}

type serverTimestamp struct{}

// ServerTimestamp is a field value the store replaces with its own clock
// reading at write time.
var ServerTimestamp any = serverTimestamp{}

// Document is a stored document and its id.
type Document struct {
	ID     string
	Fields Fields
}

// DataTo decodes the document fields into v using v's json tags.
func (d Document) DataTo(v any) error {
	raw, err := json.Marshal(d.Fields)
	if err != nil {
		return fmt.Errorf("encode document %s: %w", d.ID, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode document %s: %w", d.ID, err)
	}
	return nil
}

// Snapshot is one emission of a subscription: either the full matching set
// or the error that ended the subscription.
type Snapshot struct {
	Docs []Document
	Err  error
}

// Store is the capability the repositories consume. Every call reads the
// acting principal from ctx (see WithPrincipal).
type Store interface {
	// Subscribe emits the current matching set and a new full set after each
	// committed write to the collection. The channel is closed when ctx is
	// done or after a Snapshot carrying an error.
	Subscribe(ctx context.Context, q Query) (<-chan Snapshot, error)
	// Insert stores a new document and returns its generated id.
	Insert(ctx context.Context, collection string, fields Fields) (string, error)
	// Update merges fields into an existing document.
	Update(ctx context.Context, collection, id string, fields Fields) error
	// Delete removes a document. Deleting a missing document is not an error.
	Delete(ctx context.Context, collection, id string) error
	// ReadMany returns the documents currently matching q.
	ReadMany(ctx context.Context, q Query) ([]Document, error)
	// Batch starts an atomic group of deletes.
	Batch() Batch
}

// Batch queues deletes that are applied together on Commit.
type Batch interface {
	Delete(collection, id string)
	Commit(ctx context.Context) error
}

// BatchOp is a queued batch delete.
type BatchOp struct {
	Collection string
	ID         string
}

// resolveTimestamps returns a copy of fields with ServerTimestamp replaced by now.
func resolveTimestamps(fields Fields, now time.Time) Fields {
	out := fields.Clone()
	for k, v := range out {
		if v == ServerTimestamp {
			out[k] = now
		}
	}
	return out
}

// Prepare resolves server timestamps against now and normalizes the result
// to its JSON form, which is how every backend stores and returns fields.
func Prepare(fields Fields, now time.Time) (Fields, []byte, error) {
	raw, err := json.Marshal(resolveTimestamps(fields, now))
	if err != nil {
		return nil, nil, fmt.Errorf("encode fields: %w", err)
	}
	var out Fields
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, nil, fmt.Errorf("decode fields: %w", err)
	}
	return out, raw, nil
}
