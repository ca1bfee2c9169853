package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"todoer/internal/docstore"
)

// Store keeps documents as JSON rows in SQLite and exposes them as a docstore.Store.
type Store struct {
	db      *sql.DB
	path    string
	hub     *docstore.Hub
	clock   *docstore.Clock
	logger  *slog.Logger
	watcher *Watcher
}

var _ docstore.Store = (*Store)(nil)

// Options tune Open.
type Options struct {
	// Watch re-notifies subscribers when another process writes the database file.
	Watch bool
	// Debounce is the quiet period before a watched change is announced.
	Debounce time.Duration
}

// Open initializes a new SQLite store and runs the required migrations.
func Open(dbPath string, logger *slog.Logger, opts Options) (*Store, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("empty database path")
	}

	if logger == nil {
		logger = slog.Default()
	}

	if err := ensureDir(dbPath); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	conn.SetMaxOpenConns(1)
	conn.SetConnMaxLifetime(0)

	s := &Store{
		db:     conn,
		path:   dbPath,
		hub:    docstore.NewHub(),
		clock:  docstore.NewClock(nil),
		logger: logger,
	}
	if err := s.migrate(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	if opts.Watch {
		w, err := NewWatcher(dbPath, opts.Debounce, s.hub.NotifyAll, logger)
		if err != nil {
			logger.Warn("external change watcher disabled", slog.String("error", err.Error()))
		} else {
			s.watcher = w
		}
	}

	return s, nil
}

// Close releases the database resources.
func (s *Store) Close() error {
	if s.watcher != nil {
		s.watcher.Close()
	}
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Hub exposes the change hub.
func (s *Store) Hub() *docstore.Hub {
	return s.hub
}

func ensureDir(dbPath string) error {
	dir := filepath.Dir(dbPath)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS documents (
            seq INTEGER PRIMARY KEY AUTOINCREMENT,
            collection TEXT NOT NULL,
            id TEXT NOT NULL,
            data TEXT NOT NULL,
            UNIQUE(collection, id)
        );`,
		`CREATE INDEX IF NOT EXISTS idx_documents_owner
            ON documents(collection, json_extract(data, '$.ownerId'));`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// compile turns q into a WHERE clause over the JSON data column.
func compile(q docstore.Query) (string, []any) {
	clauses := []string{"collection = ?"}
	args := []any{q.Collection}
	for _, f := range q.Filters {
		path := "$." + f.Field
		switch f.Op {
		case docstore.OpEq:
			clauses = append(clauses, "json_extract(data, ?) = ?")
			args = append(args, path, f.Value)
		case docstore.OpMissing:
			clauses = append(clauses, "COALESCE(json_extract(data, ?), '') = ''")
			args = append(args, path)
		}
	}
	return strings.Join(clauses, " AND "), args
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

	where, args := compile(q)
	rows, err := s.db.QueryContext(ctx, `SELECT id, data FROM documents WHERE `+where+` ORDER BY seq`, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", q.Collection, err)
	}
	defer rows.Close()

	var docs []docstore.Document
	for rows.Next() {
		var (
			id   string
			data string
		)
		if err := rows.Scan(&id, &data); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		fields, err := decode(data)
		if err != nil {
			return nil, fmt.Errorf("document %s/%s: %w", q.Collection, id, err)
		}
		docs = append(docs, docstore.Document{ID: id, Fields: fields})
	}
	return docs, rows.Err()
}

// Insert implements docstore.Store.
func (s *Store) Insert(ctx context.Context, collection string, fields docstore.Fields) (string, error) {
	if err := docstore.AuthorizeInsert(ctx, collection, fields); err != nil {
		return "", err
	}
	id := uuid.NewString()
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		_, raw, err := docstore.Prepare(fields, s.clock.Now())
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO documents(collection, id, data) VALUES(?, ?, ?)`, collection, id, string(raw)); err != nil {
			return fmt.Errorf("insert %s: %w", collection, err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	s.hub.Notify(collection)
	return id, nil
}

// Update implements docstore.Store as a JSON merge patch of the given fields.
func (s *Store) Update(ctx context.Context, collection, id string, fields docstore.Fields) error {
	// The single connection serializes transactions, so stamping inside one
	// keeps updatedAt in commit order.
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		changes, raw, err := docstore.Prepare(fields, s.clock.Now())
		if err != nil {
			return err
		}
		existing, err := load(ctx, tx, collection, id)
		if err != nil {
			return err
		}
		if existing == nil {
			return fmt.Errorf("update %s/%s: %w", collection, id, docstore.ErrNotFound)
		}
		if err := docstore.AuthorizeWrite(ctx, collection, existing, changes); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `UPDATE documents SET data = json_patch(data, ?) WHERE collection = ? AND id = ?`, string(raw), collection, id)
		if err != nil {
			return fmt.Errorf("update %s/%s: %w", collection, id, err)
		}
		return nil
	})
	if err != nil {
		return err
	}
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

// Commit applies every queued delete in one transaction.
func (b *batch) Commit(ctx context.Context) error {
	s := b.store
	touched := make(map[string]struct{})
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		for _, op := range b.ops {
			existing, err := load(ctx, tx, op.Collection, op.ID)
			if err != nil {
				return err
			}
			if existing == nil {
				continue
			}
			if err := docstore.AuthorizeWrite(ctx, op.Collection, existing, nil); err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE collection = ? AND id = ?`, op.Collection, op.ID); err != nil {
				return fmt.Errorf("delete %s/%s: %w", op.Collection, op.ID, err)
			}
			touched[op.Collection] = struct{}{}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}

	for c := range touched {
		s.hub.Notify(c)
	}
	return nil
}

// withTx runs fn in a transaction, rolling back when fn fails.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	committed = true
	return nil
}

func load(ctx context.Context, tx *sql.Tx, collection, id string) (docstore.Fields, error) {
	var data string
	err := tx.QueryRowContext(ctx, `SELECT data FROM documents WHERE collection = ? AND id = ?`, collection, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	return decode(data)
}

func decode(data string) (docstore.Fields, error) {
	var fields docstore.Fields
	if err := json.Unmarshal([]byte(data), &fields); err != nil {
		return nil, fmt.Errorf("decode fields: %w", err)
	}
	return fields, nil
}
