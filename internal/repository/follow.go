// Package repository turns owner-scoped document collections into sorted,
// identity-aware streams of lists and tasks, and routes every mutation back
// into the store.
package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"todoer/internal/docstore"
	"todoer/internal/models"
	"todoer/internal/session"
)

// ErrValidation is returned, without touching the store, when a required
// text field is empty after trimming.
var ErrValidation = errors.New("validation failed")

// PermissionDeniedMessage is the notification raised the first time a
// repository's subscription is refused by the store.
const PermissionDeniedMessage = "You no longer have permission to read this data. Sign in again to refresh."

// Notifier receives user-visible notifications raised by a repository.
type Notifier interface {
	Notify(message string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(message string)

// Notify calls f.
func (f NotifierFunc) Notify(message string) { f(message) }

const (
	minRetry = 500 * time.Millisecond
	maxRetry = 30 * time.Second
)

// base carries what both repositories share: the store, the session every
// call derives its principal from, and the once-per-instance denial notice.
type base struct {
	store    docstore.Store
	session  *session.Session
	notifier Notifier
	logger   *slog.Logger
	denied   sync.Once
}

func newBase(store docstore.Store, sess *session.Session, notifier Notifier, logger *slog.Logger) base {
	if logger == nil {
		logger = slog.Default()
	}
	if notifier == nil {
		notifier = NotifierFunc(func(string) {})
	}
	return base{store: store, session: sess, notifier: notifier, logger: logger}
}

// actAs returns ctx acting as the signed-in principal.
func (b *base) actAs(ctx context.Context) (context.Context, string, error) {
	uid, err := b.session.UIDOrFail()
	if err != nil {
		return nil, "", err
	}
	return docstore.WithPrincipal(ctx, uid), uid, nil
}

func (b *base) permissionDenied(collection string, err error) {
	b.denied.Do(func() {
		b.logger.Warn("subscription denied", slog.String("collection", collection), slog.String("error", err.Error()))
		b.notifier.Notify(PermissionDeniedMessage)
	})
}

func requireText(field, value string) error {
	if value == "" {
		return fmt.Errorf("%w: %s is empty", ErrValidation, field)
	}
	return nil
}

// follower keeps one store subscription alive for the current identity and
// parameter, replacing it whenever either changes.
type follower[P comparable, T models.Keyed] struct {
	*base
	collection string
	query      func(uid string, p P) docstore.Query
	decode     func(docstore.Document) (T, error)
}

// run emits the sorted result set for every snapshot of the subscription
// matching the latest identity and parameter. It emits an empty set while
// signed out and after a permission denial. Slow readers only see the most
// recent set. The channel closes when ctx is done.
func (f follower[P, T]) run(ctx context.Context, params <-chan P) <-chan []T {
	out := make(chan []T)
	go func() {
		defer close(out)

		ids := f.session.Watch(ctx)
		var (
			id          session.Identity
			haveID      bool
			param       P
			haveParam   bool
			inner       <-chan docstore.Snapshot
			cancelInner context.CancelFunc = func() {}
			pending     []T
			havePending bool
			retry       <-chan time.Time
			backoff     = minRetry
		)

		// stop releases the current subscription and waits until the store
		// has closed it. An unread set of the old generation is dropped with
		// it, so nothing from before the switch reaches the reader.
		stop := func() {
			cancelInner()
			cancelInner = func() {}
			if inner != nil {
				for range inner {
				}
			}
			inner = nil
			retry = nil
			pending, havePending = nil, false
		}
		defer func() { stop() }()

		emit := func(items []T) {
			pending, havePending = items, true
		}

		fail := func(err error) {
			if errors.Is(err, docstore.ErrPermissionDenied) {
				f.permissionDenied(f.collection, err)
				emit([]T{})
				return
			}
			f.logger.Error("subscription failed",
				slog.String("collection", f.collection),
				slog.Duration("retry_in", backoff),
				slog.String("error", err.Error()))
			retry = time.After(backoff)
			backoff = min(backoff*2, maxRetry)
		}

		start := func() {
			stop()
			if !haveID || !haveParam {
				return
			}
			if !id.Present() {
				emit([]T{})
				return
			}
			innerCtx, cancel := context.WithCancel(docstore.WithPrincipal(ctx, id.UID))
			ch, err := f.store.Subscribe(innerCtx, f.query(id.UID, param))
			if err != nil {
				cancel()
				fail(err)
				return
			}
			inner, cancelInner = ch, cancel
			f.logger.Debug("subscribed", slog.String("collection", f.collection), slog.String("uid", id.UID))
		}

		for {
			var send chan<- []T
			if havePending {
				send = out
			}

			select {
			case <-ctx.Done():
				return

			case next, ok := <-ids:
				if !ok {
					return
				}
				if haveID && next == id {
					continue
				}
				id, haveID = next, true
				backoff = minRetry
				start()

			case next, ok := <-params:
				if !ok {
					params = nil
					continue
				}
				if haveParam && next == param {
					continue
				}
				param, haveParam = next, true
				backoff = minRetry
				start()

			case snap, ok := <-inner:
				if !ok {
					inner = nil
					continue
				}
				if snap.Err != nil {
					fail(snap.Err)
					continue
				}
				backoff = minRetry
				emit(decodeSorted(f.logger, f.collection, snap.Docs, f.decode))

			case <-retry:
				retry = nil
				start()

			case send <- pending:
				pending, havePending = nil, false
			}
		}
	}()
	return out
}

// decodeSorted decodes docs newest first, logging and skipping any that fail.
func decodeSorted[T models.Keyed](logger *slog.Logger, collection string, docs []docstore.Document, decode func(docstore.Document) (T, error)) []T {
	items := make([]T, 0, len(docs))
	for _, doc := range docs {
		item, err := decode(doc)
		if err != nil {
			logger.Error("skipping undecodable document",
				slog.String("collection", collection),
				slog.String("id", doc.ID),
				slog.String("error", err.Error()))
			continue
		}
		items = append(items, item)
	}
	return models.SortNewestFirst(items)
}

// constant returns a parameter stream that yields p once and then stays open.
func constant[P any](p P) <-chan P {
	ch := make(chan P, 1)
	ch <- p
	return ch
}
