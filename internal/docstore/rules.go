package docstore

import (
	"context"
	"fmt"
)

// OwnerField is the field that scopes documents to a principal.
const OwnerField = "ownerId"

// Collections owned per principal. Documents in them are only visible to and
// writable by the principal named in OwnerField.
var ownedCollections = map[string]struct{}{
	"lists": {},
	"tasks": {},
}

type principalKey struct{}

// WithPrincipal returns a context acting as uid.
func WithPrincipal(ctx context.Context, uid string) context.Context {
	return context.WithValue(ctx, principalKey{}, uid)
}

// Principal returns the uid ctx acts as, if any.
func Principal(ctx context.Context) (string, bool) {
	uid, ok := ctx.Value(principalKey{}).(string)
	return uid, ok && uid != ""
}

func owned(collection string) bool {
	_, ok := ownedCollections[collection]
	return ok
}

// AuthorizeQuery checks that q only reaches documents of the principal.
func AuthorizeQuery(ctx context.Context, q Query) error {
	if err := q.Validate(); err != nil {
		return err
	}
	if !owned(q.Collection) {
		return nil
	}
	uid, ok := Principal(ctx)
	if !ok || !q.Constrains(OwnerField, uid) {
		return fmt.Errorf("query %s: %w", q.Collection, ErrPermissionDenied)
	}
	return nil
}

// AuthorizeInsert checks that new fields name the principal as owner.
func AuthorizeInsert(ctx context.Context, collection string, fields Fields) error {
	if !fieldName.MatchString(collection) {
		return fmt.Errorf("invalid collection %q", collection)
	}
	if !owned(collection) {
		return nil
	}
	uid, ok := Principal(ctx)
	if !ok || fields[OwnerField] != uid {
		return fmt.Errorf("insert %s: %w", collection, ErrPermissionDenied)
	}
	return nil
}

// AuthorizeWrite checks that the principal may change or delete a document
// whose stored fields are existing. Changing the owner is never allowed.
func AuthorizeWrite(ctx context.Context, collection string, existing, changes Fields) error {
	if !owned(collection) {
		return nil
	}
	uid, ok := Principal(ctx)
	if !ok || existing[OwnerField] != uid {
		return fmt.Errorf("write %s: %w", collection, ErrPermissionDenied)
	}
	if owner, set := changes[OwnerField]; set && owner != uid {
		return fmt.Errorf("write %s: %w", collection, ErrPermissionDenied)
	}
	return nil
}
