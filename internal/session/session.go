// Package session holds the signed-in identity as a single observable value
// that every store query and mutation derives from.
package session

import (
	"context"
	"errors"
	"log/slog"

	"todoer/internal/reactive"
)

// ErrUnauthenticated is returned when an operation needs an identity and none
// is signed in. Reaching it means a mutation was offered while signed out.
var ErrUnauthenticated = errors.New("user must be authenticated to perform this operation")

// Identity is the signed-in principal. The zero value means signed out.
type Identity struct {
	UID   string `json:"uid"`
	Email string `json:"email,omitempty"`
}

// Present reports whether the identity names a principal.
func (i Identity) Present() bool {
	return i.UID != ""
}

// Session owns the current identity for the lifetime of the process.
type Session struct {
	current *reactive.Value[Identity]
	logger  *slog.Logger
}

// New returns a signed-out session.
func New(logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{current: reactive.New(Identity{}), logger: logger}
}

// SignIn makes id the current identity. Signing in again as the same
// identity does not wake watchers.
func (s *Session) SignIn(id Identity) {
	if s.current.Get() == id {
		return
	}
	s.current.Set(id)
	s.logger.Info("signed in", slog.String("uid", id.UID))
}

// SignOut clears the current identity.
func (s *Session) SignOut() {
	if !s.current.Get().Present() {
		return
	}
	s.current.Set(Identity{})
	s.logger.Info("signed out")
}

// Current returns the identity and whether one is signed in.
func (s *Session) Current() (Identity, bool) {
	id := s.current.Get()
	return id, id.Present()
}

// UIDOrFail returns the signed-in uid or ErrUnauthenticated.
func (s *Session) UIDOrFail() (string, error) {
	id, ok := s.Current()
	if !ok {
		return "", ErrUnauthenticated
	}
	return id.UID, nil
}

// Watch emits the current identity and every change after it until ctx is done.
func (s *Session) Watch(ctx context.Context) <-chan Identity {
	return s.current.Watch(ctx)
}
