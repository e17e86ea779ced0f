package session

import (
	"context"
	"errors"
)

// ErrNoSession indicates code asked for a session from a context that
// never carried one. That is a wiring bug in the caller.
var ErrNoSession = errors.New("session: not in context")

type ctxKey struct{}

// NewContext returns a copy of ctx carrying s.
func NewContext(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext extracts the session placed by NewContext.
func FromContext(ctx context.Context) (*Session, error) {
	s, ok := ctx.Value(ctxKey{}).(*Session)
	if !ok {
		return nil, ErrNoSession
	}
	return s, nil
}
