// Package identity carries the current viewer through a request context.
package identity

import "context"

type ctxKey struct{}

// Identity describes who is making the request. An empty User is a guest.
type Identity struct {
	User     string
	Age      int
	Groups   []string
	Unlocked map[int64]bool
}

func Guest() Identity {
	return Identity{}
}

func (i Identity) IsGuest() bool {
	return i.User == ""
}

// IsUnlocked reports whether the gallery password was accepted earlier in
// this session.
func (i Identity) IsUnlocked(galleryID int64) bool {
	return i.Unlocked[galleryID]
}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the identity stored in ctx, or a guest.
func FromContext(ctx context.Context) Identity {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	if !ok {
		return Guest()
	}

	return id
}

// WithUser is a shorthand for tests and background jobs.
func WithUser(ctx context.Context, user string, groups ...string) context.Context {
	return WithIdentity(ctx, Identity{User: user, Groups: groups})
}
