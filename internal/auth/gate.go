package auth

import (
	"context"
	"net/http"

	"github.com/MrSnakeDoc/marks/internal/backend"
	"github.com/MrSnakeDoc/marks/internal/domain"
)

// Access is what a signed-in request gets past the gate.
type Access struct {
	SessionID string
	User      domain.User
	Client    *backend.Client
	Bookmarks []domain.Bookmark
}

// Gate admits requests with a live session.
type Gate struct {
	sessions *Sessions
	backends *backend.Factory
}

func NewGate(sessions *Sessions, backends *backend.Factory) *Gate {
	return &Gate{sessions: sessions, backends: backends}
}

// Check resolves the session and, in the same call, reads the user's
// bookmark snapshot. ErrNoSession means redirect to sign-in.
func (g *Gate) Check(ctx context.Context, r *http.Request) (*Access, error) {
	a, err := g.Admit(ctx, r)
	if err != nil {
		return nil, err
	}
	list, err := a.Client.List(ctx)
	if err != nil {
		return nil, err
	}
	a.Bookmarks = list
	return a, nil
}

// Admit resolves the session without reading any rows.
func (g *Gate) Admit(ctx context.Context, r *http.Request) (*Access, error) {
	sess, err := g.sessions.Resolve(ctx, r)
	if err != nil {
		return nil, err
	}
	return &Access{
		SessionID: sess.ID,
		User:      sess.User,
		Client:    g.backends.For(sess.User),
	}, nil
}

type accessKey struct{}

// WithAccess stores a on ctx for handlers behind the gate.
func WithAccess(ctx context.Context, a *Access) context.Context {
	return context.WithValue(ctx, accessKey{}, a)
}

// AccessFrom returns the Access stored by WithAccess, or nil.
func AccessFrom(ctx context.Context) *Access {
	a, _ := ctx.Value(accessKey{}).(*Access)
	return a
}
