// Package reconcile keeps one user's bookmark list consistent across local
// intents and the change feed.
//
// All list transitions go through Reduce, a pure function over tagged
// events. Store owns the list for one live view and serialises events
// under a mutex.
package reconcile

import "github.com/MrSnakeDoc/marks/internal/domain"

// Event is one input to Reduce.
type Event interface {
	event()
}

// LocalAdd is the backend's answer to a create issued by this view.
type LocalAdd struct {
	Bookmark domain.Bookmark
}

// LocalDelete removes a row optimistically, before the backend confirms.
type LocalDelete struct {
	ID string
}

// RemoteInsert, RemoteUpdate and RemoteDelete come from the change feed.
type RemoteInsert struct {
	Bookmark domain.Bookmark
}

type RemoteUpdate struct {
	Bookmark domain.Bookmark
}

type RemoteDelete struct {
	ID string
}

// RollbackTo restores a list captured before a failed optimistic change.
type RollbackTo struct {
	Snapshot []domain.Bookmark
}

func (LocalAdd) event()     {}
func (LocalDelete) event()  {}
func (RemoteInsert) event() {}
func (RemoteUpdate) event() {}
func (RemoteDelete) event() {}
func (RollbackTo) event()   {}
