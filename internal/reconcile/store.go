package reconcile

import (
	"context"
	"errors"
	"sync"

	"github.com/MrSnakeDoc/marks/internal/domain"
	"github.com/MrSnakeDoc/marks/internal/feed"
	"github.com/MrSnakeDoc/marks/internal/logger"
)

// Backend is the slice of the data service the store writes through.
type Backend interface {
	Create(ctx context.Context, url, title string) (domain.Bookmark, error)
	Delete(ctx context.Context, id string) error
}

// Feed is a live change subscription. *feed.Subscription implements it.
type Feed interface {
	Events() <-chan feed.Change
	Err() error
	Close() error
}

type State int

const (
	StateUninitialized State = iota
	StateSubscribed
	StateTornDown
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateSubscribed:
		return "subscribed"
	case StateTornDown:
		return "torn down"
	default:
		return "unknown"
	}
}

// ErrClosed is returned by intents issued after Close.
var ErrClosed = errors.New("reconcile: store closed")

// Store holds the bookmark list of one live view.
type Store struct {
	backend Backend
	log     logger.Logger

	// deleteMu runs deletes one at a time so a rollback never restores a
	// row another delete already removed.
	deleteMu sync.Mutex

	mu      sync.Mutex
	list    []domain.Bookmark
	state   State
	sub     Feed
	feedErr error
	changes chan struct{}
}

func New(backend Backend, log logger.Logger) *Store {
	return &Store{
		backend: backend,
		log:     log.With(logger.Component("reconcile")),
		list:    []domain.Bookmark{},
		changes: make(chan struct{}, 1),
	}
}

// Seed replaces the list wholesale. list is expected newest first; when an
// id repeats, the first occurrence wins.
func (s *Store) Seed(list []domain.Bookmark) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateTornDown {
		return
	}
	s.list = dedupe(list)
	s.notify()
}

// Add validates rawURL, creates the row and inserts the result at the head
// unless the feed already delivered it. Invalid input never reaches the
// backend; a failed create leaves the list untouched.
func (s *Store) Add(ctx context.Context, rawURL, title string) (domain.Bookmark, error) {
	if s.State() == StateTornDown {
		return domain.Bookmark{}, ErrClosed
	}
	if err := domain.ValidateURL(rawURL); err != nil {
		return domain.Bookmark{}, err
	}
	title = domain.DeriveTitle(rawURL, title)

	b, err := s.backend.Create(ctx, rawURL, title)
	if err != nil {
		s.log.Warn("create failed", logger.Error(err))
		return domain.Bookmark{}, asRemote(err)
	}
	s.apply(LocalAdd{Bookmark: b})
	return b, nil
}

// Delete removes id at once, then asks the backend. On failure the list
// goes back to exactly what it was before the call. Deletes are serialized.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.deleteMu.Lock()
	defer s.deleteMu.Unlock()

	s.mu.Lock()
	if s.state == StateTornDown {
		s.mu.Unlock()
		return ErrClosed
	}
	snapshot := clone(s.list)
	s.applyLocked(LocalDelete{ID: id})
	s.mu.Unlock()

	if err := s.backend.Delete(ctx, id); err != nil {
		s.log.Warn("delete failed, rolling back", logger.String("id", id), logger.Error(err))
		s.apply(RollbackTo{Snapshot: snapshot})
		return asRemote(err)
	}
	return nil
}

// Run consumes sub until it ends, ctx is done or the store is closed.
// The store owns sub from here on and releases it on Close. A subscription
// that ends with an error is reported as a feed error; there is no retry.
func (s *Store) Run(ctx context.Context, sub Feed) error {
	s.mu.Lock()
	if s.state == StateTornDown {
		s.mu.Unlock()
		_ = sub.Close()
		return ErrClosed
	}
	prev := s.sub
	s.sub = sub
	s.state = StateSubscribed
	s.mu.Unlock()

	if prev != nil && prev != sub {
		_ = prev.Close()
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case c, ok := <-sub.Events():
			if !ok {
				return s.feedEnded(sub)
			}
			if ev := fromChange(c); ev != nil {
				s.apply(ev)
			}
		}
	}
}

// List returns a copy of the current list.
func (s *Store) List() []domain.Bookmark {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clone(s.list)
}

// Changes fires after every effective change. Signals coalesce; the channel
// is closed by Close.
func (s *Store) Changes() <-chan struct{} { return s.changes }

func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// FeedErr reports why the change feed stopped, if it failed.
func (s *Store) FeedErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.feedErr
}

// Close tears the store down and releases the subscription. Results of
// calls still in flight are dropped. Safe to call more than once.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.state == StateTornDown {
		s.mu.Unlock()
		return nil
	}
	s.state = StateTornDown
	sub := s.sub
	s.sub = nil
	close(s.changes)
	s.mu.Unlock()

	if sub != nil {
		return sub.Close()
	}
	return nil
}

func (s *Store) apply(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applyLocked(ev)
}

func (s *Store) applyLocked(ev Event) {
	if s.state == StateTornDown {
		return
	}
	next, changed := Reduce(s.list, ev)
	if !changed {
		return
	}
	s.list = next
	s.notify()
}

func dedupe(list []domain.Bookmark) []domain.Bookmark {
	out := make([]domain.Bookmark, 0, len(list))
	for _, b := range list {
		if domain.IndexOf(out, b.ID) < 0 {
			out = append(out, b)
		}
	}
	return out
}

// notify must be called with mu held.
func (s *Store) notify() {
	select {
	case s.changes <- struct{}{}:
	default:
	}
}

func (s *Store) feedEnded(sub Feed) error {
	err := sub.Err()
	if err == nil {
		return nil
	}
	if !domain.IsKind(err, domain.KindFeed) {
		err = domain.NewFeed(err)
	}

	s.mu.Lock()
	if s.state != StateTornDown {
		s.feedErr = err
		s.notify()
	}
	s.mu.Unlock()

	s.log.Error("change feed stopped", logger.Error(err))
	return err
}

func fromChange(c feed.Change) Event {
	switch c.Type {
	case feed.EventInsert:
		if c.Record != nil {
			return RemoteInsert{Bookmark: *c.Record}
		}
	case feed.EventUpdate:
		if c.Record != nil {
			return RemoteUpdate{Bookmark: *c.Record}
		}
	case feed.EventDelete:
		if id := c.RowID(); id != "" {
			return RemoteDelete{ID: id}
		}
	}
	return nil
}

func asRemote(err error) error {
	if domain.IsKind(err, domain.KindRemote) || domain.IsKind(err, domain.KindValidation) {
		return err
	}
	return domain.NewRemote(err)
}
