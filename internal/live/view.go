// Package live drives the dashboard over a websocket: intents come in,
// rendered state goes out after every change.
package live

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/MrSnakeDoc/marks/internal/domain"
	"github.com/MrSnakeDoc/marks/internal/reconcile"
)

const (
	IntentAdd    = "add"
	IntentDelete = "delete"

	FlashSuccess = "success"
	FlashError   = "error"

	// DefaultFlashTTL is how long success messages stay up.
	DefaultFlashTTL = 3 * time.Second

	msgAddFailed    = "Failed to add bookmark"
	msgDeleteFailed = "Failed to delete bookmark: "
)

// Intent is one user action sent by the page.
type Intent struct {
	Type      string `json:"type"`
	URL       string `json:"url,omitempty"`
	Title     string `json:"title,omitempty"`
	ID        string `json:"id,omitempty"`
	Confirmed bool   `json:"confirmed,omitempty"`
}

type Flash struct {
	Kind string `json:"kind"`
	Text string `json:"text"`
}

// Prompt asks the page to confirm a delete before resending it.
type Prompt struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// State is everything the page renders.
type State struct {
	Bookmarks []domain.Bookmark `json:"bookmarks"`
	Empty     string            `json:"empty,omitempty"`
	Flash     *Flash            `json:"flash,omitempty"`
	Loading   bool              `json:"loading"`
	Deleting  []string          `json:"deleting,omitempty"`
	FeedError string            `json:"feed_error,omitempty"`
}

// View holds the presentation state around one reconcile.Store.
type View struct {
	store    *reconcile.Store
	flashTTL time.Duration

	mu         sync.Mutex
	flash      *Flash
	flashTimer *time.Timer
	loading    bool
	deleting   map[string]bool
	feedErr    string
	closed     bool

	changed chan struct{}
}

func NewView(store *reconcile.Store, flashTTL time.Duration) *View {
	if flashTTL <= 0 {
		flashTTL = DefaultFlashTTL
	}
	return &View{
		store:    store,
		flashTTL: flashTTL,
		deleting: make(map[string]bool),
		changed:  make(chan struct{}, 1),
	}
}

// Changed fires when view-only state moved. List changes come from the
// store's own channel.
func (v *View) Changed() <-chan struct{} { return v.changed }

// Handle runs one intent to completion. Every intent first clears the
// previous message. A delete without confirmation only returns a prompt.
func (v *View) Handle(ctx context.Context, in Intent) *Prompt {
	switch in.Type {
	case IntentAdd:
		v.add(ctx, in.URL, in.Title)
	case IntentDelete:
		if !in.Confirmed {
			return &Prompt{ID: in.ID, Text: domain.MsgConfirmDelete}
		}
		v.delete(ctx, in.ID)
	}
	return nil
}

func (v *View) add(ctx context.Context, rawURL, title string) {
	v.mu.Lock()
	if v.loading || v.closed {
		v.mu.Unlock()
		return
	}
	v.setFlashLocked(nil)
	if err := domain.ValidateURL(rawURL); err != nil {
		v.setFlashLocked(&Flash{Kind: FlashError, Text: domain.MsgInvalidURL})
		v.mu.Unlock()
		return
	}
	v.loading = true
	v.notifyLocked()
	v.mu.Unlock()

	_, err := v.store.Add(ctx, rawURL, title)

	v.mu.Lock()
	defer v.mu.Unlock()
	v.loading = false
	if err != nil {
		msg := domain.Message(err)
		if msg == "" {
			msg = msgAddFailed
		}
		v.setFlashLocked(&Flash{Kind: FlashError, Text: msg})
		return
	}
	v.setFlashLocked(&Flash{Kind: FlashSuccess, Text: domain.MsgAdded})
}

func (v *View) delete(ctx context.Context, id string) {
	v.mu.Lock()
	if v.deleting[id] || v.closed {
		v.mu.Unlock()
		return
	}
	v.setFlashLocked(nil)
	v.deleting[id] = true
	v.notifyLocked()
	v.mu.Unlock()

	err := v.store.Delete(ctx, id)

	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.deleting, id)
	if err != nil {
		v.setFlashLocked(&Flash{Kind: FlashError, Text: msgDeleteFailed + domain.Message(err)})
		return
	}
	v.notifyLocked()
}

// FeedFailed shows the static realtime error until the page reloads.
func (v *View) FeedFailed(err error) {
	if err == nil {
		return
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.feedErr = domain.MsgFeedBroken
	v.notifyLocked()
}

// State renders the current list with the view state around it.
func (v *View) State() State {
	list := v.store.List()

	v.mu.Lock()
	defer v.mu.Unlock()

	s := State{
		Bookmarks: list,
		Loading:   v.loading,
		FeedError: v.feedErr,
	}
	if len(list) == 0 {
		s.Empty = domain.MsgEmptyList
	}
	if v.flash != nil {
		f := *v.flash
		s.Flash = &f
	}
	for id := range v.deleting {
		s.Deleting = append(s.Deleting, id)
	}
	sort.Strings(s.Deleting)
	return s
}

// Close stops the pending dismiss timer. Further intents are ignored.
func (v *View) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.closed = true
	if v.flashTimer != nil {
		v.flashTimer.Stop()
		v.flashTimer = nil
	}
}

// setFlashLocked replaces the message. Success messages dismiss
// themselves after flashTTL; errors stay until the next intent.
func (v *View) setFlashLocked(f *Flash) {
	if v.flashTimer != nil {
		v.flashTimer.Stop()
		v.flashTimer = nil
	}
	v.flash = f
	v.notifyLocked()

	if f == nil || f.Kind != FlashSuccess || v.closed {
		return
	}
	var t *time.Timer
	t = time.AfterFunc(v.flashTTL, func() {
		v.mu.Lock()
		defer v.mu.Unlock()
		if v.flashTimer != t {
			return
		}
		v.flashTimer = nil
		v.flash = nil
		v.notifyLocked()
	})
	v.flashTimer = t
}

func (v *View) notifyLocked() {
	select {
	case v.changed <- struct{}{}:
	default:
	}
}
