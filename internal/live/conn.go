package live

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/MrSnakeDoc/marks/internal/domain"
	"github.com/MrSnakeDoc/marks/internal/feed"
	"github.com/MrSnakeDoc/marks/internal/logger"
	"github.com/MrSnakeDoc/marks/internal/reconcile"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 8 << 10
	sendBuffer     = 16

	MessageState   = "state"
	MessageConfirm = "confirm"
)

// Message is the envelope of everything sent to the page.
type Message struct {
	Type    string  `json:"type"`
	State   *State  `json:"state,omitempty"`
	Confirm *Prompt `json:"confirm,omitempty"`
}

// Client is what a live session needs from the data service.
// *backend.Client implements it.
type Client interface {
	reconcile.Backend
	Subscribe(ctx context.Context) (*feed.Subscription, error)
	Close() error
}

// Options tune a live session.
type Options struct {
	FlashTTL time.Duration
	// CheckOrigin vets the upgrade request; nil allows same-host only.
	CheckOrigin func(r *http.Request) bool
}

// Upgrader builds the websocket upgrader for opts.
func Upgrader(opts Options) *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     opts.CheckOrigin,
	}
}

// Serve runs one dashboard session on conn until the page goes away or ctx
// ends. snapshot seeds the list; the change feed is opened here, once.
func Serve(ctx context.Context, conn *websocket.Conn, client Client, snapshot []domain.Bookmark, opts Options, log logger.Logger) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	store := reconcile.New(client, log)
	store.Seed(snapshot)
	view := NewView(store, opts.FlashTTL)

	s := &session{
		conn:  conn,
		view:  view,
		store: store,
		log:   log.With(logger.Component("live")),
		send:  make(chan Message, sendBuffer),
	}

	defer func() {
		view.Close()
		_ = store.Close()
		_ = client.Close()
	}()

	if sub, err := client.Subscribe(ctx); err != nil {
		view.FeedFailed(err)
	} else {
		go func() {
			if err := store.Run(ctx, sub); err != nil && !errors.Is(err, reconcile.ErrClosed) {
				view.FeedFailed(err)
			}
		}()
	}

	go s.writePump(ctx)
	s.readPump(ctx)
}

type session struct {
	conn  *websocket.Conn
	view  *View
	store *reconcile.Store
	log   logger.Logger
	send  chan Message
}

func (s *session) readPump(ctx context.Context) {
	defer func() { _ = s.conn.Close() }()

	s.conn.SetReadLimit(maxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Warn("live read failed", logger.Error(err))
			}
			return
		}

		var in Intent
		if err := json.Unmarshal(data, &in); err != nil {
			s.log.Debug("dropping malformed intent", logger.Error(err))
			continue
		}

		// intents run concurrently so the page stays live while a call is in flight
		go func(in Intent) {
			if p := s.view.Handle(ctx, in); p != nil {
				s.enqueue(ctx, Message{Type: MessageConfirm, Confirm: p})
			}
		}(in)
	}
}

func (s *session) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()

	if err := s.writeState(); err != nil {
		return
	}

	changes := s.store.Changes()
	for {
		select {
		case <-ctx.Done():
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = s.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
			return
		case _, ok := <-changes:
			if !ok {
				return
			}
			if err := s.writeState(); err != nil {
				return
			}
		case <-s.view.Changed():
			if err := s.writeState(); err != nil {
				return
			}
		case m := <-s.send:
			if err := s.write(m); err != nil {
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *session) writeState() error {
	st := s.view.State()
	return s.write(Message{Type: MessageState, State: &st})
}

func (s *session) write(m Message) error {
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := s.conn.WriteJSON(m); err != nil {
		s.log.Debug("live write failed", logger.Error(err))
		return err
	}
	return nil
}

func (s *session) enqueue(ctx context.Context, m Message) {
	select {
	case s.send <- m:
	case <-ctx.Done():
	}
}
