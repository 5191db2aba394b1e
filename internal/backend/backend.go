// Package backend is the data service a signed-in session talks to.
//
// A Client is built per session by Factory.For and only ever reads or
// writes rows of its own user. Every write is published on the change feed
// so other sessions of the same user can follow.
package backend

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/marks/internal/domain"
	"github.com/MrSnakeDoc/marks/internal/feed"
	"github.com/MrSnakeDoc/marks/internal/logger"
)

// ChannelPrefix names per-user feed channels.
const ChannelPrefix = "bookmarks-realtime-"

// Rows is the row storage. *sqlite.Store implements it.
type Rows interface {
	ListBookmarks(ctx context.Context, userID string) ([]domain.Bookmark, error)
	GetBookmark(ctx context.Context, userID, id string) (domain.Bookmark, error)
	CreateBookmark(ctx context.Context, userID, url, title string) (domain.Bookmark, error)
	UpdateBookmarkTitle(ctx context.Context, userID, id, title string) (old, updated domain.Bookmark, err error)
	DeleteBookmark(ctx context.Context, userID, id string) (bool, error)
}

// Factory builds per-session clients sharing one set of connections.
type Factory struct {
	rows             Rows
	publisher        *feed.Publisher
	redis            *redis.Client
	subscribeTimeout time.Duration
	log              logger.Logger
}

func NewFactory(rows Rows, rdb *redis.Client, subscribeTimeout time.Duration, log logger.Logger) *Factory {
	return &Factory{
		rows:             rows,
		publisher:        feed.NewPublisher(rdb),
		redis:            rdb,
		subscribeTimeout: subscribeTimeout,
		log:              log.With(logger.Component("backend")),
	}
}

// For returns a client scoped to user.
func (f *Factory) For(user domain.User) *Client {
	return &Client{
		f:    f,
		user: user,
		log:  f.log.With(logger.String("user_id", user.ID)),
	}
}

// Client is one session's handle on the data service.
type Client struct {
	f    *Factory
	user domain.User
	log  logger.Logger

	mu  sync.Mutex
	sub *feed.Subscription
}

func (c *Client) User() domain.User { return c.user }

// List returns the user's bookmarks, newest first.
func (c *Client) List(ctx context.Context) ([]domain.Bookmark, error) {
	return c.f.rows.ListBookmarks(ctx, c.user.ID)
}

func (c *Client) Get(ctx context.Context, id string) (domain.Bookmark, error) {
	return c.f.rows.GetBookmark(ctx, c.user.ID, id)
}

// Create inserts a row for the user and returns it as stored.
func (c *Client) Create(ctx context.Context, url, title string) (domain.Bookmark, error) {
	b, err := c.f.rows.CreateBookmark(ctx, c.user.ID, url, title)
	if err != nil {
		return domain.Bookmark{}, err
	}
	if err := c.f.publisher.Inserted(ctx, b); err != nil {
		c.log.Warn("insert not published", logger.String("id", b.ID), logger.Error(err))
	}
	return b, nil
}

// Update renames a row. An empty title falls back to the URL host.
func (c *Client) Update(ctx context.Context, id, title string) (domain.Bookmark, error) {
	if strings.TrimSpace(title) == "" {
		cur, err := c.f.rows.GetBookmark(ctx, c.user.ID, id)
		if err != nil {
			return domain.Bookmark{}, err
		}
		title = domain.DeriveTitle(cur.URL, "")
	}

	old, updated, err := c.f.rows.UpdateBookmarkTitle(ctx, c.user.ID, id, strings.TrimSpace(title))
	if err != nil {
		return domain.Bookmark{}, err
	}
	if err := c.f.publisher.Updated(ctx, old, updated); err != nil {
		c.log.Warn("update not published", logger.String("id", id), logger.Error(err))
	}
	return updated, nil
}

// Delete removes a row. Missing rows are not an error and publish nothing.
func (c *Client) Delete(ctx context.Context, id string) error {
	gone, err := c.f.rows.DeleteBookmark(ctx, c.user.ID, id)
	if err != nil {
		return err
	}
	if !gone {
		return nil
	}
	if err := c.f.publisher.Deleted(ctx, id, c.user.ID); err != nil {
		c.log.Warn("delete not published", logger.String("id", id), logger.Error(err))
	}
	return nil
}

// ChannelName is the feed channel of this client's user.
func (c *Client) ChannelName() string {
	return ChannelPrefix + c.user.ID
}

// Subscribe opens the user's change feed, releasing any channel this
// client opened before. It returns once the feed confirmed or failed.
func (c *Client) Subscribe(ctx context.Context) (*feed.Subscription, error) {
	c.release()

	sub, err := feed.Subscribe(ctx, c.f.redis, c.ChannelName(),
		feed.Filter{Table: feed.TableBookmarks, UserID: c.user.ID},
		c.f.subscribeTimeout, c.log)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.sub = sub
	c.mu.Unlock()
	return sub, nil
}

// Close releases the open channel, if any.
func (c *Client) Close() error {
	return c.release()
}

func (c *Client) release() error {
	c.mu.Lock()
	sub := c.sub
	c.sub = nil
	c.mu.Unlock()
	if sub == nil {
		return nil
	}
	return sub.Close()
}
