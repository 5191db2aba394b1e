package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/marks/internal/domain"
)

// Publisher emits row changes.
type Publisher struct {
	client *redis.Client
	now    func() time.Time
}

func NewPublisher(client *redis.Client) *Publisher {
	return &Publisher{client: client, now: time.Now}
}

// Publish sends c to its table channel. CommitTimestamp and Schema are
// filled in when empty.
func (p *Publisher) Publish(ctx context.Context, c Change) error {
	if c.Schema == "" {
		c.Schema = SchemaPublic
	}
	if c.CommitTimestamp.IsZero() {
		c.CommitTimestamp = p.now().UTC()
	}
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal change: %w", err)
	}
	if err := p.client.Publish(ctx, Channel(c.Table), data).Err(); err != nil {
		return fmt.Errorf("failed to publish change: %w", err)
	}
	return nil
}

func (p *Publisher) Inserted(ctx context.Context, b domain.Bookmark) error {
	return p.Publish(ctx, Change{Type: EventInsert, Table: TableBookmarks, Record: &b})
}

func (p *Publisher) Updated(ctx context.Context, old, b domain.Bookmark) error {
	return p.Publish(ctx, Change{Type: EventUpdate, Table: TableBookmarks, Record: &b, OldRecord: &old})
}

// Deleted only needs the identity of the row.
func (p *Publisher) Deleted(ctx context.Context, id, userID string) error {
	old := domain.Bookmark{ID: id, UserID: userID}
	return p.Publish(ctx, Change{Type: EventDelete, Table: TableBookmarks, OldRecord: &old})
}
