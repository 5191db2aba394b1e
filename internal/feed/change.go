// Package feed carries row changes between sessions over Redis pub/sub.
//
// One channel exists per table. Subscribers filter by owner so a session
// only ever sees its own user's rows.
package feed

import (
	"time"

	"github.com/MrSnakeDoc/marks/internal/domain"
)

type EventType string

const (
	EventInsert EventType = "INSERT"
	EventUpdate EventType = "UPDATE"
	EventDelete EventType = "DELETE"
)

const (
	SchemaPublic   = "public"
	TableBookmarks = "bookmarks"

	channelPrefix = "marks:changes:"
)

// Change is one row event. Record is set for INSERT and UPDATE,
// OldRecord for UPDATE and DELETE.
type Change struct {
	Type            EventType        `json:"type"`
	Schema          string           `json:"schema"`
	Table           string           `json:"table"`
	Record          *domain.Bookmark `json:"record,omitempty"`
	OldRecord       *domain.Bookmark `json:"old_record,omitempty"`
	CommitTimestamp time.Time        `json:"commit_timestamp"`
}

// Channel returns the pub/sub channel for table.
func Channel(table string) string {
	return channelPrefix + table
}

// UserID returns the owner of the changed row.
func (c Change) UserID() string {
	if c.Record != nil {
		return c.Record.UserID
	}
	if c.OldRecord != nil {
		return c.OldRecord.UserID
	}
	return ""
}

// RowID returns the id of the changed row.
func (c Change) RowID() string {
	if c.Record != nil {
		return c.Record.ID
	}
	if c.OldRecord != nil {
		return c.OldRecord.ID
	}
	return ""
}

// Filter selects which changes a subscription yields.
type Filter struct {
	Table  string
	UserID string // empty => all owners
}

func (f Filter) match(c Change) bool {
	if c.Table != f.Table {
		return false
	}
	if f.UserID != "" && c.UserID() != f.UserID {
		return false
	}
	switch c.Type {
	case EventInsert, EventUpdate:
		return c.Record != nil
	case EventDelete:
		return c.OldRecord != nil
	default:
		return false
	}
}
