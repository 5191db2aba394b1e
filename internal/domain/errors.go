package domain

import (
	"errors"
	"fmt"
)

// Kind classifies failures the way the UI reacts to them.
type Kind string

const (
	// KindValidation rejects input before any backend call.
	KindValidation Kind = "validation"
	// KindRemote is a failed backend call; its message is shown as-is.
	KindRemote Kind = "remote"
	// KindFeed means the change feed errored or timed out. Not retried.
	KindFeed Kind = "feed"
	// KindNotFound is returned for rows the caller cannot see.
	KindNotFound Kind = "not_found"
	// KindUnauthorized means there is no usable session.
	KindUnauthorized Kind = "unauthorized"
)

const (
	MsgInvalidURL    = "Please enter a valid URL starting with http:// or https://"
	MsgFeedBroken    = "Realtime connection error. Please refresh the page."
	MsgAdded         = "Bookmark added successfully!"
	MsgConfirmDelete = "Are you sure you want to delete this bookmark?"
	MsgEmptyList     = "No bookmarks yet. Add one above."
)

// Error carries a Kind, a user-facing message and an optional cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func NewValidation(msg string, err error) *Error {
	return &Error{Kind: KindValidation, Message: msg, Err: err}
}

// NewRemote wraps a backend failure. The cause's text becomes the message
// so it can be surfaced verbatim.
func NewRemote(err error) *Error {
	msg := "request failed"
	if err != nil {
		msg = err.Error()
	}
	return &Error{Kind: KindRemote, Message: msg, Err: err}
}

func NewFeed(err error) *Error {
	return &Error{Kind: KindFeed, Message: MsgFeedBroken, Err: err}
}

func NewNotFound(what string) *Error {
	return &Error{Kind: KindNotFound, Message: what + " not found"}
}

// ErrUnauthorized is returned when a request carries no valid session.
var ErrUnauthorized = &Error{Kind: KindUnauthorized, Message: "not signed in"}

// IsKind reports whether any error in err's chain is a *Error of kind k.
func IsKind(err error, k Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == k
	}
	return false
}

// Message returns the user-facing text of err.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
