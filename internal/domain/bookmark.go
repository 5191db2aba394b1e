package domain

import (
	"net/url"
	"strings"
	"time"
)

// Bookmark is one user-owned link.
//
// ID, CreatedAt and UpdatedAt are assigned by the backend; a Bookmark
// built client-side never carries them.
type Bookmark struct {
	// ID is opaque and unique across all users.
	ID string `json:"id"`

	// UserID owns the row. Every read and write is scoped to it.
	UserID string `json:"user_id"`

	// URL is always an absolute http or https URL.
	URL string `json:"url"`

	// Title defaults to the URL host when the user leaves it empty.
	Title string `json:"title"`

	// CreatedAt drives list order, newest first.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt moves on every write and orders competing updates.
	UpdatedAt time.Time `json:"updated_at"`
}

// ValidateURL accepts only absolute URLs with an http or https scheme.
func ValidateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return NewValidation(MsgInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return NewValidation(MsgInvalidURL, nil)
	}
	if u.Host == "" {
		return NewValidation(MsgInvalidURL, nil)
	}
	return nil
}

// DeriveTitle returns title when set, otherwise the URL host, otherwise
// the raw URL.
func DeriveTitle(rawURL, title string) string {
	if t := strings.TrimSpace(title); t != "" {
		return t
	}
	if u, err := url.Parse(rawURL); err == nil && u.Hostname() != "" {
		return u.Hostname()
	}
	return rawURL
}

// IndexOf returns the position of id in list, or -1.
func IndexOf(list []Bookmark, id string) int {
	for i := range list {
		if list[i].ID == id {
			return i
		}
	}
	return -1
}
