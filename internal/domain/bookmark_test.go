package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{name: "https", url: "https://example.org/page", wantErr: false},
		{name: "http with port", url: "http://localhost:8080/x?y=1", wantErr: false},
		{name: "no scheme", url: "not-a-url", wantErr: true},
		{name: "ftp scheme", url: "ftp://example.org/file", wantErr: true},
		{name: "javascript scheme", url: "javascript:alert(1)", wantErr: true},
		{name: "missing host", url: "https://", wantErr: true},
		{name: "empty", url: "", wantErr: true},
		{name: "unparseable", url: "http://[::1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateURL(tt.url)
			if tt.wantErr && err == nil {
				t.Fatalf("ValidateURL(%q) = nil, want error", tt.url)
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("ValidateURL(%q) = %v, want nil", tt.url, err)
			}
			if err != nil && !IsKind(err, KindValidation) {
				t.Errorf("ValidateURL(%q) error kind = %v, want validation", tt.url, err)
			}
		})
	}
}

func TestDeriveTitle(t *testing.T) {
	tests := []struct {
		name  string
		url   string
		title string
		want  string
	}{
		{name: "explicit title kept", url: "https://example.org/page", title: "Docs", want: "Docs"},
		{name: "blank title uses host", url: "https://example.org/page", title: "", want: "example.org"},
		{name: "whitespace title uses host", url: "https://example.org/page", title: "   ", want: "example.org"},
		{name: "host without port", url: "http://localhost:8080/", title: "", want: "localhost"},
		{name: "no host falls back to url", url: "mailto:me@example.org", title: "", want: "mailto:me@example.org"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DeriveTitle(tt.url, tt.title); got != tt.want {
				t.Errorf("DeriveTitle(%q, %q) = %q, want %q", tt.url, tt.title, got, tt.want)
			}
		})
	}
}

func TestIndexOf(t *testing.T) {
	list := []Bookmark{{ID: "1"}, {ID: "2"}, {ID: "3"}}
	if got := IndexOf(list, "2"); got != 1 {
		t.Errorf("IndexOf(2) = %d, want 1", got)
	}
	if got := IndexOf(list, "9"); got != -1 {
		t.Errorf("IndexOf(9) = %d, want -1", got)
	}
}

func TestErrorKinds(t *testing.T) {
	cause := errors.New("connection refused")
	remote := NewRemote(cause)

	wrapped := fmt.Errorf("create: %w", remote)
	if !IsKind(wrapped, KindRemote) {
		t.Error("IsKind should see through fmt.Errorf wrapping")
	}
	if IsKind(wrapped, KindValidation) {
		t.Error("remote error must not report validation kind")
	}
	if !errors.Is(wrapped, cause) {
		t.Error("Unwrap chain should reach the cause")
	}
	if got := Message(wrapped); got != "connection refused" {
		t.Errorf("Message() = %q, want cause text verbatim", got)
	}
	if got := Message(NewFeed(nil)); got != MsgFeedBroken {
		t.Errorf("feed message = %q", got)
	}
	if Message(nil) != "" {
		t.Error("Message(nil) should be empty")
	}
}
