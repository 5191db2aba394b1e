// Package auth signs users in with Google and gates the bookmark views on
// a live session.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/MrSnakeDoc/marks/internal/domain"
)

const (
	// CallbackPath is where the provider sends the browser back to.
	CallbackPath = "/auth/callback"

	googleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"
	stateCookie       = "marks_oauth_state"
	stateTTL          = 10 * time.Minute
)

var (
	ErrStateMismatch = errors.New("oauth state mismatch")
	ErrMissingCode   = errors.New("missing authorization code")
)

// Profile is what the identity provider tells us about the user.
type Profile struct {
	Subject string `json:"sub"`
	Email   string `json:"email"`
	Name    string `json:"name"`
}

// IdentityProvider runs the authorization code exchange.
type IdentityProvider interface {
	AuthCodeURL(state, redirectURL string) string
	Exchange(ctx context.Context, code, redirectURL string) (Profile, error)
}

// Google is the only provider.
type Google struct {
	cfg         oauth2.Config
	userInfoURL string
}

func NewGoogle(clientID, clientSecret string) *Google {
	return &Google{
		cfg: oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     google.Endpoint,
			Scopes:       []string{"openid", "email", "profile"},
		},
		userInfoURL: googleUserInfoURL,
	}
}

func (g *Google) AuthCodeURL(state, redirectURL string) string {
	cfg := g.cfg
	cfg.RedirectURL = redirectURL
	return cfg.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

func (g *Google) Exchange(ctx context.Context, code, redirectURL string) (Profile, error) {
	cfg := g.cfg
	cfg.RedirectURL = redirectURL

	tok, err := cfg.Exchange(ctx, code)
	if err != nil {
		return Profile{}, fmt.Errorf("failed to exchange code: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.userInfoURL, nil)
	if err != nil {
		return Profile{}, err
	}
	resp, err := cfg.Client(ctx, tok).Do(req)
	if err != nil {
		return Profile{}, fmt.Errorf("failed to fetch user info: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Profile{}, fmt.Errorf("user info returned %d: %s", resp.StatusCode, body)
	}

	var p Profile
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return Profile{}, fmt.Errorf("failed to decode user info: %w", err)
	}
	if p.Subject == "" {
		return Profile{}, errors.New("user info without subject")
	}
	return p, nil
}

// userNamespace scopes derived user IDs to this provider.
var userNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://accounts.google.com"))

// UserFromProfile maps a provider profile to a stable local user.
func UserFromProfile(p Profile) domain.User {
	return domain.User{
		ID:    uuid.NewSHA1(userNamespace, []byte(p.Subject)).String(),
		Email: p.Email,
		Name:  p.Name,
	}
}

// Flow drives sign-in: Begin redirects to the provider, Complete handles
// the callback and opens a session.
type Flow struct {
	provider   IdentityProvider
	sessions   *Sessions
	publicURL  string
	trustProxy bool
}

func NewFlow(provider IdentityProvider, sessions *Sessions, publicURL string, trustProxy bool) *Flow {
	return &Flow{
		provider:   provider,
		sessions:   sessions,
		publicURL:  publicURL,
		trustProxy: trustProxy,
	}
}

// RedirectURL is the fixed callback for the origin serving r.
func (f *Flow) RedirectURL(r *http.Request) string {
	return Origin(r, f.publicURL, f.trustProxy) + CallbackPath
}

// Begin stores a fresh state in a cookie and returns the provider URL.
func (f *Flow) Begin(w http.ResponseWriter, r *http.Request) (string, error) {
	state, err := randomToken(32)
	if err != nil {
		return "", err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/auth",
		MaxAge:   int(stateTTL.Seconds()),
		HttpOnly: true,
		Secure:   f.sessions.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return f.provider.AuthCodeURL(state, f.RedirectURL(r)), nil
}

// Complete checks state, exchanges the code and signs the user in.
func (f *Flow) Complete(ctx context.Context, w http.ResponseWriter, r *http.Request) (domain.User, error) {
	q := r.URL.Query()

	c, err := r.Cookie(stateCookie)
	http.SetCookie(w, &http.Cookie{Name: stateCookie, Value: "", Path: "/auth", MaxAge: -1, HttpOnly: true, Secure: f.sessions.secure})
	if err != nil || c.Value == "" || c.Value != q.Get("state") {
		return domain.User{}, ErrStateMismatch
	}
	if e := q.Get("error"); e != "" {
		return domain.User{}, fmt.Errorf("provider error: %s", e)
	}
	code := q.Get("code")
	if code == "" {
		return domain.User{}, ErrMissingCode
	}

	p, err := f.provider.Exchange(ctx, code, f.RedirectURL(r))
	if err != nil {
		return domain.User{}, err
	}
	user := UserFromProfile(p)
	if err := f.sessions.Issue(ctx, w, user); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

// Origin returns scheme://host for r, preferring publicURL when set.
func Origin(r *http.Request, publicURL string, trustProxy bool) string {
	if publicURL != "" {
		return publicURL
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	host := r.Host
	if trustProxy {
		if p := r.Header.Get("X-Forwarded-Proto"); p == "http" || p == "https" {
			scheme = p
		}
		if h := r.Header.Get("X-Forwarded-Host"); h != "" {
			host = h
		}
	}
	return scheme + "://" + host
}

func randomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
