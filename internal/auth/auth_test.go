package auth

import (
	"context"
	"crypto/tls"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/marks/internal/backend"
	"github.com/MrSnakeDoc/marks/internal/domain"
	"github.com/MrSnakeDoc/marks/internal/logger"
	redisstore "github.com/MrSnakeDoc/marks/internal/store/redis"
	"github.com/MrSnakeDoc/marks/internal/store/sqlite"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type fakeProvider struct {
	profile      Profile
	err          error
	gotCode      string
	gotRedirect  string
	authRedirect string
}

func (p *fakeProvider) AuthCodeURL(state, redirectURL string) string {
	p.authRedirect = redirectURL
	return "https://provider.example/auth?state=" + url.QueryEscape(state)
}

func (p *fakeProvider) Exchange(_ context.Context, code, redirectURL string) (Profile, error) {
	p.gotCode = code
	p.gotRedirect = redirectURL
	return p.profile, p.err
}

type env struct {
	mr       *miniredis.Miniredis
	store    *redisstore.Store
	sessions *Sessions
	factory  *backend.Factory
}

func setup(t *testing.T) *env {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	rows, err := sqlite.Open(context.Background(), t.TempDir())
	if err != nil {
		t.Fatalf("sqlite.Open() error = %v", err)
	}
	t.Cleanup(func() { _ = rows.Close() })

	store := redisstore.NewStore(rdb)
	return &env{
		mr:       mr,
		store:    store,
		sessions: NewSessions(store, testSecret, time.Hour, false),
		factory:  backend.NewFactory(rows, rdb, time.Second, logger.New("error", false)),
	}
}

// withCookies copies the cookies set on rec onto a new request.
func withCookies(rec *httptest.ResponseRecorder, target string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for _, c := range rec.Result().Cookies() {
		if c.MaxAge >= 0 && c.Value != "" {
			req.AddCookie(c)
		}
	}
	return req
}

func signIn(t *testing.T, e *env, user domain.User) *http.Request {
	t.Helper()
	rec := httptest.NewRecorder()
	if err := e.sessions.Issue(context.Background(), rec, user); err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	return withCookies(rec, "/dashboard")
}

func TestSessionRoundTrip(t *testing.T) {
	e := setup(t)
	user := domain.User{ID: "u1", Email: "me@example.org"}

	req := signIn(t, e, user)
	sess, err := e.sessions.Resolve(context.Background(), req)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if sess.User != user {
		t.Errorf("Resolve().User = %+v, want %+v", sess.User, user)
	}
}

func TestResolveWithoutSession(t *testing.T) {
	e := setup(t)

	tests := []struct {
		name   string
		cookie string
	}{
		{name: "no cookie"},
		{name: "garbage", cookie: "not-a-token"},
		{name: "wrong key", cookie: signWith(t, "another-secret-another-secret-xx", "sid", "u1", time.Hour)},
		{name: "expired", cookie: signWith(t, testSecret, "sid", "u1", -time.Minute)},
		{name: "unknown session", cookie: signWith(t, testSecret, "01HUNKNOWN", "u1", time.Hour)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: SessionCookie, Value: tt.cookie})
			}
			if _, err := e.sessions.Resolve(context.Background(), req); !errors.Is(err, ErrNoSession) {
				t.Errorf("Resolve() error = %v, want ErrNoSession", err)
			}
		})
	}
}

func TestResolveRejectsSubjectMismatch(t *testing.T) {
	e := setup(t)
	sess, _ := e.store.CreateSession(context.Background(), domain.User{ID: "u1"}, time.Hour)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: signWith(t, testSecret, sess.ID, "u2", time.Hour)})
	if _, err := e.sessions.Resolve(context.Background(), req); !errors.Is(err, ErrNoSession) {
		t.Errorf("Resolve() error = %v, want ErrNoSession", err)
	}
}

func TestRevoke(t *testing.T) {
	e := setup(t)
	req := signIn(t, e, domain.User{ID: "u1"})

	rec := httptest.NewRecorder()
	if err := e.sessions.Revoke(context.Background(), rec, req); err != nil {
		t.Fatalf("Revoke() error = %v", err)
	}
	if _, err := e.sessions.Resolve(context.Background(), req); !errors.Is(err, ErrNoSession) {
		t.Errorf("session still valid after Revoke: %v", err)
	}

	cleared := false
	for _, c := range rec.Result().Cookies() {
		if c.Name == SessionCookie && c.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Error("Revoke() did not clear the cookie")
	}

	// revoking without a cookie is fine
	if err := e.sessions.Revoke(context.Background(), httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", nil)); err != nil {
		t.Errorf("Revoke() without cookie error = %v", err)
	}
}

func TestFlow(t *testing.T) {
	e := setup(t)
	p := &fakeProvider{profile: Profile{Subject: "google-123", Email: "me@example.org", Name: "Me"}}
	flow := NewFlow(p, e.sessions, "", false)

	beginRec := httptest.NewRecorder()
	begin := httptest.NewRequest(http.MethodGet, "http://marks.local/auth/login", nil)
	target, err := flow.Begin(beginRec, begin)
	if err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	if p.authRedirect != "http://marks.local/auth/callback" {
		t.Errorf("redirect URL = %q", p.authRedirect)
	}
	u, _ := url.Parse(target)
	state := u.Query().Get("state")
	if state == "" {
		t.Fatal("state missing from provider URL")
	}

	cb := withCookies(beginRec, "http://marks.local/auth/callback?code=abc&state="+url.QueryEscape(state))
	cbRec := httptest.NewRecorder()
	user, err := flow.Complete(context.Background(), cbRec, cb)
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if p.gotCode != "abc" || p.gotRedirect != "http://marks.local/auth/callback" {
		t.Errorf("exchange got code=%q redirect=%q", p.gotCode, p.gotRedirect)
	}
	if user.Email != "me@example.org" || user != UserFromProfile(p.profile) {
		t.Errorf("user = %+v", user)
	}

	sess, err := e.sessions.Resolve(context.Background(), withCookies(cbRec, "/dashboard"))
	if err != nil || sess.User.ID != user.ID {
		t.Errorf("callback did not sign in: %v", err)
	}
}

func TestFlowRejects(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		cookie  string
		exchErr error
		want    error
	}{
		{name: "no state cookie", query: "code=abc&state=s1", want: ErrStateMismatch},
		{name: "state differs", query: "code=abc&state=s2", cookie: "s1", want: ErrStateMismatch},
		{name: "no code", query: "state=s1", cookie: "s1", want: ErrMissingCode},
		{name: "provider error", query: "error=access_denied&state=s1", cookie: "s1"},
		{name: "exchange fails", query: "code=abc&state=s1", cookie: "s1", exchErr: errors.New("bad code")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := setup(t)
			flow := NewFlow(&fakeProvider{err: tt.exchErr}, e.sessions, "https://marks.example", false)

			req := httptest.NewRequest(http.MethodGet, "/auth/callback?"+tt.query, nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: stateCookie, Value: tt.cookie})
			}
			_, err := flow.Complete(context.Background(), httptest.NewRecorder(), req)
			if err == nil {
				t.Fatal("Complete() = nil, want error")
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("Complete() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestUserFromProfileIsStable(t *testing.T) {
	a := UserFromProfile(Profile{Subject: "123"})
	b := UserFromProfile(Profile{Subject: "123", Email: "changed@example.org"})
	c := UserFromProfile(Profile{Subject: "456"})

	if a.ID != b.ID {
		t.Error("same subject must map to the same user id")
	}
	if a.ID == c.ID {
		t.Error("different subjects must not collide")
	}
	if len(a.ID) != 36 || a.ID[14] != '5' {
		t.Errorf("user id %q is not a UUIDv5", a.ID)
	}
}

func TestOrigin(t *testing.T) {
	plain := httptest.NewRequest(http.MethodGet, "http://marks.local/x", nil)

	forwarded := httptest.NewRequest(http.MethodGet, "http://internal:8080/x", nil)
	forwarded.Header.Set("X-Forwarded-Proto", "https")
	forwarded.Header.Set("X-Forwarded-Host", "marks.example")

	secure := httptest.NewRequest(http.MethodGet, "https://marks.local/x", nil)
	secure.TLS = &tls.ConnectionState{}

	tests := []struct {
		name   string
		req    *http.Request
		public string
		trust  bool
		want   string
	}{
		{"public url wins", plain, "https://marks.example", false, "https://marks.example"},
		{"plain request", plain, "", false, "http://marks.local"},
		{"tls request", secure, "", false, "https://marks.local"},
		{"trusted proxy headers", forwarded, "", true, "https://marks.example"},
		{"untrusted proxy headers", forwarded, "", false, "http://internal:8080"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Origin(tt.req, tt.public, tt.trust); got != tt.want {
				t.Errorf("Origin() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGateCheck(t *testing.T) {
	e := setup(t)
	gate := NewGate(e.sessions, e.factory)
	user := domain.User{ID: "u1", Email: "me@example.org"}
	ctx := context.Background()

	if _, err := gate.Check(ctx, httptest.NewRequest(http.MethodGet, "/dashboard", nil)); !errors.Is(err, ErrNoSession) {
		t.Fatalf("Check() without session error = %v, want ErrNoSession", err)
	}

	older, _ := e.factory.For(user).Create(ctx, "https://old.example", "old")
	newer, _ := e.factory.For(user).Create(ctx, "https://new.example", "new")
	_, _ = e.factory.For(domain.User{ID: "u2"}).Create(ctx, "https://other.example", "other")

	a, err := gate.Check(ctx, signIn(t, e, user))
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if a.User != user || a.Client == nil {
		t.Errorf("Access = %+v", a)
	}
	if len(a.Bookmarks) != 2 || a.Bookmarks[0].ID != newer.ID || a.Bookmarks[1].ID != older.ID {
		t.Errorf("snapshot = %+v, want [new old]", a.Bookmarks)
	}
}

func signWith(t *testing.T, secret, sid, sub string, ttl time.Duration) string {
	t.Helper()
	now := time.Now()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		SessionID: sid,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   sub,
			IssuedAt:  jwt.NewNumericDate(now.Add(-2 * time.Minute)),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	s, err := tok.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

func TestBeginSetsStateCookie(t *testing.T) {
	e := setup(t)
	flow := NewFlow(&fakeProvider{}, e.sessions, "https://marks.example", false)
	rec := httptest.NewRecorder()
	if _, err := flow.Begin(rec, httptest.NewRequest(http.MethodGet, "/auth/login", nil)); err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	found := false
	for _, c := range rec.Result().Cookies() {
		if c.Name == stateCookie && c.HttpOnly && strings.TrimSpace(c.Value) != "" {
			found = true
		}
	}
	if !found {
		t.Error("state cookie not set")
	}
}
