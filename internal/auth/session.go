package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/MrSnakeDoc/marks/internal/domain"
	redisstore "github.com/MrSnakeDoc/marks/internal/store/redis"
)

// SessionCookie carries the signed session token.
const SessionCookie = "marks_session"

const issuer = "marks"

// ErrNoSession means the request is not signed in. It is an outcome, not
// a fault: callers redirect to the sign-in page.
var ErrNoSession = errors.New("no session")

type claims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// Sessions issues and resolves session cookies. The cookie holds an HS256
// token naming a session stored in Redis, so sign-out revokes it at once.
type Sessions struct {
	store  *redisstore.Store
	secret []byte
	ttl    time.Duration
	secure bool
	now    func() time.Time
}

func NewSessions(store *redisstore.Store, secret string, ttl time.Duration, secure bool) *Sessions {
	return &Sessions{
		store:  store,
		secret: []byte(secret),
		ttl:    ttl,
		secure: secure,
		now:    time.Now,
	}
}

// Issue opens a session for user and sets the cookie.
func (s *Sessions) Issue(ctx context.Context, w http.ResponseWriter, user domain.User) error {
	sess, err := s.store.CreateSession(ctx, user, s.ttl)
	if err != nil {
		return err
	}

	token, err := s.sign(sess)
	if err != nil {
		_ = s.store.DeleteSession(ctx, sess.ID)
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		MaxAge:   int(time.Until(sess.ExpiresAt).Seconds()),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Resolve returns the session behind r's cookie, or ErrNoSession.
func (s *Sessions) Resolve(ctx context.Context, r *http.Request) (*redisstore.Session, error) {
	c, err := r.Cookie(SessionCookie)
	if err != nil || c.Value == "" {
		return nil, ErrNoSession
	}

	cl, err := s.parse(c.Value)
	if err != nil {
		return nil, ErrNoSession
	}

	sess, err := s.store.GetSession(ctx, cl.SessionID)
	if errors.Is(err, redisstore.ErrSessionNotFound) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, err
	}
	if sess.User.ID != cl.Subject {
		return nil, ErrNoSession
	}
	return sess, nil
}

// Revoke deletes the session behind r, if any, and clears the cookie.
func (s *Sessions) Revoke(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	defer s.clear(w)

	c, err := r.Cookie(SessionCookie)
	if err != nil || c.Value == "" {
		return nil
	}
	cl, err := s.parse(c.Value)
	if err != nil {
		return nil
	}
	return s.store.DeleteSession(ctx, cl.SessionID)
}

func (s *Sessions) clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Sessions) sign(sess *redisstore.Session) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		SessionID: sess.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   sess.User.ID,
			IssuedAt:  jwt.NewNumericDate(sess.CreatedAt),
			ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt),
		},
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}

func (s *Sessions) parse(raw string) (*claims, error) {
	var cl claims
	_, err := jwt.ParseWithClaims(raw, &cl, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, err
	}
	if cl.SessionID == "" {
		return nil, errors.New("token without session id")
	}
	return &cl, nil
}
