package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrSnakeDoc/marks/internal/domain"
)

// RecordLogin creates or refreshes the row of a user who just signed in.
func (s *Store) RecordLogin(ctx context.Context, u domain.User) error {
	now := s.now().UTC().UnixMilli()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, name, created_at, last_login_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			email = excluded.email,
			name = excluded.name,
			last_login_at = excluded.last_login_at`,
		u.ID, u.Email, u.Name, now, now)
	if err != nil {
		return fmt.Errorf("failed to record login: %w", err)
	}
	return nil
}

// UserByEmail finds a user who signed in at least once. Matching ignores
// case; the most recent login wins when an address was reused.
func (s *Store) UserByEmail(ctx context.Context, email string) (domain.User, error) {
	var u domain.User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, name
		FROM users
		WHERE email = ? COLLATE NOCASE
		ORDER BY last_login_at DESC
		LIMIT 1`, strings.TrimSpace(email)).Scan(&u.ID, &u.Email, &u.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, domain.NewNotFound("user")
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("failed to look up user: %w", err)
	}
	return u, nil
}

// FindUser resolves ref as an email when it contains "@", else as a user id.
func (s *Store) FindUser(ctx context.Context, ref string) (domain.User, error) {
	ref = strings.TrimSpace(ref)
	if strings.Contains(ref, "@") {
		return s.UserByEmail(ctx, ref)
	}
	return s.GetUser(ctx, ref)
}

func (s *Store) GetUser(ctx context.Context, id string) (domain.User, error) {
	var u domain.User
	err := s.db.QueryRowContext(ctx, `SELECT id, email, name FROM users WHERE id = ?`, id).
		Scan(&u.ID, &u.Email, &u.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, domain.NewNotFound("user")
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("failed to look up user: %w", err)
	}
	return u, nil
}

// LastLogin returns when id last signed in.
func (s *Store) LastLogin(ctx context.Context, id string) (time.Time, error) {
	var ms int64
	err := s.db.QueryRowContext(ctx, `SELECT last_login_at FROM users WHERE id = ?`, id).Scan(&ms)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, domain.NewNotFound("user")
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to read last login: %w", err)
	}
	return time.UnixMilli(ms).UTC(), nil
}

func (s *Store) CountUsers(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return n, nil
}
