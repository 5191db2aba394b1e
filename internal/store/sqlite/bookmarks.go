package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/MrSnakeDoc/marks/internal/domain"
)

const bookmarkColumns = `id, user_id, url, title, created_at, updated_at`

// ListBookmarks returns every row owned by userID, newest first.
func (s *Store) ListBookmarks(ctx context.Context, userID string) ([]domain.Bookmark, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+bookmarkColumns+`
		FROM bookmarks
		WHERE user_id = ?
		ORDER BY created_at DESC, rowid DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookmarks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make([]domain.Bookmark, 0)
	for rows.Next() {
		b, err := scanBookmark(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bookmarks: %w", err)
	}
	return out, nil
}

// GetBookmark returns one row of userID. Rows of other users are reported
// as not found.
func (s *Store) GetBookmark(ctx context.Context, userID, id string) (domain.Bookmark, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+bookmarkColumns+`
		FROM bookmarks
		WHERE id = ? AND user_id = ?`, id, userID)
	b, err := scanBookmark(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Bookmark{}, domain.NewNotFound("bookmark")
	}
	return b, err
}

// CreateBookmark inserts a row and returns it with its assigned id and
// timestamps.
func (s *Store) CreateBookmark(ctx context.Context, userID, url, title string) (domain.Bookmark, error) {
	now := s.now().UTC().Truncate(time.Millisecond)
	b := domain.Bookmark{
		ID:        uuid.NewString(),
		UserID:    userID,
		URL:       url,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO bookmarks (`+bookmarkColumns+`)
		VALUES (?, ?, ?, ?, ?, ?)`,
		b.ID, b.UserID, b.URL, b.Title, now.UnixMilli(), now.UnixMilli())
	if err != nil {
		return domain.Bookmark{}, fmt.Errorf("failed to create bookmark: %w", err)
	}
	return b, nil
}

// UpdateBookmarkTitle renames a row and returns it before and after.
func (s *Store) UpdateBookmarkTitle(ctx context.Context, userID, id, title string) (old, updated domain.Bookmark, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return old, updated, fmt.Errorf("failed to begin update: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	row := tx.QueryRowContext(ctx, `
		SELECT `+bookmarkColumns+`
		FROM bookmarks
		WHERE id = ? AND user_id = ?`, id, userID)
	old, err = scanBookmark(row)
	if errors.Is(err, sql.ErrNoRows) {
		return old, updated, domain.NewNotFound("bookmark")
	}
	if err != nil {
		return old, updated, err
	}

	updated = old
	updated.Title = title
	updated.UpdatedAt = s.now().UTC().Truncate(time.Millisecond)
	// keep updated_at strictly increasing for a row
	if !updated.UpdatedAt.After(old.UpdatedAt) {
		updated.UpdatedAt = old.UpdatedAt.Add(time.Millisecond)
	}

	if _, err = tx.ExecContext(ctx, `
		UPDATE bookmarks SET title = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		updated.Title, updated.UpdatedAt.UnixMilli(), id, userID); err != nil {
		return old, updated, fmt.Errorf("failed to update bookmark: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return old, updated, fmt.Errorf("failed to commit update: %w", err)
	}
	return old, updated, nil
}

// DeleteBookmark removes a row of userID. Deleting a missing row is not an
// error; the returned bool reports whether a row went away.
func (s *Store) DeleteBookmark(ctx context.Context, userID, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM bookmarks WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return false, fmt.Errorf("failed to delete bookmark: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to delete bookmark: %w", err)
	}
	return n > 0, nil
}

// CountBookmarks returns the number of rows across all users.
func (s *Store) CountBookmarks(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM bookmarks`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count bookmarks: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBookmark(r scanner) (domain.Bookmark, error) {
	var (
		b                  domain.Bookmark
		created, updatedMs int64
	)
	if err := r.Scan(&b.ID, &b.UserID, &b.URL, &b.Title, &created, &updatedMs); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return b, err
		}
		return b, fmt.Errorf("failed to scan bookmark: %w", err)
	}
	b.CreatedAt = time.UnixMilli(created).UTC()
	b.UpdatedAt = time.UnixMilli(updatedMs).UTC()
	return b, nil
}
