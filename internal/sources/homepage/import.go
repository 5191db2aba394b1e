package homepage

import (
	"context"
	"fmt"

	"github.com/MrSnakeDoc/marks/internal/domain"
)

// Target receives imported links. *backend.Client implements it, so every
// insert reaches the change feed like a manual add.
type Target interface {
	List(ctx context.Context) ([]domain.Bookmark, error)
	Create(ctx context.Context, url, title string) (domain.Bookmark, error)
}

// Result counts what an import did.
type Result struct {
	Added   int
	Skipped int
}

// Import adds every entry whose URL the target does not hold yet, so
// running it twice adds nothing the second time. Entries are created last
// to first: the list is newest first and ends up in file order.
func Import(ctx context.Context, t Target, entries []Entry) (Result, error) {
	existing, err := t.List(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("failed to list bookmarks: %w", err)
	}
	have := make(map[string]bool, len(existing))
	for _, b := range existing {
		have[b.URL] = true
	}

	var res Result
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		if have[e.URL] {
			res.Skipped++
			continue
		}
		if _, err := t.Create(ctx, e.URL, e.Title); err != nil {
			return res, fmt.Errorf("failed to import %s: %w", e.URL, err)
		}
		have[e.URL] = true
		res.Added++
	}
	return res, nil
}
