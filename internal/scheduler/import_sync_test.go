package scheduler

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/marks/internal/backend"
	"github.com/MrSnakeDoc/marks/internal/domain"
	"github.com/MrSnakeDoc/marks/internal/logger"
	"github.com/MrSnakeDoc/marks/internal/store/sqlite"
)

func TestImportSync(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	rows, err := sqlite.Open(ctx, t.TempDir())
	if err != nil {
		t.Fatalf("sqlite.Open() error = %v", err)
	}
	t.Cleanup(func() { _ = rows.Close() })

	file := filepath.Join(t.TempDir(), "bookmarks.yaml")
	yaml := `---
- Developer:
    - Github:
        - href: https://github.com/
    - Go:
        - href: https://go.dev/
`
	if err := os.WriteFile(file, []byte(yaml), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	log := logger.New("error", false)
	factory := backend.NewFactory(rows, rdb, time.Second, log)
	job := NewImportSync(file, "", "alice@example.com", rows, factory, log, time.Hour, nil)

	// owner unknown until the first sign-in
	if _, err := job.Sync(ctx); !domain.IsKind(err, domain.KindNotFound) {
		t.Fatalf("Sync() before login error = %v, want not found", err)
	}

	user := domain.User{ID: "u-alice", Email: "alice@example.com"}
	if err := rows.RecordLogin(ctx, user); err != nil {
		t.Fatalf("RecordLogin() error = %v", err)
	}

	res, err := job.Sync(ctx)
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	if res.Added != 2 {
		t.Errorf("Added = %d, want 2", res.Added)
	}

	list, _ := rows.ListBookmarks(ctx, user.ID)
	if len(list) != 2 || list[0].Title != "Github" || list[1].Title != "Go" {
		t.Errorf("ListBookmarks() = %+v", list)
	}

	res, err = job.Sync(ctx)
	if err != nil || res.Added != 0 || res.Skipped != 2 {
		t.Errorf("second Sync() = %+v, %v", res, err)
	}
}
