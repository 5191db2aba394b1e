package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/marks/internal/domain"
	redisstore "github.com/MrSnakeDoc/marks/internal/store/redis"
	"github.com/MrSnakeDoc/marks/internal/store/sqlite"
	"github.com/MrSnakeDoc/marks/internal/version"
)

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	if err := run(&out, "version"); err != nil {
		t.Fatalf("version: %v", err)
	}
	if strings.TrimSpace(out.String()) != version.String() {
		t.Errorf("version output = %q", out.String())
	}
}

func TestImportDryRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bookmarks.yaml")
	content := `
- Developer:
    - Github:
        - abbr: GH
          href: https://github.com/
- Social:
    - Reddit:
        - href: https://reddit.com/
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	var out bytes.Buffer
	if err := run(&out, "import", "--dry-run", path); err != nil {
		t.Fatalf("import --dry-run: %v", err)
	}
	got := out.String()
	for _, want := range []string{"https://github.com/", "https://reddit.com/", "2 links found"} {
		if !strings.Contains(got, want) {
			t.Errorf("output misses %q:\n%s", want, got)
		}
	}
}

func TestImportNeedsUser(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bookmarks.yaml")
	if err := os.WriteFile(path, []byte("- G:\n    - A:\n        - href: https://a.example/\n"), 0o644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	var out bytes.Buffer
	err := run(&out, "import", "--dry-run=false", "--user=", path)
	if err == nil || !strings.Contains(err.Error(), "--user is required") {
		t.Errorf("err = %v, want missing --user", err)
	}
}

func TestImportMissingFile(t *testing.T) {
	var out bytes.Buffer
	if err := run(&out, "import", "--dry-run", filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected an error for a missing file")
	}
}

// withStores points the configuration at a miniredis and a temp data dir
// and records alice as having signed in.
func withStores(t *testing.T) (*miniredis.Miniredis, string) {
	t.Helper()
	mr := miniredis.RunT(t)
	dir := t.TempDir()

	t.Setenv("MARKS_GOOGLE_CLIENT_ID", "client")
	t.Setenv("MARKS_GOOGLE_CLIENT_SECRET", "secret")
	t.Setenv("MARKS_SESSION_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("MARKS_REDIS_ADDR", mr.Addr())
	t.Setenv("MARKS_REDIS_PASSWORD_REQUIRED", "false")
	t.Setenv("MARKS_DATA_DIR", dir)
	t.Setenv("MARKS_LOG_LEVEL", "error")
	t.Setenv("MARKS_PRETTY_LOG", "false")

	rows, err := sqlite.Open(context.Background(), dir)
	if err != nil {
		t.Fatalf("sqlite.Open() error = %v", err)
	}
	defer func() { _ = rows.Close() }()
	if err := rows.RecordLogin(context.Background(), domain.User{ID: "u1", Email: "alice@example.com"}); err != nil {
		t.Fatalf("RecordLogin() error = %v", err)
	}
	return mr, dir
}

func TestImportIntoStores(t *testing.T) {
	_, dir := withStores(t)
	path := filepath.Join(t.TempDir(), "bookmarks.yaml")
	if err := os.WriteFile(path, []byte("- G:\n    - Go:\n        - href: https://go.dev/\n"), 0o644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	var out bytes.Buffer
	if err := run(&out, "import", "--dry-run=false", "--user=alice@example.com", path); err != nil {
		t.Fatalf("import: %v", err)
	}
	if !strings.Contains(out.String(), "1 added, 0 already present") {
		t.Errorf("output = %q", out.String())
	}

	out.Reset()
	if err := run(&out, "import", "--dry-run=false", "--user=u1", path); err != nil {
		t.Fatalf("second import: %v", err)
	}
	if !strings.Contains(out.String(), "0 added, 1 already present") {
		t.Errorf("second output = %q", out.String())
	}

	rows, err := sqlite.Open(context.Background(), dir)
	if err != nil {
		t.Fatalf("sqlite.Open() error = %v", err)
	}
	defer func() { _ = rows.Close() }()
	list, _ := rows.ListBookmarks(context.Background(), "u1")
	if len(list) != 1 || list[0].Title != "Go" {
		t.Errorf("bookmarks = %+v", list)
	}

	if err := run(&out, "import", "--dry-run=false", "--user=bob@example.com", path); err == nil {
		t.Error("import for an unknown user should fail")
	}
}

func TestSignoutEndsSessions(t *testing.T) {
	mr, _ := withStores(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	store := redisstore.NewStore(rdb)
	user := domain.User{ID: "u1", Email: "alice@example.com"}
	for i := 0; i < 2; i++ {
		if _, err := store.CreateSession(context.Background(), user, time.Hour); err != nil {
			t.Fatalf("CreateSession() error = %v", err)
		}
	}

	var out bytes.Buffer
	if err := run(&out, "signout", "alice@example.com"); err != nil {
		t.Fatalf("signout: %v", err)
	}
	if !strings.Contains(out.String(), "2 session(s) ended") {
		t.Errorf("output = %q", out.String())
	}
}
