package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/MrSnakeDoc/marks/internal/backend"
	"github.com/MrSnakeDoc/marks/internal/domain"
	"github.com/MrSnakeDoc/marks/internal/logger"
	"github.com/MrSnakeDoc/marks/internal/sources/homepage"
)

// DefaultImportInterval is how often the import file is read again.
const DefaultImportInterval = 15 * time.Minute

// UserFinder resolves the configured owner. *sqlite.Store implements it.
type UserFinder interface {
	FindUser(ctx context.Context, ref string) (domain.User, error)
}

// ImportSync keeps a Homepage file imported into one user's bookmarks.
// Links already present are left alone; nothing is ever deleted.
type ImportSync struct {
	loader        *homepage.Loader
	users         UserFinder
	backends      *backend.Factory
	userRef       string
	logger        logger.Logger
	interval      time.Duration
	stopCh        chan struct{}
	stopOnce      sync.Once
	manualTrigger chan struct{}
}

// NewImportSync creates a sync of file (in format, or guessed when empty)
// into the bookmarks of userRef, an email or a user id.
func NewImportSync(
	file string,
	format homepage.Format,
	userRef string,
	users UserFinder,
	backends *backend.Factory,
	log logger.Logger,
	interval time.Duration,
	manualTrigger chan struct{},
) *ImportSync {
	if interval <= 0 {
		interval = DefaultImportInterval
	}
	return &ImportSync{
		loader:        homepage.NewLoader(file, format),
		users:         users,
		backends:      backends,
		userRef:       userRef,
		logger:        log.With(logger.Component("import"), logger.String("file", file)),
		interval:      interval,
		stopCh:        make(chan struct{}),
		manualTrigger: manualTrigger,
	}
}

// Start runs a first sync and then one per interval. A failing first sync
// is only logged: the owner may simply not have signed in yet.
func (s *ImportSync) Start(ctx context.Context) error {
	if _, err := s.Sync(ctx); err != nil {
		s.logger.Warn("initial import failed", logger.Error(err))
	}

	ticker := time.NewTicker(s.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if _, err := s.Sync(ctx); err != nil {
					s.logger.Error("failed to import bookmarks", logger.Error(err))
				}
			case <-s.manualTrigger:
				s.logger.Info("manual import triggered")
				if _, err := s.Sync(ctx); err != nil {
					s.logger.Error("failed to import bookmarks", logger.Error(err))
				}
			case <-s.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

func (s *ImportSync) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

// Sync reads the file and imports what is new.
func (s *ImportSync) Sync(ctx context.Context) (homepage.Result, error) {
	user, err := s.users.FindUser(ctx, s.userRef)
	if err != nil {
		return homepage.Result{}, fmt.Errorf("failed to resolve import owner %q: %w", s.userRef, err)
	}

	entries, err := s.loader.Load()
	if err != nil {
		return homepage.Result{}, fmt.Errorf("failed to load import file: %w", err)
	}

	client := s.backends.For(user)
	defer func() { _ = client.Close() }()

	res, err := homepage.Import(ctx, client, entries)
	if err != nil {
		return res, err
	}

	if res.Added > 0 {
		s.logger.Info("imported bookmarks",
			logger.String("user_id", user.ID),
			logger.Int("added", res.Added),
			logger.Int("skipped", res.Skipped))
	} else {
		s.logger.Debug("import file already in sync", logger.Int("entries", len(entries)))
	}
	return res, nil
}
