package app

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/marks/internal/auth"
	"github.com/MrSnakeDoc/marks/internal/backend"
	"github.com/MrSnakeDoc/marks/internal/config"
	"github.com/MrSnakeDoc/marks/internal/httpserver"
	"github.com/MrSnakeDoc/marks/internal/httpserver/deps"
	"github.com/MrSnakeDoc/marks/internal/live"
	"github.com/MrSnakeDoc/marks/internal/logger"
	"github.com/MrSnakeDoc/marks/internal/redis"
	"github.com/MrSnakeDoc/marks/internal/scheduler"
	"github.com/MrSnakeDoc/marks/internal/sources/homepage"
	redisstore "github.com/MrSnakeDoc/marks/internal/store/redis"
	"github.com/MrSnakeDoc/marks/internal/store/sqlite"
	"github.com/MrSnakeDoc/marks/internal/utils"
	"github.com/MrSnakeDoc/marks/internal/version"
)

type App struct {
	cfg         *config.Config
	logger      logger.Logger
	server      *httpserver.Server
	redisClient *goredis.Client
	rows        *sqlite.Store
	gc          *scheduler.GarbageCollector
	importer    *scheduler.ImportSync

	// ctx is cancelled on SIGINT/SIGTERM; live sessions run under it.
	ctx  context.Context
	stop context.CancelFunc
}

// Stores holds the two backing stores; the CLI opens them without the
// HTTP server.
type Stores struct {
	Redis *goredis.Client
	Rows  *sqlite.Store
}

// Close releases both stores.
func (s Stores) Close(log logger.Logger) {
	if s.Rows != nil {
		utils.MustClose(s.Rows, "sqlite", log)
	}
	if s.Redis != nil {
		utils.MustClose(s.Redis, "redis", log)
	}
}

// OpenStores connects to Redis (with retries) and opens the SQLite
// database, running migrations.
func OpenStores(ctx context.Context, cfg *config.Config, log logger.Logger) (Stores, error) {
	log.Infof("Connecting to Redis at %s", cfg.RedisAddr)
	rdb, err := redis.New(ctx, redis.OptionsFromConfig(cfg), log)
	if err != nil {
		return Stores{}, fmt.Errorf("failed to connect to redis: %w", err)
	}

	rows, err := sqlite.Open(ctx, cfg.DataDir)
	if err != nil {
		utils.Close(rdb)
		return Stores{}, fmt.Errorf("failed to open sqlite in %s: %w", cfg.DataDir, err)
	}
	log.Info("stores initialized", logger.String("data_dir", cfg.DataDir))
	return Stores{Redis: rdb, Rows: rows}, nil
}

func New() (*App, error) {
	cfg := config.Load()

	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog)
	loggerClient.Debug("configuration loaded", logger.String("config", fmt.Sprintf("%+v", cfg.Redacted())))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	// fail fast if either store is unavailable
	stores, err := OpenStores(ctx, cfg, loggerClient)
	if err != nil {
		stop()
		return nil, err
	}

	sessionStore := redisstore.NewStore(stores.Redis)
	sessions := auth.NewSessions(sessionStore, cfg.SessionSecret, cfg.SessionTTL, cfg.SecureCookies)
	flow := auth.NewFlow(auth.NewGoogle(cfg.GoogleClientID, cfg.GoogleClientSecret), sessions, cfg.PublicURL, cfg.TrustProxy)
	backends := backend.NewFactory(stores.Rows, stores.Redis, cfg.FeedSubscribeTimeout, loggerClient)

	// Manual triggers for POST /reload
	gcTrigger := make(chan struct{}, 1)
	gc := scheduler.NewGarbageCollector(sessionStore, loggerClient, cfg.GCInterval, gcTrigger)

	var importer *scheduler.ImportSync
	var importTrigger chan struct{}
	if cfg.ImportFile != "" {
		loggerClient.Info("import file configured, initializing import sync",
			logger.String("file", cfg.ImportFile),
			logger.String("owner", cfg.ImportUser))
		importTrigger = make(chan struct{}, 1)
		importer = scheduler.NewImportSync(
			cfg.ImportFile,
			homepage.Format(cfg.ImportFormat),
			cfg.ImportUser,
			stores.Rows,
			backends,
			loggerClient,
			cfg.ImportInterval,
			importTrigger,
		)
	} else {
		loggerClient.Info("import file not configured, import sync disabled")
	}

	d := deps.Deps{
		Logger:        loggerClient,
		StartTime:     time.Now(),
		Version:       version.Version,
		Commit:        version.Commit,
		BuildDate:     version.BuildDate,
		GoVersion:     version.GoVersion,
		TimeNow:       time.Now,
		AllowedHosts:  cfg.AllowedHosts,
		AllowedCIDRS:  cfg.AllowedCIDRS,
		TrustProxy:    cfg.TrustProxy,
		RedisClient:   stores.Redis,
		Rows:          stores.Rows,
		Sessions:      sessionStore,
		Gate:          auth.NewGate(sessions, backends),
		Auth:          sessions,
		Flow:          flow,
		Live:          live.Options{FlashTTL: cfg.FlashTTL},
		BaseContext:   ctx,
		RateBurst:     cfg.AuthRateBurst,
		RatePerMin:    cfg.AuthRatePerMin,
		GCTrigger:     gcTrigger,
		ImportTrigger: importTrigger,
	}

	return &App{
		cfg:         cfg,
		logger:      loggerClient,
		server:      httpserver.New(cfg, loggerClient, d),
		redisClient: stores.Redis,
		rows:        stores.Rows,
		gc:          gc,
		importer:    importer,
		ctx:         ctx,
		stop:        stop,
	}, nil
}

func (a *App) Run() error {
	defer a.stop()
	defer func() { _ = a.logger.Sync() }()

	a.logger.Infof("🚀 Starting marks %s on %s", version.Version, a.cfg.ListenPort)
	a.logger.Info(version.String())

	if err := a.gc.Start(a.ctx); err != nil {
		return fmt.Errorf("failed to start session sweeper: %w", err)
	}
	a.logger.Info("session sweeper started", logger.Duration("interval", a.cfg.GCInterval))

	if a.importer != nil {
		if err := a.importer.Start(a.ctx); err != nil {
			return fmt.Errorf("failed to start import sync: %w", err)
		}
		a.logger.Info("import sync started", logger.Duration("interval", a.cfg.ImportInterval))
	}

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	var runErr error
	select {
	case <-a.ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case runErr = <-errCh:
		a.logger.Error("server stopped unexpectedly", logger.Error(runErr))
	}

	// ends the live sessions too
	a.stop()

	a.gc.Stop()
	if a.importer != nil {
		a.importer.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil && runErr == nil {
		runErr = fmt.Errorf("failed to stop server: %w", err)
	}

	Stores{Redis: a.redisClient, Rows: a.rows}.Close(a.logger)

	if runErr != nil {
		return runErr
	}
	a.logger.Info("✅ marks stopped cleanly")
	return nil
}
