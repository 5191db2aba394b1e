package deps

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/marks/internal/auth"
	"github.com/MrSnakeDoc/marks/internal/live"
	"github.com/MrSnakeDoc/marks/internal/logger"
	redisstore "github.com/MrSnakeDoc/marks/internal/store/redis"
	"github.com/MrSnakeDoc/marks/internal/store/sqlite"
)

type Deps struct {
	Logger       logger.Logger
	StartTime    time.Time
	Version      string
	Commit       string
	BuildDate    string
	GoVersion    string
	TimeNow      func() time.Time // for testing, defaults to time.Now
	AllowedHosts []string         // Host headers allowed to access the server
	AllowedCIDRS []string         // IPs allowed to access healthz/readyz/infra endpoints
	TrustProxy   bool             // true if running behind a trusted reverse proxy (e.g., cloudflared)

	RedisClient *redis.Client     // shared Redis connection
	Rows        *sqlite.Store     // bookmark rows
	Sessions    *redisstore.Store // session records, for ops counters
	Gate        *auth.Gate        // resolves the session cookie
	Auth        *auth.Sessions    // issues and revokes session cookies
	Flow        *auth.Flow        // Google sign-in

	Live        live.Options    // live dashboard tuning
	BaseContext context.Context // cancelled on shutdown; ends open live sessions

	RateBurst  int // token bucket size on /auth and /api
	RatePerMin int // refill per client IP

	GCTrigger     chan struct{} // manual session sweep
	ImportTrigger chan struct{} // manual Homepage re-import (nil if import disabled)
}
