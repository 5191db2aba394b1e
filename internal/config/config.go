package config

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	ListenPort      string        // ex: ":8080"
	ShutdownTimeout time.Duration // ex: 5s

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	PublicURL string // ex: https://marks.domain.ext, empty => derived from each request
	DataDir   string // directory holding the SQLite database

	// Sign-in
	GoogleClientID     string
	GoogleClientSecret string
	SessionSecret      string        // HMAC key for session tokens
	SessionTTL         time.Duration // ex: 168h
	SecureCookies      bool          // false only for plain-http local dev

	// Live view
	FeedSubscribeTimeout time.Duration // how long to wait for the change feed to confirm a subscription
	FlashTTL             time.Duration // how long success messages stay visible

	// Background jobs
	GCInterval     time.Duration // how often expired sessions are swept from the indexes
	ImportFile     string        // optional Homepage bookmarks.yaml / services.yaml kept imported
	ImportFormat   string        // "bookmarks" | "services", empty => guessed from the file name
	ImportUser     string        // owner of imported links (email or user id)
	ImportInterval time.Duration // how often ImportFile is read again

	// Redis
	RedisAddr             string        // ex: "localhost:6379"
	RedisUser             string        // optional
	RedisPassword         string        // optional
	RedisPasswordRequired bool          // true => require password, false => allow empty password
	RedisDB               int           // Redis DB number
	RedisDT               time.Duration // Redis dial timeout (ex: 5s)
	RedisRT               time.Duration // Redis read timeout (ex: 3s)
	RedisWT               time.Duration // Redis write timeout (ex: 3s)
	RedisMaxWait          time.Duration // max wait between retries (ex: 10s)
	RedisPingTimeout      time.Duration // timeout for each ping attempt (ex: 5s)
	RedisPoolSize         int           // Redis connection pool size
	RedisConnectTimeout   time.Duration // Total time to retry connecting (ex: 30s)
	RedisRetryInterval    time.Duration // Initial wait between retries (ex: 2s, grows exponentially)
	RedisWarnThreshold    int           // warn after this many attempts

	AllowedHosts []string // optional, restrict access to specific Host headers
	AllowedCIDRS []string // optional, restrict ops endpoints to specific IPs/CIDRs
	TrustProxy   bool     // true => trust X-Forwarded-For headers (e.g. cloudflared)

	AuthRateBurst  int // token bucket size for /auth and /api
	AuthRatePerMin int // refill rate per client IP
}

// src is the viper instance every helper reads from. Env vars always win;
// a YAML file named by MARKS_CONFIG_FILE can provide the same keys in lower case.
var src = newSource(os.Getenv("MARKS_CONFIG_FILE"))

func newSource(file string) *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()
	if file == "" {
		return v
	}
	v.SetConfigFile(file)
	if err := v.ReadInConfig(); err != nil {
		panic(fmt.Sprintf("❌ FATAL: cannot read config file %s: %v", file, err))
	}
	return v
}

func Load() *Config {
	cfg := &Config{
		// Server settings
		ListenPort:      getenv("MARKS_LISTEN_PORT", ":8080"),
		ShutdownTimeout: mustDuration("MARKS_SHUTDOWN_TIMEOUT", 5*time.Second),

		// Logging
		LogLevel:  getenv("MARKS_LOG_LEVEL", "info"),
		PrettyLog: mustBool("MARKS_PRETTY_LOG", true),

		PublicURL: normalizePublicURL(getenv("MARKS_PUBLIC_URL", "")),
		DataDir:   getenv("MARKS_DATA_DIR", "./data"),

		// Sign-in
		GoogleClientID:     requireEnv("MARKS_GOOGLE_CLIENT_ID"),
		GoogleClientSecret: requireEnv("MARKS_GOOGLE_CLIENT_SECRET"),
		SessionSecret:      requireEnv("MARKS_SESSION_SECRET"),
		SessionTTL:         mustDuration("MARKS_SESSION_TTL", 7*24*time.Hour),
		SecureCookies:      mustBool("MARKS_SECURE_COOKIES", true),

		FeedSubscribeTimeout: mustDuration("MARKS_FEED_SUBSCRIBE_TIMEOUT", 10*time.Second),
		FlashTTL:             mustDuration("MARKS_FLASH_TTL", 3*time.Second),

		GCInterval:     mustDuration("MARKS_SESSION_GC_INTERVAL", time.Hour),
		ImportFile:     getenv("MARKS_IMPORT_FILE", ""),
		ImportFormat:   getenv("MARKS_IMPORT_FORMAT", ""),
		ImportUser:     getenv("MARKS_IMPORT_USER", ""),
		ImportInterval: mustDuration("MARKS_IMPORT_INTERVAL", 15*time.Minute),

		// Redis settings
		RedisAddr:             requireEnv("MARKS_REDIS_ADDR"),
		RedisUser:             getenv("MARKS_REDIS_USERNAME", "default"),
		RedisPasswordRequired: mustBool("MARKS_REDIS_PASSWORD_REQUIRED", true),
		RedisPassword:         getenv("MARKS_REDIS_PASSWORD", ""),
		RedisDB:               getenvInt("MARKS_REDIS_DB", 0),
		RedisDT:               mustDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
		RedisRT:               mustDuration("REDIS_READ_TIMEOUT", 3*time.Second),
		RedisWT:               mustDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		RedisMaxWait:          mustDuration("REDIS_MAX_WAIT", 10*time.Second),
		RedisPingTimeout:      mustDuration("REDIS_PING_TIMEOUT", 5*time.Second),
		RedisPoolSize:         getenvInt("REDIS_POOL_SIZE", 10),
		RedisConnectTimeout:   mustDuration("REDIS_CONNECT_TIMEOUT", 30*time.Second),
		RedisRetryInterval:    mustDuration("REDIS_RETRY_INTERVAL", 2*time.Second),
		RedisWarnThreshold:    getenvInt("REDIS_WARN_THRESHOLD", 3),

		// Access restrictions
		AllowedHosts: splitAndTrim(getenv("MARKS_ALLOWED_HOSTS", "")),
		AllowedCIDRS: parseAllowedIPs(getenv("MARKS_ALLOWED_CIDRS", "")),
		TrustProxy:   mustBool("MARKS_TRUST_PROXY", true),

		AuthRateBurst:  getenvInt("MARKS_AUTH_RATE_BURST", 10),
		AuthRatePerMin: getenvInt("MARKS_AUTH_RATE_PER_MIN", 30),
	}

	if cfg.RedisPasswordRequired && cfg.RedisPassword == "" {
		panic("❌ FATAL: MARKS_REDIS_PASSWORD is required when MARKS_REDIS_PASSWORD_REQUIRED=true")
	}
	if cfg.ImportFile != "" && cfg.ImportUser == "" {
		panic("❌ FATAL: MARKS_IMPORT_USER is required when MARKS_IMPORT_FILE is set")
	}
	if len(cfg.SessionSecret) < 32 {
		panic("❌ FATAL: MARKS_SESSION_SECRET must be at least 32 bytes")
	}

	if cfg.LogLevel == "debug" {
		log.Printf("[DEBUG] cfg: %+v\n", cfg.Redacted())
	}

	return cfg
}

// Redacted returns a copy that is safe to print.
func (c Config) Redacted() Config {
	const mask = "***REDACTED***"
	c.GoogleClientSecret = mask
	c.SessionSecret = mask
	if c.RedisPassword != "" {
		c.RedisPassword = mask
	}
	if c.RedisUser != "" {
		c.RedisUser = mask
	}
	return c
}

// helpers
func getenv(key, def string) string {
	if v := src.GetString(key); v != "" {
		return v
	}
	return def
}

func requireEnv(key string) string {
	v := src.GetString(key)
	if v == "" {
		panic(fmt.Sprintf("❌ FATAL: Required environment variable %s is not set", key))
	}
	return v
}

func getenvInt(key string, def int) int {
	if v := src.GetString(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func mustBool(key string, def bool) bool {
	if v := src.GetString(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func mustDuration(key string, def time.Duration) time.Duration {
	if v := src.GetString(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func parseAllowedIPs(allowed string) []string {
	if allowed == "" {
		return nil
	}
	ips := make([]string, 0, 4)
	for _, ip := range splitAndTrim(allowed) {
		if ip != "" {
			ips = append(ips, ip)
		}
	}
	return ips
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		trimmed := strings.TrimSpace(part)
		// Remove surrounding quotes if present
		trimmed = strings.Trim(trimmed, `"'`)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}

// normalizePublicURL keeps scheme://host[:port] and drops any path or trailing slash.
// Panics on anything that is not an absolute http(s) URL.
func normalizePublicURL(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		panic(fmt.Sprintf("❌ FATAL: MARKS_PUBLIC_URL must be an absolute http(s) URL, got %q", raw))
	}
	return u.Scheme + "://" + u.Host
}
