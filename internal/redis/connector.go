// Package redis dials the shared Redis client used for sessions and the
// change feed.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/MrSnakeDoc/marks/internal/config"
	"github.com/MrSnakeDoc/marks/internal/logger"
)

// ConnectOptions are the client settings plus the startup retry policy.
type ConnectOptions struct {
	Addr           string        // Redis address (ex: "localhost:6379")
	User           string        // Optional username
	Password       string        // Optional password
	RedisDB        int           // Redis DB number
	DialTimeout    time.Duration // Redis dial timeout
	ReadTimeout    time.Duration // Redis read timeout
	WriteTimeout   time.Duration // Redis write timeout
	PoolSize       int           // Redis connection pool size
	ConnectTimeout time.Duration // Total time allowed for connection attempts (ex: 30s)
	RetryInterval  time.Duration // Initial wait between retries (ex: 2s, grows exponentially)
	MaxWait        time.Duration // max wait between retries (ex: 10s)
	PingTimeout    time.Duration // timeout for each ping attempt (ex: 2s)
	WarnThreshold  int           // warn after this many attempts
}

// OptionsFromConfig maps the Redis settings of cfg.
func OptionsFromConfig(cfg *config.Config) ConnectOptions {
	return ConnectOptions{
		Addr:           cfg.RedisAddr,
		User:           cfg.RedisUser,
		Password:       cfg.RedisPassword,
		RedisDB:        cfg.RedisDB,
		DialTimeout:    cfg.RedisDT,
		ReadTimeout:    cfg.RedisRT,
		WriteTimeout:   cfg.RedisWT,
		PoolSize:       cfg.RedisPoolSize,
		ConnectTimeout: cfg.RedisConnectTimeout,
		RetryInterval:  cfg.RedisRetryInterval,
		MaxWait:        cfg.RedisMaxWait,
		PingTimeout:    cfg.RedisPingTimeout,
		WarnThreshold:  cfg.RedisWarnThreshold,
	}
}

// dialer runs the connect loop of one New call.
type dialer struct {
	client *redis.Client
	opts   ConnectOptions
	log    logger.Logger
}

// validate rejects retry settings that would spin or never try.
func (o ConnectOptions) validate() error {
	var errs []error
	for _, d := range []struct {
		name string
		v    time.Duration
	}{
		{"ConnectTimeout", o.ConnectTimeout},
		{"RetryInterval", o.RetryInterval},
		{"MaxWait", o.MaxWait},
		{"PingTimeout", o.PingTimeout},
	} {
		if d.v <= 0 {
			errs = append(errs, fmt.Errorf("%s must be > 0, got %v", d.name, d.v))
		}
	}
	if o.WarnThreshold < 0 {
		errs = append(errs, fmt.Errorf("WarnThreshold must be >= 0, got %d", o.WarnThreshold))
	}
	if o.Addr == "" {
		errs = append(errs, errors.New("addr is required"))
	}
	return errors.Join(errs...)
}

// New creates a Redis client and pings it until it answers. Retries back
// off exponentially up to MaxWait; the whole loop is bounded by
// ConnectTimeout and ctx. The client is closed when no connection could be
// established.
func New(ctx context.Context, opts ConnectOptions, log logger.Logger) (*redis.Client, error) {
	log = log.With(logger.Component("redis"), logger.String("addr", opts.Addr))
	if err := opts.validate(); err != nil {
		log.Error("invalid redis options", logger.Error(err))
		return nil, fmt.Errorf("invalid redis options: %w", err)
	}

	d := &dialer{
		client: redis.NewClient(&redis.Options{
			Addr:         opts.Addr,
			Username:     opts.User,
			Password:     opts.Password,
			DB:           opts.RedisDB,
			DialTimeout:  opts.DialTimeout,
			ReadTimeout:  opts.ReadTimeout,
			WriteTimeout: opts.WriteTimeout,
			PoolSize:     opts.PoolSize,
		}),
		opts: opts,
		log:  log,
	}

	if err := d.connect(ctx); err != nil {
		_ = d.client.Close()
		return nil, err
	}
	return d.client, nil
}

func (d *dialer) connect(parent context.Context) error {
	ctx, cancel := context.WithTimeout(parent, d.opts.ConnectTimeout)
	defer cancel()

	start := time.Now()
	wait := d.opts.RetryInterval
	d.log.Info("connecting to redis", logger.Duration("timeout", d.opts.ConnectTimeout))

	for attempt := 1; ; attempt++ {
		err := d.ping(ctx)
		if err == nil {
			if attempt > 1 {
				d.log.Warn("connected to redis after retry",
					logger.Int("attempts", attempt),
					logger.Duration("elapsed", time.Since(start)))
			} else {
				d.log.Info("connected to redis")
			}
			return nil
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			if parent.Err() != nil {
				return fmt.Errorf("redis connect to %s cancelled after %d attempts: %w", d.opts.Addr, attempt, parent.Err())
			}
			d.log.Error("redis unavailable, giving up",
				logger.Int("attempts", attempt),
				logger.Duration("timeout", d.opts.ConnectTimeout),
				logger.Error(err))
			return fmt.Errorf("redis unavailable at %s after %d attempts (timeout: %v): %w",
				d.opts.Addr, attempt, d.opts.ConnectTimeout, err)
		case <-timer.C:
			d.retrying(ctx, attempt, wait, err)
			wait = min(wait*2, d.opts.MaxWait)
		}
	}
}

func (d *dialer) ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, d.opts.PingTimeout)
	defer cancel()
	return d.client.Ping(ctx).Err()
}

// retrying logs at warn for the first WarnThreshold attempts, then at error,
// and always at error once less than 10s remain.
func (d *dialer) retrying(ctx context.Context, attempt int, wait time.Duration, err error) {
	fields := []zap.Field{
		logger.Int("attempt", attempt),
		logger.Duration("next_retry_in", wait),
		logger.Error(err),
	}
	remaining := time.Duration(0)
	if deadline, ok := ctx.Deadline(); ok {
		remaining = time.Until(deadline)
	}

	switch {
	case remaining < 10*time.Second:
		d.log.Error("redis still down, timeout approaching", append(fields, logger.Duration("remaining", remaining))...)
	case attempt <= d.opts.WarnThreshold:
		d.log.Warn("redis connection failed, retrying", fields...)
	default:
		d.log.Error("redis still unavailable", fields...)
	}
}
