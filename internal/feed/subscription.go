package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/marks/internal/domain"
	"github.com/MrSnakeDoc/marks/internal/logger"
)

// Status mirrors the lifecycle of a channel.
type Status string

const (
	StatusJoining      Status = "JOINING"
	StatusSubscribed   Status = "SUBSCRIBED"
	StatusTimedOut     Status = "TIMED_OUT"
	StatusChannelError Status = "CHANNEL_ERROR"
	StatusClosed       Status = "CLOSED"
)

// DefaultSubscribeTimeout bounds the wait for the subscribe confirmation.
const DefaultSubscribeTimeout = 10 * time.Second

const eventBuffer = 64

var ErrTimedOut = errors.New("subscription timed out")

// Subscription yields the changes matching its filter to a single consumer.
// The channel returned by Events is closed when the subscription ends,
// either through Close or because the connection failed (see Err).
// There is no reconnection.
type Subscription struct {
	name   string
	filter Filter
	ps     *redis.PubSub
	log    logger.Logger

	events chan Change
	done   chan struct{}
	once   sync.Once

	mu     sync.Mutex
	status Status
	err    error
}

// Subscribe joins the table channel named in filter and waits up to timeout
// for the server to confirm. Failures come back as domain feed errors.
func Subscribe(ctx context.Context, client *redis.Client, name string, filter Filter, timeout time.Duration, log logger.Logger) (*Subscription, error) {
	if filter.Table == "" {
		filter.Table = TableBookmarks
	}
	if timeout <= 0 {
		timeout = DefaultSubscribeTimeout
	}
	log = log.With(logger.Component("feed"), logger.String("channel", name))

	s := &Subscription{
		name:   name,
		filter: filter,
		log:    log,
		events: make(chan Change, eventBuffer),
		done:   make(chan struct{}),
		status: StatusJoining,
	}

	s.ps = client.Subscribe(ctx, Channel(filter.Table))

	confirmCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	msg, err := s.ps.Receive(confirmCtx)
	if err == nil {
		if _, ok := msg.(*redis.Subscription); !ok {
			err = fmt.Errorf("unexpected confirmation %T", msg)
		}
	}
	if err != nil {
		_ = s.ps.Close()
		if confirmCtx.Err() != nil || isTimeout(err) {
			s.setStatus(StatusTimedOut, ErrTimedOut)
			log.Warn("change feed subscription timed out", logger.Duration("timeout", timeout))
			return nil, domain.NewFeed(fmt.Errorf("%s: %w", name, ErrTimedOut))
		}
		s.setStatus(StatusChannelError, err)
		log.Error("change feed subscription failed", logger.Error(err))
		return nil, domain.NewFeed(fmt.Errorf("%s: %w", name, err))
	}

	s.setStatus(StatusSubscribed, nil)
	log.Info("change feed subscribed", logger.String("table", filter.Table))

	go s.pump()
	return s, nil
}

// Name returns the channel name given at subscribe time.
func (s *Subscription) Name() string { return s.name }

// Events delivers matching changes in publish order.
func (s *Subscription) Events() <-chan Change { return s.events }

// Status reports the current lifecycle state.
func (s *Subscription) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Err is non-nil once the subscription failed. It stays nil after Close.
func (s *Subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close releases the channel. Safe to call more than once and from any goroutine.
func (s *Subscription) Close() error {
	var err error
	s.once.Do(func() {
		s.mu.Lock()
		if s.status != StatusChannelError {
			s.status = StatusClosed
		}
		s.mu.Unlock()
		close(s.done)
		err = s.ps.Close()
		s.log.Debug("change feed released")
	})
	return err
}

func (s *Subscription) pump() {
	defer close(s.events)

	for {
		msg, err := s.ps.ReceiveMessage(context.Background())
		if err != nil {
			if s.closing() {
				return
			}
			s.setStatus(StatusChannelError, domain.NewFeed(err))
			s.log.Error("change feed connection lost", logger.Error(err))
			_ = s.ps.Close()
			return
		}

		var c Change
		if err := json.Unmarshal([]byte(msg.Payload), &c); err != nil {
			s.log.Warn("dropping undecodable change", logger.Error(err))
			continue
		}
		if !s.filter.match(c) {
			continue
		}

		select {
		case s.events <- c:
		case <-s.done:
			return
		}
	}
}

func (s *Subscription) closing() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

func (s *Subscription) setStatus(st Status, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = st
	if st == StatusChannelError || st == StatusTimedOut {
		s.err = err
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
