package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/redis/go-redis/v9"

	appctx "github.com/Rath300/research-collab/pkg/context"
	"github.com/Rath300/research-collab/pkg/metrics"
)

const (
	DefaultPrefix  = "realtime"
	DefaultTimeout = 5 * time.Second
)

var ErrNoTenant = errors.New("realtime subscription needs a tenant on the context")

// SubscriberConfig tunes a Subscriber.
type SubscriberConfig struct {
	Prefix  string
	Timeout time.Duration
	// RetryDelay is the pause after a receive error before listening again.
	RetryDelay time.Duration
}

// Subscriber holds at most one live channel. Subscribing again with the same
// filter keeps the channel and swaps the callbacks; a different filter tears
// the previous channel down first.
type Subscriber struct {
	client redis.UniversalClient
	logger ectologger.Logger
	cfg    SubscriberConfig

	mu      sync.Mutex
	current *subscription
}

func NewSubscriber(client redis.UniversalClient, logger ectologger.Logger, cfg SubscriberConfig) *Subscriber {
	if cfg.Prefix == "" {
		cfg.Prefix = DefaultPrefix
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	return &Subscriber{client: client, logger: logger, cfg: cfg}
}

type subscription struct {
	owner   *Subscriber
	filter  Filter
	channel string
	pubsub  *redis.PubSub
	cancel  context.CancelFunc
	once    sync.Once

	mu       sync.Mutex
	callback func(Event)
	onStatus StatusFunc
}

// Subscribe listens for inserts matching filter within the caller's tenant and
// hands each one to callback. Setup runs in the background; its outcome goes
// to onStatus, or to the log when onStatus is nil. The returned teardown is
// safe to call more than once.
func (s *Subscriber) Subscribe(ctx context.Context, filter Filter, callback func(Event), onStatus StatusFunc) func() {
	tenantID := appctx.GetTenantID(ctx)

	s.mu.Lock()
	if cur := s.current; cur != nil {
		if cur.filter == filter && cur.channel == Channel(s.cfg.Prefix, tenantID, filter) {
			cur.swap(callback, onStatus)
			s.mu.Unlock()
			return cur.teardown
		}
		s.current = nil
		s.mu.Unlock()
		cur.teardown()
		s.mu.Lock()
	}
	defer s.mu.Unlock()

	sub := &subscription{
		owner:    s,
		filter:   filter,
		channel:  Channel(s.cfg.Prefix, tenantID, filter),
		callback: callback,
		onStatus: onStatus,
	}

	if tenantID == "" {
		sub.report(ctx, StatusChannelError, ErrNoTenant)
		return func() {}
	}

	// the channel outlives the request that opened it
	listenCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	sub.cancel = cancel
	sub.pubsub = s.client.Subscribe(listenCtx, sub.channel)
	s.current = sub

	metrics.RealtimeSubscriptions.Inc()
	go sub.listen(listenCtx)

	return sub.teardown
}

// Close tears down the live channel, if any.
func (s *Subscriber) Close() {
	s.mu.Lock()
	cur := s.current
	s.current = nil
	s.mu.Unlock()
	if cur != nil {
		cur.teardown()
	}
}

func (sub *subscription) swap(callback func(Event), onStatus StatusFunc) {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	sub.callback = callback
	sub.onStatus = onStatus
}

func (sub *subscription) teardown() {
	sub.once.Do(func() {
		s := sub.owner
		s.mu.Lock()
		if s.current == sub {
			s.current = nil
		}
		s.mu.Unlock()

		if sub.cancel == nil {
			return
		}
		sub.cancel()
		if err := sub.pubsub.Close(); err != nil {
			s.logger.WithError(err).Debugf("closing realtime channel %s", sub.channel)
		}
		metrics.RealtimeSubscriptions.Dec()
	})
}

func (sub *subscription) listen(ctx context.Context) {
	if err := sub.confirm(ctx); err != nil {
		sub.teardown()
		return
	}

	for {
		msg, err := sub.pubsub.ReceiveMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, redis.ErrClosed) {
				sub.report(ctx, StatusClosed, nil)
				return
			}
			sub.report(ctx, StatusChannelError, err)
			select {
			case <-ctx.Done():
				sub.report(ctx, StatusClosed, nil)
				return
			case <-time.After(sub.owner.cfg.RetryDelay):
			}
			continue
		}
		sub.deliver(ctx, msg)
	}
}

// confirm waits for the server to acknowledge the subscription.
func (sub *subscription) confirm(ctx context.Context) error {
	msg, err := sub.pubsub.ReceiveTimeout(ctx, sub.owner.cfg.Timeout)
	if err != nil {
		var netErr net.Error
		switch {
		case ctx.Err() != nil || errors.Is(err, redis.ErrClosed):
			sub.report(ctx, StatusClosed, nil)
		case errors.As(err, &netErr) && netErr.Timeout():
			sub.report(ctx, StatusTimedOut, err)
		default:
			sub.report(ctx, StatusChannelError, err)
		}
		return err
	}

	if _, ok := msg.(*redis.Subscription); !ok {
		err := fmt.Errorf("unexpected %T while subscribing", msg)
		sub.report(ctx, StatusChannelError, err)
		return err
	}
	sub.report(ctx, StatusSubscribed, nil)
	return nil
}

func (sub *subscription) deliver(ctx context.Context, msg *redis.Message) {
	log := sub.owner.logger.WithContext(ctx).WithFields(map[string]any{
		"channel": sub.channel,
	})

	var event Event
	if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
		log.WithError(err).Warnf("dropping malformed realtime payload")
		return
	}
	if event.Type != EventInsert || event.Table != sub.filter.Table {
		return
	}

	sub.mu.Lock()
	callback := sub.callback
	sub.mu.Unlock()
	if callback == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			log.Errorf("realtime callback panicked: %v", r)
		}
	}()
	metrics.RecordRealtimeEvent("delivered", event.Table)
	callback(event)
}

func (sub *subscription) report(ctx context.Context, status Status, err error) {
	metrics.RecordRealtimeStatus(string(status))

	sub.mu.Lock()
	onStatus := sub.onStatus
	sub.mu.Unlock()

	if onStatus != nil {
		onStatus(status, err)
		return
	}

	log := sub.owner.logger.WithContext(ctx).WithFields(map[string]any{
		"channel": sub.channel,
		"status":  string(status),
	})
	if err != nil {
		log.WithError(err).Warnf("realtime channel %s", status)
		return
	}
	log.Debugf("realtime channel %s", status)
}

// Hub hands out independent Subscribers over one shared client, one per
// stream.
type Hub struct {
	client redis.UniversalClient
	logger ectologger.Logger
	cfg    SubscriberConfig
}

func NewHub(client redis.UniversalClient, logger ectologger.Logger, cfg SubscriberConfig) *Hub {
	return &Hub{client: client, logger: logger, cfg: cfg}
}

func (h *Hub) NewSubscriber() *Subscriber {
	return NewSubscriber(h.client, h.logger, h.cfg)
}
