package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultChangeChannel is the Redis Pub/Sub channel document change
// events are published on.
const DefaultChangeChannel = "freightflow:docstore:changed"

const notifierCloseTimeout = 5 * time.Second

// RedisNotifier broadcasts document change events over Redis Pub/Sub so
// every server instance can refresh its Watch subscribers.
type RedisNotifier struct {
	client     *redis.Client
	ownsClient bool
	channel    string
	logger     *zap.Logger
	cancelFn   context.CancelFunc
	doneCh     chan struct{}
	doneOnce   sync.Once
	mu         sync.Mutex
	isRunning  bool
}

// RedisNotifierOption configures a RedisNotifier.
type RedisNotifierOption func(*RedisNotifier)

// WithNotifierChannel overrides the Pub/Sub channel name.
func WithNotifierChannel(channel string) RedisNotifierOption {
	return func(n *RedisNotifier) { n.channel = channel }
}

// WithNotifierLogger sets the logger.
func WithNotifierLogger(logger *zap.Logger) RedisNotifierOption {
	return func(n *RedisNotifier) { n.logger = logger }
}

// NewRedisNotifier creates a notifier with its own Redis connection.
func NewRedisNotifier(addr, password string, db int, opts ...RedisNotifierOption) (*RedisNotifier, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	n := &RedisNotifier{
		client:     client,
		ownsClient: true,
		channel:    DefaultChangeChannel,
		logger:     zap.NewNop(),
		doneCh:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n, nil
}

// NewRedisNotifierWithClient creates a notifier on an existing client.
// The caller retains ownership of the client.
func NewRedisNotifierWithClient(client *redis.Client, opts ...RedisNotifierOption) *RedisNotifier {
	n := &RedisNotifier{
		client:     client,
		ownsClient: false,
		channel:    DefaultChangeChannel,
		logger:     zap.NewNop(),
		doneCh:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Publish sends a change event to all subscribers.
func (n *RedisNotifier) Publish(ctx context.Context, event ChangeEvent) error {
	if event.Timestamp == 0 {
		event.Timestamp = time.Now().UnixNano()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal change event: %w", err)
	}

	if err := n.client.Publish(ctx, n.channel, data).Err(); err != nil {
		n.logger.Error("Failed to publish document change event",
			zap.String("channel", n.channel),
			zap.String("collection", event.Collection),
			zap.Error(err))
		return fmt.Errorf("failed to publish change event: %w", err)
	}

	n.logger.Debug("Published document change event",
		zap.String("collection", event.Collection),
		zap.String("channel", n.channel))
	return nil
}

// Subscribe blocks, invoking callback for each change event, until ctx
// is cancelled. It should be called in a goroutine.
func (n *RedisNotifier) Subscribe(ctx context.Context, callback func(event ChangeEvent)) error {
	n.mu.Lock()
	if n.isRunning {
		n.mu.Unlock()
		return fmt.Errorf("subscription already running")
	}
	n.isRunning = true
	n.mu.Unlock()

	subCtx, cancel := context.WithCancel(ctx)
	n.mu.Lock()
	n.cancelFn = cancel
	n.mu.Unlock()

	pubsub := n.client.Subscribe(subCtx, n.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(subCtx); err != nil {
		n.mu.Lock()
		n.isRunning = false
		n.mu.Unlock()
		return fmt.Errorf("failed to subscribe to channel: %w", err)
	}

	n.logger.Info("Subscribed to document change channel",
		zap.String("channel", n.channel))

	ch := pubsub.Channel()
	for {
		select {
		case <-subCtx.Done():
			n.mu.Lock()
			n.isRunning = false
			n.mu.Unlock()
			n.markDone()
			return subCtx.Err()
		case msg, ok := <-ch:
			if !ok {
				n.logger.Warn("Document change channel closed")
				n.mu.Lock()
				n.isRunning = false
				n.mu.Unlock()
				n.markDone()
				return nil
			}

			var event ChangeEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				n.logger.Error("Failed to unmarshal change event",
					zap.String("payload", msg.Payload),
					zap.Error(err))
				continue
			}
			callback(event)
		}
	}
}

func (n *RedisNotifier) markDone() {
	n.doneOnce.Do(func() { close(n.doneCh) })
}

// Close stops the subscription and releases the client if owned.
func (n *RedisNotifier) Close() error {
	n.mu.Lock()
	cancelFn := n.cancelFn
	n.mu.Unlock()

	if cancelFn != nil {
		cancelFn()
		select {
		case <-n.doneCh:
		case <-time.After(notifierCloseTimeout):
			n.logger.Warn("Timeout waiting for subscription to stop")
		}
	}

	if n.ownsClient {
		return n.client.Close()
	}
	return nil
}

var _ Notifier = (*RedisNotifier)(nil)

// localNotifier is an in-process Notifier for tests and single-node
// deployments without Redis.
type localNotifier struct {
	mu        sync.Mutex
	callbacks []func(event ChangeEvent)
}

// NewLocalNotifier returns a Notifier that delivers events within the
// current process only.
func NewLocalNotifier() Notifier {
	return &localNotifier{}
}

func (l *localNotifier) Publish(_ context.Context, event ChangeEvent) error {
	l.mu.Lock()
	callbacks := make([]func(ChangeEvent), len(l.callbacks))
	copy(callbacks, l.callbacks)
	l.mu.Unlock()

	for _, cb := range callbacks {
		cb(event)
	}
	return nil
}

func (l *localNotifier) Subscribe(ctx context.Context, callback func(event ChangeEvent)) error {
	l.mu.Lock()
	l.callbacks = append(l.callbacks, callback)
	l.mu.Unlock()
	<-ctx.Done()
	return ctx.Err()
}

func (l *localNotifier) Close() error { return nil }
