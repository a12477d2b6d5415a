package eventbus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/amirasaad/tripledger/pkg/domain/events"
	"github.com/amirasaad/tripledger/pkg/eventbus"
	"github.com/redis/go-redis/v9"
)

// RedisEventBus publishes events to one Redis stream per event type and
// consumes them through a consumer group.
type RedisEventBus struct {
	client *redis.Client
	group  string
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWithRedis creates a Redis-backed event bus.
// url: Redis connection URL (e.g. "redis://localhost:6379/0")
// group: consumer group prefix shared by all ledger instances
func NewWithRedis(url, group string, logger *slog.Logger) (*RedisEventBus, error) {
	if url == "" || group == "" {
		return nil, fmt.Errorf("redis event bus: url and group are required")
	}

	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis event bus: invalid URL: %w", err)
	}

	client := redis.NewClient(opt)
	if err := client.Ping(context.Background()).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis event bus: connection failed: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &RedisEventBus{
		client: client,
		group:  group,
		logger: logger.With("bus", "redis"),
		ctx:    ctx,
		cancel: cancel,
	}, nil
}

// Emit publishes an event to the stream of its type.
func (b *RedisEventBus) Emit(ctx context.Context, event events.Event) error {
	eventType := events.EventType(event.Type())
	raw, err := encodeEnvelope(event)
	if err != nil {
		return fmt.Errorf("redis event bus: %w", err)
	}

	_, err = b.client.XAdd(ctx, &redis.XAddArgs{
		Stream: streamNameFor(eventType),
		Values: map[string]any{"event": string(raw)},
	}).Result()
	if err != nil {
		b.logger.Error("failed to emit event", "error", err, "type", eventType)
		return fmt.Errorf("redis event bus: emit failed: %w", err)
	}

	b.logger.Debug("event emitted", "type", eventType)
	return nil
}

// Register starts a consumer on the stream for eventType.
func (b *RedisEventBus) Register(eventType events.EventType, handler eventbus.HandlerFunc) {
	stream := streamNameFor(eventType)
	group := groupNameFor(b.group, eventType)
	if err := b.client.XGroupCreateMkStream(b.ctx, stream, group, "0").Err(); err != nil &&
		!isBusyGroup(err) {
		b.logger.Error("failed to create consumer group", "error", err, "stream", stream)
		return
	}

	host, _ := os.Hostname()
	consumer := fmt.Sprintf("%s-%d", host, time.Now().UnixNano())
	b.logger.Info("registering handler", "event_type", eventType, "consumer", consumer)

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.consume(stream, group, consumer, eventType, handler)
	}()
}

func (b *RedisEventBus) consume(stream, group, consumer string, eventType events.EventType, handler eventbus.HandlerFunc) {
	for {
		res, err := b.client.XReadGroup(b.ctx, &redis.XReadGroupArgs{
			Group:    group,
			Consumer: consumer,
			Streams:  []string{stream, ">"},
			Count:    10,
			Block:    5 * time.Second,
		}).Result()
		if b.ctx.Err() != nil {
			return
		}
		if err != nil {
			if !errors.Is(err, redis.Nil) {
				b.logger.Error("error reading from stream", "error", err, "consumer", consumer)
				time.Sleep(time.Second)
			}
			continue
		}

		for _, s := range res {
			for _, msg := range s.Messages {
				b.handleMessage(stream, group, eventType, msg, handler)
			}
		}
	}
}

func (b *RedisEventBus) handleMessage(stream, group string, eventType events.EventType, msg redis.XMessage, handler eventbus.HandlerFunc) {
	defer func() {
		if err := b.client.XAck(b.ctx, stream, group, msg.ID).Err(); err != nil {
			b.logger.Error("failed to acknowledge message", "error", err, "msg_id", msg.ID)
		}
	}()

	raw, ok := msg.Values["event"].(string)
	if !ok {
		b.pushToDLQ(eventType, msg.Values)
		return
	}
	_, evt, err := decodeEnvelope([]byte(raw))
	if err != nil {
		b.logger.Error("failed to decode event", "error", err, "msg_id", msg.ID)
		b.pushToDLQ(eventType, msg.Values)
		return
	}

	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("handler panic recovered", "panic", r, "event_type", eventType)
			b.pushToDLQ(eventType, msg.Values)
		}
	}()
	if err := handler(b.ctx, evt); err != nil {
		b.logger.Error("handler error", "error", err, "event_type", eventType)
		b.pushToDLQ(eventType, msg.Values)
	}
}

// pushToDLQ stores the raw message on the type's dead-letter stream.
func (b *RedisEventBus) pushToDLQ(eventType events.EventType, values map[string]any) {
	dlq := dlqStreamName(eventType)
	if err := b.client.XAdd(b.ctx, &redis.XAddArgs{Stream: dlq, Values: values}).Err(); err != nil {
		b.logger.Error("failed to push to DLQ", "error", err, "stream", dlq)
		return
	}
	b.logger.Warn("event pushed to DLQ", "stream", dlq)
}

// Close stops the consumers and closes the client.
func (b *RedisEventBus) Close() error {
	b.cancel()
	b.wg.Wait()
	return b.client.Close()
}

func isBusyGroup(err error) bool {
	return err != nil && strings.HasPrefix(err.Error(), "BUSYGROUP")
}

var _ eventbus.Bus = (*RedisEventBus)(nil)
