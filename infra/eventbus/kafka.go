package eventbus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/amirasaad/tripledger/pkg/domain/events"
	"github.com/amirasaad/tripledger/pkg/eventbus"
	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl/plain"
)

// KafkaEventBusConfig holds configuration for the Kafka event bus.
type KafkaEventBusConfig struct {
	GroupID      string
	TopicPrefix  string
	SASLUsername string
	SASLPassword string
}

// DefaultKafkaEventBusConfig returns default configuration for KafkaEventBus.
func DefaultKafkaEventBusConfig() *KafkaEventBusConfig {
	return &KafkaEventBusConfig{
		GroupID:     "tripledger",
		TopicPrefix: defaultTopicPrefix,
	}
}

// KafkaEventBus publishes events to one topic per event type.
type KafkaEventBus struct {
	brokers []string
	writer  *kafka.Writer
	dialer  *kafka.Dialer
	config  *KafkaEventBusConfig
	logger  *slog.Logger

	readersMtx sync.Mutex
	readers    map[events.EventType]*kafka.Reader

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWithKafka creates a Kafka-backed event bus.
// brokers: comma-separated list (e.g. "localhost:9092,localhost:9093")
func NewWithKafka(brokers string, logger *slog.Logger, config *KafkaEventBusConfig) (*KafkaEventBus, error) {
	parsed := parseBrokers(brokers)
	if len(parsed) == 0 {
		return nil, fmt.Errorf("kafka event bus: brokers are required")
	}
	if config == nil {
		config = DefaultKafkaEventBusConfig()
	}
	if config.GroupID == "" {
		config.GroupID = "tripledger"
	}

	dialer := &kafka.Dialer{Timeout: 5 * time.Second}
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(parsed...),
		AllowAutoTopicCreation: true,
		RequiredAcks:           kafka.RequireOne,
		Balancer:               &kafka.Hash{},
	}
	if user := strings.TrimSpace(config.SASLUsername); user != "" {
		mechanism := plain.Mechanism{Username: user, Password: config.SASLPassword}
		dialer.SASLMechanism = mechanism
		writer.Transport = &kafka.Transport{SASL: mechanism}
	}

	ctx, cancel := context.WithCancel(context.Background())
	bus := &KafkaEventBus{
		brokers: parsed,
		writer:  writer,
		dialer:  dialer,
		config:  config,
		logger:  logger.With("bus", "kafka"),
		readers: make(map[events.EventType]*kafka.Reader),
		ctx:     ctx,
		cancel:  cancel,
	}

	conn, err := dialer.DialContext(ctx, "tcp", parsed[0])
	if err != nil {
		_ = bus.Close()
		return nil, fmt.Errorf("kafka event bus: connection failed: %w", err)
	}
	_ = conn.Close()

	bus.logger.Info("kafka event bus initialized", "group_id", config.GroupID, "brokers", parsed)
	return bus, nil
}

// Emit publishes an event to the topic of its type, keyed by event type.
func (b *KafkaEventBus) Emit(ctx context.Context, event events.Event) error {
	raw, err := encodeEnvelope(event)
	if err != nil {
		return fmt.Errorf("kafka event bus: %w", err)
	}
	eventType := events.EventType(event.Type())
	msg := kafka.Message{
		Topic: topicNameFor(b.config.TopicPrefix, eventType),
		Key:   []byte(event.Type()),
		Value: raw,
		Time:  time.Now(),
	}
	if err := b.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka event bus: publish failed: %w", err)
	}
	return nil
}

// Register starts a reader for the topic of eventType. Only one reader is
// started per type; later registrations for the same type share it.
func (b *KafkaEventBus) Register(eventType events.EventType, handler eventbus.HandlerFunc) {
	b.readersMtx.Lock()
	defer b.readersMtx.Unlock()

	if _, exists := b.readers[eventType]; exists {
		b.logger.Warn("handler already registered for event type", "event_type", eventType)
		return
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     b.brokers,
		GroupID:     b.config.GroupID,
		Topic:       topicNameFor(b.config.TopicPrefix, eventType),
		StartOffset: kafka.FirstOffset,
		MinBytes:    1,
		MaxBytes:    10e6,
		MaxWait:     time.Second,
		Dialer:      b.dialer,
	})
	b.readers[eventType] = reader

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.consumeLoop(eventType, reader, handler)
	}()
}

func (b *KafkaEventBus) consumeLoop(eventType events.EventType, reader *kafka.Reader, handler eventbus.HandlerFunc) {
	for {
		msg, err := reader.FetchMessage(b.ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || b.ctx.Err() != nil {
				return
			}
			b.logger.Error("kafka consume error", "error", err, "event_type", eventType)
			time.Sleep(500 * time.Millisecond)
			continue
		}

		if err := b.process(eventType, msg, handler); err != nil {
			b.logger.Error("kafka message processing failed", "error", err, "offset", msg.Offset)
			if dlqErr := b.publishToDLQ(eventType, msg.Value); dlqErr != nil {
				b.logger.Error("kafka dlq publish failed; will retry", "error", dlqErr)
				time.Sleep(500 * time.Millisecond)
				continue
			}
		}
		if err := reader.CommitMessages(b.ctx, msg); err != nil {
			b.logger.Error("kafka commit error", "error", err, "offset", msg.Offset)
		}
	}
}

func (b *KafkaEventBus) process(eventType events.EventType, msg kafka.Message, handler eventbus.HandlerFunc) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	_, evt, err := decodeEnvelope(msg.Value)
	if err != nil {
		return err
	}
	return handler(b.ctx, evt)
}

func (b *KafkaEventBus) publishToDLQ(eventType events.EventType, raw []byte) error {
	return b.writer.WriteMessages(b.ctx, kafka.Message{
		Topic: dlqTopicNameFor(b.config.TopicPrefix, eventType),
		Key:   []byte(eventType.String()),
		Value: raw,
		Time:  time.Now(),
	})
}

// Close stops background readers and closes the writer.
func (b *KafkaEventBus) Close() error {
	b.cancel()
	b.readersMtx.Lock()
	for _, r := range b.readers {
		_ = r.Close()
	}
	b.readersMtx.Unlock()
	b.wg.Wait()
	return b.writer.Close()
}

var _ eventbus.Bus = (*KafkaEventBus)(nil)
