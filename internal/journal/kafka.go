package journal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/rzpsarthak13/rowmap/internal/core"
	"github.com/rzpsarthak13/rowmap/internal/registry"
)

// KafkaJournal publishes events to a topic and consumes them back through a
// consumer group. Size is an approximation kept by this process.
type KafkaJournal struct {
	writer      *kafka.Writer
	reader      *kafka.Reader
	topic       string
	readTimeout time.Duration

	mu     sync.RWMutex
	closed bool
	size   int
}

// NewKafkaJournal creates the producer and consumer for config.Topic.
func NewKafkaJournal(config registry.InternalKafkaConfig) (*KafkaJournal, error) {
	if len(config.Brokers) == 0 {
		return nil, fmt.Errorf("at least one Kafka broker is required")
	}
	if config.Topic == "" {
		return nil, fmt.Errorf("Kafka topic is required")
	}
	if config.GroupID == "" {
		config.GroupID = "rowmap-changes"
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(config.Brokers...),
		Topic:        config.Topic,
		Balancer:     &kafka.Hash{},
		BatchSize:    config.BatchSize,
		BatchTimeout: config.BatchTimeout,
		WriteTimeout: config.WriteTimeout,
		RequiredAcks: kafka.RequiredAcks(config.RequiredAcks),
		MaxAttempts:  3,
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     config.Brokers,
		Topic:       config.Topic,
		GroupID:     config.GroupID,
		MinBytes:    config.MinBytes,
		MaxBytes:    config.MaxBytes,
		MaxWait:     config.MaxWait,
		StartOffset: kafka.FirstOffset,
	})

	readTimeout := config.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = 5 * time.Second
	}

	log.Printf("[KAFKA] Journal ready: brokers %v, topic %s, group %s", config.Brokers, config.Topic, config.GroupID)
	return &KafkaJournal{
		writer:      writer,
		reader:      reader,
		topic:       config.Topic,
		readTimeout: readTimeout,
	}, nil
}

// Append publishes the event to the topic.
func (j *KafkaJournal) Append(ctx context.Context, event *core.ChangeEvent) error {
	j.mu.RLock()
	closed := j.closed
	j.mu.RUnlock()
	if closed {
		return ErrJournalClosed
	}
	if err := checkEvent(event); err != nil {
		return err
	}

	message, err := newMessage(event)
	if err != nil {
		return err
	}
	if err := j.writer.WriteMessages(ctx, message); err != nil {
		log.Printf("[KAFKA] ERROR: Failed to write to topic %s: %v", j.topic, err)
		return fmt.Errorf("failed to write message to Kafka: %w", err)
	}

	j.mu.Lock()
	j.size++
	j.mu.Unlock()
	return nil
}

// Read consumes up to batchSize events, committing each offset once the
// event is decoded. It stops early when no message arrives within the read
// timeout.
func (j *KafkaJournal) Read(ctx context.Context, batchSize int) ([]*core.ChangeEvent, error) {
	j.mu.RLock()
	closed := j.closed
	j.mu.RUnlock()
	if closed {
		return nil, ErrJournalClosed
	}

	batchSize = batchOrDefault(batchSize)
	events := make([]*core.ChangeEvent, 0, batchSize)

	for i := 0; i < batchSize; i++ {
		readCtx, cancel := context.WithTimeout(ctx, j.readTimeout)
		message, err := j.reader.FetchMessage(readCtx)
		cancel()
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
				break
			}
			return events, fmt.Errorf("failed to read from Kafka: %w", err)
		}

		event, err := decodeMessage(message)
		if err != nil {
			log.Printf("[KAFKA] ERROR: Skipping undecodable message (partition %d, offset %d): %v",
				message.Partition, message.Offset, err)
		} else {
			events = append(events, event)
		}

		if err := j.reader.CommitMessages(ctx, message); err != nil {
			log.Printf("[KAFKA] WARNING: Failed to commit offset (partition %d, offset %d): %v",
				message.Partition, message.Offset, err)
		}
	}

	if len(events) > 0 {
		j.mu.Lock()
		j.size -= len(events)
		if j.size < 0 {
			j.size = 0
		}
		j.mu.Unlock()
	}
	return events, nil
}

// Size returns the number of events this process appended and has not yet read.
func (j *KafkaJournal) Size() int {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.size
}

// Close closes the producer and consumer.
func (j *KafkaJournal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return nil
	}
	j.closed = true

	if err := j.writer.Close(); err != nil {
		log.Printf("[KAFKA] ERROR: Failed to close writer: %v", err)
	}
	return j.reader.Close()
}

// newMessage keys the event by table so one table's changes stay in one
// partition, in order.
func newMessage(event *core.ChangeEvent) (kafka.Message, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to marshal change event: %w", err)
	}
	return kafka.Message{
		Key:   []byte(event.Table),
		Value: data,
		Time:  event.Timestamp,
		Headers: []kafka.Header{
			{Key: "operation", Value: []byte(event.Operation)},
			{Key: "table", Value: []byte(event.Table)},
		},
	}, nil
}

func decodeMessage(message kafka.Message) (*core.ChangeEvent, error) {
	var event core.ChangeEvent
	if err := json.Unmarshal(message.Value, &event); err != nil {
		return nil, err
	}
	if event.Table == "" {
		return nil, fmt.Errorf("%w: message carries no table", ErrInvalidEvent)
	}
	return &event, nil
}

type kafkaFactory struct{}

func (kafkaFactory) Type() string { return "kafka" }

func (kafkaFactory) Create(config registry.InternalJournalConfig) (core.ChangeJournal, error) {
	j, err := NewKafkaJournal(config.KafkaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka journal: %w", err)
	}
	return j, nil
}

func validateKafka(config registry.InternalJournalConfig) error {
	kc := config.KafkaConfig
	if len(kc.Brokers) == 0 {
		return fmt.Errorf("at least one broker is required for Kafka")
	}
	if kc.Topic == "" {
		return fmt.Errorf("topic is required for Kafka")
	}
	if kc.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be greater than 0, got: %d", kc.BatchSize)
	}
	switch kc.RequiredAcks {
	case -1, 0, 1:
	default:
		return fmt.Errorf("required_acks must be -1, 0 or 1, got: %d", kc.RequiredAcks)
	}
	if kc.MinBytes < 0 || (kc.MaxBytes > 0 && kc.MinBytes > kc.MaxBytes) {
		return fmt.Errorf("min_bytes must be between 0 and max_bytes")
	}
	return nil
}

func init() {
	register(kafkaFactory{}, validateKafka)
}
