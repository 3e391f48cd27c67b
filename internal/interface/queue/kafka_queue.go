package queue

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"fare-pipeline/internal/domain/repository"
)

// KafkaConfig configures the kafka-backed queue
type KafkaConfig struct {
	Brokers           []string
	Topic             string
	Partitions        int
	ReplicationFactor int
}

// KafkaQueue publishes scrape messages to a kafka topic
type KafkaQueue struct {
	cfg    KafkaConfig
	writer *kafka.Writer
}

// NewKafkaQueue creates a topic-backed queue
func NewKafkaQueue(cfg KafkaConfig) *KafkaQueue {
	if cfg.Partitions <= 0 {
		cfg.Partitions = 1
	}
	if cfg.ReplicationFactor <= 0 {
		cfg.ReplicationFactor = 1
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.LeastBytes{},
		MaxAttempts:            5,
		ReadTimeout:            10 * time.Second,
		WriteTimeout:           10 * time.Second,
		Async:                  false,
		AllowAutoTopicCreation: true,
	}
	return &KafkaQueue{cfg: cfg, writer: w}
}

var _ repository.RemoteQueue = (*KafkaQueue)(nil)

// Send writes one message
func (q *KafkaQueue) Send(ctx context.Context, body []byte) error {
	if err := q.writer.WriteMessages(ctx, kafka.Message{Value: body}); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	return nil
}

// PurgeAll deletes and recreates the topic. Kafka has no way to drop unread
// messages in place.
func (q *KafkaQueue) PurgeAll(ctx context.Context) error {
	if len(q.cfg.Brokers) == 0 {
		return errors.New("no kafka brokers configured")
	}

	var dialer kafka.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", q.cfg.Brokers[0])
	if err != nil {
		return fmt.Errorf("failed to dial kafka: %w", err)
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		return fmt.Errorf("failed to find kafka controller: %w", err)
	}
	ctrl, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	if err != nil {
		return fmt.Errorf("failed to dial kafka controller: %w", err)
	}
	defer ctrl.Close()

	if err := ctrl.DeleteTopics(q.cfg.Topic); err != nil && !errors.Is(err, kafka.UnknownTopicOrPartition) {
		return fmt.Errorf("failed to delete topic %s: %w", q.cfg.Topic, err)
	}

	create := kafka.TopicConfig{
		Topic:             q.cfg.Topic,
		NumPartitions:     q.cfg.Partitions,
		ReplicationFactor: q.cfg.ReplicationFactor,
	}
	// deletion is asynchronous on the broker side
	for attempt := 0; attempt < 10; attempt++ {
		err = ctrl.CreateTopics(create)
		if err == nil || errors.Is(err, kafka.TopicAlreadyExists) {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(500 * time.Millisecond):
		}
	}
	return fmt.Errorf("failed to recreate topic %s: %w", q.cfg.Topic, err)
}

// Name returns the topic name
func (q *KafkaQueue) Name() string {
	return q.cfg.Topic
}

// Close flushes and closes the writer
func (q *KafkaQueue) Close() error {
	return q.writer.Close()
}
