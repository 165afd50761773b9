// Package notify publishes vet notifications to Kafka for the mobile gateway.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/segmentio/kafka-go"

	"github.com/herdline/reprohub/clinical-hub/internal/models"
)

type KafkaConfig struct {
	Brokers []string
	Topic   string

	// MaxAttempts defaults to 3.
	MaxAttempts int

	// WriteTimeout bounds each attempt. Defaults to 5s.
	WriteTimeout time.Duration
}

// messageWriter is the part of kafka.Writer the notifier uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaNotifier produces each notification as JSON keyed by recipient, so a
// vet's notifications stay ordered on one partition.
type KafkaNotifier struct {
	writer       messageWriter
	maxAttempts  int
	writeTimeout time.Duration
	retryDelay   time.Duration
}

func NewKafkaNotifier(cfg KafkaConfig) (*KafkaNotifier, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka: at least one broker required")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("kafka: topic required")
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}
	return newKafkaNotifier(w, cfg), nil
}

func newKafkaNotifier(w messageWriter, cfg KafkaConfig) *KafkaNotifier {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}
	return &KafkaNotifier{
		writer:       w,
		maxAttempts:  cfg.MaxAttempts,
		writeTimeout: cfg.WriteTimeout,
		retryDelay:   100 * time.Millisecond,
	}
}

func (k *KafkaNotifier) SendNotification(ctx context.Context, n models.Notification) error {
	value, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(n.RecipientID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(n.Type)},
			{Key: "workflowRef", Value: []byte(n.WorkflowRef)},
		},
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = k.retryDelay
	policy.MaxInterval = 2 * time.Second
	policy.MaxElapsedTime = 0
	b := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(k.maxAttempts-1)), ctx)

	attempts := 0
	err = backoff.Retry(func() error {
		attempts++
		msg.Time = time.Now().UTC()
		attemptCtx, cancel := context.WithTimeout(ctx, k.writeTimeout)
		defer cancel()
		return k.writer.WriteMessages(attemptCtx, msg)
	}, b)
	if err != nil {
		return fmt.Errorf("publish notification failed after %d attempts: %w", attempts, err)
	}
	return nil
}

func (k *KafkaNotifier) Close() error {
	if k == nil || k.writer == nil {
		return nil
	}
	return k.writer.Close()
}
