// Package kafka publishes audit events to a Kafka topic. The sink sits behind
// a circuit breaker so a broker outage degrades to dropped events instead of
// stalling the audit worker.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	audit "lineacaptura/pkg/platform/audit"
	"lineacaptura/pkg/platform/audit/metrics"
	"lineacaptura/pkg/platform/circuit"
)

// ErrCircuitOpen is returned by Append while the breaker rejects calls.
var ErrCircuitOpen = errors.New("audit kafka sink: circuit open")

// Producer is the subset of *kgo.Client the store needs.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

type Store struct {
	producer Producer
	client   *kgo.Client
	topic    string
	breaker  *circuit.Breaker
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

type Option func(*Store)

func WithBreaker(b *circuit.Breaker) Option {
	return func(s *Store) { s.breaker = b }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// New connects to brokers and verifies connectivity. When createTopic is set
// the topic is created if missing.
func New(ctx context.Context, brokers []string, topic string, createTopic bool, opts ...Option) (*Store, error) {
	if len(brokers) == 0 {
		return nil, errors.New("audit kafka sink: no brokers configured")
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	if err := client.Ping(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping kafka: %w", err)
	}
	if createTopic {
		if err := EnsureTopic(ctx, kadm.NewClient(client), topic, 1); err != nil {
			client.Close()
			return nil, err
		}
	}
	s := NewWithProducer(client, topic, opts...)
	s.client = client
	return s, nil
}

// NewWithProducer builds a store over an existing producer.
func NewWithProducer(p Producer, topic string, opts ...Option) *Store {
	s := &Store{
		producer: p,
		topic:    topic,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.breaker == nil {
		s.breaker = circuit.New("audit-kafka")
	}
	return s
}

// EnsureTopic creates topic, treating an existing topic as success.
func EnsureTopic(ctx context.Context, adm *kadm.Client, topic string, partitions int32) error {
	resp, err := adm.CreateTopics(ctx, partitions, -1, nil, topic)
	if err != nil {
		return fmt.Errorf("create topic %s: %w", topic, err)
	}
	for _, r := range resp {
		if r.Err != nil && !errors.Is(r.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create topic %s: %w", r.Topic, r.Err)
		}
	}
	return nil
}

// Append produces event synchronously, keyed by session so one flow's events
// stay ordered within a partition.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	if !s.breaker.Allow() {
		s.metrics.IncCircuitBreakerDropped()
		return ErrCircuitOpen
	}

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	key := event.SessionID
	if key == "" {
		key = event.RequestID
	}
	record := &kgo.Record{
		Topic: s.topic,
		Key:   []byte(key),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: "category", Value: []byte(event.Category)},
			{Key: "action", Value: []byte(event.Action)},
		},
	}

	if err := s.producer.ProduceSync(ctx, record).FirstErr(); err != nil {
		if _, change := s.breaker.RecordFailure(); change.Opened {
			s.metrics.SetCircuitBreakerState(true)
			s.logger.WarnContext(ctx, "audit kafka circuit opened", "topic", s.topic, "error", err)
		}
		return fmt.Errorf("produce audit event: %w", err)
	}
	if _, change := s.breaker.RecordSuccess(); change.Closed {
		s.metrics.SetCircuitBreakerState(false)
		s.logger.InfoContext(ctx, "audit kafka circuit closed", "topic", s.topic)
	}
	return nil
}

// Close flushes and releases the underlying client, if the store owns one.
func (s *Store) Close() {
	if s.client != nil {
		s.client.Close()
	}
}
