package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/segmentio/kafka-go"

	"github.com/Rath300/research-collab/pkg/metrics"
	"github.com/Rath300/research-collab/pkg/tracing"
)

// MessageWriter is the part of kafka.Writer the producer uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// ProducerConfig holds Kafka producer configuration
type ProducerConfig struct {
	Brokers      []string
	Topic        string
	BatchTimeout time.Duration
	RequiredAcks int
}

// Producer publishes JSON events to one topic
type Producer struct {
	writer MessageWriter
	logger ectologger.Logger
	topic  string
}

// NewProducer creates a new Kafka producer
func NewProducer(cfg ProducerConfig, logger ectologger.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: cfg.BatchTimeout,
		RequiredAcks: kafka.RequiredAcks(cfg.RequiredAcks),
		// dev brokers may not have the topic yet
		AllowAutoTopicCreation: true,
	}
	return NewProducerWithWriter(writer, cfg.Topic, logger)
}

// NewProducerWithWriter wraps an existing writer.
func NewProducerWithWriter(writer MessageWriter, topic string, logger ectologger.Logger) *Producer {
	return &Producer{
		writer: writer,
		logger: logger,
		topic:  topic,
	}
}

func (p *Producer) Topic() string {
	return p.topic
}

// Close closes the producer
func (p *Producer) Close() error {
	return p.writer.Close()
}

// Publish marshals event and writes it keyed by key. Messages with the same
// key keep their order.
func (p *Producer) Publish(ctx context.Context, key string, event any, headers map[string]string) error {
	ctx, span := tracing.StartSpan(ctx, "kafka.Producer.Publish")
	defer span.End()

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: data,
	}
	for k, v := range headers {
		msg.Headers = append(msg.Headers, kafka.Header{Key: k, Value: []byte(v)})
	}
	if traceParent := tracing.GetTraceParent(ctx); traceParent != "" {
		msg.Headers = append(msg.Headers, kafka.Header{Key: "traceparent", Value: []byte(traceParent)})
	}

	start := time.Now()
	err = p.writer.WriteMessages(ctx, msg)
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.RecordKafkaPublish(p.topic, status, time.Since(start).Seconds())

	if err != nil {
		tracing.RecordError(ctx, err)
		p.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"topic": p.topic,
			"key":   key,
		}).Error("Failed to publish event")
		return err
	}

	p.logger.WithContext(ctx).WithFields(map[string]any{
		"topic": p.topic,
		"key":   key,
	}).Debug("Published event")
	return nil
}
