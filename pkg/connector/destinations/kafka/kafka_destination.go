// Package kafka publishes serialized batches as Kafka messages, one message
// per batch.
package kafka

import (
	"context"
	"sort"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/ajitpratap0/docarrow/pkg/config"
	"github.com/ajitpratap0/docarrow/pkg/connector/core"
	"github.com/ajitpratap0/docarrow/pkg/errors"
	"github.com/ajitpratap0/docarrow/pkg/logger"
	"github.com/ajitpratap0/docarrow/pkg/observability"
)

// maxMessageBytes caps one produced message; brokers enforce their own limit
const maxMessageBytes = 32 * 1024 * 1024

// Destination produces every object to one topic
type Destination struct {
	producer sarama.SyncProducer
	topic    string
	sent     int
	logger   *zap.Logger
}

// New connects a synchronous producer to cfg.Brokers
func New(_ context.Context, cfg config.DestinationConfig, log *zap.Logger) (core.Destination, error) {
	producer, err := sarama.NewSyncProducer(cfg.Brokers, ProducerConfig())
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to create Kafka producer")
	}
	return NewWithProducer(producer, cfg, log), nil
}

// ProducerConfig returns the sarama configuration used for batch messages.
// Payloads are already compressed by the pipeline when requested.
func ProducerConfig() *sarama.Config {
	c := sarama.NewConfig()
	c.ClientID = "docarrow"
	c.Producer.RequiredAcks = sarama.WaitForAll
	c.Producer.Return.Successes = true
	c.Producer.Return.Errors = true
	c.Producer.Idempotent = false
	c.Producer.Compression = sarama.CompressionNone
	c.Producer.MaxMessageBytes = maxMessageBytes
	return c
}

// NewWithProducer creates a destination around an existing producer
func NewWithProducer(producer sarama.SyncProducer, cfg config.DestinationConfig, log *zap.Logger) *Destination {
	return &Destination{
		producer: producer,
		topic:    cfg.Topic,
		logger:   logger.OrNop(log).With(zap.String("component", "kafka_destination"), zap.String("topic", cfg.Topic)),
	}
}

// Write implements core.Destination. The object name is the message key and
// object headers plus the trace context travel as record headers.
func (d *Destination) Write(ctx context.Context, obj core.Object) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	headers := obj.Header()
	observability.InjectContext(ctx, headers)

	msg := &sarama.ProducerMessage{
		Topic:   d.topic,
		Key:     sarama.StringEncoder(obj.Name),
		Value:   sarama.ByteEncoder(obj.Data),
		Headers: recordHeaders(headers),
	}

	partition, offset, err := d.producer.SendMessage(msg)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeDestination, "failed to produce Kafka message").
			WithDetail("topic", d.topic).
			WithDetail("key", obj.Name)
	}

	d.sent++
	d.logger.Debug("batch produced",
		zap.String("key", obj.Name),
		zap.Int32("partition", partition),
		zap.Int64("offset", offset),
		zap.Int("bytes", len(obj.Data)))
	return nil
}

// Close implements core.Destination
func (d *Destination) Close(context.Context) error {
	d.logger.Info("kafka destination closed", zap.Int("messages", d.sent))
	if err := d.producer.Close(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeConnection, "failed to close Kafka producer")
	}
	return nil
}

// recordHeaders converts headers in sorted key order
func recordHeaders(h map[string]string) []sarama.RecordHeader {
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]sarama.RecordHeader, 0, len(keys))
	for _, k := range keys {
		out = append(out, sarama.RecordHeader{Key: []byte(k), Value: []byte(h[k])})
	}
	return out
}
