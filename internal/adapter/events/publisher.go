package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/IBM/sarama"

	"github.com/polkiloo/cryptostore/internal/domain/model"
)

// Publisher delivers order lifecycle events to downstream fulfillment.
type Publisher interface {
	Publish(ctx context.Context, event model.OrderEvent) error
}

// KafkaPublisher writes events to a kafka topic keyed by order id, so every
// event of one order lands on the same partition.
type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
	logger   *slog.Logger
}

// NewKafkaPublisher wraps an already connected producer.
func NewKafkaPublisher(producer sarama.SyncProducer, topic string, logger *slog.Logger) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topic: topic, logger: logger}
}

func (p *KafkaPublisher) Publish(ctx context.Context, event model.OrderEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", event.Type, err)
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(event.OrderID.String()),
		Value: sarama.ByteEncoder(data),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event-type"), Value: []byte(event.Type)},
		},
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("publish %s event: %w", event.Type, err)
	}

	p.logger.Info("order event published",
		slog.String("type", string(event.Type)),
		slog.String("order_id", event.OrderID.String()),
		slog.Int("partition", int(partition)),
		slog.Int64("offset", offset),
	)
	return nil
}

// Close releases the producer.
func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}

// NopPublisher drops events. Used when no brokers are configured.
type NopPublisher struct {
	Logger *slog.Logger
}

func (p NopPublisher) Publish(_ context.Context, event model.OrderEvent) error {
	if p.Logger != nil {
		p.Logger.Debug("order event dropped, kafka disabled",
			slog.String("type", string(event.Type)),
			slog.String("order_id", event.OrderID.String()),
		)
	}
	return nil
}
