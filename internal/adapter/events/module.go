package events

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/IBM/sarama"
	"go.uber.org/fx"

	"github.com/polkiloo/cryptostore/internal/config"
)

// Module provides the order event publisher.
var Module = fx.Provide(newPublisher)

var newSyncProducer = sarama.NewSyncProducer

type publisherParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    *config.Config
	Logger    *slog.Logger
}

func producerConfig() *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.ClientID = "cryptostore"
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Idempotent = true
	cfg.Net.MaxOpenRequests = 1
	cfg.Producer.Retry.Max = 5
	return cfg
}

func newPublisher(p publisherParams) (Publisher, error) {
	if len(p.Config.KafkaBrokers) == 0 {
		p.Logger.Info("kafka brokers not configured, order events disabled")
		return NopPublisher{Logger: p.Logger}, nil
	}

	producer, err := newSyncProducer(p.Config.KafkaBrokers, producerConfig())
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}

	publisher := NewKafkaPublisher(producer, p.Config.OrderEventsTopic, p.Logger)
	p.Lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return publisher.Close()
		},
	})
	return publisher, nil
}
