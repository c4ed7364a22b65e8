package events

import (
	"errors"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"go.uber.org/fx/fxtest"

	"github.com/polkiloo/cryptostore/internal/config"
)

func restoreSyncProducer(t *testing.T) {
	t.Helper()
	orig := newSyncProducer
	t.Cleanup(func() { newSyncProducer = orig })
}

func TestNewPublisherWithoutBrokers(t *testing.T) {
	lc := fxtest.NewLifecycle(t)
	p, err := newPublisher(publisherParams{Lifecycle: lc, Config: &config.Config{}, Logger: testLogger()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := p.(NopPublisher); !ok {
		t.Fatalf("expected NopPublisher, got %T", p)
	}
}

func TestNewPublisherWithBrokers(t *testing.T) {
	restoreSyncProducer(t)

	var gotBrokers []string
	newSyncProducer = func(addrs []string, cfg *sarama.Config) (sarama.SyncProducer, error) {
		gotBrokers = addrs
		if !cfg.Producer.Return.Successes || cfg.Producer.RequiredAcks != sarama.WaitForAll {
			t.Errorf("unexpected producer config")
		}
		return mocks.NewSyncProducer(t, cfg), nil
	}

	lc := fxtest.NewLifecycle(t)
	cfg := &config.Config{KafkaBrokers: []string{"k1:9092", "k2:9092"}, OrderEventsTopic: "order-events"}
	p, err := newPublisher(publisherParams{Lifecycle: lc, Config: cfg, Logger: testLogger()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	kp, ok := p.(*KafkaPublisher)
	if !ok {
		t.Fatalf("expected *KafkaPublisher, got %T", p)
	}
	if kp.topic != "order-events" || len(gotBrokers) != 2 {
		t.Fatalf("unexpected wiring topic=%s brokers=%v", kp.topic, gotBrokers)
	}

	lc.RequireStart()
	lc.RequireStop()
}

func TestNewPublisherProducerError(t *testing.T) {
	restoreSyncProducer(t)
	newSyncProducer = func([]string, *sarama.Config) (sarama.SyncProducer, error) {
		return nil, sarama.ErrOutOfBrokers
	}

	lc := fxtest.NewLifecycle(t)
	_, err := newPublisher(publisherParams{Lifecycle: lc, Config: &config.Config{KafkaBrokers: []string{"k1:9092"}}, Logger: testLogger()})
	if !errors.Is(err, sarama.ErrOutOfBrokers) {
		t.Fatalf("expected producer error, got %v", err)
	}
}

func TestProducerConfigValidates(t *testing.T) {
	if err := producerConfig().Validate(); err != nil {
		t.Fatalf("invalid producer config: %v", err)
	}
}
