package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/polkiloo/cryptostore/internal/domain/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func paidEvent() model.OrderEvent {
	paymentID := uuid.New()
	return model.OrderEvent{
		Type:          model.OrderEventPaid,
		OrderID:       uuid.New(),
		UserID:        7,
		PaymentID:     &paymentID,
		TransactionID: "abc",
		Provider:      model.ProviderBitcoin,
		Total:         decimal.RequireFromString("90.00"),
		Currency:      "USD",
		OccurredAt:    time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestKafkaPublisherSendsEvent(t *testing.T) {
	producer := mocks.NewSyncProducer(t, producerConfig())
	event := paidEvent()

	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var got model.OrderEvent
		if err := json.Unmarshal(val, &got); err != nil {
			return err
		}
		if got.Type != model.OrderEventPaid || got.OrderID != event.OrderID || got.TransactionID != "abc" {
			return fmt.Errorf("unexpected payload %s", val)
		}
		if !got.Total.Equal(event.Total) {
			return fmt.Errorf("unexpected total %s", got.Total)
		}
		return nil
	})

	publisher := NewKafkaPublisher(producer, "order-events", testLogger())
	if err := publisher.Publish(context.Background(), event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := publisher.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestKafkaPublisherPropagatesFailure(t *testing.T) {
	producer := mocks.NewSyncProducer(t, producerConfig())
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	publisher := NewKafkaPublisher(producer, "order-events", testLogger())
	err := publisher.Publish(context.Background(), paidEvent())
	if !errors.Is(err, sarama.ErrOutOfBrokers) {
		t.Fatalf("expected broker error, got %v", err)
	}
	_ = publisher.Close()
}

func TestKafkaPublisherHonoursCancelledContext(t *testing.T) {
	producer := mocks.NewSyncProducer(t, producerConfig())
	publisher := NewKafkaPublisher(producer, "order-events", testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := publisher.Publish(ctx, paidEvent()); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context error, got %v", err)
	}
	_ = publisher.Close()
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = NopPublisher{Logger: testLogger()}
	if err := p.Publish(context.Background(), paidEvent()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := (NopPublisher{}).Publish(context.Background(), paidEvent()); err != nil {
		t.Fatalf("unexpected error without logger: %v", err)
	}
}
