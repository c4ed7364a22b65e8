package usecase

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/polkiloo/cryptostore/internal/adapter/cache"
	"github.com/polkiloo/cryptostore/internal/domain/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func newRedisCache(t *testing.T) (*cache.RedisCache, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return cache.NewRedisCache(client, "test:", testLogger()), srv
}

// publisherRecorder captures published order events.
type publisherRecorder struct {
	mu     sync.Mutex
	events []model.OrderEvent
	err    error
}

func (p *publisherRecorder) Publish(_ context.Context, event model.OrderEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

func (p *publisherRecorder) Events() []model.OrderEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]model.OrderEvent(nil), p.events...)
}
